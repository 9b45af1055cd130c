// Package reminder nudges participants about splits they have not settled.
package reminder

import (
	"context"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"gitlab.com/yelinaung/split-bot/internal/logger"
	"gitlab.com/yelinaung/split-bot/internal/models"
	"gitlab.com/yelinaung/split-bot/internal/telemetry"
)

// DefaultConcurrency bounds how many recipients are messaged at once.
const DefaultConcurrency = 4

// Source supplies pending splits and expense boards.
type Source interface {
	PendingSplits(ctx context.Context) ([]models.Split, error)
	StatusBoard(ctx context.Context, expenseID string) (models.Board, error)
}

// Sender delivers one reminder.
type Sender interface {
	SendReminder(ctx context.Context, split models.Split, board models.Board) error
}

// Report summarizes one run.
type Report struct {
	Pending    int
	Recipients int
	Sent       int
	Failed     int
}

// Processor sends one reminder per pending split.
type Processor struct {
	source      Source
	sender      Sender
	concurrency int
	metrics     *telemetry.Metrics
	tracer      trace.Tracer
}

// NewProcessor creates a Processor. A concurrency below one uses
// DefaultConcurrency.
func NewProcessor(source Source, sender Sender, concurrency int, metrics *telemetry.Metrics) *Processor {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &Processor{
		source:      source,
		sender:      sender,
		concurrency: concurrency,
		metrics:     metrics,
		tracer:      telemetry.Tracer("reminder"),
	}
}

type recipient struct {
	chatID int64
	splits []models.Split
}

// groupByRecipient groups splits by delivery address, keeping the order in
// which each address first appears.
func groupByRecipient(splits []models.Split) []recipient {
	index := make(map[int64]int)
	var out []recipient
	for _, s := range splits {
		i, ok := index[s.ParticipantChatID]
		if !ok {
			i = len(out)
			index[s.ParticipantChatID] = i
			out = append(out, recipient{chatID: s.ParticipantChatID})
		}
		out[i].splits = append(out[i].splits, s)
	}
	return out
}

// Run sends the reminders. Only a failure to load pending splits is
// returned; individual delivery failures are logged and counted.
func (p *Processor) Run(ctx context.Context) (Report, error) {
	ctx, span := p.tracer.Start(ctx, "Run")
	defer span.End()

	pending, err := p.source.PendingSplits(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Report{}, err
	}

	recipients := groupByRecipient(pending)
	boards := p.loadBoards(ctx, pending)

	var sent, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for _, r := range recipients {
		g.Go(func() error {
			for _, s := range r.splits {
				board, ok := boards[s.ExpenseID]
				if !ok {
					failed.Add(1)
					continue
				}
				if err := p.sender.SendReminder(ctx, s, board); err != nil {
					failed.Add(1)
					logger.Log.Warn().
						Err(err).
						Str("split_id", s.ID).
						Str("chat_id_hash", logger.HashChatID(r.chatID)).
						Msg("Failed to send reminder")
					continue
				}
				sent.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	report := Report{
		Pending:    len(pending),
		Recipients: len(recipients),
		Sent:       int(sent.Load()),
		Failed:     int(failed.Load()),
	}
	p.metrics.Reminders(ctx, report.Sent, report.Failed)
	span.SetAttributes(
		attribute.Int("pending", report.Pending),
		attribute.Int("sent", report.Sent),
		attribute.Int("failed", report.Failed),
	)
	logger.Log.Info().
		Int("pending", report.Pending).
		Int("recipients", report.Recipients).
		Int("sent", report.Sent).
		Int("failed", report.Failed).
		Msg("Reminder run finished")
	return report, nil
}

// loadBoards computes each expense board once per run. Expenses whose board
// cannot be loaded are left out and their reminders count as failed.
func (p *Processor) loadBoards(ctx context.Context, pending []models.Split) map[string]models.Board {
	boards := make(map[string]models.Board)
	for _, s := range pending {
		if _, done := boards[s.ExpenseID]; done {
			continue
		}
		board, err := p.source.StatusBoard(ctx, s.ExpenseID)
		if err != nil {
			logger.Log.Warn().Err(err).Str("expense_id", s.ExpenseID).Msg("Failed to load status board for reminder")
			continue
		}
		boards[s.ExpenseID] = board
	}
	return boards
}
