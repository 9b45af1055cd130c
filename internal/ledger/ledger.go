// Package ledger records expenses, splits them equally between participants
// and tracks settlement of each split.
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/yelinaung/split-bot/internal/apperr"
	"gitlab.com/yelinaung/split-bot/internal/keylock"
	"gitlab.com/yelinaung/split-bot/internal/logger"
	"gitlab.com/yelinaung/split-bot/internal/models"
	"gitlab.com/yelinaung/split-bot/internal/telemetry"
)

// idNamespace scopes the name-based UUIDs that expense and split ids are
// derived from.
var idNamespace = uuid.MustParse("8b0d5c3e-2f4a-5e61-9c7d-3a1b2c4d5e6f")

// ExpenseStore persists expenses together with their splits.
type ExpenseStore interface {
	CreateWithSplits(ctx context.Context, expense *models.Expense, splits []models.Split) (bool, error)
	GetByID(ctx context.Context, id string) (*models.Expense, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*models.Expense, error)
}

// SplitStore reads and settles splits.
type SplitStore interface {
	GetByID(ctx context.Context, id string) (*models.Split, error)
	ListByExpense(ctx context.Context, expenseID string) ([]models.Split, error)
	ListPending(ctx context.Context) ([]models.Split, error)
	MarkPaid(ctx context.Context, id string, at time.Time) (bool, error)
	Outstanding(ctx context.Context) ([]models.Outstanding, error)
}

// Ledger is the single writer of expenses and splits.
type Ledger struct {
	expenses ExpenseStore
	splits   SplitStore
	now      func() time.Time
	metrics  *telemetry.Metrics
	tracer   trace.Tracer

	creating *keylock.Locker[string]
	settling *keylock.Locker[string]
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithMetrics enables domain counters.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(l *Ledger) { l.metrics = m }
}

// New creates a Ledger.
func New(expenses ExpenseStore, splits SplitStore, opts ...Option) *Ledger {
	l := &Ledger{
		expenses: expenses,
		splits:   splits,
		now:      time.Now,
		tracer:   telemetry.Tracer("ledger"),
		creating: keylock.New[string](),
		settling: keylock.New[string](),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Creation is the result of recording an expense.
type Creation struct {
	Expense  models.Expense
	PerShare decimal.Decimal
	Splits   []models.Split
	// Replayed is set when the idempotency key had already been used and the
	// stored expense was returned instead of writing a new one.
	Replayed bool
}

// CreateExpense records an expense paid by payer and one pending split per
// participant, in the given order. Calling it again with the same key returns
// the expense written the first time.
func (l *Ledger) CreateExpense(
	ctx context.Context,
	payer models.User,
	participants []models.User,
	total decimal.Decimal,
	key string,
) (Creation, error) {
	ctx, span := l.tracer.Start(ctx, "CreateExpense", trace.WithAttributes(
		attribute.Int("participants", len(participants)),
	))
	defer span.End()

	if err := validateCreate(participants, total, key); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Creation{}, err
	}

	unlock := l.creating.Lock(key)
	defer unlock()

	expense, splits := l.build(payer, participants, total, key)
	created, err := l.expenses.CreateWithSplits(ctx, &expense, splits)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store failed")
		return Creation{}, err
	}
	if !created {
		return l.replay(ctx, key)
	}

	l.metrics.ExpenseCreated(ctx, len(splits))
	span.SetAttributes(attribute.String("expense_id", expense.ID))
	logger.Log.Info().
		Str("expense_id", expense.ID).
		Int("splits", len(splits)).
		Str("per_share", expense.PerShare.StringFixed(2)).
		Msg("Expense recorded")

	return Creation{Expense: expense, PerShare: expense.PerShare, Splits: splits}, nil
}

func validateCreate(participants []models.User, total decimal.Decimal, key string) error {
	if len(participants) == 0 {
		return apperr.ErrEmptySelection
	}
	if !total.IsPositive() {
		return apperr.ErrInvalidAmount
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: idempotency key is empty", apperr.ErrValidation)
	}
	seen := make(map[string]struct{}, len(participants))
	for _, p := range participants {
		if p.Username == "" {
			return apperr.ErrEmptyUsername
		}
		if _, dup := seen[p.Username]; dup {
			return fmt.Errorf("%w: @%s listed twice", apperr.ErrValidation, p.Username)
		}
		seen[p.Username] = struct{}{}
	}
	return nil
}

func (l *Ledger) build(payer models.User, participants []models.User, total decimal.Decimal, key string) (models.Expense, []models.Split) {
	now := l.now().UTC()
	perShare := models.PerShare(total, len(participants))

	expense := models.Expense{
		ID:             ExpenseID(key),
		Date:           time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		PayerUsername:  payer.Username,
		PayerChatID:    payer.ChatID,
		Total:          total,
		Participants:   make([]string, 0, len(participants)),
		PerShare:       perShare,
		IdempotencyKey: key,
		CreatedAt:      now,
	}

	splits := make([]models.Split, 0, len(participants))
	for i, p := range participants {
		expense.Participants = append(expense.Participants, p.Username)
		splits = append(splits, models.Split{
			ID:                  SplitID(key, i),
			ExpenseID:           expense.ID,
			Position:            i,
			ParticipantUsername: p.Username,
			ParticipantChatID:   p.ChatID,
			Amount:              perShare,
			Status:              models.SplitStatusPending,
			CreatedAt:           now,
		})
	}
	return expense, splits
}

func (l *Ledger) replay(ctx context.Context, key string) (Creation, error) {
	expense, err := l.expenses.GetByIdempotencyKey(ctx, key)
	if err != nil {
		return Creation{}, err
	}
	splits, err := l.splits.ListByExpense(ctx, expense.ID)
	if err != nil {
		return Creation{}, err
	}
	logger.Log.Info().Str("expense_id", expense.ID).Msg("Expense already recorded for this dialog")
	return Creation{Expense: *expense, PerShare: expense.PerShare, Splits: splits, Replayed: true}, nil
}

// ExpenseID derives the expense id for an idempotency key.
func ExpenseID(key string) string {
	return "EXP-" + shortID(key, 8)
}

// SplitID derives the id of the split at position within the expense created
// under key.
func SplitID(key string, position int) string {
	return "SPL-" + shortID(fmt.Sprintf("%s#%d", key, position), 10)
}

func shortID(name string, n int) string {
	id := uuid.NewSHA1(idNamespace, []byte(name))
	hex := strings.ReplaceAll(id.String(), "-", "")
	return strings.ToUpper(hex[:n])
}
