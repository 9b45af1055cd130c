package ledger

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/yelinaung/split-bot/internal/apperr"
	"gitlab.com/yelinaung/split-bot/internal/logger"
	"gitlab.com/yelinaung/split-bot/internal/models"
)

// MarkPaid settles a split and returns the refreshed board of its expense.
// Settling an already paid split succeeds without touching its settlement
// time. Anyone may settle any split.
func (l *Ledger) MarkPaid(ctx context.Context, splitID string) (models.Board, error) {
	ctx, span := l.tracer.Start(ctx, "MarkPaid", trace.WithAttributes(
		attribute.String("split_id", splitID),
	))
	defer span.End()

	unlock := l.settling.Lock(splitID)
	defer unlock()

	split, err := l.splits.GetByID(ctx, splitID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return models.Board{}, err
	}

	if !split.Paid() {
		updated, err := l.splits.MarkPaid(ctx, splitID, l.now().UTC())
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return models.Board{}, err
		}
		if updated {
			l.metrics.SplitSettled(ctx)
			logger.Log.Info().
				Str("split_id", splitID).
				Str("expense_id", split.ExpenseID).
				Msg("Split settled")
		}
	}

	return l.StatusBoard(ctx, split.ExpenseID)
}

// StatusBoard returns the paid/unpaid view of every split of an expense in
// creation order.
func (l *Ledger) StatusBoard(ctx context.Context, expenseID string) (models.Board, error) {
	splits, err := l.splits.ListByExpense(ctx, expenseID)
	if err != nil {
		return models.Board{}, err
	}
	if len(splits) == 0 {
		return models.Board{}, apperr.NotFound("expense", expenseID)
	}
	return models.BoardFromSplits(expenseID, splits), nil
}

// ExpenseSplits returns an expense with its splits in creation order.
func (l *Ledger) ExpenseSplits(ctx context.Context, expenseID string) (models.Expense, []models.Split, error) {
	expense, err := l.expenses.GetByID(ctx, expenseID)
	if err != nil {
		return models.Expense{}, nil, err
	}
	splits, err := l.splits.ListByExpense(ctx, expenseID)
	if err != nil {
		return models.Expense{}, nil, err
	}
	return *expense, splits, nil
}

// PendingSplits returns every unpaid split, oldest expense first.
func (l *Ledger) PendingSplits(ctx context.Context) ([]models.Split, error) {
	return l.splits.ListPending(ctx)
}

// Outstanding returns the unpaid total per participant, largest first.
func (l *Ledger) Outstanding(ctx context.Context) ([]models.Outstanding, error) {
	return l.splits.Outstanding(ctx)
}
