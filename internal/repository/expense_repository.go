package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"gitlab.com/yelinaung/split-bot/internal/apperr"
	"gitlab.com/yelinaung/split-bot/internal/database"
	"gitlab.com/yelinaung/split-bot/internal/models"
)

// ExpenseRepository handles expense rows and the splits created with them.
type ExpenseRepository struct {
	db database.PGXDB
}

// NewExpenseRepository creates a new ExpenseRepository.
func NewExpenseRepository(db database.PGXDB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

// CreateWithSplits writes the expense and all of its splits in one
// transaction. If an expense with the same idempotency key already exists
// nothing is written and created is false.
func (r *ExpenseRepository) CreateWithSplits(
	ctx context.Context,
	expense *models.Expense,
	splits []models.Split,
) (created bool, err error) {
	err = database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO expenses (expense_id, date, payer_username, payer_chat_id, total, participants,
				per_share, idempotency_key, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (idempotency_key) DO NOTHING
		`, expense.ID, expense.Date, expense.PayerUsername, expense.PayerChatID, expense.Total,
			expense.Participants, expense.PerShare, expense.IdempotencyKey, expense.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert expense: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		for _, s := range splits {
			batch.Queue(`
				INSERT INTO splits (split_id, expense_id, position, participant_username, participant_chat_id,
					amount, status, settled_at, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			`, s.ID, s.ExpenseID, s.Position, s.ParticipantUsername, s.ParticipantChatID,
				s.Amount, string(s.Status), s.SettledAt, s.CreatedAt)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert splits: %w", err)
		}

		created = true
		return nil
	})
	if err != nil {
		return false, apperr.Storage("create expense", err)
	}
	return created, nil
}

// GetByID retrieves an expense by id.
func (r *ExpenseRepository) GetByID(ctx context.Context, id string) (*models.Expense, error) {
	e, err := scanExpense(r.db.QueryRow(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE expense_id = $1`, id))
	if err != nil {
		return nil, lookupErr("get expense", "expense", id, err)
	}
	return e, nil
}

// GetByIdempotencyKey retrieves the expense created under key.
func (r *ExpenseRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.Expense, error) {
	e, err := scanExpense(r.db.QueryRow(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE idempotency_key = $1`, key))
	if err != nil {
		return nil, lookupErr("get expense by key", "expense", key, err)
	}
	return e, nil
}
