package repository

import (
	"context"
	"time"

	"gitlab.com/yelinaung/split-bot/internal/apperr"
	"gitlab.com/yelinaung/split-bot/internal/database"
	"gitlab.com/yelinaung/split-bot/internal/models"
)

// SplitRepository handles split rows.
type SplitRepository struct {
	db database.PGXDB
}

// NewSplitRepository creates a new SplitRepository.
func NewSplitRepository(db database.PGXDB) *SplitRepository {
	return &SplitRepository{db: db}
}

// GetByID retrieves a split by id.
func (r *SplitRepository) GetByID(ctx context.Context, id string) (*models.Split, error) {
	s, err := scanSplit(r.db.QueryRow(ctx, `SELECT `+splitColumns+` FROM splits WHERE split_id = $1`, id))
	if err != nil {
		return nil, lookupErr("get split", "split", id, err)
	}
	return &s, nil
}

// ListByExpense returns the splits of one expense in creation order.
func (r *SplitRepository) ListByExpense(ctx context.Context, expenseID string) ([]models.Split, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+splitColumns+`
		FROM splits
		WHERE expense_id = $1
		ORDER BY position
	`, expenseID)
	if err != nil {
		return nil, apperr.Storage("list splits", err)
	}
	defer rows.Close()

	splits, err := scanSplits(rows)
	if err != nil {
		return nil, apperr.Storage("scan splits", err)
	}
	return splits, nil
}

// ListPending returns every unpaid split, oldest expense first.
func (r *SplitRepository) ListPending(ctx context.Context) ([]models.Split, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+splitColumns+`
		FROM splits
		WHERE status = 'PENDING'
		ORDER BY created_at, expense_id, position
	`)
	if err != nil {
		return nil, apperr.Storage("list pending splits", err)
	}
	defer rows.Close()

	splits, err := scanSplits(rows)
	if err != nil {
		return nil, apperr.Storage("scan pending splits", err)
	}
	return splits, nil
}

// MarkPaid settles a pending split. It reports false when the split was not
// pending, which covers both an already paid split and an unknown id.
func (r *SplitRepository) MarkPaid(ctx context.Context, id string, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE splits SET status = 'PAID', settled_at = $2
		WHERE split_id = $1 AND status = 'PENDING'
	`, id, at)
	if err != nil {
		return false, apperr.Storage("mark split paid", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Outstanding sums unpaid splits per participant, largest debt first.
func (r *SplitRepository) Outstanding(ctx context.Context) ([]models.Outstanding, error) {
	rows, err := r.db.Query(ctx, `
		SELECT participant_username, SUM(amount), COUNT(*)
		FROM splits
		WHERE status = 'PENDING'
		GROUP BY participant_username
		ORDER BY SUM(amount) DESC, participant_username
	`)
	if err != nil {
		return nil, apperr.Storage("sum outstanding", err)
	}
	defer rows.Close()

	var result []models.Outstanding
	for rows.Next() {
		var o models.Outstanding
		if err := rows.Scan(&o.Username, &o.Amount, &o.Splits); err != nil {
			return nil, apperr.Storage("scan outstanding", err)
		}
		result = append(result, o)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("iterate outstanding", err)
	}
	return result, nil
}
