package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"gitlab.com/yelinaung/split-bot/internal/apperr"
	"gitlab.com/yelinaung/split-bot/internal/models"
)

// errMalformedRow marks a row that scanned but violates the ledger model.
var errMalformedRow = errors.New("malformed row")

type rowScanner interface {
	Scan(dest ...any) error
}

type rowsScanner interface {
	rowScanner
	Next() bool
	Err() error
}

const splitColumns = `split_id, expense_id, position, participant_username, participant_chat_id,
	amount, status, settled_at, created_at`

const expenseColumns = `expense_id, date, payer_username, payer_chat_id, total, participants,
	per_share, idempotency_key, created_at`

func scanSplit(row rowScanner) (models.Split, error) {
	var (
		s         models.Split
		status    string
		settledAt *time.Time
	)
	if err := row.Scan(
		&s.ID, &s.ExpenseID, &s.Position, &s.ParticipantUsername, &s.ParticipantChatID,
		&s.Amount, &status, &settledAt, &s.CreatedAt,
	); err != nil {
		return models.Split{}, err
	}
	s.Status = models.SplitStatus(status)
	s.SettledAt = settledAt

	if err := validateSplit(s); err != nil {
		return models.Split{}, err
	}
	return s, nil
}

func validateSplit(s models.Split) error {
	switch {
	case s.ID == "" || s.ExpenseID == "":
		return fmt.Errorf("%w: split without id", errMalformedRow)
	case s.ParticipantUsername == "":
		return fmt.Errorf("%w: split %s without participant", errMalformedRow, s.ID)
	case !s.Status.Valid():
		return fmt.Errorf("%w: split %s has status %q", errMalformedRow, s.ID, s.Status)
	case s.Amount.IsNegative():
		return fmt.Errorf("%w: split %s has negative amount", errMalformedRow, s.ID)
	case s.Status == models.SplitStatusPaid && s.SettledAt == nil:
		return fmt.Errorf("%w: split %s is paid without settled_at", errMalformedRow, s.ID)
	}
	return nil
}

func scanSplits(rows rowsScanner) ([]models.Split, error) {
	var splits []models.Split
	for rows.Next() {
		s, err := scanSplit(rows)
		if err != nil {
			return nil, err
		}
		splits = append(splits, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return splits, nil
}

func scanExpense(row rowScanner) (*models.Expense, error) {
	var e models.Expense
	if err := row.Scan(
		&e.ID, &e.Date, &e.PayerUsername, &e.PayerChatID, &e.Total, &e.Participants,
		&e.PerShare, &e.IdempotencyKey, &e.CreatedAt,
	); err != nil {
		return nil, err
	}

	switch {
	case e.ID == "":
		return nil, fmt.Errorf("%w: expense without id", errMalformedRow)
	case !e.Total.IsPositive():
		return nil, fmt.Errorf("%w: expense %s has non-positive total", errMalformedRow, e.ID)
	case len(e.Participants) == 0:
		return nil, fmt.Errorf("%w: expense %s has no participants", errMalformedRow, e.ID)
	case e.PerShare.IsNegative():
		return nil, fmt.Errorf("%w: expense %s has negative share", errMalformedRow, e.ID)
	}
	return &e, nil
}

// lookupErr maps a single-row lookup failure onto the error taxonomy.
func lookupErr(op, entity, id string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(entity, id)
	}
	return apperr.Storage(op, err)
}
