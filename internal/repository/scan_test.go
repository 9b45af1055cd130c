package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/split-bot/internal/apperr"
	"gitlab.com/yelinaung/split-bot/internal/models"
)

// fakeRow assigns values positionally, the way pgx does for simple types.
type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = r.values[i].(string)
		case *int:
			*p = r.values[i].(int)
		case *int64:
			*p = r.values[i].(int64)
		case *decimal.Decimal:
			*p = r.values[i].(decimal.Decimal)
		case *time.Time:
			*p = r.values[i].(time.Time)
		case **time.Time:
			*p, _ = r.values[i].(*time.Time)
		case *[]string:
			*p = r.values[i].([]string)
		default:
			return errors.New("unsupported destination")
		}
	}
	return nil
}

func splitRow(status string, amount string, settledAt *time.Time) fakeRow {
	return fakeRow{values: []any{
		"SPL-1", "EXP-1", 0, "alice", int64(42),
		decimal.RequireFromString(amount), status, settledAt, time.Now(),
	}}
}

func TestScanSplit(t *testing.T) {
	t.Parallel()
	now := time.Now()

	t.Run("accepts a pending split", func(t *testing.T) {
		t.Parallel()
		s, err := scanSplit(splitRow("PENDING", "5.00", nil))
		require.NoError(t, err)
		require.Equal(t, models.SplitStatusPending, s.Status)
		require.Equal(t, int64(42), s.ParticipantChatID)
	})

	t.Run("accepts a paid split", func(t *testing.T) {
		t.Parallel()
		s, err := scanSplit(splitRow("PAID", "5.00", &now))
		require.NoError(t, err)
		require.True(t, s.Paid())
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		t.Parallel()
		_, err := scanSplit(splitRow("MAYBE", "5.00", nil))
		require.ErrorIs(t, err, errMalformedRow)
	})

	t.Run("rejects negative amount", func(t *testing.T) {
		t.Parallel()
		_, err := scanSplit(splitRow("PENDING", "-1", nil))
		require.ErrorIs(t, err, errMalformedRow)
	})

	t.Run("rejects paid without timestamp", func(t *testing.T) {
		t.Parallel()
		_, err := scanSplit(splitRow("PAID", "5.00", nil))
		require.ErrorIs(t, err, errMalformedRow)
	})
}

func TestScanExpense(t *testing.T) {
	t.Parallel()

	row := func(total string, participants []string) fakeRow {
		return fakeRow{values: []any{
			"EXP-1", time.Now(), "alice", int64(1), decimal.RequireFromString(total),
			participants, decimal.RequireFromString("5"), "key", time.Now(),
		}}
	}

	t.Run("accepts a valid expense", func(t *testing.T) {
		t.Parallel()
		e, err := scanExpense(row("10", []string{"alice", "bob"}))
		require.NoError(t, err)
		require.Equal(t, []string{"alice", "bob"}, e.Participants)
	})

	t.Run("rejects zero total", func(t *testing.T) {
		t.Parallel()
		_, err := scanExpense(row("0", []string{"alice"}))
		require.ErrorIs(t, err, errMalformedRow)
	})

	t.Run("rejects empty participants", func(t *testing.T) {
		t.Parallel()
		_, err := scanExpense(row("10", nil))
		require.ErrorIs(t, err, errMalformedRow)
	})
}

func TestLookupErr(t *testing.T) {
	t.Parallel()

	err := lookupErr("get split", "split", "SPL-1", pgx.ErrNoRows)
	require.True(t, apperr.IsNotFound(err))
	require.False(t, apperr.IsStorage(err))

	err = lookupErr("get split", "split", "SPL-1", errMalformedRow)
	require.True(t, apperr.IsStorage(err))
	require.ErrorIs(t, err, errMalformedRow)
}
