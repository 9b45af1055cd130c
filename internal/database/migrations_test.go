package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunMigrations_Idempotent(t *testing.T) {
	db := TestTx(t)
	ctx := context.Background()

	require.NoError(t, RunMigrations(ctx, db))
	require.NoError(t, RunMigrations(ctx, db))

	for _, table := range []string{"users", "expenses", "splits"} {
		var exists bool
		err := db.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT FROM information_schema.tables
				WHERE table_name = $1
			)
		`, table).Scan(&exists)
		require.NoError(t, err)
		require.True(t, exists, "table %s should exist", table)
	}
}

func TestMigrations_Constraints(t *testing.T) {
	db := TestTx(t)
	ctx := context.Background()

	t.Run("split must reference an expense", func(t *testing.T) {
		_, err := db.Exec(ctx, `SAVEPOINT fk`)
		require.NoError(t, err)
		_, err = db.Exec(ctx, `
			INSERT INTO splits (split_id, expense_id, position, participant_username, participant_chat_id, amount)
			VALUES ('SPL-ORPHAN', 'EXP-MISSING', 0, 'alice', 1, 5)
		`)
		require.Error(t, err)
		_, err = db.Exec(ctx, `ROLLBACK TO SAVEPOINT fk`)
		require.NoError(t, err)
	})

	t.Run("status is restricted", func(t *testing.T) {
		_, err := db.Exec(ctx, `SAVEPOINT st`)
		require.NoError(t, err)
		_, err = db.Exec(ctx, `
			INSERT INTO expenses (expense_id, date, payer_username, payer_chat_id, total, participants, per_share, idempotency_key)
			VALUES ('EXP-C1', CURRENT_DATE, 'alice', 1, 10, ARRAY['alice'], 10, 'k-c1')
		`)
		require.NoError(t, err)
		_, err = db.Exec(ctx, `
			INSERT INTO splits (split_id, expense_id, position, participant_username, participant_chat_id, amount, status)
			VALUES ('SPL-C1', 'EXP-C1', 0, 'alice', 1, 10, 'SETTLED')
		`)
		require.Error(t, err)
		_, err = db.Exec(ctx, `ROLLBACK TO SAVEPOINT st`)
		require.NoError(t, err)
	})

	t.Run("usernames are stored lowercase", func(t *testing.T) {
		_, err := db.Exec(ctx, `SAVEPOINT lc`)
		require.NoError(t, err)
		_, err = db.Exec(ctx, `INSERT INTO users (username, chat_id) VALUES ('Alice', 1)`)
		require.Error(t, err)
		_, err = db.Exec(ctx, `ROLLBACK TO SAVEPOINT lc`)
		require.NoError(t, err)
	})
}
