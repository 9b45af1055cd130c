package database

import (
	"context"
	"fmt"
)

// RunMigrations creates the ledger schema. Every statement is idempotent.
func RunMigrations(ctx context.Context, db PGXDB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			username TEXT PRIMARY KEY CHECK (username <> '' AND username = LOWER(username)),
			chat_id BIGINT NOT NULL DEFAULT 0,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS expenses (
			expense_id TEXT PRIMARY KEY,
			date DATE NOT NULL,
			payer_username TEXT NOT NULL,
			payer_chat_id BIGINT NOT NULL,
			total DECIMAL(14, 2) NOT NULL CHECK (total > 0),
			participants TEXT[] NOT NULL CHECK (cardinality(participants) > 0),
			per_share DECIMAL(14, 2) NOT NULL,
			idempotency_key TEXT NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS splits (
			split_id TEXT PRIMARY KEY,
			expense_id TEXT NOT NULL REFERENCES expenses(expense_id),
			position INTEGER NOT NULL,
			participant_username TEXT NOT NULL,
			participant_chat_id BIGINT NOT NULL,
			amount DECIMAL(14, 2) NOT NULL,
			status TEXT NOT NULL DEFAULT 'PENDING' CHECK (status IN ('PENDING', 'PAID')),
			settled_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (expense_id, position),
			UNIQUE (expense_id, participant_username)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_splits_expense_id ON splits(expense_id)`,
		`CREATE INDEX IF NOT EXISTS idx_splits_pending ON splits(participant_chat_id) WHERE status = 'PENDING'`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_created_at ON expenses(created_at)`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}
