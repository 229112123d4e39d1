package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are applied in order on startup. Each statement is idempotent.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT users_email_key UNIQUE (email)
	)`,
	`CREATE TABLE IF NOT EXISTS habits (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		description TEXT,
		frequency TEXT NOT NULL,
		tags TEXT[] NOT NULL DEFAULT '{}',
		reminder_time TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS habits_user_created_idx
		ON habits (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS habit_logs (
		id BIGSERIAL PRIMARY KEY,
		habit_id BIGINT NOT NULL REFERENCES habits(id) ON DELETE CASCADE,
		date TIMESTAMPTZ NOT NULL,
		completed BOOLEAN NOT NULL DEFAULT TRUE,
		CONSTRAINT habit_logs_habit_id_date_key UNIQUE (habit_id, date)
	)`,
}

// Apply runs all schema migrations against db.
func Apply(ctx context.Context, db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
