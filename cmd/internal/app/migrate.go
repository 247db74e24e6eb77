package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate applies the schema idempotently. It is opt-in via TOCK_DB_MIGRATE;
// managed environments run migrations out of band instead.
func Migrate(ctx context.Context, pool *pgxpool.Pool, schema string) error {
	if schema == "" {
		schema = "tock"
	}
	ident := pgx.Identifier{schema}.Sanitize()

	stmts := []string{
		fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, ident),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			username_norm TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, ident),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.sessions (
			token_hash TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES %s.users(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, ident, ident),

		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS sessions_user_id_idx ON %s.sessions (user_id)`, ident),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.timers (
			id BIGSERIAL PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES %s.users(id) ON DELETE CASCADE,
			description TEXT NOT NULL,
			start_time TIMESTAMPTZ NOT NULL DEFAULT now(),
			end_time TIMESTAMPTZ
		)`, ident, ident),

		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS timers_user_id_idx ON %s.timers (user_id)`, ident),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS timers_user_active_idx ON %s.timers (user_id) WHERE end_time IS NULL`, ident),
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
