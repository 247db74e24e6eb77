package timers

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is a Store backed by PostgreSQL.
//
// Ownership model:
//   - PostgresStore does NOT own the pgx pool. The caller must close the pool.
//
// Concurrency model:
//   - The active -> closed transition is a single conditional UPDATE guarded
//     by "end_time IS NULL", so concurrent stops on the same id resolve to
//     exactly one winner without any application-level locking.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures PostgresStore behavior.
type PostgresOption func(*PostgresStore) error

var pgIdentRE = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the DB schema used by this store (default: "tock").
// The schema name is validated and safely quoted in queries.
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return errors.New("timers: empty schema")
		}
		if !pgIdentRE.MatchString(schema) {
			return errors.New("timers: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a Postgres-backed timer Store.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: "tock",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, errors.New("timers: nil pool")
	}
	return st, nil
}

func (s *PostgresStore) table() string {
	return pgx.Identifier{s.schema, "timers"}.Sanitize()
}

// Insert creates an active timer and returns its id.
func (s *PostgresStore) Insert(ctx context.Context, userID, description string, start time.Time) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO `+s.table()+` (user_id, description, start_time)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		userID, description, start,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert timer: %w", err)
	}
	return id, nil
}

// CloseTimer sets end_time for an active timer owned by userID.
// Returns the number of rows that transitioned (0 or 1).
func (s *PostgresStore) CloseTimer(ctx context.Context, userID string, id int64, end time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE `+s.table()+`
		    SET end_time = $1
		  WHERE id = $2 AND user_id = $3 AND end_time IS NULL`,
		end, id, userID,
	)
	if err != nil {
		return 0, fmt.Errorf("close timer: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListActive returns the user's active timers ordered by start time.
func (s *PostgresStore) ListActive(ctx context.Context, userID string) ([]Timer, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, description, start_time, end_time
		   FROM `+s.table()+`
		  WHERE user_id = $1 AND end_time IS NULL
		  ORDER BY start_time ASC, id ASC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	return scanTimers(rows)
}

// ListClosed returns the user's closed timers ordered by start time.
func (s *PostgresStore) ListClosed(ctx context.Context, userID string) ([]Timer, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, description, start_time, end_time
		   FROM `+s.table()+`
		  WHERE user_id = $1 AND end_time IS NOT NULL
		  ORDER BY start_time ASC, id ASC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	return scanTimers(rows)
}

func scanTimers(rows pgx.Rows) ([]Timer, error) {
	defer rows.Close()

	out := make([]Timer, 0, 16)
	for rows.Next() {
		var t Timer
		if err := rows.Scan(&t.ID, &t.UserID, &t.Description, &t.Start, &t.End); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
