// Package timers implements Tock's work-timer state: the durable store
// adapters and the sync engine that applies mutations and rebroadcasts the
// authoritative state to every connection of the affected user.
package timers

import (
	"context"
	"time"
)

// Timer is the canonical persisted timer representation.
// End is nil while the timer is active; it is set exactly once.
type Timer struct {
	ID          int64
	UserID      string
	Description string
	Start       time.Time
	End         *time.Time
}

// Snapshot is the full timer state for one user, both partitions ordered by
// start time ascending with ties broken by id.
type Snapshot struct {
	Active []Timer
	Closed []Timer
}

// Store is the durable persistence boundary for timers.
//
// Requirements:
//   - CloseTimer is conditional: it sets end only where end is still unset,
//     and reports how many rows transitioned. This is what makes the
//     active -> closed transition happen at most once under concurrency.
//   - List results are ordered by start time ASC, then id.
type Store interface {
	Insert(ctx context.Context, userID, description string, start time.Time) (int64, error)
	CloseTimer(ctx context.Context, userID string, id int64, end time.Time) (rowsAffected int64, err error)
	ListActive(ctx context.Context, userID string) ([]Timer, error)
	ListClosed(ctx context.Context, userID string) ([]Timer, error)
}
