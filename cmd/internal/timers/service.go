package timers

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"tock/cmd/internal/metrics"
)

const maxDescriptionChars = 500

// StatePublisher pushes a full snapshot to every live connection of a user.
// Implemented by the realtime connection registry; a no-op implementation is
// fine when no realtime surface is running.
type StatePublisher interface {
	PublishState(userID string, snap Snapshot)
}

// NopPublisher discards state pushes.
type NopPublisher struct{}

// PublishState implements StatePublisher.
func (NopPublisher) PublishState(string, Snapshot) {}

// Service is the timer sync engine.
//
// It owns no timer state between calls: every resync re-derives the snapshot
// from the durable store, so all connected clients converge on exactly what
// the store holds. The only in-memory structure is a per-user mutex that
// serializes mutation+resync, which keeps snapshot-taken order aligned with
// the sequence numbers the publisher stamps onto pushes.
type Service struct {
	log       *slog.Logger
	store     Store
	publisher StatePublisher

	userMu sync.Map // user id -> *sync.Mutex
}

// NewService constructs the sync engine. A nil publisher disables pushes.
func NewService(log *slog.Logger, store Store, publisher StatePublisher) *Service {
	if log == nil {
		log = slog.Default()
	}
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &Service{log: log, store: store, publisher: publisher}
}

func (s *Service) lockUser(userID string) func() {
	v, _ := s.userMu.LoadOrStore(userID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Create validates and inserts a new active timer for userID, then resyncs
// all of the user's connections. Returns the new timer id.
func (s *Service) Create(ctx context.Context, userID, description string) (int64, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		metrics.TimerMutations.WithLabelValues("create", "invalid").Inc()
		return 0, ErrEmptyDescription
	}
	if len([]rune(description)) > maxDescriptionChars {
		metrics.TimerMutations.WithLabelValues("create", "invalid").Inc()
		return 0, ErrDescriptionTooLong
	}

	unlock := s.lockUser(userID)
	defer unlock()

	id, err := s.store.Insert(ctx, userID, description, time.Now().UTC())
	if err != nil {
		metrics.TimerMutations.WithLabelValues("create", "error").Inc()
		s.log.Error("timer.create.fail", "user_id", userID, "err", err)
		return 0, err
	}

	metrics.TimerMutations.WithLabelValues("create", "ok").Inc()
	s.resync(ctx, userID)
	return id, nil
}

// Stop performs the conditional active -> closed transition for the given
// timer. When no row transitions (already closed, foreign owner, or missing)
// it returns ErrTimerNotFound and triggers no resync.
func (s *Service) Stop(ctx context.Context, userID string, id int64) error {
	unlock := s.lockUser(userID)
	defer unlock()

	rows, err := s.store.CloseTimer(ctx, userID, id, time.Now().UTC())
	if err != nil {
		metrics.TimerMutations.WithLabelValues("stop", "error").Inc()
		s.log.Error("timer.stop.fail", "user_id", userID, "timer_id", id, "err", err)
		return err
	}
	if rows == 0 {
		metrics.TimerMutations.WithLabelValues("stop", "conflict").Inc()
		return ErrTimerNotFound
	}

	metrics.TimerMutations.WithLabelValues("stop", "ok").Inc()
	s.resync(ctx, userID)
	return nil
}

// SyncConnection reads the user's full state and hands it to push while
// holding the user's mutation lock. No Create or Stop can commit and publish
// between the snapshot read and the push, so the sequence number the push
// allocates is ordered consistently with every broadcast. Used for the
// initial push after a successful handshake.
func (s *Service) SyncConnection(ctx context.Context, userID string, push func(Snapshot) bool) (bool, error) {
	unlock := s.lockUser(userID)
	defer unlock()

	snap, err := s.Snapshot(ctx, userID)
	if err != nil {
		return false, err
	}
	return push(snap), nil
}

// Snapshot reads the user's full timer state from the store.
func (s *Service) Snapshot(ctx context.Context, userID string) (Snapshot, error) {
	active, err := s.store.ListActive(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	closed, err := s.store.ListClosed(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Active: active, Closed: closed}, nil
}

// resync pushes the authoritative state to every connection of userID.
// A failed snapshot read is logged and nothing is pushed: a resync must never
// deliver partial state. The mutation that triggered it has already committed.
func (s *Service) resync(ctx context.Context, userID string) {
	snap, err := s.Snapshot(ctx, userID)
	if err != nil {
		s.log.Error("timer.resync.snapshot.fail", "user_id", userID, "err", err)
		return
	}
	s.publisher.PublishState(userID, snap)
}
