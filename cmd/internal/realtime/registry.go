package realtime

import (
	"hash/fnv"
	"log/slog"
	"sync"

	"tock/cmd/internal/metrics"
	"tock/cmd/internal/timers"
	v1 "tock/shared/contracts/sync/v1"
)

const registryShards = 32

// Registry maps user ids to their live connections and fans full-state
// snapshots out to them. It is the only mutable shared in-memory structure in
// the process; persistence stays behind the timer store.
//
// Concurrency guarantees:
//   - register/unregister/publish for one user are linearizable (they share a
//     shard lock); users on different shards never contend.
//   - Pushes never block: a connection whose queue is saturated or which is
//     shutting down is dropped from the registry instead of retried.
//   - Fanout is panic-safe because Client.Send is never closed by the server.
type Registry struct {
	log    *slog.Logger
	shards [registryShards]registryShard
}

type registryShard struct {
	mu    sync.Mutex
	users map[string]*userEntry
}

type userEntry struct {
	conns map[string]*Client
	// seq increases per push; receivers discard snapshots older than the
	// last applied, so late delivery of an older snapshot cannot win.
	seq uint64
}

// NewRegistry constructs a Registry instance.
func NewRegistry(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	r := &Registry{log: log}
	for i := range r.shards {
		r.shards[i].users = make(map[string]*userEntry)
	}
	return r
}

func (r *Registry) shard(userID string) *registryShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return &r.shards[h.Sum32()%registryShards]
}

// Register adds a connection to its user's set, creating the set if absent.
// Idempotent per connection handle: re-registering the same ConnID is a no-op.
func (r *Registry) Register(c *Client) {
	if c == nil || c.UserID == "" || c.ConnID == "" {
		return
	}

	sh := r.shard(c.UserID)
	sh.mu.Lock()
	entry := sh.users[c.UserID]
	if entry == nil {
		entry = &userEntry{conns: make(map[string]*Client)}
		sh.users[c.UserID] = entry
	}
	if _, dup := entry.conns[c.ConnID]; !dup {
		entry.conns[c.ConnID] = c
		metrics.WSConnections.Inc()
	}
	sh.mu.Unlock()

	r.log.Info("registry.register", "user_id", c.UserID, "conn_id", c.ConnID)
}

// Unregister removes a connection from its user's set. When the set becomes
// empty the user entry is dropped so inactive users consume no memory.
func (r *Registry) Unregister(userID, connID string) {
	if userID == "" || connID == "" {
		return
	}

	sh := r.shard(userID)
	sh.mu.Lock()
	if entry := sh.users[userID]; entry != nil {
		if _, ok := entry.conns[connID]; ok {
			delete(entry.conns, connID)
			metrics.WSConnections.Dec()
		}
		if len(entry.conns) == 0 {
			delete(sh.users, userID)
		}
	}
	sh.mu.Unlock()

	r.log.Info("registry.unregister", "user_id", userID, "conn_id", connID)
}

// Connections reports the number of live connections for userID.
func (r *Registry) Connections(userID string) int {
	sh := r.shard(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	entry := sh.users[userID]
	if entry == nil {
		return 0
	}
	return len(entry.conns)
}

// PublishState implements timers.StatePublisher: it stamps the next per-user
// sequence number onto the snapshot and enqueues it to every connection of
// userID. Best-effort per connection: an undeliverable connection is evicted
// and signalled closed, never retried, and never blocks its siblings.
func (r *Registry) PublishState(userID string, snap timers.Snapshot) {
	sh := r.shard(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	entry := sh.users[userID]
	if entry == nil {
		return
	}

	entry.seq++
	env := stateEnvelope(entry.seq, snap)

	var dead []string
	for connID, c := range entry.conns {
		if !enqueue(c, env) {
			dead = append(dead, connID)
			continue
		}
		metrics.StatePushes.Inc()
	}

	for _, connID := range dead {
		c := entry.conns[connID]
		delete(entry.conns, connID)
		metrics.WSConnections.Dec()
		metrics.StatePushDrops.Inc()
		c.Close()
		r.log.Info("registry.push.drop", "user_id", userID, "conn_id", connID, "seq", entry.seq)
	}
	if len(entry.conns) == 0 {
		delete(sh.users, userID)
	}
}

// SendState pushes a snapshot to a single registered connection, allocating
// the user's next sequence number. Used for the initial push after a
// successful handshake. Returns false when the connection could not take it
// (it is then evicted, mirroring PublishState).
func (r *Registry) SendState(c *Client, snap timers.Snapshot) bool {
	if c == nil {
		return false
	}

	sh := r.shard(c.UserID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	entry := sh.users[c.UserID]
	if entry == nil {
		return false
	}
	if _, ok := entry.conns[c.ConnID]; !ok {
		return false
	}

	entry.seq++
	if !enqueue(c, stateEnvelope(entry.seq, snap)) {
		delete(entry.conns, c.ConnID)
		metrics.WSConnections.Dec()
		metrics.StatePushDrops.Inc()
		c.Close()
		if len(entry.conns) == 0 {
			delete(sh.users, c.UserID)
		}
		return false
	}
	metrics.StatePushes.Inc()
	return true
}

// enqueue attempts a non-blocking send, skipping clients that are shutting down.
func enqueue(c *Client, env v1.Envelope) bool {
	select {
	case <-c.Done():
		return false
	default:
	}

	select {
	case c.Send <- env:
		return true
	default:
		return false
	}
}
