// Package v1 defines the Tock Sync Protocol v1 contract.
//
// This package is intentionally stable and dependency-light.
// It is shared between server and clients to keep the wire protocol authoritative.
package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Version is the protocol version identifier embedded into every envelope.
const Version = "v1"

// Type constants (wire-stable).
const (
	// TypeCreateTimer starts a new timer (client -> server).
	TypeCreateTimer = "create_timer"
	// TypeStopTimer stops an active timer (client -> server).
	TypeStopTimer = "stop_timer"

	// TypeAllTimers is the authoritative full-state push (server -> all of the
	// owning user's connections). A later push always supersedes an earlier one;
	// receivers must discard any snapshot whose seq is lower than the last applied.
	TypeAllTimers = "all_timers"

	// TypeError is a generic error envelope (server -> client).
	TypeError = "error"
)

// Envelope is the canonical wire wrapper.
type Envelope struct {
	V       string          `json:"v"`
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	TS      time.Time       `json:"ts,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Validate performs strict structural validation for an Envelope.
func (e Envelope) Validate() error {
	if strings.TrimSpace(e.V) == "" {
		return errors.New("missing field: v")
	}
	if e.V != Version {
		return fmt.Errorf("unsupported protocol version: %q", e.V)
	}
	if strings.TrimSpace(e.Type) == "" {
		return errors.New("missing field: type")
	}

	switch e.Type {
	case TypeCreateTimer,
		TypeStopTimer,
		TypeAllTimers,
		TypeError:
		return nil
	default:
		return fmt.Errorf("unknown type: %q", e.Type)
	}
}

// ---- Payloads ----

// CreateTimerPayload requests starting a new timer.
type CreateTimerPayload struct {
	Description string `json:"description"`
}

// StopTimerPayload requests stopping an active timer by id.
type StopTimerPayload struct {
	ID int64 `json:"id"`
}

// TimerPayload is the wire representation of a single timer.
// End and DurationMS are absent while the timer is active.
type TimerPayload struct {
	ID          int64      `json:"id"`
	Description string     `json:"description"`
	Start       time.Time  `json:"start"`
	End         *time.Time `json:"end,omitempty"`
	DurationMS  *int64     `json:"duration_ms,omitempty"`
}

// AllTimersPayload carries the full timer state for one user.
// Seq increases monotonically per user; stale snapshots must be discarded.
type AllTimersPayload struct {
	Seq          uint64         `json:"seq"`
	ActiveTimers []TimerPayload `json:"active_timers"`
	ClosedTimers []TimerPayload `json:"closed_timers"`
}

// ErrorPayload is a generic error response payload.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
