package realtime

import (
	"encoding/json"
	"time"

	"tock/cmd/internal/timers"
	v1 "tock/shared/contracts/sync/v1"
)

// stateEnvelope builds the full-state push for one user. The sequence number
// lets receivers discard snapshots that arrive out of order.
func stateEnvelope(seq uint64, snap timers.Snapshot) v1.Envelope {
	payload := v1.AllTimersPayload{
		Seq:          seq,
		ActiveTimers: timers.ToWireList(snap.Active),
		ClosedTimers: timers.ToWireList(snap.Closed),
	}
	raw, _ := json.Marshal(payload)
	return v1.Envelope{
		V:       v1.Version,
		Type:    v1.TypeAllTimers,
		ID:      newEnvelopeID(),
		TS:      time.Now().UTC(),
		Payload: raw,
	}
}

// errorEnvelope builds an error push for protocol or command failures that do
// not warrant closing the connection.
func errorEnvelope(code, msg string) v1.Envelope {
	raw, _ := json.Marshal(v1.ErrorPayload{Code: code, Message: msg})
	return v1.Envelope{
		V:       v1.Version,
		Type:    v1.TypeError,
		ID:      newEnvelopeID(),
		TS:      time.Now().UTC(),
		Payload: raw,
	}
}
