package timers

import (
	v1 "tock/shared/contracts/sync/v1"
)

// ToWire converts a stored timer to its wire representation.
// Closed timers carry end and duration_ms; active timers omit both.
func ToWire(t Timer) v1.TimerPayload {
	p := v1.TimerPayload{
		ID:          t.ID,
		Description: t.Description,
		Start:       t.Start,
	}
	if t.End != nil {
		end := *t.End
		dur := end.Sub(t.Start).Milliseconds()
		p.End = &end
		p.DurationMS = &dur
	}
	return p
}

// ToWireList converts a timer slice, preserving order. Always returns a
// non-nil slice so JSON encodes [] rather than null.
func ToWireList(ts []Timer) []v1.TimerPayload {
	out := make([]v1.TimerPayload, 0, len(ts))
	for _, t := range ts {
		out = append(out, ToWire(t))
	}
	return out
}
