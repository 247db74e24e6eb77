package timers

import "errors"

var (
	// ErrEmptyDescription is returned when a create request carries a blank
	// description. Rejected before any store write.
	ErrEmptyDescription = errors.New("empty timer description")

	// ErrDescriptionTooLong is returned when a description exceeds the bound.
	ErrDescriptionTooLong = errors.New("timer description too long")

	// ErrTimerNotFound is returned when a stop did not transition any row:
	// the timer is already closed, belongs to another user, or does not exist.
	// The three cases are deliberately indistinguishable to the caller.
	ErrTimerNotFound = errors.New("timer not found or already stopped")
)
