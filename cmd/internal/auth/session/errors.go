package session

import "errors"

var (
	// ErrSessionNotFound is returned when a token does not resolve to a live
	// session owned by an existing user. Unknown tokens and orphaned sessions
	// (user row deleted underneath) are deliberately indistinguishable.
	ErrSessionNotFound = errors.New("session not found")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)
