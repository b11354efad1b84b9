package onboarding

import "errors"

var (
	// ErrInvalidConfiguration means the step definitions cannot build a tracker.
	ErrInvalidConfiguration = errors.New("invalid onboarding configuration")
	// ErrCorruptState means a snapshot is unreadable or does not match the definitions.
	ErrCorruptState = errors.New("corrupt onboarding state")
	// ErrUnknownStep means a mutation named an id the tracker does not have.
	ErrUnknownStep = errors.New("unknown onboarding step")
	// ErrAlreadyTerminal means the step, or the whole tracker, accepts no further progress.
	ErrAlreadyTerminal = errors.New("onboarding step already terminal")
)
