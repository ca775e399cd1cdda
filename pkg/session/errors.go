package session

import "errors"

var (
	ErrAlreadyActive        = errors.New("owner already has an active session")
	ErrConfirmationMismatch = errors.New("confirmation phrase does not match")
	ErrNotFound             = errors.New("session not found")
	ErrInvalidState         = errors.New("session is not active")
	ErrNoSubjectsAvailable  = errors.New("no subjects available")
)
