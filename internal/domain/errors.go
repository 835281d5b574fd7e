package domain

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	// Queue errors
	ErrQueueNotFound = errors.New("queue not found")
	ErrQueueInactive = errors.New("queue is not active")
	ErrQueueFull     = errors.New("queue is at maximum capacity")
	ErrQueueNotEmpty = errors.New("queue still has active tokens")

	// Token errors
	ErrTokenNotFound      = errors.New("token not found")
	ErrNoWaitingTokens    = errors.New("no tokens waiting in queue")
	ErrDuplicateToken     = errors.New("user already has an active token in this queue")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrAllocationConflict = errors.New("token number already allocated")

	// Validation errors
	ErrInvalidQueueID        = errors.New("invalid queue id")
	ErrInvalidUserID         = errors.New("invalid user id")
	ErrInvalidQueueName      = errors.New("invalid queue name")
	ErrInvalidMaxCapacity    = errors.New("max capacity must be positive")
	ErrInvalidAvgServiceTime = errors.New("average service time must be positive")
	ErrInvalidTokenNumber    = errors.New("invalid token number")
	ErrInvalidTokenStatus    = errors.New("invalid token status")
	ErrInvalidPosition       = errors.New("invalid token position")
)

// DuplicateActiveTokenError is returned when a user attempts to join a
// queue they already hold an active token in. It carries the existing token
// so callers can redirect the user to it instead of rejecting blindly.
type DuplicateActiveTokenError struct {
	Existing *Token
}

func (e *DuplicateActiveTokenError) Error() string {
	return fmt.Sprintf("user already has active token %s (status %s) in this queue",
		e.Existing.Number, e.Existing.Status)
}

func (e *DuplicateActiveTokenError) Unwrap() error {
	return ErrDuplicateToken
}

// InvalidTransitionError is returned when a requested status transition is
// not in the legal transition table. It is a caller bug, never retryable.
type InvalidTransitionError struct {
	From TokenStatus
	To   TokenStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}
