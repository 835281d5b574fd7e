package domain

import (
	"strings"
	"time"
)

// TokenStatus represents the status of a queue token
type TokenStatus string

const (
	TokenStatusWaiting   TokenStatus = "waiting"
	TokenStatusCalled    TokenStatus = "called"
	TokenStatusServing   TokenStatus = "serving"
	TokenStatusCompleted TokenStatus = "completed"
	TokenStatusCancelled TokenStatus = "cancelled"
	TokenStatusNoShow    TokenStatus = "no-show"
)

// IsValid checks if the status is a valid TokenStatus
func (s TokenStatus) IsValid() bool {
	switch s {
	case TokenStatusWaiting, TokenStatusCalled, TokenStatusServing,
		TokenStatusCompleted, TokenStatusCancelled, TokenStatusNoShow:
		return true
	}
	return false
}

// IsTerminal checks if no further transitions are allowed from this status
func (s TokenStatus) IsTerminal() bool {
	switch s {
	case TokenStatusCompleted, TokenStatusCancelled, TokenStatusNoShow:
		return true
	}
	return false
}

// IsActive checks if the status counts towards queue occupancy
func (s TokenStatus) IsActive() bool {
	switch s {
	case TokenStatusWaiting, TokenStatusCalled, TokenStatusServing:
		return true
	}
	return false
}

// String returns the string representation of TokenStatus
func (s TokenStatus) String() string {
	return string(s)
}

// transitionTable is the single source of truth for legal status transitions.
// Terminal statuses have no entry: nothing leaves them.
var transitionTable = map[TokenStatus][]TokenStatus{
	TokenStatusWaiting: {TokenStatusCalled, TokenStatusCancelled},
	TokenStatusCalled:  {TokenStatusServing, TokenStatusCompleted, TokenStatusNoShow, TokenStatusCancelled},
	TokenStatusServing: {TokenStatusCompleted, TokenStatusCancelled},
}

// AllowedTransitions returns the statuses reachable from the given status.
// The authorization layer consults this to decide which transitions an actor
// may request; the slice is a copy and safe to modify.
func AllowedTransitions(from TokenStatus) []TokenStatus {
	targets := transitionTable[from]
	out := make([]TokenStatus, len(targets))
	copy(out, targets)
	return out
}

// CanTransition reports whether from -> to is a legal transition
func CanTransition(from, to TokenStatus) bool {
	for _, t := range transitionTable[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Token represents a single customer's claim on a position in a queue
type Token struct {
	ID      string      `json:"id"`
	Number  string      `json:"token_number"`
	QueueID string      `json:"queue_id"`
	UserID  string      `json:"user_id"`
	Status  TokenStatus `json:"status"`

	// Position is the queue depth + 1 captured at admission time. It is
	// informational only; live positions are always recomputed from the
	// current active set.
	Position          int       `json:"position"`
	EstimatedCallTime time.Time `json:"estimated_call_time"`

	CalledAt    *time.Time `json:"called_at,omitempty"`
	ServedAt    *time.Time `json:"served_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Notes       string     `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate validates all token fields
func (t *Token) Validate() error {
	if strings.TrimSpace(t.QueueID) == "" {
		return ErrInvalidQueueID
	}
	if strings.TrimSpace(t.UserID) == "" {
		return ErrInvalidUserID
	}
	if strings.TrimSpace(t.Number) == "" {
		return ErrInvalidTokenNumber
	}
	if !t.Status.IsValid() {
		return ErrInvalidTokenStatus
	}
	if t.Position < 1 {
		return ErrInvalidPosition
	}
	return nil
}

// IsActive checks if the token counts towards queue occupancy
func (t *Token) IsActive() bool {
	return t.Status.IsActive()
}

// BelongsToUser checks if the token belongs to the specified user
func (t *Token) BelongsToUser(userID string) bool {
	return t.UserID == userID
}

// ApplyTransition moves the token to the target status, setting the
// timestamps the target requires. It returns an *InvalidTransitionError if
// the transition is not in the legal table. Notes, when non-empty, replace
// any previous notes (last-write-wins).
func (t *Token) ApplyTransition(target TokenStatus, notes string, now time.Time) error {
	if !CanTransition(t.Status, target) {
		return &InvalidTransitionError{From: t.Status, To: target}
	}

	t.Status = target
	switch target {
	case TokenStatusCalled:
		t.CalledAt = &now
	case TokenStatusServing:
		t.ServedAt = &now
	case TokenStatusCompleted:
		t.CompletedAt = &now
	}
	if notes != "" {
		t.Notes = notes
	}
	t.UpdatedAt = now
	return nil
}

// ServiceDuration returns how long the token was being served, or zero if
// it never reached both servedAt and completedAt.
func (t *Token) ServiceDuration() time.Duration {
	if t.ServedAt == nil || t.CompletedAt == nil {
		return 0
	}
	return t.CompletedAt.Sub(*t.ServedAt)
}

// WaitDuration returns how long the token waited before being called, or
// zero if it was never called.
func (t *Token) WaitDuration() time.Duration {
	if t.CalledAt == nil {
		return 0
	}
	return t.CalledAt.Sub(t.CreatedAt)
}
