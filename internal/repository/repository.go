// Package repository defines persistence interfaces for queues and tokens,
// with PostgreSQL and in-memory implementations.
package repository

import (
	"context"
	"time"

	"github.com/Basantgrg924/QueueSystem/internal/domain"
)

// JoinParams carries everything needed to admit a user into a queue
// within a single atomic operation.
type JoinParams struct {
	QueueID string
	UserID  string
	// Prefix and DatePart identify the daily sequence partition the
	// token number is allocated from.
	Prefix   string
	DatePart string
	// Number is the fully formatted token number for this attempt.
	// The store rejects it with domain.ErrAllocationConflict if another
	// admission claimed it first.
	Number string
	// Sequence is the daily sequence encoded in Number.
	Sequence int
	Now      time.Time
}

// TransitionParams carries a requested token state change.
type TransitionParams struct {
	Number string
	Target domain.TokenStatus
	Notes  string
	Now    time.Time
}

// QueueRepository persists queue definitions and occupancy counts.
type QueueRepository interface {
	Create(ctx context.Context, queue *domain.Queue) error
	GetByID(ctx context.Context, id string) (*domain.Queue, error)
	List(ctx context.Context, activeOnly bool) ([]*domain.Queue, error)
	Update(ctx context.Context, queue *domain.Queue) error
	// Delete removes a queue. It returns domain.ErrQueueNotEmpty when
	// any token, active or terminal, still references the queue.
	Delete(ctx context.Context, id string) error
	// RefreshOccupancy recounts active tokens from source and stores
	// the result on the queue row, returning the fresh count.
	RefreshOccupancy(ctx context.Context, id string, now time.Time) (int, error)
}

// TokenRepository persists tokens and their lifecycle.
type TokenRepository interface {
	// Join atomically validates admission preconditions and inserts the
	// token: the queue must exist and be active, have spare capacity,
	// and the user must hold no other active token in it.
	Join(ctx context.Context, params JoinParams) (*domain.Token, error)
	// NextSequence returns the next unused daily sequence for the
	// given number prefix and date partition. Keyed by prefix, not
	// queue ID, because the token number embeds the prefix and two
	// queues can share one.
	NextSequence(ctx context.Context, prefix, datePart string) (int, error)
	GetByNumber(ctx context.Context, number string) (*domain.Token, error)
	// Transition applies a state change, persisting the timestamps and
	// notes the transition sets. Illegal transitions surface as
	// *domain.InvalidTransitionError.
	Transition(ctx context.Context, params TransitionParams) (*domain.Token, error)
	// OldestWaiting returns the waiting token with the smallest token
	// number in the queue, or domain.ErrNoWaitingTokens.
	OldestWaiting(ctx context.Context, queueID string) (*domain.Token, error)
	// ActiveByQueue returns all active tokens in the queue ordered by
	// token number ascending.
	ActiveByQueue(ctx context.Context, queueID string) ([]*domain.Token, error)
	// ActiveByUser returns the user's active tokens across all queues.
	ActiveByUser(ctx context.Context, userID string) ([]*domain.Token, error)
	// HistoryByUser returns the user's tokens in all states, newest first.
	HistoryByUser(ctx context.Context, userID string, limit int) ([]*domain.Token, error)
	// CountActive counts active tokens in the queue straight from
	// token rows, never from a cached counter.
	CountActive(ctx context.Context, queueID string) (int, error)
}
