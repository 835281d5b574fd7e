package domain

import (
	"strings"
	"time"
)

// Queue represents a named service queue users can join for a token
type Queue struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsActive    bool   `json:"is_active"`
	MaxCapacity int    `json:"max_capacity"`

	// CurrentCount is the cached count of active tokens (waiting, called,
	// serving). It is always recomputed from the token table, never
	// incremented in place.
	CurrentCount int `json:"current_count"`

	// AvgServiceTime is the expected minutes spent serving one token.
	AvgServiceTime int `json:"avg_service_time"`

	// EstimatedWait is CurrentCount * AvgServiceTime, in minutes.
	EstimatedWait int `json:"estimated_wait_time"`

	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate validates all queue fields
func (q *Queue) Validate() error {
	if err := q.ValidateName(); err != nil {
		return err
	}
	if err := q.ValidateMaxCapacity(); err != nil {
		return err
	}
	if err := q.ValidateAvgServiceTime(); err != nil {
		return err
	}
	return nil
}

// ValidateName validates the queue name
func (q *Queue) ValidateName() error {
	if strings.TrimSpace(q.Name) == "" {
		return ErrInvalidQueueName
	}
	return nil
}

// ValidateMaxCapacity validates the queue capacity bound
func (q *Queue) ValidateMaxCapacity() error {
	if q.MaxCapacity <= 0 {
		return ErrInvalidMaxCapacity
	}
	return nil
}

// ValidateAvgServiceTime validates the average service time
func (q *Queue) ValidateAvgServiceTime() error {
	if q.AvgServiceTime <= 0 {
		return ErrInvalidAvgServiceTime
	}
	return nil
}

// HasCapacity reports whether another token fits under MaxCapacity given
// the supplied live active-token count.
func (q *Queue) HasCapacity(activeCount int) bool {
	return activeCount < q.MaxCapacity
}

// RefreshEstimate recomputes the derived wait estimate from a fresh active
// count.
func (q *Queue) RefreshEstimate(activeCount int) {
	q.CurrentCount = activeCount
	q.EstimatedWait = activeCount * q.AvgServiceTime
}
