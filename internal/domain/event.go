package domain

import "time"

// EventType identifies a notable token lifecycle event
type EventType string

const (
	EventTokenIssued    EventType = "token.issued"
	EventTokenCalled    EventType = "token.called"
	EventTokenServing   EventType = "token.serving"
	EventTokenCompleted EventType = "token.completed"
	EventTokenCancelled EventType = "token.cancelled"
	EventTokenNoShow    EventType = "token.no_show"
)

// eventByStatus maps a token's new status to the event announcing it.
var eventByStatus = map[TokenStatus]EventType{
	TokenStatusWaiting:   EventTokenIssued,
	TokenStatusCalled:    EventTokenCalled,
	TokenStatusServing:   EventTokenServing,
	TokenStatusCompleted: EventTokenCompleted,
	TokenStatusCancelled: EventTokenCancelled,
	TokenStatusNoShow:    EventTokenNoShow,
}

// EventForStatus returns the event type announcing a token entering the
// given status.
func EventForStatus(status TokenStatus) EventType {
	return eventByStatus[status]
}

// TokenEvent is the domain event emitted after admissions and transitions.
// Delivery to connected clients is entirely the notification sink's concern;
// the engine only emits.
type TokenEvent struct {
	Type        EventType   `json:"type"`
	TokenNumber string      `json:"token_number"`
	QueueID     string      `json:"queue_id"`
	UserID      string      `json:"user_id"`
	NewStatus   TokenStatus `json:"new_status"`
	Timestamp   time.Time   `json:"timestamp"`
}

// NewTokenEvent builds the event announcing the token's current status.
func NewTokenEvent(token *Token, at time.Time) *TokenEvent {
	return &TokenEvent{
		Type:        EventForStatus(token.Status),
		TokenNumber: token.Number,
		QueueID:     token.QueueID,
		UserID:      token.UserID,
		NewStatus:   token.Status,
		Timestamp:   at,
	}
}
