// Package audit records administrative and lifecycle actions in a fixed
// vocabulary for later inspection.
package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Basantgrg924/QueueSystem/pkg/logger"
)

// Action is a controlled vocabulary of auditable operations
type Action string

const (
	ActionQueueCreated     Action = "queue_created"
	ActionQueueUpdated     Action = "queue_updated"
	ActionQueueDeleted     Action = "queue_deleted"
	ActionQueueActivated   Action = "queue_activated"
	ActionQueueDeactivated Action = "queue_deactivated"
	ActionTokenIssued      Action = "token_issued"
	ActionTokenCalled      Action = "token_called"
	ActionTokenServing     Action = "token_serving"
	ActionTokenCompleted   Action = "token_completed"
	ActionTokenCancelled   Action = "token_cancelled"
	ActionTokenNoShow      Action = "token_no_show"
)

// Entry is a single audit record
type Entry struct {
	Action    Action            `json:"action"`
	ActorID   string            `json:"actor_id,omitempty"`
	QueueID   string            `json:"queue_id,omitempty"`
	TokenID   string            `json:"token_id,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Recorder persists audit entries. Recording is best-effort; it never
// blocks or fails the operation being audited.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}

// LogRecorder writes audit entries to the structured log
type LogRecorder struct {
	log *logger.Logger
}

// NewLogRecorder creates a log-backed audit recorder
func NewLogRecorder() *LogRecorder {
	return &LogRecorder{log: logger.Get().With(zap.String("component", "audit"))}
}

func (r *LogRecorder) Record(ctx context.Context, entry Entry) {
	fields := []zap.Field{
		zap.String("action", string(entry.Action)),
		zap.Time("timestamp", entry.Timestamp),
	}
	if entry.ActorID != "" {
		fields = append(fields, zap.String("actor_id", entry.ActorID))
	}
	if entry.QueueID != "" {
		fields = append(fields, zap.String("queue_id", entry.QueueID))
	}
	if entry.TokenID != "" {
		fields = append(fields, zap.String("token_id", entry.TokenID))
	}
	if len(entry.Details) > 0 {
		fields = append(fields, zap.Any("details", entry.Details))
	}
	r.log.Info("audit", fields...)
}

// NopRecorder discards audit entries. Used in tests.
type NopRecorder struct{}

func (NopRecorder) Record(ctx context.Context, entry Entry) {}

var (
	_ Recorder = (*LogRecorder)(nil)
	_ Recorder = NopRecorder{}
)
