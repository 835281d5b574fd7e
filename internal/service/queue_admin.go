package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Basantgrg924/QueueSystem/internal/audit"
	"github.com/Basantgrg924/QueueSystem/internal/domain"
	"github.com/Basantgrg924/QueueSystem/internal/repository"
	"github.com/Basantgrg924/QueueSystem/pkg/telemetry"
)

// QueueAdminService manages queue definitions
type QueueAdminService interface {
	Create(ctx context.Context, params CreateQueueParams) (*domain.Queue, error)
	Update(ctx context.Context, queueID string, params UpdateQueueParams) (*domain.Queue, error)
	// SetActive opens or closes the queue to new admissions. Tokens
	// already in the queue are unaffected.
	SetActive(ctx context.Context, queueID string, active bool, actorID string) (*domain.Queue, error)
	// Delete removes a queue that holds no tokens at all.
	Delete(ctx context.Context, queueID, actorID string) error
	Get(ctx context.Context, queueID string) (*domain.Queue, error)
	List(ctx context.Context, activeOnly bool) ([]*domain.Queue, error)
}

// CreateQueueParams carries the fields for a new queue
type CreateQueueParams struct {
	Name           string
	Description    string
	MaxCapacity    int
	AvgServiceTime int // minutes
	CreatedBy      string
}

// UpdateQueueParams carries updatable queue fields. Nil pointers leave
// the current value unchanged.
type UpdateQueueParams struct {
	Name           *string
	Description    *string
	MaxCapacity    *int
	AvgServiceTime *int
	ActorID        string
}

// queueAdminService implements QueueAdminService
type queueAdminService struct {
	queues  repository.QueueRepository
	auditor audit.Recorder
	now     func() time.Time
}

// NewQueueAdminService creates a new queue administration service
func NewQueueAdminService(queues repository.QueueRepository, auditor audit.Recorder) QueueAdminService {
	if auditor == nil {
		auditor = audit.NopRecorder{}
	}
	return &queueAdminService{
		queues:  queues,
		auditor: auditor,
		now:     time.Now,
	}
}

// Create creates a new queue, active by default
func (s *queueAdminService) Create(ctx context.Context, params CreateQueueParams) (*domain.Queue, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.queue_admin.create")
	defer span.End()

	now := s.now()
	queue := &domain.Queue{
		ID:             uuid.NewString(),
		Name:           params.Name,
		Description:    params.Description,
		IsActive:       true,
		MaxCapacity:    params.MaxCapacity,
		AvgServiceTime: params.AvgServiceTime,
		CreatedBy:      params.CreatedBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := queue.Validate(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := s.queues.Create(ctx, queue); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.String("queue_id", queue.ID))
	span.SetStatus(codes.Ok, "")

	s.auditor.Record(ctx, audit.Entry{
		Action:    audit.ActionQueueCreated,
		ActorID:   params.CreatedBy,
		QueueID:   queue.ID,
		Details:   map[string]string{"name": queue.Name},
		Timestamp: now,
	})
	return queue, nil
}

// Update modifies queue settings
func (s *queueAdminService) Update(ctx context.Context, queueID string, params UpdateQueueParams) (*domain.Queue, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.queue_admin.update")
	defer span.End()

	span.SetAttributes(attribute.String("queue_id", queueID))

	queue, err := s.queues.GetByID(ctx, queueID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if params.Name != nil {
		queue.Name = *params.Name
	}
	if params.Description != nil {
		queue.Description = *params.Description
	}
	if params.MaxCapacity != nil {
		queue.MaxCapacity = *params.MaxCapacity
	}
	if params.AvgServiceTime != nil {
		queue.AvgServiceTime = *params.AvgServiceTime
	}

	if err := queue.Validate(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	queue.UpdatedAt = s.now()
	if err := s.queues.Update(ctx, queue); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	s.auditor.Record(ctx, audit.Entry{
		Action:    audit.ActionQueueUpdated,
		ActorID:   params.ActorID,
		QueueID:   queueID,
		Timestamp: queue.UpdatedAt,
	})
	return queue, nil
}

// SetActive opens or closes the queue to new admissions
func (s *queueAdminService) SetActive(ctx context.Context, queueID string, active bool, actorID string) (*domain.Queue, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.queue_admin.set_active")
	defer span.End()

	span.SetAttributes(
		attribute.String("queue_id", queueID),
		attribute.Bool("active", active),
	)

	queue, err := s.queues.GetByID(ctx, queueID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	queue.IsActive = active
	queue.UpdatedAt = s.now()
	if err := s.queues.Update(ctx, queue); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	action := audit.ActionQueueActivated
	if !active {
		action = audit.ActionQueueDeactivated
	}

	span.SetStatus(codes.Ok, "")
	s.auditor.Record(ctx, audit.Entry{
		Action:    action,
		ActorID:   actorID,
		QueueID:   queueID,
		Timestamp: queue.UpdatedAt,
	})
	return queue, nil
}

// Delete removes an empty queue
func (s *queueAdminService) Delete(ctx context.Context, queueID, actorID string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.queue_admin.delete")
	defer span.End()

	span.SetAttributes(attribute.String("queue_id", queueID))

	if err := s.queues.Delete(ctx, queueID); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "")
	s.auditor.Record(ctx, audit.Entry{
		Action:    audit.ActionQueueDeleted,
		ActorID:   actorID,
		QueueID:   queueID,
		Timestamp: s.now(),
	})
	return nil
}

// Get retrieves a queue by ID
func (s *queueAdminService) Get(ctx context.Context, queueID string) (*domain.Queue, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.queue_admin.get")
	defer span.End()

	span.SetAttributes(attribute.String("queue_id", queueID))

	queue, err := s.queues.GetByID(ctx, queueID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return queue, nil
}

// List retrieves queues, optionally only active ones
func (s *queueAdminService) List(ctx context.Context, activeOnly bool) ([]*domain.Queue, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.queue_admin.list")
	defer span.End()

	queues, err := s.queues.List(ctx, activeOnly)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("count", len(queues)))
	span.SetStatus(codes.Ok, "")
	return queues, nil
}
