// Package service implements the queue engine's business logic on top of
// the repository layer.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/Basantgrg924/QueueSystem/internal/allocator"
	"github.com/Basantgrg924/QueueSystem/internal/audit"
	"github.com/Basantgrg924/QueueSystem/internal/domain"
	"github.com/Basantgrg924/QueueSystem/internal/metrics"
	"github.com/Basantgrg924/QueueSystem/internal/notify"
	"github.com/Basantgrg924/QueueSystem/internal/repository"
	"github.com/Basantgrg924/QueueSystem/pkg/logger"
	"github.com/Basantgrg924/QueueSystem/pkg/telemetry"
)

// SequenceSource yields the next daily sequence number for a queue.
// Implementations may read from token rows or from an external atomic
// counter; either way the unique index on token_number is the final
// arbiter of who owns a number.
type SequenceSource interface {
	Next(ctx context.Context, queueName string, when time.Time) (int, error)
}

// repoSequence derives sequences from the persisted token rows
type repoSequence struct {
	tokens repository.TokenRepository
}

// NewRepoSequence creates a SequenceSource backed by the token store
func NewRepoSequence(tokens repository.TokenRepository) SequenceSource {
	return &repoSequence{tokens: tokens}
}

func (s *repoSequence) Next(ctx context.Context, queueName string, when time.Time) (int, error) {
	return s.tokens.NextSequence(ctx, allocator.Prefix(queueName), allocator.DatePartition(when))
}

// AdmissionService admits users into queues
type AdmissionService interface {
	// Join admits the user into the queue, allocating a token number and
	// returning the new waiting token with its position snapshot.
	Join(ctx context.Context, queueID, userID string) (*domain.Token, error)
}

// admissionService implements AdmissionService
type admissionService struct {
	queues     repository.QueueRepository
	tokens     repository.TokenRepository
	sequences  SequenceSource
	publisher  notify.EventPublisher
	auditor    audit.Recorder
	metrics    *metrics.Metrics
	maxRetries int
	now        func() time.Time
}

// AdmissionConfig contains configuration for the admission service
type AdmissionConfig struct {
	// MaxRetries bounds how many times an admission retries after a
	// token number conflict (default 3)
	MaxRetries int
	// Now overrides the clock, for tests
	Now func() time.Time
}

// NewAdmissionService creates a new admission service
func NewAdmissionService(
	queues repository.QueueRepository,
	tokens repository.TokenRepository,
	sequences SequenceSource,
	publisher notify.EventPublisher,
	auditor audit.Recorder,
	m *metrics.Metrics,
	cfg *AdmissionConfig,
) AdmissionService {
	maxRetries := 3
	now := time.Now
	if cfg != nil {
		if cfg.MaxRetries > 0 {
			maxRetries = cfg.MaxRetries
		}
		if cfg.Now != nil {
			now = cfg.Now
		}
	}
	if sequences == nil {
		sequences = NewRepoSequence(tokens)
	}
	if publisher == nil {
		publisher = notify.NoopPublisher{}
	}
	if auditor == nil {
		auditor = audit.NopRecorder{}
	}

	return &admissionService{
		queues:     queues,
		tokens:     tokens,
		sequences:  sequences,
		publisher:  publisher,
		auditor:    auditor,
		metrics:    m,
		maxRetries: maxRetries,
		now:        now,
	}
}

// Join admits the user into the queue. The repository performs the four
// admission checks and the insert atomically; this layer allocates the
// token number and retries with a fresh sequence when a concurrent
// admission claims the same number first.
func (s *admissionService) Join(ctx context.Context, queueID, userID string) (*domain.Token, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.admission.join")
	defer span.End()

	if strings.TrimSpace(queueID) == "" {
		span.SetStatus(codes.Error, "invalid queue_id")
		return nil, domain.ErrInvalidQueueID
	}
	if strings.TrimSpace(userID) == "" {
		span.SetStatus(codes.Error, "invalid user_id")
		return nil, domain.ErrInvalidUserID
	}

	span.SetAttributes(
		attribute.String("queue_id", queueID),
		attribute.String("user_id", userID),
	)

	started := s.now()

	queue, err := s.queues.GetByID(ctx, queueID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.metrics.AdmissionRejected(ctx, queueID, "queue_not_found")
		return nil, err
	}

	var token *domain.Token
	for attempt := 0; ; attempt++ {
		now := s.now()
		seq, err := s.sequences.Next(ctx, queue.Name, now)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		token, err = s.tokens.Join(ctx, repository.JoinParams{
			QueueID:  queueID,
			UserID:   userID,
			Prefix:   allocator.Prefix(queue.Name),
			DatePart: allocator.DatePartition(now),
			Number:   allocator.Number(queue.Name, now, seq),
			Sequence: seq,
			Now:      now,
		})
		if err == nil {
			break
		}

		if errors.Is(err, domain.ErrAllocationConflict) && attempt < s.maxRetries {
			s.metrics.AllocationConflict(ctx, queueID)
			logger.Get().Debug("token number conflict, retrying",
				zap.String("queue_id", queueID),
				zap.Int("attempt", attempt+1),
			)
			continue
		}

		span.SetStatus(codes.Error, err.Error())
		s.metrics.AdmissionRejected(ctx, queueID, rejectionCause(err))
		return nil, err
	}

	span.SetAttributes(
		attribute.String("token_number", token.Number),
		attribute.Int("position", token.Position),
	)
	span.SetStatus(codes.Ok, "")

	s.metrics.TokenIssued(ctx, queueID)
	s.metrics.QueueDepthChanged(ctx, queueID, 1)
	s.metrics.AdmissionObserved(ctx, s.now().Sub(started).Seconds())

	s.publishEvent(ctx, token)
	s.auditor.Record(ctx, audit.Entry{
		Action:    audit.ActionTokenIssued,
		ActorID:   userID,
		QueueID:   queueID,
		TokenID:   token.ID,
		Details:   map[string]string{"token_number": token.Number},
		Timestamp: token.CreatedAt,
	})

	return token, nil
}

func (s *admissionService) publishEvent(ctx context.Context, token *domain.Token) {
	event := domain.NewTokenEvent(token, token.UpdatedAt)
	if err := s.publisher.PublishTokenEvent(ctx, event); err != nil {
		logger.Get().Warn("failed to publish token event",
			zap.String("token_number", token.Number),
			zap.Error(err),
		)
	}
}

// rejectionCause maps admission errors to metric labels
func rejectionCause(err error) string {
	var dup *domain.DuplicateActiveTokenError
	switch {
	case errors.Is(err, domain.ErrQueueNotFound):
		return "queue_not_found"
	case errors.Is(err, domain.ErrQueueInactive):
		return "queue_inactive"
	case errors.Is(err, domain.ErrQueueFull):
		return "queue_full"
	case errors.As(err, &dup):
		return "duplicate_token"
	case errors.Is(err, domain.ErrAllocationConflict):
		return "allocation_conflict"
	}
	return "internal"
}
