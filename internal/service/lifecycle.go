package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/Basantgrg924/QueueSystem/internal/audit"
	"github.com/Basantgrg924/QueueSystem/internal/domain"
	"github.com/Basantgrg924/QueueSystem/internal/metrics"
	"github.com/Basantgrg924/QueueSystem/internal/notify"
	"github.com/Basantgrg924/QueueSystem/internal/repository"
	"github.com/Basantgrg924/QueueSystem/pkg/logger"
	"github.com/Basantgrg924/QueueSystem/pkg/telemetry"
)

// LifecycleService drives tokens through their status transitions
type LifecycleService interface {
	// Transition moves the token to the target status. Notes, when
	// non-empty, replace any previous notes.
	Transition(ctx context.Context, number string, target domain.TokenStatus, notes, actorID string) (*domain.Token, error)

	// CallNext calls the longest-waiting token in the queue, moving it
	// from waiting to called. Returns domain.ErrNoWaitingTokens when the
	// queue has no waiting tokens.
	CallNext(ctx context.Context, queueID, actorID string) (*domain.Token, error)
}

// callNextMaxRetries bounds how many times CallNext moves on to the next
// waiting token after losing a race for the current one.
const callNextMaxRetries = 3

// lifecycleService implements LifecycleService
type lifecycleService struct {
	tokens    repository.TokenRepository
	publisher notify.EventPublisher
	auditor   audit.Recorder
	metrics   *metrics.Metrics
	now       func() time.Time
}

// LifecycleConfig contains configuration for the lifecycle service
type LifecycleConfig struct {
	// Now overrides the clock, for tests
	Now func() time.Time
}

// NewLifecycleService creates a new lifecycle service
func NewLifecycleService(
	tokens repository.TokenRepository,
	publisher notify.EventPublisher,
	auditor audit.Recorder,
	m *metrics.Metrics,
	cfg *LifecycleConfig,
) LifecycleService {
	now := time.Now
	if cfg != nil && cfg.Now != nil {
		now = cfg.Now
	}
	if publisher == nil {
		publisher = notify.NoopPublisher{}
	}
	if auditor == nil {
		auditor = audit.NopRecorder{}
	}

	return &lifecycleService{
		tokens:    tokens,
		publisher: publisher,
		auditor:   auditor,
		metrics:   m,
		now:       now,
	}
}

// Transition moves the token to the target status
func (s *lifecycleService) Transition(ctx context.Context, number string, target domain.TokenStatus, notes, actorID string) (*domain.Token, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.lifecycle.transition")
	defer span.End()

	if strings.TrimSpace(number) == "" {
		span.SetStatus(codes.Error, "invalid token_number")
		return nil, domain.ErrInvalidTokenNumber
	}
	if !target.IsValid() {
		span.SetStatus(codes.Error, "invalid target status")
		return nil, domain.ErrInvalidTokenStatus
	}

	span.SetAttributes(
		attribute.String("token_number", number),
		attribute.String("target_status", target.String()),
	)

	token, err := s.tokens.Transition(ctx, repository.TransitionParams{
		Number: number,
		Target: target,
		Notes:  notes,
		Now:    s.now(),
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	s.recordTransition(ctx, token, actorID)
	return token, nil
}

// CallNext calls the longest-waiting token in the queue
func (s *lifecycleService) CallNext(ctx context.Context, queueID, actorID string) (*domain.Token, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.lifecycle.call_next")
	defer span.End()

	if strings.TrimSpace(queueID) == "" {
		span.SetStatus(codes.Error, "invalid queue_id")
		return nil, domain.ErrInvalidQueueID
	}

	span.SetAttributes(attribute.String("queue_id", queueID))

	for attempt := 0; ; attempt++ {
		// The waiting token with the smallest number is next; the token
		// number embeds the admission date and daily sequence, so number
		// order is admission order.
		next, err := s.tokens.OldestWaiting(ctx, queueID)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		token, err := s.tokens.Transition(ctx, repository.TransitionParams{
			Number: next.Number,
			Target: domain.TokenStatusCalled,
			Now:    s.now(),
		})
		if err != nil {
			// A concurrent caller can claim the token between the read
			// and the update, leaving it no longer waiting. Move on to
			// the next waiting token.
			if errors.Is(err, domain.ErrInvalidTransition) && attempt < callNextMaxRetries {
				logger.Get().Debug("token claimed by concurrent call, retrying",
					zap.String("queue_id", queueID),
					zap.String("token_number", next.Number),
				)
				continue
			}
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		span.SetAttributes(attribute.String("token_number", token.Number))
		span.SetStatus(codes.Ok, "")
		s.recordTransition(ctx, token, actorID)
		return token, nil
	}
}

func (s *lifecycleService) recordTransition(ctx context.Context, token *domain.Token, actorID string) {
	s.metrics.Transition(ctx, token.QueueID, token.Status.String())
	if token.Status.IsTerminal() {
		s.metrics.QueueDepthChanged(ctx, token.QueueID, -1)
	}

	event := domain.NewTokenEvent(token, token.UpdatedAt)
	if err := s.publisher.PublishTokenEvent(ctx, event); err != nil {
		logger.Get().Warn("failed to publish token event",
			zap.String("token_number", token.Number),
			zap.Error(err),
		)
	}

	s.auditor.Record(ctx, audit.Entry{
		Action:    auditActionFor(token.Status),
		ActorID:   actorID,
		QueueID:   token.QueueID,
		TokenID:   token.ID,
		Details:   map[string]string{"token_number": token.Number, "status": token.Status.String()},
		Timestamp: token.UpdatedAt,
	})
}

// auditActionFor maps token statuses to audit actions
func auditActionFor(status domain.TokenStatus) audit.Action {
	switch status {
	case domain.TokenStatusCalled:
		return audit.ActionTokenCalled
	case domain.TokenStatusServing:
		return audit.ActionTokenServing
	case domain.TokenStatusCompleted:
		return audit.ActionTokenCompleted
	case domain.TokenStatusCancelled:
		return audit.ActionTokenCancelled
	case domain.TokenStatusNoShow:
		return audit.ActionTokenNoShow
	}
	return audit.ActionTokenIssued
}
