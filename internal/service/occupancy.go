package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/Basantgrg924/QueueSystem/internal/domain"
	"github.com/Basantgrg924/QueueSystem/internal/metrics"
	"github.com/Basantgrg924/QueueSystem/internal/repository"
	"github.com/Basantgrg924/QueueSystem/pkg/logger"
	"github.com/Basantgrg924/QueueSystem/pkg/telemetry"
)

// OccupancyService keeps stored queue occupancy consistent with the
// token rows it is derived from.
type OccupancyService interface {
	// Recount recomputes the queue's active-token count from token
	// rows and stores it, returning the fresh count.
	Recount(ctx context.Context, queueID string) (int, error)

	// RecountAll recounts every queue and reports how many stored
	// counts had drifted.
	RecountAll(ctx context.Context) (drifted int, err error)
}

// occupancyService implements OccupancyService
type occupancyService struct {
	queues  repository.QueueRepository
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewOccupancyService creates a new occupancy service
func NewOccupancyService(queues repository.QueueRepository, m *metrics.Metrics) OccupancyService {
	return &occupancyService{
		queues:  queues,
		metrics: m,
		now:     time.Now,
	}
}

// Recount recomputes the queue's occupancy from token rows
func (s *occupancyService) Recount(ctx context.Context, queueID string) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.occupancy.recount")
	defer span.End()

	span.SetAttributes(attribute.String("queue_id", queueID))

	count, err := s.queues.RefreshOccupancy(ctx, queueID, s.now())
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	span.SetAttributes(attribute.Int("active_count", count))
	span.SetStatus(codes.Ok, "")
	return count, nil
}

// RecountAll recounts every queue, correcting any drifted stored counts
func (s *occupancyService) RecountAll(ctx context.Context) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.occupancy.recount_all")
	defer span.End()

	queues, err := s.queues.List(ctx, false)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	drifted := 0
	for _, queue := range queues {
		count, err := s.queues.RefreshOccupancy(ctx, queue.ID, s.now())
		if err != nil {
			// A queue deleted mid-sweep is not worth failing the sweep over
			if err == domain.ErrQueueNotFound {
				continue
			}
			span.SetStatus(codes.Error, err.Error())
			return drifted, err
		}
		if count != queue.CurrentCount {
			drifted++
			s.metrics.ReconcileDrift(ctx, queue.ID)
			logger.Get().Warn("corrected drifted queue occupancy",
				zap.String("queue_id", queue.ID),
				zap.Int("stored", queue.CurrentCount),
				zap.Int("actual", count),
			)
		}
	}

	span.SetAttributes(
		attribute.Int("queues", len(queues)),
		attribute.Int("drifted", drifted),
	)
	span.SetStatus(codes.Ok, "")
	return drifted, nil
}
