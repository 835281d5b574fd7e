package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Basantgrg924/QueueSystem/internal/domain"
	"github.com/Basantgrg924/QueueSystem/pkg/telemetry"
)

// PostgresQueueRepository implements QueueRepository using PostgreSQL with pgxpool
type PostgresQueueRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresQueueRepository creates a new PostgresQueueRepository
func NewPostgresQueueRepository(pool *pgxpool.Pool) *PostgresQueueRepository {
	return &PostgresQueueRepository{pool: pool}
}

const queueColumns = `
	id, name, description, is_active, max_capacity, current_count,
	avg_service_time, estimated_wait, created_by, created_at, updated_at
`

// Create creates a new queue record in the database
func (r *PostgresQueueRepository) Create(ctx context.Context, queue *domain.Queue) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.queue.create")
	defer span.End()

	span.SetAttributes(
		attribute.String("queue_id", queue.ID),
		attribute.String("queue_name", queue.Name),
	)

	query := `
		INSERT INTO queues (
			id, name, description, is_active, max_capacity, current_count,
			avg_service_time, estimated_wait, created_by, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11
		)
	`

	_, err := r.pool.Exec(ctx, query,
		queue.ID,
		queue.Name,
		nullString(queue.Description),
		queue.IsActive,
		queue.MaxCapacity,
		queue.CurrentCount,
		queue.AvgServiceTime,
		queue.EstimatedWait,
		nullString(queue.CreatedBy),
		queue.CreatedAt,
		queue.UpdatedAt,
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to create queue: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// GetByID retrieves a queue by its ID
func (r *PostgresQueueRepository) GetByID(ctx context.Context, id string) (*domain.Queue, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.queue.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("queue_id", id))

	query := `SELECT ` + queueColumns + ` FROM queues WHERE id = $1`

	queue, err := scanQueueRow(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrQueueNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get queue: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return queue, nil
}

// List retrieves all queues, optionally only active ones
func (r *PostgresQueueRepository) List(ctx context.Context, activeOnly bool) ([]*domain.Queue, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.queue.list")
	defer span.End()

	span.SetAttributes(attribute.Bool("active_only", activeOnly))

	query := `SELECT ` + queueColumns + ` FROM queues`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to list queues: %w", err)
	}
	defer rows.Close()

	var queues []*domain.Queue
	for rows.Next() {
		queue, err := scanQueueRow(rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		queues = append(queues, queue)
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("error iterating queues: %w", err)
	}

	span.SetAttributes(attribute.Int("count", len(queues)))
	span.SetStatus(codes.Ok, "")
	return queues, nil
}

// Update updates queue settings
func (r *PostgresQueueRepository) Update(ctx context.Context, queue *domain.Queue) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.queue.update")
	defer span.End()

	span.SetAttributes(attribute.String("queue_id", queue.ID))

	query := `
		UPDATE queues SET
			name = $2,
			description = $3,
			is_active = $4,
			max_capacity = $5,
			avg_service_time = $6,
			estimated_wait = $7,
			updated_at = $8
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query,
		queue.ID,
		queue.Name,
		nullString(queue.Description),
		queue.IsActive,
		queue.MaxCapacity,
		queue.AvgServiceTime,
		queue.EstimatedWait,
		time.Now(),
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to update queue: %w", err)
	}

	if result.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "not found")
		return domain.ErrQueueNotFound
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Delete removes a queue that has no tokens, active or historical
func (r *PostgresQueueRepository) Delete(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.queue.delete")
	defer span.End()

	span.SetAttributes(attribute.String("queue_id", id))

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var tokenCount int
	err = tx.QueryRow(ctx, `SELECT COUNT(*) FROM tokens WHERE queue_id = $1`, id).Scan(&tokenCount)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to count queue tokens: %w", err)
	}
	if tokenCount > 0 {
		span.SetStatus(codes.Error, "queue not empty")
		return domain.ErrQueueNotEmpty
	}

	result, err := tx.Exec(ctx, `DELETE FROM queues WHERE id = $1`, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to delete queue: %w", err)
	}
	if result.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "not found")
		return domain.ErrQueueNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to commit queue delete: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// RefreshOccupancy recounts active tokens from token rows and writes the
// fresh count onto the queue row. The count is never derived from the
// previous stored value.
func (r *PostgresQueueRepository) RefreshOccupancy(ctx context.Context, id string, now time.Time) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.queue.refresh_occupancy")
	defer span.End()

	span.SetAttributes(attribute.String("queue_id", id))

	query := `
		UPDATE queues SET
			current_count = sub.active,
			estimated_wait = sub.active * avg_service_time,
			updated_at = $2
		FROM (
			SELECT COUNT(*) AS active FROM tokens
			WHERE queue_id = $1 AND status IN ('waiting', 'called', 'serving')
		) sub
		WHERE id = $1
		RETURNING current_count
	`

	var count int
	err := r.pool.QueryRow(ctx, query, id, now).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return 0, domain.ErrQueueNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("failed to refresh queue occupancy: %w", err)
	}

	span.SetAttributes(attribute.Int("active_count", count))
	span.SetStatus(codes.Ok, "")
	return count, nil
}

// scanQueueRow scans a row into a Queue struct
func scanQueueRow(row pgx.Row) (*domain.Queue, error) {
	queue := &domain.Queue{}
	var (
		description *string
		createdBy   *string
	)

	err := row.Scan(
		&queue.ID,
		&queue.Name,
		&description,
		&queue.IsActive,
		&queue.MaxCapacity,
		&queue.CurrentCount,
		&queue.AvgServiceTime,
		&queue.EstimatedWait,
		&createdBy,
		&queue.CreatedAt,
		&queue.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if description != nil {
		queue.Description = *description
	}
	if createdBy != nil {
		queue.CreatedBy = *createdBy
	}
	return queue, nil
}

// Helper function to convert empty string to nil pointer
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Ensure PostgresQueueRepository implements QueueRepository
var _ QueueRepository = (*PostgresQueueRepository)(nil)
