package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Basantgrg924/QueueSystem/internal/domain"
	"github.com/Basantgrg924/QueueSystem/pkg/telemetry"
)

// pgUniqueViolation is the PostgreSQL error code for unique constraint violations
const pgUniqueViolation = "23505"

// PostgresTokenRepository implements TokenRepository using PostgreSQL with pgxpool
type PostgresTokenRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresTokenRepository creates a new PostgresTokenRepository
func NewPostgresTokenRepository(pool *pgxpool.Pool) *PostgresTokenRepository {
	return &PostgresTokenRepository{pool: pool}
}

const tokenColumns = `
	id, token_number, queue_id, user_id, status, position, estimated_call_time,
	called_at, served_at, completed_at, notes, created_at, updated_at
`

const activeStatuses = `('waiting', 'called', 'serving')`

// Join admits a user into a queue in a single transaction. The queue row is
// locked FOR UPDATE so the capacity check, duplicate check and insert observe
// a consistent active set. The unique index on token_number is the backstop:
// a concurrent admission that claimed the same number surfaces as
// domain.ErrAllocationConflict for the caller to retry with a fresh sequence.
func (r *PostgresTokenRepository) Join(ctx context.Context, params JoinParams) (*domain.Token, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.token.join")
	defer span.End()

	span.SetAttributes(
		attribute.String("queue_id", params.QueueID),
		attribute.String("user_id", params.UserID),
		attribute.String("token_number", params.Number),
	)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		isActive       bool
		maxCapacity    int
		avgServiceTime int
	)
	err = tx.QueryRow(ctx,
		`SELECT is_active, max_capacity, avg_service_time FROM queues WHERE id = $1 FOR UPDATE`,
		params.QueueID,
	).Scan(&isActive, &maxCapacity, &avgServiceTime)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "queue not found")
			return nil, domain.ErrQueueNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to lock queue: %w", err)
	}
	if !isActive {
		span.SetStatus(codes.Error, "queue inactive")
		return nil, domain.ErrQueueInactive
	}

	var activeCount int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM tokens WHERE queue_id = $1 AND status IN `+activeStatuses,
		params.QueueID,
	).Scan(&activeCount)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to count active tokens: %w", err)
	}
	if activeCount >= maxCapacity {
		span.SetStatus(codes.Error, "queue full")
		return nil, domain.ErrQueueFull
	}

	existing, err := scanTokenRow(tx.QueryRow(ctx,
		`SELECT `+tokenColumns+` FROM tokens
		 WHERE queue_id = $1 AND user_id = $2 AND status IN `+activeStatuses+`
		 LIMIT 1`,
		params.QueueID, params.UserID,
	))
	if err == nil {
		span.SetStatus(codes.Error, "duplicate active token")
		return nil, &domain.DuplicateActiveTokenError{Existing: existing}
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to check for duplicate token: %w", err)
	}

	position := activeCount + 1
	token := &domain.Token{
		ID:                uuid.NewString(),
		Number:            params.Number,
		QueueID:           params.QueueID,
		UserID:            params.UserID,
		Status:            domain.TokenStatusWaiting,
		Position:          position,
		EstimatedCallTime: domain.EstimateCallTime(params.Now, position, avgServiceTime),
		CreatedAt:         params.Now,
		UpdatedAt:         params.Now,
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO tokens (
			id, token_number, queue_id, user_id, status, position, estimated_call_time,
			prefix, date_part, sequence, notes, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, '', $11, $11
		)`,
		token.ID,
		token.Number,
		token.QueueID,
		token.UserID,
		token.Status.String(),
		token.Position,
		token.EstimatedCallTime,
		params.Prefix,
		params.DatePart,
		params.Sequence,
		params.Now,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			span.SetStatus(codes.Error, "token number conflict")
			return nil, domain.ErrAllocationConflict
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to insert token: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE queues SET
			current_count = $2,
			estimated_wait = $2 * avg_service_time,
			updated_at = $3
		WHERE id = $1`,
		params.QueueID, activeCount+1, params.Now,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to update queue occupancy: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to commit admission: %w", err)
	}

	span.SetAttributes(attribute.Int("position", position))
	span.SetStatus(codes.Ok, "")
	return token, nil
}

// NextSequence returns MAX(sequence)+1 for the prefix's daily partition.
// A concurrent winner of the same sequence is caught by the unique index
// at insert time, not here.
func (r *PostgresTokenRepository) NextSequence(ctx context.Context, prefix, datePart string) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.token.next_sequence")
	defer span.End()

	span.SetAttributes(
		attribute.String("prefix", prefix),
		attribute.String("date_part", datePart),
	)

	query := `
		SELECT COALESCE(MAX(sequence), 0) + 1 FROM tokens
		WHERE prefix = $1 AND date_part = $2
	`

	var next int
	if err := r.pool.QueryRow(ctx, query, prefix, datePart).Scan(&next); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("failed to read next sequence: %w", err)
	}

	span.SetAttributes(attribute.Int("sequence", next))
	span.SetStatus(codes.Ok, "")
	return next, nil
}

// GetByNumber retrieves a token by its token number
func (r *PostgresTokenRepository) GetByNumber(ctx context.Context, number string) (*domain.Token, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.token.get_by_number")
	defer span.End()

	span.SetAttributes(attribute.String("token_number", number))

	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE token_number = $1`

	token, err := scanTokenRow(r.pool.QueryRow(ctx, query, number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrTokenNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return token, nil
}

// Transition applies a status change inside a transaction. The row is locked,
// the transition validated against the legal table, and on a move into a
// terminal status the queue occupancy is recounted from token rows.
func (r *PostgresTokenRepository) Transition(ctx context.Context, params TransitionParams) (*domain.Token, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.token.transition")
	defer span.End()

	span.SetAttributes(
		attribute.String("token_number", params.Number),
		attribute.String("target_status", params.Target.String()),
	)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	token, err := scanTokenRow(tx.QueryRow(ctx,
		`SELECT `+tokenColumns+` FROM tokens WHERE token_number = $1 FOR UPDATE`,
		params.Number,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrTokenNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to lock token: %w", err)
	}

	if err := token.ApplyTransition(params.Target, params.Notes, params.Now); err != nil {
		span.SetStatus(codes.Error, "invalid transition")
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE tokens SET
			status = $2,
			called_at = $3,
			served_at = $4,
			completed_at = $5,
			notes = $6,
			updated_at = $7
		WHERE token_number = $1`,
		token.Number,
		token.Status.String(),
		token.CalledAt,
		token.ServedAt,
		token.CompletedAt,
		token.Notes,
		token.UpdatedAt,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to update token: %w", err)
	}

	if params.Target.IsTerminal() {
		_, err = tx.Exec(ctx, `
			UPDATE queues SET
				current_count = sub.active,
				estimated_wait = sub.active * avg_service_time,
				updated_at = $2
			FROM (
				SELECT COUNT(*) AS active FROM tokens
				WHERE queue_id = $1 AND status IN `+activeStatuses+`
			) sub
			WHERE id = $1`,
			token.QueueID, params.Now,
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to refresh queue occupancy: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to commit transition: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return token, nil
}

// OldestWaiting returns the waiting token with the smallest token number
func (r *PostgresTokenRepository) OldestWaiting(ctx context.Context, queueID string) (*domain.Token, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.token.oldest_waiting")
	defer span.End()

	span.SetAttributes(attribute.String("queue_id", queueID))

	query := `
		SELECT ` + tokenColumns + ` FROM tokens
		WHERE queue_id = $1 AND status = 'waiting'
		ORDER BY token_number
		LIMIT 1
	`

	token, err := scanTokenRow(r.pool.QueryRow(ctx, query, queueID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "no waiting tokens")
			return nil, domain.ErrNoWaitingTokens
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get oldest waiting token: %w", err)
	}

	span.SetAttributes(attribute.String("token_number", token.Number))
	span.SetStatus(codes.Ok, "")
	return token, nil
}

// ActiveByQueue returns all active tokens in the queue, ordered by token number
func (r *PostgresTokenRepository) ActiveByQueue(ctx context.Context, queueID string) ([]*domain.Token, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.token.active_by_queue")
	defer span.End()

	span.SetAttributes(attribute.String("queue_id", queueID))

	query := `
		SELECT ` + tokenColumns + ` FROM tokens
		WHERE queue_id = $1 AND status IN ` + activeStatuses + `
		ORDER BY token_number
	`

	tokens, err := r.queryTokens(ctx, query, queueID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("count", len(tokens)))
	span.SetStatus(codes.Ok, "")
	return tokens, nil
}

// ActiveByUser returns the user's active tokens across all queues
func (r *PostgresTokenRepository) ActiveByUser(ctx context.Context, userID string) ([]*domain.Token, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.token.active_by_user")
	defer span.End()

	span.SetAttributes(attribute.String("user_id", userID))

	query := `
		SELECT ` + tokenColumns + ` FROM tokens
		WHERE user_id = $1 AND status IN ` + activeStatuses + `
		ORDER BY token_number
	`

	tokens, err := r.queryTokens(ctx, query, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("count", len(tokens)))
	span.SetStatus(codes.Ok, "")
	return tokens, nil
}

// HistoryByUser returns the user's tokens in all states, newest first
func (r *PostgresTokenRepository) HistoryByUser(ctx context.Context, userID string, limit int) ([]*domain.Token, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.token.history_by_user")
	defer span.End()

	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.Int("limit", limit),
	)

	query := `
		SELECT ` + tokenColumns + ` FROM tokens
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	tokens, err := r.queryTokens(ctx, query, userID, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("count", len(tokens)))
	span.SetStatus(codes.Ok, "")
	return tokens, nil
}

// CountActive counts active tokens in the queue from token rows
func (r *PostgresTokenRepository) CountActive(ctx context.Context, queueID string) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.token.count_active")
	defer span.End()

	span.SetAttributes(attribute.String("queue_id", queueID))

	query := `SELECT COUNT(*) FROM tokens WHERE queue_id = $1 AND status IN ` + activeStatuses

	var count int
	if err := r.pool.QueryRow(ctx, query, queueID).Scan(&count); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("failed to count active tokens: %w", err)
	}

	span.SetAttributes(attribute.Int("count", count))
	span.SetStatus(codes.Ok, "")
	return count, nil
}

func (r *PostgresTokenRepository) queryTokens(ctx context.Context, query string, args ...any) ([]*domain.Token, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*domain.Token
	for rows.Next() {
		token, err := scanTokenRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan token: %w", err)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tokens: %w", err)
	}
	return tokens, nil
}

// scanTokenRow scans a row into a Token struct
func scanTokenRow(row pgx.Row) (*domain.Token, error) {
	token := &domain.Token{}
	var (
		status string
		notes  *string
	)

	err := row.Scan(
		&token.ID,
		&token.Number,
		&token.QueueID,
		&token.UserID,
		&status,
		&token.Position,
		&token.EstimatedCallTime,
		&token.CalledAt,
		&token.ServedAt,
		&token.CompletedAt,
		&notes,
		&token.CreatedAt,
		&token.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	token.Status = domain.TokenStatus(status)
	if notes != nil {
		token.Notes = *notes
	}
	return token, nil
}

// Ensure PostgresTokenRepository implements TokenRepository
var _ TokenRepository = (*PostgresTokenRepository)(nil)
