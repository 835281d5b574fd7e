package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Basantgrg924/QueueSystem/internal/domain"
	"github.com/Basantgrg924/QueueSystem/internal/repository"
	"github.com/Basantgrg924/QueueSystem/pkg/telemetry"
)

// TokenView is a token together with its live queue position.
// Position and EstimatedCallTime are recomputed from the queue's current
// active set at read time; the snapshot stored on the token is ignored.
type TokenView struct {
	Token *domain.Token `json:"token"`
	// HasPosition is false for terminal tokens, which hold no position
	HasPosition       bool      `json:"has_position"`
	Position          int       `json:"position"`
	EstimatedCallTime time.Time `json:"estimated_call_time"`
}

// QueueSnapshot is a queue's current state with its active tokens in order
type QueueSnapshot struct {
	Queue       *domain.Queue `json:"queue"`
	ActiveCount int           `json:"active_count"`
	Tokens      []*TokenView  `json:"tokens"`
}

// QueryService answers read-only questions about queues and tokens
type QueryService interface {
	// TokenDetail returns the token with its live position
	TokenDetail(ctx context.Context, number string) (*TokenView, error)

	// UserActiveTokens returns the user's active tokens across all
	// queues, each with its live position
	UserActiveTokens(ctx context.Context, userID string) ([]*TokenView, error)

	// UserHistory returns the user's tokens in all states, newest first
	UserHistory(ctx context.Context, userID string, limit int) ([]*domain.Token, error)

	// Snapshot returns the queue with all its active tokens in call order
	Snapshot(ctx context.Context, queueID string) (*QueueSnapshot, error)
}

// queryService implements QueryService
type queryService struct {
	queues repository.QueueRepository
	tokens repository.TokenRepository
	now    func() time.Time
}

// NewQueryService creates a new query service
func NewQueryService(queues repository.QueueRepository, tokens repository.TokenRepository) QueryService {
	return &queryService{
		queues: queues,
		tokens: tokens,
		now:    time.Now,
	}
}

// TokenDetail returns the token with its live position
func (s *queryService) TokenDetail(ctx context.Context, number string) (*TokenView, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.query.token_detail")
	defer span.End()

	span.SetAttributes(attribute.String("token_number", number))

	token, err := s.tokens.GetByNumber(ctx, number)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	view, err := s.view(ctx, token)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return view, nil
}

// UserActiveTokens returns the user's active tokens with live positions
func (s *queryService) UserActiveTokens(ctx context.Context, userID string) ([]*TokenView, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.query.user_active_tokens")
	defer span.End()

	span.SetAttributes(attribute.String("user_id", userID))

	tokens, err := s.tokens.ActiveByUser(ctx, userID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	views := make([]*TokenView, 0, len(tokens))
	for _, token := range tokens {
		view, err := s.view(ctx, token)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		views = append(views, view)
	}

	span.SetAttributes(attribute.Int("count", len(views)))
	span.SetStatus(codes.Ok, "")
	return views, nil
}

// UserHistory returns the user's tokens in all states, newest first
func (s *queryService) UserHistory(ctx context.Context, userID string, limit int) ([]*domain.Token, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.query.user_history")
	defer span.End()

	span.SetAttributes(attribute.String("user_id", userID))

	if limit <= 0 {
		limit = 50
	}

	tokens, err := s.tokens.HistoryByUser(ctx, userID, limit)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("count", len(tokens)))
	span.SetStatus(codes.Ok, "")
	return tokens, nil
}

// Snapshot returns the queue with all its active tokens in call order
func (s *queryService) Snapshot(ctx context.Context, queueID string) (*QueueSnapshot, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.query.snapshot")
	defer span.End()

	span.SetAttributes(attribute.String("queue_id", queueID))

	queue, err := s.queues.GetByID(ctx, queueID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	active, err := s.tokens.ActiveByQueue(ctx, queueID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	now := s.now()
	views := make([]*TokenView, 0, len(active))
	for _, token := range active {
		position, ok := domain.CurrentPosition(token, active)
		views = append(views, &TokenView{
			Token:             token,
			HasPosition:       ok,
			Position:          position,
			EstimatedCallTime: domain.EstimateCallTime(now, position, queue.AvgServiceTime),
		})
	}

	span.SetAttributes(attribute.Int("active_count", len(active)))
	span.SetStatus(codes.Ok, "")
	return &QueueSnapshot{
		Queue:       queue,
		ActiveCount: len(active),
		Tokens:      views,
	}, nil
}

// view computes a single token's live position against its queue's
// current active set
func (s *queryService) view(ctx context.Context, token *domain.Token) (*TokenView, error) {
	if token.Status.IsTerminal() {
		return &TokenView{Token: token}, nil
	}

	queue, err := s.queues.GetByID(ctx, token.QueueID)
	if err != nil {
		return nil, err
	}
	active, err := s.tokens.ActiveByQueue(ctx, token.QueueID)
	if err != nil {
		return nil, err
	}

	position, ok := domain.CurrentPosition(token, active)
	return &TokenView{
		Token:             token,
		HasPosition:       ok,
		Position:          position,
		EstimatedCallTime: domain.EstimateCallTime(s.now(), position, queue.AvgServiceTime),
	}, nil
}
