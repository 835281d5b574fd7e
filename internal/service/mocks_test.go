package service

import (
	"context"
	"time"

	"github.com/Basantgrg924/QueueSystem/internal/domain"
	"github.com/Basantgrg924/QueueSystem/internal/repository"
)

// MockQueueRepository is a mock implementation of repository.QueueRepository
type MockQueueRepository struct {
	CreateFunc           func(ctx context.Context, queue *domain.Queue) error
	GetByIDFunc          func(ctx context.Context, id string) (*domain.Queue, error)
	ListFunc             func(ctx context.Context, activeOnly bool) ([]*domain.Queue, error)
	UpdateFunc           func(ctx context.Context, queue *domain.Queue) error
	DeleteFunc           func(ctx context.Context, id string) error
	RefreshOccupancyFunc func(ctx context.Context, id string, now time.Time) (int, error)
}

func (m *MockQueueRepository) Create(ctx context.Context, queue *domain.Queue) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, queue)
	}
	return nil
}

func (m *MockQueueRepository) GetByID(ctx context.Context, id string) (*domain.Queue, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, domain.ErrQueueNotFound
}

func (m *MockQueueRepository) List(ctx context.Context, activeOnly bool) ([]*domain.Queue, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, activeOnly)
	}
	return nil, nil
}

func (m *MockQueueRepository) Update(ctx context.Context, queue *domain.Queue) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, queue)
	}
	return nil
}

func (m *MockQueueRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockQueueRepository) RefreshOccupancy(ctx context.Context, id string, now time.Time) (int, error) {
	if m.RefreshOccupancyFunc != nil {
		return m.RefreshOccupancyFunc(ctx, id, now)
	}
	return 0, nil
}

// MockTokenRepository is a mock implementation of repository.TokenRepository
type MockTokenRepository struct {
	JoinFunc          func(ctx context.Context, params repository.JoinParams) (*domain.Token, error)
	NextSequenceFunc  func(ctx context.Context, prefix, datePart string) (int, error)
	GetByNumberFunc   func(ctx context.Context, number string) (*domain.Token, error)
	TransitionFunc    func(ctx context.Context, params repository.TransitionParams) (*domain.Token, error)
	OldestWaitingFunc func(ctx context.Context, queueID string) (*domain.Token, error)
	ActiveByQueueFunc func(ctx context.Context, queueID string) ([]*domain.Token, error)
	ActiveByUserFunc  func(ctx context.Context, userID string) ([]*domain.Token, error)
	HistoryByUserFunc func(ctx context.Context, userID string, limit int) ([]*domain.Token, error)
	CountActiveFunc   func(ctx context.Context, queueID string) (int, error)
}

func (m *MockTokenRepository) Join(ctx context.Context, params repository.JoinParams) (*domain.Token, error) {
	if m.JoinFunc != nil {
		return m.JoinFunc(ctx, params)
	}
	return nil, domain.ErrQueueNotFound
}

func (m *MockTokenRepository) NextSequence(ctx context.Context, prefix, datePart string) (int, error) {
	if m.NextSequenceFunc != nil {
		return m.NextSequenceFunc(ctx, prefix, datePart)
	}
	return 1, nil
}

func (m *MockTokenRepository) GetByNumber(ctx context.Context, number string) (*domain.Token, error) {
	if m.GetByNumberFunc != nil {
		return m.GetByNumberFunc(ctx, number)
	}
	return nil, domain.ErrTokenNotFound
}

func (m *MockTokenRepository) Transition(ctx context.Context, params repository.TransitionParams) (*domain.Token, error) {
	if m.TransitionFunc != nil {
		return m.TransitionFunc(ctx, params)
	}
	return nil, domain.ErrTokenNotFound
}

func (m *MockTokenRepository) OldestWaiting(ctx context.Context, queueID string) (*domain.Token, error) {
	if m.OldestWaitingFunc != nil {
		return m.OldestWaitingFunc(ctx, queueID)
	}
	return nil, domain.ErrNoWaitingTokens
}

func (m *MockTokenRepository) ActiveByQueue(ctx context.Context, queueID string) ([]*domain.Token, error) {
	if m.ActiveByQueueFunc != nil {
		return m.ActiveByQueueFunc(ctx, queueID)
	}
	return nil, nil
}

func (m *MockTokenRepository) ActiveByUser(ctx context.Context, userID string) ([]*domain.Token, error) {
	if m.ActiveByUserFunc != nil {
		return m.ActiveByUserFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockTokenRepository) HistoryByUser(ctx context.Context, userID string, limit int) ([]*domain.Token, error) {
	if m.HistoryByUserFunc != nil {
		return m.HistoryByUserFunc(ctx, userID, limit)
	}
	return nil, nil
}

func (m *MockTokenRepository) CountActive(ctx context.Context, queueID string) (int, error) {
	if m.CountActiveFunc != nil {
		return m.CountActiveFunc(ctx, queueID)
	}
	return 0, nil
}

// MockPublisher records published events
type MockPublisher struct {
	Events []*domain.TokenEvent
	Err    error
}

func (m *MockPublisher) PublishTokenEvent(ctx context.Context, event *domain.TokenEvent) error {
	if m.Err != nil {
		return m.Err
	}
	m.Events = append(m.Events, event)
	return nil
}

func (m *MockPublisher) Close() {}
