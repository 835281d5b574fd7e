package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Basantgrg924/QueueSystem/internal/allocator"
	"github.com/Basantgrg924/QueueSystem/internal/domain"
)

// MemoryStore is an in-memory implementation of QueueRepository and
// TokenRepository. A single mutex serializes every operation, which
// makes each call atomic with respect to the others.
type MemoryStore struct {
	mu     sync.Mutex
	queues map[string]*domain.Queue
	tokens map[string]*domain.Token // keyed by token number
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		queues: make(map[string]*domain.Queue),
		tokens: make(map[string]*domain.Token),
	}
}

var (
	_ QueueRepository = (*MemoryStore)(nil)
	_ TokenRepository = (*MemoryStore)(nil)
)

func (s *MemoryStore) Create(ctx context.Context, queue *domain.Queue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *queue
	s.queues[queue.ID] = &cp
	return nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (*domain.Queue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	queue, ok := s.queues[id]
	if !ok {
		return nil, domain.ErrQueueNotFound
	}
	cp := *queue
	return &cp, nil
}

func (s *MemoryStore) List(ctx context.Context, activeOnly bool) ([]*domain.Queue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*domain.Queue, 0, len(s.queues))
	for _, queue := range s.queues {
		if activeOnly && !queue.IsActive {
			continue
		}
		cp := *queue
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *MemoryStore) Update(ctx context.Context, queue *domain.Queue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.queues[queue.ID]; !ok {
		return domain.ErrQueueNotFound
	}
	cp := *queue
	s.queues[queue.ID] = &cp
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.queues[id]; !ok {
		return domain.ErrQueueNotFound
	}
	for _, token := range s.tokens {
		if token.QueueID == id {
			return domain.ErrQueueNotEmpty
		}
	}
	delete(s.queues, id)
	return nil
}

func (s *MemoryStore) RefreshOccupancy(ctx context.Context, id string, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	queue, ok := s.queues[id]
	if !ok {
		return 0, domain.ErrQueueNotFound
	}
	count := s.countActiveLocked(id)
	queue.RefreshEstimate(count)
	queue.UpdatedAt = now
	return count, nil
}

func (s *MemoryStore) Join(ctx context.Context, params JoinParams) (*domain.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	queue, ok := s.queues[params.QueueID]
	if !ok {
		return nil, domain.ErrQueueNotFound
	}
	if !queue.IsActive {
		return nil, domain.ErrQueueInactive
	}

	active := s.countActiveLocked(params.QueueID)
	if !queue.HasCapacity(active) {
		return nil, domain.ErrQueueFull
	}

	for _, token := range s.tokens {
		if token.QueueID == params.QueueID && token.UserID == params.UserID && token.Status.IsActive() {
			cp := *token
			return nil, &domain.DuplicateActiveTokenError{Existing: &cp}
		}
	}

	if _, exists := s.tokens[params.Number]; exists {
		return nil, domain.ErrAllocationConflict
	}

	position := active + 1
	token := &domain.Token{
		ID:                uuid.NewString(),
		Number:            params.Number,
		QueueID:           params.QueueID,
		UserID:            params.UserID,
		Status:            domain.TokenStatusWaiting,
		Position:          position,
		EstimatedCallTime: domain.EstimateCallTime(params.Now, position, queue.AvgServiceTime),
		CreatedAt:         params.Now,
		UpdatedAt:         params.Now,
	}
	s.tokens[token.Number] = token

	queue.RefreshEstimate(active + 1)
	queue.UpdatedAt = params.Now

	cp := *token
	return &cp, nil
}

func (s *MemoryStore) NextSequence(ctx context.Context, prefix, datePart string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	max := 0
	for number := range s.tokens {
		parsed, err := allocator.Parse(number)
		if err != nil || parsed.Prefix != prefix || parsed.DatePart != datePart {
			continue
		}
		if parsed.Sequence > max {
			max = parsed.Sequence
		}
	}
	return max + 1, nil
}

func (s *MemoryStore) GetByNumber(ctx context.Context, number string) (*domain.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.tokens[number]
	if !ok {
		return nil, domain.ErrTokenNotFound
	}
	cp := *token
	return &cp, nil
}

func (s *MemoryStore) Transition(ctx context.Context, params TransitionParams) (*domain.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.tokens[params.Number]
	if !ok {
		return nil, domain.ErrTokenNotFound
	}

	if err := token.ApplyTransition(params.Target, params.Notes, params.Now); err != nil {
		return nil, err
	}

	if params.Target.IsTerminal() {
		if queue, ok := s.queues[token.QueueID]; ok {
			queue.RefreshEstimate(s.countActiveLocked(token.QueueID))
			queue.UpdatedAt = params.Now
		}
	}

	cp := *token
	return &cp, nil
}

func (s *MemoryStore) OldestWaiting(ctx context.Context, queueID string) (*domain.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var oldest *domain.Token
	for _, token := range s.tokens {
		if token.QueueID != queueID || token.Status != domain.TokenStatusWaiting {
			continue
		}
		if oldest == nil || strings.Compare(token.Number, oldest.Number) < 0 {
			oldest = token
		}
	}
	if oldest == nil {
		return nil, domain.ErrNoWaitingTokens
	}
	cp := *oldest
	return &cp, nil
}

func (s *MemoryStore) ActiveByQueue(ctx context.Context, queueID string) ([]*domain.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*domain.Token
	for _, token := range s.tokens {
		if token.QueueID == queueID && token.Status.IsActive() {
			cp := *token
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Number < result[j].Number })
	return result, nil
}

func (s *MemoryStore) ActiveByUser(ctx context.Context, userID string) ([]*domain.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*domain.Token
	for _, token := range s.tokens {
		if token.UserID == userID && token.Status.IsActive() {
			cp := *token
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Number < result[j].Number })
	return result, nil
}

func (s *MemoryStore) HistoryByUser(ctx context.Context, userID string, limit int) ([]*domain.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*domain.Token
	for _, token := range s.tokens {
		if token.UserID == userID {
			cp := *token
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *MemoryStore) CountActive(ctx context.Context, queueID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countActiveLocked(queueID), nil
}

func (s *MemoryStore) countActiveLocked(queueID string) int {
	count := 0
	for _, token := range s.tokens {
		if token.QueueID == queueID && token.Status.IsActive() {
			count++
		}
	}
	return count
}
