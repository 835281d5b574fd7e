package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Basantgrg924/QueueSystem/internal/domain"
	"github.com/Basantgrg924/QueueSystem/internal/repository"
)

func seedQueue(t *testing.T, store *repository.MemoryStore) (*domain.Queue, AdmissionService, LifecycleService) {
	t.Helper()
	ctx := context.Background()
	queue := &domain.Queue{
		ID: "queue-1", Name: "Documents", IsActive: true, MaxCapacity: 10, AvgServiceTime: 10,
	}
	require.NoError(t, store.Create(ctx, queue))
	admission := NewAdmissionService(store, store, nil, nil, nil, nil, &AdmissionConfig{Now: testClock()})
	lifecycle := NewLifecycleService(store, nil, nil, nil, &LifecycleConfig{Now: testClock()})
	return queue, admission, lifecycle
}

func TestQueryService_TokenDetail(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	queue, admission, _ := seedQueue(t, store)
	queries := NewQueryService(store, store)

	first, err := admission.Join(ctx, queue.ID, "user-1")
	require.NoError(t, err)
	second, err := admission.Join(ctx, queue.ID, "user-2")
	require.NoError(t, err)

	view, err := queries.TokenDetail(ctx, second.Number)
	require.NoError(t, err)
	require.True(t, view.HasPosition)
	assert.Equal(t, 2, view.Position)
	assert.Equal(t, second.Number, view.Token.Number)
	assert.False(t, view.EstimatedCallTime.IsZero())

	view, err = queries.TokenDetail(ctx, first.Number)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Position)

	_, err = queries.TokenDetail(ctx, "DOC20250101099")
	assert.ErrorIs(t, err, domain.ErrTokenNotFound)
}

func TestQueryService_UserActiveTokens(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	queue, admission, lifecycle := seedQueue(t, store)

	other := &domain.Queue{
		ID: "queue-2", Name: "Pharmacy", IsActive: true, MaxCapacity: 10, AvgServiceTime: 5,
	}
	require.NoError(t, store.Create(ctx, other))

	queries := NewQueryService(store, store)

	tokenA, err := admission.Join(ctx, queue.ID, "user-1")
	require.NoError(t, err)
	tokenB, err := admission.Join(ctx, other.ID, "user-1")
	require.NoError(t, err)

	views, err := queries.UserActiveTokens(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, views, 2)
	for _, view := range views {
		assert.True(t, view.HasPosition)
		assert.Equal(t, 1, view.Position)
	}

	// Cancelling one drops it from the active list but not from history
	_, err = lifecycle.Transition(ctx, tokenA.Number, domain.TokenStatusCancelled, "", "user-1")
	require.NoError(t, err)

	views, err = queries.UserActiveTokens(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, tokenB.Number, views[0].Token.Number)

	history, err := queries.UserHistory(ctx, "user-1", 0)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestQueryService_Snapshot(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	queue, admission, lifecycle := seedQueue(t, store)
	queries := NewQueryService(store, store)

	for _, user := range []string{"u1", "u2", "u3"} {
		_, err := admission.Join(ctx, queue.ID, user)
		require.NoError(t, err)
	}
	_, err := lifecycle.CallNext(ctx, queue.ID, "staff")
	require.NoError(t, err)

	snapshot, err := queries.Snapshot(ctx, queue.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, snapshot.ActiveCount)
	require.Len(t, snapshot.Tokens, 3)

	// Tokens come back in number order with their live positions
	assert.Equal(t, domain.TokenStatusCalled, snapshot.Tokens[0].Token.Status)
	assert.Equal(t, 1, snapshot.Tokens[0].Position)
	assert.Equal(t, 2, snapshot.Tokens[1].Position)
	assert.Equal(t, 3, snapshot.Tokens[2].Position)

	_, err = queries.Snapshot(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrQueueNotFound)
}

func TestQueryService_EstimatedCallTimeScalesWithPosition(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	queue, admission, _ := seedQueue(t, store)
	queries := NewQueryService(store, store)

	_, err := admission.Join(ctx, queue.ID, "u1")
	require.NoError(t, err)
	second, err := admission.Join(ctx, queue.ID, "u2")
	require.NoError(t, err)

	view, err := queries.TokenDetail(ctx, second.Number)
	require.NoError(t, err)

	// position 2 at 10 minutes per token
	wait := view.EstimatedCallTime.Sub(time.Now())
	assert.InDelta(t, (20 * time.Minute).Minutes(), wait.Minutes(), 1.0)
}
