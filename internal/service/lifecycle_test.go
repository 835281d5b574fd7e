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

func TestLifecycleService_Transition(t *testing.T) {
	var gotParams repository.TransitionParams
	tokenRepo := &MockTokenRepository{
		TransitionFunc: func(ctx context.Context, params repository.TransitionParams) (*domain.Token, error) {
			gotParams = params
			now := params.Now
			return &domain.Token{
				ID:        "tok-1",
				Number:    params.Number,
				QueueID:   "queue-1",
				UserID:    "user-1",
				Status:    params.Target,
				CalledAt:  &now,
				Notes:     params.Notes,
				UpdatedAt: now,
			}, nil
		},
	}
	publisher := &MockPublisher{}
	svc := NewLifecycleService(tokenRepo, publisher, nil, nil, &LifecycleConfig{Now: testClock()})

	token, err := svc.Transition(context.Background(), "DOC20250101001", domain.TokenStatusCalled, "window 4", "staff-1")
	require.NoError(t, err)

	assert.Equal(t, domain.TokenStatusCalled, token.Status)
	assert.Equal(t, "DOC20250101001", gotParams.Number)
	assert.Equal(t, domain.TokenStatusCalled, gotParams.Target)
	assert.Equal(t, "window 4", gotParams.Notes)
	assert.Equal(t, testTime, gotParams.Now)

	require.Len(t, publisher.Events, 1)
	assert.Equal(t, domain.EventTokenCalled, publisher.Events[0].Type)
}

func TestLifecycleService_Transition_Validation(t *testing.T) {
	svc := NewLifecycleService(&MockTokenRepository{}, nil, nil, nil, nil)

	_, err := svc.Transition(context.Background(), "", domain.TokenStatusCalled, "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidTokenNumber)

	_, err = svc.Transition(context.Background(), "DOC20250101001", "expired", "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidTokenStatus)
}

func TestLifecycleService_Transition_Errors(t *testing.T) {
	tokenRepo := &MockTokenRepository{
		TransitionFunc: func(ctx context.Context, params repository.TransitionParams) (*domain.Token, error) {
			return nil, &domain.InvalidTransitionError{From: domain.TokenStatusWaiting, To: params.Target}
		},
	}
	publisher := &MockPublisher{}
	svc := NewLifecycleService(tokenRepo, publisher, nil, nil, nil)

	_, err := svc.Transition(context.Background(), "DOC20250101001", domain.TokenStatusServing, "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Empty(t, publisher.Events, "failed transitions emit nothing")
}

func TestLifecycleService_CallNext(t *testing.T) {
	waiting := &domain.Token{
		Number:  "DOC20250101002",
		QueueID: "queue-1",
		UserID:  "user-2",
		Status:  domain.TokenStatusWaiting,
	}
	tokenRepo := &MockTokenRepository{
		OldestWaitingFunc: func(ctx context.Context, queueID string) (*domain.Token, error) {
			assert.Equal(t, "queue-1", queueID)
			return waiting, nil
		},
		TransitionFunc: func(ctx context.Context, params repository.TransitionParams) (*domain.Token, error) {
			assert.Equal(t, waiting.Number, params.Number)
			assert.Equal(t, domain.TokenStatusCalled, params.Target)
			now := params.Now
			return &domain.Token{
				Number:    waiting.Number,
				QueueID:   waiting.QueueID,
				UserID:    waiting.UserID,
				Status:    domain.TokenStatusCalled,
				CalledAt:  &now,
				UpdatedAt: now,
			}, nil
		},
	}
	publisher := &MockPublisher{}
	svc := NewLifecycleService(tokenRepo, publisher, nil, nil, &LifecycleConfig{Now: testClock()})

	token, err := svc.CallNext(context.Background(), "queue-1", "staff-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TokenStatusCalled, token.Status)
	require.NotNil(t, token.CalledAt)
	assert.Equal(t, testTime, *token.CalledAt)

	require.Len(t, publisher.Events, 1)
	assert.Equal(t, domain.EventTokenCalled, publisher.Events[0].Type)
}

func TestLifecycleService_CallNext_LostRace(t *testing.T) {
	// A concurrent caller claims the first waiting token between the
	// read and the update; CallNext moves on to the next one.
	oldest := []*domain.Token{
		{Number: "DOC20250101003", QueueID: "queue-1", Status: domain.TokenStatusWaiting},
		{Number: "DOC20250101004", QueueID: "queue-1", Status: domain.TokenStatusWaiting},
	}
	reads := 0
	tokenRepo := &MockTokenRepository{
		OldestWaitingFunc: func(ctx context.Context, queueID string) (*domain.Token, error) {
			token := oldest[reads]
			reads++
			return token, nil
		},
		TransitionFunc: func(ctx context.Context, params repository.TransitionParams) (*domain.Token, error) {
			if params.Number == "DOC20250101003" {
				return nil, &domain.InvalidTransitionError{
					From: domain.TokenStatusCalled,
					To:   domain.TokenStatusCalled,
				}
			}
			now := params.Now
			return &domain.Token{
				Number:    params.Number,
				QueueID:   "queue-1",
				Status:    domain.TokenStatusCalled,
				CalledAt:  &now,
				UpdatedAt: now,
			}, nil
		},
	}
	publisher := &MockPublisher{}
	svc := NewLifecycleService(tokenRepo, publisher, nil, nil, &LifecycleConfig{Now: testClock()})

	token, err := svc.CallNext(context.Background(), "queue-1", "staff-1")
	require.NoError(t, err)
	assert.Equal(t, "DOC20250101004", token.Number)
	assert.Equal(t, 2, reads)

	require.Len(t, publisher.Events, 1)
	assert.Equal(t, "DOC20250101004", publisher.Events[0].TokenNumber)
}

func TestLifecycleService_CallNext_RetriesExhausted(t *testing.T) {
	tokenRepo := &MockTokenRepository{
		OldestWaitingFunc: func(ctx context.Context, queueID string) (*domain.Token, error) {
			return &domain.Token{Number: "DOC20250101005", QueueID: "queue-1", Status: domain.TokenStatusWaiting}, nil
		},
		TransitionFunc: func(ctx context.Context, params repository.TransitionParams) (*domain.Token, error) {
			return nil, &domain.InvalidTransitionError{
				From: domain.TokenStatusCalled,
				To:   domain.TokenStatusCalled,
			}
		},
	}
	svc := NewLifecycleService(tokenRepo, nil, nil, nil, nil)

	_, err := svc.CallNext(context.Background(), "queue-1", "staff-1")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestLifecycleService_CallNext_EmptyQueue(t *testing.T) {
	tokenRepo := &MockTokenRepository{
		OldestWaitingFunc: func(ctx context.Context, queueID string) (*domain.Token, error) {
			return nil, domain.ErrNoWaitingTokens
		},
	}
	svc := NewLifecycleService(tokenRepo, nil, nil, nil, nil)

	_, err := svc.CallNext(context.Background(), "queue-1", "staff-1")
	assert.ErrorIs(t, err, domain.ErrNoWaitingTokens)

	_, err = svc.CallNext(context.Background(), " ", "staff-1")
	assert.ErrorIs(t, err, domain.ErrInvalidQueueID)
}

func TestLifecycleService_FullFlow(t *testing.T) {
	// Drive one token through the whole lifecycle against the real
	// in-memory store.
	ctx := context.Background()
	store := repository.NewMemoryStore()
	queue := &domain.Queue{
		ID:             "queue-1",
		Name:           "Documents",
		IsActive:       true,
		MaxCapacity:    10,
		AvgServiceTime: 5,
	}
	require.NoError(t, store.Create(ctx, queue))

	clock := testTime
	now := func() time.Time { return clock }
	publisher := &MockPublisher{}

	admission := NewAdmissionService(store, store, nil, publisher, nil, nil, &AdmissionConfig{Now: now})
	lifecycle := NewLifecycleService(store, publisher, nil, nil, &LifecycleConfig{Now: now})

	token, err := admission.Join(ctx, queue.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "DOC20250101001", token.Number)

	clock = clock.Add(10 * time.Minute)
	called, err := lifecycle.CallNext(ctx, queue.ID, "staff-1")
	require.NoError(t, err)
	assert.Equal(t, token.Number, called.Number)

	clock = clock.Add(2 * time.Minute)
	serving, err := lifecycle.Transition(ctx, token.Number, domain.TokenStatusServing, "", "staff-1")
	require.NoError(t, err)
	require.NotNil(t, serving.ServedAt)

	clock = clock.Add(15 * time.Minute)
	done, err := lifecycle.Transition(ctx, token.Number, domain.TokenStatusCompleted, "resolved", "staff-1")
	require.NoError(t, err)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, "resolved", done.Notes)
	assert.Equal(t, 15*time.Minute, done.ServiceDuration())

	// Terminal transition recounted occupancy
	stored, err := store.GetByID(ctx, queue.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.CurrentCount)

	// issued, called, serving, completed
	require.Len(t, publisher.Events, 4)
	assert.Equal(t, domain.EventTokenIssued, publisher.Events[0].Type)
	assert.Equal(t, domain.EventTokenCalled, publisher.Events[1].Type)
	assert.Equal(t, domain.EventTokenServing, publisher.Events[2].Type)
	assert.Equal(t, domain.EventTokenCompleted, publisher.Events[3].Type)
}
