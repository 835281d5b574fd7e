package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Basantgrg924/QueueSystem/internal/domain"
	"github.com/Basantgrg924/QueueSystem/internal/repository"
)

func TestQueueAdminService_Create(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewQueueAdminService(store, nil)

	queue, err := svc.Create(context.Background(), CreateQueueParams{
		Name:           "Documents",
		Description:    "Passport renewals",
		MaxCapacity:    50,
		AvgServiceTime: 10,
		CreatedBy:      "admin-1",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, queue.ID)
	assert.True(t, queue.IsActive, "new queues accept admissions immediately")
	assert.Equal(t, 0, queue.CurrentCount)

	stored, err := svc.Get(context.Background(), queue.ID)
	require.NoError(t, err)
	assert.Equal(t, "Documents", stored.Name)
}

func TestQueueAdminService_Create_Validation(t *testing.T) {
	svc := NewQueueAdminService(repository.NewMemoryStore(), nil)

	tests := []struct {
		name    string
		params  CreateQueueParams
		wantErr error
	}{
		{"blank name", CreateQueueParams{Name: " ", MaxCapacity: 10, AvgServiceTime: 5}, domain.ErrInvalidQueueName},
		{"zero capacity", CreateQueueParams{Name: "Lab", MaxCapacity: 0, AvgServiceTime: 5}, domain.ErrInvalidMaxCapacity},
		{"negative capacity", CreateQueueParams{Name: "Lab", MaxCapacity: -1, AvgServiceTime: 5}, domain.ErrInvalidMaxCapacity},
		{"zero service time", CreateQueueParams{Name: "Lab", MaxCapacity: 10, AvgServiceTime: 0}, domain.ErrInvalidAvgServiceTime},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.params)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestQueueAdminService_Update(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	svc := NewQueueAdminService(store, nil)

	queue, err := svc.Create(ctx, CreateQueueParams{Name: "Lab", MaxCapacity: 10, AvgServiceTime: 5})
	require.NoError(t, err)

	name := "Laboratory"
	capacity := 25
	updated, err := svc.Update(ctx, queue.ID, UpdateQueueParams{Name: &name, MaxCapacity: &capacity})
	require.NoError(t, err)
	assert.Equal(t, "Laboratory", updated.Name)
	assert.Equal(t, 25, updated.MaxCapacity)
	assert.Equal(t, 5, updated.AvgServiceTime, "unset fields keep their value")

	bad := 0
	_, err = svc.Update(ctx, queue.ID, UpdateQueueParams{MaxCapacity: &bad})
	assert.ErrorIs(t, err, domain.ErrInvalidMaxCapacity)

	_, err = svc.Update(ctx, "missing", UpdateQueueParams{Name: &name})
	assert.ErrorIs(t, err, domain.ErrQueueNotFound)
}

func TestQueueAdminService_SetActive(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	svc := NewQueueAdminService(store, nil)

	queue, err := svc.Create(ctx, CreateQueueParams{Name: "Lab", MaxCapacity: 10, AvgServiceTime: 5})
	require.NoError(t, err)

	closed, err := svc.SetActive(ctx, queue.ID, false, "admin-1")
	require.NoError(t, err)
	assert.False(t, closed.IsActive)

	// Closed queues reject admissions but keep serving existing tokens
	admission := NewAdmissionService(store, store, nil, nil, nil, nil, &AdmissionConfig{Now: testClock()})
	_, err = admission.Join(ctx, queue.ID, "user-1")
	assert.ErrorIs(t, err, domain.ErrQueueInactive)

	reopened, err := svc.SetActive(ctx, queue.ID, true, "admin-1")
	require.NoError(t, err)
	assert.True(t, reopened.IsActive)

	_, err = admission.Join(ctx, queue.ID, "user-1")
	assert.NoError(t, err)
}

func TestQueueAdminService_Delete(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	svc := NewQueueAdminService(store, nil)

	queue, err := svc.Create(ctx, CreateQueueParams{Name: "Lab", MaxCapacity: 10, AvgServiceTime: 5})
	require.NoError(t, err)

	admission := NewAdmissionService(store, store, nil, nil, nil, nil, &AdmissionConfig{Now: testClock()})
	_, err = admission.Join(ctx, queue.ID, "user-1")
	require.NoError(t, err)

	err = svc.Delete(ctx, queue.ID, "admin-1")
	assert.ErrorIs(t, err, domain.ErrQueueNotEmpty)
}

func TestQueueAdminService_List(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	svc := NewQueueAdminService(store, nil)

	active, err := svc.Create(ctx, CreateQueueParams{Name: "Billing", MaxCapacity: 10, AvgServiceTime: 5})
	require.NoError(t, err)
	inactive, err := svc.Create(ctx, CreateQueueParams{Name: "Archive", MaxCapacity: 10, AvgServiceTime: 5})
	require.NoError(t, err)
	_, err = svc.SetActive(ctx, inactive.ID, false, "admin-1")
	require.NoError(t, err)

	all, err := svc.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlyActive, err := svc.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, onlyActive, 1)
	assert.Equal(t, active.ID, onlyActive[0].ID)
}
