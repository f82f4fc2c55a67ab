package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoice-pipeline/internal/models"
	"invoice-pipeline/internal/utils"
)

func newTestMonitor(owner string) *models.Monitor {
	return &models.Monitor{
		ID:          utils.GenerateUUID(),
		OwnerUserID: owner,
		EmailAddress: "invoices@example.com",
		MailboxName:  "inbox",
		IMAPHost:     "imap.example.com",
		IMAPPort:     993,
		AuthMethod:   "password",
		IsActive:     true,
	}
}

func TestMonitorRepository_CreateAndFindByID(t *testing.T) {
	newTestDB(t)
	repo := NewMonitorRepository()
	ctx := context.Background()

	m := newTestMonitor("owner-1")
	require.NoError(t, repo.Create(ctx, m))

	got, err := repo.FindByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "invoices@example.com", got.EmailAddress)
}

func TestMonitorRepository_FindByIDRejectsEmptyID(t *testing.T) {
	newTestDB(t)
	repo := NewMonitorRepository()

	_, err := repo.FindByID(context.Background(), "   ")
	assert.Error(t, err)
}

func TestMonitorRepository_FindAllForOwnerScopesByOwner(t *testing.T) {
	newTestDB(t)
	repo := NewMonitorRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newTestMonitor("owner-1")))
	require.NoError(t, repo.Create(ctx, newTestMonitor("owner-1")))
	require.NoError(t, repo.Create(ctx, newTestMonitor("owner-2")))

	owned, err := repo.FindAllForOwner(ctx, "owner-1")
	require.NoError(t, err)
	assert.Len(t, owned, 2)
}

func TestMonitorRepository_FindAllActiveIgnoresOwnerAndInactive(t *testing.T) {
	newTestDB(t)
	repo := NewMonitorRepository()
	ctx := context.Background()

	active1 := newTestMonitor("owner-1")
	active2 := newTestMonitor("owner-2")
	inactive := newTestMonitor("owner-3")
	inactive.IsActive = false

	require.NoError(t, repo.Create(ctx, active1))
	require.NoError(t, repo.Create(ctx, active2))
	require.NoError(t, repo.Create(ctx, inactive))

	all, err := repo.FindAllActive(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMonitorRepository_UpdatePartialFields(t *testing.T) {
	newTestDB(t)
	repo := NewMonitorRepository()
	ctx := context.Background()

	m := newTestMonitor("owner-1")
	require.NoError(t, repo.Create(ctx, m))

	require.NoError(t, repo.Update(ctx, m.ID, map[string]any{"is_active": false}))

	got, err := repo.FindByID(ctx, m.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Equal(t, "invoices@example.com", got.EmailAddress)
}

func TestMonitorRepository_Delete(t *testing.T) {
	newTestDB(t)
	repo := NewMonitorRepository()
	ctx := context.Background()

	m := newTestMonitor("owner-1")
	require.NoError(t, repo.Create(ctx, m))
	require.NoError(t, repo.Delete(ctx, m.ID))

	_, err := repo.FindByID(ctx, m.ID)
	assert.Error(t, err)
}

func TestMonitorRepository_RecordCheckOutcome_AdvancesCountersOnlyWithInvoices(t *testing.T) {
	newTestDB(t)
	repo := NewMonitorRepository()
	ctx := context.Background()

	m := newTestMonitor("owner-1")
	require.NoError(t, repo.Create(ctx, m))

	require.NoError(t, repo.RecordCheckOutcome(ctx, m.ID, 5, 0, time.Now(), nil))
	got, err := repo.FindByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.EmailsProcessedCount, "no invoices created means counters must not advance")
	assert.Nil(t, got.LastError)

	require.NoError(t, repo.RecordCheckOutcome(ctx, m.ID, 3, 2, time.Now(), nil))
	got, err = repo.FindByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.EmailsProcessedCount)
	assert.Equal(t, 2, got.InvoicesCreatedCount)
}

func TestMonitorRepository_RecordCheckOutcome_SetsAndClearsLastError(t *testing.T) {
	newTestDB(t)
	repo := NewMonitorRepository()
	ctx := context.Background()

	m := newTestMonitor("owner-1")
	require.NoError(t, repo.Create(ctx, m))

	require.NoError(t, repo.RecordCheckOutcome(ctx, m.ID, 0, 0, time.Now(), assert.AnError))
	got, err := repo.FindByID(ctx, m.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastError)
	assert.Equal(t, assert.AnError.Error(), *got.LastError)

	require.NoError(t, repo.RecordCheckOutcome(ctx, m.ID, 0, 0, time.Now(), nil))
	got, err = repo.FindByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Nil(t, got.LastError)
}
