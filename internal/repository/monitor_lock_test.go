package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitorLockRepository_TryAcquireThenReleaseAllowsReacquire(t *testing.T) {
	newTestDB(t)
	repo := NewMonitorLockRepository()
	ctx := context.Background()
	now := time.Now()

	ok, err := repo.TryAcquire(ctx, "monitor-1", "holder-a", now, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, repo.Release(ctx, "monitor-1", "holder-a"))

	ok, err = repo.TryAcquire(ctx, "monitor-1", "holder-b", now, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMonitorLockRepository_TryAcquireFailsWhileHeld(t *testing.T) {
	newTestDB(t)
	repo := NewMonitorLockRepository()
	ctx := context.Background()
	now := time.Now()

	ok, err := repo.TryAcquire(ctx, "monitor-2", "holder-a", now, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.TryAcquire(ctx, "monitor-2", "holder-b", now, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMonitorLockRepository_DeleteExpiredFreesTheRowForReacquire(t *testing.T) {
	newTestDB(t)
	repo := NewMonitorLockRepository()
	ctx := context.Background()
	past := time.Now().Add(-time.Hour)

	ok, err := repo.TryAcquire(ctx, "monitor-3", "holder-a", past, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, repo.DeleteExpired(ctx, time.Now()))

	ok, err = repo.TryAcquire(ctx, "monitor-3", "holder-b", time.Now(), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMonitorLockRepository_ReleaseIsNoopWhenNotHeldByOwner(t *testing.T) {
	newTestDB(t)
	repo := NewMonitorLockRepository()
	ctx := context.Background()
	now := time.Now()

	ok, err := repo.TryAcquire(ctx, "monitor-4", "holder-a", now, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, repo.Release(ctx, "monitor-4", "someone-else"))

	ok, err = repo.TryAcquire(ctx, "monitor-4", "holder-b", now, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}
