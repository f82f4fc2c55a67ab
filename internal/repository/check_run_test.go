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

func newTestCheckRun(monitorID string) *models.CheckRun {
	return &models.CheckRun{
		ID:        utils.GenerateUUID(),
		RunUUID:   utils.GenerateUUID(),
		MonitorID: monitorID,
		Trigger:   models.TriggerManual,
		StartedAt: time.Now(),
		Status:    models.RunStatusStarted,
		LastStage: models.StageInit,
	}
}

func TestCheckRunRepository_CreateAndFindByRunUUID(t *testing.T) {
	newTestDB(t)
	repo := NewCheckRunRepository()
	ctx := context.Background()

	run := newTestCheckRun("monitor-1")
	require.NoError(t, repo.Create(ctx, run))

	got, err := repo.FindByRunUUID(ctx, run.RunUUID)
	require.NoError(t, err)
	assert.Equal(t, "monitor-1", got.MonitorID)
	assert.Equal(t, models.RunStatusStarted, got.Status)
}

func TestCheckRunRepository_ListForMonitorOrdersByStartedAtDescAndDefaultsLimit(t *testing.T) {
	newTestDB(t)
	repo := NewCheckRunRepository()
	ctx := context.Background()

	older := newTestCheckRun("monitor-1")
	older.StartedAt = time.Now().Add(-time.Hour)
	newer := newTestCheckRun("monitor-1")
	newer.StartedAt = time.Now()
	other := newTestCheckRun("monitor-2")

	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))
	require.NoError(t, repo.Create(ctx, other))

	list, err := repo.ListForMonitor(ctx, "monitor-1", 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.RunUUID, list[0].RunUUID, "most recently started run must come first")
}

func TestCheckRunRepository_FinalizeSetsTerminalFieldsOnce(t *testing.T) {
	newTestDB(t)
	repo := NewCheckRunRepository()
	ctx := context.Background()

	run := newTestCheckRun("monitor-1")
	run.StartedAt = time.Now().Add(-2 * time.Second)
	require.NoError(t, repo.Create(ctx, run))

	finishedAt := time.Now()
	require.NoError(t, repo.Finalize(ctx, run, models.RunStatusSuccess, finishedAt))

	got, err := repo.FindByRunUUID(ctx, run.RunUUID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSuccess, got.Status)
	require.NotNil(t, got.FinishedAt)
	assert.GreaterOrEqual(t, got.TotalTimeMs, int64(1000))
}
