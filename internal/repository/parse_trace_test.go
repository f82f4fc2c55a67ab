package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoice-pipeline/internal/models"
)

func TestParseTraceRepository_SaveThenFindByRunID(t *testing.T) {
	newTestDB(t)
	repo := NewParseTraceRepository()
	ctx := context.Background()

	userID := "owner-1"
	rec := &models.ParseTraceRecord{
		RunID:       "run-123",
		UserID:      &userID,
		DurationMs:  42,
		StepCount:   3,
		Warnings:    1,
		Errors:      0,
		TraceJSON:   `[{"stage":"fetch"}]`,
		SummaryJSON: `{"run_id":"run-123"}`,
	}
	require.NoError(t, repo.Save(ctx, rec))

	got, err := repo.FindByRunID(ctx, "run-123")
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.DurationMs)
	assert.Equal(t, 3, got.StepCount)
	require.NotNil(t, got.UserID)
	assert.Equal(t, "owner-1", *got.UserID)
}

func TestParseTraceRepository_SaveUpsertsOnRunID(t *testing.T) {
	newTestDB(t)
	repo := NewParseTraceRepository()
	ctx := context.Background()

	rec := &models.ParseTraceRecord{RunID: "run-456", StepCount: 1}
	require.NoError(t, repo.Save(ctx, rec))

	rec.StepCount = 9
	require.NoError(t, repo.Save(ctx, rec))

	got, err := repo.FindByRunID(ctx, "run-456")
	require.NoError(t, err)
	assert.Equal(t, 9, got.StepCount)
}

func TestParseTraceRepository_FindByRunIDNotFound(t *testing.T) {
	newTestDB(t)
	repo := NewParseTraceRepository()

	_, err := repo.FindByRunID(context.Background(), "missing-run")
	assert.Error(t, err)
}
