package emailcheck

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"invoice-pipeline/internal/models"
	"invoice-pipeline/internal/repository"
	"invoice-pipeline/pkg/database"
)

func newTestDB(t *testing.T) {
	t.Helper()
	db := database.Init(t.TempDir(), "")
	require.NoError(t, database.Migrate(db))
}

func TestDedupeChecker_NoPriorEntryIsNotDuplicate(t *testing.T) {
	newTestDB(t)
	checker := NewDedupeChecker(repository.NewProcessingLogRepository())

	dup, reason, err := checker.Check(context.Background(), "monitor-1", &Message{UID: 5, UIDValidity: 100, MessageID: "<a@b>"})
	require.NoError(t, err)
	require.False(t, dup)
	require.Empty(t, reason)
}

func TestDedupeChecker_MatchesOnUID(t *testing.T) {
	newTestDB(t)
	logs := repository.NewProcessingLogRepository()
	checker := NewDedupeChecker(logs)
	ctx := context.Background()

	require.NoError(t, logs.Create(ctx, &models.ProcessingLogEntry{
		ID:           "log-1",
		MonitorID:    "monitor-1",
		CheckRunUUID: "run-1",
		UIDValidity:  100,
		UID:          5,
		Status:       models.LogStatusDBOK,
	}))

	dup, reason, err := checker.Check(ctx, "monitor-1", &Message{UID: 5, UIDValidity: 100})
	require.NoError(t, err)
	require.True(t, dup)
	require.Equal(t, models.SkipAlreadyProcessedUID, reason)
}

func TestDedupeChecker_FallsBackToMessageIDAfterUIDValidityChange(t *testing.T) {
	newTestDB(t)
	logs := repository.NewProcessingLogRepository()
	checker := NewDedupeChecker(logs)
	ctx := context.Background()
	msgID := "<stable-id@vendor.example>"

	require.NoError(t, logs.Create(ctx, &models.ProcessingLogEntry{
		ID:           "log-1",
		MonitorID:    "monitor-1",
		CheckRunUUID: "run-1",
		UIDValidity:  100,
		UID:          5,
		MessageID:    &msgID,
		Status:       models.LogStatusDBOK,
	}))

	// Mailbox reindexed: UIDVALIDITY changed, so the UID can no longer be
	// trusted, but the Message-Id still identifies the same message.
	dup, reason, err := checker.Check(ctx, "monitor-1", &Message{UID: 5, UIDValidity: 200, MessageID: msgID})
	require.NoError(t, err)
	require.True(t, dup)
	require.Equal(t, models.SkipAlreadyProcessedMessageID, reason)
}

func TestDedupeChecker_ErrorAndSkippedEntriesDoNotCountAsProcessed(t *testing.T) {
	newTestDB(t)
	logs := repository.NewProcessingLogRepository()
	checker := NewDedupeChecker(logs)
	ctx := context.Background()

	require.NoError(t, logs.Create(ctx, &models.ProcessingLogEntry{
		ID:           "log-1",
		MonitorID:    "monitor-1",
		CheckRunUUID: "run-1",
		UIDValidity:  100,
		UID:          5,
		Status:       models.LogStatusError,
	}))

	dup, _, err := checker.Check(ctx, "monitor-1", &Message{UID: 5, UIDValidity: 100})
	require.NoError(t, err)
	require.False(t, dup, "an error-status log entry must leave the message eligible for reprocessing")
}
