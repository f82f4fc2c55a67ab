package repository

import (
	"context"

	"gorm.io/gorm"

	"invoice-pipeline/internal/models"
	"invoice-pipeline/pkg/database"
)

// ProcessingLogRepository implements the §4.C1 two-level dedupe check and
// persists one ProcessingLogEntry per examined message.
type ProcessingLogRepository struct{}

func NewProcessingLogRepository() *ProcessingLogRepository {
	return &ProcessingLogRepository{}
}

func (r *ProcessingLogRepository) Create(ctx context.Context, entry *models.ProcessingLogEntry) error {
	return database.GetDB().WithContext(ctx).Create(entry).Error
}

// excludedPriorStatuses are the statuses that do NOT count as "already
// processed" for dedupe purposes: an entry logged as error or skipped
// leaves the message eligible for reprocessing on the next run (§4.C1,
// §9 open question resolution in DESIGN.md).
var excludedPriorStatuses = []string{models.LogStatusError, models.LogStatusSkipped}

// AlreadyProcessedByUID implements dedupe level 1: an exact
// (monitor, uidvalidity, uid) match against a prior non-error,
// non-skipped log entry.
func (r *ProcessingLogRepository) AlreadyProcessedByUID(ctx context.Context, monitorID string, uidValidity, uid uint32) (bool, error) {
	var count int64
	err := database.GetDB().WithContext(ctx).
		Model(&models.ProcessingLogEntry{}).
		Where("monitor_id = ? AND uidvalidity = ? AND uid = ?", monitorID, uidValidity, uid).
		Where("status NOT IN ?", excludedPriorStatuses).
		Count(&count).Error
	return count > 0, err
}

// AlreadyProcessedByMessageID implements dedupe level 2, the fallback used
// when UIDVALIDITY has changed (mailbox reindexed) and the UID match can no
// longer be trusted: a Message-Id match against a prior non-error,
// non-skipped log entry for the same monitor.
func (r *ProcessingLogRepository) AlreadyProcessedByMessageID(ctx context.Context, monitorID, messageID string) (bool, error) {
	if messageID == "" {
		return false, nil
	}
	var count int64
	err := database.GetDB().WithContext(ctx).
		Model(&models.ProcessingLogEntry{}).
		Where("monitor_id = ? AND message_id = ?", monitorID, messageID).
		Where("status NOT IN ?", excludedPriorStatuses).
		Count(&count).Error
	return count > 0, err
}

func (r *ProcessingLogRepository) ListForRun(ctx context.Context, checkRunUUID string) ([]models.ProcessingLogEntry, error) {
	var out []models.ProcessingLogEntry
	err := database.GetDB().WithContext(ctx).
		Where("check_run_uuid = ?", checkRunUUID).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

func (r *ProcessingLogRepository) ListForMonitor(ctx context.Context, monitorID string, limit int) ([]models.ProcessingLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []models.ProcessingLogEntry
	err := database.GetDB().WithContext(ctx).
		Where("monitor_id = ?", monitorID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *ProcessingLogRepository) FindByID(ctx context.Context, id string) (*models.ProcessingLogEntry, error) {
	var entry models.ProcessingLogEntry
	if err := database.GetDB().WithContext(ctx).Where("id = ?", id).First(&entry).Error; err != nil {
		if errIsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func errIsNotFound(err error) bool {
	return err == gorm.ErrRecordNotFound
}
