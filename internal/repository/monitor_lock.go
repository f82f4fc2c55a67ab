package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"invoice-pipeline/internal/models"
	"invoice-pipeline/pkg/database"
)

// MonitorLockRepository implements the §4.C1 locking protocol's storage
// side: delete-expired-then-insert, racing on the monitor_id primary key.
type MonitorLockRepository struct{}

func NewMonitorLockRepository() *MonitorLockRepository {
	return &MonitorLockRepository{}
}

// DeleteExpired removes any lock whose lock_expires_at has passed (step 1
// of the locking protocol).
func (r *MonitorLockRepository) DeleteExpired(ctx context.Context, now time.Time) error {
	return database.GetDB().WithContext(ctx).
		Where("lock_expires_at < ?", now).
		Delete(&models.MonitorLock{}).Error
}

// TryAcquire attempts the atomic insert of step 2. A primary-key conflict
// (another holder already has the row) is reported via ok=false rather
// than an error, so callers can map it straight to apperr.Locked.
func (r *MonitorLockRepository) TryAcquire(ctx context.Context, monitorID, owner string, now time.Time, ttl time.Duration) (ok bool, err error) {
	lock := &models.MonitorLock{
		MonitorID:     monitorID,
		Owner:         owner,
		LockedAt:      now,
		LockExpiresAt: now.Add(ttl),
	}
	createErr := database.GetDB().WithContext(ctx).Create(lock).Error
	if createErr == nil {
		return true, nil
	}
	if isUniqueConstraintErr(createErr) {
		return false, nil
	}
	return false, createErr
}

// Release deletes the lock row this owner holds. Called from every exit
// path of a check run (§4.C1 step 3).
func (r *MonitorLockRepository) Release(ctx context.Context, monitorID, owner string) error {
	return database.GetDB().WithContext(ctx).
		Where("monitor_id = ? AND owner = ?", monitorID, owner).
		Delete(&models.MonitorLock{}).Error
}

func isUniqueConstraintErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY must be unique") ||
		strings.Contains(msg, "duplicate key")
}
