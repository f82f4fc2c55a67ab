package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"invoice-pipeline/internal/models"
	"invoice-pipeline/pkg/database"
)

// MonitorRepository is the read/write boundary for email_monitors, kept in
// the teacher's one-struct-per-aggregate, method-per-query style.
type MonitorRepository struct{}

func NewMonitorRepository() *MonitorRepository {
	return &MonitorRepository{}
}

func (r *MonitorRepository) Create(ctx context.Context, m *models.Monitor) error {
	return database.GetDB().WithContext(ctx).Create(m).Error
}

func (r *MonitorRepository) FindByID(ctx context.Context, id string) (*models.Monitor, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var m models.Monitor
	if err := database.GetDB().WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MonitorRepository) FindAllForOwner(ctx context.Context, ownerUserID string) ([]models.Monitor, error) {
	var out []models.Monitor
	err := database.GetDB().WithContext(ctx).
		Where("owner_user_id = ?", strings.TrimSpace(ownerUserID)).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

// FindAllActive lists every active monitor across all owners, used by the
// scheduled-check loop (§5) which runs independently of any HTTP caller.
func (r *MonitorRepository) FindAllActive(ctx context.Context) ([]models.Monitor, error) {
	var out []models.Monitor
	err := database.GetDB().WithContext(ctx).
		Where("is_active = ?", true).
		Find(&out).Error
	return out, err
}

func (r *MonitorRepository) Update(ctx context.Context, id string, data map[string]any) error {
	return database.GetDB().WithContext(ctx).Model(&models.Monitor{}).Where("id = ?", id).Updates(data).Error
}

func (r *MonitorRepository) Delete(ctx context.Context, id string) error {
	return database.GetDB().WithContext(ctx).Where("id = ?", id).Delete(&models.Monitor{}).Error
}

// RecordCheckOutcome applies the §4.C1 counters rule at run finalization:
// last_checked_at is always updated; last_error is cleared on success and
// set on run-level failure; the processed/invoice counters only advance
// when invoices were actually created.
func (r *MonitorRepository) RecordCheckOutcome(ctx context.Context, id string, processed, invoicesCreated int, checkedAt time.Time, runErr error) error {
	updates := map[string]any{
		"last_checked_at": checkedAt,
	}
	if runErr != nil {
		msg := runErr.Error()
		updates["last_error"] = msg
	} else {
		updates["last_error"] = nil
	}
	if invoicesCreated > 0 {
		updates["emails_processed_count"] = gorm.Expr("emails_processed_count + ?", processed)
		updates["invoices_created_count"] = gorm.Expr("invoices_created_count + ?", invoicesCreated)
	}
	return database.GetDB().WithContext(ctx).Model(&models.Monitor{}).Where("id = ?", id).Updates(updates).Error
}
