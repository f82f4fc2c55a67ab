package repository

import (
	"context"

	"gorm.io/gorm"

	"invoice-pipeline/internal/models"
	"invoice-pipeline/pkg/database"
)

// IngestionRunRepository persists ingestion_runs and their invoice_items,
// the output of C2/C3 for both the email and upload entry points (§3).
type IngestionRunRepository struct{}

func NewIngestionRunRepository() *IngestionRunRepository {
	return &IngestionRunRepository{}
}

func (r *IngestionRunRepository) Create(ctx context.Context, run *models.IngestionRun) error {
	return database.GetDB().WithContext(ctx).Create(run).Error
}

// CreateWithItems persists the run and its line items in one transaction so
// a crash mid-write never leaves an orphaned partial item set.
func (r *IngestionRunRepository) CreateWithItems(ctx context.Context, run *models.IngestionRun) error {
	return database.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items := run.Items
		run.Items = nil
		if err := tx.Create(run).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].IngestionRunID = run.ID
		}
		run.Items = items
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *IngestionRunRepository) FindByID(ctx context.Context, id string) (*models.IngestionRun, error) {
	var run models.IngestionRun
	if err := database.GetDB().WithContext(ctx).Preload("Items").Where("id = ?", id).First(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *IngestionRunRepository) ListForOwner(ctx context.Context, ownerUserID string, limit int) ([]models.IngestionRun, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []models.IngestionRun
	err := database.GetDB().WithContext(ctx).
		Where("owner_user_id = ?", ownerUserID).
		Order("started_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *IngestionRunRepository) UpdateStatus(ctx context.Context, id, status string, errMsg *string) error {
	updates := map[string]any{"status": status}
	if errMsg != nil {
		updates["error_message"] = *errMsg
	}
	return database.GetDB().WithContext(ctx).Model(&models.IngestionRun{}).Where("id = ?", id).Updates(updates).Error
}
