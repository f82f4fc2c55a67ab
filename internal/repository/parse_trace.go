package repository

import (
	"context"

	"invoice-pipeline/internal/models"
	"invoice-pipeline/pkg/database"
)

// ParseTraceRepository persists the DB mirror of a finalized in-memory
// trace (internal/tracer), written once per run so it survives ring-buffer
// eviction (§9).
type ParseTraceRepository struct{}

func NewParseTraceRepository() *ParseTraceRepository {
	return &ParseTraceRepository{}
}

func (r *ParseTraceRepository) Save(ctx context.Context, rec *models.ParseTraceRecord) error {
	return database.GetDB().WithContext(ctx).Save(rec).Error
}

func (r *ParseTraceRepository) FindByRunID(ctx context.Context, runID string) (*models.ParseTraceRecord, error) {
	var rec models.ParseTraceRecord
	if err := database.GetDB().WithContext(ctx).Where("run_id = ?", runID).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}
