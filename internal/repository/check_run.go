package repository

import (
	"context"
	"time"

	"invoice-pipeline/internal/models"
	"invoice-pipeline/pkg/database"
)

// CheckRunRepository persists CheckRun rows (§3). Runs are created once,
// updated incrementally as stages complete, and finalized exactly once
// (§4.C1 "Lifecycle").
type CheckRunRepository struct{}

func NewCheckRunRepository() *CheckRunRepository {
	return &CheckRunRepository{}
}

func (r *CheckRunRepository) Create(ctx context.Context, run *models.CheckRun) error {
	return database.GetDB().WithContext(ctx).Create(run).Error
}

func (r *CheckRunRepository) Save(ctx context.Context, run *models.CheckRun) error {
	return database.GetDB().WithContext(ctx).Save(run).Error
}

func (r *CheckRunRepository) FindByRunUUID(ctx context.Context, runUUID string) (*models.CheckRun, error) {
	var run models.CheckRun
	if err := database.GetDB().WithContext(ctx).Where("run_uuid = ?", runUUID).First(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *CheckRunRepository) ListForMonitor(ctx context.Context, monitorID string, limit int) ([]models.CheckRun, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []models.CheckRun
	err := database.GetDB().WithContext(ctx).
		Where("monitor_id = ?", monitorID).
		Order("started_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// Finalize sets the terminal status/stage/timings once, per §3 "Immutable
// after finalization".
func (r *CheckRunRepository) Finalize(ctx context.Context, run *models.CheckRun, status string, finishedAt time.Time) error {
	run.Status = status
	run.FinishedAt = &finishedAt
	run.TotalTimeMs = finishedAt.Sub(run.StartedAt).Milliseconds()
	return r.Save(ctx, run)
}
