package models

import (
	"strings"

	"gorm.io/gorm"

	"invoice-pipeline/internal/apperr"
)

// BeforeSave enforces the §6 ownership trigger contract at the GORM layer,
// ahead of the SQL trigger backstop installed by pkg/database.Migrate.
func (m *Monitor) BeforeSave(tx *gorm.DB) error {
	if strings.TrimSpace(m.OwnerUserID) == "" {
		return apperr.New(apperr.Integrity, "email_monitors.owner_user_id must not be null")
	}
	return nil
}

// BeforeSave enforces the same ownership rule for ingestion_runs.
func (r *IngestionRun) BeforeSave(tx *gorm.DB) error {
	if strings.TrimSpace(r.OwnerUserID) == "" {
		return apperr.New(apperr.Integrity, "ingestion_runs.owner_user_id must not be null")
	}
	return nil
}
