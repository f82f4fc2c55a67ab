package models

import "time"

const (
	IngestionStatusProcessing = "processing"
	IngestionStatusCompleted  = "completed"
	IngestionStatusFailed     = "failed"
)

// IngestionRun is one invoice extraction instance, triggered either by an
// email attachment or a direct upload (§3).
type IngestionRun struct {
	ID          string `json:"id" gorm:"primaryKey"`
	OwnerUserID string `json:"owner_user_id" gorm:"not null;index"`

	Account  *string `json:"account"`
	Vendor   *string `json:"vendor"`
	FileName string  `json:"file_name"`
	FileSize int64   `json:"file_size"`

	Status string `json:"status" gorm:"not null;default:processing"`

	InvoiceTotalCents *int64 `json:"invoice_total_cents"`

	ErrorMessage *string `json:"error_message"`

	StartedAt  time.Time  `json:"started_at" gorm:"autoCreateTime"`
	FinishedAt *time.Time `json:"finished_at"`

	Items []InvoiceItem `json:"items,omitempty" gorm:"foreignKey:IngestionRunID"`
}

func (IngestionRun) TableName() string { return "ingestion_runs" }

// InvoiceItem is one line item owned by an IngestionRun (§3).
type InvoiceItem struct {
	ID             string  `json:"id" gorm:"primaryKey"`
	IngestionRunID string  `json:"ingestion_run_id" gorm:"not null;index"`
	Description    string  `json:"description"`
	Quantity       float64 `json:"quantity"`
	UnitPriceCents int64   `json:"unit_price_cents"`
	TotalCents     int64   `json:"total_cents"`
	Category       *string `json:"category"`
}

func (InvoiceItem) TableName() string { return "invoice_items" }
