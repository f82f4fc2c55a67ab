package models

import "time"

// Stage values form the strictly monotonic state machine of §4.C1.
const (
	StageInit       = "init"
	StageConfig     = "config"
	StageConnect    = "connect"
	StageOpenFolder = "open_folder"
	StageSearch     = "search"
	StageFetch      = "fetch"
	StageProcess    = "process"
	StageComplete   = "complete"
)

// Stages is the full ordered stage list; a finalized run's stage history
// must be a prefix of this slice (§8 "Monotonic stages").
var Stages = []string{StageInit, StageConfig, StageConnect, StageOpenFolder, StageSearch, StageFetch, StageProcess, StageComplete}

const (
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
)

const (
	RunStatusStarted = "started"
	RunStatusSuccess = "success"
	RunStatusPartial = "partial"
	RunStatusError   = "error"
)

// CheckRun is one execution attempt against one monitor (§3).
type CheckRun struct {
	ID          string `json:"id" gorm:"primaryKey"`
	RunUUID     string `json:"run_uuid" gorm:"uniqueIndex;not null"`
	MonitorID   string `json:"monitor_id" gorm:"not null;index"`
	Trigger     string `json:"trigger" gorm:"not null"`

	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`

	Status    string `json:"status" gorm:"not null;default:started"`
	LastStage string `json:"last_stage" gorm:"not null;default:init"`

	FolderOpened      string  `json:"folder_opened"`
	UIDValidity       *uint32 `json:"uid_validity"`
	SearchQuery       string  `json:"search_query"`

	Found               int `json:"found"`
	Fetched             int `json:"fetched"`
	AttachmentsTotal    int `json:"attachments_total"`
	AttachmentsSupported int `json:"attachments_supported"`
	EmailsSkipped       int `json:"emails_skipped"`
	EmailsProcessed     int `json:"emails_processed"`
	InvoicesCreated     int `json:"invoices_created"`
	ErrorsCount         int `json:"errors_count"`

	TotalTimeMs int64 `json:"total_time_ms"`

	ErrorMessage *string `json:"error_message"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (CheckRun) TableName() string { return "email_check_runs" }

// SkipReason enumerates the §4.C1 per-message gate failures.
const (
	SkipAlreadyProcessedUID       = "already_processed_uid_match"
	SkipAlreadyProcessedMessageID = "already_processed_message_id_match"
	SkipNoAttachments             = "no_attachments"
	SkipUnsupportedAttachments    = "unsupported_attachment_types"
	SkipKeywordFilterMiss         = "keyword_filter_miss"
)

const (
	LogStatusFound   = "found"
	LogStatusSkipped = "skipped"
	LogStatusDBOK    = "db_ok"
	LogStatusError   = "error"
)

// ProcessingLogEntry is one per message examined during a run (§3).
type ProcessingLogEntry struct {
	ID          string `json:"id" gorm:"primaryKey"`
	MonitorID   string `json:"monitor_id" gorm:"not null;index"`
	CheckRunUUID string `json:"check_run_uuid" gorm:"not null;index"`

	UIDValidity uint32  `json:"uidvalidity" gorm:"index:idx_plog_dedupe"`
	UID         uint32  `json:"uid" gorm:"index:idx_plog_dedupe"`
	MessageID   *string `json:"message_id" gorm:"index"`

	Subject      *string    `json:"subject"`
	FromAddress  *string    `json:"from_address"`
	ReceivedDate *time.Time `json:"received_date"`

	Status     string  `json:"status" gorm:"not null;index"`
	SkipReason *string `json:"skip_reason"`

	AttachmentCount       int      `json:"attachment_count"`
	AttachmentSupportedCount int   `json:"attachment_supported_count"`
	AttachmentMimeTypes   StringList `json:"attachment_mime_types" gorm:"type:text"`
	AttachmentNames       StringList `json:"attachment_names" gorm:"type:text"`

	InvoicesCreated   int     `json:"invoices_created"`
	ProcessingTimeMs  int64   `json:"processing_time_ms"`
	ErrorMessage      *string `json:"error_message"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (ProcessingLogEntry) TableName() string { return "email_processing_log" }
