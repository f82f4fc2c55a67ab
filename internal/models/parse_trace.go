package models

import "time"

// ParseTraceRecord is the persisted mirror of an in-memory ParseTrace
// (§3, §9 "Tracer without globals"). The ring buffer is the source of
// truth while a run is live; this row is written once the run finalizes,
// for diagnosis after the buffer has evicted it.
type ParseTraceRecord struct {
	RunID       string  `json:"run_id" gorm:"primaryKey"`
	UserID      *string `json:"user_id"`
	DurationMs  int64   `json:"duration_ms"`
	StepCount   int     `json:"step_count"`
	Warnings    int     `json:"warnings"`
	Errors      int     `json:"errors"`
	TraceJSON   string  `json:"trace_json"`
	SummaryJSON string  `json:"summary_json"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (ParseTraceRecord) TableName() string { return "parse_traces" }
