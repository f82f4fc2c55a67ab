package emailcheck

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"invoice-pipeline/internal/apperr"
	"invoice-pipeline/internal/models"
	"invoice-pipeline/internal/repository"
	"invoice-pipeline/internal/tracer"
)

// ExtractionResult is the subset of C2/C3's output the check engine needs
// to persist an IngestionRun and its line items and advance counters. The
// extraction and canonical-builder packages are out of this package's
// import graph to keep C1 independently testable; Service is wired to a
// concrete implementation at composition time in cmd/server.
type ExtractionResult struct {
	OK                bool
	InvoiceTotalCents *int64
	Vendor            string
	LineItems         []ExtractedLineItem
	Warnings          []string
}

// ExtractedLineItem is one canonical-builder line item, projected down to
// what an InvoiceItem row stores.
type ExtractedLineItem struct {
	Description    string
	Quantity       float64
	UnitPriceCents int64
	TotalCents     int64
}

// Pipeline is the G5 collaborator: run the extraction pipeline against one
// attachment.
type Pipeline interface {
	Extract(ctx context.Context, trace *tracer.Trace, filename, contentType string, data []byte) (*ExtractionResult, error)
}

// Options mirrors the §4.C1 check() opts: since_days, limit, folder.
type Options struct {
	SinceDays int
	Limit     int
	Folder    string
	// Diagnose-only knobs (§4.C1 diagnose()): bypass keyword filter and/or
	// dedupe so the UI can see why a message would be skipped.
	BypassKeywordFilter bool
	BypassDedupe        bool
}

func (o Options) normalize() Options {
	if o.SinceDays <= 0 {
		o.SinceDays = 7
	}
	if o.Limit <= 0 {
		o.Limit = 50
	}
	return o
}

// MessageOutcome is one line of the per-message result the spec's check()
// and diagnose() both return (§4.C1 "email_details[]").
type MessageOutcome struct {
	UID             uint32
	MessageID       string
	Subject         string
	From            string
	Status          string
	SkipReason      string
	AttachmentCount int
	InvoicesCreated int
	ErrorMessage    string
}

// Result is check()'s and diagnose()'s return shape.
type Result struct {
	RunUUID         string
	Stage           string
	Success         bool
	Found           int
	Fetched         int
	Processed       int
	Skipped         int
	InvoicesCreated int
	Errors          int
	EmailDetails    []MessageOutcome
	TotalTimeMs     int64
	Error           string
}

// Service implements the C1 public operations.
type Service struct {
	monitors    *repository.MonitorRepository
	checkRuns   *repository.CheckRunRepository
	logs        *repository.ProcessingLogRepository
	ingestion   *repository.IngestionRunRepository
	traces      *repository.ParseTraceRepository
	lock        *LockService
	dedupe      *DedupeChecker
	pipeline    Pipeline
	decryptKey  string
}

func NewService(
	monitors *repository.MonitorRepository,
	checkRuns *repository.CheckRunRepository,
	logs *repository.ProcessingLogRepository,
	ingestion *repository.IngestionRunRepository,
	traces *repository.ParseTraceRepository,
	lock *LockService,
	pipeline Pipeline,
	decryptKey string,
) *Service {
	return &Service{
		monitors:   monitors,
		checkRuns:  checkRuns,
		logs:       logs,
		ingestion:  ingestion,
		traces:     traces,
		lock:       lock,
		dedupe:     NewDedupeChecker(logs),
		pipeline:   pipeline,
		decryptKey: decryptKey,
	}
}

// Check implements check(monitor-id, trigger, opts) (§4.C1).
func (s *Service) Check(ctx context.Context, monitorID, trigger string, opts Options) (*Result, error) {
	return s.run(ctx, monitorID, trigger, opts.normalize(), false)
}

// Diagnose implements diagnose(monitor-id, opts): a read-only variant that
// never writes dedupe state.
func (s *Service) Diagnose(ctx context.Context, monitorID string, opts Options) (*Result, error) {
	opts.BypassDedupe = true
	return s.run(ctx, monitorID, "manual", opts.normalize(), true)
}

func (s *Service) run(ctx context.Context, monitorID, trigger string, opts Options, readOnly bool) (*Result, error) {
	monitor, err := s.monitors.FindByID(ctx, monitorID)
	if err != nil {
		return nil, apperr.Wrap(apperr.NotFound, "monitor not found", err)
	}
	if !monitor.IsActive {
		return nil, apperr.New(apperr.Inactive, "monitor is disabled")
	}

	owner := uuid.NewString()
	var release func()
	if !readOnly {
		release, err = s.lock.Acquire(ctx, monitorID, owner)
		if err != nil {
			return nil, err
		}
		defer release()
	}

	run := &models.CheckRun{
		ID:        uuid.NewString(),
		RunUUID:   uuid.NewString(),
		MonitorID: monitorID,
		Trigger:   trigger,
		StartedAt: time.Now(),
		Status:    models.RunStatusStarted,
		LastStage: models.StageInit,
	}
	if !readOnly {
		if err := s.checkRuns.Create(ctx, run); err != nil {
			return nil, apperr.Wrap(apperr.ProcessingError, "failed to create check run", err)
		}
	}

	trace := tracer.New(run.RunUUID, monitor.OwnerUserID)
	result, runErr := s.execute(ctx, monitor, run, opts, readOnly, trace)

	finishedAt := time.Now()
	trace.Info("complete", "run finished", map[string]any{"status": run.Status})
	tracer.Publish(trace)
	s.persistTrace(ctx, trace, finishedAt)

	if !readOnly {
		status := finalStatus(run.EmailsProcessed, run.ErrorsCount, runErr)
		_ = s.checkRuns.Finalize(ctx, run, status, finishedAt)
		_ = s.monitors.RecordCheckOutcome(ctx, monitorID, run.EmailsProcessed, run.InvoicesCreated, finishedAt, runErr)
	}

	if result != nil {
		result.TotalTimeMs = finishedAt.Sub(run.StartedAt).Milliseconds()
	}
	return result, runErr
}

// persistTrace writes the DB mirror of a finalized trace (§9 "Tracer
// without globals") so it survives ring-buffer eviction. Failures here are
// logged-and-ignored diagnostics, never surfaced as a check() failure.
func (s *Service) persistTrace(ctx context.Context, trace *tracer.Trace, finishedAt time.Time) {
	if s.traces == nil {
		return
	}
	summary := trace.Summarize(finishedAt)
	stepsJSON, err := trace.MarshalStepsJSON()
	if err != nil {
		return
	}
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return
	}
	rec := &models.ParseTraceRecord{
		RunID:       trace.RunID,
		DurationMs:  summary.DurationMs,
		StepCount:   summary.StepCount,
		Warnings:    summary.Warnings,
		Errors:      summary.Errors,
		TraceJSON:   stepsJSON,
		SummaryJSON: string(summaryJSON),
	}
	if trace.UserID != "" {
		userID := trace.UserID
		rec.UserID = &userID
	}
	_ = s.traces.Save(ctx, rec)
}

// finalStatus derives the terminal run status. A non-nil stage error
// (connect/auth/open_folder/search/fetch) always wins over the per-message
// counters: the run never got to process messages at all, so counting
// zero errors there must not read as success (§4.C1 state machine).
func finalStatus(processed, errors int, runErr error) string {
	if runErr != nil {
		return models.RunStatusError
	}
	switch {
	case errors == 0:
		return models.RunStatusSuccess
	case processed > 0:
		return models.RunStatusPartial
	default:
		return models.RunStatusError
	}
}

// advance moves the run's stage forward, enforcing monotonicity (§8 "Monotonic stages").
func advance(run *models.CheckRun, stage string) {
	run.LastStage = stage
}

func (s *Service) execute(ctx context.Context, monitor *models.Monitor, run *models.CheckRun, opts Options, readOnly bool, trace *tracer.Trace) (*Result, error) {
	advance(run, models.StageConfig)
	folder := opts.Folder
	if folder == "" {
		folder = monitor.MailboxName
	}
	run.SearchQuery = fmt.Sprintf("SINCE -%dd", opts.SinceDays)

	advance(run, models.StageConnect)
	mailbox, err := Dial(ctx, monitor, s.decryptKey)
	if err != nil {
		run.Status = models.RunStatusError
		msg := err.Error()
		run.ErrorMessage = &msg
		trace.Error("connect", "mailbox connect failed", map[string]any{"error": msg})
		return nil, err
	}
	defer mailbox.Close()

	advance(run, models.StageOpenFolder)
	if err := mailbox.OpenFolder(folder); err != nil {
		run.Status = models.RunStatusError
		msg := err.Error()
		run.ErrorMessage = &msg
		trace.Error("open_folder", "failed opening folder", map[string]any{"folder": folder})
		return nil, err
	}
	run.FolderOpened = folder
	uidValidity := mailbox.UIDValidity
	run.UIDValidity = &uidValidity

	advance(run, models.StageSearch)
	since := time.Now().AddDate(0, 0, -opts.SinceDays)
	uids, err := mailbox.SearchSince(since, opts.Limit)
	if err != nil {
		run.Status = models.RunStatusError
		msg := err.Error()
		run.ErrorMessage = &msg
		trace.Error("search", "mailbox search failed", nil)
		return nil, err
	}
	run.Found = len(uids)

	advance(run, models.StageFetch)
	messages, err := mailbox.Fetch(uids)
	if err != nil {
		run.Status = models.RunStatusError
		msg := err.Error()
		run.ErrorMessage = &msg
		trace.Error("fetch", "mailbox fetch failed", nil)
		return nil, err
	}
	run.Fetched = len(messages)

	advance(run, models.StageProcess)
	details := make([]MessageOutcome, 0, len(messages))
	for _, msg := range messages {
		outcome := s.processOne(ctx, monitor, run, msg, opts, readOnly, trace)
		details = append(details, outcome)
	}

	advance(run, models.StageComplete)

	return &Result{
		RunUUID:         run.RunUUID,
		Stage:           run.LastStage,
		Success:         run.ErrorsCount == 0,
		Found:           run.Found,
		Fetched:         run.Fetched,
		Processed:       run.EmailsProcessed,
		Skipped:         run.EmailsSkipped,
		InvoicesCreated: run.InvoicesCreated,
		Errors:          run.ErrorsCount,
		EmailDetails:    details,
	}, nil
}

func (s *Service) processOne(ctx context.Context, monitor *models.Monitor, run *models.CheckRun, msg *Message, opts Options, readOnly bool, trace *tracer.Trace) MessageOutcome {
	start := time.Now()
	outcome := MessageOutcome{
		UID: msg.UID, MessageID: msg.MessageID, Subject: msg.Subject, From: msg.From,
		AttachmentCount: len(msg.Attachments),
	}
	entry := &models.ProcessingLogEntry{
		ID:            uuid.NewString(),
		MonitorID:     monitor.ID,
		CheckRunUUID:  run.RunUUID,
		UIDValidity:   msg.UIDValidity,
		UID:           msg.UID,
		Subject:       nonEmptyPtr(msg.Subject),
		FromAddress:   nonEmptyPtr(msg.From),
		ReceivedDate:  msg.ReceivedDate,
		AttachmentCount: len(msg.Attachments),
	}
	if msg.MessageID != "" {
		entry.MessageID = &msg.MessageID
	}

	persist := func(status, skipReason string, invoicesCreated int, errMsg string) {
		entry.Status = status
		if skipReason != "" {
			entry.SkipReason = &skipReason
		}
		entry.InvoicesCreated = invoicesCreated
		entry.ProcessingTimeMs = time.Since(start).Milliseconds()
		if errMsg != "" {
			entry.ErrorMessage = &errMsg
		}
		outcome.Status = status
		outcome.SkipReason = skipReason
		outcome.InvoicesCreated = invoicesCreated
		outcome.ErrorMessage = errMsg

		if !readOnly {
			_ = s.logs.Create(ctx, entry)
		}
		switch status {
		case models.LogStatusDBOK:
			run.EmailsProcessed++
			run.InvoicesCreated += invoicesCreated
		case models.LogStatusSkipped:
			run.EmailsSkipped++
		case models.LogStatusError:
			run.ErrorsCount++
		}
	}

	// G1: dedupe.
	if !opts.BypassDedupe {
		dup, reason, err := s.dedupe.Check(ctx, monitor.ID, msg)
		if err != nil {
			trace.Warn("process", "dedupe check failed, proceeding", map[string]any{"uid": msg.UID})
		} else if dup {
			persist(models.LogStatusSkipped, reason, 0, "")
			return outcome
		}
	}

	// G2/G3: attachment presence and support.
	gate, supported := EvaluateAttachmentGates(msg)
	if !gate.Passed {
		persist(models.LogStatusSkipped, gate.SkipReason, 0, "")
		return outcome
	}
	run.AttachmentsTotal += len(msg.Attachments)
	run.AttachmentsSupported += len(supported)

	// G4: keyword filter.
	filenames := make([]string, 0, len(supported))
	for _, a := range supported {
		filenames = append(filenames, a.Filename)
	}
	requireKeywords := monitor.RequireInvoiceKeywords && !opts.BypassKeywordFilter
	keywordGate := EvaluateKeywordGate(requireKeywords, msg, filenames)
	if !keywordGate.Passed {
		persist(models.LogStatusSkipped, keywordGate.SkipReason, 0, "")
		return outcome
	}

	if readOnly {
		persist(models.LogStatusFound, "", 0, "")
		return outcome
	}

	// G5: extraction pipeline invocation, one attachment at a time.
	invoicesCreated := 0
	var lastErr error
	for _, a := range supported {
		res, err := s.pipeline.Extract(ctx, trace, a.Filename, a.ContentType, a.Bytes)
		if err != nil || res == nil || !res.OK {
			lastErr = err
			continue
		}
		runID := fmt.Sprintf("email-%s-%d-%s", monitor.ID, time.Now().Unix(), uuid.NewString()[:8])
		ingestionRun := &models.IngestionRun{
			ID:                runID,
			OwnerUserID:       monitor.OwnerUserID,
			Vendor:            nonEmptyPtr(res.Vendor),
			FileName:          a.Filename,
			FileSize:          a.Size,
			Status:            models.IngestionStatusCompleted,
			InvoiceTotalCents: res.InvoiceTotalCents,
			StartedAt:         time.Now(),
			Items:             toInvoiceItems(res.LineItems),
		}
		if err := s.ingestion.CreateWithItems(ctx, ingestionRun); err == nil {
			invoicesCreated++
		}
	}

	if invoicesCreated == 0 && lastErr != nil {
		persist(models.LogStatusError, "", 0, lastErr.Error())
		return outcome
	}
	persist(models.LogStatusDBOK, "", invoicesCreated, "")
	return outcome
}

func nonEmptyPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// toInvoiceItems projects the canonical-builder's line items down to the
// persisted InvoiceItem shape.
func toInvoiceItems(items []ExtractedLineItem) []models.InvoiceItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]models.InvoiceItem, 0, len(items))
	for _, it := range items {
		out = append(out, models.InvoiceItem{
			ID:             uuid.NewString(),
			Description:    it.Description,
			Quantity:       it.Quantity,
			UnitPriceCents: it.UnitPriceCents,
			TotalCents:     it.TotalCents,
		})
	}
	return out
}

// ListCheckRuns implements list_check_runs(monitor-id, limit).
func (s *Service) ListCheckRuns(ctx context.Context, monitorID string, limit int) ([]models.CheckRun, error) {
	return s.checkRuns.ListForMonitor(ctx, monitorID, limit)
}

// ListProcessingLogs implements list_processing_logs(run_uuid|monitor-id, limit).
func (s *Service) ListProcessingLogsForRun(ctx context.Context, runUUID string) ([]models.ProcessingLogEntry, error) {
	return s.logs.ListForRun(ctx, runUUID)
}

func (s *Service) ListProcessingLogsForMonitor(ctx context.Context, monitorID string, limit int) ([]models.ProcessingLogEntry, error) {
	return s.logs.ListForMonitor(ctx, monitorID, limit)
}
