package emailcheck

import (
	"context"

	"invoice-pipeline/internal/models"
	"invoice-pipeline/internal/repository"
)

// DedupeChecker implements G1 and the §4.C1 deduplication rule: a message
// is a duplicate iff a prior log entry exists for the same
// (monitor, uidvalidity, uid) with status not in {error, skipped}, with a
// (monitor, message_id) fallback for the case where UIDVALIDITY changed.
type DedupeChecker struct {
	logs *repository.ProcessingLogRepository
}

func NewDedupeChecker(logs *repository.ProcessingLogRepository) *DedupeChecker {
	return &DedupeChecker{logs: logs}
}

// Check returns (duplicate, skipReason). skipReason is one of
// models.SkipAlreadyProcessedUID / SkipAlreadyProcessedMessageID when
// duplicate is true.
func (d *DedupeChecker) Check(ctx context.Context, monitorID string, msg *Message) (bool, string, error) {
	byUID, err := d.logs.AlreadyProcessedByUID(ctx, monitorID, msg.UIDValidity, msg.UID)
	if err != nil {
		return false, "", err
	}
	if byUID {
		return true, models.SkipAlreadyProcessedUID, nil
	}

	if msg.MessageID == "" {
		return false, "", nil
	}
	byMessageID, err := d.logs.AlreadyProcessedByMessageID(ctx, monitorID, msg.MessageID)
	if err != nil {
		return false, "", err
	}
	if byMessageID {
		return true, models.SkipAlreadyProcessedMessageID, nil
	}
	return false, "", nil
}
