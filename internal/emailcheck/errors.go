// Package emailcheck implements the per-monitor locked check run (C1):
// mailbox open with UIDVALIDITY tracking, two-level deduplication,
// attachment classification, and structured step-by-step trace persistence.
package emailcheck

import "invoice-pipeline/internal/apperr"

// Re-export the shared error codes this package's public operations can
// fail with, so callers only ever import internal/apperr.
const (
	ErrNotFound    = apperr.NotFound
	ErrInactive    = apperr.Inactive
	ErrLocked      = apperr.Locked
	ErrAuthFailed  = apperr.AuthFailed
	ErrUnreachable = apperr.Unreachable
)
