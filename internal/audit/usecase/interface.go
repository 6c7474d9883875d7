// Package usecase implements the audit ledger: recording, listing and verification.
package usecase

import (
	"context"
	"time"

	auditDomain "github.com/anonymort/whistle/internal/audit/domain"
)

// AuditLogRepository persists audit entries. It is insert and read only.
type AuditLogRepository interface {
	Create(ctx context.Context, entry *auditDomain.Entry) error
	List(ctx context.Context, offset, limit int, createdAtFrom, createdAtTo *time.Time) ([]*auditDomain.Entry, error)
}

// Ledger is the write side every security component depends on. Record never fails from the
// caller's point of view.
type Ledger interface {
	Record(ctx context.Context, entry *auditDomain.Entry)
}

// AuditLogUseCase is the full ledger including the administrative read paths.
type AuditLogUseCase interface {
	Ledger

	// List returns entries newest first. Nil bounds disable the filter; both are inclusive.
	List(ctx context.Context, offset, limit int, createdAtFrom, createdAtTo *time.Time) ([]*auditDomain.Entry, error)

	// VerifyBatch checks every signature in [start, end].
	VerifyBatch(ctx context.Context, start, end time.Time) (*auditDomain.VerificationReport, error)
}
