package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/anonymort/whistle/internal/audit/domain"
	auditService "github.com/anonymort/whistle/internal/audit/service"
	apperrors "github.com/anonymort/whistle/internal/errors"
	"github.com/anonymort/whistle/internal/metrics"
)

const verifyPageSize = 500

// auditLogUseCase implements AuditLogUseCase.
type auditLogUseCase struct {
	auditLogRepo AuditLogRepository
	signer       auditService.Signer
	metrics      metrics.BusinessMetrics
	logger       *slog.Logger
	now          func() time.Time
}

// NewAuditLogUseCase creates the ledger. A nil signer stores unsigned entries.
func NewAuditLogUseCase(
	auditLogRepo AuditLogRepository,
	signer auditService.Signer,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) AuditLogUseCase {
	if businessMetrics == nil {
		businessMetrics = metrics.NewNoOpBusinessMetrics()
	}
	return &auditLogUseCase{
		auditLogRepo: auditLogRepo,
		signer:       signer,
		metrics:      businessMetrics,
		logger:       logger,
		now:          time.Now,
	}
}

// Record completes, signs and persists the entry. Failures are routed to the operational log
// and the security events metric.
func (a *auditLogUseCase) Record(ctx context.Context, entry *auditDomain.Entry) {
	auditDomain.NoteRecorded(ctx, entry)

	if entry.ID == uuid.Nil {
		entry.ID = uuid.Must(uuid.NewV7())
	}
	if entry.CreatedAt.IsZero() {
		// Every supported database keeps microseconds; signatures must survive the round trip.
		entry.CreatedAt = a.now().UTC().Truncate(time.Microsecond)
	}
	if entry.RequestID == "" {
		entry.RequestID = auditDomain.RequestIDFromContext(ctx)
	}
	if entry.ActorID == "" {
		entry.ActorID = auditDomain.ActorFromContext(ctx)
	}
	if entry.ActorID == "" {
		entry.ActorID = auditDomain.ActorAnonymous
	}

	if a.signer != nil {
		signature, err := a.signer.Sign(entry)
		if err != nil {
			a.logger.Error("failed to sign audit entry",
				slog.String("action", entry.Action),
				slog.Any("error", err),
			)
		}
		entry.Signature = signature
	}

	if entry.Severity == auditDomain.SeverityCritical {
		a.logger.Warn("critical security event",
			slog.String("action", entry.Action),
			slog.String("resource", entry.Resource),
			slog.String("outcome", string(entry.Outcome)),
			slog.String("request_id", entry.RequestID),
		)
	}

	// The ledger outlives a cancelled request: a client hanging up must not drop its entry.
	if err := a.auditLogRepo.Create(context.WithoutCancel(ctx), entry); err != nil {
		a.metrics.RecordSecurityEvent(ctx, "audit_write_failure", entry.Action)
		a.logger.Error("audit write failed",
			slog.String("audit_id", entry.ID.String()),
			slog.String("action", entry.Action),
			slog.String("actor_id", entry.ActorID),
			slog.String("resource", entry.Resource),
			slog.String("outcome", string(entry.Outcome)),
			slog.String("severity", string(entry.Severity)),
			slog.Any("error", err),
		)
	}
}

// List retrieves audit entries ordered by created_at descending.
func (a *auditLogUseCase) List(
	ctx context.Context,
	offset, limit int,
	createdAtFrom, createdAtTo *time.Time,
) ([]*auditDomain.Entry, error) {
	entries, err := a.auditLogRepo.List(ctx, offset, limit, createdAtFrom, createdAtTo)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit logs")
	}
	return entries, nil
}

// VerifyBatch recomputes signatures for every entry created in [start, end].
func (a *auditLogUseCase) VerifyBatch(
	ctx context.Context,
	start, end time.Time,
) (*auditDomain.VerificationReport, error) {
	if a.signer == nil {
		return nil, errors.New("audit signing key is not configured")
	}

	report := &auditDomain.VerificationReport{InvalidLogs: []uuid.UUID{}}
	for offset := 0; ; offset += verifyPageSize {
		entries, err := a.auditLogRepo.List(ctx, offset, verifyPageSize, &start, &end)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to list audit logs for verification")
		}

		for _, entry := range entries {
			report.TotalChecked++
			if !entry.IsSigned() {
				report.UnsignedCount++
				continue
			}
			report.SignedCount++
			if err := a.signer.Verify(entry); err != nil {
				report.InvalidCount++
				report.InvalidLogs = append(report.InvalidLogs, entry.ID)
				continue
			}
			report.ValidCount++
		}

		if len(entries) < verifyPageSize {
			break
		}
	}

	return report, nil
}
