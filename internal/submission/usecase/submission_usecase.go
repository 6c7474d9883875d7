package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/anonymort/whistle/internal/audit/domain"
	auditUseCase "github.com/anonymort/whistle/internal/audit/usecase"
	cryptoDomain "github.com/anonymort/whistle/internal/crypto/domain"
	cryptoService "github.com/anonymort/whistle/internal/crypto/service"
	cryptoUseCase "github.com/anonymort/whistle/internal/crypto/usecase"
	apperrors "github.com/anonymort/whistle/internal/errors"
	"github.com/anonymort/whistle/internal/notification"
	scannerDomain "github.com/anonymort/whistle/internal/scanner/domain"
	scannerService "github.com/anonymort/whistle/internal/scanner/service"
	submissionDomain "github.com/anonymort/whistle/internal/submission/domain"
)

// Rejection reasons recorded on submission.reject entries.
const (
	RejectInvalidMessage  = "invalid_message_envelope"
	RejectInvalidFile     = "invalid_file_envelope"
	RejectConflictingFile = "conflicting_file"
	RejectInvalidPriority = "invalid_priority"
	RejectMalformed       = "malformed_request"
)

type submissionUseCase struct {
	repo       SubmissionRepository
	envelopes  cryptoService.EnvelopeService
	keyManager cryptoUseCase.KeyManager
	scanner    FileScanner
	notifier   notification.Notifier
	ledger     auditUseCase.Ledger
	logger     *slog.Logger
	now        func() time.Time
}

// NewSubmissionUseCase creates the submission use case.
func NewSubmissionUseCase(
	repo SubmissionRepository,
	envelopes cryptoService.EnvelopeService,
	keyManager cryptoUseCase.KeyManager,
	scanner FileScanner,
	notifier notification.Notifier,
	ledger auditUseCase.Ledger,
	logger *slog.Logger,
) SubmissionUseCase {
	return &submissionUseCase{
		repo:       repo,
		envelopes:  envelopes,
		keyManager: keyManager,
		scanner:    scanner,
		notifier:   notifier,
		ledger:     ledger,
		logger:     logger,
		now:        time.Now,
	}
}

func (u *submissionUseCase) Submit(
	ctx context.Context,
	input *submissionDomain.CreateSubmissionInput,
) (*submissionDomain.Submission, error) {
	if err := u.envelopes.Attest(input.MessageEnvelope); err != nil {
		u.Reject(ctx, RejectInvalidMessage)
		return nil, err
	}
	if input.FileEnvelope != nil && input.File != nil {
		u.Reject(ctx, RejectConflictingFile)
		return nil, submissionDomain.ErrConflictingFile
	}
	if input.FileEnvelope != nil {
		if err := u.envelopes.Attest(input.FileEnvelope); err != nil {
			u.Reject(ctx, RejectInvalidFile)
			return nil, err
		}
	}
	priority, err := submissionDomain.ParsePriority(string(input.Priority))
	if err != nil {
		u.Reject(ctx, RejectInvalidPriority)
		return nil, err
	}

	fileEnvelope := input.FileEnvelope
	if input.File != nil {
		if fileEnvelope, err = u.sealUpload(ctx, input.File); err != nil {
			return nil, err
		}
	}

	contentHash := submissionDomain.ContentHash(input.MessageEnvelope, fileEnvelope)
	submission := &submissionDomain.Submission{
		ID:              uuid.Must(uuid.NewV7()),
		Reference:       submissionDomain.Reference(contentHash),
		MessageEnvelope: input.MessageEnvelope,
		FileEnvelope:    fileEnvelope,
		ContentHash:     contentHash,
		SubmittedAt:     u.now().UTC(),
		Status:          submissionDomain.StatusReceived,
		Priority:        priority,
	}

	if err := u.repo.Create(ctx, submission); err != nil {
		return nil, err
	}

	u.ledger.Record(ctx, &auditDomain.Entry{
		Action:   auditDomain.ActionSubmissionCreate,
		Resource: submission.Reference,
		Outcome:  auditDomain.OutcomeSuccess,
		Severity: auditDomain.SeverityMedium,
		Details: map[string]any{
			"algorithm": submission.MessageEnvelope.AlgorithmID,
			"has_file":  submission.HasFile(),
			"priority":  string(submission.Priority),
		},
	})

	u.notify(ctx, input.Contact, submission.Reference)
	return submission, nil
}

// sealUpload scans a plaintext upload and seals it to the active key. The plaintext buffer is
// zeroed whatever the outcome.
func (u *submissionUseCase) sealUpload(
	ctx context.Context,
	file *submissionDomain.FileUpload,
) (*cryptoDomain.Envelope, error) {
	defer cryptoDomain.Zero(file.Data)

	result, err := u.scanner.Scan(file.Filename, file.MIMEType, file.Data)
	if err != nil {
		var scanErr *scannerDomain.ScanError
		if !errors.As(err, &scanErr) {
			return nil, apperrors.Wrap(err, "failed to scan upload")
		}
		u.ledger.Record(ctx, &auditDomain.Entry{
			Action:   auditDomain.ActionScanReject,
			Resource: "upload",
			Outcome:  auditDomain.OutcomeRejected,
			Severity: auditDomain.SeverityHigh,
			Details: map[string]any{
				"reason_code": result.ReasonCode,
				"stage":       result.EngineStage,
				"threat":      result.ThreatName,
				"file_hash":   result.FileHash,
				"size":        len(file.Data),
			},
		})
		return nil, err
	}

	envelope, err := u.keyManager.SealFile(&cryptoDomain.FileRecord{
		Filename: file.Filename,
		MIMEType: scannerService.CanonicalMIME(file.Filename, file.MIMEType),
		Data:     file.Data,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to seal upload")
	}
	return envelope, nil
}

// notify sends the receipt. The contact address is neither stored nor audited.
func (u *submissionUseCase) notify(ctx context.Context, contact, reference string) {
	contact = strings.TrimSpace(contact)
	if contact == "" {
		return
	}

	ok := u.notifier.Notify(ctx, contact, notification.TemplateSubmissionReceived, map[string]string{
		"reference": reference,
	})
	if ok {
		return
	}

	u.logger.WarnContext(ctx, "submission receipt not delivered", slog.String("reference", reference))
	u.ledger.Record(ctx, &auditDomain.Entry{
		Action:   auditDomain.ActionNotificationFailed,
		Resource: reference,
		Outcome:  auditDomain.OutcomeFailure,
		Severity: auditDomain.SeverityLow,
		Details:  map[string]any{"template": notification.TemplateSubmissionReceived},
	})
}

func (u *submissionUseCase) Reject(ctx context.Context, reason string) {
	u.ledger.Record(ctx, &auditDomain.Entry{
		Action:   auditDomain.ActionSubmissionReject,
		Resource: "submission",
		Outcome:  auditDomain.OutcomeRejected,
		Severity: auditDomain.SeverityMedium,
		Details:  map[string]any{"reason": reason},
	})
}

func (u *submissionUseCase) List(
	ctx context.Context,
	offset, limit int,
) ([]*submissionDomain.Submission, error) {
	submissions, err := u.repo.List(ctx, offset, limit)

	outcome := auditDomain.OutcomeSuccess
	if err != nil {
		outcome = auditDomain.OutcomeFailure
	}
	u.ledger.Record(ctx, &auditDomain.Entry{
		Action:   auditDomain.ActionSubmissionList,
		Resource: "submissions",
		Outcome:  outcome,
		Severity: auditDomain.SeverityMedium,
		Details: map[string]any{
			"offset": offset,
			"limit":  limit,
			"count":  len(submissions),
		},
	})

	if err != nil {
		return nil, err
	}
	return submissions, nil
}
