// Package usecase implements submission intake and the investigator listing.
package usecase

import (
	"context"
	"time"

	scannerDomain "github.com/anonymort/whistle/internal/scanner/domain"
	submissionDomain "github.com/anonymort/whistle/internal/submission/domain"
)

// SubmissionRepository defines persistence operations for submissions.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *submissionDomain.Submission) error

	// GetByReference returns ErrSubmissionNotFound when no submission matches.
	GetByReference(ctx context.Context, reference string) (*submissionDomain.Submission, error)

	// List returns submissions newest first.
	List(ctx context.Context, offset, limit int) ([]*submissionDomain.Submission, error)

	// DeleteSubmittedBefore removes submissions submitted strictly before cutoff.
	DeleteSubmittedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// FileScanner checks plaintext uploads before they are sealed.
type FileScanner interface {
	Scan(filename, declaredMIME string, data []byte) (scannerDomain.ScanResult, error)
}

// SubmissionUseCase accepts reporter submissions and serves them to reviewers.
type SubmissionUseCase interface {
	// Submit checks the envelopes, scans and seals a plaintext file, stores the submission and
	// sends the optional contact notification. No plaintext outlives the call.
	Submit(ctx context.Context, input *submissionDomain.CreateSubmissionInput) (*submissionDomain.Submission, error)

	// Reject records an intake refused before it reached Submit.
	Reject(ctx context.Context, reason string)

	// List returns stored envelopes newest first. Every call is audited.
	List(ctx context.Context, offset, limit int) ([]*submissionDomain.Submission, error)
}
