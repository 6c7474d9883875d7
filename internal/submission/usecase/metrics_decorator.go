package usecase

import (
	"context"
	"time"

	"github.com/anonymort/whistle/internal/metrics"
	submissionDomain "github.com/anonymort/whistle/internal/submission/domain"
)

// submissionUseCaseWithMetrics decorates SubmissionUseCase with metrics instrumentation.
type submissionUseCaseWithMetrics struct {
	next    SubmissionUseCase
	metrics metrics.BusinessMetrics
}

// NewSubmissionUseCaseWithMetrics wraps a SubmissionUseCase with metrics recording.
func NewSubmissionUseCaseWithMetrics(useCase SubmissionUseCase, m metrics.BusinessMetrics) SubmissionUseCase {
	return &submissionUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (s *submissionUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordOperation(ctx, "submission", operation, status)
	s.metrics.RecordDuration(ctx, "submission", operation, time.Since(start), status)
}

// Submit records metrics for intake.
func (s *submissionUseCaseWithMetrics) Submit(
	ctx context.Context,
	input *submissionDomain.CreateSubmissionInput,
) (*submissionDomain.Submission, error) {
	start := time.Now()
	submission, err := s.next.Submit(ctx, input)
	s.record(ctx, "submit", start, err)
	return submission, err
}

// Reject counts the refusal as a security event.
func (s *submissionUseCaseWithMetrics) Reject(ctx context.Context, reason string) {
	s.next.Reject(ctx, reason)
	s.metrics.RecordSecurityEvent(ctx, "submission_reject", reason)
}

// List records metrics for the investigator listing.
func (s *submissionUseCaseWithMetrics) List(
	ctx context.Context,
	offset, limit int,
) ([]*submissionDomain.Submission, error) {
	start := time.Now()
	submissions, err := s.next.List(ctx, offset, limit)
	s.record(ctx, "list", start, err)
	return submissions, err
}
