package usecase

import (
	"context"
	"time"

	authDomain "github.com/anonymort/whistle/internal/auth/domain"
	"github.com/anonymort/whistle/internal/metrics"
)

// sessionUseCaseWithMetrics decorates SessionUseCase with metrics instrumentation.
type sessionUseCaseWithMetrics struct {
	next    SessionUseCase
	metrics metrics.BusinessMetrics
}

// NewSessionUseCaseWithMetrics wraps a SessionUseCase with metrics recording.
func NewSessionUseCaseWithMetrics(useCase SessionUseCase, m metrics.BusinessMetrics) SessionUseCase {
	return &sessionUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (s *sessionUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordOperation(ctx, "auth", operation, status)
	s.metrics.RecordDuration(ctx, "auth", operation, time.Since(start), status)
}

// Login records metrics for login attempts. Failed logins also count as security events.
func (s *sessionUseCaseWithMetrics) Login(
	ctx context.Context,
	input *authDomain.LoginInput,
) (*authDomain.LoginOutput, error) {
	start := time.Now()
	output, err := s.next.Login(ctx, input)
	s.record(ctx, "login", start, err)
	if err != nil {
		s.metrics.RecordSecurityEvent(ctx, "login_failed", string(input.Role))
	}
	return output, err
}

func (s *sessionUseCaseWithMetrics) Authenticate(ctx context.Context, plainToken string) (*authDomain.Session, error) {
	start := time.Now()
	session, err := s.next.Authenticate(ctx, plainToken)
	s.record(ctx, "authenticate", start, err)
	return session, err
}

func (s *sessionUseCaseWithMetrics) StartReporterSession(ctx context.Context) (*authDomain.LoginOutput, error) {
	start := time.Now()
	output, err := s.next.StartReporterSession(ctx)
	s.record(ctx, "reporter_session", start, err)
	return output, err
}

func (s *sessionUseCaseWithMetrics) Logout(ctx context.Context, session *authDomain.Session) error {
	start := time.Now()
	err := s.next.Logout(ctx, session)
	s.record(ctx, "logout", start, err)
	return err
}

func (s *sessionUseCaseWithMetrics) IssueCSRFToken(ctx context.Context, session *authDomain.Session) (string, error) {
	start := time.Now()
	token, err := s.next.IssueCSRFToken(ctx, session)
	s.record(ctx, "csrf_issue", start, err)
	return token, err
}

// VerifyCSRFToken is not instrumented here; rejections are counted by the CSRF middleware.
func (s *sessionUseCaseWithMetrics) VerifyCSRFToken(session *authDomain.Session, token string) bool {
	return s.next.VerifyCSRFToken(session, token)
}

func (s *sessionUseCaseWithMetrics) DeleteExpired(ctx context.Context) (int64, error) {
	start := time.Now()
	deleted, err := s.next.DeleteExpired(ctx)
	s.record(ctx, "session_cleanup", start, err)
	return deleted, err
}
