package usecase

import (
	"context"
	"errors"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	auditDomain "github.com/anonymort/whistle/internal/audit/domain"
	auditUseCase "github.com/anonymort/whistle/internal/audit/usecase"
	authDomain "github.com/anonymort/whistle/internal/auth/domain"
	authService "github.com/anonymort/whistle/internal/auth/service"
	apperrors "github.com/anonymort/whistle/internal/errors"
)

const csrfLockStripes = 64

// SessionConfig carries the session settings taken from configuration.
type SessionConfig struct {
	TTL time.Duration
	// LoginAttemptsPerSec and LoginAttemptsBurst bound password hash verifications across the
	// whole process.
	LoginAttemptsPerSec float64
	LoginAttemptsBurst  int
}

// sessionUseCase implements SessionUseCase.
type sessionUseCase struct {
	accountRepo     AccountRepository
	sessionRepo     SessionRepository
	passwordService authService.PasswordService
	tokenService    authService.SessionTokenService
	csrfService     authService.CSRFService
	totpService     authService.TOTPService
	ledger          auditUseCase.Ledger
	logger          *slog.Logger
	ttl             time.Duration
	throttle        *rate.Limiter
	csrfLocks       [csrfLockStripes]sync.Mutex
	now             func() time.Time
}

// NewSessionUseCase creates the session authority.
func NewSessionUseCase(
	cfg SessionConfig,
	accountRepo AccountRepository,
	sessionRepo SessionRepository,
	passwordService authService.PasswordService,
	tokenService authService.SessionTokenService,
	csrfService authService.CSRFService,
	totpService authService.TOTPService,
	ledger auditUseCase.Ledger,
	logger *slog.Logger,
) SessionUseCase {
	limit := rate.Limit(cfg.LoginAttemptsPerSec)
	if cfg.LoginAttemptsPerSec <= 0 {
		limit = rate.Inf
	}
	burst := cfg.LoginAttemptsBurst
	if burst < 1 {
		burst = 1
	}

	return &sessionUseCase{
		accountRepo:     accountRepo,
		sessionRepo:     sessionRepo,
		passwordService: passwordService,
		tokenService:    tokenService,
		csrfService:     csrfService,
		totpService:     totpService,
		ledger:          ledger,
		logger:          logger,
		ttl:             cfg.TTL,
		throttle:        rate.NewLimiter(limit, burst),
		now:             time.Now,
	}
}

// Login verifies the credentials and opens a session.
//
// Unknown usernames are verified against a dummy hash and inactive accounts, role mismatches
// and TOTP failures are only checked after the password, so every failure costs one Argon2id
// verification and returns the same error.
func (s *sessionUseCase) Login(
	ctx context.Context,
	input *authDomain.LoginInput,
) (*authDomain.LoginOutput, error) {
	if err := s.throttle.Wait(ctx); err != nil {
		return nil, apperrors.Wrap(err, "login throttled")
	}

	account, err := s.accountRepo.GetByUsername(ctx, input.Username)
	if err != nil {
		if !errors.Is(err, authDomain.ErrAccountNotFound) {
			return nil, err
		}
		s.passwordService.Verify(input.Password, s.passwordService.DummyHash())
		return nil, s.loginFailed(ctx, input, "unknown_account")
	}

	if !s.passwordService.Verify(input.Password, account.PasswordHash) {
		return nil, s.loginFailed(ctx, input, "bad_password")
	}
	if !account.IsActive {
		return nil, s.loginFailed(ctx, input, "inactive_account")
	}
	if account.Role != input.Role {
		return nil, s.loginFailed(ctx, input, "role_mismatch")
	}
	if account.HasTOTP() && !s.totpService.Validate(input.TOTPCode, account.TOTPSecret, s.now()) {
		return nil, s.loginFailed(ctx, input, "bad_totp")
	}

	accountID := account.ID
	output, err := s.openSession(ctx, &accountID, account.Role)
	if err != nil {
		return nil, err
	}

	s.ledger.Record(ctx, &auditDomain.Entry{
		ActorID:  accountID.String(),
		Action:   auditDomain.ActionLogin,
		Resource: "session",
		Outcome:  auditDomain.OutcomeSuccess,
		Severity: auditDomain.SeverityMedium,
		Details:  map[string]any{"username": account.Username, "role": string(account.Role)},
	})

	return output, nil
}

func (s *sessionUseCase) loginFailed(ctx context.Context, input *authDomain.LoginInput, reason string) error {
	s.ledger.Record(ctx, &auditDomain.Entry{
		ActorID:  auditDomain.ActorAnonymous,
		Action:   auditDomain.ActionLogin,
		Resource: "session",
		Outcome:  auditDomain.OutcomeFailure,
		Severity: auditDomain.SeverityHigh,
		Details: map[string]any{
			"username": input.Username,
			"role":     string(input.Role),
			"reason":   reason,
		},
	})
	return authDomain.ErrInvalidCredentials
}

func (s *sessionUseCase) openSession(
	ctx context.Context,
	accountID *uuid.UUID,
	role authDomain.Role,
) (*authDomain.LoginOutput, error) {
	plainToken, sessionID, err := s.tokenService.GenerateToken()
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	session := &authDomain.Session{
		ID:         sessionID,
		AccountID:  accountID,
		Role:       role,
		IssuedAt:   now,
		ExpiresAt:  now.Add(s.ttl),
		LastSeenAt: now,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}

	return &authDomain.LoginOutput{Session: session, Token: plainToken}, nil
}

// Authenticate resolves the token. Expired sessions are deleted on sight.
func (s *sessionUseCase) Authenticate(ctx context.Context, plainToken string) (*authDomain.Session, error) {
	if plainToken == "" {
		return nil, authDomain.ErrSessionNotFound
	}

	session, err := s.sessionRepo.Get(ctx, s.tokenService.SessionID(plainToken))
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if session.Expired(now) {
		if err := s.sessionRepo.Delete(ctx, session.ID); err != nil && !errors.Is(err, authDomain.ErrSessionNotFound) {
			s.logger.Warn("failed to delete expired session", slog.Any("error", err))
		}
		return nil, authDomain.ErrSessionExpired
	}

	session.LastSeenAt = now
	session.ExpiresAt = now.Add(s.ttl)
	if err := s.sessionRepo.Touch(ctx, session.ID, session.LastSeenAt, session.ExpiresAt); err != nil {
		return nil, err
	}

	return session, nil
}

func (s *sessionUseCase) StartReporterSession(ctx context.Context) (*authDomain.LoginOutput, error) {
	return s.openSession(ctx, nil, authDomain.RoleReporter)
}

func (s *sessionUseCase) Logout(ctx context.Context, session *authDomain.Session) error {
	if err := s.sessionRepo.Delete(ctx, session.ID); err != nil {
		return err
	}

	s.ledger.Record(ctx, &auditDomain.Entry{
		ActorID:  session.Actor(),
		Action:   auditDomain.ActionLogout,
		Resource: "session",
		Outcome:  auditDomain.OutcomeSuccess,
		Severity: auditDomain.SeverityLow,
	})
	return nil
}

// IssueCSRFToken lazily initializes the CSRF secret. Concurrent first calls for one session
// are serialized in process, and the conditional update lets exactly one writer win across
// processes; losers adopt the stored secret.
func (s *sessionUseCase) IssueCSRFToken(ctx context.Context, session *authDomain.Session) (string, error) {
	if len(session.CSRFSecret) == 0 {
		if err := s.initCSRFSecret(ctx, session); err != nil {
			return "", err
		}
	}
	return s.csrfService.IssueToken(session.CSRFSecret)
}

func (s *sessionUseCase) initCSRFSecret(ctx context.Context, session *authDomain.Session) error {
	secret, err := s.csrfService.NewSecret()
	if err != nil {
		return err
	}

	lock := s.csrfLock(session.ID)
	lock.Lock()
	defer lock.Unlock()

	stored, err := s.sessionRepo.SetCSRFSecret(ctx, session.ID, secret)
	if err != nil {
		return err
	}
	if stored {
		session.CSRFSecret = secret
		return nil
	}

	current, err := s.sessionRepo.Get(ctx, session.ID)
	if err != nil {
		return err
	}
	session.CSRFSecret = current.CSRFSecret
	return nil
}

func (s *sessionUseCase) csrfLock(sessionID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return &s.csrfLocks[h.Sum32()%csrfLockStripes]
}

func (s *sessionUseCase) VerifyCSRFToken(session *authDomain.Session, token string) bool {
	if session == nil {
		return false
	}
	return s.csrfService.VerifyToken(session.CSRFSecret, token)
}

func (s *sessionUseCase) DeleteExpired(ctx context.Context) (int64, error) {
	return s.sessionRepo.DeleteExpired(ctx, s.now().UTC())
}
