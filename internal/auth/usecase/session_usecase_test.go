package usecase

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/anonymort/whistle/internal/audit/domain"
	auditMocks "github.com/anonymort/whistle/internal/audit/usecase/mocks"
	authDomain "github.com/anonymort/whistle/internal/auth/domain"
	authRepository "github.com/anonymort/whistle/internal/auth/repository"
	authService "github.com/anonymort/whistle/internal/auth/service"
	"github.com/anonymort/whistle/internal/database"
	"github.com/anonymort/whistle/internal/testutil"
)

// plainPasswords stands in for Argon2id so tests stay fast.
type plainPasswords struct {
	dummyChecks atomic.Int32
}

func (p *plainPasswords) Hash(password string) (string, error) { return "plain:" + password, nil }

func (p *plainPasswords) Verify(password, hash string) bool {
	if hash == p.DummyHash() {
		p.dummyChecks.Add(1)
		return false
	}
	return hash == "plain:"+password
}

func (p *plainPasswords) DummyHash() string { return "dummy" }

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sessionFixture struct {
	useCase   *sessionUseCase
	accounts  *authRepository.SQLAccountRepository
	sessions  *authRepository.SQLSessionRepository
	passwords *plainPasswords
	ledger    *auditMocks.RecordingLedger
	clock     *testClock
}

func newSessionFixture(t *testing.T, cfg SessionConfig) *sessionFixture {
	t.Helper()

	db := testutil.SetupSQLiteDB(t)
	f := &sessionFixture{
		accounts:  authRepository.NewSQLAccountRepository(db, database.SQLite),
		sessions:  authRepository.NewSQLSessionRepository(db, database.SQLite),
		passwords: &plainPasswords{},
		ledger:    &auditMocks.RecordingLedger{},
		clock:     &testClock{now: time.Now().UTC().Truncate(time.Second)},
	}
	if cfg.TTL == 0 {
		cfg.TTL = 30 * time.Minute
	}

	f.useCase = NewSessionUseCase(
		cfg,
		f.accounts,
		f.sessions,
		f.passwords,
		authService.NewSessionTokenService(),
		authService.NewCSRFService(),
		authService.NewTOTPService(),
		f.ledger,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	).(*sessionUseCase)
	f.useCase.now = f.clock.Now
	return f
}

func (f *sessionFixture) addAccount(t *testing.T, username string, role authDomain.Role, totpSecret string) *authDomain.Account {
	t.Helper()
	account := &authDomain.Account{
		ID:           uuid.Must(uuid.NewV7()),
		Username:     username,
		Role:         role,
		PasswordHash: "plain:Correct-Horse-42!",
		TOTPSecret:   totpSecret,
		IsActive:     true,
		CreatedAt:    f.clock.Now(),
	}
	require.NoError(t, f.accounts.Create(context.Background(), account))
	return account
}

func TestSessionUseCase_Login(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t, SessionConfig{})
	admin := f.addAccount(t, "alice", authDomain.RoleAdmin, "")

	t.Run("success opens a session", func(t *testing.T) {
		output, err := f.useCase.Login(ctx, &authDomain.LoginInput{
			Username: "alice",
			Password: "Correct-Horse-42!",
			Role:     authDomain.RoleAdmin,
		})
		require.NoError(t, err)
		require.NotEmpty(t, output.Token)
		assert.Equal(t, authDomain.RoleAdmin, output.Session.Role)
		assert.Equal(t, admin.ID, *output.Session.AccountID)
		assert.True(t, f.clock.Now().Add(30*time.Minute).Equal(output.Session.ExpiresAt))

		session, err := f.useCase.Authenticate(ctx, output.Token)
		require.NoError(t, err)
		assert.Equal(t, output.Session.ID, session.ID)

		entries := f.ledger.ByAction(auditDomain.ActionLogin)
		require.NotEmpty(t, entries)
		last := entries[len(entries)-1]
		assert.Equal(t, auditDomain.OutcomeSuccess, last.Outcome)
		assert.Equal(t, admin.ID.String(), last.ActorID)
	})

	failures := []struct {
		name   string
		input  authDomain.LoginInput
		reason string
	}{
		{
			name:   "unknown account",
			input:  authDomain.LoginInput{Username: "mallory", Password: "x", Role: authDomain.RoleAdmin},
			reason: "unknown_account",
		},
		{
			name:   "bad password",
			input:  authDomain.LoginInput{Username: "alice", Password: "wrong", Role: authDomain.RoleAdmin},
			reason: "bad_password",
		},
		{
			name:   "role mismatch",
			input:  authDomain.LoginInput{Username: "alice", Password: "Correct-Horse-42!", Role: authDomain.RoleInvestigator},
			reason: "role_mismatch",
		},
	}

	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			before := len(f.ledger.ByAction(auditDomain.ActionLogin))

			output, err := f.useCase.Login(ctx, &tt.input)
			assert.Nil(t, output)
			assert.ErrorIs(t, err, authDomain.ErrInvalidCredentials)

			entries := f.ledger.ByAction(auditDomain.ActionLogin)
			require.Len(t, entries, before+1)
			last := entries[len(entries)-1]
			assert.Equal(t, auditDomain.OutcomeFailure, last.Outcome)
			assert.Equal(t, auditDomain.SeverityHigh, last.Severity)
			assert.Equal(t, tt.reason, last.Details["reason"])
		})
	}

	t.Run("unknown account still costs a hash verification", func(t *testing.T) {
		before := f.passwords.dummyChecks.Load()
		_, err := f.useCase.Login(ctx, &authDomain.LoginInput{Username: "nobody", Password: "x", Role: authDomain.RoleAdmin})
		assert.ErrorIs(t, err, authDomain.ErrInvalidCredentials)
		assert.Equal(t, before+1, f.passwords.dummyChecks.Load())
	})
}

func TestSessionUseCase_LoginInactiveAccount(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t, SessionConfig{})

	account := &authDomain.Account{
		ID:           uuid.Must(uuid.NewV7()),
		Username:     "erin",
		Role:         authDomain.RoleInvestigator,
		PasswordHash: "plain:Correct-Horse-42!",
		IsActive:     false,
		CreatedAt:    f.clock.Now(),
	}
	require.NoError(t, f.accounts.Create(ctx, account))

	_, err := f.useCase.Login(ctx, &authDomain.LoginInput{
		Username: "erin",
		Password: "Correct-Horse-42!",
		Role:     authDomain.RoleInvestigator,
	})
	assert.ErrorIs(t, err, authDomain.ErrInvalidCredentials)

	entries := f.ledger.ByAction(auditDomain.ActionLogin)
	require.Len(t, entries, 1)
	assert.Equal(t, "inactive_account", entries[0].Details["reason"])
}

func TestSessionUseCase_LoginWithTOTP(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t, SessionConfig{})

	secret, _, err := authService.NewTOTPService().Generate("frank")
	require.NoError(t, err)
	f.addAccount(t, "frank", authDomain.RoleInvestigator, secret)

	input := &authDomain.LoginInput{Username: "frank", Password: "Correct-Horse-42!", Role: authDomain.RoleInvestigator}

	_, err = f.useCase.Login(ctx, input)
	assert.ErrorIs(t, err, authDomain.ErrInvalidCredentials, "missing code")

	input.TOTPCode, err = totp.GenerateCode(secret, f.clock.Now())
	require.NoError(t, err)
	output, err := f.useCase.Login(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, authDomain.RoleInvestigator, output.Session.Role)

	f.clock.Advance(10 * time.Minute)
	_, err = f.useCase.Login(ctx, input)
	assert.ErrorIs(t, err, authDomain.ErrInvalidCredentials, "stale code")

	entries := f.ledger.ByAction(auditDomain.ActionLogin)
	require.Len(t, entries, 3)
	assert.Equal(t, "bad_totp", entries[0].Details["reason"])
	assert.Equal(t, auditDomain.OutcomeSuccess, entries[1].Outcome)
	assert.Equal(t, "bad_totp", entries[2].Details["reason"])
}

func TestSessionUseCase_LoginThrottle(t *testing.T) {
	f := newSessionFixture(t, SessionConfig{LoginAttemptsPerSec: 0.001, LoginAttemptsBurst: 1})
	input := &authDomain.LoginInput{Username: "nobody", Password: "x", Role: authDomain.RoleAdmin}

	_, err := f.useCase.Login(context.Background(), input)
	assert.ErrorIs(t, err, authDomain.ErrInvalidCredentials)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = f.useCase.Login(ctx, input)
	require.Error(t, err)
	assert.NotErrorIs(t, err, authDomain.ErrInvalidCredentials)
	assert.Equal(t, int32(1), f.passwords.dummyChecks.Load())
}

func TestSessionUseCase_RollingExpiry(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t, SessionConfig{TTL: 30 * time.Minute})

	output, err := f.useCase.StartReporterSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, authDomain.RoleReporter, output.Session.Role)
	assert.Nil(t, output.Session.AccountID)
	assert.Equal(t, auditDomain.ActorAnonymous, output.Session.Actor())

	for range 3 {
		f.clock.Advance(20 * time.Minute)
		session, err := f.useCase.Authenticate(ctx, output.Token)
		require.NoError(t, err, "activity renews the idle timeout")
		assert.True(t, f.clock.Now().Add(30*time.Minute).Equal(session.ExpiresAt))
	}

	f.clock.Advance(30 * time.Minute)
	_, err = f.useCase.Authenticate(ctx, output.Token)
	assert.ErrorIs(t, err, authDomain.ErrSessionExpired)

	_, err = f.sessions.Get(ctx, output.Session.ID)
	assert.ErrorIs(t, err, authDomain.ErrSessionNotFound, "expired sessions are removed")

	_, err = f.useCase.Authenticate(ctx, "")
	assert.ErrorIs(t, err, authDomain.ErrSessionNotFound)
	_, err = f.useCase.Authenticate(ctx, "forged-token")
	assert.ErrorIs(t, err, authDomain.ErrSessionNotFound)
}

func TestSessionUseCase_CSRF(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t, SessionConfig{})

	first, err := f.useCase.StartReporterSession(ctx)
	require.NoError(t, err)
	second, err := f.useCase.StartReporterSession(ctx)
	require.NoError(t, err)

	token, err := f.useCase.IssueCSRFToken(ctx, first.Session)
	require.NoError(t, err)

	t.Run("verifies for the issuing session", func(t *testing.T) {
		session, err := f.useCase.Authenticate(ctx, first.Token)
		require.NoError(t, err)
		assert.True(t, f.useCase.VerifyCSRFToken(session, token))
	})

	t.Run("rejects for another session", func(t *testing.T) {
		_, err := f.useCase.IssueCSRFToken(ctx, second.Session)
		require.NoError(t, err)
		assert.False(t, f.useCase.VerifyCSRFToken(second.Session, token))
	})

	t.Run("rejects a session without secret", func(t *testing.T) {
		fresh, err := f.useCase.StartReporterSession(ctx)
		require.NoError(t, err)
		assert.False(t, f.useCase.VerifyCSRFToken(fresh.Session, token))
		assert.False(t, f.useCase.VerifyCSRFToken(nil, token))
	})

	t.Run("concurrent first issue agrees on one secret", func(t *testing.T) {
		fresh, err := f.useCase.StartReporterSession(ctx)
		require.NoError(t, err)

		const workers = 8
		tokens := make([]string, workers)
		var wg sync.WaitGroup
		for i := range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				copied := *fresh.Session
				tokens[i], _ = f.useCase.IssueCSRFToken(ctx, &copied)
			}()
		}
		wg.Wait()

		stored, err := f.sessions.Get(ctx, fresh.Session.ID)
		require.NoError(t, err)
		require.Len(t, stored.CSRFSecret, 32)
		for _, issued := range tokens {
			assert.True(t, f.useCase.VerifyCSRFToken(stored, issued))
		}
	})
}

func TestSessionUseCase_LogoutAndCleanup(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t, SessionConfig{TTL: time.Minute})
	f.addAccount(t, "alice", authDomain.RoleAdmin, "")

	output, err := f.useCase.Login(ctx, &authDomain.LoginInput{
		Username: "alice",
		Password: "Correct-Horse-42!",
		Role:     authDomain.RoleAdmin,
	})
	require.NoError(t, err)

	require.NoError(t, f.useCase.Logout(ctx, output.Session))
	_, err = f.useCase.Authenticate(ctx, output.Token)
	assert.ErrorIs(t, err, authDomain.ErrSessionNotFound)

	logout := f.ledger.ByAction(auditDomain.ActionLogout)
	require.Len(t, logout, 1)
	assert.Equal(t, output.Session.Actor(), logout[0].ActorID)

	_, err = f.useCase.StartReporterSession(ctx)
	require.NoError(t, err)
	_, err = f.useCase.StartReporterSession(ctx)
	require.NoError(t, err)

	deleted, err := f.useCase.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, deleted)

	f.clock.Advance(2 * time.Minute)
	deleted, err = f.useCase.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
}
