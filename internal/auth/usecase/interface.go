// Package usecase implements reviewer logins, browser sessions and CSRF tokens.
package usecase

import (
	"context"
	"time"

	authDomain "github.com/anonymort/whistle/internal/auth/domain"
)

// AccountRepository defines persistence operations for reviewer accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *authDomain.Account) error

	// GetByUsername returns ErrAccountNotFound when no account matches.
	GetByUsername(ctx context.Context, username string) (*authDomain.Account, error)
}

// SessionRepository defines persistence operations for sessions.
// Implementations must support transaction-aware operations via context propagation.
type SessionRepository interface {
	Create(ctx context.Context, session *authDomain.Session) error

	// Get returns ErrSessionNotFound when no session matches.
	Get(ctx context.Context, id string) (*authDomain.Session, error)

	// Touch records activity and pushes the expiry forward.
	Touch(ctx context.Context, id string, lastSeenAt, expiresAt time.Time) error

	// SetCSRFSecret stores secret only if the session has none yet. It reports whether this
	// call's secret was stored.
	SetCSRFSecret(ctx context.Context, id string, secret []byte) (bool, error)

	Delete(ctx context.Context, id string) error

	// DeleteExpired removes sessions whose expiry is not after now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// SessionUseCase is the session authority: it logs reviewers in, resolves cookies to sessions
// and guards state changing requests with CSRF tokens.
type SessionUseCase interface {
	// Login verifies credentials and an optional TOTP code and opens a session with the role
	// the login endpoint grants. Every failure returns ErrInvalidCredentials.
	Login(ctx context.Context, input *authDomain.LoginInput) (*authDomain.LoginOutput, error)

	// Authenticate resolves a cookie token and renews the session's idle timeout.
	Authenticate(ctx context.Context, plainToken string) (*authDomain.Session, error)

	// StartReporterSession opens an anonymous session for the intake form.
	StartReporterSession(ctx context.Context) (*authDomain.LoginOutput, error)

	Logout(ctx context.Context, session *authDomain.Session) error

	// IssueCSRFToken creates the session's CSRF secret on first use and signs a fresh token.
	IssueCSRFToken(ctx context.Context, session *authDomain.Session) (string, error)

	// VerifyCSRFToken checks token against the session's own secret.
	VerifyCSRFToken(session *authDomain.Session, token string) bool

	// DeleteExpired purges sessions past their expiry and returns how many were removed.
	DeleteExpired(ctx context.Context) (int64, error)
}

// AccountUseCase manages reviewer accounts.
type AccountUseCase interface {
	Create(ctx context.Context, input *authDomain.CreateAccountInput) (*authDomain.CreateAccountOutput, error)
}
