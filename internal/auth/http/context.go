// Package http provides the session, role and CSRF middleware and the session endpoints.
package http

import (
	"context"

	authDomain "github.com/anonymort/whistle/internal/auth/domain"
)

type sessionKey struct{}

// WithSession stores the authenticated session in ctx.
func WithSession(ctx context.Context, session *authDomain.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

// GetSession retrieves the session stored by SessionMiddleware.
func GetSession(ctx context.Context) (*authDomain.Session, bool) {
	session, ok := ctx.Value(sessionKey{}).(*authDomain.Session)
	return session, ok && session != nil
}
