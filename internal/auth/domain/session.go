package domain

import (
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/anonymort/whistle/internal/audit/domain"
)

// Session is a server side browser session. ID is the SHA-256 of the cookie token, so a
// leaked sessions table cannot be replayed.
type Session struct {
	ID         string
	AccountID  *uuid.UUID
	Role       Role
	CSRFSecret []byte
	IssuedAt   time.Time
	ExpiresAt  time.Time
	LastSeenAt time.Time
}

// Expired reports whether the session can no longer be used at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Actor is the identity audit entries recorded on behalf of this session carry.
func (s *Session) Actor() string {
	if s.AccountID == nil {
		return auditDomain.ActorAnonymous
	}
	return s.AccountID.String()
}

// HasRole reports whether the session holds one of roles.
func (s *Session) HasRole(roles ...Role) bool {
	for _, role := range roles {
		if s.Role == role {
			return true
		}
	}
	return false
}

// LoginInput carries the credentials submitted to a login endpoint. Role is the role the
// endpoint grants; accounts with another role are refused.
type LoginInput struct {
	Username string
	Password string
	TOTPCode string
	Role     Role
}

// LoginOutput is the freshly issued session together with the plain cookie token.
type LoginOutput struct {
	Session *Session
	Token   string
}
