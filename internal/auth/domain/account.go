// Package domain defines reviewer accounts and browser sessions.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is the authorization level attached to a session.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleInvestigator Role = "investigator"
	// RoleReporter marks the anonymous session handed out to the intake form. It carries a CSRF
	// secret but no account.
	RoleReporter Role = "reporter"
)

// ParseRole validates a reviewer role name. Reporter sessions are never created from input.
func ParseRole(name string) (Role, error) {
	switch Role(name) {
	case RoleAdmin, RoleInvestigator:
		return Role(name), nil
	default:
		return "", ErrInvalidRole
	}
}

// Account is a reviewer credential record.
type Account struct {
	ID           uuid.UUID
	Username     string
	Role         Role
	PasswordHash string
	TOTPSecret   string
	IsActive     bool
	CreatedAt    time.Time
}

// HasTOTP reports whether logins must present a second factor.
func (a *Account) HasTOTP() bool {
	return a.TOTPSecret != ""
}

// CreateAccountInput contains the parameters for creating a reviewer account.
type CreateAccountInput struct {
	Username   string
	Role       Role
	Password   string
	EnableTOTP bool
}

// CreateAccountOutput is returned once at creation. TOTPURL is the provisioning URI for
// authenticator apps and is empty when TOTP was not requested.
type CreateAccountOutput struct {
	ID      uuid.UUID
	TOTPURL string
}
