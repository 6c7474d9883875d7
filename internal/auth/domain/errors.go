package domain

import (
	apperrors "github.com/anonymort/whistle/internal/errors"
)

// Authentication and session errors.
var (
	// ErrInvalidCredentials covers unknown users, wrong passwords, bad TOTP codes, inactive
	// accounts and role mismatches alike so logins cannot enumerate accounts.
	ErrInvalidCredentials = apperrors.Wrap(apperrors.ErrUnauthorized, "invalid credentials")

	// ErrSessionNotFound indicates the cookie does not name a live session.
	ErrSessionNotFound = apperrors.Wrap(apperrors.ErrUnauthorized, "session not found")

	// ErrSessionExpired indicates the session idled past its TTL.
	ErrSessionExpired = apperrors.Wrap(apperrors.ErrUnauthorized, "session expired")

	// ErrRoleNotPermitted indicates an authenticated session lacks the required role.
	ErrRoleNotPermitted = apperrors.Wrap(apperrors.ErrForbidden, "role not permitted")

	// ErrInvalidCSRFToken indicates a missing, malformed or foreign CSRF token.
	ErrInvalidCSRFToken = apperrors.Wrap(apperrors.ErrForbidden, "invalid csrf token")

	ErrAccountNotFound      = apperrors.Wrap(apperrors.ErrNotFound, "account not found")
	ErrAccountAlreadyExists = apperrors.Wrap(apperrors.ErrConflict, "account already exists")
	ErrInvalidRole          = apperrors.Wrap(apperrors.ErrInvalidInput, "role must be admin or investigator")
)
