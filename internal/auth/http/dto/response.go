package dto

import (
	"time"

	authDomain "github.com/anonymort/whistle/internal/auth/domain"
)

// CSRFTokenResponse carries a token for the caller's session.
type CSRFTokenResponse struct {
	Token string `json:"token"`
}

// LoginResponse describes the session opened by a login. The CSRF token is bound to the new
// session; tokens issued before login no longer verify.
type LoginResponse struct {
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expiresAt"`
	CSRFToken string    `json:"csrfToken"`
}

// MapLoginResponse converts a session into a login response.
func MapLoginResponse(session *authDomain.Session, csrfToken string) LoginResponse {
	return LoginResponse{
		Role:      string(session.Role),
		ExpiresAt: session.ExpiresAt,
		CSRFToken: csrfToken,
	}
}
