// Package dto provides data transfer objects for session endpoints.
package dto

import (
	"strings"

	validation "github.com/jellydator/validation"

	customValidation "github.com/anonymort/whistle/internal/validation"
)

// LoginRequest is the body of the reviewer login endpoints. Either username or email names
// the account.
type LoginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	TOTP     string `json:"totp"`
}

// Validate checks the request shape.
func (r *LoginRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Username,
			validation.When(r.Email == "", validation.Required),
			validation.When(r.Username != "", validation.By(func(value any) error {
				return customValidation.Username.Validate(strings.ToLower(value.(string)))
			})),
		),
		validation.Field(&r.Email, customValidation.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(1, 1024)),
		validation.Field(&r.TOTP, customValidation.TOTPCode),
	)
}

// Identifier returns the normalized account name.
func (r *LoginRequest) Identifier() string {
	if r.Username != "" {
		return strings.ToLower(strings.TrimSpace(r.Username))
	}
	return strings.ToLower(strings.TrimSpace(r.Email))
}
