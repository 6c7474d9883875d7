// Package validation holds the jellydator/validation rules shared by request DTOs and use cases.
package validation

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"unicode/utf8"

	validation "github.com/jellydator/validation"

	apperrors "github.com/anonymort/whistle/internal/errors"
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	usernameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9._@\-]{2,63}$`)
	totpCodeRegex = regexp.MustCompile(`^[0-9]{6}$`)
)

// WrapValidationError maps a rule failure onto apperrors.ErrInvalidInput.
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// Passphrase is a length based password policy. Character classes are not
// required; long passphrases made of plain words are accepted.
type Passphrase struct {
	MinLength   int
	MaxLength   int
	MinDistinct int
}

// Validate implements validation.Rule.
func (p Passphrase) Validate(value any) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_passphrase_type", "must be a string")
	}

	n := utf8.RuneCountInString(s)
	if n < p.MinLength {
		return validation.NewError(
			"validation_passphrase_short",
			fmt.Sprintf("must be at least %d characters", p.MinLength),
		)
	}
	if p.MaxLength > 0 && n > p.MaxLength {
		return validation.NewError(
			"validation_passphrase_long",
			fmt.Sprintf("must be at most %d characters", p.MaxLength),
		)
	}

	seen := make(map[rune]struct{}, n)
	for _, r := range s {
		seen[r] = struct{}{}
	}
	if len(seen) < p.MinDistinct {
		return validation.NewError(
			"validation_passphrase_repetitive",
			fmt.Sprintf("must contain at least %d distinct characters", p.MinDistinct),
		)
	}
	return nil
}

// ReviewerPassword is enforced when reviewer accounts are created. The upper
// bound keeps Argon2id input sizes sane.
var ReviewerPassword = Passphrase{MinLength: 12, MaxLength: 256, MinDistinct: 6}

// Email checks the optional reporter contact address.
var Email = validation.NewStringRuleWithError(
	emailRegex.MatchString,
	validation.NewError("validation_email_format", "must be a valid email address"),
)

// Username validates reviewer account names: lowercase, 3 to 64 characters, no spaces.
var Username = validation.NewStringRuleWithError(
	usernameRegex.MatchString,
	validation.NewError("validation_username", "must be 3-64 lowercase letters, digits or ._@-"),
)

// TOTPCode validates a six digit one-time code.
var TOTPCode = validation.NewStringRuleWithError(
	totpCodeRegex.MatchString,
	validation.NewError("validation_totp_code", "must be a 6 digit code"),
)

// Base64 accepts standard padded base64. Empty strings pass so Required decides.
var Base64 = validation.NewStringRuleWithError(
	func(s string) bool {
		_, err := base64.StdEncoding.DecodeString(s)
		return err == nil
	},
	validation.NewError("validation_base64", "must be valid base64-encoded data"),
)
