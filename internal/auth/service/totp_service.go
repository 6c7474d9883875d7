package service

import (
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	apperrors "github.com/anonymort/whistle/internal/errors"
)

const totpIssuer = "Whistle"

// totpService implements TOTPService with RFC 6238 defaults: six digits, 30 second period,
// one step of clock skew.
type totpService struct {
	opts totp.ValidateOpts
}

// NewTOTPService creates a new TOTPService.
func NewTOTPService() TOTPService {
	return &totpService{
		opts: totp.ValidateOpts{
			Period:    30,
			Skew:      1,
			Digits:    otp.DigitsSix,
			Algorithm: otp.AlgorithmSHA1,
		},
	}
}

func (s *totpService) Generate(accountName string) (string, string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: accountName,
	})
	if err != nil {
		return "", "", apperrors.Wrap(err, "failed to generate totp secret")
	}
	return key.Secret(), key.URL(), nil
}

func (s *totpService) Validate(code, secret string, at time.Time) bool {
	ok, err := totp.ValidateCustom(code, secret, at.UTC(), s.opts)
	if err != nil {
		return false
	}
	return ok
}
