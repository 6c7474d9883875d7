package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	auditDomain "github.com/anonymort/whistle/internal/audit/domain"
	auditUseCase "github.com/anonymort/whistle/internal/audit/usecase"
	authDomain "github.com/anonymort/whistle/internal/auth/domain"
	authService "github.com/anonymort/whistle/internal/auth/service"
	"github.com/anonymort/whistle/internal/database"
	customValidation "github.com/anonymort/whistle/internal/validation"
)

// accountUseCase implements AccountUseCase.
type accountUseCase struct {
	txManager       database.TxManager
	accountRepo     AccountRepository
	passwordService authService.PasswordService
	totpService     authService.TOTPService
	ledger          auditUseCase.Ledger
}

// NewAccountUseCase creates a new AccountUseCase.
func NewAccountUseCase(
	txManager database.TxManager,
	accountRepo AccountRepository,
	passwordService authService.PasswordService,
	totpService authService.TOTPService,
	ledger auditUseCase.Ledger,
) AccountUseCase {
	return &accountUseCase{
		txManager:       txManager,
		accountRepo:     accountRepo,
		passwordService: passwordService,
		totpService:     totpService,
		ledger:          ledger,
	}
}

// Create hashes the password, optionally provisions a TOTP secret and stores the account.
// Usernames are unique and passwords must satisfy customValidation.ReviewerPassword.
func (a *accountUseCase) Create(
	ctx context.Context,
	input *authDomain.CreateAccountInput,
) (*authDomain.CreateAccountOutput, error) {
	role, err := authDomain.ParseRole(string(input.Role))
	if err != nil {
		return nil, err
	}
	err = validation.ValidateStruct(input,
		validation.Field(&input.Username, validation.Required, customValidation.Username),
		validation.Field(&input.Password, validation.Required, customValidation.ReviewerPassword),
	)
	if err != nil {
		return nil, customValidation.WrapValidationError(err)
	}

	passwordHash, err := a.passwordService.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	account := &authDomain.Account{
		ID:           uuid.Must(uuid.NewV7()),
		Username:     input.Username,
		Role:         role,
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}

	output := &authDomain.CreateAccountOutput{ID: account.ID}
	if input.EnableTOTP {
		account.TOTPSecret, output.TOTPURL, err = a.totpService.Generate(input.Username)
		if err != nil {
			return nil, err
		}
	}

	err = a.txManager.WithTx(ctx, func(ctx context.Context) error {
		_, err := a.accountRepo.GetByUsername(ctx, account.Username)
		switch {
		case err == nil:
			return authDomain.ErrAccountAlreadyExists
		case !errors.Is(err, authDomain.ErrAccountNotFound):
			return err
		}
		return a.accountRepo.Create(ctx, account)
	})
	if err != nil {
		return nil, err
	}

	a.ledger.Record(ctx, &auditDomain.Entry{
		Action:   auditDomain.ActionAccountCreate,
		Resource: "account:" + account.ID.String(),
		Outcome:  auditDomain.OutcomeSuccess,
		Severity: auditDomain.SeverityMedium,
		Details: map[string]any{
			"username": account.Username,
			"role":     string(account.Role),
			"totp":     input.EnableTOTP,
		},
	})

	return output, nil
}
