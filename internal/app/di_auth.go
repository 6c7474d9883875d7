package app

import (
	"fmt"

	authHTTP "github.com/anonymort/whistle/internal/auth/http"
	authRepository "github.com/anonymort/whistle/internal/auth/repository"
	authService "github.com/anonymort/whistle/internal/auth/service"
	authUseCase "github.com/anonymort/whistle/internal/auth/usecase"
)

// PasswordService returns the argon2id password service.
func (c *Container) PasswordService() (authService.PasswordService, error) {
	return lazy(c, &c.passwordServiceInit, "passwordService", &c.passwordService, authService.NewPasswordService)
}

// AccountRepository returns the reviewer account repository.
func (c *Container) AccountRepository() (authUseCase.AccountRepository, error) {
	return lazy(c, &c.accountRepositoryInit, "accountRepository", &c.accountRepository, c.initAccountRepository)
}

// SessionRepository returns the session repository.
func (c *Container) SessionRepository() (authUseCase.SessionRepository, error) {
	return lazy(c, &c.sessionRepositoryInit, "sessionRepository", &c.sessionRepository, c.initSessionRepository)
}

// SessionUseCase returns the session authority.
func (c *Container) SessionUseCase() (authUseCase.SessionUseCase, error) {
	return lazy(c, &c.sessionUseCaseInit, "sessionUseCase", &c.sessionUseCase, c.initSessionUseCase)
}

// AccountUseCase returns the account use case.
func (c *Container) AccountUseCase() (authUseCase.AccountUseCase, error) {
	return lazy(c, &c.accountUseCaseInit, "accountUseCase", &c.accountUseCase, c.initAccountUseCase)
}

// SessionHandler returns the HTTP handler for CSRF tokens, login and logout.
func (c *Container) SessionHandler() (*authHTTP.SessionHandler, error) {
	return lazy(c, &c.sessionHandlerInit, "sessionHandler", &c.sessionHandler, c.initSessionHandler)
}

// SessionCookie returns the session cookie settings.
func (c *Container) SessionCookie() authHTTP.SessionCookie {
	return authHTTP.SessionCookie{
		Name:   c.config.SessionCookieName,
		TTL:    c.config.SessionTTL,
		Secure: c.config.IsProduction(),
	}
}

// initAccountRepository creates the account repository.
func (c *Container) initAccountRepository() (authUseCase.AccountRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for account repository: %w", err)
	}
	dialect, err := c.Dialect()
	if err != nil {
		return nil, err
	}
	return authRepository.NewSQLAccountRepository(db, dialect), nil
}

// initSessionRepository creates the session repository.
func (c *Container) initSessionRepository() (authUseCase.SessionRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for session repository: %w", err)
	}
	dialect, err := c.Dialect()
	if err != nil {
		return nil, err
	}
	return authRepository.NewSQLSessionRepository(db, dialect), nil
}

// initSessionUseCase creates the session authority with all its dependencies.
func (c *Container) initSessionUseCase() (authUseCase.SessionUseCase, error) {
	accountRepo, err := c.AccountRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get account repository for session use case: %w", err)
	}

	sessionRepo, err := c.SessionRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get session repository for session use case: %w", err)
	}

	passwordService, err := c.PasswordService()
	if err != nil {
		return nil, fmt.Errorf("failed to get password service for session use case: %w", err)
	}

	ledger, err := c.AuditLogUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit ledger for session use case: %w", err)
	}

	baseUseCase := authUseCase.NewSessionUseCase(
		authUseCase.SessionConfig{
			TTL:                 c.config.SessionTTL,
			LoginAttemptsPerSec: c.config.LoginAttemptsPerSec,
			LoginAttemptsBurst:  c.config.LoginAttemptsBurst,
		},
		accountRepo,
		sessionRepo,
		passwordService,
		authService.NewSessionTokenService(),
		authService.NewCSRFService(),
		authService.NewTOTPService(),
		ledger,
		c.Logger(),
	)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for session use case: %w", err)
		}
		return authUseCase.NewSessionUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

// initAccountUseCase creates the account use case with all its dependencies.
func (c *Container) initAccountUseCase() (authUseCase.AccountUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for account use case: %w", err)
	}

	accountRepo, err := c.AccountRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get account repository for account use case: %w", err)
	}

	passwordService, err := c.PasswordService()
	if err != nil {
		return nil, fmt.Errorf("failed to get password service for account use case: %w", err)
	}

	ledger, err := c.AuditLogUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit ledger for account use case: %w", err)
	}

	return authUseCase.NewAccountUseCase(
		txManager,
		accountRepo,
		passwordService,
		authService.NewTOTPService(),
		ledger,
	), nil
}

// initSessionHandler creates the session HTTP handler.
func (c *Container) initSessionHandler() (*authHTTP.SessionHandler, error) {
	sessionUseCase, err := c.SessionUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get session use case for session handler: %w", err)
	}
	return authHTTP.NewSessionHandler(sessionUseCase, c.SessionCookie(), c.Logger()), nil
}
