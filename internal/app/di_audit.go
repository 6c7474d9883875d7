package app

import (
	"encoding/base64"
	"fmt"

	auditHTTP "github.com/anonymort/whistle/internal/audit/http"
	auditRepository "github.com/anonymort/whistle/internal/audit/repository"
	auditService "github.com/anonymort/whistle/internal/audit/service"
	auditUseCase "github.com/anonymort/whistle/internal/audit/usecase"
)

// AuditSigner returns the entry signer, or nil when AUDIT_SIGNING_KEY is not set.
func (c *Container) AuditSigner() (auditService.Signer, error) {
	return lazy(c, &c.auditSignerInit, "auditSigner", &c.auditSigner, c.initAuditSigner)
}

// AuditLogRepository returns the audit log repository for the configured driver.
func (c *Container) AuditLogRepository() (auditUseCase.AuditLogRepository, error) {
	return lazy(c, &c.auditLogRepositoryInit, "auditLogRepository", &c.auditLogRepository, c.initAuditLogRepository)
}

// AuditLogUseCase returns the audit ledger. It also serves as the Ledger every security
// component records into.
func (c *Container) AuditLogUseCase() (auditUseCase.AuditLogUseCase, error) {
	return lazy(c, &c.auditLogUseCaseInit, "auditLogUseCase", &c.auditLogUseCase, c.initAuditLogUseCase)
}

// AuditLogHandler returns the HTTP handler for audit log listing.
func (c *Container) AuditLogHandler() (*auditHTTP.AuditLogHandler, error) {
	return lazy(c, &c.auditLogHandlerInit, "auditLogHandler", &c.auditLogHandler, c.initAuditLogHandler)
}

// initAuditSigner derives the signing key from the configured secret.
func (c *Container) initAuditSigner() (auditService.Signer, error) {
	if c.config.AuditSigningKey == "" {
		c.Logger().Warn("AUDIT_SIGNING_KEY not set - audit entries will be stored unsigned")
		return nil, nil
	}

	secret, err := base64.StdEncoding.DecodeString(c.config.AuditSigningKey)
	if err != nil {
		return nil, fmt.Errorf("AUDIT_SIGNING_KEY must be base64 encoded: %w", err)
	}
	defer clear(secret)

	return auditService.NewHMACSigner(secret)
}

// initAuditLogRepository creates the audit log repository.
func (c *Container) initAuditLogRepository() (auditUseCase.AuditLogRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for audit log repository: %w", err)
	}
	dialect, err := c.Dialect()
	if err != nil {
		return nil, err
	}
	return auditRepository.NewSQLAuditLogRepository(db, dialect), nil
}

// initAuditLogUseCase creates the audit ledger with all its dependencies.
func (c *Container) initAuditLogUseCase() (auditUseCase.AuditLogUseCase, error) {
	repo, err := c.AuditLogRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log repository for audit log use case: %w", err)
	}

	signer, err := c.AuditSigner()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit signer for audit log use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for audit log use case: %w", err)
	}

	return auditUseCase.NewAuditLogUseCase(repo, signer, businessMetrics, c.Logger()), nil
}

// initAuditLogHandler creates the audit log HTTP handler.
func (c *Container) initAuditLogHandler() (*auditHTTP.AuditLogHandler, error) {
	useCase, err := c.AuditLogUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log use case for audit log handler: %w", err)
	}
	return auditHTTP.NewAuditLogHandler(useCase, c.Logger()), nil
}
