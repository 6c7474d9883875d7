package app

import (
	"fmt"

	"github.com/anonymort/whistle/internal/notification"
	scannerService "github.com/anonymort/whistle/internal/scanner/service"
	submissionHTTP "github.com/anonymort/whistle/internal/submission/http"
	submissionRepository "github.com/anonymort/whistle/internal/submission/repository"
	submissionUseCase "github.com/anonymort/whistle/internal/submission/usecase"
)

// FileScanner returns the upload scanner.
func (c *Container) FileScanner() (*scannerService.Scanner, error) {
	return lazy(c, &c.fileScannerInit, "fileScanner", &c.fileScanner, c.initFileScanner)
}

// Notifier returns the notification dispatcher.
func (c *Container) Notifier() notification.Notifier {
	c.notifierInit.Do(func() {
		c.notifier = notification.NewLogNotifier(c.Logger(), notification.TemplateSubmissionReceived)
	})
	return c.notifier
}

// SubmissionRepository returns the submission repository.
func (c *Container) SubmissionRepository() (submissionUseCase.SubmissionRepository, error) {
	return lazy(c, &c.submissionRepoInit, "submissionRepository", &c.submissionRepository, c.initSubmissionRepository)
}

// SubmissionUseCase returns the submission use case.
func (c *Container) SubmissionUseCase() (submissionUseCase.SubmissionUseCase, error) {
	return lazy(c, &c.submissionUseCaseInit, "submissionUseCase", &c.submissionUseCase, c.initSubmissionUseCase)
}

// SubmissionHandler returns the HTTP handler for intake and listing.
func (c *Container) SubmissionHandler() (*submissionHTTP.SubmissionHandler, error) {
	return lazy(c, &c.submissionHandlerInit, "submissionHandler", &c.submissionHandler, c.initSubmissionHandler)
}

// initFileScanner builds the default stage chain, adding signatures from SCAN_SIGNATURES_PATH.
func (c *Container) initFileScanner() (*scannerService.Scanner, error) {
	var signatures map[string]string
	if c.config.ScanSignaturesPath != "" {
		loaded, err := scannerService.LoadSignatureFile(c.config.ScanSignaturesPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load scan signatures: %w", err)
		}
		signatures = loaded
	}
	return scannerService.NewDefaultScanner(
		signatures,
		c.config.UploadMaxBytes,
		c.config.ScanEntropyThreshold,
	), nil
}

// initSubmissionRepository creates the submission repository.
func (c *Container) initSubmissionRepository() (submissionUseCase.SubmissionRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for submission repository: %w", err)
	}
	dialect, err := c.Dialect()
	if err != nil {
		return nil, err
	}
	return submissionRepository.NewSQLSubmissionRepository(db, dialect), nil
}

// initSubmissionUseCase creates the submission use case with all its dependencies.
func (c *Container) initSubmissionUseCase() (submissionUseCase.SubmissionUseCase, error) {
	repo, err := c.SubmissionRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get submission repository for submission use case: %w", err)
	}

	envelopes, err := c.EnvelopeService()
	if err != nil {
		return nil, fmt.Errorf("failed to get envelope service for submission use case: %w", err)
	}

	keyManager, err := c.KeyManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get key manager for submission use case: %w", err)
	}

	scanner, err := c.FileScanner()
	if err != nil {
		return nil, fmt.Errorf("failed to get file scanner for submission use case: %w", err)
	}

	ledger, err := c.AuditLogUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit ledger for submission use case: %w", err)
	}

	baseUseCase := submissionUseCase.NewSubmissionUseCase(
		repo,
		envelopes,
		keyManager,
		scanner,
		c.Notifier(),
		ledger,
		c.Logger(),
	)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for submission use case: %w", err)
		}
		return submissionUseCase.NewSubmissionUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

// initSubmissionHandler creates the submission HTTP handler.
func (c *Container) initSubmissionHandler() (*submissionHTTP.SubmissionHandler, error) {
	useCase, err := c.SubmissionUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get submission use case for submission handler: %w", err)
	}
	return submissionHTTP.NewSubmissionHandler(useCase, c.Logger()), nil
}
