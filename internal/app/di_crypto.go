package app

import (
	"context"
	"fmt"

	cryptoDomain "github.com/anonymort/whistle/internal/crypto/domain"
	cryptoHTTP "github.com/anonymort/whistle/internal/crypto/http"
	cryptoRepository "github.com/anonymort/whistle/internal/crypto/repository"
	cryptoService "github.com/anonymort/whistle/internal/crypto/service"
	cryptoUseCase "github.com/anonymort/whistle/internal/crypto/usecase"
)

// KMSKeeper returns the keeper wrapping private keys at rest.
func (c *Container) KMSKeeper() (cryptoDomain.KMSKeeper, error) {
	return lazy(c, &c.kmsKeeperInit, "kmsKeeper", &c.kmsKeeper, c.initKMSKeeper)
}

// EnvelopeService returns the envelope service.
func (c *Container) EnvelopeService() (cryptoService.EnvelopeService, error) {
	return lazy(c, &c.envelopeServiceInit, "envelopeService", &c.envelopeService, cryptoService.NewEnvelopeService)
}

// KeyPairRepository returns the key pair repository.
func (c *Container) KeyPairRepository() (cryptoUseCase.KeyPairRepository, error) {
	return lazy(c, &c.keyPairRepositoryInit, "keyPairRepository", &c.keyPairRepository, c.initKeyPairRepository)
}

// KeyManager returns the initialized key manager. The first call loads the stored key pairs
// and generates the first pair on an empty database.
func (c *Container) KeyManager() (cryptoUseCase.KeyManager, error) {
	return lazy(c, &c.keyManagerInit, "keyManager", &c.keyManager, c.initKeyManager)
}

// KeyHandler returns the HTTP handler for key operations.
func (c *Container) KeyHandler() (*cryptoHTTP.KeyHandler, error) {
	return lazy(c, &c.keyHandlerInit, "keyHandler", &c.keyHandler, c.initKeyHandler)
}

// initKMSKeeper opens the keeper named by KMS_KEY_URI and fails fast if it cannot round trip.
func (c *Container) initKMSKeeper() (cryptoDomain.KMSKeeper, error) {
	return cryptoService.OpenKeeper(context.Background(), c.config.KMSKeyURI)
}

// initKeyPairRepository creates the key pair repository.
func (c *Container) initKeyPairRepository() (cryptoUseCase.KeyPairRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for key pair repository: %w", err)
	}
	dialect, err := c.Dialect()
	if err != nil {
		return nil, err
	}
	keeper, err := c.KMSKeeper()
	if err != nil {
		return nil, fmt.Errorf("failed to get kms keeper for key pair repository: %w", err)
	}
	return cryptoRepository.NewSQLKeyPairRepository(db, dialect, keeper), nil
}

// initKeyManager creates and initializes the key manager.
func (c *Container) initKeyManager() (cryptoUseCase.KeyManager, error) {
	algorithm, err := cryptoDomain.ParseAlgorithm(c.config.EnvelopeAlgorithm)
	if err != nil {
		return nil, err
	}

	envelopes, err := c.EnvelopeService()
	if err != nil {
		return nil, fmt.Errorf("failed to get envelope service for key manager: %w", err)
	}

	repo, err := c.KeyPairRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get key pair repository for key manager: %w", err)
	}

	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for key manager: %w", err)
	}

	ledger, err := c.AuditLogUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit ledger for key manager: %w", err)
	}

	keyManager := cryptoUseCase.NewKeyManager(
		algorithm,
		c.config.KeyGraceWindow,
		envelopes,
		repo,
		txManager,
		ledger,
		c.Logger(),
	)
	if err := keyManager.Initialize(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to initialize key manager: %w", err)
	}
	return keyManager, nil
}

// initKeyHandler creates the key HTTP handler.
func (c *Container) initKeyHandler() (*cryptoHTTP.KeyHandler, error) {
	keyManager, err := c.KeyManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get key manager for key handler: %w", err)
	}
	ledger, err := c.AuditLogUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit ledger for key handler: %w", err)
	}
	return cryptoHTTP.NewKeyHandler(keyManager, ledger, c.Logger()), nil
}
