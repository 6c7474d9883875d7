// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	auditHTTP "github.com/anonymort/whistle/internal/audit/http"
	auditService "github.com/anonymort/whistle/internal/audit/service"
	auditUseCase "github.com/anonymort/whistle/internal/audit/usecase"
	authHTTP "github.com/anonymort/whistle/internal/auth/http"
	authService "github.com/anonymort/whistle/internal/auth/service"
	authUseCase "github.com/anonymort/whistle/internal/auth/usecase"
	"github.com/anonymort/whistle/internal/config"
	cryptoDomain "github.com/anonymort/whistle/internal/crypto/domain"
	cryptoHTTP "github.com/anonymort/whistle/internal/crypto/http"
	cryptoService "github.com/anonymort/whistle/internal/crypto/service"
	cryptoUseCase "github.com/anonymort/whistle/internal/crypto/usecase"
	"github.com/anonymort/whistle/internal/database"
	"github.com/anonymort/whistle/internal/http"
	"github.com/anonymort/whistle/internal/metrics"
	"github.com/anonymort/whistle/internal/notification"
	ratelimitService "github.com/anonymort/whistle/internal/ratelimit/service"
	retentionHTTP "github.com/anonymort/whistle/internal/retention/http"
	retentionUseCase "github.com/anonymort/whistle/internal/retention/usecase"
	scannerService "github.com/anonymort/whistle/internal/scanner/service"
	submissionHTTP "github.com/anonymort/whistle/internal/submission/http"
	submissionUseCase "github.com/anonymort/whistle/internal/submission/usecase"
)

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	db              *sql.DB
	dialect         database.Dialect
	txManager       database.TxManager
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics

	// Audit
	auditSigner        auditService.Signer
	auditLogRepository auditUseCase.AuditLogRepository
	auditLogUseCase    auditUseCase.AuditLogUseCase
	auditLogHandler    *auditHTTP.AuditLogHandler

	// Keys and envelopes
	kmsKeeper         cryptoDomain.KMSKeeper
	envelopeService   cryptoService.EnvelopeService
	keyPairRepository cryptoUseCase.KeyPairRepository
	keyManager        cryptoUseCase.KeyManager
	keyHandler        *cryptoHTTP.KeyHandler

	// Sessions and accounts
	passwordService   authService.PasswordService
	accountRepository authUseCase.AccountRepository
	sessionRepository authUseCase.SessionRepository
	sessionUseCase    authUseCase.SessionUseCase
	accountUseCase    authUseCase.AccountUseCase
	sessionHandler    *authHTTP.SessionHandler

	// Submissions
	fileScanner          *scannerService.Scanner
	notifier             notification.Notifier
	submissionRepository submissionUseCase.SubmissionRepository
	submissionUseCase    submissionUseCase.SubmissionUseCase
	submissionHandler    *submissionHTTP.SubmissionHandler

	// Rate limiting and retention
	limiter      *ratelimitService.Limiter
	scheduler    *retentionUseCase.Scheduler
	purgeHandler *retentionHTTP.PurgeHandler

	// Servers
	httpServer    *http.Server
	metricsServer *http.MetricsServer

	// Initialization flags and mutex for thread-safety
	mu                     sync.Mutex
	errMu                  sync.Mutex
	loggerInit             sync.Once
	dbInit                 sync.Once
	txManagerInit          sync.Once
	metricsProviderInit    sync.Once
	businessMetricsInit    sync.Once
	auditSignerInit        sync.Once
	auditLogRepositoryInit sync.Once
	auditLogUseCaseInit    sync.Once
	auditLogHandlerInit    sync.Once
	kmsKeeperInit          sync.Once
	envelopeServiceInit    sync.Once
	keyPairRepositoryInit  sync.Once
	keyManagerInit         sync.Once
	keyHandlerInit         sync.Once
	passwordServiceInit    sync.Once
	accountRepositoryInit  sync.Once
	sessionRepositoryInit  sync.Once
	sessionUseCaseInit     sync.Once
	accountUseCaseInit     sync.Once
	sessionHandlerInit     sync.Once
	fileScannerInit        sync.Once
	notifierInit           sync.Once
	submissionRepoInit     sync.Once
	submissionUseCaseInit  sync.Once
	submissionHandlerInit  sync.Once
	limiterInit            sync.Once
	schedulerInit          sync.Once
	purgeHandlerInit       sync.Once
	httpServerInit         sync.Once
	metricsServerInit      sync.Once
	initErrors             map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// lazy runs init once and remembers its error under name, so every later call to the same
// accessor fails the same way.
func lazy[T any](c *Container, once *sync.Once, name string, slot *T, init func() (T, error)) (T, error) {
	once.Do(func() {
		value, err := init()
		if err != nil {
			c.errMu.Lock()
			c.initErrors[name] = err
			c.errMu.Unlock()
			return
		}
		*slot = value
	})

	c.errMu.Lock()
	err := c.initErrors[name]
	c.errMu.Unlock()
	if err != nil {
		var zero T
		return zero, err
	}
	return *slot, nil
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
// It creates and configures the database connection on first access.
func (c *Container) DB() (*sql.DB, error) {
	return lazy(c, &c.dbInit, "db", &c.db, c.initDB)
}

// Dialect returns the SQL dialect of the configured driver.
func (c *Container) Dialect() (database.Dialect, error) {
	return database.ParseDialect(c.config.DBDriver)
}

// TxManager returns the transaction manager.
// It requires a database connection to be initialized first.
func (c *Container) TxManager() (database.TxManager, error) {
	return lazy(c, &c.txManagerInit, "txManager", &c.txManager, c.initTxManager)
}

// MetricsProvider returns the metrics provider, or nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	return lazy(c, &c.metricsProviderInit, "metricsProvider", &c.metricsProvider, c.initMetricsProvider)
}

// BusinessMetrics returns the business metrics recorder. A no-op recorder is returned when
// metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	return lazy(c, &c.businessMetricsInit, "businessMetrics", &c.businessMetrics, c.initBusinessMetrics)
}

// HTTPServer returns the API server with its router set up.
func (c *Container) HTTPServer() (*http.Server, error) {
	return lazy(c, &c.httpServerInit, "httpServer", &c.httpServer, c.initHTTPServer)
}

// MetricsServer returns the metrics server, or nil when METRICS_ENABLED is false.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	return lazy(c, &c.metricsServerInit, "metricsServer", &c.metricsServer, c.initMetricsServer)
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.scheduler != nil {
		c.scheduler.Stop()
	}

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.kmsKeeper != nil {
		if err := c.kmsKeeper.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("kms keeper close: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	return errors.Join(shutdownErrors...)
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// initTxManager creates the transaction manager using the database connection.
func (c *Container) initTxManager() (database.TxManager, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for tx manager: %w", err)
	}
	return database.NewTxManager(db), nil
}

// initMetricsProvider creates the OpenTelemetry provider when metrics are enabled.
func (c *Container) initMetricsProvider() (*metrics.Provider, error) {
	if !c.config.MetricsEnabled {
		return nil, nil
	}
	provider, err := metrics.NewProvider(c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics provider: %w", err)
	}
	return provider, nil
}

// initBusinessMetrics creates the business metrics recorder.
func (c *Container) initBusinessMetrics() (metrics.BusinessMetrics, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return metrics.NewNoOpBusinessMetrics(), nil
	}

	businessMetrics, err := metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}
	return businessMetrics, nil
}

// initHTTPServer creates the API server and wires every handler into the router.
func (c *Container) initHTTPServer() (*http.Server, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for http server: %w", err)
	}

	deps := http.RouterDependencies{}
	if deps.SessionUseCase, err = c.SessionUseCase(); err != nil {
		return nil, fmt.Errorf("failed to get session use case for http server: %w", err)
	}
	if deps.SessionHandler, err = c.SessionHandler(); err != nil {
		return nil, fmt.Errorf("failed to get session handler for http server: %w", err)
	}
	if deps.KeyHandler, err = c.KeyHandler(); err != nil {
		return nil, fmt.Errorf("failed to get key handler for http server: %w", err)
	}
	if deps.SubmissionHandler, err = c.SubmissionHandler(); err != nil {
		return nil, fmt.Errorf("failed to get submission handler for http server: %w", err)
	}
	if deps.AuditLogHandler, err = c.AuditLogHandler(); err != nil {
		return nil, fmt.Errorf("failed to get audit log handler for http server: %w", err)
	}
	if deps.PurgeHandler, err = c.PurgeHandler(); err != nil {
		return nil, fmt.Errorf("failed to get purge handler for http server: %w", err)
	}
	if deps.Ledger, err = c.AuditLogUseCase(); err != nil {
		return nil, fmt.Errorf("failed to get audit ledger for http server: %w", err)
	}
	if deps.BusinessMetrics, err = c.BusinessMetrics(); err != nil {
		return nil, fmt.Errorf("failed to get business metrics for http server: %w", err)
	}
	if deps.MetricsProvider, err = c.MetricsProvider(); err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
	}
	deps.SessionCookie = c.SessionCookie()
	deps.Limiter = c.Limiter()

	server := http.NewServer(db, c.config.ServerHost, c.config.ServerPort, c.Logger())
	if err := server.SetupRouter(c.config, deps); err != nil {
		return nil, fmt.Errorf("failed to set up router: %w", err)
	}
	return server, nil
}

// initMetricsServer creates the metrics server on its own port, or nil when metrics are
// disabled so no listener is opened.
func (c *Container) initMetricsServer() (*http.MetricsServer, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for metrics server: %w", err)
	}
	if provider == nil {
		return nil, nil
	}
	return http.NewMetricsServer(c.config.ServerHost, c.config.MetricsPort, c.Logger(), provider), nil
}
