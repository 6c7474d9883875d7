// Package http assembles the request pipeline: the gin router, its middleware chain and the
// API and metrics servers.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	auditHTTP "github.com/anonymort/whistle/internal/audit/http"
	auditUseCase "github.com/anonymort/whistle/internal/audit/usecase"
	authDomain "github.com/anonymort/whistle/internal/auth/domain"
	authHTTP "github.com/anonymort/whistle/internal/auth/http"
	authUseCase "github.com/anonymort/whistle/internal/auth/usecase"
	"github.com/anonymort/whistle/internal/config"
	cryptoHTTP "github.com/anonymort/whistle/internal/crypto/http"
	"github.com/anonymort/whistle/internal/httputil"
	"github.com/anonymort/whistle/internal/metrics"
	ratelimitHTTP "github.com/anonymort/whistle/internal/ratelimit/http"
	ratelimitService "github.com/anonymort/whistle/internal/ratelimit/service"
	retentionHTTP "github.com/anonymort/whistle/internal/retention/http"
	submissionHTTP "github.com/anonymort/whistle/internal/submission/http"
)

// Server represents the API server.
type Server struct {
	db       *sql.DB
	listener *listener
	router   *gin.Engine
	logger   *slog.Logger
}

// RouterDependencies are the handlers and guards the router wires together.
type RouterDependencies struct {
	SessionUseCase    authUseCase.SessionUseCase
	SessionCookie     authHTTP.SessionCookie
	SessionHandler    *authHTTP.SessionHandler
	KeyHandler        *cryptoHTTP.KeyHandler
	SubmissionHandler *submissionHTTP.SubmissionHandler
	AuditLogHandler   *auditHTTP.AuditLogHandler
	PurgeHandler      *retentionHTTP.PurgeHandler
	Limiter           *ratelimitService.Limiter
	Ledger            auditUseCase.Ledger
	BusinessMetrics   metrics.BusinessMetrics
	MetricsProvider   *metrics.Provider
}

// NewServer creates a new API server.
func NewServer(
	db *sql.DB,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		db:       db,
		listener: newListener("http server", host, port, 30*time.Second, logger),
		logger:   logger,
	}
}

// SetupRouter builds the router. Every protected route runs the same chain in the same order:
// rate limiter, session resolution, CSRF verification, role check and finally the handler.
// Error responses nothing else audited are caught by ErrorAuditMiddleware around the whole chain.
func (s *Server) SetupRouter(cfg *config.Config, deps RouterDependencies) error {
	router := gin.New()
	if err := router.SetTrustedProxies(cfg.TrustedProxyList()); err != nil {
		return fmt.Errorf("invalid trusted proxies: %w", err)
	}

	businessMetrics := deps.BusinessMetrics
	if businessMetrics == nil {
		businessMetrics = metrics.NewNoOpBusinessMetrics()
	}

	if deps.Ledger != nil {
		router.Use(ErrorAuditMiddleware(deps.Ledger))
	}
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(RequestContextMiddleware())
	router.Use(CustomLoggerMiddleware(s.logger))
	if deps.MetricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(deps.MetricsProvider.MeterProvider(), cfg.MetricsNamespace))
	}
	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSOriginList(), s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}
	router.Use(MaxBodySizeMiddleware(maxBodyBytes(cfg.UploadMaxBytes)))

	limit := func(category ratelimitService.Category) gin.HandlerFunc {
		return ratelimitHTTP.RateLimitMiddleware(deps.Limiter, category, deps.Ledger, businessMetrics, s.logger)
	}
	session := authHTTP.SessionMiddleware(deps.SessionUseCase, deps.SessionCookie, s.logger)
	csrf := authHTTP.CSRFMiddleware(deps.SessionUseCase, deps.Ledger, businessMetrics, s.logger)
	admin := authHTTP.RequireRole(deps.Ledger, s.logger, authDomain.RoleAdmin)
	reviewer := authHTTP.RequireRole(deps.Ledger, s.logger, authDomain.RoleInvestigator, authDomain.RoleAdmin)
	general := limit(ratelimitService.CategoryGeneral)

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	// Reporter intake
	router.GET("/csrf-token", general, session, deps.SessionHandler.CSRFTokenHandler)
	router.POST("/submit",
		limit(ratelimitService.CategorySubmission), session, csrf,
		deps.SubmissionHandler.CreateHandler,
	)

	// Reviewer sessions
	router.POST("/admin/login",
		limit(ratelimitService.CategoryAdminLogin), session,
		deps.SessionHandler.LoginHandler(authDomain.RoleAdmin),
	)
	router.POST("/investigator/login",
		limit(ratelimitService.CategoryInvestigatorLogin), session,
		deps.SessionHandler.LoginHandler(authDomain.RoleInvestigator),
	)
	router.POST("/logout", general, session, csrf, deps.SessionHandler.LogoutHandler)

	// Keys
	router.GET("/admin/public-key", general, deps.KeyHandler.PublicKeyHandler)
	router.POST("/admin/decrypt", general, session, csrf, admin, deps.KeyHandler.DecryptHandler)
	router.POST("/admin/rotate-keys", general, session, csrf, admin, deps.KeyHandler.RotateKeysHandler)

	// Retention and review
	router.POST("/purge", general, session, csrf, admin, deps.PurgeHandler.Handle)
	router.GET("/admin/audit-logs",
		limit(ratelimitService.CategorySensitiveSearch), session, admin,
		deps.AuditLogHandler.ListHandler,
	)
	router.GET("/investigator/submissions",
		limit(ratelimitService.CategorySensitiveSearch), session, reviewer,
		deps.SubmissionHandler.ListHandler,
	)

	// No route serves private key material. Requests for it are answered by the trap whatever
	// the method; everything else unmatched is a plain 404.
	router.NoRoute(general, session, deps.KeyHandler.PrivateKeyTrap(), notFoundHandler)

	s.router = router
	return nil
}

// Router returns the configured router, or nil before SetupRouter.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start starts the API server.
func (s *Server) Start(ctx context.Context) error {
	return s.listener.serve(s.router)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.listener.shutdown(ctx)
}

// healthHandler reports that the process is alive.
// GET /health
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports whether the database answers.
// GET /ready
func (s *Server) readinessHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	database := "ok"
	if s.db == nil || s.db.PingContext(ctx) != nil {
		database = "error"
	}

	if database != "ok" {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": gin.H{"database": database},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": gin.H{"database": database},
	})
}

func notFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, httputil.ErrorResponse{
		Error:   "not_found",
		Code:    "NOT_FOUND",
		Message: "The requested resource was not found",
	})
}
