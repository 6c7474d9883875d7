package http

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/anonymort/whistle/internal/audit/domain"
	auditMocks "github.com/anonymort/whistle/internal/audit/usecase/mocks"
	"github.com/anonymort/whistle/internal/metrics"
	"github.com/anonymort/whistle/internal/ratelimit/service"
)

func newRouter(limiter *service.Limiter, ledger *auditMocks.RecordingLedger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	businessMetrics := metrics.NewNoOpBusinessMetrics()

	router := gin.New()
	router.POST("/admin/login",
		RateLimitMiddleware(limiter, service.CategoryAdminLogin, ledger, businessMetrics, logger),
		func(c *gin.Context) { c.Status(http.StatusNoContent) },
	)
	router.POST("/submit",
		RateLimitMiddleware(limiter, service.CategorySubmission, ledger, businessMetrics, logger),
		func(c *gin.Context) { c.Status(http.StatusCreated) },
	)
	return router
}

func post(router *gin.Engine, path, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimitMiddleware_LoginBlock(t *testing.T) {
	limiter := service.NewLimiter(map[service.Category]service.Rule{
		service.CategoryAdminLogin: {Limit: 5, Window: 15 * time.Minute},
	})
	ledger := &auditMocks.RecordingLedger{}
	router := newRouter(limiter, ledger)

	for i := range 5 {
		w := post(router, "/admin/login", "198.51.100.4:5000")
		require.Equal(t, http.StatusNoContent, w.Code, "attempt %d", i+1)
	}
	assert.Empty(t, ledger.Entries())

	w := post(router, "/admin/login", "198.51.100.4:5001")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "rate_limit_exceeded")
	assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	retryAfter := w.Header().Get("Retry-After")
	assert.NotEmpty(t, retryAfter)
	assert.NotEqual(t, "0", retryAfter)

	blocks := ledger.ByAction(auditDomain.ActionRateLimitBlock)
	require.Len(t, blocks, 1)
	assert.Equal(t, auditDomain.SeverityCritical, blocks[0].Severity)
	assert.Equal(t, auditDomain.OutcomeBlocked, blocks[0].Outcome)
	assert.Equal(t, "POST /admin/login", blocks[0].Details["endpoint"])
	assert.Equal(t, 5, blocks[0].Details["limit"])
	assert.Equal(t, 900, blocks[0].Details["window_seconds"])

	w = post(router, "/admin/login", "198.51.100.99:5000")
	assert.Equal(t, http.StatusNoContent, w.Code, "another client has its own budget")
}

func TestRateLimitMiddleware_SubmissionSeverity(t *testing.T) {
	limiter := service.NewLimiter(map[service.Category]service.Rule{
		service.CategorySubmission: {Limit: 1, Window: time.Minute},
	})
	ledger := &auditMocks.RecordingLedger{}
	router := newRouter(limiter, ledger)

	assert.Equal(t, http.StatusCreated, post(router, "/submit", "192.0.2.1:1234").Code)
	assert.Equal(t, http.StatusTooManyRequests, post(router, "/submit", "192.0.2.1:1234").Code)
	assert.Equal(t, http.StatusTooManyRequests, post(router, "/submit", "192.0.2.1:1234").Code)

	blocks := ledger.ByAction(auditDomain.ActionRateLimitBlock)
	require.Len(t, blocks, 2)
	assert.Equal(t, auditDomain.SeverityHigh, blocks[0].Severity)
	assert.Equal(t, "submission", blocks[0].Details["category"])
}

func TestRateLimitMiddleware_Unlimited(t *testing.T) {
	limiter := service.NewLimiter(nil)
	ledger := &auditMocks.RecordingLedger{}
	router := newRouter(limiter, ledger)

	for range 20 {
		w := post(router, "/submit", "192.0.2.1:1234")
		require.Equal(t, http.StatusCreated, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}
}
