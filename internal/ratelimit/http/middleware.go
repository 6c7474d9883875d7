// Package http exposes the rate limiter as gin middleware.
package http

import (
	"log/slog"
	"math"
	"strconv"

	"github.com/gin-gonic/gin"

	auditDomain "github.com/anonymort/whistle/internal/audit/domain"
	auditUseCase "github.com/anonymort/whistle/internal/audit/usecase"
	apperrors "github.com/anonymort/whistle/internal/errors"
	"github.com/anonymort/whistle/internal/httputil"
	"github.com/anonymort/whistle/internal/metrics"
	"github.com/anonymort/whistle/internal/ratelimit/service"
)

// RateLimitMiddleware charges every request to the category bucket of its client address.
// gin's ClientIP honors forwarded headers only from the engine's trusted proxies.
//
// A blocked request gets a 429 with Retry-After; the response is identical whether this
// request or an earlier one exhausted the window.
func RateLimitMiddleware(
	limiter *service.Limiter,
	category service.Category,
	ledger auditUseCase.Ledger,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		client := c.ClientIP()
		decision := limiter.Allow(category, client)

		if decision.Limit > 0 {
			c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		}

		if decision.Allowed {
			c.Next()
			return
		}

		severity := auditDomain.SeverityHigh
		if category.IsLogin() {
			severity = auditDomain.SeverityCritical
		}

		ctx := c.Request.Context()
		ledger.Record(ctx, &auditDomain.Entry{
			Action:   auditDomain.ActionRateLimitBlock,
			Resource: c.Request.URL.Path,
			Outcome:  auditDomain.OutcomeBlocked,
			Severity: severity,
			Details: map[string]any{
				"category":       string(category),
				"endpoint":       c.Request.Method + " " + c.FullPath(),
				"client":         client,
				"limit":          decision.Limit,
				"window_seconds": int(decision.Window.Seconds()),
			},
		})
		businessMetrics.RecordSecurityEvent(ctx, "rate_limit_block", string(category))
		logger.Warn("rate limit exceeded",
			slog.String("category", string(category)),
			slog.String("client", client),
		)

		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(decision.RetryAfter.Seconds()))))
		httputil.HandleErrorGin(c, apperrors.ErrTooManyRequests, logger)
	}
}
