package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	auditDomain "github.com/anonymort/whistle/internal/audit/domain"
	auditUseCase "github.com/anonymort/whistle/internal/audit/usecase"
)

// CustomLoggerMiddleware logs every request with its request id, status and latency.
// Query strings are never logged.
func CustomLoggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		attrs := []any{
			slog.String("request_id", requestid.Get(c)),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("errors", c.Errors.String()))
		}

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			logger.Error("http request", attrs...)
		case status >= http.StatusBadRequest:
			logger.Warn("http request", attrs...)
		default:
			logger.Info("http request", attrs...)
		}
	}
}

// RequestContextMiddleware copies the request id into the request context so audit entries
// recorded further down can be correlated with the access log.
func RequestContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := auditDomain.ContextWithRequestID(c.Request.Context(), requestid.Get(c))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// ErrorAuditMiddleware records one ledger entry for every 4xx or 5xx response that no guard or
// use case already audited as a failure. The entry carries the internal error chain the client
// never sees; 5xx responses are high severity, the rest medium. It must run outside
// gin.Recovery so recovered panics are audited too.
func ErrorAuditMiddleware(ledger auditUseCase.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, tracker := auditDomain.ContextWithFailureTracker(c.Request.Context())
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		if status < http.StatusBadRequest || tracker.Recorded() {
			return
		}

		severity := auditDomain.SeverityMedium
		if status >= http.StatusInternalServerError {
			severity = auditDomain.SeverityHigh
		}
		details := map[string]any{
			"method": c.Request.Method,
			"route":  c.FullPath(),
			"status": status,
		}
		if len(c.Errors) > 0 {
			details["error"] = strings.Join(c.Errors.Errors(), "; ")
		}

		// c.Request now carries the actor and request id set further down the chain.
		ledger.Record(c.Request.Context(), &auditDomain.Entry{
			Action:   auditDomain.ActionRequestError,
			Resource: c.Request.URL.Path,
			Outcome:  auditDomain.OutcomeFailure,
			Severity: severity,
			Details:  details,
		})
	}
}

// MaxBodySizeMiddleware caps the request body. Reads past limit fail, which the JSON binders
// report as a malformed request.
func MaxBodySizeMiddleware(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

// maxBodyBytes leaves room for base64 expansion of an upload at the ceiling plus the envelope
// and JSON framing around it.
func maxBodyBytes(uploadMaxBytes int64) int64 {
	return uploadMaxBytes/3*4 + 4 + 1<<20
}
