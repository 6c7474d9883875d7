package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	auditDomain "github.com/anonymort/whistle/internal/audit/domain"
	auditUseCase "github.com/anonymort/whistle/internal/audit/usecase"
	authDomain "github.com/anonymort/whistle/internal/auth/domain"
	authUseCase "github.com/anonymort/whistle/internal/auth/usecase"
	apperrors "github.com/anonymort/whistle/internal/errors"
	"github.com/anonymort/whistle/internal/httputil"
	"github.com/anonymort/whistle/internal/metrics"
)

const (
	// CSRFHeader is the request header carrying the CSRF token.
	CSRFHeader = "X-CSRF-Token"
	// CSRFField is the JSON or form field carrying the CSRF token when the header is absent.
	CSRFField = "_csrf"
)

// SessionMiddleware resolves the session cookie. A valid session is stored in the request
// context, its actor is attached for audit entries and the cookie is refreshed to match the
// renewed expiry. Missing, unknown or expired sessions let the request continue anonymously so
// RequireRole can decide; a stale cookie is cleared.
func SessionMiddleware(
	sessionUseCase authUseCase.SessionUseCase,
	cookie SessionCookie,
	logger *slog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := cookie.Read(c)
		if token == "" {
			c.Next()
			return
		}

		session, err := sessionUseCase.Authenticate(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, apperrors.ErrUnauthorized) {
				httputil.HandleErrorGin(c, err, logger)
				return
			}
			logger.Debug("session cookie rejected", slog.Any("error", err))
			cookie.Clear(c)
			c.Next()
			return
		}

		ctx := WithSession(c.Request.Context(), session)
		ctx = auditDomain.ContextWithActor(ctx, session.Actor())
		c.Request = c.Request.WithContext(ctx)
		cookie.Set(c, token)

		c.Next()
	}
}

// RequireRole admits sessions holding one of roles. No session is an authentication failure
// (401, medium audit); a session with the wrong role is an authorization failure (403, high
// audit). Response bodies are generic in both cases.
func RequireRole(
	ledger auditUseCase.Ledger,
	logger *slog.Logger,
	roles ...authDomain.Role,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		session, ok := GetSession(ctx)
		if !ok {
			ledger.Record(ctx, &auditDomain.Entry{
				Action:   auditDomain.ActionUnauthenticated,
				Resource: c.Request.URL.Path,
				Outcome:  auditDomain.OutcomeDenied,
				Severity: auditDomain.SeverityMedium,
				Details:  map[string]any{"method": c.Request.Method},
			})
			httputil.HandleErrorGin(c, authDomain.ErrSessionNotFound, logger)
			return
		}

		if !session.HasRole(roles...) {
			ledger.Record(ctx, &auditDomain.Entry{
				Action:   auditDomain.ActionForbidden,
				Resource: c.Request.URL.Path,
				Outcome:  auditDomain.OutcomeDenied,
				Severity: auditDomain.SeverityHigh,
				Details: map[string]any{
					"method": c.Request.Method,
					"role":   string(session.Role),
				},
			})
			httputil.HandleErrorGin(c, authDomain.ErrRoleNotPermitted, logger)
			return
		}

		c.Next()
	}
}

// CSRFMiddleware verifies the CSRF token of POST, PUT, PATCH and DELETE requests against the
// requesting session's secret. Other methods pass untouched. The token is read from the
// X-CSRF-Token header, falling back to a "_csrf" JSON or form field.
func CSRFMiddleware(
	sessionUseCase authUseCase.SessionUseCase,
	ledger auditUseCase.Ledger,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isStateChanging(c.Request.Method) {
			c.Next()
			return
		}

		reason := ""
		session, ok := GetSession(c.Request.Context())
		token, err := csrfToken(c)
		switch {
		case err != nil:
			httputil.HandleBadRequestGin(c, errors.New("request body could not be read"), logger)
			return
		case !ok:
			reason = "no_session"
		case token == "":
			reason = "missing_token"
		case !sessionUseCase.VerifyCSRFToken(session, token):
			reason = "invalid_token"
		}

		if reason == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		ledger.Record(ctx, &auditDomain.Entry{
			Action:   auditDomain.ActionCSRFReject,
			Resource: c.Request.URL.Path,
			Outcome:  auditDomain.OutcomeRejected,
			Severity: auditDomain.SeverityHigh,
			Details: map[string]any{
				"method": c.Request.Method,
				"reason": reason,
			},
		})
		businessMetrics.RecordSecurityEvent(ctx, "csrf_reject", reason)
		httputil.HandleErrorGin(c, authDomain.ErrInvalidCSRFToken, logger)
	}
}

func isStateChanging(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

// csrfToken extracts the token, restoring the body for the handler when it had to be read.
func csrfToken(c *gin.Context) (string, error) {
	if token := c.GetHeader(CSRFHeader); token != "" {
		return token, nil
	}
	if c.Request.Body == nil {
		return "", nil
	}

	contentType := c.ContentType()
	switch {
	case contentType == gin.MIMEJSON:
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			return "", err
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		var payload struct {
			CSRF string `json:"_csrf"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			// Malformed JSON is reported by the handler's binding.
			return "", nil
		}
		return payload.CSRF, nil
	case contentType == gin.MIMEPOSTForm || strings.HasPrefix(contentType, gin.MIMEMultipartPOSTForm):
		return c.PostForm(CSRFField), nil
	default:
		return "", nil
	}
}
