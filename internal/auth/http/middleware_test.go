package http

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/anonymort/whistle/internal/audit/domain"
	auditMocks "github.com/anonymort/whistle/internal/audit/usecase/mocks"
	authDomain "github.com/anonymort/whistle/internal/auth/domain"
	"github.com/anonymort/whistle/internal/auth/usecase/mocks"
	"github.com/anonymort/whistle/internal/metrics"
)

var testCookie = SessionCookie{Name: "whistle_session", TTL: 30 * time.Minute}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func adminSession() *authDomain.Session {
	accountID := uuid.Must(uuid.NewV7())
	return &authDomain.Session{
		ID:         "admin-session",
		AccountID:  &accountID,
		Role:       authDomain.RoleAdmin,
		CSRFSecret: []byte("secret"),
		ExpiresAt:  time.Now().Add(30 * time.Minute),
	}
}

func withCookie(req *http.Request, token string) *http.Request {
	req.AddCookie(&http.Cookie{Name: testCookie.Name, Value: token})
	return req
}

func TestSessionMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(sessions *mocks.MockSessionUseCase) *gin.Engine {
		router := gin.New()
		router.Use(SessionMiddleware(sessions, testCookie, discardLogger()))
		router.GET("/whoami", func(c *gin.Context) {
			session, ok := GetSession(c.Request.Context())
			if !ok {
				c.String(http.StatusOK, "anonymous")
				return
			}
			c.String(http.StatusOK, string(session.Role)+"|"+auditDomain.ActorFromContext(c.Request.Context()))
		})
		return router
	}

	t.Run("no cookie continues anonymously", func(t *testing.T) {
		sessions := &mocks.MockSessionUseCase{}
		w := httptest.NewRecorder()
		newRouter(sessions).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))

		assert.Equal(t, "anonymous", w.Body.String())
		sessions.AssertNotCalled(t, "Authenticate", mock.Anything, mock.Anything)
	})

	t.Run("valid cookie attaches session and actor and refreshes cookie", func(t *testing.T) {
		sessions := &mocks.MockSessionUseCase{}
		session := adminSession()
		sessions.On("Authenticate", mock.Anything, "good-token").Return(session, nil).Once()

		w := httptest.NewRecorder()
		newRouter(sessions).ServeHTTP(w, withCookie(httptest.NewRequest(http.MethodGet, "/whoami", nil), "good-token"))

		assert.Equal(t, "admin|"+session.AccountID.String(), w.Body.String())
		setCookie := w.Header().Get("Set-Cookie")
		assert.Contains(t, setCookie, "whistle_session=good-token")
		assert.Contains(t, setCookie, "HttpOnly")
		assert.Contains(t, setCookie, "SameSite=Strict")
		assert.Contains(t, setCookie, "Max-Age=1800")
	})

	t.Run("expired cookie is cleared", func(t *testing.T) {
		sessions := &mocks.MockSessionUseCase{}
		sessions.On("Authenticate", mock.Anything, "stale").Return(nil, authDomain.ErrSessionExpired).Once()

		w := httptest.NewRecorder()
		newRouter(sessions).ServeHTTP(w, withCookie(httptest.NewRequest(http.MethodGet, "/whoami", nil), "stale"))

		assert.Equal(t, "anonymous", w.Body.String())
		assert.Contains(t, w.Header().Get("Set-Cookie"), "Max-Age=0")
	})

	t.Run("store failure is an internal error", func(t *testing.T) {
		sessions := &mocks.MockSessionUseCase{}
		sessions.On("Authenticate", mock.Anything, "token").Return(nil, assert.AnError).Once()

		w := httptest.NewRecorder()
		newRouter(sessions).ServeHTTP(w, withCookie(httptest.NewRequest(http.MethodGet, "/whoami", nil), "token"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)

	run := func(session *authDomain.Session) (*httptest.ResponseRecorder, *auditMocks.RecordingLedger) {
		ledger := &auditMocks.RecordingLedger{}
		router := gin.New()
		router.Use(func(c *gin.Context) {
			if session != nil {
				c.Request = c.Request.WithContext(WithSession(c.Request.Context(), session))
			}
			c.Next()
		})
		router.GET("/admin/audit-logs",
			RequireRole(ledger, discardLogger(), authDomain.RoleAdmin),
			func(c *gin.Context) { c.Status(http.StatusOK) },
		)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/audit-logs", nil))
		return w, ledger
	}

	t.Run("admin passes", func(t *testing.T) {
		w, ledger := run(adminSession())
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, ledger.Entries())
	})

	t.Run("no session is unauthenticated", func(t *testing.T) {
		w, ledger := run(nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.NotContains(t, w.Body.String(), "session not found")

		entries := ledger.ByAction(auditDomain.ActionUnauthenticated)
		require.Len(t, entries, 1)
		assert.Equal(t, auditDomain.SeverityMedium, entries[0].Severity)
		assert.Empty(t, ledger.ByAction(auditDomain.ActionForbidden))
	})

	t.Run("wrong role is forbidden", func(t *testing.T) {
		w, ledger := run(&authDomain.Session{ID: "s", Role: authDomain.RoleInvestigator})
		assert.Equal(t, http.StatusForbidden, w.Code)

		entries := ledger.ByAction(auditDomain.ActionForbidden)
		require.Len(t, entries, 1)
		assert.Equal(t, auditDomain.SeverityHigh, entries[0].Severity)
		assert.Equal(t, "investigator", entries[0].Details["role"])
	})

	t.Run("reporter session is forbidden", func(t *testing.T) {
		w, _ := run(&authDomain.Session{ID: "s", Role: authDomain.RoleReporter})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestCSRFMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	session := adminSession()

	type request struct {
		method      string
		body        string
		contentType string
		header      string
		withSession bool
	}

	run := func(sessions *mocks.MockSessionUseCase, r request) (*httptest.ResponseRecorder, *auditMocks.RecordingLedger, string) {
		ledger := &auditMocks.RecordingLedger{}
		var seenBody string

		router := gin.New()
		router.Use(func(c *gin.Context) {
			if r.withSession {
				c.Request = c.Request.WithContext(WithSession(c.Request.Context(), session))
			}
			c.Next()
		})
		router.Use(CSRFMiddleware(sessions, ledger, metrics.NewNoOpBusinessMetrics(), discardLogger()))
		handler := func(c *gin.Context) {
			body, _ := io.ReadAll(c.Request.Body)
			seenBody = string(body)
			c.Status(http.StatusOK)
		}
		router.Any("/logout", handler)

		req := httptest.NewRequest(r.method, "/logout", strings.NewReader(r.body))
		if r.contentType != "" {
			req.Header.Set("Content-Type", r.contentType)
		}
		if r.header != "" {
			req.Header.Set(CSRFHeader, r.header)
		}

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w, ledger, seenBody
	}

	t.Run("safe methods pass without token", func(t *testing.T) {
		sessions := &mocks.MockSessionUseCase{}
		for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodOptions} {
			w, ledger, _ := run(sessions, request{method: method})
			assert.Equal(t, http.StatusOK, w.Code, method)
			assert.Empty(t, ledger.Entries())
		}
		sessions.AssertNotCalled(t, "VerifyCSRFToken", mock.Anything, mock.Anything)
	})

	t.Run("header token", func(t *testing.T) {
		sessions := &mocks.MockSessionUseCase{}
		sessions.On("VerifyCSRFToken", session, "header-token").Return(true).Once()

		w, _, _ := run(sessions, request{method: http.MethodPost, header: "header-token", withSession: true})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("json field token leaves body readable", func(t *testing.T) {
		sessions := &mocks.MockSessionUseCase{}
		sessions.On("VerifyCSRFToken", session, "json-token").Return(true).Once()
		body := `{"_csrf":"json-token","messageEnvelope":{}}`

		w, _, seen := run(sessions, request{
			method:      http.MethodPost,
			body:        body,
			contentType: "application/json",
			withSession: true,
		})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, body, seen)
	})

	t.Run("form field token", func(t *testing.T) {
		sessions := &mocks.MockSessionUseCase{}
		sessions.On("VerifyCSRFToken", session, "form-token").Return(true).Once()

		w, _, _ := run(sessions, request{
			method:      http.MethodPut,
			body:        url.Values{"_csrf": {"form-token"}}.Encode(),
			contentType: "application/x-www-form-urlencoded",
			withSession: true,
		})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	rejections := []struct {
		name   string
		req    request
		verify bool
		reason string
	}{
		{"missing token", request{method: http.MethodPost, withSession: true}, false, "missing_token"},
		{"no session", request{method: http.MethodPut, header: "token"}, false, "no_session"},
		{"mutated token", request{method: http.MethodPatch, header: "tampered", withSession: true}, true, "invalid_token"},
	}

	for _, tt := range rejections {
		t.Run(tt.name, func(t *testing.T) {
			sessions := &mocks.MockSessionUseCase{}
			if tt.verify {
				sessions.On("VerifyCSRFToken", session, tt.req.header).Return(false).Once()
			}

			w, ledger, _ := run(sessions, tt.req)
			assert.Equal(t, http.StatusForbidden, w.Code)
			assert.NotContains(t, w.Body.String(), "csrf")

			entries := ledger.ByAction(auditDomain.ActionCSRFReject)
			require.Len(t, entries, 1)
			assert.Equal(t, auditDomain.SeverityHigh, entries[0].Severity)
			assert.Equal(t, tt.reason, entries[0].Details["reason"])
			sessions.AssertExpectations(t)
		})
	}
}
