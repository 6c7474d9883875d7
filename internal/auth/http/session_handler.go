package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	authDomain "github.com/anonymort/whistle/internal/auth/domain"
	"github.com/anonymort/whistle/internal/auth/http/dto"
	authUseCase "github.com/anonymort/whistle/internal/auth/usecase"
	"github.com/anonymort/whistle/internal/httputil"
	customValidation "github.com/anonymort/whistle/internal/validation"
)

// SessionHandler handles the CSRF token, login and logout endpoints.
type SessionHandler struct {
	sessionUseCase authUseCase.SessionUseCase
	cookie         SessionCookie
	logger         *slog.Logger
}

// NewSessionHandler creates a new session handler with required dependencies.
func NewSessionHandler(
	sessionUseCase authUseCase.SessionUseCase,
	cookie SessionCookie,
	logger *slog.Logger,
) *SessionHandler {
	return &SessionHandler{
		sessionUseCase: sessionUseCase,
		cookie:         cookie,
		logger:         logger,
	}
}

// CSRFTokenHandler returns a CSRF token for the caller's session, first opening an anonymous
// reporter session when the request carries none.
// GET /csrf-token
func (h *SessionHandler) CSRFTokenHandler(c *gin.Context) {
	ctx := c.Request.Context()

	session, ok := GetSession(ctx)
	if !ok {
		output, err := h.sessionUseCase.StartReporterSession(ctx)
		if err != nil {
			httputil.HandleErrorGin(c, err, h.logger)
			return
		}
		h.cookie.Set(c, output.Token)
		session = output.Session
	}

	token, err := h.sessionUseCase.IssueCSRFToken(ctx, session)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, dto.CSRFTokenResponse{Token: token})
}

// LoginHandler returns the login endpoint granting role.
// POST /admin/login and POST /investigator/login
//
// Any session the caller already holds is discarded so a session id planted before login is
// never promoted.
func (h *SessionHandler) LoginHandler(role authDomain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dto.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httputil.HandleValidationErrorGin(c, err, h.logger)
			return
		}
		if err := req.Validate(); err != nil {
			httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
			return
		}

		ctx := c.Request.Context()
		output, err := h.sessionUseCase.Login(ctx, &authDomain.LoginInput{
			Username: req.Identifier(),
			Password: req.Password,
			TOTPCode: req.TOTP,
			Role:     role,
		})
		if err != nil {
			httputil.HandleErrorGin(c, err, h.logger)
			return
		}

		if previous, ok := GetSession(ctx); ok {
			if err := h.sessionUseCase.Logout(ctx, previous); err != nil {
				h.logger.Warn("failed to discard previous session", slog.Any("error", err))
			}
		}

		csrfToken, err := h.sessionUseCase.IssueCSRFToken(ctx, output.Session)
		if err != nil {
			httputil.HandleErrorGin(c, err, h.logger)
			return
		}

		h.cookie.Set(c, output.Token)
		c.Header("Cache-Control", "no-store")
		c.JSON(http.StatusOK, dto.MapLoginResponse(output.Session, csrfToken))
	}
}

// LogoutHandler destroys the caller's session.
// POST /logout - requires a session and CSRF token.
func (h *SessionHandler) LogoutHandler(c *gin.Context) {
	ctx := c.Request.Context()

	session, ok := GetSession(ctx)
	if !ok {
		httputil.HandleErrorGin(c, authDomain.ErrSessionNotFound, h.logger)
		return
	}

	if err := h.sessionUseCase.Logout(ctx, session); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.cookie.Clear(c)
	c.Status(http.StatusNoContent)
}
