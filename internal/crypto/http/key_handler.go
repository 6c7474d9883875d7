// Package http provides HTTP handlers for the public key, key rotation and privileged decryption.
package http

import (
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	auditDomain "github.com/anonymort/whistle/internal/audit/domain"
	auditUseCase "github.com/anonymort/whistle/internal/audit/usecase"
	"github.com/anonymort/whistle/internal/crypto/http/dto"
	cryptoUseCase "github.com/anonymort/whistle/internal/crypto/usecase"
	"github.com/anonymort/whistle/internal/httputil"
	customValidation "github.com/anonymort/whistle/internal/validation"
)

// KeyHandler handles HTTP requests that touch the key manager.
type KeyHandler struct {
	keyManager cryptoUseCase.KeyManager
	ledger     auditUseCase.Ledger
	logger     *slog.Logger
}

// NewKeyHandler creates a new key handler with required dependencies.
func NewKeyHandler(
	keyManager cryptoUseCase.KeyManager,
	ledger auditUseCase.Ledger,
	logger *slog.Logger,
) *KeyHandler {
	return &KeyHandler{
		keyManager: keyManager,
		ledger:     ledger,
		logger:     logger,
	}
}

// PublicKeyHandler returns the active public key.
// GET /admin/public-key - anonymous, used for client-side sealing.
func (h *KeyHandler) PublicKeyHandler(c *gin.Context) {
	public, err := h.keyManager.ActivePublicKey()
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, dto.MapPublicKey(public))
}

// RotateKeysHandler rotates the active key pair.
// POST /admin/rotate-keys - requires an admin session and CSRF token.
func (h *KeyHandler) RotateKeysHandler(c *gin.Context) {
	public, err := h.keyManager.RotateKeys(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, dto.MapPublicKey(public))
}

// DecryptHandler opens an envelope for an administrator.
// POST /admin/decrypt - requires an admin session and CSRF token. Every attempt is audited as
// privileged data access; failures return the same generic body whatever the cause.
func (h *KeyHandler) DecryptHandler(c *gin.Context) {
	var req dto.DecryptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	ctx := c.Request.Context()
	envelope := req.Envelope.ToDomain()
	var response dto.DecryptResponse
	var err error

	if req.Kind == dto.DecryptKindFile {
		record, openErr := h.keyManager.OpenFile(ctx, envelope)
		if err = openErr; err == nil {
			response.File = &dto.FileResponse{
				Filename: record.Filename,
				MIMEType: record.MIMEType,
				Size:     record.Size,
				Data:     record.Data,
			}
		}
	} else {
		plaintext, openErr := h.keyManager.Open(ctx, envelope)
		if err = openErr; err == nil {
			message := string(plaintext)
			response.Plaintext = &message
		}
	}

	outcome := auditDomain.OutcomeSuccess
	if err != nil {
		outcome = auditDomain.OutcomeFailure
	}
	h.ledger.Record(ctx, &auditDomain.Entry{
		Action:   auditDomain.ActionSubmissionDecrypt,
		Resource: c.FullPath(),
		Outcome:  outcome,
		Severity: auditDomain.SeverityHigh,
		Details: map[string]any{
			"algorithm":    envelope.AlgorithmID,
			"integrityTag": envelope.IntegrityTag,
			"kind":         kindOrDefault(req.Kind),
		},
	})

	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, response)
}

var keyPathPattern = regexp.MustCompile(`(?i)/admin/keys/([^/]+)/private`)

// IsPrivateKeyPath reports whether path asks for private key material.
func IsPrivateKeyPath(path string) bool {
	return strings.Contains(strings.ToLower(path), "private-key") || keyPathPattern.MatchString(path)
}

// PrivateKeyTrap answers every request for private key material with a generic 403, whatever
// the method or session. The key manager records the attempt at critical severity.
func (h *KeyHandler) PrivateKeyTrap() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsPrivateKeyPath(c.Request.URL.Path) {
			c.Next()
			return
		}

		var id uuid.UUID
		if match := keyPathPattern.FindStringSubmatch(c.Request.URL.Path); match != nil {
			id, _ = uuid.Parse(match[1])
		}
		_, err := h.keyManager.PrivateKey(c.Request.Context(), id)
		httputil.HandleErrorGin(c, err, h.logger)
	}
}

func kindOrDefault(kind string) string {
	if kind == "" {
		return dto.DecryptKindMessage
	}
	return kind
}
