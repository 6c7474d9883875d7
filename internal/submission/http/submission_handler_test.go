package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/anonymort/whistle/internal/crypto/domain"
	"github.com/anonymort/whistle/internal/httputil"
	scannerDomain "github.com/anonymort/whistle/internal/scanner/domain"
	submissionDomain "github.com/anonymort/whistle/internal/submission/domain"
	"github.com/anonymort/whistle/internal/submission/http/dto"
	submissionUseCase "github.com/anonymort/whistle/internal/submission/usecase"
	"github.com/anonymort/whistle/internal/submission/usecase/mocks"
)

func setupTestHandler(t *testing.T) (*SubmissionHandler, *mocks.MockSubmissionUseCase) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	useCase := &mocks.MockSubmissionUseCase{}
	t.Cleanup(func() { useCase.AssertExpectations(t) })
	return NewSubmissionHandler(useCase, slog.New(slog.NewTextHandler(io.Discard, nil))), useCase
}

func createTestContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, path, bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c, w
}

func TestSubmissionHandler_CreateHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler, useCase := setupTestHandler(t)
		useCase.On("Submit", mock.Anything, mock.MatchedBy(func(input *submissionDomain.CreateSubmissionInput) bool {
			return input.MessageEnvelope.Ciphertext == "c2VhbGVk" &&
				input.File != nil &&
				string(input.File.Data) == "hello" &&
				input.Contact == "reporter@example.org"
		})).Return(&submissionDomain.Submission{Reference: "0123456789abcdef"}, nil).Once()

		c, w := createTestContext(http.MethodPost, "/submit", []byte(`{
			"messageEnvelope": {"algorithmId": "age-x25519", "ciphertext": "c2VhbGVk"},
			"file": {"filename": "notes.txt", "mimeType": "text/plain", "data": "aGVsbG8="},
			"contact": "reporter@example.org",
			"_csrf": "ignored-here"
		}`))
		handler.CreateHandler(c)

		assert.Equal(t, http.StatusCreated, w.Code)
		var response dto.CreateSubmissionResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "0123456789abcdef", response.Reference)
	})

	t.Run("missing ciphertext is rejected before the use case", func(t *testing.T) {
		handler, useCase := setupTestHandler(t)
		useCase.On("Reject", mock.Anything, submissionUseCase.RejectInvalidMessage).Return().Once()

		c, w := createTestContext(http.MethodPost, "/submit",
			[]byte(`{"messageEnvelope": {"algorithmId": "age-x25519"}}`))
		handler.CreateHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		useCase.AssertNumberOfCalls(t, "Reject", 1)
		useCase.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
	})

	t.Run("malformed json", func(t *testing.T) {
		handler, useCase := setupTestHandler(t)
		useCase.On("Reject", mock.Anything, submissionUseCase.RejectMalformed).Return().Once()

		c, w := createTestContext(http.MethodPost, "/submit", []byte(`{"messageEnvelope":`))
		handler.CreateHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("scan rejection exposes the reason code", func(t *testing.T) {
		handler, useCase := setupTestHandler(t)
		useCase.On("Submit", mock.Anything, mock.Anything).Return(nil, &scannerDomain.ScanError{
			Result: scannerDomain.Reject(scannerDomain.StageHeuristic, scannerDomain.ReasonExecutableSignature, "PE executable"),
		}).Once()

		c, w := createTestContext(http.MethodPost, "/submit", []byte(`{
			"messageEnvelope": {"algorithmId": "age-x25519", "ciphertext": "c2VhbGVk"},
			"file": {"filename": "invoice.pdf", "data": "TVqQAA=="}
		}`))
		handler.CreateHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var response httputil.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "file_rejected", response.Error)
		assert.Equal(t, scannerDomain.ReasonExecutableSignature, response.Code)
		assert.NotContains(t, w.Body.String(), "PE executable")
	})

	t.Run("invalid envelope from the use case", func(t *testing.T) {
		handler, useCase := setupTestHandler(t)
		useCase.On("Submit", mock.Anything, mock.Anything).Return(nil, cryptoDomain.ErrInvalidEnvelope).Once()

		c, w := createTestContext(http.MethodPost, "/submit", []byte(`{
			"messageEnvelope": {"algorithmId": "age-x25519", "ciphertext": "c2VhbGVk", "integrityTag": "AAAA"}
		}`))
		handler.CreateHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSubmissionHandler_ListHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler, useCase := setupTestHandler(t)
		submittedAt := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
		useCase.On("List", mock.Anything, 0, 10).Return([]*submissionDomain.Submission{
			{
				Reference:       "0123456789abcdef",
				SubmittedAt:     submittedAt,
				Status:          submissionDomain.StatusReceived,
				Priority:        submissionDomain.PriorityRoutine,
				MessageEnvelope: &cryptoDomain.Envelope{AlgorithmID: "age-x25519", Ciphertext: "c2VhbGVk"},
			},
		}, nil).Once()

		c, w := createTestContext(http.MethodGet, "/investigator/submissions?limit=10", nil)
		handler.ListHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		var response dto.ListSubmissionsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		require.Len(t, response.Data, 1)
		assert.Equal(t, "0123456789abcdef", response.Data[0].Reference)
		assert.Equal(t, "c2VhbGVk", response.Data[0].MessageEnvelope.Ciphertext)
		assert.Nil(t, response.Data[0].FileEnvelope)
		assert.NotContains(t, w.Body.String(), "fileEnvelope")
	})

	t.Run("invalid pagination", func(t *testing.T) {
		handler, _ := setupTestHandler(t)

		c, w := createTestContext(http.MethodGet, "/investigator/submissions?limit=1000", nil)
		handler.ListHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
