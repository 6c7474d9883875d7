package dto

import (
	"time"

	cryptoDto "github.com/anonymort/whistle/internal/crypto/http/dto"
	submissionDomain "github.com/anonymort/whistle/internal/submission/domain"
)

// CreateSubmissionResponse returns the reference the reporter keeps.
type CreateSubmissionResponse struct {
	Reference string `json:"reference"`
}

// SubmissionResponse is one stored submission. Only envelopes are exposed.
type SubmissionResponse struct {
	Reference       string              `json:"reference"`
	SubmittedAt     time.Time           `json:"submittedAt"`
	Status          string              `json:"status"`
	Priority        string              `json:"priority"`
	MessageEnvelope *cryptoDto.Envelope `json:"messageEnvelope"`
	FileEnvelope    *cryptoDto.Envelope `json:"fileEnvelope,omitempty"`
}

// ListSubmissionsResponse represents a page of submissions.
type ListSubmissionsResponse struct {
	Data []SubmissionResponse `json:"data"`
}

// MapSubmissionsToListResponse converts domain submissions to a list API response.
func MapSubmissionsToListResponse(submissions []*submissionDomain.Submission) ListSubmissionsResponse {
	responses := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, SubmissionResponse{
			Reference:       submission.Reference,
			SubmittedAt:     submission.SubmittedAt,
			Status:          string(submission.Status),
			Priority:        string(submission.Priority),
			MessageEnvelope: cryptoDto.MapEnvelope(submission.MessageEnvelope),
			FileEnvelope:    cryptoDto.MapEnvelope(submission.FileEnvelope),
		})
	}
	return ListSubmissionsResponse{Data: responses}
}
