// Package dto provides data transfer objects for the submission endpoints.
package dto

import (
	"encoding/base64"
	"errors"

	validation "github.com/jellydator/validation"

	cryptoDto "github.com/anonymort/whistle/internal/crypto/http/dto"
	submissionDomain "github.com/anonymort/whistle/internal/submission/domain"
	customValidation "github.com/anonymort/whistle/internal/validation"
)

// FileRequest is a plaintext file the server scans and seals on arrival.
type FileRequest struct {
	Filename string `json:"filename"`
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // base64 (standard encoding)
}

// Validate checks the file is present and its data decodes.
func (f FileRequest) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Filename, validation.Required, validation.Length(1, 255)),
		validation.Field(&f.MIMEType, validation.Length(0, 127)),
		validation.Field(&f.Data, validation.Required, customValidation.Base64),
	)
}

// CreateSubmissionRequest is the body of POST /submit.
type CreateSubmissionRequest struct {
	MessageEnvelope *cryptoDto.Envelope `json:"messageEnvelope"`
	FileEnvelope    *cryptoDto.Envelope `json:"fileEnvelope"`
	File            *FileRequest        `json:"file"`
	Contact         string              `json:"contact"`
	Priority        string              `json:"priority"`
}

// Validate checks the request shape. Envelope contents are checked again by the use case.
func (r *CreateSubmissionRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.MessageEnvelope, validation.Required),
		validation.Field(&r.FileEnvelope),
		validation.Field(&r.File),
		validation.Field(&r.Contact, customValidation.Email),
		validation.Field(&r.Priority, validation.In(
			string(submissionDomain.PriorityRoutine),
			string(submissionDomain.PriorityUrgent),
		)),
	)
}

// InvalidField returns the first top-level field named in a validation error, if any.
func InvalidField(err error) string {
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return ""
	}
	for _, field := range []string{"messageEnvelope", "fileEnvelope", "file", "contact", "priority"} {
		if _, ok := errs[field]; ok {
			return field
		}
	}
	return ""
}

// ToDomain converts the request into use case input. Call Validate first.
func (r *CreateSubmissionRequest) ToDomain() (*submissionDomain.CreateSubmissionInput, error) {
	input := &submissionDomain.CreateSubmissionInput{
		MessageEnvelope: r.MessageEnvelope.ToDomain(),
		Contact:         r.Contact,
		Priority:        submissionDomain.Priority(r.Priority),
	}
	if r.FileEnvelope != nil {
		input.FileEnvelope = r.FileEnvelope.ToDomain()
	}
	if r.File != nil {
		data, err := base64.StdEncoding.DecodeString(r.File.Data)
		if err != nil {
			return nil, err
		}
		input.File = &submissionDomain.FileUpload{
			Filename: r.File.Filename,
			MIMEType: r.File.MIMEType,
			Data:     data,
		}
	}
	return input, nil
}
