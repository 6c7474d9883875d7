// Package mocks provides testify mocks for the submission use case and repository.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	submissionDomain "github.com/anonymort/whistle/internal/submission/domain"
)

// MockSubmissionRepository is a mock implementation of SubmissionRepository.
type MockSubmissionRepository struct {
	mock.Mock
}

// Create mocks the Create method.
func (m *MockSubmissionRepository) Create(ctx context.Context, submission *submissionDomain.Submission) error {
	args := m.Called(ctx, submission)
	return args.Error(0)
}

// GetByReference mocks the GetByReference method.
func (m *MockSubmissionRepository) GetByReference(
	ctx context.Context,
	reference string,
) (*submissionDomain.Submission, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*submissionDomain.Submission), args.Error(1)
}

// List mocks the List method.
func (m *MockSubmissionRepository) List(ctx context.Context, offset, limit int) ([]*submissionDomain.Submission, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*submissionDomain.Submission), args.Error(1)
}

// DeleteSubmittedBefore mocks the DeleteSubmittedBefore method.
func (m *MockSubmissionRepository) DeleteSubmittedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// MockSubmissionUseCase is a mock implementation of SubmissionUseCase.
type MockSubmissionUseCase struct {
	mock.Mock
}

// Submit mocks the Submit method.
func (m *MockSubmissionUseCase) Submit(
	ctx context.Context,
	input *submissionDomain.CreateSubmissionInput,
) (*submissionDomain.Submission, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*submissionDomain.Submission), args.Error(1)
}

// Reject mocks the Reject method.
func (m *MockSubmissionUseCase) Reject(ctx context.Context, reason string) {
	m.Called(ctx, reason)
}

// List mocks the List method.
func (m *MockSubmissionUseCase) List(ctx context.Context, offset, limit int) ([]*submissionDomain.Submission, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*submissionDomain.Submission), args.Error(1)
}
