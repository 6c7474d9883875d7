// Package mocks provides testify mocks for the auth use cases and repositories.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	authDomain "github.com/anonymort/whistle/internal/auth/domain"
)

// MockAccountRepository is a mock implementation of AccountRepository.
type MockAccountRepository struct {
	mock.Mock
}

// Create mocks the Create method.
func (m *MockAccountRepository) Create(ctx context.Context, account *authDomain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

// GetByUsername mocks the GetByUsername method.
func (m *MockAccountRepository) GetByUsername(ctx context.Context, username string) (*authDomain.Account, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authDomain.Account), args.Error(1)
}

// MockSessionRepository is a mock implementation of SessionRepository.
type MockSessionRepository struct {
	mock.Mock
}

// Create mocks the Create method.
func (m *MockSessionRepository) Create(ctx context.Context, session *authDomain.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

// Get mocks the Get method.
func (m *MockSessionRepository) Get(ctx context.Context, id string) (*authDomain.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authDomain.Session), args.Error(1)
}

// Touch mocks the Touch method.
func (m *MockSessionRepository) Touch(ctx context.Context, id string, lastSeenAt, expiresAt time.Time) error {
	args := m.Called(ctx, id, lastSeenAt, expiresAt)
	return args.Error(0)
}

// SetCSRFSecret mocks the SetCSRFSecret method.
func (m *MockSessionRepository) SetCSRFSecret(ctx context.Context, id string, secret []byte) (bool, error) {
	args := m.Called(ctx, id, secret)
	return args.Bool(0), args.Error(1)
}

// Delete mocks the Delete method.
func (m *MockSessionRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// DeleteExpired mocks the DeleteExpired method.
func (m *MockSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// MockSessionUseCase is a mock implementation of SessionUseCase.
type MockSessionUseCase struct {
	mock.Mock
}

// Login mocks the Login method.
func (m *MockSessionUseCase) Login(ctx context.Context, input *authDomain.LoginInput) (*authDomain.LoginOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authDomain.LoginOutput), args.Error(1)
}

// Authenticate mocks the Authenticate method.
func (m *MockSessionUseCase) Authenticate(ctx context.Context, plainToken string) (*authDomain.Session, error) {
	args := m.Called(ctx, plainToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authDomain.Session), args.Error(1)
}

// StartReporterSession mocks the StartReporterSession method.
func (m *MockSessionUseCase) StartReporterSession(ctx context.Context) (*authDomain.LoginOutput, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authDomain.LoginOutput), args.Error(1)
}

// Logout mocks the Logout method.
func (m *MockSessionUseCase) Logout(ctx context.Context, session *authDomain.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

// IssueCSRFToken mocks the IssueCSRFToken method.
func (m *MockSessionUseCase) IssueCSRFToken(ctx context.Context, session *authDomain.Session) (string, error) {
	args := m.Called(ctx, session)
	return args.String(0), args.Error(1)
}

// VerifyCSRFToken mocks the VerifyCSRFToken method.
func (m *MockSessionUseCase) VerifyCSRFToken(session *authDomain.Session, token string) bool {
	args := m.Called(session, token)
	return args.Bool(0)
}

// DeleteExpired mocks the DeleteExpired method.
func (m *MockSessionUseCase) DeleteExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockAccountUseCase is a mock implementation of AccountUseCase.
type MockAccountUseCase struct {
	mock.Mock
}

// Create mocks the Create method.
func (m *MockAccountUseCase) Create(
	ctx context.Context,
	input *authDomain.CreateAccountInput,
) (*authDomain.CreateAccountOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authDomain.CreateAccountOutput), args.Error(1)
}
