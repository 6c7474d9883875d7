// Package mocks provides testify mocks for the key manager and its repository.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	cryptoDomain "github.com/anonymort/whistle/internal/crypto/domain"
)

// MockKeyPairRepository is a mock implementation of KeyPairRepository.
type MockKeyPairRepository struct {
	mock.Mock
}

// Create mocks the Create method.
func (m *MockKeyPairRepository) Create(ctx context.Context, keyPair *cryptoDomain.KeyPair) error {
	args := m.Called(ctx, keyPair)
	return args.Error(0)
}

// Retire mocks the Retire method.
func (m *MockKeyPairRepository) Retire(ctx context.Context, id uuid.UUID, retiredAt time.Time) error {
	args := m.Called(ctx, id, retiredAt)
	return args.Error(0)
}

// ListUsable mocks the ListUsable method.
func (m *MockKeyPairRepository) ListUsable(ctx context.Context) ([]*cryptoDomain.KeyPair, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*cryptoDomain.KeyPair), args.Error(1)
}

// Delete mocks the Delete method.
func (m *MockKeyPairRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockKeyManager is a mock implementation of KeyManager.
type MockKeyManager struct {
	mock.Mock
}

// Initialize mocks the Initialize method.
func (m *MockKeyManager) Initialize(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// GenerateKeyPair mocks the GenerateKeyPair method.
func (m *MockKeyManager) GenerateKeyPair() (*cryptoDomain.KeyPair, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.KeyPair), args.Error(1)
}

// ActivePublicKey mocks the ActivePublicKey method.
func (m *MockKeyManager) ActivePublicKey() (cryptoDomain.PublicKey, error) {
	args := m.Called()
	return args.Get(0).(cryptoDomain.PublicKey), args.Error(1)
}

// RotateKeys mocks the RotateKeys method.
func (m *MockKeyManager) RotateKeys(ctx context.Context) (cryptoDomain.PublicKey, error) {
	args := m.Called(ctx)
	return args.Get(0).(cryptoDomain.PublicKey), args.Error(1)
}

// DestroyExpired mocks the DestroyExpired method.
func (m *MockKeyManager) DestroyExpired(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// PrivateKey mocks the PrivateKey method.
func (m *MockKeyManager) PrivateKey(ctx context.Context, id uuid.UUID) ([]byte, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// Seal mocks the Seal method.
func (m *MockKeyManager) Seal(plaintext []byte) (*cryptoDomain.Envelope, error) {
	args := m.Called(plaintext)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.Envelope), args.Error(1)
}

// SealFile mocks the SealFile method.
func (m *MockKeyManager) SealFile(record *cryptoDomain.FileRecord) (*cryptoDomain.Envelope, error) {
	args := m.Called(record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.Envelope), args.Error(1)
}

// Open mocks the Open method.
func (m *MockKeyManager) Open(ctx context.Context, envelope *cryptoDomain.Envelope) ([]byte, error) {
	args := m.Called(ctx, envelope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// OpenFile mocks the OpenFile method.
func (m *MockKeyManager) OpenFile(ctx context.Context, envelope *cryptoDomain.Envelope) (*cryptoDomain.FileRecord, error) {
	args := m.Called(ctx, envelope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.FileRecord), args.Error(1)
}
