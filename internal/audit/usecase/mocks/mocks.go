// Package mocks provides testify mocks for the audit ledger and its repository.
package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	auditDomain "github.com/anonymort/whistle/internal/audit/domain"
)

// MockAuditLogRepository is a mock implementation of AuditLogRepository.
type MockAuditLogRepository struct {
	mock.Mock
}

// Create mocks the Create method.
func (m *MockAuditLogRepository) Create(ctx context.Context, entry *auditDomain.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// List mocks the List method.
func (m *MockAuditLogRepository) List(
	ctx context.Context,
	offset, limit int,
	createdAtFrom, createdAtTo *time.Time,
) ([]*auditDomain.Entry, error) {
	args := m.Called(ctx, offset, limit, createdAtFrom, createdAtTo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*auditDomain.Entry), args.Error(1)
}

// MockAuditLogUseCase is a mock implementation of AuditLogUseCase.
type MockAuditLogUseCase struct {
	mock.Mock
}

// Record mocks the Record method.
func (m *MockAuditLogUseCase) Record(ctx context.Context, entry *auditDomain.Entry) {
	m.Called(ctx, entry)
}

// List mocks the List method.
func (m *MockAuditLogUseCase) List(
	ctx context.Context,
	offset, limit int,
	createdAtFrom, createdAtTo *time.Time,
) ([]*auditDomain.Entry, error) {
	args := m.Called(ctx, offset, limit, createdAtFrom, createdAtTo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*auditDomain.Entry), args.Error(1)
}

// VerifyBatch mocks the VerifyBatch method.
func (m *MockAuditLogUseCase) VerifyBatch(
	ctx context.Context,
	start, end time.Time,
) (*auditDomain.VerificationReport, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auditDomain.VerificationReport), args.Error(1)
}

// RecordingLedger captures recorded entries in memory. Use it where a test asserts on what was
// audited rather than on call expectations.
type RecordingLedger struct {
	mu      sync.Mutex
	entries []*auditDomain.Entry
}

// Record stores a copy of the entry, attributing it to the context actor like the real ledger.
func (r *RecordingLedger) Record(ctx context.Context, entry *auditDomain.Entry) {
	auditDomain.NoteRecorded(ctx, entry)
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *entry
	if copied.ActorID == "" {
		copied.ActorID = auditDomain.ActorFromContext(ctx)
	}
	r.entries = append(r.entries, &copied)
}

// Entries returns the recorded entries in order.
func (r *RecordingLedger) Entries() []*auditDomain.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*auditDomain.Entry(nil), r.entries...)
}

// ByAction returns the recorded entries with the given action.
func (r *RecordingLedger) ByAction(action string) []*auditDomain.Entry {
	var matched []*auditDomain.Entry
	for _, entry := range r.Entries() {
		if entry.Action == action {
			matched = append(matched, entry)
		}
	}
	return matched
}
