// Package domain defines the audit ledger records shared by every security component.
package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	apperrors "github.com/anonymort/whistle/internal/errors"
)

// Severity ranks how urgently an entry needs human attention.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Outcome is the result of the audited decision.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeFailure  Outcome = "failure"
	OutcomeRejected Outcome = "rejected"
	OutcomeBlocked  Outcome = "blocked"
	OutcomeDenied   Outcome = "denied"
)

// Audited actions.
const (
	ActionLogin              = "auth.login"
	ActionLogout             = "auth.logout"
	ActionUnauthenticated    = "auth.unauthenticated"
	ActionForbidden          = "auth.forbidden"
	ActionCSRFReject         = "csrf.reject"
	ActionRateLimitBlock     = "ratelimit.block"
	ActionKeyGenerate        = "key.generate"
	ActionKeyRotate          = "key.rotate"
	ActionKeyDestroy         = "key.destroy"
	ActionPrivateKeyAccess   = "key.private_access"
	ActionScanReject         = "scan.reject"
	ActionSubmissionCreate   = "submission.create"
	ActionSubmissionReject   = "submission.reject"
	ActionSubmissionDecrypt  = "submission.decrypt"
	ActionSubmissionList     = "submission.list"
	ActionRetentionPurge     = "retention.purge"
	ActionAuditList          = "audit.list"
	ActionAccountCreate      = "account.create"
	ActionNotificationFailed = "notification.failed"
	ActionRequestError       = "http.error"
)

// Well known actors that are not reviewer accounts.
const (
	ActorAnonymous = "anonymous"
	ActorSystem    = "system"
	ActorCLI       = "cli"
)

// ErrSignatureInvalid indicates an entry's signature does not match its content.
var ErrSignatureInvalid = apperrors.New("audit log signature invalid")

// Entry is one append-only audit ledger record. The application never updates or deletes one.
type Entry struct {
	ID        uuid.UUID
	RequestID string
	ActorID   string
	Action    string
	Resource  string
	Outcome   Outcome
	Severity  Severity
	Details   map[string]any
	Signature []byte
	CreatedAt time.Time
}

// IsSigned reports whether the entry carries a signature.
func (e *Entry) IsSigned() bool {
	return len(e.Signature) > 0
}

// VerificationReport summarizes a signature check over a time range.
type VerificationReport struct {
	TotalChecked  int64
	SignedCount   int64
	UnsignedCount int64
	ValidCount    int64
	InvalidCount  int64
	InvalidLogs   []uuid.UUID
}

type requestIDKey struct{}

// ContextWithRequestID stores the request id audit entries are correlated with.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext returns the request id stored in ctx, if any.
func RequestIDFromContext(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDKey{}).(string)
	return requestID
}

type actorKey struct{}

// ContextWithActor stores the authenticated actor so ledger entries recorded deeper in the call
// chain are attributed without threading the id through every signature.
func ContextWithActor(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorKey{}, actorID)
}

// ActorFromContext returns the actor stored in ctx, if any.
func ActorFromContext(ctx context.Context) string {
	actorID, _ := ctx.Value(actorKey{}).(string)
	return actorID
}

type trackerKey struct{}

// FailureTracker remembers whether a request already produced a non-success ledger entry, so
// the catch-all error entry is written only for failures nothing else audited.
type FailureTracker struct {
	recorded atomic.Bool
}

// Recorded reports whether a non-success entry was recorded under the tracker.
func (t *FailureTracker) Recorded() bool {
	return t.recorded.Load()
}

// ContextWithFailureTracker attaches a fresh tracker to ctx.
func ContextWithFailureTracker(ctx context.Context) (context.Context, *FailureTracker) {
	tracker := &FailureTracker{}
	return context.WithValue(ctx, trackerKey{}, tracker), tracker
}

// NoteRecorded marks the tracker in ctx when entry describes anything but a success. Ledgers
// call it from Record.
func NoteRecorded(ctx context.Context, entry *Entry) {
	if entry.Outcome == OutcomeSuccess {
		return
	}
	if tracker, ok := ctx.Value(trackerKey{}).(*FailureTracker); ok {
		tracker.recorded.Store(true)
	}
}
