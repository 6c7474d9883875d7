// Package usecase implements the retention scheduler: a daily purge of old submissions plus
// destruction of expired keys and sessions.
package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/atomic"

	auditDomain "github.com/anonymort/whistle/internal/audit/domain"
	auditUseCase "github.com/anonymort/whistle/internal/audit/usecase"
	apperrors "github.com/anonymort/whistle/internal/errors"
	"github.com/anonymort/whistle/internal/metrics"
)

// Triggers recorded with each run.
const (
	TriggerStartup   = "startup"
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
)

// ErrRunInProgress is returned when a run is requested while another is still going.
var ErrRunInProgress = apperrors.Wrap(apperrors.ErrConflict, "retention run already in progress")

// SubmissionPurger deletes submissions older than a cutoff.
type SubmissionPurger interface {
	DeleteSubmittedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// KeyDestroyer destroys retired key pairs past their grace window.
type KeyDestroyer interface {
	DestroyExpired(ctx context.Context) (int, error)
}

// SessionSweeper deletes expired sessions.
type SessionSweeper interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// Config holds retention scheduler configuration.
type Config struct {
	// Window is how long submissions are kept.
	Window time.Duration
	// Hour and Minute are the daily UTC run time.
	Hour   int
	Minute int
}

// Report summarizes one run.
type Report struct {
	Trigger            string
	Cutoff             time.Time
	SubmissionsDeleted int64
	KeysDestroyed      int
	SessionsDeleted    int64
}

// Scheduler runs the retention check once on start and then daily. Scheduled and manual runs
// never overlap.
type Scheduler struct {
	config      Config
	submissions SubmissionPurger
	keys        KeyDestroyer
	sessions    SessionSweeper
	ledger      auditUseCase.Ledger
	metrics     metrics.BusinessMetrics
	logger      *slog.Logger
	now         func() time.Time

	running  atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once
}

// NewScheduler creates a retention scheduler.
func NewScheduler(
	config Config,
	submissions SubmissionPurger,
	keys KeyDestroyer,
	sessions SessionSweeper,
	ledger auditUseCase.Ledger,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		config:      config,
		submissions: submissions,
		keys:        keys,
		sessions:    sessions,
		ledger:      ledger,
		metrics:     businessMetrics,
		logger:      logger,
		now:         time.Now,
		stop:        make(chan struct{}),
	}
}

// NextRun returns the first hour:minute UTC strictly after now.
func NextRun(now time.Time, hour, minute int) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Start runs a check immediately and then once a day until ctx is canceled or Stop is called.
// Failed runs are logged and retried at the next scheduled time.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("starting retention scheduler",
		slog.Duration("window", s.config.Window),
		slog.Int("hour", s.config.Hour),
		slog.Int("minute", s.config.Minute),
	)

	ctx = auditDomain.ContextWithActor(ctx, auditDomain.ActorSystem)
	s.runLogged(ctx, TriggerStartup)

	timer := time.NewTimer(s.untilNextRun())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stopping retention scheduler")
			return nil
		case <-s.stop:
			s.logger.Info("stopping retention scheduler")
			return nil
		case <-timer.C:
			s.runLogged(ctx, TriggerScheduled)
			timer.Reset(s.untilNextRun())
		}
	}
}

// Stop ends the Start loop. It is safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Scheduler) untilNextRun() time.Duration {
	now := s.now()
	return NextRun(now, s.config.Hour, s.config.Minute).Sub(now)
}

func (s *Scheduler) runLogged(ctx context.Context, trigger string) {
	report, err := s.PerformRetentionCheck(ctx, trigger)
	if err != nil {
		s.logger.Error("retention run failed", slog.String("trigger", trigger), slog.Any("error", err))
		return
	}
	s.logger.Info("retention run finished",
		slog.String("trigger", trigger),
		slog.Int64("submissions_deleted", report.SubmissionsDeleted),
		slog.Int("keys_destroyed", report.KeysDestroyed),
		slog.Int64("sessions_deleted", report.SessionsDeleted),
	)
}

// PerformRetentionCheck deletes submissions submitted before now minus the window, destroys
// expired keys and deletes expired sessions. Every step is attempted; their errors are joined.
// Running it again right away deletes nothing.
func (s *Scheduler) PerformRetentionCheck(ctx context.Context, trigger string) (*Report, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer s.running.Store(false)

	start := time.Now()
	report := &Report{
		Trigger: trigger,
		Cutoff:  s.now().UTC().Add(-s.config.Window),
	}

	var errs []error
	deleted, err := s.submissions.DeleteSubmittedBefore(ctx, report.Cutoff)
	if err != nil {
		errs = append(errs, apperrors.Wrap(err, "failed to purge submissions"))
	}
	report.SubmissionsDeleted = deleted

	destroyed, err := s.keys.DestroyExpired(ctx)
	if err != nil {
		errs = append(errs, apperrors.Wrap(err, "failed to destroy expired keys"))
	}
	report.KeysDestroyed = destroyed

	sessions, err := s.sessions.DeleteExpired(ctx)
	if err != nil {
		errs = append(errs, apperrors.Wrap(err, "failed to delete expired sessions"))
	}
	report.SessionsDeleted = sessions

	runErr := apperrors.Join(errs...)
	outcome := auditDomain.OutcomeSuccess
	status := "success"
	if runErr != nil {
		outcome = auditDomain.OutcomeFailure
		status = "error"
	}

	s.ledger.Record(ctx, &auditDomain.Entry{
		Action:   auditDomain.ActionRetentionPurge,
		Resource: "submissions",
		Outcome:  outcome,
		Severity: auditDomain.SeverityMedium,
		Details: map[string]any{
			"trigger":             trigger,
			"cutoff":              report.Cutoff.Format(time.RFC3339),
			"submissions_deleted": report.SubmissionsDeleted,
			"keys_destroyed":      report.KeysDestroyed,
			"sessions_deleted":    report.SessionsDeleted,
		},
	})
	s.metrics.RecordOperation(ctx, "retention", "purge", status)
	s.metrics.RecordDuration(ctx, "retention", "purge", time.Since(start), status)

	if runErr != nil {
		return report, runErr
	}
	return report, nil
}
