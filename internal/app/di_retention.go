package app

import (
	"fmt"

	"github.com/anonymort/whistle/internal/config"
	ratelimitService "github.com/anonymort/whistle/internal/ratelimit/service"
	retentionHTTP "github.com/anonymort/whistle/internal/retention/http"
	retentionUseCase "github.com/anonymort/whistle/internal/retention/usecase"
)

// Limiter returns the process wide rate limiter. With RATE_LIMIT_ENABLED=false every category is
// unlimited.
func (c *Container) Limiter() *ratelimitService.Limiter {
	c.limiterInit.Do(func() {
		rules := map[ratelimitService.Category]ratelimitService.Rule{}
		if c.config.RateLimitEnabled {
			rules = ratelimitService.RulesFromConfig(c.config)
		}
		c.limiter = ratelimitService.NewLimiter(rules)
	})
	return c.limiter
}

// RetentionScheduler returns the retention scheduler.
func (c *Container) RetentionScheduler() (*retentionUseCase.Scheduler, error) {
	return lazy(c, &c.schedulerInit, "retentionScheduler", &c.scheduler, c.initRetentionScheduler)
}

// PurgeHandler returns the HTTP handler for manual purges.
func (c *Container) PurgeHandler() (*retentionHTTP.PurgeHandler, error) {
	return lazy(c, &c.purgeHandlerInit, "purgeHandler", &c.purgeHandler, c.initPurgeHandler)
}

// initRetentionScheduler creates the scheduler with all its dependencies.
func (c *Container) initRetentionScheduler() (*retentionUseCase.Scheduler, error) {
	schedulerConfig, err := retentionConfig(c.config)
	if err != nil {
		return nil, err
	}

	submissions, err := c.SubmissionRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get submission repository for retention scheduler: %w", err)
	}

	keyManager, err := c.KeyManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get key manager for retention scheduler: %w", err)
	}

	sessions, err := c.SessionUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get session use case for retention scheduler: %w", err)
	}

	ledger, err := c.AuditLogUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit ledger for retention scheduler: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for retention scheduler: %w", err)
	}

	return retentionUseCase.NewScheduler(
		schedulerConfig,
		submissions,
		keyManager,
		sessions,
		ledger,
		businessMetrics,
		c.Logger(),
	), nil
}

// initPurgeHandler creates the purge HTTP handler.
func (c *Container) initPurgeHandler() (*retentionHTTP.PurgeHandler, error) {
	scheduler, err := c.RetentionScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to get retention scheduler for purge handler: %w", err)
	}
	return retentionHTTP.NewPurgeHandler(scheduler, c.Logger()), nil
}

func retentionConfig(cfg *config.Config) (retentionUseCase.Config, error) {
	if cfg.RetentionDays < 1 {
		return retentionUseCase.Config{}, fmt.Errorf("RETENTION_DAYS must be at least 1, got %d", cfg.RetentionDays)
	}
	hour, minute, err := cfg.RetentionTimeOfDay()
	if err != nil {
		return retentionUseCase.Config{}, err
	}
	return retentionUseCase.Config{
		Window: cfg.RetentionWindow(),
		Hour:   hour,
		Minute: minute,
	}, nil
}
