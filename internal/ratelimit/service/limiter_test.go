package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/anonymort/whistle/internal/config"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(rules map[Category]Rule) (*Limiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)}
	limiter := NewLimiter(rules)
	limiter.now = clock.Now
	return limiter, clock
}

func TestLimiter_FixedWindow(t *testing.T) {
	limiter, clock := newTestLimiter(map[Category]Rule{
		CategoryAdminLogin: {Limit: 5, Window: 15 * time.Minute},
	})

	for i := range 5 {
		decision := limiter.Allow(CategoryAdminLogin, "203.0.113.7")
		require.True(t, decision.Allowed, "request %d", i+1)
		assert.Equal(t, 4-i, decision.Remaining)
	}

	clock.Advance(10 * time.Minute)
	decision := limiter.Allow(CategoryAdminLogin, "203.0.113.7")
	assert.False(t, decision.Allowed, "sixth request inside the window")
	assert.Equal(t, 5*time.Minute, decision.RetryAfter)
	assert.Equal(t, 5, decision.Limit)

	clock.Advance(5*time.Minute - time.Nanosecond)
	assert.False(t, limiter.Allow(CategoryAdminLogin, "203.0.113.7").Allowed, "one tick before the window ends")

	clock.Advance(time.Nanosecond)
	decision = limiter.Allow(CategoryAdminLogin, "203.0.113.7")
	assert.True(t, decision.Allowed, "the window has ended")
	assert.Equal(t, 4, decision.Remaining)
}

func TestLimiter_Isolation(t *testing.T) {
	limiter, _ := newTestLimiter(map[Category]Rule{
		CategorySubmission: {Limit: 1, Window: time.Minute},
		CategoryGeneral:    {Limit: 1, Window: time.Minute},
	})

	assert.True(t, limiter.Allow(CategorySubmission, "client-a").Allowed)
	assert.False(t, limiter.Allow(CategorySubmission, "client-a").Allowed)

	assert.True(t, limiter.Allow(CategorySubmission, "client-b").Allowed, "clients are independent")
	assert.True(t, limiter.Allow(CategoryGeneral, "client-a").Allowed, "categories are independent")
}

func TestLimiter_Unlimited(t *testing.T) {
	limiter, _ := newTestLimiter(map[Category]Rule{
		CategoryGeneral: {Limit: 0, Window: time.Minute},
	})

	for range 1000 {
		require.True(t, limiter.Allow(CategoryGeneral, "client").Allowed)
		require.True(t, limiter.Allow(CategorySensitiveSearch, "client").Allowed)
	}
}

func TestLimiter_Concurrent(t *testing.T) {
	limiter, _ := newTestLimiter(map[Category]Rule{
		CategorySubmission: {Limit: 50, Window: time.Minute},
	})

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for range 200 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Allow(CategorySubmission, "client").Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(50), allowed.Load())
}

func TestLimiter_Sweep(t *testing.T) {
	limiter, clock := newTestLimiter(map[Category]Rule{
		CategorySubmission: {Limit: 5, Window: time.Minute},
		CategoryAdminLogin: {Limit: 5, Window: 15 * time.Minute},
	})

	for i := range 3 {
		limiter.Allow(CategorySubmission, fmt.Sprintf("client-%d", i))
	}
	limiter.Allow(CategoryAdminLogin, "client-0")

	assert.Zero(t, limiter.Sweep())

	clock.Advance(time.Minute)
	assert.Equal(t, 3, limiter.Sweep())

	clock.Advance(14 * time.Minute)
	assert.Equal(t, 1, limiter.Sweep())
}

func TestLimiter_RunStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	limiter := NewLimiter(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		limiter.Run(ctx, time.Millisecond)
		close(done)
	}()

	time.Sleep(5 * time.Millisecond)
	cancel()
	<-done
}

func TestRulesFromConfig(t *testing.T) {
	cfg := &config.Config{
		RateLimitSubmission:              5,
		RateLimitSubmissionWindow:        time.Minute,
		RateLimitAdminLogin:              5,
		RateLimitAdminLoginWindow:        15 * time.Minute,
		RateLimitInvestigatorLogin:       5,
		RateLimitInvestigatorLoginWindow: 15 * time.Minute,
		RateLimitSensitiveSearch:         10,
		RateLimitSensitiveSearchWindow:   time.Minute,
		RateLimitGeneral:                 100,
		RateLimitGeneralWindow:           time.Minute,
	}

	rules := RulesFromConfig(cfg)
	assert.Len(t, rules, 5)
	assert.Equal(t, Rule{Limit: 5, Window: 15 * time.Minute}, rules[CategoryInvestigatorLogin])
	assert.Equal(t, Rule{Limit: 100, Window: time.Minute}, rules[CategoryGeneral])

	assert.True(t, CategoryAdminLogin.IsLogin())
	assert.False(t, CategorySubmission.IsLogin())
}
