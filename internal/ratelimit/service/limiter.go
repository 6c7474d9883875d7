// Package service implements fixed window rate limiting per category and client.
package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/anonymort/whistle/internal/config"
)

// Category names a group of routes sharing one budget.
type Category string

const (
	CategorySubmission        Category = "submission"
	CategoryAdminLogin        Category = "admin_login"
	CategoryInvestigatorLogin Category = "investigator_login"
	CategorySensitiveSearch   Category = "sensitive_search"
	CategoryGeneral           Category = "general"
)

// IsLogin reports whether the category protects a login endpoint.
func (c Category) IsLogin() bool {
	return c == CategoryAdminLogin || c == CategoryInvestigatorLogin
}

// Rule is the budget of one category: Limit requests per Window.
type Rule struct {
	Limit  int
	Window time.Duration
}

// RulesFromConfig builds the category rules from configuration.
func RulesFromConfig(cfg *config.Config) map[Category]Rule {
	return map[Category]Rule{
		CategorySubmission:        {Limit: cfg.RateLimitSubmission, Window: cfg.RateLimitSubmissionWindow},
		CategoryAdminLogin:        {Limit: cfg.RateLimitAdminLogin, Window: cfg.RateLimitAdminLoginWindow},
		CategoryInvestigatorLogin: {Limit: cfg.RateLimitInvestigatorLogin, Window: cfg.RateLimitInvestigatorLoginWindow},
		CategorySensitiveSearch:   {Limit: cfg.RateLimitSensitiveSearch, Window: cfg.RateLimitSensitiveSearchWindow},
		CategoryGeneral:           {Limit: cfg.RateLimitGeneral, Window: cfg.RateLimitGeneralWindow},
	}
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	Window    time.Duration
	// RetryAfter is the time until the current window ends. Zero when allowed.
	RetryAfter time.Duration
}

// bucket counts requests in the window that started at windowStart.
type bucket struct {
	mu          sync.Mutex
	windowStart time.Time
	count       int
	// swept is set once Sweep removed the bucket from the map.
	swept bool
}

// Limiter keeps one fixed window bucket per category and client. A window opens with the
// first request and lasts the category's Window; the first request at or after its end opens
// a fresh one.
type Limiter struct {
	rules   map[Category]Rule
	buckets sync.Map // map[string]*bucket
	now     func() time.Time
}

// NewLimiter creates a limiter. Categories without a rule, or with a non-positive limit or
// window, are not limited.
func NewLimiter(rules map[Category]Rule) *Limiter {
	return &Limiter{rules: rules, now: time.Now}
}

// Rule returns the rule configured for category.
func (l *Limiter) Rule(category Category) (Rule, bool) {
	rule, ok := l.rules[category]
	if !ok || rule.Limit <= 0 || rule.Window <= 0 {
		return Rule{}, false
	}
	return rule, true
}

// Allow counts one request by client in category.
func (l *Limiter) Allow(category Category, client string) Decision {
	rule, ok := l.Rule(category)
	if !ok {
		return Decision{Allowed: true}
	}

	key := bucketKey(category, client)
	var b *bucket
	for {
		value, _ := l.buckets.LoadOrStore(key, &bucket{})
		b = value.(*bucket)
		b.mu.Lock()
		if !b.swept {
			break
		}
		b.mu.Unlock()
	}
	defer b.mu.Unlock()

	now := l.now()

	if b.windowStart.IsZero() || !now.Before(b.windowStart.Add(rule.Window)) {
		b.windowStart = now
		b.count = 0
	}

	decision := Decision{Limit: rule.Limit, Window: rule.Window}
	if b.count >= rule.Limit {
		decision.RetryAfter = b.windowStart.Add(rule.Window).Sub(now)
		return decision
	}

	b.count++
	decision.Allowed = true
	decision.Remaining = rule.Limit - b.count
	return decision
}

// Sweep drops buckets whose window has ended and returns how many were removed.
func (l *Limiter) Sweep() int {
	now := l.now()
	removed := 0

	l.buckets.Range(func(key, value any) bool {
		b := value.(*bucket)
		category, _ := splitBucketKey(key.(string))
		rule, ok := l.Rule(category)

		b.mu.Lock()
		if !ok || !now.Before(b.windowStart.Add(rule.Window)) {
			b.swept = true
			l.buckets.Delete(key)
			removed++
		}
		b.mu.Unlock()
		return true
	})
	return removed
}

// Run sweeps every interval until ctx is canceled.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

func bucketKey(category Category, client string) string {
	return string(category) + "|" + client
}

func splitBucketKey(key string) (Category, string) {
	category, client, _ := strings.Cut(key, "|")
	return Category(category), client
}
