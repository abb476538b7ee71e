// Package guard wraps an llms.Model with client-side protections:
// a sliding window rate limiter, a circuit breaker and bounded retries
// on empty responses.
package guard

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"

	"github.com/tutorstack/tutor/pkg/llms"
	"github.com/tutorstack/tutor/pkg/metricskey"
)

var logger = xlog.NewPackageLogger("github.com/tutorstack/tutor", "guard")

var (
	// ErrRateLimited is returned when the client-side rate limit is exhausted.
	ErrRateLimited = errors.New("rate limit exceeded, please try again later")
	// ErrCircuitOpen is returned while the circuit breaker is open.
	ErrCircuitOpen = errors.New("service temporarily unavailable, circuit breaker is open")
)

const (
	DefaultFailureThreshold = 5
	DefaultResetTimeout     = 60 * time.Second
	DefaultRatePerMinute    = 30
	DefaultMaxRetries       = 2
)

// Option configures the Guard.
type Option func(*Guard)

// WithFailureThreshold sets the number of consecutive failures that open the breaker.
func WithFailureThreshold(n int) Option {
	return func(g *Guard) {
		g.failureThreshold = n
	}
}

// WithResetTimeout sets how long the breaker stays open before a probe is allowed.
func WithResetTimeout(d time.Duration) Option {
	return func(g *Guard) {
		g.resetTimeout = d
	}
}

// WithRatePerMinute sets the client-side request budget per minute.
func WithRatePerMinute(n int) Option {
	return func(g *Guard) {
		g.ratePerMinute = n
	}
}

// WithMaxRetries sets the number of retries on an empty response.
func WithMaxRetries(n int) Option {
	return func(g *Guard) {
		g.maxRetries = n
	}
}

// WithClock overrides the time source, used in tests.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) {
		g.now = now
	}
}

// Guard decorates an llms.Model with rate limiting and a circuit breaker.
type Guard struct {
	delegate llms.Model

	failureThreshold int
	resetTimeout     time.Duration
	ratePerMinute    int
	maxRetries       int
	now              func() time.Time

	mu           sync.Mutex
	failures     int
	openedAt     time.Time
	requestTimes []time.Time
}

var _ llms.Model = (*Guard)(nil)

// New wraps the provided model.
func New(delegate llms.Model, opts ...Option) *Guard {
	g := &Guard{
		delegate:         delegate,
		failureThreshold: DefaultFailureThreshold,
		resetTimeout:     DefaultResetTimeout,
		ratePerMinute:    DefaultRatePerMinute,
		maxRetries:       DefaultMaxRetries,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GetName implements the Model interface.
func (g *Guard) GetName() string {
	return g.delegate.GetName()
}

// GetProviderType implements the Model interface.
func (g *Guard) GetProviderType() llms.ProviderType {
	return g.delegate.GetProviderType()
}

// GenerateContent implements the [llms.Model] interface.
func (g *Guard) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	model := g.delegate.GetName()

	if err := g.admit(); err != nil {
		if errors.Is(err, ErrRateLimited) {
			metricskey.StatsLLMRateLimited.IncrCounter(1, model)
		} else {
			metricskey.StatsLLMBreakerOpen.IncrCounter(1, model)
		}
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			metricskey.StatsLLMRetries.IncrCounter(1, model)
			logger.ContextKV(ctx, xlog.DEBUG,
				"reason", "retry",
				"model", model,
				"attempt", attempt,
			)
		}

		resp, err := g.delegate.GenerateContent(ctx, messages, options...)
		if err != nil {
			g.recordFailure(err)
			return nil, err
		}
		if len(resp.Choices) > 0 {
			g.recordSuccess()
			return resp, nil
		}
		lastErr = errors.New("empty response from model")
	}

	g.recordFailure(lastErr)
	return nil, errors.WithMessagef(lastErr, "model %s failed after %d retries", model, g.maxRetries)
}

// admit checks breaker state and the sliding window budget.
func (g *Guard) admit() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()

	if g.failures >= g.failureThreshold {
		if now.Sub(g.openedAt) < g.resetTimeout {
			return errors.WithStack(ErrCircuitOpen)
		}
		// half-open: allow a single probe through
		g.failures = g.failureThreshold - 1
	}

	cutoff := now.Add(-time.Minute)
	kept := g.requestTimes[:0]
	for _, t := range g.requestTimes {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	g.requestTimes = kept

	if len(g.requestTimes) >= g.ratePerMinute {
		return errors.WithStack(ErrRateLimited)
	}
	g.requestTimes = append(g.requestTimes, now)
	return nil
}

func (g *Guard) recordFailure(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.failures++
	if g.failures == g.failureThreshold {
		g.openedAt = g.now()
		logger.KV(xlog.WARNING,
			"reason", "circuit_open",
			"model", g.delegate.GetName(),
			"failures", g.failures,
			"err", err.Error(),
		)
	}
}

func (g *Guard) recordSuccess() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures = 0
}
