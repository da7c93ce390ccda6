package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// ErrRateLimited marks an error as a throttling response from the upstream.
// Callers may wrap it so the limiter retries with backoff; errors whose text
// mentions rate limiting are classified the same way.
var ErrRateLimited = errors.New("rate limited by upstream")

// Config holds the limiter tuning knobs.
type Config struct {
	// BaseDelay is the spacing between calls under normal conditions and the
	// floor the delay decays back to.
	BaseDelay time.Duration

	// MinDelay is the absolute minimum spacing, applied if BaseDelay is
	// configured below it.
	MinDelay time.Duration

	// MaxDelay caps the delay growth under sustained throttling.
	MaxDelay time.Duration

	// MaxAttempts bounds how many times Do retries a throttled call.
	MaxAttempts int

	// BackoffMultiplier scales the delay up on each throttling signal.
	BackoffMultiplier float64

	// DecayFactor scales the delay down after a first-attempt success.
	DecayFactor float64

	// RetryBase is the base for the exponential sleep between retry attempts.
	RetryBase time.Duration
}

// DefaultConfig returns a Config with the tuning the system was designed
// around: one call per second at rest, up to ten seconds under pressure.
func DefaultConfig() Config {
	return Config{
		BaseDelay:         time.Second,
		MinDelay:          500 * time.Millisecond,
		MaxDelay:          10 * time.Second,
		MaxAttempts:       3,
		BackoffMultiplier: 2.0,
		DecayFactor:       0.8,
		RetryBase:         5 * time.Second,
	}
}

// Limiter serializes outbound calls to one external dependency.
// A single instance is shared process-wide; all state is guarded by mu.
type Limiter struct {
	cfg    Config
	logger *slog.Logger

	mu           sync.Mutex
	lastRequest  time.Time
	currentDelay time.Duration

	// now is injectable for tests.
	now func() time.Time
}

// New creates a Limiter. Invalid config values fall back to defaults.
func New(cfg Config, logger *slog.Logger) *Limiter {
	def := DefaultConfig()
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.MinDelay <= 0 {
		cfg.MinDelay = def.MinDelay
	}
	if cfg.BaseDelay < cfg.MinDelay {
		cfg.BaseDelay = cfg.MinDelay
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = def.MaxDelay
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BackoffMultiplier <= 1 {
		cfg.BackoffMultiplier = def.BackoffMultiplier
	}
	if cfg.DecayFactor <= 0 || cfg.DecayFactor >= 1 {
		cfg.DecayFactor = def.DecayFactor
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = def.RetryBase
	}

	return &Limiter{
		cfg:          cfg,
		logger:       logger,
		currentDelay: cfg.BaseDelay,
		now:          time.Now,
	}
}

// WaitIfNeeded blocks until at least the current delay has elapsed since the
// previous admission, then records the new admission time. Sleeping happens
// under the lock so exactly one caller is released per delay interval, in
// arrival order at the lock.
func (l *Limiter) WaitIfNeeded(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	elapsed := l.now().Sub(l.lastRequest)
	if wait := l.currentDelay - elapsed; wait > 0 {
		l.logger.Debug("rate limiting protection: waiting before next call",
			"wait", wait,
			"current_delay", l.currentDelay)
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	l.lastRequest = l.now()
	return nil
}

// IncreaseDelay grows the spacing after a throttling signal, up to MaxDelay.
func (l *Limiter) IncreaseDelay() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.currentDelay = min(
		time.Duration(float64(l.currentDelay)*l.cfg.BackoffMultiplier),
		l.cfg.MaxDelay,
	)
	l.logger.Warn("increased rate limit delay due to upstream throttling",
		"current_delay", l.currentDelay)
}

// DecreaseDelay shrinks the spacing after a successful call, down to BaseDelay.
func (l *Limiter) DecreaseDelay() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.currentDelay = max(
		time.Duration(float64(l.currentDelay)*l.cfg.DecayFactor),
		l.cfg.BaseDelay,
	)
}

// ResetDelay restores the spacing to BaseDelay.
func (l *Limiter) ResetDelay() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.currentDelay = l.cfg.BaseDelay
}

// CurrentDelay reports the spacing currently in effect.
func (l *Limiter) CurrentDelay() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.currentDelay
}

// Do executes fn behind the limiter. Throttling-class errors are retried up
// to MaxAttempts times with compounding randomized backoff; any other error
// propagates immediately. A success on the first attempt decays the delay.
func Do[T any](ctx context.Context, l *Limiter, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt < l.cfg.MaxAttempts; attempt++ {
		if err := l.WaitIfNeeded(ctx); err != nil {
			return zero, err
		}

		result, err := fn()
		if err == nil {
			if attempt == 0 {
				l.DecreaseDelay()
			}
			return result, nil
		}

		if !IsRateLimitError(err) {
			return zero, err
		}

		lastErr = err
		l.IncreaseDelay()
		l.logger.Warn("rate limit detected, backing off",
			"attempt", attempt+1,
			"max_attempts", l.cfg.MaxAttempts,
			"error", err)

		if attempt < l.cfg.MaxAttempts-1 {
			// Exponential backoff with jitter of up to 60% of the base,
			// so concurrent callers do not retry in lockstep.
			backoff := time.Duration(1<<attempt)*l.cfg.RetryBase + time.Duration(rand.Int63n(int64(3*l.cfg.RetryBase/5+1)))
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
		}
	}

	return zero, lastErr
}

// IsRateLimitError reports whether err signals upstream throttling, either by
// wrapping ErrRateLimited or by mentioning it in the error text.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate") ||
		strings.Contains(msg, "limit") ||
		strings.Contains(msg, "quota")
}
