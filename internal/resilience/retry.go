package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Backoff is an exponential delay schedule.
type Backoff struct {
	// Initial is the delay before the first retry.
	Initial time.Duration
	// Max caps any single delay.
	Max time.Duration
	// Multiplier scales the delay after each attempt. Default: 2.0.
	Multiplier float64
	// Jitter adds ±Jitter of the computed delay (0 disables it).
	Jitter float64
}

// Delay returns the wait before retry number attempt (0-based).
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	mult := b.Multiplier
	if mult <= 0 {
		mult = 2.0
	}
	d := float64(b.Initial) * math.Pow(mult, float64(attempt))
	if b.Max > 0 && d > float64(b.Max) {
		d = float64(b.Max)
	}
	if b.Jitter > 0 {
		d += (rand.Float64()*2 - 1) * d * b.Jitter
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// RetryConfig controls retries. Rate-limit errors follow RateLimit; every
// other retryable error follows Transient.
type RetryConfig struct {
	// MaxAttempts counts the first try. 1 disables retries. Default: 3.
	MaxAttempts int

	RateLimit Backoff
	Transient Backoff

	// ShouldRetry overrides IsTransient.
	ShouldRetry func(err error) bool

	// OnRetry runs before each sleep.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultRetryConfig returns the schedule used for provider calls: rate
// limits wait 2s, 4s, 8s... capped at 30s; other transient failures wait
// about a second.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		RateLimit: Backoff{
			Initial:    2 * time.Second,
			Max:        30 * time.Second,
			Multiplier: 2.0,
			Jitter:     0.1,
		},
		Transient: Backoff{
			Initial:    1 * time.Second,
			Max:        5 * time.Second,
			Multiplier: 1.5,
			Jitter:     0.25,
		},
	}
}

// Delay picks the schedule for err and returns the wait before retry attempt.
// A server-supplied Retry-After hint wins, capped at RateLimit.Max.
func (c RetryConfig) Delay(attempt int, err error) time.Duration {
	if rl, ok := AsRateLimit(err); ok {
		if rl.RetryAfter > 0 {
			if c.RateLimit.Max > 0 && rl.RetryAfter > c.RateLimit.Max {
				return c.RateLimit.Max
			}
			return rl.RetryAfter
		}
		return c.RateLimit.Delay(attempt)
	}
	return c.Transient.Delay(attempt)
}

// DoVal runs fn until it succeeds, returns a non-retryable error, the
// attempts run out, or ctx is done. The last error is returned unchanged.
func DoVal[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	retryable := cfg.ShouldRetry
	if retryable == nil {
		retryable = IsTransient
	}

	var zero T
	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil || !retryable(err) || attempt == cfg.MaxAttempts-1 {
			break
		}

		delay := cfg.Delay(attempt, err)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}
	return zero, lastErr
}

// RetryLogger returns an OnRetry callback that logs each retry at warn.
func RetryLogger(log *zap.Logger, service, operation string) func(int, error, time.Duration) {
	if log == nil {
		log = zap.L()
	}
	return func(attempt int, err error, delay time.Duration) {
		log.Warn("retrying operation",
			zap.String("service", service),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Bool("rate_limited", IsRateLimited(err)),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
	}
}
