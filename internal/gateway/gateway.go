// Package gateway sends instructions to the text-comprehension provider and
// returns its raw text, applying the retry policy, a request throttle and a
// circuit breaker.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/wo-matcher/internal/resilience"
)

// Gateway is the boundary to the text-comprehension provider.
type Gateway interface {
	Complete(ctx context.Context, instruction string) (string, error)
}

// Func adapts a plain function to Gateway.
type Func func(ctx context.Context, instruction string) (string, error)

// Complete calls f.
func (f Func) Complete(ctx context.Context, instruction string) (string, error) {
	return f(ctx, instruction)
}

var (
	// ErrUnavailable matches every failure to obtain a response after the
	// retry policy gave up or the circuit was open.
	ErrUnavailable = eris.New("gateway: provider unavailable")
	// ErrEmptyResponse is returned when the provider answered with no text.
	// It is never retried.
	ErrEmptyResponse = eris.New("gateway: empty response")
)

// UnavailableError carries the cause behind ErrUnavailable.
type UnavailableError struct {
	Attempts int
	Err      error
}

func (e *UnavailableError) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("gateway: provider unavailable after %d attempt(s): %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("gateway: provider unavailable: %v", e.Err)
}

// Unwrap exposes both the sentinel and the cause.
func (e *UnavailableError) Unwrap() []error { return []error{ErrUnavailable, e.Err} }

// IsUnavailable reports whether err means the provider could not be reached
// or returned nothing usable.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrEmptyResponse)
}

// RetryPolicy is the retry contract for provider calls. Rate-limit
// rejections and transient failures have separate schedules; empty or
// unusable responses get a single attempt.
type RetryPolicy struct {
	MaxAttempts int
	RateLimit   resilience.Backoff
	Transient   resilience.Backoff
}

// DefaultRetryPolicy returns three attempts with rate-limit waits of 2s and
// 4s and transient waits of about a second.
func DefaultRetryPolicy() RetryPolicy {
	d := resilience.DefaultRetryConfig()
	return RetryPolicy{
		MaxAttempts: d.MaxAttempts,
		RateLimit:   d.RateLimit,
		Transient:   d.Transient,
	}
}

func (p RetryPolicy) config(onRetry func(int, error, time.Duration)) resilience.RetryConfig {
	d := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.RateLimit.Initial <= 0 {
		p.RateLimit = d.RateLimit
	}
	if p.Transient.Initial <= 0 {
		p.Transient = d.Transient
	}
	return resilience.RetryConfig{
		MaxAttempts: p.MaxAttempts,
		RateLimit:   p.RateLimit,
		Transient:   p.Transient,
		ShouldRetry: resilience.IsTransient,
		OnRetry:     onRetry,
	}
}
