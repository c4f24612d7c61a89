package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts: attempts,
		RateLimit:   Backoff{Initial: 2 * time.Millisecond, Max: 5 * time.Millisecond},
		Transient:   Backoff{Initial: time.Millisecond, Max: 2 * time.Millisecond},
	}
}

// do adapts DoVal for calls with no result.
func do(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	_, err := DoVal(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func TestDoVal_SuccessOnFirstAttempt(t *testing.T) {
	var calls int
	err := do(context.Background(), fastConfig(3), func(_ context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDoVal_RetriesTransientThenSucceeds(t *testing.T) {
	var calls int
	err := do(context.Background(), fastConfig(3), func(_ context.Context) error {
		calls++
		if calls < 3 {
			return NewTransientError(errors.New("overloaded"), 529)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDoVal_ExhaustsAttempts(t *testing.T) {
	var calls int
	err := do(context.Background(), fastConfig(3), func(_ context.Context) error {
		calls++
		return NewRateLimitError(errors.New("slow down"), 0)
	})
	if !IsRateLimited(err) {
		t.Fatalf("expected last rate-limit error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDoVal_PermanentErrorNotRetried(t *testing.T) {
	var calls int
	err := do(context.Background(), fastConfig(3), func(_ context.Context) error {
		calls++
		return errors.New("invalid request")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDoVal_SingleAttempt(t *testing.T) {
	var calls int
	_ = do(context.Background(), fastConfig(1), func(_ context.Context) error {
		calls++
		return NewTransientError(errors.New("boom"), 500)
	})
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDoVal_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{
		MaxAttempts: 5,
		Transient:   Backoff{Initial: time.Hour, Max: time.Hour},
	}

	var calls int
	done := make(chan error, 1)
	go func() {
		done <- do(ctx, cfg, func(_ context.Context) error {
			calls++
			return NewTransientError(errors.New("boom"), 503)
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("DoVal did not return after cancellation")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDoVal_OnRetryReceivesDelay(t *testing.T) {
	var attempts []int
	var delays []time.Duration
	cfg := fastConfig(3)
	cfg.OnRetry = func(attempt int, _ error, delay time.Duration) {
		attempts = append(attempts, attempt)
		delays = append(delays, delay)
	}

	_ = do(context.Background(), cfg, func(_ context.Context) error {
		return NewRateLimitError(errors.New("429"), 0)
	})

	if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
		t.Fatalf("unexpected retry attempts: %v", attempts)
	}
	if delays[0] != 2*time.Millisecond || delays[1] != 4*time.Millisecond {
		t.Errorf("unexpected rate-limit delays: %v", delays)
	}
}

func TestDoVal_ReturnsValue(t *testing.T) {
	var calls int
	v, err := DoVal(context.Background(), fastConfig(2), func(_ context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", NewTransientError(errors.New("reset"), 0)
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "ok" {
		t.Errorf("expected ok, got %q", v)
	}
}

func TestBackoff_Delay(t *testing.T) {
	b := Backoff{Initial: time.Second, Max: 5 * time.Second, Multiplier: 2}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	for i, w := range want {
		if got := b.Delay(i); got != w {
			t.Errorf("attempt %d: expected %v, got %v", i, w, got)
		}
	}
}

func TestBackoff_JitterBounded(t *testing.T) {
	b := Backoff{Initial: 100 * time.Millisecond, Max: time.Second, Jitter: 0.5}
	for i := 0; i < 100; i++ {
		d := b.Delay(0)
		if d < 50*time.Millisecond || d > 150*time.Millisecond {
			t.Fatalf("delay %v outside jitter bounds", d)
		}
	}
}

func TestRetryConfig_DelaySchedules(t *testing.T) {
	cfg := DefaultRetryConfig()
	cfg.RateLimit.Jitter = 0
	cfg.Transient.Jitter = 0

	if got := cfg.Delay(0, NewRateLimitError(errors.New("429"), 0)); got != 2*time.Second {
		t.Errorf("rate limit attempt 0: got %v", got)
	}
	if got := cfg.Delay(1, NewRateLimitError(errors.New("429"), 0)); got != 4*time.Second {
		t.Errorf("rate limit attempt 1: got %v", got)
	}
	if got := cfg.Delay(0, NewRateLimitError(errors.New("429"), 7*time.Second)); got != 7*time.Second {
		t.Errorf("retry-after hint ignored: got %v", got)
	}
	if got := cfg.Delay(0, NewRateLimitError(errors.New("429"), time.Hour)); got != 30*time.Second {
		t.Errorf("retry-after hint not capped: got %v", got)
	}
	if got := cfg.Delay(0, NewTransientError(errors.New("500"), 500)); got != time.Second {
		t.Errorf("transient attempt 0: got %v", got)
	}
	if got := cfg.Delay(10, NewTransientError(errors.New("500"), 500)); got != 5*time.Second {
		t.Errorf("transient cap: got %v", got)
	}
}
