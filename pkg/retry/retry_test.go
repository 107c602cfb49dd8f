package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig(maxRetries int) *Config {
	return &Config{
		MaxRetries:      maxRetries,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2.0,
	}
}

func TestRetrier_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	result := New(fastConfig(5)).Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	if result.Err != nil {
		t.Fatalf("expected success, got %v", result.Err)
	}
	if result.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", result.Attempts)
	}
}

func TestRetrier_ExhaustsBudget(t *testing.T) {
	transient := errors.New("broker unavailable")
	calls := 0
	result := New(fastConfig(2)).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return transient
	})

	if !errors.Is(result.Err, ErrMaxAttemptsExceeded) {
		t.Errorf("expected ErrMaxAttemptsExceeded, got %v", result.Err)
	}
	if !errors.Is(result.LastError, transient) {
		t.Errorf("expected last error %v, got %v", transient, result.LastError)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls (initial + 2 retries), got %d", calls)
	}
}

func TestRetrier_PermanentErrorStopsImmediately(t *testing.T) {
	fatal := errors.New("schema mismatch")
	calls := 0
	result := New(fastConfig(5)).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Permanent(fatal)
	})

	if !errors.Is(result.Err, fatal) {
		t.Errorf("expected %v, got %v", fatal, result.Err)
	}
	if calls != 1 {
		t.Errorf("expected a single attempt, got %d", calls)
	}
}

func TestRetrier_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := New(fastConfig(5)).Do(ctx, func(ctx context.Context) error {
		return errors.New("never succeeds")
	})

	if !errors.Is(result.Err, ErrContextCanceled) {
		t.Errorf("expected ErrContextCanceled, got %v", result.Err)
	}
}

func TestRetrier_IntervalCappedAtMax(t *testing.T) {
	r := New(&Config{
		MaxRetries:      10,
		InitialInterval: time.Second,
		MaxInterval:     4 * time.Second,
		Multiplier:      2.0,
		JitterFactor:    0,
	})

	if got := r.interval(0); got != time.Second {
		t.Errorf("attempt 0: expected 1s, got %v", got)
	}
	if got := r.interval(1); got != 2*time.Second {
		t.Errorf("attempt 1: expected 2s, got %v", got)
	}
	if got := r.interval(6); got != 4*time.Second {
		t.Errorf("attempt 6: expected cap of 4s, got %v", got)
	}
}

func TestRetrier_JitterStaysInBounds(t *testing.T) {
	r := New(&Config{
		MaxRetries:      1,
		InitialInterval: time.Second,
		MaxInterval:     time.Minute,
		Multiplier:      1.0,
		JitterFactor:    0.1,
	})

	for i := 0; i < 100; i++ {
		got := r.interval(0)
		if got < 900*time.Millisecond || got > 1100*time.Millisecond {
			t.Fatalf("interval %v outside 10%% jitter bounds", got)
		}
	}
}

func TestPermanent_NilPassthrough(t *testing.T) {
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) must be nil")
	}
}
