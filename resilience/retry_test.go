package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/kbukum/datapipe/errors"
)

func fastConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func TestRetry_SucceedsAfterRetry(t *testing.T) {
	calls := 0
	var retried []int
	cfg := fastConfig()
	cfg.OnRetry = func(attempt int, _ error, _ time.Duration) { retried = append(retried, attempt) }

	got, err := Retry(context.Background(), cfg, func() (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("temporary")
		}
		return "ok", nil
	})
	if err != nil || got != "ok" {
		t.Fatalf("Retry = %q, %v", got, err)
	}
	if calls != 3 || len(retried) != 2 {
		t.Errorf("calls = %d, retries = %v", calls, retried)
	}
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := RetryFunc(context.Background(), fastConfig(), func() error {
		calls++
		return errors.New("always")
	})
	if err == nil || err.Error() != "always" {
		t.Fatalf("expected last error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetry_NonRetryableAppError(t *testing.T) {
	calls := 0
	err := RetryFunc(context.Background(), fastConfig(), func() error {
		calls++
		return apperrors.NotFound("table", "orders")
	})
	if !apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
		t.Fatalf("unexpected error %v", err)
	}
	if calls != 1 {
		t.Errorf("non-retryable errors must not be retried, got %d calls", calls)
	}
}

func TestRetry_RetryableAppError(t *testing.T) {
	calls := 0
	_ = RetryFunc(context.Background(), fastConfig(), func() error {
		calls++
		return apperrors.StorageError("upload", errors.New("503"))
	})
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := RetryFunc(ctx, fastConfig(), func() error {
		calls++
		return nil
	})
	if !errors.Is(err, context.Canceled) || calls != 0 {
		t.Errorf("err = %v, calls = %d", err, calls)
	}
}

func TestCalculateBackoff_Capped(t *testing.T) {
	cfg := RetryConfig{InitialBackoff: time.Second, MaxBackoff: 3 * time.Second, BackoffFactor: 2}
	if got := calculateBackoff(1, cfg); got != time.Second {
		t.Errorf("attempt 1 = %v", got)
	}
	if got := calculateBackoff(5, cfg); got != 3*time.Second {
		t.Errorf("attempt 5 = %v", got)
	}
}
