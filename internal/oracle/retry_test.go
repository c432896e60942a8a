package oracle

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastRetryConfig(retries int) RetryConfig {
	return RetryConfig{
		MaxRetries:    retries,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2.0,
	}
}

func TestWithRetrySucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	got, err := WithRetry(context.Background(), fastRetryConfig(3), func(context.Context) (string, error) {
		attempts++
		if attempts < 3 {
			return "", &ClassifyError{Code: ErrUnavailable, Retryable: true}
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("WithRetry: %v", err)
	}
	if got != "ok" || attempts != 3 {
		t.Errorf("got %q after %d attempts", got, attempts)
	}
}

func TestWithRetryStopsOnNonRetryable(t *testing.T) {
	attempts := 0
	_, err := WithRetry(context.Background(), fastRetryConfig(5), func(context.Context) (int, error) {
		attempts++
		return 0, &ClassifyError{Code: ErrBadResponse, Retryable: false}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 for a non-retryable error", attempts)
	}
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	attempts := 0
	wantErr := errors.New("still down")
	_, err := WithRetry(context.Background(), fastRetryConfig(2), func(context.Context) (int, error) {
		attempts++
		return 0, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want last error", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want initial + 2 retries", attempts)
	}
}

func TestWithRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := fastRetryConfig(3)
	cfg.InitialDelay = time.Hour
	_, err := WithRetry(ctx, cfg, func(context.Context) (int, error) {
		return 0, &ClassifyError{Code: ErrUnavailable, Retryable: true}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
