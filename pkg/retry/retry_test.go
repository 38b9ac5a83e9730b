package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errTestError = errors.New("test error")

func testConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     100 * time.Millisecond,
		Multiplier:   2.0,
		Jitter:       false,
	}
}

func TestRetry_SuccessOnFirstAttempt(t *testing.T) {
	attempts := 0
	fn := func() error {
		attempts++
		return nil
	}

	err := Retry(context.Background(), testConfig(), fn)

	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got: %d", attempts)
	}
}

func TestRetry_SuccessAfterRetries(t *testing.T) {
	attempts := 0
	fn := func() error {
		attempts++
		if attempts < 3 {
			return errTestError
		}
		return nil
	}

	err := Retry(context.Background(), testConfig(), fn)

	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got: %d", attempts)
	}
}

func TestRetry_MaxAttemptsExceeded(t *testing.T) {
	cfg := testConfig()
	cfg.MaxAttempts = 2

	attempts := 0
	fn := func() error {
		attempts++
		return errTestError
	}

	err := Retry(context.Background(), cfg, fn)

	if err == nil {
		t.Error("Expected error after max attempts, got nil")
	}
	if attempts != 3 { // MaxAttempts + 1 (initial attempt)
		t.Errorf("Expected 3 attempts, got: %d", attempts)
	}
}

func TestRetry_ContextCancellation(t *testing.T) {
	cfg := testConfig()
	cfg.MaxAttempts = 5
	cfg.InitialDelay = 50 * time.Millisecond
	cfg.MaxDelay = 500 * time.Millisecond

	attempts := 0
	fn := func() error {
		attempts++
		return errTestError
	}

	ctx, cancel := context.WithCancel(context.Background())
	// Cancel during the first backoff wait
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := Retry(ctx, cfg, fn)

	if err == nil {
		t.Error("Expected error due to context cancellation, got nil")
	}
	if attempts < 1 {
		t.Errorf("Expected at least 1 attempt before cancellation, got: %d", attempts)
	}
}

func TestRetryWithResult(t *testing.T) {
	attempts := 0
	fn := func() (string, error) {
		attempts++
		if attempts < 2 {
			return "", errTestError
		}
		return "ok", nil
	}

	result, err := RetryWithResult(context.Background(), testConfig(), fn)

	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	if result != "ok" {
		t.Errorf("Expected result 'ok', got: %q", result)
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts, got: %d", attempts)
	}
}

func TestDelay_ExponentialAndCapped(t *testing.T) {
	cfg := Config{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
		Jitter:       false,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{4, 1 * time.Second}, // capped
		{8, 1 * time.Second}, // still capped
	}

	for _, tt := range tests {
		if got := Delay(cfg, tt.attempt); got != tt.want {
			t.Errorf("Delay(attempt=%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}
