package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetry_SuccessOnFirstTry(t *testing.T) {
	ctx := context.Background()
	retrier := NewWriteRetrier()

	counter := 0
	operation := func() error {
		counter++
		return nil
	}

	if err := retrier.Do(ctx, operation); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counter != 1 {
		t.Errorf("expected 1 attempt, got %d", counter)
	}
}

func TestRetry_SuccessAfterRetries(t *testing.T) {
	ctx := context.Background()
	retrier := NewWriteRetrier()

	counter := 0
	operation := func() error {
		counter++
		if counter < 2 {
			return errors.New("database is locked")
		}
		return nil
	}

	if err := retrier.Do(ctx, operation); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counter != 2 {
		t.Errorf("expected 2 attempts, got %d", counter)
	}
}

func TestRetry_MaxRetriesExceeded(t *testing.T) {
	ctx := context.Background()
	config := NewWriteConfig()
	config.MaxRetries = 2
	config.InitialDelay = time.Millisecond
	retrier := NewRetrier(config)

	expectedErr := errors.New("permanent error")
	counter := 0
	operation := func() error {
		counter++
		return expectedErr
	}

	err := retrier.Do(ctx, operation)
	if !errors.Is(err, expectedErr) {
		t.Errorf("expected %v, got %v", expectedErr, err)
	}
	if counter != 3 { // initial try + 2 retries
		t.Errorf("expected 3 attempts, got %d", counter)
	}
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	retrier := NewWriteRetrier()

	operation := func() error {
		cancel()
		return errors.New("operation error after cancel")
	}

	err := retrier.Do(ctx, operation)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRetry_BackoffGrows(t *testing.T) {
	ctx := context.Background()
	config := &Config{
		MaxRetries:    2,
		BackoffFactor: 2.0,
		InitialDelay:  20 * time.Millisecond,
		MaxDelay:      time.Second,
		Jitter:        5 * time.Millisecond,
	}
	retrier := NewRetrier(config)

	start := time.Now()
	counter := 0
	_ = retrier.Do(ctx, func() error {
		counter++
		return errors.New("error")
	})
	elapsed := time.Since(start)

	// Two delays: 20ms then 40ms, each plus up to 5ms jitter.
	minExpected := 60 * time.Millisecond
	if elapsed < minExpected {
		t.Errorf("expected at least %v of backoff, got %v", minExpected, elapsed)
	}
	if counter != 3 {
		t.Errorf("expected 3 attempts, got %d", counter)
	}
}
