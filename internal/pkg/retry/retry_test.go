package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/avast/retry-go/v4"
)

func TestDoRetriesUntilSuccess(t *testing.T) {
	cfg := &RetryConfig{Attempts: 3, Delay: time.Millisecond, MaxDelay: time.Millisecond}

	calls := 0
	err := cfg.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("temporary")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestDoReturnsLastError(t *testing.T) {
	cfg := &RetryConfig{Attempts: 2, Delay: time.Millisecond, MaxDelay: time.Millisecond}
	want := errors.New("still down")

	err := cfg.Do(context.Background(), func(ctx context.Context) error { return want })
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}

func TestDoStopsOnUnrecoverable(t *testing.T) {
	cfg := DefaultRetryConfig()

	calls := 0
	err := cfg.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return retry.Unrecoverable(errors.New("bad input"))
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
}
