package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestDoFirstAttemptSucceeds(t *testing.T) {
	calls := 0
	v, err := Do(context.Background(), Config{BaseDelay: time.Millisecond}, "op",
		func(ctx context.Context) (int, error) {
			calls++
			return 42, nil
		})
	if err != nil {
		t.Fatal(err)
	}
	if v != 42 || calls != 1 {
		t.Fatalf("v=%d calls=%d, want 42/1", v, calls)
	}
}

func TestDoBackoffDoubles(t *testing.T) {
	base := 20 * time.Millisecond
	calls := 0
	start := time.Now()
	v, err := Do(context.Background(), Config{MaxAttempts: 3, BaseDelay: base}, "op",
		func(ctx context.Context) (string, error) {
			calls++
			if calls < 3 {
				return "", errors.New("transient")
			}
			return "ok", nil
		})
	if err != nil {
		t.Fatal(err)
	}
	if v != "ok" || calls != 3 {
		t.Fatalf("v=%q calls=%d", v, calls)
	}
	// Two waits before the third attempt: base + 2*base.
	if elapsed := time.Since(start); elapsed < 3*base {
		t.Fatalf("elapsed %v, want >= %v", elapsed, 3*base)
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), Config{MaxAttempts: 3, BaseDelay: time.Millisecond}, "soffice",
		func(ctx context.Context) (int, error) {
			calls++
			return 0, fmt.Errorf("boom %d", calls)
		})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	// Last error is the one surfaced.
	if got := err.Error(); got != "soffice: 3 attempts: boom 3" {
		t.Fatalf("err = %q", got)
	}
}

func TestDoCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	start := time.Now()
	_, err := Do(ctx, Config{MaxAttempts: 5, BaseDelay: time.Hour}, "op",
		func(ctx context.Context) (int, error) {
			return 0, errors.New("transient")
		})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("cancellation did not interrupt the backoff sleep")
	}
}
