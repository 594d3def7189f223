// Package retry runs flaky external operations with bounded exponential
// backoff. Intermediate failures are logged at debug level only; the final
// failure surfaces once to the caller.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Config bounds a retried operation.
type Config struct {
	// MaxAttempts is the total number of tries (default: 3).
	MaxAttempts int

	// BaseDelay is the wait after the first failure; wait doubles each
	// attempt after that (default: 1s).
	BaseDelay time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Do runs fn up to cfg.MaxAttempts times, sleeping BaseDelay<<i after the
// i-th failure. It returns the first success, or the last error once the
// attempt budget is spent. Cancellation during a backoff wait aborts the
// remaining attempts.
func Do[T any](ctx context.Context, cfg Config, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg.defaults()
	var zero T
	var lastErr error
	for i := range cfg.MaxAttempts {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if i == cfg.MaxAttempts-1 {
			break
		}
		wait := cfg.BaseDelay << uint(i)
		cfg.Logger.Debug("attempt failed, backing off",
			"op", name, "attempt", i+1, "wait", wait, "error", err)
		if err := sleepCtx(ctx, wait); err != nil {
			return zero, fmt.Errorf("%s: cancelled during retry: %w", name, err)
		}
	}
	cfg.Logger.Warn("all attempts failed", "op", name, "attempts", cfg.MaxAttempts, "error", lastErr)
	return zero, fmt.Errorf("%s: %d attempts: %w", name, cfg.MaxAttempts, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
