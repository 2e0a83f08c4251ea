// Package retry runs an operation with capped exponential backoff.
package retry

import (
	"context"
	"fmt"
	"time"
)

type Config struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	// OnRetry, if set, is called after a failed attempt that will be retried.
	OnRetry func(attempt int, err error, nextDelay time.Duration)
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts:   3,
		InitialDelay:  200 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
	}
}

// Do calls fn until it succeeds, MaxAttempts is reached or ctx is done. It
// returns the number of attempts made alongside the final error.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) (int, error) {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return attempt - 1, fmt.Errorf("retry aborted after %d attempts: %w (last error: %v)", attempt-1, err, lastErr)
			}
			return attempt - 1, fmt.Errorf("retry aborted: %w", err)
		}

		err := fn(ctx)
		if err == nil {
			return attempt, nil
		}
		lastErr = err

		if attempt == cfg.MaxAttempts {
			return attempt, fmt.Errorf("max retry attempts (%d) exceeded: %w", cfg.MaxAttempts, lastErr)
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, fmt.Errorf("retry aborted after %d attempts: %w (last error: %v)", attempt, ctx.Err(), lastErr)
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * cfg.BackoffFactor)
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return cfg.MaxAttempts, fmt.Errorf("max retry attempts exceeded: %w", lastErr)
}
