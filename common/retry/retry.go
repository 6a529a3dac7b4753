// Package retry reruns a failing call with exponentially growing pauses.
// Glasha uses it where the other side may be briefly unavailable, above all
// SMTP submission.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Config controls how many times a call is attempted and how long Do waits
// between attempts.
type Config struct {
	// MaxAttempts counts every call, the first one included. Values below 1
	// mean a single attempt.
	MaxAttempts int
	// InitialDelay is the pause after the first failure; each further pause
	// is twice the previous one.
	InitialDelay time.Duration
	// MaxDelay bounds the pause regardless of how often the call has failed.
	MaxDelay time.Duration
	// ShouldRetry decides whether an error is worth another attempt. A nil
	// predicate retries everything.
	ShouldRetry func(err error) bool
}

// DefaultConfig suits short network calls where a second or two of waiting
// is acceptable.
var DefaultConfig = Config{
	MaxAttempts:  3,
	InitialDelay: 500 * time.Millisecond,
	MaxDelay:     10 * time.Second,
}

// Do runs fn until it succeeds, the attempts are exhausted, or ctx is
// cancelled. The last error seen is returned; a cancelled context is joined
// onto it so both causes survive.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = DefaultConfig.InitialDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultConfig.MaxDelay
	}
	shouldRetry := cfg.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = func(err error) bool { return true }
	}

	delay := cfg.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return errors.Join(lastErr, err)
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if !shouldRetry(lastErr) {
			return lastErr
		}

		if attempt < cfg.MaxAttempts {
			slog.Debug("retry: attempt failed, retrying",
				"attempt", attempt, "max", cfg.MaxAttempts,
				"err", lastErr, "delay", delay)

			select {
			case <-ctx.Done():
				return errors.Join(lastErr, ctx.Err())
			case <-time.After(delay):
			}

			delay *= 2
			if delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
		}
	}

	return lastErr
}
