// Package retry runs an operation with exponential backoff.
//
// Retries are opt-in per error: callers supply a Retryable predicate
// so that only transient failures (network errors, timeouts) are
// retried while definitive failures (bad requests, auth rejections)
// surface immediately.
package retry

import (
	"context"
	"time"
)

// Config holds the retry schedule for Do.
type Config struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// InitialBackoff is the delay before the second attempt. Each
	// subsequent delay doubles, capped at MaxBackoff. No jitter is
	// applied so the schedule stays deterministic.
	InitialBackoff time.Duration
	// MaxBackoff caps the delay between attempts.
	MaxBackoff time.Duration
	// Retryable reports whether an error is worth another attempt.
	// A nil Retryable retries every error.
	Retryable func(error) bool
	// OnRetry, if set, is called before each backoff sleep.
	OnRetry func(attempt int, backoff time.Duration, err error)
}

func (c Config) normalized() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 2 * time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 10 * time.Second
	}
	return c
}

// backoffFor returns the delay before the given attempt (1-based count
// of completed attempts). attempt is bounded by MaxAttempts, so the
// shift cannot overflow.
func backoffFor(cfg Config, attempt int) time.Duration {
	backoff := cfg.InitialBackoff * time.Duration(1<<uint(attempt-1))
	if backoff > cfg.MaxBackoff {
		backoff = cfg.MaxBackoff
	}
	return backoff
}

// Do runs op until it succeeds, the error is not retryable, attempts
// are exhausted, or ctx is done. It returns nil on success and the
// last operation error otherwise. Backoff sleeps are cut short by
// context cancellation.
func Do(ctx context.Context, cfg Config, op func(ctx context.Context) error) error {
	cfg = cfg.normalized()

	if err := ctx.Err(); err != nil {
		return err
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if cfg.Retryable != nil && !cfg.Retryable(err) {
			return err
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		backoff := backoffFor(cfg, attempt)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, backoff, err)
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		case <-timer.C:
		}
	}
	return lastErr
}
