// Package retry provides exponential backoff computation and a generic
// retry wrapper for transient OS errors. The backoff curve is shared with
// the lock coordinator so contention and transient-failure handling behave
// the same way everywhere.
package retry

import (
	"context"
	"math/rand"
	"time"

	"github.com/kestrelhq/fsbroker/internal/errors"
	"github.com/kestrelhq/fsbroker/internal/logging"
)

// Policy bounds retry behavior.
type Policy struct {
	BaseDelay  time.Duration // Base for exponential backoff
	MaxDelay   time.Duration // Cap on a single sleep
	MaxRetries int           // Attempts after the first failure
}

// DefaultPolicy returns the compiled-in baseline policy.
func DefaultPolicy() Policy {
	return Policy{
		BaseDelay:  time.Second,
		MaxDelay:   10 * time.Second,
		MaxRetries: 3,
	}
}

// Backoff returns the sleep before retry number attempt (0-based):
// min(base << attempt, max) plus up to 10% random jitter.
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	// Guard the shift against overflow for large attempt counts.
	delay := p.MaxDelay
	if attempt < 32 {
		shifted := p.BaseDelay << uint(attempt)
		if shifted < p.MaxDelay {
			delay = shifted
		}
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/10 + 1))
	return delay + jitter
}

// Do runs op, retrying when it fails with a transient OS error
// (per errors.IsRetryable). Between attempts it sleeps the policy's backoff,
// aborting early if ctx is cancelled. Non-retryable errors propagate
// immediately; when attempts are exhausted the last error is wrapped in a
// RetryExhaustedError.
func Do(ctx context.Context, logger *logging.Logger, policy Policy, op func() error) error {
	if logger == nil {
		logger = logging.NopLogger()
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !errors.IsRetryable(lastErr) {
			return lastErr
		}
		if attempt >= policy.MaxRetries {
			return errors.NewRetryExhaustedError(attempt+1, lastErr)
		}

		delay := policy.Backoff(attempt)
		logger.Warn("transient error, retrying",
			"attempt", attempt+1,
			"max_retries", policy.MaxRetries,
			"delay", delay.String(),
			"error", lastErr.Error(),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}
