package fetch

import (
	"context"
	"time"
)

// Policy bounds a retried operation.
type Policy struct {
	// MaxAttempts counts the first try. Values below 1 mean a single attempt.
	MaxAttempts int
	// Backoff returns the wait before retry number attempt (1-based).
	Backoff func(attempt int) time.Duration
	// Retryable decides whether an error is worth another attempt. Nil retries
	// every error.
	Retryable func(error) bool
	// OnRetry is called before each wait.
	OnRetry func(attempt int, err error)
}

// LinearBackoff waits attempt × base, capped at max when max is positive.
func LinearBackoff(base, max time.Duration) func(int) time.Duration {
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		d := base * time.Duration(attempt)
		if max > 0 && d > max {
			d = max
		}
		return d
	}
}

// Retry runs op until it succeeds, returns a non-retryable error, or the
// policy runs out of attempts. The last error is returned. Cancelling ctx
// stops any pending wait immediately.
func Retry[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := p.Backoff
	if backoff == nil {
		backoff = LinearBackoff(0, 0)
	}

	var (
		zero T
		err  error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if err == nil {
				err = ctxErr
			}
			return zero, err
		}

		var v T
		v, err = op(ctx)
		if err == nil {
			return v, nil
		}
		if attempt == attempts || (p.Retryable != nil && !p.Retryable(err)) {
			break
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}
		timer := time.NewTimer(backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, err
		case <-timer.C:
		}
	}
	return zero, err
}
