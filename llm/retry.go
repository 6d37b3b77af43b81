package llm

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"
)

// RetryPolicy bounds how many times a transport call is reissued and how
// long Retry sleeps between attempts. Backoff grows by Multiplier per
// attempt and never exceeds MaxDelay.
type RetryPolicy struct {
	MaxRetries int           // reissues after the first attempt
	BaseDelay  time.Duration // backoff before the first reissue
	MaxDelay   time.Duration // ceiling for backoff and Retry-After hints
	Multiplier float64
	Jitter     bool
	Logger     *slog.Logger // nil falls back to slog.Default
}

// DefaultRetryPolicy returns the standard transport policy: three attempts
// total, backoff starting at one second and capped at one minute.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 2,
		BaseDelay:  time.Second,
		MaxDelay:   time.Minute,
		Multiplier: 2.0,
		Jitter:     true,
	}
}

func (p RetryPolicy) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// Retry runs fn until it succeeds, fails with a non-retryable error,
// exhausts the attempt budget, or ctx is cancelled. A RateLimitError
// carrying a Retry-After hint overrides the computed backoff; a hint
// beyond MaxDelay surfaces the error instead of sleeping that long.
func Retry[T any](ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	backoff := policy.BaseDelay
	for attempt := 0; ; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if attempt >= policy.MaxRetries || !IsRetryable(err) {
			return zero, err
		}

		wait := backoff
		if policy.Jitter && wait > 0 {
			// Spread concurrent retries across 50-150% of the backoff.
			wait = wait/2 + time.Duration(rand.Int63n(int64(wait)))
		}

		var rl *RateLimitError
		if errors.As(err, &rl) && rl.RetryAfter != nil {
			hinted := time.Duration(*rl.RetryAfter * float64(time.Second))
			if hinted > policy.MaxDelay {
				// The provider wants a longer pause than this call tolerates.
				return zero, err
			}
			wait = hinted
		}

		policy.logger().Warn("model call failed, retrying",
			"attempt", attempt+1,
			"max_retries", policy.MaxRetries,
			"wait", wait,
			"error", err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, &AbortError{ModelError: ModelError{
				Message: "request cancelled while waiting to retry",
				Cause:   ctx.Err(),
			}}
		case <-timer.C:
		}

		backoff = time.Duration(float64(backoff) * policy.Multiplier)
		if backoff > policy.MaxDelay {
			backoff = policy.MaxDelay
		}
	}
}
