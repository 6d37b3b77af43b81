// Package ratelimit provides sliding-window call admission control.
//
// A Limiter tracks call timestamps within a trailing period and admits a new
// call only while fewer than MaxCalls fall inside the window. One Limiter
// guards one throttled surface; the agent keeps separate instances for model
// calls and tool calls.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Limiter is a sliding-window rate limiter. Safe for concurrent use.
type Limiter struct {
	maxCalls int
	period   time.Duration
	calls    []time.Time
	now      func() time.Time
	onWait   func(retryAfter time.Duration)
	mu       sync.Mutex
}

// Option customizes a Limiter.
type Option func(*Limiter)

// WithWaitHook registers a callback invoked each time Acquire is about to
// sleep on a denial, so hosts can observe throttling as it happens.
func WithWaitHook(fn func(retryAfter time.Duration)) Option {
	return func(l *Limiter) { l.onWait = fn }
}

// NewLimiter creates a Limiter admitting at most maxCalls per period.
func NewLimiter(maxCalls int, period time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		maxCalls: maxCalls,
		period:   period,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Decision is the result of an admission check.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration // meaningful only when !Allowed
}

// Admit checks whether a call may proceed right now. When allowed, the call
// is recorded; when denied, RetryAfter reports how long until the oldest
// in-window call ages out.
func (l *Limiter) Admit() Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)

	if len(l.calls) < l.maxCalls {
		l.calls = append(l.calls, now)
		return Decision{Allowed: true}
	}

	retryAfter := l.period - now.Sub(l.calls[0])
	if retryAfter < 0 {
		retryAfter = 0
	}
	return Decision{Allowed: false, RetryAfter: retryAfter}
}

// prune drops recorded calls older than the window. Caller must hold mu.
func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-l.period)
	kept := l.calls[:0]
	for _, t := range l.calls {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.calls = kept
}

// maxWaitRetries bounds how many denied-then-sleep cycles Acquire tolerates
// before surfacing an error. Identical for every throttled surface.
const maxWaitRetries = 3

// Acquire blocks until a call is admitted, sleeping for the advised
// RetryAfter on each denial. It fails after maxWaitRetries denials or when
// ctx is cancelled.
func (l *Limiter) Acquire(ctx context.Context) error {
	for attempt := 0; ; attempt++ {
		d := l.Admit()
		if d.Allowed {
			return nil
		}
		if attempt >= maxWaitRetries {
			return fmt.Errorf("rate limit: still denied after %d waits (max %d calls per %s)",
				maxWaitRetries, l.maxCalls, l.period)
		}

		slog.Warn("rate limit hit",
			"max_calls", l.maxCalls,
			"period", l.period,
			"retry_after", d.RetryAfter,
		)
		if l.onWait != nil {
			l.onWait(d.RetryAfter)
		}

		timer := time.NewTimer(d.RetryAfter)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// InWindow returns the number of calls currently inside the window.
func (l *Limiter) InWindow() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune(l.now())
	return len(l.calls)
}
