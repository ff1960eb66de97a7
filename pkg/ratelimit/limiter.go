// Package ratelimit implements spaced rate limiting for the Riot API.
//
// A Limiter models one "N requests per interval" quota. Unlike a token bucket
// it never permits a burst: the N requests are spread evenly across the
// interval. A Group combines several quotas that apply to the same API key
// (e.g. "20 per second" and "100 per two minutes") and always demands the
// strictest wait.
//
// Limiters are advisory. They never block; callers ask how long to wait, wait
// themselves (see Pacer), and report when the call was actually made.
package ratelimit

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/Sternrassler/ladder-ingest/pkg/interval"
)

// ErrInvalidQuota is returned when a limiter is configured with a non-positive
// request count.
var ErrInvalidQuota = errors.New("quota must be positive")

// unset marks a limiter that has never recorded an invocation.
const unset = math.MinInt64

// Limiter tracks a single evenly spaced quota of Quota requests per Window.
// It is safe for concurrent use.
type Limiter struct {
	quota  int
	window interval.Duration

	// lastInvoked is the last recorded call in Unix nanoseconds, or unset.
	lastInvoked atomic.Int64
}

// NewLimiter creates a limiter permitting quota requests per interval, where
// per is a compact interval string such as "1seconds" or "2minutes".
// The interval is validated here so configuration errors surface at startup.
func NewLimiter(quota int, per string) (*Limiter, error) {
	if quota <= 0 {
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidQuota, quota)
	}

	window, err := interval.Parse(per)
	if err != nil {
		return nil, fmt.Errorf("rate limiter window: %w", err)
	}

	l := &Limiter{
		quota:  quota,
		window: window,
	}
	l.lastInvoked.Store(unset)
	return l, nil
}

// MustLimiter is like NewLimiter but panics on invalid configuration.
func MustLimiter(quota int, per string) *Limiter {
	l, err := NewLimiter(quota, per)
	if err != nil {
		panic(err)
	}
	return l
}

// Quota returns the number of requests permitted per window.
func (l *Limiter) Quota() int {
	return l.quota
}

// Window returns the quota interval.
func (l *Limiter) Window() interval.Duration {
	return l.window
}

// String describes the quota, e.g. "20/1seconds".
func (l *Limiter) String() string {
	return fmt.Sprintf("%d/%s", l.quota, l.window)
}

// LastInvoked returns the last recorded invocation. ok is false while the
// limiter is unset.
func (l *Limiter) LastInvoked() (t time.Time, ok bool) {
	last := l.lastInvoked.Load()
	if last == unset {
		return time.Time{}, false
	}
	return time.Unix(0, last), true
}

// Wait reports how long to wait at now before the next call.
// The spacing is (lastInvoked + window - now) / quota. ok is false when no
// wait is needed, including when the limiter has never been invoked.
func (l *Limiter) Wait(now time.Time) (wait time.Duration, ok bool) {
	last, set := l.LastInvoked()
	if !set {
		return 0, false
	}

	next := last.Add(l.window.Std())
	wait = next.Sub(now) / time.Duration(l.quota)
	if wait <= 0 {
		return 0, false
	}
	return wait, true
}

// Record marks a call made at now. Timestamps that are not strictly later than
// the current one are ignored, so the limiter never moves backwards.
// It reports whether the timestamp was applied.
func (l *Limiter) Record(now time.Time) bool {
	ts := now.UnixNano()
	for {
		current := l.lastInvoked.Load()
		if ts <= current {
			return false
		}
		if l.lastInvoked.CompareAndSwap(current, ts) {
			return true
		}
	}
}

// Reset returns the limiter to the unset state.
func (l *Limiter) Reset() {
	l.lastInvoked.Store(unset)
}
