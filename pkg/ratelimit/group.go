package ratelimit

import (
	"context"
	"strings"
	"time"
)

// Gate is what callers consult around an API call: how long to wait, and when
// the call was actually made. Both Group and Tracker implement it.
type Gate interface {
	WaitContext(ctx context.Context, now time.Time) (time.Duration, bool, error)
	RecordContext(ctx context.Context, now time.Time) error
}

// Group aggregates the limiters that apply to one API key.
type Group struct {
	limiters []*Limiter
}

// NewGroup creates a group over the given limiters.
func NewGroup(limiters ...*Limiter) *Group {
	return &Group{limiters: limiters}
}

// Limiters returns the member limiters in construction order.
func (g *Group) Limiters() []*Limiter {
	out := make([]*Limiter, len(g.limiters))
	copy(out, g.limiters)
	return out
}

// Wait returns the longest wait demanded by any member. ok is false only when
// no member requires a wait.
func (g *Group) Wait(now time.Time) (wait time.Duration, ok bool) {
	for _, l := range g.limiters {
		if w, need := l.Wait(now); need && w > wait {
			wait, ok = w, true
		}
	}
	return wait, ok
}

// Record broadcasts an invocation to every member. Each member applies its
// own monotonic guard.
func (g *Group) Record(now time.Time) {
	for _, l := range g.limiters {
		l.Record(now)
	}
}

// Reset resets every member.
func (g *Group) Reset() {
	for _, l := range g.limiters {
		l.Reset()
	}
}

// WaitContext implements Gate.
func (g *Group) WaitContext(_ context.Context, now time.Time) (time.Duration, bool, error) {
	wait, ok := g.Wait(now)
	return wait, ok, nil
}

// RecordContext implements Gate.
func (g *Group) RecordContext(_ context.Context, now time.Time) error {
	g.Record(now)
	return nil
}

func (g *Group) String() string {
	parts := make([]string, len(g.limiters))
	for i, l := range g.limiters {
		parts[i] = l.String()
	}
	return strings.Join(parts, " + ")
}
