package ratelimit

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Clock returns the current time. Tests substitute a fake.
type Clock func() time.Time

// Pacer waits out a Gate's advisory delay before each call.
type Pacer struct {
	gate   Gate
	scope  string
	now    Clock
	sleep  func(ctx context.Context, d time.Duration) error
	logger zerolog.Logger
}

// NewPacer creates a pacer for gate. scope labels metrics and logs.
func NewPacer(gate Gate, scope string, logger zerolog.Logger) *Pacer {
	return &Pacer{
		gate:   gate,
		scope:  scope,
		now:    time.Now,
		sleep:  sleepContext,
		logger: logger,
	}
}

// WithClock replaces the time source and sleeper. Intended for tests.
func (p *Pacer) WithClock(now Clock, sleep func(ctx context.Context, d time.Duration) error) *Pacer {
	p.now = now
	p.sleep = sleep
	return p
}

// Wait sleeps once for the gate's advisory wait and returns how long it slept.
// The wait is not re-evaluated afterwards: a spaced limiter hands out one slot
// per call. Cancellation of ctx aborts the sleep.
func (p *Pacer) Wait(ctx context.Context) (time.Duration, error) {
	wait, ok, err := p.gate.WaitContext(ctx, p.now())
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}

	rateLimitWaitsTotal.WithLabelValues(p.scope).Inc()
	rateLimitWaitSeconds.WithLabelValues(p.scope).Observe(wait.Seconds())
	p.logger.Debug().
		Str("scope", p.scope).
		Dur("wait", wait).
		Msg("Waiting for rate limit slot")

	if err := p.sleep(ctx, wait); err != nil {
		return 0, err
	}
	return wait, nil
}

// Invoke waits for a slot, records the call with the gate and runs fn.
func (p *Pacer) Invoke(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, err := p.Wait(ctx); err != nil {
		return err
	}
	if err := p.gate.RecordContext(ctx, p.now()); err != nil {
		return err
	}
	return fn(ctx)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
