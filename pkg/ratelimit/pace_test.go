package ratelimit

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeClock struct {
	now   time.Time
	slept []time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.slept = append(c.slept, d)
	c.now = c.now.Add(d)
	return nil
}

func TestPacer_Invoke(t *testing.T) {
	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	group := NewGroup(MustLimiter(2, "10seconds"))
	pacer := NewPacer(group, "test", logger).WithClock(clock.Now, clock.Sleep)

	calls := 0
	for i := 0; i < 3; i++ {
		err := pacer.Invoke(context.Background(), func(ctx context.Context) error {
			calls++
			return nil
		})
		if err != nil {
			t.Fatalf("Invoke() error = %v", err)
		}
	}

	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	// First call is free, each later call waits half the window once.
	want := []time.Duration{5 * time.Second, 5 * time.Second}
	if len(clock.slept) != len(want) {
		t.Fatalf("slept %v, want %v", clock.slept, want)
	}
	for i := range want {
		if clock.slept[i] != want[i] {
			t.Errorf("slept[%d] = %v, want %v", i, clock.slept[i], want[i])
		}
	}
}

func TestPacer_ContextCancelled(t *testing.T) {
	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	group := NewGroup(MustLimiter(1, "1hours"))
	group.Record(time.Now())
	pacer := NewPacer(group, "test", logger)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	called := false
	err := pacer.Invoke(ctx, func(ctx context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Invoke() error = %v, want deadline exceeded", err)
	}
	if called {
		t.Error("fn must not run when the wait is cancelled")
	}
}

func TestPacer_NoWaitWhenFresh(t *testing.T) {
	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	pacer := NewPacer(ProductionKey(), "test", logger)

	waited, err := pacer.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if waited != 0 {
		t.Errorf("Wait() = %v, want 0", waited)
	}
}
