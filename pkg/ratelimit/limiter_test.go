package ratelimit

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Sternrassler/ladder-ingest/pkg/interval"
)

func TestNewLimiter_Validation(t *testing.T) {
	tests := []struct {
		name    string
		quota   int
		per     string
		wantErr error
	}{
		{name: "valid", quota: 20, per: "1seconds"},
		{name: "singular unit", quota: 1, per: "1minute"},
		{name: "zero quota", quota: 0, per: "1seconds", wantErr: ErrInvalidQuota},
		{name: "negative quota", quota: -5, per: "1seconds", wantErr: ErrInvalidQuota},
		{name: "unknown unit", quota: 5, per: "3fortnights", wantErr: interval.ErrInvalidInterval},
		{name: "whitespace", quota: 5, per: "3 seconds", wantErr: interval.ErrInvalidInterval},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewLimiter(tt.quota, tt.per)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("NewLimiter() error = %v", err)
				}
				if l.Quota() != tt.quota {
					t.Errorf("Quota() = %d, want %d", l.Quota(), tt.quota)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NewLimiter() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLimiter_FreshHasNoWait(t *testing.T) {
	configs := []struct {
		quota int
		per   string
	}{
		{1, "1seconds"},
		{20, "1seconds"},
		{100, "2minutes"},
		{30_000, "10minutes"},
		{3, "1weeks"},
	}

	now := time.Now()
	for _, c := range configs {
		l := MustLimiter(c.quota, c.per)
		if wait, ok := l.Wait(now); ok {
			t.Errorf("%s: fresh limiter Wait() = %v, want none", l, wait)
		}
		if _, ok := l.LastInvoked(); ok {
			t.Errorf("%s: fresh limiter should be unset", l)
		}
	}
}

func TestLimiter_SpacedWait(t *testing.T) {
	// Two requests per ten seconds: a call right now spaces the next by 5s.
	l := MustLimiter(2, "10seconds")
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l.Record(now)

	wait, ok := l.Wait(now)
	if !ok {
		t.Fatal("expected a wait right after recording")
	}
	if wait != 5*time.Second {
		t.Errorf("Wait() = %v, want 5s", wait)
	}

	// Halfway through the window, the remaining 5s are spread over 2 slots.
	wait, ok = l.Wait(now.Add(5 * time.Second))
	if !ok || wait != 2500*time.Millisecond {
		t.Errorf("Wait(+5s) = %v, %v, want 2.5s, true", wait, ok)
	}

	// Once the window has elapsed no wait is needed.
	if wait, ok := l.Wait(now.Add(10 * time.Second)); ok {
		t.Errorf("Wait(+10s) = %v, want none", wait)
	}
	if wait, ok := l.Wait(now.Add(time.Minute)); ok {
		t.Errorf("Wait(+1m) = %v, want none", wait)
	}
}

func TestLimiter_RecordIsMonotonic(t *testing.T) {
	l := MustLimiter(20, "1seconds")
	t1 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	t0 := t1.Add(-time.Second)

	if !l.Record(t1) {
		t.Fatal("first Record() should apply")
	}
	if l.Record(t0) {
		t.Error("Record() of an earlier timestamp should be ignored")
	}
	if l.Record(t1) {
		t.Error("Record() of an equal timestamp should be ignored")
	}

	got, ok := l.LastInvoked()
	if !ok || !got.Equal(t1) {
		t.Errorf("LastInvoked() = %v, %v, want %v", got, ok, t1)
	}
}

func TestLimiter_Reset(t *testing.T) {
	l := MustLimiter(1, "1hours")
	now := time.Now()
	l.Record(now)

	if _, ok := l.Wait(now); !ok {
		t.Fatal("expected a wait after recording")
	}

	l.Reset()
	if wait, ok := l.Wait(now); ok {
		t.Errorf("Wait() after Reset() = %v, want none", wait)
	}

	// A reset limiter accepts any timestamp again, including older ones.
	if !l.Record(now.Add(-time.Hour)) {
		t.Error("Record() after Reset() should apply")
	}
}

func TestLimiter_ConcurrentRecord(t *testing.T) {
	l := MustLimiter(10, "1seconds")
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				l.Record(base.Add(time.Duration((offset*100+j)%997) * time.Millisecond))
			}
		}(i)
	}
	wg.Wait()

	got, _ := l.LastInvoked()
	want := base.Add(996 * time.Millisecond)
	if !got.Equal(want) {
		t.Errorf("LastInvoked() = %v, want %v", got, want)
	}
}
