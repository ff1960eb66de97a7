package ingest

import (
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/ladder-ingest/pkg/distribution"
	"github.com/Sternrassler/ladder-ingest/pkg/pagination"
)

// TargetResult is the outcome of one target.
type TargetResult struct {
	Target   distribution.Target
	Fetched  int
	Pages    int
	Flushes  int
	Reason   pagination.StopReason
	Duration time.Duration
	Err      error
}

// Summary is the outcome of a Run.
type Summary struct {
	Results  []TargetResult
	Fetched  int
	Flushes  int
	Failed   int
	Duration time.Duration
}

func newSummary(results []TargetResult, d time.Duration) Summary {
	s := Summary{Results: results, Duration: d}
	for _, r := range results {
		s.Fetched += r.Fetched
		s.Flushes += r.Flushes
		if r.Err != nil {
			s.Failed++
		}
	}
	return s
}

// Err joins the errors of all failed targets, or returns nil.
func (s Summary) Err() error {
	var errs []error
	for _, r := range s.Results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Target.Bracket, r.Err))
		}
	}
	return errors.Join(errs...)
}
