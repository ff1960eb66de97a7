package pagination

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/Sternrassler/ladder-ingest/pkg/league"
)

var (
	// ErrDone is returned by Next once the fetcher has terminated.
	ErrDone = errors.New("no more pages")

	// ErrInvalidMaxEntries is returned for a negative entry limit.
	ErrInvalidMaxEntries = errors.New("max entries cannot be negative")
)

// PageFunc fetches one page of records. Pages are numbered from 1.
// An empty result means the source is exhausted.
type PageFunc func(ctx context.Context, page int) ([]league.Record, error)

// StopReason describes why a fetcher terminated.
type StopReason int

const (
	// StopNone means the fetcher can still produce pages.
	StopNone StopReason = iota
	// StopMaxReached means the configured entry limit was collected.
	StopMaxReached
	// StopExhausted means the source returned an empty page.
	StopExhausted
)

func (r StopReason) String() string {
	switch r {
	case StopNone:
		return "running"
	case StopMaxReached:
		return "max_reached"
	case StopExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("StopReason(%d)", int(r))
	}
}

// Cursor is the fetcher's position.
type Cursor struct {
	// Page is the next page to request.
	Page int
	// Fetched counts records returned so far.
	Fetched int
	// MaxEntries is the entry limit, 0 for unbounded.
	MaxEntries int
}

// Fetcher walks a paginated source one page per Next call.
// It is not safe for concurrent use and cannot be restarted.
type Fetcher struct {
	fetch  PageFunc
	cursor Cursor
	reason StopReason
}

// NewFetcher creates a fetcher starting at page 1. maxEntries caps the total
// number of records returned; 0 means unbounded.
func NewFetcher(fetch PageFunc, maxEntries int) (*Fetcher, error) {
	if fetch == nil {
		return nil, errors.New("page func is required")
	}
	if maxEntries < 0 {
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidMaxEntries, maxEntries)
	}

	return &Fetcher{
		fetch: fetch,
		cursor: Cursor{
			Page:       1,
			MaxEntries: maxEntries,
		},
	}, nil
}

// Next fetches the current page and advances the cursor.
//
// When the entry limit is set the page is truncated to what is left of it.
// An empty page is returned once, as an empty non-nil slice, and terminates
// the fetcher; every later call returns ErrDone. Errors from the page func are
// returned as-is and leave the cursor unchanged, so Next may be retried.
func (f *Fetcher) Next(ctx context.Context) ([]league.Record, error) {
	if f.reason != StopNone {
		return nil, ErrDone
	}

	records, err := f.fetch(ctx, f.cursor.Page)
	if err != nil {
		return nil, err
	}

	if f.cursor.MaxEntries > 0 {
		if remaining := f.cursor.MaxEntries - f.cursor.Fetched; len(records) > remaining {
			records = records[:remaining]
		}
	}

	f.cursor.Fetched += len(records)
	f.cursor.Page++

	switch {
	case len(records) == 0:
		f.reason = StopExhausted
		return []league.Record{}, nil
	case f.cursor.MaxEntries > 0 && f.cursor.Fetched >= f.cursor.MaxEntries:
		f.reason = StopMaxReached
	}
	return records, nil
}

// Pages returns an iterator over the remaining pages. Iteration ends at
// ErrDone; any other error is yielded once and ends the iteration.
// Empty pages are not yielded.
func (f *Fetcher) Pages(ctx context.Context) iter.Seq2[[]league.Record, error] {
	return func(yield func([]league.Record, error) bool) {
		for {
			records, err := f.Next(ctx)
			if errors.Is(err, ErrDone) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if len(records) == 0 {
				continue
			}
			if !yield(records, nil) {
				return
			}
		}
	}
}

// Cursor returns the current position.
func (f *Fetcher) Cursor() Cursor {
	return f.cursor
}

// Reason reports why the fetcher stopped, or StopNone while it is running.
// The reason is set by the Next call that returned the final page.
func (f *Fetcher) Reason() StopReason {
	return f.reason
}

// Done reports whether the fetcher has terminated.
func (f *Fetcher) Done() bool {
	return f.reason != StopNone
}
