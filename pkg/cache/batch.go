package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/ladder-ingest/pkg/league"
)

var (
	// ErrClosed is returned by Add after the cache was closed.
	ErrClosed = errors.New("cache closed")

	// ErrInvalidBatchSize is returned for a negative batch size.
	ErrInvalidBatchSize = errors.New("batch size cannot be negative")
)

// Persister durably stores one batch, all or nothing.
// Persist must not retain batch after it returns.
type Persister interface {
	Persist(ctx context.Context, batch []league.Record) error
}

// PersistFunc adapts a function to the Persister interface.
type PersistFunc func(ctx context.Context, batch []league.Record) error

// Persist calls f.
func (f PersistFunc) Persist(ctx context.Context, batch []league.Record) error {
	return f(ctx, batch)
}

// Option configures a BatchCache.
type Option func(*BatchCache)

// WithName labels the cache's metrics and logs.
func WithName(name string) Option {
	return func(c *BatchCache) {
		c.name = name
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *BatchCache) {
		c.logger = logger
	}
}

// BatchCache buffers records and persists them in fixed-size batches.
// It is not safe for concurrent use.
type BatchCache struct {
	batchSize int
	persister Persister
	name      string
	logger    zerolog.Logger

	pending []league.Record
	flushes int
	closed  bool
}

// New creates a cache persisting batches of batchSize records through p.
// A batch size of 0 persists every Add call as a whole, including empty ones.
func New(batchSize int, p Persister, opts ...Option) (*BatchCache, error) {
	if batchSize < 0 {
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidBatchSize, batchSize)
	}
	if p == nil {
		return nil, errors.New("persister is required")
	}

	c := &BatchCache{
		batchSize: batchSize,
		persister: p,
		name:      "default",
		logger:    log.With().Str("component", "batch-cache").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// With runs fn with a new cache and always closes it, passing fn's error to
// Close. A panic in fn closes the cache without persisting and re-panics.
func With(ctx context.Context, batchSize int, p Persister, fn func(*BatchCache) error, opts ...Option) error {
	c, err := New(batchSize, p, opts...)
	if err != nil {
		return err
	}
	return c.Run(ctx, fn)
}

// Run calls fn and then Close with fn's error. See With.
func (c *BatchCache) Run(ctx context.Context, fn func(*BatchCache) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			_ = c.Close(ctx, fmt.Errorf("panic: %v", r))
			panic(r)
		}
		err = c.Close(ctx, err)
	}()
	return fn(c)
}

// Add appends records and persists every full batch, oldest first.
//
// If a persist call fails, Add returns its error and the failed batch stays
// at the front of the pending records together with everything after it.
// The flush count only advances for batches that were persisted.
func (c *BatchCache) Add(ctx context.Context, records []league.Record) error {
	if c.closed {
		return ErrClosed
	}

	c.pending = append(c.pending, records...)
	CachePending.WithLabelValues(c.name).Add(float64(len(records)))

	// With a batch size of 0 every call is one batch, even an empty one.
	if c.batchSize == 0 {
		return c.persist(ctx, len(c.pending))
	}

	for len(c.pending) >= c.batchSize {
		if err := c.persist(ctx, c.batchSize); err != nil {
			return err
		}
	}
	return nil
}

// Close ends the cache.
//
// When cause is nil, the remaining records are persisted even though they do
// not fill a batch, and Close returns the persist error if any; a failed Close
// may be called again. When cause is non-nil nothing is persisted and cause is
// returned unchanged. Close on a closed cache returns cause.
func (c *BatchCache) Close(ctx context.Context, cause error) error {
	if c.closed {
		return cause
	}

	if cause != nil {
		c.closed = true
		if len(c.pending) > 0 {
			CachePending.WithLabelValues(c.name).Sub(float64(len(c.pending)))
			c.logger.Warn().
				Str("cache", c.name).
				Int("pending", len(c.pending)).
				Err(cause).
				Msg("Closing cache after error, pending records not persisted")
		}
		return cause
	}

	if len(c.pending) > 0 {
		if err := c.persist(ctx, len(c.pending)); err != nil {
			return err
		}
	}
	c.closed = true
	return nil
}

// persist hands the first n pending records to the persister and flushes
// them on success.
func (c *BatchCache) persist(ctx context.Context, n int) error {
	batch := c.pending[:n:n]
	if err := c.persister.Persist(ctx, batch); err != nil {
		CachePersistErrors.WithLabelValues(c.name).Inc()
		c.logger.Error().
			Err(err).
			Str("cache", c.name).
			Int("batch", c.flushes+1).
			Int("records", n).
			Msg("Failed to persist batch")
		return fmt.Errorf("persist batch %d: %w", c.flushes+1, err)
	}

	c.flush(n)
	return nil
}

// flush drops the first n pending records after they were persisted.
func (c *BatchCache) flush(n int) {
	clear(c.pending[:n])
	c.pending = c.pending[n:]
	if len(c.pending) == 0 {
		c.pending = nil
	}
	c.flushes++

	CacheFlushes.WithLabelValues(c.name).Inc()
	CacheFlushRecords.WithLabelValues(c.name).Observe(float64(n))
	CachePending.WithLabelValues(c.name).Sub(float64(n))

	c.logger.Debug().
		Str("cache", c.name).
		Int("batch", c.flushes).
		Int("records", n).
		Int("pending", len(c.pending)).
		Msg("Persisted batch")
}

// Flushes returns the number of batches persisted so far.
func (c *BatchCache) Flushes() int {
	return c.flushes
}

// Pending returns the number of records waiting to be persisted.
func (c *BatchCache) Pending() int {
	return len(c.pending)
}

// Empty reports whether no records are waiting to be persisted.
func (c *BatchCache) Empty() bool {
	return len(c.pending) == 0
}

// BatchSize returns the configured batch size.
func (c *BatchCache) BatchSize() int {
	return c.batchSize
}
