// Package ingest drives the fetch, pace and persist loop for a set of ladder
// targets.
//
// Each target is read page by page through a pagination.Fetcher. Before every
// page the runner waits for the server's rate limit slot and records the call,
// then hands the page to a cache.BatchCache that persists it in fixed-size
// transactions. Targets of one server share a rate limit gate and run one
// after the other; different servers run in parallel.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/ladder-ingest/pkg/cache"
	"github.com/Sternrassler/ladder-ingest/pkg/distribution"
	"github.com/Sternrassler/ladder-ingest/pkg/league"
	"github.com/Sternrassler/ladder-ingest/pkg/logging"
	"github.com/Sternrassler/ladder-ingest/pkg/pagination"
	"github.com/Sternrassler/ladder-ingest/pkg/ratelimit"
)

var (
	ingestTargetsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ladder_ingest_targets_total",
		Help: "Total ingested targets by outcome",
	}, []string{"outcome"})

	ingestEntriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ladder_ingest_entries_total",
		Help: "Total ladder entries fetched by server and tier",
	}, []string{"server", "tier"})

	ingestTargetDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ladder_ingest_target_duration_seconds",
		Help:    "Time to ingest one target by server",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{"server"})
)

// Source provides the page function of a bracket. *client.Client implements it.
type Source interface {
	PageFunc(b league.Bracket) pagination.PageFunc
}

// GateFunc returns the rate limit gate of a server. It is called once per
// server per Run.
type GateFunc func(server league.Server) (ratelimit.Gate, error)

// Config holds runner configuration.
type Config struct {
	// MaxConcurrency is the maximum number of servers ingested in parallel.
	MaxConcurrency int
	// BatchSize is the number of records per persisted batch; 0 persists
	// every page as one batch.
	BatchSize int
	// PageTimeout bounds a single page request.
	PageTimeout time.Duration
}

// DefaultConfig returns the default runner configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		BatchSize:      16,
		PageTimeout:    15 * time.Second,
	}
}

// Runner ingests targets.
type Runner struct {
	source    Source
	persister cache.Persister
	gates     GateFunc
	config    Config
	logger    zerolog.Logger

	now   ratelimit.Clock
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a runner reading from source and writing through persister.
func New(source Source, persister cache.Persister, gates GateFunc, cfg Config) (*Runner, error) {
	if source == nil {
		return nil, errors.New("source is required")
	}
	if persister == nil {
		return nil, errors.New("persister is required")
	}
	if gates == nil {
		return nil, errors.New("gate func is required")
	}
	if cfg.BatchSize < 0 {
		return nil, fmt.Errorf("%w (got %d)", cache.ErrInvalidBatchSize, cfg.BatchSize)
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 1
	}
	if cfg.PageTimeout <= 0 {
		cfg.PageTimeout = 15 * time.Second
	}

	return &Runner{
		source:    source,
		persister: persister,
		gates:     gates,
		config:    cfg,
		logger:    logging.NewLogger("ingest"),
	}, nil
}

// WithClock replaces the pacing clock and sleeper. Intended for tests.
func (r *Runner) WithClock(now ratelimit.Clock, sleep func(ctx context.Context, d time.Duration) error) *Runner {
	r.now = now
	r.sleep = sleep
	return r
}

// Run ingests every target and returns a summary in target order.
//
// A failed target does not stop the other targets; Run returns the joined
// target errors. Cancelling ctx stops all workers, and targets that were not
// started are reported with ctx's error.
func (r *Runner) Run(ctx context.Context, targets []distribution.Target) (Summary, error) {
	start := time.Now()

	results := make([]TargetResult, len(targets))
	var servers []league.Server
	byServer := make(map[league.Server][]int)
	for i, t := range targets {
		results[i] = TargetResult{Target: t}
		if err := t.Bracket.Validate(); err != nil {
			results[i].Err = err
			continue
		}
		if t.MaxEntries < 0 {
			results[i].Err = fmt.Errorf("%w (got %d)", pagination.ErrInvalidMaxEntries, t.MaxEntries)
			continue
		}
		if _, seen := byServer[t.Bracket.Server]; !seen {
			servers = append(servers, t.Bracket.Server)
		}
		byServer[t.Bracket.Server] = append(byServer[t.Bracket.Server], i)
	}

	r.logger.Info().
		Int("targets", len(targets)).
		Int("servers", len(servers)).
		Int("workers", min(r.config.MaxConcurrency, len(servers))).
		Msg("Starting ingestion")

	serverQueue := make(chan league.Server, len(servers))
	for _, s := range servers {
		serverQueue <- s
	}
	close(serverQueue)

	// Workers write disjoint result indexes.
	var wg sync.WaitGroup
	for i := 0; i < min(r.config.MaxConcurrency, len(servers)); i++ {
		wg.Add(1)
		go r.worker(ctx, serverQueue, byServer, targets, results, &wg, i)
	}
	wg.Wait()

	summary := newSummary(results, time.Since(start))
	r.logger.Info().
		Int("targets", len(results)).
		Int("failed", summary.Failed).
		Int("fetched", summary.Fetched).
		Int("flushes", summary.Flushes).
		Dur("duration", summary.Duration).
		Msg("Ingestion complete")

	return summary, summary.Err()
}

// worker processes servers from the queue, one target at a time.
func (r *Runner) worker(ctx context.Context, serverQueue <-chan league.Server, byServer map[league.Server][]int,
	targets []distribution.Target, results []TargetResult, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()

	for server := range serverQueue {
		logger := r.logger.With().Int("worker_id", workerID).Logger()

		gate, err := r.gates(server)
		if err != nil {
			for _, i := range byServer[server] {
				results[i].Err = fmt.Errorf("rate limit gate for %s: %w", server, err)
			}
			logger.Error().Err(err).Str("server", string(server)).Msg("No rate limit gate for server")
			continue
		}
		pacer := ratelimit.NewPacer(gate, string(server), logger)
		if r.now != nil {
			pacer.WithClock(r.now, r.sleep)
		}

		for _, i := range byServer[server] {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				continue
			}
			results[i] = r.runTarget(ctx, pacer, targets[i], logger)
		}
	}
}

// runTarget fetches one target to completion.
func (r *Runner) runTarget(ctx context.Context, pacer *ratelimit.Pacer, t distribution.Target, logger zerolog.Logger) TargetResult {
	start := time.Now()
	b := t.Bracket
	result := TargetResult{Target: t}
	logger = logging.WithBracket(logger, b).With().Int("max_entries", t.MaxEntries).Logger()

	finish := func(err error) TargetResult {
		result.Duration = time.Since(start)
		result.Err = err
		ingestTargetDuration.WithLabelValues(string(b.Server)).Observe(result.Duration.Seconds())
		if err != nil {
			ingestTargetsTotal.WithLabelValues("failed").Inc()
			logger.Error().Err(err).Int("fetched", result.Fetched).Msg("Target failed")
			return result
		}
		ingestTargetsTotal.WithLabelValues(result.Reason.String()).Inc()
		logger.Info().
			Int("fetched", result.Fetched).
			Int("pages", result.Pages).
			Int("flushes", result.Flushes).
			Str("reason", result.Reason.String()).
			Dur("duration", result.Duration).
			Msg("Target complete")
		return result
	}

	fetcher, err := pagination.NewFetcher(r.source.PageFunc(b), t.MaxEntries)
	if err != nil {
		return finish(err)
	}
	batches, err := cache.New(r.config.BatchSize, r.persister,
		cache.WithName(string(b.Server)),
		cache.WithLogger(logger))
	if err != nil {
		return finish(err)
	}

	err = batches.Run(ctx, func(c *cache.BatchCache) error {
		for !fetcher.Done() {
			var page []league.Record
			err := pacer.Invoke(ctx, func(ctx context.Context) error {
				pageCtx, cancel := context.WithTimeout(ctx, r.config.PageTimeout)
				defer cancel()

				var err error
				page, err = fetcher.Next(pageCtx)
				return err
			})
			if err != nil {
				return fmt.Errorf("%s page %d: %w", b, fetcher.Cursor().Page, err)
			}

			ingestEntriesTotal.WithLabelValues(string(b.Server), string(b.Tier)).Add(float64(len(page)))
			if err := c.Add(ctx, page); err != nil {
				return err
			}
		}
		return nil
	})

	cursor := fetcher.Cursor()
	result.Fetched = cursor.Fetched
	result.Pages = cursor.Page - 1
	result.Reason = fetcher.Reason()
	result.Flushes = batches.Flushes()
	return finish(err)
}
