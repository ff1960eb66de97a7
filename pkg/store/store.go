// Package store persists ladder entries in a DuckDB database.
//
// There is no process-wide handle: callers Open a Store and pass it to
// whatever needs it. Every write goes through InTx, which commits on success
// and rolls back on error.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/ladder-ingest/pkg/league"
)

// DriverName is the database/sql driver used by Open.
const DriverName = "duckdb"

// schemaDDL creates the tables if they do not exist yet.
//
//go:embed schema.sql
var schemaDDL string

var (
	storeTxDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ladder_store_tx_duration_seconds",
		Help:    "Duration of store transactions in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})

	storeTxTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ladder_store_transactions_total",
		Help: "Total store transactions by outcome",
	}, []string{"outcome"})

	storeRowsInserted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ladder_store_rows_inserted_total",
		Help: "Total rows inserted by table",
	}, []string{"table"})
)

// Store is a handle to the ladder database.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Open connects to the DuckDB database at dsn and ensures the schema exists.
// An empty dsn or ":memory:" opens an in-memory database.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == ":memory:" {
		dsn = ""
	}

	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}

	s := New(db)
	if err := s.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing connection pool. The schema is not touched.
func New(db *sql.DB) *Store {
	if db == nil {
		panic("db cannot be nil")
	}
	return &Store{
		db:     db,
		logger: log.With().Str("component", "store").Logger(),
	}
}

// EnsureSchema creates missing tables. It does not migrate existing ones.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// DB returns the underlying connection pool.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// InTx runs fn in a transaction. The transaction is committed if fn returns
// nil and rolled back otherwise; fn's error is returned unchanged.
func (s *Store) InTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	start := time.Now()
	defer func() {
		storeTxDuration.Observe(time.Since(start).Seconds())
	}()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		storeTxTotal.WithLabelValues("begin_error").Inc()
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			storeTxTotal.WithLabelValues("rollback").Inc()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Warn().Err(rbErr).Msg("Rollback failed")
		}
		storeTxTotal.WithLabelValues("rollback").Inc()
		return err
	}

	if err := tx.Commit(); err != nil {
		storeTxTotal.WithLabelValues("commit_error").Inc()
		return fmt.Errorf("commit transaction: %w", err)
	}
	storeTxTotal.WithLabelValues("commit").Inc()
	return nil
}

// CountPlayers returns the number of stored entries in bracket.
func (s *Store) CountPlayers(ctx context.Context, b league.Bracket) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT count(*) FROM players
		WHERE server = ? AND ranked_queue = ? AND tier = ? AND division = ?`,
		string(b.Server), string(b.Queue), string(b.Tier), string(b.Division),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count players: %w", err)
	}
	return n, nil
}

// CountDistinctSummoners returns the number of distinct summoners stored.
func (s *Store) CountDistinctSummoners(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(DISTINCT summoner_id) FROM players`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count summoners: %w", err)
	}
	return n, nil
}
