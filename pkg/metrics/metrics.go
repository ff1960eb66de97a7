// Package metrics exposes the ingester's Prometheus metrics over HTTP.
// All metrics are defined in their respective packages (ratelimit, cache,
// client, store, ingest) and registered via promauto.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Registry is the Prometheus registerer used by every package.
var Registry = prometheus.DefaultRegisterer

// Handler returns a mux serving /metrics and /health.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", healthHandler)
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// Serve listens on addr and serves Handler until ctx is done. The listener
// is bound before Serve returns its first error, so a bad address fails
// immediately.
func Serve(ctx context.Context, addr string, logger zerolog.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listen: %w", err)
	}

	srv := &http.Server{
		Handler:           Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", ln.Addr().String()).Msg("Serving metrics")
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

// Metrics Documentation
//
// Rate Limit Metrics (pkg/ratelimit):
//   - ladder_ratelimit_waits_total{scope} (Counter): Calls that had to wait for a slot
//   - ladder_ratelimit_wait_seconds{scope} (Histogram): Advisory waits handed out
//   - ladder_ratelimit_sync_errors_total{operation} (Counter): Failed Redis operations
//
// Cache Metrics (pkg/cache):
//   - ladder_cache_flushes_total{cache} (Counter): Persisted batches
//   - ladder_cache_flush_records{cache} (Histogram): Records per persisted batch
//   - ladder_cache_persist_errors_total{cache} (Counter): Failed persist calls
//   - ladder_cache_pending_records{cache} (Gauge): Records waiting for a full batch
//
// Request Metrics (pkg/client):
//   - ladder_api_requests_total{server, status} (Counter): Requests by server and HTTP status
//   - ladder_api_request_duration_seconds{server} (Histogram): Request duration by server
//   - ladder_api_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network, decode)
//
// Store Metrics (pkg/store):
//   - ladder_store_transactions_total{outcome} (Counter): Transactions by outcome
//   - ladder_store_tx_duration_seconds (Histogram): Transaction duration
//   - ladder_store_rows_inserted_total{table} (Counter): Inserted rows by table
//
// Ingest Metrics (pkg/ingest):
//   - ladder_ingest_targets_total{outcome} (Counter): Finished targets by stop reason or "failed"
//   - ladder_ingest_entries_total{server, tier} (Counter): Fetched entries
//   - ladder_ingest_target_duration_seconds{server} (Histogram): Time per target
//
// Example Prometheus Queries:
//
//   # Entries per second by server
//   sum by (server) (rate(ladder_ingest_entries_total[5m]))
//
//   # Share of requests that waited for the rate limiter
//   rate(ladder_ratelimit_waits_total[5m]) / sum(rate(ladder_api_requests_total[5m]))
//
//   # 429s seen despite pacing
//   rate(ladder_api_requests_total{status="429"}[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(ladder_api_request_duration_seconds_bucket[5m]))
