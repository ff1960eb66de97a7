package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisKeyPrefix namespaces the shared last-invocation timestamps.
// The full key is RedisKeyPrefix + scope.
const RedisKeyPrefix = "ladder:rate_limit:last_invoked:"

// Prometheus metrics for rate limiting.
var (
	rateLimitWaitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ladder_ratelimit_waits_total",
		Help: "Total number of calls that had to wait for a rate limit slot",
	}, []string{"scope"})

	rateLimitWaitSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ladder_ratelimit_wait_seconds",
		Help:    "Advisory wait durations handed out by rate limiters",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"scope"})

	rateLimitSyncErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ladder_ratelimit_sync_errors_total",
		Help: "Total number of failed shared-state operations against Redis",
	}, []string{"operation"})
)

// recordScript sets KEYS[1] to ARGV[1] only if ARGV[1] is strictly greater
// than the stored value. Values are Unix microseconds so they stay exact in
// Lua's double-precision numbers.
var recordScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if current and tonumber(current) >= tonumber(ARGV[1]) then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1])
return 1
`)

// Tracker shares one key's last invocation across processes through Redis.
// Every process keeps its own Group; the tracker keeps the Group's clock in
// step with the shared value before computing waits.
type Tracker struct {
	redis  *redis.Client
	scope  string
	group  *Group
	logger zerolog.Logger
}

// NewTracker creates a tracker for scope, usually "<key type>:<server>".
// The scope must not contain the API token itself.
func NewTracker(redisClient *redis.Client, scope string, group *Group, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		scope:  scope,
		group:  group,
		logger: logger.With().Str("scope", scope).Logger(),
	}
}

// Key returns the Redis key holding the shared timestamp.
func (t *Tracker) Key() string {
	return RedisKeyPrefix + t.scope
}

// Group returns the local limiter group.
func (t *Tracker) Group() *Group {
	return t.group
}

// Sync pulls the shared timestamp into the local group.
// A missing key means no process has made a call yet.
func (t *Tracker) Sync(ctx context.Context) error {
	micros, err := t.redis.Get(ctx, t.Key()).Int64()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		rateLimitSyncErrorsTotal.WithLabelValues("get").Inc()
		return fmt.Errorf("get last invocation: %w", err)
	}

	t.group.Record(time.UnixMicro(micros))
	return nil
}

// Wait syncs with Redis and returns the group's wait at now.
func (t *Tracker) Wait(ctx context.Context, now time.Time) (time.Duration, bool, error) {
	if err := t.Sync(ctx); err != nil {
		return 0, false, err
	}
	wait, ok := t.group.Wait(now)
	return wait, ok, nil
}

// Record publishes a call made at now. Redis applies the same monotonic guard
// as the local limiters, so stale timestamps from slow processes are dropped.
func (t *Tracker) Record(ctx context.Context, now time.Time) error {
	applied, err := recordScript.Run(ctx, t.redis, []string{t.Key()}, now.UnixMicro()).Int()
	if err != nil {
		rateLimitSyncErrorsTotal.WithLabelValues("record").Inc()
		return fmt.Errorf("record invocation: %w", err)
	}

	t.group.Record(now)

	t.logger.Debug().
		Time("invoked_at", now).
		Bool("applied", applied == 1).
		Msg("Recorded API invocation")
	return nil
}

// Reset clears the shared timestamp and the local group.
func (t *Tracker) Reset(ctx context.Context) error {
	if err := t.redis.Del(ctx, t.Key()).Err(); err != nil {
		rateLimitSyncErrorsTotal.WithLabelValues("reset").Inc()
		return fmt.Errorf("reset last invocation: %w", err)
	}
	t.group.Reset()
	return nil
}

// WaitContext implements Gate.
func (t *Tracker) WaitContext(ctx context.Context, now time.Time) (time.Duration, bool, error) {
	return t.Wait(ctx, now)
}

// RecordContext implements Gate.
func (t *Tracker) RecordContext(ctx context.Context, now time.Time) error {
	return t.Record(ctx, now)
}
