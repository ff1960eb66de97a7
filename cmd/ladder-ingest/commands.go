package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/ladder-ingest/pkg/client"
	"github.com/Sternrassler/ladder-ingest/pkg/config"
	"github.com/Sternrassler/ladder-ingest/pkg/distribution"
	"github.com/Sternrassler/ladder-ingest/pkg/ingest"
	"github.com/Sternrassler/ladder-ingest/pkg/league"
	"github.com/Sternrassler/ladder-ingest/pkg/logging"
	"github.com/Sternrassler/ladder-ingest/pkg/metrics"
	"github.com/Sternrassler/ladder-ingest/pkg/ratelimit"
	"github.com/Sternrassler/ladder-ingest/pkg/store"
)

func newRunCmd(loadConfig func() (config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Fetch the planned ladder sample and store it",
		Long: `Plans how many entries to take from every server, tier and division,
then fetches them page by page under the API key's rate limits and stores
them in batches.

Required environment:
  RIOT_API_TOKEN                       API key, sent as X-Riot-Token
  RIOT_DATA_DUMP_DB_CONNECTION_STRING  DuckDB database path`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			if cfg.Metrics.Addr != "" {
				logger := logging.NewLogger("metrics")
				go func() {
					if err := metrics.Serve(ctx, cfg.Metrics.Addr, logger); err != nil {
						logger.Error().Err(err).Msg("Metrics server failed")
					}
				}()
			}

			summary, err := runIngest(ctx, cfg)
			printSummary(cmd.OutOrStdout(), summary)
			return err
		},
	}
}

func newPlanCmd(loadConfig func() (config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Print how many entries would be fetched per bracket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			targets, err := planTargets(cfg)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SERVER\tQUEUE\tTIER\tDIVISION\tENTRIES")
			total := 0
			for _, t := range targets {
				b := t.Bracket
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", b.Server.Name(), b.Queue, b.Tier, b.Division, t.MaxEntries)
				total += t.MaxEntries
			}
			fmt.Fprintf(w, "\t\t\tTOTAL\t%d\n", total)
			return w.Flush()
		},
	}
}

func newDistributionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "distribution",
		Short: "Print the rank and server distribution tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := io.WriteString(cmd.OutOrStdout(), distribution.Describe())
			return err
		},
	}
}

// planTargets splits the configured total over the configured servers.
func planTargets(cfg config.Config) ([]distribution.Target, error) {
	queue, err := cfg.QueueCode()
	if err != nil {
		return nil, err
	}
	servers, err := cfg.ServerCodes()
	if err != nil {
		return nil, err
	}
	return distribution.Plan(cfg.Ingest.TotalEntries, queue, servers)
}

// runIngest wires store, client and rate limits and runs one ingestion.
func runIngest(ctx context.Context, cfg config.Config) (ingest.Summary, error) {
	logger := logging.NewLogger("cli")

	targets, err := planTargets(cfg)
	if err != nil {
		return ingest.Summary{}, err
	}

	db, err := store.Open(ctx, cfg.Database.DSN)
	if err != nil {
		return ingest.Summary{}, err
	}
	defer db.Close()

	clientCfg := client.DefaultConfig(cfg.Riot.Token, cfg.Riot.UserAgent)
	if cfg.Riot.BaseURL != "" {
		clientCfg.BaseURL = cfg.Riot.BaseURL
	}
	if cfg.Ingest.PageTimeout > 0 {
		clientCfg.Timeout = cfg.Ingest.PageTimeout
	}
	riot, err := client.New(clientCfg)
	if err != nil {
		return ingest.Summary{}, err
	}

	redisClient, err := openRedis(ctx, cfg.Redis.URL)
	if err != nil {
		return ingest.Summary{}, err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	run := store.NewRun(time.Now())
	logger.Info().
		Str("run_id", run.ID.String()).
		Int("targets", len(targets)).
		Int("total_entries", cfg.Ingest.TotalEntries).
		Str("key_type", cfg.Riot.KeyType).
		Bool("shared_rate_limit", redisClient != nil).
		Msg("Starting run")

	runner, err := ingest.New(riot, store.Persister[store.Player](db, run), gateFunc(cfg.Riot.KeyType, redisClient), ingest.Config{
		MaxConcurrency: cfg.Ingest.MaxConcurrency,
		BatchSize:      cfg.Ingest.BatchSize,
		PageTimeout:    cfg.Ingest.PageTimeout,
	})
	if err != nil {
		return ingest.Summary{}, err
	}
	return runner.Run(ctx, targets)
}

// gateFunc returns a fresh limiter group per server. With Redis the group's
// clock is shared with other processes using the same key type.
func gateFunc(keyType string, redisClient *redis.Client) ingest.GateFunc {
	return func(server league.Server) (ratelimit.Gate, error) {
		group, err := ratelimit.ForKeyType(keyType)
		if err != nil {
			return nil, err
		}
		if redisClient == nil {
			return group, nil
		}
		scope := keyType + ":" + string(server)
		return ratelimit.NewTracker(redisClient, scope, group, logging.NewLogger("ratelimit")), nil
	}
}

// openRedis connects to Redis. addr may be a redis:// URL or host:port.
// An empty addr returns a nil client.
func openRedis(ctx context.Context, addr string) (*redis.Client, error) {
	if addr == "" {
		return nil, nil
	}

	opts := &redis.Options{Addr: addr}
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		opts = parsed
	}

	redisClient := redis.NewClient(opts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		redisClient.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return redisClient, nil
}

func printSummary(out io.Writer, s ingest.Summary) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "BRACKET\tFETCHED\tPAGES\tBATCHES\tRESULT")
	for _, r := range s.Results {
		result := r.Reason.String()
		if r.Err != nil {
			result = "error: " + r.Err.Error()
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\n", r.Target.Bracket, r.Fetched, r.Pages, r.Flushes, result)
	}
	fmt.Fprintf(w, "TOTAL\t%d\t\t%d\t%d failed in %s\n", s.Fetched, s.Flushes, s.Failed, s.Duration.Round(time.Millisecond))
	_ = w.Flush()
}
