package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/ladder-ingest/internal/testutil"
	"github.com/Sternrassler/ladder-ingest/pkg/config"
	"github.com/Sternrassler/ladder-ingest/pkg/league"
	"github.com/Sternrassler/ladder-ingest/pkg/ratelimit"
	"github.com/Sternrassler/ladder-ingest/pkg/store"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"RIOT_API_TOKEN", "RIOT_KEY_TYPE", "RIOT_USER_AGENT", "RIOT_BASE_URL", config.DSNEnv,
		"REDIS_URL", "LADDER_QUEUE", "LADDER_SERVERS", "LADDER_BATCH_SIZE",
		"LADDER_TOTAL_ENTRIES", "LADDER_MAX_CONCURRENCY", "LADDER_PAGE_TIMEOUT",
		"LOG_LEVEL", "LOG_PRETTY", "METRICS_ADDR",
	} {
		t.Setenv(key, "")
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestDistributionCommand(t *testing.T) {
	out, err := execute(t, "distribution")
	if err != nil {
		t.Fatalf("distribution error = %v", err)
	}
	for _, want := range []string{"DIAMOND", "IRON", "EUW:", "KR:"} {
		if !strings.Contains(out, want) {
			t.Errorf("distribution output missing %q:\n%s", want, out)
		}
	}
}

func TestPlanCommand(t *testing.T) {
	clearEnv(t)
	t.Setenv("LADDER_TOTAL_ENTRIES", "1000")
	t.Setenv("LADDER_SERVERS", "EUW")

	out, err := execute(t, "plan")
	if err != nil {
		t.Fatalf("plan error = %v", err)
	}
	if !strings.Contains(out, "EUW") || strings.Contains(out, "KR ") {
		t.Errorf("plan should only list EUW:\n%s", out)
	}
	if !strings.Contains(out, "TOTAL") {
		t.Errorf("plan output missing total:\n%s", out)
	}
}

func TestRunCommand_RequiresDSN(t *testing.T) {
	clearEnv(t)
	t.Setenv("RIOT_API_TOKEN", "RGAPI-test")

	_, err := execute(t, "run")
	if !errors.Is(err, config.ErrMissingDSN) {
		t.Errorf("run error = %v, want ErrMissingDSN", err)
	}
}

func TestRunCommand_BadConfigFile(t *testing.T) {
	clearEnv(t)
	_, err := execute(t, "run", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Error("run with a missing config file should fail")
	}
}

func TestGateFunc(t *testing.T) {
	gate, err := gateFunc(ratelimit.KeyTypeProduction, nil)(league.ServerEUW)
	if err != nil {
		t.Fatalf("gateFunc() error = %v", err)
	}
	if _, ok := gate.(*ratelimit.Group); !ok {
		t.Errorf("gate without redis = %T, want *ratelimit.Group", gate)
	}

	if _, err := gateFunc("enterprise", nil)(league.ServerEUW); err == nil {
		t.Error("gateFunc() with unknown key type should fail")
	}
}

func TestOpenRedis_Empty(t *testing.T) {
	c, err := openRedis(context.Background(), "")
	if err != nil || c != nil {
		t.Errorf("openRedis(\"\") = %v, %v, want nil, nil", c, err)
	}
	if _, err := openRedis(context.Background(), "redis://:bad url"); err == nil {
		t.Error("openRedis() with a malformed URL should fail")
	}
}

func TestRunIngest_EndToEnd(t *testing.T) {
	mock := testutil.NewMockRiot(205)
	defer mock.Close()
	for _, tier := range league.Tiers() {
		for _, d := range league.Divisions() {
			mock.SetEntries(string(league.QueueSoloDuo), string(tier), string(d), 10_000)
		}
	}

	dsn := filepath.Join(t.TempDir(), "ladder.duckdb")
	cfg := config.Default()
	cfg.Riot.Token = "RGAPI-test"
	cfg.Riot.KeyType = ratelimit.KeyTypeProduction
	cfg.Riot.BaseURL = mock.URL()
	cfg.Database.DSN = dsn
	cfg.Ingest.TotalEntries = 300
	cfg.Ingest.Servers = []string{"EUW1"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	summary, err := runIngest(ctx, cfg)
	if err != nil {
		t.Fatalf("runIngest() error = %v", err)
	}

	want := 0
	for _, r := range summary.Results {
		want += r.Target.MaxEntries
	}
	if summary.Fetched != want || want == 0 {
		t.Errorf("Fetched = %d, want %d", summary.Fetched, want)
	}

	db, err := store.Open(ctx, dsn)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer db.Close()

	stored, err := db.CountDistinctSummoners(ctx)
	if err != nil {
		t.Fatalf("CountDistinctSummoners() error = %v", err)
	}
	if stored != want {
		t.Errorf("stored %d summoners, want %d", stored, want)
	}

	out := &bytes.Buffer{}
	printSummary(out, summary)
	if !strings.Contains(out.String(), "TOTAL") || !strings.Contains(out.String(), "max_reached") {
		t.Errorf("summary output:\n%s", out.String())
	}
}
