package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/ladder-ingest/pkg/league"
)

// clearEnv blanks every variable Load reads so the host environment does not
// leak into tests.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"RIOT_API_TOKEN", "RIOT_KEY_TYPE", "RIOT_USER_AGENT", "RIOT_BASE_URL", DSNEnv,
		"REDIS_URL", "LADDER_QUEUE", "LADDER_SERVERS", "LADDER_BATCH_SIZE",
		"LADDER_TOTAL_ENTRIES", "LADDER_MAX_CONCURRENCY", "LADDER_PAGE_TIMEOUT",
		"LOG_LEVEL", "LOG_PRETTY", "METRICS_ADDR",
	} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ladder.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Ingest.BatchSize != 16 || cfg.Ingest.Queue != "RANKED_SOLO_5x5" || cfg.Riot.KeyType != "development" {
		t.Errorf("defaults = %+v", cfg.Ingest)
	}
	if !errors.Is(cfg.Validate(), ErrMissingDSN) {
		t.Errorf("Validate() without DSN = %v, want ErrMissingDSN", cfg.Validate())
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
riot:
  token: RGAPI-file
  key_type: production
database:
  dsn: /var/lib/ladder/ladder.duckdb
ingest:
  batch_size: 32
  total_entries: 5000
  servers: [EUW1, KR]
  page_timeout: 20s
log:
  pretty: true
`)
	t.Setenv("RIOT_API_TOKEN", "RGAPI-env")
	t.Setenv("LADDER_BATCH_SIZE", "64")
	t.Setenv("LADDER_SERVERS", "NA, OCE")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Riot.Token != "RGAPI-env" {
		t.Errorf("Token = %q, env should win", cfg.Riot.Token)
	}
	if cfg.Riot.KeyType != "production" || cfg.Database.DSN != "/var/lib/ladder/ladder.duckdb" {
		t.Errorf("file values lost: %+v %+v", cfg.Riot, cfg.Database)
	}
	if cfg.Ingest.BatchSize != 64 || cfg.Ingest.TotalEntries != 5000 {
		t.Errorf("Ingest = %+v", cfg.Ingest)
	}
	if cfg.Ingest.PageTimeout != 20*time.Second || !cfg.Log.Pretty {
		t.Errorf("PageTimeout = %v Pretty = %v", cfg.Ingest.PageTimeout, cfg.Log.Pretty)
	}

	servers, err := cfg.ServerCodes()
	if err != nil {
		t.Fatalf("ServerCodes() error = %v", err)
	}
	if len(servers) != 2 || servers[0] != league.ServerNA || servers[1] != league.ServerOCE {
		t.Errorf("ServerCodes() = %v, want [NA1 OC1]", servers)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		env     map[string]string
		wantMsg string
	}{
		{
			name:    "unknown field",
			file:    "ingest:\n  batchsize: 3\n",
			wantMsg: "field batchsize not found",
		},
		{
			name:    "multiple documents",
			file:    "log:\n  level: debug\n---\nlog:\n  level: info\n",
			wantMsg: "multiple YAML documents",
		},
		{
			name:    "bad integer",
			env:     map[string]string{"LADDER_TOTAL_ENTRIES": "lots"},
			wantMsg: "LADDER_TOTAL_ENTRIES",
		},
		{
			name:    "bad bool",
			env:     map[string]string{"LOG_PRETTY": "sometimes"},
			wantMsg: "LOG_PRETTY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeFile(t, tt.file)
			}

			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Load() error = %v, want it to mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() error = %v, want os.ErrNotExist", err)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := Default()
		cfg.Database.DSN = ":memory:"
		cfg.Riot.Token = "RGAPI-x"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing token", mutate: func(c *Config) { c.Riot.Token = "" }, wantErr: true},
		{name: "unknown key type", mutate: func(c *Config) { c.Riot.KeyType = "enterprise" }, wantErr: true},
		{name: "unknown queue", mutate: func(c *Config) { c.Ingest.Queue = "ARAM" }, wantErr: true},
		{name: "unknown server", mutate: func(c *Config) { c.Ingest.Servers = []string{"EUW", "PBE1"} }, wantErr: true},
		{name: "negative batch size", mutate: func(c *Config) { c.Ingest.BatchSize = -1 }, wantErr: true},
		{name: "zero batch size", mutate: func(c *Config) { c.Ingest.BatchSize = 0 }},
		{name: "zero total", mutate: func(c *Config) { c.Ingest.TotalEntries = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestServerCodes_DefaultsToAll(t *testing.T) {
	servers, err := Default().ServerCodes()
	if err != nil {
		t.Fatalf("ServerCodes() error = %v", err)
	}
	if len(servers) != len(league.Servers()) {
		t.Errorf("ServerCodes() = %d servers, want all %d", len(servers), len(league.Servers()))
	}
}

func TestServerCodes_Deduplicates(t *testing.T) {
	cfg := Default()
	cfg.Ingest.Servers = []string{"EUW1", "EUW", "KR", "EUW1"}

	servers, err := cfg.ServerCodes()
	if err != nil {
		t.Fatalf("ServerCodes() error = %v", err)
	}
	if len(servers) != 2 || servers[0] != league.ServerEUW || servers[1] != league.ServerKR {
		t.Errorf("ServerCodes() = %v, want [EUW1 KR]", servers)
	}
}
