// Package config loads the ingester configuration from an optional YAML file
// and the environment. Environment variables win over the file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Sternrassler/ladder-ingest/pkg/league"
	"github.com/Sternrassler/ladder-ingest/pkg/ratelimit"
)

// DSNEnv names the environment variable holding the database DSN.
const DSNEnv = "RIOT_DATA_DUMP_DB_CONNECTION_STRING"

// ErrMissingDSN is returned by Validate when no database is configured.
var ErrMissingDSN = errors.New(DSNEnv + " is required")

// Config is the complete ingester configuration.
type Config struct {
	Riot     RiotConfig     `yaml:"riot"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// RiotConfig configures API access.
type RiotConfig struct {
	Token     string `yaml:"token"`
	KeyType   string `yaml:"key_type"`
	UserAgent string `yaml:"user_agent"`
	BaseURL   string `yaml:"base_url"`
}

// DatabaseConfig configures the data store.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// RedisConfig configures the shared rate limit state. An empty URL keeps
// rate limit state in process.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// IngestConfig configures what is fetched and how it is written.
type IngestConfig struct {
	BatchSize      int           `yaml:"batch_size"`
	TotalEntries   int           `yaml:"total_entries"`
	Queue          string        `yaml:"queue"`
	Servers        []string      `yaml:"servers"`
	MaxConcurrency int           `yaml:"max_concurrency"`
	PageTimeout    time.Duration `yaml:"page_timeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// MetricsConfig configures the Prometheus endpoint. An empty address
// disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Riot: RiotConfig{
			KeyType:   ratelimit.KeyTypeDevelopment,
			UserAgent: "ladder-ingest/0.1.0",
		},
		Ingest: IngestConfig{
			BatchSize:      16,
			TotalEntries:   10_000,
			Queue:          string(league.QueueSoloDuo),
			MaxConcurrency: 4,
			PageTimeout:    15 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the YAML file at path, if path is not empty, over the defaults
// and then applies environment overrides. The result is not validated.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := parse(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// parse decodes a single strict YAML document into cfg.
func parse(data []byte, cfg *Config) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return fmt.Errorf("parse config: multiple YAML documents are not supported")
		}
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.Riot.Token = getEnv("RIOT_API_TOKEN", cfg.Riot.Token)
	cfg.Riot.KeyType = getEnv("RIOT_KEY_TYPE", cfg.Riot.KeyType)
	cfg.Riot.UserAgent = getEnv("RIOT_USER_AGENT", cfg.Riot.UserAgent)
	cfg.Riot.BaseURL = getEnv("RIOT_BASE_URL", cfg.Riot.BaseURL)
	cfg.Database.DSN = getEnv(DSNEnv, cfg.Database.DSN)
	cfg.Redis.URL = getEnv("REDIS_URL", cfg.Redis.URL)
	cfg.Ingest.Queue = getEnv("LADDER_QUEUE", cfg.Ingest.Queue)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Metrics.Addr = getEnv("METRICS_ADDR", cfg.Metrics.Addr)

	if v := os.Getenv("LADDER_SERVERS"); v != "" {
		cfg.Ingest.Servers = splitList(v)
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"LADDER_BATCH_SIZE", &cfg.Ingest.BatchSize},
		{"LADDER_TOTAL_ENTRIES", &cfg.Ingest.TotalEntries},
		{"LADDER_MAX_CONCURRENCY", &cfg.Ingest.MaxConcurrency},
	}
	for _, e := range ints {
		v := os.Getenv(e.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", e.key, err)
		}
		*e.dst = n
	}

	if v := os.Getenv("LADDER_PAGE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("LADDER_PAGE_TIMEOUT: %w", err)
		}
		cfg.Ingest.PageTimeout = d
	}

	if v := os.Getenv("LOG_PRETTY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("LOG_PRETTY: %w", err)
		}
		cfg.Log.Pretty = b
	}
	return nil
}

// Validate checks the configuration needed for an ingestion run.
func (c Config) Validate() error {
	if c.Database.DSN == "" {
		return ErrMissingDSN
	}
	if c.Riot.Token == "" {
		return errors.New("RIOT_API_TOKEN is required")
	}
	if _, err := ratelimit.ForKeyType(c.Riot.KeyType); err != nil {
		return err
	}
	if _, err := c.QueueCode(); err != nil {
		return err
	}
	if _, err := c.ServerCodes(); err != nil {
		return err
	}
	if c.Ingest.BatchSize < 0 {
		return fmt.Errorf("batch size cannot be negative (got %d)", c.Ingest.BatchSize)
	}
	if c.Ingest.TotalEntries <= 0 {
		return fmt.Errorf("total entries must be positive (got %d)", c.Ingest.TotalEntries)
	}
	if c.Ingest.MaxConcurrency < 0 {
		return fmt.Errorf("max concurrency cannot be negative (got %d)", c.Ingest.MaxConcurrency)
	}
	return nil
}

// QueueCode returns the configured queue.
func (c Config) QueueCode() (league.Queue, error) {
	return league.ParseQueue(c.Ingest.Queue)
}

// ServerCodes returns the configured servers, or every server when none are
// configured. Routing values and short names are both accepted; a server
// named more than once is returned once, in first-seen order.
func (c Config) ServerCodes() ([]league.Server, error) {
	if len(c.Ingest.Servers) == 0 {
		return league.Servers(), nil
	}
	out := make([]league.Server, 0, len(c.Ingest.Servers))
	for _, code := range c.Ingest.Servers {
		s, err := league.ParseServer(code)
		if err != nil {
			return nil, err
		}
		if slices.Contains(out, s) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
