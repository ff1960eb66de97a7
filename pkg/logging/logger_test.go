package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/ladder-ingest/pkg/league"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != LevelInfo {
		t.Errorf("Expected default level to be Info, got %s", cfg.Level)
	}

	if cfg.Pretty != false {
		t.Error("Expected default pretty to be false")
	}
}

func TestSetup(t *testing.T) {
	tests := []struct {
		name   string
		level  LogLevel
		pretty bool
		write  func(zerolog.Logger)
	}{
		{
			name:  "info_level",
			level: LevelInfo,
			write: func(l zerolog.Logger) { l.Info().Msg("target complete") },
		},
		{
			name:  "debug_level",
			level: LevelDebug,
			write: func(l zerolog.Logger) { l.Debug().Msg("target complete") },
		},
		{
			name:  "error_level",
			level: LevelError,
			write: func(l zerolog.Logger) { l.Error().Msg("target complete") },
		},
		{
			name:   "pretty_console",
			level:  LevelInfo,
			pretty: true,
			write:  func(l zerolog.Logger) { l.Info().Msg("target complete") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := Setup(Config{Level: tt.level, Pretty: tt.pretty, Output: buf})

			tt.write(logger)

			output := buf.String()
			if !strings.Contains(output, "target complete") {
				t.Errorf("Expected output to contain message, got %q", output)
			}
			if tt.pretty && strings.HasPrefix(output, "{") {
				t.Errorf("Pretty output should not be JSON, got %q", output)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
		wantErr  bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.expected {
				t.Errorf("ParseLevel(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}

	// Unknown levels fall back to Info when configuring the logger.
	if parseLevel("verbose") != zerolog.InfoLevel {
		t.Error("parseLevel should default to Info")
	}
}

func TestNewLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: buf,
	})

	logger := NewLogger("ingest")
	logger.Info().Msg("test message")

	output := buf.String()
	if !strings.Contains(output, `"component":"ingest"`) {
		t.Errorf("Expected output to contain component, got %q", output)
	}
}

func TestWithBracket(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelInfo, Output: buf})

	b := league.Bracket{
		Server:   league.ServerKR,
		Queue:    league.QueueFlexSR,
		Tier:     league.TierPlatinum,
		Division: league.DivisionII,
	}
	logger := WithBracket(NewLogger("ingest"), b)
	logger.Info().Msg("page")

	output := buf.String()
	for _, want := range []string{`"server":"KR"`, `"queue":"RANKED_FLEX_SR"`, `"tier":"PLATINUM"`, `"division":"II"`} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected output to contain %s, got %q", want, output)
		}
	}
}

func TestLogLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{
		Level:  LevelWarn,
		Pretty: false,
		Output: buf,
	})

	logger := NewLogger("test")

	logger.Debug().Msg("debug message")
	logger.Info().Msg("info message")
	logger.Warn().Msg("warn message")
	logger.Error().Msg("error message")

	output := buf.String()

	if strings.Contains(output, "debug message") || strings.Contains(output, "info message") {
		t.Error("Messages below Warn should be filtered out")
	}
	if !strings.Contains(output, "warn message") || !strings.Contains(output, "error message") {
		t.Error("Warn and Error messages should be included at Warn level")
	}
}
