package logging

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/alkoleft/web-transport-addin/internal/config"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != InfoLevel {
		t.Errorf("expected Level to be InfoLevel, got %v", cfg.Level)
	}
	if cfg.Output != os.Stderr {
		t.Errorf("expected Output to be os.Stderr")
	}
	if cfg.Pretty {
		t.Errorf("expected Pretty to be false")
	}
	if cfg.TimeFormat != time.RFC3339 {
		t.Errorf("expected TimeFormat to be RFC3339, got %s", cfg.TimeFormat)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"DEBUG", DebugLevel},
		{"debug", DebugLevel},
		{"  DEBUG  ", DebugLevel},
		{"INFO", InfoLevel},
		{"warn", WarnLevel},
		{"WARNING", WarnLevel},
		{"error", ErrorLevel},
		{"FATAL", zerolog.FatalLevel},
		{"trace", zerolog.TraceLevel},
		{"none", Disabled},
		{"off", Disabled},
		{"", InfoLevel},
		{"verbose", InfoLevel},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.expected {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestInit_WritesJSON(t *testing.T) {
	defer Init(DefaultConfig())

	var buf bytes.Buffer
	Init(Config{Level: DebugLevel, Output: &buf})

	Debug().Str("requestID", "7").Msg("request delivered")

	out := buf.String()
	if !strings.Contains(out, `"requestID":"7"`) {
		t.Errorf("expected requestID field, got %s", out)
	}
	if !strings.Contains(out, `"message":"request delivered"`) {
		t.Errorf("expected message, got %s", out)
	}
}

func TestInit_LevelFilters(t *testing.T) {
	defer Init(DefaultConfig())

	var buf bytes.Buffer
	Init(Config{Level: WarnLevel, Output: &buf})

	Info().Msg("hidden")
	Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message should be filtered: %s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn message should be written: %s", out)
	}
}

func TestNop(t *testing.T) {
	defer Init(DefaultConfig())

	Nop()
	if Logger.GetLevel() != zerolog.Disabled {
		t.Errorf("expected disabled logger, got %v", Logger.GetLevel())
	}
}

func TestFromConfig(t *testing.T) {
	cfg := FromConfig(config.LogConfig{Level: "debug", Pretty: true})

	if cfg.Level != DebugLevel {
		t.Errorf("expected DebugLevel, got %v", cfg.Level)
	}
	if !cfg.Pretty {
		t.Errorf("expected Pretty to be true")
	}
	if cfg.Output != os.Stderr {
		t.Errorf("expected Output to default to os.Stderr")
	}
}

func TestForInstance(t *testing.T) {
	defer Init(DefaultConfig())

	var buf bytes.Buffer
	Init(Config{Level: DebugLevel, Output: &buf})

	log := ForInstance("http", "01J0000000000000000000000")
	log.Info().Msg("started")

	out := buf.String()
	for _, want := range []string{
		`"component":"webtransport"`,
		`"addin":"http"`,
		`"instance":"01J0000000000000000000000"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in %s", want, out)
		}
	}
}
