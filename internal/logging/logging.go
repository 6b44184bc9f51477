// Package logging is the process-wide zerolog logger shared by the listener,
// the WebSocket client and the add-in objects.
//
// Every line carries a "component" field; add-in instances log through
// ForInstance so their lines also carry the class and instance id.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/alkoleft/web-transport-addin/internal/config"
)

// Component is the value of the "component" field on every line.
const Component = "webtransport"

// Logger is the global logger instance.
var Logger zerolog.Logger

// Level represents log levels.
type Level = zerolog.Level

const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
	Disabled   = zerolog.Disabled
)

// Config holds logger configuration.
type Config struct {
	Level Level
	// Output defaults to os.Stderr.
	Output io.Writer
	// Pretty switches to zerolog's console writer.
	Pretty     bool
	TimeFormat string
}

// DefaultConfig returns info level JSON lines on stderr.
func DefaultConfig() Config {
	return Config{
		Level:      InfoLevel,
		Output:     os.Stderr,
		TimeFormat: time.RFC3339,
	}
}

// FromConfig maps the log section of the add-in configuration.
func FromConfig(c config.LogConfig) Config {
	cfg := DefaultConfig()
	cfg.Level = ParseLevel(c.Level)
	cfg.Pretty = c.Pretty
	return cfg
}

// Init replaces the global logger.
func Init(cfg Config) {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = time.RFC3339
	}
	zerolog.TimeFieldFormat = cfg.TimeFormat

	out := cfg.Output
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: cfg.TimeFormat}
	}

	Logger = zerolog.New(out).
		Level(cfg.Level).
		With().
		Timestamp().
		Str("component", Component).
		Logger()
}

// Nop silences the global logger.
func Nop() {
	Logger = zerolog.Nop()
}

// ParseLevel accepts zerolog level names plus WARNING and OFF/NONE, ignoring
// case and surrounding space. Anything else is InfoLevel.
func ParseLevel(level string) Level {
	switch s := strings.ToLower(strings.TrimSpace(level)); s {
	case "warning":
		return WarnLevel
	case "off", "none":
		return Disabled
	case "":
		return InfoLevel
	default:
		l, err := zerolog.ParseLevel(s)
		if err != nil || l == zerolog.NoLevel {
			return InfoLevel
		}
		return l
	}
}

// ForInstance returns a child of the global logger tagged with an add-in
// class and instance id.
func ForInstance(class, id string) zerolog.Logger {
	return Logger.With().Str("addin", class).Str("instance", id).Logger()
}

func Debug() *zerolog.Event { return Logger.Debug() }
func Info() *zerolog.Event  { return Logger.Info() }
func Warn() *zerolog.Event  { return Logger.Warn() }
func Error() *zerolog.Event { return Logger.Error() }

func init() {
	Init(DefaultConfig())
}
