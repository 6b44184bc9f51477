package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Environment variables recognised by Load.
const (
	EnvPrefix        = "WEBTRANSPORT_"
	EnvConfigFile    = "WEBTRANSPORT_CONFIG"
	EnvConfigContent = "WEBTRANSPORT_CONFIG_CONTENT"
)

// Config is the add-in configuration.
type Config struct {
	Log       LogConfig       `json:"log" yaml:"log"`
	HTTP      HTTPConfig      `json:"http" yaml:"http"`
	WebSocket WebSocketConfig `json:"websocket" yaml:"websocket"`
}

// LogConfig configures internal/logging.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Pretty bool   `json:"pretty" yaml:"pretty"`
}

// HTTPConfig configures the HTTP listener and the event bridge.
type HTTPConfig struct {
	ResponseTimeout    Duration `json:"responseTimeout" yaml:"responseTimeout"`
	ShutdownTimeout    Duration `json:"shutdownTimeout" yaml:"shutdownTimeout"`
	EventBufferDepth   int      `json:"eventBufferDepth" yaml:"eventBufferDepth"`
	DefaultContentType string   `json:"defaultContentType" yaml:"defaultContentType"`
	ProbeBody          string   `json:"probeBody" yaml:"probeBody"`
	EventSource        string   `json:"eventSource" yaml:"eventSource"`
}

// WebSocketConfig configures the WebSocket client.
type WebSocketConfig struct {
	// HandshakeTimeout bounds the opening handshake. Zero waits indefinitely.
	HandshakeTimeout Duration `json:"handshakeTimeout" yaml:"handshakeTimeout"`
	ReadBufferSize   int      `json:"readBufferSize" yaml:"readBufferSize"`
	WriteBufferSize  int      `json:"writeBufferSize" yaml:"writeBufferSize"`
	// InboundQueue is how many received frames are buffered before the reader stops reading.
	InboundQueue int `json:"inboundQueue" yaml:"inboundQueue"`
}

// Default returns the configuration used when nothing else is supplied.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level: "INFO",
		},
		HTTP: HTTPConfig{
			ResponseTimeout:    Duration(30 * time.Second),
			ShutdownTimeout:    Duration(5 * time.Second),
			EventBufferDepth:   128,
			DefaultContentType: "application/json; charset=utf-8",
			ProbeBody:          "MCP server",
			EventSource:        "WebTransport",
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			InboundQueue:    64,
		},
	}
}

// Load loads configuration from multiple sources (priority order):
// 1. Built-in defaults
// 2. .env file in the working directory
// 3. Config file (path argument, WEBTRANSPORT_CONFIG, or the global config dir)
// 4. WEBTRANSPORT_CONFIG_CONTENT inline JSON
// 5. WEBTRANSPORT_* environment variables
func Load(path string) (*Config, error) {
	cfg := Default()

	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		if err := loadConfigFile(path, cfg); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	} else {
		for _, candidate := range GetPaths().ConfigFiles() {
			if err := loadConfigFile(candidate, cfg); err == nil {
				break
			} else if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("load config %s: %w", candidate, err)
			}
		}
	}

	if content := os.Getenv(EnvConfigContent); content != "" {
		if err := json.Unmarshal(jsonc.ToJSON([]byte(content)), cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", EnvConfigContent, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadConfigFile loads a single config file over cfg.
func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	data = interpolate(data)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		// Strip JSONC comments using tidwall/jsonc
		return json.Unmarshal(jsonc.ToJSON(data), cfg)
	}
}

var envPattern = regexp.MustCompile(`\{env:([^}]+)\}`)

// interpolate processes {env:VAR} placeholders.
func interpolate(data []byte) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		varName := envPattern.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(varName)))
	})
}

// applyEnvOverrides applies WEBTRANSPORT_* environment variables.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv(EnvPrefix + "LOG_PRETTY"); v != "" {
		pretty, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sLOG_PRETTY: %w", EnvPrefix, err)
		}
		cfg.Log.Pretty = pretty
	}
	if v := os.Getenv(EnvPrefix + "RESPONSE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sRESPONSE_TIMEOUT: %w", EnvPrefix, err)
		}
		cfg.HTTP.ResponseTimeout = Duration(d)
	}
	if v := os.Getenv(EnvPrefix + "SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sSHUTDOWN_TIMEOUT: %w", EnvPrefix, err)
		}
		cfg.HTTP.ShutdownTimeout = Duration(d)
	}
	if v := os.Getenv(EnvPrefix + "EVENT_BUFFER_DEPTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sEVENT_BUFFER_DEPTH: %w", EnvPrefix, err)
		}
		cfg.HTTP.EventBufferDepth = n
	}
	if v := os.Getenv(EnvPrefix + "WS_HANDSHAKE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sWS_HANDSHAKE_TIMEOUT: %w", EnvPrefix, err)
		}
		cfg.WebSocket.HandshakeTimeout = Duration(d)
	}
	return nil
}

// Validate rejects settings the bridge cannot run with.
func (c *Config) Validate() error {
	if c.HTTP.ResponseTimeout <= 0 {
		return errors.New("http.responseTimeout must be positive")
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		return errors.New("http.shutdownTimeout must be positive")
	}
	if c.HTTP.EventBufferDepth <= 0 {
		return errors.New("http.eventBufferDepth must be positive")
	}
	if c.HTTP.EventSource == "" {
		return errors.New("http.eventSource must not be empty")
	}
	if c.WebSocket.HandshakeTimeout < 0 {
		return errors.New("websocket.handshakeTimeout must not be negative")
	}
	if c.WebSocket.InboundQueue <= 0 {
		return errors.New("websocket.inboundQueue must be positive")
	}
	return nil
}

// Duration is a time.Duration that reads and writes Go duration strings.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON accepts "30s" style strings or a number of milliseconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
		return nil
	}
	var ms int64
	if err := json.Unmarshal(data, &ms); err != nil {
		return fmt.Errorf("invalid duration %s", data)
	}
	*d = Duration(time.Duration(ms) * time.Millisecond)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}
