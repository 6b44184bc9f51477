package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Paths contains the standard locations for add-in files.
type Paths struct {
	Config string // ~/.config/webtransport
}

// GetPaths returns the standard paths for add-in files.
func GetPaths() *Paths {
	return &Paths{
		Config: filepath.Join(getEnvOrDefault("XDG_CONFIG_HOME", defaultConfigHome()), "webtransport"),
	}
}

// ConfigFiles returns the config file candidates in lookup order.
func (p *Paths) ConfigFiles() []string {
	return []string{
		filepath.Join(p.Config, "config.json"),
		filepath.Join(p.Config, "config.jsonc"),
		filepath.Join(p.Config, "config.yaml"),
		filepath.Join(p.Config, "config.yml"),
	}
}

// getEnvOrDefault returns the environment variable value or a default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func defaultConfigHome() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("APPDATA")
	}
	return filepath.Join(os.Getenv("HOME"), ".config")
}
