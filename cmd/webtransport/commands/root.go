// Package commands provides the CLI commands of the webtransport console host.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alkoleft/web-transport-addin/internal/config"
	"github.com/alkoleft/web-transport-addin/internal/logging"
	"github.com/alkoleft/web-transport-addin/pkg/addin"
)

// Global flags
var (
	configPath string
	logLevel   string
	prettyLogs bool
	noColor    bool
)

var rootCmd = &cobra.Command{
	Use:   "webtransport",
	Short: "Console host for the web transport add-in",
	Long: `webtransport drives the http, mcp and ws add-in classes from a terminal.

Run 'webtransport serve' to accept HTTP and SSE clients and print every
notification the listener delivers, or 'webtransport ws <url>' to talk to
a WebSocket server.`,
	Version:       addin.Version,
	SilenceUsage:  true,
	SilenceErrors: false,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (json, jsonc or yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (DEBUG|INFO|WARN|ERROR|OFF)")
	rootCmd.PersistentFlags().BoolVar(&prettyLogs, "pretty", false, "Human-readable logs")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.SetVersionTemplate(fmt.Sprintf("webtransport %s (classes %s)\n", addin.Version, addin.ClassNames()))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(wsCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig loads configuration and applies the global logging flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if prettyLogs {
		cfg.Log.Pretty = true
	}

	logging.Init(logging.FromConfig(cfg.Log))

	return cfg, nil
}
