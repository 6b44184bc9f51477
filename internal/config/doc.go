// Package config provides configuration loading for the web transport add-in.
//
// # Configuration Loading
//
// Load merges configuration from several sources; later sources win:
//
//  1. Built-in defaults (see Default)
//  2. A .env file in the working directory, loaded with godotenv
//  3. A config file: the path passed to Load, WEBTRANSPORT_CONFIG, or the first of
//     config.json, config.jsonc, config.yaml, config.yml under $XDG_CONFIG_HOME/webtransport
//  4. WEBTRANSPORT_CONFIG_CONTENT inline JSON
//  5. WEBTRANSPORT_* environment variables
//
// # Supported Formats
//
// JSON and JSONC files are processed with tidwall/jsonc; .yaml and .yml files with
// gopkg.in/yaml.v3. Both support {env:VAR_NAME} placeholders.
//
// Durations are written as Go duration strings ("30s", "500ms"); a bare number is
// read as milliseconds.
//
// # Example
//
//	{
//	  // JSONC comments are allowed
//	  "log": {"level": "DEBUG"},
//	  "http": {"responseTimeout": "30s", "eventBufferDepth": 128}
//	}
package config
