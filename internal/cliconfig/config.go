// Package cliconfig holds the daemon configuration and its resolution
// order: defaults, then config file, then environment, then flags.
package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
)

// Storage driver names.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// DefaultDevToolsURL is the browser's default remote-debugging address.
const DefaultDevToolsURL = "http://127.0.0.1:9222"

// DefaultListenAddr is the default control-surface bind address.
const DefaultListenAddr = "127.0.0.1:8990"

// Config holds the daemon configuration. Cleaning behavior (whitelist,
// trigger flags) is not here: it lives in the settings store and is edited
// through the control surface.
type Config struct {
	// DevToolsURL is the browser's remote-debugging HTTP endpoint.
	DevToolsURL string

	// ListenAddr is the bind address of the HTTP control surface.
	ListenAddr string

	// AuthToken authenticates control-surface requests. Required.
	AuthToken string

	// StorageDriver selects the settings backend: "file" or "sqlite".
	StorageDriver string

	// StoragePath is the settings file or database path. Derived from the
	// XDG data directory when left empty.
	StoragePath string

	// WatchSettings reloads the settings store when the storage file is
	// rewritten externally. Only effective with the file driver.
	WatchSettings bool

	// LogLevel is one of debug, info, warn, error.
	LogLevel string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		DevToolsURL:   DefaultDevToolsURL,
		ListenAddr:    DefaultListenAddr,
		AuthToken:     os.Getenv("DEHISTORY_AUTH_TOKEN"),
		StorageDriver: DriverFile,
		WatchSettings: true,
		LogLevel:      "info",
	}
}

// DefaultConfigPath returns the default configuration file path under the
// XDG config directory.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "dehistory", "config.toml")
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.AuthToken == "" {
		return fmt.Errorf("auth-token is required")
	}

	if c.DevToolsURL == "" {
		c.DevToolsURL = DefaultDevToolsURL
	}
	c.DevToolsURL = strings.TrimSuffix(c.DevToolsURL, "/")

	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}

	switch c.StorageDriver {
	case DriverFile, DriverSQLite:
	case "":
		c.StorageDriver = DriverFile
	default:
		return fmt.Errorf("unknown storage driver %q (want %s or %s)", c.StorageDriver, DriverFile, DriverSQLite)
	}

	if c.StoragePath == "" {
		name := "settings.json"
		if c.StorageDriver == DriverSQLite {
			name = "settings.db"
		}
		c.StoragePath = filepath.Join(xdg.DataHome, "dehistory", name)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	case "":
		c.LogLevel = "info"
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}

	return nil
}

// configSetter helps apply configuration values while respecting flag
// precedence. It only applies values if the corresponding flag hasn't been
// explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false. Used for
// environment variables.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
