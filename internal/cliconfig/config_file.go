package cliconfig

import (
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

// fileConfig mirrors Config with TOML tags. Booleans are pointers so an
// absent key is distinguishable from an explicit false.
type fileConfig struct {
	DevToolsURL   string `toml:"devtools_url"`
	ListenAddr    string `toml:"listen_addr"`
	AuthToken     string `toml:"auth_token"`
	StorageDriver string `toml:"storage_driver"`
	StoragePath   string `toml:"storage_path"`
	WatchSettings *bool  `toml:"watch_settings"`
	LogLevel      string `toml:"log_level"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (fileConfig, error) {
	var fc fileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc fileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("devtools-url", fc.DevToolsURL, &cfg.DevToolsURL)
	s.setString("listen", fc.ListenAddr, &cfg.ListenAddr)
	s.setString("auth-token", fc.AuthToken, &cfg.AuthToken)
	s.setString("storage-driver", fc.StorageDriver, &cfg.StorageDriver)
	s.setString("storage-path", fc.StoragePath, &cfg.StoragePath)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setBool("watch-settings", fc.WatchSettings, &cfg.WatchSettings)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
