package cliconfig

import "os"

// ApplyEnvConfig applies DEHISTORY_* environment variables. Env overrides
// the config file but is overridden by explicitly set flags.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("devtools-url", os.Getenv("DEHISTORY_DEVTOOLS_URL"), &cfg.DevToolsURL)
	s.setString("listen", os.Getenv("DEHISTORY_LISTEN_ADDR"), &cfg.ListenAddr)
	s.setString("auth-token", os.Getenv("DEHISTORY_AUTH_TOKEN"), &cfg.AuthToken)
	s.setString("storage-driver", os.Getenv("DEHISTORY_STORAGE_DRIVER"), &cfg.StorageDriver)
	s.setString("storage-path", os.Getenv("DEHISTORY_STORAGE_PATH"), &cfg.StoragePath)
	s.setString("log-level", os.Getenv("DEHISTORY_LOG_LEVEL"), &cfg.LogLevel)
	s.setBoolFromString("watch-settings", os.Getenv("DEHISTORY_WATCH_SETTINGS"), &cfg.WatchSettings)

	return nil
}
