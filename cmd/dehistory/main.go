package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/taka-sakai/dehistory/internal/app"
	"github.com/taka-sakai/dehistory/internal/cliconfig"
	"github.com/taka-sakai/dehistory/internal/whitelist"
)

const helpDescription = `
Keep a browser clean without losing the sites you care about.

dehistory attaches to a browser's remote-debugging endpoint and removes
browsing data (history, cookies, cache, site storage) on demand, on
startup and when the last window closes. A whitelist keeps cookies
and cached storage for the domains you choose.

Settings and the whitelist are edited over the local HTTP control
surface; configure the daemon via file, environment, or flags.
`

var exampleUsage = strings.TrimSpace(`
  dehistory --auth-token <token>
  dehistory --config ~/.config/dehistory/config.toml --storage-driver sqlite
  dehistory clean --auth-token <token>
  dehistory check whitelist.txt
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	// A .env in the working directory is a convenient place for the auth
	// token during development; absence is not an error.
	_ = godotenv.Load()

	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	resolve := func(cmd *cobra.Command) error {
		cfgFile := cfgPath
		if cfgFile == "" {
			cfgFile = cliconfig.DefaultConfigPath()
		}

		changed := map[string]bool{}
		cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

		if cfgFile != "" && cliconfig.FileExists(cfgFile) {
			fc, err := cliconfig.LoadFileConfig(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
				return err
			}
		}

		// Environment overrides the file but yields to explicit flags.
		if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
			return err
		}

		return cfg.Validate()
	}

	root := &cobra.Command{
		Use:     "dehistory",
		Short:   "Remove browsing data on your terms, keeping whitelisted sites",
		Long:    strings.TrimSpace(helpDescription),
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := resolve(cmd); err != nil {
				return err
			}

			logCfg := cfg
			if len(logCfg.AuthToken) > 0 {
				logCfg.AuthToken = "*****"
			}
			log.Info().Interface("config", logCfg).Msg("configuration")

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return app.Run(ctx, cfg)
		},
	}

	clean := &cobra.Command{
		Use:   "clean",
		Short: "Run a single full cleaning pass and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := resolve(cmd); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := app.CleanOnce(ctx, cfg); err != nil {
				return err
			}
			log.Info().Msg("cleaning finished")
			return nil
		},
	}

	check := &cobra.Command{
		Use:   "check <whitelist-file>",
		Short: "Validate a whitelist file and report problems with line numbers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			entries, err := whitelist.Parse(string(data))
			if err != nil {
				return err
			}
			log.Info().Int("entries", len(entries)).Msg("whitelist is valid")
			return nil
		},
	}

	for _, c := range []*cobra.Command{root, clean} {
		c.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $XDG_CONFIG_HOME/dehistory/config.toml)")
		c.Flags().StringVar(&cfg.DevToolsURL, "devtools-url", cfg.DevToolsURL, "browser remote-debugging endpoint")
		c.Flags().StringVar(&cfg.AuthToken, "auth-token", cfg.AuthToken, "token for control-surface authentication")
		c.Flags().StringVar(&cfg.StorageDriver, "storage-driver", cfg.StorageDriver, "settings backend: file or sqlite")
		c.Flags().StringVar(&cfg.StoragePath, "storage-path", cfg.StoragePath, "settings file or database path (defaults under XDG data dir)")
		c.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	}
	root.Flags().StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "control-surface bind address")
	root.Flags().BoolVar(&cfg.WatchSettings, "watch-settings", cfg.WatchSettings, "reload settings when the storage file changes externally")

	root.AddCommand(clean, check)

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("dehistory")
		os.Exit(1)
	}
}
