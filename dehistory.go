// Package dehistory provides a browsing-data cleaner daemon for browsers
// exposing a DevTools remote-debugging endpoint.
//
// Example usage:
//
//	cfg := dehistory.DefaultConfig()
//	cfg.AuthToken = "your-control-token"
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//	if err := dehistory.Run(context.Background(), cfg); err != nil {
//	    log.Fatal(err)
//	}
package dehistory

import (
	"context"

	"github.com/taka-sakai/dehistory/internal/app"
	"github.com/taka-sakai/dehistory/internal/cliconfig"
)

// Config holds the daemon configuration.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config = cliconfig.Config

// Run starts the daemon with the given configuration. It blocks until the
// context is cancelled, supervising the browser connection with reconnect
// backoff in between sessions.
func Run(ctx context.Context, cfg Config) error {
	return app.Run(ctx, cfg)
}

// CleanOnce attaches to the browser, runs a single full cleaning pass with
// the persisted settings and whitelist, and returns.
func CleanOnce(ctx context.Context, cfg Config) error {
	return app.CleanOnce(ctx, cfg)
}

// DefaultConfig returns a Config with sensible default values.
// At minimum, you must set AuthToken before calling Run.
func DefaultConfig() Config {
	return cliconfig.DefaultConfig()
}

// DefaultDevToolsURL is the browser's default remote-debugging address.
const DefaultDevToolsURL = cliconfig.DefaultDevToolsURL
