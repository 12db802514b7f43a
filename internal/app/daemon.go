// Package app wires the dehistory daemon together: storage, browser
// connection, triggers and the control surface.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/taka-sakai/dehistory/internal/adapters/cdp"
	"github.com/taka-sakai/dehistory/internal/adapters/fsstore"
	"github.com/taka-sakai/dehistory/internal/adapters/memory"
	"github.com/taka-sakai/dehistory/internal/adapters/sqlitestore"
	"github.com/taka-sakai/dehistory/internal/cleaner"
	"github.com/taka-sakai/dehistory/internal/cliconfig"
	"github.com/taka-sakai/dehistory/internal/domain"
	"github.com/taka-sakai/dehistory/internal/orchestrator"
	"github.com/taka-sakai/dehistory/internal/ports"
	"github.com/taka-sakai/dehistory/internal/server"
	"github.com/taka-sakai/dehistory/internal/settings"
	"github.com/taka-sakai/dehistory/internal/status"
	"github.com/taka-sakai/dehistory/pkg/log"
)

const (
	shutdownTimeout  = 10 * time.Second
	reconnectInitial = time.Second
	reconnectMax     = time.Minute
)

// Run starts the daemon and blocks until the context is cancelled. The
// browser connection is supervised: when the browser exits, the daemon
// keeps retrying with backoff and attaches to the next session.
func Run(ctx context.Context, cfg cliconfig.Config) error {
	logger := newLogger(cfg.LogLevel)

	kv, closeStore, err := openStorage(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	store := settings.New(kv, logger)
	if err := store.Load(ctx); err != nil {
		return err
	}
	statusRepo := status.NewFileRepository(filepath.Dir(cfg.StoragePath))

	retry := newBackoff(reconnectInitial, reconnectMax)
	for {
		client, err := cdp.Dial(ctx, cfg.DevToolsURL, logger)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Warn("browser unreachable, retrying", log.Err(err))
			if err := retry.Wait(ctx); err != nil {
				return nil
			}
			continue
		}
		retry.Reset()
		logger.Info("attached to browser", log.String("devtools", cfg.DevToolsURL))

		err = runSession(ctx, cfg, store, statusRepo, client, logger)
		_ = client.Close()
		if ctx.Err() != nil {
			return nil
		}
		logger.Warn("browser session ended", log.Err(err))
		if err := retry.Wait(ctx); err != nil {
			return nil
		}
	}
}

// runSession operates one attached browser session: startup trigger,
// window-close watch, control surface and the optional settings watcher. It
// returns when the connection drops or ctx is cancelled.
func runSession(ctx context.Context, cfg cliconfig.Config, store *settings.Store, statusRepo status.Repository, client *cdp.Client, logger log.Logger) error {
	remover := cdp.NewRemover(client, logger)
	windows := cdp.NewWindows(client, logger)

	clean := cleaner.New(store, remover, logger)
	// A fresh session guard per attachment: a new browser session may be
	// cleaned on startup again.
	orch := orchestrator.New(store, clean, memory.NewSession(), windows, cfg.AuthToken, logger).
		WithStatus(statusRepo)

	// Attaching to the browser is this process's startup trigger.
	orch.HandleStartup(ctx)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-client.Done():
			return domain.ErrNotConnected
		}
	})

	// Window-close events arrive on the protocol read loop; handling them
	// there would deadlock against the calls the handler itself makes, so
	// they are queued and drained on their own goroutine.
	closeEvents := make(chan struct{}, 8)
	if err := windows.Watch(ctx, func() {
		select {
		case closeEvents <- struct{}{}:
		default:
		}
	}); err != nil {
		return fmt.Errorf("watch windows: %w", err)
	}
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-closeEvents:
				orch.HandleWindowClosed(ctx)
			}
		}
	})

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.New(orch, store, cfg.AuthToken, logger).WithStatus(statusRepo).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	g.Go(func() error {
		logger.Info("control surface listening", log.String("addr", cfg.ListenAddr))
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("control surface: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if cfg.WatchSettings && cfg.StorageDriver == cliconfig.DriverFile {
		watcher := settings.NewWatcher(store, cfg.StoragePath, logger)
		g.Go(func() error {
			watcher.Run(ctx)
			return nil
		})
	}

	return g.Wait()
}

// CleanOnce connects to the browser, runs a single full cleaning pass with
// the persisted settings and returns.
func CleanOnce(ctx context.Context, cfg cliconfig.Config) error {
	logger := newLogger(cfg.LogLevel)

	kv, closeStore, err := openStorage(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	store := settings.New(kv, logger)
	if err := store.Load(ctx); err != nil {
		return err
	}

	client, err := cdp.Dial(ctx, cfg.DevToolsURL, logger)
	if err != nil {
		return fmt.Errorf("attach to browser: %w", err)
	}
	defer client.Close()

	runErr := cleaner.New(store, cdp.NewRemover(client, logger), logger).ClearAll(ctx)

	statusRepo := status.NewFileRepository(filepath.Dir(cfg.StoragePath))
	st, err := statusRepo.Load(ctx)
	if err != nil {
		logger.Warn("status load failed", log.Err(err))
		st = status.Status{}
	}
	if runErr != nil {
		st.RecordFailure(status.TriggerManual, runErr)
	} else {
		st.RecordSuccess(status.TriggerManual)
	}
	if err := statusRepo.Save(ctx, st); err != nil {
		logger.Warn("status save failed", log.Err(err))
	}

	return runErr
}

// openStorage opens the configured settings backend. The returned closer is
// a no-op for backends without resources to release.
func openStorage(cfg cliconfig.Config) (ports.KeyValueStore, func(), error) {
	switch cfg.StorageDriver {
	case cliconfig.DriverSQLite:
		store, err := sqlitestore.Open(cfg.StoragePath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	case cliconfig.DriverFile:
		return fsstore.New(cfg.StoragePath), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

func newLogger(level string) log.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return log.NewZerologAdapterWithLogger(
		zerolog.New(output).Level(lvl).With().Timestamp().Logger(),
	)
}
