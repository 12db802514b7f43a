// Package cleaner turns the current settings into concrete removal passes
// against the host's browsing-data capability.
package cleaner

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/taka-sakai/dehistory/internal/domain"
	"github.com/taka-sakai/dehistory/internal/ports"
	"github.com/taka-sakai/dehistory/internal/settings"
	"github.com/taka-sakai/dehistory/pkg/log"
)

// Cleaner executes a full cleaning run. It holds a read reference to the
// settings store and never mutates it.
type Cleaner struct {
	settings *settings.Store
	remover  ports.BrowsingDataRemover
	logger   log.Logger
}

// New creates a Cleaner.
func New(st *settings.Store, remover ports.BrowsingDataRemover, logger log.Logger) *Cleaner {
	return &Cleaner{settings: st, remover: remover, logger: logger}
}

// ClearAll runs up to three removal passes concurrently, all scoped to all
// time (since epoch):
//
//   - bulk pass: app cache always, plus downloads/form data/history per the
//     settings flags; no origin exclusions.
//   - cookie pass: skipped when removeCookies is off; excludes the origins
//     of whitelist entries keeping cookies.
//   - cache/storage pass: skipped when removeCacheAndStorage is off;
//     excludes the origins of whitelist entries keeping cache.
//
// Every enabled pass is initiated; the first failure is returned after all
// passes finish. There is no cancellation of in-flight passes and no
// rollback: partial deletion is an accepted outcome. Success and failure
// are both logged with the elapsed wall-clock duration.
func (c *Cleaner) ClearAll(ctx context.Context) error {
	start := time.Now()
	st := c.settings.Settings()

	var g errgroup.Group

	bulk := domain.DataTypeSet{
		Appcache:  true,
		Downloads: st.RemoveDownloads,
		FormData:  st.RemoveFormData,
		History:   st.RemoveHistory,
	}
	g.Go(func() error {
		if err := c.remover.Remove(ctx, ports.RemovalRequest{Types: bulk}); err != nil {
			return fmt.Errorf("bulk pass: %w", err)
		}
		return nil
	})

	if st.RemoveCookies {
		exclude := c.settings.OriginsByFlag(domain.KeepCookies)
		g.Go(func() error {
			req := ports.RemovalRequest{Types: domain.CookieTypes(), ExcludeOrigins: exclude}
			if err := c.remover.Remove(ctx, req); err != nil {
				return fmt.Errorf("cookie pass: %w", err)
			}
			return nil
		})
	}

	if st.RemoveCacheAndStorage {
		exclude := c.settings.OriginsByFlag(domain.KeepCache)
		g.Go(func() error {
			req := ports.RemovalRequest{Types: domain.StorageTypes(), ExcludeOrigins: exclude}
			if err := c.remover.Remove(ctx, req); err != nil {
				return fmt.Errorf("cache/storage pass: %w", err)
			}
			return nil
		})
	}

	err := g.Wait()
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Error("cleaning run failed", log.Duration("elapsed", elapsed), log.Err(err))
		return err
	}
	c.logger.Info("cleaning run completed", log.Duration("elapsed", elapsed))
	return nil
}
