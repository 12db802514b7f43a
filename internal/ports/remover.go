package ports

import (
	"context"
	"time"

	"github.com/taka-sakai/dehistory/internal/domain"
)

// RemovalRequest describes one removal pass: which categories to delete,
// how far back, and which origins to leave untouched.
type RemovalRequest struct {
	// Since is the start of the deletion time range. The zero value means
	// the epoch, i.e. delete data from all time.
	Since time.Time

	// Types selects the browsing-data categories to remove.
	Types domain.DataTypeSet

	// ExcludeOrigins lists origins (scheme+host, e.g. "https://example.com")
	// whose data must be preserved. Nil or empty means no exclusions.
	// Exclusion support is per-category and exclusions are ignored by
	// implementations for categories that cannot be scoped by origin.
	ExcludeOrigins []string
}

// BrowsingDataRemover is the host browser's data-removal capability.
// Implementations perform the deletion and report whatever error the host
// surface reports; the core never retries or rolls back.
type BrowsingDataRemover interface {
	// Remove deletes the requested data categories. A single call covers
	// one pass; partial deletion on failure is an accepted outcome.
	Remove(ctx context.Context, req RemovalRequest) error
}
