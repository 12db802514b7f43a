package ports

import (
	"context"
	"encoding/json"
)

// KeyValueStore is the opaque persistent store for settings. Keys are
// strings, values are JSON documents. Implementations must distinguish an
// absent key (no map entry) from a present value, including explicit false
// or 0: the settings loader respects any present value and falls back to
// defaults only for absent or null entries.
type KeyValueStore interface {
	// Get fetches the requested keys in one batch. Absent keys are simply
	// missing from the result map; only actual read failures return an error.
	Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error)

	// Set persists all given key/value pairs. A failed Set leaves the
	// previously persisted state intact.
	Set(ctx context.Context, values map[string]json.RawMessage) error
}

// SessionStore is ephemeral storage whose lifetime is one browser session.
// The host clears it automatically when the session ends, which is what
// makes the startup guard safe without explicit cleanup.
type SessionStore interface {
	// GetBool reads a session flag. Absent flags read as false.
	GetBool(ctx context.Context, key string) (bool, error)

	// SetBool writes a session flag.
	SetBool(ctx context.Context, key string, value bool) error
}
