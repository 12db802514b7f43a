// Package settings owns the in-memory cleaner configuration and its
// persistence against the opaque key-value store.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/taka-sakai/dehistory/internal/domain"
	"github.com/taka-sakai/dehistory/internal/ports"
	"github.com/taka-sakai/dehistory/pkg/log"
)

// Store is the exclusive owner of the in-memory Settings value. It starts
// out holding the defaults and is overwritten wholesale by Load or Save;
// readers always get a consistent snapshot.
type Store struct {
	kv     ports.KeyValueStore
	logger log.Logger

	mu      sync.RWMutex
	current domain.Settings
}

// New creates a Store holding the default settings. Call Load to replace
// them with the persisted configuration.
func New(kv ports.KeyValueStore, logger log.Logger) *Store {
	return &Store{
		kv:      kv,
		logger:  logger,
		current: domain.DefaultSettings(),
	}
}

// Load fetches all settings keys from the persistent store in one batch and
// replaces the in-memory settings wholesale. Each field resolves
// independently: a present value is respected (including explicit false),
// an absent or null value falls back to its default. Store failures
// propagate to the caller and leave the in-memory settings untouched.
func (s *Store) Load(ctx context.Context) error {
	raw, err := s.kv.Get(ctx, domain.SettingsKeys...)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	loaded := domain.DefaultSettings()
	if err := resolve(raw, domain.KeyWhitelist, &loaded.Whitelist); err != nil {
		return err
	}
	for _, f := range []struct {
		key string
		dst *bool
	}{
		{domain.KeyRunOnStartup, &loaded.RunOnStartup},
		{domain.KeyRunOnClose, &loaded.RunOnClose},
		{domain.KeyRemoveDownloads, &loaded.RemoveDownloads},
		{domain.KeyRemoveFormData, &loaded.RemoveFormData},
		{domain.KeyRemoveHistory, &loaded.RemoveHistory},
		{domain.KeyRemoveCookies, &loaded.RemoveCookies},
		{domain.KeyRemoveCacheAndStorage, &loaded.RemoveCacheAndStorage},
	} {
		if err := resolve(raw, f.key, f.dst); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.current = loaded
	s.mu.Unlock()

	s.logger.Debug("settings loaded", s.fields(loaded)...)
	return nil
}

// resolve unmarshals raw[key] into dst when the key is present and not JSON
// null; otherwise dst keeps the default it already holds.
func resolve(raw map[string]json.RawMessage, key string, dst any) error {
	v, ok := raw[key]
	if !ok || isNull(v) {
		return nil
	}
	if err := json.Unmarshal(v, dst); err != nil {
		return fmt.Errorf("load settings: decode %s: %w", key, err)
	}
	return nil
}

func isNull(v json.RawMessage) bool {
	return len(v) == 0 || string(v) == "null"
}

// Save persists the given settings in one batch write and, on success,
// replaces the in-memory value. A failed write leaves both the persisted
// and the in-memory state intact.
func (s *Store) Save(ctx context.Context, st domain.Settings) error {
	values := make(map[string]json.RawMessage, len(domain.SettingsKeys))
	for key, v := range map[string]any{
		domain.KeyWhitelist:             st.Whitelist,
		domain.KeyRunOnStartup:          st.RunOnStartup,
		domain.KeyRunOnClose:            st.RunOnClose,
		domain.KeyRemoveDownloads:       st.RemoveDownloads,
		domain.KeyRemoveFormData:        st.RemoveFormData,
		domain.KeyRemoveHistory:         st.RemoveHistory,
		domain.KeyRemoveCookies:         st.RemoveCookies,
		domain.KeyRemoveCacheAndStorage: st.RemoveCacheAndStorage,
	} {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("save settings: encode %s: %w", key, err)
		}
		values[key] = b
	}

	if err := s.kv.Set(ctx, values); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	s.mu.Lock()
	s.current = st
	s.mu.Unlock()

	s.logger.Info("settings saved", s.fields(st)...)
	return nil
}

// Settings returns a snapshot of the current settings. The whitelist slice
// is copied so callers cannot mutate the store's value.
func (s *Store) Settings() domain.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.current
	if len(s.current.Whitelist) > 0 {
		snapshot.Whitelist = make([]domain.WhitelistEntry, len(s.current.Whitelist))
		copy(snapshot.Whitelist, s.current.Whitelist)
	}
	return snapshot
}

// OriginsByFlag derives the exclusion origin list for one preservation
// flag: for every whitelist entry whose flag equals exactly 1, an https and
// an http origin, in whitelist order. The list is recomputed on every call
// and never persisted.
func (s *Store) OriginsByFlag(flag domain.KeepFlag) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var origins []string
	for _, e := range s.current.Whitelist {
		if !e.Keep(flag) {
			continue
		}
		d := strings.TrimSpace(e.Domain)
		origins = append(origins, "https://"+d, "http://"+d)
	}
	return origins
}

// fields is the diagnostic projection of a settings value.
func (s *Store) fields(st domain.Settings) []log.Field {
	return []log.Field{
		log.Int("whitelistEntries", len(st.Whitelist)),
		log.Bool("runOnStartup", st.RunOnStartup),
		log.Bool("runOnClose", st.RunOnClose),
		log.Bool("removeDownloads", st.RemoveDownloads),
		log.Bool("removeFormData", st.RemoveFormData),
		log.Bool("removeHistory", st.RemoveHistory),
		log.Bool("removeCookies", st.RemoveCookies),
		log.Bool("removeCacheAndStorage", st.RemoveCacheAndStorage),
	}
}
