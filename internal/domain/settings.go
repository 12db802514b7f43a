package domain

// Storage keys for persisted settings. The persistent store is string-keyed
// with JSON-serializable values; each Settings field maps to one key.
const (
	KeyWhitelist             = "whitelist"
	KeyRunOnStartup          = "runOnStartup"
	KeyRunOnClose            = "runOnClose"
	KeyRemoveDownloads       = "removeDownloads"
	KeyRemoveFormData        = "removeFormData"
	KeyRemoveHistory         = "removeHistory"
	KeyRemoveCookies         = "removeCookies"
	KeyRemoveCacheAndStorage = "removeCacheAndStorage"
)

// SessionKeyStartupCleanExecuted is the session-scoped guard flag set after
// a successful startup clean. Session storage semantics guarantee it is
// cleared when the browser session ends.
const SessionKeyStartupCleanExecuted = "startupCleanExecuted"

// SettingsKeys lists every persistent-store key read by Settings load, so a
// store can be queried in one batch call.
var SettingsKeys = []string{
	KeyWhitelist,
	KeyRunOnStartup,
	KeyRunOnClose,
	KeyRemoveDownloads,
	KeyRemoveFormData,
	KeyRemoveHistory,
	KeyRemoveCookies,
	KeyRemoveCacheAndStorage,
}

// KeepFlag selects one of the two per-entry preservation flags.
type KeepFlag int

const (
	// KeepCookies selects the keepCookies flag of a whitelist entry.
	KeepCookies KeepFlag = iota
	// KeepCache selects the keepCache flag of a whitelist entry.
	KeepCache
)

// String returns the wire name of the flag.
func (f KeepFlag) String() string {
	switch f {
	case KeepCookies:
		return "keepCookies"
	case KeepCache:
		return "keepCache"
	default:
		return "unknown"
	}
}

// WhitelistEntry exempts a single domain from data deletion. The flags are
// persisted as literal 0/1 and a flag counts as set only when it equals
// exactly 1.
type WhitelistEntry struct {
	Domain      string `json:"domain"`
	KeepCookies int    `json:"keepCookies"`
	KeepCache   int    `json:"keepCache"`
}

// Keep reports whether the selected preservation flag is set on the entry.
func (e WhitelistEntry) Keep(f KeepFlag) bool {
	switch f {
	case KeepCookies:
		return e.KeepCookies == 1
	case KeepCache:
		return e.KeepCache == 1
	default:
		return false
	}
}

// Settings is the full cleaner configuration. The settings store exclusively
// owns the in-memory value; cleaner and orchestrator read it through the
// store and never mutate it directly.
type Settings struct {
	Whitelist             []WhitelistEntry `json:"whitelist"`
	RunOnStartup          bool             `json:"runOnStartup"`
	RunOnClose            bool             `json:"runOnClose"`
	RemoveDownloads       bool             `json:"removeDownloads"`
	RemoveFormData        bool             `json:"removeFormData"`
	RemoveHistory         bool             `json:"removeHistory"`
	RemoveCookies         bool             `json:"removeCookies"`
	RemoveCacheAndStorage bool             `json:"removeCacheAndStorage"`
}

// DefaultSettings returns the documented defaults: automatic triggers off,
// every removal category on, empty whitelist. A missing persisted field
// always falls back to its default here, never to absence.
func DefaultSettings() Settings {
	return Settings{
		Whitelist:             nil,
		RunOnStartup:          false,
		RunOnClose:            false,
		RemoveDownloads:       true,
		RemoveFormData:        true,
		RemoveHistory:         true,
		RemoveCookies:         true,
		RemoveCacheAndStorage: true,
	}
}
