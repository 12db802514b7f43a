package domain

// DataTypeSet names the browsing-data categories a single removal pass
// covers. Field names follow the host removal surface's category names.
type DataTypeSet struct {
	Appcache       bool
	Cache          bool
	CacheStorage   bool
	Cookies        bool
	Downloads      bool
	FileSystems    bool
	FormData       bool
	History        bool
	IndexedDB      bool
	LocalStorage   bool
	ServiceWorkers bool
	WebSQL         bool
}

// StorageTypes is the category set of the cache/storage pass: everything a
// site can persist per-origin, minus cookies.
func StorageTypes() DataTypeSet {
	return DataTypeSet{
		Cache:          true,
		CacheStorage:   true,
		FileSystems:    true,
		IndexedDB:      true,
		LocalStorage:   true,
		ServiceWorkers: true,
		WebSQL:         true,
	}
}

// CookieTypes is the category set of the cookie pass.
func CookieTypes() DataTypeSet {
	return DataTypeSet{Cookies: true}
}

// Names returns the enabled category names in a fixed order, for logging
// and for adapters that speak comma-separated type lists.
func (s DataTypeSet) Names() []string {
	var names []string
	for _, c := range []struct {
		name string
		on   bool
	}{
		{"appcache", s.Appcache},
		{"cache", s.Cache},
		{"cache_storage", s.CacheStorage},
		{"cookies", s.Cookies},
		{"downloads", s.Downloads},
		{"file_systems", s.FileSystems},
		{"form_data", s.FormData},
		{"history", s.History},
		{"indexeddb", s.IndexedDB},
		{"local_storage", s.LocalStorage},
		{"service_workers", s.ServiceWorkers},
		{"websql", s.WebSQL},
	} {
		if c.on {
			names = append(names, c.name)
		}
	}
	return names
}

// Empty reports whether no category is enabled.
func (s DataTypeSet) Empty() bool {
	return s == DataTypeSet{}
}
