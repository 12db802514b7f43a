package cleaner

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"sync"
	"testing"

	"github.com/taka-sakai/dehistory/internal/adapters/memory"
	"github.com/taka-sakai/dehistory/internal/domain"
	"github.com/taka-sakai/dehistory/internal/ports"
	"github.com/taka-sakai/dehistory/internal/settings"
	"github.com/taka-sakai/dehistory/pkg/log"
)

// fakeRemover records removal requests and can fail selected category sets.
type fakeRemover struct {
	mu       sync.Mutex
	requests []ports.RemovalRequest
	failWhen func(ports.RemovalRequest) error
}

func (f *fakeRemover) Remove(ctx context.Context, req ports.RemovalRequest) error {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.failWhen != nil {
		return f.failWhen(req)
	}
	return nil
}

func (f *fakeRemover) recorded() []ports.RemovalRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ports.RemovalRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

func newStore(t *testing.T, st domain.Settings) *settings.Store {
	t.Helper()

	kv := memory.NewStore()
	store := settings.New(kv, log.NewNoopLogger())
	if err := store.Save(context.Background(), st); err != nil {
		t.Fatalf("seed settings: %v", err)
	}
	return store
}

// byPass indexes recorded requests by their category shape.
func byPass(t *testing.T, reqs []ports.RemovalRequest) map[string]ports.RemovalRequest {
	t.Helper()

	out := make(map[string]ports.RemovalRequest, len(reqs))
	for _, r := range reqs {
		switch {
		case r.Types.Cookies:
			out["cookies"] = r
		case r.Types.IndexedDB:
			out["storage"] = r
		case r.Types.Appcache:
			out["bulk"] = r
		default:
			t.Fatalf("unexpected request shape: %+v", r)
		}
	}
	return out
}

func TestClearAll_AllPassesWithExclusions(t *testing.T) {
	t.Parallel()

	st := domain.DefaultSettings()
	st.Whitelist = []domain.WhitelistEntry{
		{Domain: "a.com", KeepCookies: 1, KeepCache: 0},
		{Domain: "b.com", KeepCookies: 0, KeepCache: 1},
	}
	remover := &fakeRemover{}
	c := New(newStore(t, st), remover, log.NewNoopLogger())

	if err := c.ClearAll(context.Background()); err != nil {
		t.Fatalf("ClearAll returned error: %v", err)
	}

	reqs := remover.recorded()
	if len(reqs) != 3 {
		t.Fatalf("expected 3 removal passes, got %d", len(reqs))
	}
	passes := byPass(t, reqs)

	bulk := passes["bulk"]
	wantBulk := domain.DataTypeSet{Appcache: true, Downloads: true, FormData: true, History: true}
	if bulk.Types != wantBulk {
		t.Errorf("bulk pass types = %+v, want %+v", bulk.Types, wantBulk)
	}
	if len(bulk.ExcludeOrigins) != 0 {
		t.Errorf("bulk pass must not carry exclusions, got %v", bulk.ExcludeOrigins)
	}
	if !bulk.Since.IsZero() {
		t.Errorf("bulk pass since = %v, want epoch (zero)", bulk.Since)
	}

	cookies := passes["cookies"]
	if want := []string{"https://a.com", "http://a.com"}; !reflect.DeepEqual(cookies.ExcludeOrigins, want) {
		t.Errorf("cookie pass exclusions = %v, want %v", cookies.ExcludeOrigins, want)
	}

	storage := passes["storage"]
	if storage.Types != domain.StorageTypes() {
		t.Errorf("storage pass types = %+v, want %+v", storage.Types, domain.StorageTypes())
	}
	if want := []string{"https://b.com", "http://b.com"}; !reflect.DeepEqual(storage.ExcludeOrigins, want) {
		t.Errorf("storage pass exclusions = %v, want %v", storage.ExcludeOrigins, want)
	}
}

func TestClearAll_DisabledCategoriesSkipPasses(t *testing.T) {
	t.Parallel()

	st := domain.DefaultSettings()
	st.RemoveCookies = false
	st.RemoveCacheAndStorage = false
	st.RemoveDownloads = false
	st.RemoveFormData = false
	st.RemoveHistory = false

	remover := &fakeRemover{}
	c := New(newStore(t, st), remover, log.NewNoopLogger())

	if err := c.ClearAll(context.Background()); err != nil {
		t.Fatalf("ClearAll returned error: %v", err)
	}

	reqs := remover.recorded()
	if len(reqs) != 1 {
		t.Fatalf("expected only the bulk pass, got %d passes", len(reqs))
	}
	// With every optional flag off the bulk pass still clears app cache.
	if want := (domain.DataTypeSet{Appcache: true}); reqs[0].Types != want {
		t.Fatalf("bulk pass types = %+v, want %+v", reqs[0].Types, want)
	}
}

func TestClearAll_FirstErrorSurfacesAllPassesInitiated(t *testing.T) {
	t.Parallel()

	cookieFailure := errors.New("cookie surface broke")
	remover := &fakeRemover{
		failWhen: func(req ports.RemovalRequest) error {
			if req.Types.Cookies {
				return cookieFailure
			}
			return nil
		},
	}
	c := New(newStore(t, domain.DefaultSettings()), remover, log.NewNoopLogger())

	err := c.ClearAll(context.Background())
	if !errors.Is(err, cookieFailure) {
		t.Fatalf("ClearAll error = %v, want wrapped %v", err, cookieFailure)
	}

	// The failing pass must not have prevented the other passes from running.
	var kinds []string
	for k := range byPass(t, remover.recorded()) {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	if want := []string{"bulk", "cookies", "storage"}; !reflect.DeepEqual(kinds, want) {
		t.Fatalf("initiated passes = %v, want %v", kinds, want)
	}
}

func TestClearAll_EmptyWhitelistMeansNoExclusions(t *testing.T) {
	t.Parallel()

	remover := &fakeRemover{}
	c := New(newStore(t, domain.DefaultSettings()), remover, log.NewNoopLogger())

	if err := c.ClearAll(context.Background()); err != nil {
		t.Fatalf("ClearAll returned error: %v", err)
	}
	for _, req := range remover.recorded() {
		if len(req.ExcludeOrigins) != 0 {
			t.Fatalf("pass %v carried exclusions %v with an empty whitelist",
				req.Types.Names(), req.ExcludeOrigins)
		}
	}
}
