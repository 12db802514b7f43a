package cdp

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/taka-sakai/dehistory/internal/domain"
	"github.com/taka-sakai/dehistory/internal/ports"
	"github.com/taka-sakai/dehistory/pkg/log"
)

// Remover implements ports.BrowsingDataRemover over the DevTools protocol.
//
// The protocol has no wire surface for downloads, form data or history;
// those categories are skipped with a debug log. Cookie exclusions are
// honored by deleting cookies selectively; storage exclusions by clearing
// per origin instead of browser-wide.
type Remover struct {
	client *Client
	logger log.Logger
}

// NewRemover creates a Remover on an attached client.
func NewRemover(client *Client, logger log.Logger) *Remover {
	return &Remover{client: client, logger: logger}
}

// Remove executes one removal pass.
func (r *Remover) Remove(ctx context.Context, req ports.RemovalRequest) error {
	if req.Types.Cache {
		if err := r.client.Call(ctx, "Network.clearBrowserCache", nil, nil); err != nil {
			return err
		}
	}

	if req.Types.Cookies {
		if err := r.removeCookies(ctx, req.ExcludeOrigins); err != nil {
			return err
		}
	}

	if tokens := storageTokens(req.Types); tokens != "" {
		if err := r.removeStorage(ctx, tokens, req.ExcludeOrigins); err != nil {
			return err
		}
	}

	if skipped := unsupportedNames(req.Types); len(skipped) > 0 {
		r.logger.Debug("categories without a devtools surface skipped", log.Strings("categories", skipped))
	}
	return nil
}

type cookie struct {
	Name   string `json:"name"`
	Domain string `json:"domain"`
	Path   string `json:"path"`
}

// removeCookies clears all cookies, or deletes them one by one when some
// origins must survive.
func (r *Remover) removeCookies(ctx context.Context, exclude []string) error {
	if len(exclude) == 0 {
		return r.client.Call(ctx, "Network.clearBrowserCookies", nil, nil)
	}

	keep := excludedHosts(exclude)
	var result struct {
		Cookies []cookie `json:"cookies"`
	}
	if err := r.client.Call(ctx, "Storage.getCookies", nil, &result); err != nil {
		return err
	}

	deleted := 0
	for _, ck := range result.Cookies {
		host := strings.TrimPrefix(ck.Domain, ".")
		if _, preserved := keep[host]; preserved {
			continue
		}
		params := map[string]string{"name": ck.Name, "domain": ck.Domain, "path": ck.Path}
		if err := r.client.Call(ctx, "Network.deleteCookies", params, nil); err != nil {
			return fmt.Errorf("delete cookie %s on %s: %w", ck.Name, ck.Domain, err)
		}
		deleted++
	}
	r.logger.Debug("cookies deleted selectively",
		log.Int("deleted", deleted),
		log.Int("preserved", len(result.Cookies)-deleted))
	return nil
}

// removeStorage clears site storage. Without exclusions a single wildcard
// call covers every origin; with exclusions each known origin is cleared
// individually so the preserved ones are left alone.
func (r *Remover) removeStorage(ctx context.Context, tokens string, exclude []string) error {
	clearOrigin := func(origin string) error {
		params := map[string]string{"origin": origin, "storageTypes": tokens}
		return r.client.Call(ctx, "Storage.clearDataForOrigin", params, nil)
	}

	if len(exclude) == 0 {
		return clearOrigin("*")
	}

	keep := make(map[string]struct{}, len(exclude))
	for _, o := range exclude {
		keep[o] = struct{}{}
	}

	origins, err := r.knownOrigins(ctx)
	if err != nil {
		return err
	}
	for _, origin := range origins {
		if _, preserved := keep[origin]; preserved {
			continue
		}
		if err := clearOrigin(origin); err != nil {
			return fmt.Errorf("clear storage for %s: %w", origin, err)
		}
	}
	return nil
}

// knownOrigins derives the origin list from the browser's open page targets.
func (r *Remover) knownOrigins(ctx context.Context) ([]string, error) {
	var result struct {
		TargetInfos []targetInfo `json:"targetInfos"`
	}
	if err := r.client.Call(ctx, "Target.getTargets", nil, &result); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var origins []string
	for _, t := range result.TargetInfos {
		if t.Type != "page" {
			continue
		}
		u, err := url.Parse(t.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			continue
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			continue
		}
		origin := u.Scheme + "://" + u.Host
		if _, dup := seen[origin]; dup {
			continue
		}
		seen[origin] = struct{}{}
		origins = append(origins, origin)
	}
	return origins, nil
}

// excludedHosts maps exclusion origins to bare hosts for cookie-domain
// matching ("https://a.com" and "http://a.com" both preserve "a.com").
func excludedHosts(exclude []string) map[string]struct{} {
	hosts := make(map[string]struct{}, len(exclude))
	for _, o := range exclude {
		host := o
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			host = u.Host
		}
		hosts[host] = struct{}{}
	}
	return hosts
}

// storageTokens maps the category set to the protocol's storageTypes list.
func storageTokens(s domain.DataTypeSet) string {
	var tokens []string
	for _, m := range []struct {
		token string
		on    bool
	}{
		{"appcache", s.Appcache},
		{"cache_storage", s.CacheStorage},
		{"file_systems", s.FileSystems},
		{"indexeddb", s.IndexedDB},
		{"local_storage", s.LocalStorage},
		{"service_workers", s.ServiceWorkers},
		{"websql", s.WebSQL},
	} {
		if m.on {
			tokens = append(tokens, m.token)
		}
	}
	return strings.Join(tokens, ",")
}

// unsupportedNames lists requested categories the protocol cannot touch.
func unsupportedNames(s domain.DataTypeSet) []string {
	var names []string
	if s.Downloads {
		names = append(names, "downloads")
	}
	if s.FormData {
		names = append(names, "form_data")
	}
	if s.History {
		names = append(names, "history")
	}
	return names
}
