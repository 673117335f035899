package engine

import (
	"net/url"
	"sort"
	"strings"
	"sync"
)

// Deduplicator remembers product URLs already planned in a run so a page
// reached from several sources is processed once.
type Deduplicator struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewDeduplicator creates an empty Deduplicator.
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{seen: make(map[string]struct{})}
}

// Add marks rawURL as seen and reports whether it was new.
func (d *Deduplicator) Add(rawURL string) bool {
	key := CanonicalizeURL(rawURL)

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[key]; ok {
		return false
	}
	d.seen[key] = struct{}{}
	return true
}

// CanonicalizeURL normalizes a URL for comparison. Scheme and host are
// lowercased, the fragment and default ports are dropped, query parameters
// are sorted and a trailing slash is removed from non-root paths.
func CanonicalizeURL(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return rawURL
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	if port := u.Port(); (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		u.Host = u.Hostname()
	}

	if u.RawQuery != "" {
		params := u.Query()
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var pairs []string
		for _, k := range keys {
			vals := params[k]
			sort.Strings(vals)
			for _, v := range vals {
				pairs = append(pairs, url.QueryEscape(k)+"="+url.QueryEscape(v))
			}
		}
		u.RawQuery = strings.Join(pairs, "&")
	}

	if u.Path != "/" && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimRight(u.Path, "/")
	}
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String()
}
