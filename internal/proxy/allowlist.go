package proxy

import (
	"net/url"
	"strings"
)

// Allowlist is the fixed set of hostnames a proxy target may resolve to.
// Entries are either exact hostnames or a single-wildcard pattern of the
// form "prefix*suffix"; the wildcard matches by prefix/suffix containment,
// not full globbing.
type Allowlist struct {
	entries []string
}

// DefaultAllowlist covers the media providers the backend fronts.
func DefaultAllowlist() *Allowlist {
	return NewAllowlist([]string{
		"pixabay.com", "cdn.pixabay.com",
		"audius.co", "discoveryprovider.audius.co", "content-node.audius.co",
		"cdn.audius.co", "audius-prod-*.audius.co",
		"archive.org", "ia802*.us.archive.org", "ia903*.us.archive.org",
		"images.pexels.com", "videos.pexels.com", "player.pexels.com",
	})
}

func NewAllowlist(entries []string) *Allowlist {
	return &Allowlist{entries: entries}
}

// Allowed reports whether the URL's hostname matches the allowlist. Any
// parse failure counts as a miss; no network I/O happens here.
func (a *Allowlist) Allowed(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := parsed.Hostname()
	if host == "" {
		return false
	}
	for _, entry := range a.entries {
		if prefix, suffix, ok := strings.Cut(entry, "*"); ok {
			if strings.HasPrefix(host, prefix) && strings.HasSuffix(host, suffix) {
				return true
			}
		} else if host == entry {
			return true
		}
	}
	return false
}
