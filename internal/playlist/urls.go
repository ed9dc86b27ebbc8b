package playlist

import (
	"net/url"
	"strings"
)

// ProxyPath is the route prefix the content handler serves keys under.
const ProxyPath = "/r2/"

// URLBuilder turns object keys into playable URLs. Base is empty for
// relative URLs or an absolute origin without trailing slash.
type URLBuilder struct {
	Base string
}

// ProxyURL returns the URL the content handler serves key under. The key is
// escaped as a single segment, so slashes become %2F.
func (b URLBuilder) ProxyURL(key string) string {
	return b.Base + ProxyPath + url.PathEscape(key)
}

// Normalize rewrites a stored URL into something a player can fetch.
// Absolute URLs and proxy paths pass through; raw keys under one of the
// given prefixes become proxy URLs; anything else is returned unchanged.
func (b URLBuilder) Normalize(raw string, prefixes ...string) string {
	if raw == "" {
		return raw
	}
	if u, err := url.Parse(raw); err == nil && u.Scheme != "" && u.Host != "" {
		return raw
	}
	if strings.HasPrefix(raw, ProxyPath) {
		return raw
	}
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(raw, p) {
			return b.ProxyURL(raw)
		}
	}
	return raw
}
