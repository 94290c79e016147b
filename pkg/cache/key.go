package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix namespaces every cache key in Redis.
const KeyPrefix = "catalog"

// Key identifies a cached API response.
type Key struct {
	// Host of the API (e.g. "pokeapi.co"); empty for relative requests
	Host string

	// Path is the request path (e.g. "/api/v2/pokemon/25/")
	Path string

	// Query are the query parameters (e.g. {"limit": "900"})
	Query url.Values
}

// KeyFromURL builds the cache key for a request URL.
func KeyFromURL(u *url.URL) Key {
	if u == nil {
		return Key{}
	}
	return Key{
		Host:  strings.ToLower(u.Host),
		Path:  u.Path,
		Query: u.Query(),
	}
}

// String generates a deterministic cache key string.
// Format: catalog:host/path:query1=val1:query2=val2
//
// Example:
//
//	catalog:pokeapi.co/api/v2/pokemon:limit=900
func (k Key) String() string {
	parts := []string{KeyPrefix}

	// Trailing slashes are not significant: /pokemon/25 and /pokemon/25/ share a key
	resource := strings.Trim(k.Path, "/")
	if k.Host != "" {
		resource = strings.TrimSuffix(k.Host+"/"+resource, "/")
	}
	if resource != "" {
		parts = append(parts, resource)
	}

	if len(k.Query) > 0 {
		names := make([]string, 0, len(k.Query))
		for name := range k.Query {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			values := append([]string(nil), k.Query[name]...)
			sort.Strings(values)
			parts = append(parts, fmt.Sprintf("%s=%s", name, strings.Join(values, ",")))
		}
	}

	return strings.Join(parts, ":")
}
