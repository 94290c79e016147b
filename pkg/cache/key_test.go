package cache

import (
	"net/url"
	"testing"
)

func TestKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		want string
	}{
		{
			name: "path only",
			key:  Key{Path: "/api/v2/type/"},
			want: "catalog:api/v2/type",
		},
		{
			name: "host and path",
			key:  Key{Host: "pokeapi.co", Path: "/api/v2/pokemon/25/"},
			want: "catalog:pokeapi.co/api/v2/pokemon/25",
		},
		{
			name: "query params",
			key: Key{
				Host:  "pokeapi.co",
				Path:  "/api/v2/pokemon",
				Query: url.Values{"limit": []string{"900"}},
			},
			want: "catalog:pokeapi.co/api/v2/pokemon:limit=900",
		},
		{
			name: "multiple query params are sorted",
			key: Key{
				Path: "/api/v2/pokemon",
				Query: url.Values{
					"offset": []string{"20"},
					"limit":  []string{"900"},
				},
			},
			want: "catalog:api/v2/pokemon:limit=900:offset=20",
		},
		{
			name: "repeated values are sorted",
			key: Key{
				Path:  "/search",
				Query: url.Values{"tag": []string{"water", "fire"}},
			},
			want: "catalog:search:tag=fire,water",
		},
		{
			name: "empty key",
			key:  Key{},
			want: "catalog",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("Key.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKeyFromURL(t *testing.T) {
	a, _ := url.Parse("https://PokeAPI.co/api/v2/pokemon/?limit=900")
	b, _ := url.Parse("https://pokeapi.co/api/v2/pokemon?limit=900")

	if KeyFromURL(a).String() != KeyFromURL(b).String() {
		t.Errorf("keys differ: %q vs %q", KeyFromURL(a), KeyFromURL(b))
	}

	if got := KeyFromURL(nil).String(); got != "catalog" {
		t.Errorf("KeyFromURL(nil) = %q, want %q", got, "catalog")
	}
}

// TestKey_Determinism ensures same input always produces same key
func TestKey_Determinism(t *testing.T) {
	key := Key{
		Host: "pokeapi.co",
		Path: "/api/v2/pokemon",
		Query: url.Values{
			"limit":  []string{"900"},
			"offset": []string{"0"},
			"lang":   []string{"en"},
		},
	}

	first := key.String()
	for i := 0; i < 10; i++ {
		if got := key.String(); got != first {
			t.Errorf("iteration %d: %v, want %v (not deterministic)", i, got, first)
		}
	}
}
