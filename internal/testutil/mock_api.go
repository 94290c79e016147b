// Package testutil provides a mock catalog API for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// APIPrefix is the path prefix the mock serves, mirroring PokéAPI v2.
const APIPrefix = "/api/v2"

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockEntity is an entity served by the mock.
type MockEntity struct {
	ID        int
	Name      string
	Types     []string
	Abilities []string
	Sprite    string
}

// MockCatalog is a configurable mock catalog API server for testing.
type MockCatalog struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	entities []MockEntity
	types    []string
	weakTo   map[string][]string

	// Tracking
	requestCount     int
	conditionalCount int
	pathCounts       map[string]int
	lastHeader       http.Header
}

// NewMockCatalog creates a new, empty mock catalog API server.
func NewMockCatalog() *MockCatalog {
	mock := &MockCatalog{
		handlers:   make(map[string]func(w http.ResponseWriter, r *http.Request)),
		weakTo:     make(map[string][]string),
		pathCounts: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requestCount++
		mock.pathCounts[r.URL.Path]++
		mock.lastHeader = r.Header.Clone()

		// Track conditional requests
		if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
			mock.conditionalCount++
		}
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// NewStarterCatalog creates a mock seeded with a small, well-known dataset.
func NewStarterCatalog() *MockCatalog {
	m := NewMockCatalog()

	m.AddCategory("normal", "fighting")
	m.AddCategory("fire", "water", "ground", "rock")
	m.AddCategory("water", "grass", "electric")
	m.AddCategory("grass", "fire", "ice", "poison", "flying", "bug")
	m.AddCategory("electric", "ground")
	m.AddCategory("poison", "ground", "psychic")
	m.AddCategory("flying", "electric", "ice", "rock")
	m.AddCategory("unknown")
	m.AddCategory("shadow")

	m.AddEntity(MockEntity{ID: 1, Name: "bulbasaur", Types: []string{"grass", "poison"}, Abilities: []string{"overgrow", "chlorophyll"}})
	m.AddEntity(MockEntity{ID: 4, Name: "charmander", Types: []string{"fire"}, Abilities: []string{"blaze", "solar-power"}})
	m.AddEntity(MockEntity{ID: 6, Name: "charizard", Types: []string{"fire", "flying"}, Abilities: []string{"blaze", "solar-power"}})
	m.AddEntity(MockEntity{ID: 7, Name: "squirtle", Types: []string{"water"}, Abilities: []string{"torrent", "rain-dish"}})
	m.AddEntity(MockEntity{ID: 25, Name: "pikachu", Types: []string{"electric"}, Abilities: []string{"static", "lightning-rod"}})
	m.AddEntity(MockEntity{ID: 133, Name: "eevee", Types: []string{"normal"}, Abilities: []string{"run-away", "adaptability"}})

	return m
}

// URL returns the mock server URL.
func (m *MockCatalog) URL() string {
	return m.server.URL
}

// BaseURL returns the API root to configure a client with.
func (m *MockCatalog) BaseURL() string {
	return m.server.URL + APIPrefix
}

// EntityPath returns the detail path of an entity.
func EntityPath(id int) string {
	return fmt.Sprintf("%s/pokemon/%d/", APIPrefix, id)
}

// CategoryPath returns the detail path of a category.
func CategoryPath(name string) string {
	return fmt.Sprintf("%s/type/%s/", APIPrefix, name)
}

// Close shuts down the mock server.
func (m *MockCatalog) Close() {
	m.server.Close()
}

// AddEntity adds an entity; entities are listed in insertion order.
func (m *MockCatalog) AddEntity(e MockEntity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entities = append(m.entities, e)
}

// AddCategory adds a category and the categories dealing double damage to it.
func (m *MockCatalog) AddCategory(name string, doubleDamageFrom ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.types = append(m.types, name)
	m.weakTo[name] = doubleDamageFrom
}

// Reset clears all tracking counters.
func (m *MockCatalog) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.conditionalCount = 0
	m.pathCounts = make(map[string]int)
	m.lastHeader = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockCatalog) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// ClearHandler restores the default behavior of path.
func (m *MockCatalog) ClearHandler(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handlers, path)
}

// SetResponse configures a simple response for a path.
func (m *MockCatalog) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockCatalog) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// GetPathCount returns the number of requests made to one path.
func (m *MockCatalog) GetPathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pathCounts[path]
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockCatalog) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conditionalCount
}

// LastRequestHeader returns the headers of the most recent request.
func (m *MockCatalog) LastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastHeader
}

type namedResource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// defaultHandler serves the seeded dataset in PokéAPI's JSON shapes.
func (m *MockCatalog) defaultHandler(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, APIPrefix), "/")
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")

	m.mu.RLock()
	defer m.mu.RUnlock()

	switch {
	case len(segments) == 1 && segments[0] == "pokemon":
		limit := len(m.entities)
		if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v >= 0 && v < limit {
			limit = v
		}
		results := make([]namedResource, 0, limit)
		for _, e := range m.entities[:limit] {
			results = append(results, namedResource{Name: e.Name, URL: m.server.URL + EntityPath(e.ID)})
		}
		writeJSON(w, map[string]any{"count": len(m.entities), "results": results})

	case len(segments) == 2 && segments[0] == "pokemon":
		id, err := strconv.Atoi(segments[1])
		if err != nil {
			http.NotFound(w, r)
			return
		}
		for _, e := range m.entities {
			if e.ID == id {
				writeJSON(w, m.entityBody(e))
				return
			}
		}
		http.NotFound(w, r)

	case len(segments) == 1 && segments[0] == "type":
		results := make([]namedResource, 0, len(m.types))
		for _, name := range m.types {
			results = append(results, namedResource{Name: name, URL: m.server.URL + CategoryPath(name)})
		}
		writeJSON(w, map[string]any{"count": len(m.types), "results": results})

	case len(segments) == 2 && segments[0] == "type":
		from, ok := m.weakTo[segments[1]]
		if !ok {
			http.NotFound(w, r)
			return
		}
		relations := make([]namedResource, 0, len(from))
		for _, name := range from {
			relations = append(relations, namedResource{Name: name, URL: m.server.URL + CategoryPath(name)})
		}
		writeJSON(w, map[string]any{
			"name": segments[1],
			"damage_relations": map[string]any{
				"double_damage_from": relations,
			},
		})

	default:
		http.NotFound(w, r)
	}
}

func (m *MockCatalog) entityBody(e MockEntity) map[string]any {
	types := make([]map[string]any, 0, len(e.Types))
	for i, name := range e.Types {
		types = append(types, map[string]any{
			"slot": i + 1,
			"type": namedResource{Name: name, URL: m.server.URL + CategoryPath(name)},
		})
	}

	abilities := make([]map[string]any, 0, len(e.Abilities))
	for i, name := range e.Abilities {
		abilities = append(abilities, map[string]any{
			"slot":    i + 1,
			"ability": namedResource{Name: name, URL: fmt.Sprintf("%s%s/ability/%s/", m.server.URL, APIPrefix, name)},
		})
	}

	var sprite any
	if e.Sprite != "" {
		sprite = e.Sprite
	}

	return map[string]any{
		"id":        e.ID,
		"name":      e.Name,
		"types":     types,
		"abilities": abilities,
		"sprites":   map[string]any{"front_default": sprite},
	}
}

// Categories returns the seeded category names, sorted.
func (m *MockCatalog) Categories() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := append([]string(nil), m.types...)
	sort.Strings(out)
	return out
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

// NewHealthyResponse creates a standard 200 OK JSON response.
func NewHealthyResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"ETag":          `"test-etag-123"`,
			"Cache-Control": "public, max-age=300",
			"Content-Type":  "application/json; charset=utf-8",
		},
	}
}

// NewNotFoundResponse creates a 404 Not Found response as PokéAPI sends it.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       "Not Found",
		Headers: map[string]string{
			"Content-Type": "text/plain; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "Rate limit exceeded"}`,
		Headers: map[string]string{
			"Retry-After":  "30",
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewConditionalHandler creates a handler that responds with 304 for conditional requests.
func NewConditionalHandler(etag string, data string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")

		if r.Header.Get("If-None-Match") == etag {
			w.Header().Set("Expires", time.Now().Add(5*time.Minute).Format(http.TimeFormat))
			w.WriteHeader(http.StatusNotModified)
			return
		}

		// Stale on arrival so every follow-up revalidates
		w.Header().Set("ETag", etag)
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(data))
	}
}
