package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/catalog-viewer/internal/app"
	"github.com/Sternrassler/catalog-viewer/internal/catalog"
	"github.com/Sternrassler/catalog-viewer/internal/loader"
	"github.com/Sternrassler/catalog-viewer/internal/testutil"
	"github.com/Sternrassler/catalog-viewer/internal/view"
	"github.com/Sternrassler/catalog-viewer/pkg/client"
	"github.com/Sternrassler/catalog-viewer/pkg/fanout"
	"github.com/Sternrassler/catalog-viewer/pkg/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAdminToken = "test-admin-token"

type harness struct {
	mock *testutil.MockCatalog
	app  *app.App
	srv  *httptest.Server
}

// newHarness serves a viewer backed by the starter mock catalog. pageSize 0
// keeps the default.
func newHarness(t *testing.T, pageSize int, load bool) *harness {
	t.Helper()

	mock := testutil.NewStarterCatalog()
	t.Cleanup(mock.Close)

	cfg := client.DefaultConfig(nil, "catalog-viewer-test/1.0")
	cfg.BaseURL = mock.BaseURL()
	cfg.RateLimit = ratelimit.Config{}
	c, err := client.New(cfg)
	require.NoError(t, err)

	appCfg := app.DefaultConfig()
	if pageSize > 0 {
		appCfg.PageSize = pageSize
	}
	a := app.New(loader.New(c, fanout.Config{MaxConcurrency: 4, Timeout: 5 * time.Second}), appCfg)
	t.Cleanup(a.Close)

	if load {
		require.NoError(t, a.Load(context.Background()))
	}

	srv := httptest.NewServer(New(a, Options{CORSOrigins: []string{"*"}, AdminToken: testAdminToken}))
	t.Cleanup(srv.Close)

	return &harness{mock: mock, app: a, srv: srv}
}

// browser returns a client that keeps the session cookie and follows the
// post/redirect/get cycle.
func (h *harness) browser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar, Timeout: 5 * time.Second}
}

func (h *harness) page(t *testing.T, b *http.Client) string {
	t.Helper()
	resp, err := b.Get(h.srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func (h *harness) post(t *testing.T, b *http.Client, path string, form url.Values) string {
	t.Helper()
	resp, err := b.PostForm(h.srv.URL+path, form)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, "redirect target should render")
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func getJSON(t *testing.T, rawURL string, v any) int {
	t.Helper()
	resp, err := http.Get(rawURL)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestViewer_InitialPage(t *testing.T) {
	h := newHarness(t, 0, true)
	out := h.page(t, h.browser(t))

	for _, name := range []string{"bulbasaur", "charmander", "charizard", "squirtle", "pikachu", "eevee"} {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, `<option value="fire">Fire</option>`)
	assert.NotContains(t, out, `value="shadow"`)
	assert.NotContains(t, out, `id="pagination"`, "six entities fit on one page")
}

func TestViewer_SessionCookie(t *testing.T) {
	h := newHarness(t, 0, true)

	resp, err := http.Get(h.srv.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Cookies(), "reading the page starts no session")

	noRedirect := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	resp, err = noRedirect.PostForm(h.srv.URL+"/search", url.Values{"q": {"pika"}})
	require.NoError(t, err)
	resp.Body.Close()

	var found bool
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookie {
			found = true
			assert.True(t, c.HttpOnly)
			assert.NotEmpty(t, c.Value)
		}
	}
	assert.True(t, found)
	assert.Equal(t, 1, h.app.Sessions().Len())
}

func TestViewer_CookielessReadsHoldNoState(t *testing.T) {
	h := newHarness(t, 0, true)

	for i := 0; i < 200; i++ {
		resp, err := http.Get(h.srv.URL + "/")
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	assert.Equal(t, 0, h.app.Sessions().Len())
}

func TestViewer_UnknownCookieServesDefaults(t *testing.T) {
	h := newHarness(t, 0, true)

	req, err := http.NewRequest(http.MethodGet, h.srv.URL+"/", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "expired-session"})

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "bulbasaur")
	assert.Equal(t, 0, h.app.Sessions().Len())
}

func TestViewer_SearchAndReset(t *testing.T) {
	h := newHarness(t, 0, true)
	b := h.browser(t)

	out := h.post(t, b, "/search", url.Values{"q": {"  CHAR "}, "category": {"all"}})
	assert.Contains(t, out, "charmander")
	assert.Contains(t, out, "charizard")
	assert.NotContains(t, out, "bulbasaur")

	out = h.post(t, b, "/search", url.Values{"q": {""}, "category": {"flying"}})
	assert.Contains(t, out, "charizard")
	assert.NotContains(t, out, "charmander")
	assert.Contains(t, out, `<option value="flying" selected>Flying</option>`)

	out = h.post(t, b, "/search", url.Values{"q": {"static"}, "category": {"all"}})
	assert.Contains(t, out, "pikachu", "trait match")

	out = h.post(t, b, "/search", url.Values{"q": {"missingno"}, "category": {"all"}})
	assert.Contains(t, out, view.MsgNoResults)

	out = h.post(t, b, "/reset", nil)
	assert.Contains(t, out, "bulbasaur")
	assert.Contains(t, out, "eevee")
}

func TestViewer_Pagination(t *testing.T) {
	h := newHarness(t, 2, true)
	b := h.browser(t)

	out := h.page(t, b)
	assert.Contains(t, out, "Page 1 of 3")
	assert.Contains(t, out, "bulbasaur")
	assert.NotContains(t, out, "squirtle")

	out = h.post(t, b, "/page/next", nil)
	assert.Contains(t, out, "Page 2 of 3")
	assert.Contains(t, out, "squirtle")

	h.post(t, b, "/page/next", nil)
	out = h.post(t, b, "/page/next", nil)
	assert.Contains(t, out, "Page 3 of 3", "next on the last page is a no-op")

	out = h.post(t, b, "/search", url.Values{"q": {"e"}, "category": {"all"}})
	assert.Contains(t, out, "Page 1 of", "criteria change resets the page")

	out = h.post(t, b, "/page/prev", nil)
	assert.Contains(t, out, "Page 1 of", "prev on page 1 is a no-op")
}

func TestViewer_SessionsAreIndependent(t *testing.T) {
	h := newHarness(t, 0, true)
	alice, bob := h.browser(t), h.browser(t)

	h.post(t, alice, "/search", url.Values{"q": {"pika"}, "category": {"all"}})

	assert.NotContains(t, h.page(t, alice), "bulbasaur")
	assert.Contains(t, h.page(t, bob), "bulbasaur")
	assert.Equal(t, 1, h.app.Sessions().Len(), "only the browser that searched holds a session")
}

func TestViewer_OpenAndCloseDetail(t *testing.T) {
	h := newHarness(t, 0, true)
	b := h.browser(t)

	h.post(t, b, "/entities/6/open", nil)
	h.app.Wait()

	out := h.page(t, b)
	assert.Contains(t, out, "Charizard (Nº 6)")
	assert.Contains(t, out, "<li>blaze</li>")
	for _, weakness := range []string{"electric", "ground", "ice", "rock", "water"} {
		assert.Contains(t, out, "<li>"+weakness+"</li>")
	}

	out = h.post(t, b, "/detail/close", nil)
	assert.NotContains(t, out, `id="detail"`)
}

func TestViewer_DetailFailure(t *testing.T) {
	h := newHarness(t, 0, true)
	h.mock.SetResponse(testutil.CategoryPath("electric"), testutil.NewServerErrorResponse())
	b := h.browser(t)

	h.post(t, b, "/entities/25/open", nil)
	h.app.Wait()

	assert.Contains(t, h.page(t, b), view.MsgDetailError)
}

func TestViewer_OpenDetailErrors(t *testing.T) {
	h := newHarness(t, 0, true)
	b := h.browser(t)
	b.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	tests := []struct {
		path   string
		status int
	}{
		{"/entities/abc/open", http.StatusBadRequest},
		{"/entities/9999/open", http.StatusNotFound},
		{"/entities/1/open", http.StatusSeeOther},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := b.PostForm(h.srv.URL+tt.path, nil)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestViewer_CatalogFailure(t *testing.T) {
	h := newHarness(t, 0, false)
	h.mock.SetResponse(testutil.EntityPath(25), testutil.NewServerErrorResponse())

	var batchErr *fanout.BatchError
	require.True(t, errors.As(h.app.Load(context.Background()), &batchErr))

	out := h.page(t, h.browser(t))
	assert.Contains(t, out, view.MsgCatalogError)
	assert.NotContains(t, out, "bulbasaur", "no partial catalog")
}

func TestViewer_Loading(t *testing.T) {
	h := newHarness(t, 0, false)

	out := h.page(t, h.browser(t))
	assert.Contains(t, out, view.MsgCatalogLoading)
	assert.Contains(t, out, `http-equiv="refresh"`)
}

func TestAPI_Categories(t *testing.T) {
	h := newHarness(t, 0, true)

	var body map[string][]string
	require.Equal(t, http.StatusOK, getJSON(t, h.srv.URL+"/api/categories", &body))
	assert.Equal(t, []string{"normal", "fire", "water", "grass", "electric", "poison", "flying"}, body["categories"])
}

func TestAPI_Entities(t *testing.T) {
	h := newHarness(t, 2, true)

	tests := []struct {
		name      string
		query     string
		wantNames []string
		wantPage  int
		wantTotal int
	}{
		{"first page", "", []string{"bulbasaur", "charmander"}, 1, 6},
		{"second page", "?page=2", []string{"charizard", "squirtle"}, 2, 6},
		{"page clamped", "?page=99", []string{"pikachu", "eevee"}, 3, 6},
		{"category", "?category=fire", []string{"charmander", "charizard"}, 1, 2},
		{"term", "?q=TORRENT", []string{"squirtle"}, 1, 1},
		{"no match", "?q=zzz", []string{}, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var result catalog.Result
			require.Equal(t, http.StatusOK, getJSON(t, h.srv.URL+"/api/entities"+tt.query, &result))

			names := make([]string, 0, len(result.Items))
			for _, e := range result.Items {
				names = append(names, e.Name)
			}
			assert.Equal(t, tt.wantNames, names)
			assert.Equal(t, tt.wantPage, result.Page)
			assert.Equal(t, tt.wantTotal, result.TotalItems)
		})
	}

	assert.Equal(t, http.StatusBadRequest, getJSON(t, h.srv.URL+"/api/entities?page=zero", nil))
}

func TestAPI_Entity(t *testing.T) {
	h := newHarness(t, 0, true)

	var body EntityResponse
	require.Equal(t, http.StatusOK, getJSON(t, h.srv.URL+"/api/entities/1", &body))
	assert.Equal(t, "bulbasaur", body.Entity.Name)
	require.Len(t, body.Categories, 2)
	assert.Equal(t, []string{"bug", "fire", "flying", "ground", "ice", "poison", "psychic"}, body.Weaknesses)

	assert.Equal(t, http.StatusNotFound, getJSON(t, h.srv.URL+"/api/entities/404", nil))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, h.srv.URL+"/api/entities/x", nil))
}

func TestAPI_NotReady(t *testing.T) {
	h := newHarness(t, 0, false)

	assert.Equal(t, http.StatusServiceUnavailable, getJSON(t, h.srv.URL+"/api/categories", nil))
	assert.Equal(t, http.StatusServiceUnavailable, getJSON(t, h.srv.URL+"/api/entities", nil))
	assert.Equal(t, http.StatusServiceUnavailable, getJSON(t, h.srv.URL+"/api/entities/1", nil))
}

func TestOps_HealthAndReady(t *testing.T) {
	h := newHarness(t, 0, false)

	resp, err := http.Get(h.srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, http.StatusServiceUnavailable, getJSON(t, h.srv.URL+"/ready", nil))

	require.NoError(t, h.app.Load(context.Background()))
	var body map[string]any
	assert.Equal(t, http.StatusOK, getJSON(t, h.srv.URL+"/ready", &body))
	assert.Equal(t, "ready", body["status"])
}

func TestOps_ReadyChecksPing(t *testing.T) {
	h := newHarness(t, 0, true)
	srv := httptest.NewServer(New(h.app, Options{
		Ping: func(context.Context) error { return errors.New("redis down") },
	}))
	defer srv.Close()

	var body map[string]string
	assert.Equal(t, http.StatusServiceUnavailable, getJSON(t, srv.URL+"/ready", &body))
	assert.Equal(t, "redis down", body["error"])
}

func postReload(t *testing.T, h *harness, token string) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, h.srv.URL+"/admin/reload", nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestOps_Reload(t *testing.T) {
	h := newHarness(t, 0, true)
	h.mock.AddEntity(testutil.MockEntity{ID: 150, Name: "mewtwo", Types: []string{"psychic"}, Abilities: []string{"pressure"}})

	require.Equal(t, http.StatusOK, postReload(t, h, testAdminToken))
	assert.Contains(t, h.page(t, h.browser(t)), "mewtwo")

	h.mock.SetResponse(testutil.EntityPath(150), testutil.NewServerErrorResponse())
	assert.Equal(t, http.StatusBadGateway, postReload(t, h, testAdminToken))
	assert.Contains(t, h.page(t, h.browser(t)), "mewtwo", "failed reload keeps the previous dataset")
}

func TestOps_ReloadRequiresToken(t *testing.T) {
	h := newHarness(t, 0, true)
	h.mock.Reset()

	assert.Equal(t, http.StatusUnauthorized, postReload(t, h, ""))
	assert.Equal(t, http.StatusUnauthorized, postReload(t, h, "wrong-token"))
	assert.Equal(t, 0, h.mock.GetRequestCount(), "rejected reloads reach no upstream")
}

func TestOps_ReloadDisabledWithoutToken(t *testing.T) {
	h := newHarness(t, 0, true)
	srv := httptest.NewServer(New(h.app, Options{}))
	defer srv.Close()
	h.mock.Reset()

	resp, err := http.Post(srv.URL+"/admin/reload", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, 0, h.mock.GetRequestCount())
}

func TestOps_ReloadRejectedWhileLoading(t *testing.T) {
	h := newHarness(t, 0, true)

	summaryPath := testutil.APIPrefix + "/pokemon"
	release := make(chan struct{})
	h.mock.SetHandler(summaryPath, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	h.mock.Reset()

	first := make(chan int, 1)
	go func() {
		req, _ := http.NewRequest(http.MethodPost, h.srv.URL+"/admin/reload", nil)
		req.Header.Set("Authorization", "Bearer "+testAdminToken)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			first <- 0
			return
		}
		resp.Body.Close()
		first <- resp.StatusCode
	}()
	require.Eventually(t, func() bool { return h.mock.GetPathCount(summaryPath) == 1 }, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, http.StatusConflict, postReload(t, h, testAdminToken))

	close(release)
	assert.Equal(t, http.StatusBadGateway, <-first)
	assert.Equal(t, 1, h.mock.GetPathCount(summaryPath), "the refused reload fetched nothing")
}

func TestOps_Metrics(t *testing.T) {
	h := newHarness(t, 0, true)

	resp, err := http.Get(h.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), "catalog_dataset_entities"))
}
