package app

import (
	"sync"
	"time"

	"github.com/Sternrassler/catalog-viewer/internal/catalog"
)

// DetailState is the detail view of one session.
type DetailState struct {
	Open    bool
	Loading bool
	Entity  catalog.Entity

	// Relations of every distinct category, in tag order
	Relations []catalog.CategoryDetail
	Err       error

	// Token identifies the request whose result the view waits for
	Token uint64
}

// Session is the viewer state of one browser: criteria, page and detail.
// All methods are safe for concurrent use.
type Session struct {
	ID string

	mu       sync.Mutex
	pageSize int
	criteria catalog.Criteria
	page     int
	lastSeen time.Time

	// filtered caches Filter(dataset, criteria) for filteredVersion
	filtered        []catalog.Entity
	filteredVersion uint64
	filteredValid   bool

	detail    DetailState
	lastToken uint64
}

// NewSession creates a session on page 1 with default criteria.
func NewSession(id string, pageSize int) *Session {
	if pageSize <= 0 {
		pageSize = catalog.DefaultPageSize
	}
	return &Session{
		ID:       id,
		pageSize: pageSize,
		criteria: catalog.DefaultCriteria(),
		page:     1,
		lastSeen: time.Now(),
	}
}

// Criteria returns the current criteria as entered.
func (s *Session) Criteria() catalog.Criteria {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.criteria
}

// Page returns the current page number.
func (s *Session) Page() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// SetCriteria replaces the criteria and resets to page 1.
func (s *Session) SetCriteria(c catalog.Criteria) {
	if c.Category == "" {
		c.Category = catalog.AllCategories
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.criteria = c
	s.page = 1
	s.filteredValid = false
}

// Reset clears the term and the category and returns to page 1.
func (s *Session) Reset() {
	s.SetCriteria(catalog.DefaultCriteria())
}

// NextPage advances one page unless already on the last page.
func (s *Session) NextPage(ds *Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := catalog.PageCount(len(s.filteredLocked(ds)), s.pageSize)
	if s.page < total {
		s.page++
	}
}

// PrevPage goes back one page unless already on page 1.
func (s *Session) PrevPage() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page > 1 {
		s.page--
	}
}

// View returns the current page of the filtered dataset. The stored page is
// clamped when a reload shrank the result.
func (s *Session) View(ds *Dataset) catalog.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	filtered := s.filteredLocked(ds)
	s.page = catalog.ClampPage(s.page, catalog.PageCount(len(filtered), s.pageSize))
	return catalog.Page(filtered, s.page, s.pageSize)
}

// filteredLocked recomputes the filtered list in full when the criteria or the
// dataset changed. Callers hold s.mu.
func (s *Session) filteredLocked(ds *Dataset) []catalog.Entity {
	if ds == nil {
		return nil
	}
	if !s.filteredValid || s.filteredVersion != ds.Version {
		s.filtered = catalog.Filter(ds.Entities, s.criteria)
		s.filteredVersion = ds.Version
		s.filteredValid = true
	}
	return s.filtered
}

// BeginDetail opens the detail view for e in its loading state and returns
// the token the result must carry.
func (s *Session) BeginDetail(e catalog.Entity) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastToken++
	s.detail = DetailState{
		Open:    true,
		Loading: true,
		Entity:  e,
		Token:   s.lastToken,
	}
	return s.lastToken
}

// ResolveDetail applies a detail result if token is still the latest request
// and the view is open. It reports whether the result was applied.
func (s *Session) ResolveDetail(token uint64, relations []catalog.CategoryDetail, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.detail.Open || token != s.detail.Token {
		return false
	}

	s.detail.Loading = false
	s.detail.Relations = relations
	s.detail.Err = err
	return true
}

// CloseDetail closes the detail view; a pending result is dropped on arrival.
func (s *Session) CloseDetail() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastToken++
	s.detail = DetailState{Token: s.lastToken}
}

// Detail returns the detail view state.
func (s *Session) Detail() DetailState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detail
}

// Touch records activity for idle expiry.
func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = now
}

// LastSeen returns the time of the last recorded activity.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}
