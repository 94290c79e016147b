// Package app is the single owner of the viewer state: the dataset store,
// the per-browser sessions and the asynchronous detail requests.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/catalog-viewer/internal/catalog"
	"github.com/Sternrassler/catalog-viewer/pkg/logging"
	"github.com/rs/zerolog"
)

var (
	// ErrNotReady is returned while no dataset is available.
	ErrNotReady = errors.New("catalog not ready")

	// ErrUnknownEntity is returned for an ID that is not in the dataset.
	ErrUnknownEntity = errors.New("unknown entity")

	// ErrLoadInProgress is returned by a reload that found another load running.
	ErrLoadInProgress = errors.New("catalog load already in progress")
)

// Config holds application settings.
type Config struct {
	// FetchLimit caps the number of entities per load
	FetchLimit int

	// PageSize is the number of entities per page
	PageSize int

	// SessionTTL expires idle sessions; 0 keeps them forever
	SessionTTL time.Duration

	// MaxSessions caps the sessions held in memory; 0 means no cap
	MaxSessions int

	// DetailTimeout bounds one detail request
	DetailTimeout time.Duration
}

// DefaultConfig returns the default application settings.
func DefaultConfig() Config {
	return Config{
		FetchLimit:    catalog.DefaultFetchLimit,
		PageSize:      catalog.DefaultPageSize,
		SessionTTL:    2 * time.Hour,
		MaxSessions:   10000,
		DetailTimeout: 30 * time.Second,
	}
}

// Snapshot is everything the renderer needs to draw one session.
type Snapshot struct {
	Status   Status
	LoadErr  error
	Taxonomy []string
	Criteria catalog.Criteria
	Result   catalog.Result
	Detail   DetailState
}

// App wires the store, the sessions and the loader together.
type App struct {
	cfg      Config
	loader   Loader
	store    *Store
	sessions *Registry
	logger   zerolog.Logger

	// ctx outlives requests: detail fetches keep running after the redirect
	ctx     context.Context
	cancel  context.CancelFunc
	pending sync.WaitGroup
}

// New creates the application. Nothing is fetched until Load.
func New(loader Loader, cfg Config) *App {
	if cfg.PageSize <= 0 {
		cfg.PageSize = catalog.DefaultPageSize
	}
	if cfg.FetchLimit <= 0 {
		cfg.FetchLimit = catalog.DefaultFetchLimit
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		cfg:      cfg,
		loader:   loader,
		store:    NewStore(loader, cfg.FetchLimit),
		sessions: NewRegistry(cfg.PageSize, cfg.SessionTTL, cfg.MaxSessions),
		logger:   logging.NewLogger("app"),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Load performs the startup load, or a wholesale reload.
func (a *App) Load(ctx context.Context) error {
	return a.store.Load(ctx)
}

// Reload replaces the dataset wholesale unless a load is already running,
// in which case it returns ErrLoadInProgress without fetching anything.
func (a *App) Reload(ctx context.Context) error {
	return a.store.TryLoad(ctx)
}

// Store returns the dataset store.
func (a *App) Store() *Store {
	return a.store
}

// Sessions returns the session registry.
func (a *App) Sessions() *Registry {
	return a.sessions
}

// PageSize returns the configured page size.
func (a *App) PageSize() int {
	return a.cfg.PageSize
}

// Snapshot captures the state of s against the current dataset. A nil s is a
// visitor without a session: default criteria on page 1.
func (a *App) Snapshot(s *Session) Snapshot {
	if s == nil {
		s = NewSession("", a.cfg.PageSize)
	}
	st := a.store.State()

	snap := Snapshot{
		Status:   st.Status,
		LoadErr:  st.Err,
		Criteria: s.Criteria(),
		Detail:   s.Detail(),
		Taxonomy: []string{},
		Result:   catalog.Result{Items: []catalog.Entity{}, Page: 1, PageSize: a.cfg.PageSize},
	}
	if st.Dataset != nil {
		snap.Taxonomy = st.Dataset.Taxonomy
		snap.Result = s.View(st.Dataset)
	}
	return snap
}

// NextPage moves s one page forward within the current dataset.
func (a *App) NextPage(s *Session) {
	st := a.store.State()
	s.NextPage(st.Dataset)
}

// OpenDetail opens the detail view of entity id in s and fetches its
// category relations in the background. Only the result of the latest open
// is applied; earlier ones are dropped.
func (a *App) OpenDetail(s *Session, id int) (uint64, error) {
	ds, err := a.store.Dataset()
	if err != nil {
		return 0, err
	}
	e, ok := ds.Entity(id)
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownEntity, id)
	}

	token := s.BeginDetail(e)
	logger := a.logger.With().
		Str("session", s.ID).
		Int("entity_id", id).
		Uint64("token", token).
		Logger()
	logger.Debug().Msg("Detail requested")

	a.pending.Add(1)
	go func() {
		defer a.pending.Done()

		ctx, cancel := a.detailContext()
		defer cancel()

		relations, err := a.loader.LoadCategoryRelations(ctx, e)
		if err != nil {
			logger.Error().Err(err).Msg("Detail view failed")
		}

		if !s.ResolveDetail(token, relations, err) {
			logger.Warn().Msg("Stale detail response dropped")
		}
	}()

	return token, nil
}

// LoadDetail fetches an entity and its category relations synchronously.
func (a *App) LoadDetail(ctx context.Context, id int) (catalog.Entity, []catalog.CategoryDetail, error) {
	ds, err := a.store.Dataset()
	if err != nil {
		return catalog.Entity{}, nil, err
	}
	e, ok := ds.Entity(id)
	if !ok {
		return catalog.Entity{}, nil, fmt.Errorf("%w: %d", ErrUnknownEntity, id)
	}

	if a.cfg.DetailTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.DetailTimeout)
		defer cancel()
	}

	relations, err := a.loader.LoadCategoryRelations(ctx, e)
	if err != nil {
		return e, nil, err
	}
	return e, relations, nil
}

// RunSweeper expires idle sessions every interval until ctx is done.
func (a *App) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := a.sessions.Sweep(now); n > 0 {
				a.logger.Debug().Int("removed", n).Msg("Idle sessions expired")
			}
		}
	}
}

// Wait blocks until every pending detail request has finished.
func (a *App) Wait() {
	a.pending.Wait()
}

// Close cancels pending detail requests and waits for them.
func (a *App) Close() {
	a.cancel()
	a.pending.Wait()
}

func (a *App) detailContext() (context.Context, context.CancelFunc) {
	if a.cfg.DetailTimeout <= 0 {
		return context.WithCancel(a.ctx)
	}
	return context.WithTimeout(a.ctx, a.cfg.DetailTimeout)
}
