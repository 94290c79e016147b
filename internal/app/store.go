package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Sternrassler/catalog-viewer/internal/catalog"
	"github.com/Sternrassler/catalog-viewer/pkg/logging"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Status is the lifecycle state of the dataset.
type Status string

const (
	// StatusLoading means no dataset has been loaded yet.
	StatusLoading Status = "loading"

	// StatusReady means a dataset is available.
	StatusReady Status = "ready"

	// StatusFailed means the first load failed and there is no dataset.
	StatusFailed Status = "failed"
)

// Loader is the data source the store and the detail view need.
type Loader interface {
	LoadTaxonomy(ctx context.Context) []string
	LoadCatalog(ctx context.Context, limit int) ([]catalog.Entity, error)
	LoadCategoryRelations(ctx context.Context, e catalog.Entity) ([]catalog.CategoryDetail, error)
}

// Dataset is one immutable load result. It is replaced wholesale, never mutated.
type Dataset struct {
	Entities []catalog.Entity
	Taxonomy []string
	Version  uint64
	LoadedAt time.Time

	byID map[int]int
}

func newDataset(entities []catalog.Entity, taxonomy []string, version uint64) *Dataset {
	byID := make(map[int]int, len(entities))
	for i, e := range entities {
		byID[e.ID] = i
	}
	return &Dataset{
		Entities: entities,
		Taxonomy: taxonomy,
		Version:  version,
		LoadedAt: time.Now(),
		byID:     byID,
	}
}

// Entity looks up an entity by ID.
func (d *Dataset) Entity(id int) (catalog.Entity, bool) {
	if d == nil {
		return catalog.Entity{}, false
	}
	i, ok := d.byID[id]
	if !ok {
		return catalog.Entity{}, false
	}
	return d.Entities[i], true
}

// State is a consistent view of the store.
type State struct {
	Status  Status
	Err     error
	Dataset *Dataset
}

// Store owns the dataset. It is the only writer; readers get immutable snapshots.
type Store struct {
	loader Loader
	limit  int
	logger zerolog.Logger

	// loadMu serializes loads so two reloads cannot interleave their swaps
	loadMu  sync.Mutex
	version atomic.Uint64

	mu      sync.RWMutex
	status  Status
	err     error
	dataset *Dataset
}

// NewStore creates a store that fetches at most limit entities per load.
func NewStore(loader Loader, limit int) *Store {
	if limit <= 0 {
		limit = catalog.DefaultFetchLimit
	}
	return &Store{
		loader: loader,
		limit:  limit,
		logger: logging.NewLogger("store"),
		status: StatusLoading,
	}
}

// Load fetches the taxonomy and the catalog concurrently and swaps in the new
// dataset. A failed load leaves the previous dataset in place; with no
// previous dataset the store moves to StatusFailed.
func (s *Store) Load(ctx context.Context) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	return s.load(ctx)
}

// TryLoad is Load, but returns ErrLoadInProgress instead of queueing behind
// a running load.
func (s *Store) TryLoad(ctx context.Context) error {
	if !s.loadMu.TryLock() {
		return ErrLoadInProgress
	}
	defer s.loadMu.Unlock()
	return s.load(ctx)
}

func (s *Store) load(ctx context.Context) error {
	start := time.Now()

	var (
		taxonomy []string
		entities []catalog.Entity
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		taxonomy = s.loader.LoadTaxonomy(gctx)
		return nil
	})
	g.Go(func() error {
		var err error
		entities, err = s.loader.LoadCatalog(gctx, s.limit)
		return err
	})

	if err := g.Wait(); err != nil {
		datasetLoadDuration.WithLabelValues("failed").Observe(time.Since(start).Seconds())

		s.mu.Lock()
		defer s.mu.Unlock()
		s.err = err
		if s.dataset == nil {
			s.status = StatusFailed
		}

		s.logger.Error().
			Err(err).
			Bool("kept_previous", s.dataset != nil).
			Dur("duration", time.Since(start)).
			Msg("Dataset load failed")
		return err
	}

	ds := newDataset(entities, taxonomy, s.version.Add(1))
	datasetLoadDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
	datasetEntities.Set(float64(len(entities)))

	s.mu.Lock()
	s.dataset = ds
	s.status = StatusReady
	s.err = nil
	s.mu.Unlock()

	s.logger.Info().
		Int("entities", len(entities)).
		Int("categories", len(taxonomy)).
		Uint64("version", ds.Version).
		Dur("duration", time.Since(start)).
		Msg("Dataset ready")
	return nil
}

// State returns the current status and dataset.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{Status: s.status, Err: s.err, Dataset: s.dataset}
}

// Dataset returns the current dataset or ErrNotReady.
func (s *Store) Dataset() (*Dataset, error) {
	st := s.State()
	if st.Dataset == nil {
		if st.Err != nil {
			return nil, errors.Join(ErrNotReady, st.Err)
		}
		return nil, ErrNotReady
	}
	return st.Dataset, nil
}
