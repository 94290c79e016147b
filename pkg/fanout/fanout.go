package fanout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var (
	fanoutBatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_fanout_batches_total",
		Help: "Total fan-out batches by failure policy and outcome",
	}, []string{"policy", "outcome"})

	fanoutItemsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_fanout_items_failed_total",
		Help: "Total fan-out items that failed, by failure policy",
	}, []string{"policy"})
)

// Policy names how a batch reacts to a failing item.
type Policy string

const (
	// PolicyAllOrNothing fails the whole batch on the first failing item.
	PolicyAllOrNothing Policy = "all_or_nothing"

	// PolicyDegrade replaces a failing item with a fallback and carries on.
	PolicyDegrade Policy = "degrade"
)

// Config holds fan-out configuration.
type Config struct {
	// MaxConcurrency bounds in-flight fetches; 0 starts one goroutine per item
	MaxConcurrency int

	// Timeout per item fetch; 0 means only the parent context applies
	Timeout time.Duration
}

// DefaultConfig returns a bounded configuration suitable for a public API.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 16,
		Timeout:        15 * time.Second,
	}
}

// FetchFunc fetches the result for one item.
type FetchFunc[T, R any] func(ctx context.Context, item T) (R, error)

// BatchError is the single aggregate failure of a batch.
type BatchError struct {
	Policy Policy
	Total  int
	Failed int
	// Index of the item whose failure ended the batch, -1 if the parent context ended it
	Index int
	Err   error
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("fan-out %s: %d/%d items failed: %v", e.Policy, e.Failed, e.Total, e.Err)
	}
	return fmt.Sprintf("fan-out %s: %d/%d items failed (first at item %d): %v",
		e.Policy, e.Failed, e.Total, e.Index, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *BatchError) Unwrap() error {
	return e.Err
}

// All fetches every item and returns the results in input order. The first
// failure cancels the items still running and All returns a *BatchError with
// no results.
func All[T, R any](ctx context.Context, cfg Config, items []T, fetch FetchFunc[T, R]) ([]R, error) {
	start := time.Now()
	results := make([]R, len(items))

	g, gctx := errgroup.WithContext(ctx)
	if cfg.MaxConcurrency > 0 {
		g.SetLimit(cfg.MaxConcurrency)
	}

	var (
		failed   atomic.Int64
		once     sync.Once
		firstIdx = -1
		firstErr error
	)

	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			// Batch already failed, don't start new fetches
			if err := gctx.Err(); err != nil {
				return err
			}

			itemCtx, cancel := withTimeout(gctx, cfg.Timeout)
			defer cancel()

			r, err := fetch(itemCtx, item)
			if err != nil {
				if gctx.Err() == nil || !errors.Is(err, context.Canceled) {
					failed.Add(1)
				}
				once.Do(func() {
					firstIdx = i
					firstErr = err
				})
				return err
			}

			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		batchErr := &BatchError{
			Policy: PolicyAllOrNothing,
			Total:  len(items),
			Failed: int(failed.Load()),
			Index:  firstIdx,
			Err:    firstErr,
		}
		if firstErr == nil {
			// Parent context ended the batch before any fetch failed
			batchErr.Index = -1
			batchErr.Err = err
		}

		fanoutBatchesTotal.WithLabelValues(string(PolicyAllOrNothing), "failed").Inc()
		fanoutItemsFailedTotal.WithLabelValues(string(PolicyAllOrNothing)).Add(float64(batchErr.Failed))
		log.Warn().
			Err(batchErr.Err).
			Int("total", batchErr.Total).
			Int("failed", batchErr.Failed).
			Dur("duration", time.Since(start)).
			Msg("Fan-out batch failed")
		return nil, batchErr
	}

	fanoutBatchesTotal.WithLabelValues(string(PolicyAllOrNothing), "ok").Inc()
	log.Debug().
		Int("total", len(items)).
		Dur("duration", time.Since(start)).
		Msg("Fan-out batch complete")

	return results, nil
}

// Each fetches every item using a worker pool and returns the results in
// input order. A failing item is replaced by fallback(item, err); Each never
// fails as a whole and reports how many items fell back.
func Each[T, R any](ctx context.Context, cfg Config, items []T, fetch FetchFunc[T, R], fallback func(T, error) R) ([]R, int) {
	start := time.Now()
	results := make([]R, len(items))
	if len(items) == 0 {
		return results, 0
	}

	workers := cfg.MaxConcurrency
	if workers <= 0 || workers > len(items) {
		workers = len(items)
	}

	queue := make(chan int, len(items))
	for i := range items {
		queue <- i
	}
	close(queue)

	var (
		wg     sync.WaitGroup
		failed atomic.Int64
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			processed := 0

			for i := range queue {
				item := items[i]

				// Parent context done: remaining items fall back without a fetch
				if err := ctx.Err(); err != nil {
					results[i] = fallback(item, err)
					failed.Add(1)
					continue
				}

				itemCtx, cancel := withTimeout(ctx, cfg.Timeout)
				r, err := fetch(itemCtx, item)
				cancel()

				if err != nil {
					log.Debug().
						Err(err).
						Int("worker_id", workerID).
						Int("item", i).
						Msg("Fan-out item failed, using fallback")
					results[i] = fallback(item, err)
					failed.Add(1)
					continue
				}

				results[i] = r
				processed++
			}

			if processed > 0 {
				log.Debug().
					Int("worker_id", workerID).
					Int("items_processed", processed).
					Msg("Worker completed")
			}
		}(w)
	}
	wg.Wait()

	n := int(failed.Load())
	outcome := "ok"
	if n > 0 {
		outcome = "degraded"
		fanoutItemsFailedTotal.WithLabelValues(string(PolicyDegrade)).Add(float64(n))
	}
	fanoutBatchesTotal.WithLabelValues(string(PolicyDegrade), outcome).Inc()
	log.Debug().
		Int("total", len(items)).
		Int("failed", n).
		Dur("duration", time.Since(start)).
		Msg("Fan-out batch complete")

	return results, n
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
