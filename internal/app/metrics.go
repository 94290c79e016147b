package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	datasetEntities = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_dataset_entities",
		Help: "Entities in the current dataset",
	})

	datasetLoadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_dataset_load_duration_seconds",
		Help:    "Duration of a full taxonomy and catalog load by outcome",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"outcome"})

	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_sessions_active",
		Help: "Viewer sessions held in memory",
	})

	sessionsEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_sessions_evicted_total",
		Help: "Sessions evicted to stay under the session cap",
	})
)
