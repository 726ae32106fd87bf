package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	LookupsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zonematch_lookups_total",
		Help: "Total number of single point lookups",
	})
	LookupDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "zonematch_lookup_duration_ms",
		Help:    "Single point lookup duration in milliseconds",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 20, 50, 100, 200},
	})
	LookupCodeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zonematch_lookup_code_total",
		Help: "Lookup outcomes by result code (1 full, 2 square, 3 no match, 4 outside)",
	}, []string{"code"})
	BatchRowsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zonematch_batch_rows_total",
		Help: "Total number of batch rows processed",
	})
	BatchRowErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zonematch_batch_row_errors_total",
		Help: "Total number of batch rows rejected for bad coordinates",
	})
	DatasetZones = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "zonematch_dataset_zones",
		Help: "Number of zones in the active dataset",
	})
	DatasetLoadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zonematch_dataset_loads_total",
		Help: "Dataset loads by source format",
	}, []string{"source"})
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zonematch_cache_hits_total",
		Help: "Total lookup cache hits (LRU or redis)",
	})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zonematch_cache_misses_total",
		Help: "Total lookup cache misses (LRU or redis)",
	})
)

func init() {
	prometheus.MustRegister(LookupsTotal)
	prometheus.MustRegister(LookupDurationMs)
	prometheus.MustRegister(LookupCodeTotal)
	prometheus.MustRegister(BatchRowsTotal)
	prometheus.MustRegister(BatchRowErrorsTotal)
	prometheus.MustRegister(DatasetZones)
	prometheus.MustRegister(DatasetLoadsTotal)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
}

func Handler() http.Handler { return promhttp.Handler() }
