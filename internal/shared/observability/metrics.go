package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lookup outcomes used as the outcome label of LookupsTotal.
const (
	OutcomeResolved   = "resolved"
	OutcomeNotFound   = "not_found"
	OutcomeAmbiguous  = "ambiguous"
	OutcomeCircular   = "circular"
	OutcomeUnexpected = "error"
)

var (
	LookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "symscope_lookups_total",
		Help: "Name lookups performed while binding, by outcome.",
	}, []string{"outcome"})

	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "symscope_parse_seconds",
		Help:    "Time spent parsing and binding a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	FilesBoundTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "symscope_files_bound_total",
		Help: "Total number of source files bound into a symbol table.",
	})

	Declarations = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "symscope_declarations",
		Help: "Declarations bound by the most recent scan.",
	})

	Diagnostics = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "symscope_diagnostics",
		Help: "Diagnostics reported by the most recent scan, by code.",
	}, []string{"code"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "symscope_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	ScanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "symscope_scan_seconds",
		Help:    "Wall time of a full or incremental scan.",
		Buckets: prometheus.DefBuckets,
	})
)
