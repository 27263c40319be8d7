// Package obsmetrics holds the Prometheus registry for the research core:
// sweep progress counters, YOLO coverage and leaderboard gauges, and
// indicator cache hit/miss counters. The registry is owned by whoever
// constructs it — the core is instantiable multiple times per process, so
// nothing registers against the global default registry.
package obsmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry bundles every metric the core exposes.
type Registry struct {
	reg *prometheus.Registry

	SweepConfigs  *prometheus.CounterVec
	SweepDuration *prometheus.HistogramVec

	YoloIterations    *prometheus.CounterVec
	CoverageRatio     *prometheus.GaugeVec
	WinnerCount       *prometheus.GaugeVec
	LeaderboardSize   *prometheus.GaugeVec
	WalkForwardGrades *prometheus.CounterVec

	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec
}

// NewRegistry constructs a Registry with every metric registered against a
// fresh private prometheus.Registry.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		SweepConfigs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendlab_sweep_configs_total",
				Help: "Configurations evaluated by the sweep driver, by symbol and outcome",
			},
			[]string{"symbol", "status"},
		),

		SweepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trendlab_sweep_duration_seconds",
				Help:    "Wall-clock duration of full sweep runs",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"symbol", "strategy"},
		),

		YoloIterations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendlab_yolo_iterations_total",
				Help: "YOLO loop iterations, by symbol and outcome",
			},
			[]string{"symbol", "status"},
		),

		CoverageRatio: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "trendlab_yolo_coverage_ratio",
				Help: "Fraction of normalized parameter-space cells visited, per strategy",
			},
			[]string{"strategy"},
		),

		WinnerCount: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "trendlab_yolo_winners",
				Help: "Stored winner configurations, per strategy",
			},
			[]string{"strategy"},
		),

		LeaderboardSize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "trendlab_leaderboard_entries",
				Help: "Entries held by each leaderboard scope",
			},
			[]string{"scope"},
		),

		WalkForwardGrades: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendlab_walkforward_grades_total",
				Help: "Walk-forward validation outcomes by grade",
			},
			[]string{"grade"},
		),

		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendlab_indicator_cache_hits_total",
				Help: "Indicator column cache hits by symbol",
			},
			[]string{"symbol"},
		),

		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendlab_indicator_cache_misses_total",
				Help: "Indicator column cache misses by symbol",
			},
			[]string{"symbol"},
		),
	}

	r.reg.MustRegister(
		r.SweepConfigs, r.SweepDuration,
		r.YoloIterations, r.CoverageRatio, r.WinnerCount,
		r.LeaderboardSize, r.WalkForwardGrades,
		r.CacheHits, r.CacheMisses,
	)
	return r
}

// Prometheus exposes the underlying registry for an HTTP handler or a
// push collaborator.
func (r *Registry) Prometheus() *prometheus.Registry { return r.reg }
