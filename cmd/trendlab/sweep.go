package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/trendlab/internal/analysis"
	"github.com/sawpanic/trendlab/internal/strategy"
	"github.com/sawpanic/trendlab/internal/sweep"
	"github.com/sawpanic/trendlab/internal/yolo"
)

func newSweepCmd() *cobra.Command {
	var (
		configPath string
		workers    int
		rankBy     string
		topN       int
		lhsSamples int
		lhsSeed    int64
		clusters   int
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run a parameter sweep",
		Long:  "Enumerates the configured grid, evaluates every configuration in parallel, ranks the results, and writes the manifest, results, and summary.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			series, err := loadBars(cfg)
			if err != nil {
				return err
			}
			// LHS samples the declared parameter space directly and needs no
			// grid axes; enumeration expands the configured grid.
			kind := strategy.Kind(cfg.Grid.Kind)
			var ids []sweep.ConfigID
			if lhsSamples > 0 {
				ids, err = lhsConfigIDs(kind, lhsSamples, lhsSeed)
			} else {
				var grid sweep.Grid
				grid, err = cfg.BuildGrid()
				if err != nil {
					return err
				}
				ids, err = sweep.Enumerate(grid)
			}
			if err != nil {
				return err
			}

			first, last := series.Bars[0].Timestamp, series.Bars[len(series.Bars)-1].Timestamp
			manifest := sweep.NewRunManifest(cfg.Symbol, string(kind), len(ids),
				sweep.DataVersionHash(cfg.Symbol, cfg.Timeframe, series.Len(), first, last))

			start := time.Now()
			result, err := sweep.Run(cmd.Context(), cfg.Symbol, series.Bars, ids, sweep.RunOptions{
				MaxWorkers:          workers,
				BacktestConfig:      cfg.BacktestConfig(),
				AnnualizationFactor: cfg.Annualization,
			})
			if err != nil {
				return err
			}
			manifest = manifest.Finish()
			metricsRegistry.SweepDuration.WithLabelValues(cfg.Symbol, string(kind)).
				Observe(time.Since(start).Seconds())
			for _, cr := range result.Configs {
				status := "ok"
				if cr.Err != nil {
					status = "error"
					log.Warn().Err(cr.Err).Str("config_id", cr.ConfigID.String()).Msg("configuration failed")
				}
				metricsRegistry.SweepConfigs.WithLabelValues(cfg.Symbol, status).Inc()
			}

			ranked := sweep.Rank(result, sweep.MetricField(rankBy), false)
			summary := sweep.RenderSummaryMarkdown(manifest, ranked, sweep.MetricField(rankBy), topN)

			paths := sweep.PathsFor(cfg.Output.Dir, manifest.SweepID)
			if err := writeSweepOutputs(manifest, ranked, summary, paths); err != nil {
				return err
			}
			if clusters > 0 {
				if err := writeClusterReport(ranked, clusters, paths); err != nil {
					log.Warn().Err(err).Msg("cluster analysis skipped")
				}
			}

			log.Info().
				Str("sweep_id", manifest.SweepID).
				Str("symbol", cfg.Symbol).
				Int("num_configs", len(ids)).
				Str("summary", paths.SummaryPath).
				Msg("sweep outputs written")
			fmt.Println(summary)
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "trendlab.yaml", "Path to config file")
	cmd.Flags().IntVar(&workers, "workers", 0, "Worker pool size (0 = NumCPU)")
	cmd.Flags().StringVar(&rankBy, "rank-by", string(sweep.FieldSharpe), "Metric to rank by")
	cmd.Flags().IntVar(&topN, "top", 20, "Rows in the rendered summary")
	cmd.Flags().IntVar(&lhsSamples, "lhs", 0, "Sample N configurations by Latin Hypercube instead of enumerating the grid")
	cmd.Flags().Int64Var(&lhsSeed, "lhs-seed", 1, "Seed for Latin Hypercube sampling")
	cmd.Flags().IntVar(&clusters, "clusters", 0, "Group results into K performance clusters after ranking")
	return cmd
}

// lhsConfigIDs samples the strategy's declared parameter space by Latin
// Hypercube instead of enumerating grid axes.
func lhsConfigIDs(kind strategy.Kind, samples int, seed int64) ([]sweep.ConfigID, error) {
	bounds, err := yolo.ParamBoundsFor(kind)
	if err != nil {
		return nil, err
	}
	ranges := make([]sweep.LHSRange, len(bounds))
	for i, b := range bounds {
		ranges[i] = sweep.LHSRange{Name: b.Name, Min: b.Min, Max: b.Max, Step: b.Step}
	}
	rng := rand.New(rand.NewSource(seed))
	return sweep.LHSConfigIDs(kind, ranges, samples, func(values []float64) strategy.Config {
		return yolo.BuildConfig(kind, values)
	}, rng), nil
}

// clusterRow is the JSON shape of clusters.json: assignments plus the
// per-cluster summaries and representatives.
type clusterRow struct {
	ConfigID string `json:"config_id"`
	Cluster  int    `json:"cluster"`
}

type clusterReport struct {
	K               int                       `json:"k"`
	FeatureNames    []string                  `json:"feature_names"`
	Inertia         float64                   `json:"inertia"`
	Assignments     []clusterRow              `json:"assignments"`
	Summaries       []analysis.ClusterSummary `json:"summaries"`
	Representatives []analysis.Representative `json:"representatives"`
}

// writeClusterReport clusters the ranked results by performance metrics and
// writes the grouping next to the sweep's other outputs.
func writeClusterReport(ranked []sweep.ConfigResult, k int, paths sweep.ResultPaths) error {
	points := make([]analysis.ConfigPoint, len(ranked))
	for i, cr := range ranked {
		points[i] = analysis.ConfigPoint{
			ID:       cr.ConfigID.String(),
			Features: analysis.MetricsFeatures(cr.Metrics),
		}
	}
	res, err := analysis.ClusterConfigs(points, analysis.DefaultClusterFeatures, analysis.DefaultKMeansConfig(k))
	if err != nil {
		return err
	}

	report := clusterReport{
		K:               res.K,
		FeatureNames:    res.FeatureNames,
		Inertia:         res.Inertia,
		Summaries:       analysis.SummarizeClusters(points, res),
		Representatives: analysis.ClusterRepresentatives(points, res),
	}
	for i, p := range points {
		report.Assignments = append(report.Assignments, clusterRow{ConfigID: p.ID, Cluster: res.Labels[i]})
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cluster report: %w", err)
	}
	path := filepath.Join(filepath.Dir(paths.ResultsPath), "clusters.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing cluster report: %w", err)
	}

	for _, rep := range report.Representatives {
		log.Info().
			Int("cluster", rep.Cluster).
			Str("config_id", rep.ID).
			Msg("cluster representative")
	}
	return nil
}

// rankedRow is the JSON row shape of results.json: metric fields only, the
// full backtest result is discardable after ranking.
type rankedRow struct {
	Rank     int       `json:"rank"`
	ConfigID string    `json:"config_id"`
	Params   []float64 `json:"params"`
	Sharpe   float64   `json:"sharpe"`
	CAGR     float64   `json:"cagr"`
	MaxDD    float64   `json:"max_drawdown"`
	WinRate  float64   `json:"win_rate"`
	Trades   int       `json:"num_trades"`
}

func writeSweepOutputs(manifest sweep.RunManifest, ranked []sweep.ConfigResult, summary string, paths sweep.ResultPaths) error {
	if err := os.MkdirAll(filepath.Dir(paths.ManifestPath), 0o755); err != nil {
		return fmt.Errorf("creating sweep output directory: %w", err)
	}

	manifestJSON, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	if err := os.WriteFile(paths.ManifestPath, manifestJSON, 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}

	rows := make([]rankedRow, len(ranked))
	for i, cr := range ranked {
		rows[i] = rankedRow{
			Rank: i + 1, ConfigID: cr.ConfigID.String(), Params: cr.ConfigID.Params,
			Sharpe: cr.Metrics.Sharpe, CAGR: cr.Metrics.CAGR,
			MaxDD: cr.Metrics.MaxDrawdown, WinRate: cr.Metrics.WinRate, Trades: cr.Metrics.NumTrades,
		}
	}
	resultsJSON, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}
	if err := os.WriteFile(paths.ResultsPath, resultsJSON, 0o644); err != nil {
		return fmt.Errorf("writing results: %w", err)
	}

	if err := os.WriteFile(paths.SummaryPath, []byte(summary), 0o644); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	return nil
}
