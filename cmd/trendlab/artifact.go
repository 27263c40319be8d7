package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/trendlab/internal/artifact"
	"github.com/sawpanic/trendlab/internal/indicatorcache"
	"github.com/sawpanic/trendlab/internal/terrors"
)

func newArtifactCmd() *cobra.Command {
	var (
		configPath string
		outPath    string
		numParity  int
	)

	cmd := &cobra.Command{
		Use:   "artifact",
		Short: "Emit a portable strategy artifact",
		Long:  "Builds the JSON artifact for the configured strategy: indicator definitions, entry/exit rules, cost model, and parity vectors an external reimplementation can verify against.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			series, err := loadBars(cfg)
			if err != nil {
				return err
			}
			strat, err := BuildStrategy(cfg.Strategy)
			if err != nil {
				return err
			}

			cache := newIndicatorCache(cfg)
			bt := cfg.BacktestConfig()
			a, err := artifact.Build(cmd.Context(), strat, cfg.Symbol, cfg.Timeframe, bt.Cost,
				series.Bars, parityIndices(series.Len(), strat.WarmupPeriod(), numParity), cache)
			if err != nil {
				return err
			}
			data, err := artifact.Marshal(a)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
				return terrors.Wrap(terrors.ErrIO, "creating artifact directory", err)
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return terrors.Wrap(terrors.ErrIO, "writing artifact", err)
			}

			log.Info().
				Str("strategy", cfg.Strategy.Kind).
				Str("path", outPath).
				Int("parity_vectors", len(a.ParityVectors)).
				Msg("artifact written")
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "trendlab.yaml", "Path to config file")
	cmd.Flags().StringVarP(&outPath, "out", "o", "out/artifact.json", "Artifact output path")
	cmd.Flags().IntVar(&numParity, "parity-vectors", 16, "Number of parity sample bars")
	return cmd
}

// newIndicatorCache builds the shared column cache, with the Redis tier
// attached when the config names an address.
func newIndicatorCache(cfg AppConfig) *indicatorcache.Cache {
	if addr := cfg.Yolo.RedisAddr; addr != "" {
		return indicatorcache.New(indicatorcache.NewRedisTier(addr, "", 0, time.Hour))
	}
	return indicatorcache.New(nil)
}

// parityIndices samples n bar indices evenly across the post-warmup span,
// always including the final bar.
func parityIndices(totalBars, warmup, n int) []int {
	if totalBars == 0 || n <= 0 {
		return nil
	}
	first := warmup
	if first >= totalBars {
		first = 0
	}
	span := totalBars - first
	if n > span {
		n = span
	}
	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, first+i*span/n)
	}
	if out[len(out)-1] != totalBars-1 {
		out[len(out)-1] = totalBars - 1
	}
	return out
}
