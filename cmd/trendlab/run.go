package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/trendlab/internal/backtest"
	"github.com/sawpanic/trendlab/internal/metrics"
)

func newRunCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single backtest",
		Long:  "Runs one configured strategy over the bars file and prints its metrics as JSON.",
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

			res, err := backtest.RunEventDriven(series.Bars, strat, cfg.BacktestConfig())
			if err != nil {
				return fmt.Errorf("backtest %s on %s: %w", cfg.Strategy.Kind, cfg.Symbol, err)
			}
			m := metrics.Compute(res, cfg.InitialCash, cfg.Annualization)

			log.Info().
				Str("symbol", cfg.Symbol).
				Str("strategy", cfg.Strategy.Kind).
				Int("num_trades", m.NumTrades).
				Float64("sharpe", m.Sharpe).
				Msg("backtest completed")

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				Symbol   string  `json:"symbol"`
				Strategy string  `json:"strategy"`
				Sharpe   float64 `json:"sharpe"`
				Sortino  float64 `json:"sortino"`
				CAGR     float64 `json:"cagr"`
				Calmar   float64 `json:"calmar"`
				MaxDD    float64 `json:"max_drawdown"`
				WinRate  float64 `json:"win_rate"`
				Trades   int     `json:"num_trades"`
				Turnover float64 `json:"turnover"`
			}{
				Symbol: cfg.Symbol, Strategy: cfg.Strategy.Kind,
				Sharpe: m.Sharpe, Sortino: clampForJSON(m.Sortino), CAGR: m.CAGR,
				Calmar: clampForJSON(m.Calmar), MaxDD: m.MaxDrawdown,
				WinRate: m.WinRate, Trades: m.NumTrades, Turnover: m.Turnover,
			})
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "trendlab.yaml", "Path to config file")
	return cmd
}

// clampForJSON keeps +/-Inf metric values encodable.
func clampForJSON(v float64) float64 {
	const lim = 1e308
	if v > lim {
		return lim
	}
	if v < -lim {
		return -lim
	}
	return v
}
