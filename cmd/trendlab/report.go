package main

import (
	"encoding/json"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/trendlab/internal/analysis"
	"github.com/sawpanic/trendlab/internal/backtest"
	"github.com/sawpanic/trendlab/internal/metrics"
)

func newReportCmd() *cobra.Command {
	var (
		configPath   string
		atrWindow    int
		medianWindow int
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Run post-hoc analysis for one strategy",
		Long:  "Re-runs the configured strategy and prints the full analysis block: return distribution, MAE/MFE trade analysis, holding-period distribution, and volatility-regime stratification.",
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
				return err
			}
			m := metrics.Compute(res, cfg.InitialCash, cfg.Annualization)

			regimes := analysis.Classify(series.Bars, atrWindow, medianWindow)
			report := struct {
				Symbol       string                      `json:"symbol"`
				Strategy     string                      `json:"strategy"`
				NumTrades    int                         `json:"num_trades"`
				Sharpe       float64                     `json:"sharpe"`
				Distribution analysis.ReturnDistribution `json:"return_distribution"`
				Trades       analysis.TradeAnalysis      `json:"trade_analysis"`
				Holding      analysis.HoldingPeriodStats `json:"holding_period"`
				Regimes      map[string]analysis.RegimeStats `json:"regimes"`
			}{
				Symbol:       cfg.Symbol,
				Strategy:     cfg.Strategy.Kind,
				NumTrades:    m.NumTrades,
				Sharpe:       m.Sharpe,
				Distribution: analysis.ComputeReturnDistribution(res.Equity),
				Trades:       analysis.ComputeTradeAnalysis(res.Trades, series.Bars),
				Holding:      analysis.ComputeHoldingPeriod(res.Trades),
				Regimes:      regimeMap(analysis.ComputeRegimeAnalysis(res.Trades, regimes)),
			}

			log.Info().
				Str("symbol", cfg.Symbol).
				Int("num_trades", m.NumTrades).
				Msg("analysis report computed")

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "trendlab.yaml", "Path to config file")
	cmd.Flags().IntVar(&atrWindow, "atr-window", 14, "ATR window for regime classification")
	cmd.Flags().IntVar(&medianWindow, "median-window", 50, "Rolling median window for regime classification")
	return cmd
}

func regimeMap(ra analysis.RegimeAnalysis) map[string]analysis.RegimeStats {
	out := make(map[string]analysis.RegimeStats, len(ra))
	for regime, stats := range ra {
		out[regime.String()] = stats
	}
	return out
}
