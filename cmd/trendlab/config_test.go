package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/trendlab/internal/backtest"
	"github.com/sawpanic/trendlab/internal/strategy"
)

const sampleConfig = `
symbol: BTC-USD
timeframe: 1d
bars_file: data/btc.json
initial_cash: 50000
annualization: 252
cost:
  fees_bps: 10
  slippage_bps: 5
sizing:
  mode: fixed
  fixed_qty: 2
strategy:
  kind: donchian_breakout
  params: [20, 10]
grid:
  kind: donchian_breakout
  axes:
    - name: entry_lookback
      values: [10, 20]
    - name: exit_lookback
      values: [5, 10]
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trendlab.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_ParsesAndDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "BTC-USD", cfg.Symbol)
	assert.Equal(t, 50000.0, cfg.InitialCash)
	assert.Equal(t, "out", cfg.Output.Dir)
	assert.Equal(t, 100, cfg.Yolo.CheckpointEvery)

	bt := cfg.BacktestConfig()
	assert.Equal(t, backtest.SizingFixed, bt.Sizing.Mode)
	assert.Equal(t, 2.0, bt.Sizing.FixedQty)
	assert.Equal(t, 10.0, bt.Cost.FeesBpsPerSide)
}

func TestBuildStrategy_ResolvesKindAndParams(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	strat, err := BuildStrategy(cfg.Strategy)
	require.NoError(t, err)
	assert.Equal(t, strategy.KindDonchianBreakout, strat.Kind)
	assert.Equal(t, 20, strat.EntryLookback)
	assert.Equal(t, 10, strat.ExitLookback)
}

func TestBuildStrategy_TurtlePresetNeedsNoParams(t *testing.T) {
	strat, err := BuildStrategy(StrategySpec{Kind: "turtle_s1"})
	require.NoError(t, err)
	assert.Equal(t, 20, strat.EntryLookback)
	assert.Equal(t, 10, strat.ExitLookback)
}

func TestBuildStrategy_ParamCountMismatch(t *testing.T) {
	_, err := BuildStrategy(StrategySpec{Kind: "donchian_breakout", Params: []float64{20}})
	require.Error(t, err)
}

func TestBuildGrid_EnumeratesThroughBoundsOrder(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	grid, err := cfg.BuildGrid()
	require.NoError(t, err)
	require.Len(t, grid.Axes, 2)
	built := grid.Build([]float64{10, 5})
	assert.Equal(t, 10, built.EntryLookback)
	assert.Equal(t, 5, built.ExitLookback)
}

func TestParityIndices_CoversPostWarmupSpanEndingAtLastBar(t *testing.T) {
	idx := parityIndices(100, 20, 4)
	require.Len(t, idx, 4)
	assert.GreaterOrEqual(t, idx[0], 20)
	assert.Equal(t, 99, idx[len(idx)-1])

	assert.Empty(t, parityIndices(0, 0, 4))
	assert.Len(t, parityIndices(10, 8, 5), 2)
}
