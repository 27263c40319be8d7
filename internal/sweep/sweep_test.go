package sweep

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/trendlab/internal/backtest"
	"github.com/sawpanic/trendlab/internal/bar"
	"github.com/sawpanic/trendlab/internal/strategy"
)

func sampleBars(n int) []bar.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]bar.Bar, n)
	for i := 0; i < n; i++ {
		px := 100.0 + float64(i%7) - float64(i%11)/3
		out[i] = bar.Bar{
			Timestamp: start.Add(time.Duration(i) * 24 * time.Hour),
			Open:      px, High: px + 1, Low: px - 1, Close: px,
			Volume: 1000, Symbol: "BTC-USD", Timeframe: "1d",
		}
	}
	return out
}

func donchianGrid() Grid {
	return Grid{
		Kind: strategy.KindDonchianBreakout,
		Axes: []Axis{
			{Name: "entry_lookback", Values: []float64{10, 20, 30, 40}},
			{Name: "exit_lookback", Values: []float64{5, 10, 15, 20}},
		},
		Build: func(v []float64) strategy.Config {
			return strategy.DonchianBreakout(int(v[0]), int(v[1]))
		},
	}
}

func TestEnumerate_ProducesCartesianProductInStableOrder(t *testing.T) {
	ids, err := Enumerate(donchianGrid())
	require.NoError(t, err)
	require.Len(t, ids, 16)
	assert.Equal(t, []int{0, 0}, ids[0].Index)
	assert.Equal(t, []int{3, 3}, ids[len(ids)-1].Index)
}

func TestEnumerate_RejectsEmptyAxis(t *testing.T) {
	g := donchianGrid()
	g.Axes[0].Values = nil
	_, err := Enumerate(g)
	require.Error(t, err)
}

// TestRun_DeterministicUnderParallelism: running the
// same grid sequentially (1 worker) and in parallel (many workers) must
// produce an identical ordered Result.
func TestRun_DeterministicUnderParallelism(t *testing.T) {
	ids, err := Enumerate(donchianGrid())
	require.NoError(t, err)
	bars := sampleBars(80)
	cfg := backtest.Config{InitialCash: 10000, Cost: backtest.Cost{SlippageBps: 5, FeesBpsPerSide: 2}, Sizing: backtest.Sizing{Mode: backtest.SizingFixed, FixedQty: 1}}

	seq, err := Run(context.Background(), "BTC-USD", bars, ids, RunOptions{MaxWorkers: 1, BacktestConfig: cfg})
	require.NoError(t, err)
	par, err := Run(context.Background(), "BTC-USD", bars, ids, RunOptions{MaxWorkers: 8, BacktestConfig: cfg})
	require.NoError(t, err)

	require.Len(t, par.Configs, len(seq.Configs))
	for i := range seq.Configs {
		assert.Equal(t, seq.Configs[i].ConfigID, par.Configs[i].ConfigID)
		assert.Equal(t, seq.Configs[i].Metrics, par.Configs[i].Metrics)
		assert.Equal(t, len(seq.Configs[i].Result.Fills), len(par.Configs[i].Result.Fills))
	}
}

func TestRank_TotalOrderWithTieBreak(t *testing.T) {
	ids, err := Enumerate(donchianGrid())
	require.NoError(t, err)
	bars := sampleBars(80)
	cfg := backtest.Config{InitialCash: 10000, Sizing: backtest.Sizing{Mode: backtest.SizingFixed, FixedQty: 1}}
	result, err := Run(context.Background(), "BTC-USD", bars, ids, RunOptions{MaxWorkers: 4, BacktestConfig: cfg})
	require.NoError(t, err)

	ranked1 := Rank(result, FieldSharpe, false)
	ranked2 := Rank(result, FieldSharpe, false)
	require.Equal(t, len(ranked1), len(ranked2))
	for i := range ranked1 {
		assert.Equal(t, ranked1[i].ConfigID, ranked2[i].ConfigID)
	}
}

func TestConfigID_Distance(t *testing.T) {
	a := ConfigID{Kind: strategy.KindDonchianBreakout, Index: []int{1, 1}}
	b := ConfigID{Kind: strategy.KindDonchianBreakout, Index: []int{2, 1}}
	c := ConfigID{Kind: strategy.KindDonchianBreakout, Index: []int{3, 3}}
	assert.Equal(t, 1, a.Distance(b))
	assert.Equal(t, 4, a.Distance(c))
}
