package yolo

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/trendlab/internal/metrics"
	"github.com/sawpanic/trendlab/internal/strategy"
	"github.com/sawpanic/trendlab/internal/sweep"
)

func testConfigID(sharpe float64) sweep.ConfigID {
	return sweep.ConfigID{Kind: strategy.KindDonchianBreakout, Index: []int{int(sharpe * 1000)}}
}

func testMetrics(sharpe float64) metrics.Metrics {
	return metrics.Metrics{Sharpe: sharpe}
}

func TestCellIndex_MixedRadixIndexing(t *testing.T) {
	idx := CellIndex([]float64{0.15, 0.75}, 0.1)
	assert.Equal(t, 71, idx)
}

func TestDenormalizeNormalize_IsIdentityUpToStepQuantization(t *testing.T) {
	bounds, err := ParamBoundsFor(strategy.KindDonchianBreakout)
	require.NoError(t, err)

	for _, raw := range [][]float64{{10, 5}, {55, 20}, {100, 60}, {5, 2}} {
		nc := Normalize(bounds, raw)
		back := Denormalize(bounds, nc)
		for i, b := range bounds {
			// Quantized to step: difference must be within one step.
			assert.LessOrEqual(t, abs(back[i]-raw[i]), b.Step)
		}
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func TestParamBoundsFor_ExcludesTurtlePresets(t *testing.T) {
	_, err := ParamBoundsFor(strategy.KindTurtleS1)
	require.Error(t, err)
}

func TestGenerateFolds_StopsWhenOOSWindowOverruns(t *testing.T) {
	spec := FoldSpec{InSample: 100, Gap: 5, OutOfSample: 20, Step: 20, MinFolds: 1}
	folds := GenerateFolds(200, spec)
	require.Len(t, folds, 4)

	starts := make([]int, len(folds))
	for i, f := range folds {
		starts[i] = f.ISStart
	}
	assert.Equal(t, []int{0, 20, 40, 60}, starts)
	assert.Equal(t, 185, folds[3].OOSEnd)
}

func TestSelectMode_EarlyPhaseRedistributesExploitWhenNoWinners(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	counts := map[Mode]int{}
	for i := 0; i < 2000; i++ {
		counts[SelectMode(0.1, false, rng)]++
	}
	assert.Equal(t, 0, counts[ModeExploitWinner])
	assert.Greater(t, counts[ModeLocalJitter], 0)
	assert.Greater(t, counts[ModePureRandom], 0)
	assert.Greater(t, counts[ModeMaximizeCoverage], 0)
}

func TestLeaderboard_TryInsert_ReplacesWorstWhenFull(t *testing.T) {
	lb := NewLeaderboard(2, RiskProfileBalanced)
	insertWithSharpe := func(sharpe float64) bool {
		return lb.TryInsert(testConfigID(sharpe), "BTC-USD", testMetrics(sharpe))
	}
	assert.True(t, insertWithSharpe(1.0))
	assert.True(t, insertWithSharpe(2.0))
	assert.False(t, insertWithSharpe(0.5)) // worse than both, and at capacity
	assert.True(t, insertWithSharpe(3.0))  // beats the worst entry (1.0)

	entries := lb.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, 3.0, entries[0].Metrics.Sharpe)
}

func TestCoverageRatio_GrowsWithVisits(t *testing.T) {
	cov := NewStrategyCoverage(strategy.KindDonchianBreakout, 2)
	assert.Equal(t, 0.0, cov.CoverageRatio())
	cov.RecordVisit(NormalizedConfig{Params: []float64{0.05, 0.05}}, 1.0)
	assert.Greater(t, cov.CoverageRatio(), 0.0)
}
