package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sawpanic/trendlab/internal/backtest"
	"github.com/sawpanic/trendlab/internal/bar"
)

func flatEquity(n int, v float64) []backtest.EquityPoint {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]backtest.EquityPoint, n)
	for i := range out {
		out[i] = backtest.EquityPoint{BarIndex: i, Timestamp: start.Add(time.Duration(i) * 24 * time.Hour), Equity: v, Close: v}
	}
	return out
}

func TestComputeReturnDistribution_ZeroTrade_AllFinite(t *testing.T) {
	rd := ComputeReturnDistribution(flatEquity(30, 10000))
	assert.Equal(t, 0.0, rd.Mean)
	assert.Equal(t, 0.0, rd.Std)
	assert.Equal(t, 0.0, rd.VaR95)
}

func TestComputeReturnDistribution_SingleEquityPoint(t *testing.T) {
	rd := ComputeReturnDistribution(flatEquity(1, 10000))
	assert.Equal(t, ReturnDistribution{}, rd)
}

func TestComputeHoldingPeriod_ZeroTrades(t *testing.T) {
	stats := ComputeHoldingPeriod(nil)
	assert.Equal(t, HoldingPeriodStats{}, stats)
}

func TestComputeHoldingPeriod_Buckets(t *testing.T) {
	trades := []backtest.Trade{
		{EntryBarIndex: 0, ExitBarIndex: 2},  // 2 -> under5
		{EntryBarIndex: 0, ExitBarIndex: 10}, // 10 -> 5to20
		{EntryBarIndex: 0, ExitBarIndex: 30}, // 30 -> 20to50
		{EntryBarIndex: 0, ExitBarIndex: 60}, // 60 -> over50
	}
	stats := ComputeHoldingPeriod(trades)
	assert.Equal(t, 1, stats.Histogram.Under5)
	assert.Equal(t, 1, stats.Histogram.From5To20)
	assert.Equal(t, 1, stats.Histogram.From20To50)
	assert.Equal(t, 1, stats.Histogram.Over50)
	assert.Equal(t, 2, stats.Min)
	assert.Equal(t, 60, stats.Max)
}

func sampleBarsAnalysis(n int) []bar.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]bar.Bar, n)
	for i := 0; i < n; i++ {
		px := 100.0 + float64(i)
		out[i] = bar.Bar{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      px, High: px + 2, Low: px - 2, Close: px,
			Volume: 100, Symbol: "BTC-USD", Timeframe: "1h",
		}
	}
	return out
}

func TestComputeTradeAnalysis_MAEAndMFE(t *testing.T) {
	bars := sampleBarsAnalysis(20)
	trades := []backtest.Trade{
		{EntryBarIndex: 5, ExitBarIndex: 10, EntryPrice: bars[5].Close, Quantity: 1, NetPnL: 5},
	}
	ta := ComputeTradeAnalysis(trades, bars)
	assert.Equal(t, 1, ta.Winners.NumTrades)
	assert.Equal(t, 0, ta.Losers.NumTrades)
	assert.Greater(t, ta.Winners.MaxMFE, 0.0)
}

func TestComputeRegimeAnalysis_ZeroTrades(t *testing.T) {
	bars := sampleBarsAnalysis(40)
	regimes := Classify(bars, 14, 20)
	ra := ComputeRegimeAnalysis(nil, regimes)
	for _, stats := range ra {
		assert.Equal(t, 0, stats.NumTrades)
		assert.Equal(t, 0.0, stats.WinRate)
	}
}
