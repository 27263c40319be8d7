package backtest

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/trendlab/internal/bar"
	"github.com/sawpanic/trendlab/internal/strategy"
)

// ascendingBars builds n bars whose close walks 100, 101, ... and whose open
// equals the prior bar's close, so bar t+1's open equals bar t's close — the
// shape the Donchian next-open scenario pins fill prices against.
func ascendingBars(n int) []bar.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]bar.Bar, n)
	for i := 0; i < n; i++ {
		close := 100.0 + float64(i)
		open := close - 1
		out[i] = bar.Bar{
			Timestamp: start.Add(time.Duration(i) * 24 * time.Hour),
			Open:      open, High: close, Low: open, Close: close,
			Volume: 1000, Symbol: "BTC-USD", Timeframe: "1d",
		}
	}
	return out
}

// choppyBars builds a series that both enters and exits a Donchian band so
// round trips actually complete.
func choppyBars(n int) []bar.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]bar.Bar, n)
	px := 100.0
	for i := 0; i < n; i++ {
		if (i/15)%2 == 0 {
			px += 1.5
		} else {
			px -= 1.2
		}
		out[i] = bar.Bar{
			Timestamp: start.Add(time.Duration(i) * 24 * time.Hour),
			Open:      px - 0.4, High: px + 0.8, Low: px - 0.8, Close: px,
			Volume: 1000, Symbol: "BTC-USD", Timeframe: "1d",
		}
	}
	return out
}

func fixedQtyConfig() Config {
	return Config{
		InitialCash: 100000,
		Sizing:      Sizing{Mode: SizingFixed, FixedQty: 1},
	}
}

// enterAtBar is a test strategy that triggers a single entry at one bar
// index, used to pin fill mechanics without indicator warmup in the way.
type enterAtBar struct {
	entryBar int
}

func (s enterAtBar) WarmupPeriod() int { return 0 }

func (s enterAtBar) Signal(bars []bar.Bar, t int, position strategy.PositionState) strategy.Signal {
	if position == strategy.Flat && t == s.entryBar {
		return strategy.Signal{Action: strategy.ActionBuy}
	}
	return strategy.Signal{Action: strategy.ActionNone}
}

func TestDonchianBreakout_FillsAtNextOpen(t *testing.T) {
	bars := ascendingBars(30)
	cfg := fixedQtyConfig()

	res, err := RunEventDriven(bars, strategy.DonchianBreakout(10, 5), cfg)
	require.NoError(t, err)

	// Entry condition first holds at bar 10 (close 110 > max of prior-10
	// highs 109); the next-open model fills at bar 11's open, price 110 —
	// never at bar 10's close.
	require.NotEmpty(t, res.Fills)
	first := res.Fills[0]
	assert.Equal(t, 11, first.BarIndex)
	assert.Equal(t, SideBuy, first.Side)
	assert.InDelta(t, 110.0, first.RawPrice, 1e-12)

	// Monotonically rising closes never cross below the prior-5 low: no exit.
	assert.Empty(t, res.Trades)
	for _, f := range res.Fills[1:] {
		assert.Equal(t, SideBuy, f.Side)
	}

	last := res.Equity[len(res.Equity)-1]
	assert.InDelta(t, last.Equity, last.Cash+last.PositionQty*last.Close, 1e-8)
}

func TestSlippage_WorsensExecutedPriceBySide(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := []bar.Bar{
		{Timestamp: start, Open: 99, High: 100, Low: 99, Close: 100, Volume: 1, Symbol: "X", Timeframe: "1d"},
		{Timestamp: start.Add(24 * time.Hour), Open: 100, High: 101, Low: 100, Close: 101, Volume: 1, Symbol: "X", Timeframe: "1d"},
	}
	cfg := fixedQtyConfig()
	cfg.Cost.SlippageBps = 10

	res, err := RunEventDriven(bars, enterAtBar{entryBar: 0}, cfg)
	require.NoError(t, err)
	require.Len(t, res.Fills, 1)

	f := res.Fills[0]
	assert.InDelta(t, 100.0, f.RawPrice, 1e-12)
	assert.InDelta(t, 100.1, f.Price, 1e-12) // 100 * (1 + 10/10000)
	assert.Greater(t, f.Price, f.RawPrice)   // buys worsen upward

	assert.InDelta(t, 99.9, executedPrice(SideSell, 100, 10), 1e-12) // sells worsen downward
}

func TestEngineParity_EventDrivenMatchesVectorized(t *testing.T) {
	bars := choppyBars(120)
	cfg := fixedQtyConfig()
	cfg.Cost = Cost{SlippageBps: 5, FeesBpsPerSide: 10}

	for _, sc := range []strategy.Config{
		strategy.DonchianBreakout(10, 5),
		strategy.MACrossover(5, 20, strategy.MATypeEMA),
		strategy.TimeSeriesMomentum(12),
	} {
		ev, err := RunEventDriven(bars, sc, cfg)
		require.NoError(t, err)
		vec, err := RunVectorized(bars, sc, cfg)
		require.NoError(t, err)
		assert.Equal(t, ev, vec, "engines diverged for %s", sc.Kind)
	}
}

func TestDeterminism_RepeatedRunsAreIdentical(t *testing.T) {
	bars := choppyBars(150)
	cfg := fixedQtyConfig()
	cfg.Cost = Cost{SlippageBps: 3, FeesBpsPerSide: 7}
	sc := strategy.DonchianBreakout(15, 8)

	a, err := RunEventDriven(bars, sc, cfg)
	require.NoError(t, err)
	b, err := RunEventDriven(bars, sc, cfg)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestAccountingIdentity_HoldsAtEveryBar(t *testing.T) {
	bars := choppyBars(200)
	cfg := fixedQtyConfig()
	cfg.Cost = Cost{SlippageBps: 5, FeesBpsPerSide: 10}

	res, err := RunEventDriven(bars, strategy.DonchianBreakout(10, 5), cfg)
	require.NoError(t, err)
	require.NotEmpty(t, res.Trades)

	for _, p := range res.Equity {
		assert.InDelta(t, p.Equity, p.Cash+p.PositionQty*p.Close, 1e-8)
	}
}

func TestTradePnL_NetEqualsGrossMinusFees(t *testing.T) {
	bars := choppyBars(200)
	cfg := fixedQtyConfig()
	cfg.Cost = Cost{SlippageBps: 5, FeesBpsPerSide: 25}

	res, err := RunEventDriven(bars, strategy.DonchianBreakout(10, 5), cfg)
	require.NoError(t, err)
	require.NotEmpty(t, res.Trades)

	for _, tr := range res.Trades {
		assert.Greater(t, tr.FeesTotal, 0.0)
		assert.InDelta(t, tr.NetPnL, tr.GrossPnL-tr.FeesTotal, 1e-8)
	}
}

func TestPyramiding_AddsUnitsAndClosesInOneFill(t *testing.T) {
	bars := ascendingBars(60)
	cfg := Config{
		InitialCash: 100000,
		Sizing:      Sizing{Mode: SizingFixed, FixedQty: 1},
		Pyramiding:  Pyramiding{Enabled: true, ThresholdATR: 0.5, ATRWindow: 10, MaxUnits: 3},
	}

	res, err := RunEventDriven(bars, strategy.DonchianBreakout(10, 5), cfg)
	require.NoError(t, err)

	var adds int
	var held float64
	for _, f := range res.Fills {
		require.Equal(t, SideBuy, f.Side) // rising series never exits
		held += f.Quantity
		if f.IsPyramid {
			adds++
		}
	}
	assert.Greater(t, adds, 0)
	assert.LessOrEqual(t, held, 3.0)

	for _, p := range res.Equity {
		assert.InDelta(t, p.Equity, p.Cash+p.PositionQty*p.Close, 1e-8)
	}
}

func TestTurtleVolatilitySizing_FloorsAndClamps(t *testing.T) {
	bars := choppyBars(40)
	s := Sizing{
		Mode:                    SizingTurtleVolatility,
		TargetVolatilityDollars: 1000,
		ContractMultiplier:      1,
		ATRWindow:               10,
		MinUnits:                1,
		MaxUnits:                50,
	}
	units := s.unitsAt(bars, 30, 0)
	assert.Equal(t, units, math.Floor(units))
	assert.GreaterOrEqual(t, units, 1.0)
	assert.LessOrEqual(t, units, 50.0)
}

func TestExternalSizer_IsConsulted(t *testing.T) {
	bars := ascendingBars(5)
	called := false
	cfg := fixedQtyConfig()
	cfg.Sizing = Sizing{Mode: SizingExternal, External: func(b []bar.Bar, t int, accountSize float64) SizeResult {
		called = true
		return SizeResult{Units: 2, Rationale: "flat risk fraction"}
	}}

	res, err := RunEventDriven(bars, enterAtBar{entryBar: 0}, cfg)
	require.NoError(t, err)
	require.Len(t, res.Fills, 1)
	assert.True(t, called)
	assert.Equal(t, 2.0, res.Fills[0].Quantity)
}

func TestSingleBarSeries_NoFillsEquityEqualsInitialCash(t *testing.T) {
	bars := ascendingBars(1)
	res, err := RunEventDriven(bars, enterAtBar{entryBar: 0}, fixedQtyConfig())
	require.NoError(t, err)

	assert.Empty(t, res.Fills)
	require.Len(t, res.Equity, 1)
	assert.InDelta(t, 100000.0, res.Equity[0].Equity, 1e-12)
}

func TestMissingNextBar_PendingOrderDropped(t *testing.T) {
	bars := ascendingBars(10)
	// trigger on the final bar: there is no t+1 to execute at.
	res, err := RunEventDriven(bars, enterAtBar{entryBar: 9}, fixedQtyConfig())
	require.NoError(t, err)
	assert.Empty(t, res.Fills)
}

func TestWarmupOnlySeries_ZeroTrades(t *testing.T) {
	sc := strategy.DonchianBreakout(20, 10)
	bars := ascendingBars(sc.WarmupPeriod())
	res, err := RunEventDriven(bars, sc, fixedQtyConfig())
	require.NoError(t, err)
	assert.Empty(t, res.Trades)
}

func TestNonFiniteBar_IsFatalInvalidInput(t *testing.T) {
	bars := ascendingBars(10)
	bars[4].Close = math.NaN()
	bars[4].High = math.NaN()
	_, err := RunEventDriven(bars, strategy.DonchianBreakout(5, 3), fixedQtyConfig())
	require.Error(t, err)
}

func TestFeesReduceCashAtFillTime(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := []bar.Bar{
		{Timestamp: start, Open: 100, High: 100, Low: 100, Close: 100, Volume: 1, Symbol: "X", Timeframe: "1d"},
		{Timestamp: start.Add(24 * time.Hour), Open: 100, High: 100, Low: 100, Close: 100, Volume: 1, Symbol: "X", Timeframe: "1d"},
	}
	cfg := fixedQtyConfig()
	cfg.Cost.FeesBpsPerSide = 100 // 1%

	res, err := RunEventDriven(bars, enterAtBar{entryBar: 0}, cfg)
	require.NoError(t, err)
	require.Len(t, res.Fills, 1)

	f := res.Fills[0]
	assert.InDelta(t, 1.0, f.Fee, 1e-12) // 100 notional * 1%
	// cash after the buy: 100000 - 100 - 1; equity marks the held unit at close.
	last := res.Equity[len(res.Equity)-1]
	assert.InDelta(t, 99899.0, last.Cash, 1e-9)
	assert.InDelta(t, 99999.0, last.Equity, 1e-9)
}
