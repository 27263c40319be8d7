package analysis

import (
	"sort"

	"github.com/sawpanic/trendlab/internal/backtest"
	"github.com/sawpanic/trendlab/internal/bar"
	"github.com/sawpanic/trendlab/internal/indicators"
)

// Regime classifies one bar's volatility relative to its rolling ATR
// median.
type Regime int

const (
	RegimeNeutral Regime = iota
	RegimeHigh
	RegimeLow
)

func (r Regime) String() string {
	switch r {
	case RegimeHigh:
		return "high"
	case RegimeLow:
		return "low"
	default:
		return "neutral"
	}
}

// RegimeBand is the fractional ATR-to-rolling-median tolerance defining
// "neutral": inside [1-band, 1+band] of the median is neutral, above is
// high, below is low.
const RegimeBand = 0.25

// Classify labels every bar into a volatility Regime by comparing its ATR
// (Wilder-smoothed, window atrWindow) to the rolling median of the last
// medianWindow ATR values, bar t's own included. Bars before either window has warmed up are
// RegimeNeutral (undefined data defaults to the least committal label).
func Classify(bars []bar.Bar, atrWindow, medianWindow int) []Regime {
	atr := indicators.ATRWilder(bars, atrWindow)
	out := make([]Regime, len(bars))
	window := make([]float64, 0, medianWindow)
	for t := range bars {
		v := atr.At(t)
		if indicators.IsNull(v) {
			out[t] = RegimeNeutral
			continue
		}
		window = append(window, v)
		if len(window) > medianWindow {
			window = window[1:]
		}
		if len(window) < medianWindow {
			out[t] = RegimeNeutral
			continue
		}
		med := medianOf(window)
		if med == 0 {
			out[t] = RegimeNeutral
			continue
		}
		ratio := v / med
		switch {
		case ratio > 1+RegimeBand:
			out[t] = RegimeHigh
		case ratio < 1-RegimeBand:
			out[t] = RegimeLow
		default:
			out[t] = RegimeNeutral
		}
	}
	return out
}

func medianOf(xs []float64) float64 {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// RegimeStats is the per-regime trade performance breakdown:
// win rate, average return, and Sharpe of trades entered while
// that regime was active.
type RegimeStats struct {
	NumTrades int
	WinRate   float64
	AvgReturn float64
	Sharpe    float64
}

// RegimeAnalysis maps each Regime to its RegimeStats.
type RegimeAnalysis map[Regime]RegimeStats

// ComputeRegimeAnalysis classifies trades by the regime active at entry and
// computes per-regime performance stats. Trades entered outside the regimes
// slice's range are ignored.
func ComputeRegimeAnalysis(trades []backtest.Trade, regimes []Regime) RegimeAnalysis {
	byRegime := map[Regime][]backtest.Trade{}
	for _, tr := range trades {
		if tr.EntryBarIndex < 0 || tr.EntryBarIndex >= len(regimes) {
			continue
		}
		r := regimes[tr.EntryBarIndex]
		byRegime[r] = append(byRegime[r], tr)
	}

	out := RegimeAnalysis{}
	for _, r := range []Regime{RegimeHigh, RegimeNeutral, RegimeLow} {
		out[r] = regimeStatsFor(byRegime[r])
	}
	return out
}

func regimeStatsFor(trades []backtest.Trade) RegimeStats {
	if len(trades) == 0 {
		return RegimeStats{}
	}
	returns := make([]float64, len(trades))
	wins := 0
	var sumReturn float64
	for i, tr := range trades {
		r := 0.0
		if tr.EntryPrice != 0 {
			r = tr.NetPnL / (tr.EntryPrice * tr.Quantity)
		}
		returns[i] = r
		sumReturn += r
		if tr.NetPnL > 0 {
			wins++
		}
	}
	mean := sumReturn / float64(len(trades))
	return RegimeStats{
		NumTrades: len(trades),
		WinRate:   float64(wins) / float64(len(trades)),
		AvgReturn: mean,
		Sharpe:    sharpeOfReturns(returns, mean),
	}
}

func sharpeOfReturns(returns []float64, mean float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	std := stddevOf(returns, mean)
	if std == 0 {
		return 0
	}
	return mean / std
}
