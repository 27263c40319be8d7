// Package analysis implements the post-hoc Analysis component:
// MAE/MFE trade analysis, holding-period distribution, return-distribution
// risk statistics, and volatility-regime stratification. Every function is
// pure and optional — callers run it after a sweep, never inline in the
// Backtest Engine — and every output is finite and defined for the
// zero-trade case.
package analysis

import (
	"math"
	"sort"

	"github.com/sawpanic/trendlab/internal/backtest"
)

// ReturnDistribution summarizes the daily log-return distribution of an
// equity curve.
type ReturnDistribution struct {
	Mean     float64
	Std      float64
	Min      float64
	Max      float64
	Skewness float64
	Kurtosis float64
	VaR95    float64
	VaR99    float64
	CVaR95   float64
	CVaR99   float64
}

// ComputeReturnDistribution reduces an equity curve's daily log returns into
// a ReturnDistribution. Fewer than two equity points yields the zero value.
func ComputeReturnDistribution(equity []backtest.EquityPoint) ReturnDistribution {
	logReturns := dailyLogReturns(equity)
	if len(logReturns) == 0 {
		return ReturnDistribution{}
	}

	mean := meanOf(logReturns)
	std := stddevOf(logReturns, mean)
	sorted := append([]float64(nil), logReturns...)
	sort.Float64s(sorted)

	rd := ReturnDistribution{
		Mean: mean,
		Std:  std,
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
	}
	rd.Skewness = skewnessOf(logReturns, mean, std)
	rd.Kurtosis = kurtosisOf(logReturns, mean, std)
	rd.VaR95 = -percentile(sorted, 0.05)
	rd.VaR99 = -percentile(sorted, 0.01)
	rd.CVaR95 = -tailMean(sorted, 0.05)
	rd.CVaR99 = -tailMean(sorted, 0.01)
	return rd
}

func dailyLogReturns(equity []backtest.EquityPoint) []float64 {
	if len(equity) < 2 {
		return nil
	}
	out := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev, cur := equity[i-1].Equity, equity[i].Equity
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

func meanOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stddevOf(xs []float64, mean float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var sumSq float64
	for _, x := range xs {
		d := x - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)-1))
}

func skewnessOf(xs []float64, mean, std float64) float64 {
	if len(xs) < 3 || std == 0 {
		return 0
	}
	var sumCube float64
	for _, x := range xs {
		d := (x - mean) / std
		sumCube += d * d * d
	}
	n := float64(len(xs))
	return (n / ((n - 1) * (n - 2))) * sumCube
}

func kurtosisOf(xs []float64, mean, std float64) float64 {
	if len(xs) < 4 || std == 0 {
		return 0
	}
	var sumQuad float64
	for _, x := range xs {
		d := (x - mean) / std
		sumQuad += d * d * d * d
	}
	n := float64(len(xs))
	// Excess kurtosis (normal distribution = 0), the standard sample
	// estimator's bias-corrected form.
	term1 := (n * (n + 1)) / ((n - 1) * (n - 2) * (n - 3)) * sumQuad
	term2 := 3 * (n - 1) * (n - 1) / ((n - 2) * (n - 3))
	return term1 - term2
}

// percentile returns the value at fraction p (0..1) of a sorted slice via
// linear interpolation between neighboring ranks.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// tailMean averages the lowest p-fraction of a sorted slice (the
// Conditional VaR / Expected Shortfall estimator).
func tailMean(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	n := int(math.Ceil(p * float64(len(sorted))))
	if n < 1 {
		n = 1
	}
	if n > len(sorted) {
		n = len(sorted)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += sorted[i]
	}
	return sum / float64(n)
}
