package analysis

import (
	"sort"

	"github.com/sawpanic/trendlab/internal/backtest"
	"github.com/sawpanic/trendlab/internal/bar"
)

// TradeExcursion is one trade's maximum adverse/favorable excursion
// relative to its entry price, observed over every bar from entry to exit
// inclusive.
type TradeExcursion struct {
	MAE       float64 // positive magnitude: worst adverse move as a fraction of entry price
	MFE       float64 // positive magnitude: best favorable move as a fraction of entry price
	IsWinner  bool
	EdgeRatio float64 // MFE / MAE; 0 when MAE is 0
}

// ExcursionSummary aggregates TradeExcursion across a side (winners or
// losers): mean, p90, and max of MAE and MFE, plus the distribution of
// EdgeRatio.
type ExcursionSummary struct {
	NumTrades int
	MeanMAE   float64
	P90MAE    float64
	MaxMAE    float64
	MeanMFE   float64
	P90MFE    float64
	MaxMFE    float64
	MeanEdge  float64
}

// TradeAnalysis is the full per-result trade-excursion breakdown: winners
// and losers analyzed separately.
type TradeAnalysis struct {
	Winners ExcursionSummary
	Losers  ExcursionSummary
}

// ComputeTradeAnalysis computes MAE/MFE for every Trade against the bars it
// was held over, then aggregates by winner/loser side. bars must be the
// same series the trades were generated from (indices line up with
// Trade.EntryBarIndex/ExitBarIndex).
func ComputeTradeAnalysis(trades []backtest.Trade, bars []bar.Bar) TradeAnalysis {
	var winnerExc, loserExc []TradeExcursion
	for _, tr := range trades {
		exc := excursionFor(tr, bars)
		if tr.NetPnL > 0 {
			winnerExc = append(winnerExc, exc)
		} else {
			loserExc = append(loserExc, exc)
		}
	}
	return TradeAnalysis{
		Winners: summarize(winnerExc),
		Losers:  summarize(loserExc),
	}
}

func excursionFor(tr backtest.Trade, bars []bar.Bar) TradeExcursion {
	entry := tr.EntryPrice
	if entry == 0 || tr.ExitBarIndex < tr.EntryBarIndex || tr.ExitBarIndex >= len(bars) {
		return TradeExcursion{IsWinner: tr.NetPnL > 0}
	}
	var worstLow, bestHigh float64
	first := true
	for t := tr.EntryBarIndex; t <= tr.ExitBarIndex; t++ {
		b := bars[t]
		if first {
			worstLow, bestHigh = b.Low, b.High
			first = false
			continue
		}
		if b.Low < worstLow {
			worstLow = b.Low
		}
		if b.High > bestHigh {
			bestHigh = b.High
		}
	}
	mae := (entry - worstLow) / entry
	if mae < 0 {
		mae = 0
	}
	mfe := (bestHigh - entry) / entry
	if mfe < 0 {
		mfe = 0
	}
	edge := 0.0
	if mae > 0 {
		edge = mfe / mae
	}
	return TradeExcursion{MAE: mae, MFE: mfe, IsWinner: tr.NetPnL > 0, EdgeRatio: edge}
}

func summarize(excs []TradeExcursion) ExcursionSummary {
	if len(excs) == 0 {
		return ExcursionSummary{}
	}
	maes := make([]float64, len(excs))
	mfes := make([]float64, len(excs))
	var sumMAE, sumMFE, sumEdge float64
	for i, e := range excs {
		maes[i] = e.MAE
		mfes[i] = e.MFE
		sumMAE += e.MAE
		sumMFE += e.MFE
		sumEdge += e.EdgeRatio
	}
	sort.Float64s(maes)
	sort.Float64s(mfes)
	n := float64(len(excs))
	return ExcursionSummary{
		NumTrades: len(excs),
		MeanMAE:   sumMAE / n,
		P90MAE:    percentile(maes, 0.9),
		MaxMAE:    maes[len(maes)-1],
		MeanMFE:   sumMFE / n,
		P90MFE:    percentile(mfes, 0.9),
		MaxMFE:    mfes[len(mfes)-1],
		MeanEdge:  sumEdge / n,
	}
}

// HoldingPeriodHistogram buckets trades by holding-period bar count into
// the four spec-named buckets: <5, 5-20, 20-50, >50 bars.
type HoldingPeriodHistogram struct {
	Under5     int
	From5To20  int
	From20To50 int
	Over50     int
}

// HoldingPeriodStats is the holding-bar-count distribution across trades.
// Zero trades yields all-zero fields, never NaN.
type HoldingPeriodStats struct {
	Mean      float64
	Median    float64
	Min       int
	Max       int
	Histogram HoldingPeriodHistogram
}

// ComputeHoldingPeriod reduces trades' (ExitBarIndex - EntryBarIndex) bar
// counts into HoldingPeriodStats.
func ComputeHoldingPeriod(trades []backtest.Trade) HoldingPeriodStats {
	if len(trades) == 0 {
		return HoldingPeriodStats{}
	}
	periods := make([]int, len(trades))
	for i, tr := range trades {
		periods[i] = tr.ExitBarIndex - tr.EntryBarIndex
	}
	sorted := append([]int(nil), periods...)
	sort.Ints(sorted)

	stats := HoldingPeriodStats{Min: sorted[0], Max: sorted[len(sorted)-1]}
	var sum int
	for _, p := range periods {
		sum += p
		switch {
		case p < 5:
			stats.Histogram.Under5++
		case p < 20:
			stats.Histogram.From5To20++
		case p < 50:
			stats.Histogram.From20To50++
		default:
			stats.Histogram.Over50++
		}
	}
	stats.Mean = float64(sum) / float64(len(periods))
	stats.Median = medianInt(sorted)
	return stats
}

func medianInt(sorted []int) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return float64(sorted[n/2])
	}
	return float64(sorted[n/2-1]+sorted[n/2]) / 2
}
