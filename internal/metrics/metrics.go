// Package metrics implements the Metrics reducer: a pure function from
// a BacktestResult and the run's initial cash to risk-adjusted statistics.
// Every field is finite or an explicitly documented +/-Inf, never NaN, even
// for the degenerate zero-trade case.
package metrics

import (
	"math"

	"github.com/sawpanic/trendlab/internal/backtest"
)

// AnnualizationFactor is the default trading-day count whose square root
// annualizes Sharpe and Sortino.
const AnnualizationFactor = 252.0

// Metrics is the reducer's output.
type Metrics struct {
	TotalReturn  float64
	CAGR         float64
	Sharpe       float64
	Sortino      float64
	Calmar       float64
	MaxDrawdown  float64 // reported as a positive magnitude
	WinRate      float64
	ProfitFactor float64
	NumTrades    int
	Turnover     float64

	LongestWinStreak  int
	LongestLoseStreak int
	AvgWinStreak      float64
	AvgLoseStreak     float64
}

// Compute reduces a BacktestResult into Metrics. annualizationFactor <= 0
// falls back to AnnualizationFactor (sqrt of it is used for Sharpe/Sortino).
func Compute(result backtest.Result, initialCash float64, annualizationFactor float64) Metrics {
	if annualizationFactor <= 0 {
		annualizationFactor = AnnualizationFactor
	}

	m := Metrics{}
	m.NumTrades = len(result.Trades)

	returns := equityReturns(result.Equity)
	finalEquity := initialCash
	if n := len(result.Equity); n > 0 {
		finalEquity = result.Equity[n-1].Equity
	}

	if initialCash > 0 {
		m.TotalReturn = finalEquity/initialCash - 1
	}
	m.CAGR = cagr(initialCash, finalEquity, len(result.Equity))
	m.MaxDrawdown = maxDrawdown(result.Equity)
	m.Calmar = calmar(m.CAGR, m.MaxDrawdown)
	m.Sharpe = sharpe(returns, annualizationFactor)
	m.Sortino = sortino(returns, annualizationFactor)

	m.WinRate = winRate(result.Trades)
	m.ProfitFactor = profitFactor(result.Trades)
	m.Turnover = turnover(result.Fills, result.Equity)

	m.LongestWinStreak, m.LongestLoseStreak, m.AvgWinStreak, m.AvgLoseStreak = streaks(result.Trades)

	return m
}

func equityReturns(equity []backtest.EquityPoint) []float64 {
	if len(equity) < 2 {
		return nil
	}
	out := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Equity
		if prev == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, equity[i].Equity/prev-1)
	}
	return out
}

func cagr(initial, final float64, nBars int) float64 {
	if initial <= 0 || nBars <= 0 {
		return 0
	}
	years := float64(nBars) / AnnualizationFactor
	if years <= 0 {
		return 0
	}
	ratio := final / initial
	if ratio <= 0 {
		return -1
	}
	return math.Pow(ratio, 1/years) - 1
}

func maxDrawdown(equity []backtest.EquityPoint) float64 {
	if len(equity) == 0 {
		return 0
	}
	peak := equity[0].Equity
	maxDD := 0.0
	for _, p := range equity {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak <= 0 {
			continue
		}
		dd := (peak - p.Equity) / peak
		if dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// calmar is CAGR / |max_drawdown|: +Inf if drawdown is zero with positive
// CAGR, 0 if both are zero.
func calmar(cagrVal, maxDD float64) float64 {
	if maxDD == 0 {
		if cagrVal > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return cagrVal / maxDD
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	mu := mean(xs)
	var sumSq float64
	for _, x := range xs {
		d := x - mu
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)-1))
}

func sharpe(returns []float64, annualizationFactor float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	sd := stddev(returns)
	if sd == 0 {
		return 0
	}
	return mean(returns) / sd * math.Sqrt(annualizationFactor)
}

// sortino uses downside deviation computed over negative returns only.
func sortino(returns []float64, annualizationFactor float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	var sumSq float64
	var negCount int
	for _, r := range returns {
		if r < 0 {
			sumSq += r * r
			negCount++
		}
	}
	if negCount == 0 {
		if mean(returns) > 0 {
			return math.Inf(1)
		}
		return 0
	}
	downsideDev := math.Sqrt(sumSq / float64(negCount))
	if downsideDev == 0 {
		return 0
	}
	return mean(returns) / downsideDev * math.Sqrt(annualizationFactor)
}

func winRate(trades []backtest.Trade) float64 {
	if len(trades) == 0 {
		return 0
	}
	wins := 0
	for _, tr := range trades {
		if tr.NetPnL > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(trades))
}

// profitFactor is sum(gross_wins)/sum(|gross_losses|): +Inf with no losses
// and at least one win, 0 if there are no trades or no wins.
func profitFactor(trades []backtest.Trade) float64 {
	var grossWin, grossLoss float64
	for _, tr := range trades {
		if tr.GrossPnL > 0 {
			grossWin += tr.GrossPnL
		} else if tr.GrossPnL < 0 {
			grossLoss += -tr.GrossPnL
		}
	}
	if grossLoss == 0 {
		if grossWin > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return grossWin / grossLoss
}

// turnover is annualized notional traded divided by mean equity.
func turnover(fills []backtest.Fill, equity []backtest.EquityPoint) float64 {
	if len(equity) == 0 {
		return 0
	}
	var notional float64
	for _, f := range fills {
		notional += f.Notional()
	}
	var sumEquity float64
	for _, p := range equity {
		sumEquity += p.Equity
	}
	meanEquity := sumEquity / float64(len(equity))
	if meanEquity <= 0 {
		return 0
	}
	years := float64(len(equity)) / AnnualizationFactor
	if years <= 0 {
		return 0
	}
	return (notional / years) / meanEquity
}

func streaks(trades []backtest.Trade) (longestWin, longestLose int, avgWin, avgLose float64) {
	var curWin, curLose int
	var winStreaks, loseStreaks []int
	for _, tr := range trades {
		if tr.NetPnL > 0 {
			curWin++
			if curLose > 0 {
				loseStreaks = append(loseStreaks, curLose)
				curLose = 0
			}
			if curWin > longestWin {
				longestWin = curWin
			}
		} else {
			curLose++
			if curWin > 0 {
				winStreaks = append(winStreaks, curWin)
				curWin = 0
			}
			if curLose > longestLose {
				longestLose = curLose
			}
		}
	}
	if curWin > 0 {
		winStreaks = append(winStreaks, curWin)
	}
	if curLose > 0 {
		loseStreaks = append(loseStreaks, curLose)
	}
	avgWin = averageInt(winStreaks)
	avgLose = averageInt(loseStreaks)
	return
}

func averageInt(xs []int) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum int
	for _, x := range xs {
		sum += x
	}
	return float64(sum) / float64(len(xs))
}
