package sweep

import (
	"github.com/sawpanic/trendlab/internal/backtest"
)

// MultiResult is the higher-level driver's nested map over (symbol,
// strategy-kind) pairs.
type MultiResult struct {
	BySymbolAndKind map[string]map[string]Result // symbol -> kind -> Result
}

// BestPerSymbol returns, for each symbol, the ConfigResult with the highest
// value of field across every strategy kind swept for that symbol.
func (mr MultiResult) BestPerSymbol(field MetricField) map[string]ConfigResult {
	best := make(map[string]ConfigResult, len(mr.BySymbolAndKind))
	for symbol, byKind := range mr.BySymbolAndKind {
		var bestCR ConfigResult
		found := false
		for _, result := range byKind {
			ranked := Rank(result, field, false)
			if len(ranked) == 0 {
				continue
			}
			if !found || fieldValue(ranked[0].Metrics, field) > fieldValue(bestCR.Metrics, field) {
				bestCR = ranked[0]
				found = true
			}
		}
		if found {
			best[symbol] = bestCR
		}
	}
	return best
}

// PortfolioResult is the equal-weighted aggregate across symbols: the sum
// of the best-config equity curves per symbol, each scaled to equal
// initial weight.
type PortfolioResult struct {
	Symbols []string
	Equity  []backtest.EquityPoint
}

// AggregatePortfolio builds the equal-weighted portfolio equity curve from
// the best per-symbol configuration's equity curve (as selected by
// BestPerSymbol). All per-symbol curves must share the same length and bar
// alignment; curves are normalized to start at 1.0 before summing so symbols
// with different initial cash still combine as an equal-weighted index.
func AggregatePortfolio(best map[string]ConfigResult) PortfolioResult {
	pr := PortfolioResult{}
	if len(best) == 0 {
		return pr
	}

	minLen := -1
	for symbol, cr := range best {
		pr.Symbols = append(pr.Symbols, symbol)
		if minLen == -1 || len(cr.Result.Equity) < minLen {
			minLen = len(cr.Result.Equity)
		}
	}
	if minLen <= 0 {
		return pr
	}

	sums := make([]float64, minLen)
	for _, symbol := range pr.Symbols {
		cr := best[symbol]
		base := cr.Result.Equity[0].Equity
		if base == 0 {
			continue
		}
		for i := 0; i < minLen; i++ {
			sums[i] += cr.Result.Equity[i].Equity / base
		}
	}

	n := float64(len(pr.Symbols))
	refSymbol := pr.Symbols[0]
	refEquity := best[refSymbol].Result.Equity
	pr.Equity = make([]backtest.EquityPoint, minLen)
	for i := 0; i < minLen; i++ {
		pr.Equity[i] = backtest.EquityPoint{
			BarIndex:  refEquity[i].BarIndex,
			Timestamp: refEquity[i].Timestamp,
			Equity:    sums[i] / n,
		}
	}
	return pr
}
