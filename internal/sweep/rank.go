package sweep

import (
	"math"
	"sort"

	"github.com/sawpanic/trendlab/internal/metrics"
)

// MetricField names one Metrics field rank can order by.
type MetricField string

const (
	FieldSharpe       MetricField = "sharpe"
	FieldSortino      MetricField = "sortino"
	FieldCalmar       MetricField = "calmar"
	FieldCAGR         MetricField = "cagr"
	FieldTotalReturn  MetricField = "total_return"
	FieldMaxDrawdown  MetricField = "max_drawdown"
	FieldProfitFactor MetricField = "profit_factor"
	FieldWinRate      MetricField = "win_rate"
)

func fieldValue(m metrics.Metrics, field MetricField) float64 {
	switch field {
	case FieldSharpe:
		return m.Sharpe
	case FieldSortino:
		return m.Sortino
	case FieldCalmar:
		return m.Calmar
	case FieldCAGR:
		return m.CAGR
	case FieldTotalReturn:
		return m.TotalReturn
	case FieldMaxDrawdown:
		return m.MaxDrawdown
	case FieldProfitFactor:
		return m.ProfitFactor
	case FieldWinRate:
		return m.WinRate
	default:
		return 0
	}
}

// Rank returns result.Configs reordered by field, excluding failed configs
// (non-nil Err), as a total order: primary key is the metric value, tie
// broken by ConfigID's canonical String() ordering for determinism (spec
// §4.6 "rank"). The input Result is not mutated.
func Rank(result Result, field MetricField, ascending bool) []ConfigResult {
	ranked := make([]ConfigResult, 0, len(result.Configs))
	for _, cr := range result.Configs {
		if cr.Err == nil {
			ranked = append(ranked, cr)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		vi, vj := fieldValue(ranked[i].Metrics, field), fieldValue(ranked[j].Metrics, field)
		if vi == vj || (math.IsNaN(vi) && math.IsNaN(vj)) {
			return ranked[i].ConfigID.String() < ranked[j].ConfigID.String()
		}
		if ascending {
			return vi < vj
		}
		return vi > vj
	})
	return ranked
}
