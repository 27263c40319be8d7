package sweep

import (
	"math"

	"github.com/sawpanic/trendlab/internal/backtest"
	"github.com/sawpanic/trendlab/internal/bar"
	"github.com/sawpanic/trendlab/internal/metrics"
)

// NeighborSensitivity measures how stable a configuration's metric is
// against small parameter changes: given a
// ConfigID and a metric, collect the metric values of configurations at
// grid-index distance 1 and 2, then score how stable the target's value is
// relative to their spread.
type NeighborSensitivity struct {
	ConfigID      ConfigID
	MetricValue   float64
	Distance1Vals []float64
	Distance2Vals []float64
	Stability     float64 // 1 / (1 + |deviation| / sqrt(variance)), clamped [0,1]
}

// Neighbors computes NeighborSensitivity for target within a completed
// Result, using the already-evaluated neighbors' metric values (it does not
// re-run the engine; Run must already have evaluated the full grid the
// target came from).
func Neighbors(result Result, target ConfigID, field MetricField) NeighborSensitivity {
	ns := NeighborSensitivity{ConfigID: target}
	byID := make(map[string]ConfigResult, len(result.Configs))
	for _, cr := range result.Configs {
		if cr.Err == nil {
			byID[cr.ConfigID.String()] = cr
		}
	}
	if cr, ok := byID[target.String()]; ok {
		ns.MetricValue = fieldValue(cr.Metrics, field)
	}

	for _, cr := range result.Configs {
		if cr.Err != nil || cr.ConfigID.String() == target.String() {
			continue
		}
		d := target.Distance(cr.ConfigID)
		switch d {
		case 1:
			ns.Distance1Vals = append(ns.Distance1Vals, fieldValue(cr.Metrics, field))
		case 2:
			ns.Distance2Vals = append(ns.Distance2Vals, fieldValue(cr.Metrics, field))
		}
	}

	all := append(append([]float64{}, ns.Distance1Vals...), ns.Distance2Vals...)
	ns.Stability = stabilityScore(ns.MetricValue, all)
	return ns
}

// stabilityScore is
// 1 / (1 + |deviation| / sqrt(variance)), clamped to [0,1], where deviation
// is the target value's distance from the neighbor mean and variance is the
// neighbor sample variance. A neighborhood of fewer than two points has zero
// variance information, so stability defaults to 1 (nothing to destabilize
// against).
func stabilityScore(target float64, neighbors []float64) float64 {
	if len(neighbors) < 2 {
		return 1
	}
	mean := 0.0
	for _, v := range neighbors {
		mean += v
	}
	mean /= float64(len(neighbors))

	var sumSq float64
	for _, v := range neighbors {
		d := v - mean
		sumSq += d * d
	}
	variance := sumSq / float64(len(neighbors)-1)
	if variance <= 0 {
		if target == mean {
			return 1
		}
		return 0
	}
	deviation := math.Abs(target - mean)
	score := 1 / (1 + deviation/math.Sqrt(variance))
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// CostSensitivityPoint is one fees_bps level's re-evaluation of a single
// ConfigID.
type CostSensitivityPoint struct {
	FeesBps     float64
	TotalReturn float64
}

// CostSensitivity re-runs one ConfigID across feesLevels and records the break-even cost: the lowest
// level at which total_return <= 0. BreakEvenFound is false if every level
// still produced a positive return.
type CostSensitivity struct {
	ConfigID       ConfigID
	Points         []CostSensitivityPoint
	BreakEvenBps   float64
	BreakEvenFound bool
}

// RunCostSensitivity re-evaluates id across feesLevels, holding every other
// backtest.Config field fixed except Cost.FeesBpsPerSide.
func RunCostSensitivity(bars []bar.Bar, id ConfigID, baseCfg backtest.Config, feesLevels []float64, annualizationFactor float64) (CostSensitivity, error) {
	cs := CostSensitivity{ConfigID: id}
	for _, fees := range feesLevels {
		cfg := baseCfg
		cfg.Cost.FeesBpsPerSide = fees
		result, err := evalOneCost(bars, id, cfg, annualizationFactor)
		if err != nil {
			return cs, err
		}
		cs.Points = append(cs.Points, CostSensitivityPoint{FeesBps: fees, TotalReturn: result})
		if !cs.BreakEvenFound && result <= 0 {
			cs.BreakEvenBps = fees
			cs.BreakEvenFound = true
		}
	}
	return cs, nil
}

func evalOneCost(bars []bar.Bar, id ConfigID, cfg backtest.Config, annualizationFactor float64) (float64, error) {
	res, err := backtest.RunEventDriven(bars, id.Config, cfg)
	if err != nil {
		return 0, err
	}
	m := metrics.Compute(res, cfg.InitialCash, annualizationFactor)
	return m.TotalReturn, nil
}
