package yolo

import (
	"math"

	"github.com/sawpanic/trendlab/internal/backtest"
	"github.com/sawpanic/trendlab/internal/bar"
	"github.com/sawpanic/trendlab/internal/metrics"
	"github.com/sawpanic/trendlab/internal/strategy"
	"github.com/sawpanic/trendlab/internal/terrors"
)

// DefaultSharpeThreshold is the evaluated average Sharpe above which a
// configuration triggers walk-forward re-evaluation.
const DefaultSharpeThreshold = 0.25

// FoldSpec bounds a walk-forward split: in-sample bar count, gap (purge)
// bar count, out-of-sample bar count, and the step between successive
// folds' starts.
type FoldSpec struct {
	InSample    int
	Gap         int
	OutOfSample int
	Step        int
	MinFolds    int
}

// FoldWindow is one fold's bar-index windows.
type FoldWindow struct {
	ISStart, ISEnd   int // [ISStart, ISEnd)
	OOSStart, OOSEnd int // [OOSStart, OOSEnd)
}

// GenerateFolds produces the fold windows for totalBars bars under spec:
// fold k occupies [k*step, k*step+IS) in-sample and
// [k*step+IS+gap, k*step+IS+gap+OOS) out-of-sample; folds continue while the
// OOS window fits within totalBars.
func GenerateFolds(totalBars int, spec FoldSpec) []FoldWindow {
	var folds []FoldWindow
	for k := 0; ; k++ {
		start := k * spec.Step
		isEnd := start + spec.InSample
		oosStart := isEnd + spec.Gap
		oosEnd := oosStart + spec.OutOfSample
		if oosEnd > totalBars {
			break
		}
		folds = append(folds, FoldWindow{ISStart: start, ISEnd: isEnd, OOSStart: oosStart, OOSEnd: oosEnd})
	}
	return folds
}

// FoldResult is one fold's in-sample/out-of-sample evaluation.
type FoldResult struct {
	Window    FoldWindow
	ISSharpe  float64
	OOSSharpe float64
	ISCAGR    float64
	OOSCAGR   float64
	OOSDD     float64
	OOSTrades int
}

// Grade is the deterministic A-F letter assigned to an aggregated
// walk-forward result.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// Result is the aggregated walk-forward validation outcome across every
// FoldResult.
type Result struct {
	Folds              []FoldResult
	MeanOOSSharpe      float64
	StdOOSSharpe       float64
	FractionPositiveOOS float64
	MeanDegradation    float64 // mean(OOS/IS) across folds
	Grade              Grade
}

// RunWalkForward re-evaluates cfg's strategy.Config over every fold
// GenerateFolds produces for len(bars), requiring at least spec.MinFolds
// folds to exist.
func RunWalkForward(bars []bar.Bar, strat strategy.Config, btCfg backtest.Config, spec FoldSpec, annualizationFactor float64) (Result, error) {
	folds := GenerateFolds(len(bars), spec)
	if len(folds) < spec.MinFolds {
		return Result{}, terrors.Wrap(terrors.ErrInvalidInput, "insufficient bars for the required minimum fold count", nil)
	}

	var results []FoldResult
	for _, w := range folds {
		isRes, err := backtest.RunEventDriven(bars[w.ISStart:w.ISEnd], strat, btCfg)
		if err != nil {
			return Result{}, err
		}
		oosRes, err := backtest.RunEventDriven(bars[w.OOSStart:w.OOSEnd], strat, btCfg)
		if err != nil {
			return Result{}, err
		}
		isMetrics := metrics.Compute(isRes, btCfg.InitialCash, annualizationFactor)
		oosMetrics := metrics.Compute(oosRes, btCfg.InitialCash, annualizationFactor)
		results = append(results, FoldResult{
			Window: w, ISSharpe: isMetrics.Sharpe, OOSSharpe: oosMetrics.Sharpe,
			ISCAGR: isMetrics.CAGR, OOSCAGR: oosMetrics.CAGR,
			OOSDD: oosMetrics.MaxDrawdown, OOSTrades: oosMetrics.NumTrades,
		})
	}

	return aggregate(results), nil
}

func aggregate(folds []FoldResult) Result {
	r := Result{Folds: folds}
	if len(folds) == 0 {
		r.Grade = GradeF
		return r
	}

	var sumOOS, sumDegradation float64
	positive := 0
	for _, f := range folds {
		sumOOS += f.OOSSharpe
		if f.OOSSharpe > 0 {
			positive++
		}
		sumDegradation += degradationRatio(f.OOSSharpe, f.ISSharpe)
	}
	n := float64(len(folds))
	r.MeanOOSSharpe = sumOOS / n
	r.FractionPositiveOOS = float64(positive) / n
	r.MeanDegradation = sumDegradation / n

	var sumSq float64
	for _, f := range folds {
		d := f.OOSSharpe - r.MeanOOSSharpe
		sumSq += d * d
	}
	if len(folds) > 1 {
		r.StdOOSSharpe = math.Sqrt(sumSq / float64(len(folds)-1))
	}

	r.Grade = gradeFor(r)
	return r
}

func degradationRatio(oosSharpe, isSharpe float64) float64 {
	if isSharpe == 0 {
		if oosSharpe == 0 {
			return 0
		}
		return 1
	}
	return oosSharpe / isSharpe
}

// gradeFor assigns a deterministic letter grade from mean OOS Sharpe and
// the fraction of folds with positive OOS Sharpe.
func gradeFor(r Result) Grade {
	switch {
	case r.MeanOOSSharpe >= 1.0 && r.FractionPositiveOOS >= 0.8:
		return GradeA
	case r.MeanOOSSharpe >= 0.5 && r.FractionPositiveOOS >= 0.6:
		return GradeB
	case r.MeanOOSSharpe >= 0.25 && r.FractionPositiveOOS >= 0.5:
		return GradeC
	case r.MeanOOSSharpe > 0:
		return GradeD
	default:
		return GradeF
	}
}
