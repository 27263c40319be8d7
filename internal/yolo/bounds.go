// Package yolo implements the YOLO Engine: exploration-mode selection,
// normalized parameter-space coverage tracking, session/all-time
// leaderboards, and walk-forward validation gating, continuously proposing
// configurations back to the Sweep Driver.
package yolo

import (
	"math"

	"github.com/sawpanic/trendlab/internal/strategy"
	"github.com/sawpanic/trendlab/internal/terrors"
)

// ParamBound declares one strategy parameter's valid range and step, the
// anchor of the affine map into [0,1].
type ParamBound struct {
	Name string
	Min  float64
	Max  float64
	Step float64
}

// ParamBounds is the ordered set of ParamBound for one strategy Kind. Order
// matches the order normalized coordinates appear in NormalizedConfig.Params
// and ConfigID axes.
type ParamBounds []ParamBound

// normalize maps a raw parameter value into [0,1] via a monotone affine map
// from (Min,Max), clamping out-of-range input.
func (b ParamBound) normalize(v float64) float64 {
	if b.Max <= b.Min {
		return 0
	}
	n := (v - b.Min) / (b.Max - b.Min)
	if n < 0 {
		return 0
	}
	if n > 1 {
		return 1
	}
	return n
}

// denormalize is normalize's inverse: it clamps to [0,1] first, maps back
// into (Min,Max), then rounds to the nearest Step.
func (b ParamBound) denormalize(n float64) float64 {
	if n < 0 {
		n = 0
	}
	if n > 1 {
		n = 1
	}
	v := b.Min + n*(b.Max-b.Min)
	if b.Step <= 0 {
		return v
	}
	steps := math.Round((v - b.Min) / b.Step)
	v = b.Min + steps*b.Step
	if v < b.Min {
		v = b.Min
	}
	if v > b.Max {
		v = b.Max
	}
	return v
}

// ParamBoundsFor returns the declared parameter bounds for a strategy
// Kind's parametric modes. Strategies with fixed parameters (the Turtle
// presets) are excluded from parametric exploration.
func ParamBoundsFor(kind strategy.Kind) (ParamBounds, error) {
	switch kind {
	case strategy.KindDonchianBreakout:
		return ParamBounds{
			{Name: "entry_lookback", Min: 5, Max: 100, Step: 1},
			{Name: "exit_lookback", Min: 2, Max: 60, Step: 1},
		}, nil
	case strategy.KindMACrossover:
		return ParamBounds{
			{Name: "fast_period", Min: 2, Max: 60, Step: 1},
			{Name: "slow_period", Min: 10, Max: 250, Step: 1},
		}, nil
	case strategy.KindTSMomentum:
		return ParamBounds{
			{Name: "lookback", Min: 5, Max: 250, Step: 1},
		}, nil
	case strategy.KindKeltner:
		return ParamBounds{
			{Name: "band_n", Min: 5, Max: 60, Step: 1},
			{Name: "atr_n", Min: 5, Max: 60, Step: 1},
			{Name: "mult", Min: 0.5, Max: 5, Step: 0.1},
		}, nil
	case strategy.KindSTARC:
		return ParamBounds{
			{Name: "band_n", Min: 5, Max: 60, Step: 1},
			{Name: "atr_n", Min: 5, Max: 60, Step: 1},
			{Name: "mult", Min: 0.5, Max: 5, Step: 0.1},
		}, nil
	case strategy.KindSupertrend:
		return ParamBounds{
			{Name: "atr_n", Min: 5, Max: 60, Step: 1},
			{Name: "mult", Min: 1, Max: 6, Step: 0.1},
		}, nil
	case strategy.KindParabolicSAR:
		return ParamBounds{
			{Name: "step", Min: 0.01, Max: 0.1, Step: 0.01},
			{Name: "max_af", Min: 0.1, Max: 0.5, Step: 0.01},
		}, nil
	case strategy.KindOpeningRangeBreakout:
		return ParamBounds{
			{Name: "range_n", Min: 2, Max: 30, Step: 1},
		}, nil
	case strategy.KindTurtleS1, strategy.KindTurtleS2:
		return nil, terrors.Wrap(terrors.ErrConfiguration, "turtle presets have fixed parameters and are excluded from YOLO's parametric modes", nil)
	default:
		return nil, terrors.Wrap(terrors.ErrConfiguration, "unknown strategy kind: "+string(kind), nil)
	}
}

// NormalizedConfig is a parameter vector in [0,1]^n for a given strategy
// Kind.
type NormalizedConfig struct {
	Kind   strategy.Kind
	Params []float64
}

// Normalize maps a strategy.Config's raw parameter values into a
// NormalizedConfig using bounds, in the same order bounds declares them.
func Normalize(bounds ParamBounds, raw []float64) NormalizedConfig {
	params := make([]float64, len(bounds))
	for i, b := range bounds {
		if i < len(raw) {
			params[i] = b.normalize(raw[i])
		}
	}
	return NormalizedConfig{Params: params}
}

// Denormalize maps a NormalizedConfig back into raw parameter values,
// clamped to bounds and rounded to step.
func Denormalize(bounds ParamBounds, nc NormalizedConfig) []float64 {
	raw := make([]float64, len(bounds))
	for i, b := range bounds {
		if i < len(nc.Params) {
			raw[i] = b.denormalize(nc.Params[i])
		} else {
			raw[i] = b.Min
		}
	}
	return raw
}

// BuildConfig resolves a strategy Kind's raw parameter values (in bounds
// order) into a concrete strategy.Config. Only the Kinds ParamBoundsFor
// supports are handled.
func BuildConfig(kind strategy.Kind, raw []float64) strategy.Config {
	switch kind {
	case strategy.KindDonchianBreakout:
		return strategy.DonchianBreakout(int(raw[0]), int(raw[1]))
	case strategy.KindMACrossover:
		return strategy.MACrossover(int(raw[0]), int(raw[1]), strategy.MATypeSMA)
	case strategy.KindTSMomentum:
		return strategy.TimeSeriesMomentum(int(raw[0]))
	case strategy.KindKeltner:
		return strategy.KeltnerBreakout(int(raw[0]), int(raw[1]), raw[2])
	case strategy.KindSTARC:
		return strategy.STARCBreakout(int(raw[0]), int(raw[1]), raw[2])
	case strategy.KindSupertrend:
		return strategy.SupertrendFollow(int(raw[0]), raw[1])
	case strategy.KindParabolicSAR:
		return strategy.ParabolicSARFollow(raw[0], raw[1])
	case strategy.KindOpeningRangeBreakout:
		return strategy.OpeningRangeBreakout(int(raw[0]))
	default:
		return strategy.Config{Kind: kind}
	}
}
