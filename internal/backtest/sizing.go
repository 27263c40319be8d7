package backtest

import (
	"math"

	"github.com/sawpanic/trendlab/internal/bar"
	"github.com/sawpanic/trendlab/internal/indicators"
)

// SizingMode selects which of the three required position-sizing schemes a
// Config uses.
type SizingMode string

const (
	SizingFixed            SizingMode = "fixed"
	SizingTurtleVolatility SizingMode = "turtle_volatility"
	SizingExternal         SizingMode = "external"
)

// SizeResult is what an ExternalSizer returns: the chosen unit count and a
// short human-readable justification, carried through for diagnostics.
type SizeResult struct {
	Units     float64
	Rationale string
}

// ExternalSizer computes position size from bar context and account size;
// pluggable sizing for callers that bring their own risk model.
type ExternalSizer func(bars []bar.Bar, t int, accountSize float64) SizeResult

// Sizing configures one of the three position-sizing modes.
type Sizing struct {
	Mode SizingMode

	FixedQty float64

	TargetVolatilityDollars float64
	ContractMultiplier      float64
	ATRWindow               int
	MinUnits                float64
	MaxUnits                float64

	External ExternalSizer
}

// unitsAt computes the entry size at bar t given the sizing mode.
func (s Sizing) unitsAt(bars []bar.Bar, t int, accountSize float64) float64 {
	switch s.Mode {
	case SizingTurtleVolatility:
		atr := indicators.ATRWilderAt(bars, s.ATRWindow, t)
		if indicators.IsNull(atr) || atr <= 0 || s.ContractMultiplier <= 0 {
			return 0
		}
		units := math.Floor(s.TargetVolatilityDollars / (atr * s.ContractMultiplier))
		return clamp(units, s.MinUnits, s.MaxUnits)
	case SizingExternal:
		if s.External == nil {
			return 0
		}
		return s.External(bars, t, accountSize).Units
	default: // SizingFixed
		return s.FixedQty
	}
}

func clamp(v, lo, hi float64) float64 {
	if hi > 0 && v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}

// Pyramiding configures optional incremental adds to a long position.
type Pyramiding struct {
	Enabled      bool
	ThresholdATR float64
	ATRWindow    int
	MaxUnits     float64 // total accumulated units cap, including the initial entry
}

// Cost configures the fill model's slippage and per-side fees.
type Cost struct {
	SlippageBps    float64
	FeesBpsPerSide float64
}

// Config bundles the full engine configuration.
type Config struct {
	InitialCash float64
	AccountSize float64
	Cost        Cost
	Sizing      Sizing
	Pyramiding  Pyramiding
}

func executedPrice(side Side, rawPrice, slippageBps float64) float64 {
	adj := slippageBps * 1e-4 * rawPrice
	if side == SideBuy {
		return rawPrice + adj
	}
	return rawPrice - adj
}

func fee(notional, feesBpsPerSide float64) float64 {
	return feesBpsPerSide * 1e-4 * notional
}
