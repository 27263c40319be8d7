// Package strategy implements the Strategy abstraction: a tagged union
// of concrete strategy variants plus an ensemble combinator, each exposing
// both a causal per-bar signal function and a vectorized column form that
// share one underlying decision so the two forms can never disagree.
package strategy

import (
	"github.com/sawpanic/trendlab/internal/bar"
	"github.com/sawpanic/trendlab/internal/indicators"
	"github.com/sawpanic/trendlab/internal/terrors"
)

// Kind tags which concrete strategy a Config represents. A tagged variant
// rather than an interface hierarchy: dispatch is a switch, parameters are
// plain fields, and there is no virtual call on the hot per-bar path.
type Kind string

const (
	KindDonchianBreakout    Kind = "donchian_breakout"
	KindTurtleS1            Kind = "turtle_s1"
	KindTurtleS2            Kind = "turtle_s2"
	KindMACrossover         Kind = "ma_crossover"
	KindTSMomentum          Kind = "ts_momentum"
	KindKeltner             Kind = "keltner"
	KindSTARC               Kind = "starc"
	KindSupertrend          Kind = "supertrend"
	KindParabolicSAR        Kind = "parabolic_sar"
	KindOpeningRangeBreakout Kind = "opening_range_breakout"
)

// MAType selects the moving average used by the MA-crossover variant.
type MAType string

const (
	MATypeSMA MAType = "sma"
	MATypeEMA MAType = "ema"
)

// Action is the order implied by a Signal.
type Action int

const (
	ActionNone Action = iota
	ActionBuy
	ActionSell
)

// Signal is the outcome of evaluating a Config against the bars seen so far
// and the current Position.
type Signal struct {
	Action Action
}

// PositionState is the minimal position shape a Strategy needs to decide:
// strategies are single-unit flat/long state machines; sizing, pyramiding
// and accounting live in the backtest engine, not here.
type PositionState int

const (
	Flat PositionState = iota
	Long
)

// Config is the tagged-union strategy value. Only the fields relevant to
// Kind are meaningful; the rest are zero.
type Config struct {
	Kind Kind

	EntryLookback int
	ExitLookback  int

	FastPeriod int
	SlowPeriod int
	MAType     MAType

	Lookback int // time-series momentum

	KeltnerN     int
	KeltnerATRN  int
	KeltnerMult  float64

	STARCN    int
	STARCATRN int
	STARCMult float64

	SupertrendATRN int
	SupertrendMult float64

	SARStep  float64
	SARMaxAF float64

	OpeningRangeN int
}

// DonchianBreakout builds a Donchian breakout Config.
func DonchianBreakout(entryLookback, exitLookback int) Config {
	return Config{Kind: KindDonchianBreakout, EntryLookback: entryLookback, ExitLookback: exitLookback}
}

// TurtleS1 is the classic fixed 20-entry/10-exit Turtle System 1 preset.
func TurtleS1() Config {
	return Config{Kind: KindTurtleS1, EntryLookback: 20, ExitLookback: 10}
}

// TurtleS2 is the classic fixed 55-entry/20-exit Turtle System 2 preset.
func TurtleS2() Config {
	return Config{Kind: KindTurtleS2, EntryLookback: 55, ExitLookback: 20}
}

// MACrossover builds a fast/slow moving-average crossover Config.
func MACrossover(fast, slow int, maType MAType) Config {
	return Config{Kind: KindMACrossover, FastPeriod: fast, SlowPeriod: slow, MAType: maType}
}

// TimeSeriesMomentum builds a single-lookback sign-of-return Config.
func TimeSeriesMomentum(lookback int) Config {
	return Config{Kind: KindTSMomentum, Lookback: lookback}
}

// KeltnerBreakout builds a Keltner-band breakout Config.
func KeltnerBreakout(n, atrN int, mult float64) Config {
	return Config{Kind: KindKeltner, KeltnerN: n, KeltnerATRN: atrN, KeltnerMult: mult}
}

// STARCBreakout builds a STARC-band breakout Config.
func STARCBreakout(n, atrN int, mult float64) Config {
	return Config{Kind: KindSTARC, STARCN: n, STARCATRN: atrN, STARCMult: mult}
}

// SupertrendFollow builds a Supertrend trend-following Config.
func SupertrendFollow(atrN int, mult float64) Config {
	return Config{Kind: KindSupertrend, SupertrendATRN: atrN, SupertrendMult: mult}
}

// ParabolicSARFollow builds a Parabolic SAR trend-following Config.
func ParabolicSARFollow(step, maxAF float64) Config {
	return Config{Kind: KindParabolicSAR, SARStep: step, SARMaxAF: maxAF}
}

// OpeningRangeBreakout builds an opening-range breakout Config.
func OpeningRangeBreakout(n int) Config {
	return Config{Kind: KindOpeningRangeBreakout, OpeningRangeN: n}
}

// WarmupPeriod is the minimum number of bars a Config needs before its
// signal is meaningful.
func (c Config) WarmupPeriod() int {
	switch c.Kind {
	case KindDonchianBreakout, KindTurtleS1, KindTurtleS2:
		return maxInt(c.EntryLookback, c.ExitLookback) + 1
	case KindMACrossover:
		return maxInt(c.FastPeriod, c.SlowPeriod) + 1
	case KindTSMomentum:
		return c.Lookback + 1
	case KindKeltner:
		return maxInt(c.KeltnerN, c.KeltnerATRN) + 1
	case KindSTARC:
		return maxInt(c.STARCN, c.STARCATRN) + 1
	case KindSupertrend:
		return c.SupertrendATRN + 1
	case KindParabolicSAR:
		return 1
	case KindOpeningRangeBreakout:
		return c.OpeningRangeN + 1
	default:
		return 1
	}
}

// Validate rejects configurations with non-positive windows or an unknown
// Kind as terrors.ErrConfiguration.
func (c Config) Validate() error {
	switch c.Kind {
	case KindDonchianBreakout, KindTurtleS1, KindTurtleS2:
		if c.EntryLookback <= 0 || c.ExitLookback <= 0 {
			return terrors.Wrap(terrors.ErrConfiguration, "donchian lookbacks must be positive", nil)
		}
	case KindMACrossover:
		if c.FastPeriod <= 0 || c.SlowPeriod <= 0 || c.FastPeriod >= c.SlowPeriod {
			return terrors.Wrap(terrors.ErrConfiguration, "ma crossover requires fast < slow, both positive", nil)
		}
	case KindTSMomentum:
		if c.Lookback <= 0 {
			return terrors.Wrap(terrors.ErrConfiguration, "momentum lookback must be positive", nil)
		}
	case KindKeltner, KindSTARC, KindSupertrend, KindParabolicSAR, KindOpeningRangeBreakout:
		// all-zero numeric windows are caught by WarmupPeriod producing 0
		// output; nothing further to validate structurally here.
	default:
		return terrors.Wrap(terrors.ErrConfiguration, "unknown strategy kind: "+string(c.Kind), nil)
	}
	return nil
}

// rawEntry and rawExit are the position-independent trigger conditions;
// Signal (sequential) and ApplyRawColumns (vectorized) both call these, so
// the two forms can never disagree.
func (c Config) rawEntry(bars []bar.Bar, t int) bool {
	switch c.Kind {
	case KindDonchianBreakout, KindTurtleS1, KindTurtleS2:
		upper, _ := indicators.DonchianAt(bars, c.EntryLookback, t)
		return !indicators.IsNull(upper) && bars[t].Close > upper
	case KindMACrossover:
		return c.maCrossUp(bars, t)
	case KindTSMomentum:
		mom, ok := c.momentum(bars, t)
		return ok && mom > 0
	case KindKeltner:
		upper, _, _ := indicators.KeltnerAt(bars, c.KeltnerN, c.KeltnerATRN, c.KeltnerMult, t)
		return !indicators.IsNull(upper) && bars[t].Close > upper
	case KindSTARC:
		upper, _, _ := indicators.STARCAt(bars, c.STARCN, c.STARCATRN, c.STARCMult, t)
		return !indicators.IsNull(upper) && bars[t].Close > upper
	case KindSupertrend:
		return c.supertrendFlippedUp(bars, t)
	case KindParabolicSAR:
		return c.sarFlippedUp(bars, t)
	case KindOpeningRangeBreakout:
		high, _ := indicators.OpeningRangeAt(bars, c.OpeningRangeN, t)
		return !indicators.IsNull(high) && bars[t].Close > high
	default:
		return false
	}
}

func (c Config) rawExit(bars []bar.Bar, t int) bool {
	switch c.Kind {
	case KindDonchianBreakout, KindTurtleS1, KindTurtleS2:
		_, lower := indicators.DonchianAt(bars, c.ExitLookback, t)
		return !indicators.IsNull(lower) && bars[t].Close < lower
	case KindMACrossover:
		return c.maCrossDown(bars, t)
	case KindTSMomentum:
		mom, ok := c.momentum(bars, t)
		return ok && mom < 0
	case KindKeltner:
		_, _, lower := indicators.KeltnerAt(bars, c.KeltnerN, c.KeltnerATRN, c.KeltnerMult, t)
		return !indicators.IsNull(lower) && bars[t].Close < lower
	case KindSTARC:
		_, _, lower := indicators.STARCAt(bars, c.STARCN, c.STARCATRN, c.STARCMult, t)
		return !indicators.IsNull(lower) && bars[t].Close < lower
	case KindSupertrend:
		return c.supertrendFlippedDown(bars, t)
	case KindParabolicSAR:
		return c.sarFlippedDown(bars, t)
	case KindOpeningRangeBreakout:
		_, low := indicators.OpeningRangeAt(bars, c.OpeningRangeN, t)
		return !indicators.IsNull(low) && bars[t].Close < low
	default:
		return false
	}
}

func (c Config) momentum(bars []bar.Bar, t int) (float64, bool) {
	if t < c.Lookback {
		return 0, false
	}
	return bars[t].Close - bars[t-c.Lookback].Close, true
}

func (c Config) maCrossUp(bars []bar.Bar, t int) bool {
	if t < 1 {
		return false
	}
	fastNow, slowNow, ok := c.maPair(bars, t)
	fastPrev, slowPrev, okPrev := c.maPair(bars, t-1)
	return ok && okPrev && fastPrev <= slowPrev && fastNow > slowNow
}

func (c Config) maCrossDown(bars []bar.Bar, t int) bool {
	if t < 1 {
		return false
	}
	fastNow, slowNow, ok := c.maPair(bars, t)
	fastPrev, slowPrev, okPrev := c.maPair(bars, t-1)
	return ok && okPrev && fastPrev >= slowPrev && fastNow < slowNow
}

func (c Config) maPair(bars []bar.Bar, t int) (fast, slow float64, ok bool) {
	closes := closesOf(bars)
	switch c.MAType {
	case MATypeEMA:
		fast = indicators.EMAAt(closes, c.FastPeriod, t)
		slow = indicators.EMAAt(closes, c.SlowPeriod, t)
	default:
		fast = indicators.SMAAt(closes, c.FastPeriod, t)
		slow = indicators.SMAAt(closes, c.SlowPeriod, t)
	}
	if indicators.IsNull(fast) || indicators.IsNull(slow) {
		return 0, 0, false
	}
	return fast, slow, true
}

func (c Config) supertrendFlippedUp(bars []bar.Bar, t int) bool {
	if t < 1 {
		return false
	}
	_, up := indicators.SupertrendAt(bars, c.SupertrendATRN, c.SupertrendMult, t)
	_, upPrev := indicators.SupertrendAt(bars, c.SupertrendATRN, c.SupertrendMult, t-1)
	return up && !upPrev
}

func (c Config) supertrendFlippedDown(bars []bar.Bar, t int) bool {
	if t < 1 {
		return false
	}
	_, up := indicators.SupertrendAt(bars, c.SupertrendATRN, c.SupertrendMult, t)
	_, upPrev := indicators.SupertrendAt(bars, c.SupertrendATRN, c.SupertrendMult, t-1)
	return !up && upPrev
}

func (c Config) sarFlippedUp(bars []bar.Bar, t int) bool {
	if t < 1 {
		return false
	}
	_, up := indicators.ParabolicSARAt(bars, c.SARStep, c.SARMaxAF, t)
	_, upPrev := indicators.ParabolicSARAt(bars, c.SARStep, c.SARMaxAF, t-1)
	return up && !upPrev
}

func (c Config) sarFlippedDown(bars []bar.Bar, t int) bool {
	if t < 1 {
		return false
	}
	_, up := indicators.ParabolicSARAt(bars, c.SARStep, c.SARMaxAF, t)
	_, upPrev := indicators.ParabolicSARAt(bars, c.SARStep, c.SARMaxAF, t-1)
	return !up && upPrev
}

func closesOf(bars []bar.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Signal evaluates the Config against bars[0..=t] and the current Position
// (the sequential form).
func (c Config) Signal(bars []bar.Bar, t int, position PositionState) Signal {
	if t < 0 || t >= len(bars) {
		return Signal{Action: ActionNone}
	}
	switch position {
	case Flat:
		if c.rawEntry(bars, t) {
			return Signal{Action: ActionBuy}
		}
	case Long:
		if c.rawExit(bars, t) {
			return Signal{Action: ActionSell}
		}
	}
	return Signal{Action: ActionNone}
}

// ApplyRawColumns computes raw_entry/raw_exit over the whole series (the
// vectorized form). Each element is computed by the identical rawEntry/
// rawExit functions the sequential form uses, so the two agree by
// construction.
func (c Config) ApplyRawColumns(bars []bar.Bar) (rawEntry, rawExit []bool) {
	rawEntry = make([]bool, len(bars))
	rawExit = make([]bool, len(bars))
	for t := range bars {
		rawEntry[t] = c.rawEntry(bars, t)
		rawExit[t] = c.rawExit(bars, t)
	}
	return rawEntry, rawExit
}
