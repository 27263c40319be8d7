// Package backtest implements the Backtest Engine: an event-driven
// reference simulator and a vectorized simulator sharing one fill/cost/
// position/accounting core, so the two required-equivalent forms can only
// differ in how they derive entry/exit decisions, never in how they act on
// them.
package backtest

import (
	"time"

	"github.com/sawpanic/trendlab/internal/bar"
	"github.com/sawpanic/trendlab/internal/strategy"
)

// Side is the direction of a Fill.
type Side int

const (
	SideBuy Side = iota
	SideSell
)

// Fill is one executed order: the next-open raw price, the
// slippage-adjusted executed price, and the fee charged.
type Fill struct {
	BarIndex  int
	Timestamp time.Time
	Side      Side
	RawPrice  float64
	Price     float64
	Quantity  float64
	Fee       float64
	IsPyramid bool
}

// Notional is the executed price times quantity.
func (f Fill) Notional() float64 { return f.Price * f.Quantity }

// Trade is one completed round trip: an entry (possibly followed by
// pyramid adds) through a single closing exit fill.
type Trade struct {
	EntryBarIndex  int
	ExitBarIndex   int
	EntryTimestamp time.Time
	ExitTimestamp  time.Time
	EntryPrice     float64 // quantity-weighted average across entry + pyramid fills
	ExitPrice      float64
	Quantity       float64
	GrossPnL       float64
	FeesTotal      float64
	NetPnL         float64 // always GrossPnL - FeesTotal
	Fills          []Fill
}

// HoldingPeriod is the trade's bar count from entry to exit.
func (tr Trade) HoldingPeriod() int { return tr.ExitBarIndex - tr.EntryBarIndex }

// IsPyramided reports whether this Trade accumulated more than one entry fill.
func (tr Trade) IsPyramided() bool {
	entries := 0
	for _, f := range tr.Fills {
		if f.Side == SideBuy {
			entries++
		}
	}
	return entries > 1
}

// EquityPoint is the mark-to-market snapshot at one bar's close.
type EquityPoint struct {
	BarIndex    int
	Timestamp   time.Time
	Cash        float64
	PositionQty float64
	Close       float64
	Equity      float64
}

// Result is the (fills, trades, pyramid_trades, equity) tuple a run
// produces. Structural equality by value over identical inputs is the
// determinism invariant.
type Result struct {
	Fills         []Fill
	Trades        []Trade
	PyramidTrades []Trade
	Equity        []EquityPoint
}

// SequentialStrategy is the per-bar signal capability the event-driven
// engine consumes.
type SequentialStrategy interface {
	Signal(bars []bar.Bar, t int, position strategy.PositionState) strategy.Signal
	WarmupPeriod() int
}

// VectorizedStrategy is the whole-column capability the vectorized engine
// consumes.
type VectorizedStrategy interface {
	ApplyRawColumns(bars []bar.Bar) (rawEntry, rawExit []bool)
	WarmupPeriod() int
}
