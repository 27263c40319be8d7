package backtest

import (
	"github.com/sawpanic/trendlab/internal/bar"
	"github.com/sawpanic/trendlab/internal/indicators"
	"github.com/sawpanic/trendlab/internal/strategy"
	"github.com/sawpanic/trendlab/internal/terrors"
)

// decision is the position-independent entry/exit trigger state at one bar,
// the shared unit both engine forms reduce over. Computing decisions is the
// only place the two forms differ; everything downstream (fills, costs,
// sizing, pyramiding, accounting) is one code path, eliminating the
// by-coincidence parity risk called out for the source system.
type decision struct {
	EntryTrigger bool
	ExitTrigger  bool
}

// RunEventDriven is the event-driven reference engine: at each bar it
// queries the strategy's Signal for both possible position states to
// extract the position-independent entry/exit triggers, exactly as if a
// live Position of each state were queried.
func RunEventDriven(bars []bar.Bar, strat SequentialStrategy, cfg Config) (Result, error) {
	decisions, err := sequentialDecisions(bars, strat)
	if err != nil {
		return Result{}, err
	}
	return simulate(bars, decisions, cfg)
}

// RunVectorized is the vectorized engine: it computes raw_entry/raw_exit as
// whole columns up front, then reduces over them.
func RunVectorized(bars []bar.Bar, strat VectorizedStrategy, cfg Config) (Result, error) {
	decisions, err := vectorizedDecisions(bars, strat)
	if err != nil {
		return Result{}, err
	}
	return simulate(bars, decisions, cfg)
}

func sequentialDecisions(bars []bar.Bar, strat SequentialStrategy) ([]decision, error) {
	if err := validateBars(bars); err != nil {
		return nil, err
	}
	out := make([]decision, len(bars))
	for t := range bars {
		entry := strat.Signal(bars, t, strategy.Flat).Action == strategy.ActionBuy
		exit := strat.Signal(bars, t, strategy.Long).Action == strategy.ActionSell
		out[t] = decision{EntryTrigger: entry, ExitTrigger: exit}
	}
	return out, nil
}

func vectorizedDecisions(bars []bar.Bar, strat VectorizedStrategy) ([]decision, error) {
	if err := validateBars(bars); err != nil {
		return nil, err
	}
	rawEntry, rawExit := strat.ApplyRawColumns(bars)
	out := make([]decision, len(bars))
	for t := range bars {
		out[t] = decision{EntryTrigger: rawEntry[t], ExitTrigger: rawExit[t]}
	}
	return out, nil
}

func validateBars(bars []bar.Bar) error {
	for _, b := range bars {
		if err := b.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// pendingOrder is an order queued at bar t for execution at bar t+1 (the
// next-open fill model).
type pendingOrder struct {
	Side      Side
	IsPyramid bool
}

// simulate is the single shared fill/cost/position/accounting core. position
// starts Flat; each bar first executes any order queued from the previous
// bar at that bar's open, then evaluates the current bar's decision to
// queue the next order, then records an EquityPoint at that bar's close.
func simulate(bars []bar.Bar, decisions []decision, cfg Config) (Result, error) {
	if cfg.InitialCash < 0 {
		return Result{}, terrors.Wrap(terrors.ErrInvalidInput, "initial cash must be non-negative", nil)
	}

	var (
		result      Result
		pending     *pendingOrder
		position    = strategy.Flat
		cash        = cfg.InitialCash
		qty         float64
		atrAtEntry  float64
		lastEntryPx float64
		unitsHeld   float64
		cashAtOpen  float64
		openTrade   Trade
	)

	for t := range bars {
		if pending != nil {
			var units float64
			if pending.Side == SideBuy {
				units = cfg.Sizing.unitsAt(bars, t, cfg.AccountSize)
			} else {
				units = qty // exit closes the full accumulated position in one fill
			}
			fill := makeFill(t, bars, *pending, cfg, units)
			pending = nil

			switch fill.Side {
			case SideBuy:
				if qty == 0 {
					cashAtOpen = cash
					openTrade = Trade{EntryBarIndex: t, EntryTimestamp: fill.Timestamp}
					atrAtEntry = entryATRSnapshot(bars, t, cfg)
				}
				cash -= fill.Notional() + fill.Fee
				qty += fill.Quantity
				unitsHeld += fill.Quantity
				lastEntryPx = fill.Price
				openTrade.Fills = append(openTrade.Fills, fill)
				position = strategy.Long
			case SideSell:
				cash += fill.Notional() - fill.Fee
				openTrade.Fills = append(openTrade.Fills, fill)
				openTrade.ExitBarIndex = t
				openTrade.ExitTimestamp = fill.Timestamp
				openTrade.ExitPrice = fill.Price
				openTrade.Quantity = qty
				openTrade.EntryPrice = weightedEntryPrice(openTrade.Fills)
				openTrade.FeesTotal = totalFees(openTrade.Fills)
				openTrade.NetPnL = cash - cashAtOpen
				openTrade.GrossPnL = openTrade.NetPnL + openTrade.FeesTotal
				result.Trades = append(result.Trades, openTrade)
				if openTrade.IsPyramided() {
					result.PyramidTrades = append(result.PyramidTrades, openTrade)
				}
				qty = 0
				unitsHeld = 0
				position = strategy.Flat
				openTrade = Trade{}
			}
			result.Fills = append(result.Fills, fill)
		}

		d := decisions[t]
		switch position {
		case strategy.Flat:
			if d.EntryTrigger && t+1 < len(bars) {
				pending = &pendingOrder{Side: SideBuy}
			}
		case strategy.Long:
			if d.ExitTrigger && t+1 < len(bars) {
				pending = &pendingOrder{Side: SideSell}
			} else if cfg.Pyramiding.Enabled && t+1 < len(bars) &&
				unitsHeld < cfg.Pyramiding.MaxUnits &&
				pyramidTriggered(bars, t, lastEntryPx, atrAtEntry, cfg.Pyramiding) {
				pending = &pendingOrder{Side: SideBuy, IsPyramid: true}
			}
		}

		equity := cash + qty*bars[t].Close
		result.Equity = append(result.Equity, EquityPoint{
			BarIndex: t, Timestamp: bars[t].Timestamp,
			Cash: cash, PositionQty: qty, Close: bars[t].Close, Equity: equity,
		})
	}
	return result, nil
}

func entryATRSnapshot(bars []bar.Bar, t int, cfg Config) float64 {
	window := cfg.Sizing.ATRWindow
	if cfg.Pyramiding.ATRWindow > 0 {
		window = cfg.Pyramiding.ATRWindow
	}
	if window <= 0 {
		return 0
	}
	v := indicators.ATRWilderAt(bars, window, t)
	if indicators.IsNull(v) {
		return 0
	}
	return v
}

func pyramidTriggered(bars []bar.Bar, t int, lastEntryPx, atrAtEntry float64, p Pyramiding) bool {
	if atrAtEntry <= 0 {
		return false
	}
	advance := bars[t].Close - lastEntryPx
	return advance >= p.ThresholdATR*atrAtEntry
}

func makeFill(t int, bars []bar.Bar, o pendingOrder, cfg Config, units float64) Fill {
	raw := bars[t].Open
	price := executedPrice(o.Side, raw, cfg.Cost.SlippageBps)
	f := Fill{
		BarIndex: t, Timestamp: bars[t].Timestamp, Side: o.Side,
		RawPrice: raw, Price: price, IsPyramid: o.IsPyramid,
	}
	f.Quantity = units
	f.Fee = fee(f.Notional(), cfg.Cost.FeesBpsPerSide)
	return f
}

func totalFees(fills []Fill) float64 {
	var sum float64
	for _, f := range fills {
		sum += f.Fee
	}
	return sum
}

func weightedEntryPrice(fills []Fill) float64 {
	var notional, qty float64
	for _, f := range fills {
		if f.Side == SideBuy {
			notional += f.Price * f.Quantity
			qty += f.Quantity
		}
	}
	if qty == 0 {
		return 0
	}
	return notional / qty
}
