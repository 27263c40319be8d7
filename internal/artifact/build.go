package artifact

import (
	"context"
	"fmt"

	"github.com/sawpanic/trendlab/internal/backtest"
	"github.com/sawpanic/trendlab/internal/bar"
	"github.com/sawpanic/trendlab/internal/indicatorcache"
	"github.com/sawpanic/trendlab/internal/indicators"
	"github.com/sawpanic/trendlab/internal/strategy"
	"github.com/sawpanic/trendlab/internal/terrors"
)

// SignalEnterLong and SignalExitLong are the parity-vector signal tags.
const (
	SignalEnterLong = "enter_long"
	SignalExitLong  = "exit_long"
)

// columnSpec names one parity column and how to compute it. Columns are
// routed through the indicator cache so emitting artifacts for many
// configurations over one symbol reuses shared windows.
type columnSpec struct {
	name    string
	key     indicatorcache.Key
	compute func() indicators.Column
}

// plan is the per-Kind indicator description: the declared defs, the
// parity columns, and the rule expressions.
type plan struct {
	defs    []IndicatorDef
	columns []columnSpec
	entry   Rule
	exit    Rule
}

// Build assembles an Artifact for cfg over bars, sampling parity vectors at
// parityIndices. cache may be nil; a private one is used then.
func Build(ctx context.Context, cfg strategy.Config, symbol, timeframe string, cost backtest.Cost, bars []bar.Bar, parityIndices []int, cache *indicatorcache.Cache) (Artifact, error) {
	if err := cfg.Validate(); err != nil {
		return Artifact{}, err
	}
	if cache == nil {
		cache = indicatorcache.New(nil)
	}

	p, err := planFor(cfg, symbol, bars)
	if err != nil {
		return Artifact{}, err
	}

	columns := make(map[string]indicators.Column, len(p.columns))
	for _, cs := range p.columns {
		col, err := cache.GetOrCompute(ctx, cs.key, cs.compute)
		if err != nil {
			return Artifact{}, err
		}
		columns[cs.name] = col
	}

	vectors := make([]ParityVector, 0, len(parityIndices))
	for _, t := range parityIndices {
		if t < 0 || t >= len(bars) {
			return Artifact{}, terrors.Wrap(terrors.ErrInvalidInput,
				fmt.Sprintf("parity index %d out of range for %d bars", t, len(bars)), nil)
		}
		values := make(map[string]*float64, len(columns))
		for name, col := range columns {
			v := col.At(t)
			if indicators.IsNull(v) {
				values[name] = nil
				continue
			}
			vv := v
			values[name] = &vv
		}
		vectors = append(vectors, ParityVector{
			BarIndex:   t,
			Timestamp:  bars[t].UTCMillis().UnixMilli(),
			Indicators: values,
			Signal:     signalAt(cfg, bars, t),
		})
	}

	return Artifact{
		SchemaVersion:   SchemaVersion,
		StrategyID:      string(cfg.Kind),
		StrategyVersion: StrategyVersion,
		Symbol:          symbol,
		Timeframe:       timeframe,
		Indicators:      p.defs,
		EntryRule:       p.entry,
		ExitRule:        p.exit,
		CostModel:       CostModel{FeesBps: cost.FeesBpsPerSide, SlippageBps: cost.SlippageBps},
		FillModel:       FillModelNextOpen,
		ParityVectors:   vectors,
	}, nil
}

// signalAt reports the emitted signal at t the way a live run would see it:
// the entry condition queried from flat, then the exit condition from long.
func signalAt(cfg strategy.Config, bars []bar.Bar, t int) *string {
	if cfg.Signal(bars, t, strategy.Flat).Action == strategy.ActionBuy {
		s := SignalEnterLong
		return &s
	}
	if cfg.Signal(bars, t, strategy.Long).Action == strategy.ActionSell {
		s := SignalExitLong
		return &s
	}
	return nil
}

func planFor(cfg strategy.Config, symbol string, bars []bar.Bar) (plan, error) {
	switch cfg.Kind {
	case strategy.KindDonchianBreakout, strategy.KindTurtleS1, strategy.KindTurtleS2:
		return donchianPlan(cfg, symbol, bars), nil
	case strategy.KindMACrossover:
		return maCrossoverPlan(cfg, symbol, bars), nil
	case strategy.KindTSMomentum:
		return momentumPlan(cfg, symbol, bars), nil
	case strategy.KindKeltner:
		return bandsPlan("keltner", cfg.KeltnerN, cfg.KeltnerATRN, cfg.KeltnerMult, symbol, bars, indicators.Keltner), nil
	case strategy.KindSTARC:
		return bandsPlan("starc", cfg.STARCN, cfg.STARCATRN, cfg.STARCMult, symbol, bars, indicators.STARC), nil
	case strategy.KindSupertrend:
		return supertrendPlan(cfg, symbol, bars), nil
	case strategy.KindParabolicSAR:
		return sarPlan(cfg, symbol, bars), nil
	case strategy.KindOpeningRangeBreakout:
		return openingRangePlan(cfg, symbol, bars), nil
	default:
		return plan{}, terrors.Wrap(terrors.ErrConfiguration, "unknown strategy kind: "+string(cfg.Kind), nil)
	}
}

func donchianPlan(cfg strategy.Config, symbol string, bars []bar.Bar) plan {
	entryN, exitN := float64(cfg.EntryLookback), float64(cfg.ExitLookback)
	return plan{
		defs: []IndicatorDef{
			{ID: "donchian_entry", Type: "donchian", Params: map[string]float64{"lookback": entryN}},
			{ID: "donchian_exit", Type: "donchian", Params: map[string]float64{"lookback": exitN}},
		},
		columns: []columnSpec{
			{
				name: "donchian_entry_upper",
				key:  indicatorcache.Key{Symbol: symbol, Indicator: "donchian_upper", Params: indicatorcache.ParamsKey(entryN)},
				compute: func() indicators.Column {
					return indicators.Donchian(bars, cfg.EntryLookback).Upper
				},
			},
			{
				name: "donchian_exit_lower",
				key:  indicatorcache.Key{Symbol: symbol, Indicator: "donchian_lower", Params: indicatorcache.ParamsKey(exitN)},
				compute: func() indicators.Column {
					return indicators.Donchian(bars, cfg.ExitLookback).Lower
				},
			},
		},
		entry: Rule{Condition: "close > donchian_entry.upper", Indicators: []string{"donchian_entry"}},
		exit:  Rule{Condition: "close < donchian_exit.lower", Indicators: []string{"donchian_exit"}},
	}
}

func maCrossoverPlan(cfg strategy.Config, symbol string, bars []bar.Bar) plan {
	maType := string(cfg.MAType)
	if maType == "" {
		maType = string(strategy.MATypeSMA)
	}
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	ma := func(n int) indicators.Column {
		if cfg.MAType == strategy.MATypeEMA {
			return indicators.EMA(closes, n)
		}
		return indicators.SMA(closes, n)
	}
	return plan{
		defs: []IndicatorDef{
			{ID: "ma_fast", Type: maType, Params: map[string]float64{"period": float64(cfg.FastPeriod)}},
			{ID: "ma_slow", Type: maType, Params: map[string]float64{"period": float64(cfg.SlowPeriod)}},
		},
		columns: []columnSpec{
			{
				name:    "ma_fast",
				key:     indicatorcache.Key{Symbol: symbol, Indicator: maType, Params: indicatorcache.ParamsKey(float64(cfg.FastPeriod))},
				compute: func() indicators.Column { return ma(cfg.FastPeriod) },
			},
			{
				name:    "ma_slow",
				key:     indicatorcache.Key{Symbol: symbol, Indicator: maType, Params: indicatorcache.ParamsKey(float64(cfg.SlowPeriod))},
				compute: func() indicators.Column { return ma(cfg.SlowPeriod) },
			},
		},
		entry: Rule{Condition: "ma_fast crosses above ma_slow", Indicators: []string{"ma_fast", "ma_slow"}},
		exit:  Rule{Condition: "ma_fast crosses below ma_slow", Indicators: []string{"ma_fast", "ma_slow"}},
	}
}

func momentumPlan(cfg strategy.Config, symbol string, bars []bar.Bar) plan {
	n := cfg.Lookback
	return plan{
		defs: []IndicatorDef{
			{ID: "momentum", Type: "ts_momentum", Params: map[string]float64{"lookback": float64(n)}},
		},
		columns: []columnSpec{
			{
				name: "momentum",
				key:  indicatorcache.Key{Symbol: symbol, Indicator: "ts_momentum", Params: indicatorcache.ParamsKey(float64(n))},
				compute: func() indicators.Column {
					col := make(indicators.Column, len(bars))
					for t := range bars {
						if t < n {
							col[t] = indicators.Null()
							continue
						}
						col[t] = bars[t].Close - bars[t-n].Close
					}
					return col
				},
			},
		},
		entry: Rule{Condition: "momentum > 0", Indicators: []string{"momentum"}},
		exit:  Rule{Condition: "momentum < 0", Indicators: []string{"momentum"}},
	}
}

func bandsPlan(typeTag string, n, atrN int, mult float64, symbol string, bars []bar.Bar, computeBands func([]bar.Bar, int, int, float64) indicators.Bands) plan {
	params := indicatorcache.ParamsKey(float64(n), float64(atrN), mult)
	return plan{
		defs: []IndicatorDef{
			{ID: typeTag, Type: typeTag, Params: map[string]float64{
				"band_n": float64(n), "atr_n": float64(atrN), "mult": mult,
			}},
		},
		columns: []columnSpec{
			{
				name:    typeTag + "_upper",
				key:     indicatorcache.Key{Symbol: symbol, Indicator: typeTag + "_upper", Params: params},
				compute: func() indicators.Column { return computeBands(bars, n, atrN, mult).Upper },
			},
			{
				name:    typeTag + "_lower",
				key:     indicatorcache.Key{Symbol: symbol, Indicator: typeTag + "_lower", Params: params},
				compute: func() indicators.Column { return computeBands(bars, n, atrN, mult).Lower },
			},
		},
		entry: Rule{Condition: "close > " + typeTag + ".upper", Indicators: []string{typeTag}},
		exit:  Rule{Condition: "close < " + typeTag + ".lower", Indicators: []string{typeTag}},
	}
}

func supertrendPlan(cfg strategy.Config, symbol string, bars []bar.Bar) plan {
	params := indicatorcache.ParamsKey(float64(cfg.SupertrendATRN), cfg.SupertrendMult)
	return plan{
		defs: []IndicatorDef{
			{ID: "supertrend", Type: "supertrend", Params: map[string]float64{
				"atr_n": float64(cfg.SupertrendATRN), "mult": cfg.SupertrendMult,
			}},
		},
		columns: []columnSpec{
			{
				name: "supertrend_line",
				key:  indicatorcache.Key{Symbol: symbol, Indicator: "supertrend_line", Params: params},
				compute: func() indicators.Column {
					return indicators.Supertrend(bars, cfg.SupertrendATRN, cfg.SupertrendMult).Line
				},
			},
			{
				name: "supertrend_direction",
				key:  indicatorcache.Key{Symbol: symbol, Indicator: "supertrend_direction", Params: params},
				compute: func() indicators.Column {
					return directionColumn(indicators.Supertrend(bars, cfg.SupertrendATRN, cfg.SupertrendMult).IsUptrend)
				},
			},
		},
		entry: Rule{Condition: "supertrend.direction flips up", Indicators: []string{"supertrend"}},
		exit:  Rule{Condition: "supertrend.direction flips down", Indicators: []string{"supertrend"}},
	}
}

func sarPlan(cfg strategy.Config, symbol string, bars []bar.Bar) plan {
	params := indicatorcache.ParamsKey(cfg.SARStep, cfg.SARMaxAF)
	return plan{
		defs: []IndicatorDef{
			{ID: "parabolic_sar", Type: "parabolic_sar", Params: map[string]float64{
				"step": cfg.SARStep, "max_af": cfg.SARMaxAF,
			}},
		},
		columns: []columnSpec{
			{
				name: "parabolic_sar",
				key:  indicatorcache.Key{Symbol: symbol, Indicator: "parabolic_sar", Params: params},
				compute: func() indicators.Column {
					return indicators.ParabolicSAR(bars, cfg.SARStep, cfg.SARMaxAF).SAR
				},
			},
			{
				name: "parabolic_sar_direction",
				key:  indicatorcache.Key{Symbol: symbol, Indicator: "parabolic_sar_direction", Params: params},
				compute: func() indicators.Column {
					return directionColumn(indicators.ParabolicSAR(bars, cfg.SARStep, cfg.SARMaxAF).IsUptrend)
				},
			},
		},
		entry: Rule{Condition: "parabolic_sar.direction flips up", Indicators: []string{"parabolic_sar"}},
		exit:  Rule{Condition: "parabolic_sar.direction flips down", Indicators: []string{"parabolic_sar"}},
	}
}

func openingRangePlan(cfg strategy.Config, symbol string, bars []bar.Bar) plan {
	n := float64(cfg.OpeningRangeN)
	return plan{
		defs: []IndicatorDef{
			{ID: "opening_range", Type: "opening_range", Params: map[string]float64{"range_n": n}},
		},
		columns: []columnSpec{
			{
				name: "opening_range_high",
				key:  indicatorcache.Key{Symbol: symbol, Indicator: "opening_range_high", Params: indicatorcache.ParamsKey(n)},
				compute: func() indicators.Column {
					return indicators.OpeningRange(bars, cfg.OpeningRangeN).Upper
				},
			},
			{
				name: "opening_range_low",
				key:  indicatorcache.Key{Symbol: symbol, Indicator: "opening_range_low", Params: indicatorcache.ParamsKey(n)},
				compute: func() indicators.Column {
					return indicators.OpeningRange(bars, cfg.OpeningRangeN).Lower
				},
			},
		},
		entry: Rule{Condition: "close > opening_range.high", Indicators: []string{"opening_range"}},
		exit:  Rule{Condition: "close < opening_range.low", Indicators: []string{"opening_range"}},
	}
}

// directionColumn maps an uptrend flag sequence to +1/-1 values so parity
// vectors stay purely numeric.
func directionColumn(isUp []bool) indicators.Column {
	col := make(indicators.Column, len(isUp))
	for i, up := range isUp {
		if up {
			col[i] = 1
		} else {
			col[i] = -1
		}
	}
	return col
}
