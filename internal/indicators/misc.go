package indicators

import "github.com/sawpanic/trendlab/internal/bar"

// HighProximity measures where the close sits in the prior-N high/low
// channel: 0.0 at the channel low, 1.0 at the channel high. The value is not
// clamped, so it is above 1 when the close breaks above the prior high and
// below 0 when it breaks below the prior low. Shifted by one bar like
// Donchian so the current bar cannot reference itself.
func HighProximity(bars []bar.Bar, n int) Column {
	ch := Donchian(bars, n)
	out := newColumn(len(bars))
	for t := range bars {
		hi, lo := ch.Upper.At(t), ch.Lower.At(t)
		if IsNull(hi) || IsNull(lo) || hi == lo {
			continue
		}
		out[t] = (bars[t].Close - lo) / (hi - lo)
	}
	return out
}

// HighProximityAt is the causal single-index form.
func HighProximityAt(bars []bar.Bar, n, t int) float64 {
	if t < 0 || t >= len(bars) {
		return Null()
	}
	return HighProximity(bars[:t+1], n).At(t)
}

// HeikinAshiBar is a smoothed synthetic OHLC bar.
type HeikinAshiBar struct {
	Open, High, Low, Close float64
}

// HeikinAshi recomputes smoothed Heikin-Ashi candles: HA-Close is the OHLC4
// average, HA-Open is the midpoint of the prior HA candle (seeded from the
// first real bar's open/close midpoint), HA-High/Low extend to the real
// bar's extremes.
func HeikinAshi(bars []bar.Bar) []HeikinAshiBar {
	out := make([]HeikinAshiBar, len(bars))
	for t, b := range bars {
		close := (b.Open + b.High + b.Low + b.Close) / 4
		var open float64
		if t == 0 {
			open = (b.Open + b.Close) / 2
		} else {
			open = (out[t-1].Open + out[t-1].Close) / 2
		}
		out[t] = HeikinAshiBar{
			Open:  open,
			High:  maxf(b.High, maxf(open, close)),
			Low:   minf(b.Low, minf(open, close)),
			Close: close,
		}
	}
	return out
}

// HeikinAshiAt recomputes the causal HA candle at index t.
func HeikinAshiAt(bars []bar.Bar, t int) HeikinAshiBar {
	if t < 0 || t >= len(bars) {
		return HeikinAshiBar{}
	}
	return HeikinAshi(bars[:t+1])[t]
}

// DarvasBox is the current consolidation box: a new high resets the box and
// starts tracking the floor from that bar on; the box top is fixed at the
// high that triggered it.
type DarvasBox struct {
	Top    Column
	Bottom Column
}

// Darvas computes rolling Darvas boxes: a box opens when bar t's high
// exceeds the prior-n-bar high (a breakout), fixing Top at that high; Bottom
// is the lowest low of every bar since the breakout (the breakout bar
// included), not limited to n bars, until the next breakout resets the box.
func Darvas(bars []bar.Bar, n int) DarvasBox {
	top := newColumn(len(bars))
	bottom := newColumn(len(bars))
	if n <= 0 {
		return DarvasBox{top, bottom}
	}
	ch := Donchian(bars, n)
	var boxTop, boxBottom float64
	boxOpen := false
	for t := range bars {
		priorHigh := ch.Upper.At(t)
		if !IsNull(priorHigh) && bars[t].High > priorHigh {
			boxTop = bars[t].High
			boxBottom = bars[t].Low
			boxOpen = true
		} else if boxOpen {
			boxBottom = minf(boxBottom, bars[t].Low)
		}
		if boxOpen {
			top[t] = boxTop
			bottom[t] = boxBottom
		}
	}
	return DarvasBox{top, bottom}
}

// DarvasAt is the causal single-index form.
func DarvasAt(bars []bar.Bar, n, t int) (top, bottom float64) {
	if t < 0 || t >= len(bars) {
		return Null(), Null()
	}
	d := Darvas(bars[:t+1], n)
	return d.Top.At(t), d.Bottom.At(t)
}

// OpeningRange computes the high/low of the first n bars of each UTC
// calendar day, held constant for every subsequent bar that day.
func OpeningRange(bars []bar.Bar, n int) DonchianChannel {
	high := newColumn(len(bars))
	low := newColumn(len(bars))
	if n <= 0 {
		return DonchianChannel{high, low}
	}
	dayStart := -1
	var rangeHigh, rangeLow float64
	count := 0
	var curDay string
	for t, b := range bars {
		day := b.UTCMillis().Format("2006-01-02")
		if day != curDay {
			curDay = day
			dayStart = t
			count = 0
			rangeHigh, rangeLow = b.High, b.Low
		}
		if t-dayStart < n {
			rangeHigh = maxf(rangeHigh, b.High)
			rangeLow = minf(rangeLow, b.Low)
			count++
		}
		if count >= n || t-dayStart >= n-1 {
			high[t] = rangeHigh
			low[t] = rangeLow
		}
	}
	return DonchianChannel{Upper: high, Lower: low}
}

// OpeningRangeAt is the causal single-index form.
func OpeningRangeAt(bars []bar.Bar, n, t int) (high, low float64) {
	if t < 0 || t >= len(bars) {
		return Null(), Null()
	}
	r := OpeningRange(bars[:t+1], n)
	return r.Upper.At(t), r.Lower.At(t)
}
