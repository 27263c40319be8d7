package indicators

import "github.com/sawpanic/trendlab/internal/bar"

// DonchianChannel holds the upper/lower bands of a prior-N-bar channel.
// Both bands are shifted by one bar: the value at index t is computed from
// bars [t-n .. t-1], never including bar t itself, satisfying the causality
// rule for breakout entry/exit logic (current bar cannot trigger off itself).
type DonchianChannel struct {
	Upper Column
	Lower Column
}

// Donchian computes the prior-N-bar upper (rolling max of highs) and lower
// (rolling min of lows) channel. Values are null until index n (the first
// bar with n full prior bars behind it).
func Donchian(bars []bar.Bar, n int) DonchianChannel {
	upper := newColumn(len(bars))
	lower := newColumn(len(bars))
	if n <= 0 {
		return DonchianChannel{upper, lower}
	}
	for t := range bars {
		if t < n {
			continue
		}
		hi := bars[t-n].High
		lo := bars[t-n].Low
		for i := t - n; i < t; i++ {
			hi = maxf(hi, bars[i].High)
			lo = minf(lo, bars[i].Low)
		}
		upper[t] = hi
		lower[t] = lo
	}
	return DonchianChannel{upper, lower}
}

// DonchianAt returns the causal channel value at index t.
func DonchianAt(bars []bar.Bar, n, t int) (upper, lower float64) {
	if t < 0 || t >= len(bars) {
		return Null(), Null()
	}
	ch := Donchian(bars[:t+1], n)
	return ch.Upper.At(t), ch.Lower.At(t)
}
