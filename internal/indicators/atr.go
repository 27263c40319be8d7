package indicators

import "github.com/sawpanic/trendlab/internal/bar"

// TrueRange computes the true range column: max(high-low, |high-prevClose|,
// |low-prevClose|). The first bar has no previous close, so TR[0] = high-low.
func TrueRange(bars []bar.Bar) Column {
	out := newColumn(len(bars))
	for t, b := range bars {
		hl := b.High - b.Low
		if t == 0 {
			out[t] = hl
			continue
		}
		prevClose := bars[t-1].Close
		hc := absf(b.High - prevClose)
		lc := absf(b.Low - prevClose)
		out[t] = maxf(hl, maxf(hc, lc))
	}
	return out
}

// ATRSma computes the SMA-smoothed average true range over window n.
func ATRSma(bars []bar.Bar, n int) Column {
	tr := TrueRange(bars)
	return SMA(tr, n)
}

// ATRWilder computes the Wilder-smoothed (alpha = 1/n) average true range,
// seeded by the SMA of the first n true-range values.
func ATRWilder(bars []bar.Bar, n int) Column {
	tr := TrueRange(bars)
	out := newColumn(len(bars))
	if n <= 0 || len(tr) < n {
		return out
	}
	seed := SMA(tr, n)[n-1]
	out[n-1] = seed
	prev := seed
	alpha := 1.0 / float64(n)
	for t := n; t < len(tr); t++ {
		v := alpha*tr[t] + (1-alpha)*prev
		out[t] = v
		prev = v
	}
	return out
}

// ATRSmaAt / ATRWilderAt are the causal single-index forms.
func ATRSmaAt(bars []bar.Bar, n, t int) float64 {
	if t < 0 || t >= len(bars) {
		return Null()
	}
	return ATRSma(bars[:t+1], n).At(t)
}

func ATRWilderAt(bars []bar.Bar, n, t int) float64 {
	if t < 0 || t >= len(bars) {
		return Null()
	}
	return ATRWilder(bars[:t+1], n).At(t)
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
