package indicators

import (
	"math"

	"github.com/sawpanic/trendlab/internal/bar"
)

// Bands is a generic three-line envelope: a midline with upper/lower bands.
type Bands struct {
	Upper Column
	Mid   Column
	Lower Column
}

// Bollinger computes a midline SMA(n) with bands at mid +/- k*rolling stddev(n).
func Bollinger(closes []float64, n int, k float64) Bands {
	mid := SMA(closes, n)
	upper := newColumn(len(closes))
	lower := newColumn(len(closes))
	if n <= 0 {
		return Bands{upper, mid, lower}
	}
	for t := range closes {
		if t < n-1 {
			continue
		}
		sd := rollingStdDev(closes, t, n, mid[t])
		upper[t] = mid[t] + k*sd
		lower[t] = mid[t] - k*sd
	}
	return Bands{Upper: upper, Mid: mid, Lower: lower}
}

func rollingStdDev(closes []float64, t, n int, mean float64) float64 {
	var sumSq float64
	for i := t - n + 1; i <= t; i++ {
		d := closes[i] - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(n))
}

// Keltner computes a midline EMA(n) with bands at mid +/- mult*ATR(atrN),
// the standard volatility-channel construction.
func Keltner(bars []bar.Bar, n, atrN int, mult float64) Bands {
	closes := closesOf(bars)
	mid := EMA(closes, n)
	atr := ATRWilder(bars, atrN)
	upper := newColumn(len(bars))
	lower := newColumn(len(bars))
	for t := range bars {
		if IsNull(mid[t]) || IsNull(atr[t]) {
			continue
		}
		upper[t] = mid[t] + mult*atr[t]
		lower[t] = mid[t] - mult*atr[t]
	}
	return Bands{Upper: upper, Mid: mid, Lower: lower}
}

// STARC (Stoller Average Range Channel) computes a midline SMA(n) with bands
// at mid +/- mult*ATR(atrN); distinguished from Keltner by using SMA rather
// than EMA for the midline, matching the original indicator definition.
func STARC(bars []bar.Bar, n, atrN int, mult float64) Bands {
	closes := closesOf(bars)
	mid := SMA(closes, n)
	atr := ATRSma(bars, atrN)
	upper := newColumn(len(bars))
	lower := newColumn(len(bars))
	for t := range bars {
		if IsNull(mid[t]) || IsNull(atr[t]) {
			continue
		}
		upper[t] = mid[t] + mult*atr[t]
		lower[t] = mid[t] - mult*atr[t]
	}
	return Bands{Upper: upper, Mid: mid, Lower: lower}
}

func closesOf(bars []bar.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// BollingerAt, KeltnerAt, STARCAt are the causal single-index forms.
func BollingerAt(closes []float64, n int, k float64, t int) (upper, mid, lower float64) {
	if t < 0 || t >= len(closes) {
		return Null(), Null(), Null()
	}
	b := Bollinger(closes[:t+1], n, k)
	return b.Upper.At(t), b.Mid.At(t), b.Lower.At(t)
}

func KeltnerAt(bars []bar.Bar, n, atrN int, mult float64, t int) (upper, mid, lower float64) {
	if t < 0 || t >= len(bars) {
		return Null(), Null(), Null()
	}
	b := Keltner(bars[:t+1], n, atrN, mult)
	return b.Upper.At(t), b.Mid.At(t), b.Lower.At(t)
}

func STARCAt(bars []bar.Bar, n, atrN int, mult float64, t int) (upper, mid, lower float64) {
	if t < 0 || t >= len(bars) {
		return Null(), Null(), Null()
	}
	b := STARC(bars[:t+1], n, atrN, mult)
	return b.Upper.At(t), b.Mid.At(t), b.Lower.At(t)
}
