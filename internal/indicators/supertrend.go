package indicators

import "github.com/sawpanic/trendlab/internal/bar"

// SupertrendResult holds the trailing-stop line and its trend direction.
type SupertrendResult struct {
	Line     Column
	IsUptrend []bool
}

// Supertrend computes the standard ATR-band trailing-stop indicator: a
// basic band at (high+low)/2 +/- mult*ATR(atrN), ratcheted so the band only
// ever tightens toward price within a trend, flipping when price closes
// through the opposite band.
func Supertrend(bars []bar.Bar, atrN int, mult float64) SupertrendResult {
	n := len(bars)
	line := newColumn(n)
	up := make([]bool, n)
	atr := ATRWilder(bars, atrN)

	finalUpper := make([]float64, n)
	finalLower := make([]float64, n)

	for t := 0; t < n; t++ {
		if IsNull(atr.At(t)) {
			continue
		}
		mid := (bars[t].High + bars[t].Low) / 2
		basicUpper := mid + mult*atr[t]
		basicLower := mid - mult*atr[t]

		if t == 0 || IsNull(atr.At(t-1)) {
			finalUpper[t] = basicUpper
			finalLower[t] = basicLower
			up[t] = bars[t].Close >= (basicUpper+basicLower)/2
			if up[t] {
				line[t] = finalLower[t]
			} else {
				line[t] = finalUpper[t]
			}
			continue
		}

		if basicUpper < finalUpper[t-1] || bars[t-1].Close > finalUpper[t-1] {
			finalUpper[t] = basicUpper
		} else {
			finalUpper[t] = finalUpper[t-1]
		}
		if basicLower > finalLower[t-1] || bars[t-1].Close < finalLower[t-1] {
			finalLower[t] = basicLower
		} else {
			finalLower[t] = finalLower[t-1]
		}

		prevUp := up[t-1]
		switch {
		case prevUp && bars[t].Close <= finalLower[t]:
			up[t] = false
		case !prevUp && bars[t].Close >= finalUpper[t]:
			up[t] = true
		default:
			up[t] = prevUp
		}

		if up[t] {
			line[t] = finalLower[t]
		} else {
			line[t] = finalUpper[t]
		}
	}
	return SupertrendResult{Line: line, IsUptrend: up}
}

// SupertrendAt is the causal single-index form.
func SupertrendAt(bars []bar.Bar, atrN int, mult float64, t int) (line float64, isUp bool) {
	if t < 0 || t >= len(bars) {
		return Null(), false
	}
	r := Supertrend(bars[:t+1], atrN, mult)
	return r.Line.At(t), r.IsUptrend[t]
}
