package indicators

import "github.com/sawpanic/trendlab/internal/bar"

// ParabolicSARResult holds the SAR value and the trend direction (true =
// long/uptrend) at each bar.
type ParabolicSARResult struct {
	SAR      Column
	IsUptrend []bool
}

// ParabolicSAR computes Wilder's parabolic stop-and-reverse with the given
// acceleration step and max acceleration factor. The first bar seeds the
// trend as up with SAR at that bar's low; this is the standard
// initialization, and that seed is reported as bar 0's SAR value.
func ParabolicSAR(bars []bar.Bar, step, maxAF float64) ParabolicSARResult {
	n := len(bars)
	sar := newColumn(n)
	uptrend := make([]bool, n)
	if n == 0 {
		return ParabolicSARResult{sar, uptrend}
	}

	uptrend[0] = true
	sar[0] = bars[0].Low
	af := step
	ep := bars[0].High

	for t := 1; t < n; t++ {
		prevSAR := sar[t-1]
		prevUp := uptrend[t-1]
		next := prevSAR + af*(ep-prevSAR)

		if prevUp {
			next = minf(next, minf(bars[t-1].Low, bars[maxInt(t-2, 0)].Low))
			if bars[t].Low < next {
				uptrend[t] = false
				sar[t] = ep
				ep = bars[t].Low
				af = step
			} else {
				uptrend[t] = true
				sar[t] = next
				if bars[t].High > ep {
					ep = bars[t].High
					af = minf(af+step, maxAF)
				}
			}
		} else {
			next = maxf(next, maxf(bars[t-1].High, bars[maxInt(t-2, 0)].High))
			if bars[t].High > next {
				uptrend[t] = true
				sar[t] = ep
				ep = bars[t].High
				af = step
			} else {
				uptrend[t] = false
				sar[t] = next
				if bars[t].Low < ep {
					ep = bars[t].Low
					af = minf(af+step, maxAF)
				}
			}
		}
	}
	return ParabolicSARResult{sar, uptrend}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// ParabolicSARAt returns the causal SAR value and trend at index t.
func ParabolicSARAt(bars []bar.Bar, step, maxAF float64, t int) (sarValue float64, isUp bool) {
	if t < 0 || t >= len(bars) {
		return Null(), false
	}
	r := ParabolicSAR(bars[:t+1], step, maxAF)
	return r.SAR.At(t), r.IsUptrend[t]
}
