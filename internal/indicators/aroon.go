package indicators

import "github.com/sawpanic/trendlab/internal/bar"

// Aroon holds the up/down oscillator columns over window n.
type Aroon struct {
	Up   Column
	Down Column
}

// AroonCompute computes Aroon-Up/Down: 100 * (n - bars since the most
// recent n-bar high/low) / n, over the trailing window [t-n, t].
func AroonCompute(bars []bar.Bar, n int) Aroon {
	up := newColumn(len(bars))
	down := newColumn(len(bars))
	if n <= 0 {
		return Aroon{up, down}
	}
	for t := range bars {
		if t < n {
			continue
		}
		hiIdx, loIdx := t-n, t-n
		for i := t - n; i <= t; i++ {
			if bars[i].High > bars[hiIdx].High {
				hiIdx = i
			}
			if bars[i].Low < bars[loIdx].Low {
				loIdx = i
			}
		}
		up[t] = 100 * float64(n-(t-hiIdx)) / float64(n)
		down[t] = 100 * float64(n-(t-loIdx)) / float64(n)
	}
	return Aroon{up, down}
}

// AroonAt returns the causal Aroon values at index t.
func AroonAt(bars []bar.Bar, n, t int) (up, down float64) {
	if t < 0 || t >= len(bars) {
		return Null(), Null()
	}
	a := AroonCompute(bars[:t+1], n)
	return a.Up.At(t), a.Down.At(t)
}
