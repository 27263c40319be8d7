package indicators

import "github.com/sawpanic/trendlab/internal/bar"

// DMIADX holds the directional movement and average directional index
// columns, all Wilder-smoothed over the same window n.
type DMIADX struct {
	PlusDI  Column
	MinusDI Column
	ADX     Column
}

// DMIADXCompute computes +DI, -DI and ADX over window n using Wilder
// smoothing of the directional movement and true range series.
func DMIADXCompute(bars []bar.Bar, n int) DMIADX {
	plusDM := newColumn(len(bars))
	minusDM := newColumn(len(bars))
	for t := 1; t < len(bars); t++ {
		upMove := bars[t].High - bars[t-1].High
		downMove := bars[t-1].Low - bars[t].Low
		pdm, mdm := 0.0, 0.0
		if upMove > downMove && upMove > 0 {
			pdm = upMove
		}
		if downMove > upMove && downMove > 0 {
			mdm = downMove
		}
		plusDM[t] = pdm
		minusDM[t] = mdm
	}
	tr := TrueRange(bars)

	smoothedTR := wilderSmoothFromRaw(tr, n)
	smoothedPlusDM := wilderSmoothFromRaw(plusDM, n)
	smoothedMinusDM := wilderSmoothFromRaw(minusDM, n)

	plusDI := newColumn(len(bars))
	minusDI := newColumn(len(bars))
	dx := newColumn(len(bars))
	for t := range bars {
		strTR := smoothedTR.At(t)
		if IsNull(strTR) || strTR == 0 {
			continue
		}
		pdi := 100 * smoothedPlusDM.At(t) / strTR
		mdi := 100 * smoothedMinusDM.At(t) / strTR
		plusDI[t] = pdi
		minusDI[t] = mdi
		denom := pdi + mdi
		if denom != 0 {
			dx[t] = 100 * absf(pdi-mdi) / denom
		}
	}
	adx := wilderSmoothFromRaw(dx, n)
	return DMIADX{PlusDI: plusDI, MinusDI: minusDI, ADX: adx}
}

// wilderSmoothFromRaw applies Wilder smoothing (alpha=1/n) to an already
// causal raw column, seeding with the SMA of its first n values starting at
// the first non-null index from 1 on (index 0 is always skipped, since
// directional movement needs a prior bar).
func wilderSmoothFromRaw(raw Column, n int) Column {
	out := newColumn(len(raw))
	start := 1
	for start < len(raw) && IsNull(raw[start]) {
		start++
	}
	if n <= 0 || len(raw) < start+n {
		return out
	}
	var seedSum float64
	for i := start; i < start+n; i++ {
		seedSum += raw[i]
	}
	seed := seedSum / float64(n)
	out[start+n-1] = seed
	prev := seed
	for t := start + n; t < len(raw); t++ {
		v := (prev*float64(n-1) + raw[t]) / float64(n)
		out[t] = v
		prev = v
	}
	return out
}

// DMIADXAt returns the causal ADX value at index t.
func DMIADXAt(bars []bar.Bar, n, t int) float64 {
	if t < 0 || t >= len(bars) {
		return Null()
	}
	return DMIADXCompute(bars[:t+1], n).ADX.At(t)
}
