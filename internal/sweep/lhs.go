package sweep

import (
	"math"
	"math/rand"

	"github.com/sawpanic/trendlab/internal/strategy"
)

// LHSRange is one dimension's (min, max, step) bound for stratified
// sampling.
type LHSRange struct {
	Name string
	Min  float64
	Max  float64
	Step float64
}

// LatinHypercube generates n stratified samples over ranges, an alternative
// to Cartesian grid enumeration when the axis product would be too large:
// each dimension is split into n equal strata, exactly one sample lands in
// each stratum, and stratum assignments are shuffled independently per
// dimension. Projected onto any single dimension the samples cover every
// stratum, which plain random sampling does not guarantee. Values are
// quantized to the dimension's step and clamped to its bounds.
func LatinHypercube(ranges []LHSRange, n int, rng *rand.Rand) [][]float64 {
	if n <= 0 || len(ranges) == 0 {
		return nil
	}

	strata := make([][]int, len(ranges))
	for dim := range ranges {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		rng.Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		strata[dim] = idx
	}

	samples := make([][]float64, n)
	for s := 0; s < n; s++ {
		point := make([]float64, len(ranges))
		for dim, r := range ranges {
			stratumWidth := (r.Max - r.Min) / float64(n)
			stratumMin := r.Min + float64(strata[dim][s])*stratumWidth
			raw := stratumMin + rng.Float64()*stratumWidth
			point[dim] = quantize(raw, r)
		}
		samples[s] = point
	}
	return samples
}

func quantize(v float64, r LHSRange) float64 {
	if r.Step > 0 {
		v = math.Round((v-r.Min)/r.Step)*r.Step + r.Min
	}
	if v < r.Min {
		v = r.Min
	}
	if v > r.Max {
		v = r.Max
	}
	return v
}

// LHSConfigIDs materializes Latin Hypercube samples into ConfigIDs for a
// sweep run. The grid Index degenerates to the single sample ordinal, which
// keeps ranking tie-breaks and result ordering deterministic; neighbor
// sensitivity over grid distances does not apply to sampled sets.
func LHSConfigIDs(kind strategy.Kind, ranges []LHSRange, n int, build func([]float64) strategy.Config, rng *rand.Rand) []ConfigID {
	samples := LatinHypercube(ranges, n, rng)
	out := make([]ConfigID, len(samples))
	for i, params := range samples {
		out[i] = ConfigID{
			Kind:   kind,
			Index:  []int{i},
			Params: params,
			Config: build(params),
		}
	}
	return out
}
