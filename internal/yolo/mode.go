package yolo

import (
	"math/rand"

	"github.com/sawpanic/trendlab/internal/strategy"
)

// Mode is one of the four configuration-proposal strategies.
type Mode string

const (
	ModeLocalJitter      Mode = "local_jitter"
	ModeExploitWinner    Mode = "exploit_winner"
	ModePureRandom       Mode = "pure_random"
	ModeMaximizeCoverage Mode = "maximize_coverage"
)

// modeProbabilities is one phase's (local, exploit, random, coverage)
// weights per coverage phase.
type modeProbabilities struct {
	Local, Exploit, Random, Coverage float64
}

func probabilitiesFor(coverageRatio float64) modeProbabilities {
	switch {
	case coverageRatio < 0.3:
		return modeProbabilities{Local: 0.20, Exploit: 0.10, Random: 0.35, Coverage: 0.35}
	case coverageRatio < 0.6:
		return modeProbabilities{Local: 0.25, Exploit: 0.25, Random: 0.25, Coverage: 0.25}
	default:
		return modeProbabilities{Local: 0.30, Exploit: 0.35, Random: 0.15, Coverage: 0.20}
	}
}

// SelectMode draws an exploration Mode for the current coverage ratio and
// winner availability using the phase-adaptive probability table. When
// hasWinners is false, Exploit's share is redistributed
// equally to Local and Random (there is nothing to exploit yet).
func SelectMode(coverageRatio float64, hasWinners bool, rng *rand.Rand) Mode {
	p := probabilitiesFor(coverageRatio)
	if !hasWinners {
		half := p.Exploit / 2
		p.Local += half
		p.Random += half
		p.Exploit = 0
	}

	draw := rng.Float64()
	cumulative := p.Local
	if draw < cumulative {
		return ModeLocalJitter
	}
	cumulative += p.Exploit
	if draw < cumulative {
		return ModeExploitWinner
	}
	cumulative += p.Random
	if draw < cumulative {
		return ModePureRandom
	}
	return ModeMaximizeCoverage
}

// JitterRange bounds the signed fraction drawn per-parameter for local
// jitter and winner exploitation.
type JitterRange struct {
	MinPct, MaxPct float64
}

// DefaultJitterRange is a +/-15% perturbation, a reasonable default for
// "nearby" exploration around a base or winner config.
var DefaultJitterRange = JitterRange{MinPct: 0.05, MaxPct: 0.15}

// jitter perturbs each normalized coordinate of base by a signed fraction
// drawn uniformly from [MinPct, MaxPct] (magnitude), sign chosen at random,
// clamped to [0,1] (bound clamping to declared bounds happens at
// Denormalize time).
func jitter(base NormalizedConfig, r JitterRange, rng *rand.Rand) NormalizedConfig {
	out := NormalizedConfig{Kind: base.Kind, Params: make([]float64, len(base.Params))}
	for i, v := range base.Params {
		magnitude := r.MinPct + rng.Float64()*(r.MaxPct-r.MinPct)
		if rng.Float64() < 0.5 {
			magnitude = -magnitude
		}
		nv := v + magnitude
		if nv < 0 {
			nv = 0
		}
		if nv > 1 {
			nv = 1
		}
		out.Params[i] = nv
	}
	return out
}

// LocalJitter perturbs base per jitter's rule.
func LocalJitter(base NormalizedConfig, r JitterRange, rng *rand.Rand) NormalizedConfig {
	return jitter(base, r, rng)
}

// ExploitWinner picks a stored winner uniformly at random and jitters it.
// Returns false if winners is empty.
func ExploitWinner(winners []NormalizedConfig, r JitterRange, rng *rand.Rand) (NormalizedConfig, bool) {
	if len(winners) == 0 {
		return NormalizedConfig{}, false
	}
	base := winners[rng.Intn(len(winners))]
	return jitter(base, r, rng), true
}

// PureRandom samples each normalized coordinate uniformly from [0,1] (spec
// §4.8 "Pure random").
func PureRandom(kind strategy.Kind, numParams int, rng *rand.Rand) NormalizedConfig {
	params := make([]float64, numParams)
	for i := range params {
		params[i] = rng.Float64()
	}
	return NormalizedConfig{Kind: kind, Params: params}
}

// MaximizeCoverage samples candidateCells candidate cell indices uniformly
// from the declared coverage space, picks the one with minimum visit count,
// then samples a uniform-random position within that cell.
func MaximizeCoverage(cov StrategyCoverage, candidateCells int, rng *rand.Rand) NormalizedConfig {
	cellsPerAxis := cellsPerAxisOf(cov.CellSize)
	bestVisits := -1
	var bestDigits []int
	for c := 0; c < candidateCells; c++ {
		digits := randomDigits(cov.NumParams, cellsPerAxis, rng)
		idx := digitsToIndex(digits, cellsPerAxis)
		visits := cov.VisitedCells[idx]
		if bestVisits == -1 || visits < bestVisits {
			bestVisits = visits
			bestDigits = digits
		}
	}

	params := make([]float64, cov.NumParams)
	for i, d := range bestDigits {
		lo := float64(d) * cov.CellSize
		hi := lo + cov.CellSize
		if hi > 1 {
			hi = 1
		}
		params[i] = lo + rng.Float64()*(hi-lo)
	}
	return NormalizedConfig{Kind: cov.Kind, Params: params}
}

func cellsPerAxisOf(cellSize float64) int {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	n := int(1 / cellSize)
	if float64(n)*cellSize < 1 {
		n++
	}
	return n
}

func randomDigits(numParams, cellsPerAxis int, rng *rand.Rand) []int {
	out := make([]int, numParams)
	for i := range out {
		out[i] = rng.Intn(cellsPerAxis)
	}
	return out
}

func digitsToIndex(digits []int, cellsPerAxis int) int {
	idx := 0
	radix := 1
	for _, d := range digits {
		idx += d * radix
		radix *= cellsPerAxis
	}
	return idx
}
