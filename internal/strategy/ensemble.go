package strategy

import (
	"github.com/sawpanic/trendlab/internal/bar"
	"github.com/sawpanic/trendlab/internal/terrors"
)

// VoteMethod selects how an Ensemble's members' raw conditions combine into
// a single entry/exit decision.
type VoteMethod string

const (
	// VoteMajority enters when > 50% of members' entry conditions hold and
	// exits when > 50% of members' exit conditions hold.
	VoteMajority VoteMethod = "majority"
	// VoteWeightedByHorizon weights each member proportional to its
	// horizon (its EntryLookback/Lookback/period, by Kind); entry/exit
	// fires when the weighted fraction exceeds 0.5. Weights are
	// normalized by dividing by their sum (spec's mandatory normalization).
	VoteWeightedByHorizon VoteMethod = "weighted_by_horizon"
	// VoteUnanimousEntry enters only when every member agrees; any single
	// member's exit condition is sufficient to exit.
	VoteUnanimousEntry VoteMethod = "unanimous_entry"
)

// Ensemble combines multiple members of one base Kind, each with its own
// horizon, into a single Strategy-shaped decision via VoteMethod.
type Ensemble struct {
	Members []Config
	Method  VoteMethod
}

// NewEnsemble validates that every member shares the base Kind implied by
// the first member; ensembles over mixed kinds are a configuration error.
func NewEnsemble(method VoteMethod, members ...Config) (Ensemble, error) {
	if len(members) == 0 {
		return Ensemble{}, terrors.Wrap(terrors.ErrConfiguration, "ensemble requires at least one member", nil)
	}
	base := members[0].Kind
	for _, m := range members {
		if m.Kind != base {
			return Ensemble{}, terrors.Wrap(terrors.ErrConfiguration, "ensemble members must share one strategy kind", nil)
		}
		if err := m.Validate(); err != nil {
			return Ensemble{}, err
		}
	}
	return Ensemble{Members: members, Method: method}, nil
}

// WarmupPeriod is the maximum warmup period across members.
func (e Ensemble) WarmupPeriod() int {
	max := 0
	for _, m := range e.Members {
		if w := m.WarmupPeriod(); w > max {
			max = w
		}
	}
	return max
}

// horizon is the member's defining lookback, used as its ensemble weight.
func (c Config) horizon() float64 {
	switch c.Kind {
	case KindDonchianBreakout, KindTurtleS1, KindTurtleS2:
		return float64(c.EntryLookback)
	case KindMACrossover:
		return float64(c.SlowPeriod)
	case KindTSMomentum:
		return float64(c.Lookback)
	case KindKeltner:
		return float64(c.KeltnerN)
	case KindSTARC:
		return float64(c.STARCN)
	case KindSupertrend:
		return float64(c.SupertrendATRN)
	case KindOpeningRangeBreakout:
		return float64(c.OpeningRangeN)
	default:
		return 1
	}
}

// rawEntry and rawExit apply the ensemble's VoteMethod over its members'
// raw per-bar conditions at index t.
func (e Ensemble) rawEntry(bars []bar.Bar, t int) bool {
	return e.vote(bars, t, true)
}

func (e Ensemble) rawExit(bars []bar.Bar, t int) bool {
	return e.vote(bars, t, false)
}

func (e Ensemble) vote(bars []bar.Bar, t int, entry bool) bool {
	switch e.Method {
	case VoteUnanimousEntry:
		if entry {
			for _, m := range e.Members {
				if !m.rawEntry(bars, t) {
					return false
				}
			}
			return true
		}
		for _, m := range e.Members {
			if m.rawExit(bars, t) {
				return true
			}
		}
		return false
	case VoteWeightedByHorizon:
		var weightedYes, totalWeight float64
		for _, m := range e.Members {
			w := m.horizon()
			totalWeight += w
			holds := m.rawEntry(bars, t)
			if !entry {
				holds = m.rawExit(bars, t)
			}
			if holds {
				weightedYes += w
			}
		}
		if totalWeight == 0 {
			return false
		}
		return weightedYes/totalWeight > 0.5
	default: // VoteMajority
		yes := 0
		for _, m := range e.Members {
			holds := m.rawEntry(bars, t)
			if !entry {
				holds = m.rawExit(bars, t)
			}
			if holds {
				yes++
			}
		}
		return float64(yes)/float64(len(e.Members)) > 0.5
	}
}

// Signal evaluates the ensemble's combined decision (sequential form).
func (e Ensemble) Signal(bars []bar.Bar, t int, position PositionState) Signal {
	if t < 0 || t >= len(bars) {
		return Signal{Action: ActionNone}
	}
	switch position {
	case Flat:
		if e.rawEntry(bars, t) {
			return Signal{Action: ActionBuy}
		}
	case Long:
		if e.rawExit(bars, t) {
			return Signal{Action: ActionSell}
		}
	}
	return Signal{Action: ActionNone}
}

// ApplyRawColumns computes the ensemble's combined raw_entry/raw_exit
// columns over the whole series (vectorized form), sharing e.vote with
// Signal so the two forms agree by construction.
func (e Ensemble) ApplyRawColumns(bars []bar.Bar) (rawEntry, rawExit []bool) {
	rawEntry = make([]bool, len(bars))
	rawExit = make([]bool, len(bars))
	for t := range bars {
		rawEntry[t] = e.rawEntry(bars, t)
		rawExit[t] = e.rawExit(bars, t)
	}
	return rawEntry, rawExit
}
