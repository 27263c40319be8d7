package yolo

import (
	"sort"

	"github.com/sawpanic/trendlab/internal/metrics"
	"github.com/sawpanic/trendlab/internal/sweep"
)

// DefaultLeaderboardCapacity bounds each leaderboard scope unless a caller
// picks its own size.
const DefaultLeaderboardCapacity = 50

// RiskProfile weights Metrics fields into a single composite score used to
// order the Leaderboard. Weights need not sum to 1; only their
// relative magnitude matters.
type RiskProfile struct {
	Name               string
	WeightSharpe       float64
	WeightCAGR         float64
	WeightCalmar       float64
	WeightDrawdown     float64 // applied as a penalty: -Weight*MaxDrawdown
	WeightProfitFactor float64
}

// Score computes the composite score for m under this profile. ProfitFactor
// is clamped before weighting so a +Inf profit factor cannot make every
// other field irrelevant.
func (p RiskProfile) Score(m metrics.Metrics) float64 {
	pf := m.ProfitFactor
	if pf > 100 {
		pf = 100
	}
	return p.WeightSharpe*m.Sharpe +
		p.WeightCAGR*m.CAGR +
		p.WeightCalmar*clampFinite(m.Calmar, 100) -
		p.WeightDrawdown*m.MaxDrawdown +
		p.WeightProfitFactor*pf
}

func clampFinite(v, cap float64) float64 {
	if v > cap {
		return cap
	}
	if v < -cap {
		return -cap
	}
	return v
}

// RiskProfileAggressive weights CAGR higher.
var RiskProfileAggressive = RiskProfile{Name: "aggressive", WeightSharpe: 0.5, WeightCAGR: 2.0, WeightCalmar: 0.5, WeightDrawdown: 0.5, WeightProfitFactor: 0.5}

// RiskProfileConservative weights drawdown higher.
var RiskProfileConservative = RiskProfile{Name: "conservative", WeightSharpe: 1.0, WeightCAGR: 0.5, WeightCalmar: 0.5, WeightDrawdown: 3.0, WeightProfitFactor: 0.5}

// RiskProfileBalanced weights every field evenly, the default cycled
// profile before a user picks one explicitly.
var RiskProfileBalanced = RiskProfile{Name: "balanced", WeightSharpe: 1.0, WeightCAGR: 1.0, WeightCalmar: 1.0, WeightDrawdown: 1.0, WeightProfitFactor: 1.0}

// Entry is one Leaderboard row.
type Entry struct {
	ConfigID sweep.ConfigID
	Symbol   string
	Metrics  metrics.Metrics
	Score    float64
}

// Leaderboard is a bounded set of Entry ranked by a RiskProfile's composite
// score. Insertion is try_insert: append while under capacity,
// otherwise replace the worst entry if the candidate scores higher.
type Leaderboard struct {
	Capacity int
	Profile  RiskProfile
	entries  []Entry
}

// NewLeaderboard constructs an empty Leaderboard bounded to capacity,
// scored under profile.
func NewLeaderboard(capacity int, profile RiskProfile) *Leaderboard {
	return &Leaderboard{Capacity: capacity, Profile: profile}
}

// TryInsert: if capacity is free, append;
// otherwise replace the worst entry (by the active risk profile's composite
// score) if candidate scores strictly better. Returns whether the entry was
// kept.
func (l *Leaderboard) TryInsert(configID sweep.ConfigID, symbol string, m metrics.Metrics) bool {
	score := l.Profile.Score(m)
	candidate := Entry{ConfigID: configID, Symbol: symbol, Metrics: m, Score: score}

	if len(l.entries) < l.Capacity {
		l.entries = append(l.entries, candidate)
		l.sort()
		return true
	}
	if len(l.entries) == 0 {
		return false
	}
	worstIdx := len(l.entries) - 1
	if candidate.Score <= l.entries[worstIdx].Score {
		return false
	}
	l.entries[worstIdx] = candidate
	l.sort()
	return true
}

func (l *Leaderboard) sort() {
	sort.Slice(l.entries, func(i, j int) bool {
		if l.entries[i].Score != l.entries[j].Score {
			return l.entries[i].Score > l.entries[j].Score
		}
		return l.entries[i].ConfigID.String() < l.entries[j].ConfigID.String()
	})
}

// Entries returns the Leaderboard's current entries, best first.
func (l *Leaderboard) Entries() []Entry {
	return append([]Entry(nil), l.entries...)
}

// Rescore reapplies a new RiskProfile to every entry and re-sorts — used
// when the user cycles the active risk profile.
func (l *Leaderboard) Rescore(profile RiskProfile) {
	l.Profile = profile
	for i := range l.entries {
		l.entries[i].Score = profile.Score(l.entries[i].Metrics)
	}
	l.sort()
}

// LeaderboardSet is one scope's pair of views: a cross-symbol leaderboard
// plus a per-symbol leaderboard for every symbol seen.
type LeaderboardSet struct {
	Capacity    int
	Profile     RiskProfile
	CrossSymbol *Leaderboard
	PerSymbol   map[string]*Leaderboard
}

// NewLeaderboardSet constructs an empty LeaderboardSet.
func NewLeaderboardSet(capacity int, profile RiskProfile) *LeaderboardSet {
	return &LeaderboardSet{
		Capacity:    capacity,
		Profile:     profile,
		CrossSymbol: NewLeaderboard(capacity, profile),
		PerSymbol:   map[string]*Leaderboard{},
	}
}

// TryInsert inserts into both the cross-symbol and the symbol's own
// Leaderboard.
func (s *LeaderboardSet) TryInsert(configID sweep.ConfigID, symbol string, m metrics.Metrics) {
	s.CrossSymbol.TryInsert(configID, symbol, m)
	lb, ok := s.PerSymbol[symbol]
	if !ok {
		lb = NewLeaderboard(s.Capacity, s.Profile)
		s.PerSymbol[symbol] = lb
	}
	lb.TryInsert(configID, symbol, m)
}

// Rescore reapplies profile across both scopes.
func (s *LeaderboardSet) Rescore(profile RiskProfile) {
	s.Profile = profile
	s.CrossSymbol.Rescore(profile)
	for _, lb := range s.PerSymbol {
		lb.Rescore(profile)
	}
}

// ApplyProposals serializes parallel-worker proposed entries through a
// single-owner deterministic pass.
func ApplyProposals(set *LeaderboardSet, proposals []Entry) {
	sort.Slice(proposals, func(i, j int) bool {
		return proposals[i].ConfigID.String() < proposals[j].ConfigID.String()
	})
	for _, p := range proposals {
		set.TryInsert(p.ConfigID, p.Symbol, p.Metrics)
	}
}
