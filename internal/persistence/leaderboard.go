package persistence

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"

	"github.com/sawpanic/trendlab/internal/metrics"
	"github.com/sawpanic/trendlab/internal/strategy"
	"github.com/sawpanic/trendlab/internal/sweep"
	"github.com/sawpanic/trendlab/internal/terrors"
	"github.com/sawpanic/trendlab/internal/yolo"
)

// LeaderboardSchemaVersion versions the persisted leaderboard document.
const LeaderboardSchemaVersion = 1

// EntryDoc is the on-disk shape of one all-time leaderboard row. Metrics
// infinities (profit factor with no losses) are clamped to ±MaxFloat64 on
// encode and restored on decode, since JSON has no Inf.
type EntryDoc struct {
	StrategyType string    `json:"strategy_type"`
	Params       []float64 `json:"params"`
	Symbol       string    `json:"symbol"`
	Metrics      MetricsDoc `json:"metrics"`
}

// MetricsDoc mirrors metrics.Metrics with JSON tags and Inf-safe floats.
type MetricsDoc struct {
	TotalReturn  float64 `json:"total_return"`
	CAGR         float64 `json:"cagr"`
	Sharpe       float64 `json:"sharpe"`
	Sortino      float64 `json:"sortino"`
	Calmar       float64 `json:"calmar"`
	MaxDrawdown  float64 `json:"max_drawdown"`
	WinRate      float64 `json:"win_rate"`
	ProfitFactor float64 `json:"profit_factor"`
	NumTrades    int     `json:"num_trades"`
	Turnover     float64 `json:"turnover"`

	LongestWinStreak  int     `json:"longest_win_streak"`
	LongestLoseStreak int     `json:"longest_lose_streak"`
	AvgWinStreak      float64 `json:"avg_win_streak"`
	AvgLoseStreak     float64 `json:"avg_lose_streak"`
}

// LeaderboardDoc is the full persisted all-time leaderboard.
type LeaderboardDoc struct {
	Version  int        `json:"version"`
	Capacity int        `json:"capacity"`
	Profile  string     `json:"profile"`
	Entries  []EntryDoc `json:"entries"`
}

func encodeInf(v float64) float64 {
	if math.IsInf(v, 1) {
		return math.MaxFloat64
	}
	if math.IsInf(v, -1) {
		return -math.MaxFloat64
	}
	return v
}

func decodeInf(v float64) float64 {
	if v >= math.MaxFloat64 {
		return math.Inf(1)
	}
	if v <= -math.MaxFloat64 {
		return math.Inf(-1)
	}
	return v
}

// ToMetricsDoc converts metrics.Metrics into its Inf-safe persisted shape.
func ToMetricsDoc(m metrics.Metrics) MetricsDoc {
	return MetricsDoc{
		TotalReturn:  m.TotalReturn,
		CAGR:         m.CAGR,
		Sharpe:       encodeInf(m.Sharpe),
		Sortino:      encodeInf(m.Sortino),
		Calmar:       encodeInf(m.Calmar),
		MaxDrawdown:  m.MaxDrawdown,
		WinRate:      m.WinRate,
		ProfitFactor: encodeInf(m.ProfitFactor),
		NumTrades:    m.NumTrades,
		Turnover:     m.Turnover,

		LongestWinStreak:  m.LongestWinStreak,
		LongestLoseStreak: m.LongestLoseStreak,
		AvgWinStreak:      m.AvgWinStreak,
		AvgLoseStreak:     m.AvgLoseStreak,
	}
}

// FromMetricsDoc is ToMetricsDoc's inverse.
func FromMetricsDoc(d MetricsDoc) metrics.Metrics {
	return metrics.Metrics{
		TotalReturn:  d.TotalReturn,
		CAGR:         d.CAGR,
		Sharpe:       decodeInf(d.Sharpe),
		Sortino:      decodeInf(d.Sortino),
		Calmar:       decodeInf(d.Calmar),
		MaxDrawdown:  d.MaxDrawdown,
		WinRate:      d.WinRate,
		ProfitFactor: decodeInf(d.ProfitFactor),
		NumTrades:    d.NumTrades,
		Turnover:     d.Turnover,

		LongestWinStreak:  d.LongestWinStreak,
		LongestLoseStreak: d.LongestLoseStreak,
		AvgWinStreak:      d.AvgWinStreak,
		AvgLoseStreak:     d.AvgLoseStreak,
	}
}

// ToLeaderboardDoc flattens the all-time cross-symbol leaderboard into its
// persisted shape. Per-symbol views are rebuilt from the same entries on
// load, so only the cross-symbol scope is stored.
func ToLeaderboardDoc(set *yolo.LeaderboardSet) LeaderboardDoc {
	doc := LeaderboardDoc{
		Version:  LeaderboardSchemaVersion,
		Capacity: set.Capacity,
		Profile:  set.Profile.Name,
	}
	for _, e := range set.CrossSymbol.Entries() {
		doc.Entries = append(doc.Entries, EntryDoc{
			StrategyType: string(e.ConfigID.Kind),
			Params:       e.ConfigID.Params,
			Symbol:       e.Symbol,
			Metrics:      ToMetricsDoc(e.Metrics),
		})
	}
	return doc
}

// FromLeaderboardDoc rebuilds a LeaderboardSet by replaying try_insert over
// the persisted entries under profile.
func FromLeaderboardDoc(doc LeaderboardDoc, profile yolo.RiskProfile) (*yolo.LeaderboardSet, error) {
	if doc.Version > LeaderboardSchemaVersion {
		return nil, terrors.Wrap(terrors.ErrSchema, "persisted leaderboard version is newer than this build supports", nil)
	}
	capacity := doc.Capacity
	if capacity <= 0 {
		capacity = yolo.DefaultLeaderboardCapacity
	}
	set := yolo.NewLeaderboardSet(capacity, profile)
	for _, e := range doc.Entries {
		kind := strategy.Kind(e.StrategyType)
		id := sweep.ConfigID{
			Kind:   kind,
			Params: e.Params,
			Config: yolo.BuildConfig(kind, e.Params),
		}
		set.TryInsert(id, e.Symbol, FromMetricsDoc(e.Metrics))
	}
	return set, nil
}

// LeaderboardStore persists the all-time leaderboard.
type LeaderboardStore interface {
	LoadLeaderboard(profile yolo.RiskProfile) (*yolo.LeaderboardSet, error)
	SaveLeaderboard(set *yolo.LeaderboardSet) error
}

// JSONLeaderboardStore is the default file-backed LeaderboardStore.
type JSONLeaderboardStore struct {
	Path string
}

// NewJSONLeaderboardStore constructs a JSONLeaderboardStore rooted at path.
func NewJSONLeaderboardStore(path string) *JSONLeaderboardStore {
	return &JSONLeaderboardStore{Path: path}
}

// LoadLeaderboard reads the persisted all-time leaderboard; a missing file
// yields a fresh empty set.
func (s *JSONLeaderboardStore) LoadLeaderboard(profile yolo.RiskProfile) (*yolo.LeaderboardSet, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return yolo.NewLeaderboardSet(yolo.DefaultLeaderboardCapacity, profile), nil
		}
		return nil, terrors.Wrap(terrors.ErrIO, "reading leaderboard file", err)
	}
	var doc LeaderboardDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, terrors.Wrap(terrors.ErrSchema, "decoding leaderboard file", err)
	}
	return FromLeaderboardDoc(doc, profile)
}

// SaveLeaderboard atomically writes the all-time leaderboard.
func (s *JSONLeaderboardStore) SaveLeaderboard(set *yolo.LeaderboardSet) error {
	data, err := json.MarshalIndent(ToLeaderboardDoc(set), "", "  ")
	if err != nil {
		return terrors.Wrap(terrors.ErrIO, "encoding leaderboard", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return terrors.Wrap(terrors.ErrIO, "creating leaderboard directory", err)
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return terrors.Wrap(terrors.ErrIO, "writing leaderboard temp file", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		return terrors.Wrap(terrors.ErrIO, "renaming leaderboard file", err)
	}
	return nil
}
