package persistence

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/trendlab/internal/metrics"
	"github.com/sawpanic/trendlab/internal/strategy"
	"github.com/sawpanic/trendlab/internal/sweep"
	"github.com/sawpanic/trendlab/internal/yolo"
)

func TestJSONLeaderboardStore_RoundTrip(t *testing.T) {
	store := NewJSONLeaderboardStore(filepath.Join(t.TempDir(), "leaderboard.json"))

	set := yolo.NewLeaderboardSet(10, yolo.RiskProfileBalanced)
	cfg := yolo.BuildConfig(strategy.KindDonchianBreakout, []float64{20, 10})
	id := sweep.ConfigID{Kind: cfg.Kind, Params: []float64{20, 10}, Config: cfg}
	set.TryInsert(id, "BTC-USD", metrics.Metrics{
		Sharpe: 1.4, CAGR: 0.25, ProfitFactor: math.Inf(1), WinRate: 1.0, NumTrades: 8,
	})

	require.NoError(t, store.SaveLeaderboard(set))
	loaded, err := store.LoadLeaderboard(yolo.RiskProfileBalanced)
	require.NoError(t, err)

	entries := loaded.CrossSymbol.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "BTC-USD", entries[0].Symbol)
	assert.True(t, math.IsInf(entries[0].Metrics.ProfitFactor, 1), "infinity survives the JSON round trip")

	perSymbol, ok := loaded.PerSymbol["BTC-USD"]
	require.True(t, ok, "per-symbol view is rebuilt from the persisted entries")
	assert.Len(t, perSymbol.Entries(), 1)
}

func TestJSONLeaderboardStore_MissingFileIsFreshSet(t *testing.T) {
	store := NewJSONLeaderboardStore(filepath.Join(t.TempDir(), "missing.json"))
	set, err := store.LoadLeaderboard(yolo.RiskProfileConservative)
	require.NoError(t, err)
	assert.Empty(t, set.CrossSymbol.Entries())
	assert.Equal(t, yolo.DefaultLeaderboardCapacity, set.Capacity)
}

func TestFromLeaderboardDoc_RejectsNewerVersion(t *testing.T) {
	_, err := FromLeaderboardDoc(LeaderboardDoc{Version: LeaderboardSchemaVersion + 1}, yolo.RiskProfileBalanced)
	require.Error(t, err)
}
