package persistence

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/trendlab/internal/strategy"
	"github.com/sawpanic/trendlab/internal/yolo"
)

func TestJSONFileStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewJSONFileStore(filepath.Join(dir, "state.json"))

	state := yolo.NewExplorationState()
	cov := state.CoverageFor(strategy.KindDonchianBreakout, 2)
	cov.RecordVisit(yolo.NormalizedConfig{Kind: strategy.KindDonchianBreakout, Params: []float64{0.1, 0.2}}, 1.5)
	state.Stamp("session-1", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	require.NoError(t, store.Save(state))
	loaded, err := store.Load()
	require.NoError(t, err)

	assert.Equal(t, state.SchemaVersion, loaded.SchemaVersion)
	assert.Equal(t, state.ContributingSessions, loaded.ContributingSessions)
	assert.Equal(t, state.LastUpdated, loaded.LastUpdated)

	loadedCov := loaded.Coverage[strategy.KindDonchianBreakout]
	require.NotNil(t, loadedCov)
	assert.Equal(t, 1, loadedCov.TotalTested)
	assert.Len(t, loadedCov.WinnerConfigs, 1)
}

func TestJSONFileStore_Load_MissingFileReturnsFreshState(t *testing.T) {
	store := NewJSONFileStore(filepath.Join(t.TempDir(), "missing.json"))
	state, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, yolo.CoverageSchemaVersion, state.SchemaVersion)
	assert.Empty(t, state.Coverage)
}

func TestFromDoc_RejectsNewerSchemaVersion(t *testing.T) {
	doc := StateDoc{Version: yolo.CoverageSchemaVersion + 1}
	_, err := FromDoc(doc)
	require.Error(t, err)
}
