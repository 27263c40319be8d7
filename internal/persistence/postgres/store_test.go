package postgres

import (
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/trendlab/internal/metrics"
	"github.com/sawpanic/trendlab/internal/persistence"
	"github.com/sawpanic/trendlab/internal/strategy"
	"github.com/sawpanic/trendlab/internal/sweep"
	"github.com/sawpanic/trendlab/internal/yolo"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(sqlx.NewDb(db, "sqlmock"), "default", time.Second), mock
}

func TestLoad_MissingRowReturnsFreshState(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT doc FROM exploration_state WHERE name = $1`)).
		WithArgs("default").
		WillReturnRows(sqlmock.NewRows([]string{"doc"}))

	state, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, yolo.CoverageSchemaVersion, state.SchemaVersion)
	assert.Empty(t, state.Coverage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoad_DecodesStoredDoc(t *testing.T) {
	store, mock := newMockStore(t)

	state := yolo.NewExplorationState()
	cov := state.CoverageFor(strategy.KindDonchianBreakout, 2)
	cov.RecordVisit(yolo.NormalizedConfig{Kind: strategy.KindDonchianBreakout, Params: []float64{0.3, 0.4}}, 0.8)
	doc, err := json.Marshal(persistence.ToDoc(state))
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT doc FROM exploration_state WHERE name = $1`)).
		WithArgs("default").
		WillReturnRows(sqlmock.NewRows([]string{"doc"}).AddRow(doc))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Contains(t, loaded.Coverage, strategy.KindDonchianBreakout)
	assert.Equal(t, 1, loaded.Coverage[strategy.KindDonchianBreakout].TotalTested)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSave_UpsertsDoc(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO exploration_state`)).
		WithArgs("default", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Save(yolo.NewExplorationState()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaderboard_RoundTripThroughRows(t *testing.T) {
	store, mock := newMockStore(t)

	set := yolo.NewLeaderboardSet(10, yolo.RiskProfileBalanced)
	cfg := yolo.BuildConfig(strategy.KindDonchianBreakout, []float64{20, 10})
	id := sweep.ConfigID{Kind: cfg.Kind, Params: []float64{20, 10}, Config: cfg}
	set.TryInsert(id, "BTC-USD", metrics.Metrics{Sharpe: 1.2, CAGR: 0.3, NumTrades: 12})

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO leaderboard`)).
		WithArgs("default", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, store.SaveLeaderboard(set))

	captured, err := json.Marshal(persistence.ToLeaderboardDoc(set))
	require.NoError(t, err)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT doc FROM leaderboard WHERE name = $1`)).
		WithArgs("default").
		WillReturnRows(sqlmock.NewRows([]string{"doc"}).AddRow(captured))

	loaded, err := store.LoadLeaderboard(yolo.RiskProfileBalanced)
	require.NoError(t, err)
	entries := loaded.CrossSymbol.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "BTC-USD", entries[0].Symbol)
	assert.Equal(t, strategy.KindDonchianBreakout, entries[0].ConfigID.Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}
