package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/trendlab/internal/bar"
)

func ascendingBars(n int) []bar.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]bar.Bar, n)
	for i := 0; i < n; i++ {
		px := 100.0 + float64(i)
		out[i] = bar.Bar{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      px, High: px + 0.5, Low: px - 0.5, Close: px,
			Volume: 100, Symbol: "BTC-USD", Timeframe: "1h",
		}
	}
	return out
}

func TestDonchianBreakout_SignalMatchesVectorizedColumns(t *testing.T) {
	bars := ascendingBars(40)
	cfg := DonchianBreakout(10, 5)

	rawEntry, rawExit := cfg.ApplyRawColumns(bars)
	for tpos := 0; tpos < len(bars); tpos++ {
		seqEntry := cfg.Signal(bars, tpos, Flat).Action == ActionBuy
		seqExit := cfg.Signal(bars, tpos, Long).Action == ActionSell
		assert.Equal(t, rawEntry[tpos], seqEntry, "entry mismatch at %d", tpos)
		assert.Equal(t, rawExit[tpos], seqExit, "exit mismatch at %d", tpos)
	}
}

func TestDonchianBreakout_EntersOnlyAfterLookbackPeriod(t *testing.T) {
	bars := ascendingBars(30)
	cfg := DonchianBreakout(10, 5)
	// strictly ascending closes: entry condition (close > prior-10-high)
	// is true every bar from the first bar the channel is defined (t=10)
	// onward; it must not fire before that.
	for tpos := 0; tpos < 10; tpos++ {
		assert.False(t, cfg.Signal(bars, tpos, Flat).Action == ActionBuy, "premature entry at %d", tpos)
	}
	assert.Equal(t, ActionBuy, cfg.Signal(bars, 10, Flat).Action)
}

func TestConfigValidate_RejectsBadParams(t *testing.T) {
	require.Error(t, DonchianBreakout(0, 5).Validate())
	require.Error(t, MACrossover(20, 10, MATypeSMA).Validate())
	require.NoError(t, MACrossover(10, 20, MATypeSMA).Validate())
}

// TestEnsemble_UnanimousVsMajority: three Donchian
// members (10,20,55); at bar t two of three satisfy the entry condition.
// Expected: no entry under unanimous, entry under majority.
func TestEnsemble_UnanimousVsMajority(t *testing.T) {
	// Construct a series where channels(10) and (20) break out at the same
	// bar but channel(55) has not yet accumulated enough history to ever
	// agree within the test window, giving a clean 2-of-3 split.
	bars := ascendingBars(60)

	members := []Config{
		DonchianBreakout(10, 5),
		DonchianBreakout(20, 5),
		DonchianBreakout(55, 5),
	}

	unanimous, err := NewEnsemble(VoteUnanimousEntry, members...)
	require.NoError(t, err)
	majority, err := NewEnsemble(VoteMajority, members...)
	require.NoError(t, err)

	tpos := 25 // channel(55) not yet defined (needs t>=55); channels(10,20) are, and break out
	require.True(t, members[0].rawEntry(bars, tpos))
	require.True(t, members[1].rawEntry(bars, tpos))
	require.False(t, members[2].rawEntry(bars, tpos))

	assert.False(t, unanimous.Signal(bars, tpos, Flat).Action == ActionBuy)
	assert.True(t, majority.Signal(bars, tpos, Flat).Action == ActionBuy)
}

func TestEnsemble_SignalMatchesVectorizedColumns(t *testing.T) {
	bars := ascendingBars(70)
	members := []Config{DonchianBreakout(10, 5), DonchianBreakout(20, 8), DonchianBreakout(30, 12)}
	ens, err := NewEnsemble(VoteWeightedByHorizon, members...)
	require.NoError(t, err)

	rawEntry, rawExit := ens.ApplyRawColumns(bars)
	for tpos := 0; tpos < len(bars); tpos++ {
		seqEntry := ens.Signal(bars, tpos, Flat).Action == ActionBuy
		seqExit := ens.Signal(bars, tpos, Long).Action == ActionSell
		assert.Equal(t, rawEntry[tpos], seqEntry, "entry mismatch at %d", tpos)
		assert.Equal(t, rawExit[tpos], seqExit, "exit mismatch at %d", tpos)
	}
}

func TestNewEnsemble_RejectsMixedKinds(t *testing.T) {
	_, err := NewEnsemble(VoteMajority, DonchianBreakout(10, 5), TimeSeriesMomentum(20))
	require.Error(t, err)
}

func TestNewEnsemble_RejectsEmpty(t *testing.T) {
	_, err := NewEnsemble(VoteMajority)
	require.Error(t, err)
}
