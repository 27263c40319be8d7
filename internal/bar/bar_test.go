package bar

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/trendlab/internal/terrors"
)

func sampleSeries(n int) Series {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]Bar, n)
	for i := 0; i < n; i++ {
		px := 100.0 + float64(i)
		bars[i] = Bar{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      px,
			High:      px + 1,
			Low:       px - 1,
			Close:     px + 0.5,
			Volume:    1000,
			Symbol:    "BTC-USD",
			Timeframe: "1h",
		}
	}
	return Series{Symbol: "BTC-USD", Timeframe: "1h", Bars: bars}
}

func TestBarValidate_RejectsBadOHLC(t *testing.T) {
	b := Bar{Timestamp: time.Now(), Open: 10, High: 9, Low: 8, Close: 10.5, Volume: 1}
	err := b.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, terrors.ErrInvalidInput))
}

func TestBarValidate_RejectsNonFinite(t *testing.T) {
	b := Bar{Timestamp: time.Now(), Open: 10, High: 11, Low: 9, Close: 10, Volume: 1}
	b.Close = 1.0 / zero()
	err := b.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, terrors.ErrInvalidInput))
}

func zero() float64 { return 0 }

func TestSeriesValidate_RejectsNonMonotonic(t *testing.T) {
	s := sampleSeries(3)
	s.Bars[2].Timestamp = s.Bars[0].Timestamp
	err := s.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, terrors.ErrInvalidInput))
}

func TestDataFrameRoundTrip_PreservesValuesExactly(t *testing.T) {
	s := sampleSeries(50)
	df := ToDataFrame(s)
	require.Equal(t, s.Len(), df.Len())

	back, err := DataframeToBars(df)
	require.NoError(t, err)
	require.Equal(t, s.Len(), back.Len())

	for i := range s.Bars {
		want := s.Bars[i]
		got := back.Bars[i]
		assert.True(t, want.UTCMillis().Equal(got.Timestamp))
		assert.Equal(t, want.Open, got.Open)
		assert.Equal(t, want.High, got.High)
		assert.Equal(t, want.Low, got.Low)
		assert.Equal(t, want.Close, got.Close)
		assert.Equal(t, want.Volume, got.Volume)
		assert.Equal(t, want.Symbol, got.Symbol)
		assert.Equal(t, want.Timeframe, got.Timeframe)
	}
}

func TestDataFrameToBars_RejectsMismatchedColumnLengths(t *testing.T) {
	df := ToDataFrame(sampleSeries(5))
	df.High = df.High[:3]
	_, err := DataframeToBars(df)
	require.Error(t, err)
	assert.True(t, errors.Is(err, terrors.ErrInvalidInput))
}

func TestCheckQuality_FlagsDuplicatesGapsAndOrder(t *testing.T) {
	s := sampleSeries(5)
	// duplicate timestamp
	s.Bars[2].Timestamp = s.Bars[1].Timestamp
	// cadence gap
	s.Bars[4].Timestamp = s.Bars[3].Timestamp.Add(5 * time.Hour)

	r := CheckQuality(s, time.Hour)
	assert.Contains(t, r.DuplicateTimestamps, 2)
	assert.Contains(t, r.CadenceGaps, GapRange{Index: 4, Gap: 5 * time.Hour, ExpectedStep: time.Hour})
	assert.False(t, r.Clean())
}

func TestCheckQuality_CleanSeriesReportsClean(t *testing.T) {
	r := CheckQuality(sampleSeries(10), time.Hour)
	assert.True(t, r.Clean())
}
