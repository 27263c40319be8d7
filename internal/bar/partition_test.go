package bar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionPath_Layout(t *testing.T) {
	assert.Equal(t, "1d/symbol=BTC-USD/year=2024/data.parquet", PartitionPath("1d", "BTC-USD", 2024))
}

func TestPartitionYears_SpansCalendarYears(t *testing.T) {
	s := Series{Bars: []Bar{
		{Timestamp: time.Date(2023, 12, 30, 0, 0, 0, 0, time.UTC), Open: 1, High: 1, Low: 1, Close: 1},
		{Timestamp: time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), Open: 1, High: 1, Low: 1, Close: 1},
		{Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Open: 1, High: 1, Low: 1, Close: 1},
	}}
	assert.Equal(t, []int{2023, 2024}, PartitionYears(s))
}

func TestMetadataFor_RecordsRangeAndRowCount(t *testing.T) {
	s := Series{Symbol: "BTC-USD", Timeframe: "1d", Bars: []Bar{
		{Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Open: 1, High: 1, Low: 1, Close: 1},
		{Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Open: 1, High: 1, Low: 1, Close: 1},
	}}
	m := MetadataFor(s, "testprov", "abc123")
	assert.Equal(t, MetadataSchemaVersion, m.SchemaVersion)
	assert.Equal(t, 2, m.RowCount)
	assert.Equal(t, s.Bars[0].UTCMillis().UnixMilli(), m.StartTS)
	assert.Equal(t, "abc123", m.Checksum)
}

func TestSliceRange_HalfOpenInterval(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := Series{Symbol: "X", Timeframe: "1d"}
	for i := 0; i < 5; i++ {
		s.Bars = append(s.Bars, Bar{Timestamp: base.AddDate(0, 0, i), Open: 1, High: 1, Low: 1, Close: 1})
	}
	got := SliceRange(s, base.AddDate(0, 0, 1), base.AddDate(0, 0, 4))
	require.Len(t, got.Bars, 3)
	assert.Equal(t, base.AddDate(0, 0, 1), got.Bars[0].Timestamp)
	assert.Equal(t, base.AddDate(0, 0, 3), got.Bars[2].Timestamp)
}
