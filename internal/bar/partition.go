package bar

import (
	"fmt"
	"path"
	"time"
)

// PartitionPath is the on-disk bar store layout consumed by the core:
// {timeframe}/symbol={symbol}/year={year}/data.parquet.
func PartitionPath(timeframe, symbol string, year int) string {
	return path.Join(timeframe, "symbol="+symbol, fmt.Sprintf("year=%d", year), "data.parquet")
}

// MetadataSchemaVersion versions the cache metadata sidecar.
const MetadataSchemaVersion = 1

// CacheMetadata is the sidecar written next to each partition, recording
// provenance so a reader can detect stale or truncated partitions without
// opening the data file.
type CacheMetadata struct {
	SchemaVersion int    `json:"schema_version"`
	Provider      string `json:"provider"`
	Symbol        string `json:"symbol"`
	Timeframe     string `json:"timeframe"`
	StartTS       int64  `json:"start_ts"` // UTC milliseconds
	EndTS         int64  `json:"end_ts"`
	RowCount      int    `json:"row_count"`
	Checksum      string `json:"checksum"`
}

// MetadataFor derives the sidecar record for a Series fetched from
// provider, with checksum supplied by the writer.
func MetadataFor(s Series, provider, checksum string) CacheMetadata {
	m := CacheMetadata{
		SchemaVersion: MetadataSchemaVersion,
		Provider:      provider,
		Symbol:        s.Symbol,
		Timeframe:     s.Timeframe,
		RowCount:      len(s.Bars),
		Checksum:      checksum,
	}
	if len(s.Bars) > 0 {
		m.StartTS = s.Bars[0].UTCMillis().UnixMilli()
		m.EndTS = s.Bars[len(s.Bars)-1].UTCMillis().UnixMilli()
	}
	return m
}

// PartitionYears lists the calendar years a Series spans, in order, so a
// writer knows which partitions a snapshot touches.
func PartitionYears(s Series) []int {
	var years []int
	seen := map[int]bool{}
	for _, b := range s.Bars {
		y := b.Timestamp.UTC().Year()
		if !seen[y] {
			seen[y] = true
			years = append(years, y)
		}
	}
	return years
}

// SliceRange returns the bars within [start, end), preserving order. Used
// by read(symbol, timeframe, date_range) implementations after a partition
// load.
func SliceRange(s Series, start, end time.Time) Series {
	out := Series{Symbol: s.Symbol, Timeframe: s.Timeframe}
	for _, b := range s.Bars {
		if b.Timestamp.Before(start) || !b.Timestamp.Before(end) {
			continue
		}
		out.Bars = append(out.Bars, b)
	}
	return out
}
