package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/trendlab/internal/bar"
	"github.com/sawpanic/trendlab/internal/terrors"
)

// barRow is the JSON row shape of a bars file: the resolved output of the
// external data provider, already fetched and cached by that collaborator.
type barRow struct {
	TS     int64   `json:"ts"` // UTC milliseconds
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// loadBars reads a bars file into a validated Series tagged with the
// configured symbol and timeframe, logging (but not failing on) quality
// findings.
func loadBars(cfg AppConfig) (bar.Series, error) {
	data, err := os.ReadFile(cfg.BarsFile)
	if err != nil {
		return bar.Series{}, terrors.Wrap(terrors.ErrIO, "reading bars file", err)
	}
	var rows []barRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return bar.Series{}, terrors.Wrap(terrors.ErrInvalidInput, "decoding bars file", err)
	}
	if len(rows) == 0 {
		return bar.Series{}, terrors.Wrap(terrors.ErrDataUnavailable, "bars file contains no rows for "+cfg.Symbol, nil)
	}

	bars := make([]bar.Bar, len(rows))
	for i, r := range rows {
		bars[i] = bar.Bar{
			Timestamp: time.UnixMilli(r.TS).UTC(),
			Open:      r.Open, High: r.High, Low: r.Low, Close: r.Close,
			Volume:    r.Volume,
			Symbol:    cfg.Symbol,
			Timeframe: cfg.Timeframe,
		}
	}
	series := bar.Series{Symbol: cfg.Symbol, Timeframe: cfg.Timeframe, Bars: bars}
	if err := series.Validate(); err != nil {
		return bar.Series{}, err
	}

	if report := bar.CheckQuality(series, timeframeStep(cfg.Timeframe)); !report.Clean() {
		log.Warn().
			Str("symbol", cfg.Symbol).
			Int("duplicate_ts", len(report.DuplicateTimestamps)).
			Int("cadence_gaps", len(report.CadenceGaps)).
			Int("ohlc_inconsistent", len(report.OHLCInconsistent)).
			Msg("bar quality findings; proceeding")
	}
	return series, nil
}

func timeframeStep(timeframe string) time.Duration {
	switch timeframe {
	case "1h":
		return time.Hour
	case "4h":
		return 4 * time.Hour
	case "1d", "":
		return 24 * time.Hour
	default:
		return 0 // unknown cadence: skip gap detection
	}
}
