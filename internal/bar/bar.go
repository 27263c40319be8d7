// Package bar implements the Bar Store: the typed OHLCV record, its
// ordered series container, and the columnar DataFrame view used by the
// vectorized indicator and strategy paths.
package bar

import (
	"fmt"
	"math"
	"time"

	"github.com/sawpanic/trendlab/internal/terrors"
)

// Bar is an immutable OHLCV record at millisecond UTC precision.
type Bar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Symbol    string
	Timeframe string
}

// Validate checks the OHLC invariant low <= min(open,close) <= max(open,close) <= high
// and that all prices/volume are finite and non-negative.
func (b Bar) Validate() error {
	for _, v := range []float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return terrors.Wrap(terrors.ErrInvalidInput, fmt.Sprintf("non-finite price/volume at %s", b.Timestamp), nil)
		}
		if v < 0 {
			return terrors.Wrap(terrors.ErrInvalidInput, fmt.Sprintf("negative price/volume at %s", b.Timestamp), nil)
		}
	}
	lo := math.Min(b.Open, b.Close)
	hi := math.Max(b.Open, b.Close)
	if !(b.Low <= lo && lo <= hi && hi <= b.High) {
		return terrors.Wrap(terrors.ErrInvalidInput, fmt.Sprintf("OHLC inconsistency at %s", b.Timestamp), nil)
	}
	return nil
}

// UTCMillis truncates the bar's timestamp to UTC millisecond precision, the
// normalization DataFrame<->Series round-trips preserve exactly.
func (b Bar) UTCMillis() time.Time {
	return b.Timestamp.UTC().Truncate(time.Millisecond)
}

// Series is an ordered sequence of Bars sharing (symbol, timeframe).
type Series struct {
	Symbol    string
	Timeframe string
	Bars      []Bar
}

// Len returns the number of bars in the series.
func (s Series) Len() int { return len(s.Bars) }

// Validate checks strictly increasing timestamps and per-bar OHLC invariants.
func (s Series) Validate() error {
	for i, b := range s.Bars {
		if err := b.Validate(); err != nil {
			return err
		}
		if i > 0 && !s.Bars[i].Timestamp.After(s.Bars[i-1].Timestamp) {
			return terrors.Wrap(terrors.ErrInvalidInput,
				fmt.Sprintf("non-monotonic timestamp at index %d", i), nil)
		}
	}
	return nil
}

// Closes returns the slice of closing prices, a common input to indicator
// helper functions that operate on a bare price series.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}
