package bar

import (
	"fmt"
	"time"

	"github.com/sawpanic/trendlab/internal/terrors"
)

// DataFrame is a column-oriented projection of one or more Series: parallel
// typed arrays of identical length, the shape the vectorized indicator and
// strategy paths operate on.
type DataFrame struct {
	Timestamp []time.Time
	Open      []float64
	High      []float64
	Low       []float64
	Close     []float64
	Volume    []float64
	Symbol    []string
	Timeframe []string
}

// Len returns the number of rows, derived from the Timestamp column.
func (df DataFrame) Len() int { return len(df.Timestamp) }

// ToDataFrame builds a columnar view from a Series, losslessly except that
// timestamps are normalized to UTC milliseconds.
func ToDataFrame(s Series) DataFrame {
	n := len(s.Bars)
	df := DataFrame{
		Timestamp: make([]time.Time, n),
		Open:      make([]float64, n),
		High:      make([]float64, n),
		Low:       make([]float64, n),
		Close:     make([]float64, n),
		Volume:    make([]float64, n),
		Symbol:    make([]string, n),
		Timeframe: make([]string, n),
	}
	for i, b := range s.Bars {
		df.Timestamp[i] = b.UTCMillis()
		df.Open[i] = b.Open
		df.High[i] = b.High
		df.Low[i] = b.Low
		df.Close[i] = b.Close
		df.Volume[i] = b.Volume
		df.Symbol[i] = b.Symbol
		df.Timeframe[i] = b.Timeframe
	}
	return df
}

// DataframeToBars is the inverse of ToDataFrame, reconstructing a Series
// from its columnar projection. Column lengths must agree; the result
// carries the symbol/timeframe of the first row as the series tag.
func DataframeToBars(df DataFrame) (Series, error) {
	n := df.Len()
	lengths := [][]int{
		{len(df.Open), n}, {len(df.High), n}, {len(df.Low), n},
		{len(df.Close), n}, {len(df.Volume), n}, {len(df.Symbol), n}, {len(df.Timeframe), n},
	}
	for _, pair := range lengths {
		if pair[0] != pair[1] {
			return Series{}, terrors.Wrap(terrors.ErrInvalidInput,
				fmt.Sprintf("dataframe column length mismatch: got %d want %d", pair[0], pair[1]), nil)
		}
	}
	bars := make([]Bar, n)
	for i := 0; i < n; i++ {
		bars[i] = Bar{
			Timestamp: df.Timestamp[i].UTC().Truncate(time.Millisecond),
			Open:      df.Open[i],
			High:      df.High[i],
			Low:       df.Low[i],
			Close:     df.Close[i],
			Volume:    df.Volume[i],
			Symbol:    df.Symbol[i],
			Timeframe: df.Timeframe[i],
		}
	}
	var symbol, timeframe string
	if n > 0 {
		symbol, timeframe = bars[0].Symbol, bars[0].Timeframe
	}
	return Series{Symbol: symbol, Timeframe: timeframe, Bars: bars}, nil
}
