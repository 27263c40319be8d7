package bar

import "time"

// QualityReport is a non-fatal diagnostic summary produced over a Series; it
// never rejects data, only surfaces rows worth a human's attention.
type QualityReport struct {
	DuplicateTimestamps []int // indices of bars sharing a timestamp with their predecessor
	OutOfOrder          []int // indices where timestamp did not strictly increase
	CadenceGaps         []GapRange
	OHLCInconsistent    []int // indices failing low<=min(o,c)<=max(o,c)<=high
}

// GapRange flags a cadence gap: the bar at Index is further from its
// predecessor than ExpectedStep would allow.
type GapRange struct {
	Index        int
	Gap          time.Duration
	ExpectedStep time.Duration
}

// CheckQuality scans a Series and reports anomalies without mutating or
// rejecting the input. expectedStep is the nominal bar cadence (e.g. 1h);
// pass 0 to skip cadence-gap detection.
func CheckQuality(s Series, expectedStep time.Duration) QualityReport {
	var r QualityReport
	for i, b := range s.Bars {
		lo := min2(b.Open, b.Close)
		hi := max2(b.Open, b.Close)
		if !(b.Low <= lo && lo <= hi && hi <= b.High) {
			r.OHLCInconsistent = append(r.OHLCInconsistent, i)
		}
		if i == 0 {
			continue
		}
		prev := s.Bars[i-1]
		switch {
		case b.Timestamp.Equal(prev.Timestamp):
			r.DuplicateTimestamps = append(r.DuplicateTimestamps, i)
		case b.Timestamp.Before(prev.Timestamp):
			r.OutOfOrder = append(r.OutOfOrder, i)
		case expectedStep > 0:
			gap := b.Timestamp.Sub(prev.Timestamp)
			if gap > expectedStep {
				r.CadenceGaps = append(r.CadenceGaps, GapRange{Index: i, Gap: gap, ExpectedStep: expectedStep})
			}
		}
	}
	return r
}

// Clean reports whether no anomalies of any kind were found.
func (r QualityReport) Clean() bool {
	return len(r.DuplicateTimestamps) == 0 && len(r.OutOfOrder) == 0 &&
		len(r.CadenceGaps) == 0 && len(r.OHLCInconsistent) == 0
}

func min2(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max2(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
