package yolo

import (
	"math"

	"github.com/sawpanic/trendlab/internal/strategy"
)

// CoverageSchemaVersion is the persisted ExplorationState's schema
// version; loaders tolerate unknown trailing fields and reject unknown
// leading version numbers.
const CoverageSchemaVersion = 1

// DefaultCellSize is the fixed coverage-cell edge length in normalized
// parameter space.
const DefaultCellSize = 0.1

// DefaultMaxWinners is the bounded winner set's default capacity (spec
// §4.8).
const DefaultMaxWinners = 500

// CellIndex computes the mixed-radix integer index of a normalized
// parameter vector's cell, keeping coverage a flat counter map instead of
// nested per-axis structures. cellsPerAxis = ceil(1/cellSize); each
// coordinate contributes digit_i * cellsPerAxis^i, so params=[0.15,0.75]
// at cellSize=0.1 lands in cell 1 + 7*10 = 71.
func CellIndex(params []float64, cellSize float64) int {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	cellsPerAxis := int(math.Ceil(1 / cellSize))
	index := 0
	radix := 1
	for _, p := range params {
		digit := int(p / cellSize)
		if digit >= cellsPerAxis {
			digit = cellsPerAxis - 1
		}
		if digit < 0 {
			digit = 0
		}
		index += digit * radix
		radix *= cellsPerAxis
	}
	return index
}

// TotalCells is cellsPerAxis^numParams, the denominator of coverage ratio.
func TotalCells(numParams int, cellSize float64) int {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	cellsPerAxis := int(math.Ceil(1 / cellSize))
	total := 1
	for i := 0; i < numParams; i++ {
		total *= cellsPerAxis
	}
	return total
}

// StrategyCoverage tracks one strategy Kind's exploration progress: cell
// size, per-cell visit counts (keyed by CellIndex, a flat map rather than a
// nested arena structure), total configurations tested, and a bounded
// winner set of NormalizedConfig with positive Sharpe.
type StrategyCoverage struct {
	Kind          strategy.Kind
	CellSize      float64
	NumParams     int
	VisitedCells  map[int]int
	TotalTested   int
	WinnerConfigs []NormalizedConfig
	MaxWinners    int
}

// NewStrategyCoverage constructs an empty StrategyCoverage for kind.
func NewStrategyCoverage(kind strategy.Kind, numParams int) StrategyCoverage {
	return StrategyCoverage{
		Kind:         kind,
		CellSize:     DefaultCellSize,
		NumParams:    numParams,
		VisitedCells: map[int]int{},
		MaxWinners:   DefaultMaxWinners,
	}
}

// CoverageRatio is |visited_cells| / total_cells.
func (s StrategyCoverage) CoverageRatio() float64 {
	total := TotalCells(s.NumParams, s.CellSize)
	if total == 0 {
		return 0
	}
	return float64(len(s.VisitedCells)) / float64(total)
}

// RecordVisit updates visit counts and total-tested for a newly evaluated
// NormalizedConfig, and appends it to the winner set if sharpe > 0 and
// capacity remains.
func (s *StrategyCoverage) RecordVisit(nc NormalizedConfig, sharpe float64) {
	idx := CellIndex(nc.Params, s.CellSize)
	s.VisitedCells[idx]++
	s.TotalTested++
	if sharpe > 0 && len(s.WinnerConfigs) < s.MaxWinners {
		s.WinnerConfigs = append(s.WinnerConfigs, nc)
	}
}

// ExplorationState is the full persisted YOLO state: per-strategy coverage,
// the set of contributing session ids, and a last-updated timestamp. It is
// created or loaded at YOLO start and saved on graceful stop.
type ExplorationState struct {
	SchemaVersion        int
	Coverage             map[strategy.Kind]*StrategyCoverage
	ContributingSessions []string
	LastUpdated          int64 // unix millis; caller stamps this on save
}

// NewExplorationState returns an empty, versioned ExplorationState.
func NewExplorationState() ExplorationState {
	return ExplorationState{
		SchemaVersion: CoverageSchemaVersion,
		Coverage:      map[strategy.Kind]*StrategyCoverage{},
	}
}

// CoverageFor returns (creating if absent) the StrategyCoverage for kind.
func (s *ExplorationState) CoverageFor(kind strategy.Kind, numParams int) *StrategyCoverage {
	if c, ok := s.Coverage[kind]; ok {
		return c
	}
	c := NewStrategyCoverage(kind, numParams)
	s.Coverage[kind] = &c
	return s.Coverage[kind]
}
