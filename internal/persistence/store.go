// Package persistence implements the durable state backends: the default
// JSON file store for ExplorationState and the
// all-time Leaderboard, plus (in the postgres subpackage) an optional
// sqlx-backed durable alternative behind the same Store interface.
package persistence

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/sawpanic/trendlab/internal/strategy"
	"github.com/sawpanic/trendlab/internal/terrors"
	"github.com/sawpanic/trendlab/internal/yolo"
)

// CoverageDoc is the on-disk shape of one strategy's coverage:
// `{ cell_size, visited_cells, total_tested, winner_configs,
// max_winners }`. num_params is a backward-compatible trailing addition so
// coverage ratios survive a reload even before any winner exists.
type CoverageDoc struct {
	CellSize      float64                 `json:"cell_size"`
	VisitedCells  map[int]int             `json:"visited_cells"`
	TotalTested   int                     `json:"total_tested"`
	WinnerConfigs []yolo.NormalizedConfig `json:"winner_configs"`
	MaxWinners    int                     `json:"max_winners"`
	NumParams     int                     `json:"num_params"`
}

// StateDoc is the full persisted YOLO state document:
// `{ version, coverage, contributing_sessions, last_updated }`.
type StateDoc struct {
	Version              int                    `json:"version"`
	Coverage             map[string]CoverageDoc `json:"coverage"`
	ContributingSessions []string               `json:"contributing_sessions"`
	LastUpdated          int64                  `json:"last_updated"`
}

// ToDoc converts an in-memory ExplorationState into its persisted-JSON
// shape.
func ToDoc(state yolo.ExplorationState) StateDoc {
	doc := StateDoc{
		Version:              state.SchemaVersion,
		Coverage:             map[string]CoverageDoc{},
		ContributingSessions: state.ContributingSessions,
		LastUpdated:          state.LastUpdated,
	}
	for kind, cov := range state.Coverage {
		doc.Coverage[string(kind)] = CoverageDoc{
			CellSize:      cov.CellSize,
			VisitedCells:  cov.VisitedCells,
			TotalTested:   cov.TotalTested,
			WinnerConfigs: cov.WinnerConfigs,
			MaxWinners:    cov.MaxWinners,
			NumParams:     cov.NumParams,
		}
	}
	return doc
}

// FromDoc reconstructs an in-memory ExplorationState from its persisted
// shape. Unknown leading version numbers (newer than this build
// understands) are rejected; unknown trailing JSON fields are
// simply ignored by Go's decoder, which already tolerates them.
func FromDoc(doc StateDoc) (yolo.ExplorationState, error) {
	if doc.Version > yolo.CoverageSchemaVersion {
		return yolo.ExplorationState{}, terrors.Wrap(terrors.ErrSchema, "persisted state version is newer than this build supports", nil)
	}
	out := yolo.NewExplorationState()
	out.SchemaVersion = doc.Version
	out.ContributingSessions = doc.ContributingSessions
	out.LastUpdated = doc.LastUpdated
	for kindStr, cd := range doc.Coverage {
		kind := strategy.Kind(kindStr)
		visited := cd.VisitedCells
		if visited == nil {
			visited = map[int]int{}
		}
		numParams := cd.NumParams
		if numParams == 0 {
			// documents written before num_params existed: infer from winners.
			numParams = numParamsFromWinners(cd.WinnerConfigs)
		}
		out.Coverage[kind] = &yolo.StrategyCoverage{
			Kind:          kind,
			CellSize:      cd.CellSize,
			NumParams:     numParams,
			VisitedCells:  visited,
			TotalTested:   cd.TotalTested,
			WinnerConfigs: cd.WinnerConfigs,
			MaxWinners:    cd.MaxWinners,
		}
	}
	return out, nil
}

func numParamsFromWinners(winners []yolo.NormalizedConfig) int {
	if len(winners) == 0 {
		return 0
	}
	return len(winners[0].Params)
}

// Store is the exploration-state persistence capability. Loaders tolerate
// unknown trailing fields and reject unknown leading version numbers,
// regardless of backend.
type Store interface {
	Load() (yolo.ExplorationState, error)
	Save(state yolo.ExplorationState) error
}

// JSONFileStore is the default backend: ExplorationState serialized to a
// single JSON file, loaded at YOLO start and saved on graceful stop or
// periodic checkpoint.
type JSONFileStore struct {
	Path string
}

// NewJSONFileStore constructs a JSONFileStore rooted at path.
func NewJSONFileStore(path string) *JSONFileStore {
	return &JSONFileStore{Path: path}
}

// Load reads and decodes the state file. A missing file is not an error: it
// returns a fresh ExplorationState, the same as a first-ever YOLO session.
func (s *JSONFileStore) Load() (yolo.ExplorationState, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return yolo.NewExplorationState(), nil
		}
		return yolo.ExplorationState{}, terrors.Wrap(terrors.ErrIO, "reading exploration state file", err)
	}
	var doc StateDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return yolo.ExplorationState{}, terrors.Wrap(terrors.ErrSchema, "decoding exploration state file", err)
	}
	return FromDoc(doc)
}

// Save atomically writes state to disk: encode to a temp file in the same
// directory, then rename, so a crash mid-write never corrupts the prior
// checkpoint.
func (s *JSONFileStore) Save(state yolo.ExplorationState) error {
	doc := ToDoc(state)
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return terrors.Wrap(terrors.ErrIO, "encoding exploration state", err)
	}
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return terrors.Wrap(terrors.ErrIO, "creating exploration state directory", err)
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return terrors.Wrap(terrors.ErrIO, "writing exploration state temp file", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		return terrors.Wrap(terrors.ErrIO, "renaming exploration state file", err)
	}
	return nil
}
