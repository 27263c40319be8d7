// Package artifact implements the portable strategy artifact: a
// JSON-serializable, exactly round-trippable description of one configured
// strategy — its indicators, entry/exit rules, cost and fill model — plus
// parity vectors an external reimplementation can verify its numbers
// against.
package artifact

import (
	"encoding/json"
	"fmt"

	"github.com/sawpanic/trendlab/internal/terrors"
)

// SchemaVersion is the current artifact schema. Field additions are
// backward-compatible; removals require a bump.
const SchemaVersion = 1

// StrategyVersion tags the strategy semantics an artifact was emitted
// from, so a consumer can tell whether its reimplementation targets the
// same rule generation.
const StrategyVersion = "1.0"

// FillModelNextOpen is the only fill model the engine implements.
const FillModelNextOpen = "next_open"

// IndicatorDef describes one indicator instance by id, type tag, and
// parameter map.
type IndicatorDef struct {
	ID     string             `json:"id"`
	Type   string             `json:"type"`
	Params map[string]float64 `json:"params"`
}

// Rule is a stringly typed entry or exit condition referencing indicator
// ids.
type Rule struct {
	Condition  string   `json:"condition"`
	Indicators []string `json:"indicators"`
}

// CostModel carries the fee and slippage configuration the backtest ran
// with.
type CostModel struct {
	FeesBps     float64 `json:"fees_bps"`
	SlippageBps float64 `json:"slippage_bps"`
}

// ParityVector records, for one designated bar, every indicator value and
// the emitted signal (nil when no signal). Warmup indicator values are nil.
type ParityVector struct {
	BarIndex   int                 `json:"bar_index"`
	Timestamp  int64               `json:"ts"`
	Indicators map[string]*float64 `json:"indicators"`
	Signal     *string             `json:"signal"`
}

// Artifact is the portable strategy description. It is a value type:
// Unmarshal(Marshal(a)) reproduces a structurally.
type Artifact struct {
	SchemaVersion   int            `json:"schema_version"`
	StrategyID      string         `json:"strategy_id"`
	StrategyVersion string         `json:"strategy_version"`
	Symbol          string         `json:"symbol"`
	Timeframe       string         `json:"timeframe"`
	Indicators      []IndicatorDef `json:"indicators"`
	EntryRule       Rule           `json:"entry_rule"`
	ExitRule        Rule           `json:"exit_rule"`
	CostModel       CostModel      `json:"cost_model"`
	FillModel       string         `json:"fill_model"`
	ParityVectors   []ParityVector `json:"parity_vectors"`
}

// Marshal serializes an Artifact as indented JSON.
func Marshal(a Artifact) ([]byte, error) {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return nil, terrors.Wrap(terrors.ErrIO, "encoding artifact", err)
	}
	return data, nil
}

// Unmarshal decodes an Artifact, requiring schema_version and rejecting
// versions newer than this build understands. Unknown trailing fields are
// tolerated by the decoder.
func Unmarshal(data []byte) (Artifact, error) {
	var probe struct {
		SchemaVersion *int `json:"schema_version"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return Artifact{}, terrors.Wrap(terrors.ErrSchema, "decoding artifact", err)
	}
	if probe.SchemaVersion == nil {
		return Artifact{}, terrors.Wrap(terrors.ErrSchema, "artifact missing schema_version", nil)
	}
	if *probe.SchemaVersion > SchemaVersion {
		return Artifact{}, terrors.Wrap(terrors.ErrSchema,
			fmt.Sprintf("artifact schema_version %d is newer than supported %d", *probe.SchemaVersion, SchemaVersion), nil)
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return Artifact{}, terrors.Wrap(terrors.ErrSchema, "decoding artifact", err)
	}
	return a, nil
}
