// Package sweep implements the Sweep Driver: grid enumeration,
// parallel fan-out over the backtest engine and metrics reducer,
// deterministic ranking, and the neighbor/cost sensitivity analyses.
package sweep

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sawpanic/trendlab/internal/strategy"
	"github.com/sawpanic/trendlab/internal/terrors"
)

// Axis is one enumerated parameter dimension of a Grid: a name (used only
// for diagnostics and artifact rendering) and its ordered candidate values.
type Axis struct {
	Name   string
	Values []float64
}

// Grid is a per-strategy Cartesian enumeration specification: a list of
// parameter axes plus the function that turns one point in the axis space
// into a concrete strategy.Config. Build lets each strategy Kind interpret
// its axes its own way (e.g. MA crossover's MAType is fixed per Grid
// rather than swept).
type Grid struct {
	Kind  strategy.Kind
	Axes  []Axis
	Build func(values []float64) strategy.Config
}

// ConfigID is the primary key a configuration carries across sweep,
// leaderboard, and artifact layers: the strategy Kind, the concrete
// strategy.Config it resolves to, and the grid
// index position (one int per axis) used for canonical ordering and
// neighbor-distance computations.
type ConfigID struct {
	Kind   strategy.Kind
	Index  []int
	Params []float64
	Config strategy.Config
}

// String is ConfigID's canonical textual form, used both for display and
// as the deterministic ranking tie-break key.
func (c ConfigID) String() string {
	var b strings.Builder
	b.WriteString(string(c.Kind))
	for _, idx := range c.Index {
		b.WriteByte('/')
		b.WriteString(strconv.Itoa(idx))
	}
	return b.String()
}

// Less gives ConfigID a total order: by Kind, then by Index lexicographically.
// Used as the sweep's ranking tie-break and for canonical test
// ordering.
func (c ConfigID) Less(other ConfigID) bool {
	if c.Kind != other.Kind {
		return c.Kind < other.Kind
	}
	for i := 0; i < len(c.Index) && i < len(other.Index); i++ {
		if c.Index[i] != other.Index[i] {
			return c.Index[i] < other.Index[i]
		}
	}
	return len(c.Index) < len(other.Index)
}

// Distance is the L1 distance between two ConfigIDs' grid indices, used by
// neighbor sensitivity. ConfigIDs from different Kinds, or with index
// vectors of different lengths, get -1.
func (c ConfigID) Distance(other ConfigID) int {
	if c.Kind != other.Kind || len(c.Index) != len(other.Index) {
		return -1
	}
	d := 0
	for i := range c.Index {
		diff := c.Index[i] - other.Index[i]
		if diff < 0 {
			diff = -diff
		}
		d += diff
	}
	return d
}

// Enumerate yields the ordered set of ConfigIDs for a Grid: the Cartesian
// product of its axes in a stable, deterministic order (axis order, then
// value order within each axis).
func Enumerate(g Grid) ([]ConfigID, error) {
	if len(g.Axes) == 0 {
		return nil, terrors.Wrap(terrors.ErrConfiguration, "grid has no axes", nil)
	}
	for _, ax := range g.Axes {
		if len(ax.Values) == 0 {
			return nil, terrors.Wrap(terrors.ErrConfiguration, fmt.Sprintf("grid axis %q is empty", ax.Name), nil)
		}
	}
	if g.Build == nil {
		return nil, terrors.Wrap(terrors.ErrConfiguration, "grid has no Build function", nil)
	}

	var out []ConfigID
	index := make([]int, len(g.Axes))
	values := make([]float64, len(g.Axes))
	var recurse func(axis int)
	recurse = func(axis int) {
		if axis == len(g.Axes) {
			idx := append([]int(nil), index...)
			vals := append([]float64(nil), values...)
			out = append(out, ConfigID{
				Kind:   g.Kind,
				Index:  idx,
				Params: vals,
				Config: g.Build(vals),
			})
			return
		}
		for i, v := range g.Axes[axis].Values {
			index[axis] = i
			values[axis] = v
			recurse(axis + 1)
		}
	}
	recurse(0)
	return out, nil
}

// sortByIndex sorts ConfigIDs by their canonical (Kind, Index) order.
// Nothing in the package calls it: Run keeps enumeration order by writing
// each result into a slice pre-sized to len(ids).
func sortByIndex(ids []ConfigID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
}
