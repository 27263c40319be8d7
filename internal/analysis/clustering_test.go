package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/trendlab/internal/metrics"
	"github.com/sawpanic/trendlab/internal/terrors"
)

// twoGroupPoints builds six configurations split into a clearly separated
// high-performer and low-performer group.
func twoGroupPoints() []ConfigPoint {
	return []ConfigPoint{
		{ID: "c1", Features: []float64{1.5, 0.15, 0.10, 2.0, 1.5, 0.55, 1.8}},
		{ID: "c2", Features: []float64{1.4, 0.14, 0.11, 1.9, 1.3, 0.54, 1.7}},
		{ID: "c3", Features: []float64{1.6, 0.16, 0.09, 2.1, 1.8, 0.56, 1.9}},
		{ID: "c4", Features: []float64{0.3, 0.03, 0.30, 0.4, 0.1, 0.42, 1.0}},
		{ID: "c5", Features: []float64{0.4, 0.04, 0.28, 0.5, 0.14, 0.43, 1.1}},
		{ID: "c6", Features: []float64{0.2, 0.02, 0.32, 0.3, 0.06, 0.41, 0.9}},
	}
}

func TestClusterConfigs_TwoGroups(t *testing.T) {
	res, err := ClusterConfigs(twoGroupPoints(), DefaultClusterFeatures, DefaultKMeansConfig(2))
	require.NoError(t, err)

	assert.Equal(t, 2, res.K)
	require.Len(t, res.Labels, 6)
	require.Len(t, res.Centers, 2)
	for _, label := range res.Labels {
		assert.Less(t, label, 2)
	}

	sizes := res.ClusterSizes()
	assert.Equal(t, 6, sizes[0]+sizes[1])

	// the high performers land together, the low performers together, and
	// the two groups apart.
	high := res.Labels[0]
	assert.Equal(t, high, res.Labels[1])
	assert.Equal(t, high, res.Labels[2])
	low := res.Labels[3]
	assert.Equal(t, low, res.Labels[4])
	assert.Equal(t, low, res.Labels[5])
	assert.NotEqual(t, high, low)
}

func TestClusterConfigs_DeterministicForSeed(t *testing.T) {
	a, err := ClusterConfigs(twoGroupPoints(), DefaultClusterFeatures, DefaultKMeansConfig(2))
	require.NoError(t, err)
	b, err := ClusterConfigs(twoGroupPoints(), DefaultClusterFeatures, DefaultKMeansConfig(2))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestClusterConfigs_Errors(t *testing.T) {
	_, err := ClusterConfigs(nil, DefaultClusterFeatures, DefaultKMeansConfig(2))
	assert.ErrorIs(t, err, terrors.ErrInvalidInput)

	_, err = ClusterConfigs(twoGroupPoints(), DefaultClusterFeatures, DefaultKMeansConfig(5))
	assert.ErrorIs(t, err, terrors.ErrConfiguration)

	bad := twoGroupPoints()
	bad[3].Features = bad[3].Features[:2]
	_, err = ClusterConfigs(bad, DefaultClusterFeatures, DefaultKMeansConfig(2))
	assert.ErrorIs(t, err, terrors.ErrInvalidInput)
}

func TestSummarizeClusters_AggregatesRawFeatures(t *testing.T) {
	points := twoGroupPoints()
	res, err := ClusterConfigs(points, DefaultClusterFeatures, DefaultKMeansConfig(2))
	require.NoError(t, err)

	summaries := SummarizeClusters(points, res)
	require.Len(t, summaries, 2)
	total := 0
	for _, s := range summaries {
		total += s.NumMembers
		require.Len(t, s.AvgFeature, len(DefaultClusterFeatures))
	}
	assert.Equal(t, 6, total)

	// the cluster holding c1 averages the high group's sharpe.
	highCluster := summaries[res.Labels[0]]
	assert.InDelta(t, 1.5, highCluster.AvgFeature[0], 1e-9)
}

func TestClusterRepresentatives_OnePerNonEmptyCluster(t *testing.T) {
	points := twoGroupPoints()
	res, err := ClusterConfigs(points, DefaultClusterFeatures, DefaultKMeansConfig(2))
	require.NoError(t, err)

	reps := ClusterRepresentatives(points, res)
	require.Len(t, reps, 2)
	ids := map[string]bool{}
	for _, r := range reps {
		ids[r.ID] = true
		assert.False(t, math.IsNaN(r.Distance))
	}
	assert.Len(t, ids, 2)
}

func TestElbowAnalysis_InertiaDecreasesWithK(t *testing.T) {
	points := twoGroupPoints()
	curve, err := ElbowAnalysis(points, DefaultClusterFeatures, 2, 3)
	require.NoError(t, err)
	require.Len(t, curve, 2)
	assert.LessOrEqual(t, curve[1].Inertia, curve[0].Inertia)
}

func TestMetricsFeatures_ClampsInfinities(t *testing.T) {
	f := MetricsFeatures(metrics.Metrics{ProfitFactor: math.Inf(1), Sharpe: 1.2})
	require.Len(t, f, len(DefaultClusterFeatures))
	assert.Equal(t, 100.0, f[6])
	assert.Equal(t, 1.2, f[0])
	for _, v := range f {
		assert.False(t, math.IsInf(v, 0))
	}
}
