package analysis

import (
	"errors"
	"math"
	"math/rand"

	"github.com/sawpanic/trendlab/internal/metrics"
	"github.com/sawpanic/trendlab/internal/terrors"
)

// ConfigPoint is one clustering input row: a configuration id plus its
// metric feature vector.
type ConfigPoint struct {
	ID       string
	Features []float64
}

// DefaultClusterFeatures names the metric fields used for clustering when
// the caller has no preference.
var DefaultClusterFeatures = []string{
	"sharpe", "cagr", "max_drawdown", "sortino", "calmar", "win_rate", "profit_factor",
}

// MetricsFeatures flattens a Metrics value into the DefaultClusterFeatures
// vector. Infinite fields (profit factor with no losses) are clamped so
// distances stay finite.
func MetricsFeatures(m metrics.Metrics) []float64 {
	clamp := func(v float64) float64 {
		if v > 100 {
			return 100
		}
		if v < -100 {
			return -100
		}
		return v
	}
	return []float64{
		clamp(m.Sharpe), m.CAGR, m.MaxDrawdown,
		clamp(m.Sortino), clamp(m.Calmar), m.WinRate, clamp(m.ProfitFactor),
	}
}

// KMeansConfig parameterizes a clustering run.
type KMeansConfig struct {
	K             int
	MaxIterations int
	Seed          int64
	NumInit       int // independent restarts; the lowest-inertia run wins
}

// DefaultKMeansConfig returns the default run parameters for k clusters.
func DefaultKMeansConfig(k int) KMeansConfig {
	return KMeansConfig{K: k, MaxIterations: 300, Seed: 42, NumInit: 10}
}

// ClusteringResult is one K-means run's outcome over normalized features.
type ClusteringResult struct {
	K            int
	Labels       []int       // cluster assignment per input row
	Centers      [][]float64 // k x n_features, in normalized space
	FeatureNames []string
	Inertia      float64 // sum of squared distances to assigned centers
}

// ClusterSizes counts members per cluster.
func (r ClusteringResult) ClusterSizes() []int {
	sizes := make([]int, r.K)
	for _, label := range r.Labels {
		if label >= 0 && label < r.K {
			sizes[label]++
		}
	}
	return sizes
}

// ClusterMembers returns the input-row indices assigned to cluster.
func (r ClusteringResult) ClusterMembers(cluster int) []int {
	var members []int
	for i, label := range r.Labels {
		if label == cluster {
			members = append(members, i)
		}
	}
	return members
}

// ClusterConfigs groups configurations by performance similarity: features
// are z-score normalized, then K-means (Lloyd's algorithm, NumInit seeded
// restarts, best inertia kept) assigns each row to one of K clusters. All
// rows must share the feature vector length.
func ClusterConfigs(points []ConfigPoint, featureNames []string, cfg KMeansConfig) (ClusteringResult, error) {
	n := len(points)
	if n == 0 {
		return ClusteringResult{}, terrors.Wrap(terrors.ErrInvalidInput, "no points to cluster", nil)
	}
	if cfg.K < 2 || cfg.K > n/2 {
		return ClusteringResult{}, terrors.Wrap(terrors.ErrConfiguration, "cluster count must be between 2 and half the point count", nil)
	}
	dims := len(points[0].Features)
	for _, p := range points {
		if len(p.Features) != dims {
			return ClusteringResult{}, terrors.Wrap(terrors.ErrInvalidInput, "inconsistent feature vector length for "+p.ID, nil)
		}
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 300
	}
	if cfg.NumInit <= 0 {
		cfg.NumInit = 10
	}

	data := make([][]float64, n)
	for i, p := range points {
		data[i] = append([]float64(nil), p.Features...)
	}
	normalizeColumns(data)

	best := ClusteringResult{Inertia: math.Inf(1)}
	for init := 0; init < cfg.NumInit; init++ {
		rng := rand.New(rand.NewSource(cfg.Seed + int64(init)))
		labels, centers := kmeansOnce(data, cfg.K, cfg.MaxIterations, rng)
		inertia := computeInertia(data, labels, centers)
		if inertia < best.Inertia {
			best = ClusteringResult{
				K: cfg.K, Labels: labels, Centers: centers,
				FeatureNames: append([]string(nil), featureNames...),
				Inertia:      inertia,
			}
		}
	}
	return best, nil
}

// kmeansOnce runs Lloyd's algorithm from one random initialization: centers
// seeded from distinct input rows, then alternate assignment and centroid
// update until assignments stop changing or maxIter passes.
func kmeansOnce(data [][]float64, k, maxIter int, rng *rand.Rand) ([]int, [][]float64) {
	n, dims := len(data), len(data[0])

	perm := rng.Perm(n)
	centers := make([][]float64, k)
	for c := 0; c < k; c++ {
		centers[c] = append([]float64(nil), data[perm[c]]...)
	}

	labels := make([]int, n)
	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, row := range data {
			bestC, bestD := 0, math.Inf(1)
			for c, center := range centers {
				if d := squaredDistance(row, center); d < bestD {
					bestC, bestD = c, d
				}
			}
			if labels[i] != bestC {
				labels[i] = bestC
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		counts := make([]int, k)
		next := make([][]float64, k)
		for c := range next {
			next[c] = make([]float64, dims)
		}
		for i, row := range data {
			c := labels[i]
			counts[c]++
			for j, v := range row {
				next[c][j] += v
			}
		}
		for c := range next {
			if counts[c] == 0 {
				// empty cluster: reseed from a random row so k is preserved
				next[c] = append([]float64(nil), data[rng.Intn(n)]...)
				continue
			}
			for j := range next[c] {
				next[c][j] /= float64(counts[c])
			}
		}
		centers = next
	}
	return labels, centers
}

// normalizeColumns applies in-place z-score normalization per feature; a
// near-zero spread falls back to unit scale so constant columns do not blow
// up distances.
func normalizeColumns(data [][]float64) {
	if len(data) == 0 {
		return
	}
	dims := len(data[0])
	for j := 0; j < dims; j++ {
		var sum float64
		for i := range data {
			sum += data[i][j]
		}
		mean := sum / float64(len(data))
		var sumSq float64
		for i := range data {
			d := data[i][j] - mean
			sumSq += d * d
		}
		std := math.Sqrt(sumSq / float64(len(data)))
		if std < 1e-10 {
			std = 1
		}
		for i := range data {
			data[i][j] = (data[i][j] - mean) / std
		}
	}
}

func squaredDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func computeInertia(data [][]float64, labels []int, centers [][]float64) float64 {
	var inertia float64
	for i, row := range data {
		inertia += squaredDistance(row, centers[labels[i]])
	}
	return inertia
}

// ElbowPoint is one (k, inertia) pair from an elbow sweep.
type ElbowPoint struct {
	K       int
	Inertia float64
}

// ElbowAnalysis runs ClusterConfigs across [kMin, kMax] and reports the
// inertia curve; the knee of the curve suggests a k. Infeasible k values
// (fewer than two points per cluster) are skipped.
func ElbowAnalysis(points []ConfigPoint, featureNames []string, kMin, kMax int) ([]ElbowPoint, error) {
	var out []ElbowPoint
	for k := kMin; k <= kMax; k++ {
		res, err := ClusterConfigs(points, featureNames, DefaultKMeansConfig(k))
		if err != nil {
			if errors.Is(err, terrors.ErrConfiguration) {
				continue
			}
			return nil, err
		}
		out = append(out, ElbowPoint{K: k, Inertia: res.Inertia})
	}
	return out, nil
}

// ClusterSummary aggregates one cluster's raw (un-normalized) features.
type ClusterSummary struct {
	Cluster    int
	NumMembers int
	AvgFeature []float64
	StdFeature []float64
}

// SummarizeClusters reports per-cluster member counts and feature
// mean/stddev over the raw feature values.
func SummarizeClusters(points []ConfigPoint, result ClusteringResult) []ClusterSummary {
	out := make([]ClusterSummary, 0, result.K)
	for c := 0; c < result.K; c++ {
		members := result.ClusterMembers(c)
		s := ClusterSummary{Cluster: c, NumMembers: len(members)}
		if len(members) == 0 {
			out = append(out, s)
			continue
		}
		dims := len(points[members[0]].Features)
		s.AvgFeature = make([]float64, dims)
		s.StdFeature = make([]float64, dims)
		for _, i := range members {
			for j, v := range points[i].Features {
				s.AvgFeature[j] += v
			}
		}
		for j := range s.AvgFeature {
			s.AvgFeature[j] /= float64(len(members))
		}
		for _, i := range members {
			for j, v := range points[i].Features {
				d := v - s.AvgFeature[j]
				s.StdFeature[j] += d * d
			}
		}
		for j := range s.StdFeature {
			s.StdFeature[j] = math.Sqrt(s.StdFeature[j] / float64(len(members)))
		}
		out = append(out, s)
	}
	return out
}

// Representative is the member of a cluster closest to its center.
type Representative struct {
	Cluster  int
	ID       string
	Distance float64 // in normalized feature space
}

// ClusterRepresentatives finds, per cluster, the configuration nearest the
// cluster center — the natural single pick when each cluster's members are
// near-interchangeable parameterizations.
func ClusterRepresentatives(points []ConfigPoint, result ClusteringResult) []Representative {
	data := make([][]float64, len(points))
	for i, p := range points {
		data[i] = append([]float64(nil), p.Features...)
	}
	normalizeColumns(data)

	var reps []Representative
	for c := 0; c < result.K; c++ {
		members := result.ClusterMembers(c)
		if len(members) == 0 {
			continue
		}
		bestIdx, bestD := members[0], math.Inf(1)
		for _, i := range members {
			if d := squaredDistance(data[i], result.Centers[c]); d < bestD {
				bestIdx, bestD = i, d
			}
		}
		reps = append(reps, Representative{Cluster: c, ID: points[bestIdx].ID, Distance: math.Sqrt(bestD)})
	}
	return reps
}
