package sweep

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RunManifest identifies one sweep invocation: its id, symbol, strategy tag,
// number of configurations, a hash of the data it ran over, and start/end
// timestamps. The grid values and backtest configuration are not recorded.
// Two manifests with equal data hashes saw the same input window.
type RunManifest struct {
	SweepID     string
	Symbol      string
	StrategyTag string
	NumConfigs  int
	DataVersion string
	StartedAt   time.Time
	FinishedAt  time.Time
}

// NewRunManifest allocates a fresh manifest with a UUID sweep id.
func NewRunManifest(symbol, strategyTag string, numConfigs int, dataVersion string) RunManifest {
	return RunManifest{
		SweepID:     uuid.New().String(),
		Symbol:      symbol,
		StrategyTag: strategyTag,
		NumConfigs:  numConfigs,
		DataVersion: dataVersion,
		StartedAt:   time.Now().UTC(),
	}
}

// Finish stamps the manifest's completion time.
func (m RunManifest) Finish() RunManifest {
	m.FinishedAt = time.Now().UTC()
	return m
}

// ResultPaths locates where a sweep's produced artifacts live on disk: the
// manifest, the raw results collection, and the rendered summary.
type ResultPaths struct {
	ManifestPath string
	ResultsPath  string
	SummaryPath  string
}

// PathsFor derives the conventional ResultPaths for a sweep id under a base
// output directory.
func PathsFor(baseDir, sweepID string) ResultPaths {
	dir := fmt.Sprintf("%s/%s", baseDir, sweepID)
	return ResultPaths{
		ManifestPath: dir + "/manifest.json",
		ResultsPath:  dir + "/results.json",
		SummaryPath:  dir + "/summary.md",
	}
}

// DataVersionHash deterministically fingerprints the bar data a sweep ran
// over, so two manifests can be compared to know whether they saw the same
// input without re-reading the bars: a SHA-256 over symbol, timeframe, and
// the first/last timestamp and bar count, which is stable across processes
// and sufficient to detect a changed data window (a full content hash is
// unnecessary for the manifest's purpose of change detection, not
// byte-for-byte provenance).
func DataVersionHash(symbol, timeframe string, numBars int, firstTS, lastTS time.Time) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%d|%d|%d", symbol, timeframe, numBars, firstTS.UnixMilli(), lastTS.UnixMilli())
	return hex.EncodeToString(h.Sum(nil))
}
