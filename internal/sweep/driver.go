package sweep

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/trendlab/internal/backtest"
	"github.com/sawpanic/trendlab/internal/bar"
	"github.com/sawpanic/trendlab/internal/metrics"
	"github.com/sawpanic/trendlab/internal/terrors"
)

// ConfigResult is one enumerated configuration's outcome: its ConfigID, the
// BacktestResult it produced, the reduced Metrics, and an error if that one
// configuration failed.
type ConfigResult struct {
	ConfigID ConfigID
	Result   backtest.Result
	Metrics  metrics.Metrics
	Err      error
}

// Result is the full sweep output: the enumeration-ordered collection of
// per-config results, regardless of completion order.
type Result struct {
	Symbol  string
	Configs []ConfigResult
}

// RunOptions bounds a Run's worker pool width and carries the backtest
// configuration and annualization factor. Cancellation comes from Run's ctx,
// checked between configurations.
type RunOptions struct {
	MaxWorkers          int
	BacktestConfig      backtest.Config
	AnnualizationFactor float64
}

// Run evaluates every ConfigID in ids against bars with a bounded pool of
// goroutines: workers pull from a shared job channel, so each goroutine
// processes whichever next ConfigID is unclaimed.
// Results are collected into a slice pre-sized to len(ids) so the returned
// Result preserves enumeration order regardless of which worker finishes
// first.
func Run(ctx context.Context, symbol string, bars []bar.Bar, ids []ConfigID, opts RunOptions) (Result, error) {
	if len(bars) == 0 {
		return Result{}, terrors.Wrap(terrors.ErrDataUnavailable, "no bars for symbol "+symbol, nil)
	}
	maxWorkers := opts.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}
	if maxWorkers > len(ids) {
		maxWorkers = len(ids)
	}
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	out := make([]ConfigResult, len(ids))
	jobs := make(chan int)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for i := range jobs {
			select {
			case <-ctx.Done():
				out[i] = ConfigResult{ConfigID: ids[i], Err: terrors.ErrCancelled}
				continue
			default:
			}
			out[i] = evalOne(ids[i], bars, opts)
		}
	}

	wg.Add(maxWorkers)
	for w := 0; w < maxWorkers; w++ {
		go worker()
	}

	start := time.Now()
	for i := range ids {
		select {
		case <-ctx.Done():
			// remaining jobs never get dispatched; they are left as the
			// zero ConfigResult with ConfigID set below so the slice stays
			// fully populated and in enumeration order.
			out[i] = ConfigResult{ConfigID: ids[i], Err: terrors.ErrCancelled}
		default:
			jobs <- i
		}
	}
	close(jobs)
	wg.Wait()

	log.Info().
		Str("symbol", symbol).
		Int("num_configs", len(ids)).
		Dur("duration_ms", time.Since(start)).
		Msg("sweep run completed")

	return Result{Symbol: symbol, Configs: out}, nil
}

func evalOne(id ConfigID, bars []bar.Bar, opts RunOptions) ConfigResult {
	if err := id.Config.Validate(); err != nil {
		return ConfigResult{ConfigID: id, Err: err}
	}
	res, err := backtest.RunEventDriven(bars, id.Config, opts.BacktestConfig)
	if err != nil {
		return ConfigResult{ConfigID: id, Err: err}
	}
	m := metrics.Compute(res, opts.BacktestConfig.InitialCash, opts.AnnualizationFactor)
	return ConfigResult{ConfigID: id, Result: res, Metrics: m}
}
