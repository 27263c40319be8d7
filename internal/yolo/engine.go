package yolo

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
	gobreaker "github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/sawpanic/trendlab/internal/backtest"
	"github.com/sawpanic/trendlab/internal/bar"
	"github.com/sawpanic/trendlab/internal/metrics"
	"github.com/sawpanic/trendlab/internal/strategy"
	"github.com/sawpanic/trendlab/internal/sweep"
	"github.com/sawpanic/trendlab/internal/terrors"
)

// MaxConsecutiveFailures is the threshold past which the loop aborts with a
// diagnostic rather than skipping silently forever.
const MaxConsecutiveFailures = 10

// CancelToken carries a cancellation signal plus a "please save" flag:
// graceful shutdown must flush ExplorationState before the loop actually
// stops.
type CancelToken struct {
	Done      <-chan struct{}
	SaveOnCancel bool
}

// IterationOutcome is one YOLO loop iteration's result, fed back into
// coverage tracking and the leaderboard.
type IterationOutcome struct {
	ConfigID sweep.ConfigID
	Metrics  metrics.Metrics
	Err      error
}

// Driver runs the continuous YOLO exploration loop: each iteration selects
// an exploration Mode, proposes a configuration, evaluates it through the
// backtest engine and metrics reducer, then updates coverage and the
// leaderboard. A gobreaker-wrapped evaluator trips after a run of
// consecutive iteration failures, surfacing a distinguishable abort rather
// than a bare error, and a token-bucket limiter paces iterations/sec so an
// unattended run does not peg a core.
type Driver struct {
	Bars                []bar.Bar
	Symbol              string
	Kind                strategy.Kind
	Bounds              ParamBounds
	BacktestConfig      backtest.Config
	AnnualizationFactor float64

	State       *ExplorationState
	Leaderboard *LeaderboardSet
	Limiter     *rate.Limiter
	Rng         *rand.Rand

	breaker             *gobreaker.CircuitBreaker
	consecutiveFailures int
}

// NewDriver constructs a Driver with a gobreaker trip rule matching
// MaxConsecutiveFailures and a default 10 iterations/sec limiter.
func NewDriver(bars []bar.Bar, symbol string, kind strategy.Kind, bounds ParamBounds, btCfg backtest.Config, state *ExplorationState, lb *LeaderboardSet) *Driver {
	d := &Driver{
		Bars: bars, Symbol: symbol, Kind: kind, Bounds: bounds,
		BacktestConfig: btCfg, State: state, Leaderboard: lb,
		Limiter: rate.NewLimiter(rate.Limit(10), 1),
		Rng:     rand.New(rand.NewSource(1)),
	}
	settings := gobreaker.Settings{
		Name: "yolo-iteration",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= MaxConsecutiveFailures
		},
	}
	d.breaker = gobreaker.NewCircuitBreaker(settings)
	return d
}

// RunOnce executes a single iteration: select mode, propose, evaluate,
// record. It blocks on the rate limiter and respects token cancellation.
func (d *Driver) RunOnce(ctx context.Context, token CancelToken) (IterationOutcome, error) {
	select {
	case <-token.Done:
		return IterationOutcome{}, terrors.ErrCancelled
	default:
	}
	if err := d.Limiter.Wait(ctx); err != nil {
		return IterationOutcome{}, terrors.Wrap(terrors.ErrCancelled, "rate limiter wait interrupted", err)
	}

	cov := d.State.CoverageFor(d.Kind, len(d.Bounds))
	mode := SelectMode(cov.CoverageRatio(), len(cov.WinnerConfigs) > 0, d.Rng)

	nc, err := d.propose(mode, *cov)
	if err != nil {
		return IterationOutcome{}, err
	}
	raw := Denormalize(d.Bounds, nc)
	cfg := BuildConfig(d.Kind, raw)
	configID := sweep.ConfigID{Kind: d.Kind, Config: cfg, Params: raw}

	out, err := d.breaker.Execute(func() (any, error) {
		return d.evaluate(cfg)
	})
	if err != nil {
		d.consecutiveFailures++
		if d.consecutiveFailures >= MaxConsecutiveFailures {
			return IterationOutcome{}, terrors.Wrap(terrors.ErrConfiguration, "too many consecutive YOLO iteration failures", err)
		}
		log.Warn().Err(err).Str("symbol", d.Symbol).Msg("yolo iteration skipped")
		return IterationOutcome{ConfigID: configID, Err: err}, nil
	}
	d.consecutiveFailures = 0

	m := out.(metrics.Metrics)
	cov.RecordVisit(nc, m.Sharpe)
	d.Leaderboard.TryInsert(configID, d.Symbol, m)

	return IterationOutcome{ConfigID: configID, Metrics: m}, nil
}

func (d *Driver) propose(mode Mode, cov StrategyCoverage) (NormalizedConfig, error) {
	switch mode {
	case ModeLocalJitter:
		base := d.lastOrRandomBase(cov)
		return LocalJitter(base, DefaultJitterRange, d.Rng), nil
	case ModeExploitWinner:
		nc, ok := ExploitWinner(cov.WinnerConfigs, DefaultJitterRange, d.Rng)
		if !ok {
			return PureRandom(d.Kind, len(d.Bounds), d.Rng), nil
		}
		return nc, nil
	case ModeMaximizeCoverage:
		return MaximizeCoverage(cov, 20, d.Rng), nil
	default: // ModePureRandom
		return PureRandom(d.Kind, len(d.Bounds), d.Rng), nil
	}
}

func (d *Driver) lastOrRandomBase(cov StrategyCoverage) NormalizedConfig {
	if len(cov.WinnerConfigs) > 0 {
		return cov.WinnerConfigs[len(cov.WinnerConfigs)-1]
	}
	return PureRandom(d.Kind, len(d.Bounds), d.Rng)
}

func (d *Driver) evaluate(cfg strategy.Config) (metrics.Metrics, error) {
	if err := cfg.Validate(); err != nil {
		return metrics.Metrics{}, err
	}
	res, err := backtest.RunEventDriven(d.Bars, cfg, d.BacktestConfig)
	if err != nil {
		return metrics.Metrics{}, err
	}
	return metrics.Compute(res, d.BacktestConfig.InitialCash, d.AnnualizationFactor), nil
}

// Stamp updates the ExplorationState's last-updated timestamp and appends
// sessionID to contributing sessions if not already present. Called on
// graceful stop and at every checkpoint.
func (s *ExplorationState) Stamp(sessionID string, at time.Time) {
	s.LastUpdated = at.UnixMilli()
	for _, id := range s.ContributingSessions {
		if id == sessionID {
			return
		}
	}
	s.ContributingSessions = append(s.ContributingSessions, sessionID)
}
