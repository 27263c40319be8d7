package main

import (
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/sawpanic/trendlab/internal/bar"
	"github.com/sawpanic/trendlab/internal/persistence"
	"github.com/sawpanic/trendlab/internal/persistence/postgres"
	"github.com/sawpanic/trendlab/internal/strategy"
	"github.com/sawpanic/trendlab/internal/terrors"
	"github.com/sawpanic/trendlab/internal/yolo"
)

func newYoloCmd() *cobra.Command {
	var (
		configPath string
		kindFlag   string
		iterations int
	)

	cmd := &cobra.Command{
		Use:   "yolo",
		Short: "Run the continuous self-optimization loop",
		Long:  "Continuously proposes configurations with history-informed coverage, evaluates them, updates leaderboards, and gates survivors with walk-forward validation. Ctrl-C stops gracefully and flushes state.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			series, err := loadBars(cfg)
			if err != nil {
				return err
			}

			kind := strategy.Kind(kindFlag)
			bounds, err := yolo.ParamBoundsFor(kind)
			if err != nil {
				return err
			}

			stateStore, lbStore, closeStores, err := openStores(cfg)
			if err != nil {
				return err
			}
			defer closeStores()

			state, err := stateStore.Load()
			if err != nil {
				return err
			}
			allTime, err := lbStore.LoadLeaderboard(cfg.RiskProfile())
			if err != nil {
				return err
			}
			session := yolo.NewLeaderboardSet(yolo.DefaultLeaderboardCapacity, cfg.RiskProfile())

			driver := yolo.NewDriver(series.Bars, cfg.Symbol, kind, bounds, cfg.BacktestConfig(), &state, allTime)
			driver.AnnualizationFactor = cfg.Annualization
			driver.Limiter = rate.NewLimiter(rate.Limit(cfg.Yolo.IterationsPerSec), 1)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			token := yolo.CancelToken{Done: ctx.Done(), SaveOnCancel: true}

			sessionID := uuid.New().String()
			log.Info().
				Str("session_id", sessionID).
				Str("symbol", cfg.Symbol).
				Str("strategy", string(kind)).
				Msg("yolo session started")

			validated := map[string]bool{}
			count := 0
			for iterations <= 0 || count < iterations {
				outcome, err := driver.RunOnce(ctx, token)
				if err != nil {
					if errors.Is(err, terrors.ErrCancelled) {
						break
					}
					log.Error().Err(err).Msg("yolo loop aborted")
					break
				}
				count++

				status := "ok"
				if outcome.Err != nil {
					status = "error"
				} else {
					session.TryInsert(outcome.ConfigID, cfg.Symbol, outcome.Metrics)
					maybeWalkForward(cfg, series, outcome, validated)
				}
				metricsRegistry.YoloIterations.WithLabelValues(cfg.Symbol, status).Inc()

				cov := state.CoverageFor(kind, len(bounds))
				metricsRegistry.CoverageRatio.WithLabelValues(string(kind)).Set(cov.CoverageRatio())
				metricsRegistry.WinnerCount.WithLabelValues(string(kind)).Set(float64(len(cov.WinnerConfigs)))
				metricsRegistry.LeaderboardSize.WithLabelValues("session").Set(float64(len(session.CrossSymbol.Entries())))
				metricsRegistry.LeaderboardSize.WithLabelValues("all_time").Set(float64(len(allTime.CrossSymbol.Entries())))

				if count%cfg.Yolo.CheckpointEvery == 0 {
					checkpoint(stateStore, lbStore, &state, allTime, sessionID)
				}
			}

			if token.SaveOnCancel {
				checkpoint(stateStore, lbStore, &state, allTime, sessionID)
			}
			log.Info().
				Str("session_id", sessionID).
				Int("iterations", count).
				Msg("yolo session stopped")
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "trendlab.yaml", "Path to config file")
	cmd.Flags().StringVar(&kindFlag, "strategy", string(strategy.KindDonchianBreakout), "Strategy kind to explore")
	cmd.Flags().IntVar(&iterations, "iterations", 0, "Stop after N iterations (0 = run until interrupted)")
	return cmd
}

// openStores picks the persistence backend: Postgres when a DSN is
// configured, the default JSON files otherwise.
func openStores(cfg AppConfig) (persistence.Store, persistence.LeaderboardStore, func(), error) {
	if dsn := cfg.Yolo.PostgresDSN; dsn != "" {
		store, err := postgres.Open(dsn, cfg.Symbol, 5*time.Second)
		if err != nil {
			return nil, nil, nil, err
		}
		return store, store, func() { store.Close() }, nil
	}
	return persistence.NewJSONFileStore(cfg.Yolo.StateFile),
		persistence.NewJSONLeaderboardStore(cfg.Yolo.LeaderboardFile),
		func() {}, nil
}

func checkpoint(stateStore persistence.Store, lbStore persistence.LeaderboardStore, state *yolo.ExplorationState, allTime *yolo.LeaderboardSet, sessionID string) {
	state.Stamp(sessionID, time.Now().UTC())
	if err := stateStore.Save(*state); err != nil {
		log.Error().Err(err).Msg("saving exploration state")
	}
	if err := lbStore.SaveLeaderboard(allTime); err != nil {
		log.Error().Err(err).Msg("saving leaderboard")
	}
}

func maybeWalkForward(cfg AppConfig, series bar.Series, outcome yolo.IterationOutcome, validated map[string]bool) {
	wf := cfg.Yolo.WalkForward
	threshold := wf.SharpeThreshold
	if threshold == 0 {
		threshold = yolo.DefaultSharpeThreshold
	}
	if outcome.Metrics.Sharpe <= threshold || wf.InSample == 0 {
		return
	}
	key := outcome.ConfigID.String()
	if validated[key] {
		return
	}
	validated[key] = true

	spec := yolo.FoldSpec{
		InSample:    wf.InSample,
		Gap:         wf.Gap,
		OutOfSample: wf.OutOfSample,
		Step:        wf.Step,
		MinFolds:    wf.MinFolds,
	}
	res, err := yolo.RunWalkForward(series.Bars, outcome.ConfigID.Config, cfg.BacktestConfig(), spec, cfg.Annualization)
	if err != nil {
		log.Warn().Err(err).Str("config_id", key).Msg("walk-forward validation skipped")
		return
	}
	metricsRegistry.WalkForwardGrades.WithLabelValues(string(res.Grade)).Inc()
	log.Info().
		Str("config_id", key).
		Str("grade", string(res.Grade)).
		Float64("mean_oos_sharpe", res.MeanOOSSharpe).
		Float64("mean_degradation", res.MeanDegradation).
		Int("folds", len(res.Folds)).
		Msg("walk-forward validated")
}
