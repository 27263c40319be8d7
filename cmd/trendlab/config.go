package main

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sawpanic/trendlab/internal/backtest"
	"github.com/sawpanic/trendlab/internal/strategy"
	"github.com/sawpanic/trendlab/internal/sweep"
	"github.com/sawpanic/trendlab/internal/terrors"
	"github.com/sawpanic/trendlab/internal/yolo"
)

// AppConfig is the YAML file every subcommand reads: data location, cost and
// sizing model, plus the strategy or grid the command operates on.
type AppConfig struct {
	Symbol    string `yaml:"symbol"`
	Timeframe string `yaml:"timeframe"`
	BarsFile  string `yaml:"bars_file"`

	InitialCash   float64 `yaml:"initial_cash"`
	Annualization float64 `yaml:"annualization"`

	Cost struct {
		FeesBps     float64 `yaml:"fees_bps"`
		SlippageBps float64 `yaml:"slippage_bps"`
	} `yaml:"cost"`

	Sizing struct {
		Mode                    string  `yaml:"mode"`
		FixedQty                float64 `yaml:"fixed_qty"`
		TargetVolatilityDollars float64 `yaml:"target_volatility_dollars"`
		ContractMultiplier      float64 `yaml:"contract_multiplier"`
		ATRWindow               int     `yaml:"atr_window"`
		MinUnits                float64 `yaml:"min_units"`
		MaxUnits                float64 `yaml:"max_units"`
	} `yaml:"sizing"`

	Pyramiding struct {
		Enabled      bool    `yaml:"enabled"`
		ThresholdATR float64 `yaml:"threshold_atr"`
		ATRWindow    int     `yaml:"atr_window"`
		MaxUnits     float64 `yaml:"max_units"`
	} `yaml:"pyramiding"`

	Strategy StrategySpec `yaml:"strategy"`

	Grid struct {
		Kind string `yaml:"kind"`
		Axes []struct {
			Name   string    `yaml:"name"`
			Values []float64 `yaml:"values"`
		} `yaml:"axes"`
	} `yaml:"grid"`

	Yolo struct {
		StateFile       string  `yaml:"state_file"`
		LeaderboardFile string  `yaml:"leaderboard_file"`
		PostgresDSN     string  `yaml:"postgres_dsn"`
		RedisAddr       string  `yaml:"redis_addr"`
		IterationsPerSec float64 `yaml:"iterations_per_sec"`
		CheckpointEvery int     `yaml:"checkpoint_every"`
		RiskProfile     string  `yaml:"risk_profile"`

		WalkForward struct {
			SharpeThreshold float64 `yaml:"sharpe_threshold"`
			InSample        int     `yaml:"in_sample"`
			Gap             int     `yaml:"gap"`
			OutOfSample     int     `yaml:"out_of_sample"`
			Step            int     `yaml:"step"`
			MinFolds        int     `yaml:"min_folds"`
		} `yaml:"walk_forward"`
	} `yaml:"yolo"`

	Output struct {
		Dir string `yaml:"dir"`
	} `yaml:"output"`
}

// StrategySpec names one concrete strategy in config files: a kind plus its
// raw parameter values in declared-bounds order (Turtle presets take none).
type StrategySpec struct {
	Kind   string    `yaml:"kind"`
	Params []float64 `yaml:"params"`
}

// LoadConfig reads and decodes an AppConfig, applying defaults.
func LoadConfig(path string) (AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return AppConfig{}, terrors.Wrap(terrors.ErrIO, "reading config file", err)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return AppConfig{}, terrors.Wrap(terrors.ErrConfiguration, "decoding config file", err)
	}
	if cfg.InitialCash == 0 {
		cfg.InitialCash = 100000
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = "out"
	}
	if cfg.Yolo.StateFile == "" {
		cfg.Yolo.StateFile = "state/yolo_state.json"
	}
	if cfg.Yolo.LeaderboardFile == "" {
		cfg.Yolo.LeaderboardFile = "state/leaderboard.json"
	}
	if cfg.Yolo.IterationsPerSec == 0 {
		cfg.Yolo.IterationsPerSec = 10
	}
	if cfg.Yolo.CheckpointEvery == 0 {
		cfg.Yolo.CheckpointEvery = 100
	}
	return cfg, nil
}

// BacktestConfig assembles the engine configuration from the loaded file.
func (c AppConfig) BacktestConfig() backtest.Config {
	sizing := backtest.Sizing{
		Mode:                    backtest.SizingMode(c.Sizing.Mode),
		FixedQty:                c.Sizing.FixedQty,
		TargetVolatilityDollars: c.Sizing.TargetVolatilityDollars,
		ContractMultiplier:      c.Sizing.ContractMultiplier,
		ATRWindow:               c.Sizing.ATRWindow,
		MinUnits:                c.Sizing.MinUnits,
		MaxUnits:                c.Sizing.MaxUnits,
	}
	if sizing.Mode == "" {
		sizing.Mode = backtest.SizingFixed
	}
	if sizing.Mode == backtest.SizingFixed && sizing.FixedQty == 0 {
		sizing.FixedQty = 1
	}
	return backtest.Config{
		InitialCash: c.InitialCash,
		AccountSize: c.InitialCash,
		Cost: backtest.Cost{
			FeesBpsPerSide: c.Cost.FeesBps,
			SlippageBps:    c.Cost.SlippageBps,
		},
		Sizing: sizing,
		Pyramiding: backtest.Pyramiding{
			Enabled:      c.Pyramiding.Enabled,
			ThresholdATR: c.Pyramiding.ThresholdATR,
			ATRWindow:    c.Pyramiding.ATRWindow,
			MaxUnits:     c.Pyramiding.MaxUnits,
		},
	}
}

// BuildStrategy resolves a StrategySpec into a strategy.Config.
func BuildStrategy(spec StrategySpec) (strategy.Config, error) {
	kind := strategy.Kind(spec.Kind)
	switch kind {
	case strategy.KindTurtleS1:
		return strategy.TurtleS1(), nil
	case strategy.KindTurtleS2:
		return strategy.TurtleS2(), nil
	}
	bounds, err := yolo.ParamBoundsFor(kind)
	if err != nil {
		return strategy.Config{}, err
	}
	if len(spec.Params) != len(bounds) {
		return strategy.Config{}, terrors.Wrap(terrors.ErrConfiguration,
			"strategy params must match the declared parameter count for "+spec.Kind, nil)
	}
	cfg := yolo.BuildConfig(kind, spec.Params)
	if err := cfg.Validate(); err != nil {
		return strategy.Config{}, err
	}
	return cfg, nil
}

// BuildGrid resolves the config file's grid block. Axes must appear in the
// strategy's declared-bounds order, which is also the order yolo.BuildConfig
// consumes raw values in.
func (c AppConfig) BuildGrid() (sweep.Grid, error) {
	kind := strategy.Kind(c.Grid.Kind)
	if len(c.Grid.Axes) == 0 {
		return sweep.Grid{}, terrors.Wrap(terrors.ErrConfiguration, "config grid has no axes", nil)
	}
	axes := make([]sweep.Axis, len(c.Grid.Axes))
	for i, ax := range c.Grid.Axes {
		axes[i] = sweep.Axis{Name: ax.Name, Values: ax.Values}
	}
	return sweep.Grid{
		Kind: kind,
		Axes: axes,
		Build: func(values []float64) strategy.Config {
			return yolo.BuildConfig(kind, values)
		},
	}, nil
}

// RiskProfile resolves the configured risk profile name, defaulting to
// balanced.
func (c AppConfig) RiskProfile() yolo.RiskProfile {
	switch c.Yolo.RiskProfile {
	case "aggressive":
		return yolo.RiskProfileAggressive
	case "conservative":
		return yolo.RiskProfileConservative
	default:
		return yolo.RiskProfileBalanced
	}
}
