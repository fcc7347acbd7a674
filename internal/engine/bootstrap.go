package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"kbcomponent/internal/config"
	"kbcomponent/internal/datadir"
	"kbcomponent/internal/telemetry"
)

type Config struct {
	DataDir    string
	ConfigPath string // "" = <DataDir>/config.json
	RunID      string
	// MetricsTextfile receives the run's metrics; "" disables it.
	MetricsTextfile string

	Logger *slog.Logger
	Level  *slog.LevelVar   // raised to debug when parameters.debug is set
	Now    func() time.Time // nil = time.Now
}

// Bootstrap resolves the data directory and validates the component
// configuration. Nothing is written before it returns successfully.
func Bootstrap(cfg Config) (*Engine, error) {
	if cfg.Logger == nil {
		return nil, errors.New("engine: logger is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	log := cfg.Logger
	if cfg.RunID != "" {
		log = log.With("run_id", cfg.RunID)
	}

	// 1. data directory
	layout, err := datadir.Resolve(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	if cfg.ConfigPath == "" {
		cfg.ConfigPath = layout.Config
	}

	// 2. component configuration
	comp, err := config.LoadComponent(cfg.ConfigPath)
	if err != nil {
		if errors.Is(err, config.ErrInvalid) {
			return nil, &UserError{Err: err}
		}
		return nil, fmt.Errorf("config: %w", err)
	}
	if comp.Parameters.Debug && cfg.Level != nil {
		cfg.Level.Set(slog.LevelDebug)
		log.Debug("debug logging enabled")
	}

	// 3. metrics
	m := telemetry.New(cfg.RunID)

	return &Engine{
		cfg:     cfg,
		log:     log,
		layout:  layout,
		comp:    comp,
		metrics: m,
	}, nil
}
