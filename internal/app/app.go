package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/dcan-labs/fmripipe/internal/ctxlog"
	"github.com/dcan-labs/fmripipe/internal/params"
	"github.com/dcan-labs/fmripipe/internal/stage"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	model    *params.Model
	registry *stage.Registry
	runner   stage.Runner

	status runStatus
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and stage
// registry. A nil runner selects the production exec runner, or the dry-run
// logger when the config asks for it; tests inject their own.
func NewApp(outW io.Writer, config *Config, runner stage.Runner) *App {
	logger := newLogger(config.LogLevel, config.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	var paramPaths []string
	if config.ParamsPath != "" {
		paramPaths = append(paramPaths, config.ParamsPath)
	}

	model, err := params.Load(ctx, paramPaths...)
	if err != nil {
		// A failure to load the parameter manifests is a fatal startup error.
		panic(fmt.Errorf("failed to load parameter manifests: %w", err))
	}
	logger.Debug("Parameter manifests loaded and merged over defaults.")

	registry := stage.CoreRegistry()
	if err := registry.Validate(); err != nil {
		// A stage missing from the registry is a programmer error.
		panic(err)
	}
	logger.Debug("Stage registry validation passed.", "stages", len(params.StageOrder()))

	if runner == nil {
		if config.DryRun {
			runner = stage.DryRunner{}
		} else {
			runner = stage.NewExecRunner()
		}
	}

	return &App{
		outW:     outW,
		logger:   logger,
		config:   config,
		model:    model,
		registry: registry,
		runner:   runner,
	}
}

// Model returns the merged parameter model. This is primarily for testing.
func (a *App) Model() *params.Model {
	return a.model
}
