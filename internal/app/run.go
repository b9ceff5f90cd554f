package app

import (
	"context"
	"fmt"
	"os"

	"github.com/dcan-labs/fmripipe/internal/bids"
	"github.com/dcan-labs/fmripipe/internal/ctxlog"
	"github.com/dcan-labs/fmripipe/internal/hcpconf"
	"github.com/dcan-labs/fmripipe/internal/pipeline"
	"github.com/dcan-labs/fmripipe/internal/stage"
)

// Run executes the main application logic: discover sessions, then process
// each one serially through the fixed stage order.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.HealthcheckPort > 0 {
		a.startHealthcheckServer(a.config.HealthcheckPort)
	}

	if err := os.MkdirAll(a.config.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", a.config.OutputDir, err)
	}

	sessions, err := bids.ReadDataset(ctx, a.config.BIDSDir, bids.Options{
		ParticipantLabels: a.config.ParticipantLabels,
		CollectOnSubject:  a.config.AllSessions,
	})
	if err != nil {
		return fmt.Errorf("failed to read BIDS dataset: %w", err)
	}

	if len(sessions) == 0 {
		a.logger.Warn("No sessions found in dataset, nothing to process.", "bids_dir", a.config.BIDSDir)
		return nil
	}

	a.logger.Info("🚀 Starting pipeline run.", "sessions", len(sessions), "ncpus", a.config.NCPUs)
	for _, session := range sessions {
		if err := a.runSession(ctx, session); err != nil {
			return err
		}
	}
	a.logger.Info("🏁 Pipeline run finished.")

	a.logger.Debug("App.Run method finished.")
	return nil
}

// runSession processes one subject/session pair through the stage order,
// honoring the resume point.
func (a *App) runSession(ctx context.Context, session bids.Session) error {
	logger := a.logger.With("subject", session.Subject, "session", session.Session)
	ctx = ctxlog.WithLogger(ctx, logger)

	conf, err := hcpconf.New(session, a.config.BIDSDir, a.config.OutputDir, a.model)
	if err != nil {
		return fmt.Errorf("failed to configure session: %w", err)
	}

	stages, err := pipeline.Order(func(name string) (stage.Stage, error) {
		return a.registry.New(name, conf, a.runner)
	}, a.config.StartStage)
	if err != nil {
		return err
	}

	exec := pipeline.New(stages)
	a.status.set(session.Subject, session.Session, exec)

	logger.Info("Processing session.", "stages", len(stages), "resume_from", a.config.StartStage)
	if err := exec.Run(ctx, a.config.NCPUs); err != nil {
		return fmt.Errorf("session %s: %w", conf.Label(), err)
	}

	logger.Info("Session complete.")
	return nil
}
