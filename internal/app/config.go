package app

import (
	"errors"
	"fmt"

	"github.com/dcan-labs/fmripipe/internal/params"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	BIDSDir   string // input dataset root
	OutputDir string // created on demand

	ParticipantLabels []string
	AllSessions       bool
	NCPUs             int
	StartStage        string // empty means the full pipeline
	ParamsPath        string // optional .hcl manifest directory
	DryRun            bool

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
}

// NewConfig validates a Config. The CLI performs the user-facing checks
// (paths, ranges); this guards the programmatic entry points.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.BIDSDir == "" {
		return nil, errors.New("BIDSDir is a required configuration field and cannot be empty")
	}
	if cfg.OutputDir == "" {
		return nil, errors.New("OutputDir is a required configuration field and cannot be empty")
	}
	if cfg.NCPUs < 1 {
		return nil, errors.New("NCPUs must be at least 1")
	}
	if cfg.StartStage != "" && !params.IsKnownStage(cfg.StartStage) {
		return nil, fmt.Errorf("StartStage '%s' is not a known stage", cfg.StartStage)
	}

	return &cfg, nil
}
