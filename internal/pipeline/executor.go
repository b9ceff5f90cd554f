// Package pipeline executes a session's stages strictly serially, in their
// canonical order, with resume-from-stage support and per-stage state
// tracking for the status endpoint.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dcan-labs/fmripipe/internal/ctxlog"
	"github.com/dcan-labs/fmripipe/internal/params"
	"github.com/dcan-labs/fmripipe/internal/stage"
)

// StageStatus is one row of the executor's state snapshot.
type StageStatus struct {
	Name     string        `json:"name"`
	State    string        `json:"state"`
	Duration time.Duration `json:"duration_ns"`
}

// Executor runs an ordered list of stages for one session. State is guarded
// by a mutex because the status endpoint reads snapshots while a run is in
// flight.
type Executor struct {
	mu     sync.Mutex
	stages []stage.Stage
	states []State
	timing []time.Duration
}

// New creates an executor over the given stages, which must already be in
// canonical order (see Order).
func New(stages []stage.Stage) *Executor {
	return &Executor{
		stages: stages,
		states: make([]State, len(stages)),
		timing: make([]time.Duration, len(stages)),
	}
}

// Order builds the stage list for a session in canonical order, optionally
// sliced to begin at resumeFrom. An unknown resume name is an error naming
// the valid stages, matching the CLI contract.
func Order(newStage func(name string) (stage.Stage, error), resumeFrom string) ([]stage.Stage, error) {
	names := params.StageOrder()

	start := 0
	if resumeFrom != "" {
		start = -1
		for i, name := range names {
			if name == resumeFrom {
				start = i
				break
			}
		}
		if start < 0 {
			return nil, fmt.Errorf("'%s' is unknown, valid stages are %v", resumeFrom, names)
		}
	}

	var stages []stage.Stage
	for _, name := range names[start:] {
		s, err := newStage(name)
		if err != nil {
			return nil, err
		}
		stages = append(stages, s)
	}
	return stages, nil
}

// Run executes the stages in order, stopping at the first failure. Remaining
// stages are marked Skipped and the returned error names the failed stage
// and wraps the root cause.
func (e *Executor) Run(ctx context.Context, ncpus int) error {
	logger := ctxlog.FromContext(ctx)

	for i, s := range e.stages {
		if err := ctx.Err(); err != nil {
			e.skipFrom(i)
			return err
		}

		e.setState(i, Running)
		logger.Info("▶️ Running stage", "stage", s.Name())
		e.logPlan(ctx, s, ncpus)

		started := time.Now()
		err := s.Run(ctx, ncpus)
		elapsed := time.Since(started)
		e.setTiming(i, elapsed)

		if err != nil {
			e.setState(i, Failed)
			e.skipFrom(i + 1)
			logger.Error("Stage failed.", "stage", s.Name(), "elapsed", elapsed, "error", err)
			return fmt.Errorf("stage %s failed: %w", s.Name(), err)
		}

		e.setState(i, Done)
		logger.Info("✅ Stage complete", "stage", s.Name(), "elapsed", elapsed)
	}

	return nil
}

// Snapshot returns a copy of the per-stage states and timings.
func (e *Executor) Snapshot() []StageStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	snapshot := make([]StageStatus, len(e.stages))
	for i, s := range e.stages {
		snapshot[i] = StageStatus{
			Name:     s.Name(),
			State:    e.states[i].String(),
			Duration: e.timing[i],
		}
	}
	return snapshot
}

// logPlan logs the assembled command lines for a stage before it runs.
func (e *Executor) logPlan(ctx context.Context, s stage.Stage, ncpus int) {
	logger := ctxlog.FromContext(ctx)
	invs, err := s.Plan(ncpus)
	if err != nil {
		// Run will surface the same error; the banner just skips the detail.
		return
	}
	for _, inv := range invs {
		logger.Info("Assembled command.", "stage", s.Name(), "command", inv.String())
	}
}

func (e *Executor) setState(i int, state State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.states[i] = state
}

func (e *Executor) setTiming(i int, d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.timing[i] = d
}

// skipFrom marks every stage at or after index i as Skipped.
func (e *Executor) skipFrom(i int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for ; i < len(e.states); i++ {
		if e.states[i] == Pending {
			e.states[i] = Skipped
		}
	}
}
