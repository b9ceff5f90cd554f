package stage

import (
	"context"
	"path/filepath"
	"strconv"

	"github.com/dcan-labs/fmripipe/internal/hcpconf"
	"github.com/dcan-labs/fmripipe/internal/params"
)

// freeSurfer wraps the surface reconstruction tool. It is the longest stage
// by far; ncpus maps onto the tool's own --openmp flag.
type freeSurfer struct {
	cfg    *hcpconf.Config
	runner Runner
}

func newFreeSurfer(cfg *hcpconf.Config, runner Runner) Stage {
	return &freeSurfer{cfg: cfg, runner: runner}
}

func (s *freeSurfer) Name() string { return params.StageFreeSurfer }

func (s *freeSurfer) Plan(ncpus int) ([]Invocation, error) {
	p := s.cfg.StageParams(s.Name())

	// The reconstruction consumes PreFreeSurfer's restored T1w, not the raw
	// BIDS input.
	t1Dir := filepath.Join(s.cfg.FilesDir, "T1w")

	args := []string{
		"--subject", s.cfg.Subject,
		"--subjectDIR", t1Dir,
		"--t1", filepath.Join(t1Dir, "T1w_acpc_dc_restore.nii.gz"),
		"--openmp", strconv.Itoa(ncpus),
	}

	return []Invocation{{
		Executable: p.Executable,
		Args:       args,
		Env:        withThreads(p.Env, ncpus),
		LogPath:    stageLogPath(s.cfg, s.Name()),
	}}, nil
}

func (s *freeSurfer) Run(ctx context.Context, ncpus int) error {
	invs, err := s.Plan(ncpus)
	if err != nil {
		return err
	}
	return runAll(ctx, s.runner, invs)
}
