package stage

import (
	"context"
	"strconv"

	"github.com/dcan-labs/fmripipe/internal/hcpconf"
	"github.com/dcan-labs/fmripipe/internal/params"
)

// preFreeSurfer wraps the anatomical preprocessing tool: gradient distortion
// correction, ACPC alignment, and atlas registration of the T1w/T2w images.
type preFreeSurfer struct {
	cfg    *hcpconf.Config
	runner Runner
}

func newPreFreeSurfer(cfg *hcpconf.Config, runner Runner) Stage {
	return &preFreeSurfer{cfg: cfg, runner: runner}
}

func (s *preFreeSurfer) Name() string { return params.StagePreFreeSurfer }

func (s *preFreeSurfer) Plan(ncpus int) ([]Invocation, error) {
	p := s.cfg.StageParams(s.Name())

	brainSize, err := requireInt(p, s.Name(), "brain_size")
	if err != nil {
		return nil, err
	}
	t1Template, err := requireString(p, s.Name(), "t1_template")
	if err != nil {
		return nil, err
	}
	t2Template, err := requireString(p, s.Name(), "t2_template")
	if err != nil {
		return nil, err
	}

	args := []string{
		"--path", s.cfg.FilesDir,
		"--subject", s.cfg.Subject,
		"--t1", joinImages(s.cfg.T1w),
		"--t1template", t1Template,
		"--brainsize", strconv.Itoa(brainSize),
	}
	// T2w is optional in BIDS; the tool runs in T1w-only mode without it.
	if len(s.cfg.T2w) > 0 {
		args = append(args,
			"--t2", joinImages(s.cfg.T2w),
			"--t2template", t2Template,
		)
	}

	return []Invocation{{
		Executable: p.Executable,
		Args:       args,
		Env:        withThreads(p.Env, ncpus),
		LogPath:    stageLogPath(s.cfg, s.Name()),
	}}, nil
}

func (s *preFreeSurfer) Run(ctx context.Context, ncpus int) error {
	invs, err := s.Plan(ncpus)
	if err != nil {
		return err
	}
	return runAll(ctx, s.runner, invs)
}
