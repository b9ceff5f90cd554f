package stage

import (
	"context"
	"strconv"

	"github.com/dcan-labs/fmripipe/internal/hcpconf"
	"github.com/dcan-labs/fmripipe/internal/params"
)

// postFreeSurfer wraps the surface post-processing tool: CIFTI generation,
// myelin maps, and transforms into the grayordinate spaces.
type postFreeSurfer struct {
	cfg    *hcpconf.Config
	runner Runner
}

func newPostFreeSurfer(cfg *hcpconf.Config, runner Runner) Stage {
	return &postFreeSurfer{cfg: cfg, runner: runner}
}

func (s *postFreeSurfer) Name() string { return params.StagePostFreeSurfer }

func (s *postFreeSurfer) Plan(ncpus int) ([]Invocation, error) {
	p := s.cfg.StageParams(s.Name())

	grayRes, err := requireInt(p, s.Name(), "grayordinates_resolution")
	if err != nil {
		return nil, err
	}
	lowResMesh, err := requireInt(p, s.Name(), "low_res_mesh")
	if err != nil {
		return nil, err
	}
	highResMesh, err := requireInt(p, s.Name(), "high_res_mesh")
	if err != nil {
		return nil, err
	}
	regName, err := requireString(p, s.Name(), "surface_registration")
	if err != nil {
		return nil, err
	}

	args := []string{
		"--path", s.cfg.FilesDir,
		"--subject", s.cfg.Subject,
		"--grayordinatesres", strconv.Itoa(grayRes),
		"--lowresmesh", strconv.Itoa(lowResMesh),
		"--highresmesh", strconv.Itoa(highResMesh),
		"--regname", regName,
	}

	return []Invocation{{
		Executable: p.Executable,
		Args:       args,
		Env:        withThreads(p.Env, ncpus),
		LogPath:    stageLogPath(s.cfg, s.Name()),
	}}, nil
}

func (s *postFreeSurfer) Run(ctx context.Context, ncpus int) error {
	invs, err := s.Plan(ncpus)
	if err != nil {
		return err
	}
	return runAll(ctx, s.runner, invs)
}
