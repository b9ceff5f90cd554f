package stage

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dcan-labs/fmripipe/internal/hcpconf"
	"github.com/dcan-labs/fmripipe/internal/params"
)

// fmriSurface wraps the surface projection tool, mapping each preprocessed
// bold series onto the grayordinate space. One tool run per bold series.
type fmriSurface struct {
	cfg    *hcpconf.Config
	runner Runner
}

func newFMRISurface(cfg *hcpconf.Config, runner Runner) Stage {
	return &fmriSurface{cfg: cfg, runner: runner}
}

func (s *fmriSurface) Name() string { return params.StageFMRISurface }

func (s *fmriSurface) Plan(ncpus int) ([]Invocation, error) {
	p := s.cfg.StageParams(s.Name())

	smoothingFWHM, err := requireInt(p, s.Name(), "smoothing_fwhm")
	if err != nil {
		return nil, err
	}
	grayRes, err := requireInt(p, s.Name(), "grayordinates_resolution")
	if err != nil {
		return nil, err
	}

	var invs []Invocation
	for _, bold := range s.cfg.Bold {
		name := fmriName(bold, s.cfg.Collapsed)
		invs = append(invs, Invocation{
			Executable: p.Executable,
			Args: []string{
				"--path", s.cfg.FilesDir,
				"--subject", s.cfg.Subject,
				"--fmriname", name,
				"--smoothingFWHM", strconv.Itoa(smoothingFWHM),
				"--grayordinatesres", strconv.Itoa(grayRes),
			},
			Env:     withThreads(p.Env, ncpus),
			LogPath: stageLogPath(s.cfg, fmt.Sprintf("%s_%s", s.Name(), name)),
		})
	}

	return invs, nil
}

func (s *fmriSurface) Run(ctx context.Context, ncpus int) error {
	invs, err := s.Plan(ncpus)
	if err != nil {
		return err
	}
	return runAll(ctx, s.runner, invs)
}
