package stage

import (
	"context"

	"github.com/dcan-labs/fmripipe/internal/hcpconf"
	"github.com/dcan-labs/fmripipe/internal/params"
)

// signalPreprocessing wraps the DCAN signal preprocessing tool: band-pass
// filtering, nuisance regression, and motion censoring over the surface
// timeseries produced by the earlier stages.
type signalPreprocessing struct {
	cfg    *hcpconf.Config
	runner Runner
}

func newSignalPreprocessing(cfg *hcpconf.Config, runner Runner) Stage {
	return &signalPreprocessing{cfg: cfg, runner: runner}
}

func (s *signalPreprocessing) Name() string { return params.StageSignalPreprocessing }

func (s *signalPreprocessing) Plan(ncpus int) ([]Invocation, error) {
	p := s.cfg.StageParams(s.Name())

	// The band-pass and censoring options are numeric in the manifests but
	// the tool takes them as plain decimal strings.
	lowerBPF, err := requireString(p, s.Name(), "lower_bpf")
	if err != nil {
		return nil, err
	}
	upperBPF, err := requireString(p, s.Name(), "upper_bpf")
	if err != nil {
		return nil, err
	}
	filterOrder, err := requireString(p, s.Name(), "filter_order")
	if err != nil {
		return nil, err
	}
	fdThreshold, err := requireString(p, s.Name(), "fd_threshold")
	if err != nil {
		return nil, err
	}

	args := []string{
		"--subject", s.cfg.Subject,
		"--session", s.cfg.Session,
		"--output", s.cfg.FilesDir,
		"--lower-bpf", lowerBPF,
		"--upper-bpf", upperBPF,
		"--filter-order", filterOrder,
		"--fd-threshold", fdThreshold,
	}
	for _, bold := range s.cfg.Bold {
		args = append(args, "--task", fmriName(bold, s.cfg.Collapsed))
	}

	return []Invocation{{
		Executable: p.Executable,
		Args:       args,
		Env:        withThreads(p.Env, ncpus),
		LogPath:    stageLogPath(s.cfg, s.Name()),
	}}, nil
}

func (s *signalPreprocessing) Run(ctx context.Context, ncpus int) error {
	invs, err := s.Plan(ncpus)
	if err != nil {
		return err
	}
	return runAll(ctx, s.runner, invs)
}
