package stage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/dcan-labs/fmripipe/internal/hcpconf"
	"github.com/dcan-labs/fmripipe/internal/params"
)

// fmriVolume wraps the volumetric functional preprocessing tool. It runs the
// tool once per discovered bold series.
type fmriVolume struct {
	cfg    *hcpconf.Config
	runner Runner
}

func newFMRIVolume(cfg *hcpconf.Config, runner Runner) Stage {
	return &fmriVolume{cfg: cfg, runner: runner}
}

func (s *fmriVolume) Name() string { return params.StageFMRIVolume }

func (s *fmriVolume) Plan(ncpus int) ([]Invocation, error) {
	p := s.cfg.StageParams(s.Name())

	fmriRes, err := requireInt(p, s.Name(), "fmri_resolution")
	if err != nil {
		return nil, err
	}

	var invs []Invocation
	for _, bold := range s.cfg.Bold {
		name := fmriName(bold, s.cfg.Collapsed)
		args := []string{
			"--path", s.cfg.FilesDir,
			"--subject", s.cfg.Subject,
			"--fmriname", name,
			"--fmritcs", bold,
			"--fmrires", strconv.Itoa(fmriRes),
		}

		meta, err := s.boldMetadata(bold)
		if err != nil {
			return nil, err
		}
		if meta.PhaseEncodingDirection != "" {
			args = append(args, "--unwarpdir", meta.PhaseEncodingDirection)
		}
		if meta.EffectiveEchoSpacing > 0 {
			args = append(args, "--echospacing", strconv.FormatFloat(meta.EffectiveEchoSpacing, 'g', -1, 64))
		}

		invs = append(invs, Invocation{
			Executable: p.Executable,
			Args:       args,
			Env:        withThreads(p.Env, ncpus),
			LogPath:    stageLogPath(s.cfg, fmt.Sprintf("%s_%s", s.Name(), name)),
		})
	}

	return invs, nil
}

// boldMetadata holds the sidecar fields the distortion correction needs.
// Missing sidecars yield the zero value; the tool then skips unwarping.
type boldMetadata struct {
	PhaseEncodingDirection string  `json:"PhaseEncodingDirection"`
	EffectiveEchoSpacing   float64 `json:"EffectiveEchoSpacing"`
}

func (s *fmriVolume) boldMetadata(bold string) (boldMetadata, error) {
	var meta boldMetadata

	sidecar := s.cfg.Sidecar(bold)
	if sidecar == "" {
		return meta, nil
	}

	raw, err := os.ReadFile(sidecar)
	if err != nil {
		return meta, fmt.Errorf("failed to read sidecar %s: %w", sidecar, err)
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return meta, fmt.Errorf("failed to parse sidecar %s: %w", sidecar, err)
	}
	return meta, nil
}

func (s *fmriVolume) Run(ctx context.Context, ncpus int) error {
	invs, err := s.Plan(ncpus)
	if err != nil {
		return err
	}
	return runAll(ctx, s.runner, invs)
}
