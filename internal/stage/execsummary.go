package stage

import (
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"github.com/dcan-labs/fmripipe/internal/ctxlog"
	"github.com/dcan-labs/fmripipe/internal/hcpconf"
	"github.com/dcan-labs/fmripipe/internal/params"
)

// executiveSummary is the terminal stage. It writes an HTML index of the
// session's inputs into the output directory, then invokes the external
// summary tool that renders the QC montage images.
type executiveSummary struct {
	cfg    *hcpconf.Config
	runner Runner
}

func newExecutiveSummary(cfg *hcpconf.Config, runner Runner) Stage {
	return &executiveSummary{cfg: cfg, runner: runner}
}

func (s *executiveSummary) Name() string { return params.StageExecutiveSummary }

func (s *executiveSummary) Plan(ncpus int) ([]Invocation, error) {
	p := s.cfg.StageParams(s.Name())

	return []Invocation{{
		Executable: p.Executable,
		Args: []string{
			"--output", s.cfg.OutputDir,
			"--subject", s.cfg.Subject,
			"--session", s.cfg.Session,
		},
		Env:     withThreads(p.Env, ncpus),
		LogPath: stageLogPath(s.cfg, s.Name()),
	}}, nil
}

func (s *executiveSummary) Run(ctx context.Context, ncpus int) error {
	if _, dry := s.runner.(DryRunner); dry {
		ctxlog.FromContext(ctx).Info("Dry run, not writing summary index.",
			"path", filepath.Join(s.cfg.OutputDir, "summary.html"))
	} else if err := s.writeSummaryIndex(ctx); err != nil {
		return err
	}

	invs, err := s.Plan(ncpus)
	if err != nil {
		return err
	}
	return runAll(ctx, s.runner, invs)
}

// summaryData feeds the HTML index template.
type summaryData struct {
	Subject string
	Session string
	T1w     []string
	T2w     []string
	Bold    []string
}

var summaryTemplate = template.Must(template.New("summary").Parse(`<!DOCTYPE html>
<html>
<head><title>Executive summary: sub-{{.Subject}} ses-{{.Session}}</title></head>
<body>
<h1>sub-{{.Subject}} / ses-{{.Session}}</h1>
<h2>Anatomical inputs</h2>
<ul>
{{range .T1w}}<li>{{.}}</li>
{{end}}{{range .T2w}}<li>{{.}}</li>
{{end}}</ul>
<h2>Functional runs</h2>
<ul>
{{range .Bold}}<li>{{.}}</li>
{{end}}</ul>
</body>
</html>
`))

// writeSummaryIndex renders summary.html into the session output directory.
func (s *executiveSummary) writeSummaryIndex(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	path := filepath.Join(s.cfg.OutputDir, "summary.html")
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create summary index %s: %w", path, err)
	}
	defer file.Close()

	data := summaryData{
		Subject: s.cfg.Subject,
		Session: s.cfg.Session,
		T1w:     s.cfg.T1w,
		T2w:     s.cfg.T2w,
		Bold:    s.cfg.Bold,
	}
	if err := summaryTemplate.Execute(file, data); err != nil {
		return fmt.Errorf("failed to render summary index: %w", err)
	}

	logger.Debug("Summary index written.", "path", path)
	return nil
}
