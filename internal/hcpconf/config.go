// Package hcpconf derives the per-session configuration the pipeline stages
// consume: resolved output paths, discovered images, and merged parameters.
package hcpconf

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dcan-labs/fmripipe/internal/bids"
	"github.com/dcan-labs/fmripipe/internal/params"
)

// Config is the session-scoped view handed to every stage. It is built once
// per subject/session pair and is read-only after construction.
type Config struct {
	Subject string
	Session string

	// Collapsed marks a session merged from several real ones; derived
	// names must then keep the ses- entity to stay unique.
	Collapsed bool

	// BIDSDir is the dataset root the session was discovered in.
	BIDSDir string

	// OutputDir is output_root/sub-<subject>/ses-<session>. FilesDir and
	// LogsDir are its conventional subdirectories.
	OutputDir string
	FilesDir  string
	LogsDir   string

	// Image paths carried over from discovery.
	T1w       []string
	T2w       []string
	Bold      []string
	Fieldmaps []string

	sidecars map[string]string
	model    *params.Model
}

// New validates the session's inputs and materializes its output tree.
// A session without a T1w image cannot be processed by any stage.
func New(session bids.Session, bidsDir string, outputRoot string, model *params.Model) (*Config, error) {
	if len(session.T1w) == 0 {
		return nil, fmt.Errorf("session sub-%s/ses-%s has no T1w image", session.Subject, session.Session)
	}

	outputDir := filepath.Join(outputRoot,
		fmt.Sprintf("sub-%s", session.Subject),
		fmt.Sprintf("ses-%s", session.Session),
	)

	cfg := &Config{
		Subject:   session.Subject,
		Session:   session.Session,
		Collapsed: session.Collapsed,
		BIDSDir:   bidsDir,
		OutputDir: outputDir,
		FilesDir:  filepath.Join(outputDir, "files"),
		LogsDir:   filepath.Join(outputDir, "logs"),
		T1w:       session.T1w,
		T2w:       session.T2w,
		Bold:      session.Bold,
		Fieldmaps: session.Fieldmaps,
		sidecars:  session.Sidecars,
		model:     model,
	}

	for _, dir := range []string{cfg.FilesDir, cfg.LogsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create session output directory %s: %w", dir, err)
		}
	}

	return cfg, nil
}

// StageParams returns the merged parameter record for the named stage.
// Asking for an unknown stage is a programmer error.
func (c *Config) StageParams(name string) *params.StageParams {
	p, ok := c.model.Stages[name]
	if !ok {
		panic(fmt.Sprintf("no parameters registered for stage '%s'", name))
	}
	return p
}

// Sidecar returns the resolved JSON sidecar for an image, or "" when the
// image has none.
func (c *Config) Sidecar(imagePath string) string {
	return c.sidecars[imagePath]
}

// Label renders the session identity for logs and error messages.
func (c *Config) Label() string {
	return fmt.Sprintf("sub-%s/ses-%s", c.Subject, c.Session)
}
