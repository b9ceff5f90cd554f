package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcan-labs/fmripipe/internal/cli"
	"github.com/dcan-labs/fmripipe/internal/testutil"
)

func TestRun_HelpExitsCleanly(t *testing.T) {
	t.Parallel()

	out := &testutil.SafeBuffer{}
	require.NoError(t, run(out, []string{"-h"}))
	assert.Contains(t, out.String(), "Usage:")
}

func TestRun_UsageErrorsCarryExitCode(t *testing.T) {
	t.Parallel()

	out := &testutil.SafeBuffer{}
	err := run(out, []string{"--ncpus", "0", t.TempDir(), "/tmp/out"})
	require.Error(t, err)

	exitErr, ok := err.(*cli.ExitError)
	require.True(t, ok, "usage errors must be ExitErrors, got %T", err)
	assert.Equal(t, 2, exitErr.Code)
}

func TestRun_EmptyDatasetCompletes(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	bidsDir := filepath.Join(tmpDir, "bids")
	require.NoError(t, os.Mkdir(bidsDir, 0o755))

	out := &testutil.SafeBuffer{}
	err := run(out, []string{"--dry-run", bidsDir, filepath.Join(tmpDir, "out")})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "No sessions found")
}

func TestRun_RecoversFromStartupPanic(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	bidsDir := filepath.Join(tmpDir, "bids")
	require.NoError(t, os.Mkdir(bidsDir, 0o755))

	manifest := filepath.Join(tmpDir, "broken.hcl")
	require.NoError(t, os.WriteFile(manifest, []byte(`stage "FreeSurfer" {`), 0o644))

	out := &testutil.SafeBuffer{}
	err := run(out, []string{"--params-path", manifest, bidsDir, filepath.Join(tmpDir, "out")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a critical startup error occurred")
}
