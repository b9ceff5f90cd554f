package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dcan-labs/fmripipe/internal/testutil"
)

// HarnessResult holds the outcomes of an end-to-end pipeline test run.
// It is public so system tests in other packages can share the harness.
type HarnessResult struct {
	LogOutput string
	Err       error
	App       *App
	Runner    *testutil.RecordingRunner
}

// RunPipelineTest runs the full app against a synthetic dataset. files maps
// dataset-relative paths (e.g. "sub-01/anat/sub-01_T1w.nii.gz") to contents.
// mutate, when non-nil, adjusts the config before the app is constructed.
func RunPipelineTest(t *testing.T, files map[string]string, mutate func(*Config)) *HarnessResult {
	t.Helper()
	return RunPipelineTestWithRunner(t, files, mutate, &testutil.RecordingRunner{})
}

// RunPipelineTestWithRunner is RunPipelineTest with a caller-prepared runner,
// for tests that simulate stage failures.
func RunPipelineTestWithRunner(t *testing.T, files map[string]string, mutate func(*Config), runner *testutil.RecordingRunner) *HarnessResult {
	t.Helper()

	tmpDir := t.TempDir()
	bidsDir := filepath.Join(tmpDir, "bids")
	outputDir := filepath.Join(tmpDir, "out")
	require.NoError(t, os.Mkdir(bidsDir, 0o755))

	testutil.WriteDataset(t, bidsDir, files)

	appConfig := &Config{
		BIDSDir:   bidsDir,
		OutputDir: outputDir,
		NCPUs:     1,
		LogLevel:  "debug",
		LogFormat: "text",
	}
	if mutate != nil {
		mutate(appConfig)
	}

	logBuffer := &testutil.SafeBuffer{}

	var testApp *App
	var panicErr any
	func() {
		defer func() {
			if r := recover(); r != nil {
				panicErr = r
			}
		}()
		testApp = NewApp(logBuffer, appConfig, runner)
	}()

	if panicErr != nil {
		return &HarnessResult{
			LogOutput: logBuffer.String(),
			Err:       fmt.Errorf("application startup panicked | %v", panicErr),
			Runner:    runner,
		}
	}

	runErr := testApp.Run(context.Background())

	if os.Getenv("FMRIPIPE_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
	}

	return &HarnessResult{
		LogOutput: logBuffer.String(),
		Err:       runErr,
		App:       testApp,
		Runner:    runner,
	}
}
