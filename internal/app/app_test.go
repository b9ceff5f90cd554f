package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcan-labs/fmripipe/internal/params"
	"github.com/dcan-labs/fmripipe/internal/testutil"
)

func singleSessionDataset() map[string]string {
	return map[string]string{
		"sub-01/ses-a/anat/sub-01_ses-a_T1w.nii.gz":            "t1",
		"sub-01/ses-a/anat/sub-01_ses-a_T2w.nii.gz":            "t2",
		"sub-01/ses-a/func/sub-01_ses-a_task-rest_bold.nii.gz": "bold",
	}
}

// fullPipelineExecutables is the expected tool sequence for one session with
// a single bold series, using the default parameter model.
var fullPipelineExecutables = []string{
	"PreFreeSurferPipeline.sh",
	"FreeSurferPipeline.sh",
	"PostFreeSurferPipeline.sh",
	"GenericfMRIVolumeProcessingPipeline.sh",
	"GenericfMRISurfaceProcessingPipeline.sh",
	"dcan_signal_processing.py",
	"executive_summary.py",
}

func TestRun_FullPipeline(t *testing.T) {
	t.Parallel()

	result := RunPipelineTest(t, singleSessionDataset(), nil)
	require.NoError(t, result.Err)

	assert.Equal(t, fullPipelineExecutables, result.Runner.Executables())
	assert.Contains(t, result.LogOutput, "🚀 Starting pipeline run.")
	assert.Contains(t, result.LogOutput, "🏁 Pipeline run finished.")
}

func TestRun_ResumeFromStage(t *testing.T) {
	t.Parallel()

	result := RunPipelineTest(t, singleSessionDataset(), func(c *Config) {
		c.StartStage = params.StageFMRIVolume
	})
	require.NoError(t, result.Err)

	assert.Equal(t, fullPipelineExecutables[3:], result.Runner.Executables())
}

func TestRun_StageFailureAbortsSession(t *testing.T) {
	t.Parallel()

	runner := &testutil.RecordingRunner{FailOnExecutable: "FreeSurferPipeline.sh"}
	result := RunPipelineTestWithRunner(t, singleSessionDataset(), nil, runner)

	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "session sub-01/ses-a")
	assert.Contains(t, result.Err.Error(), "stage FreeSurfer failed")

	// Nothing past the failed stage ran.
	assert.Equal(t, fullPipelineExecutables[:2], runner.Executables())
}

func TestRun_EmptyDatasetIsNotAnError(t *testing.T) {
	t.Parallel()

	result := RunPipelineTest(t, map[string]string{}, nil)
	require.NoError(t, result.Err)
	assert.Empty(t, result.Runner.Executables())
	assert.Contains(t, result.LogOutput, "No sessions found")
}

func TestRun_ParticipantFilter(t *testing.T) {
	t.Parallel()

	files := singleSessionDataset()
	files["sub-02/ses-a/anat/sub-02_ses-a_T1w.nii.gz"] = "t1"
	files["sub-02/ses-a/func/sub-02_ses-a_task-rest_bold.nii.gz"] = "bold"

	result := RunPipelineTest(t, files, func(c *Config) {
		c.ParticipantLabels = []string{"02"}
	})
	require.NoError(t, result.Err)

	invocations := result.Runner.Invocations()
	require.Len(t, invocations, 7)
	joined := strings.Join(invocations[0].Args, " ")
	assert.Contains(t, joined, "sub-02")
	assert.NotContains(t, joined, "sub-01")
}

func TestRun_AllSessionsCollapsesSubject(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"sub-01/ses-a/anat/sub-01_ses-a_T1w.nii.gz":            "t1",
		"sub-01/ses-a/func/sub-01_ses-a_task-rest_bold.nii.gz": "bold",
		"sub-01/ses-b/anat/sub-01_ses-b_T1w.nii.gz":            "t1",
		"sub-01/ses-b/func/sub-01_ses-b_task-rest_bold.nii.gz": "bold",
	}

	result := RunPipelineTest(t, files, func(c *Config) {
		c.AllSessions = true
	})
	require.NoError(t, result.Err)

	// One collapsed session: three anatomical stages, two per-bold stages
	// twice, then signal preprocessing and the summary.
	executables := result.Runner.Executables()
	assert.Len(t, executables, 9)
	assert.Contains(t, result.LogOutput, "a+b")

	// Same-task runs from the merged sessions must keep distinct names and
	// log files, or the second run clobbers the first.
	seenNames := map[string]bool{}
	seenLogs := map[string]bool{}
	for _, inv := range result.Runner.Invocations() {
		if inv.Executable != "GenericfMRIVolumeProcessingPipeline.sh" {
			continue
		}
		for i, arg := range inv.Args {
			if arg == "--fmriname" {
				assert.False(t, seenNames[inv.Args[i+1]], "duplicate fmriname %s", inv.Args[i+1])
				seenNames[inv.Args[i+1]] = true
			}
		}
		assert.False(t, seenLogs[inv.LogPath], "duplicate log path %s", inv.LogPath)
		seenLogs[inv.LogPath] = true
	}
	assert.Len(t, seenNames, 2)
}

func TestRun_ManifestOverridesExecutable(t *testing.T) {
	t.Parallel()

	manifest := filepath.Join(t.TempDir(), "site.hcl")
	require.NoError(t, os.WriteFile(manifest, []byte(`
stage "FreeSurfer" {
  executable = "my_freesurfer.sh"
}
`), 0o644))

	result := RunPipelineTest(t, singleSessionDataset(), func(c *Config) {
		c.ParamsPath = manifest
	})
	require.NoError(t, result.Err)

	assert.Contains(t, result.Runner.Executables(), "my_freesurfer.sh")
	assert.NotContains(t, result.Runner.Executables(), "FreeSurferPipeline.sh")
}

func TestRun_BrokenManifestPanicsAtStartup(t *testing.T) {
	t.Parallel()

	manifest := filepath.Join(t.TempDir(), "broken.hcl")
	require.NoError(t, os.WriteFile(manifest, []byte(`stage "FreeSurfer" {`), 0o644))

	result := RunPipelineTest(t, singleSessionDataset(), func(c *Config) {
		c.ParamsPath = manifest
	})
	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "application startup panicked")
}
