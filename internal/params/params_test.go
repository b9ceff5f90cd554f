package params_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcan-labs/fmripipe/internal/params"
	"github.com/dcan-labs/fmripipe/internal/testutil"
)

func TestDefaultsCoverEveryStage(t *testing.T) {
	t.Parallel()

	model := params.Defaults()
	for _, name := range params.StageOrder() {
		p, ok := model.Stages[name]
		require.True(t, ok, "no default parameters for stage %s", name)
		assert.NotEmpty(t, p.Executable, "stage %s has no default executable", name)
	}
}

func TestStageOrder(t *testing.T) {
	t.Parallel()

	order := params.StageOrder()
	require.Len(t, order, 7)
	assert.Equal(t, params.StagePreFreeSurfer, order[0])
	assert.Equal(t, params.StageExecutiveSummary, order[6])

	assert.True(t, params.IsKnownStage("FreeSurfer"))
	assert.False(t, params.IsKnownStage("freesurfer"), "matching must be case-sensitive")
	assert.False(t, params.IsKnownStage("Unknown"))
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("manifest overlays defaults per key", func(t *testing.T) {
		t.Parallel()
		ctx, _ := testutil.Context(t)
		dir := t.TempDir()
		testutil.WriteDataset(t, dir, map[string]string{
			"site.hcl": `
stage "PreFreeSurfer" {
  executable = "/opt/hcp/PreFreeSurferPipeline.sh"

  options {
    brain_size = 170
  }
}
`,
		})

		model, err := params.Load(ctx, dir)
		require.NoError(t, err)

		p := model.Stages[params.StagePreFreeSurfer]
		assert.Equal(t, "/opt/hcp/PreFreeSurferPipeline.sh", p.Executable)

		brainSize, ok, err := p.OptionInt("brain_size")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 170, brainSize)

		// Untouched options keep their defaults.
		tpl, ok, err := p.OptionString("t1_template")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "MNI152_T1_1mm.nii.gz", tpl)

		// Other stages are untouched entirely.
		assert.Equal(t, "FreeSurferPipeline.sh", model.Stages[params.StageFreeSurfer].Executable)
	})

	t.Run("later manifests win", func(t *testing.T) {
		t.Parallel()
		ctx, _ := testutil.Context(t)
		dir := t.TempDir()
		testutil.WriteDataset(t, dir, map[string]string{
			"a.hcl": `
stage "FreeSurfer" {
  executable = "first.sh"
}
`,
			"b.hcl": `
stage "FreeSurfer" {
  executable = "second.sh"
}
`,
		})

		model, err := params.Load(ctx, dir)
		require.NoError(t, err)
		assert.Equal(t, "second.sh", model.Stages[params.StageFreeSurfer].Executable)
	})

	t.Run("unknown stage name is rejected", func(t *testing.T) {
		t.Parallel()
		ctx, _ := testutil.Context(t)
		dir := t.TempDir()
		testutil.WriteDataset(t, dir, map[string]string{
			"bad.hcl": `
stage "NotAStage" {
  executable = "x.sh"
}
`,
		})

		_, err := params.Load(ctx, dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown stage")
	})

	t.Run("invalid HCL is rejected", func(t *testing.T) {
		t.Parallel()
		ctx, _ := testutil.Context(t)
		dir := t.TempDir()
		testutil.WriteDataset(t, dir, map[string]string{
			"broken.hcl": `stage "FreeSurfer" {`,
		})

		_, err := params.Load(ctx, dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse")
	})

	t.Run("missing manifest path falls back to defaults", func(t *testing.T) {
		t.Parallel()
		ctx, buf := testutil.Context(t)

		model, err := params.Load(ctx, filepath.Join(t.TempDir(), "dne"))
		require.NoError(t, err)
		assert.Equal(t, "FreeSurferPipeline.sh", model.Stages[params.StageFreeSurfer].Executable)
		assert.Contains(t, buf.String(), "does not exist")
	})
}

func TestOptionAccessors(t *testing.T) {
	t.Parallel()

	p := params.Defaults().Stages[params.StageSignalPreprocessing]

	lower, ok, err := p.OptionString("lower_bpf")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "0.009", lower)

	order, ok, err := p.OptionInt("filter_order")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, order)

	_, ok, err = p.OptionBool("no_such_option")
	require.NoError(t, err)
	assert.False(t, ok)
}
