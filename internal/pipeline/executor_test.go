package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcan-labs/fmripipe/internal/params"
	"github.com/dcan-labs/fmripipe/internal/stage"
	"github.com/dcan-labs/fmripipe/internal/testutil"
)

// fakeStage implements stage.Stage and records its executions.
type fakeStage struct {
	name string
	err  error
	ran  *[]string
}

func (f *fakeStage) Name() string { return f.name }

func (f *fakeStage) Plan(ncpus int) ([]stage.Invocation, error) {
	return []stage.Invocation{{Executable: f.name}}, nil
}

func (f *fakeStage) Run(ctx context.Context, ncpus int) error {
	*f.ran = append(*f.ran, f.name)
	return f.err
}

func fakeStages(ran *[]string, failOn string) []stage.Stage {
	var stages []stage.Stage
	for _, name := range params.StageOrder() {
		s := &fakeStage{name: name, ran: ran}
		if name == failOn {
			s.err = errors.New("tool exploded")
		}
		stages = append(stages, s)
	}
	return stages
}

func TestRunExecutesInCanonicalOrder(t *testing.T) {
	t.Parallel()

	ctx, _ := testutil.Context(t)
	var ran []string
	exec := New(fakeStages(&ran, ""))

	require.NoError(t, exec.Run(ctx, 1))
	assert.Equal(t, params.StageOrder(), ran)

	for _, status := range exec.Snapshot() {
		assert.Equal(t, "done", status.State)
	}
}

func TestRunFailureSkipsRemainingStages(t *testing.T) {
	t.Parallel()

	ctx, _ := testutil.Context(t)
	var ran []string
	exec := New(fakeStages(&ran, params.StageFreeSurfer))

	err := exec.Run(ctx, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stage FreeSurfer failed")
	assert.Contains(t, err.Error(), "tool exploded")

	// Only the first two stages ran.
	assert.Equal(t, []string{params.StagePreFreeSurfer, params.StageFreeSurfer}, ran)

	snapshot := exec.Snapshot()
	assert.Equal(t, "done", snapshot[0].State)
	assert.Equal(t, "failed", snapshot[1].State)
	for _, status := range snapshot[2:] {
		assert.Equal(t, "skipped", status.State, "stage %s must be skipped", status.Name)
	}
}

func TestRunHonorsContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, _ := testutil.Context(t)
	ctx, cancel := context.WithCancel(ctx)
	cancel()

	var ran []string
	exec := New(fakeStages(&ran, ""))

	err := exec.Run(ctx, 1)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, ran)
}

func TestOrder(t *testing.T) {
	t.Parallel()

	newStage := func(name string) (stage.Stage, error) {
		return &fakeStage{name: name, ran: &[]string{}}, nil
	}

	t.Run("empty resume keeps the full pipeline", func(t *testing.T) {
		t.Parallel()
		stages, err := Order(newStage, "")
		require.NoError(t, err)
		assert.Len(t, stages, 7)
	})

	t.Run("resume slices from the named stage", func(t *testing.T) {
		t.Parallel()
		stages, err := Order(newStage, params.StageFMRIVolume)
		require.NoError(t, err)
		require.Len(t, stages, 4)
		assert.Equal(t, params.StageFMRIVolume, stages[0].Name())
		assert.Equal(t, params.StageExecutiveSummary, stages[3].Name())
	})

	t.Run("unknown resume stage is an error", func(t *testing.T) {
		t.Parallel()
		_, err := Order(newStage, "NotAStage")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "is unknown")
	})
}
