package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/dcan-labs/fmripipe/internal/stage"
)

// RecordingRunner implements stage.Runner and records every invocation
// instead of executing it.
type RecordingRunner struct {
	mu          sync.Mutex
	invocations []stage.Invocation

	// FailOnExecutable, when set, fails any invocation of that executable.
	FailOnExecutable string
}

// Run implements stage.Runner.
func (r *RecordingRunner) Run(ctx context.Context, inv stage.Invocation) error {
	r.mu.Lock()
	r.invocations = append(r.invocations, inv)
	r.mu.Unlock()

	if r.FailOnExecutable != "" && inv.Executable == r.FailOnExecutable {
		return fmt.Errorf("simulated failure of %s", inv.Executable)
	}
	return nil
}

// Invocations returns a copy of the recorded invocations in order.
func (r *RecordingRunner) Invocations() []stage.Invocation {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]stage.Invocation, len(r.invocations))
	copy(out, r.invocations)
	return out
}

// Executables returns just the executable names, in invocation order.
func (r *RecordingRunner) Executables() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var names []string
	for _, inv := range r.invocations {
		names = append(names, inv.Executable)
	}
	return names
}
