package stage

import (
	"context"

	"github.com/dcan-labs/fmripipe/internal/ctxlog"
)

// DryRunner logs each assembled command instead of executing it. Used by the
// --dry-run flag to audit a run before committing hours of compute.
type DryRunner struct{}

// Run implements Runner.
func (DryRunner) Run(ctx context.Context, inv Invocation) error {
	ctxlog.FromContext(ctx).Info("Dry run, not executing.", "command", inv.String())
	return nil
}
