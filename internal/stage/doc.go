// Package stage implements the seven processing stages of the pipeline as
// thin wrappers around their external executables.
//
// A Stage assembles the argument list and environment for its tool from the
// session configuration and hands the resulting invocations to a Runner.
// Stages are looked up through a Registry keyed by their canonical names, so
// the executor and the CLI resume flag share a single source of truth for
// what exists. The Runner seam is what keeps the package testable: the real
// implementation shells out via os/exec, tests substitute a recorder.
package stage
