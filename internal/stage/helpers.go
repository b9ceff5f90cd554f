package stage

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dcan-labs/fmripipe/internal/hcpconf"
	"github.com/dcan-labs/fmripipe/internal/params"
)

// runAll plans nothing itself; it executes already assembled invocations in
// order and stops at the first failure.
func runAll(ctx context.Context, runner Runner, invs []Invocation) error {
	for _, inv := range invs {
		if err := runner.Run(ctx, inv); err != nil {
			return err
		}
	}
	return nil
}

// withThreads copies the stage's environment and adds the thread count the
// external tools read. The ncpus value itself is forwarded unexamined.
func withThreads(env map[string]string, ncpus int) map[string]string {
	merged := make(map[string]string, len(env)+1)
	for k, v := range env {
		merged[k] = v
	}
	merged["OMP_NUM_THREADS"] = strconv.Itoa(ncpus)
	return merged
}

// stageLogPath places the mirror log for one invocation under the session's
// logs directory.
func stageLogPath(cfg *hcpconf.Config, name string) string {
	return filepath.Join(cfg.LogsDir, name+".log")
}

// joinImages renders a list of image paths in the @-separated form the HCP
// shell tools expect for multi-run anatomicals.
func joinImages(paths []string) string {
	return strings.Join(paths, "@")
}

// fmriName derives the functional run's name from its filename by dropping
// the subject/session entities and the _bold suffix, e.g.
// sub-01_ses-a_task-rest_run-01_bold.nii.gz -> task-rest_run-01.
// In a collapsed session the ses- entity is kept, otherwise same-task runs
// from different source sessions would share a name and clobber each other's
// working trees and logs.
func fmriName(boldPath string, keepSession bool) string {
	base := filepath.Base(boldPath)
	base = strings.TrimSuffix(base, ".gz")
	base = strings.TrimSuffix(base, ".nii")
	base = strings.TrimSuffix(base, "_bold")

	parts := strings.Split(base, "_")
	kept := parts[:0]
	for _, part := range parts {
		if strings.HasPrefix(part, "sub-") {
			continue
		}
		if strings.HasPrefix(part, "ses-") && !keepSession {
			continue
		}
		kept = append(kept, part)
	}
	return strings.Join(kept, "_")
}

// requireString fetches a stage option that has no usable zero value.
func requireString(p *params.StageParams, stageName string, option string) (string, error) {
	value, ok, err := p.OptionString(option)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("stage %s: required option %q is not set", stageName, option)
	}
	return value, nil
}

// requireInt is the integer counterpart of requireString.
func requireInt(p *params.StageParams, stageName string, option string) (int, error) {
	value, ok, err := p.OptionInt(option)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("stage %s: required option %q is not set", stageName, option)
	}
	return value, nil
}
