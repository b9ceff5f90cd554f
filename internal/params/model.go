package params

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Canonical stage names, in no particular order. The driver refuses any
// stage name outside this set.
const (
	StagePreFreeSurfer       = "PreFreeSurfer"
	StageFreeSurfer          = "FreeSurfer"
	StagePostFreeSurfer      = "PostFreeSurfer"
	StageFMRIVolume          = "FMRIVolume"
	StageFMRISurface         = "FMRISurface"
	StageSignalPreprocessing = "DCANSignalPreprocessing"
	StageExecutiveSummary    = "ExecutiveSummary"
)

// stageOrder is the fixed execution order of the pipeline.
var stageOrder = []string{
	StagePreFreeSurfer,
	StageFreeSurfer,
	StagePostFreeSurfer,
	StageFMRIVolume,
	StageFMRISurface,
	StageSignalPreprocessing,
	StageExecutiveSummary,
}

// StageOrder returns the canonical execution order as a fresh slice.
func StageOrder() []string {
	order := make([]string, len(stageOrder))
	copy(order, stageOrder)
	return order
}

// IsKnownStage reports whether name is one of the canonical stage names.
// Matching is exact and case-sensitive.
func IsKnownStage(name string) bool {
	for _, known := range stageOrder {
		if known == name {
			return true
		}
	}
	return false
}

// Model is the merged parameter table for a run, keyed by stage name.
type Model struct {
	Stages map[string]*StageParams
}

// StageParams holds everything needed to invoke one stage's external tool.
type StageParams struct {
	// Executable is the program name or path handed to os/exec.
	Executable string

	// Env holds extra environment variables exported to the child process.
	Env map[string]string

	// Options is the typed option table from the manifests. Values keep
	// their cty types until a stage asks for a concrete Go type.
	Options map[string]cty.Value
}

// OptionString returns the named option converted to a string. The second
// return is false when the option is absent.
func (p *StageParams) OptionString(name string) (string, bool, error) {
	raw, ok := p.Options[name]
	if !ok {
		return "", false, nil
	}
	converted, err := convert.Convert(raw, cty.String)
	if err != nil {
		return "", true, fmt.Errorf("option %q is not convertible to string: %w", name, err)
	}
	return converted.AsString(), true, nil
}

// OptionInt returns the named option converted to an int.
func (p *StageParams) OptionInt(name string) (int, bool, error) {
	raw, ok := p.Options[name]
	if !ok {
		return 0, false, nil
	}
	converted, err := convert.Convert(raw, cty.Number)
	if err != nil {
		return 0, true, fmt.Errorf("option %q is not convertible to number: %w", name, err)
	}
	var value int
	if err := gocty.FromCtyValue(converted, &value); err != nil {
		return 0, true, fmt.Errorf("option %q does not fit in an int: %w", name, err)
	}
	return value, true, nil
}

// OptionBool returns the named option converted to a bool.
func (p *StageParams) OptionBool(name string) (bool, bool, error) {
	raw, ok := p.Options[name]
	if !ok {
		return false, false, nil
	}
	converted, err := convert.Convert(raw, cty.Bool)
	if err != nil {
		return false, true, fmt.Errorf("option %q is not convertible to bool: %w", name, err)
	}
	return converted.True(), true, nil
}

// merge folds other into p. Scalar fields are replaced when set; Env and
// Options merge per key with other winning on conflict.
func (p *StageParams) merge(other *StageParams) {
	if other.Executable != "" {
		p.Executable = other.Executable
	}
	for k, v := range other.Env {
		if p.Env == nil {
			p.Env = make(map[string]string)
		}
		p.Env[k] = v
	}
	for k, v := range other.Options {
		if p.Options == nil {
			p.Options = make(map[string]cty.Value)
		}
		p.Options[k] = v
	}
}
