package params

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/dcan-labs/fmripipe/internal/ctxlog"
	"github.com/dcan-labs/fmripipe/internal/fsutil"
)

// manifestFile mirrors the top-level structure of a parameter manifest.
type manifestFile struct {
	Stages []stageBlock `hcl:"stage,block"`
}

// stageBlock mirrors one `stage "Name" { ... }` block.
type stageBlock struct {
	Name       string            `hcl:"name,label"`
	Executable string            `hcl:"executable,optional"`
	Env        map[string]string `hcl:"env,optional"`
	Options    *optionsBlock     `hcl:"options,block"`
}

// optionsBlock captures the free-form attribute table of an options block.
type optionsBlock struct {
	Body hcl.Body `hcl:",remain"`
}

// Load returns the merged parameter model: compiled-in defaults overlaid with
// every .hcl manifest found under the given paths, in sorted file order with
// later files winning. Paths that do not exist are skipped with a warning so
// a stock install needs no manifest directory at all.
func Load(ctx context.Context, paths ...string) (*Model, error) {
	logger := ctxlog.FromContext(ctx)
	model := Defaults()

	parser := hclparse.NewParser()
	for _, path := range paths {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			logger.Warn("Parameter manifest path does not exist, using defaults.", "path", path)
			continue
		}

		filePaths, err := fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			return nil, fmt.Errorf("failed to walk manifest path %s: %w", path, err)
		}
		logger.Debug("Found manifest files to load.", "path", path, "count", len(filePaths))

		for _, filePath := range filePaths {
			hclFile, diags := parser.ParseHCLFile(filePath)
			if diags.HasErrors() {
				return nil, fmt.Errorf("failed to parse manifest %s: %w", filePath, diags)
			}
			if err := mergeManifest(model, hclFile.Body, filePath); err != nil {
				return nil, err
			}
			logger.Debug("Merged parameter manifest.", "file", filePath)
		}
	}

	return model, nil
}

// mergeManifest decodes one manifest body and folds its stage blocks into the
// model. Referencing a stage the pipeline does not have is a startup error.
func mergeManifest(model *Model, body hcl.Body, filePath string) error {
	var file manifestFile
	if diags := gohcl.DecodeBody(body, nil, &file); diags.HasErrors() {
		return fmt.Errorf("failed to decode manifest %s: %w", filePath, diags)
	}

	for _, block := range file.Stages {
		if !IsKnownStage(block.Name) {
			return fmt.Errorf("manifest %s: unknown stage %q, valid stages are %v", filePath, block.Name, StageOrder())
		}

		overlay := &StageParams{
			Executable: block.Executable,
			Env:        block.Env,
		}

		if block.Options != nil {
			attrs, diags := block.Options.Body.JustAttributes()
			if diags.HasErrors() {
				return fmt.Errorf("failed to read options for stage %q in %s: %w", block.Name, filePath, diags)
			}
			overlay.Options = make(map[string]cty.Value, len(attrs))
			for name, attr := range attrs {
				value, diags := attr.Expr.Value(nil)
				if diags.HasErrors() {
					return fmt.Errorf("failed to evaluate option %q for stage %q in %s: %w", name, block.Name, filePath, diags)
				}
				overlay.Options[name] = value
			}
		}

		model.Stages[block.Name].merge(overlay)
	}

	return nil
}
