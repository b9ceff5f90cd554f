package stage

import (
	"context"
	"fmt"
	"strings"

	"github.com/dcan-labs/fmripipe/internal/hcpconf"
	"github.com/dcan-labs/fmripipe/internal/params"
)

// Invocation is one fully assembled external command.
type Invocation struct {
	Executable string
	Args       []string
	Env        map[string]string

	// LogPath receives the child's combined output in addition to the
	// structured log.
	LogPath string
}

// String renders the invocation as a shell-style command line for banners
// and error messages.
func (inv Invocation) String() string {
	parts := append([]string{inv.Executable}, inv.Args...)
	return strings.Join(parts, " ")
}

// Stage is a single pipeline stage. Plan assembles the invocations without
// side effects; Run executes them in order through the stage's Runner. The
// ncpus value is forwarded to the external tool and never interpreted here.
type Stage interface {
	Name() string
	Plan(ncpus int) ([]Invocation, error)
	Run(ctx context.Context, ncpus int) error
}

// Constructor builds a stage bound to one session configuration and runner.
type Constructor func(cfg *hcpconf.Config, runner Runner) Stage

// Registry maps canonical stage names to their constructors.
type Registry struct {
	constructors map[string]Constructor
}

// NewRegistry creates an empty Registry instance.
func NewRegistry() *Registry {
	return &Registry{constructors: make(map[string]Constructor)}
}

// Register adds a constructor under a canonical stage name. Registering a
// duplicate or unknown name is a programmer error.
func (r *Registry) Register(name string, ctor Constructor) {
	if !params.IsKnownStage(name) {
		panic(fmt.Sprintf("stage name '%s' is not a canonical stage", name))
	}
	if _, exists := r.constructors[name]; exists {
		panic(fmt.Sprintf("stage with name '%s' already registered", name))
	}
	r.constructors[name] = ctor
}

// New constructs the named stage for the given session.
func (r *Registry) New(name string, cfg *hcpconf.Config, runner Runner) (Stage, error) {
	ctor, ok := r.constructors[name]
	if !ok {
		return nil, fmt.Errorf("no stage registered under name '%s'", name)
	}
	return ctor(cfg, runner), nil
}

// Validate checks that every canonical stage has a constructor. Run at
// startup so a wiring mistake fails the process before any session starts.
func (r *Registry) Validate() error {
	var missing []string
	for _, name := range params.StageOrder() {
		if _, ok := r.constructors[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("registry validation failed: no constructor for stages %v", missing)
	}
	return nil
}

// CoreRegistry returns the definitive registry of all stages compiled into
// the binary, in their canonical names.
func CoreRegistry() *Registry {
	r := NewRegistry()
	r.Register(params.StagePreFreeSurfer, newPreFreeSurfer)
	r.Register(params.StageFreeSurfer, newFreeSurfer)
	r.Register(params.StagePostFreeSurfer, newPostFreeSurfer)
	r.Register(params.StageFMRIVolume, newFMRIVolume)
	r.Register(params.StageFMRISurface, newFMRISurface)
	r.Register(params.StageSignalPreprocessing, newSignalPreprocessing)
	r.Register(params.StageExecutiveSummary, newExecutiveSummary)
	return r
}
