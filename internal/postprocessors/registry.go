package postprocessors

import (
	"fmt"
	"slices"

	"github.com/samber/lo"

	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
)

var _ driven.PipelineBuilder = (*Registry)(nil)

// BuilderFunc makes a stage from its [processors.<name>] settings.
type BuilderFunc func(cfg map[string]any) (driven.PostProcessor, error)

// Registry resolves stage names to builders.
type Registry struct {
	builders map[string]BuilderFunc
}

func NewRegistry() *Registry {
	return &Registry{builders: map[string]BuilderFunc{}}
}

// Register binds name to builder, replacing an earlier binding.
func (r *Registry) Register(name string, builder BuilderFunc) {
	r.builders[name] = builder
}

// Build fails with domain.ErrUnsupportedType for an unknown name.
func (r *Registry) Build(name string, cfg map[string]any) (driven.PostProcessor, error) {
	if builder, ok := r.builders[name]; ok {
		return builder(cfg)
	}
	return nil, fmt.Errorf("%w: no processor named %q", domain.ErrUnsupportedType, name)
}

func (r *Registry) Has(name string) bool {
	_, ok := r.builders[name]
	return ok
}

// Names lists the registered stages alphabetically.
func (r *Registry) Names() []string {
	names := lo.Keys(r.builders)
	slices.Sort(names)
	return names
}

func (r *Registry) BuildPipeline(cfg domain.PipelineConfig) (driven.PostProcessorPipeline, error) {
	if len(cfg.Processors) == 0 {
		return nil, fmt.Errorf("%w: no processors configured", domain.ErrInvalidInput)
	}
	stages := make([]driven.PostProcessor, len(cfg.Processors))
	for i, name := range cfg.Processors {
		stage, err := r.Build(name, cfg.GetProcessorConfig(name))
		if err != nil {
			return nil, fmt.Errorf("stage %d (%s): %w", i, name, err)
		}
		stages[i] = stage
	}
	return NewPipeline(stages...), nil
}
