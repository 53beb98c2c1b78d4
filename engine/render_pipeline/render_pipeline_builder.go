package render_pipeline

import (
	"slices"

	"github.com/Carmen-Shannon/oxy-render/engine/diagnostics"
	"github.com/Carmen-Shannon/oxy-render/engine/layer"
)

// RenderPipelineBuilderOption is a functional option for configuring a RenderPipeline.
type RenderPipelineBuilderOption func(*renderPipeline)

// WithRegistry constructs layers from every entry of r, in registration order, during Initialize.
// Ignored when WithRegistrations is also given.
//
// Parameters:
//   - r: the layer registry
//
// Returns:
//   - RenderPipelineBuilderOption: functional option to set the registry
func WithRegistry(r *layer.Registry) RenderPipelineBuilderOption {
	return func(p *renderPipeline) {
		p.registry = r
	}
}

// WithRegistrations sets the exact, ordered list of layers to construct during Initialize.
//
// Parameters:
//   - regs: the registrations, usually from Registry.Resolve
//
// Returns:
//   - RenderPipelineBuilderOption: functional option to set the registrations
func WithRegistrations(regs ...layer.Registration) RenderPipelineBuilderOption {
	return func(p *renderPipeline) {
		p.registrations = slices.Clone(regs)
	}
}

// WithDiagnostics shares an existing Recorder with the pipeline, e.g. one a HUD layer reads.
//
// Parameters:
//   - r: the recorder
//
// Returns:
//   - RenderPipelineBuilderOption: functional option to set the recorder
func WithDiagnostics(r *diagnostics.Recorder) RenderPipelineBuilderOption {
	return func(p *renderPipeline) {
		if r != nil {
			p.diagnostics = r
		}
	}
}

// WithOptimizer replaces the default KindOptimizer.
//
// Parameters:
//   - o: the optimizer
//
// Returns:
//   - RenderPipelineBuilderOption: functional option to set the optimizer
func WithOptimizer(o Optimizer) RenderPipelineBuilderOption {
	return func(p *renderPipeline) {
		if o != nil {
			p.optimizer = o
		}
	}
}

// WithFaultIsolation makes layer errors and panics skip the faulting layer for the rest of the
// frame instead of aborting it.
//
// Parameters:
//   - enabled: true to isolate layer faults
//
// Returns:
//   - RenderPipelineBuilderOption: functional option to toggle isolation
func WithFaultIsolation(enabled bool) RenderPipelineBuilderOption {
	return func(p *renderPipeline) {
		p.faultIsolation = enabled
	}
}

// WithCommandCapacity preallocates the frame buffers.
//
// Parameters:
//   - n: the expected number of commands per frame
//
// Returns:
//   - RenderPipelineBuilderOption: functional option to set the capacity
func WithCommandCapacity(n int) RenderPipelineBuilderOption {
	return func(p *renderPipeline) {
		if n > 0 {
			p.capacity = n
		}
	}
}
