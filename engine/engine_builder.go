package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/diagnostics"
	"github.com/Carmen-Shannon/oxy-render/engine/render_pipeline"
	"github.com/Carmen-Shannon/oxy-render/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled.Store(enabled)
	}
}

// WithTickRate sets the engine tick rate in frames per second.
// The tick callback will be called at this rate for game logic updates.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate = time.Duration(float64(time.Second) / fps)
	}
}

// WithWindow attaches a presentation window. Its framebuffer size becomes the initial viewport
// and its resize events are forwarded to the pipeline.
//
// Parameters:
//   - w: a spawned Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithViewport sets the initial viewport announced to layers when running without a window.
//
// Parameters:
//   - width: viewport width
//   - height: viewport height
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithViewport(width, height int) EngineBuilderOption {
	return func(e *engine) {
		e.viewportWidth = width
		e.viewportHeight = height
	}
}

// WithPipeline supplies a pre-built pipeline; WithPipelineOptions is then ignored.
//
// Parameters:
//   - p: the pipeline to drive
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithPipeline(p render_pipeline.RenderPipeline) EngineBuilderOption {
	return func(e *engine) {
		e.pipeline = p
	}
}

// WithPipelineOptions configures the pipeline the engine builds.
//
// Parameters:
//   - options: pipeline options, e.g. render_pipeline.WithRegistrations
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithPipelineOptions(options ...render_pipeline.RenderPipelineBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.pipelineOptions = append(e.pipelineOptions, options...)
	}
}

// WithRecorder shares a diagnostics recorder, e.g. one an overlay layer was built with.
//
// Parameters:
//   - r: the recorder
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRecorder(r *diagnostics.Recorder) EngineBuilderOption {
	return func(e *engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// WithClock replaces the frame clock, e.g. with one driven by a fake time source in tests.
//
// Parameters:
//   - c: the clock
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithClock(c *common.Clock) EngineBuilderOption {
	return func(e *engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.renderFrameLimit = frameDuration(fps)
	}
}

// WithMaxFrames makes Run return after n frames. 0 runs until Quit.
//
// Parameters:
//   - n: the frame count
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithMaxFrames(n uint64) EngineBuilderOption {
	return func(e *engine) {
		e.maxFrames = n
	}
}

// WithWorkers sets the maximum number of producer task workers.
//
// Parameters:
//   - n: worker count (values <= 0 keep the default of 4)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWorkers(n int) EngineBuilderOption {
	return func(e *engine) {
		if n > 0 {
			e.workers = n
		}
	}
}
