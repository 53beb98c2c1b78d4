// Package engine drives a render pipeline: one goroutine runs Update then Render every frame,
// a second runs the fixed-rate tick callback, and a worker pool runs producer tasks that mutate
// the pipeline's registries off the frame thread.
package engine

import (
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/diagnostics"
	"github.com/Carmen-Shannon/oxy-render/engine/render_pipeline"
	"github.com/Carmen-Shannon/oxy-render/engine/window"
)

// ErrStopped is returned by Submit and Step after Quit.
var ErrStopped = errors.New("engine stopped")

// engine implements the Engine interface.
// Coordinates the tick, render and window threads.
type engine struct {
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running atomic.Bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once  // Ensures quitChannel is only closed once
	quitMu      sync.Mutex // Orders task admission against closing quitChannel

	window window.Window

	pipeline        render_pipeline.RenderPipeline
	pipelineOptions []render_pipeline.RenderPipelineBuilderOption
	initOnce        sync.Once
	initErr         error

	recorder         *diagnostics.Recorder
	profiler         *diagnostics.Profiler
	profilingEnabled atomic.Bool
	clock            *common.Clock

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(t common.FrameTime)

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
	maxFrames        uint64        // quit after this many frames; 0 = unlimited

	viewportWidth  int
	viewportHeight int

	workers int
	pool    worker.DynamicWorkerPool
	tasks   sync.WaitGroup
	taskID  atomic.Int64

	errMu sync.Mutex
	err   error
}

// Engine is the main entry point. It owns the render pipeline and runs its frame loop.
type Engine interface {
	// Window returns the presentation window, or nil when running headless.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Pipeline returns the render pipeline the engine drives.
	//
	// Returns:
	//   - render_pipeline.RenderPipeline: the pipeline
	Pipeline() render_pipeline.RenderPipeline

	// Diagnostics returns the recorder shared by the pipeline and the profiler.
	Diagnostics() *diagnostics.Recorder

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in frames per second.
	// The tick callback will be called at this rate for game logic updates.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick on the tick goroutine.
	// Use this for game logic that adds, moves or removes game objects.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called after each rendered frame on the render goroutine.
	//
	// Parameters:
	//   - callback: function receiving the frame time
	SetRenderCallback(callback func(t common.FrameTime))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Submit runs fn on the worker pool. Use it for producer work such as adding layers or game
	// objects while frames are rendering.
	//
	// Parameters:
	//   - fn: the task; a returned error is logged
	//
	// Returns:
	//   - error: ErrStopped after Quit
	Submit(fn func() error) error

	// WaitTasks blocks until every submitted task has finished.
	WaitTasks()

	// Initialize initializes the pipeline and announces the viewport. Step and Run call it
	// on first use.
	//
	// Returns:
	//   - error: the pipeline's initialization error
	Initialize() error

	// Step renders exactly one frame on the calling goroutine: Update then Render.
	//
	// Returns:
	//   - error: an initialization or frame error
	Step() error

	// Run starts the tick and render goroutines and blocks until the window closes, Quit is
	// called, the frame limit is reached, or a frame fails.
	//
	// Returns:
	//   - error: the first frame error, or nil on a clean stop
	Run() error

	// Quit signals all engine goroutines to stop and shuts down the pipeline.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine instance with the provided options.
// The pipeline is built from the pipeline options with the engine's recorder attached, unless
// WithPipeline supplies one.
//
// Parameters:
//   - options: functional options for engine configuration (profiling, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		recorder:        diagnostics.NewRecorder(),
		clock:           common.NewClock(),
		engineTickRate:  time.Second / 60,
		workers:         4,
	}

	for _, opt := range options {
		opt(e)
	}

	if e.pipeline == nil {
		opts := append([]render_pipeline.RenderPipelineBuilderOption{render_pipeline.WithDiagnostics(e.recorder)}, e.pipelineOptions...)
		e.pipeline = render_pipeline.NewRenderPipeline(opts...)
	}
	e.recorder = e.pipeline.Diagnostics()
	e.profiler = diagnostics.NewProfiler(diagnostics.WithRecorder(e.recorder))
	e.pool = worker.NewDynamicWorkerPool(e.workers, 256, 1*time.Second)

	if e.window != nil {
		e.window.SetResizeCallback(func(width, height int) {
			e.pipeline.ViewportResize(width, height)
		})
	}

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Pipeline() render_pipeline.RenderPipeline {
	return e.pipeline
}

func (e *engine) Diagnostics() *diagnostics.Recorder {
	return e.recorder
}

func (e *engine) Initialize() error {
	e.initOnce.Do(func() {
		if err := e.pipeline.Initialize(); err != nil {
			e.initErr = err
			return
		}
		width, height := e.viewportWidth, e.viewportHeight
		if e.window != nil {
			width, height = e.window.Width(), e.window.Height()
		}
		if width > 0 && height > 0 {
			e.pipeline.ViewportResize(width, height)
		}
		log.Printf("[Engine] initialized with %d render layers", len(e.pipeline.RenderLayers()))
	})
	return e.initErr
}

func (e *engine) Step() error {
	if e.stopped() {
		return ErrStopped
	}
	if err := e.Initialize(); err != nil {
		return err
	}

	t := e.clock.Tick()
	if err := e.pipeline.Update(t); err != nil {
		return err
	}
	if err := e.pipeline.Render(t); err != nil {
		return err
	}

	if e.renderCallback != nil {
		e.renderCallback(t)
	}
	if e.profilingEnabled.Load() {
		e.profiler.Tick()
	}
	return nil
}

func (e *engine) Run() error {
	if err := e.Initialize(); err != nil {
		return err
	}
	e.running.Store(true)
	e.handle()

	if e.window != nil {
		e.window.SetUpdateCallback(func() {
			if e.stopped() {
				_ = e.window.Close()
			}
		})
		e.window.ProcessMessages()
		e.signalQuit()
	} else {
		<-e.quitChannel
	}

	e.wg.Wait()
	e.tasks.Wait()
	e.pipeline.Shutdown()

	e.errMu.Lock()
	defer e.errMu.Unlock()
	return e.err
}

func (e *engine) Submit(fn func() error) error {
	e.quitMu.Lock()
	if e.stopped() {
		e.quitMu.Unlock()
		return ErrStopped
	}
	e.tasks.Add(1)
	e.quitMu.Unlock()

	id := int(e.taskID.Add(1))
	e.pool.SubmitTask(worker.Task{
		ID: id,
		Do: func() (any, error) {
			defer e.tasks.Done()
			err := fn()
			if err != nil {
				log.Printf("[Engine] task %d failed: %v", id, err)
			}
			return nil, err
		},
	})
	return nil
}

func (e *engine) WaitTasks() {
	e.tasks.Wait()
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
	if !e.running.Load() {
		e.pipeline.Shutdown()
	}
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once. Once it returns, Submit admits no
// more tasks, so a later tasks.Wait never races a tasks.Add.
func (e *engine) signalQuit() {
	e.quitMu.Lock()
	defer e.quitMu.Unlock()
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

func (e *engine) stopped() bool {
	select {
	case <-e.quitChannel:
		return true
	default:
		return false
	}
}

// fail records the first frame error and stops the engine.
func (e *engine) fail(err error) {
	e.errMu.Lock()
	if e.err == nil {
		e.err = err
	}
	e.errMu.Unlock()
	e.signalQuit()
}

// handle launches the tick, render, and quit goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.wg.Add(3)
	go e.handleEngine()
	go e.handleRender()
	go e.handleQuit()
}

// handleEngine runs the fixed-rate engine tick loop in its own goroutine.
// Fires the tick callback at the configured tick rate and listens for dynamic rate changes
// via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender runs the uncapped (or frame-limited) render loop in its own goroutine.
// A panic escaping the pipeline is logged and stops the engine instead of crashing the process.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Engine] render goroutine recovered from panic: %v", r)
			e.fail(render_pipeline.ErrLayerPanic)
		}
	}()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
		}

		frameStart := time.Now()
		if err := e.Step(); err != nil {
			if errors.Is(err, ErrStopped) || errors.Is(err, render_pipeline.ErrShutDown) {
				return
			}
			log.Printf("[Engine] frame %d failed: %v", e.pipeline.FrameNumber(), err)
			e.fail(err)
			return
		}

		if e.maxFrames > 0 && e.pipeline.FrameNumber() >= e.maxFrames {
			e.signalQuit()
			return
		}

		// Frame rate limiting
		if e.renderFrameLimit > 0 {
			if remaining := e.renderFrameLimit - time.Since(frameStart); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

// handleQuit blocks until the quit channel is closed, then decrements the WaitGroup.
func (e *engine) handleQuit() {
	defer e.wg.Done()
	<-e.quitChannel
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled.Store(true)
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled.Store(false)
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	if e.running.Load() {
		// Non-blocking send - if channel is full, replace the pending value
		select {
		case e.tickRateChannel <- newRate:
		default:
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	} else {
		e.engineTickRate = newRate
	}
}

// SetTickCallback registers the function called each engine tick.
func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

// SetRenderCallback registers the function called each render frame.
func (e *engine) SetRenderCallback(callback func(t common.FrameTime)) {
	e.renderCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	e.renderFrameLimit = frameDuration(fps)
}

func frameDuration(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}
