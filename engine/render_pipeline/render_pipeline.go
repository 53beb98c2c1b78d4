// Package render_pipeline orchestrates the render layers every frame: it collects their
// commands into one buffer, reorders that buffer, and routes each command back to the layers
// that declared support for its kind.
package render_pipeline

import (
	"fmt"
	"log"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/command"
	"github.com/Carmen-Shannon/oxy-render/engine/diagnostics"
	"github.com/Carmen-Shannon/oxy-render/engine/game_object"
	"github.com/Carmen-Shannon/oxy-render/engine/layer"
)

const defaultCommandCapacity = 256

type renderPipeline struct {
	registry       *layer.Registry
	registrations  []layer.Registration
	layers         *layer.Container
	diagnostics    *diagnostics.Recorder
	optimizer      Optimizer
	faultIsolation bool
	capacity       int

	state atomic.Int32
	frame atomic.Uint64

	// lifecycleMu serializes Initialize, Shutdown and layer registration.
	lifecycleMu sync.Mutex
	types       map[layer.Layer]string
	manual      []layer.Layer

	// frameMu is held for a whole Update or Render and guards the frame buffers.
	frameMu sync.Mutex
	buffer  []command.Command
	scratch []command.Command
	faulted map[layer.Layer]struct{}

	pendingMu sync.Mutex
	pending   []command.Command

	viewportMu  sync.Mutex
	width       int
	height      int
	hasViewport bool
}

// RenderPipeline drives the registered render layers through Update and the three Render
// phases: Collect, Optimize and Submit.
//
// A single frame-driver goroutine calls Update then Render. Every other method may be called
// from producer goroutines; layer registration and game-object routing block while a frame
// is iterating the layers.
type RenderPipeline interface {
	// Initialize constructs every registered layer in registration order, initializes it and
	// adds it to the pipeline. Layers added with AddRenderLayer beforehand are initialized after.
	//
	// Returns:
	//   - error: ErrAlreadyInitialized, ErrShutDown, ErrLayerConstruction naming the failing type,
	//     or a *LayerError from a layer's Initialize
	Initialize() error

	// Update calls Update on every active layer in priority order.
	//
	// Parameters:
	//   - t: the frame time
	//
	// Returns:
	//   - error: ErrNotInitialized, ErrShutDown or a *LayerError when fault isolation is off
	Update(t common.FrameTime) error

	// Render runs Collect, Optimize and Submit for one frame. The frame buffers are cleared
	// whether or not the frame completes.
	//
	// Parameters:
	//   - t: the frame time
	//
	// Returns:
	//   - error: ErrNotInitialized, ErrShutDown or a *LayerError when fault isolation is off
	Render(t common.FrameTime) error

	// ViewportResize records the new size and forwards it to every layer in priority order.
	ViewportResize(width, height int)

	// Viewport returns the last size passed to ViewportResize.
	//
	// Returns:
	//   - int: the width
	//   - int: the height
	//   - bool: false if ViewportResize has never been called
	Viewport() (width, height int, ok bool)

	// EnqueueRenderCommand injects cmd into the next frame, bypassing layer collection.
	// It still goes through Optimize and Submit.
	//
	// Parameters:
	//   - cmd: the command
	//
	// Returns:
	//   - error: command.ErrInvalidCommand for a zero or malformed command, or ErrShutDown
	EnqueueRenderCommand(cmd command.Command) error

	// AddRenderLayer registers l. After Initialize the layer is initialized immediately and
	// receives the last known viewport size.
	//
	// Returns:
	//   - error: layer.ErrNilLayer, layer.ErrDuplicateLayer, ErrShutDown or an initialization error
	AddRenderLayer(l layer.Layer) error

	// RemoveRenderLayer unregisters l.
	RemoveRenderLayer(l layer.Layer) bool

	// RemoveRenderLayers unregisters every layer at priority p and returns how many were removed.
	RemoveRenderLayers(p layer.Priority) int

	// AddGameObject routes obj to every layer whose CanAddOrRemove accepts it.
	//
	// Returns:
	//   - int: the number of layers that accepted obj
	//   - error: game_object.ErrNilObject or a layer Add error
	AddGameObject(obj game_object.GameObject) (int, error)

	// RemoveGameObject removes obj from every layer holding it.
	//
	// Returns:
	//   - int: the number of layers that held obj
	RemoveGameObject(obj game_object.GameObject) int

	// RenderLayers returns the registered layers in priority order.
	RenderLayers() []layer.Layer

	// Descriptors returns the registration record of every layer in priority order.
	Descriptors() []layer.Descriptor

	// Diagnostics returns the recorder fed by Render.
	Diagnostics() *diagnostics.Recorder

	// State returns the lifecycle stage.
	State() State

	// FrameNumber returns the number of Render calls that started.
	FrameNumber() uint64

	// Shutdown waits for the current frame, clears every layer's objects and drops pending
	// commands. Later Update, Render and Enqueue calls fail with ErrShutDown.
	Shutdown()
}

var _ RenderPipeline = &renderPipeline{}

// NewRenderPipeline creates a new RenderPipeline configured with the given options.
// Without WithOptimizer the pipeline uses KindOptimizer.
//
// Parameters:
//   - options: functional options to configure the pipeline
//
// Returns:
//   - RenderPipeline: the uninitialized pipeline
func NewRenderPipeline(options ...RenderPipelineBuilderOption) RenderPipeline {
	p := &renderPipeline{
		layers:      layer.NewContainer(),
		diagnostics: diagnostics.NewRecorder(),
		optimizer:   KindOptimizer{},
		capacity:    defaultCommandCapacity,
		types:       make(map[layer.Layer]string),
		faulted:     make(map[layer.Layer]struct{}),
	}
	for _, option := range options {
		option(p)
	}
	p.buffer = make([]command.Command, 0, p.capacity)
	p.scratch = make([]command.Command, 0, p.capacity)
	return p
}

// FindLayer returns the first layer, in priority order, whose concrete type satisfies T.
//
// Parameters:
//   - p: the pipeline to search
//
// Returns:
//   - T: the matching layer
//   - bool: true if one was found
func FindLayer[T any](p RenderPipeline) (T, bool) {
	for _, l := range p.RenderLayers() {
		if t, ok := l.(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}

func (p *renderPipeline) Initialize() error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	switch p.State() {
	case StateUninitialized:
	case StateShuttingDown:
		return ErrShutDown
	default:
		return ErrAlreadyInitialized
	}

	regs := p.registrations
	if regs == nil && p.registry != nil {
		regs = p.registry.Entries()
	}

	var constructed []layer.Layer
	fail := func(err error) error {
		for _, l := range constructed {
			p.layers.Remove(l)
			delete(p.types, l)
		}
		return err
	}

	for _, reg := range regs {
		if reg.Factory == nil {
			return fail(fmt.Errorf("%w: %q has no factory", ErrLayerConstruction, reg.Type))
		}
		l, err := reg.Factory()
		if err != nil {
			return fail(fmt.Errorf("%w: %q: %w", ErrLayerConstruction, reg.Type, err))
		}
		if l == nil {
			return fail(fmt.Errorf("%w: %q returned a nil layer", ErrLayerConstruction, reg.Type))
		}
		if err := l.Initialize(); err != nil {
			return fail(&LayerError{Layer: l.Name(), Phase: PhaseInitialize, Err: err})
		}
		if err := p.layers.Add(l); err != nil {
			return fail(fmt.Errorf("%w: %q: %w", ErrLayerConstruction, reg.Type, err))
		}
		constructed = append(constructed, l)
		p.types[l] = reg.Type
		log.Printf("[Pipeline] initialized layer %q (%s) at priority %s", l.Name(), reg.Type, l.Priority())
	}

	for _, l := range p.manual {
		if err := initializeOnce(l); err != nil {
			return fail(&LayerError{Layer: l.Name(), Phase: PhaseInitialize, Err: err})
		}
	}
	p.manual = nil

	p.state.Store(int32(StateInitialized))
	return nil
}

func (p *renderPipeline) Update(t common.FrameTime) error {
	p.frameMu.Lock()
	defer p.frameMu.Unlock()

	if err := p.beginLocked(); err != nil {
		return err
	}
	frame := p.frame.Load() + 1
	return p.layers.ForEach(func(l layer.Layer) error {
		if !l.Active() || p.isFaulted(l) {
			return nil
		}
		return p.updateLayer(l, t, frame)
	})
}

func (p *renderPipeline) Render(t common.FrameTime) error {
	p.frameMu.Lock()
	defer p.frameMu.Unlock()

	if err := p.beginLocked(); err != nil {
		return err
	}
	frame := p.frame.Add(1)
	defer p.resetFrameLocked()

	// Collect
	p.diagnostics.BeginFrame()
	p.drainPending()
	err := p.layers.ForEach(func(l layer.Layer) error {
		if !l.Active() || p.isFaulted(l) {
			return nil
		}
		return p.collectLayer(l, t, frame)
	})
	if err != nil {
		return err
	}
	p.drainPending()

	// Optimize
	p.optimizer.Optimize(p.buffer)

	// Submit
	err = p.layers.ForEach(func(l layer.Layer) error {
		if !l.Active() || p.isFaulted(l) {
			return nil
		}
		kinds := l.SupportedCommandKinds()
		p.scratch = p.scratch[:0]
		for _, cmd := range p.buffer {
			if kinds.Has(cmd.Kind()) {
				p.scratch = append(p.scratch, cmd)
			}
		}
		if len(p.scratch) == 0 {
			return nil
		}
		return p.submitLayer(l, frame)
	})
	if err != nil {
		return err
	}

	p.diagnostics.EndFrame(t.DeltaMs())
	return nil
}

func (p *renderPipeline) ViewportResize(width, height int) {
	p.viewportMu.Lock()
	p.width, p.height, p.hasViewport = width, height, true
	p.viewportMu.Unlock()

	_ = p.layers.ForEach(func(l layer.Layer) error {
		l.OnViewportResize(width, height)
		return nil
	})
}

func (p *renderPipeline) Viewport() (width, height int, ok bool) {
	p.viewportMu.Lock()
	defer p.viewportMu.Unlock()
	return p.width, p.height, p.hasViewport
}

func (p *renderPipeline) EnqueueRenderCommand(cmd command.Command) error {
	if !cmd.Valid() {
		return fmt.Errorf("%w: %s", command.ErrInvalidCommand, cmd)
	}
	if p.State() == StateShuttingDown {
		return ErrShutDown
	}
	p.pendingMu.Lock()
	defer p.pendingMu.Unlock()
	p.pending = append(p.pending, cmd)
	return nil
}

func (p *renderPipeline) AddRenderLayer(l layer.Layer) error {
	if l == nil {
		return layer.ErrNilLayer
	}
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	switch p.State() {
	case StateShuttingDown:
		return ErrShutDown
	case StateUninitialized:
		if err := p.layers.Add(l); err != nil {
			return err
		}
		p.manual = append(p.manual, l)
		p.types[l] = ""
		return nil
	}

	if p.layers.Contains(l) {
		return fmt.Errorf("%w: %q", layer.ErrDuplicateLayer, l.Name())
	}
	if err := initializeOnce(l); err != nil {
		return &LayerError{Layer: l.Name(), Phase: PhaseInitialize, Frame: p.frame.Load(), Err: err}
	}
	if w, h, ok := p.Viewport(); ok {
		l.OnViewportResize(w, h)
	}
	if err := p.layers.Add(l); err != nil {
		return err
	}
	p.types[l] = ""
	return nil
}

func (p *renderPipeline) RemoveRenderLayer(l layer.Layer) bool {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if !p.layers.Remove(l) {
		return false
	}
	delete(p.types, l)
	p.manual = slices.DeleteFunc(p.manual, func(x layer.Layer) bool { return x == l })
	return true
}

func (p *renderPipeline) RemoveRenderLayers(priority layer.Priority) int {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	removed := p.layers.Layers(priority)
	n := p.layers.RemovePriority(priority)
	for _, l := range removed {
		delete(p.types, l)
	}
	p.manual = slices.DeleteFunc(p.manual, func(x layer.Layer) bool { return x.Priority() == priority })
	return n
}

func (p *renderPipeline) AddGameObject(obj game_object.GameObject) (int, error) {
	return p.layers.AddGameObject(obj)
}

func (p *renderPipeline) RemoveGameObject(obj game_object.GameObject) int {
	return p.layers.RemoveGameObject(obj)
}

func (p *renderPipeline) RenderLayers() []layer.Layer {
	return p.layers.Snapshot()
}

func (p *renderPipeline) Descriptors() []layer.Descriptor {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	layers := p.layers.Snapshot()
	out := make([]layer.Descriptor, len(layers))
	for i, l := range layers {
		out[i] = layer.Describe(p.types[l], l)
	}
	return out
}

func (p *renderPipeline) Diagnostics() *diagnostics.Recorder {
	return p.diagnostics
}

func (p *renderPipeline) State() State {
	return State(p.state.Load())
}

func (p *renderPipeline) FrameNumber() uint64 {
	return p.frame.Load()
}

func (p *renderPipeline) Shutdown() {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if p.State() == StateShuttingDown {
		return
	}
	p.frameMu.Lock()
	p.state.Store(int32(StateShuttingDown))
	p.frameMu.Unlock()

	_ = p.layers.ForEach(func(l layer.Layer) error {
		l.Clear()
		return nil
	})

	p.pendingMu.Lock()
	clear(p.pending)
	p.pending = p.pending[:0]
	p.pendingMu.Unlock()
	log.Printf("[Pipeline] shut down after %d frames", p.frame.Load())
}

// beginLocked checks that a frame may run and moves Initialized to Running.
func (p *renderPipeline) beginLocked() error {
	switch p.State() {
	case StateUninitialized:
		return ErrNotInitialized
	case StateShuttingDown:
		return ErrShutDown
	}
	p.state.CompareAndSwap(int32(StateInitialized), int32(StateRunning))
	return nil
}

func (p *renderPipeline) updateLayer(l layer.Layer, t common.FrameTime, frame uint64) (err error) {
	defer p.isolate(l, PhaseUpdate, frame, &err)
	if uerr := l.Update(t); uerr != nil {
		return &LayerError{Layer: l.Name(), Phase: PhaseUpdate, Frame: frame, Err: uerr}
	}
	return nil
}

func (p *renderPipeline) collectLayer(l layer.Layer, t common.FrameTime, frame uint64) (err error) {
	defer p.isolate(l, PhaseCollect, frame, &err)

	// The layer only sees the spare capacity, so earlier layers' commands stay out of reach
	// whether it appends in place, grows, or returns a slice of its own.
	before := len(p.buffer)
	out, cerr := l.CollectRenderCommands(t, p.buffer[before:before])
	if cerr == nil {
		cerr = validateCollected(out)
	}
	if cerr != nil {
		return &LayerError{Layer: l.Name(), Phase: PhaseCollect, Frame: frame, Err: cerr}
	}
	p.buffer = append(p.buffer, out...)
	p.diagnostics.RecordLayerCommands(l.Name(), int(l.Priority()), len(out))
	return nil
}

func (p *renderPipeline) submitLayer(l layer.Layer, frame uint64) (err error) {
	defer p.isolate(l, PhaseSubmit, frame, &err)
	if serr := l.ProcessRenderCommands(p.scratch); serr != nil {
		return &LayerError{Layer: l.Name(), Phase: PhaseSubmit, Frame: frame, Err: serr}
	}
	return nil
}

// isolate runs deferred after every layer call. With fault isolation enabled it converts a
// panic or error into a logged fault and marks the layer skipped for the rest of the frame.
func (p *renderPipeline) isolate(l layer.Layer, phase Phase, frame uint64, err *error) {
	if !p.faultIsolation {
		return
	}
	if r := recover(); r != nil {
		*err = &LayerError{Layer: l.Name(), Phase: phase, Frame: frame, Err: fmt.Errorf("%w: %v", ErrLayerPanic, r)}
	}
	if *err == nil {
		return
	}
	log.Printf("[Pipeline] layer %q faulted during %s on frame %d: %v", l.Name(), phase, frame, *err)
	p.diagnostics.RecordLayerFault(l.Name(), *err)
	p.faulted[l] = struct{}{}
	*err = nil
}

func (p *renderPipeline) isFaulted(l layer.Layer) bool {
	_, ok := p.faulted[l]
	return ok
}

func (p *renderPipeline) drainPending() {
	p.pendingMu.Lock()
	n := len(p.pending)
	p.buffer = append(p.buffer, p.pending...)
	clear(p.pending)
	p.pending = p.pending[:0]
	p.pendingMu.Unlock()

	if n > 0 {
		p.diagnostics.RecordExternalCommands(n)
	}
}

// resetFrameLocked empties the frame buffers, keeping their capacity and dropping references.
func (p *renderPipeline) resetFrameLocked() {
	clear(p.buffer[:cap(p.buffer)])
	p.buffer = p.buffer[:0]
	clear(p.scratch[:cap(p.scratch)])
	p.scratch = p.scratch[:0]
	clear(p.faulted)
}

func validateCollected(out []command.Command) error {
	for _, cmd := range out {
		if !cmd.Valid() {
			return fmt.Errorf("%w: %s", command.ErrInvalidCommand, cmd)
		}
	}
	return nil
}

type sealer interface {
	Sealed() bool
}

// initializeOnce skips layers that report they were already initialized.
func initializeOnce(l layer.Layer) error {
	if s, ok := l.(sealer); ok && s.Sealed() {
		return nil
	}
	return l.Initialize()
}
