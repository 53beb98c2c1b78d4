// Package layertest provides a scriptable layer for exercising the render pipeline.
package layertest

import (
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/command"
	"github.com/Carmen-Shannon/oxy-render/engine/game_object"
	"github.com/Carmen-Shannon/oxy-render/engine/layer"
)

// Layer records every call the pipeline makes and replays scripted commands.
// Set the exported hooks before the layer is initialized.
type Layer struct {
	*layer.Base

	// Kinds is sealed as the supported kind set in Initialize.
	Kinds []command.Kind
	// Emit is appended to the collect buffer every frame.
	Emit []command.Command
	// Accept decides CanAddOrRemove; nil accepts everything.
	Accept func(game_object.GameObject) bool

	// Hooks replace the default behaviour when set.
	OnInitialize func() error
	OnUpdate     func(t common.FrameTime) error
	OnCollect    func(t common.FrameTime, dst []command.Command) ([]command.Command, error)
	OnProcess    func(cmds []command.Command) error

	mu        sync.Mutex
	inits     int
	updates   int
	collects  int
	processed [][]command.Command
	resizes   [][2]int
}

var _ layer.Layer = &Layer{}

// New creates a scriptable layer.
//
// Parameters:
//   - name: the layer name
//   - priority: the layer bucket
//   - kinds: the kinds to seal in Initialize
//
// Returns:
//   - *Layer: the layer
func New(name string, priority layer.Priority, kinds ...command.Kind) *Layer {
	return &Layer{
		Base:  layer.NewBase(name, priority),
		Kinds: kinds,
	}
}

func (l *Layer) Initialize() error {
	l.mu.Lock()
	l.inits++
	l.mu.Unlock()
	if l.OnInitialize != nil {
		if err := l.OnInitialize(); err != nil {
			return err
		}
	}
	return l.Seal(l.Kinds...)
}

func (l *Layer) Update(t common.FrameTime) error {
	l.mu.Lock()
	l.updates++
	l.mu.Unlock()
	if l.OnUpdate != nil {
		return l.OnUpdate(t)
	}
	return nil
}

func (l *Layer) CanAddOrRemove(obj game_object.GameObject) bool {
	if l.Accept == nil {
		return true
	}
	return l.Accept(obj)
}

func (l *Layer) OnViewportResize(width, height int) {
	l.Base.OnViewportResize(width, height)
	l.mu.Lock()
	l.resizes = append(l.resizes, [2]int{width, height})
	l.mu.Unlock()
}

func (l *Layer) CollectRenderCommands(t common.FrameTime, dst []command.Command) ([]command.Command, error) {
	l.mu.Lock()
	l.collects++
	l.mu.Unlock()
	if l.OnCollect != nil {
		return l.OnCollect(t, dst)
	}
	return append(dst, l.Emit...), nil
}

func (l *Layer) ProcessRenderCommands(cmds []command.Command) error {
	l.mu.Lock()
	l.processed = append(l.processed, slices.Clone(cmds))
	l.mu.Unlock()
	if l.OnProcess != nil {
		return l.OnProcess(cmds)
	}
	return nil
}

// Inits returns how many times Initialize ran.
func (l *Layer) Inits() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inits
}

// Updates returns how many times Update ran.
func (l *Layer) Updates() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.updates
}

// Collects returns how many times CollectRenderCommands ran.
func (l *Layer) Collects() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.collects
}

// Processed returns a copy of every batch passed to ProcessRenderCommands.
func (l *Layer) Processed() [][]command.Command {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.processed)
}

// LastProcessed returns the most recent batch, or nil.
func (l *Layer) LastProcessed() []command.Command {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.processed) == 0 {
		return nil
	}
	return l.processed[len(l.processed)-1]
}

// Resizes returns every size passed to OnViewportResize.
func (l *Layer) Resizes() [][2]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.resizes)
}

// Kinds returns the kinds of cmds, in order.
func Kinds(cmds []command.Command) []command.Kind {
	out := make([]command.Kind, len(cmds))
	for i, c := range cmds {
		out[i] = c.Kind()
	}
	return out
}
