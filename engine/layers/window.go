package layers

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/command"
	"github.com/Carmen-Shannon/oxy-render/engine/game_object"
	"github.com/Carmen-Shannon/oxy-render/engine/layer"
)

// WindowTarget is the presentation window a WindowLayer controls.
type WindowTarget interface {
	SetTitle(title string)
	SetSize(width, height int)
}

// WindowLayer turns window requests made from any goroutine into Window commands, and applies
// the Window commands of each frame to its target.
type WindowLayer struct {
	*layer.Base
	target   WindowTarget
	settings settings

	mu      sync.Mutex
	pending []command.WindowPayload
}

var _ layer.Layer = &WindowLayer{}

// NewWindowLayer creates a window layer in the Window bucket.
//
// Parameters:
//   - target: the window to change
//   - options: functional options to configure the layer
//
// Returns:
//   - *WindowLayer: the layer, not yet initialized
func NewWindowLayer(target WindowTarget, options ...LayerBuilderOption) *WindowLayer {
	s := newSettings("window", layer.PriorityWindow, 0, options)
	return &WindowLayer{
		Base:     layer.NewBase(s.name, s.priority),
		target:   target,
		settings: s,
	}
}

func (l *WindowLayer) Initialize() error {
	return l.Seal(command.KindWindow)
}

// CanAddOrRemove rejects every object; the layer has no members.
func (l *WindowLayer) CanAddOrRemove(game_object.GameObject) bool {
	return false
}

// RequestTitle queues a title change for the next frame.
func (l *WindowLayer) RequestTitle(title string) {
	l.request(command.WindowPayload{SubKind: command.WindowSetTitle, Title: title})
}

// RequestSize queues a size change for the next frame.
func (l *WindowLayer) RequestSize(width, height int) {
	l.request(command.WindowPayload{SubKind: command.WindowSetSize, Width: width, Height: height})
}

// RequestVSync queues a VSync change for the next frame.
func (l *WindowLayer) RequestVSync(enabled bool) {
	l.request(command.WindowPayload{SubKind: command.WindowSetVSync, VSync: enabled})
}

func (l *WindowLayer) request(p command.WindowPayload) {
	l.mu.Lock()
	l.pending = append(l.pending, p)
	l.mu.Unlock()
}

func (l *WindowLayer) CollectRenderCommands(_ common.FrameTime, dst []command.Command) ([]command.Command, error) {
	l.mu.Lock()
	pending := l.pending
	l.pending = nil
	l.mu.Unlock()

	for _, p := range pending {
		cmd, err := command.MakeWindowCommand(p.SubKind, p)
		if err != nil {
			return dst, err
		}
		dst = append(dst, cmd)
	}
	return dst, nil
}

func (l *WindowLayer) ProcessRenderCommands(cmds []command.Command) error {
	for _, cmd := range cmds {
		p, ok := cmd.Window()
		if !ok {
			continue
		}
		switch p.SubKind {
		case command.WindowSetTitle:
			l.target.SetTitle(p.Title)
		case command.WindowSetSize:
			if p.Width > 0 && p.Height > 0 {
				l.target.SetSize(p.Width, p.Height)
			}
		case command.WindowSetVSync:
			if l.settings.vsync != nil {
				if err := l.settings.vsync(p.VSync); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
