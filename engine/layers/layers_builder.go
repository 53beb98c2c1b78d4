package layers

import (
	"github.com/Carmen-Shannon/oxy-render/engine/command"
	"github.com/Carmen-Shannon/oxy-render/engine/game_object"
	"github.com/Carmen-Shannon/oxy-render/engine/layer"
)

// settings holds the options shared by every concrete layer. Each constructor fills in its own
// defaults before applying options.
type settings struct {
	name       string
	priority   layer.Priority
	mask       game_object.LayerMask
	background *command.Color

	// mesh layer
	depth   command.DepthStatePayload
	cull    command.CullMode
	blend   bool
	scissor *command.ScissorPayload

	// overlay layer
	title  string
	x, y   int
	vsync  func(enabled bool) error
}

// LayerBuilderOption is a functional option for configuring a concrete layer.
type LayerBuilderOption func(s *settings)

func newSettings(name string, priority layer.Priority, mask game_object.LayerMask, options []LayerBuilderOption) settings {
	s := settings{
		name:     name,
		priority: priority,
		mask:     mask,
		depth:    command.DepthStatePayload{TestEnabled: true, WriteEnabled: true, Compare: command.CompareLess},
		cull:     command.CullBack,
	}
	for _, opt := range options {
		opt(&s)
	}
	return s
}

// WithName overrides the layer's diagnostic name.
//
// Parameters:
//   - name: the layer name
//
// Returns:
//   - LayerBuilderOption: functional option to set the name
func WithName(name string) LayerBuilderOption {
	return func(s *settings) {
		if name != "" {
			s.name = name
		}
	}
}

// WithPriority moves the layer to another render bucket.
//
// Parameters:
//   - p: the priority
//
// Returns:
//   - LayerBuilderOption: functional option to set the priority
func WithPriority(p layer.Priority) LayerBuilderOption {
	return func(s *settings) {
		if p.Valid() {
			s.priority = p
		}
	}
}

// WithMask sets which game object layer bits the layer accepts.
//
// Parameters:
//   - mask: the accepted bits
//
// Returns:
//   - LayerBuilderOption: functional option to set the mask
func WithMask(mask game_object.LayerMask) LayerBuilderOption {
	return func(s *settings) {
		s.mask = mask
	}
}

// WithBackground makes the sprite or mesh layer emit a Clear command each frame.
//
// Parameters:
//   - c: the clear color
//
// Returns:
//   - LayerBuilderOption: functional option to set the background
func WithBackground(c command.Color) LayerBuilderOption {
	return func(s *settings) {
		s.background = &c
	}
}

// WithDepthState sets the depth test the mesh layer requests each frame.
//
// Parameters:
//   - d: the depth state
//
// Returns:
//   - LayerBuilderOption: functional option to set the depth state
func WithDepthState(d command.DepthStatePayload) LayerBuilderOption {
	return func(s *settings) {
		s.depth = d
	}
}

// WithCullMode sets the face culling the mesh layer requests each frame.
//
// Parameters:
//   - m: the cull mode
//
// Returns:
//   - LayerBuilderOption: functional option to set the cull mode
func WithCullMode(m command.CullMode) LayerBuilderOption {
	return func(s *settings) {
		s.cull = m
	}
}

// WithBlend makes the mesh layer enable alpha blending.
//
// Parameters:
//   - enabled: true to blend
//
// Returns:
//   - LayerBuilderOption: functional option to toggle blending
func WithBlend(enabled bool) LayerBuilderOption {
	return func(s *settings) {
		s.blend = enabled
	}
}

// WithScissor restricts mesh layer draws to a rectangle.
//
// Parameters:
//   - x, y, width, height: the rectangle in target pixels
//
// Returns:
//   - LayerBuilderOption: functional option to set the scissor
func WithScissor(x, y, width, height uint32) LayerBuilderOption {
	return func(s *settings) {
		s.scissor = &command.ScissorPayload{Enabled: true, X: x, Y: y, Width: width, Height: height}
	}
}

// WithPanel sets the overlay panel's title and top-left cell.
//
// Parameters:
//   - title: the panel title
//   - x, y: the panel position in cells
//
// Returns:
//   - LayerBuilderOption: functional option to place the panel
func WithPanel(title string, x, y int) LayerBuilderOption {
	return func(s *settings) {
		s.title = title
		s.x, s.y = x, y
	}
}

// WithVSyncHandler lets the window layer apply VSync window commands, usually by delegating to
// the GPU backend's present mode.
//
// Parameters:
//   - fn: called with the requested VSync state
//
// Returns:
//   - LayerBuilderOption: functional option to set the handler
func WithVSyncHandler(fn func(enabled bool) error) LayerBuilderOption {
	return func(s *settings) {
		s.vsync = fn
	}
}
