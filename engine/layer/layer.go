// Package layer defines the render layer contract, the priority-ordered layer container
// the pipeline iterates every frame, and the registry that constructs layers by type name.
package layer

import (
	"errors"
	"iter"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/command"
	"github.com/Carmen-Shannon/oxy-render/engine/game_object"
)

var (
	// ErrNilLayer is returned when a nil layer is handed to a container.
	ErrNilLayer = errors.New("nil render layer")

	// ErrDuplicateLayer is returned when the same layer instance is added twice.
	ErrDuplicateLayer = errors.New("render layer already registered")

	// ErrAlreadyInitialized is returned by a second Base.Seal.
	ErrAlreadyInitialized = errors.New("render layer already initialized")

	// ErrUnknownPriority is returned by ParsePriority.
	ErrUnknownPriority = errors.New("unknown layer priority")

	// ErrUnknownLayerType is returned when a registry has no factory for a requested type.
	ErrUnknownLayerType = errors.New("unknown layer type")

	// ErrInvalidRegistration is returned for an empty type name or a nil factory.
	ErrInvalidRegistration = errors.New("invalid layer registration")

	// ErrDuplicateRegistration is returned when a type name is registered twice.
	ErrDuplicateRegistration = errors.New("layer type already registered")
)

// Layer is a render layer system: it owns a set of game objects, describes their draw work as
// commands each frame, and executes the subset of the frame's commands it supports.
type Layer interface {
	// Name returns the layer's diagnostic name.
	Name() string

	// Priority returns the render bucket the layer belongs to.
	Priority() Priority

	// Active reports whether the pipeline should update, collect and submit this layer.
	Active() bool

	// Initialize performs one-time setup and fixes SupportedCommandKinds.
	//
	// Returns:
	//   - error: an error if setup failed; the pipeline aborts startup
	Initialize() error

	// Update advances per-frame layer state.
	//
	// Parameters:
	//   - t: the frame time
	//
	// Returns:
	//   - error: a per-frame layer fault
	Update(t common.FrameTime) error

	// Add adds obj to the layer's membership.
	//
	// Parameters:
	//   - obj: the object to add
	//
	// Returns:
	//   - error: game_object.ErrNilObject if obj is nil
	Add(obj game_object.GameObject) error

	// Remove drops obj from the layer's membership.
	//
	// Returns:
	//   - bool: true if obj was a member
	Remove(obj game_object.GameObject) bool

	// Clear drops every member.
	Clear()

	// CanAddOrRemove reports whether obj belongs in this layer. It must have no side effects
	// and must give the same answer for the same object and layer state.
	CanAddOrRemove(obj game_object.GameObject) bool

	// GameObjects returns the members in draw order.
	GameObjects() iter.Seq[game_object.GameObject]

	// OnViewportResize is called when the render target size changes.
	OnViewportResize(width, height int)

	// CollectRenderCommands appends this frame's commands to dst. It only describes work and
	// must not draw. A layer left with nothing to emit may wipe what it drew earlier, since
	// ProcessRenderCommands is not called for it that frame.
	//
	// Parameters:
	//   - t: the frame time
	//   - dst: the buffer to append to; empty, with spare capacity
	//
	// Returns:
	//   - []command.Command: dst extended with the layer's commands
	//   - error: a per-frame layer fault
	CollectRenderCommands(t common.FrameTime, dst []command.Command) ([]command.Command, error)

	// ProcessRenderCommands executes cmds against the backend. cmds holds only supported kinds,
	// in optimized order, and is reused after the call returns.
	//
	// Returns:
	//   - error: a per-frame layer fault
	ProcessRenderCommands(cmds []command.Command) error

	// SupportedCommandKinds returns the kinds routed to this layer. Fixed once initialized.
	SupportedCommandKinds() command.KindSet
}

// Descriptor is the registration record of a constructed layer.
type Descriptor struct {
	Type      string
	Priority  Priority
	Name      string
	Supported command.KindSet
}

// Describe builds the Descriptor of l.
//
// Parameters:
//   - typ: the registry type name l was constructed from, or "" if added directly
//   - l: the layer
//
// Returns:
//   - Descriptor: the registration record
func Describe(typ string, l Layer) Descriptor {
	return Descriptor{
		Type:      typ,
		Priority:  l.Priority(),
		Name:      l.Name(),
		Supported: l.SupportedCommandKinds(),
	}
}
