// Package layers provides the concrete render layers: sprites on a raster canvas, text and a
// diagnostics HUD on a terminal screen, window property changes, and GPU meshes.
package layers

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-render/engine/backend/raster"
	"github.com/Carmen-Shannon/oxy-render/engine/diagnostics"
	"github.com/Carmen-Shannon/oxy-render/engine/layer"
	"github.com/gdamore/tcell/v2"
)

// ErrMissingDependency is returned by a registered factory whose backend was not supplied.
var ErrMissingDependency = errors.New("missing layer dependency")

// Layer type names used by Register and the config file.
const (
	TypeSprite  = "sprite"
	TypeText    = "text"
	TypeOverlay = "overlay"
	TypeWindow  = "window"
	TypeMesh    = "mesh"
)

// Dependencies are the backends the concrete layers draw into. Any field may be nil; the
// factories of layers needing a missing backend fail with ErrMissingDependency.
type Dependencies struct {
	Canvas   *raster.Canvas
	Screen   tcell.Screen
	Recorder *diagnostics.Recorder
	Window   WindowTarget
	GPU      GPU

	// Options maps a layer type to extra options applied when the factory runs.
	Options map[string][]LayerBuilderOption
}

// Register adds a factory for every concrete layer type to reg, in the order sprite, text,
// overlay, window, mesh.
//
// Parameters:
//   - reg: the registry to fill
//   - deps: the backends handed to each layer
//
// Returns:
//   - error: a registration error, e.g. layer.ErrDuplicateRegistration
func Register(reg *layer.Registry, deps Dependencies) error {
	factories := []layer.Registration{
		{Type: TypeSprite, Factory: func() (layer.Layer, error) {
			if deps.Canvas == nil {
				return nil, missing(TypeSprite, "canvas")
			}
			return NewSpriteLayer(deps.Canvas, deps.Options[TypeSprite]...), nil
		}},
		{Type: TypeText, Factory: func() (layer.Layer, error) {
			if deps.Screen == nil {
				return nil, missing(TypeText, "screen")
			}
			return NewTextLayer(deps.Screen, deps.Options[TypeText]...), nil
		}},
		{Type: TypeOverlay, Factory: func() (layer.Layer, error) {
			if deps.Screen == nil || deps.Recorder == nil {
				return nil, missing(TypeOverlay, "screen and recorder")
			}
			return NewOverlayLayer(deps.Screen, deps.Recorder, deps.Options[TypeOverlay]...), nil
		}},
		{Type: TypeWindow, Factory: func() (layer.Layer, error) {
			if deps.Window == nil {
				return nil, missing(TypeWindow, "window target")
			}
			return NewWindowLayer(deps.Window, deps.Options[TypeWindow]...), nil
		}},
		{Type: TypeMesh, Factory: func() (layer.Layer, error) {
			if deps.GPU == nil {
				return nil, missing(TypeMesh, "gpu")
			}
			return NewMeshLayer(deps.GPU, deps.Options[TypeMesh]...), nil
		}},
	}
	for _, f := range factories {
		if err := reg.Register(f.Type, f.Factory); err != nil {
			return err
		}
	}
	return nil
}

func missing(typ, what string) error {
	return fmt.Errorf("%w: %s layer needs a %s", ErrMissingDependency, typ, what)
}
