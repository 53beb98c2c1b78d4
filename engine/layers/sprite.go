package layers

import (
	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/backend/raster"
	"github.com/Carmen-Shannon/oxy-render/engine/command"
	"github.com/Carmen-Shannon/oxy-render/engine/game_object"
	"github.com/Carmen-Shannon/oxy-render/engine/layer"
)

// SpriteLayer draws objects carrying SpriteData as textured quads on a raster canvas.
type SpriteLayer struct {
	*layer.Base
	canvas   *raster.Canvas
	settings settings
}

var _ layer.Layer = &SpriteLayer{}

// NewSpriteLayer creates a sprite layer in the Sprite bucket accepting LayerWorld objects.
//
// Parameters:
//   - canvas: the framebuffer to draw into
//   - options: functional options to configure the layer
//
// Returns:
//   - *SpriteLayer: the layer, not yet initialized
func NewSpriteLayer(canvas *raster.Canvas, options ...LayerBuilderOption) *SpriteLayer {
	s := newSettings("sprites", layer.PrioritySprite, game_object.LayerWorld, options)
	return &SpriteLayer{
		Base:     layer.NewBase(s.name, s.priority),
		canvas:   canvas,
		settings: s,
	}
}

func (l *SpriteLayer) Initialize() error {
	return l.Seal(command.KindClear, command.KindDrawTexture)
}

func (l *SpriteLayer) CanAddOrRemove(obj game_object.GameObject) bool {
	return obj.Sprite() != nil && obj.Layers().Has(l.settings.mask)
}

func (l *SpriteLayer) OnViewportResize(width, height int) {
	l.Base.OnViewportResize(width, height)
	l.canvas.Resize(width, height)
}

func (l *SpriteLayer) CollectRenderCommands(_ common.FrameTime, dst []command.Command) ([]command.Command, error) {
	if l.settings.background != nil {
		dst = append(dst, command.MakeClear(command.ClearPayload{Color: *l.settings.background}))
	}
	for obj := range l.GameObjects() {
		sprite := obj.Sprite()
		if !obj.Visible() || sprite == nil {
			continue
		}
		x, y := obj.Position()
		w, h := obj.Size()
		dst = append(dst, command.MakeDrawTexture(command.DrawTexturePayload{
			Texture: sprite.Texture,
			Dst:     command.Rect{X: x, Y: y, Width: w, Height: h},
			Src:     sprite.Src,
			Tint:    sprite.Tint,
		}))
	}
	return dst, nil
}

func (l *SpriteLayer) ProcessRenderCommands(cmds []command.Command) error {
	for _, cmd := range cmds {
		if c, ok := cmd.Clear(); ok {
			l.canvas.Clear(c.Color)
			continue
		}
		if d, ok := cmd.DrawTexture(); ok {
			if err := l.canvas.DrawTexture(d.Texture, d.Dst, d.Src, d.Tint); err != nil {
				return err
			}
		}
	}
	return nil
}
