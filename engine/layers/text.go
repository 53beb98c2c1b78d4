package layers

import (
	"strings"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/backend/raster"
	"github.com/Carmen-Shannon/oxy-render/engine/command"
	"github.com/Carmen-Shannon/oxy-render/engine/game_object"
	"github.com/Carmen-Shannon/oxy-render/engine/layer"
	"github.com/gdamore/tcell/v2"
)

// TextLayer draws objects carrying TextData into terminal cells. Object positions are cell
// coordinates; each line of Content starts a new row.
type TextLayer struct {
	*layer.Base
	screen   tcell.Screen
	settings settings

	// painted is set while the screen still shows runs from the last processed frame.
	painted bool
}

var _ layer.Layer = &TextLayer{}

// NewTextLayer creates a text layer in the Text bucket accepting every object with text.
//
// Parameters:
//   - screen: the terminal screen to draw into
//   - options: functional options to configure the layer
//
// Returns:
//   - *TextLayer: the layer, not yet initialized
func NewTextLayer(screen tcell.Screen, options ...LayerBuilderOption) *TextLayer {
	s := newSettings("text", layer.PriorityText, game_object.LayerAll, options)
	return &TextLayer{
		Base:     layer.NewBase(s.name, s.priority),
		screen:   screen,
		settings: s,
	}
}

func (l *TextLayer) Initialize() error {
	return l.Seal(command.KindDrawText)
}

func (l *TextLayer) CanAddOrRemove(obj game_object.GameObject) bool {
	return obj.Text() != nil && obj.Layers().Has(l.settings.mask)
}

// CollectRenderCommands emits one DrawText per visible object. When nothing is left to draw
// the pipeline never calls ProcessRenderCommands, so the runs painted last frame are wiped here.
func (l *TextLayer) CollectRenderCommands(_ common.FrameTime, dst []command.Command) ([]command.Command, error) {
	before := len(dst)
	for obj := range l.GameObjects() {
		text := obj.Text()
		if !obj.Visible() || text == nil || text.Content == "" {
			continue
		}
		x, y := obj.Position()
		dst = append(dst, command.MakeDrawText(command.DrawTextPayload{
			Text:  text.Content,
			X:     x,
			Y:     y,
			Color: text.Color,
			Scale: text.Scale,
		}))
	}
	if len(dst) == before && l.painted {
		l.screen.Clear()
		l.screen.Show()
		l.painted = false
	}
	return dst, nil
}

// ProcessRenderCommands clears the screen, draws every run, then shows the result.
func (l *TextLayer) ProcessRenderCommands(cmds []command.Command) error {
	l.screen.Clear()
	l.painted = false
	for _, cmd := range cmds {
		if d, ok := cmd.DrawText(); ok {
			drawString(l.screen, int(d.X), int(d.Y), d.Text, textStyle(d.Color))
			l.painted = true
		}
	}
	l.screen.Show()
	return nil
}

// drawString writes text starting at (x, y), clipping at the screen edge.
func drawString(screen tcell.Screen, x, y int, text string, style tcell.Style) {
	width, height := screen.Size()
	for row, line := range strings.Split(text, "\n") {
		cy := y + row
		if cy < 0 || cy >= height {
			continue
		}
		cx := x
		for _, r := range line {
			if cx >= width {
				break
			}
			if cx >= 0 {
				screen.SetContent(cx, cy, r, nil, style)
			}
			cx++
		}
	}
}

// textStyle maps a command color onto a foreground color. The zero Color keeps the terminal's
// default foreground.
func textStyle(c command.Color) tcell.Style {
	if c == (command.Color{}) {
		return tcell.StyleDefault
	}
	n := raster.ToNRGBA(c)
	return tcell.StyleDefault.Foreground(tcell.NewRGBColor(int32(n.R), int32(n.G), int32(n.B)))
}
