package layers

import (
	"unicode/utf8"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/command"
	"github.com/Carmen-Shannon/oxy-render/engine/diagnostics"
	"github.com/Carmen-Shannon/oxy-render/engine/game_object"
	"github.com/Carmen-Shannon/oxy-render/engine/layer"
	"github.com/gdamore/tcell/v2"
)

var (
	panelTitleStyle = tcell.StyleDefault.Reverse(true).Bold(true)
	panelStyle      = tcell.StyleDefault.Reverse(true)
)

// OverlayLayer is the diagnostics HUD: each frame it emits an ImGui panel holding the
// recorder's summary, and it draws every ImGui panel in the frame, including ones enqueued by
// other systems, over the terminal screen.
type OverlayLayer struct {
	*layer.Base
	screen   tcell.Screen
	recorder *diagnostics.Recorder
	settings settings
}

var _ layer.Layer = &OverlayLayer{}

// NewOverlayLayer creates the HUD in the UI bucket with its panel at the top-left cell.
//
// Parameters:
//   - screen: the terminal screen to draw into
//   - recorder: the diagnostics to summarise
//   - options: functional options to configure the layer
//
// Returns:
//   - *OverlayLayer: the layer, not yet initialized
func NewOverlayLayer(screen tcell.Screen, recorder *diagnostics.Recorder, options ...LayerBuilderOption) *OverlayLayer {
	s := newSettings("overlay", layer.PriorityUI, game_object.LayerDebug, append([]LayerBuilderOption{WithPanel("diagnostics", 0, 0)}, options...))
	return &OverlayLayer{
		Base:     layer.NewBase(s.name, s.priority),
		screen:   screen,
		recorder: recorder,
		settings: s,
	}
}

func (l *OverlayLayer) Initialize() error {
	return l.Seal(command.KindImGui)
}

// CanAddOrRemove rejects every object; the HUD draws diagnostics, not game objects.
func (l *OverlayLayer) CanAddOrRemove(game_object.GameObject) bool {
	return false
}

func (l *OverlayLayer) CollectRenderCommands(_ common.FrameTime, dst []command.Command) ([]command.Command, error) {
	return append(dst, command.MakeImGui(command.ImGuiPayload{
		Title: l.settings.title,
		X:     l.settings.x,
		Y:     l.settings.y,
		Lines: l.recorder.SummaryLines(),
	})), nil
}

func (l *OverlayLayer) ProcessRenderCommands(cmds []command.Command) error {
	for _, cmd := range cmds {
		if p, ok := cmd.ImGui(); ok {
			drawPanel(l.screen, p)
		}
	}
	l.screen.Show()
	return nil
}

// drawPanel draws a filled rectangle wide enough for the title and every line, so stale cells
// underneath never show through.
func drawPanel(screen tcell.Screen, p command.ImGuiPayload) {
	width := utf8.RuneCountInString(p.Title)
	for _, line := range p.Lines {
		width = max(width, utf8.RuneCountInString(line))
	}
	width += 2

	drawString(screen, p.X, p.Y, pad(p.Title, width), panelTitleStyle)
	for i, line := range p.Lines {
		drawString(screen, p.X, p.Y+1+i, pad(line, width), panelStyle)
	}
}

func pad(s string, width int) string {
	n := utf8.RuneCountInString(s)
	buf := make([]rune, 0, width)
	buf = append(buf, ' ')
	buf = append(buf, []rune(s)...)
	for i := n + 1; i < width; i++ {
		buf = append(buf, ' ')
	}
	return string(buf)
}
