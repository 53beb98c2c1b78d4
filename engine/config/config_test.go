package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine"
	"github.com/Carmen-Shannon/oxy-render/engine/command"
	"github.com/Carmen-Shannon/oxy-render/engine/config"
	"github.com/Carmen-Shannon/oxy-render/engine/diagnostics"
	"github.com/Carmen-Shannon/oxy-render/engine/layer"
	"github.com/Carmen-Shannon/oxy-render/engine/layer/layertest"
	"github.com/Carmen-Shannon/oxy-render/engine/layers"
	"github.com/Carmen-Shannon/oxy-render/engine/render_pipeline"
	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hud = `
[engine]
frame_limit = 30.0
profiling = true
workers = 2
max_frames = 3

[pipeline]
fault_isolation = true
command_capacity = 64
optimizer = "state"

[[layers]]
type = "overlay"
name = "hud"
priority = "debug"

[[layers]]
type = "text"

[[layers]]
type = "sprite"
enabled = false
`

func TestParse(t *testing.T) {
	cfg, err := config.Parse([]byte(hud))
	require.NoError(t, err)

	assert.Equal(t, config.EngineConfig{FrameLimit: 30, Profiling: true, Workers: 2, MaxFrames: 3}, cfg.Engine)
	assert.Equal(t, config.PipelineConfig{FaultIsolation: true, CommandCapacity: 64, Optimizer: "state"}, cfg.Pipeline)
	require.Len(t, cfg.Layers, 3)
	assert.True(t, cfg.Layers[0].IsEnabled())
	assert.False(t, cfg.Layers[2].IsEnabled())
	assert.Equal(t, []string{"overlay", "text"}, cfg.LayerTypes())
}

func TestParseDefaults(t *testing.T) {
	cfg, err := config.Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, config.OptimizerKind, cfg.Pipeline.Optimizer)
	assert.Empty(t, cfg.LayerTypes())
	assert.Len(t, cfg.EngineOptions(), 1)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"syntax", "[engine\nworkers = 1"},
		{"unknown key", "[engine]\nthreads = 4"},
		{"wrong type", "[engine]\nworkers = \"many\""},
		{"negative workers", "[engine]\nworkers = -1"},
		{"negative frame limit", "[engine]\nframe_limit = -5.0"},
		{"negative capacity", "[pipeline]\ncommand_capacity = -1"},
		{"unknown optimizer", "[pipeline]\noptimizer = \"fastest\""},
		{"missing type", "[[layers]]\nname = \"x\""},
		{"unknown priority", "[[layers]]\ntype = \"text\"\npriority = \"top\""},
		{"duplicate type", "[[layers]]\ntype = \"text\"\n[[layers]]\ntype = \"text\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Parse([]byte(tt.doc))
			assert.ErrorIs(t, err, config.ErrInvalidConfig)
		})
	}
}

func TestDisabledDuplicateAllowed(t *testing.T) {
	cfg, err := config.Parse([]byte("[[layers]]\ntype = \"text\"\n[[layers]]\ntype = \"text\"\nenabled = false"))
	require.NoError(t, err)
	assert.Equal(t, []string{"text"}, cfg.LayerTypes())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.toml")
	require.NoError(t, os.WriteFile(path, []byte(hud), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Engine.Workers)

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, os.WriteFile(path, []byte("[pipeline]\noptimizer = 1"), 0o600))
	_, err = config.Load(path)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestEncodeRoundTrip(t *testing.T) {
	cfg, err := config.Parse([]byte(hud))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, cfg.Encode(&buf))
	again, err := config.Parse(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func newScreen(t *testing.T) tcell.Screen {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	screen.SetSize(40, 10)
	t.Cleanup(screen.Fini)
	return screen
}

func TestPipelineFromConfig(t *testing.T) {
	cfg, err := config.Parse([]byte(hud))
	require.NoError(t, err)

	screen := newScreen(t)
	reg := layer.NewRegistry()
	require.NoError(t, layers.Register(reg, layers.Dependencies{
		Screen:   screen,
		Recorder: diagnostics.NewRecorder(),
		Options:  cfg.LayerOptions(),
	}))

	opts, err := cfg.PipelineOptions(reg)
	require.NoError(t, err)
	p := render_pipeline.NewRenderPipeline(opts...)
	require.NoError(t, p.Initialize())

	descs := p.Descriptors()
	require.Len(t, descs, 2)
	assert.Equal(t, "text", descs[0].Name)
	assert.Equal(t, layer.PriorityText, descs[0].Priority)
	assert.Equal(t, "hud", descs[1].Name)
	assert.Equal(t, layer.PriorityDebug, descs[1].Priority)
}

func TestPipelineOptionsLayerSelection(t *testing.T) {
	reg := layer.NewRegistry()
	for _, name := range []string{"a", "b"} {
		require.NoError(t, reg.Register(name, func() (layer.Layer, error) {
			return layertest.New(name, layer.PriorityOpaque, command.KindClear), nil
		}))
	}

	build := func(doc string) render_pipeline.RenderPipeline {
		cfg, err := config.Parse([]byte(doc))
		require.NoError(t, err)
		opts, err := cfg.PipelineOptions(reg)
		require.NoError(t, err)
		p := render_pipeline.NewRenderPipeline(opts...)
		require.NoError(t, p.Initialize())
		return p
	}

	assert.Len(t, build("").RenderLayers(), 2)
	assert.Len(t, build("[[layers]]\ntype = \"b\"").RenderLayers(), 1)
	assert.Empty(t, build("[[layers]]\ntype = \"a\"\nenabled = false").RenderLayers())

	cfg, err := config.Parse([]byte("[[layers]]\ntype = \"c\""))
	require.NoError(t, err)
	_, err = cfg.PipelineOptions(reg)
	assert.ErrorIs(t, err, layer.ErrUnknownLayerType)
}

func TestEngineOptions(t *testing.T) {
	cfg, err := config.Parse([]byte(hud))
	require.NoError(t, err)

	l := layertest.New("scene", layer.PriorityOpaque, command.KindClear)
	l.Emit = []command.Command{command.MakeClear(command.ClearPayload{})}
	frames := 0
	opts := append(cfg.EngineOptions(),
		engine.WithPipelineOptions(render_pipeline.WithRegistrations(layer.Registration{
			Type:    "scene",
			Factory: func() (layer.Layer, error) { return l, nil },
		})),
	)
	e := engine.NewEngine(opts...)
	e.SetRenderCallback(func(common.FrameTime) { frames++ })

	require.NoError(t, e.Run())
	assert.Equal(t, 3, frames)
}
