package render_pipeline

import (
	"errors"
	"math/rand/v2"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/command"
	"github.com/Carmen-Shannon/oxy-render/engine/game_object"
	"github.com/Carmen-Shannon/oxy-render/engine/layer"
	"github.com/Carmen-Shannon/oxy-render/engine/layer/layertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var frame16 = common.FrameTime{Frame: 1, Delta: 16 * time.Millisecond}

func registration(l layer.Layer) layer.Registration {
	return layer.Registration{
		Type:    l.Name(),
		Factory: func() (layer.Layer, error) { return l, nil },
	}
}

func newInitialized(t *testing.T, options []RenderPipelineBuilderOption, layers ...layer.Layer) RenderPipeline {
	t.Helper()
	regs := make([]layer.Registration, len(layers))
	for i, l := range layers {
		regs[i] = registration(l)
	}
	p := NewRenderPipeline(append([]RenderPipelineBuilderOption{WithRegistrations(regs...)}, options...)...)
	require.NoError(t, p.Initialize())
	return p
}

func TestOpaqueTextScenario(t *testing.T) {
	opaque := layertest.New("Opaque", layer.PriorityOpaque, command.KindClear, command.KindDrawTexture)
	opaque.Emit = []command.Command{
		command.MakeClear(command.ClearPayload{}),
		command.MakeDrawTexture(command.DrawTexturePayload{Texture: 1}),
	}
	text := layertest.New("Text", layer.PriorityText, command.KindDrawText)
	text.Emit = []command.Command{
		command.MakeDrawText(command.DrawTextPayload{Text: "hello"}),
	}

	var optimized []command.Kind
	inner := KindOptimizer{}
	spy := OptimizerFunc(func(cmds []command.Command) {
		assert.Equal(t, []command.Kind{command.KindClear, command.KindDrawTexture, command.KindDrawText}, layertest.Kinds(cmds))
		inner.Optimize(cmds)
		optimized = layertest.Kinds(cmds)
	})

	p := newInitialized(t, []RenderPipelineBuilderOption{WithOptimizer(spy)}, opaque, text)
	require.NoError(t, p.Render(frame16))

	assert.Equal(t, []command.Kind{command.KindClear, command.KindDrawText, command.KindDrawTexture}, optimized)
	assert.Equal(t, []command.Kind{command.KindClear, command.KindDrawTexture}, layertest.Kinds(opaque.LastProcessed()))
	assert.Equal(t, []command.Kind{command.KindDrawText}, layertest.Kinds(text.LastProcessed()))

	d := p.Diagnostics()
	assert.Equal(t, uint64(1), d.TotalFrames())
	assert.Equal(t, 3, d.PeakCommandsPerFrame())
	s, ok := d.Layer("Opaque")
	require.True(t, ok)
	assert.Equal(t, 2, s.CommandsThisFrame)
	assert.Equal(t, int(layer.PriorityOpaque), s.Order)
}

func TestSubmitRoutingIsOrderPreservingSubsequence(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	makers := []func(i int) command.Command{
		func(i int) command.Command { return command.MakeClear(command.ClearPayload{Depth: float32(i)}) },
		func(i int) command.Command { return command.MakeDrawText(command.DrawTextPayload{X: float32(i)}) },
		func(i int) command.Command {
			return command.MakeDrawTexture(command.DrawTexturePayload{Texture: command.TextureHandle(i)})
		},
		func(i int) command.Command { return command.MakeScissor(command.ScissorPayload{X: uint32(i)}) },
	}

	var emitted []command.Command
	producer := layertest.New("producer", layer.PriorityBackground)
	for i := range 64 {
		cmd := makers[rng.IntN(len(makers))](i)
		emitted = append(emitted, cmd)
	}
	producer.Emit = emitted

	a := layertest.New("a", layer.PriorityOpaque, command.KindClear, command.KindDrawTexture)
	b := layertest.New("b", layer.PriorityText, command.KindDrawText, command.KindScissor)
	all := layertest.New("all", layer.PriorityDebug, command.AllKinds()...)

	p := newInitialized(t, nil, producer, a, b, all)
	require.NoError(t, p.Render(frame16))

	optimized := all.LastProcessed()
	require.Len(t, optimized, len(emitted))
	assert.ElementsMatch(t, emitted, optimized)
	assert.True(t, slices.IsSortedFunc(optimized, command.Compare))

	for _, l := range []*layertest.Layer{a, b} {
		var want []command.Command
		for _, cmd := range optimized {
			if l.SupportedCommandKinds().Has(cmd.Kind()) {
				want = append(want, cmd)
			}
		}
		assert.Equal(t, want, l.LastProcessed(), l.Name())
	}
	// The producer supports nothing and is never submitted to.
	assert.Empty(t, producer.Processed())
}

func TestEnqueueBypassesCollect(t *testing.T) {
	opaque := layertest.New("Opaque", layer.PriorityOpaque, command.KindClear, command.KindDrawTexture)
	opaque.Emit = []command.Command{command.MakeDrawTexture(command.DrawTexturePayload{Texture: 2})}
	p := newInitialized(t, nil, opaque)

	require.NoError(t, p.EnqueueRenderCommand(command.MakeClear(command.ClearPayload{Color: command.Color{1, 0, 0, 1}})))
	assert.ErrorIs(t, p.EnqueueRenderCommand(command.Command{}), command.ErrInvalidCommand)

	require.NoError(t, p.Render(frame16))
	assert.Equal(t, []command.Kind{command.KindClear, command.KindDrawTexture}, layertest.Kinds(opaque.LastProcessed()))
	assert.Equal(t, 2, p.Diagnostics().Samples()[0].TotalCommands)

	// The queue is drained: the next frame only sees collected commands.
	require.NoError(t, p.Render(frame16))
	assert.Equal(t, []command.Kind{command.KindDrawTexture}, layertest.Kinds(opaque.LastProcessed()))
}

func TestEnqueueDuringCollectLandsInSameFrame(t *testing.T) {
	sink := layertest.New("sink", layer.PriorityOverlay, command.KindImGui)
	var p RenderPipeline
	producer := layertest.New("producer", layer.PriorityBackground)
	producer.OnCollect = func(_ common.FrameTime, dst []command.Command) ([]command.Command, error) {
		return dst, p.EnqueueRenderCommand(command.MakeImGui(command.ImGuiPayload{Title: "late"}))
	}
	p = newInitialized(t, nil, producer, sink)

	require.NoError(t, p.Render(frame16))
	require.Len(t, sink.LastProcessed(), 1)
}

func TestBuffersAreClearedBetweenFrames(t *testing.T) {
	l := layertest.New("l", layer.PriorityOpaque, command.KindClear)
	l.Emit = []command.Command{command.MakeClear(command.ClearPayload{})}
	p := newInitialized(t, nil, l).(*renderPipeline)

	for range 5 {
		require.NoError(t, p.Render(frame16))
		assert.Len(t, l.LastProcessed(), 1)
		assert.Empty(t, p.buffer)
		assert.Empty(t, p.scratch)
	}
	assert.Equal(t, uint64(5), p.FrameNumber())
}

func TestInitializeFollowsRegistrationOrder(t *testing.T) {
	var order []string
	reg := layer.NewRegistry()
	for _, entry := range []struct {
		name string
		p    layer.Priority
	}{{"debug", layer.PriorityDebug}, {"bg", layer.PriorityBackground}, {"text", layer.PriorityText}} {
		l := layertest.New(entry.name, entry.p)
		l.OnInitialize = func() error {
			order = append(order, l.Name())
			return nil
		}
		require.NoError(t, reg.Register(entry.name, func() (layer.Layer, error) { return l, nil }))
	}

	p := NewRenderPipeline(WithRegistry(reg))
	require.NoError(t, p.Initialize())
	assert.Equal(t, []string{"debug", "bg", "text"}, order)
	assert.Equal(t, StateInitialized, p.State())

	var rendered []string
	for _, l := range p.RenderLayers() {
		rendered = append(rendered, l.Name())
	}
	assert.Equal(t, []string{"bg", "text", "debug"}, rendered)

	descs := p.Descriptors()
	require.Len(t, descs, 3)
	assert.Equal(t, "bg", descs[0].Type)

	assert.ErrorIs(t, p.Initialize(), ErrAlreadyInitialized)
}

func TestInitializeConfigurationErrors(t *testing.T) {
	good := layer.Registration{Type: "good", Factory: func() (layer.Layer, error) {
		return layertest.New("good", layer.PriorityOpaque), nil
	}}
	cases := []struct {
		name string
		reg  layer.Registration
	}{
		{"factory error", layer.Registration{Type: "broken", Factory: func() (layer.Layer, error) {
			return nil, errors.New("missing asset")
		}}},
		{"nil layer", layer.Registration{Type: "empty", Factory: func() (layer.Layer, error) { return nil, nil }}},
		{"nil factory", layer.Registration{Type: "unbound"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewRenderPipeline(WithRegistrations(good, tc.reg))
			err := p.Initialize()
			require.ErrorIs(t, err, ErrLayerConstruction)
			assert.Contains(t, err.Error(), tc.reg.Type)
			assert.Equal(t, StateUninitialized, p.State())
			assert.Empty(t, p.RenderLayers())
			assert.ErrorIs(t, p.Render(frame16), ErrNotInitialized)
		})
	}

	bad := layertest.New("bad", layer.PriorityOpaque)
	bad.OnInitialize = func() error { return errors.New("no device") }
	p := NewRenderPipeline(WithRegistrations(registration(bad)))
	var le *LayerError
	require.ErrorAs(t, p.Initialize(), &le)
	assert.Equal(t, PhaseInitialize, le.Phase)
	assert.Equal(t, "bad", le.Layer)
}

func TestLayerFaultAbortsFrameByDefault(t *testing.T) {
	boom := errors.New("boom")
	first := layertest.New("first", layer.PriorityBackground, command.KindClear)
	first.Emit = []command.Command{command.MakeClear(command.ClearPayload{})}
	faulty := layertest.New("faulty", layer.PriorityOpaque, command.KindDrawTexture)
	faulty.OnCollect = func(common.FrameTime, []command.Command) ([]command.Command, error) { return nil, boom }

	p := newInitialized(t, nil, first, faulty).(*renderPipeline)
	err := p.Render(frame16)
	require.ErrorIs(t, err, boom)

	var le *LayerError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "faulty", le.Layer)
	assert.Equal(t, PhaseCollect, le.Phase)
	assert.Equal(t, uint64(1), le.Frame)
	assert.Contains(t, err.Error(), "frame 1")

	assert.Empty(t, first.Processed())
	assert.Empty(t, p.buffer)
	assert.Zero(t, p.Diagnostics().TotalFrames())
}

func TestPanicPropagatesWithoutIsolation(t *testing.T) {
	l := layertest.New("panicky", layer.PriorityOpaque, command.KindClear)
	l.Emit = []command.Command{command.MakeClear(command.ClearPayload{})}
	l.OnProcess = func([]command.Command) error { panic("gpu lost") }
	p := newInitialized(t, nil, l).(*renderPipeline)

	assert.Panics(t, func() { _ = p.Render(frame16) })
	assert.Empty(t, p.buffer)
	// The frame lock was released by the deferred unlock.
	l.OnProcess = nil
	assert.NoError(t, p.Render(frame16))
}

func TestFaultIsolationSkipsLayerForFrame(t *testing.T) {
	healthy := layertest.New("healthy", layer.PriorityBackground, command.KindClear, command.KindDrawText)
	healthy.Emit = []command.Command{command.MakeClear(command.ClearPayload{})}

	collectFault := layertest.New("collect-fault", layer.PriorityOpaque, command.KindClear)
	collectFault.OnCollect = func(_ common.FrameTime, dst []command.Command) ([]command.Command, error) {
		dst = append(dst, command.MakeDrawText(command.DrawTextPayload{Text: "partial"}))
		return dst, errors.New("half done")
	}

	submitPanic := layertest.New("submit-panic", layer.PriorityText, command.KindClear)
	submitPanic.OnProcess = func([]command.Command) error { panic("device lost") }

	updateFault := layertest.New("update-fault", layer.PriorityUI, command.KindClear)
	updateFault.Emit = []command.Command{command.MakeClear(command.ClearPayload{})}
	updateFault.OnUpdate = func(common.FrameTime) error { return errors.New("stale") }

	p := newInitialized(t, []RenderPipelineBuilderOption{WithFaultIsolation(true)},
		healthy, collectFault, submitPanic, updateFault)

	require.NoError(t, p.Update(frame16))
	require.NoError(t, p.Render(frame16))

	// The partial append of the faulting layer was discarded.
	assert.Equal(t, []command.Kind{command.KindClear}, layertest.Kinds(healthy.LastProcessed()))
	assert.Empty(t, collectFault.Processed())
	assert.Equal(t, 0, updateFault.Collects())
	assert.Len(t, submitPanic.Processed(), 1)

	d := p.Diagnostics()
	for _, name := range []string{"collect-fault", "submit-panic", "update-fault"} {
		s, ok := d.Layer(name)
		require.True(t, ok, name)
		assert.Equal(t, 1, s.Faults, name)
	}
	s, _ := d.Layer("submit-panic")
	assert.Contains(t, s.LastFault, "device lost")
	assert.Equal(t, uint64(1), d.TotalFrames())

	// The skip lasts one frame only.
	updateFault.OnUpdate = nil
	require.NoError(t, p.Update(frame16))
	require.NoError(t, p.Render(frame16))
	assert.Equal(t, 1, updateFault.Collects())
}

func TestInvalidCollectedCommandIsAFault(t *testing.T) {
	l := layertest.New("sloppy", layer.PriorityOpaque)
	l.Emit = []command.Command{{}}
	p := newInitialized(t, nil, l)
	assert.ErrorIs(t, p.Render(frame16), command.ErrInvalidCommand)
}

func TestLayerCannotDropEarlierCommands(t *testing.T) {
	first := layertest.New("first", layer.PriorityBackground, command.KindClear)
	first.Emit = []command.Command{command.MakeClear(command.ClearPayload{})}

	fresh := layertest.New("fresh", layer.PriorityOpaque, command.KindDrawText)
	fresh.OnCollect = func(_ common.FrameTime, dst []command.Command) ([]command.Command, error) {
		assert.Empty(t, dst)
		return []command.Command{command.MakeDrawText(command.DrawTextPayload{Text: "own"})}, nil
	}

	grower := layertest.New("grower", layer.PriorityText, command.KindDrawText)
	grower.OnCollect = func(_ common.FrameTime, dst []command.Command) ([]command.Command, error) {
		for range defaultCommandCapacity + 1 {
			dst = append(dst, command.MakeDrawText(command.DrawTextPayload{Text: "many"}))
		}
		return dst, nil
	}

	p := newInitialized(t, nil, first, fresh, grower).(*renderPipeline)
	require.NoError(t, p.Render(frame16))

	assert.Equal(t, []command.Kind{command.KindClear}, layertest.Kinds(first.LastProcessed()))
	assert.Len(t, fresh.LastProcessed(), defaultCommandCapacity+2)
	s, ok := p.Diagnostics().Layer("fresh")
	require.True(t, ok)
	assert.Equal(t, 1, s.CommandsThisFrame)
}

func TestInactiveLayersAreSkipped(t *testing.T) {
	l := layertest.New("off", layer.PriorityOpaque, command.KindClear)
	l.Emit = []command.Command{command.MakeClear(command.ClearPayload{})}
	l.SetActive(false)
	p := newInitialized(t, nil, l)

	require.NoError(t, p.Update(frame16))
	require.NoError(t, p.Render(frame16))
	assert.Zero(t, l.Updates())
	assert.Zero(t, l.Collects())
	assert.Empty(t, l.Processed())
}

func TestAddRenderLayerAfterInitialize(t *testing.T) {
	p := newInitialized(t, nil)
	p.ViewportResize(800, 600)

	late := layertest.New("late", layer.PriorityOverlay, command.KindImGui)
	require.NoError(t, p.AddRenderLayer(late))
	assert.Equal(t, 1, late.Inits())
	assert.Equal(t, [][2]int{{800, 600}}, late.Resizes())
	assert.ErrorIs(t, p.AddRenderLayer(late), layer.ErrDuplicateLayer)

	found, ok := FindLayer[*layertest.Layer](p)
	require.True(t, ok)
	assert.Same(t, late, found)

	assert.True(t, p.RemoveRenderLayer(late))
	assert.False(t, p.RemoveRenderLayer(late))
	_, ok = FindLayer[*layertest.Layer](p)
	assert.False(t, ok)
}

func TestAddRenderLayerBeforeInitialize(t *testing.T) {
	early := layertest.New("early", layer.PriorityOpaque)
	p := NewRenderPipeline()
	require.NoError(t, p.AddRenderLayer(early))
	assert.Zero(t, early.Inits())
	assert.ErrorIs(t, p.Update(frame16), ErrNotInitialized)

	require.NoError(t, p.Initialize())
	assert.Equal(t, 1, early.Inits())
	assert.Equal(t, 1, p.RemoveRenderLayers(layer.PriorityOpaque))
}

func TestViewportResizeReachesEveryLayer(t *testing.T) {
	a := layertest.New("a", layer.PriorityText)
	b := layertest.New("b", layer.PriorityBackground)
	p := newInitialized(t, nil, a, b)

	_, _, ok := p.Viewport()
	assert.False(t, ok)

	p.ViewportResize(320, 200)
	assert.Equal(t, [][2]int{{320, 200}}, a.Resizes())
	w, h := b.Viewport()
	assert.Equal(t, [2]int{320, 200}, [2]int{w, h})

	pw, ph, ok := p.Viewport()
	require.True(t, ok)
	assert.Equal(t, [2]int{320, 200}, [2]int{pw, ph})
}

func TestGameObjectFanOutThroughPipeline(t *testing.T) {
	sprites := layertest.New("sprites", layer.PrioritySprite)
	sprites.Accept = func(o game_object.GameObject) bool { return o.Sprite() != nil }
	texts := layertest.New("texts", layer.PriorityText)
	texts.Accept = func(o game_object.GameObject) bool { return o.Text() != nil }
	p := newInitialized(t, nil, sprites, texts)

	obj := game_object.NewGameObject(game_object.WithText(game_object.TextData{Content: "x"}))
	n, err := p.AddGameObject(obj)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, texts.Objects().Contains(obj))
	assert.False(t, sprites.Objects().Contains(obj))

	assert.Equal(t, 1, p.RemoveGameObject(obj))
	assert.False(t, texts.Objects().Contains(obj))
}

func TestShutdown(t *testing.T) {
	l := layertest.New("l", layer.PriorityOpaque)
	p := newInitialized(t, nil, l)
	_, err := p.AddGameObject(game_object.NewGameObject())
	require.NoError(t, err)
	require.NoError(t, p.EnqueueRenderCommand(command.MakeClear(command.ClearPayload{})))

	p.Shutdown()
	assert.Equal(t, StateShuttingDown, p.State())
	assert.Zero(t, l.Objects().Len())
	assert.ErrorIs(t, p.Render(frame16), ErrShutDown)
	assert.ErrorIs(t, p.EnqueueRenderCommand(command.MakeClear(command.ClearPayload{})), ErrShutDown)
	assert.ErrorIs(t, p.AddRenderLayer(layertest.New("x", layer.PriorityUI)), ErrShutDown)
	p.Shutdown()
}

func TestStateOptimizerGroupsHandles(t *testing.T) {
	cmds := []command.Command{
		command.MakeDrawTexture(command.DrawTexturePayload{Texture: 3, Dst: command.Rect{X: 1}}),
		command.MakeDrawTexture(command.DrawTexturePayload{Texture: 1}),
		command.MakeClear(command.ClearPayload{}),
		command.MakeDrawTexture(command.DrawTexturePayload{Texture: 3, Dst: command.Rect{X: 2}}),
	}
	before := slices.Clone(cmds)
	StateOptimizer{}.Optimize(cmds)

	assert.ElementsMatch(t, before, cmds)
	assert.Equal(t, command.KindClear, cmds[0].Kind())
	keys := []uint64{cmds[1].SortKey(), cmds[2].SortKey(), cmds[3].SortKey()}
	assert.Equal(t, []uint64{1, 3, 3}, keys)
	p2, _ := cmds[2].DrawTexture()
	assert.Equal(t, float32(1), p2.Dst.X)
}

func TestConcurrentProducers(t *testing.T) {
	sink := layertest.New("sink", layer.PriorityOpaque, command.AllKinds()...)
	sink.OnCollect = func(_ common.FrameTime, dst []command.Command) ([]command.Command, error) {
		return dst, nil
	}
	p := newInitialized(t, []RenderPipelineBuilderOption{WithFaultIsolation(true)}, sink)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for w := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; ; i++ {
				select {
				case <-stop:
					return
				default:
				}
				obj := game_object.NewGameObject(game_object.WithOrder(i))
				_, _ = p.AddGameObject(obj)
				_ = p.EnqueueRenderCommand(command.MakeDrawText(command.DrawTextPayload{X: float32(w)}))
				extra := layertest.New("extra", layer.PriorityDebug, command.KindDrawText)
				_ = p.AddRenderLayer(extra)
				p.RemoveRenderLayer(extra)
				p.RemoveGameObject(obj)
				_ = p.Diagnostics().Summary()
			}
		}()
	}

	for range 100 {
		require.NoError(t, p.Update(frame16))
		require.NoError(t, p.Render(frame16))
	}
	close(stop)
	wg.Wait()

	assert.Equal(t, uint64(100), p.Diagnostics().TotalFrames())
	assert.Zero(t, sink.Objects().Len())
}
