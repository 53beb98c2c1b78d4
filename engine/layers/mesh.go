package layers

import (
	"errors"
	"log"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/command"
	"github.com/Carmen-Shannon/oxy-render/engine/game_object"
	"github.com/Carmen-Shannon/oxy-render/engine/layer"
)

// GPU is the device a MeshLayer drives. wgpu_backend.Backend implements it.
type GPU interface {
	SetClearColor(c command.Color)
	SetDepthState(d command.DepthStatePayload)
	SetCullMode(m command.CullMode)
	SetBlend(enabled bool)
	SetWireframe(enabled bool)
	SetScissor(s command.ScissorPayload)
	UseShader(h command.ShaderHandle) error
	WriteUniforms(h command.ShaderHandle, slot uint32, data []byte) error
	Resize(width, height int) error
	BeginFrame() error
	Draw(p command.DrawArrayPayload) error
	EndFrame() error
	Present()
}

// MeshLayer draws objects carrying MeshData through a GPU. Every object gets its own uniform
// slot, so its uniforms survive the frame being reordered by kind.
type MeshLayer struct {
	*layer.Base
	gpu      GPU
	settings settings
}

var _ layer.Layer = &MeshLayer{}

// NewMeshLayer creates a mesh layer in the Opaque bucket accepting LayerWorld objects.
//
// Parameters:
//   - gpu: the device to draw with
//   - options: functional options to configure the layer
//
// Returns:
//   - *MeshLayer: the layer, not yet initialized
func NewMeshLayer(gpu GPU, options ...LayerBuilderOption) *MeshLayer {
	s := newSettings("meshes", layer.PriorityOpaque, game_object.LayerWorld, options)
	return &MeshLayer{
		Base:     layer.NewBase(s.name, s.priority),
		gpu:      gpu,
		settings: s,
	}
}

func (l *MeshLayer) Initialize() error {
	return l.Seal(
		command.KindClear,
		command.KindGpuState,
		command.KindSetDepthState,
		command.KindSetCullMode,
		command.KindUseShader,
		command.KindSetUniforms,
		command.KindScissor,
		command.KindDrawArray,
	)
}

func (l *MeshLayer) CanAddOrRemove(obj game_object.GameObject) bool {
	return obj.Mesh() != nil && obj.Layers().Has(l.settings.mask)
}

// OnViewportResize resizes the GPU surface along with the recorded viewport.
func (l *MeshLayer) OnViewportResize(width, height int) {
	l.Base.OnViewportResize(width, height)
	if err := l.gpu.Resize(width, height); err != nil {
		log.Printf("[MeshLayer] resize to %dx%d failed: %v", width, height, err)
	}
}

func (l *MeshLayer) CollectRenderCommands(_ common.FrameTime, dst []command.Command) ([]command.Command, error) {
	s := l.settings
	if s.background != nil {
		dst = append(dst, command.MakeClear(command.ClearPayload{Color: *s.background, ClearDepth: true, Depth: 1}))
	}
	dst = append(dst,
		command.MakeSetDepthState(s.depth),
		command.MakeSetCullMode(command.CullModePayload{Mode: s.cull}),
		command.MakeGpuState(command.GpuStatePayload{State: command.GpuStateBlend, Enabled: s.blend}),
	)
	if s.scissor != nil {
		dst = append(dst, command.MakeScissor(*s.scissor))
	}

	var bound command.ShaderHandle
	var slot uint32
	for obj := range l.GameObjects() {
		mesh := obj.Mesh()
		if !obj.Visible() || mesh == nil || mesh.VertexCount == 0 {
			continue
		}
		if mesh.Shader != bound {
			dst = append(dst, command.MakeUseShader(command.UseShaderPayload{Shader: mesh.Shader}))
			bound = mesh.Shader
		}
		if mesh.Uniforms != nil {
			dst = append(dst, command.MakeSetUniforms(command.UniformsPayload{Shader: mesh.Shader, Slot: slot, Data: mesh.Uniforms}))
		}
		dst = append(dst, command.MakeDrawArray(command.DrawArrayPayload{
			Mesh:          mesh.Mesh,
			Shader:        mesh.Shader,
			Slot:          slot,
			VertexCount:   mesh.VertexCount,
			InstanceCount: mesh.Instances,
		}))
		slot++
	}
	return dst, nil
}

// ProcessRenderCommands applies state commands as they arrive and opens the frame on the first
// draw. A frame with a Clear but no draws is still presented so the clear is visible.
func (l *MeshLayer) ProcessRenderCommands(cmds []command.Command) (err error) {
	started := false
	begin := func() error {
		if started {
			return nil
		}
		if err := l.gpu.BeginFrame(); err != nil {
			return err
		}
		started = true
		return nil
	}
	defer func() {
		if !started {
			return
		}
		err = errors.Join(err, l.gpu.EndFrame())
		l.gpu.Present()
	}()

	cleared := false
	for _, cmd := range cmds {
		switch cmd.Kind() {
		case command.KindClear:
			c, _ := cmd.Clear()
			l.gpu.SetClearColor(c.Color)
			cleared = true
		case command.KindGpuState:
			g, _ := cmd.GpuState()
			switch g.State {
			case command.GpuStateBlend:
				l.gpu.SetBlend(g.Enabled)
			case command.GpuStateWireframe:
				l.gpu.SetWireframe(g.Enabled)
			}
		case command.KindSetDepthState:
			d, _ := cmd.DepthState()
			l.gpu.SetDepthState(d)
		case command.KindSetCullMode:
			c, _ := cmd.CullMode()
			l.gpu.SetCullMode(c.Mode)
		case command.KindUseShader:
			u, _ := cmd.UseShader()
			if err := l.gpu.UseShader(u.Shader); err != nil {
				return err
			}
		case command.KindSetUniforms:
			u, _ := cmd.Uniforms()
			if err := l.gpu.WriteUniforms(u.Shader, u.Slot, u.Data); err != nil {
				return err
			}
		case command.KindScissor:
			s, _ := cmd.Scissor()
			l.gpu.SetScissor(s)
		case command.KindDrawArray:
			d, _ := cmd.DrawArray()
			if err := begin(); err != nil {
				return err
			}
			if err := l.gpu.Draw(d); err != nil {
				return err
			}
		}
	}
	if cleared {
		return begin()
	}
	return nil
}
