package wgpu_backend

import (
	"github.com/Carmen-Shannon/oxy-render/engine/command"
	"github.com/cogentcore/webgpu/wgpu"
)

// pipelineKey identifies one render pipeline variant of a shader. WebGPU bakes depth, cull,
// blend and topology into the pipeline object, so every distinct combination needs its own.
type pipelineKey struct {
	shader    command.ShaderHandle
	depth     command.DepthStatePayload
	cull      command.CullMode
	blend     bool
	wireframe bool
}

// fixedState is the fixed-function state recorded by the Set* methods and applied at draw time.
type fixedState struct {
	depth     command.DepthStatePayload
	cull      command.CullMode
	blend     bool
	wireframe bool
	scissor   command.ScissorPayload
}

func defaultFixedState() fixedState {
	return fixedState{
		depth: command.DepthStatePayload{TestEnabled: true, WriteEnabled: true, Compare: command.CompareLess},
		cull:  command.CullBack,
	}
}

func (s fixedState) key(shader command.ShaderHandle) pipelineKey {
	depth := s.depth
	if !depth.TestEnabled {
		// With the test off only the write flag matters.
		depth.Compare = command.CompareAlways
	}
	return pipelineKey{shader: shader, depth: depth, cull: s.cull, blend: s.blend, wireframe: s.wireframe}
}

func compareFunction(c command.CompareFunc) wgpu.CompareFunction {
	switch c {
	case command.CompareLessEqual:
		return wgpu.CompareFunctionLessEqual
	case command.CompareGreater:
		return wgpu.CompareFunctionGreater
	case command.CompareEqual:
		return wgpu.CompareFunctionEqual
	case command.CompareAlways:
		return wgpu.CompareFunctionAlways
	}
	return wgpu.CompareFunctionLess
}

func cullMode(m command.CullMode) wgpu.CullMode {
	switch m {
	case command.CullBack:
		return wgpu.CullModeBack
	case command.CullFront:
		return wgpu.CullModeFront
	}
	return wgpu.CullModeNone
}

func clearColor(c command.Color) wgpu.Color {
	return wgpu.Color{R: float64(c[0]), G: float64(c[1]), B: float64(c[2]), A: float64(c[3])}
}

// depthStencilState maps a depth payload onto the attachment format the backend renders with.
func depthStencilState(d command.DepthStatePayload) *wgpu.DepthStencilState {
	compare := wgpu.CompareFunctionAlways
	if d.TestEnabled {
		compare = compareFunction(d.Compare)
	}
	return &wgpu.DepthStencilState{
		Format:            wgpu.TextureFormatDepth24Plus,
		DepthWriteEnabled: d.WriteEnabled,
		DepthCompare:      compare,
		StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
	}
}

func blendState(enabled bool) *wgpu.BlendState {
	if !enabled {
		return nil
	}
	return &wgpu.BlendState{
		Color: wgpu.BlendComponent{
			SrcFactor: wgpu.BlendFactorSrcAlpha,
			DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			Operation: wgpu.BlendOperationAdd,
		},
		Alpha: wgpu.BlendComponent{
			SrcFactor: wgpu.BlendFactorOne,
			DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			Operation: wgpu.BlendOperationAdd,
		},
	}
}

// topology draws wireframe as a line list, since core WebGPU has no polygon fill mode.
func topology(wireframe bool) wgpu.PrimitiveTopology {
	if wireframe {
		return wgpu.PrimitiveTopologyLineList
	}
	return wgpu.PrimitiveTopologyTriangleList
}

// clampScissor fits a scissor rectangle inside the target. Disabled scissors cover the target.
func clampScissor(s command.ScissorPayload, width, height uint32) (x, y, w, h uint32) {
	if !s.Enabled {
		return 0, 0, width, height
	}
	x = min(s.X, width)
	y = min(s.Y, height)
	w = min(s.Width, width-x)
	h = min(s.Height, height-y)
	return x, y, w, h
}

// uniformBufferSize rounds n up to the 16-byte alignment uniform buffers require.
func uniformBufferSize(n int) uint64 {
	return max(uint64(n+15)&^15, 16)
}
