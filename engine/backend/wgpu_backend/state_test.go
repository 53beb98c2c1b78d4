package wgpu_backend

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-render/engine/command"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
)

func TestFixedStateKeyCollapsesDisabledDepthCompare(t *testing.T) {
	a := defaultFixedState()
	a.depth = command.DepthStatePayload{TestEnabled: false, Compare: command.CompareLess}
	b := a
	b.depth.Compare = command.CompareGreater

	assert.Equal(t, a.key(1), b.key(1))
	assert.NotEqual(t, a.key(1), a.key(2))

	b.blend = true
	assert.NotEqual(t, a.key(1), b.key(1))
}

func TestFixedStateKeyIgnoresScissor(t *testing.T) {
	a := defaultFixedState()
	b := a
	b.scissor = command.ScissorPayload{Enabled: true, Width: 10, Height: 10}
	assert.Equal(t, a.key(1), b.key(1))
}

func TestCompareAndCullMapping(t *testing.T) {
	assert.Equal(t, wgpu.CompareFunctionLess, compareFunction(command.CompareLess))
	assert.Equal(t, wgpu.CompareFunctionLessEqual, compareFunction(command.CompareLessEqual))
	assert.Equal(t, wgpu.CompareFunctionGreater, compareFunction(command.CompareGreater))
	assert.Equal(t, wgpu.CompareFunctionEqual, compareFunction(command.CompareEqual))
	assert.Equal(t, wgpu.CompareFunctionAlways, compareFunction(command.CompareAlways))

	assert.Equal(t, wgpu.CullModeNone, cullMode(command.CullNone))
	assert.Equal(t, wgpu.CullModeBack, cullMode(command.CullBack))
	assert.Equal(t, wgpu.CullModeFront, cullMode(command.CullFront))
}

func TestDepthStencilState(t *testing.T) {
	off := depthStencilState(command.DepthStatePayload{TestEnabled: false, Compare: command.CompareLess})
	assert.Equal(t, wgpu.CompareFunctionAlways, off.DepthCompare)
	assert.False(t, off.DepthWriteEnabled)

	on := depthStencilState(command.DepthStatePayload{TestEnabled: true, WriteEnabled: true, Compare: command.CompareLessEqual})
	assert.Equal(t, wgpu.CompareFunctionLessEqual, on.DepthCompare)
	assert.True(t, on.DepthWriteEnabled)
	assert.Equal(t, wgpu.TextureFormatDepth24Plus, on.Format)
}

func TestBlendAndTopology(t *testing.T) {
	assert.Nil(t, blendState(false))
	bs := blendState(true)
	if assert.NotNil(t, bs) {
		assert.Equal(t, wgpu.BlendFactorSrcAlpha, bs.Color.SrcFactor)
	}
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleList, topology(false))
	assert.Equal(t, wgpu.PrimitiveTopologyLineList, topology(true))
}

func TestClampScissor(t *testing.T) {
	x, y, w, h := clampScissor(command.ScissorPayload{}, 800, 600)
	assert.Equal(t, [4]uint32{0, 0, 800, 600}, [4]uint32{x, y, w, h})

	x, y, w, h = clampScissor(command.ScissorPayload{Enabled: true, X: 700, Y: 10, Width: 300, Height: 50}, 800, 600)
	assert.Equal(t, [4]uint32{700, 10, 100, 50}, [4]uint32{x, y, w, h})

	x, y, w, h = clampScissor(command.ScissorPayload{Enabled: true, X: 900, Y: 900, Width: 5, Height: 5}, 800, 600)
	assert.Equal(t, [4]uint32{800, 600, 0, 0}, [4]uint32{x, y, w, h})
}

func TestUniformBufferSize(t *testing.T) {
	assert.Equal(t, uint64(16), uniformBufferSize(0))
	assert.Equal(t, uint64(16), uniformBufferSize(12))
	assert.Equal(t, uint64(32), uniformBufferSize(17))
	assert.Equal(t, uint64(64), uniformBufferSize(64))
}

func TestPresentMode(t *testing.T) {
	assert.Equal(t, wgpu.PresentModeFifo, presentMode(true))
	assert.Equal(t, wgpu.PresentModeImmediate, presentMode(false))
}
