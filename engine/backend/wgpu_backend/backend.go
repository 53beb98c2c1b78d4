// Package wgpu_backend executes mesh render commands on a WebGPU surface.
package wgpu_backend

import (
	"errors"
	"fmt"
	"log"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-render/engine/command"
	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// ErrUnknownShader is returned for a shader handle that was never registered.
	ErrUnknownShader = errors.New("unknown shader handle")

	// ErrUnknownMesh is returned for a mesh handle that was never registered.
	ErrUnknownMesh = errors.New("unknown mesh handle")

	// ErrNoShaderBound is returned by Draw when neither the payload nor UseShader names a shader.
	ErrNoShaderBound = errors.New("no shader bound")

	// ErrFrameInProgress is returned by BeginFrame while the previous frame is still held.
	ErrFrameInProgress = errors.New("previous frame surface not yet presented")

	// ErrNoFrame is returned by Draw and EndFrame outside BeginFrame/EndFrame.
	ErrNoFrame = errors.New("no frame in progress")

	// ErrNoUniforms is returned by WriteUniforms for a shader without a uniform binding.
	ErrNoUniforms = errors.New("shader declares no uniforms")
)

type shaderEntry struct {
	label          string
	module         *wgpu.ShaderModule
	reflection     shaderReflection
	bindLayout     *wgpu.BindGroupLayout
	pipelineLayout *wgpu.PipelineLayout

	// slots holds one uniform buffer and bind group per uniform slot.
	slots map[uint32]*uniformSlot
}

type uniformSlot struct {
	buffer    *wgpu.Buffer
	size      uint64
	bindGroup *wgpu.BindGroup
}

type meshEntry struct {
	buffer *wgpu.Buffer
	size   uint64
	stride uint32
}

// Backend owns the WebGPU device and surface and turns mesh commands into render passes.
// It draws into a single render pass per frame: BeginFrame, any number of Draw calls, EndFrame,
// then Present.
type Backend struct {
	mu sync.Mutex

	label         string
	forceFallback bool
	presentMode   wgpu.PresentMode

	instance      *wgpu.Instance
	adapter       *wgpu.Adapter
	surface       *wgpu.Surface
	device        *wgpu.Device
	queue         *wgpu.Queue
	surfaceFormat wgpu.TextureFormat

	width            uint32
	height           uint32
	pendingWidth     int
	pendingHeight    int
	depthTexture     *wgpu.Texture
	depthTextureView *wgpu.TextureView

	clear   command.Color
	state   fixedState
	current command.ShaderHandle

	nextShader command.ShaderHandle
	nextMesh   command.MeshHandle
	shaders    map[command.ShaderHandle]*shaderEntry
	meshes     map[command.MeshHandle]*meshEntry
	pipelines  map[pipelineKey]*wgpu.RenderPipeline

	frameEncoder *wgpu.CommandEncoder
	framePass    *wgpu.RenderPassEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
}

// NewBackend acquires an adapter and device compatible with the given surface and configures the
// surface at width x height. GPU setup failures panic, since nothing can render without a device.
//
// Parameters:
//   - surfaceDescriptor: the platform surface, usually from window.Window.SurfaceDescriptor
//   - width: initial surface width in pixels
//   - height: initial surface height in pixels
//   - options: functional options to configure the backend
//
// Returns:
//   - *Backend: the configured backend
func NewBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, width, height int, options ...BackendBuilderOption) *Backend {
	runtime.LockOSThread()
	b := &Backend{
		label:       "oxy-render",
		presentMode: wgpu.PresentModeFifo,
		state:       defaultFixedState(),
		shaders:     make(map[command.ShaderHandle]*shaderEntry),
		meshes:      make(map[command.MeshHandle]*meshEntry),
		pipelines:   make(map[pipelineKey]*wgpu.RenderPipeline),
	}
	for _, opt := range options {
		opt(b)
	}

	b.instance = wgpu.CreateInstance(nil)
	b.surface = b.instance.CreateSurface(surfaceDescriptor)

	a, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: b.forceFallback,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		panic(err)
	}
	b.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: b.label + " Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		panic(err)
	}
	b.device = d
	b.queue = d.GetQueue()

	if err := b.Resize(width, height); err != nil {
		panic(err)
	}
	return b
}

// Resize reconfigures the surface and recreates the depth attachment. While a frame is held the
// new size is applied after Present.
//
// Parameters:
//   - width: new surface width in pixels
//   - height: new surface height in pixels
//
// Returns:
//   - error: an error if the depth texture could not be created
func (b *Backend) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface != nil {
		b.pendingWidth, b.pendingHeight = width, height
		return nil
	}
	return b.resizeLocked(width, height)
}

func (b *Backend) resizeLocked(width, height int) error {
	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = capabilities.Formats[0]
	b.width = uint32(width)
	b.height = uint32(height)

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       b.width,
		Height:      b.height,
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})

	if b.depthTextureView != nil {
		b.depthTextureView.Release()
		b.depthTexture.Release()
		b.depthTextureView = nil
		b.depthTexture = nil
	}
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: b.label + " Depth Texture",
		Size: wgpu.Extent3D{
			Width:              b.width,
			Height:             b.height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth24Plus,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return err
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return err
	}
	b.depthTexture = tex
	b.depthTextureView = view
	return nil
}

// SetVSync switches between FIFO and immediate presentation and reconfigures the surface.
func (b *Backend) SetVSync(enabled bool) error {
	b.mu.Lock()
	b.presentMode = presentMode(enabled)
	w, h := b.width, b.height
	b.mu.Unlock()
	return b.Resize(int(w), int(h))
}

// RegisterShader compiles WGSL source and reflects its entry points, vertex layout and uniform
// binding.
//
// Parameters:
//   - label: a debug label
//   - source: WGSL with one @vertex and one @fragment function and at most one uniform buffer
//     at @group(0) @binding(0)
//
// Returns:
//   - command.ShaderHandle: the non-zero handle to use in UseShader and DrawArray commands
//   - error: a reflection or compilation error
func (b *Backend) RegisterShader(label, source string) (command.ShaderHandle, error) {
	reflection, err := reflectShader(source)
	if err != nil {
		return 0, fmt.Errorf("shader %q: %w", label, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	module, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: source},
	})
	if err != nil {
		return 0, fmt.Errorf("shader %q: %w", label, err)
	}

	entry := &shaderEntry{
		label:      label,
		module:     module,
		reflection: reflection,
		slots:      make(map[uint32]*uniformSlot),
	}

	var bindLayouts []*wgpu.BindGroupLayout
	if reflection.uniforms {
		entry.bindLayout, err = b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
			Label: label + " Uniform Layout",
			Entries: []wgpu.BindGroupLayoutEntry{{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform},
			}},
		})
		if err != nil {
			module.Release()
			return 0, fmt.Errorf("shader %q: %w", label, err)
		}
		bindLayouts = append(bindLayouts, entry.bindLayout)
	}

	entry.pipelineLayout, err = b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            label + " Pipeline Layout",
		BindGroupLayouts: bindLayouts,
	})
	if err != nil {
		module.Release()
		return 0, fmt.Errorf("shader %q: %w", label, err)
	}

	b.nextShader++
	b.shaders[b.nextShader] = entry
	return b.nextShader, nil
}

// RegisterMesh uploads interleaved vertex data into a GPU vertex buffer.
//
// Parameters:
//   - label: a debug label
//   - vertices: the packed vertex bytes
//   - stride: bytes per vertex, used by VertexCount
//
// Returns:
//   - command.MeshHandle: the non-zero handle to use in DrawArray commands
//   - error: an error if the buffer could not be created
func (b *Backend) RegisterMesh(label string, vertices []byte, stride uint32) (command.MeshHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	size := uint64(len(vertices)+3) &^ 3
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            label + " Vertex Buffer",
		Size:             max(size, 4),
		Usage:            wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
		MappedAtCreation: false,
	})
	if err != nil {
		return 0, fmt.Errorf("mesh %q: %w", label, err)
	}
	if len(vertices) > 0 {
		padded := make([]byte, size)
		copy(padded, vertices)
		b.queue.WriteBuffer(buf, 0, padded)
	}

	b.nextMesh++
	b.meshes[b.nextMesh] = &meshEntry{buffer: buf, size: size, stride: stride}
	return b.nextMesh, nil
}

// VertexCount returns how many whole vertices the mesh holds.
func (b *Backend) VertexCount(h command.MeshHandle) (uint32, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.meshes[h]
	if !ok || m.stride == 0 {
		return 0, ok
	}
	return uint32(m.size / uint64(m.stride)), true
}

// SetClearColor sets the color the next BeginFrame clears to.
func (b *Backend) SetClearColor(c command.Color) {
	b.mu.Lock()
	b.clear = c
	b.mu.Unlock()
}

// SetDepthState sets the depth test used by subsequent draws.
func (b *Backend) SetDepthState(d command.DepthStatePayload) {
	b.mu.Lock()
	b.state.depth = d
	b.mu.Unlock()
}

// SetCullMode sets face culling for subsequent draws.
func (b *Backend) SetCullMode(m command.CullMode) {
	b.mu.Lock()
	b.state.cull = m
	b.mu.Unlock()
}

// SetBlend toggles alpha blending for subsequent draws.
func (b *Backend) SetBlend(enabled bool) {
	b.mu.Lock()
	b.state.blend = enabled
	b.mu.Unlock()
}

// SetWireframe toggles line-list rendering for subsequent draws.
func (b *Backend) SetWireframe(enabled bool) {
	b.mu.Lock()
	b.state.wireframe = enabled
	b.mu.Unlock()
}

// SetScissor sets or disables the scissor rectangle for subsequent draws.
func (b *Backend) SetScissor(s command.ScissorPayload) {
	b.mu.Lock()
	b.state.scissor = s
	b.mu.Unlock()
}

// UseShader makes h the shader for draws that do not name one.
//
// Returns:
//   - error: ErrUnknownShader if h is not registered
func (b *Backend) UseShader(h command.ShaderHandle) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.shaders[h]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownShader, h)
	}
	b.current = h
	return nil
}

// WriteUniforms uploads data into the given uniform slot of a shader, creating or growing the
// slot's buffer on demand.
//
// Parameters:
//   - h: the shader, or 0 for the bound shader
//   - slot: the uniform slot a DrawArray will reference
//   - data: the uniform bytes
//
// Returns:
//   - error: ErrUnknownShader, ErrNoUniforms, or a buffer creation error
func (b *Backend) WriteUniforms(h command.ShaderHandle, slot uint32, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if h == 0 {
		h = b.current
	}
	sh, ok := b.shaders[h]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownShader, h)
	}
	if !sh.reflection.uniforms {
		return fmt.Errorf("%w: %s", ErrNoUniforms, sh.label)
	}

	size := uniformBufferSize(len(data))
	us, ok := sh.slots[slot]
	if !ok || us.size < size {
		if ok {
			us.bindGroup.Release()
			us.buffer.Release()
		}
		var err error
		us, err = b.createUniformSlot(sh, slot, size)
		if err != nil {
			return err
		}
		sh.slots[slot] = us
	}

	padded := make([]byte, size)
	copy(padded, data)
	b.queue.WriteBuffer(us.buffer, 0, padded)
	return nil
}

func (b *Backend) createUniformSlot(sh *shaderEntry, slot uint32, size uint64) (*uniformSlot, error) {
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: fmt.Sprintf("%s Uniforms %d", sh.label, slot),
		Size:  size,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	bg, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  fmt.Sprintf("%s Bind Group %d", sh.label, slot),
		Layout: sh.bindLayout,
		Entries: []wgpu.BindGroupEntry{{
			Binding: 0,
			Buffer:  buf,
			Offset:  0,
			Size:    wgpu.WholeSize,
		}},
	})
	if err != nil {
		buf.Release()
		return nil, err
	}
	return &uniformSlot{buffer: buf, size: size, bindGroup: bg}, nil
}

// BeginFrame acquires the next surface texture and opens the frame's render pass, clearing color
// and depth.
//
// Returns:
//   - error: ErrFrameInProgress if the previous frame was not presented, or a surface error
func (b *Backend) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface != nil {
		return ErrFrameInProgress
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}
	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return err
	}

	b.framePass = encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: clearColor(b.clear),
		}},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            b.depthTextureView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		},
	})
	b.frameEncoder = encoder
	b.frameSurface = surfaceTexture
	b.frameView = view
	return nil
}

// Draw records a non-indexed draw with the current fixed-function state.
//
// Parameters:
//   - p: the draw; a zero Shader uses the shader bound by UseShader
//
// Returns:
//   - error: ErrNoFrame, ErrNoShaderBound, ErrUnknownShader, ErrUnknownMesh, or a pipeline error
func (b *Backend) Draw(p command.DrawArrayPayload) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return ErrNoFrame
	}
	h := p.Shader
	if h == 0 {
		h = b.current
	}
	if h == 0 {
		return ErrNoShaderBound
	}
	sh, ok := b.shaders[h]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownShader, h)
	}
	mesh, ok := b.meshes[p.Mesh]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownMesh, p.Mesh)
	}

	pipeline, err := b.pipelineLocked(h, sh)
	if err != nil {
		return err
	}
	b.framePass.SetPipeline(pipeline)

	if sh.reflection.uniforms {
		us, ok := sh.slots[p.Slot]
		if !ok {
			// Nothing was written to this slot yet; draw with zeroed uniforms.
			us, err = b.createUniformSlot(sh, p.Slot, 16)
			if err != nil {
				return err
			}
			sh.slots[p.Slot] = us
		}
		b.framePass.SetBindGroup(0, us.bindGroup, nil)
	}

	x, y, w, hgt := clampScissor(b.state.scissor, b.width, b.height)
	b.framePass.SetScissorRect(x, y, w, hgt)

	if sh.reflection.vertexLayout != nil {
		b.framePass.SetVertexBuffer(0, mesh.buffer, 0, wgpu.WholeSize)
	}
	b.framePass.Draw(p.VertexCount, max(p.InstanceCount, 1), p.FirstVertex, 0)
	return nil
}

// pipelineLocked returns the cached pipeline variant for the shader and current state.
func (b *Backend) pipelineLocked(h command.ShaderHandle, sh *shaderEntry) (*wgpu.RenderPipeline, error) {
	key := b.state.key(h)
	if p, ok := b.pipelines[key]; ok {
		return p, nil
	}

	var buffers []wgpu.VertexBufferLayout
	if sh.reflection.vertexLayout != nil {
		buffers = []wgpu.VertexBufferLayout{*sh.reflection.vertexLayout}
	}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  sh.label + " Pipeline",
		Layout: sh.pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     sh.module,
			EntryPoint: sh.reflection.vertexEntry,
			Buffers:    buffers,
		},
		Fragment: &wgpu.FragmentState{
			Module:     sh.module,
			EntryPoint: sh.reflection.fragmentEntry,
			Targets: []wgpu.ColorTargetState{{
				Format:    b.surfaceFormat,
				Blend:     blendState(key.blend),
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  topology(key.wireframe),
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  cullMode(key.cull),
		},
		DepthStencil: depthStencilState(key.depth),
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline for shader %q: %w", sh.label, err)
	}
	b.pipelines[key] = created
	return created, nil
}

// EndFrame closes the render pass and submits the frame's commands.
//
// Returns:
//   - error: ErrNoFrame, or the encoder error; the frame is released either way
func (b *Backend) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return ErrNoFrame
	}
	b.framePass.End()
	b.framePass = nil

	commandBuffer, err := b.frameEncoder.Finish(nil)
	if err != nil {
		b.frameEncoder.Release()
		b.frameView.Release()
		b.frameSurface.Release()
		b.frameEncoder = nil
		b.frameSurface = nil
		b.frameView = nil
		return err
	}

	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	b.frameEncoder.Release()
	b.frameEncoder = nil
	return nil
}

// Present shows the submitted frame and releases the surface texture. It is a no-op when no
// frame is held.
func (b *Backend) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface == nil {
		return
	}
	b.surface.Present()

	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	b.frameSurface.Release()
	b.frameSurface = nil

	if b.pendingWidth > 0 && b.pendingHeight > 0 {
		w, h := b.pendingWidth, b.pendingHeight
		b.pendingWidth, b.pendingHeight = 0, 0
		if err := b.resizeLocked(w, h); err != nil {
			log.Printf("[Backend] deferred resize to %dx%d failed: %v", w, h, err)
		}
	}
}

// Release frees every GPU object the backend created.
func (b *Backend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for k, p := range b.pipelines {
		p.Release()
		delete(b.pipelines, k)
	}
	for h, sh := range b.shaders {
		for _, us := range sh.slots {
			us.bindGroup.Release()
			us.buffer.Release()
		}
		sh.pipelineLayout.Release()
		if sh.bindLayout != nil {
			sh.bindLayout.Release()
		}
		sh.module.Release()
		delete(b.shaders, h)
	}
	for h, m := range b.meshes {
		m.buffer.Release()
		delete(b.meshes, h)
	}
	if b.depthTextureView != nil {
		b.depthTextureView.Release()
		b.depthTexture.Release()
	}
	b.queue.Release()
	b.device.Release()
	b.adapter.Release()
	b.surface.Release()
	b.instance.Release()
}

func presentMode(vsync bool) wgpu.PresentMode {
	if vsync {
		return wgpu.PresentModeFifo
	}
	return wgpu.PresentModeImmediate
}
