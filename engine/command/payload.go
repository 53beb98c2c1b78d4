package command

// TextureHandle is an opaque texture identifier issued by a backend collaborator.
type TextureHandle uint64

// ShaderHandle is an opaque shader program identifier issued by a backend collaborator.
type ShaderHandle uint64

// MeshHandle is an opaque vertex buffer identifier issued by a backend collaborator.
type MeshHandle uint64

// Color is a linear RGBA color with components in [0, 1].
type Color [4]float32

// Rect is an axis-aligned rectangle in target pixels.
type Rect struct {
	X, Y, Width, Height float32
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Payload is the kind-specific data carried by a Command.
// The interface is sealed: only the payload types in this package implement it,
// so a Command can never pair a Kind with the wrong payload shape.
type Payload interface {
	kind() Kind
}

// ClearPayload clears the color target and optionally the depth target.
type ClearPayload struct {
	Color      Color
	ClearDepth bool
	Depth      float32
}

// WindowCommandKind selects which window property a Window command changes.
type WindowCommandKind uint8

const (
	// WindowSetTitle changes the window title.
	WindowSetTitle WindowCommandKind = iota
	// WindowSetSize requests a new client area size.
	WindowSetSize
	// WindowSetVSync toggles vertical sync on the presentation surface.
	WindowSetVSync

	windowCommandCount
)

// WindowPayload describes a window property change. Only the fields relevant to
// SubKind are meaningful.
type WindowPayload struct {
	SubKind WindowCommandKind
	Title   string
	Width   int
	Height  int
	VSync   bool
}

// DrawTextPayload draws Text with its top-left corner at (X, Y).
type DrawTextPayload struct {
	Text  string
	X, Y  float32
	Color Color
	Scale float32
}

// DrawTexturePayload draws Src of Texture into Dst. A zero Src means the whole texture.
type DrawTexturePayload struct {
	Texture TextureHandle
	Dst     Rect
	Src     Rect
	Tint    Color
}

// ImGuiPayload is an immediate-mode overlay panel made of text lines.
type ImGuiPayload struct {
	Title string
	X, Y  int
	Lines []string
}

// GpuState names a fixed-function state toggled by a GpuState command.
type GpuState uint8

const (
	// GpuStateBlend enables alpha blending.
	GpuStateBlend GpuState = iota
	// GpuStateWireframe draws line lists instead of filled triangles.
	GpuStateWireframe
)

// GpuStatePayload enables or disables a single GpuState.
type GpuStatePayload struct {
	State   GpuState
	Enabled bool
}

// CompareFunc is the depth comparison function.
type CompareFunc uint8

const (
	CompareLess CompareFunc = iota
	CompareLessEqual
	CompareGreater
	CompareEqual
	CompareAlways
)

// DepthStatePayload configures the depth test.
type DepthStatePayload struct {
	TestEnabled  bool
	WriteEnabled bool
	Compare      CompareFunc
}

// CullMode selects which triangle faces are discarded.
type CullMode uint8

const (
	CullNone CullMode = iota
	CullBack
	CullFront
)

// CullModePayload sets the face culling mode.
type CullModePayload struct {
	Mode CullMode
}

// UseShaderPayload binds Shader for subsequent draws.
type UseShaderPayload struct {
	Shader ShaderHandle
}

// UniformsPayload uploads Data into uniform slot Slot of Shader. Slots let many draws share a
// shader with their own uniforms after the frame has been reordered by kind.
type UniformsPayload struct {
	Shader ShaderHandle
	Slot   uint32
	Data   []byte
}

// ScissorPayload sets the scissor rectangle, or disables scissoring when Enabled is false.
type ScissorPayload struct {
	Enabled             bool
	X, Y, Width, Height uint32
}

// DrawArrayPayload draws VertexCount vertices of Mesh using the uniforms in Slot. A zero Shader
// draws with the currently bound shader.
type DrawArrayPayload struct {
	Mesh          MeshHandle
	Shader        ShaderHandle
	Slot          uint32
	VertexCount   uint32
	InstanceCount uint32
	FirstVertex   uint32
}

func (ClearPayload) kind() Kind       { return KindClear }
func (WindowPayload) kind() Kind      { return KindWindow }
func (DrawTextPayload) kind() Kind    { return KindDrawText }
func (DrawTexturePayload) kind() Kind { return KindDrawTexture }
func (ImGuiPayload) kind() Kind       { return KindImGui }
func (GpuStatePayload) kind() Kind    { return KindGpuState }
func (DepthStatePayload) kind() Kind  { return KindSetDepthState }
func (CullModePayload) kind() Kind    { return KindSetCullMode }
func (UseShaderPayload) kind() Kind   { return KindUseShader }
func (UniformsPayload) kind() Kind    { return KindSetUniforms }
func (ScissorPayload) kind() Kind     { return KindScissor }
func (DrawArrayPayload) kind() Kind   { return KindDrawArray }
