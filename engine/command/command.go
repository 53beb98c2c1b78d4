// Package command defines the tagged render command model shared by the render pipeline
// and every render layer. A Command pairs a Kind with exactly one matching payload and is
// only constructible through the Make* functions in this package.
package command

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrInvalidCommand is returned when a zero or malformed Command is handed to the pipeline.
	ErrInvalidCommand = errors.New("invalid render command")

	// ErrUnknownWindowCommand is returned by MakeWindowCommand for an undeclared sub-kind.
	ErrUnknownWindowCommand = errors.New("unknown window command")

	// ErrNilPayload is returned by New when no payload is given.
	ErrNilPayload = errors.New("nil command payload")
)

// Command is one immutable unit of backend work or state change.
// The zero value is invalid and is rejected everywhere a Command is accepted.
type Command struct {
	kind    Kind
	payload Payload
}

// New builds a Command whose Kind is derived from the payload type. Only the payload value
// types declared in this package are accepted; pointers to them are rejected.
//
// Parameters:
//   - p: the payload, one of the payload types declared in this package
//
// Returns:
//   - Command: the command
//   - error: ErrNilPayload if p is nil, ErrInvalidCommand for any other payload type
func New(p Payload) (Command, error) {
	switch v := p.(type) {
	case nil:
		return Command{}, ErrNilPayload
	case ClearPayload:
		return MakeClear(v), nil
	case WindowPayload:
		return MakeWindowCommand(v.SubKind, v)
	case DrawTextPayload:
		return MakeDrawText(v), nil
	case DrawTexturePayload:
		return MakeDrawTexture(v), nil
	case ImGuiPayload:
		return MakeImGui(v), nil
	case GpuStatePayload:
		return MakeGpuState(v), nil
	case DepthStatePayload:
		return MakeSetDepthState(v), nil
	case CullModePayload:
		return MakeSetCullMode(v), nil
	case UseShaderPayload:
		return MakeUseShader(v), nil
	case UniformsPayload:
		return MakeSetUniforms(v), nil
	case ScissorPayload:
		return MakeScissor(v), nil
	case DrawArrayPayload:
		return MakeDrawArray(v), nil
	}
	return Command{}, fmt.Errorf("%w: unsupported payload type %T", ErrInvalidCommand, p)
}

// MakeClear builds a Clear command.
func MakeClear(p ClearPayload) Command {
	return Command{kind: KindClear, payload: p}
}

// MakeWindowCommand builds a Window command of the given sub-kind.
// The SubKind field of data is overwritten with subKind.
//
// Parameters:
//   - subKind: which window property to change
//   - data: the new property values
//
// Returns:
//   - Command: the command
//   - error: ErrUnknownWindowCommand if subKind is not declared
func MakeWindowCommand(subKind WindowCommandKind, data WindowPayload) (Command, error) {
	if subKind >= windowCommandCount {
		return Command{}, fmt.Errorf("%w: %d", ErrUnknownWindowCommand, subKind)
	}
	data.SubKind = subKind
	return Command{kind: KindWindow, payload: data}, nil
}

// MakeDrawText builds a DrawText command.
func MakeDrawText(p DrawTextPayload) Command {
	return Command{kind: KindDrawText, payload: p}
}

// MakeDrawTexture builds a DrawTexture command.
func MakeDrawTexture(p DrawTexturePayload) Command {
	return Command{kind: KindDrawTexture, payload: p}
}

// MakeImGui builds an ImGui overlay command. Lines are copied.
func MakeImGui(p ImGuiPayload) Command {
	p.Lines = slices.Clone(p.Lines)
	return Command{kind: KindImGui, payload: p}
}

// MakeGpuState builds a GpuState command.
func MakeGpuState(p GpuStatePayload) Command {
	return Command{kind: KindGpuState, payload: p}
}

// MakeSetDepthState builds a SetDepthState command.
func MakeSetDepthState(p DepthStatePayload) Command {
	return Command{kind: KindSetDepthState, payload: p}
}

// MakeSetCullMode builds a SetCullMode command.
func MakeSetCullMode(p CullModePayload) Command {
	return Command{kind: KindSetCullMode, payload: p}
}

// MakeUseShader builds a UseShader command.
func MakeUseShader(p UseShaderPayload) Command {
	return Command{kind: KindUseShader, payload: p}
}

// MakeSetUniforms builds a SetUniforms command. Data is copied.
func MakeSetUniforms(p UniformsPayload) Command {
	p.Data = slices.Clone(p.Data)
	return Command{kind: KindSetUniforms, payload: p}
}

// MakeScissor builds a Scissor command.
func MakeScissor(p ScissorPayload) Command {
	return Command{kind: KindScissor, payload: p}
}

// MakeDrawArray builds a DrawArray command. An InstanceCount of zero is treated as one.
func MakeDrawArray(p DrawArrayPayload) Command {
	if p.InstanceCount == 0 {
		p.InstanceCount = 1
	}
	return Command{kind: KindDrawArray, payload: p}
}

// Kind returns the command kind.
func (c Command) Kind() Kind {
	return c.kind
}

// Payload returns the raw payload. Callers should prefer the typed accessors.
func (c Command) Payload() Payload {
	return c.payload
}

// Valid reports whether the command was built by a constructor and its payload matches its kind.
func (c Command) Valid() bool {
	k, ok := payloadKind(c.payload)
	return ok && k == c.kind
}

// Clear returns the Clear payload if c is a Clear command.
func (c Command) Clear() (ClearPayload, bool) {
	return payloadAs[ClearPayload](c, KindClear)
}

// Window returns the Window payload if c is a Window command.
func (c Command) Window() (WindowPayload, bool) {
	return payloadAs[WindowPayload](c, KindWindow)
}

// DrawText returns the DrawText payload if c is a DrawText command.
func (c Command) DrawText() (DrawTextPayload, bool) {
	return payloadAs[DrawTextPayload](c, KindDrawText)
}

// DrawTexture returns the DrawTexture payload if c is a DrawTexture command.
func (c Command) DrawTexture() (DrawTexturePayload, bool) {
	return payloadAs[DrawTexturePayload](c, KindDrawTexture)
}

// ImGui returns the ImGui payload if c is an ImGui command.
func (c Command) ImGui() (ImGuiPayload, bool) {
	return payloadAs[ImGuiPayload](c, KindImGui)
}

// GpuState returns the GpuState payload if c is a GpuState command.
func (c Command) GpuState() (GpuStatePayload, bool) {
	return payloadAs[GpuStatePayload](c, KindGpuState)
}

// DepthState returns the SetDepthState payload if c is a SetDepthState command.
func (c Command) DepthState() (DepthStatePayload, bool) {
	return payloadAs[DepthStatePayload](c, KindSetDepthState)
}

// CullMode returns the SetCullMode payload if c is a SetCullMode command.
func (c Command) CullMode() (CullModePayload, bool) {
	return payloadAs[CullModePayload](c, KindSetCullMode)
}

// UseShader returns the UseShader payload if c is a UseShader command.
func (c Command) UseShader() (UseShaderPayload, bool) {
	return payloadAs[UseShaderPayload](c, KindUseShader)
}

// Uniforms returns the SetUniforms payload if c is a SetUniforms command.
func (c Command) Uniforms() (UniformsPayload, bool) {
	return payloadAs[UniformsPayload](c, KindSetUniforms)
}

// Scissor returns the Scissor payload if c is a Scissor command.
func (c Command) Scissor() (ScissorPayload, bool) {
	return payloadAs[ScissorPayload](c, KindScissor)
}

// DrawArray returns the DrawArray payload if c is a DrawArray command.
func (c Command) DrawArray() (DrawArrayPayload, bool) {
	return payloadAs[DrawArrayPayload](c, KindDrawArray)
}

// SortKey returns the backend handle a state-aware optimizer should group on:
// the texture for DrawTexture, the shader for UseShader/SetUniforms, the mesh for DrawArray.
// Commands without a handle return 0.
//
// Returns:
//   - uint64: the grouping key
func (c Command) SortKey() uint64 {
	switch p := c.payload.(type) {
	case DrawTexturePayload:
		return uint64(p.Texture)
	case UseShaderPayload:
		return uint64(p.Shader)
	case UniformsPayload:
		return uint64(p.Shader)
	case DrawArrayPayload:
		return uint64(p.Mesh)
	}
	return 0
}

func (c Command) String() string {
	if !c.Valid() {
		return "Command(invalid)"
	}
	return fmt.Sprintf("%s%+v", c.kind, c.payload)
}

// Compare orders commands solely by kind ordinal. Suitable for slices.SortStableFunc.
//
// Parameters:
//   - a: the first command
//   - b: the second command
//
// Returns:
//   - int: negative if a sorts before b, zero if they share a kind, positive otherwise
func Compare(a, b Command) int {
	return int(a.kind) - int(b.kind)
}

func payloadAs[T Payload](c Command, k Kind) (T, bool) {
	var zero T
	if c.kind != k {
		return zero, false
	}
	p, ok := c.payload.(T)
	if !ok {
		return zero, false
	}
	return p, true
}

// payloadKind reports the kind of a payload value. Pointers and nil report false.
func payloadKind(p Payload) (Kind, bool) {
	switch p.(type) {
	case ClearPayload, WindowPayload, DrawTextPayload, DrawTexturePayload, ImGuiPayload,
		GpuStatePayload, DepthStatePayload, CullModePayload, UseShaderPayload,
		UniformsPayload, ScissorPayload, DrawArrayPayload:
		return p.kind(), true
	}
	return 0, false
}
