package command

import "fmt"

// Kind identifies the type of work a Command describes.
// The ordinal value is significant: the baseline optimizer clusters commands by ascending Kind.
type Kind uint8

const (
	// KindClear clears the current render target.
	KindClear Kind = iota

	// KindWindow changes a property of the presentation window (title, size).
	KindWindow

	// KindDrawText draws a run of text.
	KindDrawText

	// KindDrawTexture draws a textured quad.
	KindDrawTexture

	// KindImGui draws an immediate-mode overlay panel.
	KindImGui

	// KindGpuState toggles a generic fixed-function GPU state such as blending.
	KindGpuState

	// KindSetDepthState sets depth test, depth write and compare function.
	KindSetDepthState

	// KindSetCullMode sets the face culling mode.
	KindSetCullMode

	// KindUseShader binds a shader program.
	KindUseShader

	// KindSetUniforms uploads uniform data for a shader.
	KindSetUniforms

	// KindScissor sets or disables the scissor rectangle.
	KindScissor

	// KindDrawArray issues a non-indexed draw of a registered mesh.
	KindDrawArray

	kindCount
)

var kindNames = [kindCount]string{
	KindClear:         "Clear",
	KindWindow:        "Window",
	KindDrawText:      "DrawText",
	KindDrawTexture:   "DrawTexture",
	KindImGui:         "ImGui",
	KindGpuState:      "GpuState",
	KindSetDepthState: "SetDepthState",
	KindSetCullMode:   "SetCullMode",
	KindUseShader:     "UseShader",
	KindSetUniforms:   "SetUniforms",
	KindScissor:       "Scissor",
	KindDrawArray:     "DrawArray",
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	return k < kindCount
}

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
	return kindNames[k]
}

// AllKinds returns every declared kind in ordinal order.
//
// Returns:
//   - []Kind: all kinds from KindClear to KindDrawArray
func AllKinds() []Kind {
	kinds := make([]Kind, 0, kindCount)
	for k := Kind(0); k < kindCount; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// KindSet is a fixed-size set of Kinds. The zero value is the empty set.
type KindSet uint64

// NewKindSet builds a set containing the given kinds. Invalid kinds are ignored.
//
// Parameters:
//   - kinds: the kinds to include
//
// Returns:
//   - KindSet: the resulting set
func NewKindSet(kinds ...Kind) KindSet {
	var s KindSet
	for _, k := range kinds {
		s = s.With(k)
	}
	return s
}

// Has reports whether k is in the set.
func (s KindSet) Has(k Kind) bool {
	return k.Valid() && s&(1<<k) != 0
}

// With returns a copy of the set with k added.
func (s KindSet) With(k Kind) KindSet {
	if !k.Valid() {
		return s
	}
	return s | 1<<k
}

// Len returns the number of kinds in the set.
func (s KindSet) Len() int {
	n := 0
	for k := Kind(0); k < kindCount; k++ {
		if s.Has(k) {
			n++
		}
	}
	return n
}

// Kinds returns the members of the set in ordinal order.
func (s KindSet) Kinds() []Kind {
	kinds := make([]Kind, 0, s.Len())
	for k := Kind(0); k < kindCount; k++ {
		if s.Has(k) {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

func (s KindSet) String() string {
	return fmt.Sprint(s.Kinds())
}
