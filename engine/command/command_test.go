package command

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOrdinals(t *testing.T) {
	assert.Equal(t, 0, int(KindClear))
	assert.Equal(t, 2, int(KindDrawText))
	assert.Equal(t, 3, int(KindDrawTexture))
	assert.Equal(t, "DrawTexture", KindDrawTexture.String())
	assert.Equal(t, "Kind(200)", Kind(200).String())
	assert.Len(t, AllKinds(), int(kindCount))
}

func TestConstructorsPinKind(t *testing.T) {
	window, err := MakeWindowCommand(WindowSetTitle, WindowPayload{Title: "oxy"})
	require.NoError(t, err)

	cases := []struct {
		name string
		cmd  Command
		kind Kind
	}{
		{"clear", MakeClear(ClearPayload{}), KindClear},
		{"window", window, KindWindow},
		{"text", MakeDrawText(DrawTextPayload{Text: "hi"}), KindDrawText},
		{"texture", MakeDrawTexture(DrawTexturePayload{Texture: 7}), KindDrawTexture},
		{"imgui", MakeImGui(ImGuiPayload{Title: "hud"}), KindImGui},
		{"gpu state", MakeGpuState(GpuStatePayload{State: GpuStateBlend, Enabled: true}), KindGpuState},
		{"depth", MakeSetDepthState(DepthStatePayload{TestEnabled: true}), KindSetDepthState},
		{"cull", MakeSetCullMode(CullModePayload{Mode: CullBack}), KindSetCullMode},
		{"shader", MakeUseShader(UseShaderPayload{Shader: 3}), KindUseShader},
		{"uniforms", MakeSetUniforms(UniformsPayload{Shader: 3}), KindSetUniforms},
		{"scissor", MakeScissor(ScissorPayload{Enabled: true}), KindScissor},
		{"draw array", MakeDrawArray(DrawArrayPayload{Mesh: 1, VertexCount: 3}), KindDrawArray},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.kind, tc.cmd.Kind())
			assert.True(t, tc.cmd.Valid())
		})
	}
}

func TestTypedAccessorsCheckKind(t *testing.T) {
	cmd := MakeDrawTexture(DrawTexturePayload{Texture: 42, Dst: Rect{Width: 4, Height: 4}})

	p, ok := cmd.DrawTexture()
	require.True(t, ok)
	assert.Equal(t, TextureHandle(42), p.Texture)

	_, ok = cmd.Clear()
	assert.False(t, ok)
	_, ok = cmd.DrawText()
	assert.False(t, ok)
	assert.Equal(t, uint64(42), cmd.SortKey())
}

func TestZeroCommandIsInvalid(t *testing.T) {
	var cmd Command
	assert.False(t, cmd.Valid())
	_, ok := cmd.Clear()
	assert.False(t, ok)
	assert.Equal(t, "Command(invalid)", cmd.String())
}

func TestMakeWindowCommandRejectsUnknownSubKind(t *testing.T) {
	_, err := MakeWindowCommand(WindowCommandKind(99), WindowPayload{})
	assert.ErrorIs(t, err, ErrUnknownWindowCommand)

	cmd, err := MakeWindowCommand(WindowSetSize, WindowPayload{SubKind: WindowSetTitle, Width: 640, Height: 480})
	require.NoError(t, err)
	p, ok := cmd.Window()
	require.True(t, ok)
	assert.Equal(t, WindowSetSize, p.SubKind)
}

func TestNewDerivesKind(t *testing.T) {
	cmd, err := New(CullModePayload{Mode: CullFront})
	require.NoError(t, err)
	assert.Equal(t, KindSetCullMode, cmd.Kind())

	_, err = New(nil)
	assert.ErrorIs(t, err, ErrNilPayload)

	_, err = New(WindowPayload{SubKind: WindowCommandKind(42)})
	assert.ErrorIs(t, err, ErrUnknownWindowCommand)
}

func TestNewRejectsPointerPayloads(t *testing.T) {
	for _, p := range []Payload{
		&ClearPayload{Color: Color{1, 0, 0, 1}},
		&UniformsPayload{Data: []byte{1}},
		&DrawArrayPayload{VertexCount: 3},
		(*ClearPayload)(nil),
	} {
		cmd, err := New(p)
		assert.ErrorIs(t, err, ErrInvalidCommand, "%T", p)
		assert.False(t, cmd.Valid(), "%T", p)
	}

	forged := Command{kind: KindClear, payload: &ClearPayload{}}
	assert.False(t, forged.Valid())
	assert.Equal(t, "Command(invalid)", forged.String())
}

func TestNewNormalizesLikeConstructors(t *testing.T) {
	cmd, err := New(DrawArrayPayload{Mesh: 2, VertexCount: 3})
	require.NoError(t, err)
	d, ok := cmd.DrawArray()
	require.True(t, ok)
	assert.Equal(t, uint32(1), d.InstanceCount)

	data := []byte{4, 5}
	cmd, err = New(UniformsPayload{Shader: 1, Data: data})
	require.NoError(t, err)
	data[0] = 0
	u, ok := cmd.Uniforms()
	require.True(t, ok)
	assert.Equal(t, []byte{4, 5}, u.Data)

	for _, p := range []Payload{
		ClearPayload{}, DrawTextPayload{}, DrawTexturePayload{}, ImGuiPayload{}, GpuStatePayload{},
		DepthStatePayload{}, CullModePayload{}, UseShaderPayload{}, ScissorPayload{},
	} {
		cmd, err := New(p)
		require.NoError(t, err, "%T", p)
		assert.True(t, cmd.Valid(), "%T", p)
	}
}

func TestSliceDataIsCopied(t *testing.T) {
	data := []byte{1, 2, 3}
	cmd := MakeSetUniforms(UniformsPayload{Shader: 1, Data: data})
	data[0] = 9
	p, _ := cmd.Uniforms()
	assert.Equal(t, []byte{1, 2, 3}, p.Data)

	lines := []string{"a", "b"}
	overlay := MakeImGui(ImGuiPayload{Lines: lines})
	lines[1] = "z"
	ip, _ := overlay.ImGui()
	assert.Equal(t, []string{"a", "b"}, ip.Lines)
}

func TestCompareIsStableByKind(t *testing.T) {
	cmds := []Command{
		MakeDrawTexture(DrawTexturePayload{Texture: 1}),
		MakeClear(ClearPayload{}),
		MakeDrawTexture(DrawTexturePayload{Texture: 2}),
		MakeDrawText(DrawTextPayload{Text: "x"}),
	}
	slices.SortStableFunc(cmds, Compare)

	kinds := make([]Kind, len(cmds))
	for i, c := range cmds {
		kinds[i] = c.Kind()
	}
	assert.Equal(t, []Kind{KindClear, KindDrawText, KindDrawTexture, KindDrawTexture}, kinds)
	assert.Equal(t, uint64(1), cmds[2].SortKey())
	assert.Equal(t, uint64(2), cmds[3].SortKey())
}

func TestKindSet(t *testing.T) {
	s := NewKindSet(KindClear, KindDrawTexture, Kind(250))
	assert.True(t, s.Has(KindClear))
	assert.True(t, s.Has(KindDrawTexture))
	assert.False(t, s.Has(KindDrawText))
	assert.False(t, s.Has(Kind(250)))
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []Kind{KindClear, KindDrawTexture}, s.Kinds())

	var empty KindSet
	assert.Equal(t, 0, empty.Len())
	assert.True(t, empty.With(KindScissor).Has(KindScissor))
}
