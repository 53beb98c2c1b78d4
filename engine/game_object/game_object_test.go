package game_object

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-render/engine/command"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGameObjectDefaults(t *testing.T) {
	a := NewGameObject()
	b := NewGameObject()

	assert.NotZero(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
	assert.True(t, a.Visible())
	assert.Equal(t, LayerAll, a.Layers())
	assert.Nil(t, a.Sprite())
	assert.Nil(t, a.Text())
	assert.Nil(t, a.Mesh())
	assert.Nil(t, a.Parent())

	w, h := a.Size()
	assert.Equal(t, float32(1), w)
	assert.Equal(t, float32(1), h)
}

func TestGameObjectOptions(t *testing.T) {
	obj := NewGameObject(
		WithID(42),
		WithName("player"),
		WithOrder(3),
		WithVisible(false),
		WithLayers(LayerWorld|LayerDebug),
		WithPosition(10, 20),
		WithSize(8, 16),
		WithSprite(SpriteData{Texture: 5, Tint: command.Color{1, 1, 1, 1}}),
		WithText(TextData{Content: "hp"}),
	)

	assert.Equal(t, uint64(42), obj.ID())
	assert.Equal(t, "player", obj.Name())
	assert.Equal(t, 3, obj.Order())
	assert.False(t, obj.Visible())
	assert.True(t, obj.Layers().Has(LayerDebug))
	assert.False(t, obj.Layers().Has(LayerUI))

	x, y := obj.Position()
	assert.Equal(t, [2]float32{10, 20}, [2]float32{x, y})
	require.NotNil(t, obj.Sprite())
	assert.Equal(t, command.TextureHandle(5), obj.Sprite().Texture)
	require.NotNil(t, obj.Text())
	assert.Equal(t, "hp", obj.Text().Content)

	obj.SetMesh(&MeshData{Mesh: 9, VertexCount: 3})
	require.NotNil(t, obj.Mesh())
	obj.SetSprite(nil)
	assert.Nil(t, obj.Sprite())
}

func TestGameObjectChildren(t *testing.T) {
	child1 := NewGameObject(WithOrder(2))
	child2 := NewGameObject(WithOrder(1))
	parent := NewGameObject(WithChildren(child1, nil))

	require.NoError(t, parent.AddChild(child2))
	assert.Equal(t, parent, child1.Parent())
	assert.Equal(t, parent, child2.Parent())
	assert.Equal(t, []uint64{child2.ID(), child1.ID()}, ids(parent.Children().AppendTo(nil)))

	assert.ErrorIs(t, parent.AddChild(nil), ErrNilObject)

	assert.True(t, parent.RemoveChild(child1))
	assert.Nil(t, child1.Parent())
	assert.False(t, parent.RemoveChild(child1))
	assert.Equal(t, 1, parent.Children().Len())
}
