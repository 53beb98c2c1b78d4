package layer_test

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-render/engine/layer"
	"github.com/Carmen-Shannon/oxy-render/engine/layer/layertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func factory(name string, p layer.Priority) layer.Factory {
	return func() (layer.Layer, error) {
		return layertest.New(name, p), nil
	}
}

func TestRegistryKeepsRegistrationOrder(t *testing.T) {
	r := layer.NewRegistry()
	require.NoError(t, r.Register("text", factory("text", layer.PriorityText)))
	require.NoError(t, r.Register("bg", factory("bg", layer.PriorityBackground)))

	entries := r.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "text", entries[0].Type)
	assert.Equal(t, "bg", entries[1].Type)

	reg, ok := r.Lookup("bg")
	require.True(t, ok)
	l, err := reg.Factory()
	require.NoError(t, err)
	assert.Equal(t, "bg", l.Name())

	_, ok = r.Lookup("missing")
	assert.False(t, ok)
}

func TestRegistryRejectsBadRegistrations(t *testing.T) {
	r := layer.NewRegistry()
	assert.ErrorIs(t, r.Register("", factory("x", layer.PriorityUI)), layer.ErrInvalidRegistration)
	assert.ErrorIs(t, r.Register("x", nil), layer.ErrInvalidRegistration)

	require.NoError(t, r.Register("x", factory("x", layer.PriorityUI)))
	assert.ErrorIs(t, r.Register("x", factory("x", layer.PriorityUI)), layer.ErrDuplicateRegistration)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryResolve(t *testing.T) {
	r := layer.NewRegistry()
	require.NoError(t, r.Register("a", factory("a", layer.PriorityOpaque)))
	require.NoError(t, r.Register("b", factory("b", layer.PriorityText)))

	regs, err := r.Resolve("b", "a")
	require.NoError(t, err)
	assert.Equal(t, "b", regs[0].Type)
	assert.Equal(t, "a", regs[1].Type)

	all, err := r.Resolve()
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = r.Resolve("a", "ghost")
	assert.ErrorIs(t, err, layer.ErrUnknownLayerType)
	assert.Contains(t, err.Error(), "ghost")
}
