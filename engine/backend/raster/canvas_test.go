package raster

import (
	"image"
	"image/color"
	"testing"

	"github.com/Carmen-Shannon/oxy-render/engine/command"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/draw"
)

var (
	red   = color.RGBA{R: 255, A: 255}
	green = color.RGBA{G: 255, A: 255}
	blue  = color.RGBA{B: 255, A: 255}
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func TestCanvasClear(t *testing.T) {
	c := NewCanvas(WithSize(4, 4))
	c.Clear(command.Color{0, 0, 1, 1})

	assert.Equal(t, blue, c.At(0, 0))
	assert.Equal(t, blue, c.At(3, 3))
}

func TestCanvasDrawTextureUnscaled(t *testing.T) {
	c := NewCanvas(WithSize(4, 4))
	c.Clear(command.Color{0, 0, 1, 1})
	h := c.RegisterTexture(solid(2, 2, red))

	require.NoError(t, c.DrawTexture(h, command.Rect{X: 1, Y: 1, Width: 2, Height: 2}, command.Rect{}, command.Color{}))

	assert.Equal(t, blue, c.At(0, 0))
	assert.Equal(t, red, c.At(1, 1))
	assert.Equal(t, red, c.At(2, 2))
	assert.Equal(t, blue, c.At(3, 3))
}

func TestCanvasDrawTextureScaled(t *testing.T) {
	c := NewCanvas(WithSize(4, 4), WithScalerName("nearest"))
	h := c.RegisterTexture(solid(2, 2, red))

	require.NoError(t, c.DrawTexture(h, command.Rect{Width: 4, Height: 4}, command.Rect{}, command.Color{}))
	assert.Equal(t, red, c.At(0, 0))
	assert.Equal(t, red, c.At(3, 3))
}

func TestScalerByName(t *testing.T) {
	for _, name := range []string{"nearest", "approx-bilinear", "bilinear", "catmull-rom"} {
		assert.NotNil(t, ScalerByName(name), name)
	}
	assert.Nil(t, ScalerByName("lanczos"))
}

func TestCanvasDrawTextureSourceRect(t *testing.T) {
	tex := image.NewRGBA(image.Rect(0, 0, 2, 1))
	tex.SetRGBA(0, 0, red)
	tex.SetRGBA(1, 0, green)

	c := NewCanvas(WithSize(2, 2))
	h := c.RegisterTexture(tex)
	require.NoError(t, c.DrawTexture(h, command.Rect{Width: 1, Height: 1}, command.Rect{X: 1, Width: 1, Height: 1}, command.Color{}))

	assert.Equal(t, green, c.At(0, 0))
}

func TestCanvasDrawTextureTint(t *testing.T) {
	c := NewCanvas(WithSize(2, 2))
	h := c.RegisterTexture(solid(2, 2, white))

	require.NoError(t, c.DrawTexture(h, command.Rect{Width: 2, Height: 2}, command.Rect{}, command.Color{0, 1, 0, 1}))
	assert.Equal(t, green, c.At(1, 1))

	require.NoError(t, c.DrawTexture(h, command.Rect{Width: 2, Height: 2}, command.Rect{}, command.Color{1, 1, 1, 1}))
	assert.Equal(t, white, c.At(1, 1))
}

func TestCanvasUnknownTexture(t *testing.T) {
	c := NewCanvas()
	err := c.DrawTexture(42, command.Rect{Width: 1, Height: 1}, command.Rect{}, command.Color{})
	assert.ErrorIs(t, err, ErrUnknownTexture)

	h := c.RegisterTexture(solid(1, 1, red))
	assert.True(t, c.UnregisterTexture(h))
	assert.False(t, c.UnregisterTexture(h))
	assert.ErrorIs(t, c.DrawTexture(h, command.Rect{Width: 1, Height: 1}, command.Rect{}, command.Color{}), ErrUnknownTexture)
}

func TestCanvasEmptyDestinationIsNoop(t *testing.T) {
	c := NewCanvas(WithSize(2, 2))
	h := c.RegisterTexture(solid(1, 1, red))

	require.NoError(t, c.DrawTexture(h, command.Rect{Width: 0, Height: 1}, command.Rect{}, command.Color{}))
	assert.Equal(t, color.RGBA{}, c.At(0, 0))
}

func TestCanvasResizeKeepsOverlap(t *testing.T) {
	c := NewCanvas(WithSize(2, 2))
	c.Clear(command.Color{1, 0, 0, 1})
	c.Resize(4, 3)

	w, h := c.Size()
	assert.Equal(t, 4, w)
	assert.Equal(t, 3, h)
	assert.Equal(t, red, c.At(1, 1))
	assert.Equal(t, color.RGBA{}, c.At(3, 2))

	snap := c.Image()
	c.Clear(command.Color{0, 0, 1, 1})
	assert.Equal(t, red, snap.RGBAAt(0, 0))
}

func TestToNRGBA(t *testing.T) {
	assert.Equal(t, color.NRGBA{R: 255, G: 128, B: 0, A: 255}, ToNRGBA(command.Color{1, 0.5, 0, 1}))
	assert.Equal(t, color.NRGBA{R: 255, A: 0}, ToNRGBA(command.Color{2, -1, 0, 0}))
}
