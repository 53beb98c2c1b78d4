// Package raster is a software render target: an RGBA framebuffer with a texture table that
// sprite layers blit into.
package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/Carmen-Shannon/oxy-render/engine/command"
	"golang.org/x/image/draw"
)

// ErrUnknownTexture is returned when drawing a handle that was never registered or was released.
var ErrUnknownTexture = errors.New("unknown texture handle")

type tintKey struct {
	texture command.TextureHandle
	tint    command.Color
}

// Canvas is an RGBA framebuffer plus the textures that may be drawn onto it.
// All methods are safe for concurrent use.
type Canvas struct {
	mu sync.Mutex

	width  int
	height int
	target *image.RGBA
	scaler draw.Scaler

	nextHandle command.TextureHandle
	textures   map[command.TextureHandle]image.Image

	// tinted caches tinted copies of textures, keyed by texture and tint.
	tinted map[tintKey]*image.RGBA
}

// NewCanvas creates a Canvas. Defaults to 320x240 with nearest-neighbour scaling.
//
// Parameters:
//   - options: functional options to configure the canvas
//
// Returns:
//   - *Canvas: the canvas, cleared to transparent black
func NewCanvas(options ...CanvasBuilderOption) *Canvas {
	c := &Canvas{
		width:    320,
		height:   240,
		scaler:   draw.NearestNeighbor,
		textures: make(map[command.TextureHandle]image.Image),
		tinted:   make(map[tintKey]*image.RGBA),
	}
	for _, opt := range options {
		opt(c)
	}
	c.target = image.NewRGBA(image.Rect(0, 0, c.width, c.height))
	return c
}

// RegisterTexture adds img to the texture table.
//
// Parameters:
//   - img: the texture pixels; the canvas keeps a reference, so img must not be mutated afterwards
//
// Returns:
//   - command.TextureHandle: the non-zero handle to use in DrawTexture commands
func (c *Canvas) RegisterTexture(img image.Image) command.TextureHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextHandle++
	c.textures[c.nextHandle] = img
	return c.nextHandle
}

// UnregisterTexture releases a texture and its tinted copies.
//
// Returns:
//   - bool: true if h was registered
func (c *Canvas) UnregisterTexture(h command.TextureHandle) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.textures[h]; !ok {
		return false
	}
	delete(c.textures, h)
	for k := range c.tinted {
		if k.texture == h {
			delete(c.tinted, k)
		}
	}
	return true
}

// Texture returns the image registered under h.
func (c *Canvas) Texture(h command.TextureHandle) (image.Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	img, ok := c.textures[h]
	return img, ok
}

// Clear fills the whole framebuffer with col, replacing what was there.
func (c *Canvas) Clear(col command.Color) {
	c.mu.Lock()
	defer c.mu.Unlock()
	draw.Draw(c.target, c.target.Bounds(), image.NewUniform(ToNRGBA(col)), image.Point{}, draw.Src)
}

// DrawTexture composites the src rectangle of texture h over the dst rectangle of the
// framebuffer, scaling when the sizes differ.
//
// Parameters:
//   - h: the texture handle
//   - dst: destination rectangle in framebuffer pixels
//   - src: source rectangle in texture pixels, or a zero Rect for the whole texture
//   - tint: multiplied into every texel; the zero Color means no tint
//
// Returns:
//   - error: ErrUnknownTexture if h is not registered
func (c *Canvas) DrawTexture(h command.TextureHandle, dst, src command.Rect, tint command.Color) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tex, ok := c.textures[h]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownTexture, h)
	}
	if dst.Empty() {
		return nil
	}

	bounds := tex.Bounds()
	srcRect := bounds
	if src != (command.Rect{}) {
		srcRect = toImageRect(src).Add(bounds.Min).Intersect(bounds)
	}
	if srcRect.Empty() {
		return nil
	}

	var img image.Image = tex
	if !isNeutralTint(tint) {
		img = c.tintedLocked(h, tex, tint)
	}

	dstRect := toImageRect(dst)
	if dstRect.Dx() == srcRect.Dx() && dstRect.Dy() == srcRect.Dy() {
		draw.Draw(c.target, dstRect, img, srcRect.Min, draw.Over)
		return nil
	}
	c.scaler.Scale(c.target, dstRect, img, srcRect, draw.Over, nil)
	return nil
}

// Resize reallocates the framebuffer, keeping the overlapping top-left region.
func (c *Canvas) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if width == c.width && height == c.height {
		return
	}
	next := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(next, next.Bounds(), c.target, image.Point{}, draw.Src)
	c.target = next
	c.width = width
	c.height = height
}

// Size returns the framebuffer size in pixels.
func (c *Canvas) Size() (width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.width, c.height
}

// Image returns a copy of the framebuffer.
//
// Returns:
//   - *image.RGBA: a snapshot safe to keep after later draws
func (c *Canvas) Image() *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := image.NewRGBA(c.target.Bounds())
	copy(out.Pix, c.target.Pix)
	return out
}

// At returns the framebuffer pixel at (x, y).
func (c *Canvas) At(x, y int) color.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target.RGBAAt(x, y)
}

func (c *Canvas) tintedLocked(h command.TextureHandle, tex image.Image, tint command.Color) *image.RGBA {
	key := tintKey{texture: h, tint: tint}
	if img, ok := c.tinted[key]; ok {
		return img
	}
	b := tex.Bounds()
	img := image.NewRGBA(b)
	draw.Draw(img, b, tex, b.Min, draw.Src)
	// Pixels are alpha-premultiplied, so colour channels also scale by the tint alpha.
	a := clamp01(tint[3])
	scale := [4]float32{clamp01(tint[0]) * a, clamp01(tint[1]) * a, clamp01(tint[2]) * a, a}
	for i := 0; i < len(img.Pix); i += 4 {
		for ch, s := range scale {
			img.Pix[i+ch] = uint8(float32(img.Pix[i+ch])*s + 0.5)
		}
	}
	c.tinted[key] = img
	return img
}

// ToNRGBA converts a linear [0, 1] command color to an 8-bit non-premultiplied color.
func ToNRGBA(col command.Color) color.NRGBA {
	return color.NRGBA{
		R: uint8(clamp01(col[0])*255 + 0.5),
		G: uint8(clamp01(col[1])*255 + 0.5),
		B: uint8(clamp01(col[2])*255 + 0.5),
		A: uint8(clamp01(col[3])*255 + 0.5),
	}
}

func isNeutralTint(tint command.Color) bool {
	return tint == command.Color{} || tint == command.Color{1, 1, 1, 1}
}

func toImageRect(r command.Rect) image.Rectangle {
	return image.Rect(int(r.X), int(r.Y), int(r.X+r.Width), int(r.Y+r.Height))
}

func clamp01(v float32) float32 {
	return min(max(v, 0), 1)
}
