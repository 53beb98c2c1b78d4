package raster

import "golang.org/x/image/draw"

// CanvasBuilderOption is a functional option for configuring a Canvas.
type CanvasBuilderOption func(c *Canvas)

// WithSize sets the initial framebuffer size in pixels. Non-positive sizes are ignored.
//
// Parameters:
//   - width: framebuffer width
//   - height: framebuffer height
//
// Returns:
//   - CanvasBuilderOption: functional option to set the size
func WithSize(width, height int) CanvasBuilderOption {
	return func(c *Canvas) {
		if width > 0 && height > 0 {
			c.width = width
			c.height = height
		}
	}
}

// WithScaler sets the interpolator used when a texture is drawn at a different size than its
// source rectangle. Defaults to draw.NearestNeighbor.
//
// Parameters:
//   - s: the scaler, e.g. draw.ApproxBiLinear or draw.CatmullRom
//
// Returns:
//   - CanvasBuilderOption: functional option to set the scaler
func WithScaler(s draw.Scaler) CanvasBuilderOption {
	return func(c *Canvas) {
		if s != nil {
			c.scaler = s
		}
	}
}

// WithScalerName selects a scaler by name: "nearest", "approx-bilinear", "bilinear" or
// "catmull-rom". Unknown names keep the default.
//
// Parameters:
//   - name: the interpolator name
//
// Returns:
//   - CanvasBuilderOption: functional option to set the scaler
func WithScalerName(name string) CanvasBuilderOption {
	return WithScaler(ScalerByName(name))
}

// ScalerByName maps an interpolator name to its x/image/draw implementation.
//
// Parameters:
//   - name: "nearest", "approx-bilinear", "bilinear" or "catmull-rom"
//
// Returns:
//   - draw.Scaler: the scaler, or nil for an unknown name
func ScalerByName(name string) draw.Scaler {
	switch name {
	case "nearest":
		return draw.NearestNeighbor
	case "approx-bilinear":
		return draw.ApproxBiLinear
	case "bilinear":
		return draw.BiLinear
	case "catmull-rom":
		return draw.CatmullRom
	}
	return nil
}
