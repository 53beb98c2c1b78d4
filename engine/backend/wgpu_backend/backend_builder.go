package wgpu_backend

// BackendBuilderOption is a functional option for configuring a Backend.
type BackendBuilderOption func(b *Backend)

// WithVSync selects FIFO presentation when enabled and immediate presentation otherwise.
//
// Parameters:
//   - enabled: true to wait for vertical blank
//
// Returns:
//   - BackendBuilderOption: functional option to set the present mode
func WithVSync(enabled bool) BackendBuilderOption {
	return func(b *Backend) {
		b.presentMode = presentMode(enabled)
	}
}

// WithFallbackAdapter forces the software adapter, useful on machines without a usable GPU.
//
// Parameters:
//   - enabled: true to request the fallback adapter
//
// Returns:
//   - BackendBuilderOption: functional option to force the fallback adapter
func WithFallbackAdapter(enabled bool) BackendBuilderOption {
	return func(b *Backend) {
		b.forceFallback = enabled
	}
}

// WithLabel sets the prefix used for GPU object labels in validation messages.
//
// Parameters:
//   - label: the label prefix
//
// Returns:
//   - BackendBuilderOption: functional option to set the label
func WithLabel(label string) BackendBuilderOption {
	return func(b *Backend) {
		b.label = label
	}
}
