// Package window provides the GLFW presentation window that WebGPU renders into.
package window

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// Window provides platform windowing and input event handling.
// Wraps platform-specific window implementations with a common interface.
type Window interface {
	// SetUpdateCallback sets the function called each message loop iteration.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the function called when the framebuffer is resized.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetKeyCallback sets the callback for key press, repeat and release events.
	//
	// Parameters:
	//   - callback: function receiving the key code and whether it is held down
	SetKeyCallback(callback func(keyCode uint32, pressed bool))

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor suitable for creating a WebGPU surface.
	// The descriptor is platform-appropriate (Windows HWND, X11 Xlib, Wayland, macOS Metal, etc.)
	// and is created by the wgpuglfw bridge from the underlying GLFW window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform-specific surface descriptor, or nil if window is not initialized
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// SetTitle changes the title bar text.
	//
	// Parameters:
	//   - title: the new title
	SetTitle(title string)

	// Title returns the current title.
	Title() string

	// SetSize requests a new client area size, clamped to the configured limits. The resize
	// callback fires once the platform applies it.
	//
	// Parameters:
	//   - width: requested width in screen coordinates
	//   - height: requested height in screen coordinates
	SetSize(width, height int)

	// IsRunning returns true if the window is still active.
	//
	// Returns:
	//   - bool: true if window is running, false if closed
	IsRunning() bool

	// Close closes the window and releases platform resources.
	//
	// Returns:
	//   - error: error if close operation fails
	Close() error

	// ProcessMessages runs the window message loop.
	// Blocks until the window is closed. Calls OnUpdate callback each iteration.
	ProcessMessages()

	// Width returns the current framebuffer width in pixels.
	Width() int

	// Height returns the current framebuffer height in pixels.
	Height() int
}

// sizeLimits bounds the client area during user and programmatic resizes.
type sizeLimits struct {
	minWidth, minHeight int
	maxWidth, maxHeight int
}

// clamp fits a requested size inside the limits. A zero maximum means unbounded.
func (l sizeLimits) clamp(width, height int) (int, int) {
	width = max(width, l.minWidth)
	height = max(height, l.minHeight)
	if l.maxWidth > 0 {
		width = min(width, l.maxWidth)
	}
	if l.maxHeight > 0 {
		height = min(height, l.maxHeight)
	}
	return width, height
}

// engineWindow is the implementation of the Window interface.
// Holds window configuration, GLFW state, and event callbacks.
type engineWindow struct {
	mu sync.RWMutex

	title     string
	limits    sizeLimits
	resizable bool

	// width and height track the framebuffer, which differs from the window size on high-DPI displays.
	width  int
	height int

	// internalWindow holds the platform-specific window data (glfwWindow).
	internalWindow any

	onUpdate func()
	onResize func(width, height int)
	onKey    func(keyCode uint32, pressed bool)
}

var _ Window = &engineWindow{}

// NewWindow creates and spawns a new Window with the specified options.
// Applies default values first, then each option in order. Platform failures panic.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the spawned window
func NewWindow(options ...WindowBuilderOption) Window {
	w := newEngineWindow(options...)
	if err := newPlatformWindow(w); err != nil {
		panic(fmt.Sprintf("failed to create platform window: %v", err))
	}
	return w
}

func newEngineWindow(options ...WindowBuilderOption) *engineWindow {
	w := &engineWindow{
		title: "oxy-render",
		limits: sizeLimits{
			minWidth:  320,
			minHeight: 200,
		},
		resizable: true,
		width:     1280,
		height:    720,
	}
	for _, opt := range options {
		opt(w)
	}
	w.width, w.height = w.limits.clamp(w.width, w.height)
	return w
}

func (w *engineWindow) SetUpdateCallback(callback func()) {
	w.mu.Lock()
	w.onUpdate = callback
	w.mu.Unlock()
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.mu.Lock()
	w.onResize = callback
	w.mu.Unlock()
}

func (w *engineWindow) SetKeyCallback(callback func(keyCode uint32, pressed bool)) {
	w.mu.Lock()
	w.onKey = callback
	w.mu.Unlock()
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) SetTitle(title string) {
	w.mu.Lock()
	w.title = title
	w.mu.Unlock()
	platformSetTitle(w, title)
}

func (w *engineWindow) Title() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.title
}

func (w *engineWindow) SetSize(width, height int) {
	w.mu.RLock()
	width, height = w.limits.clamp(width, height)
	w.mu.RUnlock()
	platformSetSize(w, width, height)
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *engineWindow) ProcessMessages() {
	for w.IsRunning() {
		if succ := platformProcessMessages(w); !succ {
			break
		}

		w.mu.RLock()
		onUpdate := w.onUpdate
		w.mu.RUnlock()
		if onUpdate != nil {
			onUpdate()
		}

		runtime.Gosched()
	}
}

func (w *engineWindow) Width() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.width
}

func (w *engineWindow) Height() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.height
}

// framebufferResized records the new framebuffer size and notifies the resize callback.
func (w *engineWindow) framebufferResized(width, height int) {
	w.mu.Lock()
	w.width, w.height = width, height
	onResize := w.onResize
	w.mu.Unlock()
	if onResize != nil && width > 0 && height > 0 {
		onResize(width, height)
	}
}

func (w *engineWindow) keyEvent(keyCode uint32, pressed bool) {
	w.mu.RLock()
	onKey := w.onKey
	w.mu.RUnlock()
	if onKey != nil {
		onKey(keyCode, pressed)
	}
}
