package common

// Key codes delivered by window.Window key callbacks. They match GLFW, which uses ASCII for
// printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeyB     = 66  // B key (ASCII)
	KeyT     = 84  // T key (ASCII)
	KeyV     = 86  // V key (ASCII)
	KeyW     = 87  // W key (ASCII)
	KeySpace = 32  // Spacebar (ASCII)
)
