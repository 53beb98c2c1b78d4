package layer

import (
	"fmt"
	"strings"
)

// Priority is the render bucket of a layer. Lower values collect, update and submit first.
type Priority int

const (
	PriorityBackground Priority = iota
	PriorityOpaque
	PriorityTransparent
	PrioritySprite
	PriorityText
	PriorityUI
	PriorityOverlay
	PriorityDebug
	PriorityWindow

	priorityCount
)

var priorityNames = [priorityCount]string{
	PriorityBackground:  "background",
	PriorityOpaque:      "opaque",
	PriorityTransparent: "transparent",
	PrioritySprite:      "sprite",
	PriorityText:        "text",
	PriorityUI:          "ui",
	PriorityOverlay:     "overlay",
	PriorityDebug:       "debug",
	PriorityWindow:      "window",
}

// Valid reports whether p is a declared priority.
func (p Priority) Valid() bool {
	return p >= 0 && p < priorityCount
}

func (p Priority) String() string {
	if !p.Valid() {
		return fmt.Sprintf("Priority(%d)", int(p))
	}
	return priorityNames[p]
}

// ParsePriority maps a case-insensitive priority name back to its Priority.
//
// Parameters:
//   - s: the priority name, e.g. "opaque"
//
// Returns:
//   - Priority: the matching priority
//   - error: ErrUnknownPriority if s names no priority
func ParsePriority(s string) (Priority, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range priorityNames {
		if name == s {
			return Priority(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPriority, s)
}
