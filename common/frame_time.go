package common

import (
	"sync"
	"time"
)

// FrameTime is the time value handed to every Update, Render and CollectRenderCommands call.
// It is passed by value and never mutated after the Clock produces it.
type FrameTime struct {
	// Frame is the 1-based number of the frame this time value belongs to.
	Frame uint64

	// Elapsed is the time since the clock was started (or last reset).
	Elapsed time.Duration

	// Delta is the time since the previous tick.
	Delta time.Duration
}

// DeltaMs returns the frame delta in milliseconds.
//
// Returns:
//   - float64: the delta time in milliseconds
func (t FrameTime) DeltaMs() float64 {
	return float64(t.Delta) / float64(time.Millisecond)
}

// DeltaSeconds returns the frame delta in seconds, the unit oxy callbacks have always used.
//
// Returns:
//   - float32: the delta time in seconds
func (t FrameTime) DeltaSeconds() float32 {
	return float32(t.Delta.Seconds())
}

// Clock produces monotonically increasing FrameTime values, one per Tick.
// Safe for concurrent use, although a single frame-driver normally owns it.
type Clock struct {
	mu    sync.Mutex
	now   func() time.Time
	start time.Time
	last  time.Time
	frame uint64
}

// NewClock creates a Clock started at the current time.
//
// Returns:
//   - *Clock: the started clock
func NewClock() *Clock {
	return NewClockWithSource(time.Now)
}

// NewClockWithSource creates a Clock that reads time from the given source.
// Tests use this to drive deterministic deltas.
//
// Parameters:
//   - now: the function returning the current time
//
// Returns:
//   - *Clock: the started clock
func NewClockWithSource(now func() time.Time) *Clock {
	c := &Clock{now: now}
	c.Reset()
	return c
}

// Tick advances the clock by one frame.
//
// Returns:
//   - FrameTime: the time value for the new frame
func (c *Clock) Tick() FrameTime {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	delta := now.Sub(c.last)
	c.last = now
	c.frame++

	return FrameTime{
		Frame:   c.frame,
		Elapsed: now.Sub(c.start),
		Delta:   delta,
	}
}

// Reset restarts the clock at the current time and frame zero.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.start = c.now()
	c.last = c.start
	c.frame = 0
}
