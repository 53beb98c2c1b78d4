package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClockTick(t *testing.T) {
	base := time.Unix(0, 0)
	current := base
	clock := NewClockWithSource(func() time.Time { return current })

	current = base.Add(16 * time.Millisecond)
	first := clock.Tick()
	assert.Equal(t, uint64(1), first.Frame)
	assert.Equal(t, 16*time.Millisecond, first.Delta)
	assert.Equal(t, 16*time.Millisecond, first.Elapsed)
	assert.InDelta(t, 16.0, first.DeltaMs(), 1e-9)

	current = base.Add(40 * time.Millisecond)
	second := clock.Tick()
	assert.Equal(t, uint64(2), second.Frame)
	assert.Equal(t, 24*time.Millisecond, second.Delta)
	assert.Equal(t, 40*time.Millisecond, second.Elapsed)
	assert.InDelta(t, 0.024, second.DeltaSeconds(), 1e-6)

	clock.Reset()
	current = current.Add(10 * time.Millisecond)
	third := clock.Tick()
	assert.Equal(t, uint64(1), third.Frame)
	assert.Equal(t, 10*time.Millisecond, third.Elapsed)
}

func TestCoalesce(t *testing.T) {
	assert.Equal(t, 3, Coalesce(0, 0, 3, 4))
	assert.Equal(t, "", Coalesce("", ""))
	assert.Equal(t, "a", Coalesce("a", "b"))
}
