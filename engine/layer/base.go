package layer

import (
	"iter"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/command"
	"github.com/Carmen-Shannon/oxy-render/engine/game_object"
)

// Base carries the bookkeeping every layer needs: identity, activity, membership,
// viewport size and the sealed kind set. Concrete layers embed *Base and implement
// Initialize, CanAddOrRemove, CollectRenderCommands and ProcessRenderCommands.
type Base struct {
	name     string
	priority Priority
	active   atomic.Bool
	objects  *game_object.Container

	mu     sync.RWMutex
	kinds  command.KindSet
	sealed bool
	width  int
	height int
}

// NewBase creates an active Base.
//
// Parameters:
//   - name: the layer's diagnostic name
//   - priority: the layer's render bucket
//
// Returns:
//   - *Base: the base, ready to embed
func NewBase(name string, priority Priority) *Base {
	b := &Base{
		name:     name,
		priority: priority,
		objects:  game_object.NewContainer(),
	}
	b.active.Store(true)
	return b
}

func (b *Base) Name() string {
	return b.name
}

func (b *Base) Priority() Priority {
	return b.priority
}

func (b *Base) Active() bool {
	return b.active.Load()
}

// SetActive toggles whether the pipeline visits the layer.
func (b *Base) SetActive(active bool) {
	b.active.Store(active)
}

// Update is a no-op; layers with per-frame state override it.
func (b *Base) Update(common.FrameTime) error {
	return nil
}

func (b *Base) Add(obj game_object.GameObject) error {
	return b.objects.Add(obj)
}

func (b *Base) Remove(obj game_object.GameObject) bool {
	return b.objects.Remove(obj)
}

func (b *Base) Clear() {
	b.objects.Clear()
}

func (b *Base) GameObjects() iter.Seq[game_object.GameObject] {
	return b.objects.All()
}

// Objects exposes the member container for layers that need ForEach or AppendTo.
func (b *Base) Objects() *game_object.Container {
	return b.objects
}

func (b *Base) OnViewportResize(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.width, b.height = width, height
}

// Viewport returns the last size passed to OnViewportResize.
func (b *Base) Viewport() (width, height int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.width, b.height
}

// Seal fixes the supported kind set. Call it once from Initialize.
//
// Parameters:
//   - kinds: the command kinds this layer processes
//
// Returns:
//   - error: ErrAlreadyInitialized if the set was already sealed
func (b *Base) Seal(kinds ...command.Kind) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sealed {
		return ErrAlreadyInitialized
	}
	b.kinds = command.NewKindSet(kinds...)
	b.sealed = true
	return nil
}

// Sealed reports whether Seal has been called.
func (b *Base) Sealed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.sealed
}

func (b *Base) SupportedCommandKinds() command.KindSet {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.kinds
}
