package layer

import (
	"cmp"
	"fmt"
	"iter"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-render/engine/game_object"
)

// Container holds the registered layers sorted by Priority, with a per-priority index.
//
// Like game_object.Container, mutations mark the list dirty and the next iteration resorts
// it stably, so layers sharing a priority keep registration order. The mutex is held for each
// mutation and for each whole iteration pass; callbacks must not mutate the container.
type Container struct {
	mu      sync.Mutex
	layers  []Layer
	buckets map[Priority][]Layer
	dirty   bool
}

// NewContainer creates an empty layer Container.
//
// Returns:
//   - *Container: the empty container
func NewContainer() *Container {
	return &Container{
		buckets: make(map[Priority][]Layer),
	}
}

// Add registers l.
//
// Parameters:
//   - l: the layer to add
//
// Returns:
//   - error: ErrNilLayer for nil, ErrDuplicateLayer if l is already held
func (c *Container) Add(l Layer) error {
	if l == nil {
		return ErrNilLayer
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if slices.Contains(c.layers, l) {
		return fmt.Errorf("%w: %q", ErrDuplicateLayer, l.Name())
	}
	c.layers = append(c.layers, l)
	p := l.Priority()
	c.buckets[p] = append(c.buckets[p], l)
	c.dirty = true
	return nil
}

// Remove unregisters one specific layer instance.
//
// Parameters:
//   - l: the layer to remove
//
// Returns:
//   - bool: true if l was registered
func (c *Container) Remove(l Layer) bool {
	if l == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	i := slices.Index(c.layers, l)
	if i < 0 {
		return false
	}
	c.layers = slices.Delete(c.layers, i, i+1)
	p := l.Priority()
	bucket := slices.DeleteFunc(c.buckets[p], func(x Layer) bool { return x == l })
	if len(bucket) == 0 {
		delete(c.buckets, p)
	} else {
		c.buckets[p] = bucket
	}
	c.dirty = true
	return true
}

// RemovePriority unregisters every layer in bucket p.
//
// Parameters:
//   - p: the priority bucket to empty
//
// Returns:
//   - int: the number of layers removed
func (c *Container) RemovePriority(p Priority) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.buckets[p])
	if n == 0 {
		return 0
	}
	c.layers = slices.DeleteFunc(c.layers, func(l Layer) bool { return l.Priority() == p })
	delete(c.buckets, p)
	c.dirty = true
	return n
}

// Contains reports whether l is registered.
func (c *Container) Contains(l Layer) bool {
	if l == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Contains(c.layers, l)
}

// Layer returns the first layer registered at priority p.
//
// Parameters:
//   - p: the priority bucket
//
// Returns:
//   - Layer: the first layer in the bucket, or nil
//   - bool: true if the bucket is non-empty
func (c *Container) Layer(p Priority) (Layer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	bucket := c.buckets[p]
	if len(bucket) == 0 {
		return nil, false
	}
	return bucket[0], true
}

// Layers returns a copy of bucket p in registration order.
func (c *Container) Layers(p Priority) []Layer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.buckets[p])
}

// Find returns the first layer, in priority order, whose concrete type satisfies T.
//
// Parameters:
//   - c: the container to search
//
// Returns:
//   - T: the matching layer
//   - bool: true if one was found
func Find[T any](c *Container) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sortLocked()
	for _, l := range c.layers {
		if t, ok := l.(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}

// ForEach resorts if needed and calls fn for every layer in priority order, stopping at the
// first error.
//
// Parameters:
//   - fn: the callback; it must not mutate this container
//
// Returns:
//   - error: the first error returned by fn
func (c *Container) ForEach(fn func(Layer) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sortLocked()
	for _, l := range c.layers {
		if err := fn(l); err != nil {
			return err
		}
	}
	return nil
}

// All returns a sequence over the layers in priority order. The container stays locked for
// the duration of the range loop.
func (c *Container) All() iter.Seq[Layer] {
	return func(yield func(Layer) bool) {
		c.mu.Lock()
		defer c.mu.Unlock()

		c.sortLocked()
		for _, l := range c.layers {
			if !yield(l) {
				return
			}
		}
	}
}

// Snapshot returns a sorted copy of the registered layers.
func (c *Container) Snapshot() []Layer {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sortLocked()
	return slices.Clone(c.layers)
}

// Len returns the number of registered layers.
func (c *Container) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.layers)
}

// Clear unregisters every layer.
func (c *Container) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.layers)
	c.layers = c.layers[:0]
	clear(c.buckets)
	c.dirty = false
}

// AddGameObject adds obj to every layer whose CanAddOrRemove accepts it, in priority order.
//
// Parameters:
//   - obj: the object to route
//
// Returns:
//   - int: the number of layers that accepted obj
//   - error: game_object.ErrNilObject for nil, or the first layer Add error
func (c *Container) AddGameObject(obj game_object.GameObject) (int, error) {
	if obj == nil {
		return 0, game_object.ErrNilObject
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sortLocked()
	n := 0
	for _, l := range c.layers {
		if !l.CanAddOrRemove(obj) {
			continue
		}
		if err := l.Add(obj); err != nil {
			return n, fmt.Errorf("layer %q: %w", l.Name(), err)
		}
		n++
	}
	return n, nil
}

// RemoveGameObject removes obj from every layer holding it, in priority order. Layers are
// asked to drop the object even if CanAddOrRemove changed its answer since the object was added.
//
// Parameters:
//   - obj: the object to remove
//
// Returns:
//   - int: the number of layers that held obj
func (c *Container) RemoveGameObject(obj game_object.GameObject) int {
	if obj == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sortLocked()
	n := 0
	for _, l := range c.layers {
		if l.Remove(obj) {
			n++
		}
	}
	return n
}

func (c *Container) sortLocked() {
	if !c.dirty {
		return
	}
	slices.SortStableFunc(c.layers, func(a, b Layer) int {
		return cmp.Compare(a.Priority(), b.Priority())
	})
	c.dirty = false
}
