package game_object

import (
	"cmp"
	"errors"
	"iter"
	"slices"
	"sync"
)

// ErrNilObject is returned when a nil GameObject is handed to a container or layer.
var ErrNilObject = errors.New("nil game object")

// Container is an ordered, non-owning collection of GameObjects sorted by Order.
//
// Mutations only mark the container dirty; the next read (ForEach, All, AppendTo) resorts
// first. Objects with equal Order keep their insertion order, even after a SetOrder moved
// them away and back.
// A single mutex serializes every mutation and every full iteration pass. Callbacks invoked
// during iteration must not mutate the same container.
type Container struct {
	mu    sync.Mutex
	items []entry
	seq   uint64
	dirty bool
}

// entry pairs an object with the sequence number it was added under.
type entry struct {
	obj GameObject
	seq uint64
}

// NewContainer creates an empty Container.
//
// Returns:
//   - *Container: the empty container
func NewContainer() *Container {
	return &Container{}
}

// Add appends obj and marks the container dirty.
//
// Parameters:
//   - obj: the object to add
//
// Returns:
//   - error: ErrNilObject if obj is nil
func (c *Container) Add(obj GameObject) error {
	if obj == nil {
		return ErrNilObject
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	c.items = append(c.items, entry{obj: obj, seq: c.seq})
	c.dirty = true
	return nil
}

// Remove removes the first occurrence of obj.
//
// Parameters:
//   - obj: the object to remove
//
// Returns:
//   - bool: true if obj was found and removed
func (c *Container) Remove(obj GameObject) bool {
	if obj == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(obj)
	if i < 0 {
		return false
	}
	c.removeAtLocked(i)
	return true
}

// RemoveByID removes the first object with the given ID.
//
// Parameters:
//   - id: the object ID
//
// Returns:
//   - bool: true if an object was found and removed
func (c *Container) RemoveByID(id uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexByIDLocked(id)
	if i < 0 {
		return false
	}
	c.removeAtLocked(i)
	return true
}

// Contains reports whether obj is held by the container.
func (c *Container) Contains(obj GameObject) bool {
	if obj == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.indexLocked(obj) >= 0
}

// ContainsID reports whether an object with the given ID is held by the container.
func (c *Container) ContainsID(id uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.indexByIDLocked(id) >= 0
}

// GetByID returns the object with the given ID, or nil.
//
// Parameters:
//   - id: the object ID
//
// Returns:
//   - GameObject: the object, or nil if absent
func (c *Container) GetByID(id uint64) GameObject {
	obj, _ := c.TryGetByID(id)
	return obj
}

// TryGetByID returns the object with the given ID.
//
// Parameters:
//   - id: the object ID
//
// Returns:
//   - GameObject: the object, or nil if absent
//   - bool: true if the object was found
func (c *Container) TryGetByID(id uint64) (GameObject, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexByIDLocked(id)
	if i < 0 {
		return nil, false
	}
	return c.items[i].obj, true
}

// ForEach resorts if needed, then calls visit for every object in order.
//
// Parameters:
//   - visit: the callback; it must not mutate this container
func (c *Container) ForEach(visit func(GameObject)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sortLocked()
	for _, e := range c.items {
		visit(e.obj)
	}
}

// All returns a sequence over the objects in order. The container stays locked for the
// duration of the range loop.
//
// Returns:
//   - iter.Seq[GameObject]: the ordered view
func (c *Container) All() iter.Seq[GameObject] {
	return func(yield func(GameObject) bool) {
		c.mu.Lock()
		defer c.mu.Unlock()

		c.sortLocked()
		for _, e := range c.items {
			if !yield(e.obj) {
				return
			}
		}
	}
}

// AppendTo appends the ordered objects to dst and returns the extended slice.
//
// Parameters:
//   - dst: the destination slice, reused by callers that snapshot every frame
//
// Returns:
//   - []GameObject: dst with the objects appended
func (c *Container) AppendTo(dst []GameObject) []GameObject {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sortLocked()
	for _, e := range c.items {
		dst = append(dst, e.obj)
	}
	return dst
}

// Len returns the number of objects held.
func (c *Container) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Invalidate marks the container dirty so the next read resorts, e.g. after SetOrder.
func (c *Container) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirty = len(c.items) > 0
}

// Clear removes every object. An empty container is vacuously sorted.
func (c *Container) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.items)
	c.items = c.items[:0]
	c.dirty = false
}

func (c *Container) indexLocked(obj GameObject) int {
	return slices.IndexFunc(c.items, func(e entry) bool {
		return e.obj == obj
	})
}

func (c *Container) indexByIDLocked(id uint64) int {
	return slices.IndexFunc(c.items, func(e entry) bool {
		return e.obj.ID() == id
	})
}

func (c *Container) removeAtLocked(i int) {
	c.items = slices.Delete(c.items, i, i+1)
	c.dirty = true
}

func (c *Container) sortLocked() {
	if !c.dirty {
		return
	}
	slices.SortFunc(c.items, func(a, b entry) int {
		return cmp.Or(cmp.Compare(a.obj.Order(), b.obj.Order()), cmp.Compare(a.seq, b.seq))
	})
	c.dirty = false
}
