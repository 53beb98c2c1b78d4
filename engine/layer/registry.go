package layer

import (
	"fmt"
	"slices"
	"sync"
)

// Factory constructs one layer instance.
type Factory func() (Layer, error)

// Registration pairs a layer type name with its factory.
type Registration struct {
	Type    string
	Factory Factory
}

// Registry is an ordered set of layer factories keyed by type name. Registration order is
// preserved and is the order the pipeline constructs and initializes layers in.
type Registry struct {
	mu      sync.RWMutex
	entries []Registration
	byType  map[string]int
}

// NewRegistry creates an empty Registry.
//
// Returns:
//   - *Registry: the empty registry
func NewRegistry() *Registry {
	return &Registry{
		byType: make(map[string]int),
	}
}

// Register appends a factory under typ.
//
// Parameters:
//   - typ: the layer type name, unique within the registry
//   - factory: the constructor
//
// Returns:
//   - error: ErrInvalidRegistration or ErrDuplicateRegistration
func (r *Registry) Register(typ string, factory Factory) error {
	if typ == "" || factory == nil {
		return fmt.Errorf("%w: type %q", ErrInvalidRegistration, typ)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byType[typ]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateRegistration, typ)
	}
	r.byType[typ] = len(r.entries)
	r.entries = append(r.entries, Registration{Type: typ, Factory: factory})
	return nil
}

// Entries returns a copy of every registration in registration order.
func (r *Registry) Entries() []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.entries)
}

// Lookup returns the registration for typ.
func (r *Registry) Lookup(typ string) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.byType[typ]
	if !ok {
		return Registration{}, false
	}
	return r.entries[i], true
}

// Resolve returns the registrations for types in the requested order. With no types it
// returns every registration.
//
// Parameters:
//   - types: the layer type names to resolve
//
// Returns:
//   - []Registration: the matching registrations
//   - error: ErrUnknownLayerType naming the first type with no factory
func (r *Registry) Resolve(types ...string) ([]Registration, error) {
	if len(types) == 0 {
		return r.Entries(), nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Registration, 0, len(types))
	for _, typ := range types {
		i, ok := r.byType[typ]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownLayerType, typ)
		}
		out = append(out, r.entries[i])
	}
	return out, nil
}

// Len returns the number of registrations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
