package game_object

// GameObjectBuilderOption is a functional option for configuring a GameObject during construction.
type GameObjectBuilderOption func(*gameObject)

// WithID sets the ID of the GameObject. IDs of zero are replaced by an automatic ID.
//
// Parameters:
//   - id: unique identifier for the GameObject
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the ID
func WithID(id uint64) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.id = id
	}
}

// WithName sets the debug name of the GameObject.
//
// Parameters:
//   - name: the debug name
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the name
func WithName(name string) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.name = name
	}
}

// WithOrder sets the sort key of the GameObject.
//
// Parameters:
//   - order: the sort key; lower values draw first
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the order
func WithOrder(order int) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.order.Store(int64(order))
	}
}

// WithVisible sets whether the GameObject starts visible.
//
// Parameters:
//   - visible: false to hide the object from every layer
//
// Returns:
//   - GameObjectBuilderOption: functional option to set visibility
func WithVisible(visible bool) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.visible.Store(visible)
	}
}

// WithLayers sets the layer affinity hints of the GameObject.
//
// Parameters:
//   - mask: the layers the object wants to be routed to
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the layer mask
func WithLayers(mask LayerMask) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.layers.Store(uint32(mask))
	}
}

// WithPosition sets the initial position of the GameObject.
//
// Parameters:
//   - x: the x position
//   - y: the y position
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the initial position
func WithPosition(x, y float32) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.position = [2]float32{x, y}
	}
}

// WithSize sets the initial extent of the GameObject.
//
// Parameters:
//   - w: the width
//   - h: the height
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the initial size
func WithSize(w, h float32) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.size = [2]float32{w, h}
	}
}

// WithSprite attaches sprite data, making the object eligible for sprite layers.
//
// Parameters:
//   - s: the sprite data
//
// Returns:
//   - GameObjectBuilderOption: functional option to attach the sprite
func WithSprite(s SpriteData) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.sprite = &s
	}
}

// WithText attaches text data, making the object eligible for text layers.
//
// Parameters:
//   - t: the text data
//
// Returns:
//   - GameObjectBuilderOption: functional option to attach the text
func WithText(t TextData) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.text = &t
	}
}

// WithMesh attaches mesh data, making the object eligible for mesh layers.
//
// Parameters:
//   - m: the mesh data
//
// Returns:
//   - GameObjectBuilderOption: functional option to attach the mesh
func WithMesh(m MeshData) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.mesh = &m
	}
}

// WithChildren adopts the given objects as children, in order.
// Nil entries are skipped.
//
// Parameters:
//   - children: the child objects
//
// Returns:
//   - GameObjectBuilderOption: functional option to attach children
func WithChildren(children ...GameObject) GameObjectBuilderOption {
	return func(obj *gameObject) {
		for _, c := range children {
			if c == nil {
				continue
			}
			_ = obj.children.Add(c)
			c.SetParent(obj)
		}
	}
}
