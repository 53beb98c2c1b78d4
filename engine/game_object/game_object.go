package game_object

import (
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-render/engine/command"
)

// nextID feeds ids to objects built without WithID.
var nextID atomic.Uint64

// LayerMask is a set of affinity hints that render layers consult in CanAddOrRemove.
type LayerMask uint32

const (
	// LayerWorld marks objects drawn as part of the scene.
	LayerWorld LayerMask = 1 << iota
	// LayerUI marks interface objects such as labels and panels.
	LayerUI
	// LayerDebug marks objects that should also appear in debug visualisation layers.
	LayerDebug

	// LayerAll matches every layer.
	LayerAll LayerMask = ^LayerMask(0)
)

// Has reports whether any bit of m is set in l.
func (l LayerMask) Has(m LayerMask) bool {
	return l&m != 0
}

// SpriteData describes a textured quad attached to a GameObject.
type SpriteData struct {
	Texture command.TextureHandle
	Src     command.Rect
	Tint    command.Color
}

// TextData describes a run of text attached to a GameObject.
type TextData struct {
	Content string
	Color   command.Color
	Scale   float32
}

// MeshData describes GPU geometry attached to a GameObject.
type MeshData struct {
	Mesh        command.MeshHandle
	Shader      command.ShaderHandle
	VertexCount uint32
	Instances   uint32
	Uniforms    []byte
}

type gameObject struct {
	id      uint64
	name    string
	order   atomic.Int64
	visible atomic.Bool
	layers  atomic.Uint32

	mu       sync.RWMutex
	parent   GameObject
	children *Container
	position [2]float32
	size     [2]float32
	sprite   *SpriteData
	text     *TextData
	mesh     *MeshData
}

// GameObject is a drawable scene entity. Objects are owned by whichever system built them;
// render layers and containers only hold references.
type GameObject interface {
	// ID returns the object's unique identifier. It never changes.
	//
	// Returns:
	//   - uint64: the object ID
	ID() uint64

	// Name returns the object's debug name.
	Name() string

	// Order returns the sort key used by containers. Ties keep insertion order.
	//
	// Returns:
	//   - int: the sort key
	Order() int

	// SetOrder changes the sort key. Containers already holding the object pick the
	// change up on their next mutation or after Container.Invalidate.
	//
	// Parameters:
	//   - order: the new sort key
	SetOrder(order int)

	// Visible returns whether layers should emit commands for this object.
	Visible() bool

	// SetVisible sets whether layers should emit commands for this object.
	SetVisible(visible bool)

	// Layers returns the affinity hints consulted by render layers.
	Layers() LayerMask

	// SetLayers replaces the affinity hints.
	SetLayers(mask LayerMask)

	// Parent returns the non-owning parent reference, or nil for a root object.
	Parent() GameObject

	// SetParent sets the parent reference. It does not touch either object's children.
	SetParent(parent GameObject)

	// Children returns the ordered container of child objects.
	Children() *Container

	// AddChild appends child to this object's children and points its parent here.
	//
	// Parameters:
	//   - child: the object to adopt
	//
	// Returns:
	//   - error: ErrNilObject if child is nil
	AddChild(child GameObject) error

	// RemoveChild detaches child from this object.
	//
	// Parameters:
	//   - child: the object to detach
	//
	// Returns:
	//   - bool: true if child was a child of this object
	RemoveChild(child GameObject) bool

	// Position returns the top-left position in target units.
	Position() (x, y float32)

	// SetPosition moves the object.
	SetPosition(x, y float32)

	// Size returns the object's extent in target units.
	Size() (w, h float32)

	// SetSize resizes the object.
	SetSize(w, h float32)

	// Sprite returns the attached sprite data, or nil.
	Sprite() *SpriteData

	// SetSprite attaches sprite data. Pass nil to detach.
	SetSprite(s *SpriteData)

	// Text returns the attached text data, or nil.
	Text() *TextData

	// SetText attaches text data. Pass nil to detach.
	SetText(t *TextData)

	// Mesh returns the attached mesh data, or nil.
	Mesh() *MeshData

	// SetMesh attaches mesh data. Pass nil to detach.
	SetMesh(m *MeshData)
}

var _ GameObject = &gameObject{}

// NewGameObject creates a new GameObject configured with the given options.
// Objects start visible with LayerAll affinity and an automatically assigned ID.
//
// Parameters:
//   - options: functional options to configure the object
//
// Returns:
//   - GameObject: the newly created object
func NewGameObject(options ...GameObjectBuilderOption) GameObject {
	obj := &gameObject{
		children: NewContainer(),
		size:     [2]float32{1, 1},
	}
	obj.visible.Store(true)
	obj.layers.Store(uint32(LayerAll))
	for _, option := range options {
		option(obj)
	}
	if obj.id == 0 {
		obj.id = nextID.Add(1)
	}
	return obj
}

func (g *gameObject) ID() uint64 {
	return g.id
}

func (g *gameObject) Name() string {
	return g.name
}

func (g *gameObject) Order() int {
	return int(g.order.Load())
}

func (g *gameObject) SetOrder(order int) {
	g.order.Store(int64(order))
}

func (g *gameObject) Visible() bool {
	return g.visible.Load()
}

func (g *gameObject) SetVisible(visible bool) {
	g.visible.Store(visible)
}

func (g *gameObject) Layers() LayerMask {
	return LayerMask(g.layers.Load())
}

func (g *gameObject) SetLayers(mask LayerMask) {
	g.layers.Store(uint32(mask))
}

func (g *gameObject) Parent() GameObject {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.parent
}

func (g *gameObject) SetParent(parent GameObject) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.parent = parent
}

func (g *gameObject) Children() *Container {
	return g.children
}

func (g *gameObject) AddChild(child GameObject) error {
	if err := g.children.Add(child); err != nil {
		return err
	}
	child.SetParent(g)
	return nil
}

func (g *gameObject) RemoveChild(child GameObject) bool {
	if !g.children.Remove(child) {
		return false
	}
	if child.Parent() == GameObject(g) {
		child.SetParent(nil)
	}
	return true
}

func (g *gameObject) Position() (x, y float32) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.position[0], g.position[1]
}

func (g *gameObject) SetPosition(x, y float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.position = [2]float32{x, y}
}

func (g *gameObject) Size() (w, h float32) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.size[0], g.size[1]
}

func (g *gameObject) SetSize(w, h float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.size = [2]float32{w, h}
}

func (g *gameObject) Sprite() *SpriteData {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.sprite
}

func (g *gameObject) SetSprite(s *SpriteData) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sprite = s
}

func (g *gameObject) Text() *TextData {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.text
}

func (g *gameObject) SetText(t *TextData) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.text = t
}

func (g *gameObject) Mesh() *MeshData {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.mesh
}

func (g *gameObject) SetMesh(m *MeshData) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mesh = m
}
