package rig

import (
	"fmt"
	"slices"
)

// dependent is one entry of an element's dirty list: an element whose pose
// derives from this one, and how many parent hops away it is.
type dependent struct {
	element  *Element
	distance int
}

// parentConstraint is one weighted parent of a multi-parent element.
type parentConstraint struct {
	parent        *Element
	weight        Weight
	initialWeight Weight

	// cache holds the parent's Global transform as last fetched for the blend.
	cache      [numPoses]Transform
	cacheDirty [numPoses]bool
}

func (c *parentConstraint) weightFor(p Pose) Weight {
	if p == Initial {
		return c.initialWeight
	}
	return c.weight
}

func (c *parentConstraint) setWeight(p Pose, w Weight) {
	if p == Initial {
		c.initialWeight = w
	} else {
		c.weight = w
	}
}

// compositeCache is the blended parent transform of a multi-parent element
// for one pose.
type compositeCache struct {
	value Transform
	dirty bool
}

type controlData struct {
	offset   TransformQuad
	shape    TransformQuad
	settings ControlSettings
}

type curveData struct {
	value Handle
	set   bool
}

// Element is a node of a Hierarchy. A single flat struct serves every kind;
// the kind tag selects which of the layer fields are in use, so hot-path code
// switches on the tag instead of going through interfaces.
//
// Elements are created and destroyed by their Hierarchy only. Pointers stay
// valid for the element's lifetime; Index may change when other elements are
// removed.
type Element struct {
	// Identity
	key       Key
	index     int
	subIndex  int
	createdAt int
	selected  bool

	// Transform layer (ClassTransform)
	pose     TransformQuad
	deps     []dependent
	children []*Element

	// SingleParent layer
	parent *Element

	// MultiParent layer
	constraints []parentConstraint
	lookup      map[Key]int
	composite   [numPoses]compositeCache

	// Leaves
	boneType  BoneType
	control   *controlData
	curve     *curveData
	physics   *PhysicsSettings
	worldFunc WorldTransformFunc
	connector *ConnectorSettings
	socket    *SocketSettings
}

// Key returns the element's stable identity.
func (e *Element) Key() Key { return e.key }

// Name is shorthand for Key().Name.
func (e *Element) Name() string { return e.key.Name }

// Kind returns the element's concrete kind tag.
func (e *Element) Kind() ElementKind { return e.key.Kind }

// Index returns the element's position in its hierarchy's element table.
func (e *Element) Index() int { return e.index }

// SubIndex returns the element's position among elements of its kind.
func (e *Element) SubIndex() int { return e.subIndex }

// CreatedAtInstructionIndex returns the instruction index that was current
// when the element was created, or -1.
func (e *Element) CreatedAtInstructionIndex() int { return e.createdAt }

// IsProcedural reports whether the element was created during evaluation.
func (e *Element) IsProcedural() bool { return e.createdAt >= 0 }

// Selected reports the element's selection state.
func (e *Element) Selected() bool { return e.selected }

// IsA reports whether the element belongs to class c.
func (e *Element) IsA(c Class) bool {
	return e != nil && e.key.Kind.Is(c)
}

// As returns e when it belongs to class c and nil otherwise.
func (e *Element) As(c Class) *Element {
	if e.IsA(c) {
		return e
	}
	return nil
}

// MustAs returns e when it belongs to class c and panics otherwise. Use it
// where a mismatch can only be a programming error.
func (e *Element) MustAs(c Class) *Element {
	if !e.IsA(c) {
		if e == nil {
			panic("rig: checked downcast of nil element")
		}
		panic(fmt.Sprintf("rig: element %s is not of class %#x", e.key, uint16(c)))
	}
	return e
}

// ParentElement returns the parent of a single-parent element, or nil.
func (e *Element) ParentElement() *Element {
	if !e.IsA(ClassSingleParent) {
		return nil
	}
	return e.parent
}

// NumParents returns how many parents the element has.
func (e *Element) NumParents() int {
	switch {
	case e.IsA(ClassMultiParent):
		return len(e.constraints)
	case e.IsA(ClassSingleParent) && e.parent != nil:
		return 1
	}
	return 0
}

// BoneType returns the bone tag. Non-bones report BoneUser.
func (e *Element) BoneType() BoneType {
	if e.key.Kind != KindBone {
		return BoneUser
	}
	return e.boneType
}

// ControlSettings returns the settings of a control, or nil.
func (e *Element) ControlSettings() *ControlSettings {
	if e.control == nil {
		return nil
	}
	return &e.control.settings
}

// PhysicsSettings returns the settings of a physics element, or nil.
func (e *Element) PhysicsSettings() *PhysicsSettings { return e.physics }

// ConnectorSettings returns the settings of a connector, or nil.
func (e *Element) ConnectorSettings() *ConnectorSettings { return e.connector }

// SocketSettings returns the settings of a socket, or nil.
func (e *Element) SocketSettings() *SocketSettings { return e.socket }

// parentElements returns every direct parent in constraint order.
func (e *Element) parentElements() []*Element {
	switch {
	case e.IsA(ClassSingleParent):
		if e.parent != nil {
			return []*Element{e.parent}
		}
	case e.IsA(ClassMultiParent):
		out := make([]*Element, 0, len(e.constraints))
		for i := range e.constraints {
			out = append(out, e.constraints[i].parent)
		}
		return out
	}
	return nil
}

// constraintIndex returns the position of parent in the constraint list.
func (e *Element) constraintIndex(parent Key) (int, bool) {
	i, ok := e.lookup[parent]
	return i, ok
}

func (e *Element) rebuildLookup() {
	clear(e.lookup)
	for i := range e.constraints {
		e.lookup[e.constraints[i].parent.key] = i
	}
}

// dropParent forgets p as a parent. It reports whether p was one.
func (e *Element) dropParent(p *Element) bool {
	switch {
	case e.IsA(ClassSingleParent):
		if e.parent == p {
			e.parent = nil
			return true
		}
	case e.IsA(ClassMultiParent):
		i, ok := e.lookup[p.key]
		if !ok || e.constraints[i].parent != p {
			return false
		}
		e.constraints = slices.Delete(e.constraints, i, i+1)
		e.rebuildLookup()
		return true
	}
	return false
}

// quads returns every transform quad the element owns.
func (e *Element) quads() []*TransformQuad {
	if !e.IsA(ClassTransform) {
		return nil
	}
	if e.control != nil {
		return []*TransformQuad{&e.pose, &e.control.offset, &e.control.shape}
	}
	return []*TransformQuad{&e.pose}
}

// allocate reserves every pool slot the element's kind needs.
func (e *Element) allocate(s *storage) {
	for _, q := range e.quads() {
		q.allocate(s)
	}
	if e.curve != nil {
		e.curve.value = s.curves.AllocateOne(0)
	}
}

// release returns every pool slot the element owns.
func (e *Element) release(s *storage) {
	for _, q := range e.quads() {
		q.release(s)
	}
	if e.curve != nil {
		s.curves.Deallocate(&e.curve.value)
	}
}

// relink applies Shrink remaps to every handle the element owns.
func (e *Element) relink(s *storage, transforms, flags, curves map[int]int) {
	for _, q := range e.quads() {
		q.relink(s, transforms, flags)
	}
	if e.curve != nil {
		s.curves.Relink(&e.curve.value, curves)
	}
}

// linked reports whether every handle the element owns is live.
func (e *Element) linked(s *storage) bool {
	for _, q := range e.quads() {
		if !q.linked(s) {
			return false
		}
	}
	if e.curve != nil && !s.curves.Valid(e.curve.value) {
		return false
	}
	return true
}

// invalidateComposite flags the blended parent cache of pose p stale.
// Returns true when the cache was clean before.
func (e *Element) invalidateComposite(p Pose) bool {
	if !e.IsA(ClassMultiParent) {
		return false
	}
	for i := range e.constraints {
		e.constraints[i].cacheDirty[p] = true
	}
	if e.composite[p].dirty {
		return false
	}
	e.composite[p].dirty = true
	return true
}

var classNames = [...]struct {
	c    Class
	name string
}{
	{ClassTransform, "Transform"},
	{ClassSingleParent, "SingleParent"},
	{ClassMultiParent, "MultiParent"},
	{ClassBone, "Bone"},
	{ClassNull, "Null"},
	{ClassControl, "Control"},
	{ClassCurve, "Curve"},
	{ClassPhysics, "Physics"},
	{ClassReference, "Reference"},
	{ClassConnector, "Connector"},
	{ClassSocket, "Socket"},
}

func (c Class) String() string {
	out := ""
	for _, cn := range classNames {
		if c&cn.c != 0 {
			if out != "" {
				out += "|"
			}
			out += cn.name
		}
	}
	if out == "" {
		return fmt.Sprintf("Class(%d)", uint16(c))
	}
	return out
}
