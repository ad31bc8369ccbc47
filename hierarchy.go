package rig

import (
	"fmt"
	"log/slog"
	"slices"
)

// Hierarchy owns a rig's elements and the pools their transforms live in.
// It is not safe for concurrent use; independent hierarchies may be used from
// different goroutines.
type Hierarchy struct {
	cfg   Config
	store *storage

	elements []*Element
	byKey    map[Key]*Element
	byKind   [numKinds][]*Element

	// depsDirty is set by structural edits; dependents lists and children
	// are rebuilt before the next propagation or traversal.
	depsDirty bool

	instruction int
	listeners   []Listener
	stats       Stats
}

// NewHierarchy creates an empty hierarchy using DefaultConfig.
func NewHierarchy() *Hierarchy {
	return NewHierarchyWithConfig(DefaultConfig())
}

// NewHierarchyWithConfig creates an empty hierarchy using cfg.
func NewHierarchyWithConfig(cfg Config) *Hierarchy {
	if cfg.WeightEpsilon <= 0 {
		cfg.WeightEpsilon = smallNumber
	}
	h := &Hierarchy{
		cfg:         cfg,
		store:       newStorage(),
		byKey:       make(map[Key]*Element),
		instruction: -1,
	}
	h.store.setStrict(cfg.Debug)
	return h
}

// Config returns the hierarchy's configuration.
func (h *Hierarchy) Config() Config { return h.cfg }

// SetDebugMode toggles strict integrity checking. In debug mode stale
// storage handles panic and the dirty invariant is verified after every
// mutation.
func (h *Hierarchy) SetDebugMode(debug bool) {
	h.cfg.Debug = debug
	h.store.setStrict(debug)
}

// Len returns the number of elements.
func (h *Hierarchy) Len() int { return len(h.elements) }

// CreateElement adds a new element of the given kind. The element starts
// unparented with every transform cell Identity and clean.
func (h *Hierarchy) CreateElement(kind ElementKind, name string) (*Element, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("create element %q: %w", name, ErrInvalidKind)
	}
	key := Key{Kind: kind, Name: name}
	if name == "" {
		return nil, fmt.Errorf("create element %s: empty name", key)
	}
	if h.byKey[key] != nil {
		return nil, fmt.Errorf("create element %s: %w", key, ErrDuplicateKey)
	}

	e := &Element{
		key:       key,
		index:     len(h.elements),
		subIndex:  len(h.byKind[kind]),
		createdAt: h.instruction,
		boneType:  BoneUser,
	}
	switch kind {
	case KindControl:
		e.control = &controlData{settings: DefaultControlSettings()}
	case KindCurve:
		e.curve = &curveData{}
	case KindPhysics:
		e.physics = &PhysicsSettings{}
	case KindConnector:
		e.connector = &ConnectorSettings{}
	case KindSocket:
		e.socket = &SocketSettings{Color: Color{1, 1, 1, 1}}
	}
	if e.IsA(ClassMultiParent) {
		e.lookup = make(map[Key]int)
		for p := range e.composite {
			e.composite[p] = compositeCache{value: Identity(), dirty: true}
		}
	}
	e.allocate(h.store)

	h.elements = append(h.elements, e)
	h.byKey[key] = e
	h.byKind[kind] = append(h.byKind[kind], e)
	h.depsDirty = true

	h.emit(Event{Type: EventElementAdded, Key: key})
	h.afterMutation()
	return e, nil
}

// MustCreateElement is CreateElement for setup code; it panics on error.
func (h *Hierarchy) MustCreateElement(kind ElementKind, name string) *Element {
	e, err := h.CreateElement(kind, name)
	if err != nil {
		panic("rig: " + err.Error())
	}
	return e
}

// Find returns the element with the given key, or nil.
func (h *Hierarchy) Find(key Key) *Element {
	return h.byKey[key]
}

// Contains reports whether an element with the given key exists.
func (h *Hierarchy) Contains(key Key) bool {
	return h.byKey[key] != nil
}

// FindByIndex returns the element at index i, or nil when out of range.
func (h *Hierarchy) FindByIndex(i int) *Element {
	if i < 0 || i >= len(h.elements) {
		return nil
	}
	return h.elements[i]
}

// Elements returns the elements of the given kinds in index order, or every
// element when no kind is given. The returned slice is a copy.
func (h *Hierarchy) Elements(kinds ...ElementKind) []*Element {
	if len(kinds) == 0 {
		return slices.Clone(h.elements)
	}
	if len(kinds) == 1 && kinds[0].Valid() {
		return slices.Clone(h.byKind[kinds[0]])
	}
	var out []*Element
	for _, e := range h.elements {
		if slices.Contains(kinds, e.key.Kind) {
			out = append(out, e)
		}
	}
	return out
}

// Children returns the elements that have key as one of their parents.
func (h *Hierarchy) Children(key Key) []*Element {
	e := h.byKey[key]
	if e == nil {
		return nil
	}
	h.ensureDependents()
	return slices.Clone(e.children)
}

// Parents returns the direct parents of key in constraint order.
func (h *Hierarchy) Parents(key Key) []*Element {
	e := h.byKey[key]
	if e == nil {
		return nil
	}
	return e.parentElements()
}

// TopologicalOrder returns every element such that parents precede their
// children. Ties keep index order.
func (h *Hierarchy) TopologicalOrder() []*Element {
	h.ensureDependents()
	pending := make([]int, len(h.elements))
	var queue []*Element
	for _, e := range h.elements {
		pending[e.index] = e.NumParents()
		if pending[e.index] == 0 {
			queue = append(queue, e)
		}
	}
	out := make([]*Element, 0, len(h.elements))
	for len(queue) > 0 {
		e := queue[0]
		queue = queue[1:]
		out = append(out, e)
		for _, c := range e.children {
			pending[c.index]--
			if pending[c.index] == 0 {
				queue = append(queue, c)
			}
		}
	}
	return out
}

// SetInstructionIndex sets the instruction index stamped on elements created
// from now on. Pass -1 to leave evaluation.
func (h *Hierarchy) SetInstructionIndex(i int) {
	if i < -1 {
		i = -1
	}
	h.instruction = i
}

// InstructionIndex returns the current instruction index, or -1.
func (h *Hierarchy) InstructionIndex() int { return h.instruction }

// Select sets the selection state of key. It reports whether the element
// exists.
func (h *Hierarchy) Select(key Key, selected bool) bool {
	e := h.byKey[key]
	if e == nil {
		return false
	}
	if e.selected == selected {
		return true
	}
	e.selected = selected
	ev := EventElementDeselected
	if selected {
		ev = EventElementSelected
	}
	h.emit(Event{Type: ev, Key: key})
	return true
}

// Selection returns the keys of all selected elements in index order.
func (h *Hierarchy) Selection() []Key {
	var out []Key
	for _, e := range h.elements {
		if e.selected {
			out = append(out, e.key)
		}
	}
	return out
}

// SetBoneType changes the tag of a bone.
func (h *Hierarchy) SetBoneType(key Key, t BoneType) error {
	e := h.byKey[key]
	if e == nil {
		return fmt.Errorf("set bone type %s: %w", key, ErrNotFound)
	}
	if e.key.Kind != KindBone {
		return fmt.Errorf("set bone type %s: %w", key, ErrInvalidKind)
	}
	e.boneType = t
	return nil
}

// SetReferenceWorld installs the world transform provider of a reference
// element. A nil fn falls back to the element's Global transform.
func (h *Hierarchy) SetReferenceWorld(key Key, fn WorldTransformFunc) error {
	e := h.byKey[key]
	if e == nil {
		return fmt.Errorf("set reference world %s: %w", key, ErrNotFound)
	}
	if e.key.Kind != KindReference {
		return fmt.Errorf("set reference world %s: %w", key, ErrInvalidKind)
	}
	e.worldFunc = fn
	return nil
}

// ReferenceWorldTransform returns the world transform of a reference
// element: the installed provider's value, or its Global transform.
func (h *Hierarchy) ReferenceWorldTransform(key Key, pose Pose) (Transform, bool) {
	e := h.byKey[key]
	if e == nil || e.key.Kind != KindReference {
		return Identity(), false
	}
	if e.worldFunc != nil {
		return e.worldFunc(pose), true
	}
	return h.resolve(e, rolePose, MakeTransformType(Global, pose)), true
}

// SetCurveValue stores a curve's value and flags it as set.
func (h *Hierarchy) SetCurveValue(key Key, v float64) bool {
	e := h.byKey[key]
	if e == nil || e.curve == nil {
		return false
	}
	h.store.curves.Set(e.curve.value, v)
	e.curve.set = true
	return true
}

// CurveValue returns a curve's value. The bool is false when key is not a
// curve.
func (h *Hierarchy) CurveValue(key Key) (float64, bool) {
	e := h.byKey[key]
	if e == nil || e.curve == nil {
		return 0, false
	}
	return h.store.curves.Get(e.curve.value), true
}

// IsValueSet reports whether the curve was written since the last
// UnsetCurveValues.
func (h *Hierarchy) IsValueSet(key Key) bool {
	e := h.byKey[key]
	return e != nil && e.curve != nil && e.curve.set
}

// UnsetCurveValues clears the set flag of every curve. Values are kept.
func (h *Hierarchy) UnsetCurveValues() {
	for _, e := range h.byKind[KindCurve] {
		e.curve.set = false
	}
}

// RemoveElement deletes an element. Its children stay where they are in
// global space and lose it as a parent. The element's storage is released
// before any reference to it is purged.
func (h *Hierarchy) RemoveElement(key Key) error {
	e := h.byKey[key]
	if e == nil {
		return fmt.Errorf("remove %s: %w", key, ErrNotFound)
	}
	h.ensureDependents()
	children := slices.Clone(e.children)
	for _, c := range children {
		for p := Pose(0); p < numPoses; p++ {
			h.preparePoseChange(c, p, true)
		}
	}

	e.release(h.store)
	for _, c := range children {
		c.dropParent(e)
		for p := Pose(0); p < numPoses; p++ {
			h.invalidateComposite(c, p)
		}
	}

	h.elements = slices.Delete(h.elements, e.index, e.index+1)
	for i := e.index; i < len(h.elements); i++ {
		h.elements[i].index = i
	}
	kind := e.key.Kind
	h.byKind[kind] = slices.Delete(h.byKind[kind], e.subIndex, e.subIndex+1)
	for i := e.subIndex; i < len(h.byKind[kind]); i++ {
		h.byKind[kind][i].subIndex = i
	}
	delete(h.byKey, key)
	e.parent = nil
	e.constraints = nil
	e.deps = nil
	e.children = nil
	h.depsDirty = true

	h.emit(Event{Type: EventElementRemoved, Key: key})
	for _, c := range children {
		h.emit(Event{Type: EventParentChanged, Key: c.key})
	}
	h.afterMutation()
	return nil
}

// RemoveProcedural removes every element created during evaluation and
// returns how many were removed.
func (h *Hierarchy) RemoveProcedural() int {
	var keys []Key
	for _, e := range h.elements {
		if e.IsProcedural() {
			keys = append(keys, e.key)
		}
	}
	// reverse index order removes children before their parents
	for i := len(keys) - 1; i >= 0; i-- {
		if err := h.RemoveElement(keys[i]); err != nil {
			Logger().Warn("rig: remove procedural element", slog.String("key", keys[i].String()), slog.Any("error", err))
		}
	}
	return len(keys)
}

// Reset removes every element and drops all storage.
func (h *Hierarchy) Reset() {
	keys := make([]Key, len(h.elements))
	for i, e := range h.elements {
		keys[i] = e.key
	}
	h.elements = nil
	h.byKey = make(map[Key]*Element)
	h.byKind = [numKinds][]*Element{}
	h.store.transforms.Reset(nil)
	h.store.flags.Reset(nil)
	h.store.curves.Reset(nil)
	h.depsDirty = true
	for _, k := range keys {
		h.emit(Event{Type: EventElementRemoved, Key: k})
	}
}

// Shrink compacts the storage pools and relinks every element's handles.
// It must not run while another caller is between reads on this hierarchy.
func (h *Hierarchy) Shrink() {
	before := h.store.transforms.Len()
	transforms := h.store.transforms.Shrink(nil)
	flags := h.store.flags.Shrink(nil)
	curves := h.store.curves.Shrink(nil)
	for _, e := range h.elements {
		e.relink(h.store, transforms, flags, curves)
	}
	Logger().Info("rig: storage shrunk",
		slog.Int("transforms_before", before),
		slog.Int("transforms_after", h.store.transforms.Len()),
		slog.Int("elements", len(h.elements)))
	h.emit(Event{Type: EventStorageShrunk})
	h.afterMutation()
}

// AddListener registers l for hierarchy notifications.
func (h *Hierarchy) AddListener(l Listener) {
	if l == nil {
		panic("rig: nil listener")
	}
	h.listeners = append(h.listeners, l)
}

// RemoveListener unregisters l. Unknown listeners are ignored.
func (h *Hierarchy) RemoveListener(l Listener) {
	if i := slices.Index(h.listeners, l); i >= 0 {
		h.listeners = slices.Delete(h.listeners, i, i+1)
	}
}

func (h *Hierarchy) emit(ev Event) {
	for _, l := range h.listeners {
		l.HandleEvent(ev)
	}
}

// afterMutation verifies the hierarchy in debug mode.
func (h *Hierarchy) afterMutation() {
	if !h.cfg.Debug {
		return
	}
	if err := h.CheckIntegrity(); err != nil {
		panic("rig debug: " + err.Error())
	}
}
