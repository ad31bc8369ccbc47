package rig

import "log/slog"

// quadRole selects which quad of an element a cell operation targets.
type quadRole uint8

const (
	rolePose   quadRole = iota // the element's own pose
	roleOffset                 // control offset, parented to the parent blend
	roleShape                  // control shape, parented to the pose
)

func (e *Element) quad(r quadRole) *TransformQuad {
	switch r {
	case roleOffset:
		return &e.control.offset
	case roleShape:
		return &e.control.shape
	}
	return &e.pose
}

// ensureDependents rebuilds every children list and dependents list after
// a structural edit. Dependents are collected breadth first, so each list is
// ordered by increasing distance and holds every element at its shortest
// distance.
func (h *Hierarchy) ensureDependents() {
	if !h.depsDirty {
		return
	}
	h.depsDirty = false
	for _, e := range h.elements {
		e.children = e.children[:0]
		e.deps = e.deps[:0]
	}
	for _, e := range h.elements {
		for _, p := range e.parentElements() {
			p.children = append(p.children, e)
		}
	}

	stamp := make([]int, len(h.elements))
	gen := 0
	for _, e := range h.elements {
		if len(e.children) == 0 {
			continue
		}
		gen++
		stamp[e.index] = gen
		deps := e.deps
		for _, c := range e.children {
			if stamp[c.index] != gen {
				stamp[c.index] = gen
				deps = append(deps, dependent{element: c, distance: 1})
			}
		}
		for i := 0; i < len(deps); i++ {
			d := deps[i]
			for _, c := range d.element.children {
				if stamp[c.index] != gen {
					stamp[c.index] = gen
					deps = append(deps, dependent{element: c, distance: d.distance + 1})
				}
			}
		}
		e.deps = deps
	}
}

// frame returns the transform the cell of role r is expressed relative to.
func (h *Hierarchy) frame(e *Element, r quadRole, p Pose) Transform {
	global := MakeTransformType(Global, p)
	switch r {
	case roleShape:
		return h.resolve(e, rolePose, global)
	case roleOffset:
		return h.parentBlend(e, p)
	}
	switch {
	case e.control != nil:
		return h.resolve(e, roleOffset, global)
	case e.IsA(ClassMultiParent):
		return h.parentBlend(e, p)
	case e.parent != nil:
		return h.resolve(e.parent, rolePose, global)
	}
	return Identity()
}

// resolve returns cell t of quad r, deriving it from the opposite cell when
// it is dirty.
func (h *Hierarchy) resolve(e *Element, r quadRole, t TransformType) Transform {
	s := h.store
	q := e.quad(r)
	if !q.isDirty(s, t) {
		return q.raw(s, t)
	}
	o := t.Opposite()
	if q.isDirty(s, o) {
		h.integrity("%s: %s and %s are both dirty", e.key, t, o)
		return Identity()
	}

	parent := h.frame(e, r, t.Pose())
	var v Transform
	if t.IsLocal() {
		v = q.raw(s, o).RelativeTo(parent)
		// Under a zero parent scale any local translation and scale map to the
		// same global, so the stored local is kept.
		if r == rolePose && v.hasZeroScale() && parent.hasZeroScale() {
			prev := q.raw(s, t)
			v.Translation = prev.Translation
			v.Scale = prev.Scale
		}
	} else {
		v = q.raw(s, o).Mul(parent)
	}
	if h.cfg.NormalizeRotations {
		v = v.NormalizeRotation()
	}
	q.store(s, t, v)
	q.markClean(s, t)
	h.stats.Recomputes++
	return v
}

func (h *Hierarchy) markDirty(e *Element, q *TransformQuad, t TransformType) {
	if err := q.markDirty(h.store, t); err != nil {
		h.integrity("%s: %v", e.key, err)
	}
}

// propagationTypes returns which cell of a dependent is brought up to date
// before a write and which one is flagged stale after it.
func propagationTypes(d *Element, p Pose, affectChildren bool) (compute, dirty TransformType) {
	compute = MakeTransformType(Global, p)
	if affectChildren {
		compute = MakeTransformType(Local, p)
	}
	dirty = compute.Opposite()
	// animation channels follow their host: their local value never goes stale
	if d.control != nil && d.control.settings.IsAnimationChannel() && dirty.IsLocal() {
		compute, dirty = dirty, compute
	}
	return compute, dirty
}

// propagate prepares the dependents of e for a change of e's Global
// transform in pose p. It runs before the change. First the cell each
// dependent keeps is computed from the still valid values, then the other
// cell is flagged stale. With affectChildren every transitive dependent keeps
// its Local; otherwise direct dependents keep their Global and nothing deeper
// moves.
func (h *Hierarchy) propagate(e *Element, p Pose, affectChildren bool) {
	h.ensureDependents()
	if len(e.deps) == 0 {
		return
	}
	s := h.store
	local := MakeTransformType(Local, p)
	global := local.Opposite()

	for _, d := range e.deps {
		if !affectChildren && d.distance > 1 {
			break
		}
		de := d.element
		compute, dirty := propagationTypes(de, p, affectChildren)
		if !affectChildren && compute.IsLocal() {
			// a channel follows e, so its own dependents follow it
			h.propagate(de, p, true)
		}
		if de.control != nil {
			h.resolve(de, roleOffset, local)
			h.resolve(de, roleShape, local)
		}
		if !de.pose.isDirty(s, dirty) {
			h.resolve(de, rolePose, compute)
		}
	}

	for _, d := range e.deps {
		if !affectChildren && d.distance > 1 {
			break
		}
		de := d.element
		_, dirty := propagationTypes(de, p, affectChildren)
		h.invalidateComposite(de, p)
		h.markDirty(de, &de.pose, dirty)
		if de.control != nil {
			h.markDirty(de, &de.control.offset, global)
			h.markDirty(de, &de.control.shape, global)
		}
	}
}

// preparePoseChange readies e for a change of its parent frame in pose p
// (new parents, new weights, new offset). With keepGlobal the element stays
// in place in global space and its Local goes stale; otherwise it keeps its
// Local, its Global goes stale and every dependent follows.
func (h *Hierarchy) preparePoseChange(e *Element, p Pose, keepGlobal bool) {
	if !e.IsA(ClassTransform) {
		return
	}
	local := MakeTransformType(Local, p)
	global := local.Opposite()
	if keepGlobal {
		h.resolve(e, rolePose, global)
	} else {
		h.propagate(e, p, true)
		h.resolve(e, rolePose, local)
	}
	if e.control != nil {
		h.resolve(e, roleOffset, local)
		h.resolve(e, roleShape, local)
	}

	if keepGlobal {
		h.markDirty(e, &e.pose, local)
	} else {
		h.markDirty(e, &e.pose, global)
	}
	if e.control != nil {
		h.markDirty(e, &e.control.offset, global)
		h.markDirty(e, &e.control.shape, global)
	}
	for i := range e.constraints {
		e.constraints[i].cacheDirty[p] = true
	}
}

func (h *Hierarchy) setTransform(e *Element, t TransformType, v Transform, affectChildren bool) {
	if !e.IsA(ClassTransform) {
		Logger().Debug("rig: ignoring transform write on element without a pose",
			slog.String("key", e.key.String()))
		return
	}
	if e.control != nil && t.IsGlobal() {
		v = v.RelativeTo(h.resolve(e, roleOffset, t))
		t = t.Opposite()
	}
	s := h.store
	if !e.pose.isDirty(s, t) && e.pose.raw(s, t).Equal(v, writeTolerance) {
		return
	}
	p := t.Pose()
	h.propagate(e, p, affectChildren)
	if e.control != nil {
		h.resolve(e, roleShape, MakeTransformType(Local, p))
	}
	e.pose.setClean(s, t, v)
	if e.control != nil {
		h.markDirty(e, &e.control.shape, MakeTransformType(Global, p))
	}
	h.afterMutation()
}

// GetTransform returns the transform of key in the given space and pose,
// computing it from the parent chain when the cached value is stale. The bool
// is false when key names no element with a pose.
func (h *Hierarchy) GetTransform(key Key, space Space, pose Pose) (Transform, bool) {
	e := h.byKey[key]
	if !e.IsA(ClassTransform) {
		return Identity(), false
	}
	return h.resolve(e, rolePose, MakeTransformType(space, pose)), true
}

// Transform is GetTransform for callers already holding the element.
func (h *Hierarchy) Transform(e *Element, t TransformType) Transform {
	if !e.IsA(ClassTransform) {
		return Identity()
	}
	return h.resolve(e, rolePose, t)
}

// IsDirty reports whether the cached cell of key is stale.
func (h *Hierarchy) IsDirty(key Key, space Space, pose Pose) bool {
	e := h.byKey[key]
	if !e.IsA(ClassTransform) {
		return false
	}
	return e.pose.isDirty(h.store, MakeTransformType(space, pose))
}

// SetTransform writes the transform of key. Dependents follow the element:
// they keep their Local transforms and their Global transforms go stale.
// Writes to unknown keys or elements without a pose are ignored. A Global
// write on a control is stored as the equivalent Local value.
func (h *Hierarchy) SetTransform(key Key, space Space, pose Pose, t Transform) {
	e := h.byKey[key]
	if e == nil {
		Logger().Debug("rig: ignoring transform write on unknown key", slog.String("key", key.String()))
		return
	}
	h.setTransform(e, MakeTransformType(space, pose), t, true)
}

// SetTransformKeepChildren writes the transform of key while its direct
// dependents stay where they are in global space.
func (h *Hierarchy) SetTransformKeepChildren(key Key, space Space, pose Pose, t Transform) {
	e := h.byKey[key]
	if e == nil {
		Logger().Debug("rig: ignoring transform write on unknown key", slog.String("key", key.String()))
		return
	}
	h.setTransform(e, MakeTransformType(space, pose), t, false)
}

// SetElementTransform is SetTransform for callers already holding the
// element.
func (h *Hierarchy) SetElementTransform(e *Element, t TransformType, v Transform, affectChildren bool) {
	if e == nil {
		panic("rig: SetElementTransform on nil element")
	}
	h.setTransform(e, t, v, affectChildren)
}

// GetControlOffset returns the offset transform of a control.
func (h *Hierarchy) GetControlOffset(key Key, space Space, pose Pose) (Transform, bool) {
	e := h.byKey[key]
	if e == nil || e.control == nil {
		return Identity(), false
	}
	return h.resolve(e, roleOffset, MakeTransformType(space, pose)), true
}

// SetControlOffset writes the offset of a control. The control keeps its
// Local value, so it and its dependents move.
func (h *Hierarchy) SetControlOffset(key Key, space Space, pose Pose, t Transform) bool {
	e := h.byKey[key]
	if e == nil || e.control == nil {
		return false
	}
	tt := MakeTransformType(space, pose)
	s := h.store
	q := &e.control.offset
	if !q.isDirty(s, tt) && q.raw(s, tt).Equal(t, writeTolerance) {
		return true
	}
	h.preparePoseChange(e, pose, false)
	q.setClean(s, tt, t)
	h.afterMutation()
	return true
}

// GetControlShape returns the shape transform of a control.
func (h *Hierarchy) GetControlShape(key Key, space Space, pose Pose) (Transform, bool) {
	e := h.byKey[key]
	if e == nil || e.control == nil {
		return Identity(), false
	}
	return h.resolve(e, roleShape, MakeTransformType(space, pose)), true
}

// SetControlShape writes the shape transform of a control. Nothing depends
// on a shape, so no propagation happens.
func (h *Hierarchy) SetControlShape(key Key, space Space, pose Pose, t Transform) bool {
	e := h.byKey[key]
	if e == nil || e.control == nil {
		return false
	}
	e.control.shape.setClean(h.store, MakeTransformType(space, pose), t)
	h.afterMutation()
	return true
}
