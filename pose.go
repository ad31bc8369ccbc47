package rig

import "slices"

// resolveLocals brings every Local cell of pose p up to date, so that Globals
// can be flagged stale afterwards without losing information.
func (h *Hierarchy) resolveLocals(p Pose) {
	local := MakeTransformType(Local, p)
	for _, e := range h.elements {
		if !e.IsA(ClassTransform) {
			continue
		}
		h.resolve(e, rolePose, local)
		if e.control != nil {
			h.resolve(e, roleOffset, local)
			h.resolve(e, roleShape, local)
		}
	}
}

// staleGlobals flags every Global cell of pose p stale.
func (h *Hierarchy) staleGlobals(p Pose) {
	global := MakeTransformType(Global, p)
	for _, e := range h.elements {
		if !e.IsA(ClassTransform) {
			continue
		}
		h.markDirty(e, &e.pose, global)
		if e.control != nil {
			h.markDirty(e, &e.control.offset, global)
			h.markDirty(e, &e.control.shape, global)
		}
		h.invalidateComposite(e, p)
	}
}

func cleanStore(s *storage, q *TransformQuad, t TransformType, v Transform) {
	q.store(s, t, v)
	q.markClean(s, t)
}

// ResetPoseToInitial copies the Initial Local pose (and Initial parent
// weights) of the given kinds into the Current pose. No kinds means every
// kind. Elements that are not reset keep their Current Local transforms.
func (h *Hierarchy) ResetPoseToInitial(kinds ...ElementKind) {
	h.resolveLocals(Current)
	s := h.store
	for _, e := range h.elements {
		if !e.IsA(ClassTransform) || (len(kinds) > 0 && !slices.Contains(kinds, e.key.Kind)) {
			continue
		}
		cleanStore(s, &e.pose, CurrentLocal, h.resolve(e, rolePose, InitialLocal))
		if e.control != nil {
			cleanStore(s, &e.control.offset, CurrentLocal, h.resolve(e, roleOffset, InitialLocal))
			cleanStore(s, &e.control.shape, CurrentLocal, h.resolve(e, roleShape, InitialLocal))
		}
		for i := range e.constraints {
			e.constraints[i].weight = e.constraints[i].initialWeight
		}
	}
	h.staleGlobals(Current)
	h.afterMutation()
}

// ResetCurveValues zeroes every curve and clears its set flag.
func (h *Hierarchy) ResetCurveValues() {
	for _, e := range h.byKind[KindCurve] {
		h.store.curves.Set(e.curve.value, 0)
		e.curve.set = false
	}
}

// CopyPose copies Local poses from src into the elements of h with the same
// key. current and initial select the poses; weights also copies the
// weights of parents both hierarchies share.
func (h *Hierarchy) CopyPose(src *Hierarchy, current, initial, weights bool) {
	if src == nil || src == h {
		return
	}
	var poses []Pose
	if current {
		poses = append(poses, Current)
	}
	if initial {
		poses = append(poses, Initial)
	}
	s := h.store
	for _, p := range poses {
		h.resolveLocals(p)
		local := MakeTransformType(Local, p)
		for _, e := range h.elements {
			se := src.byKey[e.key]
			if se == nil || !e.IsA(ClassTransform) {
				continue
			}
			cleanStore(s, &e.pose, local, src.resolve(se, rolePose, local))
			if e.control != nil {
				cleanStore(s, &e.control.offset, local, src.resolve(se, roleOffset, local))
				cleanStore(s, &e.control.shape, local, src.resolve(se, roleShape, local))
			}
			if weights && e.IsA(ClassMultiParent) {
				for i := range e.constraints {
					if j, ok := se.lookup[e.constraints[i].parent.key]; ok {
						e.constraints[i].setWeight(p, se.constraints[j].weightFor(p))
					}
				}
			}
		}
		h.staleGlobals(p)
	}
	h.afterMutation()
}

// ComputeAllTransforms resolves every cell of every element, parents first.
// Afterwards no cell is dirty.
func (h *Hierarchy) ComputeAllTransforms() {
	for _, e := range h.TopologicalOrder() {
		if !e.IsA(ClassTransform) {
			continue
		}
		for t := TransformType(0); t < numTransformTypes; t++ {
			h.resolve(e, rolePose, t)
			if e.control != nil {
				h.resolve(e, roleOffset, t)
				h.resolve(e, roleShape, t)
			}
		}
	}
}

// Clone returns a deep copy of h with fresh storage.
func (h *Hierarchy) Clone() *Hierarchy {
	out := NewHierarchyWithConfig(h.cfg)
	out.CopyFrom(h)
	return out
}

// CopyFrom replaces the contents of h with a copy of src. Every element gets
// fresh storage slots and every parent reference is looked up again by key
// in h. h keeps its own configuration and listeners.
func (h *Hierarchy) CopyFrom(src *Hierarchy) {
	if src == nil || src == h {
		return
	}
	h.Reset()
	s := h.store
	for _, se := range src.elements {
		e := &Element{
			key:       se.key,
			index:     se.index,
			subIndex:  se.subIndex,
			createdAt: se.createdAt,
			selected:  se.selected,
			boneType:  se.boneType,
			worldFunc: se.worldFunc,
		}
		if se.control != nil {
			e.control = &controlData{settings: se.control.settings}
		}
		if se.curve != nil {
			e.curve = &curveData{set: se.curve.set}
		}
		if se.physics != nil {
			ps := *se.physics
			e.physics = &ps
		}
		if se.connector != nil {
			cs := *se.connector
			e.connector = &cs
		}
		if se.socket != nil {
			ss := *se.socket
			e.socket = &ss
		}
		if e.IsA(ClassMultiParent) {
			e.lookup = make(map[Key]int, len(se.constraints))
			for p := range e.composite {
				e.composite[p] = compositeCache{value: Identity(), dirty: true}
			}
		}
		e.allocate(s)

		srcQuads, dstQuads := se.quads(), e.quads()
		for i := range dstQuads {
			dstQuads[i].copyFrom(s, srcQuads[i], src.store)
		}
		if e.curve != nil {
			s.curves.Set(e.curve.value, src.store.curves.Get(se.curve.value))
		}

		h.elements = append(h.elements, e)
		h.byKey[e.key] = e
		h.byKind[e.key.Kind] = append(h.byKind[e.key.Kind], e)
	}

	for i, se := range src.elements {
		e := h.elements[i]
		if se.parent != nil {
			e.parent = h.byKey[se.parent.key]
		}
		for _, sc := range se.constraints {
			c := newConstraint(h.byKey[sc.parent.key], sc.weight)
			c.initialWeight = sc.initialWeight
			e.constraints = append(e.constraints, c)
		}
		if e.lookup != nil {
			e.rebuildLookup()
		}
	}
	h.depsDirty = true
	h.instruction = src.instruction

	for _, e := range h.elements {
		h.emit(Event{Type: EventElementAdded, Key: e.key})
	}
	h.afterMutation()
}
