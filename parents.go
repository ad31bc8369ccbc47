package rig

import "fmt"

// parentPair resolves and validates the two ends of a parent edit. parent is
// nil for the zero Key.
func (h *Hierarchy) parentPair(op string, child, parent Key) (*Element, *Element, error) {
	c := h.byKey[child]
	if c == nil {
		return nil, nil, fmt.Errorf("%s %s: %w", op, child, ErrNotFound)
	}
	if !c.IsA(ClassTransform) {
		return nil, nil, fmt.Errorf("%s %s: %s elements take no parent: %w", op, child, child.Kind, ErrIncompatibleParent)
	}
	if !parent.IsValid() {
		return c, nil, nil
	}
	p := h.byKey[parent]
	if p == nil {
		return nil, nil, fmt.Errorf("%s %s: parent %s: %w", op, child, parent, ErrNotFound)
	}
	if !p.IsA(ClassTransform) {
		return nil, nil, fmt.Errorf("%s %s: parent %s has no pose: %w", op, child, parent, ErrIncompatibleParent)
	}
	if p == c || h.isAncestor(c, p) {
		return nil, nil, fmt.Errorf("%s %s: parent %s: %w", op, child, parent, ErrCycle)
	}
	return c, p, nil
}

// isAncestor reports whether a is reachable from e by following parents.
func (h *Hierarchy) isAncestor(a, e *Element) bool {
	seen := make(map[*Element]bool)
	stack := e.parentElements()
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == a {
			return true
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		stack = append(stack, n.parentElements()...)
	}
	return false
}

// beginReparent readies child for a new parent frame in both poses.
func (h *Hierarchy) beginReparent(c *Element, keepGlobal bool) {
	for p := Pose(0); p < numPoses; p++ {
		h.preparePoseChange(c, p, keepGlobal)
	}
}

// endReparent finishes a structural parent edit on c.
func (h *Hierarchy) endReparent(c *Element) {
	for p := Pose(0); p < numPoses; p++ {
		h.invalidateComposite(c, p)
	}
	h.depsDirty = true
	if h.cfg.Debug {
		debugCheckTreeDepth(c)
		debugCheckParentCount(c)
	}
	h.emit(Event{Type: EventParentChanged, Key: c.key})
	h.afterMutation()
}

func newConstraint(p *Element, w Weight) parentConstraint {
	w = w.clamped()
	return parentConstraint{
		parent:        p,
		weight:        w,
		initialWeight: w,
		cacheDirty:    [numPoses]bool{true, true},
	}
}

// SetParent makes parent the only parent of child at full weight, replacing
// the whole constraint list in one step. The zero Key unparents child. The
// child keeps its Local transforms. A parent that would close a cycle is
// rejected with ErrCycle.
func (h *Hierarchy) SetParent(child, parent Key) error {
	c, p, err := h.parentPair("set parent", child, parent)
	if err != nil {
		return err
	}
	if c.IsA(ClassSingleParent) && c.parent == p {
		return nil
	}
	if c.IsA(ClassMultiParent) && len(c.constraints) == 1 && c.constraints[0].parent == p &&
		c.constraints[0].weight.nearlyEqual(UniformWeight(1)) &&
		c.constraints[0].initialWeight.nearlyEqual(UniformWeight(1)) {
		return nil
	}

	h.beginReparent(c, false)
	if c.IsA(ClassSingleParent) {
		c.parent = p
	} else {
		c.constraints = c.constraints[:0]
		if p != nil {
			c.constraints = append(c.constraints, newConstraint(p, UniformWeight(1)))
		}
		c.rebuildLookup()
	}
	h.endReparent(c)
	return nil
}

// AddParent adds parent to child with weight w for both poses. The child
// keeps its Local transforms. A single-parent element accepts a parent only
// while it has none.
func (h *Hierarchy) AddParent(child, parent Key, w Weight) error {
	c, p, err := h.parentPair("add parent", child, parent)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("add parent %s: %w", child, ErrNotFound)
	}
	if c.IsA(ClassSingleParent) {
		switch c.parent {
		case nil:
		case p:
			return fmt.Errorf("add parent %s: parent %s: %w", child, parent, ErrDuplicateKey)
		default:
			return fmt.Errorf("add parent %s: already parented to %s: %w", child, c.parent.key, ErrIncompatibleParent)
		}
		h.beginReparent(c, false)
		c.parent = p
		h.endReparent(c)
		return nil
	}

	if _, ok := c.lookup[parent]; ok {
		return fmt.Errorf("add parent %s: parent %s: %w", child, parent, ErrDuplicateKey)
	}
	h.beginReparent(c, false)
	c.constraints = append(c.constraints, newConstraint(p, w))
	c.lookup[parent] = len(c.constraints) - 1
	h.endReparent(c)
	return nil
}

// RemoveParent detaches parent from child. The child stays where it is in
// global space.
func (h *Hierarchy) RemoveParent(child, parent Key) error {
	c, p, err := h.parentPair("remove parent", child, parent)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("remove parent %s: %w", child, ErrNotFound)
	}
	if c.IsA(ClassSingleParent) && c.parent != p {
		return fmt.Errorf("remove parent %s: parent %s: %w", child, parent, ErrNotFound)
	}
	if c.IsA(ClassMultiParent) {
		if _, ok := c.lookup[parent]; !ok {
			return fmt.Errorf("remove parent %s: parent %s: %w", child, parent, ErrNotFound)
		}
	}
	h.beginReparent(c, true)
	c.dropParent(p)
	h.endReparent(c)
	return nil
}

// RemoveAllParents detaches every parent of child, keeping it in place in
// global space.
func (h *Hierarchy) RemoveAllParents(child Key) error {
	c, _, err := h.parentPair("remove all parents", child, Key{})
	if err != nil {
		return err
	}
	if c.NumParents() == 0 {
		return nil
	}
	h.beginReparent(c, true)
	c.parent = nil
	if c.IsA(ClassMultiParent) {
		c.constraints = c.constraints[:0]
		c.rebuildLookup()
	}
	h.endReparent(c)
	return nil
}
