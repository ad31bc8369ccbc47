package rig

import "fmt"

// storage is the set of pools an element's cells live in. It is passed
// explicitly to every cell operation; elements keep no pointer back to
// their hierarchy.
type storage struct {
	transforms *StoragePool[Transform]
	flags      *StoragePool[bool]
	curves     *StoragePool[float64]
}

func newStorage() *storage {
	return &storage{
		transforms: NewStoragePool[Transform]("transform", Identity()),
		flags:      NewStoragePool[bool]("dirty", false),
		curves:     NewStoragePool[float64]("curve", 0),
	}
}

func (s *storage) setStrict(strict bool) {
	s.transforms.SetStrict(strict)
	s.flags.SetStrict(strict)
	s.curves.SetStrict(strict)
}

// computedTransform is one cached cell: a transform slot and a dirty flag
// slot.
type computedTransform struct {
	value Handle
	dirty Handle
}

// TransformQuad holds the four (space x pose) cells of one transform.
// For each pose at most one of Local and Global is dirty.
type TransformQuad struct {
	cells [numTransformTypes]computedTransform
}

// allocate reserves the quad's slots: all values Identity, all flags clean.
func (q *TransformQuad) allocate(s *storage) {
	values := s.transforms.Allocate(int(numTransformTypes), Identity())
	flags := s.flags.Allocate(int(numTransformTypes), false)
	for i := range q.cells {
		q.cells[i] = computedTransform{value: values[i], dirty: flags[i]}
	}
}

// release returns every slot of the quad to the pools.
func (q *TransformQuad) release(s *storage) {
	for i := range q.cells {
		s.transforms.Deallocate(&q.cells[i].value)
		s.flags.Deallocate(&q.cells[i].dirty)
	}
}

// relink applies Shrink remaps to every handle of the quad.
func (q *TransformQuad) relink(s *storage, transforms, flags map[int]int) {
	for i := range q.cells {
		s.transforms.Relink(&q.cells[i].value, transforms)
		s.flags.Relink(&q.cells[i].dirty, flags)
	}
}

// linked reports whether every slot of the quad is live.
func (q *TransformQuad) linked(s *storage) bool {
	for _, c := range q.cells {
		if !s.transforms.Valid(c.value) || !s.flags.Valid(c.dirty) {
			return false
		}
	}
	return true
}

func (q *TransformQuad) raw(s *storage, t TransformType) Transform {
	return s.transforms.Get(q.cells[t].value)
}

func (q *TransformQuad) store(s *storage, t TransformType, v Transform) {
	s.transforms.Set(q.cells[t].value, v)
}

func (q *TransformQuad) isDirty(s *storage, t TransformType) bool {
	return s.flags.Get(q.cells[t].dirty)
}

// markDirty flags t stale. The opposite cell must be clean, otherwise the
// pose would have no authoritative value left.
func (q *TransformQuad) markDirty(s *storage, t TransformType) error {
	if q.isDirty(s, t.Opposite()) {
		return fmt.Errorf("mark %s dirty while %s is dirty", t, t.Opposite())
	}
	s.flags.Set(q.cells[t].dirty, true)
	return nil
}

func (q *TransformQuad) markClean(s *storage, t TransformType) {
	s.flags.Set(q.cells[t].dirty, false)
}

// setClean stores v as the authoritative value of t and flags the opposite
// cell stale.
func (q *TransformQuad) setClean(s *storage, t TransformType, v Transform) {
	q.store(s, t, v)
	q.markClean(s, t)
	s.flags.Set(q.cells[t.Opposite()].dirty, true)
}

// copyFrom copies values and flags of another quad, possibly living in
// another storage.
func (q *TransformQuad) copyFrom(s *storage, src *TransformQuad, srcStorage *storage) {
	for i := range q.cells {
		s.transforms.Set(q.cells[i].value, srcStorage.transforms.Get(src.cells[i].value))
		s.flags.Set(q.cells[i].dirty, srcStorage.flags.Get(src.cells[i].dirty))
	}
}

// dirtyPairOK reports whether the invariant holds for every pose.
func (q *TransformQuad) dirtyPairOK(s *storage) (TransformType, bool) {
	for p := Pose(0); p < numPoses; p++ {
		l := MakeTransformType(Local, p)
		if q.isDirty(s, l) && q.isDirty(s, l.Opposite()) {
			return l, false
		}
	}
	return 0, true
}
