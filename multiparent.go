package rig

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ParentWeight is one entry of GetParentWeights.
type ParentWeight struct {
	Parent  Key    `json:"parent" yaml:"parent"`
	Current Weight `json:"current" yaml:"current"`
	Initial Weight `json:"initial" yaml:"initial"`
}

type channel uint8

const (
	channelLocation channel = iota
	channelRotation
	channelScale
)

func (w Weight) channel(c channel) float64 {
	switch c {
	case channelRotation:
		return w.Rotation
	case channelScale:
		return w.Scale
	}
	return w.Location
}

// invalidateComposite flags the blend of e stale for pose p and counts the
// transition.
func (h *Hierarchy) invalidateComposite(e *Element, p Pose) {
	if e.invalidateComposite(p) {
		h.stats.CompositeInvalidations++
	}
}

// parentBlend returns the blended parent transform of a multi-parent
// element, solving it when the cache is stale.
func (h *Hierarchy) parentBlend(e *Element, p Pose) Transform {
	c := &e.composite[p]
	if !c.dirty {
		return c.value
	}
	c.value = h.solveParents(e, p)
	c.dirty = false
	h.stats.CompositeSolves++
	return c.value
}

func (h *Hierarchy) constraintGlobal(e *Element, i int, p Pose) Transform {
	c := &e.constraints[i]
	if c.cacheDirty[p] {
		c.cache[p] = h.resolve(c.parent, rolePose, MakeTransformType(Global, p))
		c.cacheDirty[p] = false
	}
	return c.cache[p]
}

// affecting returns the constraints whose weight on channel ch exceeds the
// epsilon, and their total weight.
func (h *Hierarchy) affecting(e *Element, p Pose, ch channel, buf []int) ([]int, float64) {
	buf = buf[:0]
	total := 0.0
	for i := range e.constraints {
		w := e.constraints[i].weightFor(p).channel(ch)
		if w > h.cfg.WeightEpsilon {
			buf = append(buf, i)
			total += w
		}
	}
	return buf, total
}

// solveParents blends the Global transforms of every parent of e. Each
// channel is blended on its own: one parent is copied, two are interpolated,
// more are averaged by normalized weight. A channel no parent affects stays
// at Identity.
func (h *Hierarchy) solveParents(e *Element, p Pose) Transform {
	out := Identity()
	if len(e.constraints) == 0 {
		return out
	}
	var buf [8]int
	weight := func(i int, ch channel) float64 {
		return e.constraints[i].weightFor(p).channel(ch)
	}

	idx, total := h.affecting(e, p, channelLocation, buf[:])
	switch len(idx) {
	case 0:
	case 1:
		out.Translation = h.constraintGlobal(e, idx[0], p).Translation
	case 2:
		a := h.constraintGlobal(e, idx[0], p).Translation
		b := h.constraintGlobal(e, idx[1], p).Translation
		out.Translation = lerpVec(a, b, weight(idx[1], channelLocation)/total)
	default:
		var sum mgl64.Vec3
		for _, i := range idx {
			sum = sum.Add(h.constraintGlobal(e, i, p).Translation.Mul(weight(i, channelLocation) / total))
		}
		out.Translation = sum
	}

	idx, total = h.affecting(e, p, channelRotation, buf[:])
	switch len(idx) {
	case 0:
	case 1:
		out.Rotation = h.constraintGlobal(e, idx[0], p).Rotation
	case 2:
		a := h.constraintGlobal(e, idx[0], p).Rotation
		b := h.constraintGlobal(e, idx[1], p).Rotation
		out.Rotation = slerpShortest(a, b, weight(idx[1], channelRotation)/total)
	default:
		out.Rotation = h.averageRotation(e, p, idx, total)
	}

	idx, total = h.affecting(e, p, channelScale, buf[:])
	logBlend := h.cfg.ScaleBlend == ScaleBlendLog
	switch len(idx) {
	case 0:
	case 1:
		out.Scale = h.constraintGlobal(e, idx[0], p).Scale
	default:
		var sum mgl64.Vec3
		for _, i := range idx {
			s := h.constraintGlobal(e, i, p).Scale
			f := weight(i, channelScale) / total
			if logBlend {
				s = logVec(s)
			}
			sum = sum.Add(s.Mul(f))
		}
		if logBlend {
			sum = expVec(sum)
		}
		out.Scale = sum
	}

	return out.NormalizeRotation()
}

// averageRotation is the normalized weighted sum of the parent rotations,
// each flipped onto the hemisphere of the first one.
func (h *Hierarchy) averageRotation(e *Element, p Pose, idx []int, total float64) mgl64.Quat {
	var first, mixed mgl64.Quat
	for n, i := range idx {
		q := h.constraintGlobal(e, i, p).Rotation.Normalize()
		f := e.constraints[i].weightFor(p).Rotation / total
		if n == 0 {
			first = q
		} else if q.Dot(first) <= 0 {
			f = -f
		}
		mixed = mixed.Add(q.Scale(f))
	}
	if mixed.Len() < smallNumber {
		return first
	}
	return mixed.Normalize()
}

func lerpVec(a, b mgl64.Vec3, t float64) mgl64.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}

func slerpShortest(a, b mgl64.Quat, t float64) mgl64.Quat {
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	return mgl64.QuatSlerp(a, b, t).Normalize()
}

func logVec(v mgl64.Vec3) mgl64.Vec3 {
	var out mgl64.Vec3
	for i := range v {
		out[i] = math.Log(math.Max(math.Abs(v[i]), smallNumber))
	}
	return out
}

func expVec(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{math.Exp(v[0]), math.Exp(v[1]), math.Exp(v[2])}
}

// GetParentWeights returns the parents of child with their weights, in
// constraint order. A single-parent element reports its parent at full
// weight. Unknown keys yield nil.
func (h *Hierarchy) GetParentWeights(child Key) []ParentWeight {
	e := h.byKey[child]
	if e == nil {
		return nil
	}
	if e.IsA(ClassSingleParent) {
		if e.parent == nil {
			return nil
		}
		return []ParentWeight{{Parent: e.parent.key, Current: UniformWeight(1), Initial: UniformWeight(1)}}
	}
	out := make([]ParentWeight, len(e.constraints))
	for i, c := range e.constraints {
		out[i] = ParentWeight{Parent: c.parent.key, Current: c.weight, Initial: c.initialWeight}
	}
	return out
}

func (h *Hierarchy) weightTarget(op string, child Key) (*Element, error) {
	e := h.byKey[child]
	if e == nil {
		return nil, fmt.Errorf("%s %s: %w", op, child, ErrNotFound)
	}
	if !e.IsA(ClassMultiParent) {
		return nil, fmt.Errorf("%s %s: single parent element: %w", op, child, ErrIncompatibleParent)
	}
	if e.control != nil && e.control.settings.IsAnimationChannel() {
		return nil, fmt.Errorf("%s %s: animation channel: %w", op, child, ErrIncompatibleParent)
	}
	return e, nil
}

// SetParentWeight changes the weight of one parent of child for pose.
// Negative channels clamp to zero. The child keeps its Local transform, so
// it and its dependents move to the new blend.
func (h *Hierarchy) SetParentWeight(child, parent Key, w Weight, pose Pose) error {
	e, err := h.weightTarget("set parent weight", child)
	if err != nil {
		return err
	}
	i, ok := e.constraintIndex(parent)
	if !ok {
		return fmt.Errorf("set parent weight %s: parent %s: %w", child, parent, ErrNotFound)
	}
	w = w.clamped()
	if e.constraints[i].weightFor(pose).nearlyEqual(w) {
		return nil
	}
	h.preparePoseChange(e, pose, false)
	e.constraints[i].setWeight(pose, w)
	h.invalidateComposite(e, pose)
	h.emit(Event{Type: EventParentWeightsChanged, Key: child})
	h.afterMutation()
	return nil
}

// SetParentWeights replaces every parent weight of child for pose at once.
// weights must match the constraint order of GetParentWeights.
func (h *Hierarchy) SetParentWeights(child Key, weights []Weight, pose Pose) error {
	e, err := h.weightTarget("set parent weights", child)
	if err != nil {
		return err
	}
	if len(weights) != len(e.constraints) {
		return fmt.Errorf("set parent weights %s: got %d weights for %d parents", child, len(weights), len(e.constraints))
	}
	clamped := make([]Weight, len(weights))
	changed := false
	for i, w := range weights {
		clamped[i] = w.clamped()
		if !e.constraints[i].weightFor(pose).nearlyEqual(clamped[i]) {
			changed = true
		}
	}
	if !changed {
		return nil
	}
	h.preparePoseChange(e, pose, false)
	for i, w := range clamped {
		e.constraints[i].setWeight(pose, w)
	}
	h.invalidateComposite(e, pose)
	h.emit(Event{Type: EventParentWeightsChanged, Key: child})
	h.afterMutation()
	return nil
}

// SwitchToParent gives parent full weight and every other parent none. A
// parent child does not have yet is added first.
func (h *Hierarchy) SwitchToParent(child, parent Key, pose Pose) error {
	e, err := h.weightTarget("switch parent", child)
	if err != nil {
		return err
	}
	if active, ok := h.ActiveParent(child, pose); ok && active == parent && h.activeCount(e, pose) == 1 {
		return nil
	}
	if _, ok := e.constraintIndex(parent); !ok {
		if err := h.AddParent(child, parent, Weight{}); err != nil {
			return fmt.Errorf("switch parent %s: %w", child, err)
		}
	}
	weights := make([]Weight, len(e.constraints))
	weights[e.lookup[parent]] = UniformWeight(1)
	return h.SetParentWeights(child, weights, pose)
}

func (h *Hierarchy) activeCount(e *Element, p Pose) int {
	n := 0
	for i := range e.constraints {
		if !e.constraints[i].weightFor(p).IsAlmostZero() {
			n++
		}
	}
	return n
}

// ActiveParent returns the first parent of child with a non-zero weight.
func (h *Hierarchy) ActiveParent(child Key, pose Pose) (Key, bool) {
	e := h.byKey[child]
	if e == nil {
		return Key{}, false
	}
	if e.IsA(ClassSingleParent) {
		if e.parent == nil {
			return Key{}, false
		}
		return e.parent.key, true
	}
	for i := range e.constraints {
		if !e.constraints[i].weightFor(pose).IsAlmostZero() {
			return e.constraints[i].parent.key, true
		}
	}
	return Key{}, false
}
