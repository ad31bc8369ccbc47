package rig

import (
	"fmt"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// ParentSwitch blends a multi-parent element from its current parent weights
// to a single target parent over time. Create one with NewParentSwitch and
// call Update(dt) each frame; the switch writes weights
// into the hierarchy on every update.
//
// There is no global animation manager; callers drive Update themselves.
type ParentSwitch struct {
	h        *Hierarchy
	child    Key
	target   int
	pose     Pose
	start    []Weight
	tween    *gween.Tween
	progress float64
	Done     bool
}

// NewParentSwitch starts a blend of child towards parent over duration
// seconds using fn. A parent child does not have yet is added at zero
// weight.
func NewParentSwitch(h *Hierarchy, child, parent Key, pose Pose, duration float32, fn ease.TweenFunc) (*ParentSwitch, error) {
	e, err := h.weightTarget("switch parent", child)
	if err != nil {
		return nil, err
	}
	if _, ok := e.constraintIndex(parent); !ok {
		if err := h.AddParent(child, parent, Weight{}); err != nil {
			return nil, fmt.Errorf("switch parent %s: %w", child, err)
		}
	}
	if fn == nil {
		fn = ease.Linear
	}
	s := &ParentSwitch{
		h:      h,
		child:  child,
		target: e.lookup[parent],
		pose:   pose,
		start:  make([]Weight, len(e.constraints)),
		tween:  gween.New(0, 1, duration, fn),
	}
	for i := range e.constraints {
		s.start[i] = e.constraints[i].weightFor(pose)
	}
	return s, nil
}

// Update advances the blend by dt seconds. If the child was removed or its
// parents changed, Done is set and no weights are written.
func (s *ParentSwitch) Update(dt float32) error {
	if s.Done {
		return nil
	}
	e := s.h.byKey[s.child]
	if e == nil || len(e.constraints) != len(s.start) {
		s.Done = true
		return nil
	}
	v, finished := s.tween.Update(dt)
	t := float64(v)
	weights := make([]Weight, len(s.start))
	for i, w := range s.start {
		goal := Weight{}
		if i == s.target {
			goal = UniformWeight(1)
		}
		weights[i] = Weight{
			Location: w.Location + (goal.Location-w.Location)*t,
			Rotation: w.Rotation + (goal.Rotation-w.Rotation)*t,
			Scale:    w.Scale + (goal.Scale-w.Scale)*t,
		}
	}
	s.progress = t
	s.Done = finished
	return s.h.SetParentWeights(s.child, weights, s.pose)
}

// Progress returns the eased blend factor in [0, 1] reached so far.
func (s *ParentSwitch) Progress() float64 { return s.progress }
