package rig

import (
	"errors"
	"fmt"
	"log/slog"
)

// Stats counts cache work since the hierarchy was created or since the last
// ResetStats.
type Stats struct {
	// Recomputes counts cells derived from their opposite cell.
	Recomputes int
	// CompositeSolves counts multi-parent blends that were recomputed.
	CompositeSolves int
	// CompositeInvalidations counts clean-to-dirty transitions of blend
	// caches.
	CompositeInvalidations int
}

// Stats returns the cache counters.
func (h *Hierarchy) Stats() Stats { return h.stats }

// ResetStats zeroes the cache counters.
func (h *Hierarchy) ResetStats() { h.stats = Stats{} }

// integrity reports a programmer error: it panics in debug mode and logs a
// warning otherwise.
func (h *Hierarchy) integrity(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if h.cfg.Debug {
		panic("rig debug: " + msg)
	}
	Logger().Warn("rig: integrity error", slog.String("detail", msg))
}

// CheckIntegrity verifies every element: all storage handles live, no pose
// with both spaces dirty, no reference to an element outside the hierarchy,
// no parent cycle. It returns every problem found, joined.
func (h *Hierarchy) CheckIntegrity() error {
	var errs []error
	for i, e := range h.elements {
		if e.index != i {
			errs = append(errs, fmt.Errorf("%s: index %d stored at %d", e.key, e.index, i))
		}
		if h.byKey[e.key] != e {
			errs = append(errs, fmt.Errorf("%s: key table out of sync", e.key))
		}
		if !e.linked(h.store) {
			errs = append(errs, fmt.Errorf("%s: unlinked storage", e.key))
			continue
		}
		for _, q := range e.quads() {
			if t, ok := q.dirtyPairOK(h.store); !ok {
				errs = append(errs, fmt.Errorf("%s: %s and %s both dirty", e.key, t, t.Opposite()))
			}
		}
		for _, p := range e.parentElements() {
			if p == nil || h.byKey[p.key] != p {
				errs = append(errs, fmt.Errorf("%s: dangling parent reference", e.key))
			}
		}
		if e.IsA(ClassMultiParent) && len(e.lookup) != len(e.constraints) {
			errs = append(errs, fmt.Errorf("%s: parent lookup out of sync", e.key))
		}
	}
	if len(errs) == 0 && len(h.TopologicalOrder()) != len(h.elements) {
		errs = append(errs, ErrCycle)
	}
	return errors.Join(errs...)
}

// debugMaxTreeDepth is the parent chain length above which debug mode warns.
const debugMaxTreeDepth = 64

func debugCheckTreeDepth(e *Element) {
	depth := 0
	for p := e; p != nil; {
		depth++
		parents := p.parentElements()
		if len(parents) == 0 || depth > debugMaxTreeDepth {
			break
		}
		p = parents[0]
	}
	if depth > debugMaxTreeDepth {
		Logger().Warn("rig: deep hierarchy",
			slog.String("key", e.key.String()),
			slog.Int("threshold", debugMaxTreeDepth))
	}
}

// debugMaxParentCount is the constraint count above which debug mode warns.
const debugMaxParentCount = 16

func debugCheckParentCount(e *Element) {
	if n := len(e.constraints); n > debugMaxParentCount {
		Logger().Warn("rig: element has many parents",
			slog.String("key", e.key.String()),
			slog.Int("parents", n),
			slog.Int("threshold", debugMaxParentCount))
	}
}
