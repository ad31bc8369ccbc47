package rig

import (
	"errors"
	"testing"
)

func TestSetParentRejectsCycles(t *testing.T) {
	h := NewHierarchy()
	keys := newChain(t, h, "a", "b", "c")
	if err := h.SetParent(keys[0], keys[2]); !errors.Is(err, ErrCycle) {
		t.Errorf("SetParent(a, c) = %v, want ErrCycle", err)
	}
	if err := h.SetParent(keys[1], keys[1]); !errors.Is(err, ErrCycle) {
		t.Errorf("SetParent(b, b) = %v, want ErrCycle", err)
	}
	if h.Find(keys[0]).ParentElement() != nil {
		t.Error("rejected edit changed the hierarchy")
	}
}

func TestAddParentRejectsCyclesThroughNulls(t *testing.T) {
	h := NewHierarchy()
	h.MustCreateElement(KindNull, "x")
	h.MustCreateElement(KindNull, "y")
	h.MustCreateElement(KindBone, "z")
	_ = h.AddParent(null("y"), null("x"), UniformWeight(1))
	_ = h.AddParent(bone("z"), null("y"), UniformWeight(1))
	if err := h.AddParent(null("x"), bone("z"), UniformWeight(1)); !errors.Is(err, ErrCycle) {
		t.Errorf("AddParent(x, z) = %v, want ErrCycle", err)
	}
}

func TestSetParentKeepsLocal(t *testing.T) {
	h := NewHierarchy()
	h.MustCreateElement(KindBone, "root")
	h.MustCreateElement(KindBone, "child")
	h.SetTransform(bone("root"), Global, Current, Translate(10, 0, 0))
	h.SetTransform(bone("child"), Local, Current, Translate(1, 0, 0))

	if err := h.SetParent(bone("child"), bone("root")); err != nil {
		t.Fatal(err)
	}
	assertTransform(t, "local", local(t, h, bone("child")), Translate(1, 0, 0))
	assertTransform(t, "global", global(t, h, bone("child")), Translate(11, 0, 0))
}

func TestRemoveParentKeepsGlobal(t *testing.T) {
	h := NewHierarchy()
	keys := newChain(t, h, "root", "child")
	h.SetTransform(keys[0], Global, Current, Translate(10, 0, 0))
	h.SetTransform(keys[1], Local, Current, Translate(1, 0, 0))

	if err := h.RemoveParent(keys[1], keys[0]); err != nil {
		t.Fatal(err)
	}
	assertTransform(t, "global", global(t, h, keys[1]), Translate(11, 0, 0))
	assertTransform(t, "local", local(t, h, keys[1]), Translate(11, 0, 0))
	if err := h.RemoveParent(keys[1], keys[0]); !errors.Is(err, ErrNotFound) {
		t.Errorf("second RemoveParent = %v, want ErrNotFound", err)
	}
}

func TestSetParentZeroKeyUnparents(t *testing.T) {
	h := NewHierarchy()
	keys := newChain(t, h, "root", "child")
	if err := h.SetParent(keys[1], Key{}); err != nil {
		t.Fatal(err)
	}
	if h.Find(keys[1]).NumParents() != 0 {
		t.Error("child still parented")
	}
}

func TestSetParentReplacesConstraints(t *testing.T) {
	h := newTwoParentRig(t, Translate(1, 0, 0), Translate(0, 1, 0), UniformWeight(1), UniformWeight(1))
	h.MustCreateElement(KindBone, "c")
	h.SetTransform(bone("c"), Global, Current, Translate(0, 0, 5))

	if err := h.SetParent(control("ctl"), bone("c")); err != nil {
		t.Fatal(err)
	}
	pw := h.GetParentWeights(control("ctl"))
	if len(pw) != 1 || pw[0].Parent != bone("c") {
		t.Fatalf("GetParentWeights = %+v", pw)
	}
	assertTransform(t, "global", global(t, h, control("ctl")), Translate(0, 0, 5))
}

func TestAddParentErrors(t *testing.T) {
	h := NewHierarchy()
	keys := newChain(t, h, "a", "b")
	h.MustCreateElement(KindBone, "c")
	h.MustCreateElement(KindCurve, "k")
	h.MustCreateElement(KindNull, "n")

	if err := h.AddParent(keys[1], bone("c"), UniformWeight(1)); !errors.Is(err, ErrIncompatibleParent) {
		t.Errorf("second parent on a bone: %v", err)
	}
	if err := h.AddParent(keys[1], keys[0], UniformWeight(1)); !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("same parent on a bone: %v", err)
	}
	if err := h.AddParent(null("n"), NewKey(KindCurve, "k"), UniformWeight(1)); !errors.Is(err, ErrIncompatibleParent) {
		t.Errorf("curve parent: %v", err)
	}
	if err := h.AddParent(NewKey(KindCurve, "k"), keys[0], UniformWeight(1)); !errors.Is(err, ErrIncompatibleParent) {
		t.Errorf("curve child: %v", err)
	}
	if err := h.AddParent(null("n"), bone("missing"), UniformWeight(1)); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing parent: %v", err)
	}
	_ = h.AddParent(null("n"), keys[0], UniformWeight(1))
	if err := h.AddParent(null("n"), keys[0], UniformWeight(1)); !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("duplicate constraint: %v", err)
	}
}

func TestRemoveAllParents(t *testing.T) {
	h := newTwoParentRig(t, Translate(2, 0, 0), Translate(0, 2, 0), UniformWeight(1), UniformWeight(1))
	before := global(t, h, control("ctl"))
	if err := h.RemoveAllParents(control("ctl")); err != nil {
		t.Fatal(err)
	}
	if len(h.Parents(control("ctl"))) != 0 {
		t.Error("parents left")
	}
	assertTransform(t, "global", global(t, h, control("ctl")), before)
}

func TestDeepHierarchyWarnsInDebug(t *testing.T) {
	h := NewHierarchy()
	h.SetDebugMode(true)
	names := make([]string, debugMaxTreeDepth+2)
	for i := range names {
		names[i] = "b" + string(rune('0'+i%10)) + string(rune('a'+i/10))
	}
	keys := newChain(t, h, names...)
	h.SetTransform(keys[0], Local, Current, Translate(1, 0, 0))
	assertTransform(t, "tip", global(t, h, keys[len(keys)-1]), Translate(1, 0, 0))
}
