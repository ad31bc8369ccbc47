package rig

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/tanema/gween/ease"
)

func TestParentSwitchBlendsToTarget(t *testing.T) {
	h := newTwoParentRig(t, Translate(10, 0, 0), Translate(0, 10, 0), UniformWeight(1), Weight{})
	sw, err := NewParentSwitch(h, control("ctl"), bone("b"), Current, 1, ease.Linear)
	if err != nil {
		t.Fatal(err)
	}

	if err := sw.Update(0.5); err != nil {
		t.Fatal(err)
	}
	if sw.Done {
		t.Fatal("done halfway")
	}
	assertNear(t, "progress", sw.Progress(), 0.5)
	assertVec(t, "halfway", global(t, h, control("ctl")).Translation, mgl64.Vec3{5, 5, 0})

	if err := sw.Update(0.6); err != nil {
		t.Fatal(err)
	}
	if !sw.Done {
		t.Error("not done after the full duration")
	}
	assertTransform(t, "end", global(t, h, control("ctl")), Translate(0, 10, 0))
	if k, _ := h.ActiveParent(control("ctl"), Current); k != bone("b") {
		t.Errorf("ActiveParent = %s", k)
	}
}

func TestParentSwitchAddsMissingParent(t *testing.T) {
	h := newTwoParentRig(t, Identity(), Identity(), UniformWeight(1), UniformWeight(1))
	h.MustCreateElement(KindBone, "c")
	h.SetTransform(bone("c"), Global, Current, Translate(0, 0, 4))

	sw, err := NewParentSwitch(h, control("ctl"), bone("c"), Current, 0.25, nil)
	if err != nil {
		t.Fatal(err)
	}
	if n := len(h.GetParentWeights(control("ctl"))); n != 3 {
		t.Fatalf("parents = %d, want 3", n)
	}
	for !sw.Done {
		if err := sw.Update(0.1); err != nil {
			t.Fatal(err)
		}
	}
	assertTransform(t, "end", global(t, h, control("ctl")), Translate(0, 0, 4))
}

func TestParentSwitchStopsWhenParentsChange(t *testing.T) {
	h := newTwoParentRig(t, Identity(), Identity(), UniformWeight(1), Weight{})
	sw, err := NewParentSwitch(h, control("ctl"), bone("b"), Current, 1, ease.OutQuad)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.RemoveElement(bone("a")); err != nil {
		t.Fatal(err)
	}
	if err := sw.Update(0.1); err != nil {
		t.Fatal(err)
	}
	if !sw.Done {
		t.Error("switch kept running after the parent list changed")
	}
}

func TestParentSwitchRejectsBones(t *testing.T) {
	h := NewHierarchy()
	newChain(t, h, "a", "b")
	if _, err := NewParentSwitch(h, bone("b"), bone("a"), Current, 1, ease.Linear); err == nil {
		t.Error("switch on a single-parent element accepted")
	}
}
