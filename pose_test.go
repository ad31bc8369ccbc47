package rig

import "testing"

func TestResetPoseToInitial(t *testing.T) {
	h := NewHierarchy()
	h.SetDebugMode(true)
	keys := newChain(t, h, "root", "child")
	h.SetTransform(keys[0], Local, Initial, Translate(1, 0, 0))
	h.SetTransform(keys[1], Local, Initial, Translate(0, 1, 0))
	h.SetTransform(keys[0], Local, Current, Translate(5, 5, 5))
	h.SetTransform(keys[1], Global, Current, Translate(-3, 0, 0))

	h.ResetPoseToInitial()
	assertTransform(t, "root", local(t, h, keys[0]), Translate(1, 0, 0))
	assertTransform(t, "child", global(t, h, keys[1]), Translate(1, 1, 0))
}

func TestResetPoseToInitialByKind(t *testing.T) {
	h := NewHierarchy()
	h.MustCreateElement(KindBone, "b")
	h.MustCreateElement(KindNull, "n")
	h.SetTransform(bone("b"), Local, Current, Translate(1, 0, 0))
	h.SetTransform(null("n"), Local, Current, Translate(2, 0, 0))

	h.ResetPoseToInitial(KindNull)
	assertTransform(t, "bone kept", local(t, h, bone("b")), Translate(1, 0, 0))
	assertTransform(t, "null reset", local(t, h, null("n")), Identity())
}

func TestResetPoseRestoresInitialWeights(t *testing.T) {
	h := newTwoParentRig(t, Translate(1, 0, 0), Translate(0, 1, 0), UniformWeight(1), Weight{})
	_ = h.SwitchToParent(control("ctl"), bone("b"), Current)
	h.ResetPoseToInitial()
	if k, _ := h.ActiveParent(control("ctl"), Current); k != bone("a") {
		t.Errorf("ActiveParent = %s, want Bone:a", k)
	}
	// the bones themselves were reset to an Identity initial pose
	assertTransform(t, "control", global(t, h, control("ctl")), Identity())
}

func TestCopyPoseByKey(t *testing.T) {
	src := NewHierarchy()
	newChain(t, src, "root", "arm")
	src.SetTransform(bone("arm"), Local, Current, Translate(0, 3, 0))
	src.SetTransform(bone("root"), Local, Initial, Translate(9, 0, 0))

	dst := NewHierarchy()
	newChain(t, dst, "root", "arm", "extra")
	dst.SetTransform(bone("extra"), Local, Current, Translate(1, 0, 0))

	dst.CopyPose(src, true, false, false)
	assertTransform(t, "arm", local(t, dst, bone("arm")), Translate(0, 3, 0))
	assertTransform(t, "extra kept", global(t, dst, bone("extra")), Translate(1, 3, 0))
	if g, _ := dst.GetTransform(bone("root"), Local, Initial); !g.IsIdentity() {
		t.Errorf("initial pose copied without being asked: %+v", g)
	}
	if err := dst.CheckIntegrity(); err != nil {
		t.Error(err)
	}
}

func TestCopyPoseWeights(t *testing.T) {
	src := newTwoParentRig(t, Identity(), Identity(), UniformWeight(0.2), UniformWeight(0.8))
	dst := newTwoParentRig(t, Identity(), Identity(), UniformWeight(1), UniformWeight(1))
	dst.CopyPose(src, true, false, true)
	pw := dst.GetParentWeights(control("ctl"))
	if pw[0].Current != UniformWeight(0.2) || pw[1].Current != UniformWeight(0.8) {
		t.Errorf("weights = %+v", pw)
	}
}

func TestComputeAllTransformsCleansEverything(t *testing.T) {
	h := newTwoParentRig(t, Translate(1, 0, 0), Translate(0, 1, 0), UniformWeight(1), UniformWeight(1))
	h.SetControlOffset(control("ctl"), Local, Initial, Translate(0, 0, 1))
	h.ComputeAllTransforms()
	for _, e := range h.Elements() {
		for tt := TransformType(0); tt < numTransformTypes; tt++ {
			if h.IsDirty(e.Key(), tt.Space(), tt.Pose()) {
				t.Errorf("%s %s dirty after ComputeAllTransforms", e.Key(), tt)
			}
		}
	}
}

func TestCopyFromReplacesContents(t *testing.T) {
	src := NewHierarchy()
	newChain(t, src, "x", "y")
	src.SetInstructionIndex(4)

	dst := NewHierarchy()
	newChain(t, dst, "old")
	var rec recorder
	dst.AddListener(&rec)
	dst.CopyFrom(src)

	if dst.Contains(bone("old")) || dst.Len() != 2 {
		t.Fatalf("CopyFrom kept stale elements: Len=%d", dst.Len())
	}
	if dst.InstructionIndex() != 4 {
		t.Errorf("InstructionIndex = %d", dst.InstructionIndex())
	}
	if rec.count(EventElementRemoved) != 1 || rec.count(EventElementAdded) != 2 {
		t.Errorf("events = %v", rec.events)
	}
	if dst.Find(bone("y")).ParentElement() != dst.Find(bone("x")) {
		t.Error("parent not re-resolved")
	}
}
