package rig

import "testing"

func TestTransformTypeLayout(t *testing.T) {
	cases := []struct {
		s    Space
		p    Pose
		want TransformType
	}{
		{Local, Current, CurrentLocal},
		{Global, Current, CurrentGlobal},
		{Local, Initial, InitialLocal},
		{Global, Initial, InitialGlobal},
	}
	for _, c := range cases {
		got := MakeTransformType(c.s, c.p)
		if got != c.want {
			t.Errorf("MakeTransformType(%s, %s) = %s, want %s", c.s, c.p, got, c.want)
		}
		if got.Space() != c.s || got.Pose() != c.p {
			t.Errorf("%s splits into (%s, %s)", got, got.Space(), got.Pose())
		}
		if got.Opposite().Pose() != c.p || got.Opposite().Space() == c.s {
			t.Errorf("%s.Opposite() = %s", got, got.Opposite())
		}
	}
}

func TestQuadSetCleanFlagsOpposite(t *testing.T) {
	s := newStorage()
	var q TransformQuad
	q.allocate(s)
	q.setClean(s, CurrentLocal, Translate(1, 2, 3))
	if q.isDirty(s, CurrentLocal) || !q.isDirty(s, CurrentGlobal) {
		t.Error("setClean should leave the target clean and the opposite dirty")
	}
	if q.isDirty(s, InitialLocal) || q.isDirty(s, InitialGlobal) {
		t.Error("setClean touched the other pose")
	}
}

func TestQuadMarkDirtyRefusesBothDirty(t *testing.T) {
	s := newStorage()
	var q TransformQuad
	q.allocate(s)
	if err := q.markDirty(s, InitialGlobal); err != nil {
		t.Fatalf("first markDirty: %v", err)
	}
	if err := q.markDirty(s, InitialLocal); err == nil {
		t.Error("marking both spaces of a pose dirty should fail")
	}
	if _, ok := q.dirtyPairOK(s); !ok {
		t.Error("refused markDirty still broke the invariant")
	}
}

func TestQuadReleaseAndLinked(t *testing.T) {
	s := newStorage()
	var q TransformQuad
	q.allocate(s)
	if !q.linked(s) {
		t.Fatal("fresh quad not linked")
	}
	q.release(s)
	if q.linked(s) {
		t.Error("released quad still linked")
	}
	if s.transforms.Live() != 0 || s.flags.Live() != 0 {
		t.Errorf("release left %d transforms, %d flags", s.transforms.Live(), s.flags.Live())
	}
}

func TestQuadCopyFromOtherStorage(t *testing.T) {
	src, dst := newStorage(), newStorage()
	var a, b TransformQuad
	a.allocate(src)
	b.allocate(dst)
	a.setClean(src, InitialGlobal, Translate(0, 4, 0))
	b.copyFrom(dst, &a, src)
	assertTransform(t, "copied", b.raw(dst, InitialGlobal), Translate(0, 4, 0))
	if !b.isDirty(dst, InitialLocal) {
		t.Error("dirty flags were not copied")
	}
}
