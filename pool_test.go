package rig

import (
	"math/rand/v2"
	"testing"
)

func assertPanics(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s: expected panic", name)
		}
	}()
	fn()
}

func TestPoolAllocateReusesFreeSlots(t *testing.T) {
	p := NewStoragePool[int]("test", -1)
	hs := p.Allocate(3, 7)
	if p.Len() != 3 || p.Live() != 3 {
		t.Fatalf("Len=%d Live=%d, want 3/3", p.Len(), p.Live())
	}
	p.Deallocate(&hs[1])
	if !hs[1].IsZero() {
		t.Error("Deallocate should clear the handle")
	}
	if p.Free() != 1 {
		t.Errorf("Free = %d, want 1", p.Free())
	}
	h := p.AllocateOne(9)
	if h.Index() != 1 {
		t.Errorf("reused index = %d, want 1", h.Index())
	}
	if p.Len() != 3 {
		t.Errorf("Len = %d, want 3 (no growth)", p.Len())
	}
	if got := p.Get(h); got != 9 {
		t.Errorf("Get = %d, want 9", got)
	}
}

func TestPoolStaleHandle(t *testing.T) {
	p := NewStoragePool[int]("test", -1)
	old := p.AllocateOne(5)
	stale := old
	p.Deallocate(&old)
	fresh := p.AllocateOne(6)
	if stale.Index() != fresh.Index() {
		t.Fatal("expected slot reuse")
	}
	if p.Valid(stale) {
		t.Error("stale handle reported valid")
	}
	if got := p.Get(stale); got != -1 {
		t.Errorf("Get(stale) = %d, want fallback -1", got)
	}
	p.Set(stale, 100)
	if got := p.Get(fresh); got != 6 {
		t.Errorf("write through stale handle leaked: %d", got)
	}
}

func TestPoolDoubleFreeIgnored(t *testing.T) {
	p := NewStoragePool[int]("test", 0)
	h := p.AllocateOne(1)
	dup := h
	p.Deallocate(&h)
	p.Deallocate(&dup)
	if p.Free() != 1 {
		t.Errorf("Free = %d after double free, want 1", p.Free())
	}
}

func TestPoolStrictPanics(t *testing.T) {
	p := NewStoragePool[int]("test", 0)
	p.SetStrict(true)
	h := p.AllocateOne(1)
	dup := h
	p.Deallocate(&h)
	assertPanics(t, "double free", func() { p.Deallocate(&dup) })
	assertPanics(t, "stale read", func() { p.Get(dup) })
}

func TestPoolZeroHandle(t *testing.T) {
	p := NewStoragePool[int]("test", 0)
	p.SetStrict(true)
	var h Handle
	p.Deallocate(&h) // no-op, no panic
	if p.Valid(h) {
		t.Error("zero handle reported valid")
	}
	if p.Allocate(0, 1) != nil {
		t.Error("Allocate(0) should return nil")
	}
}

func TestPoolShrinkPreservesLiveValues(t *testing.T) {
	p := NewStoragePool[int]("test", -1)
	hs := p.Allocate(6, 0)
	for i := range hs {
		p.Set(hs[i], i*10)
	}
	p.Deallocate(&hs[0])
	p.Deallocate(&hs[3])

	var destroyed []int
	remap := p.Shrink(func(i int) { destroyed = append(destroyed, i) })
	if len(destroyed) != 2 {
		t.Errorf("onDestroy saw %d slots, want 2", len(destroyed))
	}
	if p.Len() != 4 || p.Free() != 0 {
		t.Fatalf("after Shrink Len=%d Free=%d, want 4/0", p.Len(), p.Free())
	}
	for i := range hs {
		if hs[i].IsZero() {
			continue
		}
		p.Relink(&hs[i], remap)
		if got := p.Get(hs[i]); got != i*10 {
			t.Errorf("slot %d after relink = %d, want %d", i, got, i*10)
		}
	}
}

func TestPoolShrinkDropsRemovedHandles(t *testing.T) {
	p := NewStoragePool[int]("test", 0)
	hs := p.Allocate(2, 0)
	removed := hs[0]
	p.Deallocate(&hs[0])
	remap := p.Shrink(nil)
	p.Relink(&removed, remap)
	if !removed.IsZero() {
		t.Error("handle to a removed slot should relink to zero")
	}
}

func TestPoolRandomCyclesNoSharedSlots(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	p := NewStoragePool[int]("test", -1)
	live := map[Handle]int{}
	next := 0
	for range 2000 {
		if len(live) == 0 || r.IntN(3) > 0 {
			next++
			live[p.AllocateOne(next)] = next
			continue
		}
		for h := range live {
			delete(live, h)
			p.Deallocate(&h)
			break
		}
	}

	seen := map[int]bool{}
	for h, v := range live {
		if seen[h.Index()] {
			t.Fatalf("index %d shared by two live handles", h.Index())
		}
		seen[h.Index()] = true
		if got := p.Get(h); got != v {
			t.Fatalf("Get = %d, want %d", got, v)
		}
	}

	remap := p.Shrink(nil)
	for h, v := range live {
		nh := h
		p.Relink(&nh, remap)
		if got := p.Get(nh); got != v {
			t.Fatalf("after Shrink Get = %d, want %d", got, v)
		}
	}
	if p.Live() != len(live) {
		t.Errorf("Live = %d, want %d", p.Live(), len(live))
	}
}

func TestPoolReset(t *testing.T) {
	p := NewStoragePool[int]("test", 0)
	p.Allocate(3, 4)
	n := 0
	p.Reset(func(int, int) { n++ })
	if n != 3 || p.Len() != 0 {
		t.Errorf("Reset visited %d, Len=%d", n, p.Len())
	}
}
