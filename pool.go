package rig

import (
	"fmt"
	"log/slog"
)

// Handle addresses one slot of a StoragePool. The generation is unique per
// allocation within a pool, so a handle kept past Deallocate, or past a
// Shrink it was not relinked through, is detected instead of aliasing
// another element's slot. The zero Handle is never valid.
type Handle struct {
	index int32
	gen   uint32
}

// Index returns the slot index the handle points at.
func (h Handle) Index() int { return int(h.index) }

// IsZero reports whether h is the unset handle.
func (h Handle) IsZero() bool { return h.gen == 0 }

// StoragePool is a reusable-slot allocator with a free list. It backs every
// transform, dirty flag and curve value of a Hierarchy. Live slots never move
// until Shrink.
type StoragePool[T any] struct {
	values   []T
	gens     []uint32 // generation of the allocation owning the slot; 0 when free
	free     []int32
	nextGen  uint32
	fallback T

	// strict turns integrity errors into panics (debug mode).
	strict bool
	name   string
}

// NewStoragePool creates an empty pool. fallback is returned by Get for
// stale handles outside strict mode.
func NewStoragePool[T any](name string, fallback T) *StoragePool[T] {
	return &StoragePool[T]{name: name, fallback: fallback}
}

// SetStrict enables or disables panicking on integrity errors.
func (p *StoragePool[T]) SetStrict(strict bool) {
	p.strict = strict
}

// Allocate reserves count slots initialized to def. Free-list entries are
// reused first (most recently freed first), then the backing array grows.
func (p *StoragePool[T]) Allocate(count int, def T) []Handle {
	if count <= 0 {
		return nil
	}
	handles := make([]Handle, count)
	if grow := count - len(p.free); grow > 0 && cap(p.values)-len(p.values) < grow {
		values := make([]T, len(p.values), len(p.values)+grow)
		copy(values, p.values)
		p.values = values
	}
	for i := range handles {
		var idx int32
		if n := len(p.free); n > 0 {
			idx = p.free[n-1]
			p.free = p.free[:n-1]
			p.values[idx] = def
		} else {
			idx = int32(len(p.values))
			p.values = append(p.values, def)
			p.gens = append(p.gens, 0)
		}
		p.nextGen++
		if p.nextGen == 0 {
			p.nextGen = 1
		}
		p.gens[idx] = p.nextGen
		handles[i] = Handle{index: idx, gen: p.nextGen}
	}
	return handles
}

// AllocateOne is Allocate(1, def)[0].
func (p *StoragePool[T]) AllocateOne(def T) Handle {
	return p.Allocate(1, def)[0]
}

// Deallocate returns the slot behind *h to the free list and clears *h.
// Deallocating the zero handle is a no-op. Double frees and stale handles are
// integrity errors: they panic in strict mode and are ignored otherwise.
func (p *StoragePool[T]) Deallocate(h *Handle) {
	if h.IsZero() {
		return
	}
	if !p.Valid(*h) {
		p.integrity("deallocate", *h)
		*h = Handle{}
		return
	}
	var zero T
	p.values[h.index] = zero
	p.gens[h.index] = 0
	p.free = append(p.free, h.index)
	*h = Handle{}
}

// Valid reports whether h addresses a live slot of this pool.
func (p *StoragePool[T]) Valid(h Handle) bool {
	return h.gen != 0 && h.index >= 0 && int(h.index) < len(p.gens) && p.gens[h.index] == h.gen
}

// Get returns the value behind h. A stale handle yields the pool fallback
// (or panics in strict mode).
func (p *StoragePool[T]) Get(h Handle) T {
	if !p.Valid(h) {
		p.integrity("read", h)
		return p.fallback
	}
	return p.values[h.index]
}

// Set stores v behind h. Writes through stale handles are dropped.
func (p *StoragePool[T]) Set(h Handle, v T) {
	if !p.Valid(h) {
		p.integrity("write", h)
		return
	}
	p.values[h.index] = v
}

// Len returns the size of the backing array, live and free slots included.
func (p *StoragePool[T]) Len() int { return len(p.values) }

// Live returns the number of allocated slots.
func (p *StoragePool[T]) Live() int { return len(p.values) - len(p.free) }

// Free returns the number of slots waiting on the free list.
func (p *StoragePool[T]) Free() int { return len(p.free) }

// Reset drops every slot. onDestroy, when non-nil, sees every live value first.
func (p *StoragePool[T]) Reset(onDestroy func(index int, v T)) {
	if onDestroy != nil {
		for i, g := range p.gens {
			if g != 0 {
				onDestroy(i, p.values[i])
			}
		}
	}
	p.values = p.values[:0]
	p.gens = p.gens[:0]
	p.free = p.free[:0]
}

// Shrink physically removes free slots and returns the old-to-new index map
// of every surviving slot. Every holder must pass its handles through Relink
// before touching the pool again. onDestroy, when non-nil, sees the index of
// every removed slot.
func (p *StoragePool[T]) Shrink(onDestroy func(index int)) map[int]int {
	remap := make(map[int]int, p.Live())
	if len(p.free) == 0 {
		for i := range p.values {
			remap[i] = i
		}
		return remap
	}
	if onDestroy != nil {
		for _, idx := range p.free {
			onDestroy(int(idx))
		}
	}
	values := make([]T, 0, p.Live())
	gens := make([]uint32, 0, p.Live())
	for i, g := range p.gens {
		if g == 0 {
			continue
		}
		remap[i] = len(values)
		values = append(values, p.values[i])
		gens = append(gens, g)
	}
	p.values = values
	p.gens = gens
	p.free = p.free[:0]
	return remap
}

// Relink rewrites *h through a map returned by Shrink. Handles whose slot
// was removed become zero.
func (p *StoragePool[T]) Relink(h *Handle, remap map[int]int) {
	if h.IsZero() {
		return
	}
	idx, ok := remap[int(h.index)]
	if !ok {
		*h = Handle{}
		return
	}
	h.index = int32(idx)
}

func (p *StoragePool[T]) integrity(op string, h Handle) {
	msg := fmt.Sprintf("rig debug: %s pool: %s through stale handle (index %d, generation %d)", p.name, op, h.index, h.gen)
	if p.strict {
		panic(msg)
	}
	Logger().Warn("rig: stale storage handle",
		slog.String("pool", p.name),
		slog.String("op", op),
		slog.Int("index", int(h.index)),
		slog.Uint64("generation", uint64(h.gen)))
}
