package handle

import (
	"fmt"
	"math"
)

const (
	// DefaultMaxSlots is the largest table an Allocator may grow to. Index
	// math.MaxUint32 is reserved for Root.
	DefaultMaxSlots = math.MaxUint32

	// DefaultMaxGeneration is the last generation an index can carry before
	// it is retired.
	DefaultMaxGeneration = math.MaxUint32
)

type slot struct {
	generation uint32
	live       bool
}

// Allocator issues and recycles handles. It is the sole authority on whether
// a handle is currently valid.
//
// Allocator is not safe for concurrent mutation. IsValid may be called from
// several goroutines as long as no Allocate or Release runs at the same time.
type Allocator struct {
	slots   []slot
	free    []uint32
	live    int
	retired int

	maxSlots      uint32
	maxGeneration uint32
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithCapacity pre-sizes the slot table and free list.
func WithCapacity(n int) Option {
	return func(a *Allocator) {
		if n > 0 {
			a.slots = make([]slot, 0, n)
			a.free = make([]uint32, 0, n/4+1)
		}
	}
}

// WithMaxSlots caps the number of distinct indices the allocator may issue.
func WithMaxSlots(n uint32) Option {
	return func(a *Allocator) {
		if n > 0 && n <= DefaultMaxSlots {
			a.maxSlots = n
		}
	}
}

// WithMaxGeneration caps the generation counter per index.
func WithMaxGeneration(n uint32) Option {
	return func(a *Allocator) {
		a.maxGeneration = n
	}
}

// NewAllocator creates an empty allocator.
func NewAllocator(opts ...Option) *Allocator {
	a := &Allocator{
		maxSlots:      DefaultMaxSlots,
		maxGeneration: DefaultMaxGeneration,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Allocate issues a handle. A recycled index keeps the generation it was
// bumped to on release; a fresh index starts at generation 0.
func (a *Allocator) Allocate() (Handle, error) {
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		s := &a.slots[idx]
		s.live = true
		a.live++
		return Handle{Index: idx, Generation: s.generation}, nil
	}
	if uint64(len(a.slots)) >= uint64(a.maxSlots) {
		return Handle{}, fmt.Errorf("allocate past %d slots: %w", a.maxSlots, ErrHandleSpaceExhausted)
	}
	idx := uint32(len(a.slots))
	a.slots = append(a.slots, slot{live: true})
	a.live++
	return Handle{Index: idx}, nil
}

// Release invalidates h and recycles its index. If the generation at that
// index is already at its maximum the index is retired instead and
// ErrGenerationExhausted is returned; h is invalid either way.
func (a *Allocator) Release(h Handle) error {
	if !a.IsValid(h) {
		return fmt.Errorf("release %s: %w", h, ErrInvalidHandle)
	}
	s := &a.slots[h.Index]
	s.live = false
	a.live--
	if s.generation >= a.maxGeneration {
		a.retired++
		return fmt.Errorf("release %s: index retired: %w", h, ErrGenerationExhausted)
	}
	s.generation++
	a.free = append(a.free, h.Index)
	return nil
}

// IsValid reports whether h is currently issued. Out-of-range indices and
// the Root sentinel are simply not valid.
func (a *Allocator) IsValid(h Handle) bool {
	if uint64(h.Index) >= uint64(len(a.slots)) {
		return false
	}
	s := a.slots[h.Index]
	return s.live && s.generation == h.Generation
}

// Generation returns the current generation stored at index.
func (a *Allocator) Generation(index uint32) (uint32, bool) {
	if uint64(index) >= uint64(len(a.slots)) {
		return 0, false
	}
	return a.slots[index].generation, true
}

// Len is the number of live handles.
func (a *Allocator) Len() int { return a.live }

// Cap is the size of the slot table.
func (a *Allocator) Cap() int { return len(a.slots) }

// Free is the number of indices waiting to be reused.
func (a *Allocator) Free() int { return len(a.free) }

// Retired is the number of indices permanently withdrawn.
func (a *Allocator) Retired() int { return a.retired }
