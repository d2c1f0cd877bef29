// Package scene owns entity records and the parent/child hierarchy that
// composes their transforms.
//
// A Registry creates and destroys entities and is the only owner of their
// records. Its Graph exposes the hierarchy and transform operations over the
// same records. Neither type locks: all mutation must happen from a single
// goroutine, and read-only queries may run concurrently only while no
// mutation is in progress.
package scene

import (
	"errors"
	"fmt"
	"iter"

	"github.com/google/uuid"

	"github.com/zeusync/scenecore/internal/core/events"
	"github.com/zeusync/scenecore/internal/core/handle"
	"github.com/zeusync/scenecore/internal/core/observability/log"
	"github.com/zeusync/scenecore/internal/core/transform"
	"github.com/zeusync/scenecore/pkg/sequence"
)

// Registry tracks entity existence on top of a handle.Allocator.
type Registry[T any] struct {
	id        uuid.UUID
	source    string
	alloc     *handle.Allocator
	records   []record[T]
	composer  transform.Composer[T]
	policy    Policy
	logger    log.Log
	publisher events.Publisher
	graph     *Graph[T]

	// root holds the child list of the implicit scene root.
	root links
	// epoch advances whenever a node is marked dirty; see Graph.
	epoch    uint64
	versions uint64
	scratch  []uint32

	created    uint64
	destroyed  uint64
	recomputed uint64
}

// Stats is a point-in-time summary of a Registry.
type Stats struct {
	Live       int
	Capacity   int
	Free       int
	Retired    int
	Created    uint64
	Destroyed  uint64
	Recomputed uint64
}

// NewRegistry creates an empty registry whose transforms compose with composer.
func NewRegistry[T any](composer transform.Composer[T], opts ...Option) *Registry[T] {
	o := options{policy: Cascade, logger: log.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	id := uuid.New()
	r := &Registry[T]{
		id:        id,
		source:    id.String(),
		alloc:     handle.NewAllocator(o.alloc...),
		records:   make([]record[T], 0, o.capacity),
		composer:  composer,
		policy:    o.policy,
		logger:    o.logger.With(log.String("registry", id.String())),
		publisher: o.publisher,
		root:      emptyLinks(handle.Root),
		epoch:     1,
	}
	r.graph = &Graph[T]{r: r}
	return r
}

// ID distinguishes registry instances in logs and event sources.
func (r *Registry[T]) ID() uuid.UUID { return r.id }

func (r *Registry[T]) Policy() Policy { return r.policy }

// Scene returns the graph view over this registry's entities.
func (r *Registry[T]) Scene() *Graph[T] { return r.graph }

// Create allocates a new entity under parent (handle.Root for top level).
// If parent is not alive nothing is created.
func (r *Registry[T]) Create(parent handle.Handle, opts ...EntityOption) (handle.Handle, error) {
	if !parent.IsRoot() && !r.Alive(parent) {
		return handle.Handle{}, fmt.Errorf("create under %s: %w", parent, ErrInvalidHandle)
	}
	h, err := r.alloc.Allocate()
	if err != nil {
		r.logger.Error("entity allocation failed", log.Int("live", r.alloc.Len()), log.Error(err))
		return handle.Handle{}, fmt.Errorf("create: %w", err)
	}

	var m meta
	for _, opt := range opts {
		opt(&m)
	}
	for uint64(len(r.records)) <= uint64(h.Index) {
		r.records = append(r.records, record[T]{})
	}
	identity := r.composer.Identity()
	r.records[h.Index] = record[T]{
		generation: h.Generation,
		alive:      true,
		meta:       m,
		links:      emptyLinks(handle.Root),
		node:       node[T]{local: identity, world: identity, dirty: true},
	}
	r.link(h.Index, parent)
	r.created++

	r.logger.Debug("entity created", log.Stringer("entity", h), log.Stringer("parent", parent))
	r.notify(r.createdEvent(h, parent, m))
	return h, nil
}

// Destroy removes h according to the registry's policy. Lifecycle events
// are published only after the whole operation has been applied.
func (r *Registry[T]) Destroy(h handle.Handle) error {
	if !r.Alive(h) {
		return fmt.Errorf("destroy %s: %w", h, ErrInvalidHandle)
	}

	var doomed []uint32
	switch r.policy {
	case OrphanToRoot:
		rec := &r.records[h.Index]
		for c := rec.links.first; c != noIndex; {
			next := r.records[c].links.next
			r.unlink(c)
			r.link(c, handle.Root)
			r.records[c].node.dirty = true
			c = next
		}
		r.epoch++
		doomed = []uint32{h.Index}
	default:
		doomed = r.subtree(h.Index)
	}

	// Every descendant follows its ancestors in doomed, so walking it
	// backwards releases children before their parents.
	evts := make([]events.Event, 0, len(doomed))
	var zero T
	for i := len(doomed) - 1; i >= 0; i-- {
		idx := doomed[i]
		rec := &r.records[idx]
		dh := handle.Handle{Index: idx, Generation: rec.generation}
		parent := rec.links.parent

		r.unlink(idx)
		rec.alive = false
		rec.meta = meta{}
		rec.node = node[T]{local: zero, world: zero}
		if err := r.alloc.Release(dh); err != nil {
			if !errors.Is(err, ErrGenerationExhausted) {
				// Alive(h) held for the whole subtree, so this is a broken invariant.
				panic(fmt.Sprintf("scene: release of live entity failed: %v", err))
			}
			r.logger.Warn("entity slot retired", log.Uint32("index", idx), log.Int("retired", r.alloc.Retired()))
		}
		r.destroyed++
		evts = append(evts, r.destroyedEvent(dh, parent))
	}

	r.logger.Debug("entity destroyed",
		log.Stringer("entity", h),
		log.Stringer("policy", r.policy),
		log.Int("count", len(doomed)),
	)
	r.notify(evts...)
	return nil
}

// Alive reports whether h refers to a live entity of this registry.
func (r *Registry[T]) Alive(h handle.Handle) bool {
	return !h.IsRoot() && r.alloc.IsValid(h)
}

// Get returns a snapshot of h. A stale handle simply yields false.
func (r *Registry[T]) Get(h handle.Handle) (Entity, bool) {
	if !r.Alive(h) {
		return Entity{}, false
	}
	rec := &r.records[h.Index]
	return Entity{
		Handle:       h,
		Parent:       rec.links.parent,
		Children:     r.children(&rec.links),
		Capabilities: rec.meta.caps,
		Name:         rec.meta.name,
	}, true
}

// SetCapabilities replaces the capability mask of h.
func (r *Registry[T]) SetCapabilities(h handle.Handle, caps Capability) error {
	if !r.Alive(h) {
		return fmt.Errorf("set capabilities of %s: %w", h, ErrInvalidHandle)
	}
	r.records[h.Index].meta.caps = caps
	return nil
}

func (r *Registry[T]) SetName(h handle.Handle, name string) error {
	if !r.Alive(h) {
		return fmt.Errorf("set name of %s: %w", h, ErrInvalidHandle)
	}
	r.records[h.Index].meta.name = name
	return nil
}

// LiveEntities yields every live handle in index order. Destroying entities
// while ranging over it is not supported; collect first, destroy after.
func (r *Registry[T]) LiveEntities() iter.Seq[handle.Handle] {
	return func(yield func(handle.Handle) bool) {
		for i := range r.records {
			rec := &r.records[i]
			if !rec.alive {
				continue
			}
			if !yield(handle.Handle{Index: uint32(i), Generation: rec.generation}) {
				return
			}
		}
	}
}

// Live wraps LiveEntities in a chainable iterator.
func (r *Registry[T]) Live() *sequence.Iterator[handle.Handle] {
	return sequence.FromSeq(r.LiveEntities())
}

// WithCapabilities yields live entities whose mask contains caps.
func (r *Registry[T]) WithCapabilities(caps Capability) *sequence.Iterator[handle.Handle] {
	return r.Live().Filter(func(h handle.Handle) bool {
		return r.records[h.Index].meta.caps.Has(caps)
	})
}

// Len is the number of live entities.
func (r *Registry[T]) Len() int { return r.alloc.Len() }

func (r *Registry[T]) Stats() Stats {
	return Stats{
		Live:       r.alloc.Len(),
		Capacity:   r.alloc.Cap(),
		Free:       r.alloc.Free(),
		Retired:    r.alloc.Retired(),
		Created:    r.created,
		Destroyed:  r.destroyed,
		Recomputed: r.recomputed,
	}
}

// linksOf returns the hierarchy links of h, which must be alive or Root.
func (r *Registry[T]) linksOf(h handle.Handle) *links {
	if h.IsRoot() {
		return &r.root
	}
	return &r.records[h.Index].links
}

// link appends idx to the end of parent's child list.
func (r *Registry[T]) link(idx uint32, parent handle.Handle) {
	child := &r.records[idx].links
	p := r.linksOf(parent)
	child.parent = parent
	child.prev = p.last
	child.next = noIndex
	if p.last != noIndex {
		r.records[p.last].links.next = idx
	} else {
		p.first = idx
	}
	p.last = idx
	p.count++
}

// unlink removes idx from its parent's child list. The parent field is left
// for the caller to overwrite.
func (r *Registry[T]) unlink(idx uint32) {
	child := &r.records[idx].links
	p := r.linksOf(child.parent)
	if child.prev != noIndex {
		r.records[child.prev].links.next = child.next
	} else {
		p.first = child.next
	}
	if child.next != noIndex {
		r.records[child.next].links.prev = child.prev
	} else {
		p.last = child.prev
	}
	p.count--
	child.prev, child.next = noIndex, noIndex
}

func (r *Registry[T]) children(l *links) []handle.Handle {
	if l.count == 0 {
		return nil
	}
	out := make([]handle.Handle, 0, l.count)
	for c := l.first; c != noIndex; c = r.records[c].links.next {
		out = append(out, handle.Handle{Index: c, Generation: r.records[c].generation})
	}
	return out
}

// subtree lists idx and all its descendants, breadth first.
func (r *Registry[T]) subtree(idx uint32) []uint32 {
	out := []uint32{idx}
	for i := 0; i < len(out); i++ {
		for c := r.records[out[i]].links.first; c != noIndex; c = r.records[c].links.next {
			out = append(out, c)
		}
	}
	return out
}
