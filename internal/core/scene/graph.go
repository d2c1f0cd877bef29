package scene

import (
	"fmt"
	"iter"

	"github.com/zeusync/scenecore/internal/core/handle"
)

// Graph is the hierarchy and transform view of a Registry. It owns nothing;
// every relation it reads or writes lives in the registry's records.
//
// World transforms are pulled lazily. Marking a node dirty is O(1) and
// advances the registry's mutation epoch; descendants notice the change on
// their next read because the version they were composed against no longer
// matches their parent's. A read walks up to the nearest ancestor confirmed
// in the current epoch and recomputes only the stale part of that chain,
// parent before child. A read with no mutation since the node was last
// confirmed touches nothing but the node itself and writes nothing.
type Graph[T any] struct {
	r *Registry[T]
}

// Attach makes parent the parent of h. Attaching to the current parent is a
// no-op; attaching to handle.Root is the same as Detach. On error nothing
// changes.
func (g *Graph[T]) Attach(h, parent handle.Handle) error {
	r := g.r
	if !r.Alive(h) {
		return fmt.Errorf("attach %s: %w", h, ErrInvalidHandle)
	}
	if !parent.IsRoot() && !r.Alive(parent) {
		return fmt.Errorf("attach %s under %s: %w", h, parent, ErrInvalidHandle)
	}
	if parent == h {
		return fmt.Errorf("attach %s under itself: %w", h, ErrCyclicParent)
	}
	if r.records[h.Index].links.parent == parent {
		return nil
	}
	for p := parent; !p.IsRoot(); p = r.records[p.Index].links.parent {
		if p == h {
			return fmt.Errorf("attach %s under descendant %s: %w", h, parent, ErrCyclicParent)
		}
	}
	g.reparent(h.Index, parent)
	return nil
}

// Detach moves h directly under the scene root.
func (g *Graph[T]) Detach(h handle.Handle) error {
	r := g.r
	if !r.Alive(h) {
		return fmt.Errorf("detach %s: %w", h, ErrInvalidHandle)
	}
	if r.records[h.Index].links.parent.IsRoot() {
		return nil
	}
	g.reparent(h.Index, handle.Root)
	return nil
}

func (g *Graph[T]) reparent(idx uint32, parent handle.Handle) {
	r := g.r
	r.unlink(idx)
	r.link(idx, parent)
	r.records[idx].node.dirty = true
	r.epoch++
}

// SetLocalTransform stores t as the local transform of h and invalidates the
// cached world transform of h and everything below it.
func (g *Graph[T]) SetLocalTransform(h handle.Handle, t T) error {
	r := g.r
	if !r.Alive(h) {
		return fmt.Errorf("set local transform of %s: %w", h, ErrInvalidHandle)
	}
	n := &r.records[h.Index].node
	n.local = t
	n.dirty = true
	r.epoch++
	return nil
}

// LocalTransform returns the transform last set on h.
func (g *Graph[T]) LocalTransform(h handle.Handle) (T, bool) {
	if !g.r.Alive(h) {
		var zero T
		return zero, false
	}
	return g.r.records[h.Index].node.local, true
}

// WorldTransform returns the composition of h's local transform with all of
// its ancestors'. The root's world transform is the identity.
func (g *Graph[T]) WorldTransform(h handle.Handle) (T, error) {
	r := g.r
	if h.IsRoot() {
		return r.composer.Identity(), nil
	}
	if !r.Alive(h) {
		var zero T
		return zero, fmt.Errorf("world transform of %s: %w", h, ErrInvalidHandle)
	}
	n := &r.records[h.Index].node
	if !n.dirty && n.checked == r.epoch {
		return n.world, nil
	}
	g.resolve(h.Index)
	return n.world, nil
}

// IsDirty reports whether reading h's world transform would recompute it,
// either because h itself changed or because an ancestor did.
func (g *Graph[T]) IsDirty(h handle.Handle) bool {
	r := g.r
	if !r.Alive(h) {
		return false
	}
	for idx := h.Index; ; {
		rec := &r.records[idx]
		n := &rec.node
		if n.dirty {
			return true
		}
		if n.checked == r.epoch {
			return false
		}
		_, pVersion := g.parentWorld(rec.links.parent)
		if n.parentVersion != pVersion {
			return true
		}
		if rec.links.parent.IsRoot() {
			return false
		}
		idx = rec.links.parent.Index
	}
}

// ResolveAll recomputes every stale world transform and returns how many
// nodes were recomputed. Afterwards every WorldTransform call is a pure read
// until the next mutation.
func (g *Graph[T]) ResolveAll() int {
	r := g.r
	before := r.recomputed
	for i := range r.records {
		rec := &r.records[i]
		if !rec.alive || (!rec.node.dirty && rec.node.checked == r.epoch) {
			continue
		}
		g.resolve(uint32(i))
	}
	return int(r.recomputed - before)
}

// resolve brings idx and any stale ancestors up to date.
func (g *Graph[T]) resolve(idx uint32) {
	r := g.r
	chain := r.scratch[:0]
	for cur := idx; ; {
		chain = append(chain, cur)
		parent := r.records[cur].links.parent
		if parent.IsRoot() {
			break
		}
		pn := &r.records[parent.Index].node
		if !pn.dirty && pn.checked == r.epoch {
			break
		}
		cur = parent.Index
	}

	for i := len(chain) - 1; i >= 0; i-- {
		rec := &r.records[chain[i]]
		n := &rec.node
		pWorld, pVersion := g.parentWorld(rec.links.parent)
		if n.dirty || n.parentVersion != pVersion {
			n.world = r.composer.Compose(pWorld, n.local)
			r.versions++
			n.version = r.versions
			n.parentVersion = pVersion
			n.dirty = false
			r.recomputed++
		}
		n.checked = r.epoch
	}
	r.scratch = chain[:0]
}

// parentWorld returns the cached world transform and version of parent.
// Callers make sure parent is Root or already resolved.
func (g *Graph[T]) parentWorld(parent handle.Handle) (T, uint64) {
	if parent.IsRoot() {
		return g.r.composer.Identity(), 0
	}
	n := &g.r.records[parent.Index].node
	return n.world, n.version
}

// Parent returns the parent of h, handle.Root for top-level entities.
func (g *Graph[T]) Parent(h handle.Handle) (handle.Handle, bool) {
	if !g.r.Alive(h) {
		return handle.Handle{}, false
	}
	return g.r.records[h.Index].links.parent, true
}

// Children returns the direct children of h in attach order. h may be Root.
func (g *Graph[T]) Children(h handle.Handle) []handle.Handle {
	if !h.IsRoot() && !g.r.Alive(h) {
		return nil
	}
	return g.r.children(g.r.linksOf(h))
}

// Descendants yields everything below h in depth-first pre-order. h may be
// Root, in which case every live entity is yielded. The hierarchy must not
// be mutated while ranging.
func (g *Graph[T]) Descendants(h handle.Handle) iter.Seq[handle.Handle] {
	return func(yield func(handle.Handle) bool) {
		r := g.r
		if !h.IsRoot() && !r.Alive(h) {
			return
		}
		start := r.linksOf(h)
		var stack []uint32
		for c := start.last; c != noIndex; c = r.records[c].links.prev {
			stack = append(stack, c)
		}
		for len(stack) > 0 {
			idx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			rec := &r.records[idx]
			if !yield(handle.Handle{Index: idx, Generation: rec.generation}) {
				return
			}
			for c := rec.links.last; c != noIndex; c = r.records[c].links.prev {
				stack = append(stack, c)
			}
		}
	}
}

// Depth counts the steps from h up to the root; top-level entities have
// depth 1.
func (g *Graph[T]) Depth(h handle.Handle) (int, bool) {
	r := g.r
	if !r.Alive(h) {
		return 0, false
	}
	depth := 0
	for p := h; !p.IsRoot(); p = r.records[p.Index].links.parent {
		depth++
	}
	return depth, true
}
