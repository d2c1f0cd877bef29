package scene

import (
	"fmt"
	"math"
	"strings"

	"github.com/zeusync/scenecore/internal/core/handle"
)

// Policy decides what happens to the children of a destroyed entity.
type Policy uint8

const (
	// Cascade destroys every descendant, children before parents.
	Cascade Policy = iota
	// OrphanToRoot reparents direct children to the scene root; their
	// subtrees stay alive.
	OrphanToRoot
)

// ParsePolicy accepts the config spellings "cascade" and "orphan".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "", "cascade":
		return Cascade, nil
	case "orphan", "orphan-to-root", "orphan_to_root":
		return OrphanToRoot, nil
	default:
		return Cascade, fmt.Errorf("unknown destroy policy %q", s)
	}
}

func (p Policy) String() string {
	switch p {
	case Cascade:
		return "cascade"
	case OrphanToRoot:
		return "orphan-to-root"
	default:
		return "unknown"
	}
}

// Capability is a closed bitmask describing what an entity is. The core
// stores it; collaborators inspect it.
type Capability uint64

const (
	CapSpatial Capability = 1 << iota
	CapRenderable
	CapUI
	CapCamera
	CapLight
	CapScripted
	CapEditorOnly

	CapNone Capability = 0
)

// Has reports whether every bit of o is set in c.
func (c Capability) Has(o Capability) bool {
	return c&o == o
}

// Entity is a read-only snapshot of a live entity. Children are copied; the
// snapshot does not follow later mutations.
type Entity struct {
	Handle       handle.Handle
	Parent       handle.Handle
	Children     []handle.Handle
	Capabilities Capability
	Name         string
}

// EntityOption sets metadata at creation time.
type EntityOption func(*meta)

func WithName(name string) EntityOption {
	return func(m *meta) { m.name = name }
}

func WithCapabilities(caps Capability) EntityOption {
	return func(m *meta) { m.caps = caps }
}

type meta struct {
	name string
	caps Capability
}

// noIndex terminates child and sibling lists.
const noIndex = math.MaxUint32

// links hold the hierarchy of one record. Children form a doubly linked list
// through the siblings' prev/next, so insertion order is kept and removal is
// O(1).
type links struct {
	parent      handle.Handle
	first, last uint32
	prev, next  uint32
	count       int
}

func emptyLinks(parent handle.Handle) links {
	return links{parent: parent, first: noIndex, last: noIndex, prev: noIndex, next: noIndex}
}

// node is the transform state of one record.
type node[T any] struct {
	local T
	world T
	dirty bool
	// version identifies the current world value; bumped on every recompute.
	version uint64
	// parentVersion is the parent's version world was composed against.
	parentVersion uint64
	// checked is the mutation epoch at which world was last confirmed.
	checked uint64
}

type record[T any] struct {
	generation uint32
	alive      bool
	meta       meta
	links      links
	node       node[T]
}
