// Package handle implements generation-checked identifiers and the allocator
// that issues them.
package handle

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
)

// Handle identifies a slot issued by an Allocator. The generation guards
// against stale references once the index is recycled.
//
// Handles are plain values: copy, compare and use them as map keys freely.
type Handle struct {
	Index      uint32
	Generation uint32
}

// Root is the implicit scene root. The allocator never issues it.
var Root = Handle{Index: math.MaxUint32, Generation: math.MaxUint32}

// IsRoot reports whether h is the scene root sentinel.
func (h Handle) IsRoot() bool {
	return h == Root
}

// Pack encodes the handle as generation<<32 | index.
func (h Handle) Pack() uint64 {
	return uint64(h.Generation)<<32 | uint64(h.Index)
}

// Unpack is the inverse of Handle.Pack.
func Unpack(v uint64) Handle {
	return Handle{Index: uint32(v), Generation: uint32(v >> 32)}
}

// Hash returns a well-mixed 64-bit hash of the handle, suitable for sharding.
func (h Handle) Hash() uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], h.Pack())
	return xxhash.Sum64(buf[:])
}

func (h Handle) String() string {
	if h.IsRoot() {
		return "Handle(root)"
	}
	return fmt.Sprintf("Handle(%d:%d)", h.Index, h.Generation)
}
