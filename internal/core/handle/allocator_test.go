package handle

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateFreshIndices(t *testing.T) {
	a := NewAllocator()

	h0, err := a.Allocate()
	require.NoError(t, err)
	h1, err := a.Allocate()
	require.NoError(t, err)

	assert.Equal(t, Handle{Index: 0, Generation: 0}, h0)
	assert.Equal(t, Handle{Index: 1, Generation: 0}, h1)
	assert.True(t, a.IsValid(h0))
	assert.True(t, a.IsValid(h1))
	assert.Equal(t, 2, a.Len())
	assert.Equal(t, 2, a.Cap())
}

func TestReleaseThenReuseBumpsGeneration(t *testing.T) {
	a := NewAllocator()
	h0, err := a.Allocate()
	require.NoError(t, err)

	require.NoError(t, a.Release(h0))
	assert.False(t, a.IsValid(h0))

	again, err := a.Allocate()
	require.NoError(t, err)
	assert.Equal(t, uint32(0), again.Index)
	assert.Equal(t, h0.Generation+1, again.Generation)
	assert.False(t, a.IsValid(h0))
	assert.True(t, a.IsValid(again))
}

func TestReleaseStaleHandle(t *testing.T) {
	a := NewAllocator()
	h, err := a.Allocate()
	require.NoError(t, err)
	require.NoError(t, a.Release(h))

	err = a.Release(h)
	assert.ErrorIs(t, err, ErrInvalidHandle)

	err = a.Release(Handle{Index: 42})
	assert.ErrorIs(t, err, ErrInvalidHandle)
}

func TestFreedSlotIsNotValidBeforeReissue(t *testing.T) {
	a := NewAllocator()
	h, err := a.Allocate()
	require.NoError(t, err)
	require.NoError(t, a.Release(h))

	// the upcoming generation must not validate until it is actually issued
	forged := Handle{Index: h.Index, Generation: h.Generation + 1}
	assert.False(t, a.IsValid(forged))
}

func TestIsValidOutOfRange(t *testing.T) {
	a := NewAllocator()
	assert.False(t, a.IsValid(Handle{Index: 7}))
	assert.False(t, a.IsValid(Root))
}

func TestHandleSpaceExhausted(t *testing.T) {
	a := NewAllocator(WithMaxSlots(2))
	_, err := a.Allocate()
	require.NoError(t, err)
	h, err := a.Allocate()
	require.NoError(t, err)

	_, err = a.Allocate()
	assert.ErrorIs(t, err, ErrHandleSpaceExhausted)
	assert.Equal(t, 2, a.Len())

	// releasing makes room again
	require.NoError(t, a.Release(h))
	_, err = a.Allocate()
	assert.NoError(t, err)
}

func TestGenerationExhaustedRetiresIndex(t *testing.T) {
	a := NewAllocator(WithMaxGeneration(1))

	h, err := a.Allocate()
	require.NoError(t, err)
	require.NoError(t, a.Release(h))

	h, err = a.Allocate()
	require.NoError(t, err)
	require.Equal(t, uint32(1), h.Generation)

	err = a.Release(h)
	assert.ErrorIs(t, err, ErrGenerationExhausted)
	assert.False(t, a.IsValid(h))
	assert.Equal(t, 1, a.Retired())
	assert.Equal(t, 0, a.Free())

	next, err := a.Allocate()
	require.NoError(t, err)
	assert.NotEqual(t, h.Index, next.Index, "retired index must not be reused")
}

func TestRandomSequenceNeverRevalidates(t *testing.T) {
	a := NewAllocator()
	rng := rand.New(rand.NewSource(7))

	var live []Handle
	var released []Handle
	highest := map[uint32]uint32{}

	for i := 0; i < 5000; i++ {
		if len(live) == 0 || rng.Intn(3) != 0 {
			h, err := a.Allocate()
			require.NoError(t, err)
			if g, seen := highest[h.Index]; seen {
				require.Greater(t, h.Generation, g, "index %d reissued without a newer generation", h.Index)
			}
			highest[h.Index] = h.Generation
			live = append(live, h)
			continue
		}
		j := rng.Intn(len(live))
		h := live[j]
		live[j] = live[len(live)-1]
		live = live[:len(live)-1]
		require.NoError(t, a.Release(h))
		released = append(released, h)
	}

	for _, h := range released {
		assert.False(t, a.IsValid(h), "released %s reported valid", h)
	}
	for _, h := range live {
		assert.True(t, a.IsValid(h), "live %s reported invalid", h)
	}
	assert.Equal(t, len(live), a.Len())
}

func TestHandlePackRoundTrip(t *testing.T) {
	h := Handle{Index: 12, Generation: 3}
	assert.Equal(t, h, Unpack(h.Pack()))
	assert.Equal(t, uint64(3)<<32|12, h.Pack())
	assert.NotEqual(t, h.Hash(), Handle{Index: 12, Generation: 4}.Hash())
	assert.Equal(t, "Handle(12:3)", h.String())
	assert.Equal(t, "Handle(root)", Root.String())
}
