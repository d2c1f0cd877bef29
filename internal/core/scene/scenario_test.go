package scene

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/scenecore/internal/core/handle"
	"github.com/zeusync/scenecore/internal/core/transform"
)

const eps = 1e-9

func newAffineRegistry(opts ...Option) *Registry[transform.Affine] {
	return NewRegistry[transform.Affine](transform.AffineComposer{}, opts...)
}

func TestChildOfUntransformedParentTakesLocal(t *testing.T) {
	r := newAffineRegistry()
	g := r.Scene()
	a, err := r.Create(handle.Root)
	require.NoError(t, err)
	b, err := r.Create(a)
	require.NoError(t, err)

	local := transform.Translate(3, 4).Mul(transform.Rotate(math.Pi / 3))
	require.NoError(t, g.SetLocalTransform(b, local))

	w, err := g.WorldTransform(b)
	require.NoError(t, err)
	assert.True(t, w.ApproxEqual(local, eps))
}

func TestCascadeScenario(t *testing.T) {
	r := newAffineRegistry()
	a, _ := r.Create(handle.Root)
	b, _ := r.Create(a)
	c, _ := r.Create(b)

	require.NoError(t, r.Destroy(a))
	for _, h := range []handle.Handle{a, b, c} {
		_, ok := r.Get(h)
		assert.False(t, ok)
	}
}

func TestOrphanScenario(t *testing.T) {
	r := newAffineRegistry(WithPolicy(OrphanToRoot))
	a, _ := r.Create(handle.Root)
	b, _ := r.Create(a)
	c, _ := r.Create(b)

	require.NoError(t, r.Destroy(a))
	eb, ok := r.Get(b)
	require.True(t, ok)
	assert.Equal(t, handle.Root, eb.Parent)
	ec, ok := r.Get(c)
	require.True(t, ok)
	assert.Equal(t, b, ec.Parent)
}

func TestReuseScenario(t *testing.T) {
	r := newAffineRegistry()
	h0, _ := r.Create(handle.Root)
	require.Equal(t, uint32(0), h0.Index)
	require.NoError(t, r.Destroy(h0))

	h1, _ := r.Create(handle.Root)
	assert.Equal(t, uint32(0), h1.Index)
	assert.Equal(t, h0.Generation+1, h1.Generation)
	assert.False(t, r.Alive(h0))
}

func TestCycleScenario(t *testing.T) {
	r := newAffineRegistry()
	g := r.Scene()
	a, _ := r.Create(handle.Root)
	b, _ := r.Create(handle.Root)

	require.NoError(t, g.Attach(a, b))
	assert.ErrorIs(t, g.Attach(b, a), ErrCyclicParent)

	p, _ := g.Parent(a)
	assert.Equal(t, b, p)
	p, _ = g.Parent(b)
	assert.Equal(t, handle.Root, p)
}

// TestRandomMutationsKeepWorldConsistent drives a registry with random
// operations and checks every world transform against a from-scratch
// composition of the ancestor chain.
func TestRandomMutationsKeepWorldConsistent(t *testing.T) {
	for _, policy := range []Policy{Cascade, OrphanToRoot} {
		t.Run(policy.String(), func(t *testing.T) {
			rng := rand.New(rand.NewSource(42))
			r := newAffineRegistry(WithPolicy(policy))
			g := r.Scene()
			var live []handle.Handle
			var dead []handle.Handle

			pick := func() handle.Handle { return live[rng.Intn(len(live))] }

			for step := 0; step < 3000; step++ {
				switch op := rng.Intn(10); {
				case op < 3 || len(live) == 0:
					parent := handle.Root
					if len(live) > 0 && rng.Intn(4) > 0 {
						parent = pick()
					}
					h, err := r.Create(parent)
					require.NoError(t, err)
					live = append(live, h)
				case op < 5:
					local := transform.Translate(rng.Float64()*10-5, rng.Float64()*10-5).
						Mul(transform.Rotate(rng.Float64() * math.Pi))
					require.NoError(t, g.SetLocalTransform(pick(), local))
				case op < 7:
					h, p := pick(), pick()
					before, _ := g.Parent(h)
					if err := g.Attach(h, p); err != nil {
						require.ErrorIs(t, err, ErrCyclicParent)
						after, _ := g.Parent(h)
						require.Equal(t, before, after)
					}
				case op < 8:
					h := pick()
					require.NoError(t, r.Destroy(h))
					kept := live[:0]
					for _, x := range live {
						if r.Alive(x) {
							kept = append(kept, x)
						} else {
							dead = append(dead, x)
						}
					}
					live = kept
				default:
					h := pick()
					w, err := g.WorldTransform(h)
					require.NoError(t, err)
					assert.True(t, w.ApproxEqual(expectedWorld(t, g, h), 1e-6))
				}
			}

			require.Equal(t, len(live), r.Len())
			for _, h := range dead {
				_, ok := r.Get(h)
				require.False(t, ok)
			}
			g.ResolveAll()
			for _, h := range live {
				assert.False(t, g.IsDirty(h))
				w, _ := g.WorldTransform(h)
				assert.True(t, w.ApproxEqual(expectedWorld(t, g, h), 1e-6))
			}
		})
	}
}

func expectedWorld(t *testing.T, g *Graph[transform.Affine], h handle.Handle) transform.Affine {
	t.Helper()
	var chain []transform.Affine
	for cur := h; !cur.IsRoot(); {
		local, ok := g.LocalTransform(cur)
		require.True(t, ok)
		chain = append(chain, local)
		cur, _ = g.Parent(cur)
	}
	w := transform.Identity2D
	for i := len(chain) - 1; i >= 0; i-- {
		w = w.Mul(chain[i])
	}
	return w
}
