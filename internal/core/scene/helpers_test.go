package scene

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zeusync/scenecore/internal/core/handle"
)

// pathComposer composes transforms as slash-joined paths so results are
// easy to read, and counts how often Compose runs.
type pathComposer struct {
	calls *int
}

func (pathComposer) Identity() string { return "" }

func (c pathComposer) Compose(parentWorld, local string) string {
	if c.calls != nil {
		*c.calls++
	}
	if parentWorld == "" {
		return local
	}
	return parentWorld + "/" + local
}

func newPathRegistry(t *testing.T, opts ...Option) (*Registry[string], *int) {
	t.Helper()
	calls := new(int)
	return NewRegistry[string](pathComposer{calls: calls}, opts...), calls
}

// mustCreate creates a named entity whose local transform is its name.
func mustCreate(t *testing.T, r *Registry[string], parent handle.Handle, name string) handle.Handle {
	t.Helper()
	h, err := r.Create(parent, WithName(name))
	require.NoError(t, err)
	require.NoError(t, r.Scene().SetLocalTransform(h, name))
	return h
}

func world(t *testing.T, g *Graph[string], h handle.Handle) string {
	t.Helper()
	w, err := g.WorldTransform(h)
	require.NoError(t, err)
	return w
}

func names(r *Registry[string], hs []handle.Handle) string {
	out := make([]string, 0, len(hs))
	for _, h := range hs {
		e, ok := r.Get(h)
		if !ok {
			out = append(out, "<stale>")
			continue
		}
		out = append(out, e.Name)
	}
	return strings.Join(out, ",")
}
