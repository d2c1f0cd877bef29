package scene

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/zeusync/scenecore/internal/core/events"
	"github.com/zeusync/scenecore/internal/core/handle"
	"github.com/zeusync/scenecore/internal/core/observability/log"
)

type recorded struct {
	typ  string
	data any
}

func subscribeAll(t *testing.T, d *events.Dispatcher, fn func(events.Event)) *[]recorded {
	t.Helper()
	var got []recorded
	for _, typ := range []string{EventEntityCreated, EventEntityDestroyed} {
		_, err := d.Subscribe(typ, func(e events.Event) error {
			got = append(got, recorded{typ: e.Type(), data: e.Data()})
			if fn != nil {
				fn(e)
			}
			return nil
		})
		require.NoError(t, err)
	}
	return &got
}

func TestCreatePublishesEvent(t *testing.T) {
	d := events.New()
	got := subscribeAll(t, d, nil)
	r, _ := newPathRegistry(t, WithPublisher(d))

	p, err := r.Create(handle.Root)
	require.NoError(t, err)
	h, err := r.Create(p, WithName("lamp"), WithCapabilities(CapLight))
	require.NoError(t, err)

	require.Len(t, *got, 2)
	assert.Equal(t, recorded{
		typ:  EventEntityCreated,
		data: EntityCreated{Handle: h, Parent: p, Capabilities: CapLight, Name: "lamp"},
	}, (*got)[1])
}

func TestCascadeEventsArriveAfterCommit(t *testing.T) {
	d := events.New()
	var r *Registry[string]
	var liveDuringDelivery []int
	got := subscribeAll(t, d, func(e events.Event) {
		if e.Type() == EventEntityDestroyed {
			liveDuringDelivery = append(liveDuringDelivery, r.Len())
		}
	})
	r, _ = newPathRegistry(t, WithPublisher(d))

	a := mustCreate(t, r, handle.Root, "a")
	b := mustCreate(t, r, a, "b")
	c := mustCreate(t, r, b, "c")
	keep := mustCreate(t, r, handle.Root, "keep")
	*got = (*got)[:0]

	require.NoError(t, r.Destroy(a))

	require.Len(t, *got, 3)
	assert.Equal(t, EntityDestroyed{Handle: c, Parent: b}, (*got)[0].data)
	assert.Equal(t, EntityDestroyed{Handle: b, Parent: a}, (*got)[1].data)
	assert.Equal(t, EntityDestroyed{Handle: a, Parent: handle.Root}, (*got)[2].data)
	// the whole subtree is gone before the first event is delivered
	assert.Equal(t, []int{1, 1, 1}, liveDuringDelivery)
	assert.True(t, r.Alive(keep))
}

func TestOrphanPublishesSingleDestroy(t *testing.T) {
	d := events.New()
	got := subscribeAll(t, d, nil)
	r, _ := newPathRegistry(t, WithPublisher(d), WithPolicy(OrphanToRoot))

	a := mustCreate(t, r, handle.Root, "a")
	mustCreate(t, r, a, "b")
	*got = (*got)[:0]

	require.NoError(t, r.Destroy(a))
	require.Len(t, *got, 1)
	assert.Equal(t, EntityDestroyed{Handle: a, Parent: handle.Root}, (*got)[0].data)
}

func TestHandlerFailureIsLoggedNotReturned(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := log.NewFromZap(zap.New(core), log.LevelDebug)

	d := events.New()
	_, err := d.Subscribe(EventEntityCreated, func(events.Event) error {
		return errors.New("renderer cache full")
	})
	require.NoError(t, err)

	r, _ := newPathRegistry(t, WithPublisher(d), WithLogger(logger))
	h, err := r.Create(handle.Root)
	require.NoError(t, err)
	assert.True(t, r.Alive(h))

	failures := logs.FilterMessage("event delivery failed").All()
	require.Len(t, failures, 1)
	assert.Equal(t, EventEntityCreated, failures[0].ContextMap()["type"])
	assert.Equal(t, r.ID().String(), failures[0].ContextMap()["registry"])
}

func TestRetiredSlotIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := log.NewFromZap(zap.New(core), log.LevelDebug)
	r, _ := newPathRegistry(t, WithLogger(logger), WithMaxGeneration(1))

	h := mustCreate(t, r, handle.Root, "first")
	require.NoError(t, r.Destroy(h))
	assert.Zero(t, logs.FilterMessage("entity slot retired").Len())

	h = mustCreate(t, r, handle.Root, "second")
	require.NoError(t, r.Destroy(h))

	assert.Equal(t, 1, logs.FilterMessage("entity slot retired").Len())
}
