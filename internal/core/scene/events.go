package scene

import (
	"github.com/zeusync/scenecore/internal/core/events"
	"github.com/zeusync/scenecore/internal/core/handle"
	"github.com/zeusync/scenecore/internal/core/observability/log"
)

// Lifecycle event types published by a Registry.
const (
	EventEntityCreated   = "entity.created"
	EventEntityDestroyed = "entity.destroyed"
)

// EntityCreated is the Data of an EventEntityCreated event.
type EntityCreated struct {
	Handle       handle.Handle
	Parent       handle.Handle
	Capabilities Capability
	Name         string
}

// EntityDestroyed is the Data of an EventEntityDestroyed event.
type EntityDestroyed struct {
	Handle handle.Handle
	Parent handle.Handle
}

// notify hands events to the publisher. Delivery failures are logged and
// otherwise ignored.
func (r *Registry[T]) notify(evts ...events.Event) {
	if r.publisher == nil {
		return
	}
	for _, e := range evts {
		if err := r.publisher.Publish(e); err != nil {
			r.logger.Error("event delivery failed", log.String("type", e.Type()), log.Error(err))
		}
	}
}

func (r *Registry[T]) createdEvent(h, parent handle.Handle, m meta) events.Event {
	return events.NewEvent(EventEntityCreated, r.source, EntityCreated{
		Handle:       h,
		Parent:       parent,
		Capabilities: m.caps,
		Name:         m.name,
	})
}

func (r *Registry[T]) destroyedEvent(h, parent handle.Handle) events.Event {
	return events.NewEvent(EventEntityDestroyed, r.source, EntityDestroyed{Handle: h, Parent: parent})
}
