package events

import "time"

// Publisher is the narrow side of the dispatcher handed to producers. The
// scene registry only ever publishes; it never waits on or retries delivery.
type Publisher interface {
	Publish(event Event) error
}

// Bus defines an in-process pub/sub dispatcher.
//
// Key characteristics:
// - Type-based fan-out: handlers subscribe by Event.Type() string.
// - Synchronous delivery: Publish calls handlers in the caller goroutine.
// - Error aggregation: handler errors are joined and returned from Publish.
// - Optional observability: metrics are produced only when observers are registered.
//
// All methods are safe for concurrent use. Handlers should return quickly.
type Bus interface {
	Publisher

	// Subscribe registers a handler for eventType and returns a Subscription
	// that can be used to cancel later.
	Subscribe(eventType string, handler Handler) (Subscription, error)
	// Unsubscribe cancels the given Subscription. It is safe to call with nil.
	Unsubscribe(Subscription) error
	// PublishBatch publishes events in order and joins errors across them.
	PublishBatch(events ...Event) error

	AddObserver(obs Observer)
	RemoveObserver(obs Observer)
	// Metrics returns a snapshot of accumulated counters. Counters only move
	// while at least one observer is registered.
	Metrics() Metrics
}

// Event is an immutable message transported by the Bus.
type Event interface {
	Type() string
	Source() string
	Timestamp() time.Time
	Data() any
}

type (
	// Handler is invoked per delivered event.
	Handler func(event Event) error
	// Filter decides whether an event should be delivered at all.
	Filter func(event Event) bool
)

// Subscription represents a registered handler bound to an event type.
type Subscription interface {
	ID() string
	EventType() string
	IsActive() bool
	// Cancel de-registers the handler. Multiple calls are safe.
	Cancel() error
}

// Observer is notified about deliveries. Implementations should return quickly.
type Observer interface {
	OnPublish(eventType string, event Event)
	OnDelivered(eventType string, handlers int, err error, durationMicros int64)
}

type Metrics struct {
	Published         uint64
	DeliveredHandlers uint64
	Errors            uint64
	DroppedByFilters  uint64
	SubscribersActive uint64
}
