// Package events is the in-process dispatcher entity lifecycle notifications
// are published on.
package events

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

type simpleEvent struct {
	typeStr string
	source  string
	ts      time.Time
	data    any
}

func (e simpleEvent) Type() string         { return e.typeStr }
func (e simpleEvent) Source() string       { return e.source }
func (e simpleEvent) Timestamp() time.Time { return e.ts }
func (e simpleEvent) Data() any            { return e.data }

// NewEvent creates a basic Event stamped with the current time.
func NewEvent(typ, src string, data any) Event {
	return simpleEvent{typeStr: typ, source: src, ts: time.Now(), data: data}
}

type subscription struct {
	id        string
	eventType string
	handler   Handler

	mu     sync.Mutex
	active bool
	cancel func()
}

func (s *subscription) ID() string        { return s.id }
func (s *subscription) EventType() string { return s.eventType }

func (s *subscription) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *subscription) Cancel() error {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return nil
	}
	s.active = false
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return nil
}

// Dispatcher is the default Bus implementation.
type Dispatcher struct {
	mu sync.RWMutex
	// handlers: eventType -> subID -> subscription
	handlers  map[string]map[string]*subscription
	metrics   Metrics
	observers map[Observer]struct{}
}

var _ Bus = (*Dispatcher)(nil)

// New creates an empty Dispatcher.
func New() *Dispatcher {
	return &Dispatcher{
		handlers:  make(map[string]map[string]*subscription),
		observers: make(map[Observer]struct{}),
	}
}

func (d *Dispatcher) Publish(event Event) error {
	return d.deliver(event)
}

// PublishWithFilters drops the event silently if any filter rejects it.
func (d *Dispatcher) PublishWithFilters(event Event, filters ...Filter) error {
	for _, f := range filters {
		if !f(event) {
			d.mu.Lock()
			if len(d.observers) > 0 {
				d.metrics.DroppedByFilters++
			}
			d.mu.Unlock()
			return nil
		}
	}
	return d.deliver(event)
}

func (d *Dispatcher) Subscribe(eventType string, handler Handler) (Subscription, error) {
	if handler == nil {
		return nil, errors.New("events: nil handler")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.handlers[eventType] == nil {
		d.handlers[eventType] = make(map[string]*subscription)
	}
	id := uuid.NewString()
	s := &subscription{id: id, eventType: eventType, handler: handler, active: true}
	s.cancel = func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if m, ok := d.handlers[eventType]; ok {
			delete(m, id)
			if len(m) == 0 {
				delete(d.handlers, eventType)
			}
		}
	}
	d.handlers[eventType][id] = s
	return s, nil
}

func (d *Dispatcher) Unsubscribe(sub Subscription) error {
	if sub == nil {
		return nil
	}
	return sub.Cancel()
}

func (d *Dispatcher) PublishBatch(events ...Event) error {
	var all error
	for _, e := range events {
		if err := d.deliver(e); err != nil {
			all = errors.Join(all, err)
		}
	}
	return all
}

func (d *Dispatcher) AddObserver(obs Observer) {
	d.mu.Lock()
	d.observers[obs] = struct{}{}
	d.mu.Unlock()
}

func (d *Dispatcher) RemoveObserver(obs Observer) {
	d.mu.Lock()
	delete(d.observers, obs)
	d.mu.Unlock()
}

func (d *Dispatcher) Metrics() Metrics {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.metrics
}

func (d *Dispatcher) deliver(event Event) error {
	start := time.Now()
	etype := event.Type()

	d.mu.RLock()
	var subs []*subscription
	if m := d.handlers[etype]; m != nil {
		subs = make([]*subscription, 0, len(m))
		for _, s := range m {
			subs = append(subs, s)
		}
	}
	var observers []Observer
	if len(d.observers) > 0 {
		observers = make([]Observer, 0, len(d.observers))
		for obs := range d.observers {
			observers = append(observers, obs)
		}
	}
	d.mu.RUnlock()

	for _, obs := range observers {
		obs.OnPublish(etype, event)
	}

	var all error
	delivered := 0
	for _, s := range subs {
		if !s.IsActive() {
			continue
		}
		delivered++
		if err := s.handler(event); err != nil {
			all = errors.Join(all, err)
		}
	}

	if len(observers) > 0 {
		dur := time.Since(start).Microseconds()
		for _, obs := range observers {
			obs.OnDelivered(etype, delivered, all, dur)
		}
		d.mu.Lock()
		d.metrics.Published++
		d.metrics.DeliveredHandlers += uint64(delivered)
		if all != nil {
			d.metrics.Errors++
		}
		var active uint64
		for _, m := range d.handlers {
			active += uint64(len(m))
		}
		d.metrics.SubscribersActive = active
		d.mu.Unlock()
	}
	return all
}
