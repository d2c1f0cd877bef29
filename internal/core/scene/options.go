package scene

import (
	"github.com/zeusync/scenecore/internal/core/events"
	"github.com/zeusync/scenecore/internal/core/handle"
	"github.com/zeusync/scenecore/internal/core/observability/log"
)

// Option configures a Registry.
type Option func(*options)

type options struct {
	policy    Policy
	logger    log.Log
	publisher events.Publisher
	capacity  int
	alloc     []handle.Option
}

// WithPolicy selects the destruction policy. The default is Cascade.
func WithPolicy(p Policy) Option {
	return func(o *options) { o.policy = p }
}

func WithLogger(l log.Log) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithPublisher sets where lifecycle events go. Without one, nothing is published.
func WithPublisher(p events.Publisher) Option {
	return func(o *options) { o.publisher = p }
}

// WithCapacity pre-sizes the entity table.
func WithCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.capacity = n
			o.alloc = append(o.alloc, handle.WithCapacity(n))
		}
	}
}

// WithMaxEntities caps the number of distinct slots. Zero keeps the default.
func WithMaxEntities(n uint32) Option {
	return func(o *options) {
		if n > 0 {
			o.alloc = append(o.alloc, handle.WithMaxSlots(n))
		}
	}
}

// WithMaxGeneration caps how often a slot may be recycled before it is
// retired. Zero keeps the default.
func WithMaxGeneration(n uint32) Option {
	return func(o *options) {
		if n > 0 {
			o.alloc = append(o.alloc, handle.WithMaxGeneration(n))
		}
	}
}
