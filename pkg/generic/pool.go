// Package generic holds small typed wrappers over standard containers.
package generic

import "sync"

// Pool is a typed sync.Pool. If reset is set it runs on every value handed
// back through Put.
type Pool[T any] struct {
	pool  sync.Pool
	reset func(T) T
}

func NewPool[T any](generate func() T, reset func(T) T) *Pool[T] {
	return &Pool[T]{
		pool: sync.Pool{
			New: func() any {
				return generate()
			},
		},
		reset: reset,
	}
}

// NewSlicePool pools slice buffers. Buffers are always handed out empty.
func NewSlicePool[T any](capacity int) *Pool[*[]T] {
	return NewPool(
		func() *[]T {
			s := make([]T, 0, capacity)
			return &s
		},
		func(s *[]T) *[]T {
			clear(*s)
			*s = (*s)[:0]
			return s
		},
	)
}

func (p *Pool[T]) Get() T {
	return p.pool.Get().(T)
}

func (p *Pool[T]) Put(value T) {
	if p.reset != nil {
		value = p.reset(value)
	}
	p.pool.Put(value)
}
