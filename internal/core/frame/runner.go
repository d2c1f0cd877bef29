// Package frame drives a scene registry through fixed per-frame phases:
// a single-goroutine mutation phase, a cleanup pass that drains deferred
// destruction and recomputes stale world transforms, and a read phase in
// which registered readers run concurrently against the settled scene.
package frame

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zeusync/scenecore/internal/core/handle"
	"github.com/zeusync/scenecore/internal/core/observability/log"
	"github.com/zeusync/scenecore/internal/core/scene"
	"github.com/zeusync/scenecore/pkg/concurrent"
	"github.com/zeusync/scenecore/pkg/generic"
	"github.com/zeusync/scenecore/pkg/sequence"
)

// ErrWrongPhase is returned when an operation is attempted outside the phase
// that allows it.
var ErrWrongPhase = errors.New("operation not allowed in current frame phase")

// Phase is the stage a Runner is in.
type Phase int32

const (
	PhaseIdle   Phase = iota // between frames
	PhaseMutate              // update callback, destroy queue, recompute
	PhaseRead                // concurrent readers
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseMutate:
		return "mutate"
	case PhaseRead:
		return "read"
	default:
		return fmt.Sprintf("Phase(%d)", int32(p))
	}
}

// UpdateFunc mutates the scene during the mutation phase.
type UpdateFunc[T any] func(ctx context.Context, r *scene.Registry[T]) error

// ReadFunc inspects the scene during the read phase. It must not mutate the
// registry; use Runner.Defer to schedule destruction for the next frame.
type ReadFunc[T any] func(ctx context.Context, r *scene.Registry[T]) error

type reader[T any] struct {
	name string
	fn   ReadFunc[T]
}

// Stats summarises one frame.
type Stats struct {
	Frame      uint64
	Destroyed  int
	Skipped    int
	Recomputed int
	Readers    int
	Duration   time.Duration
}

// Runner owns the frame loop for one registry.
type Runner[T any] struct {
	registry *scene.Registry[T]
	logger   log.Log
	workers  int

	phase atomic.Int32
	frame atomic.Uint64

	mu      sync.Mutex
	pending []handle.Handle
	readers []reader[T]

	buffers *generic.Pool[*[]handle.Handle]
}

// Option configures a Runner.
type Option func(*runnerOptions)

type runnerOptions struct {
	logger  log.Log
	workers int
}

func WithLogger(l log.Log) Option {
	return func(o *runnerOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithWorkers sets how many goroutines ForEachParallel fans out to.
func WithWorkers(n int) Option {
	return func(o *runnerOptions) {
		if n > 0 {
			o.workers = n
		}
	}
}

// NewRunner creates a runner for r.
func NewRunner[T any](r *scene.Registry[T], opts ...Option) *Runner[T] {
	o := runnerOptions{logger: log.NewNop(), workers: 1}
	for _, opt := range opts {
		opt(&o)
	}
	return &Runner[T]{
		registry: r,
		logger:   o.logger.With(log.String("component", "frame")),
		workers:  o.workers,
		pending:  make([]handle.Handle, 0, 64),
		buffers:  generic.NewSlicePool[handle.Handle](256),
	}
}

// Registry returns the registry this runner drives.
func (fr *Runner[T]) Registry() *scene.Registry[T] { return fr.registry }

// Phase reports the current phase. Safe to call from any goroutine.
func (fr *Runner[T]) Phase() Phase { return Phase(fr.phase.Load()) }

// Frame is the number of completed frames.
func (fr *Runner[T]) Frame() uint64 { return fr.frame.Load() }

// Workers is the fan-out of ForEachParallel.
func (fr *Runner[T]) Workers() int { return fr.workers }

// AddReader registers fn to run in every read phase. Readers run
// concurrently with each other.
func (fr *Runner[T]) AddReader(name string, fn ReadFunc[T]) {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	fr.readers = append(fr.readers, reader[T]{name: name, fn: fn})
}

// Defer queues h for destruction at the end of the current (or next)
// mutation phase. It may be called from any goroutine, including readers.
// Handles that are no longer alive when the queue drains are skipped.
func (fr *Runner[T]) Defer(h handle.Handle) {
	fr.mu.Lock()
	fr.pending = append(fr.pending, h)
	fr.mu.Unlock()
}

// Pending is the number of handles waiting in the destroy queue.
func (fr *Runner[T]) Pending() int {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	return len(fr.pending)
}

// Mutate runs fn against the registry, but only during the mutation phase.
func (fr *Runner[T]) Mutate(fn func(r *scene.Registry[T]) error) error {
	if p := fr.Phase(); p != PhaseMutate {
		return fmt.Errorf("mutate during %s phase: %w", p, ErrWrongPhase)
	}
	return fn(fr.registry)
}

// Step runs one frame: update, destroy queue, recompute, read phase. An
// update error aborts the frame before anything else runs; the destroy
// queue is kept for the next frame.
func (fr *Runner[T]) Step(ctx context.Context, update UpdateFunc[T]) (Stats, error) {
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}
	if !fr.phase.CompareAndSwap(int32(PhaseIdle), int32(PhaseMutate)) {
		return Stats{}, fmt.Errorf("step during %s phase: %w", fr.Phase(), ErrWrongPhase)
	}
	defer fr.phase.Store(int32(PhaseIdle))

	start := time.Now()
	stats := Stats{Frame: fr.frame.Load() + 1}

	if update != nil {
		if err := update(ctx, fr.registry); err != nil {
			return stats, fmt.Errorf("frame %d update: %w", stats.Frame, err)
		}
	}

	stats.Destroyed, stats.Skipped = fr.drain()
	stats.Recomputed = fr.registry.Scene().ResolveAll()

	fr.phase.Store(int32(PhaseRead))
	fr.mu.Lock()
	readers := slices.Clone(fr.readers)
	fr.mu.Unlock()
	stats.Readers = len(readers)

	err := concurrent.Concurrent(ctx, sequence.From(readers), 0, func(ctx context.Context, rd reader[T]) error {
		if err := rd.fn(ctx, fr.registry); err != nil {
			return fmt.Errorf("reader %q: %w", rd.name, err)
		}
		return nil
	})
	fr.frame.Add(1)
	stats.Duration = time.Since(start)

	fr.logger.Debug("frame complete",
		log.Uint64("frame", stats.Frame),
		log.Int("destroyed", stats.Destroyed),
		log.Int("skipped", stats.Skipped),
		log.Int("recomputed", stats.Recomputed),
		log.Int("live", fr.registry.Len()),
		log.Duration("took", stats.Duration),
	)
	if err != nil {
		return stats, fmt.Errorf("frame %d read: %w", stats.Frame, err)
	}
	return stats, nil
}

// drain destroys everything queued so far. A cascade may invalidate handles
// later in the queue; those are skipped.
func (fr *Runner[T]) drain() (destroyed, skipped int) {
	fr.mu.Lock()
	queue := fr.pending
	fr.pending = make([]handle.Handle, 0, cap(queue))
	fr.mu.Unlock()

	for _, h := range queue {
		if !fr.registry.Alive(h) {
			skipped++
			continue
		}
		if err := fr.registry.Destroy(h); err != nil {
			fr.logger.Error("deferred destroy failed", log.Stringer("entity", h), log.Error(err))
			skipped++
			continue
		}
		destroyed++
	}
	return destroyed, skipped
}

// ForEachParallel calls fn for every live entity, spread across the
// configured workers by handle hash. Entities in the same shard are visited
// in index order. It is only allowed during the read phase.
func (fr *Runner[T]) ForEachParallel(ctx context.Context, fn func(ctx context.Context, h handle.Handle) error) error {
	if p := fr.Phase(); p != PhaseRead {
		return fmt.Errorf("parallel read during %s phase: %w", p, ErrWrongPhase)
	}
	buf := fr.buffers.Get()
	defer fr.buffers.Put(buf)
	for h := range fr.registry.LiveEntities() {
		*buf = append(*buf, h)
	}
	shards := concurrent.Shard(*buf, fr.workers, handle.Handle.Hash)
	return concurrent.ForEachShard(ctx, shards, fn)
}

// Run steps a frame every tick until ctx is done or a frame fails. A
// non-positive tick runs frames back to back.
func (fr *Runner[T]) Run(ctx context.Context, tick time.Duration, update UpdateFunc[T]) error {
	if tick <= 0 {
		for ctx.Err() == nil {
			if _, err := fr.Step(ctx, update); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
		return nil
	}
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if _, err := fr.Step(ctx, update); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}
