package concurrent

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/zeusync/scenecore/pkg/sequence"
)

// Concurrent runs action for each element of the iterator in its own goroutine,
// at most limit at a time (limit <= 0 means unbounded). The first error cancels
// the context handed to the remaining actions and is returned.
func Concurrent[T any](ctx context.Context, i *sequence.Iterator[T], limit int, action func(context.Context, T) error) error {
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for value := range i.Seq() {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return action(gctx, value)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// Shard splits items into n buckets by key. Items with equal keys always land
// in the same bucket, and relative order within a bucket is preserved.
func Shard[T any](items []T, n int, key func(T) uint64) [][]T {
	if n <= 0 {
		n = 1
	}
	shards := make([][]T, n)
	per := len(items)/n + 1
	for i := range shards {
		shards[i] = make([]T, 0, per)
	}
	for _, it := range items {
		s := key(it) % uint64(n)
		shards[s] = append(shards[s], it)
	}
	return shards
}

// ForEachShard runs one goroutine per non-empty shard. Within a shard, action
// is called sequentially in order. Processing stops at the first error or when
// ctx is cancelled.
func ForEachShard[T any](ctx context.Context, shards [][]T, action func(context.Context, T) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, shard := range shards {
		if len(shard) == 0 {
			continue
		}
		g.Go(func() error {
			for _, v := range shard {
				if err := gctx.Err(); err != nil {
					return err
				}
				if err := action(gctx, v); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}
