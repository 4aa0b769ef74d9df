package pipeline

import (
	"context"
	"sync"

	"github.com/kbukum/autotune/model"
)

// Merge combines multiple pipelines concurrently.
// Values are yielded as they become available from any source.
// Order is NOT preserved.
func Merge[T any](pipelines ...*Pipeline[T]) *Pipeline[T] {
	return &Pipeline[T]{
		create: func(ctx context.Context) Iterator[T] {
			rec, ctx := newRecorder(ctx, model.KindInterleave, model.Args{Name: "Merge"})
			mergeCtx, cancel := context.WithCancel(ctx)
			it := &mergeIter[T]{
				ch:     make(chan result[T], len(pipelines)),
				iters:  make([]Iterator[T], len(pipelines)),
				cancel: cancel,
				rec:    rec,
			}
			for i, p := range pipelines {
				it.iters[i] = p.create(mergeCtx)
				it.wg.Add(1)
				go it.forward(mergeCtx, it.iters[i])
			}
			go func() {
				it.wg.Wait()
				close(it.ch)
			}()
			return it
		},
	}
}

type mergeIter[T any] struct {
	ch     chan result[T]
	iters  []Iterator[T]
	cancel context.CancelFunc
	wg     sync.WaitGroup
	rec    recorder
}

func (it *mergeIter[T]) forward(ctx context.Context, iter Iterator[T]) {
	defer it.wg.Done()
	for {
		val, ok, err := iter.Next(ctx)
		if err != nil {
			select {
			case it.ch <- result[T]{err: err}:
			case <-ctx.Done():
			}
			return
		}
		if !ok {
			return
		}
		it.rec.node.RecordBytesConsumed(elementSize(val))
		select {
		case it.ch <- result[T]{val: val, ok: true}:
		case <-ctx.Done():
			return
		}
	}
}

func (it *mergeIter[T]) Next(ctx context.Context) (T, bool, error) {
	select {
	case r, open := <-it.ch:
		if !open {
			var zero T
			return zero, false, nil
		}
		if r.ok {
			it.rec.node.RecordElement()
			it.rec.node.RecordBytesProduced(elementSize(r.val))
		}
		return r.val, r.ok, r.err
	case <-ctx.Done():
		var zero T
		return zero, false, ctx.Err()
	}
}

func (it *mergeIter[T]) Close() error {
	it.cancel()
	it.wg.Wait()
	closers := make([]interface{ Close() error }, len(it.iters))
	for i, iter := range it.iters {
		closers[i] = iter
	}
	return closeStage(&it.rec, closers...)
}
