package pipeline

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/kbukum/autotune/model"
)

// Parallel applies fn to each value concurrently on a pool of n workers.
// Order is NOT preserved. Use Map for ordered processing.
//
// With n Auto the pool size is tuned between 1 and runtime.NumCPU(); the
// pool is resized as soon as the optimizer changes the parameter.
func Parallel[I, O any](p *Pipeline[I], n int, fn func(context.Context, I) (O, error)) *Pipeline[O] {
	return &Pipeline[O]{
		create: func(ctx context.Context) Iterator[O] {
			parallelism := parallelismParameter(n)
			rec, ctx := newRecorder(ctx, model.KindAsync, model.Args{
				Name:       "Parallel",
				Parameters: []*model.Parameter{parallelism},
			})
			pool, err := ants.NewPool(int(parallelism.Value()))
			if err != nil {
				rec.remove()
				return &errIter[O]{err: err}
			}

			workerCtx, cancel := context.WithCancel(ctx)
			it := &parallelIter[I, O]{
				source:      p.create(ctx),
				fn:          fn,
				parallelism: parallelism,
				pool:        pool,
				out:         make(chan result[O]),
				cancel:      cancel,
				rec:         rec,
			}
			parallelism.Watch(func(v int64) { pool.Tune(int(v)) })
			it.dispatcher.Add(1)
			go it.dispatch(workerCtx)
			return it
		},
	}
}

func parallelismParameter(n int) *model.Parameter {
	switch {
	case n == Auto:
		return model.NewParameter(model.Parallelism, 1, 1, int64(runtime.NumCPU()))
	case n <= 0:
		return model.FixedParameter(model.Parallelism, 1)
	default:
		return model.FixedParameter(model.Parallelism, int64(n))
	}
}

type parallelIter[I, O any] struct {
	source      Iterator[I]
	fn          func(context.Context, I) (O, error)
	parallelism *model.Parameter
	pool        *ants.Pool
	out         chan result[O]
	cancel      context.CancelFunc
	rec         recorder

	dispatcher sync.WaitGroup
	tasks      sync.WaitGroup
}

// dispatch pulls from the source and submits one task per value. Submit
// blocks while every worker is busy, which bounds the values in flight by
// the pool size.
func (it *parallelIter[I, O]) dispatch(ctx context.Context) {
	defer it.dispatcher.Done()
	defer func() {
		it.tasks.Wait()
		close(it.out)
	}()

	for ctx.Err() == nil {
		val, ok, err := pull(ctx, &it.rec, it.source)
		if err != nil {
			it.send(ctx, result[O]{err: err})
			return
		}
		if !ok {
			return
		}

		it.tasks.Add(1)
		if err := it.pool.Submit(func() { it.work(ctx, val) }); err != nil {
			it.tasks.Done()
			it.send(ctx, result[O]{err: err})
			return
		}
	}
}

func (it *parallelIter[I, O]) work(ctx context.Context, val I) {
	defer it.tasks.Done()
	start := time.Now()
	o, err := it.fn(ctx, val)
	it.rec.node.RecordProcessingTime(time.Since(start))
	if err != nil {
		it.send(ctx, result[O]{err: err})
		it.cancel()
		return
	}
	it.send(ctx, result[O]{val: o, ok: true})
}

func (it *parallelIter[I, O]) send(ctx context.Context, r result[O]) {
	select {
	case it.out <- r:
	case <-ctx.Done():
	}
}

func (it *parallelIter[I, O]) Next(ctx context.Context) (O, bool, error) {
	select {
	case r, open := <-it.out:
		if !open {
			var zero O
			return zero, false, nil
		}
		if r.ok {
			it.rec.node.RecordElement()
			it.rec.node.RecordBytesProduced(elementSize(r.val))
		}
		return r.val, r.ok, r.err
	case <-ctx.Done():
		var zero O
		return zero, false, ctx.Err()
	}
}

func (it *parallelIter[I, O]) Close() error {
	it.cancel()
	it.dispatcher.Wait()
	it.pool.Release()
	return closeStage(&it.rec, it.source)
}
