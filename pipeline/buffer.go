package pipeline

import (
	"context"
	"sync"

	"github.com/kbukum/autotune/model"
)

// maxBufferSize bounds an automatically sized buffer.
const maxBufferSize = 1024

// Buffer decouples the production rate from the consumption rate with a
// goroutine that runs ahead of the consumer and keeps up to size values.
//
// With size Auto the capacity is tuned between 1 and 1024 elements. A grown
// capacity wakes the producer at once; a shrunk one takes effect as the
// consumer drains the excess.
func Buffer[T any](p *Pipeline[T], size int) *Pipeline[T] {
	return &Pipeline[T]{
		create: func(ctx context.Context) Iterator[T] {
			capacity := bufferParameter(size)
			rec, ctx := newRecorder(ctx, model.KindAsync, model.Args{
				Name:       "Buffer",
				Parameters: []*model.Parameter{capacity},
			})
			bufCtx, cancel := context.WithCancel(ctx)
			it := &bufferIter[T]{
				source:   p.create(ctx),
				capacity: capacity,
				cancel:   cancel,
				rec:      rec,
			}
			it.cond = sync.NewCond(&it.mu)
			capacity.Watch(it.resized)
			it.wg.Add(1)
			go it.produce(bufCtx)
			return it
		},
	}
}

func bufferParameter(size int) *model.Parameter {
	switch {
	case size == Auto:
		return model.NewParameter(model.BufferSize, 1, 1, maxBufferSize)
	case size <= 0:
		return model.FixedParameter(model.BufferSize, 1)
	default:
		return model.FixedParameter(model.BufferSize, int64(size))
	}
}

type bufferIter[T any] struct {
	source   Iterator[T]
	capacity *model.Parameter
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	rec      recorder

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []result[T]
	done   bool // producer returned
	closed bool
}

// resized wakes a producer parked on a full buffer.
func (it *bufferIter[T]) resized(int64) {
	it.mu.Lock()
	it.cond.Broadcast()
	it.mu.Unlock()
}

func (it *bufferIter[T]) produce(ctx context.Context) {
	defer it.wg.Done()
	defer func() {
		it.mu.Lock()
		it.done = true
		it.cond.Broadcast()
		it.mu.Unlock()
	}()

	for {
		it.mu.Lock()
		for !it.closed && int64(len(it.queue)) >= it.capacity.Value() {
			it.cond.Wait()
		}
		closed := it.closed
		it.mu.Unlock()
		if closed {
			return
		}

		val, ok, err := pull(ctx, &it.rec, it.source)
		if err == nil && !ok {
			return
		}
		it.mu.Lock()
		it.queue = append(it.queue, result[T]{val: val, ok: ok, err: err})
		it.cond.Broadcast()
		it.mu.Unlock()
		if err != nil {
			return
		}
	}
}

func (it *bufferIter[T]) Next(ctx context.Context) (T, bool, error) {
	stop := context.AfterFunc(ctx, func() {
		it.mu.Lock()
		it.cond.Broadcast()
		it.mu.Unlock()
	})
	defer stop()

	it.mu.Lock()
	defer it.mu.Unlock()
	for len(it.queue) == 0 && !it.done && ctx.Err() == nil {
		it.cond.Wait()
	}
	if len(it.queue) == 0 {
		var zero T
		return zero, false, ctx.Err()
	}
	r := it.queue[0]
	it.queue[0] = result[T]{}
	it.queue = it.queue[1:]
	it.cond.Broadcast()
	if r.ok {
		it.rec.node.RecordElement()
		it.rec.node.RecordBytesProduced(elementSize(r.val))
	}
	return r.val, r.ok, r.err
}

// buffered returns the number of values waiting for the consumer.
func (it *bufferIter[T]) buffered() int {
	it.mu.Lock()
	defer it.mu.Unlock()
	return len(it.queue)
}

func (it *bufferIter[T]) Close() error {
	it.mu.Lock()
	it.closed = true
	it.cond.Broadcast()
	it.mu.Unlock()
	it.cancel()
	it.wg.Wait()
	return closeStage(&it.rec, it.source)
}
