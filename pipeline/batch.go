package pipeline

import (
	"context"
	"time"

	"github.com/kbukum/autotune/model"
)

// Batch collects up to size values or waits timeout (whichever comes first),
// then emits them as a slice.
//
// size=0 means collect until timeout. timeout=0 means collect until size.
// Both zero is invalid and defaults to size=1.
//
// A size-bounded batch is modelled as consuming size inputs per output; a
// timeout-only batch has no known ratio.
func Batch[T any](p *Pipeline[T], size int, timeout time.Duration) *Pipeline[[]T] {
	if size <= 0 && timeout <= 0 {
		size = 1
	}
	return &Pipeline[[]T]{
		create: func(ctx context.Context) Iterator[[]T] {
			kind, ratio := model.KindKnownRatio, float64(size)
			if size <= 0 {
				kind, ratio = model.KindUnknown, 0
			}
			rec, ctx := newRecorder(ctx, kind, model.Args{Name: "Batch", Ratio: ratio})
			return &batchIter[T]{
				source:  p.create(ctx),
				size:    size,
				timeout: timeout,
				rec:     rec,
			}
		},
	}
}

type batchIter[T any] struct {
	source  Iterator[T]
	size    int
	timeout time.Duration
	done    bool
	rec     recorder
}

func (it *batchIter[T]) Next(ctx context.Context) (result []T, ok bool, err error) {
	if it.done {
		return nil, false, nil
	}

	start := it.rec.begin()
	var batch []T
	var timer <-chan time.Time

	if it.timeout > 0 {
		t := time.NewTimer(it.timeout)
		defer t.Stop()
		timer = t.C
	}

	for {
		if it.size > 0 && len(batch) >= it.size {
			it.rec.produced(start, batch)
			return batch, true, nil
		}

		val, ok, err := pull(ctx, &it.rec, it.source)
		if err != nil {
			if len(batch) > 0 {
				// partial batch first; the error surfaces on the next call
				it.rec.produced(start, batch)
				return batch, true, nil
			}
			return nil, false, err
		}
		if !ok {
			it.done = true
			if len(batch) > 0 {
				it.rec.produced(start, batch)
				return batch, true, nil
			}
			return nil, false, nil
		}

		batch = append(batch, val)

		if timer != nil {
			select {
			case <-timer:
				it.rec.produced(start, batch)
				return batch, true, nil
			default:
			}
		}
	}
}

func (it *batchIter[T]) Close() error { return closeStage(&it.rec, it.source) }
