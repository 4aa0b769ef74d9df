package pipeline

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/kbukum/autotune/autotune"
	"github.com/kbukum/autotune/model"
)

// AutotuneOption configures Autotune.
type AutotuneOption func(*autotuneOptions)

type autotuneOptions struct {
	model   []model.Option
	driver  []autotune.Option
	onRun   func(*autotune.Driver)
	onClose func(*autotune.Driver)
}

// WithModelOptions passes options to the model built for every run.
func WithModelOptions(opts ...model.Option) AutotuneOption {
	return func(o *autotuneOptions) { o.model = append(o.model, opts...) }
}

// WithDriverOptions passes options to the driver built for every run.
func WithDriverOptions(opts ...autotune.Option) AutotuneOption {
	return func(o *autotuneOptions) { o.driver = append(o.driver, opts...) }
}

// OnRun registers fn to receive the driver of every run right after the
// run's stages have been created, before its loops start.
func OnRun(fn func(*autotune.Driver)) AutotuneOption {
	return func(o *autotuneOptions) { o.onRun = fn }
}

// OnClose registers fn to receive the driver of every run when the run is
// closed, after its loops have stopped and while its stages still hold
// their final parameter values.
func OnClose(fn func(*autotune.Driver)) AutotuneOption {
	return func(o *autotuneOptions) { o.onClose = fn }
}

// Autotune tunes the Auto parameters of every stage in p while it runs.
//
// Each run builds a fresh performance model whose root stands for the
// consumer. The stages of p register under it as they are created. The
// optimize and metrics loops start on the first Next and are stopped and
// joined by Close, before the stages are torn down. An invalid cfg is
// reported by the first Next.
func Autotune[T any](p *Pipeline[T], cfg autotune.Config, opts ...AutotuneOption) *Pipeline[T] {
	var o autotuneOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &Pipeline[T]{
		create: func(ctx context.Context) Iterator[T] {
			m := model.New(o.model...)
			root := m.CreateNode(nil, model.KindKnownRatio, model.Args{Name: "Model", Ratio: 1})
			driver, err := autotune.New(m, cfg, o.driver...)
			if err != nil {
				m.Remove(root)
				return &errIter[T]{err: err}
			}
			source := p.create(model.WithContext(ctx, m, root))
			if o.onRun != nil {
				o.onRun(driver)
			}
			return &autotuneIter[T]{source: source, driver: driver, model: m, root: root, onClose: o.onClose}
		},
	}
}

type autotuneIter[T any] struct {
	source Iterator[T]
	driver *autotune.Driver
	model  *model.Model
	root   *model.Node

	onClose func(*autotune.Driver)
}

func (it *autotuneIter[T]) Next(ctx context.Context) (T, bool, error) {
	if err := it.driver.Start(ctx); err != nil {
		var zero T
		return zero, false, err
	}
	it.driver.RecordInput(time.Now())
	val, ok, err := it.source.Next(ctx)
	it.driver.RecordOutput(time.Now())
	if ok {
		it.root.RecordElement()
		it.root.RecordBytesProduced(elementSize(val))
	}
	return val, ok, err
}

func (it *autotuneIter[T]) Close() error {
	stopErr := it.driver.Stop(context.Background())
	if it.onClose != nil {
		it.onClose(it.driver)
	}
	closeErr := it.source.Close()
	it.model.Remove(it.root)
	return stderrors.Join(stopErr, closeErr)
}
