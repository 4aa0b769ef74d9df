package pipeline

import (
	"context"
	"reflect"
	"time"

	"github.com/kbukum/autotune/model"
)

// Auto asks a stage to let the optimizer pick a parameter value.
const Auto = -1

// Sizer is implemented by elements that know their memory footprint in
// bytes. Other elements are measured by their type's size; byte slices and
// strings by their length.
type Sizer interface {
	Size() int64
}

func elementSize(v any) int64 {
	switch x := v.(type) {
	case nil:
		return 0
	case Sizer:
		return x.Size()
	case []byte:
		return int64(len(x))
	case string:
		return int64(len(x))
	}
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Slice {
		return int64(t.Size()) + int64(reflect.ValueOf(v).Len())*int64(t.Elem().Size())
	}
	return int64(t.Size())
}

// recorder feeds a stage's counters into its model node. Processing time
// is the wall time of one Next call minus the time spent in the upstream's
// Next. Async stages time their workers themselves and never call begin,
// so upstream waits are only tallied inside a begin/produced pair. All
// methods are no-ops without a node.
type recorder struct {
	node   *model.Node
	waited time.Duration
	timing bool
}

func newRecorder(ctx context.Context, kind model.Kind, args model.Args) (recorder, context.Context) {
	node, ctx := model.CreateFromContext(ctx, kind, args)
	return recorder{node: node}, ctx
}

func (r *recorder) begin() time.Time {
	if r.node == nil {
		return time.Time{}
	}
	r.waited = 0
	r.timing = true
	return time.Now()
}

// produced closes a Next call that yielded v.
func (r *recorder) produced(start time.Time, v any) {
	if r.node == nil {
		return
	}
	r.node.RecordProcessingTime(time.Since(start) - r.waited)
	r.waited = 0
	r.timing = false
	r.node.RecordElement()
	r.node.RecordBytesProduced(elementSize(v))
}

// remove detaches the node once the stage is closed.
func (r *recorder) remove() {
	model.RemoveNode(r.node)
}

// pull reads from src and charges the wait to the upstream, not to r.
func pull[T any](ctx context.Context, r *recorder, src Iterator[T]) (T, bool, error) {
	if r.node == nil {
		return src.Next(ctx)
	}
	start := time.Now()
	v, ok, err := src.Next(ctx)
	if r.timing {
		r.waited += time.Since(start)
	}
	if ok {
		r.node.RecordBytesConsumed(elementSize(v))
	}
	return v, ok, err
}

// closeStage closes the upstream iterators and then removes the node.
func closeStage(r *recorder, sources ...interface{ Close() error }) error {
	var firstErr error
	for _, s := range sources {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	r.remove()
	return firstErr
}
