package pipeline

import (
	"context"
	"math"
	"runtime"
	"testing"
	"time"

	"github.com/kbukum/autotune/logger"
	"github.com/kbukum/autotune/model"
)

func newModelContext() (*model.Model, context.Context) {
	m := model.New(model.WithLogger(logger.Nop()))
	return m, model.WithContext(context.Background(), m, nil)
}

type nodeShape struct {
	name     string
	kind     model.Kind
	children []nodeShape
}

func shapeOf(n *model.Node) nodeShape {
	s := nodeShape{name: n.Name(), kind: n.Kind()}
	for _, c := range n.Children() {
		s.children = append(s.children, shapeOf(c))
	}
	return s
}

func (s nodeShape) String() string {
	out := s.name + ":" + s.kind.String()
	if len(s.children) > 0 {
		out += "("
		for i, c := range s.children {
			if i > 0 {
				out += " "
			}
			out += c.String()
		}
		out += ")"
	}
	return out
}

func TestStagesRegisterNodes(t *testing.T) {
	m, ctx := newModelContext()
	src := FromSlice([]int{1, 2, 3, 4})
	p := Reduce(
		Batch(
			Tap(
				Merge(
					Parallel(src, Auto, double),
					Concat(Filter(FromSlice([]int{5}), func(int) bool { return true }), Buffer(FromSlice([]int{6}), Auto)),
				),
				func(context.Context, int) error { return nil },
			),
			2, 0,
		),
		0, func(acc int, b []int) int { return acc + len(b) },
	)

	iter := p.Iter(ctx)
	want := "Reduce:unknown(Batch:known_ratio(Tap:known_ratio(Merge:interleave(" +
		"Parallel:async(Source:sequential) " +
		"Concat:interleave(Filter:unknown(Source:sequential) Buffer:async(Source:sequential))))))"
	if got := shapeOf(m.Root()).String(); got != want {
		t.Errorf("tree\n got %s\nwant %s", got, want)
	}

	v, ok, err := iter.Next(ctx)
	if err != nil || !ok || v != 6 {
		t.Fatalf("Next = %d %v %v, want 6 elements counted", v, ok, err)
	}
	if err := iter.Close(); err != nil {
		t.Fatal(err)
	}
	if m.Root() != nil {
		t.Error("closing the pipeline should remove every node")
	}
	if n := len(m.CollectMetrics()); n != 0 {
		t.Errorf("%d nodes left after close", n)
	}
}

func TestStageCounters(t *testing.T) {
	m, ctx := newModelContext()
	p := Map(FromSlice([]string{"ab", "cde", "f"}), func(_ context.Context, s string) (string, error) {
		time.Sleep(time.Millisecond)
		return s + s, nil
	})
	iter := p.Iter(ctx)
	defer iter.Close()
	for {
		_, ok, err := iter.Next(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			break
		}
	}

	root := m.Root()
	rec := m.CollectMetrics()[root.ID()]
	if rec.NumElements != 3 {
		t.Errorf("elements = %d, want 3", rec.NumElements)
	}
	if rec.BytesConsumed != 6 || rec.BytesProduced != 12 {
		t.Errorf("bytes consumed/produced = %d/%d, want 6/12", rec.BytesConsumed, rec.BytesProduced)
	}
	if rec.ComputationTime < 3*time.Millisecond {
		t.Errorf("computation time %s should include the work of every element", rec.ComputationTime)
	}
	source := m.CollectMetrics()[root.Children()[0].ID()]
	if source.ComputationTime >= rec.ComputationTime {
		t.Errorf("source time %s should not include the map's work", source.ComputationTime)
	}
}

func TestBufferFollowsCapacity(t *testing.T) {
	m, ctx := newModelContext()
	items := make([]int, 200)
	slow := Map(FromSlice(items), func(_ context.Context, n int) (int, error) {
		time.Sleep(time.Millisecond)
		return n, nil
	})
	iter := Buffer(slow, Auto).Iter(ctx)
	defer iter.Close()
	buf := iter.(*bufferIter[int])

	if _, _, err := iter.Next(ctx); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return buf.buffered() == 1 })
	time.Sleep(5 * time.Millisecond)
	if n := buf.buffered(); n > 1 {
		t.Fatalf("buffered %d values with capacity 1", n)
	}

	m.Optimize(ctx, model.HillClimb, 8, 1<<20, float64(time.Millisecond))
	capacity := buf.capacity.Value()
	if capacity < 3 {
		t.Fatalf("capacity = %d, want growth for a consumer as slow as the producer", capacity)
	}
	// nobody consumes: the producer must wake on the new capacity by itself
	waitFor(t, func() bool { return buf.buffered() >= 3 })

	// no memory budget at all: clamped back to one slot
	m.Optimize(ctx, model.HillClimb, 8, 0, float64(time.Millisecond))
	if got := buf.capacity.Value(); got != 1 {
		t.Fatalf("capacity = %d after an exhausted pass, want 1", got)
	}
	for n := buf.buffered(); n > 0; n-- {
		if _, _, err := iter.Next(ctx); err != nil {
			t.Fatal(err)
		}
	}
	time.Sleep(10 * time.Millisecond)
	if n := buf.buffered(); n > 1 {
		t.Errorf("buffered %d values after shrinking to 1", n)
	}
}

func TestParallelTunesPool(t *testing.T) {
	if runtime.NumCPU() < 2 {
		t.Skip("needs at least two CPUs")
	}
	m, ctx := newModelContext()
	items := make([]int, 500)
	iter := Parallel(FromSlice(items), Auto, func(_ context.Context, n int) (int, error) {
		time.Sleep(time.Millisecond)
		return n, nil
	}).Iter(ctx)
	defer iter.Close()
	par := iter.(*parallelIter[int, int])

	if _, _, err := iter.Next(ctx); err != nil {
		t.Fatal(err)
	}
	if got := par.pool.Cap(); got != 1 {
		t.Fatalf("pool size = %d before tuning, want 1", got)
	}

	res := m.Optimize(ctx, model.HillClimb, 2, math.MaxInt64, 0)
	if got := par.parallelism.Value(); got != 2 {
		t.Fatalf("parallelism = %d, want the whole budget of 2 (%+v)", got, res)
	}
	if got := par.pool.Cap(); got != 2 {
		t.Fatalf("pool size = %d right after the pass, want 2", got)
	}
	for i := 0; i < 10; i++ {
		if _, _, err := iter.Next(ctx); err != nil {
			t.Fatal(err)
		}
	}
}

func TestAsyncStagesLeaveWaitsUntallied(t *testing.T) {
	_, ctx := newModelContext()
	items := make([]int, 50)

	bufIter := Buffer(FromSlice(items), 4).Iter(ctx)
	parIter := Parallel(FromSlice(items), 2, double).Iter(ctx)
	for _, iter := range []Iterator[int]{bufIter, parIter} {
		for {
			_, ok, err := iter.Next(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if !ok {
				break
			}
		}
		if err := iter.Close(); err != nil {
			t.Fatal(err)
		}
	}

	if w := bufIter.(*bufferIter[int]).rec.waited; w != 0 {
		t.Errorf("buffer tallied %s of upstream waits", w)
	}
	if w := parIter.(*parallelIter[int, int]).rec.waited; w != 0 {
		t.Errorf("parallel tallied %s of upstream waits", w)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met within 5s")
		}
		time.Sleep(time.Millisecond)
	}
}
