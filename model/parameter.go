package model

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
)

// Well-known parameter names.
const (
	Parallelism = "parallelism"
	BufferSize  = "buffer_size"
)

// Parameter is a tunable knob of a stage. The stage reads Value on every
// buffering decision; the optimizer is the only writer.
type Parameter struct {
	name  string
	min   int64
	max   int64
	value atomic.Int64

	mu       sync.Mutex
	watchers []func(v int64)
}

// NewParameter creates a parameter with range [min, max]. The initial value
// is clamped into the range. It panics when min > max.
func NewParameter(name string, value, min, max int64) *Parameter {
	if min > max {
		panic(fmt.Sprintf("model: parameter %q has min %d > max %d", name, min, max))
	}
	p := &Parameter{name: name, min: min, max: max}
	p.value.Store(clamp(value, min, max))
	return p
}

// FixedParameter creates a parameter the optimizer never changes.
func FixedParameter(name string, value int64) *Parameter {
	return NewParameter(name, value, value, value)
}

// Name returns the parameter name.
func (p *Parameter) Name() string { return p.name }

// Min returns the lower bound.
func (p *Parameter) Min() int64 { return p.min }

// Max returns the upper bound.
func (p *Parameter) Max() int64 { return p.max }

// Value returns the current value.
func (p *Parameter) Value() int64 { return p.value.Load() }

// Tunable reports whether the optimizer may change the value.
func (p *Parameter) Tunable() bool { return p.min < p.max }

// Watch registers fn to run after an optimization pass changes the value.
// fn runs on the optimizer's goroutine outside the tree lock and must not
// block.
func (p *Parameter) Watch(fn func(v int64)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.watchers = append(p.watchers, fn)
}

// set stores v and reports whether the value changed.
func (p *Parameter) set(v int64) bool {
	if v < p.min || v > p.max {
		panic(fmt.Sprintf("model: parameter %q value %d outside [%d, %d]", p.name, v, p.min, p.max))
	}
	return p.value.Swap(v) != v
}

func (p *Parameter) notify() {
	p.mu.Lock()
	watchers := slices.Clone(p.watchers)
	p.mu.Unlock()
	v := p.Value()
	for _, fn := range watchers {
		fn(v)
	}
}

func (p *Parameter) String() string {
	return fmt.Sprintf("%s=%d[%d,%d]", p.name, p.Value(), p.min, p.max)
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
