package model

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Kind classifies how a stage transforms the cost of its inputs.
type Kind int

const (
	// KindUnknown passes its input time through unchanged.
	KindUnknown Kind = iota
	// KindSequential produces one element per input element on the caller's goroutine.
	KindSequential
	// KindKnownRatio consumes a fixed number of input elements per output element.
	KindKnownRatio
	// KindAsync runs ahead of its consumer with parallel workers and a buffer.
	KindAsync
	// KindInterleave combines several input branches.
	KindInterleave
)

func (k Kind) String() string {
	switch k {
	case KindSequential:
		return "sequential"
	case KindKnownRatio:
		return "known_ratio"
	case KindAsync:
		return "async"
	case KindInterleave:
		return "interleave"
	default:
		return "unknown"
	}
}

// NodeID identifies a node within one Model.
type NodeID int64

// Args describes a node at creation time.
type Args struct {
	// Name is the stage name, e.g. "Map" or "Parallel".
	Name string
	// Ratio is the number of input elements per output element for
	// KindKnownRatio nodes.
	Ratio float64
	// Parameters are the stage's knobs. The node keeps the pointers, so the
	// stage observes optimizer writes directly.
	Parameters []*Parameter
}

// Node models one pipeline stage. The counter methods are safe to call
// from the stage's goroutines without any lock and are no-ops on a nil
// node, so stages run unchanged outside a Model.
type Node struct {
	model  *Model
	id     NodeID
	name   string
	kind   Kind
	ratio  float64
	params []*Parameter

	// guarded by model.mu
	parent   *Node
	children []*Node

	elements       atomic.Int64
	processingTime atomic.Int64
	bytesConsumed  atomic.Int64
	bytesProduced  atomic.Int64

	// guarded by model.flushMu
	flushed MetricsRecord
}

// ID returns the node identifier.
func (n *Node) ID() NodeID { return n.id }

// Name returns the stage name.
func (n *Node) Name() string { return n.name }

// DisplayName returns the name qualified with the node ID.
func (n *Node) DisplayName() string { return fmt.Sprintf("%s(%d)", n.name, n.id) }

// Kind returns the node kind.
func (n *Node) Kind() Kind { return n.kind }

// Parameter returns the named parameter or nil.
func (n *Node) Parameter(name string) *Parameter {
	if n == nil {
		return nil
	}
	for _, p := range n.params {
		if p.name == name {
			return p
		}
	}
	return nil
}

// Parent returns the parent node, nil for the root or a detached node.
func (n *Node) Parent() *Node {
	n.model.mu.RLock()
	defer n.model.mu.RUnlock()
	return n.parent
}

// Children returns a copy of the ordered children.
func (n *Node) Children() []*Node {
	n.model.mu.RLock()
	defer n.model.mu.RUnlock()
	return append([]*Node(nil), n.children...)
}

// RecordElement counts one produced element.
func (n *Node) RecordElement() {
	if n != nil {
		n.elements.Add(1)
	}
}

// RecordProcessingTime adds time spent producing elements, excluding time
// spent waiting on inputs.
func (n *Node) RecordProcessingTime(d time.Duration) {
	if n != nil && d > 0 {
		n.processingTime.Add(int64(d))
	}
}

// RecordBytesConsumed adds bytes pulled from inputs.
func (n *Node) RecordBytesConsumed(b int64) {
	if n != nil && b > 0 {
		n.bytesConsumed.Add(b)
	}
}

// RecordBytesProduced adds bytes handed to the consumer.
func (n *Node) RecordBytesProduced(b int64) {
	if n != nil && b > 0 {
		n.bytesProduced.Add(b)
	}
}

// Elements returns the number of produced elements.
func (n *Node) Elements() int64 { return n.elements.Load() }

// SelfTime returns the mean processing time per element in nanoseconds, or
// zero until the node has produced an element.
func (n *Node) SelfTime() float64 {
	e := n.elements.Load()
	if e == 0 {
		return 0
	}
	return float64(n.processingTime.Load()) / float64(e)
}

// BytesPerElement returns the mean size of a produced element.
func (n *Node) BytesPerElement() float64 {
	e := n.elements.Load()
	if e == 0 {
		return 0
	}
	return float64(n.bytesProduced.Load()) / float64(e)
}

func (n *Node) record() MetricsRecord {
	return MetricsRecord{
		Node:            n.DisplayName(),
		Kind:            n.kind,
		BytesConsumed:   n.bytesConsumed.Load(),
		BytesProduced:   n.bytesProduced.Load(),
		NumElements:     n.elements.Load(),
		ComputationTime: time.Duration(n.processingTime.Load()),
	}
}

// walk visits n and its subtree in pre-order. Callers hold model.mu.
func (n *Node) walk(fn func(node *Node, depth int)) {
	var visit func(node *Node, depth int)
	visit = func(node *Node, depth int) {
		fn(node, depth)
		for _, c := range node.children {
			visit(c, depth+1)
		}
	}
	visit(n, 0)
}
