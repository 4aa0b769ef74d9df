package model

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/autotune/logger"
)

const tracerName = "github.com/kbukum/autotune/model"

// Model is the live performance model of one pipeline run.
type Model struct {
	id     string
	log    *logger.Logger
	sink   Sink
	tracer trace.Tracer

	nextID atomic.Int64

	mu   sync.RWMutex
	root *Node

	// optimizeMu serializes optimization passes.
	optimizeMu sync.Mutex
	// flushMu serializes flushes and guards Node.flushed.
	flushMu sync.Mutex
}

// Option configures a Model.
type Option func(*Model)

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(m *Model) { m.log = l }
}

// WithSink sets the sink receiving counter deltas from FlushMetrics.
func WithSink(s Sink) Option {
	return func(m *Model) { m.sink = s }
}

// WithTracer sets the tracer used for optimization spans.
func WithTracer(t trace.Tracer) Option {
	return func(m *Model) { m.tracer = t }
}

// New creates an empty model.
func New(opts ...Option) *Model {
	m := &Model{id: uuid.NewString()}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = logger.WithComponent("model")
	}
	m.log = m.log.WithFields(logger.Fields(logger.FieldModelID, m.id))
	if m.tracer == nil {
		m.tracer = otel.Tracer(tracerName)
	}
	return m
}

// ID returns the run identifier of the model.
func (m *Model) ID() string { return m.id }

// Root returns the root node or nil.
func (m *Model) Root() *Node {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.root
}

// CreateNode adds a new leaf under parent, or makes it the root when parent
// is nil. It panics when parent belongs to another model.
func (m *Model) CreateNode(parent *Node, kind Kind, args Args) *Node {
	if parent != nil && parent.model != m {
		panic(fmt.Sprintf("model: parent %s belongs to another model", parent.DisplayName()))
	}
	n := &Node{
		model:  m,
		id:     NodeID(m.nextID.Add(1)),
		name:   args.Name,
		kind:   kind,
		ratio:  args.Ratio,
		params: append([]*Parameter(nil), args.Parameters...),
	}
	if n.name == "" {
		n.name = kind.String()
	}

	m.mu.Lock()
	if parent == nil {
		m.root = n
	} else {
		n.parent = parent
		parent.children = append(parent.children, n)
	}
	m.mu.Unlock()

	m.log.Trace("node created", logger.Fields(logger.FieldNode, n.DisplayName(), "kind", kind.String()))
	return n
}

// Remove detaches node and its subtree. Counter deltas not yet flushed are
// handed to the sink first so removed stages do not lose their tail.
func (m *Model) Remove(node *Node) {
	if node == nil || node.model != m {
		return
	}

	m.mu.Lock()
	if p := node.parent; p != nil {
		for i, c := range p.children {
			if c == node {
				p.children = append(p.children[:i:i], p.children[i+1:]...)
				break
			}
		}
		node.parent = nil
	} else if m.root == node {
		m.root = nil
	}
	var subtree []*Node
	node.walk(func(n *Node, _ int) { subtree = append(subtree, n) })
	m.mu.Unlock()

	m.flush(context.Background(), subtree)
}

// CollectMetrics returns one snapshot per node currently in the tree.
func (m *Model) CollectMetrics() map[NodeID]MetricsRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[NodeID]MetricsRecord)
	if m.root != nil {
		m.root.walk(func(n *Node, _ int) { out[n.id] = n.record() })
	}
	return out
}

// FlushMetrics hands every node's counter growth since the previous flush
// to the sink and returns the deltas. Parameters are not touched.
func (m *Model) FlushMetrics(ctx context.Context) map[NodeID]MetricsRecord {
	return m.flush(ctx, m.nodes())
}

func (m *Model) flush(ctx context.Context, nodes []*Node) map[NodeID]MetricsRecord {
	m.flushMu.Lock()
	defer m.flushMu.Unlock()

	deltas := make(map[NodeID]MetricsRecord, len(nodes))
	for _, n := range nodes {
		cur := n.record()
		delta := cur.sub(n.flushed)
		n.flushed = cur
		deltas[n.id] = delta
		if m.sink != nil && !delta.IsZero() {
			m.sink.RecordDelta(ctx, delta)
		}
	}
	return deltas
}

// nodes returns the tree in pre-order.
func (m *Model) nodes() []*Node {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Node
	if m.root != nil {
		m.root.walk(func(n *Node, _ int) { out = append(out, n) })
	}
	return out
}

// Tunables lists every tunable parameter in pre-order as
// "Parallel(3).parallelism=4[1,8]".
func (m *Model) Tunables() []string {
	var out []string
	for _, n := range m.nodes() {
		for _, p := range n.params {
			if p.Tunable() {
				out = append(out, n.DisplayName()+"."+p.String())
			}
		}
	}
	return out
}
