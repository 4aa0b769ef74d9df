package model

import "context"

type contextKey struct{}

type iteration struct {
	model  *Model
	parent *Node
}

// WithContext returns a context carrying m and the node new stages attach to.
func WithContext(ctx context.Context, m *Model, parent *Node) context.Context {
	return context.WithValue(ctx, contextKey{}, iteration{model: m, parent: parent})
}

// FromContext returns the model and parent carried by ctx, or nils.
func FromContext(ctx context.Context) (*Model, *Node) {
	it, ok := ctx.Value(contextKey{}).(iteration)
	if !ok {
		return nil, nil
	}
	return it.model, it.parent
}

// CreateFromContext creates a node under the parent carried by ctx and
// returns it with a context in which it is the parent. Without a model in
// ctx it returns a nil node and ctx unchanged.
func CreateFromContext(ctx context.Context, kind Kind, args Args) (*Node, context.Context) {
	m, parent := FromContext(ctx)
	if m == nil {
		return nil, ctx
	}
	n := m.CreateNode(parent, kind, args)
	return n, WithContext(ctx, m, n)
}

// RemoveNode detaches n from its model. It is a no-op for a nil node.
func RemoveNode(n *Node) {
	if n != nil {
		n.model.Remove(n)
	}
}
