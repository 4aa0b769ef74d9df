package model

import (
	"context"
	"time"
)

// MetricsRecord is an immutable snapshot of a node's counters.
type MetricsRecord struct {
	Node            string
	Kind            Kind
	BytesConsumed   int64
	BytesProduced   int64
	NumElements     int64
	ComputationTime time.Duration
}

// IsZero reports whether no counter moved.
func (r MetricsRecord) IsZero() bool {
	return r.BytesConsumed == 0 && r.BytesProduced == 0 && r.NumElements == 0 && r.ComputationTime == 0
}

func (r MetricsRecord) sub(prev MetricsRecord) MetricsRecord {
	return MetricsRecord{
		Node:            r.Node,
		Kind:            r.Kind,
		BytesConsumed:   r.BytesConsumed - prev.BytesConsumed,
		BytesProduced:   r.BytesProduced - prev.BytesProduced,
		NumElements:     r.NumElements - prev.NumElements,
		ComputationTime: r.ComputationTime - prev.ComputationTime,
	}
}

// Sink receives counter deltas on every flush. Implementations add them to
// monotonic counters of an external metrics system.
type Sink interface {
	RecordDelta(ctx context.Context, delta MetricsRecord)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, delta MetricsRecord)

// RecordDelta calls f.
func (f SinkFunc) RecordDelta(ctx context.Context, delta MetricsRecord) { f(ctx, delta) }
