package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/kbukum/autotune/autotune"
	"github.com/kbukum/autotune/model"
)

var (
	_ model.Sink        = (*NodeMetrics)(nil)
	_ autotune.Exporter = (*NodeMetrics)(nil)
)

// Attribute keys of node instruments.
const (
	AttrNode = "node"
	AttrKind = "kind"
)

// NodeMetrics holds OpenTelemetry instruments for model node counters.
// Deltas feed monotonic counters; snapshots feed gauges.
type NodeMetrics struct {
	elements        metric.Int64Counter
	bytesConsumed   metric.Int64Counter
	bytesProduced   metric.Int64Counter
	computationTime metric.Float64Counter

	elementsTotal        metric.Int64Gauge
	computationTimeTotal metric.Float64Gauge
}

// NewNodeMetrics creates node instruments on the given meter.
func NewNodeMetrics(meter metric.Meter) (*NodeMetrics, error) {
	elements, err := meter.Int64Counter("autotune.node.elements",
		metric.WithDescription("Elements produced by a pipeline stage"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating autotune.node.elements counter: %w", err)
	}

	bytesConsumed, err := meter.Int64Counter("autotune.node.bytes_consumed",
		metric.WithDescription("Bytes consumed by a pipeline stage"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating autotune.node.bytes_consumed counter: %w", err)
	}

	bytesProduced, err := meter.Int64Counter("autotune.node.bytes_produced",
		metric.WithDescription("Bytes produced by a pipeline stage"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating autotune.node.bytes_produced counter: %w", err)
	}

	computationTime, err := meter.Float64Counter("autotune.node.computation_time",
		metric.WithDescription("Time a pipeline stage spent producing elements"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating autotune.node.computation_time counter: %w", err)
	}

	elementsTotal, err := meter.Int64Gauge("autotune.node.elements.total",
		metric.WithDescription("Elements produced by a pipeline stage since creation"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating autotune.node.elements.total gauge: %w", err)
	}

	computationTimeTotal, err := meter.Float64Gauge("autotune.node.computation_time.total",
		metric.WithDescription("Computation time of a pipeline stage since creation"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating autotune.node.computation_time.total gauge: %w", err)
	}

	return &NodeMetrics{
		elements:             elements,
		bytesConsumed:        bytesConsumed,
		bytesProduced:        bytesProduced,
		computationTime:      computationTime,
		elementsTotal:        elementsTotal,
		computationTimeTotal: computationTimeTotal,
	}, nil
}

// RecordDelta adds a flushed delta to the counters.
func (m *NodeMetrics) RecordDelta(ctx context.Context, delta model.MetricsRecord) {
	attrs := nodeAttributes(delta)
	m.elements.Add(ctx, delta.NumElements, attrs)
	m.bytesConsumed.Add(ctx, delta.BytesConsumed, attrs)
	m.bytesProduced.Add(ctx, delta.BytesProduced, attrs)
	m.computationTime.Add(ctx, delta.ComputationTime.Seconds(), attrs)
}

// Export records a snapshot of every node on the gauges.
func (m *NodeMetrics) Export(ctx context.Context, snapshot map[model.NodeID]model.MetricsRecord) error {
	for _, rec := range snapshot {
		attrs := nodeAttributes(rec)
		m.elementsTotal.Record(ctx, rec.NumElements, attrs)
		m.computationTimeTotal.Record(ctx, rec.ComputationTime.Seconds(), attrs)
	}
	return nil
}

func nodeAttributes(rec model.MetricsRecord) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String(AttrNode, rec.Node),
		attribute.String(AttrKind, rec.Kind.String()),
	)
}
