package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kbukum/autotune/autotune"
	"github.com/kbukum/autotune/model"
)

var (
	_ model.Sink        = (*PrometheusMetrics)(nil)
	_ autotune.Exporter = (*PrometheusMetrics)(nil)
)

// PrometheusMetrics holds Prometheus collectors for model node counters.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	elements        *prometheus.CounterVec
	bytesConsumed   *prometheus.CounterVec
	bytesProduced   *prometheus.CounterVec
	computationTime *prometheus.CounterVec

	elementsTotal        *prometheus.GaugeVec
	computationTimeTotal *prometheus.GaugeVec
}

// NewPrometheusMetrics registers node collectors on a fresh registry.
func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	registry := prometheus.NewRegistry()
	labels := []string{AttrNode, AttrKind}
	factory := promauto.With(registry)

	return &PrometheusMetrics{
		registry: registry,
		elements: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "node",
			Name:      "elements_total",
			Help:      "Elements produced by a pipeline stage",
		}, labels),
		bytesConsumed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "node",
			Name:      "bytes_consumed_total",
			Help:      "Bytes consumed by a pipeline stage",
		}, labels),
		bytesProduced: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "node",
			Name:      "bytes_produced_total",
			Help:      "Bytes produced by a pipeline stage",
		}, labels),
		computationTime: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "node",
			Name:      "computation_seconds_total",
			Help:      "Time a pipeline stage spent producing elements",
		}, labels),
		elementsTotal: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "node",
			Name:      "elements",
			Help:      "Elements produced by a pipeline stage since creation",
		}, labels),
		computationTimeTotal: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "node",
			Name:      "computation_seconds",
			Help:      "Computation time of a pipeline stage since creation",
		}, labels),
	}
}

// Registry returns the registry holding the node collectors.
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordDelta adds a flushed delta to the counters.
func (m *PrometheusMetrics) RecordDelta(_ context.Context, delta model.MetricsRecord) {
	node, kind := delta.Node, delta.Kind.String()
	m.elements.WithLabelValues(node, kind).Add(float64(delta.NumElements))
	m.bytesConsumed.WithLabelValues(node, kind).Add(float64(delta.BytesConsumed))
	m.bytesProduced.WithLabelValues(node, kind).Add(float64(delta.BytesProduced))
	m.computationTime.WithLabelValues(node, kind).Add(delta.ComputationTime.Seconds())
}

// Export sets the gauges from a snapshot of every node.
func (m *PrometheusMetrics) Export(_ context.Context, snapshot map[model.NodeID]model.MetricsRecord) error {
	for _, rec := range snapshot {
		node, kind := rec.Node, rec.Kind.String()
		m.elementsTotal.WithLabelValues(node, kind).Set(float64(rec.NumElements))
		m.computationTimeTotal.WithLabelValues(node, kind).Set(rec.ComputationTime.Seconds())
	}
	return nil
}
