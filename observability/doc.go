// Package observability exports node metrics and optimization traces of
// autotuned pipelines.
//
// Two recorders implement both model.Sink (counter deltas on every flush)
// and autotune.Exporter (per-node snapshots from the metrics loop):
// NodeMetrics on an OpenTelemetry meter and PrometheusMetrics on a
// Prometheus registry. Telemetry wires the configured one together with
// its providers as a component:
//
//	tel, err := observability.NewTelemetry(cfg.Metrics)
//	registry.Register(tel)
//
//	p := pipeline.Autotune(src, cfg.Autotune,
//	    pipeline.WithModelOptions(tel.ModelOptions()...),
//	    pipeline.WithDriverOptions(tel.DriverOptions()...),
//	)
package observability
