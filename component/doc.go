// Package component defines the lifecycle contract shared by the
// long-running parts of an autotuned pipeline: the autotune driver and the
// telemetry providers.
//
// A Registry starts components in registration order and stops them in
// reverse order, so telemetry registered first outlives the drivers that
// report into it.
package component
