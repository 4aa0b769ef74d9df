// Package pipeline provides composable, pull-based data pipeline operators
// whose buffering parameters can be tuned while the pipeline runs.
//
// Pipelines are lazy: no work happens until values are pulled via Collect,
// Drain, or ForEach. Each stage pulls from the previous stage on demand,
// providing natural backpressure without explicit flow control.
//
// # Operators
//
// Synchronous (single-goroutine):
//
//   - Map, FanOut: one output per input
//   - Tap, TapEach: side-effects, values pass through unchanged
//   - Batch: size inputs per output
//   - Filter, FlatMap, Reduce: data-dependent number of outputs
//   - Concat: join pipelines sequentially
//
// Concurrent (multi-goroutine):
//
//   - Buffer: run ahead of the consumer, keeping up to size values
//   - Parallel: concurrent Map on a worker pool (order NOT preserved)
//   - Merge: combine multiple pipelines concurrently (order NOT preserved)
//
// # Autotuning
//
// Pass Auto as the size of a Buffer or the worker count of a Parallel
// stage and wrap the pipeline with Autotune. Every run then builds a
// performance model of its stages and periodically re-distributes the CPU
// and memory budgets between them:
//
//	src := pipeline.FromSlice(paths)
//	decoded := pipeline.Parallel(src, pipeline.Auto, decode)
//	prefetched := pipeline.Buffer(decoded, pipeline.Auto)
//	tuned := pipeline.Autotune(prefetched, autotune.Config{CPUBudget: 4})
//	images, err := pipeline.Collect(ctx, tuned)
//
// Stages report to the model of the context their iterator is created in;
// outside Autotune they run untracked with their initial values.
package pipeline
