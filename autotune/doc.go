// Package autotune drives a performance model while its pipeline runs.
//
// A Driver owns two background loops scoped to one pipeline run. The
// optimize loop wakes after 10ms, runs one optimization pass, and doubles
// its period up to a ceiling (60s by default). The metrics loop wakes at a
// fixed cadence, flushes counter deltas to the model's sink and exports a
// snapshot of every node.
//
//	d, err := autotune.New(m, autotune.Config{Algorithm: "hill-climb"})
//	if err != nil {
//	    return err
//	}
//	d.Start(ctx)
//	defer d.Stop(ctx)
//
// The root of the pipeline reports when it asked its input for an element
// and when it handed one out, so the driver can tell the optimizer how long
// the consumer spends between elements:
//
//	d.RecordInput(time.Now())
//	v, ok, err := upstream.Next(ctx)
//	d.RecordOutput(time.Now())
//
// Budgets of zero are resolved once, at construction, to the number of
// schedulable CPUs and half of the available memory.
package autotune
