// Package model is the performance model of a pull-based input pipeline.
//
// A Model is a tree of Nodes mirroring the stages of one running pipeline.
// Stages update their node's counters lock-free as elements flow; the
// optimizer reads those counters, estimates per-element output latency of
// the whole tree, and rewrites the tunable Parameters (parallelism, buffer
// size) so that latency is minimized within a CPU-core and a RAM budget.
//
// Stages find the model and their parent node through the iteration
// context:
//
//	node, ctx := model.CreateFromContext(ctx, model.KindAsync, model.Args{
//	    Name:       "Parallel",
//	    Parameters: []*model.Parameter{parallelism},
//	})
//	upstream := create(ctx) // upstream stages become children of node
//
// Cost model per node kind (times are nanoseconds per element):
//
//   - Unknown: input time
//   - Sequential: input time + self time
//   - KnownRatio: ratio × input time + self time
//   - Async: max(self, input)/parallelism scaled by the probability the
//     output buffer is empty when the consumer asks for an element
//   - Interleave: self time + element-share weighted input time
package model
