package model

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/autotune/errors"
	"github.com/kbukum/autotune/logger"
)

// Algorithm selects the optimization strategy.
type Algorithm int

const (
	// HillClimb repeatedly grants one more unit to the parameter with the
	// largest latency reduction.
	HillClimb Algorithm = iota
	// GradientDescent splits the budgets in proportion to each parameter's
	// marginal benefit.
	GradientDescent
)

func (a Algorithm) String() string {
	if a == GradientDescent {
		return "gradient-descent"
	}
	return "hill-climb"
}

// ParseAlgorithm parses "hill-climb" or "gradient-descent". Underscores are
// accepted in place of dashes; the empty string selects HillClimb.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-") {
	case "", "hill-climb":
		return HillClimb, nil
	case "gradient-descent":
		return GradientDescent, nil
	default:
		return HillClimb, errors.InvalidConfig("algorithm", s, "must be one of [hill-climb gradient-descent]")
	}
}

const (
	// hillClimbStepsPerNode caps a hill-climb pass at this many steps per node.
	hillClimbStepsPerNode = 64
	// minRelativeImprovement is the smallest latency reduction, relative to
	// the all-minimum estimate, that justifies another step.
	minRelativeImprovement = 1e-4
	// tieTolerance is the relative difference under which two candidate
	// latencies count as equal.
	tieTolerance = 1e-9
)

// Result summarizes one optimization pass.
type Result struct {
	Algorithm  Algorithm
	OutputTime float64 // estimated ns per element after the pass
	CPU        float64
	RAM        float64
	Steps      int
	Exhausted  bool // budgets could not be met even at minimum values
	Duration   time.Duration
}

// Optimize runs one pass and writes new values for every tunable parameter.
// All values are written together under the tree lock; the search itself
// runs on a private copy. modelInputTime is the consumer's own time per
// element in nanoseconds.
func (m *Model) Optimize(ctx context.Context, algorithm Algorithm, cpuBudget, ramBudget int64, modelInputTime float64) Result {
	m.optimizeMu.Lock()
	defer m.optimizeMu.Unlock()

	_, span := m.tracer.Start(ctx, "autotune.optimize", trace.WithAttributes(
		attribute.String("algorithm", algorithm.String()),
		attribute.Int64("cpu_budget", cpuBudget),
		attribute.Int64("ram_budget", ramBudget),
		attribute.Float64("model_input_time", modelInputTime),
	))
	defer span.End()

	start := time.Now()
	m.mu.RLock()
	p := newPlan(m.root)
	m.mu.RUnlock()

	res := Result{Algorithm: algorithm}
	if p == nil || len(p.params) == 0 {
		res.Duration = time.Since(start)
		return res
	}

	o := &optimizer{plan: p, cpuBudget: float64(cpuBudget), ramBudget: float64(ramBudget), consumer: modelInputTime}
	switch algorithm {
	case GradientDescent:
		o.gradientDescent()
	default:
		o.hillClimb()
	}

	m.mu.Lock()
	changed := p.apply()
	m.mu.Unlock()
	for _, param := range changed {
		param.notify()
	}

	res.OutputTime = p.outputTime(modelInputTime)
	res.CPU = p.cpuUsage()
	res.RAM = p.ramUsage()
	res.Steps = o.steps
	res.Exhausted = o.exhausted
	res.Duration = time.Since(start)

	span.SetAttributes(attribute.Float64("output_time", res.OutputTime), attribute.Int("steps", res.Steps))
	if res.Exhausted {
		m.log.Warn("budget cannot be met at minimum parameter values", logger.Fields(
			logger.FieldCPUBudget, cpuBudget,
			logger.FieldRAMBudget, ramBudget,
			"cpu_at_min", res.CPU,
			"ram_at_min", res.RAM,
		))
	}
	m.log.Debug("optimization pass", logger.DurationFields(res.Duration,
		logger.FieldAlgorithm, algorithm.String(),
		logger.FieldOutputTime, res.OutputTime,
		"steps", res.Steps,
		"parameters", describeParams(p),
	))
	return res
}

// OutputTime estimates the per-element latency of the tree with the
// current parameter values.
func (m *Model) OutputTime(modelInputTime float64) float64 {
	m.mu.RLock()
	p := newPlan(m.root)
	m.mu.RUnlock()
	if p == nil {
		return 0
	}
	return p.outputTime(modelInputTime)
}

// ResourceUsage returns the CPU cores and RAM bytes the current parameter
// values commit.
func (m *Model) ResourceUsage() (cpu, ram float64) {
	m.mu.RLock()
	p := newPlan(m.root)
	m.mu.RUnlock()
	if p == nil {
		return 0, 0
	}
	return p.cpuUsage(), p.ramUsage()
}

type optimizer struct {
	plan      *plan
	cpuBudget float64
	ramBudget float64
	consumer  float64
	steps     int
	exhausted bool
}

func (o *optimizer) feasible() bool {
	return o.plan.cpuUsage() <= o.cpuBudget && o.plan.ramUsage() <= o.ramBudget
}

// start resets every parameter to its minimum and reports whether there is
// any budget left to distribute.
func (o *optimizer) start() bool {
	o.plan.resetToMin()
	if !o.feasible() {
		o.exhausted = true
		return false
	}
	return true
}

func describeParams(p *plan) string {
	parts := make([]string, 0, len(p.params))
	for _, pp := range p.params {
		parts = append(parts, fmt.Sprintf("%s.%s=%d", pp.owner.name, pp.param.name, pp.value))
	}
	return strings.Join(parts, " ")
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= tieTolerance*math.Max(math.Abs(a), math.Abs(b))
}
