package autotune

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kbukum/autotune/component"
	"github.com/kbukum/autotune/logger"
	"github.com/kbukum/autotune/model"
)

const componentName = "autotune"

// Driver runs the optimize and metrics loops for one model.
type Driver struct {
	model     *model.Model
	algorithm model.Algorithm
	budgets   Budgets

	metricsPeriod time.Duration
	maxPeriod     time.Duration

	log      *logger.Logger
	clock    Clock
	exporter Exporter

	startOnce sync.Once
	started   atomic.Bool
	group     errgroup.Group

	mu        sync.Mutex
	cancelled bool
	done      chan struct{}

	period        atomic.Int64
	passes        atomic.Int64
	lastRecording atomic.Int64
	timing        rootTiming
}

// Option configures a Driver.
type Option func(*Driver)

// WithClock replaces the wall clock of both loops.
func WithClock(c Clock) Option {
	return func(d *Driver) { d.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(d *Driver) { d.log = l }
}

// WithExporter sets the exporter the metrics loop hands snapshots to.
func WithExporter(e Exporter) Option {
	return func(d *Driver) { d.exporter = e }
}

// New validates cfg and resolves its budgets. The loops do not run until Start.
func New(m *model.Model, cfg Config, opts ...Option) (*Driver, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	algorithm, _ := model.ParseAlgorithm(cfg.Algorithm)
	budgets, err := cfg.Budgets().Resolve()
	if err != nil {
		return nil, err
	}

	d := &Driver{
		model:         m,
		algorithm:     algorithm,
		budgets:       budgets,
		metricsPeriod: cfg.MetricsPeriod,
		maxPeriod:     cfg.MaxOptimizationPeriod,
		clock:         realClock{},
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = logger.WithComponent(componentName)
	}
	d.log = d.log.WithFields(logger.Fields(logger.FieldModelID, m.ID()))
	d.period.Store(int64(MinOptimizationPeriod))

	d.log.Debug("driver created", logger.Fields(
		logger.FieldAlgorithm, algorithm.String(),
		logger.FieldCPUBudget, budgets.CPU,
		logger.FieldRAMBudget, budgets.RAM,
	))
	return d, nil
}

// Name implements component.Component.
func (d *Driver) Name() string { return componentName }

// Model returns the tuned model.
func (d *Driver) Model() *model.Model { return d.model }

// Budgets returns the resolved budgets.
func (d *Driver) Budgets() Budgets { return d.budgets }

// Algorithm returns the optimization algorithm.
func (d *Driver) Algorithm() model.Algorithm { return d.algorithm }

// Start launches both loops. Only the first call has an effect. The loops
// keep the values of ctx but not its cancellation; they end on Stop.
func (d *Driver) Start(ctx context.Context) error {
	d.startOnce.Do(func() {
		loopCtx := context.WithoutCancel(ctx)
		d.started.Store(true)
		d.group.Go(func() error { return d.optimizeLoop(loopCtx) })
		d.group.Go(func() error { return d.metricsLoop(loopCtx) })
		d.log.Debug("loops started")
	})
	return nil
}

// Stop cancels both loops and waits for them to return, then flushes the
// counters one last time. A loop in the middle of a wait wakes at once; a
// loop in the middle of a pass finishes it first.
func (d *Driver) Stop(ctx context.Context) error {
	d.cancel()

	joined := make(chan error, 1)
	go func() { joined <- d.group.Wait() }()
	select {
	case err := <-joined:
		if d.started.Load() {
			d.model.FlushMetrics(ctx)
		}
		d.log.Debug("loops stopped", logger.Fields("passes", d.passes.Load()))
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Health implements component.Component.
func (d *Driver) Health(context.Context) component.Health {
	h := component.Health{Name: componentName}
	switch {
	case d.isCancelled():
		h.Status = component.StatusUnhealthy
		h.Message = "stopped"
	case !d.started.Load():
		h.Status = component.StatusDegraded
		h.Message = "not started"
	default:
		h.Status = component.StatusHealthy
		h.Message = fmt.Sprintf("optimize period %s", d.Period())
	}
	return h
}

// Describe implements component.Describable.
func (d *Driver) Describe() component.Description {
	return component.Description{
		Name:    "Autotune",
		Type:    componentName,
		Details: fmt.Sprintf("algorithm=%s %s", d.algorithm, d.budgets),
	}
}

// Period returns the wait before the next optimization pass.
func (d *Driver) Period() time.Duration {
	return time.Duration(d.period.Load())
}

// Passes returns the number of completed optimization passes.
func (d *Driver) Passes() int64 { return d.passes.Load() }

// LastRecording returns when the metrics loop last exported, or the zero time.
func (d *Driver) LastRecording() time.Time {
	ns := d.lastRecording.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// RecordInput marks the moment the root asks its input for an element. It
// panics when ts precedes the previous output.
func (d *Driver) RecordInput(ts time.Time) { d.timing.recordInput(ts) }

// RecordOutput marks the moment the root hands an element out. It panics
// when ts precedes the matching input.
func (d *Driver) RecordOutput(ts time.Time) { d.timing.recordOutput(ts) }

// SelfInputTime returns the mean time in nanoseconds the consumer spends
// between receiving an element and asking for the next.
func (d *Driver) SelfInputTime() float64 { return d.timing.selfInputTime() }

func (d *Driver) cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.cancelled {
		d.cancelled = true
		close(d.done)
	}
}

func (d *Driver) isCancelled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancelled
}

// wait blocks for period or until cancellation and reports whether the
// loop should run another round.
func (d *Driver) wait(period time.Duration) bool {
	if d.isCancelled() {
		return false
	}
	select {
	case <-d.clock.After(period):
		return !d.isCancelled()
	case <-d.done:
		return false
	}
}

func (d *Driver) optimizeLoop(ctx context.Context) error {
	period := MinOptimizationPeriod
	for d.wait(period) {
		res := d.model.Optimize(ctx, d.algorithm, d.budgets.CPU, d.budgets.RAM, d.SelfInputTime())
		d.model.FlushMetrics(ctx)
		d.passes.Add(1)

		period = min(2*period, d.maxPeriod)
		d.period.Store(int64(period))
		d.log.Trace("optimization pass done", logger.Fields(
			logger.FieldOutputTime, res.OutputTime,
			logger.FieldPeriod, period.Milliseconds(),
		))
	}
	return nil
}

func (d *Driver) metricsLoop(ctx context.Context) error {
	for d.wait(d.metricsPeriod) {
		d.model.FlushMetrics(ctx)
		snapshot := d.model.CollectMetrics()
		if d.exporter != nil {
			if err := d.exporter.Export(ctx, snapshot); err != nil {
				d.log.Warn("metrics export failed", logger.Fields(logger.FieldError, err.Error()))
			}
		}
		d.dump(snapshot)
		d.lastRecording.Store(d.clock.Now().UnixNano())
	}
	return nil
}

// dump logs every node's record at debug level.
func (d *Driver) dump(snapshot map[model.NodeID]model.MetricsRecord) {
	if !d.log.DebugEnabled() {
		return
	}
	ids := make([]model.NodeID, 0, len(snapshot))
	for id := range snapshot {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		r := snapshot[id]
		d.log.Debug("node metrics", logger.Fields(
			logger.FieldNode, r.Node,
			"kind", r.Kind.String(),
			"elements", r.NumElements,
			"bytes_consumed", r.BytesConsumed,
			"bytes_produced", r.BytesProduced,
			"computation_time_us", r.ComputationTime.Microseconds(),
		))
	}
}
