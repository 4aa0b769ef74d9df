package observability

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/autotune/autotune"
	"github.com/kbukum/autotune/component"
	"github.com/kbukum/autotune/errors"
	"github.com/kbukum/autotune/logger"
	"github.com/kbukum/autotune/model"
)

const telemetryName = "telemetry"

// Recorder receives both counter deltas and node snapshots.
type Recorder interface {
	model.Sink
	autotune.Exporter
}

// Telemetry owns the configured metrics backend and its providers.
// Its recorder exists from construction, so pipelines built before Start
// report once the backend is up.
type Telemetry struct {
	cfg Config
	log *logger.Logger

	recorder   Recorder
	prometheus *PrometheusMetrics
	ep         endpoints

	mu             sync.Mutex
	started        bool
	meterProvider  *sdkmetric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	server         *http.Server
}

// NewTelemetry validates cfg and creates the recorder of its exporter.
func NewTelemetry(cfg Config) (*Telemetry, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	t := &Telemetry{
		cfg: cfg,
		log: logger.WithComponent(telemetryName),
	}
	switch cfg.Exporter {
	case ExporterOTel:
		// Instruments on the global meter follow the provider installed in Start.
		nm, err := NewNodeMetrics(Meter(meterName))
		if err != nil {
			return nil, err
		}
		t.recorder = nm
	case ExporterPrometheus:
		t.prometheus = NewPrometheusMetrics(cfg.Namespace)
		t.recorder = t.prometheus
	}
	return t, nil
}

// Name implements component.Component.
func (t *Telemetry) Name() string { return telemetryName }

// Recorder returns the recorder of the configured exporter, or nil for none.
func (t *Telemetry) Recorder() Recorder { return t.recorder }

// ModelOptions returns the model options that route flushed deltas to the
// recorder.
func (t *Telemetry) ModelOptions() []model.Option {
	if t.recorder == nil {
		return nil
	}
	return []model.Option{model.WithSink(t.recorder)}
}

// DriverOptions returns the driver options that route metrics-loop
// snapshots to the recorder.
func (t *Telemetry) DriverOptions() []autotune.Option {
	if t.recorder == nil {
		return nil
	}
	return []autotune.Option{autotune.WithExporter(t.recorder)}
}

// Expose feeds the /health and /info routes of the metrics listener.
// Call it before Start.
func (t *Telemetry) Expose(service, version string, checker HealthChecker, describe Describer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ep = endpoints{service: service, version: version, checker: checker, describe: describe}
}

// Router serves /metrics, /health and /info, or is nil unless the exporter
// is prometheus.
func (t *Telemetry) Router() *gin.Engine {
	if t.prometheus == nil {
		return nil
	}
	return newRouter(t.prometheus.Handler(), t.ep)
}

// Start brings up the providers of the configured exporter.
func (t *Telemetry) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return nil
	}

	switch t.cfg.Exporter {
	case ExporterOTel:
		mp, err := InitMeter(ctx, &t.cfg)
		if err != nil {
			return err
		}
		tp, err := InitTracer(ctx, &t.cfg)
		if err != nil {
			_ = mp.Shutdown(ctx)
			return err
		}
		t.meterProvider, t.tracerProvider = mp, tp
	case ExporterPrometheus:
		if t.cfg.Listen != "" {
			if err := t.serve(); err != nil {
				return err
			}
		}
	}

	t.started = true
	t.log.Info("telemetry started", logger.Fields("exporter", t.cfg.Exporter))
	return nil
}

func (t *Telemetry) serve() error {
	ln, err := net.Listen("tcp", t.cfg.Listen)
	if err != nil {
		return errors.Exporter("prometheus", err).WithDetail("listen", t.cfg.Listen)
	}
	srv := &http.Server{
		Handler:           newRouter(t.prometheus.Handler(), t.ep),
		ReadHeaderTimeout: 5 * time.Second,
	}
	t.server = srv

	go func() {
		err := srv.Serve(ln)
		if !stderrors.Is(err, http.ErrServerClosed) {
			t.log.Error("metrics server failed", logger.Fields(logger.FieldError, err.Error()))
		}
	}()
	t.log.Info("serving metrics", logger.Fields("addr", ln.Addr().String()))
	return nil
}

// Stop flushes and shuts down the providers.
func (t *Telemetry) Stop(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.started {
		return nil
	}
	t.started = false

	var errs []error
	if t.server != nil {
		errs = append(errs, t.server.Shutdown(ctx))
		t.server = nil
	}
	if t.meterProvider != nil {
		errs = append(errs, t.meterProvider.Shutdown(ctx))
		t.meterProvider = nil
	}
	if t.tracerProvider != nil {
		errs = append(errs, t.tracerProvider.Shutdown(ctx))
		t.tracerProvider = nil
	}
	return stderrors.Join(errs...)
}

// Health implements component.Component.
func (t *Telemetry) Health(context.Context) component.Health {
	t.mu.Lock()
	defer t.mu.Unlock()

	h := component.Health{Name: telemetryName, Status: component.StatusHealthy}
	switch {
	case t.cfg.Exporter == ExporterNone:
		h.Message = "disabled"
	case !t.started:
		h.Status = component.StatusDegraded
		h.Message = "not started"
	default:
		h.Message = t.cfg.Exporter
	}
	return h
}

// Describe implements component.Describable.
func (t *Telemetry) Describe() component.Description {
	details := "exporter=" + t.cfg.Exporter
	switch t.cfg.Exporter {
	case ExporterOTel:
		details += " endpoint=" + t.cfg.Endpoint
	case ExporterPrometheus:
		if t.cfg.Listen != "" {
			details += " listen=" + t.cfg.Listen
		}
	}
	return component.Description{Name: "Telemetry", Type: telemetryName, Details: details}
}
