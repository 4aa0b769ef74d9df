package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kbukum/autotune/autotune"
	"github.com/kbukum/autotune/component"
	"github.com/kbukum/autotune/config"
	"github.com/kbukum/autotune/logger"
	"github.com/kbukum/autotune/observability"
	"github.com/kbukum/autotune/pipeline"
)

// App owns the components of a process that runs tuned pipelines.
type App struct {
	Name       string
	Version    string
	Cfg        *config.Config
	Components *component.Registry
	Telemetry  *observability.Telemetry
	Logger     *logger.Logger
	Summary    *Summary

	gracefulTimeout time.Duration

	onStart []Hook
	onStop  []Hook
}

// NewApp applies defaults to cfg, validates it, initializes the logger and
// registers the telemetry component.
func NewApp(cfg *config.Config, opts ...Option) (*App, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	app := &App{
		Name:            cfg.Name,
		Version:         cfg.Version,
		Cfg:             cfg,
		Components:      component.NewRegistry(),
		gracefulTimeout: 15 * time.Second,
	}

	o := resolveOptions(opts)
	if o.gracefulTimeout != nil {
		app.gracefulTimeout = *o.gracefulTimeout
	}
	if o.logger != nil {
		app.Logger = o.logger
	} else {
		logger.Init(&cfg.Logging)
		app.Logger = logger.GetGlobalLogger()
	}

	tel, err := observability.NewTelemetry(cfg.Metrics)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	tel.Expose(cfg.Name, cfg.Version, app.Components.HealthAll, app.Components.Describe)
	app.Telemetry = tel
	if err := app.Components.Register(tel); err != nil {
		return nil, err
	}

	app.Summary = NewSummary(cfg.Name, cfg.Version)
	if o.output != nil {
		app.Summary.out = o.output
	}
	return app, nil
}

// RegisterComponent adds a component to the application's registry.
func (a *App) RegisterComponent(c component.Component) error {
	return a.Components.Register(c)
}

// AutotuneOptions wires a tuned pipeline into the telemetry recorder and
// tracks its runs in the summary.
func (a *App) AutotuneOptions() []pipeline.AutotuneOption {
	return []pipeline.AutotuneOption{
		pipeline.WithModelOptions(a.Telemetry.ModelOptions()...),
		pipeline.WithDriverOptions(append(a.Telemetry.DriverOptions(),
			autotune.WithLogger(a.Logger.WithComponent("autotune")))...),
		pipeline.OnClose(a.Summary.RecordRun),
	}
}

// ReadyCheck verifies that all registered components are healthy.
func (a *App) ReadyCheck(ctx context.Context) error {
	results := a.Components.HealthAll(ctx)
	var unhealthy []string
	for _, h := range results {
		if h.Status != component.StatusHealthy {
			detail := h.Name + "=" + string(h.Status)
			if h.Message != "" {
				detail += "(" + h.Message + ")"
			}
			unhealthy = append(unhealthy, detail)
		}
	}
	if len(unhealthy) > 0 {
		return fmt.Errorf("unhealthy components: %v", unhealthy)
	}
	return nil
}

// RunTask starts the components, runs task and shuts down when it returns.
// The task context is canceled on SIGINT or SIGTERM.
func (a *App) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	if err := a.startup(ctx); err != nil {
		return err
	}

	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			a.Logger.Info("received signal, canceling task", logger.Fields("signal", sig.String()))
			cancel()
		case <-taskCtx.Done():
		}
	}()

	start := time.Now()
	taskErr := task(taskCtx)
	a.Summary.SetTaskDuration(time.Since(start))

	stopErr := a.stop()
	a.Summary.Display(a.Components)
	if taskErr != nil {
		return taskErr
	}
	return stopErr
}

func (a *App) startup(ctx context.Context) error {
	a.Logger.Info("starting application", logger.Fields("name", a.Name, "version", a.Version))

	if err := a.Components.StartAll(ctx); err != nil {
		return fmt.Errorf("failed to start components: %w", err)
	}
	if err := runHooks(ctx, a.onStart); err != nil {
		return fmt.Errorf("onStart hook failed: %w", err)
	}
	if err := a.ReadyCheck(ctx); err != nil {
		a.Logger.Warn("ready check reported issues", logger.Fields(logger.FieldError, err.Error()))
	}
	for _, d := range a.Components.Describe() {
		a.Logger.Info("component ready", logger.Fields(logger.FieldComponent, d.Name, "details", d.Details))
	}
	return nil
}

// Shutdown runs the stop hooks and stops every component.
func (a *App) Shutdown(context.Context) error {
	return a.stop()
}

func (a *App) stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	var shutdownErr error
	if err := runHooks(ctx, a.onStop); err != nil {
		a.Logger.Error("onStop hook error", logger.Fields(logger.FieldError, err.Error()))
		shutdownErr = err
	}
	if err := a.Components.StopAll(ctx); err != nil {
		a.Logger.Error("shutdown completed with errors", logger.Fields(logger.FieldError, err.Error()))
		shutdownErr = err
	}

	a.Logger.Info("application shutdown complete")
	return shutdownErr
}
