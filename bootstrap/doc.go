// Package bootstrap runs an autotuned pipeline as a finite task with a
// uniform lifecycle.
//
// NewApp validates the configuration, initializes the global logger and
// registers the telemetry component. RunTask starts the components, runs
// the task with a context canceled on SIGINT or SIGTERM, then stops the
// components in reverse order.
//
//	app, err := bootstrap.NewApp(cfg)
//	err = app.RunTask(ctx, func(ctx context.Context) error {
//	    p := pipeline.Autotune(src, app.Cfg.Autotune, app.AutotuneOptions()...)
//	    return pipeline.Drain(p, sink).Run(ctx)
//	})
//
// Every tuned run is tracked in the Summary printed at shutdown.
package bootstrap
