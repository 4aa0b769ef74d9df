// Command autotune-demo runs a synthetic pipeline under the autotuner and
// prints the tuned parameters when it finishes.
//
// The pipeline reads records from a slow source, decodes them on a
// parallel stage, buffers the results and batches them for a sink:
//
//	Source -> Parallel(decode) -> Buffer -> Batch -> sink
//
// Configuration comes from cmd/autotune-demo/config.yml and AUTOTUNE_*
// environment variables.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/kbukum/autotune/bootstrap"
	"github.com/kbukum/autotune/config"
	"github.com/kbukum/autotune/logger"
	"github.com/kbukum/autotune/pipeline"
)

type record struct {
	id      int
	payload []byte
}

// Size implements pipeline.Sizer.
func (r record) Size() int64 { return int64(len(r.payload)) }

func main() {
	var (
		configFile = flag.String("config", "", "config file path")
		records    = flag.Int("records", 20000, "number of records to process")
		decodeCost = flag.Duration("decode", 200*time.Microsecond, "simulated decode time per record")
		batchSize  = flag.Int("batch", 64, "records per sink batch")
	)
	flag.Parse()

	var opts []config.LoaderOption
	if *configFile != "" {
		opts = append(opts, config.WithConfigFile(*configFile))
	}
	cfg, err := config.Load("autotune-demo", opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bootstrap: %v\n", err)
		os.Exit(1)
	}

	err = app.RunTask(context.Background(), func(ctx context.Context) error {
		return run(ctx, app, *records, *decodeCost, *batchSize)
	})
	if err != nil {
		app.Logger.Error("run failed", logger.Fields(logger.FieldError, err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, app *bootstrap.App, n int, decodeCost time.Duration, batchSize int) error {
	source := pipeline.FromFunc(func(context.Context) pipeline.Iterator[record] {
		return &recordSource{n: n}
	})
	decoded := pipeline.Parallel(source, pipeline.Auto, func(ctx context.Context, r record) (record, error) {
		select {
		case <-time.After(decodeCost):
		case <-ctx.Done():
			return record{}, ctx.Err()
		}
		r.payload = append(r.payload, r.payload...)
		return r, nil
	})
	batches := pipeline.Batch(pipeline.Buffer(decoded, pipeline.Auto), batchSize, 50*time.Millisecond)
	tuned := pipeline.Autotune(batches, app.Cfg.Autotune, app.AutotuneOptions()...)

	var processed atomic.Int64
	start := time.Now()
	err := pipeline.Drain(tuned, func(_ context.Context, batch []record) error {
		processed.Add(int64(len(batch)))
		return nil
	}).Run(ctx)

	elapsed := time.Since(start)
	app.Logger.Info("pipeline drained", logger.Fields(
		"records", processed.Load(),
		"records_per_sec", float64(processed.Load())/elapsed.Seconds(),
	))
	return err
}

// recordSource emits n records of 256 bytes.
type recordSource struct {
	n, next int
}

func (s *recordSource) Next(ctx context.Context) (record, bool, error) {
	if err := ctx.Err(); err != nil {
		return record{}, false, err
	}
	if s.next >= s.n {
		return record{}, false, nil
	}
	s.next++
	return record{id: s.next, payload: make([]byte, 256)}, true, nil
}

func (s *recordSource) Close() error { return nil }
