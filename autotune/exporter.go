package autotune

import (
	"context"

	"github.com/kbukum/autotune/model"
)

// Exporter receives a snapshot of every node on each metrics-loop wake.
type Exporter interface {
	Export(ctx context.Context, snapshot map[model.NodeID]model.MetricsRecord) error
}

// ExporterFunc adapts a function to Exporter.
type ExporterFunc func(ctx context.Context, snapshot map[model.NodeID]model.MetricsRecord) error

// Export calls f.
func (f ExporterFunc) Export(ctx context.Context, snapshot map[model.NodeID]model.MetricsRecord) error {
	return f(ctx, snapshot)
}
