package component

import "context"

// HealthStatus represents the health state of a component.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
	StatusDegraded  HealthStatus = "degraded"
)

// Health holds health information for a component.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component is a lifecycle-managed part of a pipeline run.
type Component interface {
	// Name returns the unique name of the component for registration.
	Name() string

	// Start begins the component's background work. Calling it again has
	// no effect.
	Start(ctx context.Context) error

	// Stop ends the background work and waits for it to return.
	Stop(ctx context.Context) error

	// Health returns the current health status of the component.
	Health(ctx context.Context) Health
}

// Description holds summary information for a startup or shutdown report.
type Description struct {
	// Name is the human-readable display name. If empty, Name() is used.
	Name string
	// Type categorizes the component: "autotune", "telemetry".
	Type string
	// Details is a one-liner such as "algorithm=hill-climb cpu_budget=4 ram_budget=1024B".
	Details string
}

// Describable is optionally implemented by Components that can summarize
// their configuration.
type Describable interface {
	Describe() Description
}
