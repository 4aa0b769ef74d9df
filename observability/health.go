package observability

import "github.com/kbukum/autotune/component"

// ServiceHealth describes the overall health of a process and its components.
type ServiceHealth struct {
	Service    string                 `json:"service"`
	Status     component.HealthStatus `json:"status"`
	Version    string                 `json:"version,omitempty"`
	Components []component.Health     `json:"components,omitempty"`
}

// NewServiceHealth creates a healthy ServiceHealth.
func NewServiceHealth(service, version string) *ServiceHealth {
	return &ServiceHealth{
		Service: service,
		Status:  component.StatusHealthy,
		Version: version,
	}
}

// AddComponent adds a component health result and degrades overall status if needed.
func (sh *ServiceHealth) AddComponent(ch component.Health) {
	sh.Components = append(sh.Components, ch)

	switch ch.Status {
	case component.StatusUnhealthy:
		sh.Status = component.StatusUnhealthy
	case component.StatusDegraded:
		if sh.Status != component.StatusUnhealthy {
			sh.Status = component.StatusDegraded
		}
	}
}

// Summarize builds a ServiceHealth from the results of Registry.HealthAll.
func Summarize(service, version string, results []component.Health) *ServiceHealth {
	sh := NewServiceHealth(service, version)
	for _, h := range results {
		sh.AddComponent(h)
	}
	return sh
}
