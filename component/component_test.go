package component

import (
	"context"
	"fmt"
	"testing"
)

// mockComponent implements Component for testing.
type mockComponent struct {
	name       string
	startErr   error
	stopErr    error
	health     Health
	startOrder *[]string
	stopOrder  *[]string
}

func (m *mockComponent) Name() string { return m.name }
func (m *mockComponent) Start(ctx context.Context) error {
	if m.startOrder != nil {
		*m.startOrder = append(*m.startOrder, m.name)
	}
	return m.startErr
}
func (m *mockComponent) Stop(ctx context.Context) error {
	if m.stopOrder != nil {
		*m.stopOrder = append(*m.stopOrder, m.name)
	}
	return m.stopErr
}
func (m *mockComponent) Health(ctx context.Context) Health {
	return m.health
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("expected non-nil registry")
	}
}

func TestRegister(t *testing.T) {
	r := NewRegistry()
	c := &mockComponent{name: "telemetry", health: Health{Name: "telemetry", Status: StatusHealthy}}

	if err := r.Register(c); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	c := &mockComponent{name: "telemetry"}
	r.Register(c)

	err := r.Register(&mockComponent{name: "telemetry"})
	if err == nil {
		t.Error("expected error for duplicate registration")
	}
}

func TestGet(t *testing.T) {
	r := NewRegistry()
	c := &mockComponent{name: "telemetry"}
	r.Register(c)

	got := r.Get("telemetry")
	if got == nil {
		t.Fatal("expected to get registered component")
	}
	if got.Name() != "telemetry" {
		t.Errorf("expected 'telemetry', got %q", got.Name())
	}
}

func TestGetNotFound(t *testing.T) {
	r := NewRegistry()
	got := r.Get("missing")
	if got != nil {
		t.Error("expected nil for unregistered component")
	}
}

func TestStartAll(t *testing.T) {
	r := NewRegistry()
	order := []string{}

	r.Register(&mockComponent{
		name: "telemetry", startOrder: &order,
		health: Health{Name: "telemetry", Status: StatusHealthy},
	})
	r.Register(&mockComponent{
		name: "exporter", startOrder: &order,
		health: Health{Name: "exporter", Status: StatusHealthy},
	})

	if err := r.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll failed: %v", err)
	}

	if len(order) != 2 {
		t.Fatalf("expected 2 starts, got %d", len(order))
	}
	if order[0] != "telemetry" || order[1] != "exporter" {
		t.Errorf("expected start order [telemetry, exporter], got %v", order)
	}
}

func TestStartAllError(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockComponent{name: "telemetry", startErr: fmt.Errorf("listener closed")})

	err := r.StartAll(context.Background())
	if err == nil {
		t.Error("expected error from StartAll")
	}
}

func TestStopAllReverseOrder(t *testing.T) {
	r := NewRegistry()
	order := []string{}

	r.Register(&mockComponent{name: "telemetry", stopOrder: &order, health: Health{Name: "telemetry", Status: StatusHealthy}})
	r.Register(&mockComponent{name: "exporter", stopOrder: &order, health: Health{Name: "exporter", Status: StatusHealthy}})
	r.Register(&mockComponent{name: "autotune", stopOrder: &order, health: Health{Name: "autotune", Status: StatusHealthy}})

	r.StartAll(context.Background())
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll failed: %v", err)
	}

	if len(order) != 3 {
		t.Fatalf("expected 3 stops, got %d", len(order))
	}
	if order[0] != "autotune" || order[1] != "exporter" || order[2] != "telemetry" {
		t.Errorf("expected reverse stop order [autotune, exporter, telemetry], got %v", order)
	}
}

func TestStopAllSkipsUnstarted(t *testing.T) {
	r := NewRegistry()
	order := []string{}
	r.Register(&mockComponent{name: "telemetry", stopOrder: &order})

	// Don't start, then stop
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll failed: %v", err)
	}
	if len(order) != 0 {
		t.Errorf("expected 0 stops for unstarted components, got %d", len(order))
	}
}

func TestStopAllWithErrors(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockComponent{
		name: "telemetry", stopErr: fmt.Errorf("stop failed"),
		health: Health{Name: "telemetry", Status: StatusHealthy},
	})
	r.StartAll(context.Background())

	err := r.StopAll(context.Background())
	if err == nil {
		t.Error("expected error from StopAll")
	}
}

func TestHealthAll(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockComponent{
		name:   "telemetry",
		health: Health{Name: "telemetry", Status: StatusHealthy, Message: "connected"},
	})
	r.Register(&mockComponent{
		name:   "exporter",
		health: Health{Name: "exporter", Status: StatusUnhealthy, Message: "timeout"},
	})

	results := r.HealthAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Status != StatusHealthy {
		t.Errorf("expected telemetry healthy, got %s", results[0].Status)
	}
	if results[1].Status != StatusUnhealthy {
		t.Errorf("expected exporter unhealthy, got %s", results[1].Status)
	}
}

func TestHealthStatusConstants(t *testing.T) {
	if StatusHealthy != "healthy" {
		t.Errorf("expected 'healthy', got %q", StatusHealthy)
	}
	if StatusUnhealthy != "unhealthy" {
		t.Errorf("expected 'unhealthy', got %q", StatusUnhealthy)
	}
	if StatusDegraded != "degraded" {
		t.Errorf("expected 'degraded', got %q", StatusDegraded)
	}
}

func TestStopAllRestartsAfterStop(t *testing.T) {
	var starts []string
	r := NewRegistry()
	r.Register(&mockComponent{name: "autotune", startOrder: &starts})

	ctx := context.Background()
	if err := r.StartAll(ctx); err != nil {
		t.Fatal(err)
	}
	if err := r.StartAll(ctx); err != nil {
		t.Fatal(err)
	}
	if len(starts) != 1 {
		t.Fatalf("expected one start before StopAll, got %v", starts)
	}
	r.StopAll(ctx)
	r.StartAll(ctx)
	if len(starts) != 2 {
		t.Errorf("expected a second start after StopAll, got %v", starts)
	}
}

type describedComponent struct {
	mockComponent
	desc Description
}

func (d *describedComponent) Describe() Description { return d.desc }

func TestDescribe(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockComponent{name: "plain"})
	r.Register(&describedComponent{
		mockComponent: mockComponent{name: "autotune"},
		desc:          Description{Type: "autotune", Details: "algorithm=hill-climb"},
	})

	descs := r.Describe()
	if len(descs) != 1 {
		t.Fatalf("expected 1 description, got %d", len(descs))
	}
	if descs[0].Name != "autotune" {
		t.Errorf("expected name to fall back to %q, got %q", "autotune", descs[0].Name)
	}
	if descs[0].Details != "algorithm=hill-climb" {
		t.Errorf("unexpected details %q", descs[0].Details)
	}
}
