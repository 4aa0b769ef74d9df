package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/kbukum/autotune/autotune"
	"github.com/kbukum/autotune/component"
)

// RunInfo is the outcome of one tuned pipeline run.
type RunInfo struct {
	ModelID  string
	Details  string
	Passes   int64
	Period   time.Duration
	Tunables []string
}

// Summary tracks tuned runs and prints them with component health.
type Summary struct {
	serviceName  string
	version      string
	taskDuration time.Duration
	out          io.Writer

	mu   sync.Mutex
	runs []RunInfo
}

// NewSummary creates a summary printing to stdout.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{
		serviceName: serviceName,
		version:     version,
		out:         os.Stdout,
	}
}

// SetTaskDuration records how long the task ran.
func (s *Summary) SetTaskDuration(d time.Duration) {
	s.taskDuration = d
}

// RecordRun captures the final state of a closed run.
func (s *Summary) RecordRun(d *autotune.Driver) {
	info := RunInfo{
		ModelID:  d.Model().ID(),
		Details:  d.Describe().Details,
		Passes:   d.Passes(),
		Period:   d.Period(),
		Tunables: d.Model().Tunables(),
	}
	s.mu.Lock()
	s.runs = append(s.runs, info)
	s.mu.Unlock()
}

// Runs returns the recorded runs in completion order.
func (s *Summary) Runs() []RunInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RunInfo(nil), s.runs...)
}

// Display prints the run report and live component health.
func (s *Summary) Display(registry *component.Registry) {
	w := s.out
	version := s.version
	if version == "" {
		version = "dev"
	}
	fmt.Fprintf(w, "\n🚀 %s v%s finished in %.2fs\n", s.serviceName, version, s.taskDuration.Seconds())

	if registry != nil {
		if descs := registry.Describe(); len(descs) > 0 {
			fmt.Fprintf(w, "\n📦 Components\n")
			for i, d := range descs {
				fmt.Fprintf(w, "   %s %s [%s] %s\n", treePrefix(i, len(descs)), d.Name, d.Type, d.Details)
			}
		}
	}

	runs := s.Runs()
	fmt.Fprintf(w, "\n🎛️  Tuned runs (%d)\n", len(runs))
	if len(runs) == 0 {
		fmt.Fprintf(w, "   └── none\n")
	}
	for i, r := range runs {
		last := i == len(runs)-1
		fmt.Fprintf(w, "   %s %s: %s, %d passes, period %s\n", treePrefix(i, len(runs)), shortID(r.ModelID), r.Details, r.Passes, r.Period)
		indent := "│   "
		if last {
			indent = "    "
		}
		for j, t := range r.Tunables {
			fmt.Fprintf(w, "   %s%s %s\n", indent, treePrefix(j, len(r.Tunables)), t)
		}
	}

	if registry != nil {
		if results := registry.HealthAll(context.Background()); len(results) > 0 {
			fmt.Fprintf(w, "\n🏥 Health Check\n")
			for i, h := range results {
				msg := ""
				if h.Message != "" {
					msg = " - " + h.Message
				}
				fmt.Fprintf(w, "   %s %s %s: %s%s\n", treePrefix(i, len(results)), healthStatusIcon(h.Status), h.Name, strings.ToLower(string(h.Status)), msg)
			}
		}
	}

	fmt.Fprintf(w, "\n")
}

func treePrefix(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func healthStatusIcon(status component.HealthStatus) string {
	switch status {
	case component.StatusHealthy:
		return "✅"
	case component.StatusDegraded:
		return "⚠️"
	case component.StatusUnhealthy:
		return "❌"
	default:
		return "❓"
	}
}
