package autotune

import (
	"time"

	"github.com/kbukum/autotune/errors"
	"github.com/kbukum/autotune/model"
)

const (
	// MinOptimizationPeriod is the first wait of the optimize loop.
	MinOptimizationPeriod = 10 * time.Millisecond
	// DefaultMaxOptimizationPeriod caps the doubling optimize period.
	DefaultMaxOptimizationPeriod = 60 * time.Second
	// DefaultMetricsPeriod is the cadence of the metrics loop.
	DefaultMetricsPeriod = 10 * time.Millisecond
)

// Config is the autotune section of the configuration file.
type Config struct {
	Algorithm             string        `yaml:"algorithm" mapstructure:"algorithm"`
	CPUBudget             int64         `yaml:"cpu_budget" mapstructure:"cpu_budget"`
	RAMBudget             int64         `yaml:"ram_budget" mapstructure:"ram_budget"`
	MetricsPeriod         time.Duration `yaml:"metrics_period" mapstructure:"metrics_period"`
	MaxOptimizationPeriod time.Duration `yaml:"max_optimization_period" mapstructure:"max_optimization_period"`
}

// ApplyDefaults fills unset fields. Zero budgets stay zero; they are
// resolved when a driver is built.
func (c *Config) ApplyDefaults() {
	if c.Algorithm == "" {
		c.Algorithm = model.HillClimb.String()
	}
	if c.MetricsPeriod == 0 {
		c.MetricsPeriod = DefaultMetricsPeriod
	}
	if c.MaxOptimizationPeriod == 0 {
		c.MaxOptimizationPeriod = DefaultMaxOptimizationPeriod
	}
}

// Validate checks the section after defaults have been applied.
func (c *Config) Validate() error {
	if err := c.Budgets().Validate(); err != nil {
		return err
	}
	if _, err := model.ParseAlgorithm(c.Algorithm); err != nil {
		return err
	}
	if c.MetricsPeriod < 0 {
		return errors.InvalidConfig("autotune.metrics_period", c.MetricsPeriod, "must be >= 0")
	}
	if c.MaxOptimizationPeriod != 0 && c.MaxOptimizationPeriod < MinOptimizationPeriod {
		return errors.InvalidConfig("autotune.max_optimization_period", c.MaxOptimizationPeriod, "must be >= "+MinOptimizationPeriod.String())
	}
	return nil
}

// Budgets returns the configured, unresolved budgets.
func (c *Config) Budgets() Budgets {
	return Budgets{CPU: c.CPUBudget, RAM: c.RAMBudget}
}
