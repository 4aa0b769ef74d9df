package config

import (
	"github.com/kbukum/autotune/autotune"
	"github.com/kbukum/autotune/observability"
	"github.com/kbukum/autotune/validation"
)

// Config is the full configuration of an autotuned pipeline process.
type Config struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Autotune      autotune.Config      `yaml:"autotune" mapstructure:"autotune"`
	Metrics       observability.Config `yaml:"metrics" mapstructure:"metrics"`
}

// ApplyDefaults applies defaults to every section.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.Autotune.ApplyDefaults()
	if c.Metrics.ServiceName == "" {
		c.Metrics.ServiceName = c.Name
	}
	if c.Metrics.ServiceVersion == "" {
		c.Metrics.ServiceVersion = c.Version
	}
	if c.Metrics.Environment == "" {
		c.Metrics.Environment = c.Environment
	}
	c.Metrics.ApplyDefaults()
}

// Validate reports an unusable autotune section first, as INVALID_CONFIG,
// then every remaining field error at once.
func (c *Config) Validate() error {
	if err := c.Autotune.Validate(); err != nil {
		return err
	}

	v := validation.New()
	c.ServiceConfig.validate(v)
	v.Merge("metrics", c.Metrics.Validate())
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// Load reads the configuration of serviceName, applies defaults and
// validates it. An empty name falls back to serviceName.
func Load(serviceName string, opts ...LoaderOption) (*Config, error) {
	var cfg Config
	if err := LoadConfig(serviceName, &cfg, opts...); err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		cfg.Name = serviceName
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
