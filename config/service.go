package config

import (
	"github.com/kbukum/autotune/logger"
	"github.com/kbukum/autotune/validation"
)

var environments = []string{"development", "staging", "production"}

// ServiceConfig contains the fields every process needs. Config embeds it.
type ServiceConfig struct {
	Name        string        `yaml:"name" mapstructure:"name"`
	Environment string        `yaml:"environment" mapstructure:"environment"`
	Version     string        `yaml:"version" mapstructure:"version"`
	Debug       bool          `yaml:"debug" mapstructure:"debug"`
	Logging     logger.Config `yaml:"logging" mapstructure:"logging"`
}

// ApplyDefaults applies default values to the base configuration.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	if c.Debug && c.Logging.Level == "" {
		c.Logging.Level = "debug"
	}
	c.Logging.ApplyDefaults()
}

// validate adds the base configuration errors to v.
func (c *ServiceConfig) validate(v *validation.Validator) {
	v.Required("name", c.Name).
		OneOf("environment", c.Environment, environments).
		Merge("logging", c.Logging.Validate())
}

// Validate validates the base configuration fields.
func (c *ServiceConfig) Validate() error {
	v := validation.New()
	c.validate(v)
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}
