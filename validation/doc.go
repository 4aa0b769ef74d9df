// Package validation checks configuration structs before a tuned pipeline
// is built.
//
// Struct tag validation covers the declarative sections such as telemetry:
//
//	type Config struct {
//	    Exporter string `mapstructure:"exporter" validate:"oneof=none stdout prometheus otlp"`
//	}
//	err := validation.Validate(cfg)
//
// Programmatic validation collects errors for rules that span fields:
//
//	v := validation.New()
//	v.Required("name", cfg.Name).OneOf("environment", cfg.Environment, envs)
//	err := v.Validate()
//
// Field names in messages follow the mapstructure keys used in config files.
package validation
