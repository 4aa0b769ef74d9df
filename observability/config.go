package observability

import (
	"time"

	"github.com/kbukum/autotune/validation"
)

// Exporter kinds.
const (
	ExporterNone       = "none"
	ExporterOTel       = "otel"
	ExporterPrometheus = "prometheus"
)

// Config configures metric and trace export.
type Config struct {
	// Exporter selects the metrics backend: none, otel or prometheus.
	Exporter string `yaml:"exporter" mapstructure:"exporter" validate:"oneof=none otel prometheus"`
	// ServiceName is reported as the service.name resource attribute.
	ServiceName    string `yaml:"service_name" mapstructure:"service_name"`
	ServiceVersion string `yaml:"service_version" mapstructure:"service_version"`
	Environment    string `yaml:"environment" mapstructure:"environment"`
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint" validate:"required_if=Exporter otel,omitempty,hostname_port"`
	// Insecure allows insecure connections (for development).
	Insecure bool `yaml:"insecure" mapstructure:"insecure"`
	// Interval is the OTLP metric export interval.
	Interval time.Duration `yaml:"interval" mapstructure:"interval" validate:"gte=0"`
	// SampleRate is the trace sampling rate (0.0 to 1.0).
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0,lte=1"`
	// Namespace prefixes Prometheus metric names.
	Namespace string `yaml:"namespace" mapstructure:"namespace"`
	// Listen is the address serving /metrics for the prometheus exporter.
	// Empty leaves serving to the caller via Telemetry.Handler.
	Listen string `yaml:"listen" mapstructure:"listen" validate:"omitempty,hostname_port"`
}

// ApplyDefaults applies default values to the telemetry configuration.
func (c *Config) ApplyDefaults() {
	if c.Exporter == "" {
		c.Exporter = ExporterNone
	}
	if c.ServiceName == "" {
		c.ServiceName = "autotune"
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = "dev"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Exporter == ExporterOTel && c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.Interval == 0 {
		c.Interval = 15 * time.Second
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1.0
	}
	if c.Namespace == "" {
		c.Namespace = "autotune"
	}
}

// Validate validates the telemetry configuration.
func (c *Config) Validate() error {
	return validation.Validate(c)
}
