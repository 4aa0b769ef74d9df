package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/autotune/errors"
	"github.com/kbukum/autotune/observability"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestServiceConfigApplyDefaults(t *testing.T) {
	t.Run("empty environment defaults to development", func(t *testing.T) {
		cfg := ServiceConfig{Name: "svc"}
		cfg.ApplyDefaults()
		if cfg.Environment != "development" {
			t.Errorf("expected 'development', got %q", cfg.Environment)
		}
		if !cfg.Debug {
			t.Error("expected debug=true for development")
		}
		if cfg.Logging.Level != "debug" {
			t.Errorf("expected debug logging in development, got %q", cfg.Logging.Level)
		}
	})

	t.Run("production environment keeps debug false", func(t *testing.T) {
		cfg := ServiceConfig{Name: "svc", Environment: "production"}
		cfg.ApplyDefaults()
		if cfg.Debug {
			t.Error("expected debug=false for production")
		}
		if cfg.Logging.Level != "info" {
			t.Errorf("expected info logging in production, got %q", cfg.Logging.Level)
		}
	})
}

func TestServiceConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ServiceConfig
		wantErr bool
		errMsg  string
	}{
		{"valid development", ServiceConfig{Name: "svc", Environment: "development"}, false, ""},
		{"valid production", ServiceConfig{Name: "svc", Environment: "production"}, false, ""},
		{"missing name", ServiceConfig{Environment: "production"}, true, "name: is required"},
		{"invalid environment", ServiceConfig{Name: "svc", Environment: "invalid"}, true, "environment: must be one of"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.Logging.ApplyDefaults()
			err := tc.cfg.Validate()
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !strings.Contains(err.Error(), tc.errMsg) {
					t.Errorf("expected error containing %q, got %q", tc.errMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	base := func() Config {
		cfg := Config{ServiceConfig: ServiceConfig{Name: "svc"}}
		cfg.ApplyDefaults()
		return cfg
	}

	t.Run("defaults are valid", func(t *testing.T) {
		cfg := base()
		if err := cfg.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("negative budget is invalid config", func(t *testing.T) {
		cfg := base()
		cfg.Autotune.CPUBudget = -1
		err := cfg.Validate()
		if !errors.HasCode(err, errors.ErrCodeInvalidConfig) {
			t.Fatalf("expected %s, got %v", errors.ErrCodeInvalidConfig, err)
		}
		if !strings.Contains(err.Error(), "autotune.cpu_budget") {
			t.Errorf("expected field in message, got %q", err.Error())
		}
	})

	t.Run("section errors are collected", func(t *testing.T) {
		cfg := base()
		cfg.Name = ""
		cfg.Logging.Format = "xml"
		cfg.Metrics.Exporter = "kafka"
		err := cfg.Validate()
		if !errors.HasCode(err, errors.ErrCodeInvalidInput) {
			t.Fatalf("expected %s, got %v", errors.ErrCodeInvalidInput, err)
		}
		for _, want := range []string{"name: is required", "logging:", "metrics.exporter: must be one of"} {
			if !strings.Contains(err.Error(), want) {
				t.Errorf("expected error containing %q, got %q", want, err.Error())
			}
		}
	})
}

func TestLoadWithYAML(t *testing.T) {
	path := writeConfig(t, `
name: tuned-reader
environment: staging
version: "1.2.0"
logging:
  level: warn
  format: json
autotune:
  algorithm: gradient-descent
  cpu_budget: 4
  ram_budget: 1048576
  metrics_period: 50ms
  max_optimization_period: 5s
metrics:
  exporter: prometheus
  namespace: reader
`)

	cfg, err := Load("tuned-reader", WithConfigFile(path), WithEnvFile("/nonexistent/.env"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Environment != "staging" || cfg.Debug {
		t.Errorf("unexpected service section %+v", cfg.ServiceConfig)
	}
	if cfg.Logging.Level != "warn" || cfg.Logging.Format != "json" {
		t.Errorf("unexpected logging section %+v", cfg.Logging)
	}
	at := cfg.Autotune
	if at.Algorithm != "gradient-descent" || at.CPUBudget != 4 || at.RAMBudget != 1<<20 {
		t.Errorf("unexpected autotune section %+v", at)
	}
	if at.MetricsPeriod != 50*time.Millisecond || at.MaxOptimizationPeriod != 5*time.Second {
		t.Errorf("unexpected autotune periods %+v", at)
	}
	if cfg.Metrics.Exporter != observability.ExporterPrometheus || cfg.Metrics.Namespace != "reader" {
		t.Errorf("unexpected metrics section %+v", cfg.Metrics)
	}
	if cfg.Metrics.ServiceName != "tuned-reader" || cfg.Metrics.ServiceVersion != "1.2.0" {
		t.Errorf("expected service identity in metrics, got %+v", cfg.Metrics)
	}
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, `
name: tuned-reader
environment: production
autotune:
  cpu_budget: 4
`)
	t.Setenv("AUTOTUNE_CPU_BUDGET", "2")
	t.Setenv("AUTOTUNE_ALGORITHM", "gradient-descent")

	cfg, err := Load("tuned-reader", WithConfigFile(path), WithEnvFile("/nonexistent/.env"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Autotune.CPUBudget != 2 {
		t.Errorf("expected env to override cpu_budget, got %d", cfg.Autotune.CPUBudget)
	}
	if cfg.Autotune.Algorithm != "gradient-descent" {
		t.Errorf("expected env algorithm, got %q", cfg.Autotune.Algorithm)
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := writeConfig(t, "name: tuned-reader\n")
	envPath := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envPath, []byte("AUTOTUNE_RAM_BUDGET=4096\n"), 0644); err != nil {
		t.Fatal(err)
	}
	// godotenv does not override set variables; register cleanup of the one it sets.
	t.Setenv("AUTOTUNE_RAM_BUDGET", "")
	os.Unsetenv("AUTOTUNE_RAM_BUDGET")

	cfg, err := Load("tuned-reader", WithConfigFile(path), WithEnvFile(envPath))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Autotune.RAMBudget != 4096 {
		t.Errorf("expected ram_budget from .env, got %d", cfg.Autotune.RAMBudget)
	}
}

func TestLoadDefaultsNameAndRejectsInvalid(t *testing.T) {
	cfg, err := Load("tuned-reader", WithConfigFile("/nonexistent/path.yml"), WithEnvFile("/nonexistent/.env"))
	if err != nil {
		t.Fatalf("expected Load to succeed with missing file, got %v", err)
	}
	if cfg.Name != "tuned-reader" || cfg.Autotune.Algorithm != "hill-climb" {
		t.Errorf("unexpected defaults %+v", cfg)
	}

	path := writeConfig(t, "autotune:\n  ram_budget: -1\n")
	if _, err := Load("tuned-reader", WithConfigFile(path), WithEnvFile("/nonexistent/.env")); !errors.HasCode(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("expected %s, got %v", errors.ErrCodeInvalidConfig, err)
	}
}

func TestLoadServiceAndMetricsFromEnv(t *testing.T) {
	path := writeConfig(t, `
name: tuned-reader
metrics:
  exporter: none
`)
	t.Setenv("AUTOTUNE_NAME", "env-reader")
	t.Setenv("AUTOTUNE_ENVIRONMENT", "production")
	t.Setenv("AUTOTUNE_LOGGING_LEVEL", "error")
	t.Setenv("AUTOTUNE_METRICS_EXPORTER", "prometheus")
	t.Setenv("AUTOTUNE_METRICS_LISTEN", "localhost:9464")
	t.Setenv("AUTOTUNE_METRICS_PERIOD", "20ms")

	cfg, err := Load("tuned-reader", WithConfigFile(path), WithEnvFile("/nonexistent/.env"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Name != "env-reader" || cfg.Environment != "production" {
		t.Errorf("expected service keys from env, got %+v", cfg.ServiceConfig)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("expected nested logging key from env, got %q", cfg.Logging.Level)
	}
	if cfg.Metrics.Exporter != observability.ExporterPrometheus || cfg.Metrics.Listen != "localhost:9464" {
		t.Errorf("expected metrics keys from env, got %+v", cfg.Metrics)
	}
	if cfg.Autotune.MetricsPeriod != 20*time.Millisecond {
		t.Errorf("expected autotune.metrics_period from env, got %s", cfg.Autotune.MetricsPeriod)
	}
}

func TestEnvKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"name", "AUTOTUNE_NAME"},
		{"logging.level", "AUTOTUNE_LOGGING_LEVEL"},
		{"autotune.cpu_budget", "AUTOTUNE_CPU_BUDGET"},
		{"autotune.metrics_period", "AUTOTUNE_METRICS_PERIOD"},
		{"metrics.exporter", "AUTOTUNE_METRICS_EXPORTER"},
		{"metrics.sample_rate", "AUTOTUNE_METRICS_SAMPLE_RATE"},
	}
	for _, tc := range tests {
		if got := EnvKey(tc.key); got != tc.want {
			t.Errorf("EnvKey(%q) = %q, want %q", tc.key, got, tc.want)
		}
	}
}

func TestConfigKeys(t *testing.T) {
	keys, err := configKeys(&Config{})
	if err != nil {
		t.Fatalf("configKeys failed: %v", err)
	}
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		seen[k] = true
	}
	for _, want := range []string{"name", "environment", "debug", "logging.level", "autotune.algorithm", "autotune.ram_budget", "metrics.exporter", "metrics.listen"} {
		if !seen[want] {
			t.Errorf("expected key %q among %v", want, keys)
		}
	}
	if seen["serviceconfig.name"] || seen["logging"] {
		t.Errorf("expected squashed leaf keys only, got %v", keys)
	}
	// every key maps to its own variable
	vars := make(map[string]string, len(keys))
	for _, k := range keys {
		if prev, dup := vars[EnvKey(k)]; dup {
			t.Errorf("%s and %s share %s", prev, k, EnvKey(k))
		}
		vars[EnvKey(k)] = k
	}
}

func TestResolverWithMockFS(t *testing.T) {
	tests := []struct {
		name       string
		files      map[string]bool
		wantConfig string
		wantEnv    string
	}{
		{
			name:       "command directory",
			files:      map[string]bool{"./cmd/autotune-demo/config.yml": true, "./cmd/autotune-demo/.env": true, "./config.yml": true},
			wantConfig: "./cmd/autotune-demo/config.yml",
			wantEnv:    "./cmd/autotune-demo/.env",
		},
		{
			name:       "working directory",
			files:      map[string]bool{"./config.yml": true, "./.env": true},
			wantConfig: "./config.yml",
			wantEnv:    "./.env",
		},
		{name: "nothing found", files: map[string]bool{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resolver := &Resolver{FileSystem: &mockFS{files: tc.files}}
			files := resolver.ResolveFiles("autotune-demo", LoaderConfig{})
			if files.ConfigFile != tc.wantConfig || files.EnvFile != tc.wantEnv {
				t.Errorf("got %+v, want config %q env %q", files, tc.wantConfig, tc.wantEnv)
			}
		})
	}

	explicit := (&Resolver{FileSystem: &mockFS{}}).ResolveFiles("autotune-demo", LoaderConfig{ConfigFile: "/etc/a.yml", EnvFile: "/etc/a.env"})
	if explicit.ConfigFile != "/etc/a.yml" || explicit.EnvFile != "/etc/a.env" {
		t.Errorf("expected explicit paths to win, got %+v", explicit)
	}
}

type mockFS struct {
	files map[string]bool
}

func (m *mockFS) Exists(path string) bool  { return m.files[path] }
func (m *mockFS) LoadEnv(path string) error { return nil }

func TestLoaderOptions(t *testing.T) {
	var lc LoaderConfig
	WithFileSystem(&mockFS{})(&lc)
	WithConfigFile("/path/to/config.yml")(&lc)
	WithEnvFile("/path/to/.env")(&lc)
	if lc.FileSystem == nil || lc.ConfigFile != "/path/to/config.yml" || lc.EnvFile != "/path/to/.env" {
		t.Errorf("unexpected loader config %+v", lc)
	}
}
