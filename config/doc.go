// Package config loads the configuration of an autotuned pipeline process.
//
// It uses Viper to read config.yml from ./cmd/<service>/ or the working
// directory and overlays AUTOTUNE_ environment variables, including those
// from a .env file loaded with godotenv. Every key has one variable:
// AUTOTUNE_NAME sets name, AUTOTUNE_METRICS_EXPORTER sets metrics.exporter,
// and keys of the autotune section drop the section, so AUTOTUNE_CPU_BUDGET
// sets autotune.cpu_budget.
//
// # Usage
//
//	cfg, err := config.Load("autotune-demo")
//	driver, err := autotune.New(m, cfg.Autotune)
package config
