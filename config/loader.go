package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kbukum/autotune/logger"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "AUTOTUNE"

// FileSystem interface for file operations (useful for testing).
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// RealFileSystem implements FileSystem using actual file operations.
type RealFileSystem struct{}

func (rfs *RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (rfs *RealFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// Resolver finds the config and env files of a service.
type Resolver struct {
	FileSystem FileSystem
}

// ResolvedFiles contains the resolved config and env file paths.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// ResolveFiles returns the explicit paths of opts, or the first existing
// file under ./cmd/<service>/ and then the working directory.
func (cr *Resolver) ResolveFiles(serviceName string, opts LoaderConfig) ResolvedFiles {
	dirs := []string{"./cmd/" + serviceName + "/", "./"}
	resolved := ResolvedFiles{ConfigFile: opts.ConfigFile, EnvFile: opts.EnvFile}
	if resolved.ConfigFile == "" {
		resolved.ConfigFile = cr.first(dirs, "config.yml")
	}
	if resolved.EnvFile == "" {
		resolved.EnvFile = cr.first(dirs, ".env")
	}
	return resolved
}

func (cr *Resolver) first(dirs []string, name string) string {
	for _, dir := range dirs {
		if path := dir + name; cr.FileSystem.Exists(path) {
			return path
		}
	}
	return ""
}

// LoaderConfig holds dependencies and optional file overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string // Direct config file path (optional)
	EnvFile    string // Direct env file path (optional)
}

// LoaderOption is a functional option for LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// LoadConfig reads the config file of serviceName into cfg, a pointer to a
// struct with mapstructure tags. Every key of cfg can be overridden by an
// environment variable named by EnvKey; variables in the .env file count
// unless already set.
func LoadConfig(serviceName string, cfg any, opts ...LoaderOption) error {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.FileSystem == nil {
		lc.FileSystem = &RealFileSystem{}
	}
	files := (&Resolver{FileSystem: lc.FileSystem}).ResolveFiles(serviceName, lc)

	v := viper.New()
	if files.ConfigFile != "" && lc.FileSystem.Exists(files.ConfigFile) {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			logger.Warn("failed to load config file", logger.Fields("file", files.ConfigFile, logger.FieldError, err.Error()))
		}
	}

	keys, err := configKeys(cfg)
	if err != nil {
		return fmt.Errorf("failed to list config keys for service %s: %w", serviceName, err)
	}
	for _, key := range keys {
		if err := v.BindEnv(key, EnvKey(key)); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	// bound variables are read at unmarshal time, so .env values still apply
	if files.EnvFile != "" && lc.FileSystem.Exists(files.EnvFile) {
		if err := lc.FileSystem.LoadEnv(files.EnvFile); err != nil {
			logger.Warn("failed to load .env file", logger.Fields("file", files.EnvFile, logger.FieldError, err.Error()))
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config for service %s: %w", serviceName, err)
	}
	return nil
}

// EnvKey returns the environment variable of a config key: the key upper
// cased with dots as underscores behind EnvPrefix. Keys of the autotune
// section drop the section name, so autotune.cpu_budget is
// AUTOTUNE_CPU_BUDGET while metrics.exporter is AUTOTUNE_METRICS_EXPORTER.
func EnvKey(key string) string {
	key = strings.TrimPrefix(key, strings.ToLower(EnvPrefix)+".")
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// configKeys lists the dotted mapstructure keys of every leaf field of cfg.
func configKeys(cfg any) ([]string, error) {
	var tree map[string]any
	if err := mapstructure.Decode(cfg, &tree); err != nil {
		return nil, err
	}
	var keys []string
	var walk func(prefix string, m map[string]any)
	walk = func(prefix string, m map[string]any) {
		for k, val := range m {
			if sub, ok := val.(map[string]any); ok {
				walk(prefix+k+".", sub)
				continue
			}
			keys = append(keys, prefix+k)
		}
	}
	walk("", tree)
	sort.Strings(keys)
	return keys, nil
}
