// Package config loads hostctl settings from YAML with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/stickyhost/errors"
	"github.com/wippyai/stickyhost/host"
	"github.com/wippyai/stickyhost/resource"
)

const envPrefix = "STICKYHOST_"

// Config is the resolved configuration.
type Config struct {
	Name        string
	QueueSize   int
	HandleLimit int
	LogLevel    string
	Development bool
	MetricsAddr string
	WasmPath    string
	WasmPages   uint32
}

// File mirrors the YAML layout. Unset fields keep their defaults.
type File struct {
	Host    HostSection    `yaml:"host"`
	Log     LogSection     `yaml:"log"`
	Metrics MetricsSection `yaml:"metrics"`
	Wasm    WasmSection    `yaml:"wasm"`
}

type HostSection struct {
	Name        string `yaml:"name"`
	QueueSize   int    `yaml:"queueSize"`
	HandleLimit int    `yaml:"handleLimit"`
}

type LogSection struct {
	Level       string `yaml:"level"`
	Development *bool  `yaml:"development"`
}

type MetricsSection struct {
	Addr string `yaml:"addr"`
}

type WasmSection struct {
	Path             string `yaml:"path"`
	MemoryLimitPages uint32 `yaml:"memoryLimitPages"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		QueueSize: host.DefaultQueueSize,
		LogLevel:  "info",
	}
}

// Load reads path, merges it over the defaults and applies STICKYHOST_*
// overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, errors.Wrap(errors.PhaseConfig, errors.KindNotFound, err, fmt.Sprintf("read %s", path))
		}
		var parsed File
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return cfg, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, fmt.Sprintf("parse %s", path))
		}
		Merge(&cfg, parsed)
	}

	ApplyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Merge copies the fields set in src onto dst.
func Merge(dst *Config, src File) {
	if src.Host.Name != "" {
		dst.Name = src.Host.Name
	}
	if src.Host.QueueSize != 0 {
		dst.QueueSize = src.Host.QueueSize
	}
	if src.Host.HandleLimit != 0 {
		dst.HandleLimit = src.Host.HandleLimit
	}
	if src.Log.Level != "" {
		dst.LogLevel = src.Log.Level
	}
	if src.Log.Development != nil {
		dst.Development = *src.Log.Development
	}
	if src.Metrics.Addr != "" {
		dst.MetricsAddr = src.Metrics.Addr
	}
	if src.Wasm.Path != "" {
		dst.WasmPath = src.Wasm.Path
	}
	if src.Wasm.MemoryLimitPages != 0 {
		dst.WasmPages = src.Wasm.MemoryLimitPages
	}
}

// ApplyEnvOverrides applies STICKYHOST_* variables. Malformed numbers and
// booleans are ignored.
func ApplyEnvOverrides(cfg *Config) {
	if v := env("NAME"); v != "" {
		cfg.Name = v
	}
	if n, ok := envInt("QUEUE_SIZE"); ok {
		cfg.QueueSize = n
	}
	if n, ok := envInt("HANDLE_LIMIT"); ok {
		cfg.HandleLimit = n
	}
	if v := env("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := env("LOG_DEVELOPMENT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Development = b
		}
	}
	if v := env("METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := env("WASM"); v != "" {
		cfg.WasmPath = v
	}
}

func env(name string) string {
	return strings.TrimSpace(os.Getenv(envPrefix + name))
}

func envInt(name string) (int, bool) {
	v := env(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if c.QueueSize < 1 {
		return errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("queue size must be positive, got %d", c.QueueSize))
	}
	if c.HandleLimit < 0 {
		return errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("handle limit must not be negative, got %d", c.HandleLimit))
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "log level")
	}
	return nil
}

// NewTable returns a handle table honoring HandleLimit.
func (c Config) NewTable() *resource.UnifiedTable {
	return resource.NewTableWithLimit(c.HandleLimit)
}

// HostOptions converts the configuration to host options. A nil table
// leaves hosts on host.DefaultTable.
func (c Config) HostOptions(table *resource.UnifiedTable, extra ...host.Option) []host.Option {
	opts := []host.Option{host.WithQueueSize(c.QueueSize)}
	if c.Name != "" {
		opts = append(opts, host.WithName(c.Name))
	}
	if table != nil {
		opts = append(opts, host.WithTable(table))
	}
	return append(opts, extra...)
}

// NewLogger builds a zap logger at LogLevel.
func (c Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "log level")
	}

	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
