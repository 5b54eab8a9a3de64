package host

import (
	"go.uber.org/zap"

	"github.com/wippyai/stickyhost/resource"
)

// DefaultQueueSize is the inbound event queue capacity used when
// WithQueueSize is not given.
const DefaultQueueSize = 64

var defaultTable = resource.NewTable()

// DefaultTable returns the handle table hosts publish into unless
// WithTable is given.
func DefaultTable() *resource.UnifiedTable {
	return defaultTable
}

// Option configures a host created by Create.
type Option func(*config)

type config struct {
	initializer Initializer
	logger      *zap.Logger
	metrics     *Metrics
	table       *resource.UnifiedTable
	name        string
	queueSize   int
}

func newConfig(opts []Option) config {
	cfg := config{
		queueSize: DefaultQueueSize,
		table:     defaultTable,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = Logger()
	}
	return cfg
}

// WithName labels the host in logs.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// WithInitializer adds setup that runs on the worker thread after it has
// been locked and before the object is constructed.
func WithInitializer(init Initializer) Option {
	return func(c *config) {
		c.initializer = init
	}
}

// WithQueueSize sets the inbound event queue capacity. Values below 1 are
// raised to 1.
func WithQueueSize(n int) Option {
	return func(c *config) {
		if n < 1 {
			n = 1
		}
		c.queueSize = n
	}
}

// WithLogger overrides the package logger for one host.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithMetrics records the host's lifecycle in m.
func WithMetrics(m *Metrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}

// WithTable publishes the host's handles into t instead of DefaultTable.
func WithTable(t *resource.UnifiedTable) Option {
	return func(c *config) {
		c.table = t
	}
}
