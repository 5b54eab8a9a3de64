package main

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/stickyhost/config"
	"github.com/wippyai/stickyhost/errors"
	"github.com/wippyai/stickyhost/host"
	"github.com/wippyai/stickyhost/resource"
	"github.com/wippyai/stickyhost/wasmobj"
)

// RootOptions holds global flags and the state built from them.
type RootOptions struct {
	ConfigPath string
	Verbose    bool

	cfg      config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  *host.Metrics
	table    *resource.UnifiedTable
	server   *http.Server

	unobserve func()
}

// NewRootCommand creates the hostctl root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "hostctl",
		Short: "Run objects on dedicated worker threads",
		Long: `hostctl creates hosted objects, each pinned to its own OS thread,
calls them from other goroutines and shuts each worker down when the
object's last reference is released.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return opts.teardown()
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML config")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))

	return cmd
}

func (o *RootOptions) setup() error {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return err
	}
	if o.Verbose {
		cfg.LogLevel = "debug"
	}
	o.cfg = cfg

	logger, err := cfg.NewLogger()
	if err != nil {
		return err
	}
	o.logger = logger
	wasmobj.SetLogger(logger.Named("wasm"))

	o.registry = prometheus.NewRegistry()
	o.metrics = host.NewMetrics(o.registry)
	o.table = cfg.NewTable()
	o.unobserve = o.metrics.Observe(o.table)

	if cfg.MetricsAddr != "" {
		srv, err := serveMetrics(cfg.MetricsAddr, o.registry, logger)
		if err != nil {
			return err
		}
		o.server = srv
	}
	return nil
}

func (o *RootOptions) teardown() error {
	if o.unobserve != nil {
		o.unobserve()
	}
	if o.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := o.server.Shutdown(ctx); err != nil {
			o.logger.Warn("metrics server shutdown failed", zap.Error(err))
		}
	}
	if o.logger != nil {
		_ = o.logger.Sync()
	}
	return nil
}

// hostOptions returns the options every host created by a command uses.
func (o *RootOptions) hostOptions() []host.Option {
	return o.cfg.HostOptions(o.table,
		host.WithLogger(o.logger.Named("host")),
		host.WithMetrics(o.metrics),
	)
}

func serveMetrics(addr string, reg *prometheus.Registry, log *zap.Logger) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "metrics listener")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()
	log.Info("serving metrics", zap.String("addr", ln.Addr().String()))
	return srv, nil
}
