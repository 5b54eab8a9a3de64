package wasmobj

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/stickyhost/errors"
	"github.com/wippyai/stickyhost/host"
)

// Module is a handle to an Object running on its own host worker. It is
// safe for concurrent use.
type Module struct {
	ref *host.Ref
}

// Open starts a host worker and instantiates cfg on it.
func Open(cfg Config, opts ...host.Option) (*Module, error) {
	if cfg.Name != "" {
		opts = append([]host.Option{host.WithName(cfg.Name)}, opts...)
	}
	ref, err := host.Create(func() (*Object, error) {
		return New(cfg), nil
	}, opts...)
	if err != nil {
		Logger().Debug("open module failed", zap.String("module", cfg.Name), zap.Error(err))
		return nil, err
	}
	return &Module{ref: ref}, nil
}

// Ref returns the underlying host reference.
func (m *Module) Ref() *host.Ref {
	return m.ref
}

// Call invokes export name on the worker.
func (m *Module) Call(ctx context.Context, name string, sig Signature, args ...any) ([]any, error) {
	return host.Call(ctx, m.ref, func(ctx context.Context, o *Object) ([]any, error) {
		return o.Call(ctx, name, sig, args...)
	})
}

// Exports lists the module's exported functions.
func (m *Module) Exports(ctx context.Context) ([]string, error) {
	return host.Call(ctx, m.ref, func(_ context.Context, o *Object) ([]string, error) {
		return o.Exports(), nil
	})
}

// HasExport reports whether the module exports function name.
func (m *Module) HasExport(ctx context.Context, name string) (bool, error) {
	p, err := m.ref.Probe(ctx, CapExportPrefix+name)
	if err != nil {
		if errors.KindOf(err) == errors.KindNotSupported {
			return false, nil
		}
		return false, err
	}
	_, err = p.Release()
	return true, err
}

// Close drops the module's reference. If it was the last one, Close waits
// for the worker to exit.
func (m *Module) Close() error {
	n, err := m.ref.Release()
	if err != nil {
		return err
	}
	if n == 0 {
		<-m.ref.Done()
	}
	return nil
}
