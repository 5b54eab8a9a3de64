package host

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/stickyhost/errors"
	"github.com/wippyai/stickyhost/resource"
)

type adapterState uint8

const (
	stateEmpty adapterState = iota
	stateAllocated
	stateValid
	stateDestroyed
)

func (s adapterState) String() string {
	switch s {
	case stateEmpty:
		return "empty"
	case stateAllocated:
		return "allocated"
	case stateValid:
		return "valid"
	case stateDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("adapterState(%d)", uint8(s))
	}
}

// adapter wraps a hosted object with its reference count and lifecycle.
// Everything except refs is owned by the worker.
type adapter struct {
	obj   any
	state adapterState
	refs  refCounter
	loop  *loop
	table *resource.UnifiedTable
	token resource.Handle
	log   *zap.Logger
}

func newAdapter(obj any, l *loop, table *resource.UnifiedTable, log *zap.Logger, m *Metrics) *adapter {
	a := &adapter{
		obj:   obj,
		loop:  l,
		table: table,
		log:   log,
	}
	a.refs.onZero = func() {
		m.shutdown()
		a.log.Debug("reference count reached zero")
		a.loop.stop()
	}
	return a
}

// construct runs both construction phases and activates the reference
// count. The object receives its site only once it is valid.
func (a *adapter) construct() error {
	if c, ok := a.obj.(InitialConstructor); ok {
		if err := c.InitialConstruct(); err != nil {
			return err
		}
	}
	a.state = stateAllocated

	if c, ok := a.obj.(FinalConstructor); ok {
		if err := c.FinalConstruct(); err != nil {
			return err
		}
	}
	a.state = stateValid

	if !a.refs.activate() {
		return errors.New(errors.PhaseConstruct, errors.KindGeneric).
			Detail("reference count already active").
			Build()
	}

	if s, ok := a.obj.(SiteSetter); ok {
		s.SetSite(site{a: a})
	}
	return nil
}

func (a *adapter) probe(name string) error {
	if name == CapUnknown {
		return nil
	}
	if p, ok := a.obj.(CapabilityProvider); ok && p.QueryCapability(name) {
		return nil
	}
	return errors.NotSupported(errors.PhaseDispatch, name)
}

// destroy detaches the object from the export registry and finalizes it.
// It runs once, on the worker.
func (a *adapter) destroy() {
	if a.state == stateDestroyed {
		return
	}

	if a.token != 0 {
		if _, ok := exportsOf(a.table).Remove(a.token); !ok {
			a.log.Warn("detach from export registry failed",
				zap.String("phase", string(errors.PhaseShutdown)),
				zap.Uint64("token", uint64(a.token)))
		}
		a.token = 0
	}

	if a.state >= stateAllocated {
		if r, ok := a.obj.(FinalReleaser); ok {
			a.finalRelease(r)
		}
	}
	a.state = stateDestroyed
}

func (a *adapter) finalRelease(r FinalReleaser) {
	defer func() {
		if p := recover(); p != nil {
			a.log.Warn("final release panicked",
				zap.String("phase", string(errors.PhaseShutdown)),
				zap.Any("panic", p))
		}
	}()
	r.FinalRelease()
}

type site struct {
	a *adapter
}

func (s site) AddRef() (int64, error) {
	return s.a.refs.addRef()
}

func (s site) Release() (int64, error) {
	return s.a.refs.release()
}

func (s site) Post(fn func(ctx context.Context)) error {
	return s.a.loop.tryPost(event{fn: fn})
}
