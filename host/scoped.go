package host

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/stickyhost/errors"
)

// Scoped holds an object whose lifetime is bound to its owner rather than
// to a reference count. It is constructed in place on the calling
// goroutine and has no worker.
type Scoped[T any] struct {
	obj    T
	state  adapterState
	closed atomic.Bool
}

// NewScoped runs both construction phases on obj. If the second phase
// fails, obj is finalized before the error is returned.
func NewScoped[T any](obj T) (*Scoped[T], error) {
	s := &Scoped[T]{obj: obj}

	if c, ok := any(obj).(InitialConstructor); ok {
		if err := c.InitialConstruct(); err != nil {
			return nil, errors.Classify(errors.PhaseConstruct, err)
		}
	}
	s.state = stateAllocated

	if c, ok := any(obj).(FinalConstructor); ok {
		if err := c.FinalConstruct(); err != nil {
			s.Close()
			return nil, errors.Classify(errors.PhaseConstruct, err)
		}
	}
	s.state = stateValid
	return s, nil
}

// Object returns the scoped object.
func (s *Scoped[T]) Object() T {
	return s.obj
}

// AddRef does nothing and returns 0.
func (s *Scoped[T]) AddRef() int64 { return 0 }

// Release does nothing and returns 0.
func (s *Scoped[T]) Release() int64 { return 0 }

// Probe reports whether the object provides the named capability.
func (s *Scoped[T]) Probe(name string) error {
	if s.closed.Load() {
		return errors.Disconnected(errors.PhaseDispatch)
	}
	if name == CapUnknown {
		return nil
	}
	if p, ok := any(s.obj).(CapabilityProvider); ok && p.QueryCapability(name) {
		return nil
	}
	return errors.NotSupported(errors.PhaseDispatch, name)
}

// Close finalizes the object. Only the first call has an effect, and
// FinalRelease runs only if InitialConstruct succeeded. A panic in
// FinalRelease is returned as a KindGeneric error.
func (s *Scoped[T]) Close() (err error) {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	defer func() { s.state = stateDestroyed }()

	if s.state < stateAllocated {
		return nil
	}
	r, ok := any(s.obj).(FinalReleaser)
	if !ok {
		return nil
	}

	defer func() {
		if p := recover(); p != nil {
			Logger().Warn("final release panicked",
				zap.String("phase", string(errors.PhaseShutdown)),
				zap.Any("panic", p))
			err = errors.New(errors.PhaseShutdown, errors.KindGeneric).
				Detail("final release panicked: %v", p).
				Build()
		}
	}()
	r.FinalRelease()
	return nil
}
