package host

import (
	"context"
	"fmt"
	"reflect"

	"github.com/wippyai/stickyhost/errors"
	"github.com/wippyai/stickyhost/resource"
)

// Ref is a reference to a hosted object that can be used from any
// goroutine. Calls made through it run on the host's worker.
//
// AddRef and Release manipulate the object's shared reference count; the
// Release that takes it to zero shuts the host down.
type Ref struct {
	link       *link
	capability string
}

// ID returns the host's unique identifier.
func (r *Ref) ID() string {
	return r.link.id
}

// Name returns the name given with WithName, if any.
func (r *Ref) Name() string {
	return r.link.name
}

// Token returns the object's handle in the export registry. Table events
// for the host carry this handle.
func (r *Ref) Token() resource.Handle {
	return r.link.token
}

// Capability returns the capability this reference was obtained for.
func (r *Ref) Capability() string {
	return r.capability
}

// Refs returns the current reference count.
func (r *Ref) Refs() int64 {
	return r.link.refs.load()
}

// State returns the state of the host's event loop.
func (r *Ref) State() LoopState {
	return r.link.loop.State()
}

// Done is closed once the worker goroutine has exited.
func (r *Ref) Done() <-chan struct{} {
	return r.link.exited
}

// AddRef increments the reference count and returns the new value. It
// fails once the count has reached zero.
func (r *Ref) AddRef() (int64, error) {
	return r.link.refs.addRef()
}

// Release decrements the reference count and returns the new value.
func (r *Ref) Release() (int64, error) {
	return r.link.refs.release()
}

// Probe asks the hosted object for a capability. On success the returned
// reference holds a new count the caller must Release.
func (r *Ref) Probe(ctx context.Context, name string) (*Ref, error) {
	if r.link.refs.load() <= 0 {
		return nil, errors.Disconnected(errors.PhaseDispatch)
	}
	err := r.link.loop.call(ctx, func() error {
		a, err := r.link.resolve()
		if err != nil {
			return err
		}
		if err := a.probe(name); err != nil {
			return err
		}
		_, err = a.refs.addRef()
		return err
	})
	if err != nil {
		return nil, err
	}
	return &Ref{link: r.link, capability: name}, nil
}

// Invoke runs fn on the worker with the hosted object and returns its
// error. It must not be called from the worker itself.
func (r *Ref) Invoke(ctx context.Context, fn func(ctx context.Context, obj any) error) error {
	if r.link.refs.load() <= 0 {
		return errors.Disconnected(errors.PhaseDispatch)
	}
	return r.link.loop.call(ctx, func() error {
		a, err := r.link.resolve()
		if err != nil {
			return err
		}
		return fn(ctx, a.obj)
	})
}

// Call runs fn on ref's worker with the hosted object asserted to C.
func Call[C, R any](ctx context.Context, ref *Ref, fn func(ctx context.Context, obj C) (R, error)) (R, error) {
	var out R
	err := ref.Invoke(ctx, func(ctx context.Context, obj any) error {
		c, ok := obj.(C)
		if !ok {
			return errors.New(errors.PhaseDispatch, errors.KindTypeMismatch).
				GoType(fmt.Sprintf("%T", obj)).
				Detail("hosted object is not %s", reflect.TypeOf((*C)(nil)).Elem()).
				Build()
		}
		r, err := fn(ctx, c)
		out = r
		return err
	})
	return out, err
}

func (r *Ref) String() string {
	if r.link.name != "" {
		return fmt.Sprintf("host(%s %s)", r.link.name, r.link.id)
	}
	return fmt.Sprintf("host(%s)", r.link.id)
}
