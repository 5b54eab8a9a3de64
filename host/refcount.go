package host

import (
	"sync/atomic"

	"github.com/wippyai/stickyhost/errors"
)

// refCounter is the hosted object's reference count. It is the only state
// the worker shares with other goroutines.
type refCounter struct {
	n      atomic.Int64
	onZero func()
}

// activate moves the count from 0 to 1. It reports false if the count was
// already set.
func (r *refCounter) activate() bool {
	return r.n.CompareAndSwap(0, 1)
}

func (r *refCounter) load() int64 {
	return r.n.Load()
}

// addRef increments the count. A count that has reached zero stays there.
func (r *refCounter) addRef() (int64, error) {
	for {
		n := r.n.Load()
		if n <= 0 {
			return 0, errors.Disconnected(errors.PhaseDispatch)
		}
		if r.n.CompareAndSwap(n, n+1) {
			return n + 1, nil
		}
	}
}

// release decrements the count. The caller that takes it to zero runs
// onZero; no other caller can.
func (r *refCounter) release() (int64, error) {
	for {
		n := r.n.Load()
		if n <= 0 {
			return 0, errors.Released(errors.PhaseDispatch)
		}
		if r.n.CompareAndSwap(n, n-1) {
			if n == 1 && r.onZero != nil {
				r.onZero()
			}
			return n - 1, nil
		}
	}
}
