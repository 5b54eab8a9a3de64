package host

import "runtime"

// Initializer prepares the worker's execution context before the hosted
// object is constructed. Uninitialize runs on the same thread before the
// worker exits, and only if Initialize succeeded.
type Initializer interface {
	Initialize() error
	Uninitialize()
}

// ThreadInitializer pins the calling goroutine to its OS thread. It never
// unlocks, so the runtime destroys the thread once the goroutine returns.
type ThreadInitializer struct{}

func (ThreadInitializer) Initialize() error {
	runtime.LockOSThread()
	return nil
}

func (ThreadInitializer) Uninitialize() {}

// InitializerFunc adapts a setup function and an optional teardown to the
// Initializer interface.
type InitializerFunc struct {
	Init   func() error
	Uninit func()
}

func (f InitializerFunc) Initialize() error {
	if f.Init == nil {
		return nil
	}
	return f.Init()
}

func (f InitializerFunc) Uninitialize() {
	if f.Uninit != nil {
		f.Uninit()
	}
}

type chain []Initializer

// ChainInitializers runs inits in order. If one fails, the ones before it
// are uninitialized in reverse order and the error is returned.
func ChainInitializers(inits ...Initializer) Initializer {
	c := make(chain, 0, len(inits))
	for _, in := range inits {
		if in != nil {
			c = append(c, in)
		}
	}
	return c
}

func (c chain) Initialize() error {
	for i, in := range c {
		if err := in.Initialize(); err != nil {
			for j := i - 1; j >= 0; j-- {
				c[j].Uninitialize()
			}
			return err
		}
	}
	return nil
}

func (c chain) Uninitialize() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i].Uninitialize()
	}
}
