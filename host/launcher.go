package host

import (
	"reflect"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wippyai/stickyhost/errors"
	"github.com/wippyai/stickyhost/resource"
)

// Create starts a dedicated worker, constructs the object returned by
// factory on it and returns a reference holding the object's initial
// count. Create blocks until the worker has either handed off the
// reference or failed.
//
// A failure is always an *errors.Error of kind KindPlatform, KindOutOfMemory
// or KindGeneric. The underlying cause is logged on the worker, not
// returned.
func Create[T any](factory func() (T, error), opts ...Option) (*Ref, error) {
	cfg := newConfig(opts)
	start := time.Now()

	if factory == nil {
		err := errors.Generic(errors.PhaseInit)
		cfg.logger.Error("host creation failed", zap.String("error", "nil factory"))
		cfg.metrics.createDone(start, err)
		return nil, err
	}

	w := newWorker(cfg, func() (any, error) {
		obj, err := factory()
		return obj, err
	})
	ho := newHandoff[resource.Handle]()
	go w.run(ho)

	h, err := ho.wait()
	if err != nil {
		cfg.metrics.createDone(start, err)
		return nil, err
	}

	ref, err := unmarshal(cfg.table, h)
	if err != nil {
		w.log.Error("handle consumption failed", zap.Error(err))
		// Drops the initial reference if the stream entry is still there.
		streamsOf(cfg.table).Remove(h)
		err = errors.Classify(errors.PhaseUnmarshal, err)
		cfg.metrics.createDone(start, err)
		return nil, err
	}
	cfg.metrics.createDone(start, nil)
	return ref, nil
}

type worker struct {
	cfg     config
	id      string
	log     *zap.Logger
	factory func() (any, error)
	loop    *loop
	phase   errors.Phase
	exited  chan struct{}
}

func newWorker(cfg config, factory func() (any, error)) *worker {
	id := uuid.NewString()
	log := cfg.logger.With(zap.String("host", id))
	if cfg.name != "" {
		log = log.With(zap.String("name", cfg.name))
	}
	return &worker{
		cfg:     cfg,
		id:      id,
		log:     log,
		factory: factory,
		loop:    newLoop(cfg.queueSize, log, cfg.metrics),
		phase:   errors.PhaseInit,
		exited:  make(chan struct{}),
	}
}

// run is the worker goroutine. The handoff is written exactly once on
// every path, including panics before the handoff.
func (w *worker) run(ho *handoff[resource.Handle]) {
	defer close(w.exited)
	w.cfg.metrics.workerStarted()
	defer w.cfg.metrics.workerExited()
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("worker panicked",
				zap.String("phase", string(w.phase)),
				zap.Any("panic", r),
				zap.Stack("stack"))
			if !ho.sent() {
				ho.fail(errors.Generic(w.phase))
			}
		}
	}()

	setup := ChainInitializers(ThreadInitializer{}, w.cfg.initializer)
	if err := setup.Initialize(); err != nil {
		w.abort(ho, err)
		return
	}
	defer setup.Uninitialize()

	w.serve(ho)
}

func (w *worker) serve(ho *handoff[resource.Handle]) {
	w.phase = errors.PhaseConstruct
	obj, err := w.factory()
	if err != nil {
		w.abort(ho, err)
		return
	}
	if isNil(obj) {
		w.abort(ho, errors.InvalidInput(errors.PhaseConstruct, "factory returned a nil object"))
		return
	}

	a := newAdapter(obj, w.loop, w.cfg.table, w.log, w.cfg.metrics)
	defer a.destroy()

	if err := a.construct(); err != nil {
		w.abort(ho, err)
		return
	}

	w.phase = errors.PhaseMarshal
	h, err := a.marshal(w.id, w.cfg.name, w.exited)
	if err != nil {
		w.abort(ho, err)
		return
	}

	w.phase = errors.PhaseDispatch
	ho.send(h)
	w.log.Debug("host started")

	w.loop.run()

	w.phase = errors.PhaseShutdown
	w.log.Debug("host stopped")
}

func (w *worker) abort(ho *handoff[resource.Handle], err error) {
	w.log.Error("host creation failed",
		zap.String("phase", string(w.phase)),
		zap.Error(err))
	ho.fail(errors.Classify(w.phase, err))
}

// isNil reports whether obj is nil or a nil value of a nillable kind
// wrapped in a non-nil interface.
func isNil(obj any) bool {
	v := reflect.ValueOf(obj)
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func,
		reflect.Chan, reflect.Interface, reflect.UnsafePointer:
		return v.IsNil()
	}
	return false
}
