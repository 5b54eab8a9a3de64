package host

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/stickyhost/errors"
)

// LoopState is the state of a host's event loop.
type LoopState int32

const (
	LoopIdle LoopState = iota
	LoopRunning
	LoopStopped
)

func (s LoopState) String() string {
	switch s {
	case LoopIdle:
		return "idle"
	case LoopRunning:
		return "running"
	case LoopStopped:
		return "stopped"
	default:
		return fmt.Sprintf("LoopState(%d)", int32(s))
	}
}

type event struct {
	fn func(ctx context.Context)
	// abort answers the event when it will never be dispatched. May be nil.
	abort func(error)
}

const (
	callPending int32 = iota
	callStarted
	callAbandoned
)

// loop is the worker's event loop. It is started and run by the worker
// goroutine only; post, call and stop may be used from anywhere.
type loop struct {
	queue   chan event
	quit    chan struct{}
	done    chan struct{}
	state   atomic.Int32
	ctx     context.Context
	cancel  context.CancelFunc
	log     *zap.Logger
	metrics *Metrics
}

func newLoop(size int, log *zap.Logger, m *Metrics) *loop {
	ctx, cancel := context.WithCancel(context.Background())
	return &loop{
		queue:   make(chan event, size),
		quit:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
		log:     log,
		metrics: m,
	}
}

func (l *loop) State() LoopState {
	return LoopState(l.state.Load())
}

// stop wakes the loop and makes it stop after draining. It never blocks.
func (l *loop) stop() {
	select {
	case l.quit <- struct{}{}:
	default:
	}
}

// run blocks until stop is called. Events queued when the stop signal is
// observed are dispatched; events that arrive afterwards are aborted with
// KindDisconnected.
func (l *loop) run() {
	l.state.Store(int32(LoopRunning))
	defer func() {
		l.cancel()
		l.state.Store(int32(LoopStopped))
		close(l.done)
		l.reject()
	}()

	for {
		select {
		case ev := <-l.queue:
			l.dispatch(ev)
			l.drain(len(l.queue))
		case <-l.quit:
			l.drain(len(l.queue))
			return
		}
	}
}

// drain dispatches at most n queued events. Events posted while draining
// wait for the next wake, so a steady stream of posters cannot hold off a
// stop.
func (l *loop) drain(n int) {
	for ; n > 0; n-- {
		select {
		case ev := <-l.queue:
			l.dispatch(ev)
		default:
			return
		}
	}
}

func (l *loop) reject() {
	for {
		select {
		case ev := <-l.queue:
			if ev.abort != nil {
				ev.abort(errors.Disconnected(errors.PhaseDispatch))
			}
		default:
			return
		}
	}
}

func (l *loop) dispatch(ev event) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("event panicked", zap.Any("panic", r))
			if ev.abort != nil {
				ev.abort(errors.New(errors.PhaseDispatch, errors.KindGeneric).
					Detail("event panicked: %v", r).
					Build())
			}
		}
	}()
	l.metrics.eventDispatched()
	ev.fn(l.ctx)
}

// post enqueues ev, blocking while the queue is full.
func (l *loop) post(ctx context.Context, ev event) error {
	select {
	case <-l.done:
		return errors.Disconnected(errors.PhaseDispatch)
	default:
	}

	select {
	case l.queue <- ev:
		return l.accepted()
	case <-l.done:
		return errors.Disconnected(errors.PhaseDispatch)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// tryPost enqueues ev without blocking.
func (l *loop) tryPost(ev event) error {
	select {
	case <-l.done:
		return errors.Disconnected(errors.PhaseDispatch)
	default:
	}

	select {
	case l.queue <- ev:
		return l.accepted()
	default:
		return errors.Exhausted(errors.PhaseDispatch, "event queue")
	}
}

// accepted re-checks done after an enqueue. If the loop finished in the
// meantime the event will never run: it is aborted here and the poster
// gets KindDisconnected. An event accepted while the loop is still
// stopping may be aborted instead of dispatched.
func (l *loop) accepted() error {
	select {
	case <-l.done:
		l.reject()
		return errors.Disconnected(errors.PhaseDispatch)
	default:
		return nil
	}
}

// call runs fn on the worker and waits for its result. Cancelling ctx
// abandons the call only if it has not started yet; a started call is
// always waited for. call must not be used from the worker itself.
func (l *loop) call(ctx context.Context, fn func() error) error {
	var claim atomic.Int32
	reply := make(chan error, 1)

	ev := event{
		fn: func(context.Context) {
			if !claim.CompareAndSwap(callPending, callStarted) {
				return
			}
			reply <- fn()
		},
		abort: func(err error) {
			select {
			case reply <- err:
			default:
			}
		},
	}
	if err := l.post(ctx, ev); err != nil {
		return err
	}

	select {
	case err := <-reply:
		return err
	case <-l.done:
		select {
		case err := <-reply:
			return err
		default:
			return errors.Disconnected(errors.PhaseDispatch)
		}
	case <-ctx.Done():
		if claim.CompareAndSwap(callPending, callAbandoned) {
			return ctx.Err()
		}
		return <-reply
	}
}
