package host

import "sync/atomic"

type result[T any] struct {
	val T
	err error
}

// handoff delivers exactly one result from the worker to the requester.
// The slot is published by the channel send and acquired by the receive.
type handoff[T any] struct {
	written atomic.Bool
	slot    chan result[T]
}

func newHandoff[T any]() *handoff[T] {
	return &handoff[T]{slot: make(chan result[T], 1)}
}

func (h *handoff[T]) send(v T) {
	h.publish(result[T]{val: v})
}

func (h *handoff[T]) fail(err error) {
	h.publish(result[T]{err: err})
}

func (h *handoff[T]) publish(r result[T]) {
	if !h.written.CompareAndSwap(false, true) {
		panic("host: handoff written twice")
	}
	h.slot <- r
}

// sent reports whether the worker has already written its result.
func (h *handoff[T]) sent() bool {
	return h.written.Load()
}

// wait blocks until the result is available. It must be called once.
func (h *handoff[T]) wait() (T, error) {
	r := <-h.slot
	return r.val, r.err
}
