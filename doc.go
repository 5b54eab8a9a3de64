// Package stickyhost runs stateful objects on dedicated OS threads.
//
// Some objects are only correct when every call reaches them on the thread
// that created them. stickyhost gives each such object its own worker
// goroutine, locked to its own OS thread, and hands callers a reference
// whose calls are redirected onto that worker. The worker lives exactly as
// long as the object's reference count stays above zero.
//
// # Architecture Overview
//
//	stickyhost/
//	├── host/        Create, Ref, event loop, two-phase construction, metrics
//	├── resource/    Generation-checked handle table backing handoff and export
//	├── errors/      Structured errors and the caller-visible taxonomy
//	├── wasmobj/     A wazero module instance as a hosted object
//	├── config/      YAML and environment configuration
//	└── cmd/hostctl  CLI: run hosts, watch them in a TUI, export metrics
//
// # Quick Start
//
//	ref, err := host.Create(func() (*Session, error) {
//	    return NewSession(), nil
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ref.Release()
//
//	n, err := host.Call(ctx, ref, func(ctx context.Context, s *Session) (int, error) {
//	    return s.Poll(ctx)
//	})
//
// # Lifecycle
//
// Create spawns the worker and blocks until the worker reports back. The
// worker initializes its execution context, constructs the object in two
// phases, publishes it in a handle table and hands a one-shot handle to
// Create, which consumes it into a *host.Ref. Any failure on that path is
// returned from Create as a platform code, an out-of-memory condition or a
// generic failure.
//
// After the handoff the worker runs an event loop. AddRef and Release act
// on an atomic count; the Release that takes it to zero signals the loop,
// which drains what is queued and stops. The object is then detached,
// finalized and the thread exits.
//
// # Error Handling
//
// Errors are *errors.Error values carrying a phase and a kind:
//
//	var e *errors.Error
//	if stderrors.As(err, &e) && e.Kind == errors.KindPlatform {
//	    log.Printf("platform code %d", e.Code)
//	}
package stickyhost
