// Package host runs a single stateful object on a dedicated OS thread and
// hands other goroutines a reference to it.
//
// Create spawns a worker goroutine, locks it to its own OS thread, builds the
// object there and publishes a transferable handle back to the caller. Every
// call made through the returned *Ref is redirected onto the worker's event
// loop, so the object's code only ever runs on the thread that created it.
//
//	ref, err := host.Create(func() (*Counter, error) {
//	    return &Counter{}, nil
//	})
//	if err != nil {
//	    return err
//	}
//	defer ref.Release()
//
//	n, err := host.Call(ctx, ref, func(c *Counter) (int, error) {
//	    return c.Inc(), nil
//	})
//
// # Lifecycle
//
// The worker proceeds through a fixed sequence:
//
//	initialize context -> construct object -> produce handle -> handoff -> event loop -> teardown
//
// Any failure before the handoff is reported to Create and the worker exits
// without entering the loop. Once the handoff succeeded the object lives
// until its reference count reaches zero: the Release that takes the count
// to zero signals the loop, the loop drains what is queued and stops, the
// object is detached and finalized on the worker, and the OS thread exits
// with the goroutine.
//
// # Object contract
//
// Any Go value can be hosted. Optional interfaces hook into the lifecycle:
//
//	InitialConstructor  first construction phase
//	FinalConstructor    second construction phase
//	FinalReleaser       runs once on the worker during teardown
//	CapabilityProvider  answers Probe for named capabilities
//	SiteSetter          receives a Site to manage its own references
//
// # Errors
//
// Create reports only three kinds of failure: errors.KindPlatform (with the
// platform code preserved), errors.KindOutOfMemory and errors.KindGeneric.
// Calls on a reference whose host has shut down fail with
// errors.KindDisconnected.
package host
