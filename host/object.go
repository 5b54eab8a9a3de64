package host

import "context"

// CapUnknown is the capability every hosted object answers. Probing it
// returns a new reference to the same host.
const CapUnknown = "unknown"

// InitialConstructor is the allocation phase of two-phase construction.
// After it succeeds the object is considered allocated and FinalRelease
// will run during teardown.
type InitialConstructor interface {
	InitialConstruct() error
}

// FinalConstructor completes construction. The object is valid, and
// callable, only once it returns nil.
type FinalConstructor interface {
	FinalConstruct() error
}

// FinalReleaser releases what construction acquired. It runs once, on the
// worker, after the object is detached from its registry.
type FinalReleaser interface {
	FinalRelease()
}

// CapabilityProvider answers Probe for named capabilities.
type CapabilityProvider interface {
	QueryCapability(name string) bool
}

// SiteSetter is implemented by objects that need to manage their own
// reference count or schedule work onto their loop.
type SiteSetter interface {
	SetSite(site Site)
}

// Site is the object's view of its host. It is safe to use from the
// worker and from other goroutines.
type Site interface {
	AddRef() (int64, error)
	Release() (int64, error)
	// Post schedules fn on the worker without waiting for it. It fails
	// with KindExhausted if the queue is full and KindDisconnected once the
	// loop has finished. A post that races with the final release may be
	// accepted and then dropped.
	Post(fn func(ctx context.Context)) error
}
