// Package resource provides the handle table stickyhost uses to move
// references between goroutines.
//
// A handle is an opaque 64-bit token naming a value stored in a table. The
// low half indexes a slot, the high half is the slot's generation, so a
// stale handle never resolves to a value that later reused the slot.
// Handle 0 is reserved and always invalid.
//
// # Handle Table
//
// The UnifiedTable maps handles to Go values:
//
//	table := resource.NewTable()
//
//	// Insert a value, get a handle
//	handle, err := table.Insert(resource.TypeExport, value)
//
//	// Retrieve value by handle
//	value, ok := table.Get(handle)
//
//	// Remove and get value (for ownership transfer)
//	value, ok := table.Remove(handle)
//
//	// Type-checked single-use consumption
//	value, ok := table.Take(handle, resource.TypeStream)
//
// # Capacity
//
// NewTableWithLimit bounds the number of live entries. Insert on a full or
// closed table fails with ErrExhausted or ErrClosed; the host package treats
// either as a handle production failure.
//
// # Observers
//
// Register observers to track entry lifecycle events:
//
//	cancel := table.Subscribe(resource.ObserverFunc(func(event resource.Event) {
//	    switch event.Type {
//	    case resource.EventCreated:
//	        log.Printf("handle %x created", event.Handle)
//	    case resource.EventDropped:
//	        log.Printf("handle %x dropped", event.Handle)
//	    }
//	}))
//	defer cancel()
//
// Observers run synchronously on the goroutine that changed the table and
// must not call back into it.
package resource
