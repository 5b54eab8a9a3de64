package resource

// Handle is an opaque reference to an entry in a table.
// Handle 0 is reserved and always invalid.
type Handle uint64

func makeHandle(index, gen uint32) Handle {
	return Handle(uint64(gen)<<32 | uint64(index+1))
}

func (h Handle) index() (uint32, bool) {
	lo := uint32(h)
	if lo == 0 {
		return 0, false
	}
	return lo - 1, true
}

func (h Handle) generation() uint32 {
	return uint32(h >> 32)
}

// Type IDs used by the host package.
const (
	// TypeStream marks a one-shot handoff entry consumed by the requester.
	TypeStream uint32 = iota + 1
	// TypeExport marks an object published for foreign callers.
	TypeExport
)

// Event types for entry lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Event represents an entry lifecycle event.
type Event struct {
	Value  any
	Handle Handle
	TypeID uint32
	Type   EventType
}

// Observer receives notifications about entry lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// OnResourceEvent calls f(e).
func (f ObserverFunc) OnResourceEvent(e Event) {
	f(e)
}

// Backend provides the underlying storage mechanism for entries.
type Backend interface {
	// Create stores a value and returns a handle.
	Create(typeID uint32, value any) (Handle, error)

	// Get retrieves a value by handle.
	Get(handle Handle) (any, bool)

	// Drop removes an entry and returns (value, true) if it was live.
	Drop(handle Handle) (any, bool)

	// Close releases all entries held by the backend.
	Close() error
}

// Table manages entries with type information and observer support.
type Table interface {
	// Insert adds a value and returns its handle.
	Insert(typeID uint32, value any) (Handle, error)

	// Get retrieves a value by handle.
	Get(handle Handle) (any, bool)

	// GetTyped retrieves a value only if it matches the expected type.
	GetTyped(handle Handle, typeID uint32) (any, bool)

	// Remove drops an entry and returns (value, true) if found.
	Remove(handle Handle) (any, bool)

	// Take removes an entry of the expected type and returns its value.
	Take(handle Handle, typeID uint32) (any, bool)

	// Subscribe adds an observer for lifecycle events and returns a
	// function that removes it.
	Subscribe(Observer) (cancel func())

	// Len returns the number of live entries.
	Len() int

	// Close releases all entries and stops accepting operations.
	Close() error
}

// Dropper is optionally implemented by values that need cleanup when
// their entry is removed.
type Dropper interface {
	Drop()
}
