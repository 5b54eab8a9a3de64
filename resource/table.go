package resource

import (
	"sync"
)

// UnifiedTable implements the Table interface using a LocalBackend for storage.
type UnifiedTable struct {
	backend   *LocalBackend
	observers []observerEntry
	nextObs   uint64
	obsMu     sync.RWMutex
	closed    bool
	closeMu   sync.RWMutex
}

type observerEntry struct {
	o  Observer
	id uint64
}

// NewTable creates a new unified table with an unbounded LocalBackend.
func NewTable() *UnifiedTable {
	return &UnifiedTable{
		backend: NewLocalBackend(),
	}
}

// NewTableWithLimit creates a table holding at most limit live entries.
func NewTableWithLimit(limit int) *UnifiedTable {
	return &UnifiedTable{
		backend: NewLocalBackendWithLimit(limit),
	}
}

// Insert adds a value and returns its handle.
func (t *UnifiedTable) Insert(typeID uint32, value any) (Handle, error) {
	t.closeMu.RLock()
	if t.closed {
		t.closeMu.RUnlock()
		return 0, ErrClosed
	}
	t.closeMu.RUnlock()

	handle, err := t.backend.Create(typeID, value)
	if err != nil {
		return 0, err
	}

	t.notify(Event{
		Type:   EventCreated,
		Handle: handle,
		TypeID: typeID,
		Value:  value,
	})

	return handle, nil
}

// Get retrieves a value by handle.
func (t *UnifiedTable) Get(handle Handle) (any, bool) {
	return t.backend.Get(handle)
}

// GetTyped retrieves a value only if it matches the expected type.
func (t *UnifiedTable) GetTyped(handle Handle, typeID uint32) (any, bool) {
	actualTypeID, ok := t.backend.TypeID(handle)
	if !ok || actualTypeID != typeID {
		return nil, false
	}
	return t.backend.Get(handle)
}

// Remove drops an entry and returns (value, true) if found.
// Values implementing Dropper are dropped.
func (t *UnifiedTable) Remove(handle Handle) (any, bool) {
	typeID, _ := t.backend.TypeID(handle)
	value, ok := t.backend.Drop(handle)
	if !ok {
		return nil, false
	}

	if d, ok := value.(Dropper); ok {
		d.Drop()
	}

	t.notify(Event{
		Type:   EventDropped,
		Handle: handle,
		TypeID: typeID,
		Value:  value,
	})

	return value, true
}

// Take removes an entry of the expected type and hands its value to the
// caller, who becomes responsible for it. Dropper is not invoked.
func (t *UnifiedTable) Take(handle Handle, typeID uint32) (any, bool) {
	value, ok := t.backend.DropTyped(handle, typeID)
	if !ok {
		return nil, false
	}

	t.notify(Event{
		Type:   EventDropped,
		Handle: handle,
		TypeID: typeID,
		Value:  value,
	})

	return value, true
}

// Subscribe adds an observer for lifecycle events.
func (t *UnifiedTable) Subscribe(o Observer) func() {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.nextObs++
	id := t.nextObs
	t.observers = append(t.observers, observerEntry{o: o, id: id})
	return func() { t.unsubscribe(id) }
}

func (t *UnifiedTable) unsubscribe(id uint64) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs.id == id {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of live entries.
func (t *UnifiedTable) Len() int {
	return t.backend.Len()
}

// Count returns the number of live entries of the given type.
func (t *UnifiedTable) Count(typeID uint32) int {
	n := 0
	t.backend.Each(func(_ Handle, id uint32, _ any) bool {
		if id == typeID {
			n++
		}
		return true
	})
	return n
}

// Close releases all entries and stops accepting operations.
func (t *UnifiedTable) Close() error {
	t.closeMu.Lock()
	t.closed = true
	t.closeMu.Unlock()

	return t.backend.Close()
}

func (t *UnifiedTable) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.o.OnResourceEvent(e)
	}
}

// Typed provides type-safe access to the entries of one type ID.
type Typed[T any] struct {
	table  *UnifiedTable
	typeID uint32
}

// NewTyped binds a typed view to table.
func NewTyped[T any](table *UnifiedTable, typeID uint32) *Typed[T] {
	return &Typed[T]{table: table, typeID: typeID}
}

// Insert adds a value and returns its handle.
func (t *Typed[T]) Insert(value T) (Handle, error) {
	return t.table.Insert(t.typeID, value)
}

// Get retrieves a value by handle.
func (t *Typed[T]) Get(handle Handle) (T, bool) {
	var zero T
	v, ok := t.table.GetTyped(handle, t.typeID)
	if !ok {
		return zero, false
	}
	tv, ok := v.(T)
	return tv, ok
}

// Remove drops an entry and returns (value, true) if found.
func (t *Typed[T]) Remove(handle Handle) (T, bool) {
	var zero T
	if _, ok := t.table.GetTyped(handle, t.typeID); !ok {
		return zero, false
	}
	v, ok := t.table.Remove(handle)
	if !ok {
		return zero, false
	}
	tv, ok := v.(T)
	return tv, ok
}

// Take removes an entry and transfers its value to the caller.
func (t *Typed[T]) Take(handle Handle) (T, bool) {
	var zero T
	v, ok := t.table.Take(handle, t.typeID)
	if !ok {
		return zero, false
	}
	tv, ok := v.(T)
	return tv, ok
}

// Len returns the number of live entries of this type.
func (t *Typed[T]) Len() int {
	return t.table.Count(t.typeID)
}

var (
	_ Table   = (*UnifiedTable)(nil)
	_ Backend = (*LocalBackend)(nil)
)
