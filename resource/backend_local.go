package resource

import (
	"errors"
	"sync"
)

var (
	ErrClosed    = errors.New("resource backend closed")
	ErrExhausted = errors.New("resource backend exhausted")
)

// LocalBackend is an in-memory backend with generation-checked handles.
type LocalBackend struct {
	entries  []entry
	freeList []uint32
	limit    int
	live     int
	mu       sync.RWMutex
	closed   bool
}

type entry struct {
	value  any
	typeID uint32
	gen    uint32
	valid  bool
}

// NewLocalBackend creates a new in-memory backend without a size limit.
func NewLocalBackend() *LocalBackend {
	return NewLocalBackendWithLimit(0)
}

// NewLocalBackendWithLimit creates a backend holding at most limit live
// entries. A limit of 0 or less means unbounded.
func NewLocalBackendWithLimit(limit int) *LocalBackend {
	return &LocalBackend{
		entries:  make([]entry, 0, 64),
		freeList: make([]uint32, 0, 16),
		limit:    limit,
	}
}

// Create stores a value and returns a handle.
func (b *LocalBackend) Create(typeID uint32, value any) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrClosed
	}
	if b.limit > 0 && b.live >= b.limit {
		return 0, ErrExhausted
	}
	b.live++

	if len(b.freeList) > 0 {
		idx := b.freeList[len(b.freeList)-1]
		b.freeList = b.freeList[:len(b.freeList)-1]
		e := &b.entries[idx]
		e.typeID = typeID
		e.value = value
		e.valid = true
		return makeHandle(idx, e.gen), nil
	}

	b.entries = append(b.entries, entry{
		typeID: typeID,
		value:  value,
		valid:  true,
	})
	return makeHandle(uint32(len(b.entries)-1), 0), nil
}

// lookup returns the live entry for handle. Callers hold b.mu.
func (b *LocalBackend) lookup(handle Handle) (*entry, uint32, bool) {
	idx, ok := handle.index()
	if !ok || int(idx) >= len(b.entries) {
		return nil, 0, false
	}
	e := &b.entries[idx]
	if !e.valid || e.gen != handle.generation() {
		return nil, 0, false
	}
	return e, idx, true
}

// Get retrieves a value by handle.
func (b *LocalBackend) Get(handle Handle) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e, _, ok := b.lookup(handle)
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Drop removes an entry and returns (value, true) if it was live.
func (b *LocalBackend) Drop(handle Handle) (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, idx, ok := b.lookup(handle)
	if !ok {
		return nil, false
	}
	return b.release(e, idx), true
}

// DropTyped removes an entry only if it has the expected type.
func (b *LocalBackend) DropTyped(handle Handle, typeID uint32) (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, idx, ok := b.lookup(handle)
	if !ok || e.typeID != typeID {
		return nil, false
	}
	return b.release(e, idx), true
}

func (b *LocalBackend) release(e *entry, idx uint32) any {
	value := e.value
	e.valid = false
	e.value = nil
	e.gen++
	b.live--
	b.freeList = append(b.freeList, idx)
	return value
}

// Close releases all entries. Droppers run after the backend lock is
// released so they may call back into the table.
func (b *LocalBackend) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true

	var droppers []Dropper
	for i := range b.entries {
		if b.entries[i].valid {
			if d, ok := b.entries[i].value.(Dropper); ok {
				droppers = append(droppers, d)
			}
			b.entries[i].valid = false
			b.entries[i].value = nil
		}
	}

	b.entries = nil
	b.freeList = nil
	b.live = 0
	b.mu.Unlock()

	for _, d := range droppers {
		d.Drop()
	}
	return nil
}

// TypeID returns the type ID for a handle.
func (b *LocalBackend) TypeID(handle Handle) (uint32, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e, _, ok := b.lookup(handle)
	if !ok {
		return 0, false
	}
	return e.typeID, true
}

// Len returns the number of live entries.
func (b *LocalBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.live
}

// Each iterates over all live entries.
func (b *LocalBackend) Each(fn func(Handle, uint32, any) bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for i, e := range b.entries {
		if e.valid {
			if !fn(makeHandle(uint32(i), e.gen), e.typeID, e.value) {
				break
			}
		}
	}
}
