package resource

import (
	"sync"
)

// Table manages resources with kind information, borrow tracking and
// observer support.
type Table struct {
	backend   *LocalBackend
	observers []Observer
	obsMu     sync.RWMutex
	closed    bool
	closeMu   sync.RWMutex
}

// NewTable creates a new table with a LocalBackend.
func NewTable() *Table {
	return &Table{
		backend: NewLocalBackend(),
	}
}

// Insert adds a value and returns its handle, or 0 if the table is closed.
func (t *Table) Insert(kind Kind, value any) Handle {
	t.closeMu.RLock()
	if t.closed {
		t.closeMu.RUnlock()
		return 0
	}
	t.closeMu.RUnlock()

	handle, err := t.backend.Create(kind, value)
	if err != nil {
		return 0
	}

	t.notify(Event{
		Type:   EventCreated,
		Handle: handle,
		Kind:   kind,
		Value:  value,
	})

	return handle
}

// Get retrieves a value by handle.
func (t *Table) Get(handle Handle) (any, bool) {
	return t.backend.Get(handle)
}

// GetTyped retrieves a value only if it has the expected kind.
func (t *Table) GetTyped(handle Handle, kind Kind) (any, bool) {
	actual, ok := t.backend.Kind(handle)
	if !ok || actual != kind {
		return nil, false
	}
	return t.backend.Get(handle)
}

// Borrow records that a descendant depends on handle.
func (t *Table) Borrow(handle Handle) bool {
	if !t.backend.Borrow(handle) {
		return false
	}
	t.notifyBorrow(EventBorrowed, handle)
	return true
}

// ReturnBorrow releases a borrow taken with Borrow.
func (t *Table) ReturnBorrow(handle Handle) bool {
	if !t.backend.ReturnBorrow(handle) {
		return false
	}
	t.notifyBorrow(EventBorrowReturned, handle)
	return true
}

// Borrows returns the outstanding borrow count for handle.
func (t *Table) Borrows(handle Handle) (uint32, bool) {
	return t.backend.Borrows(handle)
}

// Remove releases ownership of handle and returns its value. It fails with
// ErrOutstandingBorrow while descendants hold borrows; the entry stays live.
func (t *Table) Remove(handle Handle) (any, error) {
	kind, _ := t.backend.Kind(handle)
	value, err := t.backend.Drop(handle)
	if err != nil {
		return nil, err
	}

	t.notify(Event{
		Type:   EventReleased,
		Handle: handle,
		Kind:   kind,
		Value:  value,
	})

	return value, nil
}

// Subscribe adds an observer for lifecycle events.
func (t *Table) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer.
func (t *Table) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of active resources.
func (t *Table) Len() int {
	return t.backend.Len()
}

// Count returns the number of active resources of one kind.
func (t *Table) Count(kind Kind) int {
	n := 0
	t.backend.Each(func(_ Handle, k Kind, _ any) bool {
		if k == kind {
			n++
		}
		return true
	})
	return n
}

// Each iterates over all active resources. fn must not modify the table.
func (t *Table) Each(fn func(Handle, Kind, any) bool) {
	t.backend.Each(fn)
}

// Close releases all resources and stops accepting operations.
func (t *Table) Close() error {
	t.closeMu.Lock()
	t.closed = true
	t.closeMu.Unlock()

	return t.backend.Close()
}

func (t *Table) notifyBorrow(typ EventType, handle Handle) {
	kind, _ := t.backend.Kind(handle)
	borrows, _ := t.backend.Borrows(handle)
	value, _ := t.backend.Get(handle)
	t.notify(Event{
		Type:    typ,
		Handle:  handle,
		Kind:    kind,
		Value:   value,
		Borrows: borrows,
	})
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}
