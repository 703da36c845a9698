package resource

import (
	"errors"
	"sync"
)

// ErrClosed is returned by Insert after Close.
var ErrClosed = errors.New("resource table closed")

type entry[T any] struct {
	value T
	gen   uint32
	valid bool
}

// Table stores values behind generation-checked handles.
type Table[T any] struct {
	entries  []entry[T]
	freeList []uint32
	live     int
	mu       sync.RWMutex
	closed   bool
}

// NewTable creates an empty table.
func NewTable[T any]() *Table[T] {
	return &Table[T]{
		entries:  make([]entry[T], 0, 64),
		freeList: make([]uint32, 0, 16),
	}
}

// Insert stores a value and returns its handle.
func (t *Table[T]) Insert(value T) (Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, ErrClosed
	}

	t.live++
	if n := len(t.freeList); n > 0 {
		idx := t.freeList[n-1]
		t.freeList = t.freeList[:n-1]
		e := &t.entries[idx]
		e.value = value
		e.valid = true
		return makeHandle(idx, e.gen), nil
	}

	t.entries = append(t.entries, entry[T]{value: value, valid: true})
	return makeHandle(uint32(len(t.entries)-1), 0), nil
}

func (t *Table[T]) lookup(h Handle) (*entry[T], bool) {
	idx := h.Index()
	if idx < 0 || idx >= len(t.entries) {
		return nil, false
	}
	e := &t.entries[idx]
	if !e.valid || e.gen != h.Generation() {
		return nil, false
	}
	return e, true
}

// Get retrieves a value by handle.
func (t *Table[T]) Get(h Handle) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.lookup(h)
	if !ok {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Update replaces the value stored behind a live handle.
func (t *Table[T]) Update(h Handle, value T) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.lookup(h)
	if !ok {
		return false
	}
	e.value = value
	return true
}

// Remove drops a value and returns (value, true) if the handle was live.
// The slot is recycled under a new generation.
func (t *Table[T]) Remove(h Handle) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var zero T
	e, ok := t.lookup(h)
	if !ok {
		return zero, false
	}

	value := e.value
	e.value = zero
	e.valid = false
	e.gen++
	t.live--
	t.freeList = append(t.freeList, uint32(h.Index()))
	return value, true
}

// Len returns the number of live values.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.live
}

// Each iterates over live values until fn returns false.
// fn must not modify the table.
func (t *Table[T]) Each(fn func(Handle, T) bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for i := range t.entries {
		e := &t.entries[i]
		if e.valid {
			if !fn(makeHandle(uint32(i), e.gen), e.value) {
				return
			}
		}
	}
}

// Closed reports whether Close has been called.
func (t *Table[T]) Closed() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.closed
}

// Close drops all live values and stops accepting inserts. It returns the
// number of values that were still live.
func (t *Table[T]) Close() int {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return 0
	}
	t.closed = true

	var droppers []Dropper
	n := t.live
	for i := range t.entries {
		if t.entries[i].valid {
			if d, ok := any(t.entries[i].value).(Dropper); ok {
				droppers = append(droppers, d)
			}
		}
	}
	t.entries = nil
	t.freeList = nil
	t.live = 0
	t.mu.Unlock()

	// Drop outside the lock so droppers may call back into the table.
	for _, d := range droppers {
		d.Drop()
	}
	return n
}
