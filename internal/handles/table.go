// Package handles maps opaque integer handles to owned values.
//
// A Handle packs a slot index and a generation. Removing a value bumps the
// slot's generation, so a handle held by the host after Remove resolves to
// ErrStale instead of whatever value reuses the slot.
package handles

import (
	"errors"
	"fmt"
	"sync"
)

// Handle identifies one live value. Zero is never issued.
type Handle uint64

// ErrStale is returned for handles that were never issued or already removed.
var ErrStale = errors.New("stale or unknown handle")

func makeHandle(index, generation uint32) Handle {
	return Handle(uint64(generation)<<32 | uint64(index))
}

func (h Handle) split() (index, generation uint32) {
	return uint32(h), uint32(h >> 32)
}

func (h Handle) String() string {
	index, generation := h.split()
	return fmt.Sprintf("%d:%d", index, generation)
}

type slot[T any] struct {
	generation uint32
	live       bool
	value      T
}

// Table is a concurrency-safe arena of values of type T.
type Table[T any] struct {
	mu    sync.RWMutex
	slots []slot[T]
	free  []uint32
}

// Insert stores value and returns its handle.
func (t *Table[T]) Insert(value T) Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	var index uint32
	if n := len(t.free); n > 0 {
		index = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		t.slots = append(t.slots, slot[T]{})
		index = uint32(len(t.slots) - 1)
	}
	s := &t.slots[index]
	// Generations start at 1 so the zero Handle stays invalid.
	s.generation++
	if s.generation == 0 {
		s.generation = 1
	}
	s.live = true
	s.value = value
	return makeHandle(index, s.generation)
}

// Get returns the value for h.
func (t *Table[T]) Get(h Handle) (T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, err := t.lookup(h)
	if err != nil {
		var zero T
		return zero, err
	}
	return s.value, nil
}

// Remove deletes and returns the value for h.
func (t *Table[T]) Remove(h Handle) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var zero T
	s, err := t.lookup(h)
	if err != nil {
		return zero, err
	}
	value := s.value
	s.value = zero
	s.live = false
	index, _ := h.split()
	t.free = append(t.free, index)
	return value, nil
}

// Len returns the number of live values.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.slots) - len(t.free)
}

// Drain removes every live value and returns them.
func (t *Table[T]) Drain() []T {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []T
	var zero T
	for i := range t.slots {
		s := &t.slots[i]
		if !s.live {
			continue
		}
		out = append(out, s.value)
		s.value = zero
		s.live = false
		t.free = append(t.free, uint32(i))
	}
	return out
}

func (t *Table[T]) lookup(h Handle) (*slot[T], error) {
	index, generation := h.split()
	if int(index) >= len(t.slots) {
		return nil, fmt.Errorf("%w: %s", ErrStale, h)
	}
	s := &t.slots[index]
	if !s.live || s.generation != generation {
		return nil, fmt.Errorf("%w: %s", ErrStale, h)
	}
	return s, nil
}

// Each calls fn for every live value while holding a read lock.
func (t *Table[T]) Each(fn func(T)) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for i := range t.slots {
		if t.slots[i].live {
			fn(t.slots[i].value)
		}
	}
}
