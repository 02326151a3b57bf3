// Package entity provides generation-checked handles into an arena of values.
//
// A Handle stays valid until the slot it names is freed; a freed slot may be
// reused, but its generation is bumped so stale handles resolve to nothing.
// Engagement links store handles rather than pointers so a despawned target
// can never be reached through its former opponent.
package entity

import "fmt"

// Handle names one arena slot. The zero Handle is never issued.
type Handle struct {
	Index uint32
	Gen   uint32
}

// IsZero reports whether h is the zero Handle.
func (h Handle) IsZero() bool { return h.Gen == 0 }

// String renders the handle as "index:gen".
func (h Handle) String() string { return fmt.Sprintf("%d:%d", h.Index, h.Gen) }

type slot[T any] struct {
	gen   uint32
	live  bool
	value T
}

// Arena stores values addressed by Handle. It is not safe for concurrent use;
// the simulation tick owns it.
type Arena[T any] struct {
	slots []slot[T]
	free  []uint32
	count int
}

// NewArena returns an empty Arena.
func NewArena[T any]() *Arena[T] {
	return &Arena[T]{}
}

// Insert stores v and returns its handle.
//
// Postcondition: Get(h) returns v until Remove(h).
func (a *Arena[T]) Insert(v T) Handle {
	a.count++
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		s := &a.slots[idx]
		s.gen++
		s.live = true
		s.value = v
		return Handle{Index: idx, Gen: s.gen}
	}
	a.slots = append(a.slots, slot[T]{gen: 1, live: true, value: v})
	return Handle{Index: uint32(len(a.slots) - 1), Gen: 1}
}

// Get returns the value for h, or false if h is stale or unknown.
func (a *Arena[T]) Get(h Handle) (T, bool) {
	var zero T
	if int(h.Index) >= len(a.slots) {
		return zero, false
	}
	s := &a.slots[h.Index]
	if !s.live || s.gen != h.Gen {
		return zero, false
	}
	return s.value, true
}

// Contains reports whether h currently resolves.
func (a *Arena[T]) Contains(h Handle) bool {
	_, ok := a.Get(h)
	return ok
}

// Remove frees the slot for h. Removing a stale handle is a no-op.
//
// Postcondition: Contains(h) is false.
func (a *Arena[T]) Remove(h Handle) bool {
	if !a.Contains(h) {
		return false
	}
	s := &a.slots[h.Index]
	var zero T
	s.live = false
	s.value = zero
	a.free = append(a.free, h.Index)
	a.count--
	return true
}

// Len returns the number of live values.
func (a *Arena[T]) Len() int { return a.count }

// Each calls fn for every live value in slot order. fn must not insert or
// remove; collect handles first when mutation is needed.
func (a *Arena[T]) Each(fn func(Handle, T)) {
	for i := range a.slots {
		s := &a.slots[i]
		if s.live {
			fn(Handle{Index: uint32(i), Gen: s.gen}, s.value)
		}
	}
}

// Handles returns a snapshot of all live handles in slot order.
func (a *Arena[T]) Handles() []Handle {
	out := make([]Handle, 0, a.count)
	a.Each(func(h Handle, _ T) { out = append(out, h) })
	return out
}
