// Package ringlog provides a fixed-capacity, append-only ring buffer used for
// console output and structured log capture.
//
// A Log is not safe for concurrent use on its own. Owners are expected to
// guard every call with their own mutex so that appends and snapshots are
// totally ordered with the rest of the owner's state.
package ringlog

// ConsoleCapacity is the number of console lines retained per action.
const ConsoleCapacity = 1000

// LogCapacity is the number of structured log entries retained per action.
const LogCapacity = 500

// Log is a fixed-capacity ring buffer. When the buffer is full the oldest
// item is overwritten by the newest. The zero value is not usable; always
// construct via New.
type Log[T any] struct {
	items []T
	start int // index of the oldest item
	count int // number of valid items
}

// New creates a Log with the given capacity. If capacity is <= 0 it defaults
// to ConsoleCapacity.
func New[T any](capacity int) *Log[T] {
	if capacity <= 0 {
		capacity = ConsoleCapacity
	}
	return &Log[T]{items: make([]T, capacity)}
}

// Append adds an item, evicting the oldest one when the buffer is full.
func (l *Log[T]) Append(item T) {
	c := len(l.items)
	if l.count < c {
		l.items[(l.start+l.count)%c] = item
		l.count++
		return
	}
	l.items[l.start] = item
	l.start = (l.start + 1) % c
}

// Snapshot returns the most recent limit items in order from oldest to
// newest. A limit <= 0 or larger than Len returns every item. The returned
// slice is a fresh copy; mutating it does not affect the buffer.
func (l *Log[T]) Snapshot(limit int) []T {
	n := l.count
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]T, n)
	c := len(l.items)
	first := l.start + (l.count - n)
	for i := 0; i < n; i++ {
		out[i] = l.items[(first+i)%c]
	}
	return out
}

// Clear drops every item. Capacity is preserved.
func (l *Log[T]) Clear() {
	var zero T
	for i := range l.items {
		l.items[i] = zero
	}
	l.start = 0
	l.count = 0
}

// Len returns the number of items currently stored.
func (l *Log[T]) Len() int { return l.count }

// Cap returns the maximum number of items the buffer retains.
func (l *Log[T]) Cap() int { return len(l.items) }
