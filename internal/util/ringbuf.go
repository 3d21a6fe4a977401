package util

import "sync"

// RingBuffer keeps the newest capacity items. Safe for concurrent use.
type RingBuffer[T any] struct {
	mu    sync.RWMutex
	buf   []T
	head  int
	count int
}

func NewRingBuffer[T any](capacity int) *RingBuffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &RingBuffer[T]{buf: make([]T, capacity)}
}

// Push appends item, dropping the oldest when full.
func (r *RingBuffer[T]) Push(item T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[(r.head+r.count)%len(r.buf)] = item
	if r.count < len(r.buf) {
		r.count++
		return
	}
	r.head = (r.head + 1) % len(r.buf)
}

// Snapshot returns every item, oldest first.
func (r *RingBuffer[T]) Snapshot() []T {
	return r.Last(-1)
}

// Last returns the newest n items, oldest first. n < 0 means all.
func (r *RingBuffer[T]) Last(n int) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n < 0 || n > r.count {
		n = r.count
	}
	out := make([]T, n)
	start := r.head + r.count - n
	for i := range out {
		out[i] = r.buf[(start+i)%len(r.buf)]
	}
	return out
}

func (r *RingBuffer[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}
