// Package trace stores the most recent scan samples in a fixed-size ring.
// When full, the oldest sample is overwritten first.
package trace

import (
	"sync"

	"github.com/kilianp07/dronedispatch/core/model"
)

// DefaultCapacity is used when a non-positive capacity is requested.
const DefaultCapacity = 1000

// Buffer is a bounded FIFO of map points safe for concurrent use.
type Buffer struct {
	mu    sync.RWMutex
	items []model.MapPoint
	head  int // index of the oldest element
	size  int
}

// New allocates a buffer holding at most capacity points.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{items: make([]model.MapPoint, capacity)}
}

// Append adds p, evicting the oldest point when the buffer is full.
func (b *Buffer) Append(p model.MapPoint) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := len(b.items)
	if b.size < c {
		b.items[(b.head+b.size)%c] = p
		b.size++
		return
	}
	b.items[b.head] = p
	b.head = (b.head + 1) % c
}

// Recent returns up to limit of the newest points, oldest first. A
// non-positive limit returns everything stored.
func (b *Buffer) Recent(limit int) []model.MapPoint {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := b.size
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]model.MapPoint, n)
	start := b.head + b.size - n
	for i := 0; i < n; i++ {
		out[i] = b.items[(start+i)%len(b.items)]
	}
	return out
}

// Len returns the number of stored points.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// Cap returns the configured capacity.
func (b *Buffer) Cap() int { return len(b.items) }
