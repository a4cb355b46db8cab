// Package lockfree provides lock-free data structures backing the release
// recycler and hot-path statistics counters
package lockfree

import (
	"runtime"
	"sync/atomic"
	"unsafe"
)

// Queue implements a lock-free multi-producer single-consumer queue.
// Release paths on many goroutines enqueue, a single drain loop dequeues.
type Queue struct {
	// Separate head and tail on different cache lines to avoid false sharing
	head      atomic.Uint64
	_padding1 [7]uint64 //nolint:unused // 56 bytes padding to separate cache lines

	tail      atomic.Uint64
	_padding2 [7]uint64 //nolint:unused // 56 bytes padding

	buffer   []unsafe.Pointer
	capacity uint64
	mask     uint64
}

// NewQueue creates a new lock-free queue with given capacity.
// Capacity will be rounded up to the next power of 2 for efficient masking.
func NewQueue(capacity int) *Queue {
	// Round up to next power of 2
	cap := uint64(1)
	for cap < uint64(capacity) {
		cap <<= 1
	}

	return &Queue{
		buffer:   make([]unsafe.Pointer, cap),
		capacity: cap,
		mask:     cap - 1,
	}
}

// Enqueue adds an item to the queue in a thread-safe manner.
// Returns true if successful, false if the queue is full.
// This method is safe for multiple concurrent producers.
func (q *Queue) Enqueue(item interface{}) bool {
	for {
		tail := q.tail.Load()
		next := (tail + 1) & q.mask

		// Check if queue is full
		if next == q.head.Load() {
			return false
		}

		// Try to claim the slot
		if q.tail.CompareAndSwap(tail, next) {
			// We own this slot, store the item
			atomic.StorePointer(&q.buffer[tail], unsafe.Pointer(&item)) // #nosec G103 - safe atomic pointer store
			return true
		}

		// Another producer beat us, retry
		runtime.Gosched()
	}
}

// Dequeue removes and returns an item from the queue.
// Returns the item and true if successful, nil and false if empty.
// This method is designed for single-consumer use only.
func (q *Queue) Dequeue() (interface{}, bool) {
	head := q.head.Load()

	// Check if queue is empty
	if head == q.tail.Load() {
		return nil, false
	}

	// Load the item
	item := (*interface{})(atomic.LoadPointer(&q.buffer[head]))
	if item == nil {
		return nil, false
	}

	// Clear the slot and advance head
	atomic.StorePointer(&q.buffer[head], nil)
	q.head.Store((head + 1) & q.mask)

	return *item, true
}

// Size returns the current number of items in the queue.
// This is an approximation in concurrent scenarios.
func (q *Queue) Size() int {
	head := q.head.Load()
	tail := q.tail.Load()

	if tail >= head {
		return int(tail - head)
	}

	return int(q.capacity - head + tail)
}

// IsEmpty returns true if the queue is empty.
// This check is atomic but may be stale in concurrent scenarios.
func (q *Queue) IsEmpty() bool {
	return q.head.Load() == q.tail.Load()
}

// IsFull returns true if the queue is full.
// This check is atomic but may be stale in concurrent scenarios.
func (q *Queue) IsFull() bool {
	head := q.head.Load()
	tail := q.tail.Load()
	return ((tail + 1) & q.mask) == head
}

// AtomicCounter provides a lock-free counter for statistics and metrics collection
// with atomic operations for thread-safe updates.
type AtomicCounter struct {
	value atomic.Uint64
}

// NewAtomicCounter creates a new atomic counter initialized to zero.
func NewAtomicCounter() *AtomicCounter {
	return &AtomicCounter{}
}

// Increment atomically increments the counter by one.
func (c *AtomicCounter) Increment() {
	c.value.Add(1)
}

// Add atomically adds the given delta value to the counter.
func (c *AtomicCounter) Add(delta uint64) {
	c.value.Add(delta)
}

// Get returns the current value of the counter atomically.
func (c *AtomicCounter) Get() uint64 {
	return c.value.Load()
}

// Reset atomically resets the counter to zero.
func (c *AtomicCounter) Reset() {
	c.value.Store(0)
}
