// Package pool provides example usage of the unified memory pool system.
package pool_test

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ajitpratap0/respawn/pkg/pool"
)

// Example demonstrates basic usage of the global slice pools.
// This shows how to get pooled values and return them after use.
func Example() {
	// Get a string slice from the pool
	keys := pool.GetStringSlice()
	defer pool.PutStringSlice(keys)

	// Collect lookup keys
	keys = append(keys, "projectile", "enemy", "muzzle_flash")

	fmt.Printf("Tracked keys: %d\n", len(keys))

	// Output:
	// Tracked keys: 3
}

// ExampleNew demonstrates creating and using a generic pool.
func ExampleNew() {
	// Define a simple struct to pool
	type Buffer struct {
		data []byte
	}

	// Create a pool for Buffer objects
	bufferPool := pool.New(
		func() *Buffer {
			return &Buffer{
				data: make([]byte, 0, 1024), // Pre-allocate 1KB
			}
		},
		func(b *Buffer) {
			b.data = b.data[:0] // Reset the buffer
		},
	)

	// Get a buffer from the pool
	buf := bufferPool.Get()
	defer bufferPool.Put(buf)

	// Use the buffer
	buf.data = append(buf.data, []byte("spawn: projectile")...)
	fmt.Printf("Buffer contains: %s\n", string(buf.data))

	// Output:
	// Buffer contains: spawn: projectile
}

// ExampleGenerateID shows unique ID generation with pooled buffers.
func ExampleGenerateID() {
	// IDs combine the prefix with an atomic counter
	id := pool.GenerateID("inst")

	fmt.Printf("Has prefix: %v\n", strings.HasPrefix(id, "inst-"))

	// Output:
	// Has prefix: true
}

// ExampleGetSyntheticKey demonstrates interned key lookup for workload loops.
func ExampleGetSyntheticKey() {
	// Common synthetic patterns resolve without allocating
	key := pool.GetSyntheticKey("actor_", 7)

	fmt.Printf("Key: %s\n", key)

	// Output:
	// Key: actor_7
}

// Example_concurrentUsage demonstrates thread-safe pool usage.
func Example_concurrentUsage() {
	var wg sync.WaitGroup
	lineCount := 0
	var mu sync.Mutex

	// Assemble lines concurrently
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			// Get buffer from pool
			buf := pool.GetByteSlice()
			defer pool.PutByteSlice(buf)

			// Simulate line assembly
			buf = append(buf, "release: enemy"...)

			// Count assembled lines (thread-safe)
			mu.Lock()
			lineCount++
			mu.Unlock()
		}(i)
	}

	wg.Wait()
	fmt.Printf("Assembled %d lines concurrently\n", lineCount)

	// Output:
	// Assembled 3 lines concurrently
}

// ExampleGetStringSlice shows string slice pool usage.
func ExampleGetStringSlice() {
	// Get a string slice from the pool
	slice := pool.GetStringSlice()
	defer pool.PutStringSlice(slice)

	// Append keys
	slice = append(slice, "projectile", "enemy", "pickup")

	fmt.Printf("Keys: %v\n", slice)

	// Output:
	// Keys: [projectile enemy pickup]
}

// ExampleGetByteSlice demonstrates byte slice pool usage for I/O operations.
func ExampleGetByteSlice() {
	// Get a byte slice from the pool (default 1KB)
	buffer := pool.GetByteSlice()
	defer pool.PutByteSlice(buffer)

	// Use the buffer for data
	data := []byte("spawn events recycle cleanly under pressure")
	buffer = append(buffer, data...)

	fmt.Printf("Buffer content: %s\n", string(buffer))

	// Output:
	// Buffer content: spawn events recycle cleanly under pressure
}
