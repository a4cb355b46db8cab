// Package pool implements a high-performance, type-safe object pooling system
// that is central to respawn's low-allocation architecture. It provides unified
// memory management for the small reusable values that surround every spawn
// cycle, significantly reducing garbage collection pressure.
//
// Architecture
//
// The pool package uses Go generics to provide type-safe pooling for any object
// type. It builds on sync.Pool but adds additional features like statistics
// tracking and automatic reset functionality.
//
// Core Types:
//
//   - Pool[T]: Generic pool implementation for any type T
//   - BufferPool: Size-bucketed byte buffers for I/O
//   - StringInternPool: Interning for lookup keys and label values
//   - Global pools: Pre-configured pools for common types
//
// Relationship to pkg/spawn
//
// The spawn layer recycles domain instances (projectiles, enemies, effects)
// keyed by lookup key. This package sits underneath it and recycles the
// plumbing around those instances: ID buffers, capture line buffers, report
// rows. Nothing in this package knows about keys or groups.
//
// Global Pools
//
// Pre-configured pools are available for common types:
//
//	var (
//		StringSlicePool = New[[]string](...)  // Report rows, key lists
//		ByteSlicePool   = New[[]byte](...)    // Capture line assembly
//		IDBufferPool    = New[[]byte](...)    // ID generation scratch
//	)
//
// Usage Patterns
//
// Basic pool usage:
//
//	// Get a slice from the pool
//	keys := pool.GetStringSlice()
//	defer pool.PutStringSlice(keys)
//
//	keys = append(keys, "projectile", "enemy")
//
// Creating a custom pool:
//
//	type scratch struct {
//		data []byte
//	}
//
//	myPool := pool.New(
//		func() *scratch {
//			return &scratch{data: make([]byte, 0, 1024)}
//		},
//		func(s *scratch) {
//			s.data = s.data[:0]
//		},
//	)
//
// ID Generation
//
// Instance and session IDs are generated from an atomic counter with pooled
// scratch buffers:
//
//	id := pool.GenerateID("inst")       // "inst-1", "inst-2", ...
//	session := pool.GenerateID("session")
//
// Best Practices
//
// DO:
//   - Pair every Get with a Put
//   - Implement proper reset functions for custom pools
//   - Monitor pool statistics when tuning
//
// DON'T:
//   - Hold pool objects longer than necessary
//   - Share pool objects between goroutines without sync
//   - Forget to return objects back to pools
//
// Statistics
//
// Pool statistics are exposed for monitoring:
//   - allocated: Total objects created
//   - inUse: Currently checked-out objects
//   - hits: Total Get operations served
//   - misses: Gets that had to allocate
//
// These statistics help identify pool efficiency and potential leaks.
package pool
