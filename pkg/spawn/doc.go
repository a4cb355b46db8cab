// Package spawn implements keyed object pooling and lifecycle recycling for
// real-time simulations. Instead of repeatedly allocating and discarding
// short-lived entities such as projectiles, enemies, and particle effects,
// callers spawn clones of prototypes and release them back for reuse.
//
// # Core Concepts
//
// Lookup key: every spawn request is routed by a key derived from the
// prototype's display name. The first request for an unseen key lazily
// creates a pool record; records are never removed and iterate in creation
// order.
//
// Clone marker: instantiated clones carry the prototype name plus
// CloneSuffix. The release path strips the marker to recover the key, so a
// spawned instance finds its way home by name alone.
//
// Groups: active instances are tracked in named groups, the running
// rendition of the helper containers a scene hierarchy would parent spawned
// objects under. Two process-wide groups cover the common cases
// (GroupActors, GroupEffects); GroupNone opts out of tracking.
//
// # Basic Usage
//
//	proto := spawn.NewBasic("projectile", nil)
//
//	// Bootstrap the pool before the first wave
//	spawn.Prewarm(proto, 64)
//
//	inst := spawn.Spawn(proto)
//	// ... gameplay ...
//	spawn.Release(inst)
//
// The free functions operate on a process-wide default manager. Hosts that
// need isolated registries or configuration create their own:
//
//	cfg := config.New("arena-server")
//	cfg.Pools.MaxIdlePerKey = 256
//	mgr := spawn.New(cfg)
//	inst := mgr.Spawn(proto, spawn.InGroup(spawn.GroupEffects))
//
// # Failure Handling
//
// Spawn and Release never fail. Releasing an instance whose name matches no
// pool logs a warning and leaves the instance untouched; a nil prototype
// logs a warning and returns nil. This mirrors the forgiving lifecycle of
// the engines the package serves, where a dropped frame is worse than a
// leaked instance.
//
// # Concurrency
//
// All manager operations are safe for concurrent use. The registry is
// guarded by a read-write mutex with per-record locking underneath, so
// spawns for different keys do not contend. For release-heavy workloads the
// optional recycler (StartRecycler, ReleaseLater) moves pool bookkeeping
// onto a single drain goroutine fed by a bounded lock-free queue.
package spawn
