// Package respawn provides a keyed object pooling toolkit for spawn-heavy
// workloads, recycling instances instead of allocating them per use.
//
// Respawn keeps one pool of inactive instances per lookup key. Spawning an
// instance reuses the oldest released one when the pool has any, and
// instantiates from the prototype otherwise. Releasing deactivates the
// instance and returns it to its key's pool. The registry of pools is
// ordered, grows lazily as new keys appear, and is never torn down behind
// the caller's back.
//
// # Architecture
//
// The toolkit is organized around a few cooperating layers:
//
// 1. Pool core: a concurrent manager over keyed records, each record owning
// a FIFO of inactive instances, with prototype-driven instantiation and
// warn-only failure handling.
//
// 2. Lifecycle surround: group tracking for active instances, warmup at
// construction, prewarm top-ups, an optional deferred-release recycler,
// and an observer hook reporting every served operation.
//
// 3. Capture and replay: recorded sessions of spawn/release traffic as
// compressed NDJSON, replayed later with recorded pacing against a fresh
// manager.
//
// 4. Tooling: synthetic workload scenarios (steady, burst, ramp), a
// sampling profiler with latency percentiles, pprof session management,
// and a cobra CLI tying them together.
//
// # Quick Start
//
// Pool projectiles behind their prototype:
//
//	import (
//	    "github.com/ajitpratap0/respawn/pkg/config"
//	    "github.com/ajitpratap0/respawn/pkg/spawn"
//	)
//
//	cfg := config.New("arena-server")
//	proto := spawn.NewBasic("projectile", nil)
//
//	m := spawn.New(cfg, proto)
//	m.Prewarm(proto, 256)
//
//	inst := m.Spawn(proto)
//	// ... use the instance ...
//	m.Release(inst)
//
// # Key Packages
//
//	pkg/spawn         - Keyed pool manager, prototypes, groups, recycler
//	pkg/capture       - Session recording, replay, and summaries
//	pkg/config        - Unified configuration management
//	pkg/pool          - Generic value pooling for toolkit internals
//	pkg/compression   - Streaming codecs for capture files
//	pkg/performance   - Profiling and benchmarking tools
//	pkg/observability - Metrics, tracing, health checks
//	pkg/errors        - Structured error handling
//	pkg/logger        - Structured logging
//
// # Performance
//
// Respawn aims for spawn/release cycles that are cheap enough to sit on a
// hot path:
//
// Reuse-first serving:
//   - Released instances are recycled before anything allocates
//   - Prewarm and warmup keep pools ahead of demand spikes
//   - Per-key FIFOs hand back the oldest instance first
//
// Allocation hygiene:
//   - Interned lookup keys share one string per key
//   - Pooled buffers and encoder state in the capture path
//   - An optional lock-free release queue absorbs bursts off the hot path
//
// # Configuration
//
// Respawn uses a unified configuration system:
//
//	type BaseConfig struct {
//	    Pools         PoolsConfig         // Sizing, idle caps
//	    Warmup        WarmupConfig        // Bootstrap entries
//	    Groups        GroupsConfig        // Active-instance tracking
//	    Capture       CaptureConfig       // Recording, replay pacing
//	    Observability ObservabilityConfig // Metrics, logging, tracing
//	    Memory        MemoryConfig        // Pools, buffers
//	    Advanced      AdvancedConfig      // Recycler and other extras
//	}
//
// Environment variables are supported with ${VAR_NAME} syntax.
//
// # Tooling
//
// The respawn CLI drives the toolkit end to end:
//
//	respawn run --pattern burst --keys projectile:4:256 --capture
//	respawn replay captures/arena.ndjson.gz --speed 2.0
//	respawn inspect captures/arena.ndjson.gz
//	respawn bench --iterations 1000000 --keys projectile
package respawn
