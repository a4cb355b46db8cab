// Package metrics provides performance tracking and observability for respawn
// using Prometheus metrics. It offers collectors for the pooling layer's
// performance indicators including spawn throughput, reuse rates, pool sizes,
// and spawn latency.
//
// # Overview
//
// The metrics package provides:
//   - Prometheus-compatible metrics collection
//   - Pre-defined metrics for spawn, release, and prewarm operations
//   - Throughput and latency tracking utilities
//   - Thread-safe metric recording
//   - Automatic metric registration
//
// # Basic Usage
//
//	// Record a served spawn
//	metrics.SpawnsTotal.WithLabelValues("projectile", "reused").Inc()
//
//	// Track spawn latency
//	timer := metrics.NewTimer("spawn")
//	inst := manager.Spawn(proto)
//	duration := timer.Stop()
//	metrics.SpawnDuration.WithLabelValues("projectile").Observe(float64(duration.Nanoseconds()))
//
//	// Track throughput
//	tracker := metrics.NewThroughputTracker("spawn")
//	for range requests {
//	    spawn()
//	    tracker.Increment(1)
//	}
//	throughput := tracker.GetAndReset()
//
// # Metric Types
//
// Counter: Monotonically increasing values (e.g., total spawns served)
// Gauge: Values that can go up or down (e.g., pooled instances per key)
// Histogram: Distribution of values (e.g., spawn latency percentiles)
//
// # Performance Considerations
//
// Metrics are designed to have minimal overhead:
//   - Lock-free atomic operations where possible
//   - Efficient histogram buckets
//   - Lazy evaluation of expensive calculations
package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SpawnsTotal tracks the total number of spawn requests served.
	// Labels: key (lookup key), source (created/reused)
	//
	// Example:
	//	metrics.SpawnsTotal.WithLabelValues("projectile", "reused").Inc()
	SpawnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "respawn_spawns_total",
			Help: "Total number of spawn requests served",
		},
		[]string{"key", "source"},
	)

	// ReleasesTotal tracks the total number of release attempts.
	// Labels: key (lookup key), outcome (pooled/discarded/double)
	//
	// Example:
	//	metrics.ReleasesTotal.WithLabelValues("projectile", "pooled").Inc()
	ReleasesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "respawn_releases_total",
			Help: "Total number of release attempts",
		},
		[]string{"key", "outcome"},
	)

	// UnpooledReleases counts release attempts for names with no registered pool.
	// These are the warn-and-return path; a rising rate usually means callers
	// are renaming instances after spawn.
	UnpooledReleases = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "respawn_unpooled_releases_total",
			Help: "Release attempts for names with no registered pool",
		},
	)

	// PoolInactive tracks inactive instances currently pooled per key
	PoolInactive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "respawn_pool_inactive",
			Help: "Inactive instances currently pooled per key",
		},
		[]string{"key"},
	)

	// PoolActive tracks active instances currently held per group
	PoolActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "respawn_pool_active",
			Help: "Active instances currently tracked per group",
		},
		[]string{"group"},
	)

	// SpawnDuration tracks the distribution of spawn latencies in nanoseconds.
	// The histogram buckets are optimized for sub-millisecond latency tracking.
	// Labels: key (lookup key)
	//
	// Example:
	//	start := time.Now()
	//	inst := manager.Spawn(proto)
	//	metrics.SpawnDuration.WithLabelValues("projectile").
	//	    Observe(float64(time.Since(start).Nanoseconds()))
	SpawnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "respawn_spawn_duration_nanoseconds",
			Help: "Spawn latency in nanoseconds",
			Buckets: []float64{
				100,    // 100ns - Pool hit, no allocation
				1000,   // 1μs - Pool hit with group bookkeeping
				10000,  // 10μs - Fresh instantiation
				100000, // 100μs - Instantiation with heavy init hooks
				1e6,    // 1ms - Contended manager
				1e7,    // 10ms - Pathological contention
				1e8,    // 100ms
				1e9,    // 1s
			},
		},
		[]string{"key"},
	)

	// PrewarmTotal counts instances pre-created into pools
	PrewarmTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "respawn_prewarm_total",
			Help: "Instances pre-created into pools by warmup",
		},
		[]string{"key"},
	)

	// RecyclerQueueDepth tracks the deferred-release queue depth
	RecyclerQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "respawn_recycler_queue_depth",
			Help: "Instances waiting in the deferred-release queue",
		},
	)

	// ReplayEventsTotal counts capture events applied during replay
	ReplayEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "respawn_replay_events_total",
			Help: "Capture events applied during replay",
		},
		[]string{"op"},
	)

	// CaptureEventsTotal counts events written to capture sessions
	CaptureEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "respawn_capture_events_total",
			Help: "Events written to capture sessions",
		},
		[]string{"op"},
	)

	// CaptureDroppedTotal counts events a recorder could not write
	CaptureDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "respawn_capture_dropped_total",
			Help: "Events dropped by capture recorders",
		},
	)

	// MemoryAllocated tracks memory allocations
	MemoryAllocated = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "respawn_memory_allocated_bytes",
			Help: "Memory allocated in bytes",
		},
		[]string{"component"},
	)

	// GCPauseDuration tracks GC pause durations
	GCPauseDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "respawn_gc_pause_duration_nanoseconds",
			Help: "GC pause duration in nanoseconds",
			Buckets: []float64{
				1e3, // 1μs
				1e4, // 10μs
				1e5, // 100μs
				1e6, // 1ms
				1e7, // 10ms
				1e8, // 100ms
			},
		},
	)

	// Throughput tracks operations per second
	Throughput = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "respawn_throughput_ops_per_second",
			Help: "Current throughput in operations per second",
		},
		[]string{"operation"},
	)

	// AllocationRate tracks memory allocation rate
	AllocationRate = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "respawn_memory_allocation_rate_bytes_per_second",
			Help: "Memory allocation rate in bytes per second",
		},
	)
)

// Timer provides a simple timing mechanism for measuring operation durations.
// It captures the start time on creation and calculates elapsed time on stop.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
// The name parameter is for identification in logs or metrics.
//
// Example:
//
//	timer := metrics.NewTimer("prewarm")
//	manager.Prewarm(proto, 256)
//	duration := timer.Stop()
//	logger.Info("pools warmed", zap.Duration("duration", duration))
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Stop stops the timer and returns the elapsed duration since creation.
// The timer can be stopped multiple times, each returning the total
// elapsed time since creation.
func (t *Timer) Stop() time.Duration {
	duration := time.Since(t.start)
	return duration
}

// ThroughputTracker tracks throughput (operations per second) over time windows.
// It automatically calculates and reports throughput metrics when queried.
// Thread-safe for concurrent use.
type ThroughputTracker struct {
	mu        sync.Mutex
	count     int64     // Operations since last reset
	lastReset time.Time // Time of last reset
	operation string    // Operation name used as the metric label
}

// NewThroughputTracker creates a new throughput tracker for an operation.
// The operation parameter identifies what is being counted and is used
// as the metric label.
//
// Example:
//
//	tracker := metrics.NewThroughputTracker("spawn")
//	for range requests {
//	    spawn()
//	    tracker.Increment(1)
//	}
//	throughput := tracker.GetAndReset()
//	logger.Info("throughput", zap.Float64("spawns_per_sec", throughput))
func NewThroughputTracker(operation string) *ThroughputTracker {
	return &ThroughputTracker{
		lastReset: time.Now(),
		operation: operation,
	}
}

// Increment adds n to the operation count. Safe for concurrent use.
func (t *ThroughputTracker) Increment(n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count += n
}

// GetAndReset calculates the current throughput (operations/second),
// updates the Prometheus metric, resets the counter, and returns
// the calculated throughput. Safe for concurrent use.
func (t *ThroughputTracker) GetAndReset() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := time.Since(t.lastReset).Seconds()
	if elapsed == 0 {
		return 0
	}

	throughput := float64(t.count) / elapsed

	// Reset for next period
	t.count = 0
	t.lastReset = time.Now()

	// Update Prometheus metric
	Throughput.WithLabelValues(t.operation).Set(throughput)

	return throughput
}

// LatencyTracker provides percentile tracking
type LatencyTracker struct {
	mu      sync.Mutex
	values  []time.Duration
	maxSize int
}

// NewLatencyTracker creates a new latency tracker
func NewLatencyTracker(maxSize int) *LatencyTracker {
	return &LatencyTracker{
		values:  make([]time.Duration, 0, maxSize),
		maxSize: maxSize,
	}
}

// Record records a latency value
func (l *LatencyTracker) Record(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.values) >= l.maxSize {
		// Remove oldest
		l.values = l.values[1:]
	}
	l.values = append(l.values, d)
}

// GetPercentile returns the percentile value (0-100)
func (l *LatencyTracker) GetPercentile(p float64) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.values) == 0 {
		return 0
	}

	sorted := make([]time.Duration, len(l.values))
	copy(sorted, l.values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	index := int(float64(len(sorted)) * p / 100)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}

// Count returns the number of recorded samples
func (l *LatencyTracker) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.values)
}
