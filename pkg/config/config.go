// Package config provides the unified configuration system for respawn.
// It defines a single BaseConfig structure that the manager, capture layer,
// and tooling all share, ensuring consistent configuration across the toolkit.
//
// The configuration is organized into logical sections:
//   - Pools: Per-key pool sizing and release behavior
//   - Warmup: Pool bootstrapping at construction time
//   - Groups: Active-instance group tracking
//   - Capture: Workload recording and replay settings
//   - Observability: Metrics, tracing, logging
//   - Memory: Pooling and buffer management
//   - Advanced: Optional features like the deferred-release recycler
//
// Example usage:
//
//	cfg := config.New("arena-server")
//	cfg.Pools.InitialCapacity = 64
//	cfg.Capture.Enabled = true
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"fmt"
	"time"
)

// BaseConfig is the single unified configuration structure shared by the
// manager, the capture layer, and the command-line tooling. Tool-specific
// configurations should embed this structure with the yaml inline tag.
type BaseConfig struct {
	// Core identification fields

	// Name identifies the manager or tool instance
	Name string `yaml:"name" json:"name"`
	// Version indicates the configuration version
	Version string `yaml:"version" json:"version"`

	// Pools settings control per-key pool sizing and release behavior
	Pools PoolsConfig `yaml:"pools" json:"pools"`

	// Warmup drives pool bootstrapping at manager construction
	Warmup WarmupConfig `yaml:"warmup" json:"warmup"`

	// Groups configures active-instance group tracking
	Groups GroupsConfig `yaml:"groups" json:"groups"`

	// Capture configures workload recording and replay
	Capture CaptureConfig `yaml:"capture" json:"capture"`

	// Observability settings for monitoring and debugging
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`

	// Memory management configuration
	Memory MemoryConfig `yaml:"memory" json:"memory"`

	// Advanced features and optimizations
	Advanced AdvancedConfig `yaml:"advanced" json:"advanced"`
}

// PoolsConfig contains per-key pool settings.
// These control how pool records size themselves and what happens on release.
type PoolsConfig struct {
	// InitialCapacity hints the inactive FIFO capacity for new records
	InitialCapacity int `yaml:"initial_capacity" json:"initial_capacity"`
	// MaxIdlePerKey caps inactive instances kept per key (0 = unbounded)
	MaxIdlePerKey int `yaml:"max_idle_per_key" json:"max_idle_per_key"`
}

// WarmupEntry names one key to bootstrap and how many clones to pre-create.
type WarmupEntry struct {
	// Key is the lookup key to warm
	Key string `yaml:"key" json:"key"`
	// Count is the number of inactive clones to pre-create
	Count int `yaml:"count" json:"count"`
}

// WarmupConfig drives pool bootstrapping at manager construction.
// Entries are matched against registered prototypes by display name.
type WarmupConfig struct {
	// OnStart applies the entries during manager construction
	OnStart bool `yaml:"on_start" json:"on_start"`
	// Entries lists the keys to warm and their counts
	Entries []WarmupEntry `yaml:"entries" json:"entries"`
}

// GroupsConfig configures active-instance group tracking.
type GroupsConfig struct {
	// Default names the group spawned instances join when none is requested
	Default string `yaml:"default" json:"default"`
	// Track enables group membership bookkeeping
	Track bool `yaml:"track" json:"track"`
	// Names lists additional groups to create beyond the built-in pair
	Names []string `yaml:"names" json:"names"`
}

// CaptureConfig contains workload capture and replay settings.
type CaptureConfig struct {
	// Enabled activates event recording
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Directory is where capture files are written
	Directory string `yaml:"directory" json:"directory"`
	// Compression selects the capture codec (none, gzip, snappy, s2, zstd, lz4)
	Compression string `yaml:"compression" json:"compression"`
	// BufferSize sets the writer buffer size in bytes
	BufferSize int `yaml:"buffer_size" json:"buffer_size"`
	// FlushInterval triggers periodic writer flushes
	FlushInterval time.Duration `yaml:"flush_interval" json:"flush_interval"`
	// Speed multiplies replay pacing (1.0 = recorded speed, 0 = as fast as possible)
	Speed float64 `yaml:"speed" json:"speed"`
	// MaxEventsPerSec caps replay throughput (0 = unlimited)
	MaxEventsPerSec int `yaml:"max_events_per_sec" json:"max_events_per_sec"`
	// UseMmap memory-maps uncompressed capture files when reading
	UseMmap bool `yaml:"use_mmap" json:"use_mmap"`
}

// ObservabilityConfig contains monitoring and observability settings.
// These enable tracking of pool behavior and performance.
type ObservabilityConfig struct {
	// EnableMetrics activates metrics collection
	EnableMetrics bool `yaml:"enable_metrics" json:"enable_metrics"`
	// EnableTracing activates tracing
	EnableTracing bool `yaml:"enable_tracing" json:"enable_tracing"`
	// EnableLogging controls logging output
	EnableLogging bool `yaml:"enable_logging" json:"enable_logging"`
	// MetricsInterval sets how often metrics are collected
	MetricsInterval time.Duration `yaml:"metrics_interval" json:"metrics_interval"`
	// LogLevel sets logging verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level" json:"log_level"`
	// TracingSampleRate controls trace sampling (0.0-1.0)
	TracingSampleRate float64 `yaml:"tracing_sample_rate" json:"tracing_sample_rate"`
}

// MemoryConfig contains memory management settings.
// These optimize memory usage through pooling and reuse.
type MemoryConfig struct {
	// EnablePools activates value pooling for toolkit internals
	EnablePools bool `yaml:"enable_pools" json:"enable_pools"`
	// InternKeys shares one string per lookup key
	InternKeys bool `yaml:"intern_keys" json:"intern_keys"`
	// BufferPoolSize sets the buffer pool capacity
	BufferPoolSize int `yaml:"buffer_pool_size" json:"buffer_pool_size"`
	// EnableBufferReuse allows buffer recycling
	EnableBufferReuse bool `yaml:"enable_buffer_reuse" json:"enable_buffer_reuse"`
	// MinBufferSize sets minimum buffer allocation
	MinBufferSize int `yaml:"min_buffer_size" json:"min_buffer_size"`
	// MaxBufferSize sets maximum buffer allocation
	MaxBufferSize int `yaml:"max_buffer_size" json:"max_buffer_size"`
	// GCInterval triggers periodic garbage collection
	GCInterval time.Duration `yaml:"gc_interval" json:"gc_interval"`
}

// AdvancedConfig contains optional advanced features.
// These provide additional optimizations and capabilities.
type AdvancedConfig struct {
	// EnableRecycler activates the deferred-release queue
	EnableRecycler bool `yaml:"enable_recycler" json:"enable_recycler"`
	// RecyclerQueueSize sets the release queue capacity (power of two)
	RecyclerQueueSize int `yaml:"recycler_queue_size" json:"recycler_queue_size"`
	// RecyclerInterval sets the recycler drain poll interval
	RecyclerInterval time.Duration `yaml:"recycler_interval" json:"recycler_interval"`
	// Debug enables detailed debug output
	Debug bool `yaml:"debug" json:"debug"`
}

// New creates a new BaseConfig with sensible defaults.
// It initializes all configuration sections with production-ready values
// that work well for most use cases. Callers can override these defaults
// as needed.
//
// Parameters:
//   - name: The manager or tool instance name
//
// Example:
//
//	cfg := config.New("arena-server")
//	cfg.Pools.InitialCapacity = 64  // Override default
func New(name string) *BaseConfig {
	return &BaseConfig{
		Name:    name,
		Version: "1.0.0",
		Pools: PoolsConfig{
			InitialCapacity: 16,
			MaxIdlePerKey:   0, // Unbounded by default
		},
		Warmup: WarmupConfig{
			OnStart: true,
		},
		Groups: GroupsConfig{
			Default: "actors",
			Track:   true,
		},
		Capture: CaptureConfig{
			Enabled:       false,
			Directory:     "captures",
			Compression:   "gzip",
			BufferSize:    65536,
			FlushInterval: time.Second,
			Speed:         1.0,
			UseMmap:       true,
		},
		Observability: ObservabilityConfig{
			EnableMetrics:     true,
			EnableTracing:     false,
			EnableLogging:     true,
			MetricsInterval:   30 * time.Second,
			LogLevel:          "info",
			TracingSampleRate: 0.1,
		},
		Memory: MemoryConfig{
			EnablePools:       true,
			InternKeys:        true,
			BufferPoolSize:    100,
			EnableBufferReuse: true,
			MinBufferSize:     1024,
			MaxBufferSize:     1048576, // 1MB
			GCInterval:        time.Minute,
		},
		Advanced: AdvancedConfig{
			EnableRecycler:    false,
			RecyclerQueueSize: 4096,
			RecyclerInterval:  time.Millisecond,
			Debug:             false,
		},
	}
}

// validCompressions lists the capture codecs Validate accepts.
var validCompressions = map[string]bool{
	"":       true,
	"none":   true,
	"gzip":   true,
	"snappy": true,
	"s2":     true,
	"zstd":   true,
	"lz4":    true,
}

// Validate validates the configuration for correctness.
// It checks required fields and ensures values are within acceptable ranges.
// Callers should invoke this after loading configuration to catch errors early.
//
// Returns an error if validation fails, nil otherwise.
func (bc *BaseConfig) Validate() error {
	if bc.Name == "" {
		return fmt.Errorf("name is required")
	}
	if bc.Pools.InitialCapacity < 0 {
		return fmt.Errorf("initial_capacity cannot be negative")
	}
	if bc.Pools.MaxIdlePerKey < 0 {
		return fmt.Errorf("max_idle_per_key cannot be negative")
	}
	for _, entry := range bc.Warmup.Entries {
		if entry.Key == "" {
			return fmt.Errorf("warmup entries require a key")
		}
		if entry.Count < 0 {
			return fmt.Errorf("warmup count cannot be negative for key %q", entry.Key)
		}
	}
	if !validCompressions[bc.Capture.Compression] {
		return fmt.Errorf("unknown capture compression %q", bc.Capture.Compression)
	}
	if bc.Capture.Enabled && bc.Capture.BufferSize <= 0 {
		return fmt.Errorf("capture buffer_size must be positive")
	}
	if bc.Capture.Speed < 0 {
		return fmt.Errorf("capture speed cannot be negative")
	}
	if bc.Capture.MaxEventsPerSec < 0 {
		return fmt.Errorf("max_events_per_sec cannot be negative")
	}
	if rate := bc.Observability.TracingSampleRate; rate < 0 || rate > 1 {
		return fmt.Errorf("tracing_sample_rate must be between 0.0 and 1.0")
	}
	if bc.Advanced.EnableRecycler {
		size := bc.Advanced.RecyclerQueueSize
		if size <= 0 || size&(size-1) != 0 {
			return fmt.Errorf("recycler_queue_size must be a positive power of two")
		}
	}
	return nil
}

// IsBounded returns true if releases beyond the idle cap discard instances
func (p *PoolsConfig) IsBounded() bool {
	return p.MaxIdlePerKey > 0
}

// Total returns the total number of instances the warmup entries request
func (w *WarmupConfig) Total() int {
	total := 0
	for _, entry := range w.Entries {
		total += entry.Count
	}
	return total
}

// DefaultName returns the default group name, falling back to "actors"
func (g *GroupsConfig) DefaultName() string {
	if g.Default == "" {
		return "actors"
	}
	return g.Default
}

// IsCompressed returns true if capture files should be compressed
func (c *CaptureConfig) IsCompressed() bool {
	return c.Compression != "" && c.Compression != "none"
}
