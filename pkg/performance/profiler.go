// Package performance provides profiling and benchmarking tools for spawn
// workloads: a sampling profiler with latency percentiles, a gopsutil-based
// resource monitor, pprof session management, and a timed benchmark loop.
package performance

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/ajitpratap0/respawn/pkg/metrics"
)

// Metrics is a profiling snapshot of a workload window.
type Metrics struct {
	// Throughput metrics
	Operations   int64
	OpsPerSecond float64

	// Latency metrics
	MinLatency time.Duration
	MaxLatency time.Duration
	AvgLatency time.Duration
	P50Latency time.Duration
	P95Latency time.Duration
	P99Latency time.Duration

	// Resource metrics
	CPUUsagePercent float64
	HeapAllocMB     uint64
	GoroutineCount  int
	GCCount         uint32
	GCPauseTotalNs  uint64

	// Error metrics
	ErrorCount int64

	// Custom metrics
	CustomMetrics map[string]interface{}
}

// ProfilerConfig configures the sampling profiler.
type ProfilerConfig struct {
	Name             string
	SamplingInterval time.Duration
	ResourceMonitor  bool
}

// DefaultProfilerConfig returns default configuration.
func DefaultProfilerConfig(name string) *ProfilerConfig {
	return &ProfilerConfig{
		Name:             name,
		SamplingInterval: 100 * time.Millisecond,
		ResourceMonitor:  true,
	}
}

// Profiler measures a workload: operation counts, latency distribution,
// and sampled runtime resources. Safe for concurrent use.
type Profiler struct {
	name     string
	interval time.Duration
	monitor  *ResourceMonitor

	operations int64
	errors     int64

	mu           sync.RWMutex
	startTime    time.Time
	baseline     runtime.MemStats
	latency      *LatencyTracker
	minLatency   time.Duration
	maxLatency   time.Duration
	totalLatency time.Duration
	latencyCount int64
	custom       map[string]interface{}
	cpuPercent   float64

	sampling   bool
	stopSample chan struct{}
	sampleWG   sync.WaitGroup
}

// NewProfiler creates a new profiler.
func NewProfiler(config *ProfilerConfig) *Profiler {
	if config == nil {
		config = DefaultProfilerConfig("default")
	}

	p := &Profiler{
		name:       config.Name,
		interval:   config.SamplingInterval,
		startTime:  time.Now(),
		latency:    NewLatencyTracker(),
		minLatency: time.Duration(1<<63 - 1),
		custom:     make(map[string]interface{}),
	}

	if config.ResourceMonitor {
		p.monitor = NewResourceMonitor()
	}

	return p
}

// Start opens a measurement window. Counters and the latency window reset.
func (p *Profiler) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = time.Now()
	runtime.ReadMemStats(&p.baseline)
	atomic.StoreInt64(&p.operations, 0)
	atomic.StoreInt64(&p.errors, 0)
	p.latency.Reset()
	p.minLatency = time.Duration(1<<63 - 1)
	p.maxLatency = 0
	p.totalLatency = 0
	p.latencyCount = 0

	if p.interval > 0 && !p.sampling {
		p.sampling = true
		p.stopSample = make(chan struct{})
		p.sampleWG.Add(1)
		go p.sampleLoop()
	}
}

// Stop closes the window and returns its metrics.
func (p *Profiler) Stop() *Metrics {
	p.mu.Lock()
	if p.sampling {
		close(p.stopSample)
		p.sampling = false
	}
	p.mu.Unlock()
	p.sampleWG.Wait()

	return p.Metrics()
}

// RecordLatency folds one operation's duration into the distribution.
func (p *Profiler) RecordLatency(d time.Duration) {
	p.mu.Lock()
	if d < p.minLatency {
		p.minLatency = d
	}
	if d > p.maxLatency {
		p.maxLatency = d
	}
	p.totalLatency += d
	p.latencyCount++
	p.mu.Unlock()

	p.latency.Record(d)
}

// IncrementOps increments the operation counter.
func (p *Profiler) IncrementOps(count int64) {
	atomic.AddInt64(&p.operations, count)
}

// IncrementErrors increments the error counter.
func (p *Profiler) IncrementErrors(count int64) {
	atomic.AddInt64(&p.errors, count)
}

// SetCustomMetric sets a custom metric.
func (p *Profiler) SetCustomMetric(key string, value interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.custom[key] = value
}

// Monitor returns the resource monitor, nil when disabled.
func (p *Profiler) Monitor() *ResourceMonitor {
	return p.monitor
}

// Metrics returns a snapshot of the current window.
func (p *Profiler) Metrics() *Metrics {
	p.mu.RLock()
	defer p.mu.RUnlock()

	elapsed := time.Since(p.startTime)
	ops := atomic.LoadInt64(&p.operations)

	m := &Metrics{
		Operations:      ops,
		ErrorCount:      atomic.LoadInt64(&p.errors),
		CPUUsagePercent: p.cpuPercent,
		GoroutineCount:  runtime.NumGoroutine(),
		CustomMetrics:   make(map[string]interface{}, len(p.custom)),
	}
	for k, v := range p.custom {
		m.CustomMetrics[k] = v
	}

	if elapsed > 0 {
		m.OpsPerSecond = float64(ops) / elapsed.Seconds()
	}
	if p.latencyCount > 0 {
		m.MinLatency = p.minLatency
		m.MaxLatency = p.maxLatency
		m.AvgLatency = p.totalLatency / time.Duration(p.latencyCount)
	}
	m.P50Latency, m.P95Latency, m.P99Latency = p.latency.GetPercentiles()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	m.HeapAllocMB = memStats.HeapAlloc / 1024 / 1024
	m.GCCount = memStats.NumGC - p.baseline.NumGC
	m.GCPauseTotalNs = memStats.PauseTotalNs - p.baseline.PauseTotalNs

	return m
}

// sampleLoop refreshes the CPU usage reading and publishes runtime memory
// samples to the Prometheus gauges. cpu.Percent reports usage since its
// previous call, so it only means something sampled on a tick.
func (p *Profiler) sampleLoop() {
	defer p.sampleWG.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var last runtime.MemStats
	runtime.ReadMemStats(&last)
	lastAt := time.Now()

	for {
		select {
		case <-p.stopSample:
			return
		case <-ticker.C:
			percents, err := cpu.Percent(0, false)
			if err == nil && len(percents) > 0 {
				p.mu.Lock()
				p.cpuPercent = percents[0]
				p.mu.Unlock()
			}

			var ms runtime.MemStats
			runtime.ReadMemStats(&ms)
			now := time.Now()

			metrics.MemoryAllocated.WithLabelValues(p.name).Set(float64(ms.HeapAlloc))
			if elapsed := now.Sub(lastAt).Seconds(); elapsed > 0 {
				metrics.AllocationRate.Set(float64(ms.TotalAlloc-last.TotalAlloc) / elapsed)
			}
			// PauseNs is a ring of the last 256 pauses, most recent at
			// (NumGC+255)%256.
			for gc := last.NumGC + 1; gc <= ms.NumGC && gc <= last.NumGC+256; gc++ {
				metrics.GCPauseDuration.Observe(float64(ms.PauseNs[(gc+255)%256]))
			}

			last = ms
			lastAt = now
		}
	}
}

// ResourceMonitor monitors process and system resources.
type ResourceMonitor struct {
	process      *process.Process
	startCPUTime float64
	startTime    time.Time
	mu           sync.RWMutex
}

// NewResourceMonitor creates a resource monitor anchored at the current
// process.
func NewResourceMonitor() *ResourceMonitor {
	proc, _ := process.NewProcess(int32(os.Getpid()))
	var cpuTotal float64
	if proc != nil {
		if times, err := proc.Times(); err == nil {
			cpuTotal = times.Total()
		}
	}

	return &ResourceMonitor{
		process:      proc,
		startCPUTime: cpuTotal,
		startTime:    time.Now(),
	}
}

// GetResourceUsage returns current resource usage.
func (rm *ResourceMonitor) GetResourceUsage() (*ResourceUsage, error) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	usage := &ResourceUsage{
		GoroutineCount: runtime.NumGoroutine(),
	}
	if rm.process == nil {
		return usage, nil
	}

	if cpuTime, err := rm.process.Times(); err == nil {
		elapsed := time.Since(rm.startTime).Seconds()
		if elapsed > 0 {
			usage.CPUPercent = ((cpuTime.Total() - rm.startCPUTime) / elapsed) * 100
		}
	}

	if memInfo, err := rm.process.MemoryInfo(); err == nil {
		usage.MemoryRSS = memInfo.RSS
		usage.MemoryVMS = memInfo.VMS
	}

	if vmStat, err := mem.VirtualMemory(); err == nil {
		usage.SystemMemoryPercent = vmStat.UsedPercent
		usage.SystemMemoryAvailable = vmStat.Available
	}

	usage.ThreadCount, _ = rm.process.NumThreads()
	usage.OpenFDs, _ = rm.process.NumFDs()

	return usage, nil
}

// ResourceUsage contains resource usage information.
type ResourceUsage struct {
	CPUPercent            float64
	MemoryRSS             uint64
	MemoryVMS             uint64
	SystemMemoryPercent   float64
	SystemMemoryAvailable uint64
	GoroutineCount        int
	ThreadCount           int32
	OpenFDs               int32
}

// ProfileResult contains profiling results.
type ProfileResult struct {
	Name      string
	Duration  time.Duration
	Metrics   *Metrics
	Resources *ResourceUsage
	Report    string
}

// GenerateReport renders the current window into a text report.
func (p *Profiler) GenerateReport() *ProfileResult {
	metrics := p.Metrics()

	var resources *ResourceUsage
	if p.monitor != nil {
		resources, _ = p.monitor.GetResourceUsage()
	}

	p.mu.RLock()
	start := p.startTime
	p.mu.RUnlock()
	duration := time.Since(start)

	report := fmt.Sprintf(`
Spawn Workload Profile: %s
==========================
Duration: %v

Throughput:
- Operations: %d (%.2f/sec)

Latency:
- Min: %v  Avg: %v  Max: %v
- P50: %v  P95: %v  P99: %v

Resources:
- CPU: %.2f%%
- Heap: %d MB
- Goroutines: %d
- GC Count: %d
- GC Pause: %v

Errors: %d
`,
		p.name,
		duration,
		metrics.Operations,
		metrics.OpsPerSecond,
		metrics.MinLatency,
		metrics.AvgLatency,
		metrics.MaxLatency,
		metrics.P50Latency,
		metrics.P95Latency,
		metrics.P99Latency,
		metrics.CPUUsagePercent,
		metrics.HeapAllocMB,
		metrics.GoroutineCount,
		metrics.GCCount,
		time.Duration(metrics.GCPauseTotalNs),
		metrics.ErrorCount,
	)

	return &ProfileResult{
		Name:      p.name,
		Duration:  duration,
		Metrics:   metrics,
		Resources: resources,
		Report:    report,
	}
}

// Hints derives tuning advice from a finished profile. Empty when nothing
// stands out.
func (r *ProfileResult) Hints() []string {
	var hints []string
	m := r.Metrics
	secs := r.Duration.Seconds()

	if secs > 0 && float64(m.GCCount)/secs > 10 {
		hints = append(hints, "gc pressure: steady-state spawns are allocating, raise prewarm counts or max idle per key")
	}
	if m.P50Latency > 0 && m.P99Latency > 20*m.P50Latency {
		hints = append(hints, "latency tail: p99 far above p50, look for record contention or init hooks doing IO")
	}
	if r.Resources != nil && r.Resources.CPUPercent > 90 {
		hints = append(hints, "cpu saturated: reduce worker count or replay speed")
	}
	if m.GoroutineCount > 10000 {
		hints = append(hints, fmt.Sprintf("goroutine count %d: the workload may be leaking workers", m.GoroutineCount))
	}

	return hints
}
