package performance

import (
	"context"
	"time"
)

// Benchmark drives a workload function for a fixed duration under a
// profiler, timing every iteration into the latency distribution.
type Benchmark struct {
	name     string
	profiler *Profiler
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewBenchmark creates a benchmark with a default profiler.
func NewBenchmark(name string) *Benchmark {
	ctx, cancel := context.WithCancel(context.Background())
	return &Benchmark{
		name:     name,
		profiler: NewProfiler(DefaultProfilerConfig(name)),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Profiler exposes the underlying profiler so workloads can attach custom
// metrics before Run.
func (b *Benchmark) Profiler() *Profiler {
	return b.profiler
}

// Run calls fn until the duration elapses or Stop is called. Errors from fn
// are counted, not fatal. Returns the rendered profile.
func (b *Benchmark) Run(fn func() error, duration time.Duration) (*ProfileResult, error) {
	b.profiler.Start()
	defer b.profiler.Stop()

	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		select {
		case <-b.ctx.Done():
			return b.profiler.GenerateReport(), nil
		default:
		}

		opStart := time.Now()
		err := fn()
		b.profiler.RecordLatency(time.Since(opStart))
		b.profiler.IncrementOps(1)
		if err != nil {
			b.profiler.IncrementErrors(1)
		}
	}

	return b.profiler.GenerateReport(), nil
}

// Stop aborts a running benchmark.
func (b *Benchmark) Stop() {
	b.cancel()
}
