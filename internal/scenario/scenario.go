// Package scenario drives synthetic spawn workloads against a pool manager,
// for benchmarking, capture recording, and tuning.
//
// # Overview
//
// A scenario run consists of:
//   - A demand generator that paces spawn ticks by pattern: steady holds a
//     rate (or goes unthrottled), burst emits whole batches on an interval,
//     ramp steps the rate up across the run
//   - Worker goroutines that spawn weighted keys and hold each instance for
//     its configured lifetime before releasing it, so pools actually recycle
//   - Scenario metrics and a latency distribution collected along the way
//
// # Basic Usage
//
//	cfg := config.NewScenarioConfig("arena")
//	cfg.Pattern = scenario.PatternBurst
//	cfg.Duration = 30 * time.Second
//	cfg.Keys = []config.ScenarioKey{{Key: "projectile", Weight: 4, Prewarm: 256}}
//
//	runner, err := scenario.NewRunner(cfg)
//	if err != nil {
//	    return err
//	}
//	result := runner.Run(ctx)
//
// When the config enables capture, the run is recorded to a session file
// that `respawn replay` can re-apply later.
package scenario

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/respawn/pkg/capture"
	"github.com/ajitpratap0/respawn/pkg/config"
	"github.com/ajitpratap0/respawn/pkg/errors"
	"github.com/ajitpratap0/respawn/pkg/logger"
	"github.com/ajitpratap0/respawn/pkg/metrics"
	"github.com/ajitpratap0/respawn/pkg/observability"
	"github.com/ajitpratap0/respawn/pkg/performance"
	"github.com/ajitpratap0/respawn/pkg/pool"
	"github.com/ajitpratap0/respawn/pkg/spawn"
)

// sweepInterval bounds how long an expired instance can linger in a worker
// when demand goes quiet.
const sweepInterval = 10 * time.Millisecond

// Result summarizes a finished run.
type Result struct {
	Name      string
	Pattern   string
	Duration  time.Duration
	Spawned   int64
	Released  int64
	Prewarmed int

	P50Latency time.Duration
	P95Latency time.Duration
	P99Latency time.Duration

	Pool spawn.Stats

	CapturePath   string
	CaptureEvents uint64
}

// Report returns the result as loggable key/value pairs.
func (r *Result) Report() map[string]interface{} {
	report := map[string]interface{}{
		"name":        r.Name,
		"pattern":     r.Pattern,
		"duration":    r.Duration.String(),
		"spawned":     r.Spawned,
		"released":    r.Released,
		"prewarmed":   r.Prewarmed,
		"p50_latency": r.P50Latency.String(),
		"p95_latency": r.P95Latency.String(),
		"p99_latency": r.P99Latency.String(),
		"pool_keys":   r.Pool.Keys,
		"pool_idle":   r.Pool.Idle,
		"pool_active": r.Pool.Active,
		"created":     r.Pool.Created,
		"reused":      r.Pool.Reused,
		"reuse_rate":  r.Pool.ReuseRate(),
	}
	if r.CapturePath != "" {
		report["capture_path"] = r.CapturePath
		report["capture_events"] = r.CaptureEvents
	}
	return report
}

type weightedKey struct {
	proto spawn.Prototype
	cumul int
}

type heldInstance struct {
	inst     spawn.Instance
	deadline time.Time
}

// Runner executes one scenario against a dedicated manager.
type Runner struct {
	cfg     *config.ScenarioConfig
	manager *spawn.Manager
	metrics *observability.ScenarioMetrics
	latency *performance.LatencyTracker
	logger  *zap.Logger

	protos   map[string]spawn.Prototype
	weighted []weightedKey
	total    int

	recorder *capture.Recorder

	spawned  int64
	released int64
	wg       sync.WaitGroup
}

// NewRunner builds a runner and its manager from config. When the config
// enables capture, a session recorder is attached to the manager.
func NewRunner(cfg *config.ScenarioConfig) (*Runner, error) {
	if cfg == nil {
		cfg = config.NewScenarioConfig("scenario")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid scenario config")
	}
	if len(cfg.Keys) == 0 {
		return nil, errors.New(errors.ErrorTypeConfig, "scenario needs at least one key")
	}

	protos := make(map[string]spawn.Prototype, len(cfg.Keys))
	all := make([]spawn.Prototype, 0, len(cfg.Keys))
	keys := make([]string, 0, len(cfg.Keys))
	for _, ks := range cfg.Keys {
		proto := spawn.NewBasic(ks.Key, nil)
		protos[ks.Key] = proto
		all = append(all, proto)
		keys = append(keys, ks.Key)
	}
	// Warm the intern table so spawn loops take the read path from tick one.
	pool.PreInternKeys(keys)

	r := &Runner{
		cfg:     cfg,
		manager: spawn.New(&cfg.BaseConfig, all...),
		metrics: observability.NewScenarioMetrics(cfg.Name),
		latency: performance.NewLatencyTracker(),
		logger: logger.Get().With(
			zap.String("component", "scenario"),
			zap.String("scenario", cfg.Name)),
		protos: protos,
	}

	cumul := 0
	for _, ks := range cfg.Keys {
		weight := ks.Weight
		if weight <= 0 {
			weight = 1
		}
		cumul += weight
		r.weighted = append(r.weighted, weightedKey{proto: protos[ks.Key], cumul: cumul})
	}
	r.total = cumul

	if cfg.Capture.Enabled {
		path, err := capture.SessionPath(&cfg.Capture, cfg.Name)
		if err != nil {
			return nil, err
		}
		rec, err := capture.NewRecorder(path, &cfg.Capture)
		if err != nil {
			return nil, err
		}
		rec.Attach(r.manager)
		r.recorder = rec
	}

	return r, nil
}

// Manager returns the manager the scenario drives.
func (r *Runner) Manager() *spawn.Manager {
	return r.manager
}

// Run executes the scenario until its duration elapses or ctx is
// cancelled. Held instances are released on the way out either way.
func (r *Runner) Run(ctx context.Context) *Result {
	workers := r.cfg.GetWorkers()

	r.logger.Info("starting scenario",
		zap.String("pattern", r.cfg.Pattern),
		zap.Duration("duration", r.cfg.Duration),
		zap.Int("workers", workers),
		zap.Int("keys", len(r.cfg.Keys)))

	start := time.Now()

	prewarmTimer := metrics.NewTimer("prewarm")
	prewarmed := 0
	for _, ks := range r.cfg.Keys {
		if ks.Prewarm <= 0 {
			continue
		}
		added := r.manager.Prewarm(r.protos[ks.Key], ks.Prewarm)
		if added > 0 {
			prewarmed += added
			r.metrics.RecordPrewarmed(added)
		}
	}
	if prewarmed > 0 {
		r.logger.Info("pools prewarmed",
			zap.Int("instances", prewarmed),
			zap.Duration("duration", prewarmTimer.Stop()))
	}

	ticks := make(chan struct{}, workers*64)

	r.wg.Add(1)
	go r.generate(ctx, ticks)

	for i := 0; i < workers; i++ {
		r.wg.Add(1)
		go r.worker(ctx, i, ticks)
	}

	workDone := make(chan struct{})
	progressDone := make(chan struct{})
	if r.cfg.ReportInterval > 0 {
		go func() {
			r.progressLoop(ctx, workDone)
			close(progressDone)
		}()
	} else {
		close(progressDone)
	}

	r.wg.Wait()
	close(workDone)
	<-progressDone

	result := &Result{
		Name:      r.cfg.Name,
		Pattern:   r.cfg.Pattern,
		Duration:  time.Since(start),
		Spawned:   atomic.LoadInt64(&r.spawned),
		Released:  atomic.LoadInt64(&r.released),
		Prewarmed: prewarmed,
		Pool:      r.manager.Stats(),
	}
	result.P50Latency, result.P95Latency, result.P99Latency = r.latency.GetPercentiles()

	if r.recorder != nil {
		if err := r.recorder.Close(); err != nil {
			r.logger.Warn("closing capture session", zap.Error(err))
		}
		result.CapturePath = r.recorder.Path()
		result.CaptureEvents = r.recorder.Written()
	}

	r.logger.Info("scenario completed",
		zap.Duration("duration", result.Duration),
		zap.Int64("spawned", result.Spawned),
		zap.Int64("released", result.Released),
		zap.Duration("p99_latency", result.P99Latency),
		zap.Float64("reuse_rate", result.Pool.ReuseRate()))

	return result
}

// generate feeds spawn ticks shaped by the configured pattern, then closes
// the channel so workers drain and exit.
func (r *Runner) generate(ctx context.Context, ticks chan<- struct{}) {
	defer r.wg.Done()
	defer close(ticks)

	switch {
	case r.cfg.Pattern == PatternBurst:
		r.generateBursts(ctx, ticks)
	case r.cfg.Pattern == PatternSteady && r.cfg.SpawnRatePerSec <= 0:
		r.generateUnthrottled(ctx, ticks)
	default:
		r.generatePaced(ctx, ticks)
	}
}

// generateUnthrottled sends as fast as workers consume, for the whole
// duration. Backpressure comes from the tick channel.
func (r *Runner) generateUnthrottled(ctx context.Context, ticks chan<- struct{}) {
	deadline := time.Now().Add(r.cfg.Duration)
	for time.Now().Before(deadline) {
		select {
		case ticks <- struct{}{}:
		case <-ctx.Done():
			return
		}
	}
}

// generatePaced meters ticks against the pattern's target rate. Fractional
// ops per slot carry over so low rates still add up.
func (r *Runner) generatePaced(ctx context.Context, ticks chan<- struct{}) {
	const slot = 10 * time.Millisecond
	ticker := time.NewTicker(slot)
	defer ticker.Stop()

	start := time.Now()
	var owed float64

	for {
		select {
		case <-ticker.C:
			elapsed := time.Since(start)
			if elapsed >= r.cfg.Duration {
				return
			}

			owed += r.pacedRate(elapsed) * slot.Seconds()
			n := int(owed)
			owed -= float64(n)

			for i := 0; i < n; i++ {
				select {
				case ticks <- struct{}{}:
				case <-ctx.Done():
					return
				}
			}

		case <-ctx.Done():
			return
		}
	}
}

// generateBursts emits a whole burst on each interval, starting with one
// immediately. Quiet between bursts.
func (r *Runner) generateBursts(ctx context.Context, ticks chan<- struct{}) {
	timer := time.NewTimer(r.cfg.Duration)
	defer timer.Stop()
	ticker := time.NewTicker(r.cfg.BurstInterval)
	defer ticker.Stop()

	emit := func() bool {
		for i := 0; i < r.cfg.BurstSize; i++ {
			select {
			case ticks <- struct{}{}:
			case <-timer.C:
				return false
			case <-ctx.Done():
				return false
			}
		}
		return true
	}

	if !emit() {
		return
	}
	for {
		select {
		case <-ticker.C:
			if !emit() {
				return
			}
		case <-timer.C:
			return
		case <-ctx.Done():
			return
		}
	}
}

// worker spawns one weighted key per tick and holds each instance for its
// configured lifetime before releasing it back to the pool.
func (r *Runner) worker(ctx context.Context, id int, ticks <-chan struct{}) {
	defer r.wg.Done()

	seed := r.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed + int64(id)))

	lifetime := r.cfg.ActiveLifetime
	var held []heldInstance

	expire := func(now time.Time) {
		n := 0
		for _, h := range held {
			if now.After(h.deadline) {
				r.release(h.inst)
			} else {
				held[n] = h
				n++
			}
		}
		held = held[:n]
	}
	drain := func() {
		for _, h := range held {
			r.release(h.inst)
		}
		held = nil
	}

	sweep := time.NewTicker(sweepInterval)
	defer sweep.Stop()

	for {
		select {
		case _, ok := <-ticks:
			if !ok {
				drain()
				return
			}

			now := time.Now()
			expire(now)

			proto := r.pick(rng)
			opStart := time.Now()
			inst := r.manager.Spawn(proto)
			r.latency.Record(time.Since(opStart))
			if inst == nil {
				continue
			}
			atomic.AddInt64(&r.spawned, 1)
			r.metrics.RecordSpawned()

			if lifetime <= 0 {
				r.release(inst)
			} else {
				held = append(held, heldInstance{inst: inst, deadline: now.Add(lifetime)})
			}

		case <-sweep.C:
			expire(time.Now())

		case <-ctx.Done():
			drain()
			return
		}
	}
}

func (r *Runner) progressLoop(ctx context.Context, done <-chan struct{}) {
	ticker := time.NewTicker(r.cfg.ReportInterval)
	defer ticker.Stop()

	tracker := metrics.NewThroughputTracker("spawn")
	var lastSpawned int64

	for {
		select {
		case <-ticker.C:
			spawned := atomic.LoadInt64(&r.spawned)
			tracker.Increment(spawned - lastSpawned)
			lastSpawned = spawned
			r.logger.Info("scenario progress",
				zap.Int64("spawned", spawned),
				zap.Int64("released", atomic.LoadInt64(&r.released)),
				zap.Float64("spawns_per_sec", tracker.GetAndReset()))
		case <-done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (r *Runner) release(inst spawn.Instance) {
	r.manager.Release(inst)
	atomic.AddInt64(&r.released, 1)
	r.metrics.RecordReleased()
}

func (r *Runner) pick(rng *rand.Rand) spawn.Prototype {
	if len(r.weighted) == 1 || r.total <= 0 {
		return r.weighted[0].proto
	}
	n := rng.Intn(r.total)
	for _, wk := range r.weighted {
		if n < wk.cumul {
			return wk.proto
		}
	}
	return r.weighted[len(r.weighted)-1].proto
}
