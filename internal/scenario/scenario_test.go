package scenario

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/respawn/pkg/capture"
	"github.com/ajitpratap0/respawn/pkg/config"
)

// quickConfig builds a short scenario whose default group is private to the
// test, keeping the process-wide actors group out of unrelated assertions.
func quickConfig(name string) *config.ScenarioConfig {
	cfg := config.NewScenarioConfig(name)
	cfg.Groups.Default = name + "-actors"
	cfg.Duration = 150 * time.Millisecond
	cfg.Workers = 2
	cfg.SpawnRatePerSec = 3000
	cfg.ActiveLifetime = 5 * time.Millisecond
	cfg.ReportInterval = 0
	cfg.Seed = 42
	cfg.Keys = []config.ScenarioKey{
		{Key: "projectile", Weight: 3, Prewarm: 8},
		{Key: "enemy_grunt", Weight: 1},
	}
	return cfg
}

func TestPacedRateShapes(t *testing.T) {
	cfg := quickConfig("rates")
	cfg.Pattern = PatternRamp
	cfg.Duration = 10 * time.Second
	cfg.RampStartRate = 100
	cfg.RampEndRate = 1000
	cfg.RampSteps = 10

	r, err := NewRunner(cfg)
	require.NoError(t, err)

	assert.InDelta(t, 100, r.pacedRate(0), 1e-9)
	assert.InDelta(t, 500, r.pacedRate(4*time.Second), 1e-9)
	assert.InDelta(t, 1000, r.pacedRate(9*time.Second+900*time.Millisecond), 1e-9)
	// Past the end the last step holds
	assert.InDelta(t, 1000, r.pacedRate(12*time.Second), 1e-9)

	steady := quickConfig("steady-rate")
	steady.SpawnRatePerSec = 250
	r, err = NewRunner(steady)
	require.NoError(t, err)
	assert.InDelta(t, 250, r.pacedRate(time.Second), 1e-9)
}

func TestNewRunnerValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *config.ScenarioConfig)
	}{
		{"no keys", func(cfg *config.ScenarioConfig) { cfg.Keys = nil }},
		{"unknown pattern", func(cfg *config.ScenarioConfig) { cfg.Pattern = "chaos" }},
		{"zero duration", func(cfg *config.ScenarioConfig) { cfg.Duration = 0 }},
		{"unnamed key", func(cfg *config.ScenarioConfig) { cfg.Keys[0].Key = "" }},
		{"negative weight", func(cfg *config.ScenarioConfig) { cfg.Keys[0].Weight = -1 }},
		{"negative prewarm", func(cfg *config.ScenarioConfig) { cfg.Keys[0].Prewarm = -1 }},
		{"zero burst size", func(cfg *config.ScenarioConfig) {
			cfg.Pattern = PatternBurst
			cfg.BurstSize = 0
		}},
		{"zero ramp steps", func(cfg *config.ScenarioConfig) {
			cfg.Pattern = PatternRamp
			cfg.RampSteps = 0
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := quickConfig("invalid")
			tt.mutate(cfg)
			_, err := NewRunner(cfg)
			assert.Error(t, err)
		})
	}
}

func TestNewRunnerNilConfigNeedsKeys(t *testing.T) {
	_, err := NewRunner(nil)
	assert.Error(t, err)
}

func TestRunnerSteadyRun(t *testing.T) {
	cfg := quickConfig("steady")
	r, err := NewRunner(cfg)
	require.NoError(t, err)

	result := r.Run(context.Background())

	assert.Equal(t, PatternSteady, result.Pattern)
	assert.GreaterOrEqual(t, result.Duration, cfg.Duration)
	assert.Greater(t, result.Spawned, int64(0))
	assert.Equal(t, result.Spawned, result.Released, "workers drain held instances")
	assert.Equal(t, 8, result.Prewarmed)

	assert.Zero(t, result.Pool.Active)
	assert.Greater(t, result.Pool.Reused, int64(0), "lifetimes shorter than the run must recycle")

	report := result.Report()
	assert.Equal(t, result.Spawned, report["spawned"])
	assert.NotContains(t, report, "capture_path")
}

func TestRunnerUnthrottledRun(t *testing.T) {
	cfg := quickConfig("unthrottled")
	cfg.SpawnRatePerSec = 0
	cfg.ActiveLifetime = 0
	cfg.Duration = 50 * time.Millisecond

	r, err := NewRunner(cfg)
	require.NoError(t, err)
	result := r.Run(context.Background())

	assert.Greater(t, result.Spawned, int64(100), "unthrottled demand should dwarf paced rates")
	assert.Equal(t, result.Spawned, result.Released)
	assert.Zero(t, result.Pool.Active)
}

func TestRunnerBurstRun(t *testing.T) {
	cfg := quickConfig("bursty")
	cfg.Pattern = PatternBurst
	cfg.Duration = 80 * time.Millisecond
	cfg.BurstSize = 64
	cfg.BurstInterval = 20 * time.Millisecond

	r, err := NewRunner(cfg)
	require.NoError(t, err)
	result := r.Run(context.Background())

	assert.Equal(t, PatternBurst, result.Pattern)
	assert.GreaterOrEqual(t, result.Spawned, int64(64), "the first burst fires immediately")
	assert.Equal(t, result.Spawned, result.Released)
	assert.Zero(t, result.Pool.Active)
}

func TestRunnerRampRun(t *testing.T) {
	cfg := quickConfig("ramping")
	cfg.Pattern = PatternRamp
	cfg.Duration = 100 * time.Millisecond
	cfg.RampStartRate = 500
	cfg.RampEndRate = 4000
	cfg.RampSteps = 4

	r, err := NewRunner(cfg)
	require.NoError(t, err)
	result := r.Run(context.Background())

	assert.Greater(t, result.Spawned, int64(0))
	assert.Equal(t, result.Spawned, result.Released)
}

func TestRunnerRecordsCaptureSession(t *testing.T) {
	cfg := quickConfig("captured")
	cfg.Duration = 100 * time.Millisecond
	cfg.Capture.Enabled = true
	cfg.Capture.Directory = t.TempDir()

	r, err := NewRunner(cfg)
	require.NoError(t, err)
	result := r.Run(context.Background())

	require.NotEmpty(t, result.CapturePath)
	assert.Greater(t, result.CaptureEvents, uint64(0))

	report := result.Report()
	assert.Contains(t, report, "capture_path")

	summary, err := capture.Summarize(result.CapturePath, &cfg.Capture)
	require.NoError(t, err)
	assert.Equal(t, int(result.CaptureEvents), summary.Events)
	assert.Zero(t, summary.Malformed)

	var spawns, releases, prewarmed int
	for _, ks := range summary.Keys {
		spawns += ks.Spawns
		releases += ks.Releases
		prewarmed += ks.Prewarmed
	}
	assert.Equal(t, int(result.Spawned), spawns)
	assert.Equal(t, int(result.Released), releases)
	assert.Equal(t, result.Prewarmed, prewarmed)
}

func TestRunnerCancelledRun(t *testing.T) {
	cfg := quickConfig("cancelled")
	cfg.Duration = 10 * time.Second
	cfg.SpawnRatePerSec = 0

	r, err := NewRunner(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	result := r.Run(ctx)

	assert.Less(t, time.Since(start), 5*time.Second, "cancel must cut the run short")
	assert.Equal(t, result.Spawned, result.Released, "cancel still drains held instances")
	assert.Zero(t, result.Pool.Active)
}
