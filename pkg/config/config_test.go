package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	cfg := New("arena")

	assert.Equal(t, "arena", cfg.Name)
	assert.Equal(t, "1.0.0", cfg.Version)
	assert.Equal(t, 16, cfg.Pools.InitialCapacity)
	assert.Equal(t, 0, cfg.Pools.MaxIdlePerKey)
	assert.False(t, cfg.Pools.IsBounded())
	assert.True(t, cfg.Warmup.OnStart)
	assert.Equal(t, "actors", cfg.Groups.Default)
	assert.True(t, cfg.Groups.Track)
	assert.False(t, cfg.Capture.Enabled)
	assert.Equal(t, "gzip", cfg.Capture.Compression)
	assert.Equal(t, 1.0, cfg.Capture.Speed)
	assert.True(t, cfg.Capture.UseMmap)
	assert.Equal(t, "info", cfg.Observability.LogLevel)
	assert.True(t, cfg.Memory.EnablePools)
	assert.Equal(t, 4096, cfg.Advanced.RecyclerQueueSize)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*BaseConfig)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(cfg *BaseConfig) {},
		},
		{
			name:    "missing name",
			mutate:  func(cfg *BaseConfig) { cfg.Name = "" },
			wantErr: "name is required",
		},
		{
			name:    "negative initial capacity",
			mutate:  func(cfg *BaseConfig) { cfg.Pools.InitialCapacity = -1 },
			wantErr: "initial_capacity",
		},
		{
			name:    "negative idle cap",
			mutate:  func(cfg *BaseConfig) { cfg.Pools.MaxIdlePerKey = -5 },
			wantErr: "max_idle_per_key",
		},
		{
			name: "warmup entry without key",
			mutate: func(cfg *BaseConfig) {
				cfg.Warmup.Entries = []WarmupEntry{{Count: 10}}
			},
			wantErr: "warmup entries require a key",
		},
		{
			name: "negative warmup count",
			mutate: func(cfg *BaseConfig) {
				cfg.Warmup.Entries = []WarmupEntry{{Key: "enemy", Count: -1}}
			},
			wantErr: "warmup count",
		},
		{
			name:    "unknown compression",
			mutate:  func(cfg *BaseConfig) { cfg.Capture.Compression = "brotli" },
			wantErr: "unknown capture compression",
		},
		{
			name: "capture enabled with zero buffer",
			mutate: func(cfg *BaseConfig) {
				cfg.Capture.Enabled = true
				cfg.Capture.BufferSize = 0
			},
			wantErr: "buffer_size",
		},
		{
			name:    "negative replay speed",
			mutate:  func(cfg *BaseConfig) { cfg.Capture.Speed = -1 },
			wantErr: "speed",
		},
		{
			name:    "sample rate out of range",
			mutate:  func(cfg *BaseConfig) { cfg.Observability.TracingSampleRate = 1.5 },
			wantErr: "tracing_sample_rate",
		},
		{
			name: "recycler queue not power of two",
			mutate: func(cfg *BaseConfig) {
				cfg.Advanced.EnableRecycler = true
				cfg.Advanced.RecyclerQueueSize = 1000
			},
			wantErr: "power of two",
		},
		{
			name: "recycler queue power of two",
			mutate: func(cfg *BaseConfig) {
				cfg.Advanced.EnableRecycler = true
				cfg.Advanced.RecyclerQueueSize = 1024
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New("arena")
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("RESPAWN_TEST_CAPTURE_DIR", "/tmp/captures")

	content := `
name: arena
capture:
  enabled: true
  directory: ${RESPAWN_TEST_CAPTURE_DIR}
  compression: zstd
pools:
  initial_capacity: 64
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadBase(path)
	require.NoError(t, err)

	assert.Equal(t, "arena", cfg.Name)
	assert.Equal(t, "/tmp/captures", cfg.Capture.Directory)
	assert.Equal(t, "zstd", cfg.Capture.Compression)
	assert.Equal(t, 64, cfg.Pools.InitialCapacity)
	// Untouched sections keep their defaults
	assert.Equal(t, "actors", cfg.Groups.Default)
	assert.Equal(t, 65536, cfg.Capture.BufferSize)
}

func TestLoadBaseRejectsInvalid(t *testing.T) {
	content := `
name: arena
capture:
  compression: brotli
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := LoadBase(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown capture compression")
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := New("arena")
	cfg.Pools.MaxIdlePerKey = 128
	cfg.Warmup.Entries = []WarmupEntry{{Key: "projectile", Count: 32}}

	path := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, Save(path, cfg))

	loaded, err := LoadBase(path)
	require.NoError(t, err)
	assert.Equal(t, 128, loaded.Pools.MaxIdlePerKey)
	require.Len(t, loaded.Warmup.Entries, 1)
	assert.Equal(t, "projectile", loaded.Warmup.Entries[0].Key)
	assert.Equal(t, 32, loaded.Warmup.Entries[0].Count)
}

func TestScenarioValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ScenarioConfig)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(cfg *ScenarioConfig) {},
		},
		{
			name:    "unknown pattern",
			mutate:  func(cfg *ScenarioConfig) { cfg.Pattern = "sawtooth" },
			wantErr: "unknown pattern",
		},
		{
			name:    "zero duration",
			mutate:  func(cfg *ScenarioConfig) { cfg.Duration = 0 },
			wantErr: "duration",
		},
		{
			name: "burst without interval",
			mutate: func(cfg *ScenarioConfig) {
				cfg.Pattern = "burst"
				cfg.BurstInterval = 0
			},
			wantErr: "burst_interval",
		},
		{
			name: "ramp without steps",
			mutate: func(cfg *ScenarioConfig) {
				cfg.Pattern = "ramp"
				cfg.RampSteps = 0
			},
			wantErr: "ramp_steps",
		},
		{
			name: "key without name",
			mutate: func(cfg *ScenarioConfig) {
				cfg.Keys = []ScenarioKey{{Weight: 3}}
			},
			wantErr: "scenario keys require a key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewScenarioConfig("bench")
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestScenarioWorkersDefault(t *testing.T) {
	cfg := NewScenarioConfig("bench")
	assert.Greater(t, cfg.GetWorkers(), 0)

	cfg.Workers = 7
	assert.Equal(t, 7, cfg.GetWorkers())
}

func TestWarmupTotal(t *testing.T) {
	w := WarmupConfig{Entries: []WarmupEntry{
		{Key: "projectile", Count: 100},
		{Key: "enemy", Count: 28},
	}}
	assert.Equal(t, 128, w.Total())

	var empty WarmupConfig
	assert.Equal(t, 0, empty.Total())
}

func TestLoadScenario(t *testing.T) {
	content := `
name: wave-assault
pattern: burst
duration: 30s
burst_size: 512
burst_interval: 500ms
keys:
  - key: enemy_grunt
    weight: 5
    prewarm: 64
  - key: muzzle_flash
    weight: 2
`
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "wave-assault", cfg.Name)
	assert.Equal(t, "burst", cfg.Pattern)
	assert.Equal(t, 30*time.Second, cfg.Duration)
	assert.Equal(t, 512, cfg.BurstSize)
	require.Len(t, cfg.Keys, 2)
	assert.Equal(t, "enemy_grunt", cfg.Keys[0].Key)
	assert.Equal(t, 64, cfg.Keys[0].Prewarm)
}
