// Package config provides tool-specific configurations that embed BaseConfig
package config

import (
	"fmt"
	"runtime"
	"time"
)

// ScenarioKey names one lookup key a workload exercises, its selection
// weight, and how many clones to prewarm before the run starts.
type ScenarioKey struct {
	Key     string `yaml:"key" json:"key" required:"true"`
	Weight  int    `yaml:"weight" json:"weight" default:"1"`
	Prewarm int    `yaml:"prewarm" json:"prewarm" default:"0"`
}

// ScenarioConfig contains configuration for synthetic spawn/release workloads
type ScenarioConfig struct {
	BaseConfig `yaml:",inline" json:",inline"`

	// Workload shape
	Pattern  string        `yaml:"pattern" json:"pattern" default:"steady"` // steady, burst, ramp
	Duration time.Duration `yaml:"duration" json:"duration" default:"10s"`
	Workers  int           `yaml:"workers" json:"workers" default:"0"` // 0 = NumCPU

	// Steady pattern configuration
	SpawnRatePerSec int           `yaml:"spawn_rate_per_sec" json:"spawn_rate_per_sec" default:"0"` // 0 = unthrottled
	ActiveLifetime  time.Duration `yaml:"active_lifetime" json:"active_lifetime" default:"50ms"`

	// Burst pattern configuration
	BurstSize     int           `yaml:"burst_size" json:"burst_size" default:"256"`
	BurstInterval time.Duration `yaml:"burst_interval" json:"burst_interval" default:"1s"`

	// Ramp pattern configuration
	RampStartRate int `yaml:"ramp_start_rate" json:"ramp_start_rate" default:"100"`
	RampEndRate   int `yaml:"ramp_end_rate" json:"ramp_end_rate" default:"10000"`
	RampSteps     int `yaml:"ramp_steps" json:"ramp_steps" default:"10"`

	// Key population
	Keys []ScenarioKey `yaml:"keys" json:"keys"`

	// Seed fixes the key-selection RNG (0 = time-based)
	Seed int64 `yaml:"seed" json:"seed" default:"0"`

	// ReportInterval controls periodic progress logging
	ReportInterval time.Duration `yaml:"report_interval" json:"report_interval" default:"5s"`
}

// NewScenarioConfig creates a ScenarioConfig with workload defaults
func NewScenarioConfig(name string) *ScenarioConfig {
	return &ScenarioConfig{
		BaseConfig:     *New(name),
		Pattern:        "steady",
		Duration:       10 * time.Second,
		ActiveLifetime: 50 * time.Millisecond,
		BurstSize:      256,
		BurstInterval:  time.Second,
		RampStartRate:  100,
		RampEndRate:    10000,
		RampSteps:      10,
		ReportInterval: 5 * time.Second,
	}
}

// Validate validates the scenario configuration
func (sc *ScenarioConfig) Validate() error {
	if err := sc.BaseConfig.Validate(); err != nil {
		return err
	}
	switch sc.Pattern {
	case "steady", "burst", "ramp":
	default:
		return fmt.Errorf("unknown pattern %q", sc.Pattern)
	}
	if sc.Duration <= 0 {
		return fmt.Errorf("duration must be positive")
	}
	if sc.Workers < 0 {
		return fmt.Errorf("workers cannot be negative")
	}
	if sc.SpawnRatePerSec < 0 {
		return fmt.Errorf("spawn_rate_per_sec cannot be negative")
	}
	for _, key := range sc.Keys {
		if key.Key == "" {
			return fmt.Errorf("scenario keys require a key")
		}
		if key.Weight < 0 {
			return fmt.Errorf("weight cannot be negative for key %q", key.Key)
		}
		if key.Prewarm < 0 {
			return fmt.Errorf("prewarm cannot be negative for key %q", key.Key)
		}
	}
	if sc.Pattern == "burst" {
		if sc.BurstSize <= 0 {
			return fmt.Errorf("burst_size must be positive")
		}
		if sc.BurstInterval <= 0 {
			return fmt.Errorf("burst_interval must be positive")
		}
	}
	if sc.Pattern == "ramp" {
		if sc.RampSteps <= 0 {
			return fmt.Errorf("ramp_steps must be positive")
		}
		if sc.RampStartRate < 0 || sc.RampEndRate < 0 {
			return fmt.Errorf("ramp rates cannot be negative")
		}
	}
	return nil
}

// GetWorkers returns the worker count, defaulting to the CPU count
func (sc *ScenarioConfig) GetWorkers() int {
	if sc.Workers <= 0 {
		return runtime.NumCPU()
	}
	return sc.Workers
}

// LoadScenario loads a ScenarioConfig from a YAML file and validates it
func LoadScenario(filePath string) (*ScenarioConfig, error) {
	cfg := NewScenarioConfig("")
	if err := Load(filePath, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", filePath, err)
	}
	return cfg, nil
}

// BenchConfig contains configuration for built-in micro benchmarks
type BenchConfig struct {
	BaseConfig `yaml:",inline" json:",inline"`

	// Iterations is the total spawn/release cycles to run
	Iterations int `yaml:"iterations" json:"iterations" default:"1000000"`
	// Parallelism is the number of concurrent benchmark goroutines (0 = NumCPU)
	Parallelism int `yaml:"parallelism" json:"parallelism" default:"0"`
	// PrewarmCount seeds each key's pool before timing starts
	PrewarmCount int `yaml:"prewarm_count" json:"prewarm_count" default:"1024"`
	// Keys lists the lookup keys the benchmark cycles through
	Keys []string `yaml:"keys" json:"keys"`
}

// NewBenchConfig creates a BenchConfig with benchmark defaults
func NewBenchConfig(name string) *BenchConfig {
	return &BenchConfig{
		BaseConfig:   *New(name),
		Iterations:   1000000,
		PrewarmCount: 1024,
		Keys:         []string{"projectile"},
	}
}

// GetParallelism returns the benchmark goroutine count, defaulting to the CPU count
func (bc *BenchConfig) GetParallelism() int {
	if bc.Parallelism <= 0 {
		return runtime.NumCPU()
	}
	return bc.Parallelism
}

// ReplayConfig contains configuration for capture replay
type ReplayConfig struct {
	BaseConfig `yaml:",inline" json:",inline"`

	// Path is the capture file to replay
	Path string `yaml:"path" json:"path" required:"true"`
	// Loop replays the capture this many times (0 = once)
	Loop int `yaml:"loop" json:"loop" default:"0"`
}
