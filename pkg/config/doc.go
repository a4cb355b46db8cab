// Package config provides unified configuration management for the respawn toolkit.
//
// This package consolidates every tunable the manager, capture layer, and
// command-line tooling accept into a single, unified structure.
//
// # Key Features
//
// - BaseConfig: Single configuration structure shared across the toolkit
// - Structured sections: Pools, Warmup, Groups, Capture, Observability, Memory, Advanced
// - Environment variable substitution with ${VAR_NAME} syntax
// - Automatic defaults and validation
// - Tool configs (scenario, bench, replay) embed BaseConfig inline
//
// # Usage
//
// ## Basic Configuration Loading
//
//	cfg, err := config.LoadBase("config.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
// ## Creating Tool Configurations
//
//	type MyToolConfig struct {
//		config.BaseConfig `yaml:",inline" json:",inline"`
//
//		// Tool-specific fields
//		OutputPath string `yaml:"output_path" json:"output_path"`
//	}
//
//	func NewMyTool() *MyTool {
//		cfg := config.New("my-tool")
//		// cfg now has all sensible defaults
//
//		return &MyTool{config: cfg}
//	}
//
// ## Environment Variable Substitution
//
//	# config.yaml
//	name: arena-server
//	capture:
//	  enabled: true
//	  directory: ${CAPTURE_DIR}
//	  compression: zstd
//
// # Configuration Structure
//
// All configurations use the BaseConfig pattern:
//
//	type BaseConfig struct {
//		Name    string `yaml:"name" json:"name"`
//		Version string `yaml:"version" json:"version"`
//
//		Pools         PoolsConfig         `yaml:"pools" json:"pools"`
//		Warmup        WarmupConfig        `yaml:"warmup" json:"warmup"`
//		Groups        GroupsConfig        `yaml:"groups" json:"groups"`
//		Capture       CaptureConfig       `yaml:"capture" json:"capture"`
//		Observability ObservabilityConfig `yaml:"observability" json:"observability"`
//		Memory        MemoryConfig        `yaml:"memory" json:"memory"`
//		Advanced      AdvancedConfig      `yaml:"advanced" json:"advanced"`
//	}
//
// Each section provides structured, validated configuration:
//
// - Pools: Record sizing, idle caps per key
// - Warmup: Keys and counts to bootstrap at construction
// - Groups: Default group, membership tracking, extra groups
// - Capture: Recording directory, codec, replay pacing
// - Observability: Metrics, logging, tracing
// - Memory: Value pooling, key interning, buffer reuse
// - Advanced: Deferred-release recycler, debug output
//
// # Usage Pattern
//
// 1. Embed BaseConfig in tool-specific configurations
// 2. Use config.Load() for simple YAML loading
// 3. Use config.New() for programmatic creation
// 4. Environment variables are substituted automatically
// 5. Validation is performed on load
package config
