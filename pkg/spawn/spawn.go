package spawn

import (
	"sync"

	"github.com/ajitpratap0/respawn/pkg/config"
)

// Options control a single spawn request. Zero value means: join the
// manager's default group, no init hook.
type Options struct {
	group *Group
	init  func(Instance)
}

// SpawnOption mutates the options for one spawn request.
type SpawnOption func(*Options)

// InGroup places the spawned instance in g instead of the manager's
// default group. Pass GroupNone to opt this spawn out of group tracking.
func InGroup(g *Group) SpawnOption {
	return func(o *Options) {
		o.group = g
	}
}

// WithInit runs fn on the instance after activation, before it is handed
// back to the caller.
func WithInit(fn func(Instance)) SpawnOption {
	return func(o *Options) {
		o.init = fn
	}
}

var (
	defaultMu      sync.Mutex
	defaultManager *Manager
)

// Default returns the process-wide manager, creating it with default
// configuration on first use.
func Default() *Manager {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultManager == nil {
		defaultManager = New(config.New("respawn"))
	}
	return defaultManager
}

// SetDefault replaces the process-wide manager (mainly for testing).
// Passing nil restores lazy creation with default configuration.
func SetDefault(m *Manager) {
	defaultMu.Lock()
	defaultManager = m
	defaultMu.Unlock()
}

// Spawn serves an instance for proto from the process-wide manager.
func Spawn(proto Prototype, opts ...SpawnOption) Instance {
	return Default().Spawn(proto, opts...)
}

// Release returns an instance to its pool in the process-wide manager.
func Release(inst Instance) {
	Default().Release(inst)
}

// Prewarm bootstraps proto's pool in the process-wide manager so it holds
// at least n inactive instances.
func Prewarm(proto Prototype, n int) int {
	return Default().Prewarm(proto, n)
}
