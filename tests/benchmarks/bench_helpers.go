// Package benchmarks holds cross-package benchmarks for the spawn
// pipeline: pool serving under different shapes, capture recording and
// replay, and profiler instrumentation overhead. Micro benchmarks that
// target a single package live next to the code they measure.
package benchmarks

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/respawn/pkg/capture"
	"github.com/ajitpratap0/respawn/pkg/config"
	"github.com/ajitpratap0/respawn/pkg/spawn"
)

// benchInstance pads clones with enough state to make instantiation cost
// visible next to pool reuse.
type benchInstance struct {
	*spawn.Entity
	velocity [3]float64
	payload  [256]byte
}

// newBenchProto returns a prototype whose clones carry gameplay-sized state.
func newBenchProto(key string) spawn.Prototype {
	return spawn.NewBasic(key, func() spawn.Instance {
		return &benchInstance{Entity: spawn.NewEntity(spawn.CloneName(key))}
	})
}

// newBenchManager builds a manager with metrics off so allocation counts
// reflect the pool alone. mutate adjusts the config before construction.
func newBenchManager(tb testing.TB, mutate func(*config.BaseConfig)) *spawn.Manager {
	tb.Helper()

	cfg := config.New("bench")
	cfg.Observability.EnableMetrics = false
	cfg.Groups.Default = "bench-actors"
	if mutate != nil {
		mutate(cfg)
	}
	return spawn.New(cfg)
}

// writeSession records one prewarm followed by pairs spawn/release pairs
// for a single key and returns the session path.
func writeSession(tb testing.TB, cfg *config.CaptureConfig, name string, pairs int) string {
	tb.Helper()

	path, err := capture.SessionPath(cfg, name)
	require.NoError(tb, err)
	rec, err := capture.NewRecorder(path, cfg)
	require.NoError(tb, err)

	rec.Record(spawn.Event{Op: spawn.OpPrewarm, Key: "projectile", Group: "bench-actors", Count: 8})
	for i := 0; i < pairs; i++ {
		id := fmt.Sprintf("inst-%08d", i)
		rec.Record(spawn.Event{
			Op: spawn.OpSpawn, Key: "projectile", Group: "bench-actors",
			ID: id, Source: spawn.SourceReused,
		})
		rec.Record(spawn.Event{
			Op: spawn.OpRelease, Key: "projectile", Group: "bench-actors",
			ID: id, Outcome: spawn.OutcomePooled,
		})
	}
	require.NoError(tb, rec.Close())
	require.EqualValues(tb, 1+2*pairs, rec.Written())
	return path
}
