package capture

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/respawn/pkg/config"
	"github.com/ajitpratap0/respawn/pkg/spawn"
	"github.com/ajitpratap0/respawn/pkg/testutil"
)

// recordSession captures a fixed workload: prewarm, pooled reuse across
// two keys, one untracked spawn, and one instance left active at the end.
func recordSession(t *testing.T, cfg *config.BaseConfig, path string) spawn.Stats {
	t.Helper()

	rec, err := NewRecorder(path, &cfg.Capture)
	require.NoError(t, err)

	m := spawn.New(cfg)
	rec.Attach(m)

	projectile := spawn.NewBasic("projectile", nil)
	grunt := spawn.NewBasic("enemy_grunt", nil)

	m.Prewarm(projectile, 2)
	a := m.Spawn(projectile)
	b := m.Spawn(projectile)
	c := m.Spawn(grunt, spawn.InGroup(spawn.GroupNone))
	m.Release(a)
	m.Release(b)
	m.Spawn(projectile)
	m.Release(c)

	stats := m.Stats()
	require.NoError(t, rec.Close())
	return stats
}

func TestReplayReproducesPoolBehavior(t *testing.T) {
	dir := t.TempDir()
	recCfg := testConfig("rec", dir)
	path := filepath.Join(dir, "session.ndjson")
	want := recordSession(t, recCfg, path)

	playCfg := testConfig("play", dir)
	playCfg.Capture.Speed = 0

	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	m := spawn.New(playCfg)
	rep := NewReplayer(m, &playCfg.Capture)
	stats, err := rep.Replay(ctx, path)
	require.NoError(t, err)

	assert.Equal(t, 8, stats.Events)
	assert.Equal(t, 4, stats.Spawns)
	assert.Equal(t, 3, stats.Releases)
	assert.Equal(t, 1, stats.Prewarms)
	assert.Equal(t, 0, stats.Skipped)
	assert.Equal(t, "session", stats.Header.Name)

	// Same operation sequence against fresh pools lands on the same counters
	got := m.Stats()
	assert.Equal(t, want.Created, got.Created)
	assert.Equal(t, want.Reused, got.Reused)
	assert.Equal(t, want.Released, got.Released)
	assert.Equal(t, want.Idle, got.Idle)
	assert.Equal(t, want.Active, got.Active)
	assert.Equal(t, []string{"projectile", "enemy_grunt"}, m.Keys())

	// The recording manager's group is reproduced by name
	assert.Equal(t, 1, m.Group("rec-actors").Len())
}

func TestReplayUsesRegisteredPrototypes(t *testing.T) {
	dir := t.TempDir()
	recCfg := testConfig("proto-rec", dir)
	path := filepath.Join(dir, "protos.ndjson")
	recordSession(t, recCfg, path)

	playCfg := testConfig("proto-play", dir)
	playCfg.Capture.Speed = 0

	var built int32
	custom := spawn.NewBasic("projectile", func() spawn.Instance {
		atomic.AddInt32(&built, 1)
		return spawn.NewEntity("projectile (clone)")
	})

	m := spawn.New(playCfg)
	rep := NewReplayer(m, &playCfg.Capture)
	rep.Register(custom)

	_, err := rep.Replay(context.Background(), path)
	require.NoError(t, err)

	// Prewarm built two, every later projectile spawn was a pool hit
	assert.Equal(t, int32(2), atomic.LoadInt32(&built))
}

func TestReplaySkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dirty.ndjson")

	lines := []string{
		`{"session_id":"s1","name":"dirty","version":1,"started_at":"2026-08-01T10:00:00Z"}`,
		`{"seq":1,"elapsed_ns":0,"op":"spawn","key":"projectile","group":"none","id":"inst-900","source":"created"}`,
		`this is not json`,
		``,
		`{"seq":2,"elapsed_ns":1000,"op":"release","key":"projectile","id":"inst-900","outcome":"pooled"}`,
		`{"seq":3,"elapsed_ns":2000,"op":"teleport","key":"projectile"}`,
	}
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))

	cfg := testConfig("dirty", dir)
	cfg.Capture.Speed = 0

	m := spawn.New(cfg)
	rep := NewReplayer(m, &cfg.Capture)
	stats, err := rep.Replay(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Events)
	assert.Equal(t, 1, stats.Spawns)
	assert.Equal(t, 1, stats.Releases)
	assert.Equal(t, 2, stats.Skipped, "bad line and unknown op are skipped")

	rec, ok := m.Record("projectile")
	require.True(t, ok)
	assert.Equal(t, 1, rec.IdleLen())
}

func TestReplayReleaseForUnknownInstance(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orphan.ndjson")

	lines := []string{
		`{"session_id":"s2","name":"orphan","version":1,"started_at":"2026-08-01T10:00:00Z"}`,
		`{"seq":1,"elapsed_ns":0,"op":"release","key":"projectile","id":"inst-404","outcome":"pooled"}`,
	}
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))

	cfg := testConfig("orphan", dir)
	cfg.Capture.Speed = 0

	m := spawn.New(cfg)
	rep := NewReplayer(m, &cfg.Capture)
	stats, err := rep.Replay(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 0, stats.Releases)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 0, m.Len(), "an orphan release must not create pools")
}

func TestReplayCancelledContext(t *testing.T) {
	dir := t.TempDir()
	recCfg := testConfig("cancel-rec", dir)
	path := filepath.Join(dir, "cancel.ndjson")
	recordSession(t, recCfg, path)

	playCfg := testConfig("cancel-play", dir)
	playCfg.Capture.Speed = 0

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := spawn.New(playCfg)
	rep := NewReplayer(m, &playCfg.Capture)
	stats, err := rep.Replay(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, stats.Events)
}

func TestSummarizeTalliesSession(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig("sum", dir)
	path := filepath.Join(dir, "sum.ndjson")
	recordSession(t, cfg, path)

	s, err := Summarize(path, &cfg.Capture)
	require.NoError(t, err)

	assert.Equal(t, 8, s.Events)
	assert.Equal(t, 0, s.Malformed)
	assert.Equal(t, 4, s.Ops[string(spawn.OpSpawn)])
	assert.Equal(t, 3, s.Ops[string(spawn.OpRelease)])
	assert.Equal(t, 1, s.Ops[string(spawn.OpPrewarm)])

	proj := s.Keys["projectile"]
	require.NotNil(t, proj)
	assert.Equal(t, 3, proj.Spawns)
	assert.Equal(t, 3, proj.Reused)
	assert.Equal(t, 0, proj.Created)
	assert.Equal(t, 2, proj.Prewarmed)
	assert.Equal(t, 2, proj.Releases)
	assert.Equal(t, 2, proj.Pooled)

	grunt := s.Keys["enemy_grunt"]
	require.NotNil(t, grunt)
	assert.Equal(t, 1, grunt.Spawns)
	assert.Equal(t, 1, grunt.Created)
	assert.Equal(t, 1, grunt.Releases)

	// Three of the four recorded spawns were pool hits
	assert.InDelta(t, 0.75, s.ReuseRate(), 0.0001)
}

func TestSummarizeCountsMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.ndjson")

	lines := []string{
		`{"session_id":"s3","name":"broken","version":1,"started_at":"2026-08-01T10:00:00Z"}`,
		`{"seq":1,"elapsed_ns":5000,"op":"spawn","key":"projectile","source":"created"}`,
		`{{{`,
	}
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))

	s, err := Summarize(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Events)
	assert.Equal(t, 1, s.Malformed)
	assert.Equal(t, int64(5000), s.Duration.Nanoseconds())
}
