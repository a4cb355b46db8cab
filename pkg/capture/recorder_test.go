package capture

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/respawn/pkg/config"
	"github.com/ajitpratap0/respawn/pkg/errors"
	"github.com/ajitpratap0/respawn/pkg/spawn"
)

// testConfig builds a manager config whose default group is private to the
// test, with captures written uncompressed under dir.
func testConfig(name, dir string) *config.BaseConfig {
	cfg := config.New(name)
	cfg.Groups.Default = name + "-actors"
	cfg.Capture.Enabled = true
	cfg.Capture.Directory = dir
	cfg.Capture.Compression = "none"
	cfg.Capture.FlushInterval = 0
	return cfg
}

func TestSessionPathMatchesCodec(t *testing.T) {
	cfg := &config.CaptureConfig{Directory: "captures", Compression: "zstd"}

	path, err := SessionPath(cfg, "boss-fight")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("captures", "boss-fight.ndjson.zst"), path)

	cfg.Compression = "none"
	path, err = SessionPath(cfg, "boss-fight")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("captures", "boss-fight.ndjson"), path)

	cfg.Compression = "brotli"
	_, err = SessionPath(cfg, "boss-fight")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestRecorderRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig("roundtrip", dir)

	path, err := SessionPath(&cfg.Capture, "session")
	require.NoError(t, err)

	rec, err := NewRecorder(path, &cfg.Capture)
	require.NoError(t, err)

	m := spawn.New(cfg)
	rec.Attach(m)

	proto := spawn.NewBasic("projectile", nil)
	m.Prewarm(proto, 2)
	first := m.Spawn(proto)
	second := m.Spawn(proto)
	m.Release(first)
	m.Release(second)
	third := m.Spawn(proto)

	// Detached operations must not reach the session
	m.SetObserver(nil)
	m.Release(third)

	require.NoError(t, rec.Close())
	assert.Equal(t, uint64(6), rec.Written())
	assert.Equal(t, uint64(0), rec.Dropped())

	r, err := NewReader(path, &cfg.Capture)
	require.NoError(t, err)
	defer r.Close()

	h := r.Header()
	assert.Equal(t, "session", h.Name)
	assert.Equal(t, FormatVersion, h.Version)
	assert.NotEmpty(t, h.SessionID)
	assert.Empty(t, h.Compression)
	assert.False(t, h.StartedAt.IsZero())

	var events []*Event
	for {
		ev, err := r.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		events = append(events, ev)
	}
	require.Len(t, events, 6)

	for i, ev := range events {
		assert.Equal(t, uint64(i+1), ev.Seq)
		assert.Equal(t, "projectile", ev.Key)
	}

	assert.Equal(t, string(spawn.OpPrewarm), events[0].Op)
	assert.Equal(t, 2, events[0].Count)

	assert.Equal(t, string(spawn.OpSpawn), events[1].Op)
	assert.Equal(t, spawn.SourceReused, events[1].Source)
	assert.Equal(t, "roundtrip-actors", events[1].Group)
	assert.NotEmpty(t, events[1].ID)

	assert.Equal(t, string(spawn.OpRelease), events[3].Op)
	assert.Equal(t, spawn.OutcomePooled, events[3].Outcome)
	assert.Equal(t, events[1].ID, events[3].ID)

	// The final spawn reused the oldest pooled instance
	assert.Equal(t, spawn.SourceReused, events[5].Source)
	assert.Equal(t, events[1].ID, events[5].ID)
}

func TestRecorderCompressedRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig("gz", dir)
	cfg.Capture.Compression = "gzip"

	path, err := SessionPath(&cfg.Capture, "compressed")
	require.NoError(t, err)
	assert.Equal(t, ".gz", filepath.Ext(path))

	rec, err := NewRecorder(path, &cfg.Capture)
	require.NoError(t, err)

	m := spawn.New(cfg)
	rec.Attach(m)
	inst := m.Spawn(spawn.NewBasic("enemy_grunt", nil))
	m.Release(inst)
	require.NoError(t, rec.Close())

	r, err := NewReader(path, &cfg.Capture)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, "gzip", r.Header().Compression)

	ev, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, string(spawn.OpSpawn), ev.Op)
	assert.Equal(t, spawn.SourceCreated, ev.Source)

	ev, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, string(spawn.OpRelease), ev.Op)
	assert.Equal(t, spawn.OutcomePooled, ev.Outcome)

	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestRecorderDropsAfterClose(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig("closed", dir)
	path := filepath.Join(dir, "closed.ndjson")

	rec, err := NewRecorder(path, &cfg.Capture)
	require.NoError(t, err)
	require.NoError(t, rec.Close())
	require.NoError(t, rec.Close())

	rec.Record(spawn.Event{Op: spawn.OpSpawn, Key: "projectile"})
	assert.Equal(t, uint64(0), rec.Written())
	assert.Equal(t, uint64(1), rec.Dropped())
}

func TestRecorderConcurrentRecords(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig("concurrent", dir)
	path := filepath.Join(dir, "concurrent.ndjson")

	rec, err := NewRecorder(path, &cfg.Capture)
	require.NoError(t, err)

	const workers = 8
	const perWorker = 200

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				rec.Record(spawn.Event{
					Op:     spawn.OpSpawn,
					Key:    "projectile",
					Source: spawn.SourceCreated,
				})
			}
		}()
	}
	wg.Wait()
	require.NoError(t, rec.Close())
	assert.Equal(t, uint64(workers*perWorker), rec.Written())

	r, err := NewReader(path, &cfg.Capture)
	require.NoError(t, err)
	defer r.Close()

	seen := make(map[uint64]bool, workers*perWorker)
	count := 0
	for {
		ev, err := r.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		count++
		assert.False(t, seen[ev.Seq], "sequence numbers must be unique")
		seen[ev.Seq] = true
	}
	assert.Equal(t, workers*perWorker, count)
}

func TestReaderRejectsNewerVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "future.ndjson")
	header := `{"session_id":"s1","name":"future","version":99,"started_at":"2026-01-01T00:00:00Z"}` + "\n"
	require.NoError(t, os.WriteFile(path, []byte(header), 0o644))

	_, err := NewReader(path, nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestReaderEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.ndjson")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	cfg := &config.CaptureConfig{UseMmap: false}
	_, err := NewReader(path, cfg)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestReaderStreamPathWithoutMmap(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig("stream", dir)
	path := filepath.Join(dir, "stream.ndjson")

	rec, err := NewRecorder(path, &cfg.Capture)
	require.NoError(t, err)
	rec.Record(spawn.Event{Op: spawn.OpSpawn, Key: "pickup_health", Source: spawn.SourceCreated})
	require.NoError(t, rec.Close())

	cfg.Capture.UseMmap = false
	r, err := NewReader(path, &cfg.Capture)
	require.NoError(t, err)
	defer r.Close()

	ev, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "pickup_health", ev.Key)

	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}
