package capture

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ajitpratap0/respawn/pkg/compression"
	"github.com/ajitpratap0/respawn/pkg/config"
	"github.com/ajitpratap0/respawn/pkg/errors"
	jsonpool "github.com/ajitpratap0/respawn/pkg/json"
	"github.com/ajitpratap0/respawn/pkg/logger"
	"github.com/ajitpratap0/respawn/pkg/metrics"
	"github.com/ajitpratap0/respawn/pkg/spawn"
)

var newline = []byte("\n")

// Recorder writes manager events to a session file as they happen.
// The compression codec is taken from the file extension, so the path
// built by SessionPath always round-trips through a Reader.
//
// Record never fails: events that cannot be encoded or written are
// dropped with a logged warning, the same contract the manager itself
// follows. A closed recorder drops silently, which makes it safe to
// leave one attached to a manager after Close.
type Recorder struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	buf     *bufio.Writer
	codec   io.WriteCloser
	header  Header
	start   time.Time
	seq     uint64
	written uint64
	dropped uint64
	closed  bool

	stopFlush chan struct{}
	flushWG   sync.WaitGroup

	logger *zap.Logger
}

// SessionPath builds the file path for a new session named name under the
// configured capture directory, with the extension matching the configured
// codec.
func SessionPath(cfg *config.CaptureConfig, name string) (string, error) {
	algo, err := compression.ParseAlgorithm(cfg.Compression)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeConfig, "resolving capture codec")
	}
	return filepath.Join(cfg.Directory, name+".ndjson"+compression.Extension(algo)), nil
}

// sessionName derives the session name from a file path by stripping the
// codec extension and the .ndjson suffix.
func sessionName(path string) string {
	base := filepath.Base(path)
	if ext := compression.Extension(compression.AlgorithmFromPath(base)); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return strings.TrimSuffix(base, ".ndjson")
}

// NewRecorder opens a session file at path and writes its header. Parent
// directories are created as needed. A nil cfg uses defaults.
func NewRecorder(path string, cfg *config.CaptureConfig) (*Recorder, error) {
	if cfg == nil {
		base := config.New("respawn")
		cfg = &base.Capture
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "creating capture directory")
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "creating capture session file")
	}

	bufSize := cfg.BufferSize
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	buf := bufio.NewWriterSize(file, bufSize)

	algo := compression.AlgorithmFromPath(path)
	codec, err := compression.NewStreamWriter(algo, compression.Default, buf)
	if err != nil {
		file.Close()
		return nil, err
	}

	now := time.Now()
	r := &Recorder{
		path:  path,
		file:  file,
		buf:   buf,
		codec: codec,
		start: now,
		header: Header{
			SessionID: uuid.New().String(),
			Name:      sessionName(path),
			Version:   FormatVersion,
			StartedAt: now,
		},
		logger: logger.Get().With(
			zap.String("component", "capture_recorder"),
			zap.String("path", path),
		),
	}
	if algo != compression.None {
		r.header.Compression = string(algo)
	}

	if err := r.writeLine(&r.header); err != nil {
		codec.Close()
		file.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "writing capture header")
	}

	if cfg.FlushInterval > 0 {
		r.stopFlush = make(chan struct{})
		r.flushWG.Add(1)
		go r.flushLoop(cfg.FlushInterval)
	}

	r.logger.Info("capture session started",
		zap.String("session_id", r.header.SessionID),
		zap.String("compression", string(algo)))

	return r, nil
}

// Attach registers the recorder as the manager's observer. The manager
// supports a single observer, so attaching replaces any previous one.
func (r *Recorder) Attach(m *spawn.Manager) {
	m.SetObserver(r.Record)
}

// Record appends one event to the session. Safe for concurrent use.
func (r *Recorder) Record(ev spawn.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		r.dropped++
		metrics.CaptureDroppedTotal.Inc()
		return
	}

	r.seq++
	wire := fromObserved(ev, r.seq, time.Since(r.start))
	if err := r.writeLine(&wire); err != nil {
		r.seq--
		r.dropped++
		metrics.CaptureDroppedTotal.Inc()
		r.logger.Warn("dropping capture event",
			zap.String("op", string(ev.Op)),
			zap.String("key", ev.Key),
			zap.Error(err))
		return
	}

	r.written++
	metrics.CaptureEventsTotal.WithLabelValues(string(ev.Op)).Inc()
}

// writeLine marshals v and writes it as one newline-terminated line.
func (r *Recorder) writeLine(v interface{}) error {
	line, err := jsonpool.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := r.codec.Write(line); err != nil {
		return err
	}
	_, err = r.codec.Write(newline)
	return err
}

// Flush pushes buffered data down to the file. The codec layer is flushed
// first so compressed frames are complete before the byte buffer drains.
func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	return r.flushLocked()
}

func (r *Recorder) flushLocked() error {
	type flusher interface{ Flush() error }
	if f, ok := r.codec.(flusher); ok {
		if err := f.Flush(); err != nil {
			return err
		}
	}
	return r.buf.Flush()
}

func (r *Recorder) flushLoop(interval time.Duration) {
	defer r.flushWG.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stopFlush:
			return
		case <-ticker.C:
			if err := r.Flush(); err != nil {
				r.logger.Warn("capture flush failed", zap.Error(err))
			}
		}
	}
}

// Close finalizes the session file. Events recorded after Close are
// dropped. Close is idempotent.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	if r.stopFlush != nil {
		close(r.stopFlush)
		r.flushWG.Wait()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	if err := r.codec.Close(); err != nil {
		firstErr = err
	}
	if err := r.buf.Flush(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := r.file.Close(); err != nil && firstErr == nil {
		firstErr = err
	}

	r.logger.Info("capture session closed",
		zap.String("session_id", r.header.SessionID),
		zap.Uint64("events", r.written),
		zap.Uint64("dropped", r.dropped))

	if firstErr != nil {
		return errors.Wrap(firstErr, errors.ErrorTypeFile, "closing capture session")
	}
	return nil
}

// Header returns the session header written at the top of the file.
func (r *Recorder) Header() Header {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.header
}

// Path returns the session file path.
func (r *Recorder) Path() string {
	return r.path
}

// Written returns the number of events recorded so far.
func (r *Recorder) Written() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written
}

// Dropped returns the number of events that could not be recorded.
func (r *Recorder) Dropped() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}
