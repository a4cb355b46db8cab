package capture

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/ajitpratap0/respawn/pkg/compression"
	"github.com/ajitpratap0/respawn/pkg/config"
	"github.com/ajitpratap0/respawn/pkg/errors"
	jsonpool "github.com/ajitpratap0/respawn/pkg/json"
	"github.com/ajitpratap0/respawn/pkg/mmap"
)

const (
	// lineBatchSize is how many lines the memory-mapped reader pulls per batch.
	lineBatchSize = 1024
	// maxLineSize bounds a single event line on the streaming path.
	maxLineSize = 1024 * 1024
)

// Reader iterates the events of a session file. Plain files are read
// through the memory-mapped line reader when the config allows it,
// compressed files are stream-decompressed.
//
// Next returns io.EOF at the end of the session. Malformed event lines
// come back as validation errors and consume the line, so callers can
// skip them and keep iterating; read failures are file errors and are
// terminal.
type Reader struct {
	path   string
	src    lineSource
	header Header
	line   int
}

// lineSource yields raw session lines. io.EOF signals the end.
type lineSource interface {
	next() ([]byte, error)
	Close() error
}

// NewReader opens a session file and reads its header. A nil cfg uses
// defaults.
func NewReader(path string, cfg *config.CaptureConfig) (*Reader, error) {
	if cfg == nil {
		base := config.New("respawn")
		cfg = &base.Capture
	}

	algo := compression.AlgorithmFromPath(path)

	var src lineSource
	if algo == compression.None && cfg.UseMmap {
		lr, err := mmap.NewLineReader(path, lineBatchSize)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "mapping capture session file")
		}
		src = &mmapSource{lr: lr}
	} else {
		file, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "opening capture session file")
		}
		bufSize := cfg.BufferSize
		if bufSize <= 0 {
			bufSize = 64 * 1024
		}
		codec, err := compression.NewStreamReader(algo, bufio.NewReaderSize(file, bufSize))
		if err != nil {
			file.Close()
			return nil, err
		}
		scanner := bufio.NewScanner(codec)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		src = &streamSource{scanner: scanner, codec: codec, file: file}
	}

	r := &Reader{path: path, src: src}
	if err := r.readHeader(); err != nil {
		src.Close()
		return nil, err
	}
	return r, nil
}

func (r *Reader) readHeader() error {
	line, err := r.src.next()
	if err != nil {
		if err == io.EOF {
			return errors.New(errors.ErrorTypeValidation, "capture session file is empty")
		}
		return errors.Wrap(err, errors.ErrorTypeFile, "reading capture header")
	}
	r.line = 1

	var h Header
	if err := jsonpool.Unmarshal(bytes.TrimSpace(line), &h); err != nil {
		return errors.Wrap(err, errors.ErrorTypeValidation, "parsing capture header")
	}
	if h.Version > FormatVersion {
		return errors.New(errors.ErrorTypeValidation,
			fmt.Sprintf("capture format version %d is newer than supported version %d", h.Version, FormatVersion))
	}
	r.header = h
	return nil
}

// Header returns the session header.
func (r *Reader) Header() Header {
	return r.header
}

// Path returns the session file path.
func (r *Reader) Path() string {
	return r.path
}

// Next returns the next event. Blank lines are skipped. Returns io.EOF
// when the session is exhausted.
func (r *Reader) Next() (*Event, error) {
	for {
		line, err := r.src.next()
		if err != nil {
			if err == io.EOF {
				return nil, io.EOF
			}
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "reading capture session")
		}
		r.line++

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		var ev Event
		if err := jsonpool.Unmarshal(line, &ev); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeValidation,
				fmt.Sprintf("parsing capture event at line %d", r.line))
		}
		return &ev, nil
	}
}

// Close releases the underlying file or mapping.
func (r *Reader) Close() error {
	return r.src.Close()
}

// mmapSource reads lines from a memory-mapped file in batches. Lines keep
// their trailing newline; Next trims it.
type mmapSource struct {
	lr    *mmap.LineReader
	batch [][]byte
	i     int
}

func (s *mmapSource) next() ([]byte, error) {
	for s.i >= len(s.batch) {
		batch, err := s.lr.ReadBatch()
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			return nil, io.EOF
		}
		s.batch, s.i = batch, 0
	}
	line := s.batch[s.i]
	s.i++
	return line, nil
}

func (s *mmapSource) Close() error {
	return s.lr.Close()
}

// streamSource reads lines through a decompressing scanner.
type streamSource struct {
	scanner *bufio.Scanner
	codec   io.ReadCloser
	file    *os.File
}

func (s *streamSource) next() ([]byte, error) {
	if s.scanner.Scan() {
		return s.scanner.Bytes(), nil
	}
	if err := s.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

func (s *streamSource) Close() error {
	err := s.codec.Close()
	if cerr := s.file.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
