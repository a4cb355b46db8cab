package mmap

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

func writeTempFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}
	return path
}

func TestReaderReadAll(t *testing.T) {
	content := []byte(`{"seq":0,"op":"spawn","key":"projectile"}` + "\n")
	path := writeTempFile(t, "session.ndjson", content)

	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer r.Close()

	data := r.ReadAll()
	if !bytes.Equal(data, content) {
		t.Errorf("ReadAll mismatch: got %q, want %q", data, content)
	}

	bytesRead, pagesRead := r.Stats()
	if bytesRead != int64(len(content)) {
		t.Errorf("Expected %d bytes read, got %d", len(content), bytesRead)
	}
	if pagesRead != 1 {
		t.Errorf("Expected 1 page read, got %d", pagesRead)
	}
}

func TestReaderReadRange(t *testing.T) {
	content := []byte("0123456789")
	path := writeTempFile(t, "range.bin", content)

	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer r.Close()

	got, err := r.ReadRange(2, 4)
	if err != nil {
		t.Fatalf("ReadRange failed: %v", err)
	}
	if string(got) != "2345" {
		t.Errorf("ReadRange(2, 4) = %q, want %q", got, "2345")
	}

	// Length past EOF is clamped
	got, err = r.ReadRange(8, 100)
	if err != nil {
		t.Fatalf("ReadRange failed: %v", err)
	}
	if string(got) != "89" {
		t.Errorf("ReadRange(8, 100) = %q, want %q", got, "89")
	}

	// Offset out of range
	if _, err := r.ReadRange(100, 1); err == nil {
		t.Error("ReadRange should reject out-of-range offset")
	}
	if _, err := r.ReadRange(-1, 1); err == nil {
		t.Error("ReadRange should reject negative offset")
	}
}

func TestReaderEmptyFile(t *testing.T) {
	path := writeTempFile(t, "empty.ndjson", nil)

	if _, err := NewReader(path); err == nil {
		t.Error("NewReader should fail on an empty file")
	}
}

func TestLineReaderBatches(t *testing.T) {
	var content bytes.Buffer
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&content, `{"seq":%d,"op":"spawn","key":"projectile"}`+"\n", i)
	}
	path := writeTempFile(t, "batches.ndjson", content.Bytes())

	lr, err := NewLineReader(path, 4)
	if err != nil {
		t.Fatalf("NewLineReader failed: %v", err)
	}
	defer lr.Close()

	var total int
	batchSizes := []int{}
	for {
		lines, err := lr.ReadBatch()
		if err != nil {
			t.Fatalf("ReadBatch failed: %v", err)
		}
		if lines == nil {
			break
		}
		batchSizes = append(batchSizes, len(lines))
		total += len(lines)

		for _, line := range lines {
			if line[len(line)-1] != '\n' {
				t.Errorf("Line missing trailing newline: %q", line)
			}
		}
	}

	if total != 10 {
		t.Errorf("Expected 10 lines total, got %d", total)
	}
	if len(batchSizes) != 3 || batchSizes[0] != 4 || batchSizes[1] != 4 || batchSizes[2] != 2 {
		t.Errorf("Expected batches [4 4 2], got %v", batchSizes)
	}
}

func TestLineReaderNoTrailingNewline(t *testing.T) {
	content := []byte("first\nsecond")
	path := writeTempFile(t, "partial.ndjson", content)

	lr, err := NewLineReader(path, 10)
	if err != nil {
		t.Fatalf("NewLineReader failed: %v", err)
	}
	defer lr.Close()

	lines, err := lr.ReadBatch()
	if err != nil {
		t.Fatalf("ReadBatch failed: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d", len(lines))
	}
	if string(lines[0]) != "first\n" {
		t.Errorf("First line = %q", lines[0])
	}
	if string(lines[1]) != "second" {
		t.Errorf("Last line = %q", lines[1])
	}
}

func TestLineReaderReset(t *testing.T) {
	content := []byte("a\nb\nc\n")
	path := writeTempFile(t, "reset.ndjson", content)

	lr, err := NewLineReader(path, 10)
	if err != nil {
		t.Fatalf("NewLineReader failed: %v", err)
	}
	defer lr.Close()

	first, err := lr.ReadBatch()
	if err != nil {
		t.Fatalf("ReadBatch failed: %v", err)
	}
	if len(first) != 3 {
		t.Fatalf("Expected 3 lines, got %d", len(first))
	}

	// Exhausted
	if lines, _ := lr.ReadBatch(); lines != nil {
		t.Errorf("Expected EOF, got %d lines", len(lines))
	}

	lr.Reset()
	second, err := lr.ReadBatch()
	if err != nil {
		t.Fatalf("ReadBatch after Reset failed: %v", err)
	}
	if len(second) != 3 {
		t.Errorf("Expected 3 lines after Reset, got %d", len(second))
	}
}

func TestProcessParallel(t *testing.T) {
	content := bytes.Repeat([]byte("x"), 64*1024)
	path := writeTempFile(t, "chunks.bin", content)

	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer r.Close()

	var seen int64
	err = r.ProcessParallel(func(chunk []byte, offset int64) error {
		atomic.AddInt64(&seen, int64(len(chunk)))
		return nil
	})
	if err != nil {
		t.Fatalf("ProcessParallel failed: %v", err)
	}

	if seen != int64(len(content)) {
		t.Errorf("Expected %d bytes processed, got %d", len(content), seen)
	}
}
