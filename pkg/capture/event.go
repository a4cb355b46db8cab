// Package capture records spawn/release workloads to NDJSON session files
// and replays them against a manager. Captured sessions make pool behavior
// reproducible: a workload observed in production can be replayed in a
// bench harness at any speed and the pool counters compared run over run.
//
// A session file is one header line followed by one line per event,
// optionally compressed. The file extension names the codec (.gz, .zst,
// .lz4, .sz, .s2); plain files can be read through the memory-mapped line
// reader, compressed ones are stream-decompressed.
//
// Recording hooks into a manager through its observer:
//
//	rec, err := capture.NewRecorder("captures/session.ndjson.zst", &cfg.Capture)
//	if err != nil {
//	    return err
//	}
//	rec.Attach(mgr)
//	defer rec.Close()
//
// Replaying drives a manager from a session file:
//
//	rep := capture.NewReplayer(mgr, &cfg.Capture)
//	if err := rep.Replay(ctx, "captures/session.ndjson.zst"); err != nil {
//	    return err
//	}
package capture

import (
	"time"

	"github.com/ajitpratap0/respawn/pkg/spawn"
)

// FormatVersion identifies the session file layout. Readers reject files
// written by a newer layout than they understand.
const FormatVersion = 1

// Header is the first line of every session file.
type Header struct {
	SessionID   string    `json:"session_id"`
	Name        string    `json:"name"`
	Version     int       `json:"version"`
	StartedAt   time.Time `json:"started_at"`
	Compression string    `json:"compression,omitempty"`
}

// Event is one recorded manager operation. ElapsedNs is the offset from the
// session's StartedAt, which replay scales by the speed multiplier.
type Event struct {
	Seq       uint64 `json:"seq"`
	ElapsedNs int64  `json:"elapsed_ns"`
	Op        string `json:"op"`
	Key       string `json:"key"`
	Group     string `json:"group,omitempty"`
	ID        string `json:"id,omitempty"`
	Source    string `json:"source,omitempty"`
	Outcome   string `json:"outcome,omitempty"`
	Count     int    `json:"count,omitempty"`
}

// Elapsed returns the event's offset from the session start.
func (e *Event) Elapsed() time.Duration {
	return time.Duration(e.ElapsedNs)
}

// fromObserved converts a manager event into its wire form.
func fromObserved(ev spawn.Event, seq uint64, elapsed time.Duration) Event {
	return Event{
		Seq:       seq,
		ElapsedNs: elapsed.Nanoseconds(),
		Op:        string(ev.Op),
		Key:       ev.Key,
		Group:     ev.Group,
		ID:        ev.ID,
		Source:    ev.Source,
		Outcome:   ev.Outcome,
		Count:     ev.Count,
	}
}
