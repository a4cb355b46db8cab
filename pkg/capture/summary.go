package capture

import (
	"io"
	"time"

	"github.com/ajitpratap0/respawn/pkg/config"
	"github.com/ajitpratap0/respawn/pkg/errors"
	"github.com/ajitpratap0/respawn/pkg/spawn"
)

// Summary describes a session file without replaying it.
type Summary struct {
	Path      string               `json:"path"`
	Header    Header               `json:"header"`
	Events    int                  `json:"events"`
	Malformed int                  `json:"malformed,omitempty"`
	Duration  time.Duration        `json:"duration"`
	Ops       map[string]int       `json:"ops"`
	Keys      map[string]*KeyStats `json:"keys"`
}

// KeyStats breaks a session down per lookup key.
type KeyStats struct {
	Spawns    int `json:"spawns"`
	Created   int `json:"created"`
	Reused    int `json:"reused"`
	Releases  int `json:"releases"`
	Pooled    int `json:"pooled"`
	Discarded int `json:"discarded"`
	Prewarmed int `json:"prewarmed"`
}

// ReuseRate returns the fraction of recorded spawns that were served from
// a pool rather than freshly created.
func (s *Summary) ReuseRate() float64 {
	var created, reused int
	for _, ks := range s.Keys {
		created += ks.Created
		reused += ks.Reused
	}
	total := created + reused
	if total == 0 {
		return 0
	}
	return float64(reused) / float64(total)
}

// Summarize reads a session file and tallies its events per operation and
// per key. Malformed lines are counted, not fatal. Duration is the offset
// of the last event in the recording.
func Summarize(path string, cfg *config.CaptureConfig) (*Summary, error) {
	reader, err := NewReader(path, cfg)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	s := &Summary{
		Path:   path,
		Header: reader.Header(),
		Ops:    make(map[string]int),
		Keys:   make(map[string]*KeyStats),
	}

	for {
		ev, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			if !errors.IsType(err, errors.ErrorTypeValidation) {
				return nil, err
			}
			s.Malformed++
			continue
		}

		s.Events++
		s.Ops[ev.Op]++
		if ev.Elapsed() > s.Duration {
			s.Duration = ev.Elapsed()
		}

		ks := s.Keys[ev.Key]
		if ks == nil {
			ks = &KeyStats{}
			s.Keys[ev.Key] = ks
		}

		switch ev.Op {
		case string(spawn.OpSpawn):
			ks.Spawns++
			switch ev.Source {
			case spawn.SourceCreated:
				ks.Created++
			case spawn.SourceReused:
				ks.Reused++
			}
		case string(spawn.OpRelease):
			ks.Releases++
			switch ev.Outcome {
			case spawn.OutcomePooled:
				ks.Pooled++
			case spawn.OutcomeDiscarded:
				ks.Discarded++
			}
		case string(spawn.OpPrewarm):
			ks.Prewarmed += ev.Count
		}
	}

	return s, nil
}
