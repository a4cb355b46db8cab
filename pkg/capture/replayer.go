package capture

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/respawn/pkg/config"
	"github.com/ajitpratap0/respawn/pkg/errors"
	"github.com/ajitpratap0/respawn/pkg/logger"
	"github.com/ajitpratap0/respawn/pkg/metrics"
	"github.com/ajitpratap0/respawn/pkg/spawn"
)

// Replayer drives a manager through the operations of a recorded session.
// Spawned instances are tracked by their recorded IDs so releases find
// the matching live instance. Keys with no registered prototype get a
// generic stand-in, which is enough to reproduce pool behavior.
//
// Pacing follows the config: Speed scales the recorded offsets (0 replays
// as fast as possible) and MaxEventsPerSec caps the absolute rate.
//
// A Replayer is reusable across sessions but not safe for concurrent
// Replay calls.
type Replayer struct {
	manager *spawn.Manager
	cfg     *config.CaptureConfig
	protos  map[string]spawn.Prototype
	logger  *zap.Logger
}

// ReplayStats summarizes one replay run.
type ReplayStats struct {
	Header   Header        `json:"header"`
	Events   int           `json:"events"`
	Spawns   int           `json:"spawns"`
	Releases int           `json:"releases"`
	Prewarms int           `json:"prewarms"`
	Skipped  int           `json:"skipped"`
	Duration time.Duration `json:"duration"`
}

// NewReplayer creates a replayer targeting m. A nil cfg uses defaults.
func NewReplayer(m *spawn.Manager, cfg *config.CaptureConfig) *Replayer {
	if cfg == nil {
		base := config.New("respawn")
		cfg = &base.Capture
	}
	return &Replayer{
		manager: m,
		cfg:     cfg,
		protos:  make(map[string]spawn.Prototype),
		logger:  logger.Get().With(zap.String("component", "capture_replayer")),
	}
}

// Register maps prototypes to their lookup keys so replayed spawns build
// real instances instead of generic stand-ins.
func (r *Replayer) Register(protos ...spawn.Prototype) {
	for _, p := range protos {
		if p == nil {
			continue
		}
		r.protos[spawn.SpawnKey(p.DisplayName())] = p
	}
}

// Replay applies every event in the session file at path to the manager.
// Malformed lines are skipped with a warning so one bad record cannot kill
// a long replay. Returns the stats collected so far alongside any error.
func (r *Replayer) Replay(ctx context.Context, path string) (*ReplayStats, error) {
	reader, err := NewReader(path, r.cfg)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	stats := &ReplayStats{Header: reader.Header()}
	pace := newPacer(r.cfg.Speed, r.cfg.MaxEventsPerSec)
	live := make(map[string]spawn.Instance)
	start := time.Now()

	r.logger.Info("replay started",
		zap.String("path", path),
		zap.String("session_id", stats.Header.SessionID),
		zap.Float64("speed", r.cfg.Speed))

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		ev, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			if !errors.IsType(err, errors.ErrorTypeValidation) {
				return stats, err
			}
			stats.Skipped++
			r.logger.Warn("skipping malformed capture line", zap.Error(err))
			continue
		}

		if err := pace.wait(ctx, ev.Elapsed()); err != nil {
			return stats, err
		}

		r.apply(ev, live, stats)
		stats.Events++
		metrics.ReplayEventsTotal.WithLabelValues(ev.Op).Inc()
	}

	stats.Duration = time.Since(start)
	r.logger.Info("replay finished",
		zap.String("session_id", stats.Header.SessionID),
		zap.Int("events", stats.Events),
		zap.Int("spawns", stats.Spawns),
		zap.Int("releases", stats.Releases),
		zap.Int("skipped", stats.Skipped),
		zap.Duration("duration", stats.Duration))

	return stats, nil
}

func (r *Replayer) apply(ev *Event, live map[string]spawn.Instance, stats *ReplayStats) {
	switch ev.Op {
	case string(spawn.OpSpawn):
		inst := r.manager.Spawn(r.protoFor(ev.Key), r.groupOption(ev.Group)...)
		if inst == nil {
			stats.Skipped++
			return
		}
		if ev.ID != "" {
			live[ev.ID] = inst
		}
		stats.Spawns++

	case string(spawn.OpRelease):
		inst, ok := live[ev.ID]
		if !ok {
			stats.Skipped++
			r.logger.Warn("release for unknown instance",
				zap.String("key", ev.Key),
				zap.String("id", ev.ID))
			return
		}
		delete(live, ev.ID)
		r.manager.Release(inst)
		stats.Releases++

	case string(spawn.OpPrewarm):
		r.manager.Prewarm(r.protoFor(ev.Key), ev.Count)
		stats.Prewarms++

	default:
		stats.Skipped++
		r.logger.Warn("unknown capture op", zap.String("op", ev.Op))
	}
}

// protoFor returns the registered prototype for key, manufacturing a
// generic one on first use otherwise.
func (r *Replayer) protoFor(key string) spawn.Prototype {
	if p, ok := r.protos[key]; ok {
		return p
	}
	p := spawn.NewBasic(key, nil)
	r.protos[key] = p
	return p
}

// groupOption maps a recorded group name back to a spawn option. The
// manager records "none" for untracked spawns; an empty name defers to
// the replay manager's default group.
func (r *Replayer) groupOption(name string) []spawn.SpawnOption {
	switch name {
	case "":
		return nil
	case spawn.GroupNone.Name():
		return []spawn.SpawnOption{spawn.InGroup(spawn.GroupNone)}
	default:
		return []spawn.SpawnOption{spawn.InGroup(r.manager.Group(name))}
	}
}
