package performance

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/respawn/pkg/errors"
	"github.com/ajitpratap0/respawn/pkg/logger"
)

// ProfileType selects a pprof surface to capture.
type ProfileType string

// Supported profile types.
const (
	CPUProfile       ProfileType = "cpu"
	HeapProfile      ProfileType = "heap"
	BlockProfile     ProfileType = "block"
	MutexProfile     ProfileType = "mutex"
	GoroutineProfile ProfileType = "goroutine"
	TraceProfile     ProfileType = "trace"
	AllProfiles      ProfileType = "all"
)

// ParseProfileTypes parses a comma-separated list of profile types, as
// passed on the command line.
func ParseProfileTypes(s string) ([]ProfileType, error) {
	var types []ProfileType
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		switch t := ProfileType(part); t {
		case CPUProfile, HeapProfile, BlockProfile, MutexProfile, GoroutineProfile, TraceProfile, AllProfiles:
			types = append(types, t)
		default:
			return nil, errors.New(errors.ErrorTypeValidation, "unknown profile type: "+part)
		}
	}
	if len(types) == 0 {
		return nil, errors.New(errors.ErrorTypeValidation, "no profile types given")
	}
	return types, nil
}

// ProfileConfig configures a pprof session.
type ProfileConfig struct {
	Types                []ProfileType
	OutputDir            string
	MemProfileRate       int
	BlockProfileRate     int
	MutexProfileFraction int
}

// DefaultProfileConfig captures CPU and heap profiles under ./profiles.
func DefaultProfileConfig() *ProfileConfig {
	return &ProfileConfig{
		Types:                []ProfileType{CPUProfile, HeapProfile},
		OutputDir:            "./profiles",
		MemProfileRate:       512 * 1024,
		BlockProfileRate:     1,
		MutexProfileFraction: 1,
	}
}

// ProfileSession manages pprof captures around a workload. Start opens the
// streaming profiles (cpu, trace), Stop writes the snapshot profiles and
// closes everything. One session per process at a time; the runtime owns a
// single CPU profiler.
type ProfileSession struct {
	mu        sync.Mutex
	config    *ProfileConfig
	logger    *zap.Logger
	startTime time.Time
	stamp     string
	cpuFile   *os.File
	traceFile *os.File
	files     []string
	active    bool
}

// NewProfileSession creates a session from config, falling back to the
// defaults when config is nil.
func NewProfileSession(config *ProfileConfig) *ProfileSession {
	if config == nil {
		config = DefaultProfileConfig()
	}
	return &ProfileSession{
		config: config,
		logger: logger.Get().With(zap.String("component", "profile_session")),
	}
}

// Start begins the session.
func (s *ProfileSession) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		return errors.New(errors.ErrorTypeState, "profile session already active")
	}

	if err := os.MkdirAll(s.config.OutputDir, 0o755); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "creating profile directory")
	}

	if s.config.MemProfileRate > 0 {
		runtime.MemProfileRate = s.config.MemProfileRate
	}
	if s.config.BlockProfileRate > 0 && s.has(BlockProfile) {
		runtime.SetBlockProfileRate(s.config.BlockProfileRate)
	}
	if s.config.MutexProfileFraction > 0 && s.has(MutexProfile) {
		runtime.SetMutexProfileFraction(s.config.MutexProfileFraction)
	}

	s.startTime = time.Now()
	s.stamp = s.startTime.Format("20060102_150405")
	s.files = nil

	if s.has(CPUProfile) {
		if err := s.startCPU(); err != nil {
			return err
		}
	}
	if s.has(TraceProfile) {
		if err := s.startTrace(); err != nil {
			if s.cpuFile != nil {
				pprof.StopCPUProfile()
				s.cpuFile.Close()
				s.cpuFile = nil
			}
			return err
		}
	}

	s.active = true
	s.logger.Info("profiling started",
		zap.String("output_dir", s.config.OutputDir),
		zap.Any("types", s.config.Types))
	return nil
}

// Stop finalizes the session, writing the snapshot profiles. The first
// failed snapshot is returned; the rest are still attempted.
func (s *ProfileSession) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return errors.New(errors.ErrorTypeState, "profile session not active")
	}
	s.active = false

	if s.cpuFile != nil {
		pprof.StopCPUProfile()
		s.cpuFile.Close()
		s.logger.Info("cpu profile saved", zap.String("file", s.cpuFile.Name()))
		s.cpuFile = nil
	}
	if s.traceFile != nil {
		trace.Stop()
		s.traceFile.Close()
		s.logger.Info("trace saved", zap.String("file", s.traceFile.Name()))
		s.traceFile = nil
	}

	var firstErr error
	snapshots := []struct {
		typ ProfileType
		fn  func() error
	}{
		{HeapProfile, s.saveHeap},
		{BlockProfile, func() error { return s.saveLookup("block", 0) }},
		{MutexProfile, func() error { return s.saveLookup("mutex", 0) }},
		{GoroutineProfile, func() error { return s.saveLookup("goroutine", 2) }},
	}
	for _, snap := range snapshots {
		if !s.has(snap.typ) {
			continue
		}
		if err := snap.fn(); err != nil {
			s.logger.Error("profile save failed",
				zap.String("type", string(snap.typ)), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	s.logger.Info("profiling completed",
		zap.Duration("duration", time.Since(s.startTime)),
		zap.Int("files", len(s.files)))
	return firstErr
}

// Files lists the profile files written so far.
func (s *ProfileSession) Files() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.files))
	copy(out, s.files)
	return out
}

func (s *ProfileSession) has(t ProfileType) bool {
	for _, pt := range s.config.Types {
		if pt == t || pt == AllProfiles {
			return true
		}
	}
	return false
}

func (s *ProfileSession) startCPU() error {
	file, err := s.createFile("cpu", "prof")
	if err != nil {
		return err
	}
	if err := pprof.StartCPUProfile(file); err != nil {
		file.Close()
		return errors.Wrap(err, errors.ErrorTypeInternal, "starting cpu profile")
	}
	s.cpuFile = file
	return nil
}

func (s *ProfileSession) startTrace() error {
	file, err := s.createFile("trace", "out")
	if err != nil {
		return err
	}
	if err := trace.Start(file); err != nil {
		file.Close()
		return errors.Wrap(err, errors.ErrorTypeInternal, "starting trace")
	}
	s.traceFile = file
	return nil
}

func (s *ProfileSession) saveHeap() error {
	file, err := s.createFile("heap", "prof")
	if err != nil {
		return err
	}
	defer file.Close()

	runtime.GC()
	if err := pprof.WriteHeapProfile(file); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "writing heap profile")
	}
	s.logger.Info("heap profile saved", zap.String("file", file.Name()))
	return nil
}

func (s *ProfileSession) saveLookup(name string, debug int) error {
	file, err := s.createFile(name, "prof")
	if err != nil {
		return err
	}
	defer file.Close()

	prof := pprof.Lookup(name)
	if prof == nil {
		return errors.New(errors.ErrorTypeInternal, "unknown pprof profile: "+name)
	}
	if err := prof.WriteTo(file, debug); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "writing "+name+" profile")
	}
	s.logger.Info(name+" profile saved", zap.String("file", file.Name()))
	return nil
}

func (s *ProfileSession) createFile(kind, ext string) (*os.File, error) {
	name := filepath.Join(s.config.OutputDir, fmt.Sprintf("%s_%s.%s", kind, s.stamp, ext))
	file, err := os.Create(name)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "creating "+kind+" profile file")
	}
	s.files = append(s.files, name)
	return file, nil
}
