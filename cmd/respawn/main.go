package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/respawn/internal/scenario"
	"github.com/ajitpratap0/respawn/pkg/capture"
	"github.com/ajitpratap0/respawn/pkg/config"
	jsonpool "github.com/ajitpratap0/respawn/pkg/json"
	"github.com/ajitpratap0/respawn/pkg/logger"
	"github.com/ajitpratap0/respawn/pkg/observability"
	"github.com/ajitpratap0/respawn/pkg/performance"
	"github.com/ajitpratap0/respawn/pkg/spawn"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load() // Ignore error if .env doesn't exist

	var logLevel string

	root := &cobra.Command{
		Use:   "respawn",
		Short: "Respawn - Keyed object pool toolkit for spawn-heavy workloads",
		Long: `Respawn recycles keyed instances instead of allocating them per use.
The CLI drives synthetic spawn workloads against a pool manager, replays
recorded capture sessions, and benchmarks spawn/release throughput.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logger.Init(logger.Config{Level: logLevel, Encoding: "json"})
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	// Version command
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Respawn v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	// Main run command: execute a synthetic workload scenario
	var scenarioFile string
	var pattern string
	var duration, lifetime, reportInterval time.Duration
	var workers, rate int
	var seed int64
	var keySpecs []string
	var captureEnabled bool
	var captureDir string

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a synthetic spawn workload",
		Long: `Run a synthetic spawn workload against a dedicated pool manager.
Scenarios can be loaded from a YAML file and overridden with flags.

Example:
  respawn run --pattern burst --duration 30s --keys projectile:4:256 --keys enemy_grunt
  respawn run --config arena.yaml --capture`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg *config.ScenarioConfig
			if scenarioFile != "" {
				loaded, err := config.LoadScenario(scenarioFile)
				if err != nil {
					return err
				}
				cfg = loaded
			} else {
				cfg = config.NewScenarioConfig("scenario")
			}

			flags := cmd.Flags()
			if flags.Changed("pattern") {
				cfg.Pattern = pattern
			}
			if flags.Changed("duration") {
				cfg.Duration = duration
			}
			if flags.Changed("workers") {
				cfg.Workers = workers
			}
			if flags.Changed("rate") {
				cfg.SpawnRatePerSec = rate
			}
			if flags.Changed("lifetime") {
				cfg.ActiveLifetime = lifetime
			}
			if flags.Changed("report-interval") {
				cfg.ReportInterval = reportInterval
			}
			if flags.Changed("seed") {
				cfg.Seed = seed
			}
			if flags.Changed("keys") {
				keys, err := parseScenarioKeys(keySpecs)
				if err != nil {
					return err
				}
				cfg.Keys = keys
			}
			if flags.Changed("capture") {
				cfg.Capture.Enabled = captureEnabled
			}
			if flags.Changed("capture-dir") {
				cfg.Capture.Directory = captureDir
				cfg.Capture.Enabled = true
			}
			if len(cfg.Keys) == 0 {
				cfg.Keys = []config.ScenarioKey{{Key: "projectile", Weight: 1}}
			}

			return runScenario(cfg)
		},
	}

	runCmd.Flags().StringVarP(&scenarioFile, "config", "c", "", "Path to scenario configuration YAML file")
	runCmd.Flags().StringVar(&pattern, "pattern", "steady", "Workload pattern (steady, burst, ramp)")
	runCmd.Flags().DurationVar(&duration, "duration", 10*time.Second, "Workload duration")
	runCmd.Flags().IntVar(&workers, "workers", 0, "Concurrent spawn workers (0 = CPU count)")
	runCmd.Flags().IntVar(&rate, "rate", 0, "Steady spawn rate per second (0 = unthrottled)")
	runCmd.Flags().DurationVar(&lifetime, "lifetime", 50*time.Millisecond, "How long each spawned instance stays active before release")
	runCmd.Flags().DurationVar(&reportInterval, "report-interval", 5*time.Second, "Progress logging interval (0 = silent)")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "Key selection RNG seed (0 = time-based)")
	runCmd.Flags().StringArrayVar(&keySpecs, "keys", nil, "Key to exercise as key[:weight[:prewarm]], repeatable")
	runCmd.Flags().BoolVar(&captureEnabled, "capture", false, "Record the run to a capture session file")
	runCmd.Flags().StringVar(&captureDir, "capture-dir", "", "Directory for capture session files (implies --capture)")
	root.AddCommand(runCmd)

	// Replay command: re-apply a recorded session to a fresh manager
	var speed float64
	var maxEPS, loop int
	var useMmap bool
	var replayKeys []string

	replayCmd := &cobra.Command{
		Use:   "replay <session-file>",
		Short: "Replay a recorded capture session",
		Long: `Replay the spawn/release operations of a recorded session against a
fresh pool manager, preserving the recorded pacing.

Example:
  respawn replay captures/arena.ndjson.gz --speed 2.0
  respawn replay captures/arena.ndjson.gz --loop 5 --max-eps 10000`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := &config.ReplayConfig{
				BaseConfig: *config.New("replay"),
				Path:       args[0],
				Loop:       loop,
			}
			cfg.Capture.Speed = speed
			cfg.Capture.MaxEventsPerSec = maxEPS
			cfg.Capture.UseMmap = useMmap
			return runReplay(cfg, replayKeys)
		},
	}

	replayCmd.Flags().Float64Var(&speed, "speed", 1.0, "Pacing multiplier over recorded offsets (0 = as fast as possible)")
	replayCmd.Flags().IntVar(&maxEPS, "max-eps", 0, "Cap on replayed events per second (0 = unlimited)")
	replayCmd.Flags().IntVar(&loop, "loop", 0, "Replay the session this many times (0 = once)")
	replayCmd.Flags().BoolVar(&useMmap, "mmap", true, "Memory-map uncompressed session files")
	replayCmd.Flags().StringArrayVar(&replayKeys, "keys", nil, "Prototype key to register for replayed spawns, repeatable")
	root.AddCommand(replayCmd)

	// Inspect command: summarize a session file without replaying it
	root.AddCommand(&cobra.Command{
		Use:   "inspect <session-file>",
		Short: "Summarize a capture session file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.New("inspect")
			summary, err := capture.Summarize(args[0], &cfg.Capture)
			if err != nil {
				return err
			}
			data, err := jsonpool.MarshalIndent(summary, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	})

	// Bench command: tight spawn/release cycles with a profiler attached
	var benchFile string
	var iterations, parallelism, prewarmCount int
	var benchKeys []string

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark spawn/release throughput",
		Long: `Run tight spawn/release cycles against a prewarmed manager and report
throughput, latency percentiles, and resource usage.

Example:
  respawn bench --iterations 1000000 --keys projectile --keys enemy_grunt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.NewBenchConfig("bench")
			if benchFile != "" {
				if err := config.Load(benchFile, cfg); err != nil {
					return err
				}
			}

			flags := cmd.Flags()
			if flags.Changed("iterations") {
				cfg.Iterations = iterations
			}
			if flags.Changed("parallelism") {
				cfg.Parallelism = parallelism
			}
			if flags.Changed("prewarm") {
				cfg.PrewarmCount = prewarmCount
			}
			if flags.Changed("keys") {
				cfg.Keys = benchKeys
			}

			return runBench(cfg)
		},
	}

	benchCmd.Flags().StringVarP(&benchFile, "config", "c", "", "Path to benchmark configuration YAML file")
	benchCmd.Flags().IntVar(&iterations, "iterations", 1000000, "Total spawn/release cycles")
	benchCmd.Flags().IntVar(&parallelism, "parallelism", 0, "Concurrent benchmark goroutines (0 = CPU count)")
	benchCmd.Flags().IntVar(&prewarmCount, "prewarm", 1024, "Instances to prewarm per key before timing starts")
	benchCmd.Flags().StringArrayVar(&benchKeys, "keys", nil, "Lookup key to cycle through, repeatable")
	root.AddCommand(benchCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// parseScenarioKeys parses key[:weight[:prewarm]] flag values
func parseScenarioKeys(specs []string) ([]config.ScenarioKey, error) {
	keys := make([]config.ScenarioKey, 0, len(specs))
	for _, spec := range specs {
		parts := strings.Split(spec, ":")
		if len(parts) > 3 || parts[0] == "" {
			return nil, fmt.Errorf("invalid key spec %q, want key[:weight[:prewarm]]", spec)
		}
		key := config.ScenarioKey{Key: parts[0], Weight: 1}
		if len(parts) > 1 {
			weight, err := strconv.Atoi(parts[1])
			if err != nil {
				return nil, fmt.Errorf("invalid weight in key spec %q: %w", spec, err)
			}
			key.Weight = weight
		}
		if len(parts) > 2 {
			prewarm, err := strconv.Atoi(parts[2])
			if err != nil {
				return nil, fmt.Errorf("invalid prewarm in key spec %q: %w", spec, err)
			}
			key.Prewarm = prewarm
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// runScenario executes one workload scenario and prints its report
func runScenario(cfg *config.ScenarioConfig) error {
	if cfg.Observability.EnableTracing {
		obsCfg := observability.DefaultConfig()
		obsCfg.Tracing.ServiceVersion = version
		obsCfg.Tracing.SamplingRate = cfg.Observability.TracingSampleRate
		if err := observability.Initialize(obsCfg); err != nil {
			return fmt.Errorf("initialize tracing: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := observability.Shutdown(shutdownCtx); err != nil {
				logger.Get().Warn("observability shutdown", zap.Error(err))
			}
		}()
	}

	runner, err := scenario.NewRunner(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result := runner.Run(ctx)

	data, err := jsonpool.MarshalIndent(result.Report(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// runReplay applies a recorded session to a fresh manager, looping when asked
func runReplay(cfg *config.ReplayConfig, keys []string) error {
	m := spawn.New(&cfg.BaseConfig)
	replayer := capture.NewReplayer(m, &cfg.Capture)
	for _, key := range keys {
		replayer.Register(spawn.NewBasic(key, nil))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runs := cfg.Loop
	if runs <= 0 {
		runs = 1
	}

	total := &capture.ReplayStats{}
	for i := 0; i < runs; i++ {
		stats, err := replayer.Replay(ctx, cfg.Path)
		if err != nil {
			return fmt.Errorf("replay run %d/%d: %w", i+1, runs, err)
		}
		total.Header = stats.Header
		total.Events += stats.Events
		total.Spawns += stats.Spawns
		total.Releases += stats.Releases
		total.Prewarms += stats.Prewarms
		total.Skipped += stats.Skipped
		total.Duration += stats.Duration
	}

	data, err := jsonpool.MarshalIndent(total, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))

	s := m.Stats()
	logger.Get().Info("replay pool state",
		zap.Int("keys", s.Keys),
		zap.Int("idle", s.Idle),
		zap.Int64("active", s.Active),
		zap.Float64("reuse_rate", s.ReuseRate()))
	return nil
}

// runBench runs tight spawn/release cycles and prints the profiler report
func runBench(cfg *config.BenchConfig) error {
	if len(cfg.Keys) == 0 {
		return fmt.Errorf("bench needs at least one key")
	}

	protos := make([]spawn.Prototype, len(cfg.Keys))
	for i, key := range cfg.Keys {
		protos[i] = spawn.NewBasic(key, nil)
	}
	m := spawn.New(&cfg.BaseConfig, protos...)
	for _, proto := range protos {
		m.Prewarm(proto, cfg.PrewarmCount)
	}

	parallelism := cfg.GetParallelism()
	perWorker := cfg.Iterations / parallelism
	if perWorker == 0 {
		perWorker = 1
	}

	log := logger.Get().With(zap.String("component", "bench"))
	log.Info("starting benchmark",
		zap.Int("iterations", perWorker*parallelism),
		zap.Int("parallelism", parallelism),
		zap.Int("prewarm", cfg.PrewarmCount),
		zap.Strings("keys", cfg.Keys))

	profiler := performance.NewProfiler(performance.DefaultProfilerConfig(cfg.Name))
	profiler.Start()

	var wg sync.WaitGroup
	for w := 0; w < parallelism; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				proto := protos[(w+i)%len(protos)]
				opStart := time.Now()
				inst := m.Spawn(proto)
				if inst == nil {
					profiler.IncrementErrors(1)
					continue
				}
				m.Release(inst)
				profiler.RecordLatency(time.Since(opStart))
				profiler.IncrementOps(1)
			}
		}(w)
	}
	wg.Wait()

	profiler.Stop()
	result := profiler.GenerateReport()
	fmt.Print(result.Report)
	for _, hint := range result.Hints() {
		fmt.Printf("hint: %s\n", hint)
	}

	s := m.Stats()
	log.Info("benchmark completed",
		zap.Int64("operations", result.Metrics.Operations),
		zap.Float64("ops_per_sec", result.Metrics.OpsPerSecond),
		zap.Duration("p99_latency", result.Metrics.P99Latency),
		zap.Float64("reuse_rate", s.ReuseRate()))
	return nil
}
