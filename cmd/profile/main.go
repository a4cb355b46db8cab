package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/ajitpratap0/respawn/pkg/config"
	"github.com/ajitpratap0/respawn/pkg/performance"
	"github.com/ajitpratap0/respawn/pkg/spawn"
)

func main() {
	// Command-line flags
	var (
		duration     = flag.Duration("duration", 30*time.Second, "Workload duration")
		outputDir    = flag.String("output", "./profiles", "Output directory for profiles")
		profileTypes = flag.String("types", "cpu,heap", "Profile types (cpu,heap,block,mutex,goroutine,trace,all)")
		workers      = flag.Int("workers", runtime.NumCPU(), "Concurrent spawn workers")
		prewarm      = flag.Int("prewarm", 1024, "Instances to prewarm per key")
		hold         = flag.Int("hold", 64, "Live instances each worker holds before recycling the oldest")
	)

	// Help flag
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nRuns a spawn/release churn workload under the Go profiler.\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -types cpu -duration 30s\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -types all -workers 16 -prewarm 4096\n", os.Args[0])
	}

	flag.Parse()

	// Parse profile types
	types, err := performance.ParseProfileTypes(*profileTypes)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	profileCfg := performance.DefaultProfileConfig()
	profileCfg.Types = types
	profileCfg.OutputDir = *outputDir

	session := performance.NewProfileSession(profileCfg)
	if err := session.Start(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Printf("Profiling spawn churn...\n")
	fmt.Printf("Duration: %v\n", *duration)
	fmt.Printf("Profile types: %s\n", *profileTypes)
	fmt.Printf("Output directory: %s\n", *outputDir)

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	runChurn(ctx, *workers, *prewarm, *hold)

	if err := session.Stop(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	for _, path := range session.Files() {
		fmt.Printf("Profile written to: %s\n", path)
	}
	fmt.Printf("Profiling completed successfully\n")
}

// runChurn drives spawn/release cycles against a prewarmed manager so the
// profiles capture pool behavior instead of an idle process. Each worker
// holds a window of live instances, releasing the oldest as it spawns.
func runChurn(ctx context.Context, workers, prewarm, hold int) {
	cfg := config.New("profile")
	protos := []spawn.Prototype{
		spawn.NewBasic("projectile", nil),
		spawn.NewBasic("enemy_grunt", nil),
		spawn.NewBasic("pickup_health", nil),
	}
	m := spawn.New(cfg, protos...)
	for _, proto := range protos {
		m.Prewarm(proto, prewarm)
	}

	if hold < 1 {
		hold = 1
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			live := make([]spawn.Instance, 0, hold)
			for i := 0; ; i++ {
				select {
				case <-ctx.Done():
					for _, inst := range live {
						m.Release(inst)
					}
					return
				default:
				}

				inst := m.Spawn(protos[(w+i)%len(protos)])
				if inst == nil {
					continue
				}
				live = append(live, inst)
				if len(live) >= hold {
					m.Release(live[0])
					copy(live, live[1:])
					live = live[:len(live)-1]
				}
			}
		}(w)
	}
	wg.Wait()

	s := m.Stats()
	fmt.Printf("Workload: %d spawns (%.1f%% reused) across %d keys\n",
		s.Created+s.Reused, s.ReuseRate()*100, s.Keys)
}
