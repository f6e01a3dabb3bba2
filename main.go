package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/devitrification/activematter/config"
	"github.com/devitrification/activematter/engine"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	logStats := flag.Bool("log-stats", false, "Output window stats via slog")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Uint64("seed", 0, "RNG seed (0 = use config, then time-based)")
	maxSteps := flag.Uint64("max-steps", 0, "Stop after N steps (0 = unlimited)")
	stepsPerFrame := flag.Int("steps-per-frame", 1, "Simulation steps per rendered frame")
	workers := flag.Int("workers", 0, "Worker count (0 = GOMAXPROCS)")

	flag.Parse()

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	// Set up seed: flag wins, then config, then wall clock
	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = cfg.Particles.Seed
	}
	if rngSeed == 0 {
		rngSeed = uint64(time.Now().UnixNano())
	}

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	opts := engine.Options{
		Seed:      rngSeed,
		LogStats:  *logStats,
		OutputDir: *outputDir,
		Workers:   *workers,
	}

	if *headless {
		sim, err := engine.New(opts)
		if err != nil {
			slog.Error("failed to build simulation", "error", err)
			os.Exit(1)
		}
		defer sim.Close()

		slog.Info("starting headless run",
			"seed", rngSeed,
			"particles", cfg.Particles.Count,
			"dimensions", cfg.World.Dimensions,
			"max_steps", *maxSteps,
		)

		for {
			sim.Step()
			if *maxSteps > 0 && sim.StepCount() >= *maxSteps {
				slog.Info("max steps reached", "step", sim.StepCount())
				return
			}
		}
	}

	// Graphical mode
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "activematter")
	defer rl.CloseWindow()
	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	sim, err := engine.New(opts)
	if err != nil {
		slog.Error("failed to build simulation", "error", err)
		os.Exit(1)
	}
	defer sim.Close()

	renderer := engine.NewRenderer(sim)

	for !rl.WindowShouldClose() {
		for i := 0; i < *stepsPerFrame; i++ {
			sim.Step()
		}
		renderer.Draw(sim)

		if *maxSteps > 0 && sim.StepCount() >= *maxSteps {
			break
		}
	}
}
