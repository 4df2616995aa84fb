package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/and3rn3t/ecosim/config"
	"github.com/and3rn3t/ecosim/engine"
	"github.com/and3rn3t/ecosim/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Uint64("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	statePath := flag.String("load-state", "", "Resume from a saved state file")
	saveState := flag.String("save-state", "", "Write final state to this file on exit")
	logTicks := flag.Bool("log-ticks", false, "Log every tick delta via slog")
	frameRate := flag.Float64("frame-rate", 60, "Synthetic frame rate driving the simulation")

	flag.Parse()

	// slog JSON to stdout for structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	var output *telemetry.OutputManager
	if *outputDir != "" {
		output, err = telemetry.NewOutputManager(*outputDir)
		if err != nil {
			slog.Error("failed to create output directory", "error", err)
			os.Exit(1)
		}
		defer output.Close()
		if err := output.WriteConfig(cfg); err != nil {
			slog.Error("failed to snapshot config", "error", err)
		}
	}

	eng, err := engine.New(cfg, engine.Options{
		Seed:   rngSeed,
		Output: output,
	})
	if err != nil {
		slog.Error("failed to build engine", "error", err)
		os.Exit(1)
	}

	if *statePath != "" {
		if err := eng.LoadState(*statePath); err != nil {
			slog.Error("failed to load state", "error", err)
			os.Exit(1)
		}
		slog.Info("state loaded", "path", *statePath, "tick", eng.Tick(), "population", eng.Population())
	}

	if *logTicks {
		eng.AddTickListener(func(d telemetry.TickDelta) {
			slog.Info("tick",
				"tick", d.Tick,
				"population", d.Population,
				"births", d.Births,
				"deaths", d.Deaths,
				"culled", d.Culled,
				"generation_max", d.GenerationMax,
			)
		})
	}

	if eng.State() != engine.StateRunning {
		if err := eng.Start(); err != nil {
			slog.Error("failed to start simulation", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("starting simulation",
		"seed", rngSeed,
		"max_ticks", *maxTicks,
		"frame_rate", *frameRate,
		"population", eng.Population(),
	)

	// Headless driver: synthetic frames at a fixed cadence stand in for the
	// external render loop.
	frame := time.Duration(float64(time.Second) / *frameRate)
	for {
		eng.OnFrame(frame)

		if eng.Population() == 0 {
			slog.Info("population extinct", "tick", eng.Tick())
			break
		}
		if *maxTicks > 0 && eng.Tick() >= *maxTicks {
			slog.Info("max ticks reached", "tick", eng.Tick())
			break
		}
	}

	if err := eng.Stop(); err != nil {
		slog.Warn("stop failed", "error", err)
	}

	if *saveState != "" {
		if err := eng.SaveState(*saveState); err != nil {
			slog.Error("failed to save state", "error", err)
			os.Exit(1)
		}
		slog.Info("state saved", "path", *saveState)
	}

	slog.Info("simulation finished", "stats", eng.Stats())
}
