// Package engine drives the tick-based ecosystem simulation: the lifecycle
// algorithm, the tick scheduler, and the adaptive performance governor.
//
// Concurrency model: one logical thread of control drives everything via
// OnFrame. The engine never blocks internally; the store has a single
// writer and external consumers see only copied snapshots.
package engine

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/and3rn3t/ecosim/config"
	"github.com/and3rn3t/ecosim/species"
	"github.com/and3rn3t/ecosim/systems"
	"github.com/and3rn3t/ecosim/telemetry"
	"github.com/and3rn3t/ecosim/world"
)

// Options holds construction-time dependencies not covered by config.
type Options struct {
	Seed    int64                    // RNG seed; the determinism anchor
	Battery BatteryReader            // optional host battery state
	Output  *telemetry.OutputManager // optional CSV output, may be nil
}

// birthRequest is a reproduction queued during a tick, committed at the end.
type birthRequest struct {
	typeID     uint8
	x, y       float64
	generation uint32
}

// Engine owns the simulation. All collaborators are explicit construction
// dependencies; there are no process-wide singletons.
type Engine struct {
	cfg      *config.Config
	registry *species.Registry

	store    *world.Store
	grid     *systems.SpatialGrid
	governor *Governor
	sched    *Scheduler

	collector *telemetry.Collector
	perf      *telemetry.PerfCollector
	output    *telemetry.OutputManager

	rng  *rand.Rand
	seed int64
	tick uint64

	listeners []telemetry.TickListener

	// Scratch buffers reused across ticks.
	ids       []uint64
	deadIDs   []uint64
	neighbors []systems.Neighbor
	births    []birthRequest
	energies  []float64
}

// New creates an engine from validated configuration, registers the species
// rule tables, and seeds the initial population. With AutoStart set the
// session begins immediately.
func New(cfg *config.Config, opts Options) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	registry, err := species.NewRegistry(cfg.Species)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:       cfg,
		registry:  registry,
		store:     world.NewStore(cfg.Simulation.MaxPopulation),
		grid:      systems.NewSpatialGrid(cfg.World.Width, cfg.World.Height, cfg.Spatial.CellSize),
		governor:  NewGovernor(cfg.Governor, cfg.Simulation, cfg.Spatial, opts.Battery),
		sched:     NewScheduler(time.Duration(cfg.Simulation.TickIntervalMs*float64(time.Millisecond)), cfg.Simulation.MaxCatchUpTicks),
		collector: telemetry.NewCollector(cfg.Telemetry.StatsWindowTicks),
		perf:      telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow),
		output:    opts.Output,
		rng:       rand.New(rand.NewSource(opts.Seed)),
		seed:      opts.Seed,
	}

	e.seedInitialPopulation()

	if cfg.Simulation.AutoStart {
		if err := e.Start(); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// seedInitialPopulation places the configured number of organisms per
// species uniformly across the world, generation zero.
func (e *Engine) seedInitialPopulation() {
	for i := 0; i < e.registry.Len(); i++ {
		typ := e.registry.Get(uint8(i))
		for n := 0; n < e.cfg.Simulation.InitialPerSpecies; n++ {
			x := e.rng.Float64() * e.cfg.World.Width
			y := e.rng.Float64() * e.cfg.World.Height
			if _, err := e.store.Add(typ.ID, x, y, typ.InitialEnergy, 0); err != nil {
				slog.Warn("initial seeding hit population cap", "species", typ.Name)
				return
			}
		}
	}
}

// OnFrame is the external render-loop signal. It records frame timing for
// the governor, then runs zero or more ticks to catch up to the effective
// tick interval. Returns the number of ticks executed.
func (e *Engine) OnFrame(elapsed time.Duration) int {
	e.perf.RecordFrame()
	e.governor.Observe(time.Now(), e.perf.FPS())

	n := e.sched.Advance(elapsed)
	for i := 0; i < n; i++ {
		e.runTick()
	}
	return n
}

// Step runs exactly one tick regardless of accumulated frame time, provided
// the session is running. Useful for tests and offline (headless) drivers.
func (e *Engine) Step() error {
	if e.sched.State() != StateRunning {
		return fmt.Errorf("%w: step from %s", ErrInvalidTransition, e.sched.State())
	}
	e.runTick()
	return nil
}

// Start begins the session.
func (e *Engine) Start() error {
	return e.sched.Start()
}

// Pause suspends ticking at the next tick boundary; all state is preserved.
func (e *Engine) Pause() error {
	return e.sched.Pause()
}

// Resume continues a paused session.
func (e *Engine) Resume() error {
	return e.sched.Resume()
}

// Stop ends the session. Terminal until Reset.
func (e *Engine) Stop() error {
	return e.sched.Stop()
}

// SetSpeed scales the effective tick interval by 1/multiplier.
func (e *Engine) SetSpeed(multiplier float64) error {
	return e.sched.SetSpeed(multiplier)
}

// Reset returns to Idle and rebuilds the initial state: fresh RNG from the
// original seed, reseeded population, zeroed stats, nominal budget.
func (e *Engine) Reset() {
	e.sched.Reset()
	e.governor.Reset()
	e.collector.Reset()
	e.perf = telemetry.NewPerfCollector(e.cfg.Telemetry.PerfWindow)
	e.store = world.NewStore(e.cfg.Simulation.MaxPopulation)
	e.grid = systems.NewSpatialGrid(e.cfg.World.Width, e.cfg.World.Height, e.cfg.Spatial.CellSize)
	e.rng = rand.New(rand.NewSource(e.seed))
	e.tick = 0
	e.seedInitialPopulation()
}

// RendererLost handles the external renderer signaling loss of its drawing
// surface. The engine degrades by auto-pausing; it never crashes for this.
func (e *Engine) RendererLost() error {
	if e.sched.State() != StateRunning {
		return nil
	}
	slog.Warn("renderer unavailable, pausing simulation", "error", ErrRendererUnavailable)
	return e.sched.Pause()
}

// AddTickListener subscribes to tick-completed events.
func (e *Engine) AddTickListener(fn telemetry.TickListener) {
	e.listeners = append(e.listeners, fn)
}

// Snapshot returns an immutable copy of all organisms for the renderer.
func (e *Engine) Snapshot() []world.OrganismView {
	return e.store.Snapshot()
}

// Stats returns the cumulative simulation statistics.
func (e *Engine) Stats() telemetry.SimulationStats {
	return e.collector.Current()
}

// Perf returns aggregated performance statistics for the rolling window.
func (e *Engine) Perf() telemetry.PerfStats {
	return e.perf.Stats()
}

// Profile returns the currently applied performance profile.
func (e *Engine) Profile() PerformanceProfile {
	return e.governor.Profile()
}

// Governor exposes the governor for host integrations that feed synthetic
// measurements (e.g. platform-specific frame callbacks).
func (e *Engine) Governor() *Governor {
	return e.governor
}

// State returns the session state.
func (e *Engine) State() State {
	return e.sched.State()
}

// Tick returns the current tick counter.
func (e *Engine) Tick() uint64 {
	return e.tick
}

// Population returns the live organism count.
func (e *Engine) Population() int {
	return e.store.Count()
}

// Registry returns the immutable species table.
func (e *Engine) Registry() *species.Registry {
	return e.registry
}
