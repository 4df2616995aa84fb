package engine

import (
	"log/slog"
	"time"

	"github.com/and3rn3t/ecosim/config"
)

// BatteryReader reports host battery state, if the platform exposes it.
type BatteryReader interface {
	// Battery returns the charge level in [0,1] and whether the device is
	// charging. ok is false when no battery information is available.
	Battery() (level float64, charging bool, ok bool)
}

// PerformanceProfile is the governor-derived simulation budget. It is
// recomputed once per sampling window and applied atomically between ticks,
// never mid-tick.
type PerformanceProfile struct {
	TargetFPS              float64
	EffectiveMaxPopulation int
	SpatialCellSize        float64
	BatterySaverActive     bool
}

// Governor couples simulation fidelity to measured device performance.
// It samples achieved frame rate once per rolling window and rewrites the
// pending profile; the lifecycle engine applies it at the next tick
// boundary. The decision bands include a dead zone so small oscillations
// around the target never cause budget churn.
type Governor struct {
	cfg           config.GovernorConfig
	nominalMaxPop int
	baseCellSize  float64
	maxCellSize   float64

	current PerformanceProfile
	pending *PerformanceProfile

	battery    BatteryReader
	lastSample time.Time
}

// NewGovernor creates a governor starting at the nominal budget.
func NewGovernor(cfg config.GovernorConfig, sim config.SimulationConfig, spatial config.SpatialConfig, battery BatteryReader) *Governor {
	return &Governor{
		cfg:           cfg,
		nominalMaxPop: sim.MaxPopulation,
		baseCellSize:  spatial.CellSize,
		maxCellSize:   spatial.MaxCellSize,
		current: PerformanceProfile{
			TargetFPS:              cfg.TargetFPS,
			EffectiveMaxPopulation: sim.MaxPopulation,
			SpatialCellSize:        spatial.CellSize,
		},
		battery: battery,
	}
}

// Profile returns the currently applied profile.
func (g *Governor) Profile() PerformanceProfile {
	return g.current
}

// Observe feeds a frame-rate measurement; at most one sample is taken per
// rolling window.
func (g *Governor) Observe(now time.Time, measuredFPS float64) {
	window := time.Duration(g.cfg.SampleWindowSec * float64(time.Second))
	if !g.lastSample.IsZero() && now.Sub(g.lastSample) < window {
		return
	}
	g.lastSample = now
	g.Sample(measuredFPS)
}

// Sample runs the decision policy against one FPS measurement. Ordered,
// first match wins:
//
//  1. FPS below low_band x target: shrink population, coarsen the grid,
//     and lower the FPS target toward its floor when battery is low.
//  2. FPS above high_band x target with headroom spent: grow population
//     back toward nominal and refine the grid.
//  3. Otherwise no change (hysteresis).
func (g *Governor) Sample(measuredFPS float64) {
	if measuredFPS <= 0 {
		return
	}

	// Compound onto an unapplied pending profile so consecutive slow
	// windows keep shrinking even before a tick boundary arrives.
	p := g.current
	if g.pending != nil {
		p = *g.pending
	}
	prev := p

	switch {
	case measuredFPS < g.cfg.LowBand*p.TargetFPS:
		pop := int(float64(p.EffectiveMaxPopulation) * g.cfg.ShrinkFactor)
		if pop < g.cfg.MinPopulation {
			pop = g.cfg.MinPopulation
		}
		p.EffectiveMaxPopulation = pop

		cell := p.SpatialCellSize * g.cfg.CellCoarsenFactor
		if cell > g.maxCellSize {
			cell = g.maxCellSize
		}
		p.SpatialCellSize = cell

		if level, charging, ok := g.batteryState(); ok && !charging && level <= g.cfg.LowBatteryLevel {
			fps := p.TargetFPS * g.cfg.ShrinkFactor
			if fps < g.cfg.MinTargetFPS {
				fps = g.cfg.MinTargetFPS
			}
			p.TargetFPS = fps
			p.BatterySaverActive = true
		}

	case measuredFPS > g.cfg.HighBand*p.TargetFPS && p.EffectiveMaxPopulation < g.nominalMaxPop:
		pop := int(float64(p.EffectiveMaxPopulation) * g.cfg.GrowFactor)
		if pop > g.nominalMaxPop {
			pop = g.nominalMaxPop
		}
		p.EffectiveMaxPopulation = pop

		cell := p.SpatialCellSize / g.cfg.CellCoarsenFactor
		if cell < g.baseCellSize {
			cell = g.baseCellSize
		}
		p.SpatialCellSize = cell

		if p.BatterySaverActive {
			if level, charging, ok := g.batteryState(); !ok || charging || level > g.cfg.LowBatteryLevel {
				p.TargetFPS = g.cfg.TargetFPS
				p.BatterySaverActive = false
			}
		}

	default:
		// Within the dead band: hysteresis prevents oscillation.
		return
	}

	if p != prev {
		g.pending = &p
		slog.Debug("governor sample",
			"measured_fps", measuredFPS,
			"target_fps", p.TargetFPS,
			"effective_max_population", p.EffectiveMaxPopulation,
			"spatial_cell_size", p.SpatialCellSize,
			"battery_saver", p.BatterySaverActive,
		)
	}
}

// ApplyPending promotes the pending profile, if any, to the current one.
// The lifecycle engine calls this at tick boundaries only, satisfying the
// "never mid-tick" contract.
func (g *Governor) ApplyPending() (PerformanceProfile, bool) {
	if g.pending == nil {
		return g.current, false
	}
	g.current = *g.pending
	g.pending = nil
	return g.current, true
}

// Reset restores the nominal budget and drops pending changes.
func (g *Governor) Reset() {
	g.current = PerformanceProfile{
		TargetFPS:              g.cfg.TargetFPS,
		EffectiveMaxPopulation: g.nominalMaxPop,
		SpatialCellSize:        g.baseCellSize,
	}
	g.pending = nil
	g.lastSample = time.Time{}
}

func (g *Governor) batteryState() (level float64, charging bool, ok bool) {
	if g.battery == nil {
		return 0, false, false
	}
	return g.battery.Battery()
}
