package engine

import (
	"testing"
	"time"

	"github.com/and3rn3t/ecosim/config"
)

// fakeBattery is a scriptable BatteryReader.
type fakeBattery struct {
	level    float64
	charging bool
	ok       bool
}

func (f *fakeBattery) Battery() (float64, bool, bool) {
	return f.level, f.charging, f.ok
}

func newTestGovernor(t *testing.T, battery BatteryReader) *Governor {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}
	return NewGovernor(cfg.Governor, cfg.Simulation, cfg.Spatial, battery)
}

func TestGovernorStartsNominal(t *testing.T) {
	g := newTestGovernor(t, nil)
	p := g.Profile()
	if p.EffectiveMaxPopulation != 1000 {
		t.Errorf("effective max population = %d, want 1000", p.EffectiveMaxPopulation)
	}
	if p.TargetFPS != 60 {
		t.Errorf("target fps = %v, want 60", p.TargetFPS)
	}
	if p.SpatialCellSize != 64 {
		t.Errorf("cell size = %v, want 64", p.SpatialCellSize)
	}
	if _, changed := g.ApplyPending(); changed {
		t.Error("fresh governor should have no pending profile")
	}
}

func TestGovernorShrinksUnderLoad(t *testing.T) {
	g := newTestGovernor(t, nil)

	// 30 fps is below 0.8 * 60 = 48.
	g.Sample(30)
	p, changed := g.ApplyPending()
	if !changed {
		t.Fatal("expected a pending profile after a slow sample")
	}
	if p.EffectiveMaxPopulation != 900 {
		t.Errorf("effective max population = %d, want 900", p.EffectiveMaxPopulation)
	}
	if p.SpatialCellSize != 80 {
		t.Errorf("cell size = %v, want 80", p.SpatialCellSize)
	}
	if p.TargetFPS != 60 {
		t.Errorf("target fps = %v, want 60 (no battery pressure)", p.TargetFPS)
	}
}

func TestGovernorCompoundsBeforeApply(t *testing.T) {
	g := newTestGovernor(t, nil)

	// Two slow windows before any tick boundary keep shrinking.
	g.Sample(30)
	g.Sample(30)
	p, changed := g.ApplyPending()
	if !changed {
		t.Fatal("expected a pending profile")
	}
	if p.EffectiveMaxPopulation != 810 {
		t.Errorf("effective max population = %d, want 810", p.EffectiveMaxPopulation)
	}
	if p.SpatialCellSize != 100 {
		t.Errorf("cell size = %v, want 100", p.SpatialCellSize)
	}
}

func TestGovernorGrowsWithHeadroom(t *testing.T) {
	g := newTestGovernor(t, nil)

	g.Sample(30)
	g.ApplyPending()

	// 80 fps is above 1.2 * 60 = 72 and we are below nominal.
	g.Sample(80)
	p, changed := g.ApplyPending()
	if !changed {
		t.Fatal("expected a pending profile after a fast sample")
	}
	if p.EffectiveMaxPopulation != 990 {
		t.Errorf("effective max population = %d, want 990", p.EffectiveMaxPopulation)
	}
	if p.SpatialCellSize != 64 {
		t.Errorf("cell size = %v, want 64 (refined back to base)", p.SpatialCellSize)
	}
}

func TestGovernorNeverGrowsPastNominal(t *testing.T) {
	g := newTestGovernor(t, nil)

	g.Sample(200)
	if _, changed := g.ApplyPending(); changed {
		t.Error("fast sample at nominal budget should not change the profile")
	}
}

func TestGovernorHysteresis(t *testing.T) {
	g := newTestGovernor(t, nil)

	// Oscillating inside the 48..72 dead band: no budget churn.
	for i := 0; i < 5; i++ {
		g.Sample(55)
		g.Sample(65)
	}
	p, changed := g.ApplyPending()
	if changed {
		t.Error("in-band samples should never produce a pending profile")
	}
	if p.EffectiveMaxPopulation != 1000 || p.SpatialCellSize != 64 {
		t.Errorf("profile drifted inside dead band: %+v", p)
	}
}

func TestGovernorFloorsAndCeilings(t *testing.T) {
	g := newTestGovernor(t, nil)

	for i := 0; i < 50; i++ {
		g.Sample(10)
	}
	p, _ := g.ApplyPending()
	if p.EffectiveMaxPopulation != 50 {
		t.Errorf("effective max population = %d, want floor 50", p.EffectiveMaxPopulation)
	}
	if p.SpatialCellSize != 256 {
		t.Errorf("cell size = %v, want ceiling 256", p.SpatialCellSize)
	}
}

func TestGovernorBatterySaver(t *testing.T) {
	bat := &fakeBattery{level: 0.1, charging: false, ok: true}
	g := newTestGovernor(t, bat)

	g.Sample(30)
	p, _ := g.ApplyPending()
	if !p.BatterySaverActive {
		t.Fatal("expected battery saver after slow sample on low battery")
	}
	if p.TargetFPS != 54 {
		t.Errorf("target fps = %v, want 54", p.TargetFPS)
	}

	// Repeated pressure drives the target toward its floor.
	for i := 0; i < 50; i++ {
		g.Sample(5)
	}
	p, _ = g.ApplyPending()
	if p.TargetFPS != 20 {
		t.Errorf("target fps = %v, want floor 20", p.TargetFPS)
	}

	// Charger plugged in and performance recovered: restore the target.
	bat.charging = true
	g.Sample(100)
	p, _ = g.ApplyPending()
	if p.BatterySaverActive {
		t.Error("battery saver should deactivate once charging")
	}
	if p.TargetFPS != 60 {
		t.Errorf("target fps = %v, want restored 60", p.TargetFPS)
	}
}

func TestGovernorIgnoresBatteryWhenCharging(t *testing.T) {
	g := newTestGovernor(t, &fakeBattery{level: 0.1, charging: true, ok: true})

	g.Sample(30)
	p, _ := g.ApplyPending()
	if p.BatterySaverActive {
		t.Error("battery saver should not engage while charging")
	}
	if p.TargetFPS != 60 {
		t.Errorf("target fps = %v, want 60", p.TargetFPS)
	}
}

func TestObserveSamplesOncePerWindow(t *testing.T) {
	g := newTestGovernor(t, nil)
	t0 := time.Now()

	g.Observe(t0, 30)
	g.Observe(t0.Add(500*time.Millisecond), 30) // inside the 1s window, ignored

	p, changed := g.ApplyPending()
	if !changed {
		t.Fatal("first observation should sample")
	}
	if p.EffectiveMaxPopulation != 900 {
		t.Errorf("effective max population = %d, want 900 (single sample)", p.EffectiveMaxPopulation)
	}

	g.Observe(t0.Add(1100*time.Millisecond), 30)
	p, changed = g.ApplyPending()
	if !changed {
		t.Fatal("observation past the window should sample")
	}
	if p.EffectiveMaxPopulation != 810 {
		t.Errorf("effective max population = %d, want 810", p.EffectiveMaxPopulation)
	}
}

func TestGovernorZeroFPSIgnored(t *testing.T) {
	g := newTestGovernor(t, nil)
	g.Sample(0)
	if _, changed := g.ApplyPending(); changed {
		t.Error("zero fps (no frames yet) should not change the profile")
	}
}

func TestGovernorReset(t *testing.T) {
	g := newTestGovernor(t, nil)
	g.Sample(10)
	g.ApplyPending()
	g.Sample(10)

	g.Reset()
	p := g.Profile()
	if p.EffectiveMaxPopulation != 1000 || p.SpatialCellSize != 64 || p.TargetFPS != 60 {
		t.Errorf("profile after reset = %+v, want nominal", p)
	}
	if _, changed := g.ApplyPending(); changed {
		t.Error("reset should drop pending changes")
	}
}
