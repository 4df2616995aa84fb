package engine

import (
	"errors"
	"log/slog"
	"math"
	"sort"

	"github.com/and3rn3t/ecosim/components"
	"github.com/and3rn3t/ecosim/species"
	"github.com/and3rn3t/ecosim/systems"
	"github.com/and3rn3t/ecosim/telemetry"
	"github.com/and3rn3t/ecosim/world"
)

// runTick executes one simulation step. Organisms are always processed in
// ascending ID order and all RNG draws happen on that order, so identical
// seed plus identical command sequence reproduces identical state.
//
// Phases: profile application, spatial rebuild, aging and death, trophic
// interaction, reproduction, commit (removals, births, cap culling), stats.
// Structural changes to the store happen only in the commit phase.
func (e *Engine) runTick() {
	e.perf.StartTick()

	e.applyProfile()

	var (
		tickBirths int
		tickDeaths int
		tickCulled int
	)

	// Rebuild the spatial index from current positions. Inserting in
	// ascending ID order keeps neighbor query results reproducible.
	e.perf.StartPhase(telemetry.PhaseSpatial)
	e.ids = e.store.IDs(e.ids[:0])
	e.grid.Clear()
	for _, id := range e.ids {
		pos := e.store.Position(id)
		e.grid.Insert(id, pos.X, pos.Y)
	}

	// Aging and energy decay, then death marks. The random-death draw is
	// taken for every survivor with a positive rate, regardless of outcome,
	// to keep the draw sequence aligned with the organism sequence.
	e.perf.StartPhase(telemetry.PhaseLifecycle)
	e.deadIDs = e.deadIDs[:0]
	for _, id := range e.ids {
		vit := e.store.Vitals(id)
		typ := e.registry.Get(e.store.Lineage(id).TypeID)

		vit.Age++
		vit.Energy -= typ.EnergyConsumption
		e.clampVitals(id, vit, typ)

		dead := vit.Age > typ.MaxAge || vit.Energy <= 0
		if !dead && typ.DeathRate > 0 {
			dead = e.rng.Float64() < typ.DeathRate
		}
		if dead {
			vit.Alive = false
			e.deadIDs = append(e.deadIDs, id)
		}
	}

	// Trophic energy flow: producers take in energy, hungry consumers bite
	// the nearest live producer in reach. A target drained to zero dies.
	e.perf.StartPhase(telemetry.PhaseInteraction)
	for _, id := range e.ids {
		vit := e.store.Vitals(id)
		if !vit.Alive {
			continue
		}
		typ := e.registry.Get(e.store.Lineage(id).TypeID)

		switch typ.Behavior {
		case species.BehaviorProducer:
			vit.Energy = math.Min(vit.Energy+typ.EnergyGain, typ.MaxEnergy)

		case species.BehaviorConsumer:
			if vit.Energy >= e.cfg.Interaction.HungerFrac*typ.MaxEnergy {
				continue
			}
			target := e.nearestPrey(id, typ)
			if target == 0 {
				continue
			}
			e.feed(vit, typ, target)
		}
	}

	// Reproduction. Births are queued and committed after removals so a
	// newborn never participates in the tick that produced it.
	e.perf.StartPhase(telemetry.PhaseReproduction)
	e.births = e.births[:0]
	effectiveCap := e.governor.Profile().EffectiveMaxPopulation
	for _, id := range e.ids {
		vit := e.store.Vitals(id)
		if !vit.Alive {
			continue
		}
		typ := e.registry.Get(e.store.Lineage(id).TypeID)
		if typ.GrowthRate <= 0 {
			continue
		}

		cost := e.cfg.Reproduction.BirthCostFrac * typ.InitialEnergy
		if vit.Energy < e.cfg.Reproduction.ThresholdFrac*typ.MaxEnergy || vit.Energy <= cost {
			continue
		}
		if e.rng.Float64() >= typ.GrowthRate {
			continue
		}

		// Projected population after this tick's removals and queued
		// births. At the cap the birth silently does not happen.
		projected := e.store.Count() - len(e.deadIDs) + len(e.births) + 1
		if projected > effectiveCap {
			continue
		}

		pos := e.store.Position(id)
		x, y, found := e.findSpawnSpot(pos.X, pos.Y)
		if !found {
			continue
		}

		vit.Energy -= cost
		lin := e.store.Lineage(id)
		e.births = append(e.births, birthRequest{
			typeID:     typ.ID,
			x:          x,
			y:          y,
			generation: lin.Generation + 1,
		})
	}

	// Commit: scavenging on carcasses, removals in ascending ID order,
	// queued births, then cap culling.
	e.perf.StartPhase(telemetry.PhaseCommit)
	sort.Slice(e.deadIDs, func(i, j int) bool { return e.deadIDs[i] < e.deadIDs[j] })
	for _, id := range e.deadIDs {
		e.scavenge(id)
		e.store.Remove(id)
		e.collector.RecordDeath()
		tickDeaths++
	}

	for _, b := range e.births {
		typ := e.registry.Get(b.typeID)
		if _, err := e.store.Add(b.typeID, b.x, b.y, typ.InitialEnergy, b.generation); err != nil {
			if errors.Is(err, world.ErrCapacityExceeded) {
				// Parent already paid; the litter is simply lost.
				continue
			}
			slog.Error("birth commit failed", "error", err)
			continue
		}
		e.collector.RecordBirth(b.generation)
		tickBirths++
	}

	tickCulled = e.cullOverflow(effectiveCap)
	tickDeaths += tickCulled

	// Finalize stats, flush the window if due, notify listeners.
	e.perf.StartPhase(telemetry.PhaseStats)
	e.tick++
	e.collector.RecordTick(e.store.Count())

	if e.collector.ShouldFlush(e.tick) {
		e.flushWindow()
	}

	stats := e.collector.Current()
	delta := telemetry.TickDelta{
		Tick:          e.tick,
		Births:        tickBirths,
		Deaths:        tickDeaths,
		Culled:        tickCulled,
		Population:    stats.Population,
		GenerationMax: stats.GenerationMax,
	}
	for _, fn := range e.listeners {
		fn(delta)
	}

	e.perf.EndTick()
}

// applyProfile promotes a pending governor profile at the tick boundary.
func (e *Engine) applyProfile() {
	p, ok := e.governor.ApplyPending()
	if !ok {
		return
	}
	e.store.SetCapacity(p.EffectiveMaxPopulation)
	if p.SpatialCellSize != e.grid.CellSize() {
		e.grid = systems.NewSpatialGrid(e.cfg.World.Width, e.cfg.World.Height, p.SpatialCellSize)
	}
	slog.Info("performance profile applied",
		"target_fps", p.TargetFPS,
		"effective_max_population", p.EffectiveMaxPopulation,
		"cell_size", p.SpatialCellSize,
		"battery_saver", p.BatterySaverActive,
	)
}

// clampVitals repairs out-of-range energy instead of letting it propagate.
func (e *Engine) clampVitals(id uint64, vit *components.Vitals, typ *species.OrganismType) {
	if math.IsNaN(vit.Energy) || math.IsInf(vit.Energy, 0) {
		slog.Warn("energy anomaly clamped", "organism", id, "species", typ.Name, "energy", vit.Energy)
		vit.Energy = 0
		return
	}
	if vit.Energy > typ.MaxEnergy {
		vit.Energy = typ.MaxEnergy
	}
}

// nearestPrey returns the closest live edible organism within feed radius,
// or 0 when none is in reach. Ties on distance break toward the lower ID.
func (e *Engine) nearestPrey(id uint64, typ *species.OrganismType) uint64 {
	pos := e.store.Position(id)
	e.neighbors = e.grid.QueryRadiusInto(e.neighbors[:0], pos.X, pos.Y, e.cfg.Interaction.FeedRadius, id, e.store)

	var best uint64
	bestDist := math.MaxFloat64
	for _, n := range e.neighbors {
		vit := e.store.Vitals(n.ID)
		if vit == nil || !vit.Alive {
			continue
		}
		prey := e.registry.Get(e.store.Lineage(n.ID).TypeID)
		if !typ.CanEat(prey) {
			continue
		}
		if n.DistSq < bestDist || (n.DistSq == bestDist && n.ID < best) {
			best = n.ID
			bestDist = n.DistSq
		}
	}
	return best
}

// feed transfers one bite from the target to the consumer. The bite is a
// fraction of the target's maximum energy, bounded by what it has left;
// transfer losses apply on the consumer side.
func (e *Engine) feed(vit *components.Vitals, typ *species.OrganismType, targetID uint64) {
	targetVit := e.store.Vitals(targetID)
	targetTyp := e.registry.Get(e.store.Lineage(targetID).TypeID)

	bite := math.Min(e.cfg.Interaction.BiteFraction*targetTyp.MaxEnergy, targetVit.Energy)
	targetVit.Energy -= bite
	vit.Energy = math.Min(vit.Energy+bite*e.cfg.Interaction.TransferEfficiency, typ.MaxEnergy)

	if targetVit.Energy <= 0 && targetVit.Alive {
		targetVit.Alive = false
		e.deadIDs = append(e.deadIDs, targetID)
	}
}

// scavenge lets the nearest live decomposer in reach recover part of a
// carcass's residual energy before the slot is freed.
func (e *Engine) scavenge(deadID uint64) {
	vit := e.store.Vitals(deadID)
	if vit == nil || vit.Energy <= 0 {
		return
	}

	pos := e.store.Position(deadID)
	e.neighbors = e.grid.QueryRadiusInto(e.neighbors[:0], pos.X, pos.Y, e.cfg.Interaction.ScavengeRadius, deadID, e.store)

	var best uint64
	bestDist := math.MaxFloat64
	for _, n := range e.neighbors {
		nv := e.store.Vitals(n.ID)
		if nv == nil || !nv.Alive {
			continue
		}
		if e.registry.Get(e.store.Lineage(n.ID).TypeID).Behavior != species.BehaviorDecomposer {
			continue
		}
		if n.DistSq < bestDist || (n.DistSq == bestDist && n.ID < best) {
			best = n.ID
			bestDist = n.DistSq
		}
	}
	if best == 0 {
		return
	}

	dv := e.store.Vitals(best)
	dt := e.registry.Get(e.store.Lineage(best).TypeID)
	dv.Energy = math.Min(dv.Energy+vit.Energy*e.cfg.Interaction.ScavengeEfficiency, dt.MaxEnergy)
}

// findSpawnSpot probes a bounded number of candidate positions around the
// parent and returns the first with no organism inside the separation
// radius. found is false when every probe was occupied.
func (e *Engine) findSpawnSpot(px, py float64) (x, y float64, found bool) {
	minSep := e.cfg.Reproduction.MinSeparation
	spread := e.cfg.Reproduction.SpawnRadius - minSep
	if spread < 0 {
		spread = 0
	}
	for try := 0; try < e.cfg.Reproduction.PlacementTries; try++ {
		ang := e.rng.Float64() * 2 * math.Pi
		dist := minSep + e.rng.Float64()*spread
		cx := systems.Wrap(px+math.Cos(ang)*dist, e.cfg.World.Width)
		cy := systems.Wrap(py+math.Sin(ang)*dist, e.cfg.World.Height)
		if !e.grid.HasNeighborWithin(cx, cy, minSep, e.store) {
			return cx, cy, true
		}
	}
	return 0, 0, false
}

// cullOverflow removes organisms past the effective cap. Victims are the
// weakest first: lowest energy, then highest age, then lowest ID. Returns
// the number removed.
func (e *Engine) cullOverflow(effectiveCap int) int {
	excess := e.store.Count() - effectiveCap
	if excess <= 0 {
		return 0
	}

	views := e.store.Snapshot()
	sort.Slice(views, func(i, j int) bool {
		a, b := views[i], views[j]
		if a.Energy != b.Energy {
			return a.Energy < b.Energy
		}
		if a.Age != b.Age {
			return a.Age > b.Age
		}
		return a.ID < b.ID
	})

	for i := 0; i < excess; i++ {
		e.store.Remove(views[i].ID)
		e.collector.RecordDeath()
		e.collector.RecordCull()
	}
	slog.Debug("population culled to budget", "removed", excess, "cap", effectiveCap)
	return excess
}

// flushWindow builds the end-of-window composition and energy sample,
// emits the window stats, and forwards them to the configured outputs.
func (e *Engine) flushWindow() {
	var producers, consumers, decomposers int
	e.energies = e.energies[:0]
	for _, v := range e.store.Snapshot() {
		e.energies = append(e.energies, v.Energy)
		switch e.registry.Get(v.TypeID).Behavior {
		case species.BehaviorProducer:
			producers++
		case species.BehaviorConsumer:
			consumers++
		case species.BehaviorDecomposer:
			decomposers++
		}
	}

	ws := e.collector.Flush(e.tick, producers, consumers, decomposers, e.energies)
	ws.LogStats()

	ps := e.perf.Stats()
	ps.LogStats()

	if err := e.output.WriteStats(ws); err != nil {
		slog.Error("writing window stats", "error", err)
	}
	if err := e.output.WritePerf(ps, e.tick); err != nil {
		slog.Error("writing perf stats", "error", err)
	}
}
