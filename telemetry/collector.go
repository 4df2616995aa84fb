package telemetry

// Collector folds per-tick deltas emitted by the lifecycle engine into
// cumulative SimulationStats and per-window counters. It has no side
// effects on the simulation itself.
type Collector struct {
	windowTicks uint64

	stats SimulationStats

	// Current window tracking
	windowStartTick uint64
	windowBirths    int
	windowDeaths    int
	windowCulled    int
}

// NewCollector creates a stats collector flushing windows every windowTicks.
func NewCollector(windowTicks int) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	return &Collector{windowTicks: uint64(windowTicks)}
}

// RecordBirth records one birth and tracks the highest generation seen.
func (c *Collector) RecordBirth(generation uint32) {
	c.stats.Births++
	c.windowBirths++
	if generation > c.stats.GenerationMax {
		c.stats.GenerationMax = generation
	}
}

// RecordDeath records one death. Culled organisms count as deaths too but
// are additionally tracked per window via RecordCull.
func (c *Collector) RecordDeath() {
	c.stats.Deaths++
	c.windowDeaths++
}

// RecordCull records one cap-driven removal. Call alongside RecordDeath.
func (c *Collector) RecordCull() {
	c.windowCulled++
}

// RecordTick finalizes one tick with the post-commit population.
func (c *Collector) RecordTick(population int) {
	c.stats.ElapsedTicks++
	c.stats.Population = population
}

// Current returns a read-only snapshot of the cumulative stats.
func (c *Collector) Current() SimulationStats {
	return c.stats
}

// ShouldFlush returns true once enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick uint64) bool {
	return currentTick-c.windowStartTick >= c.windowTicks
}

// Flush produces a WindowStats and resets window counters. The caller
// supplies end-of-window population composition and energy samples.
func (c *Collector) Flush(currentTick uint64, producers, consumers, decomposers int, energies []float64) WindowStats {
	mean, p10, p50, p90 := EnergyDistribution(energies)

	ws := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,

		Population:  c.stats.Population,
		Producers:   producers,
		Consumers:   consumers,
		Decomposers: decomposers,

		Births: c.windowBirths,
		Deaths: c.windowDeaths,
		Culled: c.windowCulled,

		EnergyMean: mean,
		EnergyP10:  p10,
		EnergyP50:  p50,
		EnergyP90:  p90,

		GenerationMax: c.stats.GenerationMax,
	}

	c.windowStartTick = currentTick
	c.windowBirths = 0
	c.windowDeaths = 0
	c.windowCulled = 0

	return ws
}

// Reset clears all counters, cumulative and windowed.
func (c *Collector) Reset() {
	c.stats = SimulationStats{}
	c.windowStartTick = 0
	c.windowBirths = 0
	c.windowDeaths = 0
	c.windowCulled = 0
}

// Restore overwrites the cumulative stats, used when importing a saved state.
func (c *Collector) Restore(stats SimulationStats) {
	c.Reset()
	c.stats = stats
}
