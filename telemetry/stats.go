// Package telemetry provides simulation statistics, performance tracking,
// and structured output.
package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// SimulationStats holds cumulative, externally observable counters.
// Append-only; reset only on explicit simulation reset.
type SimulationStats struct {
	Population    int    `json:"population"`
	Births        uint64 `json:"births"`
	Deaths        uint64 `json:"deaths"`
	GenerationMax uint32 `json:"generation_max"`
	ElapsedTicks  uint64 `json:"elapsed_ticks"`
}

// LogValue implements slog.LogValuer for structured logging.
func (s SimulationStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("population", s.Population),
		slog.Uint64("births", s.Births),
		slog.Uint64("deaths", s.Deaths),
		slog.Int("generation_max", int(s.GenerationMax)),
		slog.Uint64("elapsed_ticks", s.ElapsedTicks),
	)
}

// WindowStats holds aggregated statistics for one stats window.
type WindowStats struct {
	WindowStartTick uint64 `csv:"-"`
	WindowEndTick   uint64 `csv:"window_end"`

	// Population counts at window end
	Population  int `csv:"population"`
	Producers   int `csv:"producers"`
	Consumers   int `csv:"consumers"`
	Decomposers int `csv:"decomposers"`

	// Events during window
	Births int `csv:"births"`
	Deaths int `csv:"deaths"`
	Culled int `csv:"culled"`

	// Energy distribution (sampled at window end)
	EnergyMean float64 `csv:"energy_mean"`
	EnergyP10  float64 `csv:"energy_p10"`
	EnergyP50  float64 `csv:"energy_p50"`
	EnergyP90  float64 `csv:"energy_p90"`

	GenerationMax uint32 `csv:"generation_max"`
}

// EnergyDistribution calculates mean and percentiles from energy values.
func EnergyDistribution(values []float64) (mean, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mean = stat.Mean(sorted, nil)
	p10 = stat.Quantile(0.10, stat.Empirical, sorted, nil)
	p50 = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	p90 = stat.Quantile(0.90, stat.Empirical, sorted, nil)

	return mean, p10, p50, p90
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"population", s.Population,
		"producers", s.Producers,
		"consumers", s.Consumers,
		"decomposers", s.Decomposers,
		"births", s.Births,
		"deaths", s.Deaths,
		"culled", s.Culled,
		"energy_mean", s.EnergyMean,
		"energy_p10", s.EnergyP10,
		"energy_p50", s.EnergyP50,
		"energy_p90", s.EnergyP90,
		"generation_max", s.GenerationMax,
	)
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("window_start", s.WindowStartTick),
		slog.Uint64("window_end", s.WindowEndTick),
		slog.Int("population", s.Population),
		slog.Int("producers", s.Producers),
		slog.Int("consumers", s.Consumers),
		slog.Int("decomposers", s.Decomposers),
		slog.Int("births", s.Births),
		slog.Int("deaths", s.Deaths),
		slog.Int("culled", s.Culled),
		slog.Float64("energy_mean", s.EnergyMean),
		slog.Float64("energy_p10", s.EnergyP10),
		slog.Float64("energy_p50", s.EnergyP50),
		slog.Float64("energy_p90", s.EnergyP90),
		slog.Int("generation_max", int(s.GenerationMax)),
	)
}
