// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Simulation   SimulationConfig   `yaml:"simulation"`
	World        WorldConfig        `yaml:"world"`
	Spatial      SpatialConfig      `yaml:"spatial"`
	Reproduction ReproductionConfig `yaml:"reproduction"`
	Interaction  InteractionConfig  `yaml:"interaction"`
	Governor     GovernorConfig     `yaml:"governor"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`
	Species      []SpeciesConfig    `yaml:"species"`
}

// SimulationConfig holds the nominal simulation budget. The governor
// derives effective values from these; the nominal fields change only
// by explicit user command.
type SimulationConfig struct {
	MaxPopulation     int     `yaml:"max_population"`
	TickIntervalMs    float64 `yaml:"tick_interval_ms"`
	AutoStart         bool    `yaml:"auto_start"`
	InitialPerSpecies int     `yaml:"initial_per_species"`
	MaxCatchUpTicks   int     `yaml:"max_catch_up_ticks"` // ticks per frame cap after a stall
}

// WorldConfig holds simulation world dimensions in world units.
type WorldConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// SpatialConfig holds spatial grid parameters. CellSize is the nominal
// (finest) resolution; the governor coarsens toward MaxCellSize under load.
type SpatialConfig struct {
	CellSize    float64 `yaml:"cell_size"`
	MaxCellSize float64 `yaml:"max_cell_size"`
}

// ReproductionConfig holds reproduction parameters.
type ReproductionConfig struct {
	ThresholdFrac  float64 `yaml:"threshold_frac"`  // eligible when energy >= frac * max_energy
	BirthCostFrac  float64 `yaml:"birth_cost_frac"` // parent pays frac * child initial_energy
	SpawnRadius    float64 `yaml:"spawn_radius"`    // bounded search radius for free space
	MinSeparation  float64 `yaml:"min_separation"`  // a spot is free if no neighbor within this
	PlacementTries int     `yaml:"placement_tries"` // candidate positions probed per birth
}

// InteractionConfig holds trophic energy-flow parameters.
type InteractionConfig struct {
	FeedRadius         float64 `yaml:"feed_radius"`         // consumer bite reach
	HungerFrac         float64 `yaml:"hunger_frac"`         // consumers feed below frac * max_energy
	BiteFraction       float64 `yaml:"bite_fraction"`       // fraction of target max_energy per bite
	TransferEfficiency float64 `yaml:"transfer_efficiency"` // fraction of bitten energy gained
	ScavengeRadius     float64 `yaml:"scavenge_radius"`     // decomposer reach to carcasses
	ScavengeEfficiency float64 `yaml:"scavenge_efficiency"` // fraction of residual energy recovered
}

// GovernorConfig holds adaptive performance governor parameters.
type GovernorConfig struct {
	TargetFPS         float64 `yaml:"target_fps"`
	MinTargetFPS      float64 `yaml:"min_target_fps"`
	SampleWindowSec   float64 `yaml:"sample_window_sec"`
	LowBand           float64 `yaml:"low_band"`  // shrink below low_band * target_fps
	HighBand          float64 `yaml:"high_band"` // grow above high_band * target_fps
	ShrinkFactor      float64 `yaml:"shrink_factor"`
	GrowFactor        float64 `yaml:"grow_factor"`
	MinPopulation     int     `yaml:"min_population"` // floor for effective max population
	CellCoarsenFactor float64 `yaml:"cell_coarsen_factor"`
	LowBatteryLevel   float64 `yaml:"low_battery_level"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindowTicks int `yaml:"stats_window_ticks"`
	PerfWindow       int `yaml:"perf_window"`
}

// SpeciesConfig defines one organism type rule table as loaded from YAML.
// Validation happens at registration (species.NewRegistry); malformed
// entries are rejected and never admitted into the store.
type SpeciesConfig struct {
	Name              string  `yaml:"name"`
	Color             string  `yaml:"color"`
	Size              float64 `yaml:"size"`
	Behavior          string  `yaml:"behavior"` // producer, consumer, decomposer
	GrowthRate        float64 `yaml:"growth_rate"`
	DeathRate         float64 `yaml:"death_rate"`
	MaxAge            int     `yaml:"max_age"` // ticks
	InitialEnergy     float64 `yaml:"initial_energy"`
	MaxEnergy         float64 `yaml:"max_energy"`
	EnergyConsumption float64 `yaml:"energy_consumption"`
	EnergyGain        float64 `yaml:"energy_gain"` // producer intake per tick
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.computeDerived()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// computeDerived reconciles coupled bounds after merging a user file onto
// the embedded defaults. A file that only changes one side of a bound
// keeps the default on the other side; the dependent side follows.
func (c *Config) computeDerived() {
	if c.Governor.MinPopulation > c.Simulation.MaxPopulation {
		c.Governor.MinPopulation = c.Simulation.MaxPopulation
	}
	if c.Governor.MinTargetFPS > c.Governor.TargetFPS {
		c.Governor.MinTargetFPS = c.Governor.TargetFPS
	}
	if c.Spatial.MaxCellSize < c.Spatial.CellSize {
		c.Spatial.MaxCellSize = c.Spatial.CellSize
	}
}

// Validate checks engine-level parameters. Species rule tables are
// validated separately at registration.
func (c *Config) Validate() error {
	if c.Simulation.MaxPopulation < 1 {
		return fmt.Errorf("config: max_population must be >= 1, got %d", c.Simulation.MaxPopulation)
	}
	if c.Simulation.TickIntervalMs <= 0 {
		return fmt.Errorf("config: tick_interval_ms must be > 0, got %v", c.Simulation.TickIntervalMs)
	}
	if c.Simulation.MaxCatchUpTicks < 1 {
		return fmt.Errorf("config: max_catch_up_ticks must be >= 1, got %d", c.Simulation.MaxCatchUpTicks)
	}
	if c.World.Width <= 0 || c.World.Height <= 0 {
		return fmt.Errorf("config: world dimensions must be > 0, got %vx%v", c.World.Width, c.World.Height)
	}
	if c.Spatial.CellSize <= 0 {
		return fmt.Errorf("config: cell_size must be > 0, got %v", c.Spatial.CellSize)
	}
	if c.Spatial.MaxCellSize < c.Spatial.CellSize {
		return fmt.Errorf("config: max_cell_size must be >= cell_size, got %v < %v",
			c.Spatial.MaxCellSize, c.Spatial.CellSize)
	}
	if c.Reproduction.ThresholdFrac < 0 || c.Reproduction.ThresholdFrac > 1 {
		return fmt.Errorf("config: threshold_frac must be in [0,1], got %v", c.Reproduction.ThresholdFrac)
	}
	if c.Reproduction.PlacementTries < 1 {
		return fmt.Errorf("config: placement_tries must be >= 1, got %d", c.Reproduction.PlacementTries)
	}
	if c.Governor.TargetFPS <= 0 {
		return fmt.Errorf("config: target_fps must be > 0, got %v", c.Governor.TargetFPS)
	}
	if c.Governor.MinTargetFPS <= 0 || c.Governor.MinTargetFPS > c.Governor.TargetFPS {
		return fmt.Errorf("config: min_target_fps must be in (0, target_fps], got %v", c.Governor.MinTargetFPS)
	}
	if c.Governor.LowBand <= 0 || c.Governor.HighBand <= c.Governor.LowBand {
		return fmt.Errorf("config: governor bands must satisfy 0 < low_band < high_band, got %v/%v",
			c.Governor.LowBand, c.Governor.HighBand)
	}
	if c.Governor.ShrinkFactor <= 0 || c.Governor.ShrinkFactor >= 1 {
		return fmt.Errorf("config: shrink_factor must be in (0,1), got %v", c.Governor.ShrinkFactor)
	}
	if c.Governor.GrowFactor <= 1 {
		return fmt.Errorf("config: grow_factor must be > 1, got %v", c.Governor.GrowFactor)
	}
	if c.Governor.MinPopulation < 1 || c.Governor.MinPopulation > c.Simulation.MaxPopulation {
		return fmt.Errorf("config: min_population must be in [1, max_population], got %d", c.Governor.MinPopulation)
	}
	if c.Governor.CellCoarsenFactor <= 1 {
		return fmt.Errorf("config: cell_coarsen_factor must be > 1, got %v", c.Governor.CellCoarsenFactor)
	}
	if c.Telemetry.StatsWindowTicks < 1 {
		return fmt.Errorf("config: stats_window_ticks must be >= 1, got %d", c.Telemetry.StatsWindowTicks)
	}
	if c.Telemetry.PerfWindow < 1 {
		return fmt.Errorf("config: perf_window must be >= 1, got %d", c.Telemetry.PerfWindow)
	}
	if len(c.Species) == 0 {
		return fmt.Errorf("config: at least one species is required")
	}
	return nil
}

// TickInterval returns the nominal tick interval in seconds.
func (c *Config) TickInterval() float64 {
	return c.Simulation.TickIntervalMs / 1000.0
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
