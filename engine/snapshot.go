package engine

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/and3rn3t/ecosim/systems"
	"github.com/and3rn3t/ecosim/telemetry"
)

// SnapshotVersion is bumped whenever SavedState changes incompatibly.
const SnapshotVersion = 1

// OrganismState is one organism in a saved state. IDs are not persisted;
// importing assigns fresh IDs in saved order, which preserves the relative
// processing order.
type OrganismState struct {
	TypeID     uint8   `json:"typeId"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Energy     float64 `json:"energy"`
	Age        uint32  `json:"age"`
	Generation uint32  `json:"generation"`
}

// SavedState is a portable simulation checkpoint. It captures population
// and counters, not mid-stream RNG state: a resumed run is a valid
// simulation from the checkpoint, not a bit-exact continuation.
type SavedState struct {
	Version   int                       `json:"version"`
	RngSeed   int64                     `json:"rngSeed"`
	Tick      uint64                    `json:"tick"`
	Organisms []OrganismState           `json:"organisms"`
	Stats     telemetry.SimulationStats `json:"stats"`
}

// ExportState captures the current simulation as a SavedState.
func (e *Engine) ExportState() SavedState {
	views := e.store.Snapshot()
	organisms := make([]OrganismState, len(views))
	for i, v := range views {
		organisms[i] = OrganismState{
			TypeID:     v.TypeID,
			X:          v.X,
			Y:          v.Y,
			Energy:     v.Energy,
			Age:        v.Age,
			Generation: v.Generation,
		}
	}
	return SavedState{
		Version:   SnapshotVersion,
		RngSeed:   e.seed,
		Tick:      e.tick,
		Organisms: organisms,
		Stats:     e.collector.Current(),
	}
}

// ImportState replaces the simulation contents with a saved state. The
// state is validated before any mutation; on error the simulation is
// unchanged. The session remains in its current scheduler state.
func (e *Engine) ImportState(s SavedState) error {
	if s.Version != SnapshotVersion {
		return fmt.Errorf("%w: version %d, want %d", ErrBadSnapshot, s.Version, SnapshotVersion)
	}
	if len(s.Organisms) > e.cfg.Simulation.MaxPopulation {
		return fmt.Errorf("%w: %d organisms exceeds max population %d",
			ErrBadSnapshot, len(s.Organisms), e.cfg.Simulation.MaxPopulation)
	}
	for i, o := range s.Organisms {
		if int(o.TypeID) >= e.registry.Len() {
			return fmt.Errorf("%w: organism %d references unknown type %d", ErrBadSnapshot, i, o.TypeID)
		}
		typ := e.registry.Get(o.TypeID)
		if o.Energy <= 0 || o.Energy > typ.MaxEnergy {
			return fmt.Errorf("%w: organism %d energy %v outside (0, %v]",
				ErrBadSnapshot, i, o.Energy, typ.MaxEnergy)
		}
		if o.X < 0 || o.X >= e.cfg.World.Width || o.Y < 0 || o.Y >= e.cfg.World.Height {
			return fmt.Errorf("%w: organism %d position (%v, %v) outside world",
				ErrBadSnapshot, i, o.X, o.Y)
		}
	}

	e.store.Clear()
	e.store.SetCapacity(e.cfg.Simulation.MaxPopulation)
	for _, o := range s.Organisms {
		id, err := e.store.Add(o.TypeID, o.X, o.Y, o.Energy, o.Generation)
		if err != nil {
			return fmt.Errorf("restoring organism: %w", err)
		}
		vit := e.store.Vitals(id)
		vit.Age = o.Age
	}

	e.tick = s.Tick
	e.collector.Restore(s.Stats)
	e.governor.Reset()
	e.grid = systems.NewSpatialGrid(e.cfg.World.Width, e.cfg.World.Height, e.cfg.Spatial.CellSize)
	return nil
}

// SaveState writes the current state to a JSON file.
func (e *Engine) SaveState(path string) error {
	data, err := json.MarshalIndent(e.ExportState(), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}
	return nil
}

// LoadState reads a saved state from a JSON file and imports it.
func (e *Engine) LoadState(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading state file: %w", err)
	}
	var s SavedState
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}
	return e.ImportState(s)
}
