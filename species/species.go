// Package species defines immutable organism type rule tables and their registry.
package species

import (
	"errors"
	"fmt"

	"github.com/and3rn3t/ecosim/config"
)

// ErrInvalidOrganismType is returned when a rule table fails validation at
// registration. Rejected types are never admitted into the store.
var ErrInvalidOrganismType = errors.New("invalid organism type")

// Behavior classifies how an organism acquires energy.
type Behavior uint8

const (
	BehaviorProducer Behavior = iota
	BehaviorConsumer
	BehaviorDecomposer
)

// String returns the YAML-facing name of the behavior.
func (b Behavior) String() string {
	switch b {
	case BehaviorProducer:
		return "producer"
	case BehaviorConsumer:
		return "consumer"
	case BehaviorDecomposer:
		return "decomposer"
	}
	return fmt.Sprintf("behavior(%d)", uint8(b))
}

// ParseBehavior maps a config string to a Behavior.
func ParseBehavior(s string) (Behavior, error) {
	switch s {
	case "producer":
		return BehaviorProducer, nil
	case "consumer":
		return BehaviorConsumer, nil
	case "decomposer":
		return BehaviorDecomposer, nil
	}
	return 0, fmt.Errorf("unknown behavior %q", s)
}

// OrganismType is a species-level rule set shared by all organisms of the
// type. Loaded once at registration and immutable afterwards; organisms
// reference it by TypeID.
type OrganismType struct {
	ID       uint8
	Name     string
	Color    string // renderer-facing passthrough, unused by the engine
	Size     float64
	Behavior Behavior

	GrowthRate        float64 // reproduction probability per eligible organism per tick
	DeathRate         float64 // baseline mortality probability per tick
	MaxAge            uint32  // ticks; an organism dies once its age exceeds this
	InitialEnergy     float64
	MaxEnergy         float64
	EnergyConsumption float64 // per tick
	EnergyGain        float64 // producer intake per tick
}

// Registry holds the validated, immutable organism type table.
type Registry struct {
	types  []OrganismType
	byName map[string]uint8
}

// NewRegistry validates the configured species and builds the type table.
// Any malformed entry rejects the whole table with ErrInvalidOrganismType.
func NewRegistry(specs []config.SpeciesConfig) (*Registry, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("%w: empty species table", ErrInvalidOrganismType)
	}
	if len(specs) > 256 {
		return nil, fmt.Errorf("%w: at most 256 species supported, got %d", ErrInvalidOrganismType, len(specs))
	}

	r := &Registry{
		types:  make([]OrganismType, 0, len(specs)),
		byName: make(map[string]uint8, len(specs)),
	}

	for i, s := range specs {
		if err := validateSpec(s); err != nil {
			return nil, fmt.Errorf("%w: species %q (index %d): %v", ErrInvalidOrganismType, s.Name, i, err)
		}
		if _, dup := r.byName[s.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate species name %q", ErrInvalidOrganismType, s.Name)
		}

		behavior, _ := ParseBehavior(s.Behavior)
		id := uint8(i)
		r.types = append(r.types, OrganismType{
			ID:                id,
			Name:              s.Name,
			Color:             s.Color,
			Size:              s.Size,
			Behavior:          behavior,
			GrowthRate:        s.GrowthRate,
			DeathRate:         s.DeathRate,
			MaxAge:            uint32(s.MaxAge),
			InitialEnergy:     s.InitialEnergy,
			MaxEnergy:         s.MaxEnergy,
			EnergyConsumption: s.EnergyConsumption,
			EnergyGain:        s.EnergyGain,
		})
		r.byName[s.Name] = id
	}

	return r, nil
}

func validateSpec(s config.SpeciesConfig) error {
	if s.Name == "" {
		return fmt.Errorf("name must not be empty")
	}
	if _, err := ParseBehavior(s.Behavior); err != nil {
		return err
	}
	if s.GrowthRate < 0 || s.GrowthRate > 1 {
		return fmt.Errorf("growth_rate must be in [0,1], got %v", s.GrowthRate)
	}
	if s.DeathRate < 0 || s.DeathRate > 1 {
		return fmt.Errorf("death_rate must be in [0,1], got %v", s.DeathRate)
	}
	if s.MaxAge < 1 {
		return fmt.Errorf("max_age must be >= 1, got %d", s.MaxAge)
	}
	if s.MaxEnergy <= 0 {
		return fmt.Errorf("max_energy must be > 0, got %v", s.MaxEnergy)
	}
	if s.InitialEnergy <= 0 || s.InitialEnergy > s.MaxEnergy {
		return fmt.Errorf("initial_energy must be in (0, max_energy], got %v", s.InitialEnergy)
	}
	if s.EnergyConsumption < 0 {
		return fmt.Errorf("energy_consumption must be >= 0, got %v", s.EnergyConsumption)
	}
	if s.EnergyGain < 0 {
		return fmt.Errorf("energy_gain must be >= 0, got %v", s.EnergyGain)
	}
	return nil
}

// Get returns the type for an ID. Panics on unknown IDs: type IDs only
// originate from this registry, so an unknown ID is a caller bug.
func (r *Registry) Get(id uint8) *OrganismType {
	if int(id) >= len(r.types) {
		panic(fmt.Sprintf("species: unknown type id %d", id))
	}
	return &r.types[id]
}

// ByName returns the type with the given name.
func (r *Registry) ByName(name string) (*OrganismType, bool) {
	id, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return &r.types[id], true
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	return len(r.types)
}

// CanEat reports whether an organism of type t may feed on one of type prey.
// Consumers eat producers; producers and decomposers never bite.
func (t *OrganismType) CanEat(prey *OrganismType) bool {
	return t.Behavior == BehaviorConsumer && prey.Behavior == BehaviorProducer
}
