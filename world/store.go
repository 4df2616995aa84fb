// Package world owns the arena of live organisms.
//
// The store is backed by an ECS world: entities are slot-based handles with
// generation stamps and free-list reuse, so references held by the spatial
// index stay valid across a tick. There is exactly one writer (the lifecycle
// engine); snapshots for the renderer are copied out, never aliased.
package world

import (
	"errors"
	"sort"

	"github.com/mlange-42/ark/ecs"

	"github.com/and3rn3t/ecosim/components"
)

// ErrCapacityExceeded is returned by Add when the store is at its effective
// capacity. The reproduction path treats this as a normal "no birth" outcome.
var ErrCapacityExceeded = errors.New("capacity exceeded")

// OrganismView is a copied, immutable view of one organism for external
// consumers (renderer, persistence).
type OrganismView struct {
	ID         uint64
	TypeID     uint8
	X, Y       float64
	Energy     float64
	Age        uint32
	Generation uint32
}

// Store owns all organism data.
type Store struct {
	world  *ecs.World
	mapper *ecs.Map3[components.Position, components.Vitals, components.Lineage]
	filter *ecs.Filter3[components.Position, components.Vitals, components.Lineage]

	posMap *ecs.Map1[components.Position]
	vitMap *ecs.Map1[components.Vitals]
	linMap *ecs.Map1[components.Lineage]

	byID     map[uint64]ecs.Entity
	capacity int
	nextID   uint64
}

// NewStore creates an empty store with the given population capacity.
func NewStore(capacity int) *Store {
	w := ecs.NewWorld()
	return &Store{
		world:    w,
		mapper:   ecs.NewMap3[components.Position, components.Vitals, components.Lineage](w),
		filter:   ecs.NewFilter3[components.Position, components.Vitals, components.Lineage](w),
		posMap:   ecs.NewMap1[components.Position](w),
		vitMap:   ecs.NewMap1[components.Vitals](w),
		linMap:   ecs.NewMap1[components.Lineage](w),
		byID:     make(map[uint64]ecs.Entity, capacity),
		capacity: capacity,
		nextID:   1,
	}
}

// SetCapacity changes the effective population ceiling. Shrinking below the
// current count does not remove organisms; the lifecycle engine culls at the
// next tick boundary.
func (s *Store) SetCapacity(n int) {
	s.capacity = n
}

// Capacity returns the effective population ceiling.
func (s *Store) Capacity() int {
	return s.capacity
}

// Count returns the number of organisms in the store.
func (s *Store) Count() int {
	return len(s.byID)
}

// Add inserts a new organism and returns its ID. It fails closed with
// ErrCapacityExceeded when the store is at capacity: no insertion occurs.
func (s *Store) Add(typeID uint8, x, y, energy float64, generation uint32) (uint64, error) {
	if len(s.byID) >= s.capacity {
		return 0, ErrCapacityExceeded
	}

	id := s.nextID
	s.nextID++

	pos := components.Position{X: x, Y: y}
	vit := components.Vitals{Energy: energy, Age: 0, Alive: true}
	lin := components.Lineage{ID: id, TypeID: typeID, Generation: generation}

	entity := s.mapper.NewEntity(&pos, &vit, &lin)
	s.byID[id] = entity

	return id, nil
}

// Remove frees an organism's slot. Returns false if the ID is not present.
func (s *Store) Remove(id uint64) bool {
	entity, ok := s.byID[id]
	if !ok {
		return false
	}
	s.mapper.Remove(entity)
	delete(s.byID, id)
	return true
}

// Contains reports whether an organism is in the store.
func (s *Store) Contains(id uint64) bool {
	_, ok := s.byID[id]
	return ok
}

// Get returns a copied view of one organism.
func (s *Store) Get(id uint64) (OrganismView, bool) {
	entity, ok := s.byID[id]
	if !ok {
		return OrganismView{}, false
	}
	pos := s.posMap.Get(entity)
	vit := s.vitMap.Get(entity)
	lin := s.linMap.Get(entity)
	return OrganismView{
		ID:         lin.ID,
		TypeID:     lin.TypeID,
		X:          pos.X,
		Y:          pos.Y,
		Energy:     vit.Energy,
		Age:        vit.Age,
		Generation: lin.Generation,
	}, true
}

// Vitals returns mutable vitals for an organism, or nil if absent. The
// pointer is valid until the next structural change (Add/Remove).
func (s *Store) Vitals(id uint64) *components.Vitals {
	entity, ok := s.byID[id]
	if !ok {
		return nil
	}
	return s.vitMap.Get(entity)
}

// Position returns mutable position for an organism, or nil if absent.
func (s *Store) Position(id uint64) *components.Position {
	entity, ok := s.byID[id]
	if !ok {
		return nil
	}
	return s.posMap.Get(entity)
}

// Lineage returns the lineage record for an organism, or nil if absent.
func (s *Store) Lineage(id uint64) *components.Lineage {
	entity, ok := s.byID[id]
	if !ok {
		return nil
	}
	return s.linMap.Get(entity)
}

// PositionOf implements the spatial index position lookup.
func (s *Store) PositionOf(id uint64) (x, y float64, ok bool) {
	entity, present := s.byID[id]
	if !present {
		return 0, 0, false
	}
	pos := s.posMap.Get(entity)
	return pos.X, pos.Y, true
}

// IDs appends all live organism IDs to dst in ascending order and returns
// the result. Ascending ID is the deterministic processing order of a tick.
func (s *Store) IDs(dst []uint64) []uint64 {
	query := s.filter.Query()
	for query.Next() {
		_, _, lin := query.Get()
		dst = append(dst, lin.ID)
	}
	sort.Slice(dst, func(i, j int) bool { return dst[i] < dst[j] })
	return dst
}

// Snapshot returns a copied view of every organism, ordered by ascending ID.
// The result does not alias mutable storage.
func (s *Store) Snapshot() []OrganismView {
	views := make([]OrganismView, 0, len(s.byID))
	query := s.filter.Query()
	for query.Next() {
		pos, vit, lin := query.Get()
		views = append(views, OrganismView{
			ID:         lin.ID,
			TypeID:     lin.TypeID,
			X:          pos.X,
			Y:          pos.Y,
			Energy:     vit.Energy,
			Age:        vit.Age,
			Generation: lin.Generation,
		})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })
	return views
}

// Clear removes every organism. The ID counter keeps running so IDs are
// never reused within a session.
func (s *Store) Clear() {
	entities := make([]ecs.Entity, 0, len(s.byID))
	query := s.filter.Query()
	for query.Next() {
		entities = append(entities, query.Entity())
	}
	for _, e := range entities {
		s.mapper.Remove(e)
	}
	s.byID = make(map[uint64]ecs.Entity, s.capacity)
}
