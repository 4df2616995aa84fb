// Package components defines the data components stored per organism in the arena.
package components

// Position is an organism's world position.
type Position struct {
	X, Y float64
}

// Vitals holds the mutable life state of an organism. Energy stays within
// [0, type.MaxEnergy] for live organisms; Age is monotonic non-decreasing
// until removal.
type Vitals struct {
	Energy float64
	Age    uint32
	Alive  bool
}

// Lineage identifies an organism and its ancestry. ID is a monotonic
// creation counter and doubles as the deterministic processing order.
type Lineage struct {
	ID         uint64
	TypeID     uint8
	Generation uint32
}
