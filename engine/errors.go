package engine

import "errors"

// Error kinds surfaced synchronously to callers. Capacity and rule-table
// errors live with their owning packages (world.ErrCapacityExceeded,
// species.ErrInvalidOrganismType).
var (
	// ErrInvalidTransition reports state-machine misuse, e.g. resume() from
	// Stopped. Invalid transitions fail loudly, never as a silent no-op.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrRendererUnavailable marks the external drawing surface as lost.
	// The engine responds by auto-pausing, not by crashing.
	ErrRendererUnavailable = errors.New("renderer unavailable")

	// ErrBadSnapshot reports a state snapshot that cannot be imported.
	ErrBadSnapshot = errors.New("bad state snapshot")
)
