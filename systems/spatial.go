// Package systems provides the spatial index used for neighbor queries.
package systems

import "math"

// PositionLookup resolves an organism ID to its current position.
type PositionLookup interface {
	PositionOf(id uint64) (x, y float64, ok bool)
}

// Neighbor holds a nearby organism with precomputed spatial data.
// This avoids recomputing toroidal delta and distance at the call site.
type Neighbor struct {
	ID     uint64
	DX, DY float64 // Toroidal delta from query origin
	DistSq float64 // Squared distance (avoid sqrt in hot path)
}

// MaxQueryResults caps the number of neighbors returned by spatial queries.
// This prevents density spikes from causing unbounded work.
const MaxQueryResults = 128

// SpatialGrid provides O(1) neighbor lookups using a cell-based uniform grid.
// References are non-owning organism IDs; the grid is rebuilt once per tick
// before interaction resolution.
type SpatialGrid struct {
	cellSize float64
	cols     int
	rows     int
	width    float64
	height   float64
	cells    [][]uint64 // flat grid of organism ID lists
}

// NewSpatialGrid creates a spatial grid covering the given world size. The
// cell count is the ceiling of size over cellSize so that column 0 and the
// last column are true toroidal neighbors.
func NewSpatialGrid(width, height, cellSize float64) *SpatialGrid {
	cols := int(math.Ceil(width / cellSize))
	rows := int(math.Ceil(height / cellSize))
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}

	cells := make([][]uint64, cols*rows)
	for i := range cells {
		cells[i] = make([]uint64, 0, 8) // pre-allocate small capacity
	}

	return &SpatialGrid{
		cellSize: cellSize,
		cols:     cols,
		rows:     rows,
		width:    width,
		height:   height,
		cells:    cells,
	}
}

// CellSize returns the grid's cell size.
func (g *SpatialGrid) CellSize() float64 {
	return g.cellSize
}

// Clear removes all organisms from the grid.
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

// Insert adds an organism to the grid at the given position.
func (g *SpatialGrid) Insert(id uint64, x, y float64) {
	idx := g.cellIndex(x, y)
	if idx >= 0 && idx < len(g.cells) {
		g.cells[idx] = append(g.cells[idx], id)
	}
}

// QueryRadiusInto finds organisms within radius and appends to dst (up to
// MaxQueryResults). Returns the updated slice; reuse dst across calls to
// avoid allocations. Results are not valid across a grid rebuild. Pass
// exclude=0 to exclude nothing (IDs start at 1).
//
// Iteration order is deterministic: cells in fixed scan order, entries in
// insertion order. Inserting in ascending ID order therefore yields
// reproducible neighbor sequences given identical state.
func (g *SpatialGrid) QueryRadiusInto(dst []Neighbor, x, y, radius float64, exclude uint64, pos PositionLookup) []Neighbor {
	cellRadius := int(radius/g.cellSize) + 1

	centerCol := int(x / g.cellSize)
	centerRow := int(y / g.cellSize)

	radiusSq := radius * radius

	for dc := -cellRadius; dc <= cellRadius; dc++ {
		for dr := -cellRadius; dr <= cellRadius; dr++ {
			// Toroidal wrap
			col := ((centerCol+dc)%g.cols + g.cols) % g.cols
			row := ((centerRow+dr)%g.rows + g.rows) % g.rows
			idx := row*g.cols + col

			for _, id := range g.cells[idx] {
				if id == exclude {
					continue
				}

				nx, ny, ok := pos.PositionOf(id)
				if !ok {
					continue
				}

				dx, dy := ToroidalDelta(x, y, nx, ny, g.width, g.height)
				distSq := dx*dx + dy*dy

				if distSq <= radiusSq {
					dst = append(dst, Neighbor{ID: id, DX: dx, DY: dy, DistSq: distSq})
					// Early exit if we hit the cap
					if len(dst) >= MaxQueryResults {
						return dst
					}
				}
			}
		}
	}

	return dst
}

// HasNeighborWithin reports whether any organism lies within radius of the
// given position. Used as the free-space probe for reproduction placement.
func (g *SpatialGrid) HasNeighborWithin(x, y, radius float64, pos PositionLookup) bool {
	cellRadius := int(radius/g.cellSize) + 1

	centerCol := int(x / g.cellSize)
	centerRow := int(y / g.cellSize)

	radiusSq := radius * radius

	for dc := -cellRadius; dc <= cellRadius; dc++ {
		for dr := -cellRadius; dr <= cellRadius; dr++ {
			col := ((centerCol+dc)%g.cols + g.cols) % g.cols
			row := ((centerRow+dr)%g.rows + g.rows) % g.rows
			idx := row*g.cols + col

			for _, id := range g.cells[idx] {
				nx, ny, ok := pos.PositionOf(id)
				if !ok {
					continue
				}
				dx, dy := ToroidalDelta(x, y, nx, ny, g.width, g.height)
				if dx*dx+dy*dy <= radiusSq {
					return true
				}
			}
		}
	}

	return false
}

// cellIndex returns the flat index for a world position.
func (g *SpatialGrid) cellIndex(x, y float64) int {
	col := int(x / g.cellSize)
	row := int(y / g.cellSize)

	// Clamp to valid range
	if col < 0 {
		col = 0
	} else if col >= g.cols {
		col = g.cols - 1
	}
	if row < 0 {
		row = 0
	} else if row >= g.rows {
		row = g.rows - 1
	}

	return row*g.cols + col
}

// ToroidalDelta returns the shortest path delta from (x1,y1) to (x2,y2).
func ToroidalDelta(x1, y1, x2, y2, w, h float64) (dx, dy float64) {
	dx = x2 - x1
	dy = y2 - y1

	if dx > w/2 {
		dx -= w
	} else if dx < -w/2 {
		dx += w
	}
	if dy > h/2 {
		dy -= h
	} else if dy < -h/2 {
		dy += h
	}

	return dx, dy
}

// Wrap maps a coordinate into [0, limit) toroidally.
func Wrap(v, limit float64) float64 {
	for v < 0 {
		v += limit
	}
	for v >= limit {
		v -= limit
	}
	return v
}
