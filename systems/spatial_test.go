package systems

import (
	"math"
	"testing"
)

// stubPositions is a fixed ID-to-position table for grid tests.
type stubPositions map[uint64][2]float64

func (s stubPositions) PositionOf(id uint64) (float64, float64, bool) {
	p, ok := s[id]
	return p[0], p[1], ok
}

func TestQueryRadius(t *testing.T) {
	pos := stubPositions{
		1: {10, 10},
		2: {15, 10},
		3: {50, 50},
	}
	g := NewSpatialGrid(100, 100, 10)
	for id, p := range pos {
		g.Insert(id, p[0], p[1])
	}

	got := g.QueryRadiusInto(nil, 10, 10, 10, 1, pos)
	if len(got) != 1 {
		t.Fatalf("found %d neighbors, want 1", len(got))
	}
	if got[0].ID != 2 {
		t.Errorf("neighbor = %d, want 2", got[0].ID)
	}
	if got[0].DistSq != 25 {
		t.Errorf("DistSq = %v, want 25", got[0].DistSq)
	}
	if got[0].DX != 5 || got[0].DY != 0 {
		t.Errorf("delta = (%v, %v), want (5, 0)", got[0].DX, got[0].DY)
	}
}

func TestQueryRadiusExcludesSelf(t *testing.T) {
	pos := stubPositions{1: {10, 10}}
	g := NewSpatialGrid(100, 100, 10)
	g.Insert(1, 10, 10)

	if got := g.QueryRadiusInto(nil, 10, 10, 5, 1, pos); len(got) != 0 {
		t.Errorf("found %d neighbors, want 0 (self excluded)", len(got))
	}
	// exclude=0 means nothing is excluded.
	if got := g.QueryRadiusInto(nil, 10, 10, 5, 0, pos); len(got) != 1 {
		t.Errorf("found %d neighbors, want 1", len(got))
	}
}

func TestQueryRadiusToroidalWrap(t *testing.T) {
	pos := stubPositions{
		1: {2, 50},
		2: {98, 50},
	}
	g := NewSpatialGrid(100, 100, 10)
	for id, p := range pos {
		g.Insert(id, p[0], p[1])
	}

	// Across the seam the two are 4 apart, not 96.
	got := g.QueryRadiusInto(nil, 2, 50, 5, 1, pos)
	if len(got) != 1 {
		t.Fatalf("found %d neighbors, want 1 across the seam", len(got))
	}
	if got[0].DistSq != 16 {
		t.Errorf("DistSq = %v, want 16", got[0].DistSq)
	}
	if got[0].DX != -4 {
		t.Errorf("DX = %v, want -4 (wrapped)", got[0].DX)
	}
}

func TestQueryRadiusCapped(t *testing.T) {
	pos := stubPositions{}
	g := NewSpatialGrid(100, 100, 10)
	for id := uint64(1); id <= 200; id++ {
		pos[id] = [2]float64{50, 50}
		g.Insert(id, 50, 50)
	}

	got := g.QueryRadiusInto(nil, 50, 50, 5, 0, pos)
	if len(got) != MaxQueryResults {
		t.Errorf("found %d neighbors, want cap %d", len(got), MaxQueryResults)
	}
}

func TestQueryRadiusSkipsStaleIDs(t *testing.T) {
	pos := stubPositions{1: {10, 10}}
	g := NewSpatialGrid(100, 100, 10)
	g.Insert(1, 10, 10)
	g.Insert(2, 12, 10) // no longer resolvable

	got := g.QueryRadiusInto(nil, 10, 10, 5, 0, pos)
	if len(got) != 1 || got[0].ID != 1 {
		t.Errorf("neighbors = %v, want only ID 1", got)
	}
}

func TestHasNeighborWithin(t *testing.T) {
	pos := stubPositions{1: {10, 10}}
	g := NewSpatialGrid(100, 100, 10)
	g.Insert(1, 10, 10)

	if !g.HasNeighborWithin(12, 10, 5, pos) {
		t.Error("expected a neighbor within 5 of (12, 10)")
	}
	if g.HasNeighborWithin(50, 50, 5, pos) {
		t.Error("expected no neighbor within 5 of (50, 50)")
	}
}

func TestClear(t *testing.T) {
	pos := stubPositions{1: {10, 10}}
	g := NewSpatialGrid(100, 100, 10)
	g.Insert(1, 10, 10)
	g.Clear()

	if got := g.QueryRadiusInto(nil, 10, 10, 50, 0, pos); len(got) != 0 {
		t.Errorf("found %d neighbors after Clear, want 0", len(got))
	}
}

func TestToroidalDelta(t *testing.T) {
	tests := []struct {
		name           string
		x1, y1, x2, y2 float64
		wantDX, wantDY float64
	}{
		{"direct", 10, 10, 15, 20, 5, 10},
		{"wrap x positive", 98, 50, 2, 50, 4, 0},
		{"wrap x negative", 2, 50, 98, 50, -4, 0},
		{"wrap y positive", 50, 98, 50, 2, 0, 4},
		{"wrap y negative", 50, 2, 50, 98, 0, -4},
		{"same point", 30, 30, 30, 30, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dx, dy := ToroidalDelta(tt.x1, tt.y1, tt.x2, tt.y2, 100, 100)
			if math.Abs(dx-tt.wantDX) > 1e-9 || math.Abs(dy-tt.wantDY) > 1e-9 {
				t.Errorf("ToroidalDelta = (%v, %v), want (%v, %v)", dx, dy, tt.wantDX, tt.wantDY)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	tests := []struct {
		v, limit, want float64
	}{
		{5, 100, 5},
		{-5, 100, 95},
		{105, 100, 5},
		{100, 100, 0},
		{0, 100, 0},
		{-205, 100, 95},
	}

	for _, tt := range tests {
		if got := Wrap(tt.v, tt.limit); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Wrap(%v, %v) = %v, want %v", tt.v, tt.limit, got, tt.want)
		}
	}
}
