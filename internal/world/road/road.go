// Package road builds the two road layers of the world: cobble streets
// inside a settlement, and the material-tiered roads that connect
// settlements to their nearest neighbors. Road geometry is derived from
// seeds shared by both endpoints, so every chunk a road crosses
// rasterizes the identical path and writes only its own cells.
package road

import (
	"math"
	"sort"

	"thornvale.world/internal/defs"
	"thornvale.world/internal/world/rng"
	"thornvale.world/internal/world/settlement"
	"thornvale.world/internal/world/tile"
)

// Canvas is the clipped write surface of the chunk under generation.
// Set ignores positions outside it; Get reports ok=false for them.
type Canvas interface {
	Get(wx, wy int) (tile.Tile, bool)
	Set(wx, wy int, t tile.Tile)
}

// Neighborhood is the settlement lookup the road pass needs. The
// settlement registry satisfies it.
type Neighborhood interface {
	SettlementsInRect(x0, y0, x1, y1 int) []*settlement.Descriptor
	NearestRoadEligible(s *settlement.Descriptor, n int) []*settlement.Descriptor
	WithinAnyBoundary(x, y int) bool
	CellSize() int
}

type Point struct {
	X, Y int
}

// Path is one inter-settlement road: the deduped tile positions from
// the lower-ID endpoint to the higher, plus the pair key that dedupes
// the A to B and B to A derivations.
type Path struct {
	Key    string
	A, B   string
	Points []Point
}

// PairKey joins two settlement IDs into an order-independent key.
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

// Line returns the Bresenham line from (x0,y0) to (x1,y1), both
// endpoints included.
func Line(x0, y0, x1, y1 int) []Point {
	dx := x1 - x0
	if dx < 0 {
		dx = -dx
	}
	dy := y1 - y0
	if dy < 0 {
		dy = -dy
	}
	sx := 1
	if x0 > x1 {
		sx = -1
	}
	sy := 1
	if y0 > y1 {
		sy = -1
	}
	err := dx - dy

	out := make([]Point, 0, dx+dy+1)
	for {
		out = append(out, Point{x0, y0})
		if x0 == x1 && y0 == y1 {
			return out
		}
		e2 := err * 2
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// Distance below which a road is a single straight line instead of a
// meandering waypoint chain.
const straightLimit = 30

// waypointSpacing tiles of straight-line distance per meander segment.
const straightPerSegment = 20

// meanderMax is the maximum perpendicular waypoint offset in tiles.
const meanderMax = 8

// Geometry derives the tile positions of the road between two
// settlements. Both argument orders produce the same path: endpoints
// are normalized to ID order and the meander offsets come from a
// pair-seeded stream.
func Geometry(worldSeed int64, a, b *settlement.Descriptor) []Point {
	lo, hi := a, b
	if hi.ID < lo.ID {
		lo, hi = hi, lo
	}
	x0, y0 := lo.CenterX, lo.CenterY
	x1, y1 := hi.CenterX, hi.CenterY

	d := math.Hypot(float64(x1-x0), float64(y1-y0))
	if d < straightLimit {
		return Line(x0, y0, x1, y1)
	}

	r := rng.New(rng.PairSeed(worldSeed, lo.ID, hi.ID))
	segs := int(d)/straightPerSegment + 1

	// Unit perpendicular of the straight line; waypoints slide along it.
	nx := float64(y0 - y1)
	ny := float64(x1 - x0)
	nlen := math.Hypot(nx, ny)
	nx /= nlen
	ny /= nlen

	way := make([]Point, 0, segs+1)
	way = append(way, Point{x0, y0})
	for k := 1; k < segs; k++ {
		t := float64(k) / float64(segs)
		bx := float64(x0) + t*float64(x1-x0)
		by := float64(y0) + t*float64(y1-y0)
		off := float64(r.Perturb(meanderMax))
		way = append(way, Point{
			X: int(math.Round(bx + nx*off)),
			Y: int(math.Round(by + ny*off)),
		})
	}
	way = append(way, Point{x1, y1})

	seen := make(map[Point]bool)
	var out []Point
	for i := 1; i < len(way); i++ {
		for _, p := range Line(way[i-1].X, way[i-1].Y, way[i].X, way[i].Y) {
			if seen[p] {
				continue
			}
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// PathsNear returns, in pair-key order, every inter-settlement path
// that could touch the given rect. Candidates are the road-eligible
// settlements within three registry cells of the rect; each connects
// to its two nearest road-eligible peers, and the sorted pair key
// collapses the two derivations of the same road into one.
func PathsNear(n Neighborhood, worldSeed int64, x0, y0, x1, y1 int) []Path {
	margin := 3*n.CellSize() + 2*meanderMax
	cands := n.SettlementsInRect(x0-margin, y0-margin, x1+margin, y1+margin)

	type pair struct{ a, b *settlement.Descriptor }
	pairs := make(map[string]pair)
	var keys []string
	for _, s := range cands {
		if !s.RoadEligible {
			continue
		}
		for _, o := range n.NearestRoadEligible(s, 2) {
			k := PairKey(s.ID, o.ID)
			if _, ok := pairs[k]; ok {
				continue
			}
			a, b := s, o
			if b.ID < a.ID {
				a, b = b, a
			}
			pairs[k] = pair{a, b}
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := make([]Path, 0, len(keys))
	for _, k := range keys {
		pr := pairs[k]
		out = append(out, Path{
			Key:    k,
			A:      pr.a.ID,
			B:      pr.b.ID,
			Points: Geometry(worldSeed, pr.a, pr.b),
		})
	}
	return out
}

// Material returns the road kind of point i on an n-point path. The
// tier comes from the fractional distance to the nearer endpoint:
// cobblestone within 15%, gravel within 30%, dirt between.
func Material(i, n int) tile.Kind {
	if n <= 1 {
		return tile.RoadCobble
	}
	near := i
	if n-1-i < near {
		near = n - 1 - i
	}
	ratio := float64(near) / float64(n-1)
	switch {
	case ratio <= 0.15:
		return tile.RoadCobble
	case ratio <= 0.30:
		return tile.RoadGravel
	default:
		return tile.RoadDirt
	}
}

// Rasterize writes a path into the canvas. Per tile, in order: cells
// outside the canvas are skipped, structural tiles and building
// interiors are never overwritten, cells inside any settlement
// boundary are left to the street layer, trees interrupt the road
// rather than rerouting it, water carries a bridge matching the road
// tier, and everything else becomes the road material.
func Rasterize(c Canvas, p Path, n Neighborhood) {
	total := len(p.Points)
	for i, pt := range p.Points {
		t, ok := c.Get(pt.X, pt.Y)
		if !ok {
			continue
		}
		if t.Kind.IsStructural() {
			continue
		}
		if t.Interior {
			continue
		}
		if n.WithinAnyBoundary(pt.X, pt.Y) {
			continue
		}
		if t.Kind == tile.Tree {
			continue
		}
		mat := Material(i, total)
		if t.Kind == tile.Water {
			if mat == tile.RoadCobble {
				c.Set(pt.X, pt.Y, tile.Make(tile.BridgeStone))
			} else {
				c.Set(pt.X, pt.Y, tile.Make(tile.BridgeWood))
			}
			continue
		}
		c.Set(pt.X, pt.Y, tile.Make(mat))
	}
}

// BuildIntra stamps one settlement's streets: an L-shaped cobble path
// from each building door to the settlement center. Structural tiles
// are skipped, water becomes a wooden footbridge, and only plain open
// ground is paved, so streets never eat into buildings.
func BuildIntra(c Canvas, s *settlement.Descriptor, cat *defs.BuildingCatalog) {
	for _, p := range s.Buildings {
		def, _ := cat.Get(p.TypeID)
		doorX, doorY := settlement.DoorPos(s, p, def)
		for _, pt := range lPath(doorX, doorY, s.CenterX, s.CenterY) {
			t, ok := c.Get(pt.X, pt.Y)
			if !ok {
				continue
			}
			if t.Kind.IsStructural() {
				continue
			}
			if t.Kind == tile.Water {
				c.Set(pt.X, pt.Y, tile.Make(tile.BridgeWood))
				continue
			}
			if t.IsPlainFloor() {
				c.Set(pt.X, pt.Y, tile.Make(tile.RoadCobble))
			}
		}
	}
}

// lPath walks the full horizontal run first, then the vertical one.
func lPath(x0, y0, x1, y1 int) []Point {
	var out []Point
	sx := 1
	if x1 < x0 {
		sx = -1
	}
	for x := x0; x != x1; x += sx {
		out = append(out, Point{x, y0})
	}
	sy := 1
	if y1 < y0 {
		sy = -1
	}
	for y := y0; y != y1; y += sy {
		out = append(out, Point{x1, y})
	}
	out = append(out, Point{x1, y1})
	return out
}
