// Package settlement derives settlement descriptors from the world
// seed and stamps their buildings onto chunks. Descriptors are a pure
// function of the seed: every chunk that overlaps a settlement derives
// the identical layout, and the registry guards the one-time side
// effects (registration, NPC/crop spawns) a primary chunk performs.
package settlement

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"thornvale.world/internal/world/mathx"
	"thornvale.world/internal/world/rng"
)

type Tier uint8

const (
	Hamlet Tier = iota
	Village
	Town
)

func (t Tier) String() string {
	switch t {
	case Hamlet:
		return "hamlet"
	case Village:
		return "village"
	default:
		return "town"
	}
}

type Facing uint8

const (
	North Facing = iota
	East
	South
	West
)

// Placement positions one building relative to the settlement center.
type Placement struct {
	OffX, OffY int
	TypeID     string
	Facing     Facing
}

type Descriptor struct {
	ID   string
	Name string
	Tier Tier

	// Center in world coordinates.
	CenterX, CenterY int

	// FootprintSize bounds how far buildings may sit from the center;
	// the settlement's bounding box is the center expanded by it.
	FootprintSize int

	Buildings    []Placement
	RoadEligible bool
}

// Bounds returns the settlement bounding box, center expanded by the
// footprint size.
func (s *Descriptor) Bounds() (x0, y0, x1, y1 int) {
	fs := s.FootprintSize
	return s.CenterX - fs, s.CenterY - fs, s.CenterX + fs, s.CenterY + fs
}

func (s *Descriptor) Contains(x, y int) bool {
	x0, y0, x1, y1 := s.Bounds()
	return x >= x0 && x <= x1 && y >= y0 && y <= y1
}

type cellKey struct {
	CX, CY int
}

const settlementSalt = 77

// Registry derives, caches and registers settlements. Placement is a
// grid-cell scheme: each cell of CellSize tiles rolls once for
// presence, and a present settlement lives entirely inside its cell so
// intersection queries only scan cells overlapping the query rect.
type Registry struct {
	seed     int64
	cellSize int
	permille int

	mu         sync.Mutex
	cells      map[cellKey]*Descriptor
	registered map[string]bool
}

func NewRegistry(seed int64, cellSize, permille int) *Registry {
	if cellSize < 64 {
		cellSize = 64
	}
	if permille <= 0 {
		permille = 220
	}
	if permille > 1000 {
		permille = 1000
	}
	return &Registry{
		seed:       seed,
		cellSize:   cellSize,
		permille:   permille,
		cells:      map[cellKey]*Descriptor{},
		registered: map[string]bool{},
	}
}

func (r *Registry) CellSize() int { return r.cellSize }

// at derives (or returns the cached) settlement for a cell. A nil
// return means the cell rolled empty.
func (r *Registry) at(cx, cy int) *Descriptor {
	k := cellKey{cx, cy}
	r.mu.Lock()
	if d, ok := r.cells[k]; ok {
		r.mu.Unlock()
		return d
	}
	r.mu.Unlock()

	d := r.derive(cx, cy)

	r.mu.Lock()
	r.cells[k] = d
	r.mu.Unlock()
	return d
}

func (r *Registry) derive(cx, cy int) *Descriptor {
	h := mathx.Hash2(r.seed+settlementSalt, cx, cy)
	if h%1000 >= uint64(r.permille) {
		return nil
	}

	// One stream per settlement; the draw order below is fixed.
	sr := rng.New(int64(mathx.Mix64(uint64(r.seed) ^ h)))

	d := &Descriptor{ID: fmt.Sprintf("S_%d_%d", cx, cy)}

	switch roll := sr.Intn(100); {
	case roll < 50:
		d.Tier = Hamlet
		d.FootprintSize = 12
	case roll < 85:
		d.Tier = Village
		d.FootprintSize = 18
	default:
		d.Tier = Town
		d.FootprintSize = 26
	}
	d.FootprintSize += sr.Intn(4)
	d.RoadEligible = d.Tier != Hamlet

	// Keep the whole bounding box inside the cell so intersection
	// queries never have to look past the cells they overlap.
	margin := d.FootprintSize + 6
	span := r.cellSize - 2*margin
	if span < 1 {
		span = 1
	}
	d.CenterX = cx*r.cellSize + margin + sr.Intn(span)
	d.CenterY = cy*r.cellSize + margin + sr.Intn(span)

	d.Name = Name(sr)
	d.Buildings = layoutBuildings(sr, d)
	return d
}

// SettlementsIntersecting returns, sorted by ID, every settlement whose
// bounding box intersects [x0,x1]x[y0,y1].
func (r *Registry) SettlementsIntersecting(x0, y0, x1, y1 int) []*Descriptor {
	c0 := mathx.FloorDiv(x0, r.cellSize)
	c1 := mathx.FloorDiv(x1, r.cellSize)
	d0 := mathx.FloorDiv(y0, r.cellSize)
	d1 := mathx.FloorDiv(y1, r.cellSize)

	var out []*Descriptor
	for cy := d0; cy <= d1; cy++ {
		for cx := c0; cx <= c1; cx++ {
			s := r.at(cx, cy)
			if s == nil {
				continue
			}
			sx0, sy0, sx1, sy1 := s.Bounds()
			if sx1 < x0 || sx0 > x1 || sy1 < y0 || sy0 > y1 {
				continue
			}
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SettlementsInRect returns settlements whose center lies in the rect,
// sorted by ID. Used by the road pass to gather pair candidates.
func (r *Registry) SettlementsInRect(x0, y0, x1, y1 int) []*Descriptor {
	c0 := mathx.FloorDiv(x0, r.cellSize)
	c1 := mathx.FloorDiv(x1, r.cellSize)
	d0 := mathx.FloorDiv(y0, r.cellSize)
	d1 := mathx.FloorDiv(y1, r.cellSize)

	var out []*Descriptor
	for cy := d0; cy <= d1; cy++ {
		for cx := c0; cx <= c1; cx++ {
			s := r.at(cx, cy)
			if s == nil {
				continue
			}
			if s.CenterX < x0 || s.CenterX > x1 || s.CenterY < y0 || s.CenterY > y1 {
				continue
			}
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// NearestRoadEligible returns up to n road-eligible settlements nearest
// to s (Euclidean), scanning the two cell rings around its cell. Ties
// break on ID so the result is stable.
func (r *Registry) NearestRoadEligible(s *Descriptor, n int) []*Descriptor {
	cx := mathx.FloorDiv(s.CenterX, r.cellSize)
	cy := mathx.FloorDiv(s.CenterY, r.cellSize)

	type cand struct {
		d    *Descriptor
		dist float64
	}
	var cands []cand
	for dy := -2; dy <= 2; dy++ {
		for dx := -2; dx <= 2; dx++ {
			o := r.at(cx+dx, cy+dy)
			if o == nil || o.ID == s.ID || !o.RoadEligible {
				continue
			}
			cands = append(cands, cand{o, dist(s.CenterX, s.CenterY, o.CenterX, o.CenterY)})
		}
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].dist != cands[j].dist {
			return cands[i].dist < cands[j].dist
		}
		return cands[i].d.ID < cands[j].d.ID
	})
	if len(cands) > n {
		cands = cands[:n]
	}
	out := make([]*Descriptor, len(cands))
	for i, c := range cands {
		out[i] = c.d
	}
	return out
}

// WithinAnyBoundary reports whether a world position falls inside any
// settlement's bounding box.
func (r *Registry) WithinAnyBoundary(x, y int) bool {
	cx := mathx.FloorDiv(x, r.cellSize)
	cy := mathx.FloorDiv(y, r.cellSize)
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if s := r.at(cx+dx, cy+dy); s != nil && s.Contains(x, y) {
				return true
			}
		}
	}
	return false
}

// CenterDistance returns the distance from a world position to the
// nearest settlement center, scanning one cell ring out. Positions with
// no settlement in range report +Inf, which every minimum-distance
// check treats as "far enough".
func (r *Registry) CenterDistance(x, y int) float64 {
	cx := mathx.FloorDiv(x, r.cellSize)
	cy := mathx.FloorDiv(y, r.cellSize)
	best := math.Inf(1)
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if s := r.at(cx+dx, cy+dy); s != nil {
				if d := dist(x, y, s.CenterX, s.CenterY); d < best {
					best = d
				}
			}
		}
	}
	return best
}

// Register records the one-time registration of a settlement. Only the
// first call for an ID returns true; primary chunks gate their NPC and
// crop emission on it.
func (r *Registry) Register(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.registered[id] {
		return false
	}
	r.registered[id] = true
	return true
}

// Registered lists registered settlement IDs, sorted, for persistence.
func (r *Registry) Registered() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.registered))
	for id := range r.registered {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// MarkRegistered restores registration state from a save so reloaded
// worlds do not re-emit settlement spawns.
func (r *Registry) MarkRegistered(ids []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		r.registered[id] = true
	}
}

func dist(x0, y0, x1, y1 int) float64 {
	dx := float64(x1 - x0)
	dy := float64(y1 - y0)
	return math.Sqrt(dx*dx + dy*dy)
}
