package settlement

import (
	"testing"

	"thornvale.world/internal/defs"
	"thornvale.world/internal/world/rng"
	"thornvale.world/internal/world/spawn"
	"thornvale.world/internal/world/tile"
)

func loadDefs(t *testing.T) *defs.Defs {
	t.Helper()
	d, err := defs.Load("../../../configs", nil)
	if err != nil {
		t.Fatalf("load defs: %v", err)
	}
	return d
}

func TestRegistry_DeterministicAcrossInstances(t *testing.T) {
	r1 := NewRegistry(12345, 256, 220)
	r2 := NewRegistry(12345, 256, 220)

	a := r1.SettlementsIntersecting(-2000, -2000, 2000, 2000)
	b := r2.SettlementsIntersecting(-2000, -2000, 2000, 2000)
	if len(a) != len(b) {
		t.Fatalf("settlement count differs: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Name != b[i].Name ||
			a[i].CenterX != b[i].CenterX || a[i].CenterY != b[i].CenterY ||
			a[i].Tier != b[i].Tier || len(a[i].Buildings) != len(b[i].Buildings) {
			t.Fatalf("settlement %d differs between instances: %+v vs %+v", i, a[i], b[i])
		}
		for j := range a[i].Buildings {
			if a[i].Buildings[j] != b[i].Buildings[j] {
				t.Fatalf("building %d of %s differs", j, a[i].ID)
			}
		}
	}

	other := NewRegistry(54321, 256, 220)
	c := other.SettlementsIntersecting(-2000, -2000, 2000, 2000)
	same := len(a) == len(c)
	if same {
		for i := range a {
			if a[i].CenterX != c[i].CenterX || a[i].CenterY != c[i].CenterY {
				same = false
				break
			}
		}
	}
	if same && len(a) > 0 {
		t.Fatalf("different world seeds produced identical settlement layouts")
	}
}

func TestRegistry_SettlementStaysInsideItsCell(t *testing.T) {
	r := NewRegistry(7, 256, 1000)
	for cy := -3; cy <= 3; cy++ {
		for cx := -3; cx <= 3; cx++ {
			s := r.at(cx, cy)
			if s == nil {
				t.Fatalf("permille 1000 must place a settlement in every cell")
			}
			x0, y0, x1, y1 := s.Bounds()
			if x0 < cx*256 || x1 >= (cx+1)*256 || y0 < cy*256 || y1 >= (cy+1)*256 {
				t.Fatalf("%s bounds [%d,%d,%d,%d] leak out of cell (%d,%d)", s.ID, x0, y0, x1, y1, cx, cy)
			}
			for _, p := range s.Buildings {
				if abs(p.OffX) > s.FootprintSize || abs(p.OffY) > s.FootprintSize {
					t.Fatalf("%s building offset (%d,%d) outside footprint %d", s.ID, p.OffX, p.OffY, s.FootprintSize)
				}
			}
		}
	}
}

func TestRegistry_IntersectionQuery(t *testing.T) {
	r := NewRegistry(7, 256, 1000)
	s := r.at(0, 0)
	x0, y0, x1, y1 := s.Bounds()

	hits := r.SettlementsIntersecting(x0-1, y0-1, x0, y0)
	found := false
	for _, h := range hits {
		if h.ID == s.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("query touching the bounding box corner missed %s", s.ID)
	}

	for _, h := range r.SettlementsIntersecting(x1+1, y1+1, x1+32, y1+32) {
		if h.ID == s.ID {
			t.Fatalf("query outside the bounding box returned %s", s.ID)
		}
	}
}

func TestRegistry_NearestRoadEligible(t *testing.T) {
	r := NewRegistry(99, 256, 1000)

	var s *Descriptor
	for cy := -2; cy <= 2 && s == nil; cy++ {
		for cx := -2; cx <= 2 && s == nil; cx++ {
			if c := r.at(cx, cy); c != nil && c.RoadEligible {
				s = c
			}
		}
	}
	if s == nil {
		t.Skipf("no road-eligible settlement in scan window")
	}

	near := r.NearestRoadEligible(s, 2)
	if len(near) == 0 {
		t.Fatalf("expected neighbors with every cell populated")
	}
	prev := -1.0
	for _, n := range near {
		if n.ID == s.ID {
			t.Fatalf("neighbor list includes the settlement itself")
		}
		if !n.RoadEligible {
			t.Fatalf("neighbor %s is not road-eligible", n.ID)
		}
		dd := dist(s.CenterX, s.CenterY, n.CenterX, n.CenterY)
		if dd < prev {
			t.Fatalf("neighbors not sorted by distance")
		}
		prev = dd
	}
}

func TestRegistry_RegisterExactlyOnce(t *testing.T) {
	r := NewRegistry(1, 256, 220)
	if !r.Register("S_0_0") {
		t.Fatalf("first registration must return true")
	}
	if r.Register("S_0_0") {
		t.Fatalf("second registration must return false")
	}
	r.MarkRegistered([]string{"S_5_5"})
	if r.Register("S_5_5") {
		t.Fatalf("restored registration must block re-registration")
	}
	got := r.Registered()
	if len(got) != 2 || got[0] != "S_0_0" || got[1] != "S_5_5" {
		t.Fatalf("registered list = %v", got)
	}
}

func TestName_Deterministic(t *testing.T) {
	a := Name(rng.New(42))
	b := Name(rng.New(42))
	if a != b || a == "" {
		t.Fatalf("Name not deterministic: %q vs %q", a, b)
	}
}

// gridCanvas is a chunk-shaped write surface for overlay tests.
type gridCanvas struct {
	x0, y0, w, h int
	tiles        map[[2]int]tile.Tile
}

func newGridCanvas(x0, y0, w, h int) *gridCanvas {
	return &gridCanvas{x0: x0, y0: y0, w: w, h: h, tiles: map[[2]int]tile.Tile{}}
}

func (c *gridCanvas) inBounds(wx, wy int) bool {
	return wx >= c.x0 && wx < c.x0+c.w && wy >= c.y0 && wy < c.y0+c.h
}

func (c *gridCanvas) Get(wx, wy int) (tile.Tile, bool) {
	if !c.inBounds(wx, wy) {
		return tile.Tile{}, false
	}
	if t, ok := c.tiles[[2]int{wx, wy}]; ok {
		return t, true
	}
	return tile.Make(tile.Grass), true
}

func (c *gridCanvas) Set(wx, wy int, t tile.Tile) {
	if !c.inBounds(wx, wy) {
		return
	}
	c.tiles[[2]int{wx, wy}] = t
}

func TestStamp_BuildingShapeAndClipping(t *testing.T) {
	d := loadDefs(t)
	s := &Descriptor{
		ID: "S_T", Name: "Test", Tier: Village,
		CenterX: 50, CenterY: 50, FootprintSize: 18,
		Buildings: []Placement{{OffX: -8, OffY: 0, TypeID: "house", Facing: East}},
	}

	c := newGridCanvas(0, 0, 128, 128)
	Stamp(c, s, &d.Buildings, nil)

	def, _ := d.Buildings.Get("house")
	x0, y0, x1, y1, doorX, doorY := Footprint(s, s.Buildings[0], def)

	door, _ := c.Get(doorX, doorY)
	if door.Kind != tile.Door {
		t.Fatalf("no door at (%d,%d), got %v", doorX, doorY, door.Kind)
	}
	if doorX != x1 {
		t.Fatalf("east-facing door must sit on the east wall")
	}

	walls, interior := 0, 0
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			tl, ok := c.Get(x, y)
			if !ok {
				t.Fatalf("footprint cell (%d,%d) out of canvas", x, y)
			}
			switch {
			case x == doorX && y == doorY:
			case x == x0 || x == x1 || y == y0 || y == y1:
				if tl.Kind != tile.Wall {
					t.Fatalf("perimeter cell (%d,%d) is %v, want wall", x, y, tl.Kind)
				}
				walls++
			default:
				if tl.Kind != tile.Floor || !tl.Interior {
					t.Fatalf("interior cell (%d,%d) is %v interior=%v", x, y, tl.Kind, tl.Interior)
				}
				interior++
			}
		}
	}
	if walls == 0 || interior == 0 {
		t.Fatalf("degenerate footprint: %d walls, %d interior", walls, interior)
	}

	// A canvas covering none of the footprint takes no writes.
	far := newGridCanvas(1000, 1000, 32, 32)
	Stamp(far, s, &d.Buildings, nil)
	if len(far.tiles) != 0 {
		t.Fatalf("stamping wrote %d tiles outside the canvas", len(far.tiles))
	}
}

func TestStamp_UnknownBuildingFallsBack(t *testing.T) {
	d := loadDefs(t)
	s := &Descriptor{
		ID: "S_T", Tier: Hamlet, CenterX: 20, CenterY: 20, FootprintSize: 12,
		Buildings: []Placement{{OffX: 0, OffY: 0, TypeID: "ziggurat", Facing: South}},
	}
	c := newGridCanvas(0, 0, 64, 64)
	Stamp(c, s, &d.Buildings, nil)

	fb := defs.FallbackBuilding("ziggurat")
	x0, y0, x1, y1, _, _ := Footprint(s, s.Buildings[0], fb)
	corner, _ := c.Get(x0, y0)
	if corner.Kind != tile.Wall {
		t.Fatalf("fallback hut not stamped: corner (%d,%d) is %v", x0, y0, corner.Kind)
	}
	if x1-x0+1 != fb.Width || y1-y0+1 != fb.Height {
		t.Fatalf("fallback footprint %dx%d, want %dx%d", x1-x0+1, y1-y0+1, fb.Width, fb.Height)
	}
}

func TestSpawns_NPCsAndCrops(t *testing.T) {
	d := loadDefs(t)
	s := &Descriptor{
		ID: "S_T", Tier: Village, CenterX: 0, CenterY: 0, FootprintSize: 18,
		Buildings: []Placement{
			{OffX: -9, OffY: 0, TypeID: "house", Facing: East},
			{OffX: 9, OffY: 0, TypeID: "farm", Facing: West},
		},
	}
	reqs := Spawns(s, &d.Buildings)

	npcs, crops := 0, 0
	for _, r := range reqs {
		if r.SettlementID != "S_T" {
			t.Fatalf("request missing settlement id: %+v", r)
		}
		switch r.Kind {
		case spawn.KindNPC:
			npcs++
		case spawn.KindCrop:
			if r.TypeID != "wheat" {
				t.Fatalf("crop type = %q", r.TypeID)
			}
			crops++
		default:
			t.Fatalf("unexpected kind %q", r.Kind)
		}
	}
	// house: villager; farm: farmer.
	if npcs != 2 {
		t.Fatalf("npc count = %d, want 2", npcs)
	}
	farmDef, _ := d.Buildings.Get("farm")
	wantCrops := (farmDef.Width - 2) * (farmDef.Height - 2)
	if crops != wantCrops {
		t.Fatalf("crop count = %d, want %d", crops, wantCrops)
	}
}
