package worldtest

import (
	"testing"

	"thornvale.world/internal/world"
	"thornvale.world/internal/world/spawn"
	"thornvale.world/internal/world/tile"
)

func TestSettlementScene_StampStreetsAndSpawns(t *testing.T) {
	h := NewHarness(t, world.WorldConfig{ID: "test", Seed: 9001})
	s := h.FindSettlement(2048)
	h.GenSettlement(s)

	registered := false
	for _, id := range h.W.Registry().Registered() {
		if id == s.ID {
			registered = true
		}
	}
	if !registered {
		t.Fatalf("sweeping %s did not register it", s.ID)
	}
	if len(s.Buildings) == 0 {
		t.Fatalf("settlement %s has no buildings", s.ID)
	}

	x0, y0, x1, y1 := s.Bounds()
	var walls, doors, streets, interiors int
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			tl := h.W.Store.GetTile(x, y)
			switch tl.Kind {
			case tile.Wall:
				walls++
			case tile.Door:
				doors++
			case tile.RoadCobble:
				streets++
			}
			if tl.Interior {
				interiors++
			}
		}
	}
	if walls == 0 || interiors == 0 {
		t.Fatalf("no buildings stamped: walls=%d interiors=%d", walls, interiors)
	}
	if doors < len(s.Buildings) {
		t.Fatalf("%d doors for %d buildings", doors, len(s.Buildings))
	}
	if streets == 0 {
		t.Fatalf("no streets connect the buildings")
	}

	npcs := 0
	for _, r := range h.Spawned() {
		if r.Kind != spawn.KindNPC || r.SettlementID != s.ID {
			continue
		}
		npcs++
		if !s.Contains(r.X, r.Y) {
			t.Fatalf("NPC %s spawned at (%d,%d), outside its settlement", r.TypeID, r.X, r.Y)
		}
	}
	if npcs == 0 {
		t.Fatalf("settlement %s spawned no NPCs", s.ID)
	}
}

func TestCreatureScatter_KeepsDistanceFromSettlements(t *testing.T) {
	h := NewHarness(t, world.WorldConfig{ID: "test", Seed: 31337})
	h.GenRect(-3, -3, 3, 3)

	reg := h.W.Registry()
	creatures := 0
	for _, r := range h.Spawned() {
		if r.Kind != spawn.KindCreature {
			continue
		}
		creatures++
		def, ok := h.Defs.Creatures.ByID[r.TypeID]
		if !ok {
			t.Fatalf("spawned unknown creature %q", r.TypeID)
		}
		if def.MinSettlementDist <= 0 {
			continue
		}
		if d := reg.CenterDistance(r.X, r.Y); d < float64(def.MinSettlementDist) {
			t.Fatalf("%s at (%d,%d) is %.1f tiles from a settlement center, min %d",
				r.TypeID, r.X, r.Y, d, def.MinSettlementDist)
		}
	}
	if creatures == 0 {
		t.Fatalf("no creatures across a 7x7 chunk sweep")
	}
}
