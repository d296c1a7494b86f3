package tile

import "testing"

func TestMake_FlagsConsistentWithKind(t *testing.T) {
	for k := Kind(0); k < kindCount; k++ {
		tl := Make(k)
		switch k {
		case Wall, Tree, Rock:
			if tl.Walkable || tl.Transparent {
				t.Fatalf("%s: want blocked+opaque, got walkable=%v transparent=%v", k, tl.Walkable, tl.Transparent)
			}
		case Water:
			if tl.Walkable {
				t.Fatalf("water must not be walkable")
			}
			if !tl.Transparent {
				t.Fatalf("water must be transparent")
			}
		case Door:
			if !tl.Walkable {
				t.Fatalf("door must be walkable")
			}
			if tl.Transparent {
				t.Fatalf("closed door must block sight")
			}
		default:
			if !tl.Walkable || !tl.Transparent {
				t.Fatalf("%s: want open ground, got walkable=%v transparent=%v", k, tl.Walkable, tl.Transparent)
			}
		}
		if tl.Glyph == 0 || tl.Color == "" {
			t.Fatalf("%s: missing glyph/color defaults", k)
		}
	}
}

func TestDoor_ToggleKeepsInvariant(t *testing.T) {
	d := Make(Door)
	d.SetOpen(true)
	if !d.Transparent || !d.Walkable {
		t.Fatalf("open door must be walkable and transparent")
	}
	d.SetOpen(false)
	if d.Transparent {
		t.Fatalf("closed door must block sight again")
	}

	g := Make(Grass)
	g.SetOpen(true)
	if g.Open {
		t.Fatalf("SetOpen must be a no-op for non-doors")
	}
}

func TestParseKind_UnknownFallsToCaller(t *testing.T) {
	if k, ok := ParseKind("bridge_stone"); !ok || k != BridgeStone {
		t.Fatalf("ParseKind(bridge_stone) = %v, %v", k, ok)
	}
	if _, ok := ParseKind("lava"); ok {
		t.Fatalf("unknown tag must report ok=false")
	}
	if Kinds()[0] != "floor" {
		t.Fatalf("tag 0 must be floor, got %q", Kinds()[0])
	}
}

func TestIsPlainFloor_ExcludesInteriorAndStructures(t *testing.T) {
	g := Make(Grass)
	if !g.IsPlainFloor() {
		t.Fatalf("grass is plain floor")
	}
	g.Interior = true
	if g.IsPlainFloor() {
		t.Fatalf("interior floor belongs to a building")
	}
	if Make(Wall).IsPlainFloor() || Make(Water).IsPlainFloor() || Make(RoadDirt).IsPlainFloor() {
		t.Fatalf("walls, water and roads are not plain floor")
	}
}
