package biome

import (
	"io"
	"log"
	"testing"

	"thornvale.world/internal/defs"
	"thornvale.world/internal/world/tile"
)

func quiet() *log.Logger { return log.New(io.Discard, "", 0) }

func testDefs(t *testing.T) *defs.Defs {
	t.Helper()
	d, err := defs.Load("../../../configs", quiet())
	if err != nil {
		t.Fatalf("load defs: %v", err)
	}
	return d
}

func TestFromDef(t *testing.T) {
	d := FromDef(defs.BiomeDef{
		ID:       "dunes",
		Name:     "Dunes",
		BaseTile: "sand",
		FloorPalette: []defs.PaletteEntry{
			{Glyph: "~", Color: "yellow"},
			{Glyph: "", Color: "ignored"},
		},
		TreeDensity: 0.01,
		RockDensity: 0.05,
	})

	if d.BaseKind != tile.Sand {
		t.Fatalf("base kind %v, want sand", d.BaseKind)
	}
	if len(d.FloorPalette) != 1 || d.FloorPalette[0].Glyph != '~' || d.FloorPalette[0].Color != "yellow" {
		t.Fatalf("palette converted wrong: %+v", d.FloorPalette)
	}
	if d.TreeDensity != 0.01 || d.RockDensity != 0.05 {
		t.Fatalf("densities not carried: %+v", d)
	}
}

func TestMustDescriptor_FallsBackToWoodland(t *testing.T) {
	d := testDefs(t)

	if got := MustDescriptor(d, "woodland", quiet()); got.ID != "woodland" || got.BaseKind != tile.Grass {
		t.Fatalf("catalog woodland resolved wrong: %+v", got)
	}
	fb := MustDescriptor(d, "no_such_biome", quiet())
	if fb.ID != "woodland" || fb.TreeDensity == 0 {
		t.Fatalf("missing id did not fall back: %+v", fb)
	}
}

func TestNoiseSource_Deterministic(t *testing.T) {
	d := testDefs(t)
	a := NewNoiseSource(1234, d, quiet())
	b := NewNoiseSource(1234, d, quiet())
	c := NewNoiseSource(4321, d, quiet())

	diff := false
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			wx, wy := x*137-1370, y*137-1370
			if a.BiomeAt(wx, wy).ID != b.BiomeAt(wx, wy).ID {
				t.Fatalf("same seed disagrees at (%d,%d)", wx, wy)
			}
			if a.BiomeAt(wx, wy).ID != c.BiomeAt(wx, wy).ID {
				diff = true
			}
		}
	}
	if !diff {
		t.Fatalf("seeds 1234 and 4321 classified 400 samples identically")
	}
}

func TestNoiseSource_ProducesRegions(t *testing.T) {
	d := testDefs(t)
	s := NewNoiseSource(42, d, quiet())

	seen := map[string]bool{}
	for y := -40; y <= 40; y++ {
		for x := -40; x <= 40; x++ {
			seen[s.BiomeAt(x*50, y*50).ID] = true
		}
	}
	if len(seen) < 3 {
		t.Fatalf("only %d biomes across a 4000-tile span: %v", len(seen), seen)
	}

	// Neighboring tiles almost always share a biome; regions are
	// hundreds of tiles across, not per-tile noise.
	changes := 0
	for x := 0; x < 1000; x++ {
		if s.BiomeAt(x, 0).ID != s.BiomeAt(x+1, 0).ID {
			changes++
		}
	}
	if changes > 25 {
		t.Fatalf("%d biome flips along a 1000-tile walk", changes)
	}
}
