package defs

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
)

func quiet() *log.Logger { return log.New(io.Discard, "", 0) }

func writeConfig(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoad_RealConfigs(t *testing.T) {
	d, err := Load("../../configs", quiet())
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if d.Tiles.Palette[0] != "floor" {
		t.Fatalf("palette entry 0 is %q", d.Tiles.Palette[0])
	}
	for i, tag := range d.Tiles.Palette {
		if d.Tiles.Index[tag] != uint16(i) {
			t.Fatalf("index for %q is %d, want %d", tag, d.Tiles.Index[tag], i)
		}
	}
	for _, tag := range []string{"floor", "wall", "door", "water"} {
		if _, ok := d.Tiles.Styles[tag]; !ok {
			t.Fatalf("no style for %q", tag)
		}
	}

	wood, ok := d.Biomes.ByID["woodland"]
	if !ok {
		t.Fatalf("woodland biome missing")
	}
	if wood.BaseTile != "grass" || len(wood.FloorPalette) == 0 {
		t.Fatalf("woodland loaded wrong: %+v", wood)
	}

	if _, ok := d.Buildings.ByID["house"]; !ok {
		t.Fatalf("house building missing")
	}
	wolf, ok := d.Creatures.ByID["wolf"]
	if !ok || wolf.MinSettlementDist <= 0 {
		t.Fatalf("wolf loaded wrong: %+v ok=%v", wolf, ok)
	}

	for name, digest := range map[string]string{
		"tiles":     d.Tiles.Digest,
		"biomes":    d.Biomes.Digest,
		"buildings": d.Buildings.Digest,
		"creatures": d.Creatures.Digest,
	} {
		if len(digest) != 64 {
			t.Fatalf("%s digest %q is not a sha256 hex", name, digest)
		}
	}

	for i := 1; i < len(d.Biomes.Order); i++ {
		if d.Biomes.Order[i-1] >= d.Biomes.Order[i] {
			t.Fatalf("biome order not sorted: %v", d.Biomes.Order)
		}
	}
}

func TestLoad_MalformedEntriesDegrade(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "tiles.json", `[
		{"id": "floor", "glyph": ".", "color": "gray"},
		{"id": "lava", "glyph": "~", "color": "red"}
	]`)
	writeConfig(t, dir, "biomes.json", `[
		{"id": "glade", "base_tile": "crystal", "tree_density": 1.5, "rock_density": -0.25},
		{"name": "nameless"}
	]`)
	writeConfig(t, dir, "buildings.json", `[
		{"id": "shed", "width": 0, "height": 4, "npcs": ["carpenter"]}
	]`)
	writeConfig(t, dir, "creatures.json", `[
		{"id": "slime", "biome_weights": {"glade": 3}, "min_settlement_dist": -5}
	]`)

	d, err := Load(dir, quiet())
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	// Unknown tile tags are dropped, the palette stays complete.
	if _, ok := d.Tiles.Styles["lava"]; ok {
		t.Fatalf("unknown tile tag kept")
	}
	if len(d.Tiles.Palette) != len(d.Tiles.Index) {
		t.Fatalf("palette/index out of sync")
	}

	glade := d.Biomes.ByID["glade"]
	if glade.BaseTile != "grass" {
		t.Fatalf("unknown base_tile not defaulted: %q", glade.BaseTile)
	}
	if glade.TreeDensity != 1 || glade.RockDensity != 0 {
		t.Fatalf("densities not clamped: %+v", glade)
	}
	if len(d.Biomes.ByID) != 1 {
		t.Fatalf("id-less biome kept: %v", d.Biomes.Order)
	}

	shed := d.Buildings.ByID["shed"]
	if shed.Width != 5 || shed.Height != 5 {
		t.Fatalf("broken footprint not replaced by fallback hut: %+v", shed)
	}
	if len(shed.NPCs) != 1 || shed.NPCs[0] != "carpenter" {
		t.Fatalf("fallback dropped the building's NPCs: %+v", shed)
	}

	if d.Creatures.ByID["slime"].MinSettlementDist != 0 {
		t.Fatalf("negative min_settlement_dist not clamped")
	}
}

func TestLoad_MissingFileFails(t *testing.T) {
	if _, err := Load(t.TempDir(), quiet()); err == nil {
		t.Fatalf("expected error for empty config dir")
	}
}

func TestLoad_EmptyBiomesFails(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "tiles.json", `[{"id": "floor", "glyph": ".", "color": "gray"}]`)
	writeConfig(t, dir, "biomes.json", `[]`)
	writeConfig(t, dir, "buildings.json", `[{"id": "hut", "width": 3, "height": 3}]`)
	writeConfig(t, dir, "creatures.json", `[]`)

	if _, err := Load(dir, quiet()); err == nil {
		t.Fatalf("expected error for empty biome catalog")
	}
}

func TestBuildingCatalog_GetUnknown(t *testing.T) {
	d, err := Load("../../configs", quiet())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	b, ok := d.Buildings.Get("ziggurat")
	if ok {
		t.Fatalf("unknown building reported ok")
	}
	if b.Width != 5 || b.Height != 5 || len(b.NPCs) != 1 {
		t.Fatalf("fallback hut shape wrong: %+v", b)
	}
}
