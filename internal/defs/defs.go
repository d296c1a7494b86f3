// Package defs loads the JSON definition catalogs world generation
// reads: tile styles, biome descriptors, building footprints and
// creature tables. Malformed entries degrade to defaults with a log
// line; a broken definition must never stop the world from generating.
package defs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"thornvale.world/internal/world/tile"
)

type Defs struct {
	Tiles     TileCatalog
	Biomes    BiomeCatalog
	Buildings BuildingCatalog
	Creatures CreatureCatalog
}

type TileCatalog struct {
	// Palette lists the known tile kind tags; entry 0 is always "floor".
	Palette []string
	Index   map[string]uint16
	Styles  map[string]TileStyle
	Digest  string
}

type TileStyle struct {
	ID    string `json:"id"`
	Glyph string `json:"glyph"`
	Color string `json:"color"`
}

type BiomeCatalog struct {
	ByID   map[string]BiomeDef
	Order  []string
	Digest string
}

type PaletteEntry struct {
	Glyph string `json:"glyph"`
	Color string `json:"color"`
}

type BiomeDef struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	BaseTile     string         `json:"base_tile"`
	FloorPalette []PaletteEntry `json:"floor_palette,omitempty"`

	TreeDensity     float64 `json:"tree_density"`
	RockDensity     float64 `json:"rock_density"`
	HerbDensity     float64 `json:"herb_density"`
	FlowerDensity   float64 `json:"flower_density"`
	MushroomDensity float64 `json:"mushroom_density"`

	CreatureWeights map[string]int `json:"creature_weights,omitempty"`
}

type BuildingCatalog struct {
	ByID   map[string]BuildingDef
	Order  []string
	Digest string
}

type BuildingDef struct {
	ID     string   `json:"id"`
	Width  int      `json:"width"`
	Height int      `json:"height"`
	NPCs   []string `json:"npcs,omitempty"`
	Crop   string   `json:"crop,omitempty"`
}

type CreatureCatalog struct {
	ByID   map[string]CreatureDef
	Order  []string
	Digest string
}

type CreatureDef struct {
	ID                string         `json:"id"`
	Glyph             string         `json:"glyph,omitempty"`
	BiomeWeights      map[string]int `json:"biome_weights"`
	MinSettlementDist int            `json:"min_settlement_dist"`
}

// FallbackBuilding is stamped for unknown or malformed building ids: a
// plain 5x5 hut with a single villager and no crop.
func FallbackBuilding(id string) BuildingDef {
	return BuildingDef{ID: id, Width: 5, Height: 5, NPCs: []string{"villager"}}
}

func Load(configDir string, logger *log.Logger) (*Defs, error) {
	if logger == nil {
		logger = log.Default()
	}
	var d Defs

	if err := loadTiles(filepath.Join(configDir, "tiles.json"), &d.Tiles, logger); err != nil {
		return nil, err
	}
	if err := loadBiomes(filepath.Join(configDir, "biomes.json"), &d.Biomes, logger); err != nil {
		return nil, err
	}
	if err := loadBuildings(filepath.Join(configDir, "buildings.json"), &d.Buildings, logger); err != nil {
		return nil, err
	}
	if err := loadCreatures(filepath.Join(configDir, "creatures.json"), &d.Creatures, logger); err != nil {
		return nil, err
	}
	return &d, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadTiles(path string, out *TileCatalog, logger *log.Logger) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var styles []TileStyle
	if err := json.Unmarshal(raw, &styles); err != nil {
		return fmt.Errorf("tiles.json: %w", err)
	}

	out.Styles = map[string]TileStyle{}
	for _, s := range styles {
		if _, ok := tile.ParseKind(s.ID); !ok {
			logger.Printf("[defs] tiles.json: unknown tile tag %q, entry ignored", s.ID)
			continue
		}
		out.Styles[s.ID] = s
	}

	// The palette is the full kind list, not just the styled subset, so
	// wire ids stay stable even when a style entry is missing.
	out.Palette = tile.Kinds()
	out.Index = make(map[string]uint16, len(out.Palette))
	for i, tag := range out.Palette {
		out.Index[tag] = uint16(i)
	}
	if out.Palette[0] != "floor" {
		return fmt.Errorf("tiles.json: palette entry 0 must be floor, got %q", out.Palette[0])
	}
	return nil
}

func loadBiomes(path string, out *BiomeCatalog, logger *log.Logger) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var list []BiomeDef
	if err := json.Unmarshal(raw, &list); err != nil {
		return fmt.Errorf("biomes.json: %w", err)
	}

	out.ByID = map[string]BiomeDef{}
	for _, b := range list {
		if b.ID == "" {
			logger.Printf("[defs] biomes.json: entry without id ignored")
			continue
		}
		if b.BaseTile == "" {
			logger.Printf("[defs] biomes.json: %s has no base_tile, defaulting to grass", b.ID)
			b.BaseTile = "grass"
		}
		if _, ok := tile.ParseKind(b.BaseTile); !ok {
			logger.Printf("[defs] biomes.json: %s base_tile %q unknown, defaulting to grass", b.ID, b.BaseTile)
			b.BaseTile = "grass"
		}
		b.TreeDensity = clamp01(b.TreeDensity)
		b.RockDensity = clamp01(b.RockDensity)
		b.HerbDensity = clamp01(b.HerbDensity)
		b.FlowerDensity = clamp01(b.FlowerDensity)
		b.MushroomDensity = clamp01(b.MushroomDensity)
		out.ByID[b.ID] = b
	}
	out.Order = sortedKeys(out.ByID)
	if len(out.ByID) == 0 {
		return fmt.Errorf("biomes.json: no usable biome definitions")
	}
	return nil
}

func loadBuildings(path string, out *BuildingCatalog, logger *log.Logger) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var list []BuildingDef
	if err := json.Unmarshal(raw, &list); err != nil {
		return fmt.Errorf("buildings.json: %w", err)
	}

	out.ByID = map[string]BuildingDef{}
	for _, b := range list {
		if b.ID == "" {
			logger.Printf("[defs] buildings.json: entry without id ignored")
			continue
		}
		if b.Width <= 0 || b.Height <= 0 {
			logger.Printf("[defs] buildings.json: %s missing footprint size, using fallback hut", b.ID)
			fb := FallbackBuilding(b.ID)
			fb.NPCs = b.NPCs
			fb.Crop = b.Crop
			b = fb
		}
		out.ByID[b.ID] = b
	}
	out.Order = sortedKeys(out.ByID)
	if len(out.ByID) == 0 {
		return fmt.Errorf("buildings.json: no usable building definitions")
	}
	return nil
}

// Get resolves a building definition. Unknown ids report ok=false so
// the caller can log once and stamp FallbackBuilding instead.
func (c *BuildingCatalog) Get(id string) (BuildingDef, bool) {
	b, ok := c.ByID[id]
	if !ok {
		return FallbackBuilding(id), false
	}
	return b, true
}

func loadCreatures(path string, out *CreatureCatalog, logger *log.Logger) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var list []CreatureDef
	if err := json.Unmarshal(raw, &list); err != nil {
		return fmt.Errorf("creatures.json: %w", err)
	}

	out.ByID = map[string]CreatureDef{}
	for _, c := range list {
		if c.ID == "" {
			logger.Printf("[defs] creatures.json: entry without id ignored")
			continue
		}
		if c.MinSettlementDist < 0 {
			c.MinSettlementDist = 0
		}
		out.ByID[c.ID] = c
	}
	out.Order = sortedKeys(out.ByID)
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
