// Package biome defines the biome collaborator contract the generator
// consumes. Classification math is not part of the core contract; any
// Source implementation just has to be pure and deterministic for a
// given construction seed.
package biome

import (
	"log"

	"thornvale.world/internal/defs"
	"thornvale.world/internal/world/tile"
)

type Style struct {
	Glyph rune
	Color string
}

// Descriptor tells the synthesizer what a world location is made of.
type Descriptor struct {
	ID       string
	Name     string
	BaseKind tile.Kind

	// FloorPalette holds cosmetic glyph/color variants for base cells.
	// May be empty; the tile factory default then stands.
	FloorPalette []Style

	TreeDensity     float64
	RockDensity     float64
	HerbDensity     float64
	FlowerDensity   float64
	MushroomDensity float64

	CreatureWeights map[string]int
}

// Source yields the biome descriptor for a world coordinate. It must be
// pure: the same coordinate always yields the same descriptor.
type Source interface {
	BiomeAt(wx, wy int) Descriptor
}

// FromDef converts a catalog definition. Unknown base tile tags were
// already defaulted by the defs loader, so parsing here cannot fail.
func FromDef(d defs.BiomeDef) Descriptor {
	base, ok := tile.ParseKind(d.BaseTile)
	if !ok {
		base = tile.Grass
	}
	desc := Descriptor{
		ID:              d.ID,
		Name:            d.Name,
		BaseKind:        base,
		TreeDensity:     d.TreeDensity,
		RockDensity:     d.RockDensity,
		HerbDensity:     d.HerbDensity,
		FlowerDensity:   d.FlowerDensity,
		MushroomDensity: d.MushroomDensity,
		CreatureWeights: d.CreatureWeights,
	}
	for _, p := range d.FloorPalette {
		if p.Glyph == "" {
			continue
		}
		desc.FloorPalette = append(desc.FloorPalette, Style{Glyph: []rune(p.Glyph)[0], Color: p.Color})
	}
	return desc
}

// Fixed is a constant Source for tests and single-biome worlds.
type Fixed struct {
	Desc Descriptor
}

func (f Fixed) BiomeAt(int, int) Descriptor { return f.Desc }

// Woodland is a built-in fallback descriptor used when a catalog is
// missing one of the ids the noise source selects.
func Woodland() Descriptor {
	return Descriptor{
		ID:          "woodland",
		Name:        "Woodland",
		BaseKind:    tile.Grass,
		TreeDensity: 0.10,
		RockDensity: 0.015,
		HerbDensity: 0.01,
	}
}

// MustDescriptor resolves id from the catalog, logging and substituting
// the woodland fallback when absent.
func MustDescriptor(d *defs.Defs, id string, logger *log.Logger) Descriptor {
	if logger == nil {
		logger = log.Default()
	}
	def, ok := d.Biomes.ByID[id]
	if !ok {
		logger.Printf("[biome] no %q in biomes.json, substituting woodland fallback", id)
		return Woodland()
	}
	return FromDef(def)
}
