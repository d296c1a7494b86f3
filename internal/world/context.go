package world

import (
	"log"

	"thornvale.world/internal/defs"
	"thornvale.world/internal/world/biome"
	"thornvale.world/internal/world/settlement"
	"thornvale.world/internal/world/spawn"
)

// GenContext carries everything a chunk generation needs. One context
// is built per world and threaded through every pass; nothing in the
// pipeline reaches for globals.
type GenContext struct {
	Seed     int64
	Biomes   biome.Source
	Registry *settlement.Registry
	Sink     spawn.Sink
	Defs     *defs.Defs
	Log      *log.Logger

	// BoundaryR bounds the world in tiles from the origin; zero means
	// unbounded. Cells past the boundary synthesize as open water.
	BoundaryR int
}

// BiomeAt satisfies the scatter environment.
func (g *GenContext) BiomeAt(wx, wy int) biome.Descriptor {
	return g.Biomes.BiomeAt(wx, wy)
}

// CenterDistance satisfies the scatter environment.
func (g *GenContext) CenterDistance(x, y int) float64 {
	return g.Registry.CenterDistance(x, y)
}

func (g *GenContext) inBounds(wx, wy int) bool {
	if g.BoundaryR <= 0 {
		return true
	}
	return wx >= -g.BoundaryR && wx <= g.BoundaryR && wy >= -g.BoundaryR && wy <= g.BoundaryR
}
