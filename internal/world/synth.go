package world

import (
	"thornvale.world/internal/world/rng"
	"thornvale.world/internal/world/road"
	"thornvale.world/internal/world/scatter"
	"thornvale.world/internal/world/settlement"
	"thornvale.world/internal/world/spawn"
	"thornvale.world/internal/world/tile"
)

// Generate synthesizes a chunk in place. Pass order is fixed: base
// terrain, settlement buildings, settlement streets, inter-settlement
// roads, resource scatter, creature scatter. The base pass finishes the
// whole grid before the first overlay write, and the chunk stream is
// consumed only by terrain cosmetics and the two scatter passes;
// settlement layout and road geometry run on their own derived seeds.
//
// emit gates the once-per-world side effects. Baseline regeneration for
// diffs and re-synthesis after a load run with emit false: no
// settlement registration, no NPC/crop/creature requests.
func (g *GenContext) Generate(ch *Chunk, emit bool) {
	ch.Seed = rng.ChunkSeed(g.Seed, ch.CX, ch.CY)
	r := rng.New(ch.Seed)

	g.baseTerrain(ch, r)

	c := newGenCanvas(ch, g)
	x0, y0 := ChunkToWorld(ch.CX, ch.CY)
	x1, y1 := x0+ChunkSize-1, y0+ChunkSize-1

	sink := g.Sink
	if !emit || sink == nil {
		sink = spawn.Discard{}
	}

	local := g.Registry.SettlementsIntersecting(x0, y0, x1, y1)
	for _, s := range local {
		settlement.Stamp(c, s, &g.Defs.Buildings, g.Log)
		primary := s.CenterX >= x0 && s.CenterX <= x1 && s.CenterY >= y0 && s.CenterY <= y1
		if primary && emit && g.Registry.Register(s.ID) {
			for _, req := range settlement.Spawns(s, &g.Defs.Buildings) {
				sink.Spawn(req)
			}
		}
	}

	for _, s := range local {
		road.BuildIntra(c, s, &g.Defs.Buildings)
	}
	for _, p := range road.PathsNear(g.Registry, g.Seed, x0, y0, x1, y1) {
		road.Rasterize(c, p, g.Registry)
	}

	ch.Resources = scatter.Resources(c, x0, y0, ChunkSize, ChunkSize, r, g)
	scatter.Creatures(c, x0, y0, ChunkSize, ChunkSize, r, g, &g.Defs.Creatures, sink)
}

// baseTerrain fills every cell from its biome descriptor. Two draws per
// cell, always consumed whether or not they apply, so the stream
// position entering the scatter passes never depends on cell outcomes:
// one roll for vegetation, one for the cosmetic floor variant.
func (g *GenContext) baseTerrain(ch *Chunk, r *rng.Rng) {
	for y := 0; y < ChunkSize; y++ {
		for x := 0; x < ChunkSize; x++ {
			wx := ch.CX*ChunkSize + x
			wy := ch.CY*ChunkSize + y

			treeRoll := r.Float64()
			lookRoll := r.Float64()

			if !g.inBounds(wx, wy) {
				ch.Tiles[x+y*ChunkSize] = tile.Make(tile.Water)
				continue
			}

			d := g.Biomes.BiomeAt(wx, wy)
			t := tile.Make(d.BaseKind)
			switch {
			case t.IsPlainFloor() && treeRoll < d.TreeDensity:
				t = tile.Make(tile.Tree)
			case len(d.FloorPalette) > 0:
				v := d.FloorPalette[int(lookRoll*float64(len(d.FloorPalette)))]
				if v.Glyph != 0 {
					t.Glyph = v.Glyph
				}
				if v.Color != "" {
					t.Color = v.Color
				}
			}
			ch.Tiles[x+y*ChunkSize] = t
		}
	}
}
