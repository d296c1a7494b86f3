package world

import (
	"thornvale.world/internal/world/scatter"
	"thornvale.world/internal/world/tile"
)

// TileOverride is one cell of a chunk diff, in local coordinates.
type TileOverride struct {
	X, Y int
	Tile tile.Tile
}

// ChunkDiff is the persistent form of a chunk: its key, derived seed,
// every tile that differs from a pristine re-synthesis (row order, y
// then x), and the resource records. Applying it on top of a fresh
// emit-free generation reproduces the chunk exactly.
type ChunkDiff struct {
	CX, CY    int
	Seed      int64
	Overrides []TileOverride
	Resources []scatter.Resource
}

// DiffOf regenerates the chunk's baseline without side effects and
// records every cell that differs.
func (s *ChunkStore) DiffOf(ch *Chunk) *ChunkDiff {
	base := NewChunk(ch.CX, ch.CY)
	s.Ctx.Generate(base, false)

	d := &ChunkDiff{
		CX:        ch.CX,
		CY:        ch.CY,
		Seed:      ch.Seed,
		Resources: append([]scatter.Resource(nil), ch.Resources...),
	}
	for y := 0; y < ChunkSize; y++ {
		for x := 0; x < ChunkSize; x++ {
			if got := ch.Get(x, y); got != base.Get(x, y) {
				d.Overrides = append(d.Overrides, TileOverride{X: x, Y: y, Tile: got})
			}
		}
	}
	return d
}

// applyDiff lays the saved overrides and resource records over a
// freshly synthesized chunk.
func applyDiff(ch *Chunk, d *ChunkDiff) {
	for _, o := range d.Overrides {
		ch.Set(o.X, o.Y, o.Tile)
	}
	ch.Resources = append([]scatter.Resource(nil), d.Resources...)
	if d.Seed != 0 {
		ch.Seed = d.Seed
	}
}
