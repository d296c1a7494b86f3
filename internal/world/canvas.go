package world

import "thornvale.world/internal/world/tile"

// genCanvas exposes one chunk as a world-coordinate write surface for
// the overlay passes. Writes outside the chunk are silently dropped and
// reads report ok=false, which is how a road or building fragment owned
// by a neighboring chunk stays that chunk's business. Writes past the
// world boundary are dropped too; the ocean edge stays ocean.
type genCanvas struct {
	ch     *Chunk
	ctx    *GenContext
	x0, y0 int
}

func newGenCanvas(ch *Chunk, ctx *GenContext) *genCanvas {
	x0, y0 := ChunkToWorld(ch.CX, ch.CY)
	return &genCanvas{ch: ch, ctx: ctx, x0: x0, y0: y0}
}

func (c *genCanvas) contains(wx, wy int) bool {
	return wx >= c.x0 && wx < c.x0+ChunkSize && wy >= c.y0 && wy < c.y0+ChunkSize
}

func (c *genCanvas) Get(wx, wy int) (tile.Tile, bool) {
	if !c.contains(wx, wy) {
		return tile.Tile{}, false
	}
	return c.ch.Get(wx-c.x0, wy-c.y0), true
}

func (c *genCanvas) Set(wx, wy int, t tile.Tile) {
	if !c.contains(wx, wy) || !c.ctx.inBounds(wx, wy) {
		return
	}
	c.ch.Set(wx-c.x0, wy-c.y0, t)
}
