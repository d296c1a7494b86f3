package world

import (
	"crypto/sha256"
	"encoding/binary"

	"thornvale.world/internal/world/mathx"
	"thornvale.world/internal/world/scatter"
	"thornvale.world/internal/world/tile"
)

// ChunkSize is the side length of a chunk in tiles.
const ChunkSize = 32

type ChunkKey struct {
	CX int
	CY int
}

// Chunk is one generated 32x32 region. Tiles is row-major; Seed is the
// chunk seed it was synthesized from, retained across eviction.
type Chunk struct {
	CX, CY int
	Seed   int64
	Tiles  []tile.Tile

	// Resources lists the harvestable instances scattered on this chunk.
	Resources []scatter.Resource

	dirty bool
	hash  [32]byte
}

func NewChunk(cx, cy int) *Chunk {
	return &Chunk{
		CX:    cx,
		CY:    cy,
		Tiles: make([]tile.Tile, ChunkSize*ChunkSize),
	}
}

func (c *Chunk) index(x, y int) int {
	return x + y*ChunkSize
}

// Get returns the tile at local coordinates.
func (c *Chunk) Get(x, y int) tile.Tile {
	return c.Tiles[c.index(x, y)]
}

// Set stores a tile at local coordinates, marking the chunk dirty only
// when the value actually changes.
func (c *Chunk) Set(x, y int, t tile.Tile) {
	i := c.index(x, y)
	if c.Tiles[i] == t {
		return
	}
	c.Tiles[i] = t
	c.dirty = true
}

// Digest hashes the full tile state of the chunk. Two chunks with the
// same digest render and behave identically.
func (c *Chunk) Digest() [32]byte {
	if c.dirty || c.hash == ([32]byte{}) {
		h := sha256.New()
		var u16 [2]byte
		var u32 [4]byte
		for _, t := range c.Tiles {
			binary.LittleEndian.PutUint16(u16[:], uint16(t.Kind))
			h.Write(u16[:])

			var flags byte
			if t.Walkable {
				flags |= 1 << 0
			}
			if t.Transparent {
				flags |= 1 << 1
			}
			if t.Open {
				flags |= 1 << 2
			}
			if t.Locked {
				flags |= 1 << 3
			}
			if t.Interior {
				flags |= 1 << 4
			}
			h.Write([]byte{flags, byte(t.LockLevel)})

			binary.LittleEndian.PutUint32(u32[:], uint32(t.Glyph))
			h.Write(u32[:])
			h.Write([]byte(t.Color))
			h.Write([]byte{0})
			h.Write([]byte(t.ResourceID))
			h.Write([]byte{0})
			h.Write([]byte(t.LockID))
			h.Write([]byte{0})
		}
		copy(c.hash[:], h.Sum(nil))
		c.dirty = false
	}
	return c.hash
}

// WorldToChunk maps world coordinates to the owning chunk key.
func WorldToChunk(wx, wy int) (cx, cy int) {
	return mathx.FloorDiv(wx, ChunkSize), mathx.FloorDiv(wy, ChunkSize)
}

// ChunkToWorld returns the world coordinates of a chunk's origin cell.
func ChunkToWorld(cx, cy int) (wx, wy int) {
	return cx * ChunkSize, cy * ChunkSize
}

// WorldToLocal maps world coordinates to offsets within their chunk.
func WorldToLocal(wx, wy int) (lx, ly int) {
	return mathx.Mod(wx, ChunkSize), mathx.Mod(wy, ChunkSize)
}
