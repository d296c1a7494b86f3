package world

import (
	"sort"

	"thornvale.world/internal/world/tile"
)

// ChunkStore owns the loaded chunks of one world plus the retained
// diffs of evicted ones. It is not safe for concurrent use; the server
// confines each world to a single goroutine.
type ChunkStore struct {
	Ctx    *GenContext
	Chunks map[ChunkKey]*Chunk

	diffs     map[ChunkKey]*ChunkDiff
	evictions int
}

func NewChunkStore(ctx *GenContext) *ChunkStore {
	return &ChunkStore{
		Ctx:    ctx,
		Chunks: map[ChunkKey]*Chunk{},
		diffs:  map[ChunkKey]*ChunkDiff{},
	}
}

// GetOrGenerate returns the loaded chunk, synthesizing it on first
// access. A chunk with a retained diff re-synthesizes without side
// effects and reapplies the diff; a brand-new chunk generates with side
// effects live.
func (s *ChunkStore) GetOrGenerate(cx, cy int) *Chunk {
	k := ChunkKey{CX: cx, CY: cy}
	if ch, ok := s.Chunks[k]; ok {
		return ch
	}
	ch := NewChunk(cx, cy)
	if d, ok := s.diffs[k]; ok {
		s.Ctx.Generate(ch, false)
		applyDiff(ch, d)
		delete(s.diffs, k)
	} else {
		s.Ctx.Generate(ch, true)
	}
	ch.dirty = true
	_ = ch.Digest()
	s.Chunks[k] = ch
	return ch
}

// Evict frees a chunk's tile memory, retaining its seed and diff so a
// later GetOrGenerate restores it exactly. Reports whether a chunk was
// actually evicted.
func (s *ChunkStore) Evict(cx, cy int) bool {
	k := ChunkKey{CX: cx, CY: cy}
	ch, ok := s.Chunks[k]
	if !ok {
		return false
	}
	s.diffs[k] = s.DiffOf(ch)
	delete(s.Chunks, k)
	s.evictions++
	return true
}

func (s *ChunkStore) Evictions() int { return s.evictions }

func (s *ChunkStore) Loaded(cx, cy int) bool {
	_, ok := s.Chunks[ChunkKey{CX: cx, CY: cy}]
	return ok
}

// HasStashedDiff reports whether an unloaded chunk has a retained diff
// waiting to be reapplied on its next load.
func (s *ChunkStore) HasStashedDiff(cx, cy int) bool {
	_, ok := s.diffs[ChunkKey{CX: cx, CY: cy}]
	return ok
}

func (s *ChunkStore) LoadedChunkKeys() []ChunkKey {
	keys := make([]ChunkKey, 0, len(s.Chunks))
	for k := range s.Chunks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CX != keys[j].CX {
			return keys[i].CX < keys[j].CX
		}
		return keys[i].CY < keys[j].CY
	})
	return keys
}

func (s *ChunkStore) InBounds(wx, wy int) bool {
	return s.Ctx.inBounds(wx, wy)
}

// PeekTile reads a tile without ever triggering generation. The second
// return is false when the owning chunk is not loaded.
func (s *ChunkStore) PeekTile(wx, wy int) (tile.Tile, bool) {
	cx, cy := WorldToChunk(wx, wy)
	ch, ok := s.Chunks[ChunkKey{CX: cx, CY: cy}]
	if !ok {
		return tile.Tile{}, false
	}
	lx, ly := WorldToLocal(wx, wy)
	return ch.Get(lx, ly), true
}

// IsWalkable treats unloaded ground as solid, so movement queries can
// never force generation.
func (s *ChunkStore) IsWalkable(wx, wy int) bool {
	t, ok := s.PeekTile(wx, wy)
	return ok && t.Walkable
}

// IsTransparent treats unloaded ground as opaque, keeping field-of-view
// sweeps from generating the map they look at.
func (s *ChunkStore) IsTransparent(wx, wy int) bool {
	t, ok := s.PeekTile(wx, wy)
	return ok && t.Transparent
}

// GetTile is the generating read: it loads the owning chunk on demand.
// Out-of-boundary positions read as open water.
func (s *ChunkStore) GetTile(wx, wy int) tile.Tile {
	if !s.InBounds(wx, wy) {
		return tile.Make(tile.Water)
	}
	cx, cy := WorldToChunk(wx, wy)
	lx, ly := WorldToLocal(wx, wy)
	return s.GetOrGenerate(cx, cy).Get(lx, ly)
}

// SetTile writes through to the owning chunk, loading it on demand.
// Out-of-boundary writes are dropped.
func (s *ChunkStore) SetTile(wx, wy int, t tile.Tile) {
	if !s.InBounds(wx, wy) {
		return
	}
	cx, cy := WorldToChunk(wx, wy)
	lx, ly := WorldToLocal(wx, wy)
	s.GetOrGenerate(cx, cy).Set(lx, ly, t)
}

// CollectDiffs returns the diff of every chunk the store knows about,
// loaded or evicted, sorted by key.
func (s *ChunkStore) CollectDiffs() []*ChunkDiff {
	out := make([]*ChunkDiff, 0, len(s.Chunks)+len(s.diffs))
	for _, ch := range s.Chunks {
		out = append(out, s.DiffOf(ch))
	}
	for _, d := range s.diffs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CX != out[j].CX {
			return out[i].CX < out[j].CX
		}
		return out[i].CY < out[j].CY
	})
	return out
}

// RestoreDiffs stashes loaded diffs; each chunk materializes lazily on
// its next GetOrGenerate.
func (s *ChunkStore) RestoreDiffs(ds []*ChunkDiff) {
	for _, d := range ds {
		s.diffs[ChunkKey{CX: d.CX, CY: d.CY}] = d
	}
}
