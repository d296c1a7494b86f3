package world

import (
	"testing"

	"thornvale.world/internal/world/tile"
)

func TestConversions(t *testing.T) {
	cases := []struct {
		wx, wy         int
		cx, cy, lx, ly int
	}{
		{0, 0, 0, 0, 0, 0},
		{31, 31, 0, 0, 31, 31},
		{32, 32, 1, 1, 0, 0},
		{-1, -1, -1, -1, 31, 31},
		{-32, -33, -1, -2, 0, 31},
		{100, -5, 3, -1, 4, 27},
	}
	for _, c := range cases {
		cx, cy := WorldToChunk(c.wx, c.wy)
		lx, ly := WorldToLocal(c.wx, c.wy)
		if cx != c.cx || cy != c.cy || lx != c.lx || ly != c.ly {
			t.Fatalf("(%d,%d) -> chunk (%d,%d) local (%d,%d), want (%d,%d)/(%d,%d)",
				c.wx, c.wy, cx, cy, lx, ly, c.cx, c.cy, c.lx, c.ly)
		}
		// Round trip through the chunk origin.
		ox, oy := ChunkToWorld(cx, cy)
		if ox+lx != c.wx || oy+ly != c.wy {
			t.Fatalf("(%d,%d) does not round trip: origin (%d,%d) + local (%d,%d)",
				c.wx, c.wy, ox, oy, lx, ly)
		}
	}
}

func TestChunk_DigestTracksChanges(t *testing.T) {
	ch := NewChunk(0, 0)
	for i := range ch.Tiles {
		ch.Tiles[i] = tile.Make(tile.Grass)
	}
	d1 := ch.Digest()

	ch.Set(4, 4, tile.Make(tile.Wall))
	d2 := ch.Digest()
	if d1 == d2 {
		t.Fatalf("digest unchanged after a tile write")
	}

	// Writing the identical value keeps the digest stable.
	ch.Set(4, 4, tile.Make(tile.Wall))
	if ch.Digest() != d2 {
		t.Fatalf("digest changed without a state change")
	}
}

func TestPeek_NeverGenerates(t *testing.T) {
	w := NewWorld(testConfig(5), loadDefs(t), nil, nil, nil)

	if _, ok := w.Store.PeekTile(10, 10); ok {
		t.Fatalf("peek returned a tile from an unloaded chunk")
	}
	if w.Store.IsWalkable(10, 10) {
		t.Fatalf("unloaded ground must read as solid")
	}
	if w.Store.IsTransparent(10, 10) {
		t.Fatalf("unloaded ground must read as opaque")
	}
	if n := len(w.Store.Chunks); n != 0 {
		t.Fatalf("read path generated %d chunks", n)
	}

	w.GetOrGenerate(0, 0)
	if _, ok := w.Store.PeekTile(10, 10); !ok {
		t.Fatalf("peek missed a loaded chunk")
	}
}

func TestEvictReload_PreservesMutations(t *testing.T) {
	w := NewWorld(testConfig(1234), loadDefs(t), nil, nil, nil)

	ch := w.GetOrGenerate(3, -2)
	ch.Set(7, 9, tile.Make(tile.Wall))
	door := tile.Make(tile.Door)
	door.SetOpen(true)
	ch.Set(8, 9, door)
	want := ch.Digest()
	wantSeed := ch.Seed

	if !w.Evict(3, -2) {
		t.Fatalf("evict failed")
	}
	if w.Store.Loaded(3, -2) {
		t.Fatalf("chunk still loaded after eviction")
	}
	if w.Evict(3, -2) {
		t.Fatalf("evicting an unloaded chunk reported success")
	}

	re := w.GetOrGenerate(3, -2)
	if re.Seed != wantSeed {
		t.Fatalf("seed lost across eviction: %d vs %d", re.Seed, wantSeed)
	}
	if re.Digest() != want {
		t.Fatalf("reload did not reproduce the mutated chunk")
	}
	if got := re.Get(7, 9); got.Kind != tile.Wall {
		t.Fatalf("mutation lost: (7,9) is %v", got.Kind)
	}
	if got := re.Get(8, 9); got.Kind != tile.Door || !got.Open {
		t.Fatalf("door state lost: %+v", got)
	}
}

func TestEvictReload_DoesNotReplaySpawns(t *testing.T) {
	sink := &recordSink{}
	w := NewWorld(testConfig(321), loadDefs(t), nil, sink, nil)

	w.GetOrGenerate(0, 0)
	before := len(sink.reqs)

	w.Evict(0, 0)
	w.GetOrGenerate(0, 0)
	if after := len(sink.reqs); after != before {
		t.Fatalf("reload emitted %d extra spawn requests", after-before)
	}
}

func TestDiff_OverridesSortedAndMinimal(t *testing.T) {
	w := NewWorld(testConfig(88), loadDefs(t), nil, nil, nil)

	ch := w.GetOrGenerate(1, 1)
	// Locked walls never occur naturally, so each write is a real diff.
	lw := tile.Make(tile.Wall)
	lw.Locked = true
	lw.LockID = "brass"
	ch.Set(20, 5, lw)
	ch.Set(3, 5, lw)
	ch.Set(10, 2, lw)

	d := w.Store.DiffOf(ch)
	if d.CX != 1 || d.CY != 1 || d.Seed != ch.Seed {
		t.Fatalf("diff header wrong: %+v", d)
	}
	if len(d.Overrides) != 3 {
		t.Fatalf("diff has %d overrides, want 3", len(d.Overrides))
	}
	for i := 1; i < len(d.Overrides); i++ {
		a, b := d.Overrides[i-1], d.Overrides[i]
		if a.Y > b.Y || (a.Y == b.Y && a.X >= b.X) {
			t.Fatalf("overrides not in row order: %+v before %+v", a, b)
		}
	}

	// Applying the diff onto a fresh baseline reproduces the chunk.
	base := NewChunk(1, 1)
	w.Ctx.Generate(base, false)
	applyDiff(base, d)
	base.dirty = true
	if base.Digest() != ch.Digest() {
		t.Fatalf("baseline plus diff does not reproduce the chunk")
	}
}

func TestCacheLimit_EvictsFarthest(t *testing.T) {
	d := loadDefs(t)
	cfg := testConfig(55)
	cfg.ChunkCacheLimit = 4
	w := NewWorld(cfg, d, nil, nil, nil)

	for cy := 0; cy < 3; cy++ {
		for cx := 0; cx < 3; cx++ {
			w.GetOrGenerate(cx, cy)
		}
	}
	if n := len(w.Store.Chunks); n > 4 {
		t.Fatalf("cache holds %d chunks, cap is 4", n)
	}
	// The last requested chunk survives.
	if !w.Store.Loaded(2, 2) {
		t.Fatalf("most recent chunk was evicted")
	}

	// Evicted chunks reload identically.
	w2 := NewWorld(testConfig(55), d, nil, nil, nil)
	if w.GetOrGenerate(0, 0).Digest() != w2.GetOrGenerate(0, 0).Digest() {
		t.Fatalf("evicted chunk did not reload to its original state")
	}
}

func TestBoundary_OutsideIsWater(t *testing.T) {
	d := loadDefs(t)
	cfg := testConfig(2)
	cfg.BoundaryR = 40
	w := NewWorld(cfg, d, nil, nil, nil)

	if w.Store.InBounds(41, 0) || w.Store.InBounds(0, -41) {
		t.Fatalf("positions past the boundary report in bounds")
	}
	if got := w.Store.GetTile(1000, 1000); got.Kind != tile.Water {
		t.Fatalf("out-of-boundary read = %v, want water", got.Kind)
	}

	// A chunk straddling the boundary is water past the line.
	ch := w.GetOrGenerate(1, 0) // world x 32..63, boundary at 40
	for y := 0; y < ChunkSize; y++ {
		for x := 0; x < ChunkSize; x++ {
			wx := 32 + x
			tl := ch.Get(x, y)
			if wx > 40 && tl.Kind != tile.Water {
				t.Fatalf("cell (%d,%d) past the boundary is %v", wx, y, tl.Kind)
			}
		}
	}
}
