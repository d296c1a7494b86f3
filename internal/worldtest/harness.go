// Package worldtest drives a generator world through its exported
// surface only, the way a server embedding it would. Tests here cover
// cross-package properties; single-package behavior lives next to the
// package it exercises.
package worldtest

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"thornvale.world/internal/defs"
	"thornvale.world/internal/persistence/snapshot"
	"thornvale.world/internal/world"
	"thornvale.world/internal/world/settlement"
	"thornvale.world/internal/world/spawn"
)

type Harness struct {
	T    *testing.T
	Defs *defs.Defs
	W    *world.World

	sink *recordSink
}

type recordSink struct {
	reqs []spawn.Request
}

func (s *recordSink) Spawn(r spawn.Request) { s.reqs = append(s.reqs, r) }

func NewHarness(t *testing.T, cfg world.WorldConfig) *Harness {
	t.Helper()
	d, err := defs.Load("../../configs", nil)
	if err != nil {
		t.Fatalf("load defs: %v", err)
	}
	sink := &recordSink{}
	return &Harness{
		T:    t,
		Defs: d,
		W:    world.NewWorld(cfg, d, nil, sink, nil),
		sink: sink,
	}
}

// NewHarnessWithWorld wraps an already-constructed world. Spawn
// recording only covers requests emitted after the wrap.
func NewHarnessWithWorld(t *testing.T, d *defs.Defs, w *world.World) *Harness {
	t.Helper()
	if w == nil {
		t.Fatalf("NewHarnessWithWorld: nil world")
	}
	return &Harness{T: t, Defs: d, W: w, sink: &recordSink{}}
}

func (h *Harness) Gen(cx, cy int) *world.Chunk {
	h.T.Helper()
	return h.W.GetOrGenerate(cx, cy)
}

func (h *Harness) GenRect(cx0, cy0, cx1, cy1 int) {
	h.T.Helper()
	for cy := cy0; cy <= cy1; cy++ {
		for cx := cx0; cx <= cx1; cx++ {
			h.W.GetOrGenerate(cx, cy)
		}
	}
}

// GenSettlement loads every chunk the settlement's footprint touches,
// which registers it and emits its spawn batch.
func (h *Harness) GenSettlement(s *settlement.Descriptor) {
	h.T.Helper()
	x0, y0, x1, y1 := s.Bounds()
	cx0, cy0 := world.WorldToChunk(x0, y0)
	cx1, cy1 := world.WorldToChunk(x1, y1)
	h.GenRect(cx0, cy0, cx1, cy1)
}

// FindSettlement returns some settlement within r tiles of the origin.
func (h *Harness) FindSettlement(r int) *settlement.Descriptor {
	h.T.Helper()
	all := h.W.Registry().SettlementsIntersecting(-r, -r, r, r)
	if len(all) == 0 {
		h.T.Fatalf("no settlements within %d tiles of the origin", r)
	}
	return all[0]
}

// Spawned returns every spawn request recorded so far.
func (h *Harness) Spawned() []spawn.Request { return h.sink.reqs }

// WorldDigest hashes the digests of every resident chunk in key order.
// Two worlds that agree on it agree on every loaded tile.
func (h *Harness) WorldDigest() string {
	h.T.Helper()
	sum := sha256.New()
	for _, k := range h.W.Store.LoadedChunkKeys() {
		d := h.W.Store.GetOrGenerate(k.CX, k.CY).Digest()
		sum.Write(d[:])
	}
	return hex.EncodeToString(sum.Sum(nil))
}

// Reopened writes the world to a save file, reads it back and returns
// a harness around the restored world. Chunk state materializes lazily
// in the copy, exactly as a server restart would see it.
func (h *Harness) Reopened(seq uint64) *Harness {
	h.T.Helper()
	s := snapshot.Capture(h.W, seq)
	path := snapshot.SavePath(h.T.TempDir(), h.W.Cfg.ID, seq)
	if err := snapshot.WriteSave(path, s); err != nil {
		h.T.Fatalf("write save: %v", err)
	}
	loaded, err := snapshot.ReadSave(path)
	if err != nil {
		h.T.Fatalf("read save: %v", err)
	}

	sink := &recordSink{}
	w := world.NewWorld(h.W.Cfg, h.Defs, nil, sink, nil)
	snapshot.Restore(w, loaded)
	return &Harness{T: h.T, Defs: h.Defs, W: w, sink: sink}
}
