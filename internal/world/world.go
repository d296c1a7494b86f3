// Package world generates and stores the tile world: deterministic
// chunk synthesis from a world seed, diff-based eviction and reload,
// and the read surface the embedding game queries. All randomness roots
// in the world seed; two worlds built from the same seed and defs are
// indistinguishable cell for cell.
package world

import (
	"log"

	"thornvale.world/internal/defs"
	"thornvale.world/internal/world/biome"
	"thornvale.world/internal/world/settlement"
	"thornvale.world/internal/world/spawn"
)

type World struct {
	Cfg   WorldConfig
	Defs  *defs.Defs
	Ctx   *GenContext
	Store *ChunkStore
	Log   *log.Logger
}

// NewWorld wires a world from its config. A nil biome source gets the
// built-in noise source, a nil sink discards spawn requests, a nil
// logger uses the process default.
func NewWorld(cfg WorldConfig, d *defs.Defs, src biome.Source, sink spawn.Sink, logger *log.Logger) *World {
	cfg.applyDefaults()
	if logger == nil {
		logger = log.Default()
	}
	if src == nil {
		src = biome.NewNoiseSource(cfg.Seed, d, logger)
	}
	if sink == nil {
		sink = spawn.Discard{}
	}

	reg := settlement.NewRegistry(cfg.Seed, cfg.SettlementCellSize, cfg.SettlementPermille)
	ctx := &GenContext{
		Seed:      cfg.Seed,
		Biomes:    src,
		Registry:  reg,
		Sink:      sink,
		Defs:      d,
		Log:       logger,
		BoundaryR: cfg.BoundaryR,
	}
	return &World{
		Cfg:   cfg,
		Defs:  d,
		Ctx:   ctx,
		Store: NewChunkStore(ctx),
		Log:   logger,
	}
}

func (w *World) Registry() *settlement.Registry { return w.Ctx.Registry }

// GetOrGenerate loads a chunk, evicting the farthest loaded chunk from
// the request when the cache cap is exceeded.
func (w *World) GetOrGenerate(cx, cy int) *Chunk {
	ch := w.Store.GetOrGenerate(cx, cy)
	if limit := w.Cfg.ChunkCacheLimit; limit > 0 {
		for len(w.Store.Chunks) > limit {
			fx, fy, ok := w.farthestLoaded(cx, cy)
			if !ok {
				break
			}
			w.Store.Evict(fx, fy)
		}
	}
	return ch
}

func (w *World) Evict(cx, cy int) bool { return w.Store.Evict(cx, cy) }

// farthestLoaded picks the loaded chunk farthest from (cx,cy),
// excluding (cx,cy) itself. Key order breaks ties so the choice is
// stable.
func (w *World) farthestLoaded(cx, cy int) (int, int, bool) {
	bestD := -1
	var bx, by int
	for _, k := range w.Store.LoadedChunkKeys() {
		if k.CX == cx && k.CY == cy {
			continue
		}
		dx := k.CX - cx
		dy := k.CY - cy
		if d := dx*dx + dy*dy; d > bestD {
			bestD = d
			bx, by = k.CX, k.CY
		}
	}
	return bx, by, bestD >= 0
}

// CollectState gathers everything a save needs: every known chunk as a
// diff, sorted by key, plus the registered settlement IDs.
func (w *World) CollectState() ([]*ChunkDiff, []string) {
	return w.Store.CollectDiffs(), w.Ctx.Registry.Registered()
}

// RestoreState reloads saved state. Chunks materialize lazily on their
// next access; registration state restores eagerly so no settlement
// re-emits its spawns.
func (w *World) RestoreState(diffs []*ChunkDiff, registered []string) {
	w.Store.RestoreDiffs(diffs)
	w.Ctx.Registry.MarkRegistered(registered)
}
