// Package scatter runs the two stochastic overlay passes of chunk
// generation: harvestable resources and creature spawns. Both consume
// the per-chunk stream handed in by the pipeline, so a chunk's scatter
// is a pure function of the world seed and its coordinates.
package scatter

import (
	"fmt"

	"thornvale.world/internal/defs"
	"thornvale.world/internal/world/biome"
	"thornvale.world/internal/world/rng"
	"thornvale.world/internal/world/spawn"
	"thornvale.world/internal/world/tile"
)

// Canvas is the write surface of the chunk under generation.
type Canvas interface {
	Get(wx, wy int) (tile.Tile, bool)
	Set(wx, wy int, t tile.Tile)
}

// Env resolves the per-cell lookups scatter needs. The generation
// context satisfies it.
type Env interface {
	BiomeAt(wx, wy int) biome.Descriptor
	CenterDistance(x, y int) float64
}

// Clearance radii around settlement centers, in tiles.
const (
	resourceClearance = 10
	creatureClearance = 15
)

// creatureRetries bounds the candidate-cell search per creature spawn.
const creatureRetries = 10

// Resource is one harvestable instance recorded on its chunk. The ID is
// the natural key of the placement, so regeneration reproduces it.
type Resource struct {
	ID   string
	Type string
	X, Y int
}

var resourcePasses = []struct {
	name    string
	kind    tile.Kind
	density func(biome.Descriptor) float64
}{
	{"tree", tile.Tree, func(d biome.Descriptor) float64 { return d.TreeDensity }},
	{"rock", tile.Rock, func(d biome.Descriptor) float64 { return d.RockDensity }},
	{"herb", tile.Herb, func(d biome.Descriptor) float64 { return d.HerbDensity }},
	{"flower", tile.Flower, func(d biome.Descriptor) float64 { return d.FlowerDensity }},
	{"mushroom", tile.Mushroom, func(d biome.Descriptor) float64 { return d.MushroomDensity }},
}

// Resources walks the chunk rect row-major and rolls every eligible
// cell against its biome densities, in fixed priority order. Each check
// consumes exactly one draw and the first success claims the cell, so
// the stream position after the pass depends only on prior outcomes.
// Ineligible cells consume no draws.
func Resources(c Canvas, x0, y0, w, h int, r *rng.Rng, env Env) []Resource {
	var out []Resource
	for dy := 0; dy < h; dy++ {
		for dx := 0; dx < w; dx++ {
			wx := x0 + dx
			wy := y0 + dy

			t, ok := c.Get(wx, wy)
			if !ok || !t.IsPlainFloor() {
				continue
			}
			if env.CenterDistance(wx, wy) <= resourceClearance {
				continue
			}

			d := env.BiomeAt(wx, wy)
			for _, p := range resourcePasses {
				if r.Float64() >= p.density(d) {
					continue
				}
				id := fmt.Sprintf("%s:%d:%d", p.name, wx, wy)
				nt := tile.Make(p.kind)
				nt.ResourceID = id
				c.Set(wx, wy, nt)
				out = append(out, Resource{ID: id, Type: p.name, X: wx, Y: wy})
				break
			}
		}
	}
	return out
}

// countLadder maps one uniform draw to a creature count: 35% of chunks
// spawn none, 40% one, 20% two, 5% three.
var countLadder = []struct {
	upTo  float64
	count int
}{
	{0.35, 0},
	{0.75, 1},
	{0.95, 2},
	{1.01, 3},
}

func spawnCount(roll float64) int {
	for _, step := range countLadder {
		if roll < step.upTo {
			return step.count
		}
	}
	return 0
}

// Creatures rolls the chunk's spawn count, then places each creature on
// a candidate cell drawn from the chunk stream (bounded retries). The
// type comes from a single cumulative-weight scan over the catalog
// order: a creature qualifies when its biome weight is positive and the
// cell sits at least its configured distance from every settlement
// center. Spawns that find no cell or no qualifying type are dropped;
// the draws they consumed still advance the stream deterministically.
func Creatures(c Canvas, x0, y0, w, h int, r *rng.Rng, env Env, cat *defs.CreatureCatalog, sink spawn.Sink) int {
	count := spawnCount(r.Float64())
	placed := 0

	for i := 0; i < count; i++ {
		wx, wy, ok := candidateCell(c, x0, y0, w, h, r, env)
		if !ok {
			continue
		}

		d := env.BiomeAt(wx, wy)
		centerDist := env.CenterDistance(wx, wy)

		total := 0
		weights := make([]int, len(cat.Order))
		for j, id := range cat.Order {
			def := cat.ByID[id]
			wgt := creatureWeight(d, def)
			if wgt <= 0 || centerDist < float64(def.MinSettlementDist) {
				continue
			}
			weights[j] = wgt
			total += wgt
		}
		if total == 0 {
			continue
		}

		pick := r.Intn(total)
		acc := 0
		for j, id := range cat.Order {
			acc += weights[j]
			if pick < acc {
				sink.Spawn(spawn.Request{
					Kind:   spawn.KindCreature,
					TypeID: id,
					X:      wx,
					Y:      wy,
				})
				placed++
				break
			}
		}
	}
	return placed
}

// candidateCell draws local positions until one is eligible ground for
// a creature. Every retry consumes two draws whether it hits or not.
func candidateCell(c Canvas, x0, y0, w, h int, r *rng.Rng, env Env) (int, int, bool) {
	for try := 0; try < creatureRetries; try++ {
		wx := x0 + r.Intn(w)
		wy := y0 + r.Intn(h)
		t, ok := c.Get(wx, wy)
		if !ok || !t.IsPlainFloor() {
			continue
		}
		if env.CenterDistance(wx, wy) <= creatureClearance {
			continue
		}
		return wx, wy, true
	}
	return 0, 0, false
}

// creatureWeight resolves the effective weight of a creature in a
// biome. The biome's own creature table wins; creatures the biome does
// not mention fall back to their def's per-biome weights.
func creatureWeight(d biome.Descriptor, def defs.CreatureDef) int {
	if w, ok := d.CreatureWeights[def.ID]; ok {
		return w
	}
	return def.BiomeWeights[d.ID]
}
