// Package rng holds the seeded random streams the generator runs on.
// Every stream is derived from the world seed; regenerating the same
// chunk or road always replays identical draws.
package rng

import (
	"hash/fnv"

	"thornvale.world/internal/world/mathx"
)

// Rng is a xorshift64* stream. Not safe for concurrent use; each chunk
// generation owns its own instance.
type Rng struct {
	state uint64
}

func New(seed int64) *Rng {
	s := uint64(seed)
	if s == 0 {
		s = 1
	}
	return &Rng{state: s}
}

func (r *Rng) Uint64() uint64 {
	x := r.state
	x ^= x >> 12
	x ^= x << 25
	x ^= x >> 27
	r.state = x
	return x * 2685821657736338717
}

// Intn returns an int in [0, n). n must be > 0.
func (r *Rng) Intn(n int) int {
	return int(r.Uint64() % uint64(n))
}

// Range returns an int in [lo, hi] inclusive.
func (r *Rng) Range(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.Intn(hi-lo+1)
}

// Float64 returns a float in [0, 1).
func (r *Rng) Float64() float64 {
	return float64(r.Uint64()>>11) / (1 << 53)
}

// Perturb returns an int in [-max, +max].
func (r *Rng) Perturb(max int) int {
	if max <= 0 {
		return 0
	}
	return r.Intn(2*max+1) - max
}

// coordOffset shifts chunk coordinates positive before pairing. Worlds
// stay well inside +/-2^20 chunks (33 million tiles from origin).
const coordOffset = 1 << 20

// ChunkSeed derives the per-chunk seed from the world seed and chunk
// coordinate: both coordinates are offset positive, combined with a
// Cantor pairing (a+b)(a+b+1)/2 + b, then mixed with the world seed.
// Identical inputs always yield identical outputs, so chunk content is
// independent of load order.
func ChunkSeed(worldSeed int64, cx, cy int) int64 {
	a := int64(cx) + coordOffset
	b := int64(cy) + coordOffset
	pair := (a+b)*(a+b+1)/2 + b
	return int64(mathx.Mix64(uint64(worldSeed) ^ uint64(pair)*0x9e3779b97f4a7c15))
}

// PairSeed derives a symmetric seed for a pair of settlement IDs; both
// endpoints of an inter-settlement road derive the same geometry stream
// regardless of which side builds first.
func PairSeed(worldSeed int64, idA, idB string) int64 {
	if idB < idA {
		idA, idB = idB, idA
	}
	h := fnv.New64a()
	h.Write([]byte(idA))
	h.Write([]byte{0})
	h.Write([]byte(idB))
	return int64(mathx.Mix64(uint64(worldSeed) ^ h.Sum64()))
}
