package biome

import (
	"log"

	"github.com/aquilax/go-perlin"

	"thornvale.world/internal/defs"
)

// Noise field scales. Biome regions end up a few hundred tiles across.
const (
	elevScale  = 0.004
	moistScale = 0.0070
)

// NoiseSource is the default Source: two Perlin fields (elevation and
// moisture) pick one of the catalog biomes. It exists so the server and
// tools run without an embedding game supplying its own source.
type NoiseSource struct {
	elev  *perlin.Perlin
	moist *perlin.Perlin

	lake     Descriptor
	desert   Descriptor
	swamp    Descriptor
	tundra   Descriptor
	woodland Descriptor
	plains   Descriptor
}

func NewNoiseSource(seed int64, d *defs.Defs, logger *log.Logger) *NoiseSource {
	return &NoiseSource{
		elev:     perlin.NewPerlin(2, 2, 3, seed),
		moist:    perlin.NewPerlin(2, 2, 3, seed+1),
		lake:     MustDescriptor(d, "lake", logger),
		desert:   MustDescriptor(d, "desert", logger),
		swamp:    MustDescriptor(d, "swamp", logger),
		tundra:   MustDescriptor(d, "tundra", logger),
		woodland: MustDescriptor(d, "woodland", logger),
		plains:   MustDescriptor(d, "plains", logger),
	}
}

func (s *NoiseSource) BiomeAt(wx, wy int) Descriptor {
	e := s.elev.Noise2D(float64(wx)*elevScale, float64(wy)*elevScale)
	m := s.moist.Noise2D(float64(wx)*moistScale, float64(wy)*moistScale)

	switch {
	case e < -0.32:
		return s.lake
	case e > 0.40:
		return s.tundra
	case m < -0.30:
		return s.desert
	case m > 0.34:
		return s.swamp
	case m > 0.02:
		return s.woodland
	default:
		return s.plains
	}
}
