package world

type WorldConfig struct {
	ID   string
	Name string
	Seed int64

	// BoundaryR bounds the world in tiles from the origin. Everything
	// past it is open water.
	BoundaryR int

	// Settlement placement grid.
	SettlementCellSize int
	SettlementPermille int

	// ChunkCacheLimit caps loaded chunks; the farthest chunk from the
	// most recent request is evicted past it. Zero disables the cap.
	ChunkCacheLimit int

	// SaveEveryEvictions triggers an automatic save after this many
	// evictions. Zero disables it.
	SaveEveryEvictions int
}

func (c *WorldConfig) applyDefaults() {
	if c.ID == "" {
		c.ID = "overworld"
	}
	if c.Name == "" {
		c.Name = c.ID
	}
	if c.BoundaryR <= 0 {
		c.BoundaryR = 100000
	}
	if c.SettlementCellSize <= 0 {
		c.SettlementCellSize = 256
	}
	if c.SettlementPermille <= 0 {
		c.SettlementPermille = 220
	}
	if c.SettlementPermille > 1000 {
		c.SettlementPermille = 1000
	}
	if c.ChunkCacheLimit < 0 {
		c.ChunkCacheLimit = 0
	}
	if c.SaveEveryEvictions < 0 {
		c.SaveEveryEvictions = 0
	}
}
