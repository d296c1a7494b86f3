// Package tile defines the atomic unit of the world grid. A tile's
// walkable/transparent flags are derived from its kind and door state,
// never set independently; Make and the door helpers are the only
// places the derivation runs.
package tile

type Kind uint8

const (
	Floor Kind = iota
	Grass
	Sand
	Snow
	Dirt
	Water
	Tree
	Rock
	Herb
	Flower
	Mushroom
	Wall
	Door
	StairsUp
	StairsDown
	DungeonEntrance
	RoadCobble
	RoadGravel
	RoadDirt
	BridgeStone
	BridgeWood

	kindCount
)

var kindTags = [kindCount]string{
	Floor:           "floor",
	Grass:           "grass",
	Sand:            "sand",
	Snow:            "snow",
	Dirt:            "dirt",
	Water:           "water",
	Tree:            "tree",
	Rock:            "rock",
	Herb:            "herb",
	Flower:          "flower",
	Mushroom:        "mushroom",
	Wall:            "wall",
	Door:            "door",
	StairsUp:        "stairs_up",
	StairsDown:      "stairs_down",
	DungeonEntrance: "dungeon_entrance",
	RoadCobble:      "road_cobble",
	RoadGravel:      "road_gravel",
	RoadDirt:        "road_dirt",
	BridgeStone:     "bridge_stone",
	BridgeWood:      "bridge_wood",
}

var tagIndex = func() map[string]Kind {
	m := make(map[string]Kind, kindCount)
	for k := Kind(0); k < kindCount; k++ {
		m[kindTags[k]] = k
	}
	return m
}()

func (k Kind) String() string {
	if k >= kindCount {
		return "floor"
	}
	return kindTags[k]
}

// ParseKind maps a type tag to its Kind. Unknown tags report ok=false;
// callers log and fall back to Floor rather than aborting generation.
func ParseKind(tag string) (Kind, bool) {
	k, ok := tagIndex[tag]
	return k, ok
}

// Kinds lists every tag in kind order. Entry 0 is always "floor".
func Kinds() []string {
	out := make([]string, kindCount)
	copy(out, kindTags[:])
	return out
}

type style struct {
	glyph rune
	color string
}

var defaultStyles = [kindCount]style{
	Floor:           {'.', "gray"},
	Grass:           {'"', "green"},
	Sand:            {',', "yellow"},
	Snow:            {'\'', "white"},
	Dirt:            {'.', "brown"},
	Water:           {'~', "blue"},
	Tree:            {'T', "dark_green"},
	Rock:            {'o', "gray"},
	Herb:            {'v', "green"},
	Flower:          {'*', "magenta"},
	Mushroom:        {'%', "purple"},
	Wall:            {'#', "gray"},
	Door:            {'+', "brown"},
	StairsUp:        {'<', "white"},
	StairsDown:      {'>', "white"},
	DungeonEntrance: {'O', "dark_gray"},
	RoadCobble:      {'=', "light_gray"},
	RoadGravel:      {':', "gray"},
	RoadDirt:        {'-', "brown"},
	BridgeStone:     {'H', "light_gray"},
	BridgeWood:      {'h', "brown"},
}

type Tile struct {
	Kind        Kind
	Walkable    bool
	Transparent bool

	Glyph rune
	Color string

	// ResourceID names the harvestable resource bound to this tile, if any.
	ResourceID string

	// Door state. Meaningful only for Kind == Door.
	Open      bool
	Locked    bool
	LockID    string
	LockLevel int

	// Interior marks tiles inside building footprints so road passes
	// never overwrite them.
	Interior bool
}

// Make builds a fully-populated tile for a kind. Doors start closed and
// unlocked.
func Make(k Kind) Tile {
	if k >= kindCount {
		k = Floor
	}
	t := Tile{
		Kind:  k,
		Glyph: defaultStyles[k].glyph,
		Color: defaultStyles[k].color,
	}
	t.derive()
	return t
}

// derive recomputes the walkable/transparent flags from kind and door
// state. It is the single source of truth for the tile invariant.
func (t *Tile) derive() {
	switch t.Kind {
	case Wall, Tree, Rock:
		t.Walkable = false
		t.Transparent = false
	case Water:
		t.Walkable = false
		t.Transparent = true
	case Door:
		// Closed doors block sight; bumping them open is the caller's
		// concern, so they stay walkable.
		t.Walkable = true
		t.Transparent = t.Open
	default:
		t.Walkable = true
		t.Transparent = true
	}
}

// SetOpen toggles a door and re-derives its flags. No-op for other kinds.
func (t *Tile) SetOpen(open bool) {
	if t.Kind != Door {
		return
	}
	t.Open = open
	t.derive()
}

// IsPlainFloor reports whether the tile is plain walkable ground that
// overlay and scatter passes may claim. Interior floors are excluded;
// they belong to a building.
func (t Tile) IsPlainFloor() bool {
	if t.Interior {
		return false
	}
	switch t.Kind {
	case Floor, Grass, Sand, Snow, Dirt:
		return true
	}
	return false
}

// IsStructural reports the kinds no road pass may ever overwrite.
func (k Kind) IsStructural() bool {
	switch k {
	case Wall, Door, StairsUp, StairsDown, DungeonEntrance:
		return true
	}
	return false
}

// IsRoad covers road surfaces and bridges.
func (k Kind) IsRoad() bool {
	switch k {
	case RoadCobble, RoadGravel, RoadDirt, BridgeStone, BridgeWood:
		return true
	}
	return false
}
