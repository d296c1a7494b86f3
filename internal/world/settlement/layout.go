package settlement

import (
	"log"
	"math"

	"thornvale.world/internal/defs"
	"thornvale.world/internal/world/rng"
	"thornvale.world/internal/world/spawn"
	"thornvale.world/internal/world/tile"
)

// Canvas is the write surface a chunk generation pass hands to the
// overlay. Set must silently ignore positions outside the chunk under
// generation; Get reports ok=false for them.
type Canvas interface {
	Get(wx, wy int) (tile.Tile, bool)
	Set(wx, wy int, t tile.Tile)
}

// layoutBuildings rings buildings around the center. Draw order per
// building is fixed: type, angle jitter, radius jitter. Footprints
// resolve against the catalog at stamp time, not here, so a broken
// building def still gets a stable placement.
func layoutBuildings(sr *rng.Rng, d *Descriptor) []Placement {
	var count int
	switch d.Tier {
	case Hamlet:
		count = 3
	case Village:
		count = 5
	default:
		count = 8
	}

	ring := float64(d.FootprintSize) * 0.55
	out := make([]Placement, 0, count)
	for i := 0; i < count; i++ {
		var typeID string
		switch {
		case i == 0 && d.Tier != Hamlet:
			typeID = "hall"
		case i == 1:
			typeID = "well"
		default:
			switch roll := sr.Intn(9); {
			case roll < 6:
				typeID = "house"
			case roll < 8:
				typeID = "farm"
			default:
				typeID = "smithy"
			}
		}

		theta := 2*math.Pi*float64(i)/float64(count) + (sr.Float64()-0.5)*0.5
		rad := ring + float64(sr.Perturb(3))
		offX := int(math.Round(rad * math.Cos(theta)))
		offY := int(math.Round(rad * math.Sin(theta)))

		out = append(out, Placement{
			OffX:   offX,
			OffY:   offY,
			TypeID: typeID,
			Facing: facingToward(-offX, -offY),
		})
	}
	return out
}

// facingToward picks the cardinal direction of (dx,dy), preferring the
// dominant axis. Doors face the settlement center.
func facingToward(dx, dy int) Facing {
	if abs(dx) >= abs(dy) {
		if dx >= 0 {
			return East
		}
		return West
	}
	if dy >= 0 {
		return South
	}
	return North
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// rotatedSize swaps a footprint for east/west facings; the stored
// width/height are for a north/south door wall.
func rotatedSize(def defs.BuildingDef, f Facing) (w, h int) {
	if f == East || f == West {
		return def.Height, def.Width
	}
	return def.Width, def.Height
}

// Footprint returns a building's world-space rectangle and door cell.
// The door sits at the middle of the wall on the facing side.
func Footprint(s *Descriptor, p Placement, def defs.BuildingDef) (x0, y0, x1, y1, doorX, doorY int) {
	w, h := rotatedSize(def, p.Facing)
	bcx := s.CenterX + p.OffX
	bcy := s.CenterY + p.OffY
	x0 = bcx - w/2
	y0 = bcy - h/2
	x1 = x0 + w - 1
	y1 = y0 + h - 1

	switch p.Facing {
	case North:
		doorX, doorY = (x0+x1)/2, y0
	case South:
		doorX, doorY = (x0+x1)/2, y1
	case East:
		doorX, doorY = x1, (y0+y1)/2
	default:
		doorX, doorY = x0, (y0+y1)/2
	}
	return
}

// DoorPos is the door cell of a placed building, the start of its
// intra-settlement road.
func DoorPos(s *Descriptor, p Placement, def defs.BuildingDef) (int, int) {
	_, _, _, _, dx, dy := Footprint(s, p, def)
	return dx, dy
}

// Stamp writes one settlement's buildings into the canvas. Writes are
// clipped by the canvas, so chunks holding only a fragment stamp just
// their share. Unknown building ids degrade to the fallback hut with a
// log line; generation never aborts on a broken definition.
func Stamp(c Canvas, s *Descriptor, cat *defs.BuildingCatalog, logger *log.Logger) {
	if logger == nil {
		logger = log.Default()
	}
	for _, p := range s.Buildings {
		def, known := cat.Get(p.TypeID)
		if !known {
			logger.Printf("[settlement] %s: unknown building %q, stamping fallback hut", s.ID, p.TypeID)
		}
		stampBuilding(c, s, p, def)
	}
}

func stampBuilding(c Canvas, s *Descriptor, p Placement, def defs.BuildingDef) {
	x0, y0, x1, y1, doorX, doorY := Footprint(s, p, def)
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			var t tile.Tile
			switch {
			case x == doorX && y == doorY:
				t = tile.Make(tile.Door)
			case x == x0 || x == x1 || y == y0 || y == y1:
				t = tile.Make(tile.Wall)
			default:
				t = tile.Make(tile.Floor)
				t.Interior = true
			}
			c.Set(x, y, t)
		}
	}
}

// Spawns returns the NPC and crop requests a settlement's primary chunk
// emits exactly once: each building's NPCs at the building center, and
// one crop request per interior cell of crop buildings.
func Spawns(s *Descriptor, cat *defs.BuildingCatalog) []spawn.Request {
	var out []spawn.Request
	for _, p := range s.Buildings {
		def, _ := cat.Get(p.TypeID)
		x0, y0, x1, y1, _, _ := Footprint(s, p, def)
		bcx := (x0 + x1) / 2
		bcy := (y0 + y1) / 2

		for _, npc := range def.NPCs {
			out = append(out, spawn.Request{
				Kind:         spawn.KindNPC,
				TypeID:       npc,
				X:            bcx,
				Y:            bcy,
				SettlementID: s.ID,
			})
		}
		if def.Crop != "" {
			for y := y0 + 1; y < y1; y++ {
				for x := x0 + 1; x < x1; x++ {
					out = append(out, spawn.Request{
						Kind:         spawn.KindCrop,
						TypeID:       def.Crop,
						X:            x,
						Y:            y,
						SettlementID: s.ID,
					})
				}
			}
		}
	}
	return out
}
