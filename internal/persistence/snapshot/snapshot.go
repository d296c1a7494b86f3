// Package snapshot persists a world as chunk diffs against its own
// regeneration. Files are zstd streams: one JSON header line, then a
// gob body. Everything in the body is slices and scalars in canonical
// order, so saving a freshly loaded save reproduces it byte for byte.
package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	"thornvale.world/internal/world"
	"thornvale.world/internal/world/scatter"
	"thornvale.world/internal/world/tile"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	WorldID string `json:"world_id"`
	Seed    int64  `json:"seed"`
	Seq     uint64 `json:"seq"`
}

type SaveV1 struct {
	Header Header `json:"header"`

	// World config echo, captured for resume.
	Seed               int64 `json:"seed"`
	BoundaryR          int   `json:"boundary_r"`
	SettlementCellSize int   `json:"settlement_cell_size"`
	SettlementPermille int   `json:"settlement_permille"`

	Chunks     []ChunkDiffV1 `json:"chunks"`
	Registered []string      `json:"registered"`
}

type ChunkDiffV1 struct {
	CX        int              `json:"cx"`
	CY        int              `json:"cy"`
	Seed      int64            `json:"seed"`
	Overrides []TileOverrideV1 `json:"overrides,omitempty"`
	Resources []ResourceV1     `json:"resources,omitempty"`
}

type TileOverrideV1 struct {
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Tile TileV1 `json:"tile"`
}

// TileV1 carries only owned state. Walkable and transparent flags are
// derived again on load, never persisted.
type TileV1 struct {
	Kind       uint16 `json:"kind"`
	Glyph      rune   `json:"glyph"`
	Color      string `json:"color"`
	ResourceID string `json:"resource_id,omitempty"`
	Open       bool   `json:"open,omitempty"`
	Locked     bool   `json:"locked,omitempty"`
	LockID     string `json:"lock_id,omitempty"`
	LockLevel  int    `json:"lock_level,omitempty"`
	Interior   bool   `json:"interior,omitempty"`
}

type ResourceV1 struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

func tileToV1(t tile.Tile) TileV1 {
	return TileV1{
		Kind:       uint16(t.Kind),
		Glyph:      t.Glyph,
		Color:      t.Color,
		ResourceID: t.ResourceID,
		Open:       t.Open,
		Locked:     t.Locked,
		LockID:     t.LockID,
		LockLevel:  t.LockLevel,
		Interior:   t.Interior,
	}
}

func tileFromV1(v TileV1) tile.Tile {
	t := tile.Make(tile.Kind(v.Kind))
	t.Glyph = v.Glyph
	t.Color = v.Color
	t.ResourceID = v.ResourceID
	t.Locked = v.Locked
	t.LockID = v.LockID
	t.LockLevel = v.LockLevel
	t.Interior = v.Interior
	if v.Open {
		t.SetOpen(true)
	}
	return t
}

// Capture assembles a save from the world's current state.
func Capture(w *world.World, seq uint64) SaveV1 {
	diffs, registered := w.CollectState()

	s := SaveV1{
		Header: Header{
			Version: Version,
			WorldID: w.Cfg.ID,
			Seed:    w.Cfg.Seed,
			Seq:     seq,
		},
		Seed:               w.Cfg.Seed,
		BoundaryR:          w.Cfg.BoundaryR,
		SettlementCellSize: w.Cfg.SettlementCellSize,
		SettlementPermille: w.Cfg.SettlementPermille,
		Registered:         registered,
	}
	for _, d := range diffs {
		cd := ChunkDiffV1{CX: d.CX, CY: d.CY, Seed: d.Seed}
		for _, o := range d.Overrides {
			cd.Overrides = append(cd.Overrides, TileOverrideV1{X: o.X, Y: o.Y, Tile: tileToV1(o.Tile)})
		}
		for _, r := range d.Resources {
			cd.Resources = append(cd.Resources, ResourceV1{ID: r.ID, Type: r.Type, X: r.X, Y: r.Y})
		}
		s.Chunks = append(s.Chunks, cd)
	}
	return s
}

// Restore loads a save into a world built from the matching config.
// Chunks materialize lazily on their next access.
func Restore(w *world.World, s SaveV1) {
	diffs := make([]*world.ChunkDiff, 0, len(s.Chunks))
	for _, cd := range s.Chunks {
		d := &world.ChunkDiff{CX: cd.CX, CY: cd.CY, Seed: cd.Seed}
		for _, o := range cd.Overrides {
			d.Overrides = append(d.Overrides, world.TileOverride{X: o.X, Y: o.Y, Tile: tileFromV1(o.Tile)})
		}
		for _, r := range cd.Resources {
			d.Resources = append(d.Resources, scatter.Resource{ID: r.ID, Type: r.Type, X: r.X, Y: r.Y})
		}
		diffs = append(diffs, d)
	}
	w.RestoreState(diffs, s.Registered)
}

// WriteSave writes a save file, creating parent directories. The
// encoder runs single-stream so identical saves produce identical
// bytes.
func WriteSave(path string, s SaveV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
		zstd.WithEncoderConcurrency(1))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(s.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&s); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func ReadSave(path string) (SaveV1, error) {
	var s SaveV1
	f, err := os.Open(path)
	if err != nil {
		return s, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return s, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// Header line repeats inside the gob body; skip it.
	if _, err := br.ReadBytes('\n'); err != nil {
		return s, fmt.Errorf("read header: %w", err)
	}

	if err := gob.NewDecoder(br).Decode(&s); err != nil {
		return s, fmt.Errorf("gob decode: %w", err)
	}
	return s, nil
}

// ReadHeader decodes only the JSON header line of a save file.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReaderSize(dec, 64*1024).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("parse header: %w", err)
	}
	return h, nil
}

// SavePath is the canonical location of save seq for a world.
func SavePath(dataDir, worldID string, seq uint64) string {
	return filepath.Join(dataDir, worldID, "saves", fmt.Sprintf("%d.save.zst", seq))
}

// LatestSave returns the highest-sequence save file of a world, or ""
// when none exist.
func LatestSave(dataDir, worldID string) string {
	dir := filepath.Join(dataDir, worldID, "saves")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestSeq uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".save.zst") {
			continue
		}
		base := strings.TrimSuffix(name, ".save.zst")
		seq, err := strconv.ParseUint(base, 10, 64)
		if err != nil {
			continue
		}
		if best == "" || seq > bestSeq {
			bestSeq = seq
			best = filepath.Join(dir, name)
		}
	}
	return best
}
