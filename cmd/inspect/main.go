// Command inspect renders chunks as glyph maps and summarizes saves and
// the runtime index, all offline. The same seed and configs produce the
// same map the server would stream.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"thornvale.world/internal/defs"
	"thornvale.world/internal/persistence/indexdb"
	"thornvale.world/internal/persistence/snapshot"
	"thornvale.world/internal/world"
	"thornvale.world/internal/world/spawn"
	"thornvale.world/internal/world/tile"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "render":
			renderCmd(os.Args[2:])
			return
		case "save":
			saveCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		}
	}
	renderCmd(os.Args[1:])
}

func renderCmd(args []string) {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	seed := fs.Int64("seed", 1337, "world seed")
	configDir := fs.String("configs", "./configs", "config directory")
	cx := fs.Int("cx", 0, "center chunk x")
	cy := fs.Int("cy", 0, "center chunk y")
	radius := fs.Int("radius", 0, "extra chunk rings around the center")
	_ = fs.Parse(args)

	quiet := log.New(io.Discard, "", 0)
	d, err := defs.Load(*configDir, quiet)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load defs:", err)
		os.Exit(1)
	}

	w := world.NewWorld(world.WorldConfig{ID: "inspect", Seed: *seed}, d, nil, spawn.Discard{}, quiet)

	c0x, c0y := *cx-*radius, *cy-*radius
	c1x, c1y := *cx+*radius, *cy+*radius

	for gy := c0y; gy <= c1y; gy++ {
		for row := 0; row < world.ChunkSize; row++ {
			var sb strings.Builder
			for gx := c0x; gx <= c1x; gx++ {
				ch := w.GetOrGenerate(gx, gy)
				for col := 0; col < world.ChunkSize; col++ {
					sb.WriteString(glyphFor(d, ch.Get(col, row)))
				}
			}
			fmt.Println(sb.String())
		}
	}

	fmt.Println()
	for gy := c0y; gy <= c1y; gy++ {
		for gx := c0x; gx <= c1x; gx++ {
			ch := w.GetOrGenerate(gx, gy)
			dg := ch.Digest()
			fmt.Printf("chunk %d,%d digest=%s resources=%d\n",
				gx, gy, hex.EncodeToString(dg[:])[:12], len(ch.Resources))
		}
	}

	x0, y0 := c0x*world.ChunkSize, c0y*world.ChunkSize
	x1 := (c1x+1)*world.ChunkSize - 1
	y1 := (c1y+1)*world.ChunkSize - 1
	for _, s := range w.Registry().SettlementsIntersecting(x0, y0, x1, y1) {
		fmt.Printf("settlement %s %q tier=%s center=%d,%d buildings=%d\n",
			s.ID, s.Name, s.Tier, s.CenterX, s.CenterY, len(s.Buildings))
	}
}

// glyphFor maps a tile to its configured display glyph.
func glyphFor(d *defs.Defs, t tile.Tile) string {
	if st, ok := d.Tiles.Styles[t.Kind.String()]; ok && st.Glyph != "" {
		return st.Glyph
	}
	return "?"
}

func saveCmd(args []string) {
	fs := flag.NewFlagSet("save", flag.ExitOnError)
	path := fs.String("path", "", "save file to summarize")
	listChunks := fs.Bool("chunks", false, "list per-chunk diffs")
	_ = fs.Parse(args)

	if strings.TrimSpace(*path) == "" {
		fmt.Fprintln(os.Stderr, "missing -path")
		os.Exit(2)
	}

	s, err := snapshot.ReadSave(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read save:", err)
		os.Exit(1)
	}

	fmt.Printf("save v%d world=%s seq=%d seed=%d boundary_r=%d chunks=%d registered=%d\n",
		s.Header.Version, s.Header.WorldID, s.Header.Seq, s.Seed, s.BoundaryR,
		len(s.Chunks), len(s.Registered))
	if *listChunks {
		for _, c := range s.Chunks {
			fmt.Printf("  chunk %d,%d overrides=%d resources=%d\n",
				c.CX, c.CY, len(c.Overrides), len(c.Resources))
		}
	}
}

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "overworld", "world id")
	_ = fs.Parse(args)

	idx, err := indexdb.OpenSQLite(filepath.Join(*dataDir, *worldID, "index.db"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "open index:", err)
		os.Exit(1)
	}
	defer idx.Close()

	chunks, settlements, spawns, err := idx.Counts()
	if err != nil {
		fmt.Fprintln(os.Stderr, "counts:", err)
		os.Exit(1)
	}
	fmt.Printf("index world=%s chunks=%d settlements=%d spawns=%d\n",
		*worldID, chunks, settlements, spawns)

	ref, ok, err := idx.LatestSave(*worldID)
	if err != nil {
		fmt.Fprintln(os.Stderr, "latest save:", err)
		os.Exit(1)
	}
	if ok {
		fmt.Printf("latest save seq=%d chunks=%d path=%s\n", ref.Seq, ref.Chunks, ref.Path)
	}
}
