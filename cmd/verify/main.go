// Command verify replays the generation log against a fresh offline
// world and re-checks every recorded chunk digest. A mismatch means the
// generator no longer reproduces the world the log was written from,
// either because configs drifted or because generation code changed.
package main

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"thornvale.world/internal/defs"
	"thornvale.world/internal/persistence/genlog"
	"thornvale.world/internal/persistence/snapshot"
	"thornvale.world/internal/world"
	"thornvale.world/internal/world/spawn"
)

func main() {
	var (
		dataDir   = flag.String("data", "./data", "runtime data directory")
		worldID   = flag.String("world", "overworld", "world id")
		configDir = flag.String("configs", "./configs", "config directory")
		seed      = flag.Int64("seed", 0, "world seed (default: taken from the latest save)")
	)
	flag.Parse()

	seedSet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			seedSet = true
		}
	})

	worldSeed := *seed
	if !seedSet {
		savePath := snapshot.LatestSave(*dataDir, *worldID)
		if savePath == "" {
			fmt.Fprintln(os.Stderr, "missing -seed and no save to take it from")
			os.Exit(2)
		}
		h, err := snapshot.ReadHeader(savePath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read save header:", err)
			os.Exit(1)
		}
		worldSeed = h.Seed
	}

	quiet := log.New(io.Discard, "", 0)
	d, err := defs.Load(*configDir, quiet)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load defs:", err)
		os.Exit(1)
	}
	w := world.NewWorld(world.WorldConfig{ID: *worldID, Seed: worldSeed}, d, nil, spawn.Discard{}, quiet)

	files, err := listGenFiles(filepath.Join(*dataDir, *worldID, "genlog"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "list genlog:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no genlog files found for world", *worldID)
		os.Exit(1)
	}

	var checked, skipped int
	for _, path := range files {
		if err := verifyFile(w, path, &checked, &skipped); err != nil {
			fmt.Fprintln(os.Stderr, "verify:", err)
			os.Exit(1)
		}
	}
	fmt.Printf("verify ok: seed=%d checked=%d chunks skipped=%d restored entries\n", worldSeed, checked, skipped)
}

func listGenFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "gen-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

func verifyFile(w *world.World, path string, checked, skipped *int) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)

	for sc.Scan() {
		var entry genlog.ChunkEntry
		if err := json.Unmarshal(sc.Bytes(), &entry); err != nil {
			return fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
		}

		// Restored chunks carry replayed diffs; their logged digest is
		// not reproducible from the seed alone.
		if entry.Restored {
			*skipped++
			continue
		}

		ch := w.GetOrGenerate(entry.CX, entry.CY)
		if uint64(ch.Seed) != entry.Seed {
			return fmt.Errorf("seed mismatch at chunk %d,%d: got=%d want=%d (file=%s)",
				entry.CX, entry.CY, uint64(ch.Seed), entry.Seed, filepath.Base(path))
		}
		dg := ch.Digest()
		if got := hex.EncodeToString(dg[:]); got != entry.Digest {
			return fmt.Errorf("digest mismatch at chunk %d,%d: got=%s want=%s (file=%s)",
				entry.CX, entry.CY, got, entry.Digest, filepath.Base(path))
		}
		*checked++
	}
	return sc.Err()
}
