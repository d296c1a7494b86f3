// Command server runs the world generator behind a websocket endpoint.
//
// The server owns exactly one world. Chunks are synthesized on demand,
// mutations accumulate in per-chunk diffs, and SIGINT/SIGTERM triggers a
// final save before the listener goes down.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"thornvale.world/internal/defs"
	"thornvale.world/internal/persistence/genlog"
	"thornvale.world/internal/persistence/indexdb"
	"thornvale.world/internal/persistence/snapshot"
	"thornvale.world/internal/protocol"
	"thornvale.world/internal/service"
	"thornvale.world/internal/transport/ws"
	"thornvale.world/internal/tuning"
	"thornvale.world/internal/world"
	"thornvale.world/internal/world/spawn"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		worldID    = flag.String("world", "overworld", "world id")
		seed       = flag.Int64("seed", 1337, "world seed (used only when starting a fresh world)")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite runtime index")
		savePath   = flag.String("save", "", "resume from a specific save file")
		loadLatest = flag.Bool("load_latest_save", true, "resume from the most recent save if one exists")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	d, err := defs.Load(*configDir, logger)
	if err != nil {
		logger.Fatalf("load defs: %v", err)
	}

	tunePath := *tuningPath
	if tunePath == "" {
		tunePath = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tunePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Printf("no tuning file at %s, using defaults", tunePath)
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}

	worldDir := filepath.Join(*dataDir, *worldID)
	if err := os.MkdirAll(worldDir, 0o755); err != nil {
		logger.Fatalf("create world dir: %v", err)
	}

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(worldDir, "index.db"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
		if err := idx.UpsertDefs(*configDir, d, tune); err != nil {
			logger.Printf("index defs: %v", err)
		}
	}

	genLog := genlog.NewGenLogger(worldDir, *worldID)
	defer genLog.Close()
	setLog := genlog.NewSettlementLogger(worldDir, *worldID)
	defer setLog.Close()

	// Spawn requests flow through the JSONL log and then into the index.
	var next spawn.Sink
	if idx != nil {
		next = indexSpawnSink{idx: idx}
	}
	spawnLog := genlog.NewSpawnLogger(worldDir, *worldID, next)
	defer spawnLog.Close()

	// Resume from a save when one is available, otherwise start fresh from
	// the flag seed and tuning values.
	saveToLoad := *savePath
	if saveToLoad == "" && *loadLatest {
		saveToLoad = snapshot.LatestSave(*dataDir, *worldID)
	}

	var (
		w       *world.World
		lastSeq uint64
	)
	if saveToLoad != "" {
		s, err := snapshot.ReadSave(saveToLoad)
		if err != nil {
			logger.Fatalf("read save %s: %v", saveToLoad, err)
		}
		if s.Header.WorldID != *worldID {
			logger.Fatalf("save %s belongs to world %q, not %q", saveToLoad, s.Header.WorldID, *worldID)
		}
		cfg := world.WorldConfig{
			ID:                 *worldID,
			Seed:               s.Seed,
			BoundaryR:          s.BoundaryR,
			SettlementCellSize: s.SettlementCellSize,
			SettlementPermille: s.SettlementPermille,
			ChunkCacheLimit:    tune.ChunkCacheLimit,
			SaveEveryEvictions: tune.SaveEveryEvictions,
		}
		w = world.NewWorld(cfg, d, nil, spawnLog, logger)
		snapshot.Restore(w, s)
		lastSeq = s.Header.Seq
		logger.Printf("resumed from save=%s seq=%d chunks=%d", saveToLoad, s.Header.Seq, len(s.Chunks))
	} else {
		cfg := world.WorldConfig{
			ID:                 *worldID,
			Seed:               *seed,
			BoundaryR:          tune.WorldBoundaryR,
			SettlementCellSize: tune.SettlementCellSize,
			SettlementPermille: tune.SettlementPermille,
			ChunkCacheLimit:    tune.ChunkCacheLimit,
			SaveEveryEvictions: tune.SaveEveryEvictions,
		}
		w = world.NewWorld(cfg, d, nil, spawnLog, logger)
	}

	eng := service.NewEngine(w, service.Options{
		DataDir:       *dataDir,
		Index:         idx,
		GenLog:        genLog,
		SettlementLog: setLog,
		LastSaveSeq:   lastSeq,
		Logger:        logger,
	})

	// The engine outlives the signal context: the shutdown path below still
	// needs the loop alive to run the final save.
	go func() {
		if err := eng.Run(context.Background()); err != nil && err != context.Canceled {
			logger.Printf("engine: %v", err)
		}
	}()

	ctx, cancel := signalContext()
	defer cancel()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/v1/info", func(rw http.ResponseWriter, _ *http.Request) {
		info := map[string]any{
			"world_id":         w.Cfg.ID,
			"seed":             w.Cfg.Seed,
			"protocol_version": protocol.Version,
			"instance_id":      eng.InstanceID(),
		}
		if idx != nil {
			if chunks, settlements, spawns, err := idx.Counts(); err == nil {
				info["indexed"] = map[string]int{
					"chunks":      chunks,
					"settlements": settlements,
					"spawns":      spawns,
				}
			}
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(info)
	})
	mux.Handle("/v1/ws", ws.NewServer(eng, logger).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Printf("shutting down")
		saveCtx, saveCancel := context.WithTimeout(context.Background(), 10*time.Second)
		if ok, code := eng.Save(saveCtx); code == "" {
			logger.Printf("final save seq=%d chunks=%d", ok.Seq, ok.Chunks)
		} else {
			logger.Printf("final save failed: %s", code)
		}
		saveCancel()
		eng.Stop()
		shCtx, shCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shCancel()
		_ = srv.Shutdown(shCtx)
	}()

	logger.Printf("world=%s seed=%d listening on %s", w.Cfg.ID, w.Cfg.Seed, *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("listen: %v", err)
	}
}

// indexSpawnSink mirrors spawn requests into the sqlite index.
type indexSpawnSink struct {
	idx *indexdb.SQLiteIndex
}

func (s indexSpawnSink) Spawn(r spawn.Request) {
	s.idx.RecordSpawn(indexdb.SpawnRow{
		Kind:         string(r.Kind),
		TypeID:       r.TypeID,
		X:            r.X,
		Y:            r.Y,
		SettlementID: r.SettlementID,
	})
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
