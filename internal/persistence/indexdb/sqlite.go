// Package indexdb maintains a queryable sqlite index next to the save
// files: which chunks have been generated, which settlements
// registered, what spawned, and where each save lives. The index is
// secondary state; losing it loses queries, not the world.
package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"thornvale.world/internal/defs"
	"thornvale.world/internal/persistence/snapshot"
	"thornvale.world/internal/tuning"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqChunk reqKind = iota + 1
	reqSettlement
	reqSpawn
	reqSave
)

type req struct {
	kind reqKind

	chunk      ChunkRow
	settlement SettlementRow
	spawn      SpawnRow
	save       saveRow
}

// ChunkRow indexes one chunk synthesis or reload.
type ChunkRow struct {
	CX        int
	CY        int
	Seed      int64
	Digest    string
	Resources int
	Restored  bool
}

// SettlementRow indexes one derived settlement.
type SettlementRow struct {
	ID           string
	Name         string
	Tier         string
	X            int
	Y            int
	Footprint    int
	RoadEligible bool
}

// SpawnRow indexes one spawn request.
type SpawnRow struct {
	Kind         string
	TypeID       string
	X            int
	Y            int
	SettlementID string
}

type saveRow struct {
	Seq        uint64
	WorldID    string
	Path       string
	Seed       int64
	Chunks     int
	Registered int
	CreatedAt  string
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		// Sized for generation bursts: a client sweeping a region can
		// synthesize hundreds of chunks in one request window.
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	// NORMAL is a decent durability/perf tradeoff for a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS chunks (
			cx INTEGER NOT NULL,
			cy INTEGER NOT NULL,
			seed INTEGER NOT NULL,
			digest TEXT NOT NULL,
			resources INTEGER NOT NULL,
			restored INTEGER NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (cx, cy)
		);`,
		`CREATE TABLE IF NOT EXISTS settlements (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			tier TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			footprint INTEGER NOT NULL,
			road_eligible INTEGER NOT NULL,
			indexed_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_settlements_tier ON settlements(tier);`,
		`CREATE TABLE IF NOT EXISTS spawns (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			at TEXT NOT NULL,
			kind TEXT NOT NULL,
			type_id TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			settlement_id TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_spawns_settlement ON spawns(settlement_id);`,
		`CREATE INDEX IF NOT EXISTS idx_spawns_kind ON spawns(kind);`,
		`CREATE TABLE IF NOT EXISTS saves (
			seq INTEGER PRIMARY KEY,
			world_id TEXT NOT NULL,
			path TEXT NOT NULL,
			seed INTEGER NOT NULL,
			chunks INTEGER NOT NULL,
			registered INTEGER NOT NULL,
			created_at TEXT NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// RecordChunk queues a chunk row. Drops rather than blocks when the
// indexer falls behind; the genlog JSONL remains the source of truth.
func (s *SQLiteIndex) RecordChunk(row ChunkRow) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqChunk, chunk: row}:
	default:
	}
}

func (s *SQLiteIndex) RecordSettlement(row SettlementRow) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqSettlement, settlement: row}:
	default:
	}
}

func (s *SQLiteIndex) RecordSpawn(row SpawnRow) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqSpawn, spawn: row}:
	default:
	}
}

func (s *SQLiteIndex) RecordSave(path string, save snapshot.SaveV1) {
	if s == nil || s.closed.Load() {
		return
	}
	r := saveRow{
		Seq:        save.Header.Seq,
		WorldID:    save.Header.WorldID,
		Path:       path,
		Seed:       save.Seed,
		Chunks:     len(save.Chunks),
		Registered: len(save.Registered),
		CreatedAt:  time.Now().UTC().Format(time.RFC3339Nano),
	}
	select {
	case s.ch <- req{kind: reqSave, save: r}:
	default:
	}
}

// SaveRef points at one recorded save file.
type SaveRef struct {
	Seq    uint64
	Path   string
	Seed   int64
	Chunks int
}

// LatestSave returns the newest recorded save for a world, if any.
func (s *SQLiteIndex) LatestSave(worldID string) (SaveRef, bool, error) {
	var ref SaveRef
	if s == nil {
		return ref, false, nil
	}
	var seq int64
	row := s.db.QueryRow(`SELECT seq,path,seed,chunks FROM saves WHERE world_id = ? ORDER BY seq DESC LIMIT 1`, worldID)
	err := row.Scan(&seq, &ref.Path, &ref.Seed, &ref.Chunks)
	if err == sql.ErrNoRows {
		return ref, false, nil
	}
	if err != nil {
		return ref, false, err
	}
	ref.Seq = uint64(seq)
	return ref, true, nil
}

// Counts reports how many chunks, settlements and spawns the index
// has seen.
func (s *SQLiteIndex) Counts() (chunks, settlements, spawns int, err error) {
	if s == nil {
		return 0, 0, 0, nil
	}
	if err = s.db.QueryRow(`SELECT COUNT(*) FROM chunks`).Scan(&chunks); err != nil {
		return
	}
	if err = s.db.QueryRow(`SELECT COUNT(*) FROM settlements`).Scan(&settlements); err != nil {
		return
	}
	err = s.db.QueryRow(`SELECT COUNT(*) FROM spawns`).Scan(&spawns)
	return
}

// UpsertDefs stores the loaded catalogs and applied tuning so queries
// can join world rows against the definitions that produced them.
func (s *SQLiteIndex) UpsertDefs(configDir string, d *defs.Defs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	raw := map[string][]byte{}
	read := func(name, path string) {
		b, err := os.ReadFile(path)
		if err != nil {
			return
		}
		raw[name] = b
	}
	if configDir != "" {
		read("tiles_defs", filepath.Join(configDir, "tiles.json"))
		read("biomes_defs", filepath.Join(configDir, "biomes.json"))
		read("buildings_defs", filepath.Join(configDir, "buildings.json"))
		read("creatures_defs", filepath.Join(configDir, "creatures.json"))
	}

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if b := raw["tiles_defs"]; len(b) > 0 {
		rows = append(rows, kv{name: "tiles_defs", digest: d.Tiles.Digest, json: b})
	}
	if b := raw["biomes_defs"]; len(b) > 0 {
		rows = append(rows, kv{name: "biomes_defs", digest: d.Biomes.Digest, json: b})
	}
	if b := raw["buildings_defs"]; len(b) > 0 {
		rows = append(rows, kv{name: "buildings_defs", digest: d.Buildings.Digest, json: b})
	}
	if b := raw["creatures_defs"]; len(b) > 0 {
		rows = append(rows, kv{name: "creatures_defs", digest: d.Creatures.Digest, json: b})
	}
	{
		// Store the tuning we actually applied, canonical JSON.
		b, _ := json.Marshal(tune)
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.name == "" || r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertChunk, _ := s.db.Prepare(`INSERT OR REPLACE INTO chunks(cx,cy,seed,digest,resources,restored,updated_at) VALUES(?,?,?,?,?,?,?)`)
	insertSettlement, _ := s.db.Prepare(`INSERT OR REPLACE INTO settlements(id,name,tier,x,y,footprint,road_eligible,indexed_at) VALUES(?,?,?,?,?,?,?,?)`)
	insertSpawn, _ := s.db.Prepare(`INSERT INTO spawns(at,kind,type_id,x,y,settlement_id) VALUES(?,?,?,?,?,?)`)
	insertSave, _ := s.db.Prepare(`INSERT OR REPLACE INTO saves(seq,world_id,path,seed,chunks,registered,created_at) VALUES(?,?,?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertChunk, insertSettlement, insertSpawn, insertSave} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			// If we can't start a tx, we can't do much; sleep a bit.
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	now := func() string { return time.Now().UTC().Format(time.RFC3339Nano) }

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqChunk:
			c := r.chunk
			if insertChunk != nil {
				restored := 0
				if c.Restored {
					restored = 1
				}
				if _, err := tx.Stmt(insertChunk).Exec(c.CX, c.CY, c.Seed, c.Digest, c.Resources, restored, now()); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqSettlement:
			se := r.settlement
			if insertSettlement != nil {
				eligible := 0
				if se.RoadEligible {
					eligible = 1
				}
				if _, err := tx.Stmt(insertSettlement).Exec(se.ID, se.Name, se.Tier, se.X, se.Y, se.Footprint, eligible, now()); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqSpawn:
			sp := r.spawn
			if insertSpawn != nil {
				if _, err := tx.Stmt(insertSpawn).Exec(now(), sp.Kind, sp.TypeID, sp.X, sp.Y, sp.SettlementID); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqSave:
			sv := r.save
			if insertSave != nil {
				if _, err := tx.Stmt(insertSave).Exec(int64(sv.Seq), sv.WorldID, sv.Path, sv.Seed, sv.Chunks, sv.Registered, sv.CreatedAt); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		flushIfNeeded()
	}

	commit()
}
