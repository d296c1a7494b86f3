// Package genlog appends compressed JSONL records of what the
// generator produced: one line per synthesized chunk and one per spawn
// request. The files are an audit trail, not state; restarts never
// read them back.
package genlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"thornvale.world/internal/world/spawn"
)

// ChunkEntry records one chunk synthesis or reload.
type ChunkEntry struct {
	At        string `json:"at"`
	WorldID   string `json:"world_id"`
	CX        int    `json:"cx"`
	CY        int    `json:"cy"`
	Seed      uint64 `json:"seed"`
	Digest    string `json:"digest"`
	Resources int    `json:"resources"`
	Restored  bool   `json:"restored,omitempty"`
}

// SettlementEntry records one settlement registration.
type SettlementEntry struct {
	At      string `json:"at"`
	WorldID string `json:"world_id"`
	ID      string `json:"id"`
	Name    string `json:"name"`
	Tier    string `json:"tier"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
}

// SpawnEntry records one spawn request handed to the entity layer.
type SpawnEntry struct {
	At           string `json:"at"`
	WorldID      string `json:"world_id"`
	Kind         string `json:"kind"`
	TypeID       string `json:"type_id"`
	X            int    `json:"x"`
	Y            int    `json:"y"`
	SettlementID string `json:"settlement_id,omitempty"`
}

// Now returns the timestamp format the entries use.
func Now() string { return time.Now().UTC().Format(time.RFC3339Nano) }

// JSONLZstdWriter appends JSON lines to an hourly-rotated zstd file
// named <prefix>-<YYYY-MM-DD-HH>.jsonl.zst under baseDir.
type JSONLZstdWriter struct {
	baseDir string
	prefix  string

	mu   sync.Mutex
	hour string
	f    *os.File
	enc  *zstd.Encoder
	buf  *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{baseDir: baseDir, prefix: prefix}
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := time.Now().UTC().Format("2006-01-02-15")
	if hour != w.hour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.buf.Write(b); err != nil {
		return err
	}
	if err := w.buf.WriteByte('\n'); err != nil {
		return err
	}
	return w.buf.Flush()
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	path := w.pathForHour(hour)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	// SpeedFastest: these lines are written on the generation path.
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.buf = bufio.NewWriterSize(enc, 128*1024)
	w.hour = hour
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err error
	if w.buf != nil {
		_ = w.buf.Flush()
	}
	if w.enc != nil {
		err = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.buf = nil
	return err
}

func (w *JSONLZstdWriter) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// GenLogger writes one line per generated chunk.
type GenLogger struct {
	worldID string
	w       *JSONLZstdWriter
}

func NewGenLogger(worldDir, worldID string) *GenLogger {
	return &GenLogger{
		worldID: worldID,
		w:       NewJSONLZstdWriter(filepath.Join(worldDir, "genlog"), "gen"),
	}
}

func (l *GenLogger) WriteChunk(e ChunkEntry) error {
	if e.At == "" {
		e.At = Now()
	}
	if e.WorldID == "" {
		e.WorldID = l.worldID
	}
	return l.w.Write(e)
}

func (l *GenLogger) Close() error { return l.w.Close() }

// SettlementLogger writes one line per settlement registration.
type SettlementLogger struct {
	worldID string
	w       *JSONLZstdWriter
}

func NewSettlementLogger(worldDir, worldID string) *SettlementLogger {
	return &SettlementLogger{
		worldID: worldID,
		w:       NewJSONLZstdWriter(filepath.Join(worldDir, "settlements"), "settlements"),
	}
}

func (l *SettlementLogger) WriteSettlement(e SettlementEntry) error {
	if e.At == "" {
		e.At = Now()
	}
	if e.WorldID == "" {
		e.WorldID = l.worldID
	}
	return l.w.Write(e)
}

func (l *SettlementLogger) Close() error { return l.w.Close() }

// SpawnLogger writes one line per spawn request. It doubles as a
// spawn.Sink so it can sit directly behind the generator, optionally
// forwarding to a real entity layer.
type SpawnLogger struct {
	worldID string
	w       *JSONLZstdWriter
	next    spawn.Sink
}

func NewSpawnLogger(worldDir, worldID string, next spawn.Sink) *SpawnLogger {
	return &SpawnLogger{
		worldID: worldID,
		w:       NewJSONLZstdWriter(filepath.Join(worldDir, "spawns"), "spawns"),
		next:    next,
	}
}

func (l *SpawnLogger) Spawn(req spawn.Request) {
	_ = l.w.Write(SpawnEntry{
		At:           Now(),
		WorldID:      l.worldID,
		Kind:         string(req.Kind),
		TypeID:       req.TypeID,
		X:            req.X,
		Y:            req.Y,
		SettlementID: req.SettlementID,
	})
	if l.next != nil {
		l.next.Spawn(req)
	}
}

func (l *SpawnLogger) Close() error { return l.w.Close() }
