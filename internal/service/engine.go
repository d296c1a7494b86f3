// Package service runs a world behind a single goroutine. Every store
// access happens on the Run loop; transports and tools call the
// channel-backed methods and never touch the world directly.
package service

import (
	"context"
	"encoding/hex"
	"log"

	"github.com/google/uuid"

	"thornvale.world/internal/encoding"
	"thornvale.world/internal/persistence/genlog"
	"thornvale.world/internal/persistence/indexdb"
	"thornvale.world/internal/persistence/snapshot"
	"thornvale.world/internal/protocol"
	"thornvale.world/internal/world"
)

type Engine struct {
	w       *world.World
	dataDir string
	log     *log.Logger

	idx    *indexdb.SQLiteIndex
	genLog *genlog.GenLogger
	setLog *genlog.SettlementLogger

	instanceID string
	saveSeq    uint64
	saveMark   int
	indexed    map[string]bool

	reqs chan request
	stop chan struct{}
}

// Options carries the optional persistence wiring. Nil members disable
// their concern.
type Options struct {
	DataDir       string
	Index         *indexdb.SQLiteIndex
	GenLog        *genlog.GenLogger
	SettlementLog *genlog.SettlementLogger

	// LastSaveSeq seeds the save sequence after a resume.
	LastSaveSeq uint64

	Logger *log.Logger
}

func NewEngine(w *world.World, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	e := &Engine{
		w:          w,
		dataDir:    opts.DataDir,
		log:        logger,
		idx:        opts.Index,
		genLog:     opts.GenLog,
		setLog:     opts.SettlementLog,
		instanceID: uuid.NewString(),
		saveSeq:    opts.LastSaveSeq,
		indexed:    map[string]bool{},
		reqs:       make(chan request, 64),
		stop:       make(chan struct{}),
	}
	// Settlements restored from a save were indexed by the run that
	// registered them.
	for _, id := range w.Registry().Registered() {
		e.indexed[id] = true
	}
	return e
}

func (e *Engine) InstanceID() string { return e.instanceID }

// Welcome builds the handshake reply. It reads only immutable config
// and catalog digests, so it is safe off the Run goroutine.
func (e *Engine) Welcome(sessionID string) protocol.WelcomeMsg {
	cfg := e.w.Cfg
	d := e.w.Defs
	return protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sessionID,
		InstanceID:      e.instanceID,
		WorldParams: protocol.WorldParams{
			WorldID:            cfg.ID,
			Seed:               cfg.Seed,
			ChunkSize:          world.ChunkSize,
			BoundaryR:          cfg.BoundaryR,
			SettlementCellSize: cfg.SettlementCellSize,
			SettlementPermille: cfg.SettlementPermille,
		},
		Catalogs: protocol.CatalogDigests{
			Tiles:     protocol.DigestRef{Digest: d.Tiles.Digest, Count: len(d.Tiles.Palette)},
			Biomes:    protocol.DigestRef{Digest: d.Biomes.Digest, Count: len(d.Biomes.Order)},
			Buildings: protocol.DigestRef{Digest: d.Buildings.Digest, Count: len(d.Buildings.Order)},
			Creatures: protocol.DigestRef{Digest: d.Creatures.Digest, Count: len(d.Creatures.Order)},
		},
	}
}

type opKind int

const (
	opChunk opKind = iota + 1
	opEvict
	opSave
)

type request struct {
	kind   opKind
	cx, cy int
	resp   chan result
}

type result struct {
	chunk   protocol.ChunkDataMsg
	evicted bool
	save    protocol.SaveOKMsg
	code    string
}

// Run services requests until the context ends or Stop is called.
func (e *Engine) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.stop:
			return nil
		case req := <-e.reqs:
			req.resp <- e.handle(req)
		}
	}
}

func (e *Engine) Stop() { close(e.stop) }

// Chunk loads (or synthesizes) a chunk and returns its wire form. The
// second return is an error code, empty on success.
func (e *Engine) Chunk(ctx context.Context, cx, cy int) (protocol.ChunkDataMsg, string) {
	r := e.do(ctx, request{kind: opChunk, cx: cx, cy: cy})
	return r.chunk, r.code
}

// Evict drops a chunk from residency, retaining its diff.
func (e *Engine) Evict(ctx context.Context, cx, cy int) (bool, string) {
	r := e.do(ctx, request{kind: opEvict, cx: cx, cy: cy})
	return r.evicted, r.code
}

// Save writes a snapshot and reports where it went.
func (e *Engine) Save(ctx context.Context) (protocol.SaveOKMsg, string) {
	r := e.do(ctx, request{kind: opSave})
	return r.save, r.code
}

func (e *Engine) do(ctx context.Context, req request) result {
	req.resp = make(chan result, 1)
	select {
	case e.reqs <- req:
	case <-ctx.Done():
		return result{code: protocol.ErrInternal}
	case <-e.stop:
		return result{code: protocol.ErrInternal}
	}
	select {
	case r := <-req.resp:
		return r
	case <-ctx.Done():
		return result{code: protocol.ErrInternal}
	case <-e.stop:
		return result{code: protocol.ErrInternal}
	}
}

func (e *Engine) handle(req request) result {
	switch req.kind {
	case opChunk:
		return e.handleChunk(req.cx, req.cy)
	case opEvict:
		evicted := e.w.Evict(req.cx, req.cy)
		e.autosave()
		return result{evicted: evicted}
	case opSave:
		return e.doSave()
	default:
		return result{code: protocol.ErrBadRequest}
	}
}

func (e *Engine) handleChunk(cx, cy int) result {
	x0, y0 := world.ChunkToWorld(cx, cy)
	x1, y1 := x0+world.ChunkSize-1, y0+world.ChunkSize-1
	b := e.w.Cfg.BoundaryR
	if x0 > b || y0 > b || x1 < -b || y1 < -b {
		return result{code: protocol.ErrOutOfBounds}
	}

	wasResident := e.w.Store.Loaded(cx, cy)
	restored := !wasResident && e.w.Store.HasStashedDiff(cx, cy)
	ch := e.w.GetOrGenerate(cx, cy)
	digest := ch.Digest()

	if !wasResident {
		if e.genLog != nil {
			_ = e.genLog.WriteChunk(genlog.ChunkEntry{
				CX:        cx,
				CY:        cy,
				Seed:      uint64(ch.Seed),
				Digest:    hex.EncodeToString(digest[:]),
				Resources: len(ch.Resources),
				Restored:  restored,
			})
		}
		if e.idx != nil {
			e.idx.RecordChunk(indexdb.ChunkRow{
				CX:        cx,
				CY:        cy,
				Seed:      ch.Seed,
				Digest:    hex.EncodeToString(digest[:]),
				Resources: len(ch.Resources),
				Restored:  restored,
			})
		}
		e.recordNewSettlements(x0, y0, x1, y1)
	}

	msg := chunkDataMsg(ch)
	e.autosave()
	return result{chunk: msg}
}

// chunkDataMsg flattens a chunk into its wire form: full kind grid as
// RLE, semantic tile state as overrides.
func chunkDataMsg(ch *world.Chunk) protocol.ChunkDataMsg {
	kinds := make([]uint16, len(ch.Tiles))
	var overrides []protocol.TileState
	for i, t := range ch.Tiles {
		kinds[i] = uint16(t.Kind)
		if t.Open || t.Locked || t.Interior || t.ResourceID != "" || t.LockID != "" || t.LockLevel != 0 {
			overrides = append(overrides, protocol.TileState{
				X:          i % world.ChunkSize,
				Y:          i / world.ChunkSize,
				Open:       t.Open,
				Locked:     t.Locked,
				LockID:     t.LockID,
				LockLevel:  t.LockLevel,
				Interior:   t.Interior,
				ResourceID: t.ResourceID,
			})
		}
	}
	resources := make([]protocol.ResourceRef, 0, len(ch.Resources))
	for _, r := range ch.Resources {
		resources = append(resources, protocol.ResourceRef{ID: r.ID, Type: r.Type, X: r.X, Y: r.Y})
	}
	digest := ch.Digest()
	return protocol.ChunkDataMsg{
		Type:            protocol.TypeChunkData,
		ProtocolVersion: protocol.Version,
		CX:              ch.CX,
		CY:              ch.CY,
		Seed:            ch.Seed,
		Kinds:           encoding.EncodeRLE(kinds),
		Overrides:       overrides,
		Resources:       resources,
		Digest:          hex.EncodeToString(digest[:]),
	}
}

func (e *Engine) recordNewSettlements(x0, y0, x1, y1 int) {
	reg := e.w.Registry()
	ids := reg.Registered()
	if len(ids) == len(e.indexed) {
		return
	}
	fresh := map[string]bool{}
	for _, id := range ids {
		if !e.indexed[id] {
			fresh[id] = true
		}
	}
	if len(fresh) == 0 {
		return
	}
	// A registration can only have happened while stamping this chunk,
	// so the settlement intersects it.
	for _, s := range reg.SettlementsIntersecting(x0, y0, x1, y1) {
		if !fresh[s.ID] {
			continue
		}
		e.indexed[s.ID] = true
		if e.idx != nil {
			e.idx.RecordSettlement(indexdb.SettlementRow{
				ID:           s.ID,
				Name:         s.Name,
				Tier:         s.Tier.String(),
				X:            s.CenterX,
				Y:            s.CenterY,
				Footprint:    s.FootprintSize,
				RoadEligible: s.RoadEligible,
			})
		}
		if e.setLog != nil {
			_ = e.setLog.WriteSettlement(genlog.SettlementEntry{
				ID:   s.ID,
				Name: s.Name,
				Tier: s.Tier.String(),
				X:    s.CenterX,
				Y:    s.CenterY,
			})
		}
	}
}

func (e *Engine) doSave() result {
	seq := e.saveSeq + 1
	s := snapshot.Capture(e.w, seq)
	path := snapshot.SavePath(e.dataDir, e.w.Cfg.ID, seq)
	if err := snapshot.WriteSave(path, s); err != nil {
		e.log.Printf("[engine] save seq=%d failed: %v", seq, err)
		return result{code: protocol.ErrSaveFailed}
	}
	e.saveSeq = seq
	e.saveMark = e.w.Store.Evictions()
	if e.idx != nil {
		e.idx.RecordSave(path, s)
	}
	e.log.Printf("[engine] save seq=%d chunks=%d registered=%d", seq, len(s.Chunks), len(s.Registered))
	return result{save: protocol.SaveOKMsg{
		Type:            protocol.TypeSaveOK,
		ProtocolVersion: protocol.Version,
		Seq:             seq,
		Path:            path,
		Chunks:          len(s.Chunks),
	}}
}

// autosave writes a snapshot once enough evictions have happened since
// the last save.
func (e *Engine) autosave() {
	every := e.w.Cfg.SaveEveryEvictions
	if every <= 0 {
		return
	}
	if e.w.Store.Evictions()-e.saveMark < every {
		return
	}
	if r := e.doSave(); r.code != "" {
		// Already logged; try again after the next eviction batch.
		e.saveMark = e.w.Store.Evictions()
	}
}
