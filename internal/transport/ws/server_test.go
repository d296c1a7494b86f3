package ws

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"thornvale.world/internal/defs"
	"thornvale.world/internal/encoding"
	"thornvale.world/internal/protocol"
	"thornvale.world/internal/service"
	"thornvale.world/internal/world"
)

func startServer(t *testing.T, cfg world.WorldConfig) *httptest.Server {
	t.Helper()
	d, err := defs.Load("../../../configs", nil)
	if err != nil {
		t.Fatalf("load defs: %v", err)
	}
	quiet := log.New(io.Discard, "", 0)
	w := world.NewWorld(cfg, d, nil, nil, nil)
	e := service.NewEngine(w, service.Options{DataDir: t.TempDir(), Logger: quiet})

	ctx, cancel := context.WithCancel(context.Background())
	go e.Run(ctx)

	srv := httptest.NewServer(NewServer(e, quiet).Handler())
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, b, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return b
}

func decodeInto(t *testing.T, b []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(b, v); err != nil {
		t.Fatalf("unmarshal %s: %v", b, err)
	}
}

func handshake(t *testing.T, conn *websocket.Conn) protocol.WelcomeMsg {
	t.Helper()
	sendJSON(t, conn, protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      "test",
	})
	var w protocol.WelcomeMsg
	decodeInto(t, readFrame(t, conn), &w)
	if w.Type != protocol.TypeWelcome {
		t.Fatalf("expected WELCOME, got %+v", w)
	}
	return w
}

func TestServer_HandshakeAndChunkFlow(t *testing.T) {
	srv := startServer(t, world.WorldConfig{ID: "overworld", Seed: 42})
	conn := dial(t, srv)

	w := handshake(t, conn)
	if w.SessionID == "" || w.InstanceID == "" {
		t.Fatalf("welcome missing ids: %+v", w)
	}
	if w.WorldParams.WorldID != "overworld" || w.WorldParams.Seed != 42 || w.WorldParams.ChunkSize != world.ChunkSize {
		t.Fatalf("bad world params: %+v", w.WorldParams)
	}
	if w.Catalogs.Tiles.Digest == "" {
		t.Fatalf("welcome missing catalog digests")
	}

	sendJSON(t, conn, protocol.ChunkReqMsg{
		Type:            protocol.TypeChunkReq,
		ProtocolVersion: protocol.Version,
		ReqID:           "r1",
		CX:              0,
		CY:              0,
	})
	var data protocol.ChunkDataMsg
	decodeInto(t, readFrame(t, conn), &data)
	if data.Type != protocol.TypeChunkData || data.ReqID != "r1" || data.CX != 0 || data.CY != 0 {
		t.Fatalf("bad chunk data envelope: type=%s req_id=%s", data.Type, data.ReqID)
	}
	kinds, err := encoding.DecodeRLE(data.Kinds)
	if err != nil {
		t.Fatalf("decode kinds: %v", err)
	}
	if len(kinds) != world.ChunkSize*world.ChunkSize {
		t.Fatalf("decoded %d kinds", len(kinds))
	}
	if len(data.Digest) != 64 {
		t.Fatalf("digest %q not a sha256 hex", data.Digest)
	}

	sendJSON(t, conn, protocol.EvictReqMsg{
		Type:            protocol.TypeEvictReq,
		ProtocolVersion: protocol.Version,
		ReqID:           "r2",
		CX:              0,
		CY:              0,
	})
	var ev protocol.EvictOKMsg
	decodeInto(t, readFrame(t, conn), &ev)
	if ev.Type != protocol.TypeEvictOK || ev.ReqID != "r2" || !ev.Evicted {
		t.Fatalf("bad evict reply: %+v", ev)
	}

	sendJSON(t, conn, protocol.EvictReqMsg{
		Type:            protocol.TypeEvictReq,
		ProtocolVersion: protocol.Version,
		ReqID:           "r3",
		CX:              0,
		CY:              0,
	})
	decodeInto(t, readFrame(t, conn), &ev)
	if ev.ReqID != "r3" || ev.Evicted {
		t.Fatalf("second evict should report false: %+v", ev)
	}

	sendJSON(t, conn, protocol.SaveReqMsg{
		Type:            protocol.TypeSaveReq,
		ProtocolVersion: protocol.Version,
		ReqID:           "r4",
	})
	var saved protocol.SaveOKMsg
	decodeInto(t, readFrame(t, conn), &saved)
	if saved.Type != protocol.TypeSaveOK || saved.ReqID != "r4" || saved.Seq != 1 {
		t.Fatalf("bad save reply: %+v", saved)
	}
	if _, err := os.Stat(saved.Path); err != nil {
		t.Fatalf("save file missing: %v", err)
	}
}

func TestServer_RejectsUnsupportedVersion(t *testing.T) {
	srv := startServer(t, world.WorldConfig{ID: "test", Seed: 1})
	conn := dial(t, srv)

	sendJSON(t, conn, protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: "0.9",
		ClientName:      "old",
	})
	var e protocol.ErrorMsg
	decodeInto(t, readFrame(t, conn), &e)
	if e.Type != protocol.TypeError || e.Code != protocol.ErrProtoVersion {
		t.Fatalf("expected %s, got %+v", protocol.ErrProtoVersion, e)
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("expected policy violation close, got %v", err)
	}
}

func TestServer_NegotiatesViaSupportedVersions(t *testing.T) {
	srv := startServer(t, world.WorldConfig{ID: "test", Seed: 1})
	conn := dial(t, srv)

	sendJSON(t, conn, protocol.HelloMsg{
		Type:              protocol.TypeHello,
		ProtocolVersion:   "0.9",
		ClientName:        "multi",
		SupportedVersions: []string{"0.9", protocol.Version},
	})
	var w protocol.WelcomeMsg
	decodeInto(t, readFrame(t, conn), &w)
	if w.Type != protocol.TypeWelcome || w.ProtocolVersion != protocol.Version {
		t.Fatalf("negotiation failed: %+v", w)
	}
}

func TestServer_FirstFrameMustBeHello(t *testing.T) {
	srv := startServer(t, world.WorldConfig{ID: "test", Seed: 1})
	conn := dial(t, srv)

	sendJSON(t, conn, protocol.ChunkReqMsg{
		Type:            protocol.TypeChunkReq,
		ProtocolVersion: protocol.Version,
		CX:              0,
		CY:              0,
	})
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("expected policy violation close, got %v", err)
	}
}

func TestServer_ErrorReplies(t *testing.T) {
	srv := startServer(t, world.WorldConfig{ID: "test", Seed: 1, BoundaryR: 64})
	conn := dial(t, srv)
	handshake(t, conn)

	var e protocol.ErrorMsg

	// Past the world boundary.
	sendJSON(t, conn, protocol.ChunkReqMsg{
		Type:            protocol.TypeChunkReq,
		ProtocolVersion: protocol.Version,
		ReqID:           "far",
		CX:              100,
		CY:              0,
	})
	decodeInto(t, readFrame(t, conn), &e)
	if e.Code != protocol.ErrOutOfBounds || e.ReqID != "far" {
		t.Fatalf("expected %s for req far, got %+v", protocol.ErrOutOfBounds, e)
	}

	// Unknown message type.
	sendJSON(t, conn, map[string]any{"type": "NOPE", "protocol_version": protocol.Version, "req_id": "r5"})
	decodeInto(t, readFrame(t, conn), &e)
	if e.Code != protocol.ErrProtoBadRequest || e.ReqID != "r5" {
		t.Fatalf("expected %s for unknown type, got %+v", protocol.ErrProtoBadRequest, e)
	}

	// Unparseable frame.
	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	decodeInto(t, readFrame(t, conn), &e)
	if e.Code != protocol.ErrProtoBadRequest {
		t.Fatalf("expected %s for garbage, got %+v", protocol.ErrProtoBadRequest, e)
	}

	// Malformed payload under a known type.
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CHUNK_REQ","req_id":"r9","cx":"nope"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	decodeInto(t, readFrame(t, conn), &e)
	if e.Code != protocol.ErrProtoBadRequest || e.ReqID != "r9" {
		t.Fatalf("expected %s for bad payload, got %+v", protocol.ErrProtoBadRequest, e)
	}

	// Stale per-request version.
	sendJSON(t, conn, map[string]any{"type": "SAVE_REQ", "protocol_version": "0.1", "req_id": "r6"})
	decodeInto(t, readFrame(t, conn), &e)
	if e.Code != protocol.ErrProtoVersion || e.ReqID != "r6" {
		t.Fatalf("expected %s for stale version, got %+v", protocol.ErrProtoVersion, e)
	}

	// The connection survives all of it.
	sendJSON(t, conn, protocol.ChunkReqMsg{
		Type:            protocol.TypeChunkReq,
		ProtocolVersion: protocol.Version,
		ReqID:           "ok",
		CX:              0,
		CY:              0,
	})
	var data protocol.ChunkDataMsg
	decodeInto(t, readFrame(t, conn), &data)
	if data.Type != protocol.TypeChunkData || data.ReqID != "ok" {
		t.Fatalf("connection unusable after errors: %+v", data)
	}
}
