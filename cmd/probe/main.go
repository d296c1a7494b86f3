// Command probe is a reference client for the chunk service. It dials
// the websocket endpoint, walks a square of chunks around a center, and
// prints one line per chunk, so wire behavior can be checked end to end
// against a live server.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"thornvale.world/internal/encoding"
	"thornvale.world/internal/protocol"
)

func main() {
	var (
		url    = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name   = flag.String("name", "probe", "client name")
		cx     = flag.Int("cx", 0, "center chunk x")
		cy     = flag.Int("cy", 0, "center chunk y")
		radius = flag.Int("radius", 2, "extra chunk rings around the center")
		evict  = flag.Bool("evict", false, "evict each chunk after fetching it")
		save   = flag.Bool("save", false, "request a save after the walk")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[probe] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      *name,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	base, raw, err := readFrame(conn)
	if err != nil {
		logger.Fatalf("read WELCOME: %v", err)
	}
	if base.Type != protocol.TypeWelcome {
		logger.Fatalf("expected WELCOME, got %s", base.Type)
	}
	var w protocol.WelcomeMsg
	if err := json.Unmarshal(raw, &w); err != nil {
		logger.Fatalf("decode WELCOME: %v", err)
	}
	logger.Printf("WELCOME session=%s world=%s seed=%d chunk_size=%d tiles=%s",
		w.SessionID, w.WorldParams.WorldID, w.WorldParams.Seed,
		w.WorldParams.ChunkSize, w.Catalogs.Tiles.Digest[:12])

	for gy := *cy - *radius; gy <= *cy+*radius; gy++ {
		for gx := *cx - *radius; gx <= *cx+*radius; gx++ {
			fetchChunk(conn, logger, gx, gy)
			if *evict {
				evictChunk(conn, logger, gx, gy)
			}
		}
	}

	if *save {
		requestSave(conn, logger)
	}
}

func fetchChunk(conn *websocket.Conn, logger *log.Logger, cx, cy int) {
	req := protocol.ChunkReqMsg{
		Type:            protocol.TypeChunkReq,
		ProtocolVersion: protocol.Version,
		ReqID:           fmt.Sprintf("c%d_%d", cx, cy),
		CX:              cx,
		CY:              cy,
	}
	start := time.Now()
	if err := conn.WriteJSON(req); err != nil {
		logger.Fatalf("send CHUNK_REQ: %v", err)
	}
	base, raw, err := readFrame(conn)
	if err != nil {
		logger.Fatalf("read reply: %v", err)
	}
	switch base.Type {
	case protocol.TypeChunkData:
		var data protocol.ChunkDataMsg
		if err := json.Unmarshal(raw, &data); err != nil {
			logger.Fatalf("decode CHUNK_DATA: %v", err)
		}
		kinds, err := encoding.DecodeRLE(data.Kinds)
		if err != nil {
			logger.Fatalf("chunk %d,%d: bad kinds payload: %v", cx, cy, err)
		}
		logger.Printf("chunk %d,%d digest=%s tiles=%d overrides=%d resources=%d rtt=%s",
			cx, cy, data.Digest[:12], len(kinds), len(data.Overrides), len(data.Resources),
			time.Since(start).Round(time.Microsecond))
	case protocol.TypeError:
		var e protocol.ErrorMsg
		_ = json.Unmarshal(raw, &e)
		logger.Printf("chunk %d,%d error code=%s %s", cx, cy, e.Code, e.Message)
	default:
		logger.Fatalf("chunk %d,%d: unexpected reply %s", cx, cy, base.Type)
	}
}

func evictChunk(conn *websocket.Conn, logger *log.Logger, cx, cy int) {
	req := protocol.EvictReqMsg{
		Type:            protocol.TypeEvictReq,
		ProtocolVersion: protocol.Version,
		ReqID:           fmt.Sprintf("e%d_%d", cx, cy),
		CX:              cx,
		CY:              cy,
	}
	if err := conn.WriteJSON(req); err != nil {
		logger.Fatalf("send EVICT_REQ: %v", err)
	}
	base, raw, err := readFrame(conn)
	if err != nil {
		logger.Fatalf("read reply: %v", err)
	}
	if base.Type != protocol.TypeEvictOK {
		logger.Printf("evict %d,%d: unexpected reply %s", cx, cy, base.Type)
		return
	}
	var ok protocol.EvictOKMsg
	_ = json.Unmarshal(raw, &ok)
	logger.Printf("evict %d,%d evicted=%v", cx, cy, ok.Evicted)
}

func requestSave(conn *websocket.Conn, logger *log.Logger) {
	req := protocol.SaveReqMsg{
		Type:            protocol.TypeSaveReq,
		ProtocolVersion: protocol.Version,
		ReqID:           "save",
	}
	if err := conn.WriteJSON(req); err != nil {
		logger.Fatalf("send SAVE_REQ: %v", err)
	}
	base, raw, err := readFrame(conn)
	if err != nil {
		logger.Fatalf("read reply: %v", err)
	}
	if base.Type != protocol.TypeSaveOK {
		logger.Fatalf("save: unexpected reply %s", base.Type)
	}
	var ok protocol.SaveOKMsg
	_ = json.Unmarshal(raw, &ok)
	logger.Printf("save seq=%d chunks=%d path=%s", ok.Seq, ok.Chunks, ok.Path)
}

func readFrame(conn *websocket.Conn) (protocol.BaseMessage, []byte, error) {
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		return protocol.BaseMessage{}, nil, err
	}
	base, err := protocol.DecodeBase(raw)
	return base, raw, err
}
