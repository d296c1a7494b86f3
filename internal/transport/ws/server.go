// Package ws exposes the chunk service over a websocket. One
// connection is one session: a HELLO/WELCOME handshake, then
// request/response frames routed to the engine.
package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"thornvale.world/internal/protocol"
	"thornvale.world/internal/service"
)

type Server struct {
	engine *service.Engine
	log    *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(e *service.Engine, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		engine: e,
		log:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sessionID, ok := s.handshake(conn)
		if !ok {
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		out := make(chan []byte, 32)

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				send(ctx, out, errorMsg("", protocol.ErrProtoBadRequest, "unparseable frame"))
				continue
			}
			if base.ProtocolVersion != "" && base.ProtocolVersion != protocol.Version {
				send(ctx, out, errorMsg(base.ReqID, protocol.ErrProtoVersion, "server speaks "+protocol.Version))
				continue
			}

			switch base.Type {
			case protocol.TypeChunkReq:
				var req protocol.ChunkReqMsg
				if err := json.Unmarshal(msg, &req); err != nil {
					send(ctx, out, errorMsg(base.ReqID, protocol.ErrProtoBadRequest, "bad CHUNK_REQ"))
					continue
				}
				data, code := s.engine.Chunk(ctx, req.CX, req.CY)
				if code != "" {
					send(ctx, out, errorMsg(req.ReqID, code, ""))
					continue
				}
				data.ReqID = req.ReqID
				send(ctx, out, data)

			case protocol.TypeEvictReq:
				var req protocol.EvictReqMsg
				if err := json.Unmarshal(msg, &req); err != nil {
					send(ctx, out, errorMsg(base.ReqID, protocol.ErrProtoBadRequest, "bad EVICT_REQ"))
					continue
				}
				evicted, code := s.engine.Evict(ctx, req.CX, req.CY)
				if code != "" {
					send(ctx, out, errorMsg(req.ReqID, code, ""))
					continue
				}
				send(ctx, out, protocol.EvictOKMsg{
					Type:            protocol.TypeEvictOK,
					ProtocolVersion: protocol.Version,
					ReqID:           req.ReqID,
					CX:              req.CX,
					CY:              req.CY,
					Evicted:         evicted,
				})

			case protocol.TypeSaveReq:
				var req protocol.SaveReqMsg
				if err := json.Unmarshal(msg, &req); err != nil {
					send(ctx, out, errorMsg(base.ReqID, protocol.ErrProtoBadRequest, "bad SAVE_REQ"))
					continue
				}
				okMsg, code := s.engine.Save(ctx)
				if code != "" {
					send(ctx, out, errorMsg(req.ReqID, code, ""))
					continue
				}
				okMsg.ReqID = req.ReqID
				send(ctx, out, okMsg)

			default:
				send(ctx, out, errorMsg(base.ReqID, protocol.ErrProtoBadRequest, "unexpected type "+base.Type))
			}
		}

		s.log.Printf("[ws] session %s closed", sessionID)
	}
}

// handshake reads the HELLO frame and answers with WELCOME. A false
// return means the connection is unusable and already notified.
func (s *Server) handshake(conn *websocket.Conn) (sessionID string, ok bool) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return "", false
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", false
	}
	accepted := hello.ProtocolVersion == protocol.Version
	for _, v := range hello.SupportedVersions {
		if v == protocol.Version {
			accepted = true
		}
	}
	if !accepted {
		_ = writeJSON(conn, errorMsg("", protocol.ErrProtoVersion, "server speaks "+protocol.Version))
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return "", false
	}

	sessionID = uuid.NewString()
	if err := writeJSON(conn, s.engine.Welcome(sessionID)); err != nil {
		return "", false
	}
	s.log.Printf("[ws] session %s client=%q", sessionID, hello.ClientName)
	return sessionID, true
}

func errorMsg(reqID, code, message string) protocol.ErrorMsg {
	if !protocol.IsKnownCode(code) {
		code = protocol.ErrInternal
		if message == "" {
			message = "unknown error code"
		}
	}
	return protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		ReqID:           reqID,
		Code:            code,
		Message:         message,
	}
}

// send queues a frame for the writer, giving up when the connection is
// already gone.
func send(ctx context.Context, out chan []byte, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case out <- b:
	case <-ctx.Done():
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
