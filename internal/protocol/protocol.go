// Package protocol defines the JSON wire format of the chunk service.
// Messages are routed by their type field; payload structs live in
// messages.go and error codes in errors.go.
package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeHello     = "HELLO"
	TypeWelcome   = "WELCOME"
	TypeChunkReq  = "CHUNK_REQ"
	TypeChunkData = "CHUNK_DATA"
	TypeEvictReq  = "EVICT_REQ"
	TypeEvictOK   = "EVICT_OK"
	TypeSaveReq   = "SAVE_REQ"
	TypeSaveOK    = "SAVE_OK"
	TypeError     = "ERROR"
)

// BaseMessage lets us route unknown JSON messages by type. ReqID rides
// along so errors can reference the request that caused them.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
	ReqID           string `json:"req_id,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
