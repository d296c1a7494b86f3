package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type              string   `json:"type"`
	ProtocolVersion   string   `json:"protocol_version"`
	ClientName        string   `json:"client_name"`
	SupportedVersions []string `json:"supported_versions,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	SessionID       string         `json:"session_id"`
	InstanceID      string         `json:"instance_id"`
	WorldParams     WorldParams    `json:"world_params"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

type WorldParams struct {
	WorldID            string `json:"world_id"`
	Seed               int64  `json:"seed"`
	ChunkSize          int    `json:"chunk_size"`
	BoundaryR          int    `json:"boundary_r"`
	SettlementCellSize int    `json:"settlement_cell_size"`
	SettlementPermille int    `json:"settlement_permille"`
}

type CatalogDigests struct {
	Tiles     DigestRef `json:"tiles"`
	Biomes    DigestRef `json:"biomes"`
	Buildings DigestRef `json:"buildings"`
	Creatures DigestRef `json:"creatures"`
}

type DigestRef struct {
	Digest string `json:"digest"`
	Count  int    `json:"count"`
}

// CHUNK_REQ (client -> server)
type ChunkReqMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id"`
	CX              int    `json:"cx"`
	CY              int    `json:"cy"`
}

// CHUNK_DATA (server -> client). Kinds is the full row-major tile kind
// grid, RLE base64. Overrides lists only tiles carrying semantic state
// beyond their kind defaults (open doors, locks, interiors, resource
// bindings); cosmetic glyph/color variation stays server-side.
type ChunkDataMsg struct {
	Type            string        `json:"type"`
	ProtocolVersion string        `json:"protocol_version"`
	ReqID           string        `json:"req_id"`
	CX              int           `json:"cx"`
	CY              int           `json:"cy"`
	Seed            int64         `json:"seed"`
	Kinds           string        `json:"kinds"`
	Overrides       []TileState   `json:"overrides,omitempty"`
	Resources       []ResourceRef `json:"resources,omitempty"`
	Digest          string        `json:"digest"`
}

type TileState struct {
	X          int    `json:"x"`
	Y          int    `json:"y"`
	Open       bool   `json:"open,omitempty"`
	Locked     bool   `json:"locked,omitempty"`
	LockID     string `json:"lock_id,omitempty"`
	LockLevel  int    `json:"lock_level,omitempty"`
	Interior   bool   `json:"interior,omitempty"`
	ResourceID string `json:"resource_id,omitempty"`
}

type ResourceRef struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

// EVICT_REQ (client -> server)
type EvictReqMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id"`
	CX              int    `json:"cx"`
	CY              int    `json:"cy"`
}

// EVICT_OK (server -> client). Evicted is false when the chunk was not
// resident; the diff, if any, is retained either way.
type EvictOKMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id"`
	CX              int    `json:"cx"`
	CY              int    `json:"cy"`
	Evicted         bool   `json:"evicted"`
}

// SAVE_REQ (client -> server)
type SaveReqMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id"`
}

// SAVE_OK (server -> client)
type SaveOKMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id"`
	Seq             uint64 `json:"seq"`
	Path            string `json:"path"`
	Chunks          int    `json:"chunks"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id,omitempty"`
	Code            string `json:"code"`
	Message         string `json:"message,omitempty"`
}
