// Package spawn carries the side-channel records the generator emits
// for external entity systems. The generator never constructs live
// entities; it only hands these requests to a Sink.
package spawn

type Kind string

const (
	KindNPC      Kind = "NPC"
	KindCreature Kind = "CREATURE"
	KindCrop     Kind = "CROP"
)

type Request struct {
	Kind   Kind
	TypeID string
	X, Y   int

	// SettlementID is set for NPC/crop requests emitted by a
	// settlement's primary chunk.
	SettlementID string
}

// Sink receives spawn requests. Implementations must tolerate bursts
// (a primary chunk emits a whole settlement's NPCs at once).
type Sink interface {
	Spawn(req Request)
}

// Discard drops every request. Useful for tools that only want tiles.
type Discard struct{}

func (Discard) Spawn(Request) {}
