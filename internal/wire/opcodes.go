package wire

// MessageOp tags a framed message as a call, a successful return, or an
// error, per spec §4.1/§6.
type MessageOp uint8

const (
	OpCall   MessageOp = 1
	OpReturn MessageOp = 2
	OpError  MessageOp = 3
)

// FunCode is the small-integer opcode identifying a remotely-callable
// local-node method, per spec §4.5/§6.
type FunCode uint32

const (
	FunGetResultsForSync FunCode = 101
	FunGetPeersForSync   FunCode = 102
	FunHandshake         FunCode = 103
)

// extension tags for the self-describing body encoding, per spec §4.1/§6.
const (
	extTagSearchResult int8 = 1
	extTagPeerInfo     int8 = 2
)
