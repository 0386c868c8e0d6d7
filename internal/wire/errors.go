package wire

import "fmt"

// ProtocolError covers framing, decompression, tag-mismatch, unknown
// opcode, and argument-arity failures (spec §7). It is recoverable: the
// server returns it as an ERROR response, and the sync worker treats it
// as a +100 rank penalty.
type ProtocolError struct {
	FunCode FunCode
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("Function %d: %s", e.FunCode, e.Message)
}

// UnknownOpcodeError is returned by the server dispatch table when no
// handler is registered for a FunCode.
func UnknownOpcodeError(code FunCode) *ProtocolError {
	return &ProtocolError{FunCode: code, Message: fmt.Sprintf("Function %d not exists", code)}
}
