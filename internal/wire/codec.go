// Package wire implements the compressed, tagged-object RPC envelope
// used between sniffdognode peers (spec §4.1, §6). There is no length
// prefix: one message per connection, ended by a short read or EOF.
package wire

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"

	"sniffdognode/internal/peerinfo"
	"sniffdognode/internal/searchresult"
)

func init() {
	// Tag 1: SearchResult, tag 2: PeerInfo, per spec §4.1/§6.
	msgpack.RegisterExt(extTagSearchResult, (*searchresult.Result)(nil))
	msgpack.RegisterExt(extTagPeerInfo, (*peerinfo.Info)(nil))
}

// Request is the (op_code, fun_code, args) tuple a client sends, encoded
// as a msgpack array (not a map) to match the wire tuple shape.
type Request struct {
	_msgpack struct{}      `msgpack:",as_array"`
	Op       MessageOp
	FunCode  FunCode
	Args     []interface{}
}

// Response is the (op_code, fun_code, payload) tuple a server sends back.
// Payload is either the method's return value (OpReturn) or an error
// string (OpError).
type Response struct {
	_msgpack struct{} `msgpack:",as_array"`
	Op       MessageOp
	FunCode  FunCode
	Payload  interface{}
}

// EncodeRequest serializes and deflate-compresses a request.
func EncodeRequest(req Request) ([]byte, error) {
	return encode(req)
}

// DecodeRequest decompresses and deserializes a request. Any framing,
// decompression, or tag-mismatch failure yields a *ProtocolError.
func DecodeRequest(data []byte) (Request, error) {
	var req Request
	if err := decode(data, &req); err != nil {
		return Request{}, &ProtocolError{Message: err.Error()}
	}
	return req, nil
}

// EncodeResponse serializes and deflate-compresses a response.
func EncodeResponse(resp Response) ([]byte, error) {
	return encode(resp)
}

// DecodeResponse decompresses and deserializes a response.
func DecodeResponse(data []byte) (Response, error) {
	var resp Response
	if err := decode(data, &resp); err != nil {
		return Response{}, &ProtocolError{Message: err.Error()}
	}
	return resp, nil
}

func encode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return compress(buf.Bytes())
}

func decode(data []byte, v interface{}) error {
	plain, err := decompress(data)
	if err != nil {
		return err
	}
	dec := msgpack.NewDecoder(bytes.NewReader(plain))
	return dec.Decode(v)
}
