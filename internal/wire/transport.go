package wire

import (
	"errors"
	"io"
)

// ChunkSize is the fixed read size used by ReadMessage, matching the
// original's 2KiB socket.recv chunking (sdsrpc/server.py, sdsrpc/client.py).
const ChunkSize = 2 * 1024

// ReadMessage reads from r in fixed-size chunks until either a short read
// (fewer than ChunkSize bytes) or EOF, per spec §4.1. The codec does not
// assume a transport length prefix; the peer closing its half of the
// connection (spec §6) is what terminates the stream on EOF.
func ReadMessage(r io.Reader) ([]byte, error) {
	var buf []byte
	chunk := make([]byte, ChunkSize)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return buf, nil
			}
			return buf, err
		}
		if n < ChunkSize {
			return buf, nil
		}
	}
}
