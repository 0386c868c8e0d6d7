package wire

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/flate"
)

// compress deflates data, the transit compression spec §4.1 requires.
func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decompress inflates data previously produced by compress. The codec
// does not rely on a transport length prefix (spec §4.1): it reads until
// flate reports end-of-stream.
func decompress(data []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	return io.ReadAll(r)
}
