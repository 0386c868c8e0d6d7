// Package searchresult defines the content-addressed search-result record
// shared by the local cache, the wire codec, and the search federator.
package searchresult

import (
	"crypto/sha256"
	"errors"

	"github.com/vmihailenco/msgpack/v5"
)

// HashSize is the length in bytes of a SearchResult fingerprint.
const HashSize = 32

var errShortHash = errors.New("searchresult: hash must be 32 bytes")

// Hash is a 32-byte Merkle-style fingerprint identifying a SearchResult.
type Hash [HashSize]byte

// DefaultContentType is used when a result is created without one.
const DefaultContentType = "text/html"

// Result is one cached search hit. Hash is the fingerprint computed over
// the other fields (see Fingerprint); it is never recomputed implicitly —
// callers that mutate Title/URL/Description/ContentType must call
// Fingerprint again and assign the result themselves.
type Result struct {
	Hash        Hash
	Title       string
	URL         string
	Description string
	ContentType string
	Score       int64
}

// New builds a Result with its fingerprint already computed. ContentType
// defaults to "text/html" when empty, matching the original's
// SearchResult.__init__ default.
func New(title, url, description, contentType string) Result {
	if contentType == "" {
		contentType = DefaultContentType
	}
	r := Result{Title: title, URL: url, Description: description, ContentType: contentType}
	r.Hash = Fingerprint(r.URL, r.Title, r.Description, r.ContentType)
	return r
}

// Fingerprint computes the Merkle-style digest: sha256 of each field in
// fixed order (url, title, description, content_type), concatenated, then
// sha256 of that concatenation.
func Fingerprint(url, title, description, contentType string) Hash {
	urlSum := sha256.Sum256([]byte(url))
	titleSum := sha256.Sum256([]byte(title))
	descSum := sha256.Sum256([]byte(description))
	ctSum := sha256.Sum256([]byte(contentType))

	buf := make([]byte, 0, 4*sha256.Size)
	buf = append(buf, urlSum[:]...)
	buf = append(buf, titleSum[:]...)
	buf = append(buf, descSum[:]...)
	buf = append(buf, ctSum[:]...)

	return sha256.Sum256(buf)
}

// IsConsistent reports whether r.Hash matches the recomputed fingerprint.
func (r Result) IsConsistent() bool {
	return r.Hash == Fingerprint(r.URL, r.Title, r.Description, r.ContentType)
}

// Equal reports whether two results share the same fingerprint.
func (r Result) Equal(other Result) bool {
	return r.Hash == other.Hash
}

// UpdateScore sets the score to candidate if candidate is higher than
// the current one, mirroring the original's SearchResult.update_score
// (never lowers a score on a duplicate observation).
func (r *Result) UpdateScore(candidate int64) {
	if candidate > r.Score {
		r.Score = candidate
	}
}

// EncodeMsgpack serializes the result as the 6-tuple
// (hash, title, url, description, content_type, score), matching the
// wire format's tag-1 extension body.
func (r Result) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.EncodeMulti(r.Hash[:], r.Title, r.URL, r.Description, r.ContentType, r.Score)
}

// DecodeMsgpack reads the 6-tuple written by EncodeMsgpack.
func (r *Result) DecodeMsgpack(dec *msgpack.Decoder) error {
	var hashBytes []byte
	if err := dec.DecodeMulti(&hashBytes, &r.Title, &r.URL, &r.Description, &r.ContentType, &r.Score); err != nil {
		return err
	}
	if len(hashBytes) != HashSize {
		return errShortHash
	}
	copy(r.Hash[:], hashBytes)
	return nil
}
