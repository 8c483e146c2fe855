package dedup

import (
	"crypto/md5"
	"errors"
)

// TextRecord is the unit of input: a cleaned, language-filtered text plus its
// provenance. Records are immutable once emitted by upstream stages; the
// engine never mutates text, only classifies it.
type TextRecord struct {
	Text     string            `json:"text"`
	SourceID string            `json:"source_id,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ErrMalformedRecord marks a record with a missing text field. Malformed
// records are rejected immediately, never enter corpus state, and do not stop
// the pipeline.
var ErrMalformedRecord = errors.New("malformed record: missing text")

// Digest is a 128-bit content hash of the record text, used for
// byte-identical duplicate detection independent of any fuzzy logic.
type Digest [md5.Size]byte

// digestOf hashes the record text for the exact-match table.
func digestOf(text string) Digest {
	return md5.Sum([]byte(text))
}
