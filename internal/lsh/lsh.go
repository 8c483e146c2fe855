// Package lsh provides a locality-sensitive hashing index over MinHash
// signatures for sublinear near-duplicate candidate retrieval.
//
// A signature of length k is partitioned into b bands of r contiguous
// positions (b*r = k). Each band is hashed into a bucket; two documents that
// share at least one bucket are candidates for comparison. The probability
// that two documents with Jaccard similarity s collide in at least one band
// is 1-(1-s^r)^b, an S-curve whose 50% crossover sits near (1/b)^(1/r).
//
// Sharing a bucket makes two documents candidates, not confirmed duplicates:
// confirmation always requires a full signature comparison by the caller.
// False negatives are a tunable recall tradeoff; false positives are filtered
// by the confirmation step and never silently treated as duplicates.
package lsh

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/chriscorrea/winnow/internal/minhash"
)

// Params controls the band partitioning of signatures.
type Params struct {
	Bands int // number of bands b
	Rows  int // rows per band r, with Bands*Rows == signature length
}

// Threshold returns the approximate similarity at which the collision
// probability of at least one band crosses 50%: (1/b)^(1/r).
func (p Params) Threshold() float64 {
	if p.Bands <= 0 || p.Rows <= 0 {
		return 0.0
	}
	return math.Pow(1.0/float64(p.Bands), 1.0/float64(p.Rows))
}

// Validate checks that the partitioning covers a signature of length k.
func (p Params) Validate(k int) error {
	if p.Bands <= 0 || p.Rows <= 0 {
		return fmt.Errorf("band count (%d) and rows per band (%d) must be positive", p.Bands, p.Rows)
	}
	if p.Bands*p.Rows != k {
		return fmt.Errorf("band count (%d) * rows per band (%d) must equal signature length (%d)", p.Bands, p.Rows, k)
	}
	return nil
}

// Derive selects band parameters for a signature of length k whose collision
// crossover (1/b)^(1/r) lies closest to the requested similarity threshold.
// Only divisor pairs of k are considered so the bands exactly partition the
// signature; ties resolve toward more bands (higher recall).
func Derive(k int, threshold float64) Params {
	best := Params{Bands: 1, Rows: k}
	bestDiff := math.Abs(best.Threshold() - threshold)

	for b := 1; b <= k; b++ {
		if k%b != 0 {
			continue
		}
		p := Params{Bands: b, Rows: k / b}
		diff := math.Abs(p.Threshold() - threshold)
		if diff < bestDiff || (diff == bestDiff && p.Bands > best.Bands) {
			best = p
			bestDiff = diff
		}
	}

	slog.Debug("Derived LSH parameters",
		"signatureLength", k, "threshold", threshold,
		"bands", best.Bands, "rows", best.Rows, "crossover", best.Threshold())
	return best
}

// bucketKey identifies one LSH bucket: the band index plus the hash of that
// band's slice of the signature.
type bucketKey struct {
	band int
	sum  uint64
}

// Index buckets MinHash signatures by band so that documents likely to exceed
// the similarity threshold collide in at least one bucket. The bucket table
// and signature store are the only per-document memory, O(documents × k).
//
// Index is not safe for concurrent use; the owning coordinator serializes
// access.
type Index struct {
	params  Params
	buckets map[bucketKey][]uint64
	sigs    map[uint64]minhash.Signature
}

// NewIndex creates an empty index with the given band parameters.
func NewIndex(p Params) *Index {
	return &Index{
		params:  p,
		buckets: make(map[bucketKey][]uint64),
		sigs:    make(map[uint64]minhash.Signature),
	}
}

// Params returns the band parameters the index was built with.
func (x *Index) Params() Params {
	return x.params
}

// Len returns the number of indexed signatures.
func (x *Index) Len() int {
	return len(x.sigs)
}

// Insert adds a signature to every band bucket it hashes into. Insert must be
// called after Query for the same document so a document never appears among
// its own candidates.
func (x *Index) Insert(id uint64, sig minhash.Signature) {
	for _, key := range x.keys(sig) {
		x.buckets[key] = append(x.buckets[key], id)
	}
	x.sigs[id] = sig
}

// Query returns the ids of all indexed documents sharing at least one band
// bucket with the given signature, in ascending id order (insertion order for
// sequence-numbered documents, which keeps first-seen selection
// deterministic). The result contains candidates only; callers must confirm
// each with a full signature comparison.
func (x *Index) Query(sig minhash.Signature) []uint64 {
	seen := make(map[uint64]struct{})
	for _, key := range x.keys(sig) {
		for _, id := range x.buckets[key] {
			seen[id] = struct{}{}
		}
	}

	if len(seen) == 0 {
		return nil
	}

	candidates := make([]uint64, 0, len(seen))
	for id := range seen {
		candidates = append(candidates, id)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i] < candidates[j] })

	return candidates
}

// Signature returns the stored signature for an indexed document.
func (x *Index) Signature(id uint64) (minhash.Signature, bool) {
	sig, ok := x.sigs[id]
	return sig, ok
}

// Merge copies every bucket entry and stored signature from other into x.
// Both indexes must share the same band parameters; document ids must be
// globally unique across the merged indexes.
func (x *Index) Merge(other *Index) error {
	if other.params != x.params {
		return fmt.Errorf("cannot merge indexes with different band parameters (%+v vs %+v)", x.params, other.params)
	}

	for key, ids := range other.buckets {
		x.buckets[key] = append(x.buckets[key], ids...)
	}
	for id, sig := range other.sigs {
		if _, exists := x.sigs[id]; exists {
			return fmt.Errorf("duplicate document id %d across merged indexes", id)
		}
		x.sigs[id] = sig
	}

	return nil
}

// keys computes the bucket key for each band of the signature.
func (x *Index) keys(sig minhash.Signature) []bucketKey {
	keys := make([]bucketKey, 0, x.params.Bands)
	var buf [8]byte

	for band := 0; band < x.params.Bands; band++ {
		h := xxhash.New()
		start := band * x.params.Rows
		for _, v := range sig[start : start+x.params.Rows] {
			binary.LittleEndian.PutUint64(buf[:], v)
			_, _ = h.Write(buf[:])
		}
		keys = append(keys, bucketKey{band: band, sum: h.Sum64()})
	}

	return keys
}
