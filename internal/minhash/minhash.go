// Package minhash compresses shingle sets into fixed-length signatures that
// approximate Jaccard similarity.
//
// Each signature position holds the minimum value of one independent hash
// function applied to every shingle in the set. For two sets A and B the
// probability that a given position matches equals Jaccard(A, B), so the
// fraction of matching positions across the whole signature is an unbiased
// estimator of the true similarity, with standard error sqrt(t(1-t)/k) for
// a signature of length k.
//
// Hash functions are seeded from a fixed constant so signatures are
// reproducible across runs and processes; cross-run reproducibility is a
// correctness requirement for deterministic deduplication, not a convenience.
package minhash

import (
	"log/slog"
	"math"
	"math/rand"

	"github.com/cespare/xxhash/v2"

	"github.com/chriscorrea/winnow/internal/shingle"
)

// DefaultLength is the default number of hash functions per signature.
const DefaultLength = 128

// signerSeed is the fixed seed for hash-function parameters. Changing it
// invalidates every stored signature, so it must never vary at runtime.
const signerSeed int64 = 0x5EED1E55

// Signature is an ordered sequence of minimum hash values, one per hash
// function. A signature built from an empty shingle set holds the
// math.MaxUint64 sentinel in every position and never matches anything.
type Signature []uint64

// Signer computes MinHash signatures using k independent multiply-shift hash
// functions h_i(x) = a_i*x + b_i over uint64 (wraparound arithmetic). With
// odd a_i each h_i is a bijection on uint64, preserving the min-hash
// collision property.
type Signer struct {
	a []uint64 // multipliers, always odd
	b []uint64 // additive constants
}

// NewSigner creates a Signer with k hash functions. Parameters are drawn from
// a PRNG seeded with a fixed constant, so two Signers with the same k always
// produce identical signatures.
func NewSigner(k int) *Signer {
	if k <= 0 {
		k = DefaultLength
	}

	rng := rand.New(rand.NewSource(signerSeed))
	s := &Signer{
		a: make([]uint64, k),
		b: make([]uint64, k),
	}
	for i := 0; i < k; i++ {
		s.a[i] = rng.Uint64() | 1 // odd multiplier keeps the function bijective
		s.b[i] = rng.Uint64()
	}

	slog.Debug("MinHash signer initialized", "hashFunctions", k)
	return s
}

// Length returns the number of hash functions (signature positions).
func (s *Signer) Length() int {
	return len(s.a)
}

// Sign computes the MinHash signature for a shingle set. Position i holds the
// minimum of hash function i over all shingles. An empty set yields the
// all-sentinel signature.
func (s *Signer) Sign(set shingle.Set) Signature {
	sig := make(Signature, len(s.a))
	for i := range sig {
		sig[i] = math.MaxUint64
	}

	for sh := range set {
		base := xxhash.Sum64String(sh)
		for i := range s.a {
			if v := s.a[i]*base + s.b[i]; v < sig[i] {
				sig[i] = v
			}
		}
	}

	return sig
}

// Empty reports whether the signature is the all-sentinel signature of an
// empty shingle set.
func (sig Signature) Empty() bool {
	for _, v := range sig {
		if v != math.MaxUint64 {
			return false
		}
	}
	return true
}

// Similarity estimates the Jaccard similarity between the sets behind two
// signatures as the fraction of matching positions. Signatures of different
// lengths are incomparable and score 0. Empty-set sentinel signatures never
// match anything, including each other, so vacuously empty documents are
// never clustered.
func Similarity(a, b Signature) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0.0
	}
	if a.Empty() || b.Empty() {
		return 0.0
	}

	matches := 0
	for i := range a {
		if a[i] == b[i] {
			matches++
		}
	}

	return float64(matches) / float64(len(a))
}
