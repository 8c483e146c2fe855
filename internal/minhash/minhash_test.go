package minhash

import (
	"fmt"
	"math"
	"testing"

	"github.com/chriscorrea/winnow/internal/shingle"
)

// makeSet builds a synthetic shingle set of count distinct elements with the
// given label prefix, offset by start.
func makeSet(prefix string, start, count int) shingle.Set {
	set := make(shingle.Set, count)
	for i := start; i < start+count; i++ {
		set[fmt.Sprintf("%s-%d", prefix, i)] = struct{}{}
	}
	return set
}

func TestSignerDeterminism(t *testing.T) {
	set := shingle.Shingle("reproducible signatures are a correctness requirement for deduplication", 3)

	first := NewSigner(128).Sign(set)
	second := NewSigner(128).Sign(set)

	if len(first) != len(second) {
		t.Fatalf("signature lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("signatures differ at position %d: %d vs %d", i, first[i], second[i])
		}
	}
}

func TestSignEmptySet(t *testing.T) {
	signer := NewSigner(64)
	sig := signer.Sign(shingle.Set{})

	if !sig.Empty() {
		t.Error("signature of empty set should be all-sentinel")
	}

	// sentinel signatures must never match anything, including each other
	other := signer.Sign(shingle.Set{})
	if sim := Similarity(sig, other); sim != 0.0 {
		t.Errorf("Similarity(empty, empty) = %f, want 0.0", sim)
	}
}

func TestSimilarity(t *testing.T) {
	signer := NewSigner(128)

	tests := []struct {
		name string
		a    shingle.Set
		b    shingle.Set
		want float64
	}{
		{
			name: "identical sets",
			a:    makeSet("x", 0, 50),
			b:    makeSet("x", 0, 50),
			want: 1.0,
		},
		{
			name: "disjoint sets",
			a:    makeSet("x", 0, 50),
			b:    makeSet("y", 0, 50),
			want: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Similarity(signer.Sign(tt.a), signer.Sign(tt.b))
			if tt.want == 1.0 && got != 1.0 {
				t.Errorf("Similarity() = %f, want 1.0", got)
			}
			// disjoint random sets can still collide in a few positions;
			// anything near zero is acceptable
			if tt.want == 0.0 && got > 0.1 {
				t.Errorf("Similarity() = %f, want ~0.0", got)
			}
		})
	}
}

func TestSimilarityIncompatibleLengths(t *testing.T) {
	set := makeSet("x", 0, 20)
	a := NewSigner(64).Sign(set)
	b := NewSigner(128).Sign(set)

	if sim := Similarity(a, b); sim != 0.0 {
		t.Errorf("Similarity() across lengths = %f, want 0.0", sim)
	}
}

// TestEstimatorAccuracy checks that the fraction of matching signature
// positions converges to the true Jaccard similarity. With k=128 the
// estimator's standard error is sqrt(t(1-t)/k); a 5-sigma band keeps the
// test reliable while still catching a broken estimator.
func TestEstimatorAccuracy(t *testing.T) {
	const k = 128
	signer := NewSigner(k)

	tests := []struct {
		name    string
		overlap int // elements shared by both sets
		only    int // elements unique to each set
	}{
		{name: "high similarity", overlap: 900, only: 50},    // t = 0.9
		{name: "medium similarity", overlap: 500, only: 250}, // t = 0.5
		{name: "low similarity", overlap: 100, only: 450},    // t = 0.1
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := makeSet("shared", 0, tt.overlap)
			b := makeSet("shared", 0, tt.overlap)
			for v := range makeSet("onlyA", 0, tt.only) {
				a[v] = struct{}{}
			}
			for v := range makeSet("onlyB", 0, tt.only) {
				b[v] = struct{}{}
			}

			truth := shingle.Jaccard(a, b)
			estimate := Similarity(signer.Sign(a), signer.Sign(b))

			stderr := math.Sqrt(truth * (1 - truth) / float64(k))
			if diff := math.Abs(estimate - truth); diff > 5*stderr {
				t.Errorf("estimate %f deviates from true similarity %f by %f (max %f)",
					estimate, truth, diff, 5*stderr)
			}
		})
	}
}
