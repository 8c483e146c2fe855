// Package shingle converts normalized text into sets of overlapping word
// n-grams ("shingles"), the unit of content comparison for near-duplicate
// detection.
//
// Shingling is deterministic and side-effect free: the same text and window
// size always produce the same set. Tokenization is intentionally simple
// (whitespace splitting with lower-casing) because upstream cleaning stages
// have already collapsed whitespace and stripped markup.
//
// Usage Example:
//
//	set := shingle.Shingle("The quick brown fox jumps over the lazy dog", 5)
//	// set contains "the quick brown fox jumps", "quick brown fox jumps over", ...
package shingle

import (
	"log/slog"
	"strings"
)

// Set is a deduplicated, unordered collection of shingles. Duplicate n-grams
// within a single document collapse to one entry.
type Set map[string]struct{}

// Contains reports whether the set includes the given shingle.
func (s Set) Contains(v string) bool {
	_, ok := s[v]
	return ok
}

// Jaccard computes the exact Jaccard similarity between two shingle sets:
// |A ∩ B| / |A ∪ B|. Two empty sets are considered identical (similarity 1.0).
// Used for validation and tests; production comparison goes through MinHash.
func Jaccard(a, b Set) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	intersection := 0
	for v := range a {
		if b.Contains(v) {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// Shingle produces the set of overlapping n-token windows for the given text.
//
// Tokenization splits on any Unicode whitespace (strings.Fields) and
// lower-cases tokens for case-insensitive comparison. Texts with fewer than n
// tokens yield a single shingle covering all tokens, never an empty set, so
// very short documents remain comparable. Empty or whitespace-only text
// yields an empty set.
func Shingle(text string, n int) Set {
	if n <= 0 {
		slog.Debug("Invalid shingle size", "n", n)
		return Set{}
	}

	tokens := tokenize(text)
	if len(tokens) == 0 {
		return Set{}
	}

	set := make(Set)

	// degenerate case: fewer tokens than the window size
	if len(tokens) < n {
		set[strings.Join(tokens, " ")] = struct{}{}
		return set
	}

	for i := 0; i+n <= len(tokens); i++ {
		set[strings.Join(tokens[i:i+n], " ")] = struct{}{}
	}

	slog.Debug("Shingled text", "tokens", len(tokens), "n", n, "shingles", len(set))
	return set
}

// tokenize breaks text into lower-cased whitespace-delimited tokens.
// strings.Fields splits on whitespace and filters empty strings.
func tokenize(text string) []string {
	if text == "" {
		return nil
	}

	fields := strings.Fields(strings.ToLower(text))
	return fields
}
