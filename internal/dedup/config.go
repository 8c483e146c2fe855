package dedup

import (
	"fmt"

	"github.com/chriscorrea/winnow/internal/lsh"
	"github.com/chriscorrea/winnow/internal/minhash"
)

// Default engine parameters. The defaults target aggressive near-duplicate
// removal (similarity 0.9) with 5-word shingles and 128-position signatures.
const (
	DefaultSimilarityThreshold = 0.9
	DefaultShingleSize         = 5
	DefaultSignatureLength     = minhash.DefaultLength
)

// Config holds all engine options. Band parameters left at zero are derived
// from the similarity threshold.
type Config struct {
	// SimilarityThreshold is the minimum estimated Jaccard similarity for a
	// record to be classified as a fuzzy duplicate. Must lie strictly
	// within (0, 1).
	SimilarityThreshold float64

	// ShingleSize is the word n-gram window size.
	ShingleSize int

	// SignatureLength is the number of MinHash functions per signature.
	SignatureLength int

	// Bands and Rows partition the signature for LSH bucketing
	// (Bands*Rows must equal SignatureLength). When both are zero the pair
	// whose collision crossover (1/b)^(1/r) lies closest to the similarity
	// threshold is derived automatically.
	Bands int
	Rows  int

	// ResetBetweenSources clears corpus state between distinct input files,
	// so duplicates are only detected within one source.
	ResetBetweenSources bool

	// SequenceBase is the first sequence number assigned to accepted
	// records. Sharded runs give each shard a disjoint, globally ordered
	// base so first-seen selection survives a later merge.
	SequenceBase uint64
}

// DefaultConfig returns the engine defaults with derived band parameters.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold: DefaultSimilarityThreshold,
		ShingleSize:         DefaultShingleSize,
		SignatureLength:     DefaultSignatureLength,
	}
}

// ConfigurationError is fatal at startup: the engine refuses to start
// accumulating corpus state under an invalid configuration.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "invalid configuration: " + e.Reason
}

// Validate checks the configuration, returning a *ConfigurationError
// describing the first problem found.
func (c Config) Validate() error {
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold >= 1 {
		return &ConfigurationError{Reason: fmt.Sprintf("similarity threshold %v outside (0, 1)", c.SimilarityThreshold)}
	}
	if c.ShingleSize <= 0 {
		return &ConfigurationError{Reason: fmt.Sprintf("shingle size %d must be positive", c.ShingleSize)}
	}
	if c.SignatureLength <= 0 {
		return &ConfigurationError{Reason: fmt.Sprintf("signature length %d must be positive", c.SignatureLength)}
	}
	if (c.Bands == 0) != (c.Rows == 0) {
		return &ConfigurationError{Reason: "band count and rows per band must be set together"}
	}
	if c.Bands != 0 {
		if err := (lsh.Params{Bands: c.Bands, Rows: c.Rows}).Validate(c.SignatureLength); err != nil {
			return &ConfigurationError{Reason: err.Error()}
		}
	}
	return nil
}

// params resolves the LSH band parameters, deriving them from the threshold
// when unset. Callers must Validate first.
func (c Config) params() lsh.Params {
	if c.Bands != 0 {
		return lsh.Params{Bands: c.Bands, Rows: c.Rows}
	}
	return lsh.Derive(c.SignatureLength, c.SimilarityThreshold)
}

// compatible reports whether two configurations describe the same dedup
// semantics. Sequence bases are allowed to differ; they are expected to
// differ across shards.
func (c Config) compatible(other Config) bool {
	return c.SimilarityThreshold == other.SimilarityThreshold &&
		c.ShingleSize == other.ShingleSize &&
		c.SignatureLength == other.SignatureLength &&
		c.params() == other.params()
}
