// Package dedup implements the corpus deduplication engine: exact duplicate
// elimination via content hashing combined with approximate near-duplicate
// detection via MinHash signatures and an LSH index.
//
// The Coordinator owns all corpus-wide state (exact-digest table, LSH bucket
// table and signature store, survivor log) and processes records in a single
// streaming pass:
//
//	record → exact-match check → shingle → sign → LSH query → confirm → insert
//
// Among near-identical documents the earliest-processed one survives
// (first-seen wins), so a fixed input order and configuration always discard
// the same records. Memory stays O(documents × signature length); no pairwise
// comparison over the whole corpus ever happens.
//
// Usage Example:
//
//	coord, err := dedup.NewCoordinator(dedup.DefaultConfig())
//	decision, err := coord.Process(record)
//	if decision.Action == dedup.Forward { ... }
package dedup

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/chriscorrea/winnow/internal/lsh"
	"github.com/chriscorrea/winnow/internal/minhash"
	"github.com/chriscorrea/winnow/internal/shingle"
)

// State describes the coordinator lifecycle.
type State int

const (
	// Empty means no corpus state has accumulated yet.
	Empty State = iota
	// Accumulating is entered on the first record and persists across
	// records and, unless a reset is requested, across input files.
	Accumulating
	// Finalized accepts no further inserts; read-only reporting remains
	// available.
	Finalized
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Accumulating:
		return "accumulating"
	case Finalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// Action is the per-record outcome.
type Action int

const (
	// Forward passes the record downstream unmodified.
	Forward Action = iota
	// Discard drops the record as a duplicate.
	Discard
)

// String returns the action name for logging.
func (a Action) String() string {
	switch a {
	case Forward:
		return "forward"
	case Discard:
		return "discard"
	default:
		return "unknown"
	}
}

// Reason classifies a discard.
type Reason string

const (
	// ReasonExact marks a byte-identical duplicate.
	ReasonExact Reason = "duplicate_exact"
	// ReasonFuzzy marks a confirmed near-duplicate.
	ReasonFuzzy Reason = "duplicate_fuzzy"
)

// Decision reports the engine's classification of one record.
type Decision struct {
	Record TextRecord
	Action Action
	Reason Reason // set only when Action == Discard

	// ID is the sequence number assigned to an accepted record.
	ID uint64

	// Survivor is the sequence number of the canonical survivor a
	// discarded record duplicates.
	Survivor uint64
}

// Stats are the engine's reporting counters, queryable at any time and
// authoritative once the current record batch has fully drained.
type Stats struct {
	Processed      uint64
	Accepted       uint64
	DiscardedExact uint64
	DiscardedFuzzy uint64
	Malformed      uint64
}

// ErrFinalized is returned when records arrive after Finalize.
var ErrFinalized = errors.New("coordinator finalized: no further records accepted")

// survivorEntry records one accepted document: sequence id plus its exact
// digest, enough to replay first-seen resolution during a shard merge.
type survivorEntry struct {
	id     uint64
	digest Digest
}

// Coordinator orchestrates per-record flow through the exact-match table and
// the fuzzy index, and exclusively owns all corpus-wide state.
//
// Decisions are strictly serialized: the coordinator guards its state with a
// mutex so counters can be read at any time, but callers must still present
// records in their canonical input order for first-seen selection to be
// deterministic (the Run helper does this while parallelizing signature
// computation).
type Coordinator struct {
	mu     sync.RWMutex
	cfg    Config
	signer *minhash.Signer

	state     State
	exact     map[Digest]uint64 // digest → sequence id of first-seen record
	index     *lsh.Index
	survivors []survivorEntry
	next      uint64
	stats     Stats
}

// NewCoordinator validates the configuration and creates a coordinator in the
// Empty state. A *ConfigurationError is fatal: the engine refuses to enter
// Accumulating under invalid parameters.
func NewCoordinator(cfg Config) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	params := cfg.params()
	slog.Debug("Coordinator created",
		"threshold", cfg.SimilarityThreshold,
		"shingleSize", cfg.ShingleSize,
		"signatureLength", cfg.SignatureLength,
		"bands", params.Bands, "rows", params.Rows)

	return &Coordinator{
		cfg:    cfg,
		signer: minhash.NewSigner(cfg.SignatureLength),
		state:  Empty,
		exact:  make(map[Digest]uint64),
		index:  lsh.NewIndex(params),
		next:   cfg.SequenceBase,
	}, nil
}

// Config returns the configuration the coordinator was built with.
func (c *Coordinator) Config() Config {
	return c.cfg
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Stats returns a copy of the reporting counters.
func (c *Coordinator) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// Survivors returns the sequence ids of accepted records in insertion order.
func (c *Coordinator) Survivors() []uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]uint64, len(c.survivors))
	for i, s := range c.survivors {
		ids[i] = s.id
	}
	return ids
}

// Process classifies one record: deduplication is deterministic and
// idempotent per record, so there is no retry path. Malformed records return
// ErrMalformedRecord without touching corpus state.
func (c *Coordinator) Process(rec TextRecord) (Decision, error) {
	return c.apply(prepare(c.cfg.ShingleSize, c.signer, rec))
}

// signed is a record with its digest and signature precomputed. Preparing
// signed records is side-effect free and may run concurrently; apply is the
// serialized step.
type signed struct {
	rec    TextRecord
	digest Digest
	sig    minhash.Signature
	err    error
}

// prepare computes the digest and MinHash signature for a record. This is the
// embarrassingly parallel part of the per-record flow.
func prepare(shingleSize int, signer *minhash.Signer, rec TextRecord) signed {
	if rec.Text == "" {
		return signed{rec: rec, err: ErrMalformedRecord}
	}

	return signed{
		rec:    rec,
		digest: digestOf(rec.Text),
		sig:    signer.Sign(shingle.Shingle(rec.Text, shingleSize)),
	}
}

// apply makes the serialized accept/reject decision and mutates corpus state.
func (c *Coordinator) apply(s signed) (Decision, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Finalized {
		return Decision{}, ErrFinalized
	}

	if s.err != nil {
		c.stats.Malformed++
		slog.Debug("Rejected malformed record", "sourceID", s.rec.SourceID)
		return Decision{}, s.err
	}

	c.state = Accumulating
	c.stats.Processed++

	// stage 1: byte-identical duplicates, checked before any fuzzy work
	if id, dup := c.exact[s.digest]; dup {
		c.stats.DiscardedExact++
		slog.Debug("Discarded exact duplicate", "sourceID", s.rec.SourceID, "survivor", id)
		return Decision{Record: s.rec, Action: Discard, Reason: ReasonExact, Survivor: id}, nil
	}

	// stage 2: bucket lookup gives candidates; confirmation compares full
	// signatures so bucket collisions alone never reject a record
	if id, found := c.confirm(s.sig); found {
		c.stats.DiscardedFuzzy++
		slog.Debug("Discarded fuzzy duplicate", "sourceID", s.rec.SourceID, "survivor", id)
		return Decision{Record: s.rec, Action: Discard, Reason: ReasonFuzzy, Survivor: id}, nil
	}

	// accept: register in both tables together so a record is never left
	// half-indexed (map inserts cannot fail between these statements)
	id := c.next
	c.next++
	c.exact[s.digest] = id
	c.index.Insert(id, s.sig)
	c.survivors = append(c.survivors, survivorEntry{id: id, digest: s.digest})
	c.stats.Accepted++

	return Decision{Record: s.rec, Action: Forward, ID: id}, nil
}

// confirm queries the LSH index and confirms candidates by full signature
// comparison, returning the canonical survivor of the confirmed cluster.
func (c *Coordinator) confirm(sig minhash.Signature) (uint64, bool) {
	var confirmed []uint64
	for _, id := range c.index.Query(sig) {
		stored, ok := c.index.Signature(id)
		if !ok {
			continue
		}
		if minhash.Similarity(sig, stored) >= c.cfg.SimilarityThreshold {
			confirmed = append(confirmed, id)
		}
	}

	if len(confirmed) == 0 {
		return 0, false
	}
	return selectSurvivor(confirmed), true
}

// selectSurvivor applies the canonical selection policy: first-seen wins.
// Sequence ids increase in processing order, so the earliest-processed member
// of a duplicate cluster is the one with the lowest id. The policy needs no
// tie-break heuristics and always retains the same record for a fixed input
// ordering.
func selectSurvivor(cluster []uint64) uint64 {
	survivor := cluster[0]
	for _, id := range cluster[1:] {
		if id < survivor {
			survivor = id
		}
	}
	return survivor
}

// Reset atomically clears all corpus state and returns to Empty, used between
// unrelated input sources when independence is requested. Reporting counters
// survive a reset; they describe the whole run, not one source.
func (c *Coordinator) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Finalized {
		return ErrFinalized
	}

	c.exact = make(map[Digest]uint64)
	c.index = lsh.NewIndex(c.cfg.params())
	c.survivors = nil
	c.next = c.cfg.SequenceBase
	c.state = Empty

	slog.Debug("Coordinator reset")
	return nil
}

// Finalize freezes the coordinator at pipeline shutdown. No further inserts
// are accepted; counters remain readable.
func (c *Coordinator) Finalize() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Finalized
}
