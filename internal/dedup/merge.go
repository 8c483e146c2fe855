package dedup

import (
	"fmt"
	"log/slog"
	"sort"
)

// Merge folds another coordinator's corpus state into this one, used to
// combine shards before any further record is accepted as novel across them.
//
// Protocol: survivors of both shards are replayed in ascending sequence-id
// order against a fresh exact table and LSH index. Because shards assign ids
// from disjoint, globally ordered sequence bases, ascending id order is the
// globally agreed first-seen order, so cross-shard duplicates resolve to the
// earliest-seen record exactly as a single-coordinator run would. Records a
// shard already discarded stay discarded.
//
// The other coordinator is finalized by the merge; its counters are folded
// into this coordinator's.
func (c *Coordinator) Merge(other *Coordinator) error {
	if other == c {
		return fmt.Errorf("cannot merge a coordinator with itself")
	}
	if !c.cfg.compatible(other.cfg) {
		return &ConfigurationError{Reason: "cannot merge coordinators with different dedup parameters"}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Finalized {
		return ErrFinalized
	}

	other.mu.Lock()
	defer other.mu.Unlock()

	// gather both survivor logs in global first-seen order
	entries := make([]survivorEntry, 0, len(c.survivors)+len(other.survivors))
	entries = append(entries, c.survivors...)
	entries = append(entries, other.survivors...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].id < entries[j].id })

	merged, err := NewCoordinator(c.cfg)
	if err != nil {
		return err
	}

	for _, e := range entries {
		sig, ok := c.index.Signature(e.id)
		if !ok {
			sig, ok = other.index.Signature(e.id)
		}
		if !ok {
			return fmt.Errorf("missing signature for record %d during merge", e.id)
		}

		if _, dup := merged.exact[e.digest]; dup {
			merged.stats.DiscardedExact++
			continue
		}
		if _, found := merged.confirm(sig); found {
			merged.stats.DiscardedFuzzy++
			continue
		}

		merged.exact[e.digest] = e.id
		merged.index.Insert(e.id, sig)
		merged.survivors = append(merged.survivors, e)
	}

	// counters: per-shard processing totals carry over; discards found
	// during re-resolution were counted above on the merged side
	c.stats = Stats{
		Processed:      c.stats.Processed + other.stats.Processed,
		Accepted:       uint64(len(merged.survivors)),
		DiscardedExact: c.stats.DiscardedExact + other.stats.DiscardedExact + merged.stats.DiscardedExact,
		DiscardedFuzzy: c.stats.DiscardedFuzzy + other.stats.DiscardedFuzzy + merged.stats.DiscardedFuzzy,
		Malformed:      c.stats.Malformed + other.stats.Malformed,
	}
	c.exact = merged.exact
	c.index = merged.index
	c.survivors = merged.survivors
	if len(c.survivors) > 0 {
		c.state = Accumulating
	}

	// the merged coordinator keeps allocating above both shards' sequences
	if other.next > c.next {
		c.next = other.next
	}
	other.state = Finalized

	slog.Debug("Merged coordinators",
		"survivors", len(c.survivors),
		"discardedExact", c.stats.DiscardedExact,
		"discardedFuzzy", c.stats.DiscardedFuzzy)
	return nil
}
