package dedup

import (
	"context"
	"runtime"
)

// Result pairs a per-record decision with its error. Exactly one of the two
// is meaningful: a malformed record yields Err and an empty Decision.
type Result struct {
	Decision Decision
	Err      error
}

// job carries one record to a worker together with its reply channel.
type job struct {
	rec TextRecord
	out chan signed
}

// Run drains records from in, shingling and signing them concurrently across
// workers while keeping the accept/reject decision serialized in input order
// (single-writer discipline; first-seen selection stays deterministic).
//
// Workers perform only side-effect-free signature computation; a single owner
// goroutine applies decisions in the order records arrived, so output order
// matches input order. Results are emitted on the returned channel, which is
// closed once in is closed and drained or ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context, in <-chan TextRecord, workers int) <-chan Result {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	jobs := make(chan job)
	pending := make(chan chan signed, workers*2)
	out := make(chan Result)

	// feeder: assigns each record a reply channel and preserves input order
	// through the pending queue
	go func() {
		defer close(jobs)
		defer close(pending)
		for {
			var rec TextRecord
			var ok bool
			select {
			case rec, ok = <-in:
				if !ok {
					return
				}
			case <-ctx.Done():
				return
			}

			j := job{rec: rec, out: make(chan signed, 1)}
			select {
			case pending <- j.out:
			case <-ctx.Done():
				return
			}
			select {
			case jobs <- j:
			case <-ctx.Done():
				// owner drains the already-queued reply channel; close
				// it empty so the owner does not block forever
				close(j.out)
				return
			}
		}
	}()

	// workers: compute signatures for independent records concurrently
	for i := 0; i < workers; i++ {
		go func() {
			for j := range jobs {
				j.out <- prepare(c.cfg.ShingleSize, c.signer, j.rec)
			}
		}()
	}

	// owner: serialized decisions in input order
	go func() {
		defer close(out)
		for ch := range pending {
			s, ok := <-ch
			if !ok {
				return // cancelled before the record was signed
			}
			d, err := c.apply(s)
			select {
			case out <- Result{Decision: d, Err: err}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
