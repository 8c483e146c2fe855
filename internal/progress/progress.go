// Package progress provides a simple terminal progress reporter for long
// deduplication runs.
package progress

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/term"
)

// Reporter periodically prints processed/accepted counts while records stream
// through the engine. Counter updates are safe from any goroutine.
type Reporter struct {
	interval time.Duration
	writer   io.Writer
	active   bool
	mu       sync.RWMutex
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	processed atomic.Uint64
	accepted  atomic.Uint64
}

// New creates a reporter that prints to writer on the given interval.
// ctx allows for cancellation of the reporting goroutine.
func New(ctx context.Context, writer io.Writer, interval time.Duration) *Reporter {
	if interval <= 0 {
		interval = time.Second
	}
	reporterCtx, cancel := context.WithCancel(ctx)
	return &Reporter{
		interval: interval,
		writer:   writer,
		ctx:      reporterCtx,
		cancel:   cancel,
	}
}

// Record counts one processed record and whether it was accepted.
func (r *Reporter) Record(accepted bool) {
	r.processed.Add(1)
	if accepted {
		r.accepted.Add(1)
	}
}

// Counts returns the processed and accepted totals so far.
func (r *Reporter) Counts() (processed, accepted uint64) {
	return r.processed.Load(), r.accepted.Load()
}

// Start begins periodic reporting.
func (r *Reporter) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active {
		return // already running
	}
	r.active = true

	r.wg.Add(1)
	go r.run()
}

// Stop halts reporting and prints a final line.
func (r *Reporter) Stop() {
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return // not running
	}
	r.active = false
	r.cancel()
	r.mu.Unlock()

	// wait for the reporting goroutine to finish
	r.wg.Wait()

	r.print()
	fmt.Fprintln(r.writer)
}

// IsActive returns whether the reporter is currently running.
func (r *Reporter) IsActive() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// run is the main reporting loop.
func (r *Reporter) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.print()
		}
	}
}

// print writes one progress line. On a terminal the line is rewritten in
// place; redirected output gets one line per interval.
func (r *Reporter) print() {
	processed, accepted := r.Counts()

	rate := 0.0
	if processed > 0 {
		rate = float64(accepted) / float64(processed) * 100
	}

	line := fmt.Sprintf("Processed: %d | Accepted: %d | Rate: %.1f%%", processed, accepted, rate)
	if f, ok := r.writer.(*os.File); ok && isTerminal(f) {
		fmt.Fprintf(r.writer, "\r\033[2K%s", line)
	} else {
		fmt.Fprintln(r.writer, line)
	}
}

// isTerminal helper function checks if is a terminal
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
