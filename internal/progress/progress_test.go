package progress

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestReporterCounts(t *testing.T) {
	r := New(context.Background(), &bytes.Buffer{}, time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(accepted bool) {
			defer wg.Done()
			r.Record(accepted)
		}(i%2 == 0)
	}
	wg.Wait()

	processed, accepted := r.Counts()
	if processed != 10 {
		t.Errorf("processed = %d, want 10", processed)
	}
	if accepted != 5 {
		t.Errorf("accepted = %d, want 5", accepted)
	}
}

func TestReporterStartStop(t *testing.T) {
	var buf bytes.Buffer
	r := New(context.Background(), &buf, 10*time.Millisecond)

	r.Start()
	if !r.IsActive() {
		t.Error("IsActive() = false after Start()")
	}

	// starting twice is a no-op
	r.Start()

	r.Record(true)
	r.Record(false)
	time.Sleep(50 * time.Millisecond)

	r.Stop()
	if r.IsActive() {
		t.Error("IsActive() = true after Stop()")
	}

	out := buf.String()
	if !strings.Contains(out, "Processed: 2") {
		t.Errorf("output %q missing processed count", out)
	}
	if !strings.Contains(out, "Accepted: 1") {
		t.Errorf("output %q missing accepted count", out)
	}
	if !strings.Contains(out, "Rate: 50.0%") {
		t.Errorf("output %q missing rate", out)
	}

	// stopping twice is a no-op
	r.Stop()
}

func TestReporterZeroProcessed(t *testing.T) {
	var buf bytes.Buffer
	r := New(context.Background(), &buf, time.Hour)

	r.Start()
	r.Stop()

	if !strings.Contains(buf.String(), "Rate: 0.0%") {
		t.Errorf("output %q should report 0.0%% rate for empty input", buf.String())
	}
}
