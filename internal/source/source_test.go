package source

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.jsonl")
	content := `{"text":"hello world"}` + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(got) != content {
		t.Errorf("read %q, want %q", got, content)
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.jsonl"))
	if err == nil {
		t.Fatal("Open() of missing file should fail")
	}
	if !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("Open() error = %v, want 'does not exist'", err)
	}
}

func TestLimitedReadCloser(t *testing.T) {
	r := &limitedReadCloser{
		ReadCloser: io.NopCloser(strings.NewReader("0123456789")),
		N:          4,
		source:     "test",
	}

	buf := make([]byte, 10)
	n, err := r.Read(buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if n != 4 {
		t.Errorf("Read() n = %d, want 4", n)
	}

	// further reads past the limit fail
	if _, err := r.Read(buf); err == nil {
		t.Error("Read() past limit should fail")
	}
}
