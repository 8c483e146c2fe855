// Package source opens corpus input sources for reading;
// handles local JSONL files and standard input. Dataset download is an
// upstream collaborator's concern, so no network sources are supported.
package source

import (
	"fmt"
	"io"
	"os"
)

// MaxSourceSizeBytes caps a single input source to prevent memory overload
// from runaway inputs; corpora larger than this should be sharded.
const MaxSourceSizeBytes = 10 * 1024 * 1024 * 1024 // 10GB per input file

// limitedReadCloser wraps an io.ReadCloser to enforce size limits
type limitedReadCloser struct {
	io.ReadCloser
	N      int64  // max bytes remaining
	source string // for error messages
}

func (l *limitedReadCloser) Read(p []byte) (n int, err error) {
	if l.N <= 0 {
		return 0, fmt.Errorf("content from %q exceeds size limit", l.source)
	}
	if int64(len(p)) > l.N {
		p = p[0:l.N]
	}
	n, err = l.ReadCloser.Read(p)
	l.N -= int64(n)
	return
}

// Open returns a reader for a single source:
//   - "-" reads from standard input
//   - everything else is treated as a local file path
func Open(name string) (io.ReadCloser, error) {
	if name == "-" {
		// wrap stdin with a size limit; useful for piping records directly
		// into the program
		return &limitedReadCloser{
			ReadCloser: os.Stdin,
			N:          MaxSourceSizeBytes,
			source:     "stdin",
		}, nil
	}
	return openFile(name)
}

// openFile opens a local file for reading with better error messages.
func openFile(path string) (io.ReadCloser, error) {
	fileInfo, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("file %q does not exist", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to access file %q: %w", path, err)
	}

	// check file size before opening to prevent memory overload
	if fileInfo.Size() > MaxSourceSizeBytes {
		return nil, fmt.Errorf("file %q is too large (%d bytes > %d bytes limit)",
			path, fileInfo.Size(), MaxSourceSizeBytes)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %q: %w", path, err)
	}

	return file, nil
}
