package log

import (
	"bufio"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// FileLogger appends capture events to a file. Writes are buffered; Close
// flushes the buffer and reports the first write error encountered along
// the way. Safe for concurrent use.
type FileLogger struct {
	mu   sync.Mutex
	file *os.File
	buf  *bufio.Writer
	enc  *cbor.Encoder
	err  error // first write failure, surfaced by Close
}

// NewFileLogger opens the capture file at path for appending, creating it
// with permissions 0644 if needed. An existing capture is extended, not
// truncated.
func NewFileLogger(path string) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	buf := bufio.NewWriter(f)
	return &FileLogger{
		file: f,
		buf:  buf,
		enc:  NewEncoder(buf),
	}, nil
}

// Log appends one event. Write failures never disrupt the client; the
// first one is remembered and reported by Close. After Close, Log is a
// silent no-op.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return
	}
	if err := l.enc.Encode(event); err != nil && l.err == nil {
		l.err = err
	}
}

// Close flushes buffered events and closes the file, returning the first
// error from any write, the flush, or the close. Further Close calls
// return that same error.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return l.err
	}

	if err := l.buf.Flush(); err != nil && l.err == nil {
		l.err = err
	}
	if err := l.file.Close(); err != nil && l.err == nil {
		l.err = err
	}
	l.file = nil
	return l.err
}

// Compile-time interface satisfaction check.
var _ Logger = (*FileLogger)(nil)
