package tracing

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/tebeka/atexit"
)

// JSONTraceWriter writes events as a JSON array.
type JSONTraceWriter struct {
	w          io.Writer
	closer     io.Closer
	lock       sync.Mutex
	firstEvent bool
	finished   bool
}

// NewJSONTraceWriter creates a writer that writes to w. The array is
// closed by Close.
func NewJSONTraceWriter(w io.Writer) *JSONTraceWriter {
	t := &JSONTraceWriter{
		w:          w,
		firstEvent: true,
	}

	t.mustWrite([]byte("[\n"))

	return t
}

// NewJSONFileTraceWriter creates a writer that writes into a new file. The
// file is closed at exit if Close is not called before.
func NewJSONFileTraceWriter(path string) (*JSONTraceWriter, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating trace file: %w", err)
	}

	t := NewJSONTraceWriter(f)
	t.closer = f

	atexit.Register(func() {
		if err := t.Close(); err != nil {
			panic(err)
		}
	})

	return t, nil
}

func (t *JSONTraceWriter) mustWrite(b []byte) {
	if _, err := t.w.Write(b); err != nil {
		panic(err)
	}
}

// Write appends an event to the array.
func (t *JSONTraceWriter) Write(event Event) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.finished {
		return
	}

	if t.firstEvent {
		t.firstEvent = false
	} else {
		t.mustWrite([]byte(",\n"))
	}

	b, err := json.Marshal(event)
	if err != nil {
		panic(err)
	}

	t.mustWrite(b)
}

// Flush does nothing. Events are written as they come.
func (t *JSONTraceWriter) Flush() {
	// Do nothing
}

// Close ends the array and closes the underlying file, if any. Closing
// twice does nothing.
func (t *JSONTraceWriter) Close() error {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.finished {
		return nil
	}

	t.finished = true
	t.mustWrite([]byte("\n]\n"))

	if t.closer != nil {
		return t.closer.Close()
	}

	return nil
}
