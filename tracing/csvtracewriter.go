package tracing

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

var csvHeader = []string{
	"Tick", "Event", "Job", "Task", "ReleaseTime", "AbsoluteDeadline",
	"Remaining", "Outcome", "Lateness",
}

// CSVTraceWriter is an event writer that stores the events into a CSV file.
type CSVTraceWriter struct {
	path string
	file *os.File
	csv  *csv.Writer

	events     []Event
	bufferSize int
}

// NewCSVTraceWriter creates a new CSVTraceWriter. The .csv extension is
// added to the path if missing.
func NewCSVTraceWriter(path string) *CSVTraceWriter {
	return &CSVTraceWriter{
		path:       path,
		bufferSize: 1000,
	}
}

// Path returns the file the events are written to.
func (t *CSVTraceWriter) Path() string {
	return t.path
}

// Init creates the trace file. It fails if the file already exists.
func (t *CSVTraceWriter) Init() error {
	if t.path == "" {
		t.path = "rtsim_trace_" + xid.New().String()
	}

	if filepath.Ext(t.path) != ".csv" {
		t.path += ".csv"
	}

	file, err := os.OpenFile(t.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("creating trace file: %w", err)
	}

	t.file = file
	t.csv = csv.NewWriter(file)

	if err := t.csv.Write(csvHeader); err != nil {
		return fmt.Errorf("writing trace file: %w", err)
	}

	atexit.Register(func() {
		if err := t.Close(); err != nil {
			panic(err)
		}
	})

	return nil
}

// Write buffers an event.
func (t *CSVTraceWriter) Write(event Event) {
	t.events = append(t.events, event)
	if len(t.events) >= t.bufferSize {
		t.Flush()
	}
}

// Flush writes the buffered events to the file.
func (t *CSVTraceWriter) Flush() {
	for _, e := range t.events {
		err := t.csv.Write([]string{
			strconv.Itoa(e.Tick),
			string(e.Kind),
			e.Job.ID,
			e.Job.Task,
			strconv.Itoa(e.Job.ReleaseTime),
			strconv.Itoa(e.Job.AbsoluteDeadline),
			strconv.Itoa(e.Job.Remaining),
			string(e.Job.Outcome),
			strconv.Itoa(e.Job.Lateness),
		})
		if err != nil {
			panic(err)
		}
	}

	t.events = nil

	t.csv.Flush()
	if err := t.csv.Error(); err != nil {
		panic(err)
	}
}

// Close flushes and closes the file. Closing twice does nothing.
func (t *CSVTraceWriter) Close() error {
	if t.file == nil {
		return nil
	}

	t.Flush()

	err := t.file.Close()
	t.file = nil

	return err
}
