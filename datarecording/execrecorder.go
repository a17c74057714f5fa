package datarecording

import (
	"os"
	"strings"
	"time"
)

// ExecInfoTable is the table that records how the program was run.
const ExecInfoTable = "exec_info"

// ExecInfo is one row of the exec_info table.
type ExecInfo struct {
	Property string
	Value    string
}

// Records program execution.
type execRecorder struct {
	recorder DataRecorder
	entries  []ExecInfo
}

func newExecRecorder(recorder DataRecorder) *execRecorder {
	e := &execRecorder{
		recorder: recorder,
	}

	recorder.CreateTable(ExecInfoTable, ExecInfo{})

	return e
}

// Start logs the current execution.
func (e *execRecorder) Start() {
	startTime := time.Now().Format("2006-01-02 15:04:05.000000000")
	e.entries = append(e.entries, ExecInfo{"Start Time", startTime})

	cmd := strings.Join(os.Args, " ")
	e.entries = append(e.entries, ExecInfo{"Command", cmd})

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "unknown"
	}

	e.entries = append(e.entries, ExecInfo{"Working Directory", cwd})
}

// End writes the entries along with the exit time.
func (e *execRecorder) End() {
	for _, entry := range e.entries {
		e.recorder.InsertData(ExecInfoTable, entry)
	}

	endTime := time.Now().Format("2006-01-02 15:04:05.000000000")
	e.recorder.InsertData(ExecInfoTable, ExecInfo{"End Time", endTime})

	e.entries = nil

	e.recorder.Flush()
}
