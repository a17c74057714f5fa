package model

// Outcome is how a job ended up when the simulation finished.
type Outcome string

// Job outcomes. Open jobs were still active when the horizon ended.
const (
	OutcomeCompleted Outcome = "Completed"
	OutcomeMissed    Outcome = "Missed"
	OutcomeOpen      Outcome = "Open"
)

func outcomeOf(s JobState) Outcome {
	switch s {
	case JobCompleted:
		return OutcomeCompleted
	case JobMissed:
		return OutcomeMissed
	default:
		return OutcomeOpen
	}
}

// A JobRecord is a read-only snapshot of a job.
type JobRecord struct {
	ID               string   `json:"id"`
	Task             string   `json:"task"`
	TaskIndex        int      `json:"task_index"`
	ReleaseIndex     int      `json:"release_index"`
	ReleaseTime      int      `json:"release_time"`
	AbsoluteDeadline int      `json:"absolute_deadline"`
	Remaining        int      `json:"remaining"`
	State            JobState `json:"state"`
	CompletionTime   *int     `json:"completion_time,omitempty"`
	Outcome          Outcome  `json:"outcome"`
	Lateness         int      `json:"lateness"`
	ResponseTime     int      `json:"response_time,omitempty"`
	Overdue          bool     `json:"overdue,omitempty"`
}
