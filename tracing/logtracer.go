package tracing

import (
	"context"
	"log/slog"

	"github.com/sarchlab/rtsim/engine"
	"github.com/sarchlab/rtsim/model"
)

// LevelTrace is below debug. LogTracer logs every tick at this level.
const LevelTrace = slog.LevelDebug - 4

// LogTracer writes job events to a structured logger. Releases, preemptions
// and completions are logged at debug level. Deadline problems are logged
// at info level.
type LogTracer struct {
	logger *slog.Logger
}

// NewLogTracer creates a LogTracer.
func NewLogTracer(logger *slog.Logger) *LogTracer {
	return &LogTracer{logger: logger}
}

func (t *LogTracer) log(
	level slog.Level,
	msg string,
	now int,
	job model.JobRecord,
) {
	t.logger.LogAttrs(context.Background(), level, msg,
		slog.Int("tick", now),
		slog.String("job", job.ID),
		slog.Int("deadline", job.AbsoluteDeadline),
		slog.Int("remaining", job.Remaining),
	)
}

// JobReleased logs a release.
func (t *LogTracer) JobReleased(now int, job model.JobRecord) {
	t.log(slog.LevelDebug, "job released", now, job)
}

// JobPreempted logs a preemption.
func (t *LogTracer) JobPreempted(now int, job model.JobRecord) {
	t.log(slog.LevelDebug, "job preempted", now, job)
}

// JobOverdue logs a job that keeps running past its deadline.
func (t *LogTracer) JobOverdue(now int, job model.JobRecord) {
	t.log(slog.LevelInfo, "job overdue", now, job)
}

// JobMissed logs a deadline miss.
func (t *LogTracer) JobMissed(now int, job model.JobRecord) {
	t.logger.LogAttrs(context.Background(), slog.LevelInfo, "deadline missed",
		slog.Int("tick", now),
		slog.String("job", job.ID),
		slog.Int("deadline", job.AbsoluteDeadline),
		slog.Int("lateness", job.Lateness),
	)
}

// JobCompleted logs a completion.
func (t *LogTracer) JobCompleted(now int, job model.JobRecord) {
	t.log(slog.LevelDebug, "job completed", now, job)
}

// Tick logs the occupant of a tick.
func (t *LogTracer) Tick(slot engine.Slot) {
	t.logger.LogAttrs(context.Background(), LevelTrace, "tick",
		slog.Int("tick", slot.Tick),
		slog.String("task", slot.Occupant()),
	)
}
