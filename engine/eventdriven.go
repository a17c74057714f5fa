package engine

// runEvents simulates the horizon by jumping between the ticks where the
// choice of the job to run can change. Between two such ticks, the selected
// job runs uninterrupted, or the processor stays idle.
func (e *Engine) runEvents() error {
	q := newEventQueue()

	for i := range e.tasks {
		q.Push(event{time: 0, kind: eventRelease, taskIndex: i})
	}

	for t := 0; t < e.horizon; {
		e.now = t

		for q.Len() > 0 && q.Peek().time == t {
			evt := q.Pop()
			if evt.kind != eventRelease {
				continue
			}

			if err := e.handleRelease(q, evt.taskIndex); err != nil {
				return err
			}
		}

		if err := e.detectMisses(); err != nil {
			return err
		}

		job, err := e.selectJob()
		if err != nil {
			return err
		}

		if job != nil {
			q.Push(event{
				time:      t + job.Remaining(),
				kind:      eventCompletion,
				taskIndex: job.TaskIndex(),
			})
		}

		end := e.horizon
		if q.Len() > 0 {
			end = min(end, q.Peek().time)
		}

		for tick := t; tick < end; tick++ {
			e.now = tick

			if err := e.execute(job); err != nil {
				return err
			}
		}

		if job != nil {
			if err := e.checkCompletion(job); err != nil {
				return err
			}
		}

		e.arena.retire()

		t = end
	}

	return nil
}

func (e *Engine) handleRelease(q *eventQueue, taskIndex int) error {
	job, err := e.releaseJob(taskIndex)
	if err != nil {
		return err
	}

	next := e.now + e.tasks[taskIndex].Period
	if next < e.horizon {
		q.Push(event{time: next, kind: eventRelease, taskIndex: taskIndex})
	}

	if deadline := job.AbsoluteDeadline(); deadline < e.horizon {
		q.Push(event{time: deadline, kind: eventDeadline, taskIndex: taskIndex})
	}

	return nil
}
