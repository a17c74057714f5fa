package analysis

import (
	"fmt"

	"github.com/sarchlab/rtsim/model"
	"github.com/sarchlab/rtsim/policy"
)

// The methods a Verdict can be reached with.
const (
	MethodUtilization     = "utilization"
	MethodProcessorDemand = "processor-demand"
	MethodDensity         = "density"
	MethodLiuLayland      = "liu-layland"
	MethodResponseTime    = "response-time"
)

// demandCheckLimit bounds the number of ticks the processor demand test may
// scan.
const demandCheckLimit = 1 << 20

// Verdict is the outcome of a schedulability test. A test that is only
// sufficient and fails leaves the verdict inconclusive.
type Verdict struct {
	Policy        string         `json:"policy"`
	Schedulable   bool           `json:"schedulable"`
	Conclusive    bool           `json:"conclusive"`
	Method        string         `json:"method"`
	Message       string         `json:"message"`
	Utilization   float64        `json:"utilization"`
	Bound         float64        `json:"bound"`
	ResponseTimes []ResponseTime `json:"response_times,omitempty"`
}

// Check tests the task set against the named policy. The tie-break decides
// the RM priorities of tasks that share a period.
func Check(
	policyName string,
	tasks []model.Task,
	tieBreak policy.TieBreak,
) (Verdict, error) {
	p, err := policy.ByName(policyName)
	if err != nil {
		return Verdict{}, err
	}

	if err := model.ValidateTaskSet(tasks); err != nil {
		return Verdict{}, err
	}

	if len(tasks) == 0 {
		return Verdict{}, ErrEmptyTaskSet
	}

	switch p.(type) {
	case *policy.RM:
		return CheckRM(tasks, tieBreak), nil
	default:
		return CheckEDF(tasks), nil
	}
}

// CheckEDF tests the tasks under preemptive EDF. With implicit deadlines the
// test is exact: the tasks are schedulable iff the utilization is at most 1.
// With constrained deadlines, the processor demand is checked at every
// absolute deadline within the hyperperiod. When the hyperperiod is too
// large, the density test is used, which is only sufficient.
func CheckEDF(tasks []model.Task) Verdict {
	u := Utilization(tasks)
	v := Verdict{
		Policy:      "EDF",
		Utilization: u,
		Bound:       1,
		Conclusive:  true,
	}

	if u > 1+epsilon {
		v.Method = MethodUtilization
		v.Message = fmt.Sprintf(
			"The tasks are not schedulable: the total CPU utilization %.3f "+
				"is greater than 1.", u)

		return v
	}

	if hasImplicitDeadlines(tasks) {
		v.Schedulable = true
		v.Method = MethodUtilization
		v.Message = fmt.Sprintf(
			"The tasks are schedulable: the total CPU utilization %.3f "+
				"is less than or equal to 1.", u)

		return v
	}

	h, err := Hyperperiod(tasks)
	if err == nil && h <= demandCheckLimit {
		return checkProcessorDemand(tasks, h, v)
	}

	d := Density(tasks)
	v.Method = MethodDensity
	v.Bound = 1

	if d <= 1+epsilon {
		v.Schedulable = true
		v.Message = fmt.Sprintf(
			"The tasks are schedulable: the density %.3f is less than or "+
				"equal to 1.", d)

		return v
	}

	v.Conclusive = false
	v.Message = fmt.Sprintf(
		"Schedulability is unknown: the density %.3f is greater than 1 and "+
			"the hyperperiod is too large for an exact test.", d)

	return v
}

func checkProcessorDemand(tasks []model.Task, h int, v Verdict) Verdict {
	v.Method = MethodProcessorDemand

	for _, t := range tasks {
		for d := t.Deadline; d <= h; d += t.Period {
			demand := demandBound(tasks, d)
			if demand > d {
				v.Message = fmt.Sprintf(
					"The tasks are not schedulable: %d ticks of work are due "+
						"by tick %d.", demand, d)

				return v
			}
		}
	}

	v.Schedulable = true
	v.Message = fmt.Sprintf(
		"The tasks are schedulable: the processor demand never exceeds the "+
			"available time within the hyperperiod %d.", h)

	return v
}

// demandBound returns the execution time of the jobs that are released and
// due within [0, t].
func demandBound(tasks []model.Task, t int) int {
	demand := 0

	for _, task := range tasks {
		if t < task.Deadline {
			continue
		}

		demand += ((t-task.Deadline)/task.Period + 1) * task.WCET
	}

	return demand
}

// CheckRM tests the tasks under preemptive RM. The Liu and Layland bound is
// tried first when deadlines are implicit. Response-time analysis, which is
// exact, decides otherwise.
func CheckRM(tasks []model.Task, tieBreak policy.TieBreak) Verdict {
	u := Utilization(tasks)
	bound := LiuLaylandBound(len(tasks))
	v := Verdict{
		Policy:      "RM",
		Utilization: u,
		Bound:       bound,
		Conclusive:  true,
	}

	if hasImplicitDeadlines(tasks) && u <= bound+epsilon {
		v.Schedulable = true
		v.Method = MethodLiuLayland
		v.Message = fmt.Sprintf(
			"The tasks are schedulable: the total CPU utilization %.3f is "+
				"less than or equal to the Liu and Layland bound %.3f.",
			u, bound)

		return v
	}

	v.Method = MethodResponseTime
	v.ResponseTimes = ResponseTimes(tasks, tieBreak)

	for _, r := range v.ResponseTimes {
		if !r.Schedulable {
			v.Message = fmt.Sprintf(
				"The tasks are not schedulable: the response time of %s "+
					"reaches %d, beyond its deadline %d.",
				r.Task, r.Time, r.Deadline)

			return v
		}
	}

	v.Schedulable = true
	v.Message = "The tasks are schedulable: every response time is within " +
		"its deadline."

	return v
}
