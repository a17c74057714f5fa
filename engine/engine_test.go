package engine

import (
	"encoding/json"
	"fmt"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/rtsim/hooking"
	"github.com/sarchlab/rtsim/model"
	"github.com/sarchlab/rtsim/policy"
)

func occupants(tl Timeline) []string {
	names := make([]string, 0, len(tl))
	for _, s := range tl {
		names = append(names, s.Occupant())
	}

	return names
}

func releaseTimesOf(r *Result, task string) []int {
	var times []int

	for _, j := range r.Jobs {
		if j.Task == task {
			times = append(times, j.ReleaseTime)
		}
	}

	return times
}

type flatPolicy struct{}

func (flatPolicy) Name() string { return "flat" }

func (flatPolicy) Compare(_, _ *model.Job) int { return 0 }

var _ = Describe("Engine", func() {
	twoTasks := []model.Task{
		{Name: "T1", WCET: 1, Period: 4, Deadline: 4},
		{Name: "T2", WCET: 2, Period: 5, Deadline: 5},
	}

	Context("two tasks under preemptive EDF", func() {
		var result *Result

		BeforeEach(func() {
			var err error
			result, err = Run(twoTasks, 20, policy.NewEDF(), true)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should meet every deadline", func() {
			st := result.Statistics
			Expect(st.Missed).To(Equal(0))
			Expect(st.Released).To(Equal(9))
			Expect(st.Completed).To(Equal(9))
			Expect(st.Open).To(Equal(0))
			Expect(st.SuccessRate).To(Equal(1.0))
			Expect(st.TotalLateness).To(Equal(0))
		})

		It("should release jobs periodically", func() {
			Expect(releaseTimesOf(result, "T1")).To(Equal([]int{0, 4, 8, 12, 16}))
			Expect(releaseTimesOf(result, "T2")).To(Equal([]int{0, 5, 10, 15}))
		})

		It("should produce the expected timeline", func() {
			Expect(occupants(result.Timeline)).To(Equal([]string{
				"T1", "T2", "T2", "IDLE", "T1", "T2", "T2", "IDLE",
				"T1", "IDLE", "T2", "T2", "T1", "IDLE", "IDLE", "T2",
				"T1", "T2", "IDLE", "IDLE",
			}))
		})

		It("should break the deadline tie at tick 16 by name", func() {
			Expect(result.Statistics.Preemptions).To(Equal(1))
		})

		It("should report per-task statistics", func() {
			t2, ok := result.Statistics.Task("T2")
			Expect(ok).To(BeTrue())
			Expect(t2.Released).To(Equal(4))
			Expect(t2.ExecutedTicks).To(Equal(8))
			Expect(t2.MaxResponseTime).To(Equal(3))
			Expect(result.Statistics.BusyTicks).To(Equal(13))
			Expect(result.Statistics.Utilization()).To(BeNumerically("~", 0.65))
		})

		It("should record completion times", func() {
			first := result.Jobs[0]
			Expect(first.ID).To(Equal("T1#0"))
			Expect(*first.CompletionTime).To(Equal(1))
			Expect(first.Outcome).To(Equal(model.OutcomeCompleted))
		})
	})

	Context("overloaded tasks under preemptive RM", func() {
		It("should make the lower priority task miss", func() {
			tasks := []model.Task{
				{Name: "T1", WCET: 3, Period: 4, Deadline: 4},
				{Name: "T2", WCET: 3, Period: 5, Deadline: 5},
			}

			result, err := Run(tasks, 20, policy.NewRM(), true)
			Expect(err).NotTo(HaveOccurred())

			t1, _ := result.Statistics.Task("T1")
			t2, _ := result.Statistics.Task("T2")
			Expect(t1.Missed).To(Equal(0))
			Expect(t2.Missed).To(BeNumerically(">=", 1))
			Expect(result.Statistics.TotalLateness).To(Equal(0))
			Expect(result.Reconcile()).To(Succeed())
		})
	})

	Context("non-preemptive blocking", func() {
		tasks := []model.Task{
			{Name: "H", WCET: 1, Period: 5, Deadline: 1},
			{Name: "L", WCET: 5, Period: 20, Deadline: 20},
		}

		It("should make the urgent job wait", func() {
			result, err := Run(tasks, 20, policy.NewRM(), false)
			Expect(err).NotTo(HaveOccurred())

			Expect(occupants(result.Timeline)[:7]).To(Equal([]string{
				"H", "L", "L", "L", "L", "L", "IDLE",
			}))
			h, _ := result.Statistics.Task("H")
			Expect(h.Missed).To(Equal(1))
			Expect(result.Statistics.Preemptions).To(Equal(0))
		})

		It("should not miss when preemption is allowed", func() {
			result, err := Run(tasks, 20, policy.NewRM(), true)
			Expect(err).NotTo(HaveOccurred())

			Expect(occupants(result.Timeline)[:7]).To(Equal([]string{
				"H", "L", "L", "L", "L", "H", "L",
			}))
			Expect(result.Statistics.Missed).To(Equal(0))
			Expect(result.Statistics.Preemptions).To(Equal(1))
		})
	})

	Context("miss policies", func() {
		tasks := []model.Task{
			{Name: "H", WCET: 2, Period: 3, Deadline: 3},
			{Name: "L", WCET: 3, Period: 6, Deadline: 6},
		}

		It("should drop a job at its deadline", func() {
			result, err := Run(tasks, 12, policy.NewRM(), true)
			Expect(err).NotTo(HaveOccurred())

			st := result.Statistics
			Expect(st.Released).To(Equal(6))
			Expect(st.Completed).To(Equal(4))
			Expect(st.Missed).To(Equal(1))
			Expect(st.Open).To(Equal(1))
			Expect(st.TotalLateness).To(Equal(0))
			Expect(st.Preemptions).To(Equal(2))
		})

		It("should let an overdue job finish and measure its lateness", func() {
			e := MakeBuilder().
				WithTasks(tasks).
				WithHorizon(12).
				WithPolicy(policy.NewRM()).
				WithMissPolicy(ContinueAfterMiss).
				Build()

			result, err := e.Run()
			Expect(err).NotTo(HaveOccurred())

			Expect(occupants(result.Timeline)).To(Equal([]string{
				"H", "H", "L", "H", "H", "L", "H", "H", "L", "H", "H", "L",
			}))

			st := result.Statistics
			Expect(st.Completed).To(Equal(4))
			Expect(st.Missed).To(Equal(1))
			Expect(st.Open).To(Equal(1))
			Expect(st.TotalLateness).To(Equal(3))

			late := result.Jobs[1]
			Expect(late.ID).To(Equal("L#0"))
			Expect(late.Outcome).To(Equal(model.OutcomeMissed))
			Expect(*late.CompletionTime).To(Equal(9))
			Expect(late.Overdue).To(BeTrue())
			Expect(result.MissPolicy).To(Equal(ContinueAfterMiss))
		})
	})

	Context("properties", func() {
		randomTaskSet := func(rng *rand.Rand) ([]model.Task, int) {
			periods := []int{2, 3, 4, 5, 6, 8, 10, 12}

			for {
				n := rng.Intn(4) + 1
				tasks := make([]model.Task, 0, n)
				hyper := 1

				for i := 0; i < n; i++ {
					p := periods[rng.Intn(len(periods))]
					c := rng.Intn(p) + 1
					tasks = append(tasks, model.Task{
						Name: string(rune('A' + i)), WCET: c, Period: p, Deadline: p,
					})
					hyper = lcm(hyper, p)
				}

				demand := 0
				for _, t := range tasks {
					demand += t.WCET * (hyper / t.Period)
				}

				if demand <= hyper {
					return tasks, hyper
				}
			}
		}

		It("should never miss under EDF when utilization is at most one", func() {
			rng := rand.New(rand.NewSource(7))

			for i := 0; i < 200; i++ {
				tasks, hyper := randomTaskSet(rng)

				result, err := Run(tasks, hyper, policy.NewEDF(), true)
				Expect(err).NotTo(HaveOccurred())
				Expect(result.Statistics.Missed).To(Equal(0), "tasks %v", tasks)
				Expect(result.Statistics.Open).To(Equal(0), "tasks %v", tasks)
			}
		})

		It("should be deterministic, complete, and conservative", func() {
			rng := rand.New(rand.NewSource(11))

			for i := 0; i < 100; i++ {
				tasks, hyper := randomTaskSet(rng)
				horizon := hyper + rng.Intn(10)

				for _, p := range []policy.Policy{policy.NewEDF(), policy.NewRM()} {
					for _, preemptive := range []bool{true, false} {
						r1, err := Run(tasks, horizon, p, preemptive)
						Expect(err).NotTo(HaveOccurred())
						r2, err := Run(tasks, horizon, p, preemptive)
						Expect(err).NotTo(HaveOccurred())

						b1, _ := json.Marshal(r1)
						b2, _ := json.Marshal(r2)
						Expect(b1).To(Equal(b2))

						Expect(r1.Timeline).To(HaveLen(horizon))
						st := r1.Statistics
						Expect(st.Released).To(Equal(st.Completed + st.Missed + st.Open))
					}
				}
			}
		})

		It("should run non-preemptive jobs without interruption", func() {
			rng := rand.New(rand.NewSource(13))

			for i := 0; i < 100; i++ {
				tasks, hyper := randomTaskSet(rng)

				for _, p := range []policy.Policy{policy.NewEDF(), policy.NewRM()} {
					result, err := Run(tasks, hyper, p, false)
					Expect(err).NotTo(HaveOccurred())

					for _, j := range result.Jobs {
						if j.Outcome != model.OutcomeCompleted {
							continue
						}

						wcet := tasks[j.TaskIndex].WCET
						end := *j.CompletionTime
						for t := end - wcet; t < end; t++ {
							Expect(result.Timeline[t].Task).To(Equal(j.Task))
						}
					}
				}
			}
		})
	})

	Context("event-driven stepping", func() {
		type run struct {
			result *Result
			trace  []string
		}

		simulate := func(
			tasks []model.Task,
			horizon int,
			p policy.Policy,
			preemptive bool,
			missPolicy MissPolicy,
			eventDriven bool,
		) run {
			var r run

			hook := hooking.HookFunc(func(ctx hooking.HookCtx) {
				entry := fmt.Sprintf("%d %s", ctx.Now, ctx.Pos.Name)

				switch item := ctx.Item.(type) {
				case model.JobRecord:
					entry += " " + item.ID
				case Slot:
					entry += " " + item.Occupant()
				}

				r.trace = append(r.trace, entry)
			})

			e := MakeBuilder().
				WithTasks(tasks).
				WithHorizon(horizon).
				WithPolicy(p).
				WithPreemption(preemptive).
				WithMissPolicy(missPolicy).
				WithEventDriven(eventDriven).
				WithHook(hook).
				Build()
			Expect(e.EventDriven()).To(Equal(eventDriven))

			var err error
			r.result, err = e.Run()
			Expect(err).NotTo(HaveOccurred())

			return r
		}

		expectSameRun := func(
			tasks []model.Task,
			horizon int,
			p policy.Policy,
			preemptive bool,
			missPolicy MissPolicy,
		) {
			ticked := simulate(tasks, horizon, p, preemptive, missPolicy, false)
			evented := simulate(tasks, horizon, p, preemptive, missPolicy, true)

			Expect(evented.result.Timeline).To(Equal(ticked.result.Timeline),
				"tasks %v", tasks)
			Expect(evented.result.Statistics).To(Equal(ticked.result.Statistics),
				"tasks %v", tasks)
			Expect(evented.result.Jobs).To(Equal(ticked.result.Jobs),
				"tasks %v", tasks)
			Expect(evented.trace).To(Equal(ticked.trace), "tasks %v", tasks)
		}

		It("should reproduce the two task EDF run", func() {
			r := simulate(twoTasks, 20, policy.NewEDF(), true,
				DropAtDeadline, true)

			Expect(occupants(r.result.Timeline)).To(Equal([]string{
				"T1", "T2", "T2", "IDLE", "T1", "T2", "T2", "IDLE", "T1", "IDLE",
				"T2", "T2", "T1", "IDLE", "IDLE", "T2", "T1", "T2", "IDLE", "IDLE",
			}))
			Expect(r.result.Statistics.Completed).To(Equal(9))
			Expect(r.result.Statistics.Preemptions).To(Equal(1))
			Expect(r.result.Reconcile()).To(Succeed())
		})

		DescribeTable("should match tick stepping",
			func(
				tasks []model.Task,
				horizon int,
				p policy.Policy,
				preemptive bool,
				missPolicy MissPolicy,
			) {
				expectSameRun(tasks, horizon, p, preemptive, missPolicy)
			},
			Entry("two tasks under EDF", twoTasks, 20,
				policy.NewEDF(), true, DropAtDeadline),
			Entry("overloaded RM", []model.Task{
				{Name: "T1", WCET: 3, Period: 4, Deadline: 4},
				{Name: "T2", WCET: 3, Period: 5, Deadline: 5},
			}, 20, policy.NewRM(), true, DropAtDeadline),
			Entry("non-preemptive blocking", []model.Task{
				{Name: "H", WCET: 1, Period: 5, Deadline: 1},
				{Name: "L", WCET: 5, Period: 20, Deadline: 20},
			}, 20, policy.NewRM(), false, DropAtDeadline),
			Entry("overdue jobs that continue", []model.Task{
				{Name: "H", WCET: 2, Period: 3, Deadline: 3},
				{Name: "L", WCET: 3, Period: 6, Deadline: 6},
			}, 12, policy.NewRM(), true, ContinueAfterMiss),
		)

		It("should match tick stepping on random task sets", func() {
			rng := rand.New(rand.NewSource(17))
			periods := []int{2, 3, 4, 5, 6, 8, 10, 12}

			for i := 0; i < 150; i++ {
				n := rng.Intn(4) + 1
				tasks := make([]model.Task, 0, n)

				for k := 0; k < n; k++ {
					period := periods[rng.Intn(len(periods))]
					deadline := rng.Intn(period) + 1
					tasks = append(tasks, model.Task{
						Name:     string(rune('A' + k)),
						WCET:     rng.Intn(deadline) + 1,
						Period:   period,
						Deadline: deadline,
					})
				}

				horizon := rng.Intn(60) + 1

				for _, p := range []policy.Policy{policy.NewEDF(), policy.NewRM()} {
					for _, preemptive := range []bool{true, false} {
						for _, mp := range []MissPolicy{DropAtDeadline, ContinueAfterMiss} {
							expectSameRun(tasks, horizon, p, preemptive, mp)
						}
					}
				}
			}
		})

		It("should report a policy that cannot order jobs", func() {
			_, err := MakeBuilder().
				WithTasks(twoTasks).
				WithHorizon(5).
				WithPolicy(flatPolicy{}).
				WithEventDriven(true).
				Build().
				Run()

			Expect(err).To(MatchError(ErrEngineFault))
		})
	})

	Context("hooks", func() {
		var mockCtrl *gomock.Controller

		BeforeEach(func() {
			mockCtrl = gomock.NewController(GinkgoT())
		})

		AfterEach(func() {
			mockCtrl.Finish()
		})

		It("should report every event", func() {
			counts := make(map[string]int)
			var items []any

			hook := hooking.HookFunc(func(ctx hooking.HookCtx) {
				counts[ctx.Pos.Name]++
				if ctx.Pos == HookPosJobRelease {
					items = append(items, ctx.Item)
				}
			})

			e := MakeBuilder().
				WithTasks(twoTasks).
				WithHorizon(20).
				WithPolicy(policy.NewEDF()).
				WithHook(hook).
				Build()

			_, err := e.Run()
			Expect(err).NotTo(HaveOccurred())

			Expect(counts).To(Equal(map[string]int{
				"RunStart":    1,
				"JobRelease":  9,
				"JobPreempt":  1,
				"JobComplete": 9,
				"TickEnd":     20,
				"RunEnd":      1,
			}))
			Expect(items[0]).To(BeAssignableToTypeOf(model.JobRecord{}))
		})

		It("should not invoke hooks for an invalid configuration", func() {
			hook := NewMockHook(mockCtrl)

			e := MakeBuilder().
				WithTasks(twoTasks).
				WithHorizon(0).
				WithPolicy(policy.NewEDF()).
				WithHook(hook).
				Build()

			_, err := e.Run()
			Expect(err).To(MatchError(ErrInvalidConfig))
			Expect(e.State()).To(Equal(NotStarted))
		})

		It("should pass the current tick to hooks", func() {
			hook := NewMockHook(mockCtrl)
			hook.EXPECT().Func(gomock.Any()).Do(func(ctx hooking.HookCtx) {
				if ctx.Pos == HookPosTickEnd {
					Expect(ctx.Item.(Slot).Tick).To(Equal(ctx.Now))
				}
			}).AnyTimes()

			e := MakeBuilder().
				WithTasks(twoTasks).
				WithHorizon(5).
				WithPolicy(policy.NewEDF()).
				WithHook(hook).
				Build()

			_, err := e.Run()
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Context("errors", func() {
		DescribeTable("invalid configurations",
			func(tasks []model.Task, horizon int, p policy.Policy) {
				_, err := Run(tasks, horizon, p, true)

				Expect(err).To(MatchError(ErrInvalidConfig))
				Expect(err).NotTo(MatchError(ErrEngineFault))
			},
			Entry("zero horizon", twoTasks, 0, policy.NewEDF()),
			Entry("no policy", twoTasks, 10, nil),
			Entry("zero wcet",
				[]model.Task{{Name: "A", WCET: 0, Period: 4, Deadline: 4}},
				10, policy.NewEDF()),
			Entry("deadline beyond period",
				[]model.Task{{Name: "A", WCET: 1, Period: 4, Deadline: 5}},
				10, policy.NewEDF()),
			Entry("wcet beyond deadline",
				[]model.Task{{Name: "A", WCET: 3, Period: 4, Deadline: 2}},
				10, policy.NewEDF()),
			Entry("duplicated names",
				[]model.Task{
					{Name: "A", WCET: 1, Period: 4, Deadline: 4},
					{Name: "A", WCET: 1, Period: 5, Deadline: 5},
				},
				10, policy.NewEDF()),
		)

		It("should wrap task errors", func() {
			_, err := Run([]model.Task{{Name: "A", WCET: 0, Period: 4, Deadline: 4}},
				10, policy.NewEDF(), true)

			Expect(err).To(MatchError(model.ErrInvalidTask))
		})

		It("should report a policy that cannot order jobs", func() {
			_, err := Run(twoTasks, 10, flatPolicy{}, true)

			Expect(err).To(MatchError(ErrEngineFault))
			Expect(err).NotTo(MatchError(ErrInvalidConfig))
		})

		It("should refuse to run twice", func() {
			e := MakeBuilder().
				WithTasks(twoTasks).
				WithHorizon(4).
				WithPolicy(policy.NewEDF()).
				Build()

			_, err := e.Run()
			Expect(err).NotTo(HaveOccurred())
			Expect(e.State()).To(Equal(Finished))
			Expect(e.Result()).NotTo(BeNil())

			_, err = e.Run()
			Expect(err).To(MatchError(ErrEngineFault))
		})

		It("should idle with no tasks", func() {
			result, err := Run(nil, 3, policy.NewEDF(), true)

			Expect(err).NotTo(HaveOccurred())
			Expect(occupants(result.Timeline)).To(Equal([]string{"IDLE", "IDLE", "IDLE"}))
			Expect(result.Statistics.SuccessRate).To(Equal(0.0))
		})
	})

	It("should detect a broken timeline", func() {
		r := &Result{Horizon: 2, Timeline: Timeline{{Tick: 0}}}
		Expect(r.Reconcile()).To(MatchError(ErrEngineFault))

		r = &Result{Horizon: 1, Timeline: Timeline{{Tick: 0}},
			Statistics: Statistics{Released: 1}}
		Expect(r.Reconcile()).To(MatchError(ErrEngineFault))
	})

	It("should label results", func() {
		r := &Result{Policy: "Rate Monotonic (RM)", Preemptive: false}
		Expect(r.Label()).To(Equal("Rate Monotonic (RM) (Non-preemptive)"))
	})

	It("should parse miss policies", func() {
		p, err := ParseMissPolicy("continue")
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(Equal(ContinueAfterMiss))
		Expect(DropAtDeadline.String()).To(Equal("drop"))

		_, err = ParseMissPolicy("retry")
		Expect(err).To(HaveOccurred())
	})
})

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}

	return a
}

func lcm(a, b int) int {
	return a / gcd(a, b) * b
}
