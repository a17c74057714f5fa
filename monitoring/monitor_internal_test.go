package monitoring

import (
	"reflect"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rtsim/engine"
	"github.com/sarchlab/rtsim/model"
	"github.com/sarchlab/rtsim/policy"
)

func twoTasks() []model.Task {
	return []model.Task{
		{Name: "T1", WCET: 1, Period: 4, Deadline: 4},
		{Name: "T2", WCET: 2, Period: 5, Deadline: 5},
	}
}

func runTwoTasks() *engine.Result {
	result, err := engine.Run(twoTasks(), 20, policy.NewEDF(), true)
	Expect(err).ToNot(HaveOccurred())

	return result
}

var _ = Describe("walkFields", func() {
	var result *engine.Result

	BeforeEach(func() {
		result = runTwoTasks()
	})

	It("should walk int fields", func() {
		elem, err := walkFields(result, []string{"Statistics", "Released"})

		Expect(err).ToNot(HaveOccurred())
		Expect(elem.Kind()).To(Equal(reflect.Int))
		Expect(elem.Int()).To(Equal(int64(9)))
	})

	It("should walk slices", func() {
		elem, err := walkFields(result, []string{"Tasks", "1", "Name"})

		Expect(err).ToNot(HaveOccurred())
		Expect(elem.Kind()).To(Equal(reflect.String))
		Expect(elem.String()).To(Equal("T2"))
	})

	It("should dereference pointers at the end of the path", func() {
		elem, err := walkFields(result, []string{"Jobs", "0", "CompletionTime"})

		Expect(err).ToNot(HaveOccurred())
		Expect(elem.Kind()).To(Equal(reflect.Int))
		Expect(elem.Int()).To(Equal(int64(1)))
	})

	It("should walk struct", func() {
		elem, err := walkFields(result, []string{"Statistics"})

		Expect(err).ToNot(HaveOccurred())
		Expect(elem.Kind()).To(Equal(reflect.Struct))
		Expect(elem.Type().Name()).To(Equal("Statistics"))
	})

	It("should reject unknown fields", func() {
		_, err := walkFields(result, []string{"Statistics", "Nope"})

		Expect(err).To(MatchError(ContainSubstring("Statistics.Nope")))
	})

	It("should reject indices out of range", func() {
		_, err := walkFields(result, []string{"Tasks", "2"})

		Expect(err).To(HaveOccurred())
	})

	It("should reject walking into a scalar", func() {
		_, err := walkFields(result, []string{"Horizon", "X"})

		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("ProgressTracker", func() {
	It("should follow the run and register the result", func() {
		m := NewMonitor()
		tracker := NewProgressTracker(m, "run-1", "EDF")

		e := engine.MakeBuilder().
			WithTasks(twoTasks()).
			WithHorizon(20).
			WithPolicy(policy.NewEDF()).
			WithPreemption(true).
			WithHook(tracker).
			Build()

		_, err := e.Run()
		Expect(err).ToNot(HaveOccurred())

		bar := tracker.Bar()
		Expect(bar).ToNot(BeNil())
		Expect(bar.Name).To(Equal("EDF"))
		Expect(bar.Total).To(Equal(uint64(20)))
		Expect(bar.Finished).To(Equal(uint64(20)))
		Expect(bar.InProgress).To(BeZero())

		Expect(m.progressBars).To(BeEmpty())

		result, ok := m.Result("run-1")
		Expect(ok).To(BeTrue())
		Expect(result).To(BeIdenticalTo(e.Result()))
	})
})
