package model

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Job", func() {
	var (
		task Task
		job  *Job
	)

	BeforeEach(func() {
		task = Task{Name: "T2", WCET: 2, Period: 5, Deadline: 4}
		job = NewJob(task, 1, 2)
	})

	It("should be created ready", func() {
		Expect(job.ID()).To(Equal("T2#2"))
		Expect(job.TaskIndex()).To(Equal(1))
		Expect(job.ReleaseTime()).To(Equal(10))
		Expect(job.AbsoluteDeadline()).To(Equal(14))
		Expect(job.Remaining()).To(Equal(2))
		Expect(job.State()).To(Equal(JobReady))
		Expect(job.IsActive()).To(BeTrue())

		_, done := job.CompletionTime()
		Expect(done).To(BeFalse())
	})

	It("should run to completion", func() {
		Expect(job.Execute()).To(Succeed())
		Expect(job.State()).To(Equal(JobRunning))
		Expect(job.Execute()).To(Succeed())
		Expect(job.Remaining()).To(Equal(0))

		Expect(job.Complete(12)).To(Succeed())

		Expect(job.State()).To(Equal(JobCompleted))
		ct, done := job.CompletionTime()
		Expect(done).To(BeTrue())
		Expect(ct).To(Equal(12))
		Expect(job.Lateness()).To(Equal(0))

		r := job.Record()
		Expect(r.Outcome).To(Equal(OutcomeCompleted))
		Expect(*r.CompletionTime).To(Equal(12))
		Expect(r.ResponseTime).To(Equal(2))
	})

	It("should keep progress when preempted", func() {
		Expect(job.Execute()).To(Succeed())
		Expect(job.Preempt()).To(Succeed())

		Expect(job.State()).To(Equal(JobReady))
		Expect(job.Remaining()).To(Equal(1))
	})

	It("should not preempt a ready job", func() {
		Expect(job.Preempt()).To(MatchError(ErrIllegalTransition))
	})

	It("should not complete with remaining work", func() {
		Expect(job.Execute()).To(Succeed())
		Expect(job.Complete(11)).To(MatchError(ErrIllegalTransition))
	})

	It("should not execute once finished", func() {
		Expect(job.Miss(14)).To(Succeed())
		Expect(job.Execute()).To(MatchError(ErrIllegalTransition))
	})

	It("should miss at the deadline with zero lateness", func() {
		Expect(job.Miss(14)).To(Succeed())

		Expect(job.State()).To(Equal(JobMissed))
		Expect(job.Lateness()).To(Equal(0))
		Expect(job.Record().Outcome).To(Equal(OutcomeMissed))
	})

	It("should count a late completion as a miss", func() {
		job.MarkOverdue()
		Expect(job.Execute()).To(Succeed())
		Expect(job.Execute()).To(Succeed())
		Expect(job.Complete(17)).To(Succeed())

		Expect(job.State()).To(Equal(JobMissed))
		Expect(job.Lateness()).To(Equal(3))

		r := job.Record()
		Expect(r.Overdue).To(BeTrue())
		Expect(*r.CompletionTime).To(Equal(17))
	})

	It("should report open jobs", func() {
		Expect(job.Execute()).To(Succeed())
		Expect(job.Record().Outcome).To(Equal(OutcomeOpen))
	})

	It("should name states", func() {
		Expect(JobRunning.String()).To(Equal("Running"))
		text, err := JobMissed.MarshalText()
		Expect(err).NotTo(HaveOccurred())
		Expect(string(text)).To(Equal("Missed"))
	})
})
