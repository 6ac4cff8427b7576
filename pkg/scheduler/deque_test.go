package scheduler

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func newTestJob(id JobID) *job {
	return &job{handle: newHandle(nil, id)}
}

var _ = Describe("deque", func() {
	var d *deque

	BeforeEach(func() {
		d = &deque{}
	})

	It("should pop the newest job first at the bottom", func() {
		for id := 1; id <= 3; id++ {
			Expect(d.pushBottom(newTestJob(JobID(id)))).To(BeTrue())
		}

		Expect(d.popBottom().handle.ID()).To(Equal(JobID(3)))
		Expect(d.popBottom().handle.ID()).To(Equal(JobID(2)))
		Expect(d.popBottom().handle.ID()).To(Equal(JobID(1)))
		Expect(d.popBottom()).To(BeNil())
	})

	It("should steal the oldest job from the top", func() {
		for id := 1; id <= 3; id++ {
			Expect(d.pushBottom(newTestJob(JobID(id)))).To(BeTrue())
		}

		Expect(d.popTop().handle.ID()).To(Equal(JobID(1)))
		Expect(d.popTop().handle.ID()).To(Equal(JobID(2)))
		Expect(d.popBottom().handle.ID()).To(Equal(JobID(3)))
		Expect(d.popTop()).To(BeNil())
	})

	It("should keep cold-end pushes furthest from the owner", func() {
		Expect(d.pushBottom(newTestJob(1))).To(BeTrue())
		Expect(d.pushBottom(newTestJob(2))).To(BeTrue())
		Expect(d.pushTop(newTestJob(9))).To(BeTrue())

		// The owner works through its own jobs before the external one,
		// while a thief would take the external one first.
		Expect(d.popBottom().handle.ID()).To(Equal(JobID(2)))
		Expect(d.popBottom().handle.ID()).To(Equal(JobID(1)))
		Expect(d.popBottom().handle.ID()).To(Equal(JobID(9)))
	})

	It("should hand everything back on drain and refuse further pushes", func() {
		Expect(d.pushBottom(newTestJob(1))).To(BeTrue())
		Expect(d.pushTop(newTestJob(2))).To(BeTrue())

		jobs := d.drain()
		Expect(jobs).To(HaveLen(2))

		Expect(d.pushBottom(newTestJob(3))).To(BeFalse())
		Expect(d.pushTop(newTestJob(4))).To(BeFalse())
		Expect(d.popBottom()).To(BeNil())
		Expect(d.popTop()).To(BeNil())
		Expect(d.drain()).To(BeEmpty())
	})

	It("should report its length", func() {
		Expect(d.len()).To(BeZero())
		d.pushBottom(newTestJob(1))
		d.pushTop(newTestJob(2))
		Expect(d.len()).To(Equal(2))
		d.popBottom()
		Expect(d.len()).To(Equal(1))
	})
})
