package scheduler_test

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mgriffes/jobforge/pkg/scheduler"
)

var _ = Describe("Scheduler properties", func() {
	var (
		ctx context.Context
		s   *scheduler.Scheduler
	)

	BeforeEach(func() {
		ctx = context.Background()
	})

	AfterEach(func() {
		if s != nil {
			s.Shutdown(false)
		}
	})

	It("should lose no jobs and run each exactly once across random submission bursts", func() {
		s = scheduler.New()
		Expect(s.Start(4)).To(Succeed())

		const (
			submitters       = 8
			jobsPerSubmitter = 250
			total            = submitters * jobsPerSubmitter
		)
		counters := make([]atomic.Uint32, total)
		handles := make([]*scheduler.Handle, total)
		submitErrs := make(chan error, total)

		var wg sync.WaitGroup
		for i := range submitters {
			wg.Add(1)
			go func(base int, seed int64) {
				defer wg.Done()
				rng := rand.New(rand.NewSource(seed))
				var mine []*scheduler.Handle
				for j := range jobsPerSubmitter {
					idx := base + j
					c := &counters[idx]
					var prereqs []*scheduler.Handle
					if len(mine) > 0 {
						for range rng.Intn(3) {
							prereqs = append(prereqs, mine[rng.Intn(len(mine))])
						}
					}
					h, err := s.Submit(ctx, func(ctx context.Context) (any, error) {
						c.Add(1)
						return nil, nil
					}, prereqs...)
					if err != nil {
						submitErrs <- fmt.Errorf("submitter %d, job %d: %w", base, j, err)
						return
					}
					mine = append(mine, h)
					handles[idx] = h
				}
			}(i*jobsPerSubmitter, GinkgoRandomSeed()+int64(i))
		}
		wg.Wait()
		close(submitErrs)
		for err := range submitErrs {
			Expect(err).NotTo(HaveOccurred())
		}

		s.Shutdown(true)

		for i, h := range handles {
			Expect(h.State()).To(Equal(scheduler.StateCompleted))
			Expect(counters[i].Load()).To(Equal(uint32(1)))
		}
		st := s.Stats()
		Expect(st.Submitted).To(Equal(uint64(total)))
		Expect(st.Completed).To(Equal(uint64(total)))
		Expect(st.Outstanding).To(BeZero())
	})

	It("should start dependents strictly after their prerequisites across randomized graphs", func() {
		s = scheduler.New()
		Expect(s.Start(4)).To(Succeed())

		type node struct {
			start atomic.Int64
			end   atomic.Int64
		}

		const graphs = 10000
		var clock atomic.Int64
		rng := rand.New(rand.NewSource(GinkgoRandomSeed()))

		var (
			nodes   []*node
			edges   [][2]int
			handles []*scheduler.Handle
		)

		for range graphs {
			size := 2 + rng.Intn(4)
			base := len(nodes)
			for k := range size {
				nd := &node{}
				nodes = append(nodes, nd)

				var prereqs []*scheduler.Handle
				if k > 0 {
					first := base + rng.Intn(k)
					prereqs = append(prereqs, handles[first])
					edges = append(edges, [2]int{first, base + k})
					if k > 1 && rng.Intn(2) == 0 {
						if second := base + rng.Intn(k); second != first {
							prereqs = append(prereqs, handles[second])
							edges = append(edges, [2]int{second, base + k})
						}
					}
				}

				h, err := s.Submit(ctx, func(ctx context.Context) (any, error) {
					nd.start.Store(clock.Add(1))
					nd.end.Store(clock.Add(1))
					return nil, nil
				}, prereqs...)
				Expect(err).NotTo(HaveOccurred())
				handles = append(handles, h)
			}
		}

		s.Shutdown(true)

		for _, h := range handles {
			Expect(h.State()).To(Equal(scheduler.StateCompleted))
		}
		for _, e := range edges {
			parent, child := nodes[e[0]], nodes[e[1]]
			Expect(child.start.Load()).To(BeNumerically(">", parent.end.Load()))
		}
	})

	It("should release a dependent exactly once when its prerequisites finish together", func() {
		s = scheduler.New()
		Expect(s.Start(8)).To(Succeed())

		const rounds = 100
		for range rounds {
			gate := make(chan struct{})
			var execs atomic.Int32

			prereqs := make([]*scheduler.Handle, 0, 8)
			for range 8 {
				p, err := s.Submit(ctx, func(ctx context.Context) (any, error) {
					<-gate
					return nil, nil
				})
				Expect(err).NotTo(HaveOccurred())
				prereqs = append(prereqs, p)
			}
			dep, err := s.Submit(ctx, func(ctx context.Context) (any, error) {
				execs.Add(1)
				return nil, nil
			}, prereqs...)
			Expect(err).NotTo(HaveOccurred())

			// All eight prerequisites complete near-simultaneously.
			close(gate)
			_, err = dep.Wait(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(execs.Load()).To(Equal(int32(1)))
		}
	})

	It("should spread equal-cost jobs across workers through stealing", func() {
		s = scheduler.New()
		Expect(s.Start(4)).To(Succeed())

		const jobs = 400
		var children []*scheduler.Handle

		// Everything is submitted from inside one payload, so every job
		// lands on a single worker's deque and the others must steal.
		root, err := s.Submit(ctx, func(pctx context.Context) (any, error) {
			for range jobs {
				h, err := s.Submit(pctx, func(ctx context.Context) (any, error) {
					time.Sleep(time.Millisecond)
					return nil, nil
				})
				if err != nil {
					return nil, err
				}
				children = append(children, h)
			}
			return nil, nil
		})
		Expect(err).NotTo(HaveOccurred())
		_, err = root.Wait(ctx)
		Expect(err).NotTo(HaveOccurred())

		for _, err := range s.WaitAll(ctx, children...) {
			Expect(err).NotTo(HaveOccurred())
		}
		s.Shutdown(true)

		st := s.Stats()
		Expect(st.Stolen).To(BeNumerically(">", uint64(0)))

		minExec, maxExec := st.PerWorker[0].Executed, st.PerWorker[0].Executed
		for _, w := range st.PerWorker[1:] {
			if w.Executed < minExec {
				minExec = w.Executed
			}
			if w.Executed > maxExec {
				maxExec = w.Executed
			}
		}
		Expect(maxExec - minExec).To(BeNumerically("<=", uint64(2*jobs/4)))
	})

	It("should make a prerequisite's writes visible to its dependent", func() {
		s = scheduler.New()
		Expect(s.Start(4)).To(Succeed())

		// Plain shared variable, no synchronization of its own: the
		// dependency edge alone must order the write before the read.
		value := 0
		for i := range 1000 {
			f, err := s.Submit(ctx, func(ctx context.Context) (any, error) {
				value = i
				return nil, nil
			})
			Expect(err).NotTo(HaveOccurred())

			g, err := s.Submit(ctx, func(ctx context.Context) (any, error) {
				return value, nil
			}, f)
			Expect(err).NotTo(HaveOccurred())

			v, err := g.Wait(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal(i))
		}
	})

	It("should never execute a job it cancelled", func() {
		s = scheduler.New()
		Expect(s.Start(2)).To(Succeed())

		started := make(chan struct{}, 2)
		unblock := make(chan struct{})
		for range 2 {
			_, err := s.Submit(ctx, func(ctx context.Context) (any, error) {
				started <- struct{}{}
				<-unblock
				return nil, nil
			})
			Expect(err).NotTo(HaveOccurred())
		}
		Eventually(func() int { return len(started) }, 1*time.Second).Should(Equal(2))

		// Both workers are pinned; nothing below can start running.
		const queued = 50
		counters := make([]atomic.Uint32, queued)
		handles := make([]*scheduler.Handle, queued)
		for i := range queued {
			c := &counters[i]
			h, err := s.Submit(ctx, func(ctx context.Context) (any, error) {
				c.Add(1)
				return nil, nil
			})
			Expect(err).NotTo(HaveOccurred())
			handles[i] = h
		}

		go func() {
			time.Sleep(100 * time.Millisecond)
			close(unblock)
		}()
		s.Shutdown(false)

		for i, h := range handles {
			Expect(h.State()).To(Equal(scheduler.StateCancelled))
			Expect(counters[i].Load()).To(BeZero())
		}
	})
})
