package scheduler

import "sync"

// deque is a worker-owned double-ended job queue. The owning worker
// pushes and pops at the bottom (most recently pushed job first), so
// freshly released dependents run while their inputs are still warm.
// Everyone else touches the top: external submits with affinity land
// there, and idle workers steal from there, taking the oldest job.
//
// A plain mutex guards both ends. Once closed, a deque accepts no new
// jobs; pushes report false and the caller decides what to do with the
// orphan.
type deque struct {
	mu     sync.Mutex
	jobs   []*job
	closed bool
}

// pushBottom appends j at the hot end. Owner side.
func (d *deque) pushBottom(j *job) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	d.jobs = append(d.jobs, j)
	return true
}

// popBottom removes and returns the most recently pushed job, or nil
// when the deque is empty. Owner side.
func (d *deque) popBottom() *job {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := len(d.jobs)
	if n == 0 {
		return nil
	}
	j := d.jobs[n-1]
	d.jobs[n-1] = nil
	d.jobs = d.jobs[:n-1]
	return j
}

// pushTop inserts j at the cold end, behind everything the owner has
// queued. Used for external submissions routed to this worker.
func (d *deque) pushTop(j *job) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	d.jobs = append(d.jobs, nil)
	copy(d.jobs[1:], d.jobs)
	d.jobs[0] = j
	return true
}

// popTop removes and returns the oldest job, or nil when there is
// nothing to take. Thief side.
func (d *deque) popTop() *job {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.jobs) == 0 {
		return nil
	}
	j := d.jobs[0]
	d.jobs[0] = nil
	d.jobs = d.jobs[1:]
	return j
}

// drain closes the deque and hands back every queued job. Called once
// per deque during shutdown sweeps; later calls return nil.
func (d *deque) drain() []*job {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	jobs := d.jobs
	d.jobs = nil
	return jobs
}

func (d *deque) len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.jobs)
}
