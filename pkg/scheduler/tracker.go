package scheduler

import "sync"

// trackerEntry is one gated job: a submitted descriptor waiting for
// its remaining prerequisite count to reach zero.
type trackerEntry struct {
	job       *job
	remaining int
}

// tracker gates jobs on prerequisite completion. A single mutex covers
// both maps, so register and onCompleted serialize: a prerequisite
// observed non-terminal during register cannot slip its completion in
// before the waiter is recorded.
//
// Presence in entries is the not-yet-released flag. Both release and
// doom delete the entry first, so a job referenced from several waiter
// lists is handed out exactly once and stale references are skipped.
//
// Lock order: tracker.mu may take handle.mu (state reads), never the
// scheduler mutex. The tracker never enqueues; it returns the jobs to
// release or doom and the caller acts after unlocking.
type tracker struct {
	mu              sync.Mutex
	entries         map[JobID]*trackerEntry
	waiters         map[JobID][]*trackerEntry
	cancelOnFailure bool
}

func newTracker(cancelOnFailure bool) *tracker {
	return &tracker{
		entries:         make(map[JobID]*trackerEntry),
		waiters:         make(map[JobID][]*trackerEntry),
		cancelOnFailure: cancelOnFailure,
	}
}

// register records j's outstanding prerequisites. gated reports that j
// must wait; doomed reports that a prerequisite already failed or was
// cancelled while cancel-on-failure is active, in which case nothing
// is recorded and the caller cancels j. Duplicate and nil prerequisite
// handles are ignored.
func (t *tracker) register(j *job, prereqs []*Handle) (gated, doomed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	seen := make(map[JobID]struct{}, len(prereqs))
	var open []*Handle
	for _, p := range prereqs {
		if p == nil {
			continue
		}
		if _, dup := seen[p.id]; dup {
			continue
		}
		seen[p.id] = struct{}{}
		switch p.State() {
		case StateFailed, StateCancelled:
			if t.cancelOnFailure {
				return false, true
			}
			// Terminal either way: dependents of a failed or cancelled
			// prerequisite still run in the default mode.
		case StateCompleted:
		default:
			open = append(open, p)
		}
	}
	if len(open) == 0 {
		return false, false
	}

	e := &trackerEntry{job: j, remaining: len(open)}
	t.entries[j.handle.id] = e
	for _, p := range open {
		t.waiters[p.id] = append(t.waiters[p.id], e)
	}
	return true, false
}

// onCompleted consumes h's waiter list after h reached a terminal
// state. Each waiter's counter drops by one; jobs hitting zero come
// back in release. With cancel-on-failure active and h Failed or
// Cancelled, waiters come back in doom instead, and the doom spreads
// transitively through jobs gated on the doomed ones. The worklist
// runs under one lock acquisition so a concurrent register observes
// either none or all of the cascade.
func (t *tracker) onCompleted(h *Handle) (release, doom []*job) {
	t.mu.Lock()
	defer t.mu.Unlock()

	type event struct {
		id  JobID
		bad bool
	}
	bad := false
	if t.cancelOnFailure {
		st := h.State()
		bad = st == StateFailed || st == StateCancelled
	}
	work := []event{{id: h.id, bad: bad}}

	for len(work) > 0 {
		ev := work[0]
		work = work[1:]
		ws := t.waiters[ev.id]
		delete(t.waiters, ev.id)
		for _, e := range ws {
			id := e.job.handle.id
			if _, ok := t.entries[id]; !ok {
				continue
			}
			if ev.bad {
				delete(t.entries, id)
				doom = append(doom, e.job)
				work = append(work, event{id: id, bad: true})
				continue
			}
			e.remaining--
			if e.remaining == 0 {
				delete(t.entries, id)
				release = append(release, e.job)
			}
		}
	}
	return release, doom
}

// drain empties the tracker and returns every still-gated job. Used by
// the shutdown sweep; the tracker accepts no registrations afterwards
// because Submit is already refusing new work by then.
func (t *tracker) drain() []*job {
	t.mu.Lock()
	defer t.mu.Unlock()
	jobs := make([]*job, 0, len(t.entries))
	for _, e := range t.entries {
		jobs = append(jobs, e.job)
	}
	clear(t.entries)
	clear(t.waiters)
	return jobs
}

// gatedLen reports how many jobs are currently waiting on
// prerequisites.
func (t *tracker) gatedLen() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
