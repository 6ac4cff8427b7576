package scheduler

import "runtime"

const (
	defaultOverflowCapacity = 64

	// Rescan passes a worker makes under IdleSpinThenWait before it
	// parks.
	idleSpinPasses = 4
)

type options struct {
	overflowCapacity int
	idlePolicy       IdlePolicy
	cancelOnFailure  bool
}

func defaultOptions() options {
	return options{
		overflowCapacity: defaultOverflowCapacity,
		idlePolicy:       IdleWait,
	}
}

// Option configures a Scheduler at construction time.
type Option func(*options)

// WithOverflowCapacity sets the initial capacity of the shared
// overflow queue. The queue still grows past it when needed.
func WithOverflowCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.overflowCapacity = n
		}
	}
}

// WithIdlePolicy selects the idle-wait behavior of workers.
func WithIdlePolicy(p IdlePolicy) Option {
	return func(o *options) {
		o.idlePolicy = p
	}
}

// WithCancelOnFailure cancels the pending dependents of a job that
// fails or is cancelled, cascading transitively. The default keeps
// dependents runnable: a dependent observes its prerequisite's failure
// only if it waits on the prerequisite's handle itself.
func WithCancelOnFailure() Option {
	return func(o *options) {
		o.cancelOnFailure = true
	}
}

// DefaultWorkerCount is the worker count used when none is configured:
// one per logical CPU, minus one for the submitting thread, never
// below one.
func DefaultWorkerCount() int {
	if n := runtime.NumCPU() - 1; n > 1 {
		return n
	}
	return 1
}
