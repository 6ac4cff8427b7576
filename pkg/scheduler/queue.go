package scheduler

// queue is a growable FIFO. The scheduler uses it as the shared
// overflow queue: jobs submitted before Start and dependency releases
// that happen outside worker context land here until a worker drains
// them. Callers synchronize access.
type queue[T any] []T

func newQueue[T any](capacity int) *queue[T] {
	q := make(queue[T], 0, capacity)
	return &q
}

func (q *queue[T]) Len() int { return len(*q) }

func (q *queue[T]) Pop() T {
	old := *q
	x := old[0]
	var zero T
	old[0] = zero
	*q = old[1:]
	return x
}

func (q *queue[T]) Push(t T) {
	*q = append(*q, t)
}
