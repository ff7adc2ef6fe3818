// Package pqueue provides a small priority queue that orders its contents
// lazily. Pushes only append and mark the queue unsorted; the sort happens on
// the next Pop or Top. This suits callers that push in bursts and then drain.
//
// Ties are resolved deterministically: the backing store is sorted with a
// stable sort, so among elements of equal priority the one pushed last is
// returned first.
package pqueue

import "sort"

type item[T comparable] struct {
	object   T
	priority float64
}

// Option configures a Queue.
type Option func(*options)

type options struct {
	low bool
}

// Low makes the queue return the lowest priority first instead of the
// highest.
func Low() Option {
	return func(o *options) {
		o.low = true
	}
}

// Queue is a priority queue of comparable elements. The zero value is not
// usable; create queues with New. A Queue is not safe for concurrent use.
type Queue[T comparable] struct {
	contents []item[T]
	sorted   bool
	low      bool
}

// New returns an empty queue. By default the highest priority is returned
// first.
func New[T comparable](opts ...Option) *Queue[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Queue[T]{sorted: true, low: o.low}
}

// Push adds object with the given priority.
func (q *Queue[T]) Push(object T, priority float64) {
	q.contents = append(q.contents, item[T]{object: object, priority: priority})
	q.sorted = false
}

// Pop removes and returns the next element and its priority. ok is false when
// the queue is empty.
func (q *Queue[T]) Pop() (object T, priority float64, ok bool) {
	if len(q.contents) == 0 {
		return object, 0, false
	}
	q.sort()

	last := len(q.contents) - 1
	it := q.contents[last]
	q.contents[last] = item[T]{}
	q.contents = q.contents[:last]
	return it.object, it.priority, true
}

// Top returns the next element and its priority without removing it. ok is
// false when the queue is empty.
func (q *Queue[T]) Top() (object T, priority float64, ok bool) {
	if len(q.contents) == 0 {
		return object, 0, false
	}
	q.sort()

	it := q.contents[len(q.contents)-1]
	return it.object, it.priority, true
}

// Includes reports whether object is currently queued.
func (q *Queue[T]) Includes(object T) bool {
	for i := len(q.contents) - 1; i >= 0; i-- {
		if q.contents[i].object == object {
			return true
		}
	}
	return false
}

// Size returns the number of queued elements.
func (q *Queue[T]) Size() int {
	return len(q.contents)
}

// Empty reports whether the queue holds no elements.
func (q *Queue[T]) Empty() bool {
	return len(q.contents) == 0
}

// sort orders the store so that the next element sits at the end.
func (q *Queue[T]) sort() {
	if q.sorted {
		return
	}
	if q.low {
		sort.SliceStable(q.contents, func(i, j int) bool {
			return q.contents[i].priority > q.contents[j].priority
		})
	} else {
		sort.SliceStable(q.contents, func(i, j int) bool {
			return q.contents[i].priority < q.contents[j].priority
		})
	}
	q.sorted = true
}
