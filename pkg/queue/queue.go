package queue

import "sync"

// Queue is an unbounded FIFO with a single blocking point (Park).
//
// Append and Pop never block beyond lock contention. A worker that finds the queue
// empty calls Park, which sleeps until an item arrives or SignalResume is called.
// The resume flag closes the window between the emptiness check and the wait:
// a resume requested while the worker is busy is remembered until the next Park.
type Queue[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []T
	head   int
	resume bool
}

func New[T any]() *Queue[T] {
	q := &Queue[T]{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Append pushes item to the tail and wakes a parked reader.
func (q *Queue[T]) Append(item T) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.cond.Signal()
	q.mu.Unlock()
}

// Pop removes the head item. ok is false when the queue is empty.
func (q *Queue[T]) Pop() (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.lenLocked() == 0 {
		return item, false
	}

	var zero T
	item = q.items[q.head]
	q.items[q.head] = zero
	q.head++

	// compact once the consumed prefix dominates the backing array
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	} else if q.head > 64 && q.head*2 >= len(q.items) {
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	return item, true
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lenLocked()
}

func (q *Queue[T]) lenLocked() int {
	return len(q.items) - q.head
}

// Park blocks while the queue is empty and no resume was requested.
//
// idle, when not nil, runs with the queue lock held each time the queue is found
// empty, right before waiting. If it returns true Park returns immediately without
// waiting and without consuming the resume flag. Park returns true when it woke up
// normally (item available or resume observed) and false when idle asked to leave.
//
// idle must not call back into the queue.
func (q *Queue[T]) Park(idle func() bool) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.lenLocked() == 0 && !q.resume {
		if idle != nil && idle() {
			return false
		}
		q.cond.Wait()
	}
	// only the waiter clears the flag
	q.resume = false
	return true
}

// SignalResume forces a parked reader to return even if nothing was appended.
func (q *Queue[T]) SignalResume() {
	q.mu.Lock()
	q.resume = true
	q.cond.Signal()
	q.mu.Unlock()
}

// Drain removes and returns every queued item.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]T, q.lenLocked())
	copy(out, q.items[q.head:])
	clear(q.items)
	q.items = q.items[:0]
	q.head = 0
	return out
}
