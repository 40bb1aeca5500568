// Package queue provides the lock-free FIFO queue backing the buffer pool.
//
// Queue is an unbounded multi-producer/multi-consumer linked queue using the
// Michael & Scott CAS pattern. Each value is written into its node before the
// node is published with an atomic store and is never written again, so Peek
// is safe against concurrent Dequeue without any lock.
package queue

import "sync/atomic"

const cacheLinePad = 64

type node[T any] struct {
	value T
	next  atomic.Pointer[node[T]]
}

// Queue is a lock-free unbounded FIFO queue. The zero value is not usable;
// create queues with New.
type Queue[T any] struct {
	head atomic.Pointer[node[T]]
	_    [cacheLinePad]byte
	tail atomic.Pointer[node[T]]
	_    [cacheLinePad]byte
	size atomic.Int64
}

// New creates an empty queue.
func New[T any]() *Queue[T] {
	q := &Queue[T]{}
	sentinel := &node[T]{}
	q.head.Store(sentinel)
	q.tail.Store(sentinel)
	return q
}

// Enqueue appends v at the tail.
func (q *Queue[T]) Enqueue(v T) {
	n := &node[T]{value: v}
	for {
		tail := q.tail.Load()
		next := tail.next.Load()
		if tail != q.tail.Load() {
			continue
		}
		if next != nil {
			// tail is lagging, help it forward
			q.tail.CompareAndSwap(tail, next)
			continue
		}
		if tail.next.CompareAndSwap(nil, n) {
			q.tail.CompareAndSwap(tail, n)
			q.size.Add(1)
			return
		}
	}
}

// Dequeue removes and returns the head item; ok is false if the queue is empty.
//
// The dequeued node becomes the new sentinel and keeps its value reachable
// until the next Dequeue. Clearing it would race with Peek.
func (q *Queue[T]) Dequeue() (item T, ok bool) {
	for {
		head := q.head.Load()
		tail := q.tail.Load()
		next := head.next.Load()
		if head != q.head.Load() {
			continue
		}
		if next == nil {
			return item, false
		}
		if head == tail {
			q.tail.CompareAndSwap(tail, next)
			continue
		}
		if q.head.CompareAndSwap(head, next) {
			q.size.Add(-1)
			return next.value, true
		}
	}
}

// Peek returns the head item without removing it; ok is false if the queue
// is empty. The item may be dequeued by another goroutine at any moment.
func (q *Queue[T]) Peek() (item T, ok bool) {
	next := q.head.Load().next.Load()
	if next == nil {
		return item, false
	}
	return next.value, true
}

// Len returns the approximate number of queued items. Under concurrent
// traffic it may lag the true length by the number of in-flight operations.
func (q *Queue[T]) Len() int {
	n := q.size.Load()
	if n < 0 {
		return 0
	}
	return int(n)
}
