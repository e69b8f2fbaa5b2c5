package core

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"
)

// MaxCapacity is the default queue capacity: unbounded in the practical
// sense, limited only by memory.
const MaxCapacity = math.MaxInt

const (
	defaultQueueCap     = 16
	compactMinCap       = 64 // Don't compact if capacity is less than this
	compactShrinkFactor = 4  // Trigger compaction when len < cap/4
)

// ErrQueueClosed is returned by queue operations after Close. Blocking
// producers fail fast instead of waiting forever; consumers may still drain
// items that were queued before the close.
var ErrQueueClosed = errors.New("task queue closed")

// TaskQueue is a thread-safe bounded FIFO for passing tasks to a consumer
// thread, with an outstanding-task count that is decoupled from dequeue.
//
// Every successful put increments the number of outstanding tasks. The count
// is NOT decremented when an item is removed; the consumer acknowledges
// completion explicitly with TaskDone after it has finished executing the
// task. Wait blocks until the outstanding count reaches zero. This mirrors
// the accounting of Python's queue.Queue.
//
// When the queue is at capacity, Put blocks the producer; this is the
// backpressure knob. The capacity may be changed at any time, including to a
// value smaller than the current size, in which case puts block until enough
// items are removed.
//
// One mutex guards the contents, the capacity, and the outstanding counter.
// The three condition signals ("not empty", "not full", "all tasks done")
// are generation channels that are closed and replaced on each broadcast,
// which lets the timed try-variants select on them alongside a timer.
type TaskQueue struct {
	mu     sync.Mutex
	tasks  []Task
	cap    int
	nTasks int
	closed bool

	notEmpty chan struct{} // replaced when an item lands in an empty queue
	notFull  chan struct{} // replaced when an item is removed or capacity grows
	allDone  chan struct{} // replaced when the outstanding count reaches zero
}

// NewTaskQueue creates a queue with the largest capacity supported.
func NewTaskQueue() *TaskQueue {
	return NewBoundedTaskQueue(MaxCapacity)
}

// NewBoundedTaskQueue creates a queue with the given maximum capacity.
func NewBoundedTaskQueue(capacity int) *TaskQueue {
	if capacity <= 0 {
		capacity = MaxCapacity
	}
	return &TaskQueue{
		tasks:    make([]Task, 0, defaultQueueCap),
		cap:      capacity,
		notEmpty: make(chan struct{}),
		notFull:  make(chan struct{}),
		allDone:  make(chan struct{}),
	}
}

// putLocked unconditionally appends, assuming the caller holds the lock and
// has checked for room. Signals "not empty" if the queue was empty.
func (q *TaskQueue) putLocked(t Task) {
	wasEmpty := len(q.tasks) == 0
	q.tasks = append(q.tasks, t)
	q.nTasks++
	if wasEmpty {
		close(q.notEmpty)
		q.notEmpty = make(chan struct{})
	}
}

// getLocked unconditionally removes the front item, assuming the caller
// holds the lock and has checked for at least one item. Signals "not full"
// so a blocked producer can re-check against the current capacity. The
// outstanding counter is untouched.
func (q *TaskQueue) getLocked() Task {
	t := q.tasks[0]
	q.tasks[0] = nil // release the reference held by the backing array
	q.tasks = q.tasks[1:]
	q.maybeCompactLocked()
	close(q.notFull)
	q.notFull = make(chan struct{})
	return t
}

func (q *TaskQueue) maybeCompactLocked() {
	n := len(q.tasks)
	c := cap(q.tasks)

	if c < compactMinCap {
		return
	}
	if n == 0 {
		q.tasks = make([]Task, 0, defaultQueueCap)
		return
	}
	if n*compactShrinkFactor >= c {
		return
	}

	newCap := max(max(c/2, defaultQueueCap), n)
	newSlice := make([]Task, n, newCap)
	copy(newSlice, q.tasks)
	q.tasks = newSlice
}

// Put adds a task to the queue, blocking while the queue is at capacity.
// Returns ErrQueueClosed if the queue is, or becomes, closed.
func (q *TaskQueue) Put(t Task) error {
	q.mu.Lock()
	for {
		if q.closed {
			q.mu.Unlock()
			return ErrQueueClosed
		}
		if len(q.tasks) < q.cap {
			q.putLocked(t)
			q.mu.Unlock()
			return nil
		}
		wait := q.notFull
		q.mu.Unlock()
		<-wait
		q.mu.Lock()
	}
}

// TryPut adds a task without blocking. Returns false if the queue is full
// or closed.
func (q *TaskQueue) TryPut(t Task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || len(q.tasks) >= q.cap {
		return false
	}
	q.putLocked(t)
	return true
}

// TryPutFor adds a task, waiting up to relTime for a slot to open. Returns
// false on timeout or close.
func (q *TaskQueue) TryPutFor(t Task, relTime time.Duration) bool {
	return q.TryPutUntil(t, time.Now().Add(relTime))
}

// TryPutUntil adds a task, waiting until absTime for a slot to open.
// Returns false on timeout or close.
func (q *TaskQueue) TryPutUntil(t Task, absTime time.Time) bool {
	timer := time.NewTimer(time.Until(absTime))
	defer timer.Stop()

	q.mu.Lock()
	for {
		if q.closed {
			q.mu.Unlock()
			return false
		}
		if len(q.tasks) < q.cap {
			q.putLocked(t)
			q.mu.Unlock()
			return true
		}
		wait := q.notFull
		q.mu.Unlock()
		select {
		case <-wait:
			q.mu.Lock()
		case <-timer.C:
			// Deadline passed; take the slot only if one opened in the
			// meantime.
			q.mu.Lock()
			if !q.closed && len(q.tasks) < q.cap {
				q.putLocked(t)
				q.mu.Unlock()
				return true
			}
			q.mu.Unlock()
			return false
		}
	}
}

// Get removes and returns the front task, blocking while the queue is
// empty. A closed queue still drains: Get fails with ErrQueueClosed only
// once the queue is both closed and empty.
func (q *TaskQueue) Get() (Task, error) {
	q.mu.Lock()
	for {
		if len(q.tasks) > 0 {
			t := q.getLocked()
			q.mu.Unlock()
			return t, nil
		}
		if q.closed {
			q.mu.Unlock()
			return nil, ErrQueueClosed
		}
		wait := q.notEmpty
		q.mu.Unlock()
		<-wait
		q.mu.Lock()
	}
}

// TryGet removes the front task without blocking. Returns false if the
// queue is empty.
func (q *TaskQueue) TryGet() (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return nil, false
	}
	return q.getLocked(), true
}

// TryGetFor removes the front task, waiting up to relTime for one to
// arrive. Returns false on timeout or on a closed, drained queue.
func (q *TaskQueue) TryGetFor(relTime time.Duration) (Task, bool) {
	return q.TryGetUntil(time.Now().Add(relTime))
}

// TryGetUntil removes the front task, waiting until absTime for one to
// arrive. Returns false on timeout or on a closed, drained queue.
func (q *TaskQueue) TryGetUntil(absTime time.Time) (Task, bool) {
	timer := time.NewTimer(time.Until(absTime))
	defer timer.Stop()

	q.mu.Lock()
	for {
		if len(q.tasks) > 0 {
			t := q.getLocked()
			q.mu.Unlock()
			return t, true
		}
		if q.closed {
			q.mu.Unlock()
			return nil, false
		}
		wait := q.notEmpty
		q.mu.Unlock()
		select {
		case <-wait:
			q.mu.Lock()
		case <-timer.C:
			q.mu.Lock()
			if len(q.tasks) > 0 {
				t := q.getLocked()
				q.mu.Unlock()
				return t, true
			}
			q.mu.Unlock()
			return nil, false
		}
	}
}

// TaskDone marks one dequeued task as fully processed, decrementing the
// outstanding count. Reaching zero releases every Wait caller. Calling
// TaskDone with nothing outstanding is a no-op.
func (q *TaskQueue) TaskDone() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.nTasks == 0 {
		return
	}
	q.nTasks--
	if q.nTasks == 0 {
		close(q.allDone)
		q.allDone = make(chan struct{})
	}
}

// Wait blocks until the outstanding task count reaches zero. New tasks can
// be added and processed by other threads while this is blocked.
func (q *TaskQueue) Wait() {
	q.mu.Lock()
	for q.nTasks != 0 {
		wait := q.allDone
		q.mu.Unlock()
		<-wait
		q.mu.Lock()
	}
	q.mu.Unlock()
}

// WaitContext is Wait with cancellation.
func (q *TaskQueue) WaitContext(ctx context.Context) error {
	q.mu.Lock()
	for q.nTasks != 0 {
		wait := q.allDone
		q.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
		q.mu.Lock()
	}
	q.mu.Unlock()
	return nil
}

// Close marks the queue closed. Producers fail fast from then on; blocked
// producers and consumers are woken. Items already queued may still be
// drained with Get.
func (q *TaskQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.notEmpty)
	q.notEmpty = make(chan struct{})
	close(q.notFull)
	q.notFull = make(chan struct{})
}

// IsClosed reports whether Close has been called.
func (q *TaskQueue) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Size returns the number of tasks currently in the queue.
func (q *TaskQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Empty reports whether the queue holds no tasks.
func (q *TaskQueue) Empty() bool {
	return q.Size() == 0
}

// NumTasks returns the number of outstanding tasks: queued plus dequeued
// but not yet acknowledged with TaskDone.
func (q *TaskQueue) NumTasks() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.nTasks
}

// Capacity returns the maximum number of tasks the queue will hold before
// Put blocks.
func (q *TaskQueue) Capacity() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.cap
}

// SetCapacity changes the capacity at runtime. Setting it below the current
// size is legal; puts simply block until enough items are removed. Raising
// it wakes blocked producers.
func (q *TaskQueue) SetCapacity(capacity int) {
	if capacity <= 0 {
		capacity = MaxCapacity
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	grew := capacity > q.cap
	q.cap = capacity
	if grew {
		close(q.notFull)
		q.notFull = make(chan struct{})
	}
}
