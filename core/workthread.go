package core

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// ErrThreadStopped is returned when submitting to a WorkThread whose
// consumer has been stopped and drained.
var ErrThreadStopped = errors.New("work thread stopped")

var threadSeq atomic.Uint64

// WorkThread owns one dedicated goroutine that executes arbitrary tasks
// sequentially, in strict submission order. Each instance has a single
// consumer for its own exclusive use, so state touched only from its tasks
// needs no locking. Concurrency comes from composing many WorkThreads, not
// from sharing one.
//
// Submission never waits for execution; it blocks only under backpressure
// when the bounded task queue is full.
//
// Lifecycle: the consumer goroutine starts with the WorkThread and
// terminates only once Quit has been requested AND the queue has drained.
// Tasks submitted after Quit but before the consumer observes the empty
// queue still execute; Quit guarantees eventual, not immediate, cessation.
type WorkThread struct {
	que  *TaskQueue
	quit atomic.Bool

	stopped  chan struct{}
	stopOnce sync.Once

	// Consumer goroutine id, recorded when the loop starts.
	threadID atomic.Uint64

	name     string
	logger   Logger
	metrics  Metrics
	failures FailureHandler
	history  *executionHistory
}

// NewWorkThread creates a work thread and starts its consumer goroutine
// immediately.
func NewWorkThread(opts ...Option) *WorkThread {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	cfg.applyDefaults()

	name := cfg.Name
	if name == "" {
		name = fmt.Sprintf("work-thread-%d", threadSeq.Add(1))
	}

	capacity := cfg.QueueCapacity
	if capacity <= 0 {
		capacity = MaxCapacity
	}

	w := &WorkThread{
		que:      NewBoundedTaskQueue(capacity),
		stopped:  make(chan struct{}),
		name:     name,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		failures: cfg.FailureHandler,
	}
	if cfg.HistoryCapacity > 0 {
		h := newExecutionHistory(cfg.HistoryCapacity)
		w.history = &h
	}

	go w.threadFunc()
	return w
}

// Name returns the thread's label used in logs and metrics.
func (w *WorkThread) Name() string {
	return w.name
}

// threadFunc is the consumer loop. It runs in the context of the dedicated
// goroutine, dequeuing and executing one task at a time until quit has been
// requested and the queue is empty. A failing task never terminates the
// loop.
func (w *WorkThread) threadFunc() {
	defer close(w.stopped)

	w.threadID.Store(goroutineID())
	ctx := context.WithValue(context.Background(), workThreadKey, w)

	for !(w.quit.Load() && w.que.Empty()) {
		task, err := w.que.Get()
		if err != nil {
			// Queue closed and drained.
			return
		}
		w.runTask(ctx, task)
		w.que.TaskDone()
	}
}

func (w *WorkThread) runTask(ctx context.Context, task Task) {
	startedAt := time.Now()
	panicked := false

	func() {
		defer func() {
			if r := recover(); r != nil {
				panicked = true
				err := &PanicError{Value: r, Stack: debug.Stack()}
				w.metrics.RecordTaskPanic(w.name, r)
				w.metrics.RecordCastFailure(w.name)
				w.failures.HandleFailure(ctx, w.name, err)
				w.logger.Error("task panicked",
					F("thread", w.name), F("panic", r))
			}
		}()
		task(ctx)
	}()

	finishedAt := time.Now()
	w.metrics.RecordTaskDuration(w.name, finishedAt.Sub(startedAt))
	if w.history != nil {
		w.history.Add(TaskRecord{
			ThreadName: w.name,
			StartedAt:  startedAt,
			FinishedAt: finishedAt,
			Duration:   finishedAt.Sub(startedAt),
			Panicked:   panicked,
		})
	}
}

// enqueue places a task on the queue, blocking under backpressure.
func (w *WorkThread) enqueue(t Task) error {
	if err := w.que.Put(t); err != nil {
		return ErrThreadStopped
	}
	return nil
}

// Cast sends a task to run on the thread asynchronously, discarding any
// outcome. A panic raised by the task is recovered by the consumer loop and
// routed to the FailureHandler; no caller ever observes it. This is a
// deliberate fire-and-forget contract.
//
// Cast blocks only when the bounded queue is full. It returns
// ErrThreadStopped once the thread has been stopped.
func (w *WorkThread) Cast(f Task) error {
	return w.enqueue(f)
}

// TryCast is Cast without blocking: it returns false when the queue is full
// or the thread is stopped.
func (w *WorkThread) TryCast(f Task) bool {
	return w.que.TryPut(f)
}

// CastErr is Cast for tasks that report errors. The returned error of f
// goes to the FailureHandler, since no caller is waiting for it.
func (w *WorkThread) CastErr(f func(ctx context.Context) error) error {
	return w.Cast(func(ctx context.Context) {
		if err := f(ctx); err != nil {
			w.metrics.RecordCastFailure(w.name)
			w.failures.HandleFailure(ctx, w.name, err)
			w.logger.Warn("cast task failed",
				F("thread", w.name), F("error", err))
		}
	})
}

// Call queues a task and blocks until it has executed on the thread. An
// error returned by f, or a PanicError if it panicked, is propagated back
// to the caller.
func (w *WorkThread) Call(f func(ctx context.Context) error) error {
	_, err := Call(w, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, f(ctx)
	})
	return err
}

// Flush waits until all the tasks queued up until now have executed. It
// simply queues a no-op and blocks the caller until it runs; because tasks
// run strictly FIFO to completion, its return implies every earlier task
// has finished. It does not imply the queue is empty: other producers may
// have queued work in the meantime.
func (w *WorkThread) Flush() error {
	return w.Call(func(ctx context.Context) error { return nil })
}

// Quit requests that the consumer stop once the queue drains, and wakes it
// with a no-op in case it is blocked on an empty queue. Tasks already
// queued, and any queued before the consumer observes quit+empty, still run
// to completion. This is a graceful drain, not a cancellation.
func (w *WorkThread) Quit() {
	w.quit.Store(true)
	_ = w.enqueue(func(ctx context.Context) {})
}

// Join blocks until the consumer goroutine has terminated.
func (w *WorkThread) Join() {
	<-w.stopped
}

// Stop quits, waits for the drain to finish, and closes the queue so late
// submitters fail fast. Safe to call more than once.
func (w *WorkThread) Stop() {
	w.stopOnce.Do(func() {
		w.Quit()
		w.Join()
		w.que.Close()
		w.logger.Debug("work thread stopped", F("thread", w.name))
	})
}

// ThreadID returns the goroutine id of the dedicated consumer. It is zero
// for a brief window after construction, until the consumer loop has
// started.
func (w *WorkThread) ThreadID() uint64 {
	return w.threadID.Load()
}

// OnWorkerThread reports whether the caller is currently executing on this
// thread's dedicated consumer goroutine.
func (w *WorkThread) OnWorkerThread() bool {
	id := w.threadID.Load()
	return id != 0 && id == goroutineID()
}

// QueueCapacity returns the capacity of the task queue.
func (w *WorkThread) QueueCapacity() int {
	return w.que.Capacity()
}

// SetQueueCapacity bounds the task queue at runtime. This is the
// backpressure control knob: when the queue reaches capacity, submitters
// block until the consumer catches up.
func (w *WorkThread) SetQueueCapacity(capacity int) {
	w.que.SetCapacity(capacity)
}

// QueueSize returns the number of tasks currently queued.
func (w *WorkThread) QueueSize() int {
	return w.que.Size()
}

// NumTasks returns the number of outstanding tasks: submitted but not yet
// run to completion.
func (w *WorkThread) NumTasks() int {
	return w.que.NumTasks()
}

// Wait blocks until every submitted task has been run to completion and
// acknowledged. Unlike Flush it does not queue anything; it observes the
// outstanding-task counter directly.
func (w *WorkThread) Wait() {
	w.que.Wait()
}

// Stats captures a point-in-time snapshot for observability.
func (w *WorkThread) Stats() ThreadStats {
	stopped := false
	select {
	case <-w.stopped:
		stopped = true
	default:
	}
	return ThreadStats{
		Name:        w.name,
		QueueDepth:  w.que.Size(),
		Outstanding: w.que.NumTasks(),
		Capacity:    w.que.Capacity(),
		Stopped:     stopped,
	}
}

// RecentHistory returns up to limit of the most recent task execution
// records, newest first. It returns nil unless the thread was built with
// WithHistory.
func (w *WorkThread) RecentHistory(limit int) []TaskRecord {
	if w.history == nil {
		return nil
	}
	return w.history.Recent(limit)
}

// =============================================================================
// Result-bearing submission (package-level: methods cannot be generic)
// =============================================================================

// Submit queues a result-bearing task and returns the paired future
// immediately. It blocks only under backpressure from the bounded queue,
// never for execution. If the thread is stopped the future is already
// completed with ErrThreadStopped.
func Submit[T any](w *WorkThread, f ResultFunc[T]) *Future[T] {
	fut := newFuture[T]()
	task := func(ctx context.Context) {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				fut.complete(zero, &PanicError{Value: r, Stack: debug.Stack()})
			}
		}()
		v, err := f(ctx)
		fut.complete(v, err)
	}
	if err := w.enqueue(task); err != nil {
		var zero T
		fut.complete(zero, err)
	}
	return fut
}

// Call submits then blocks on the future, returning the task's result. Any
// failure raised while executing f is reported here and only here.
func Call[T any](w *WorkThread, f ResultFunc[T]) (T, error) {
	return Submit(w, f).Get()
}

// CallContext is Call with a bound on the caller's wait. The task still
// executes even if ctx expires first.
func CallContext[T any](ctx context.Context, w *WorkThread, f ResultFunc[T]) (T, error) {
	return Submit(w, f).GetContext(ctx)
}
